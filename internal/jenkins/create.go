package jenkins

import (
	"context"
	"encoding/xml"
	"fmt"

	"github.com/jenkins-mcp-integ/internal/namespace"
	"github.com/jenkins-mcp-integ/pkg/api"
)

// freestyleProject is the minimal config.xml for a freestyle job running a
// single shell step. Marshalled with encoding/xml so user-supplied
// descriptions and commands are escaped properly.
type freestyleProject struct {
	XMLName         xml.Name     `xml:"project"`
	Description     string       `xml:"description"`
	KeepDeps        bool         `xml:"keepDependencies"`
	Properties      struct{}     `xml:"properties"`
	SCM             nullSCM      `xml:"scm"`
	CanRoam         bool         `xml:"canRoam"`
	Disabled        bool         `xml:"disabled"`
	BlockDownstream bool         `xml:"blockBuildWhenDownstreamBuilding"`
	BlockUpstream   bool         `xml:"blockBuildWhenUpstreamBuilding"`
	Triggers        struct{}     `xml:"triggers"`
	Concurrent      bool         `xml:"concurrentBuild"`
	Builders        buildersNode `xml:"builders"`
	Publishers      struct{}     `xml:"publishers"`
	BuildWrappers   struct{}     `xml:"buildWrappers"`
}

type nullSCM struct {
	Class string `xml:"class,attr"`
}

type buildersNode struct {
	Shell shellStep `xml:"hudson.tasks.Shell"`
}

type shellStep struct {
	Command string `xml:"command"`
}

// jobConfigXML renders the config.xml payload for a shell job.
func jobConfigXML(description, command string) (string, error) {
	project := freestyleProject{
		Description: description,
		SCM:         nullSCM{Class: "hudson.scm.NullSCM"},
		CanRoam:     true,
		Builders:    buildersNode{Shell: shellStep{Command: command}},
	}
	out, err := xml.MarshalIndent(project, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal job config: %w", err)
	}
	return xml.Header + string(out), nil
}

// CreateJob creates a freestyle job running command inside folder (the
// repository root when folder is empty). The parent folder must already
// exist.
func (c *Client) CreateJob(ctx context.Context, folder []string, name, description, command string) (api.CreatedJob, error) {
	j, err := c.connect(ctx)
	if err != nil {
		return api.CreatedJob{}, err
	}

	config, err := jobConfigXML(description, command)
	if err != nil {
		return api.CreatedJob{}, err
	}

	job, err := j.CreateJobInFolder(ctx, config, name, folder...)
	if err != nil {
		return api.CreatedJob{}, classify(err, api.ErrNotFound)
	}

	path := namespace.Join(append(append([]string(nil), folder...), name))
	created := api.CreatedJob{JobPath: path}
	if job != nil && job.Raw != nil {
		created.URL = job.Raw.URL
	}
	c.log.Info("job created", "path", path)
	return created, nil
}

// CreateFolder creates a folder under parent (repository root when parent
// is empty).
func (c *Client) CreateFolder(ctx context.Context, parent []string, name string) error {
	j, err := c.connect(ctx)
	if err != nil {
		return err
	}
	if _, err := j.CreateFolder(ctx, name, parent...); err != nil {
		return classify(err, api.ErrNotFound)
	}
	c.log.Info("folder created", "path", namespace.Join(append(append([]string(nil), parent...), name)))
	return nil
}
