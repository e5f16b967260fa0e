// Package jenkins adapts the gojenkins API client to the narrow interfaces
// the rest of the service consumes: namespace listing, build lifecycle and
// job creation. All remote failures are folded into the shared error
// taxonomy so callers never see transport details.
package jenkins

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/bndr/gojenkins"

	"github.com/jenkins-mcp-integ/pkg/api"
)

// Client is an authenticated connection to one Jenkins server. The zero
// value is not usable; construct with New. Safe for concurrent use.
type Client struct {
	baseURL    string
	username   string
	apiToken   string
	httpClient *http.Client
	log        *slog.Logger

	mu      sync.Mutex
	jenkins *gojenkins.Jenkins
}

// New creates a Client. The connection itself is established lazily on
// first use so a temporarily unreachable server does not block startup.
func New(baseURL, username, apiToken string, httpClient *http.Client, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		username:   username,
		apiToken:   apiToken,
		httpClient: httpClient,
		log:        logger,
	}
}

func (c *Client) connect(ctx context.Context) (*gojenkins.Jenkins, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.jenkins != nil {
		return c.jenkins, nil
	}

	j := gojenkins.CreateJenkins(c.httpClient, c.baseURL, c.username, c.apiToken)
	if _, err := j.Init(ctx); err != nil {
		return nil, fmt.Errorf("%w: connect to jenkins at %s: %v", api.ErrUpstreamUnavailable, c.baseURL, err)
	}

	c.jenkins = j
	c.log.Info("connected to jenkins", slog.String("url", c.baseURL))
	return c.jenkins, nil
}

// CheckAccessibility verifies the server answers with valid credentials.
func (c *Client) CheckAccessibility(ctx context.Context) error {
	j, err := c.connect(ctx)
	if err != nil {
		return err
	}
	if _, err := j.Info(ctx); err != nil {
		return fmt.Errorf("%w: jenkins info: %v", api.ErrUpstreamUnavailable, err)
	}
	return nil
}

// getJob fetches the job or folder at path. A 404 surfaces as absent.
func (c *Client) getJob(ctx context.Context, path []string, absent error) (*gojenkins.Job, error) {
	if len(path) == 0 {
		return nil, fmt.Errorf("%w: empty job path", absent)
	}
	j, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	job, err := j.GetJob(ctx, path[len(path)-1], path[:len(path)-1]...)
	if err != nil {
		return nil, classify(err, absent)
	}
	return job, nil
}

// classify folds a raw gojenkins error into the taxonomy. gojenkins
// reports non-200 responses as bare status-code strings.
func classify(err error, absent error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "404") || strings.Contains(strings.ToLower(msg), "not found") {
		return fmt.Errorf("%w: %s", absent, msg)
	}
	return fmt.Errorf("%w: %v", api.ErrUpstreamUnavailable, err)
}

// isFolderClass matches the container classes reported in the _class field
// of listing responses. Multibranch projects hold their branch jobs the
// same way folders hold jobs.
func isFolderClass(class string) bool {
	switch class {
	case "com.cloudbees.hudson.plugins.folder.Folder",
		"jenkins.branch.OrganizationFolder",
		"org.jenkinsci.plugins.workflow.multibranch.WorkflowMultiBranchProject":
		return true
	}
	return false
}
