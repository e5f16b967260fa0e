package jenkins

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jenkins-mcp-integ/pkg/api"
)

func TestClassify(t *testing.T) {
	// gojenkins reports non-200 responses as bare status-code strings.
	err := classify(errors.New("404"), api.ErrJobNotFound)
	assert.ErrorIs(t, err, api.ErrJobNotFound)

	err = classify(errors.New("job Deploy not found"), api.ErrNotFound)
	assert.ErrorIs(t, err, api.ErrNotFound)

	err = classify(errors.New("connection refused"), api.ErrJobNotFound)
	assert.ErrorIs(t, err, api.ErrUpstreamUnavailable)
	assert.NotErrorIs(t, err, api.ErrJobNotFound)

	assert.NoError(t, classify(nil, api.ErrNotFound))
}

func TestIsFolderClass(t *testing.T) {
	assert.True(t, isFolderClass("com.cloudbees.hudson.plugins.folder.Folder"))
	assert.True(t, isFolderClass("jenkins.branch.OrganizationFolder"))
	assert.True(t, isFolderClass("org.jenkinsci.plugins.workflow.multibranch.WorkflowMultiBranchProject"))
	assert.False(t, isFolderClass("hudson.model.FreeStyleProject"))
	assert.False(t, isFolderClass("org.jenkinsci.plugins.workflow.job.WorkflowJob"))
	assert.False(t, isFolderClass(""))
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name     string
		building bool
		result   string
		want     api.BuildStatus
	}{
		{"running", true, "", api.StatusRunning},
		{"running overrides stale result", true, "SUCCESS", api.StatusRunning},
		{"success", false, "SUCCESS", api.StatusSuccess},
		{"failure", false, "FAILURE", api.StatusFailure},
		{"unstable counts as failure", false, "UNSTABLE", api.StatusFailure},
		{"aborted", false, "ABORTED", api.StatusAborted},
		{"queued", false, "", api.StatusPending},
		{"unexpected", false, "NOT_BUILT", api.StatusUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusOf(tt.building, tt.result))
		})
	}
}

func TestJobConfigXML(t *testing.T) {
	out, err := jobConfigXML("nightly backup", "make backup && make verify")
	require.NoError(t, err)

	assert.Contains(t, out, "<?xml")
	assert.Contains(t, out, "<description>nightly backup</description>")
	assert.Contains(t, out, "<hudson.tasks.Shell>")
	// Shell metacharacters must survive XML escaping intact.
	assert.Contains(t, out, "make backup &amp;&amp; make verify")
	assert.Contains(t, out, `<scm class="hudson.scm.NullSCM">`)
}

func TestJobConfigXMLEscapesMarkup(t *testing.T) {
	out, err := jobConfigXML("<b>bold</b>", "echo '<done>'")
	require.NoError(t, err)

	assert.NotContains(t, out, "<b>bold</b>")
	assert.Contains(t, out, "&lt;b&gt;bold&lt;/b&gt;")
}

func TestNewTrimsBaseURL(t *testing.T) {
	c := New("http://jenkins:8080///", "admin", "token", nil, nil)
	assert.Equal(t, "http://jenkins:8080", c.baseURL)
}
