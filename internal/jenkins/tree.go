package jenkins

import (
	"context"

	"github.com/jenkins-mcp-integ/internal/namespace"
	"github.com/jenkins-mcp-integ/pkg/api"
)

// ListChildren returns the immediate children of folder, implementing
// namespace.Lister. The empty path lists the repository root.
func (c *Client) ListChildren(ctx context.Context, folder []string) ([]namespace.Child, error) {
	if len(folder) == 0 {
		j, err := c.connect(ctx)
		if err != nil {
			return nil, err
		}
		inner, err := j.GetAllJobNames(ctx)
		if err != nil {
			return nil, classify(err, api.ErrNotFound)
		}
		children := make([]namespace.Child, 0, len(inner))
		for _, job := range inner {
			children = append(children, namespace.Child{
				Name:   job.Name,
				Folder: isFolderClass(job.Class),
				URL:    job.Url,
			})
		}
		return children, nil
	}

	job, err := c.getJob(ctx, folder, api.ErrNotFound)
	if err != nil {
		return nil, err
	}
	children := make([]namespace.Child, 0, len(job.Raw.Jobs))
	for _, inner := range job.Raw.Jobs {
		children = append(children, namespace.Child{
			Name:   inner.Name,
			Folder: isFolderClass(inner.Class),
			URL:    inner.Url,
		})
	}
	return children, nil
}
