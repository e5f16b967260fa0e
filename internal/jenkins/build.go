package jenkins

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/bndr/gojenkins"

	"github.com/jenkins-mcp-integ/internal/lifecycle"
	"github.com/jenkins-mcp-integ/internal/namespace"
	"github.com/jenkins-mcp-integ/pkg/api"
)

// Trigger submits one build request for the job at path and returns the
// server-assigned queue item id. The path is re-validated here: topology
// can change between resolution and trigger, and a folder must never be
// built as if it were a job.
func (c *Client) Trigger(ctx context.Context, path []string, params map[string]string) (int64, error) {
	job, err := c.getJob(ctx, path, api.ErrJobNotFound)
	if err != nil {
		return 0, err
	}
	if isFolderClass(job.Raw.Class) {
		return 0, fmt.Errorf("%w: %q is a folder", api.ErrJobNotFound, namespace.Join(path))
	}
	if !job.Raw.Buildable {
		return 0, fmt.Errorf("%w: %q is not buildable", api.ErrJobNotFound, namespace.Join(path))
	}

	id, err := job.InvokeSimple(ctx, params)
	if err != nil {
		return 0, classify(err, api.ErrJobNotFound)
	}
	return id, nil
}

// QueueItem reads the current state of one queue item.
func (c *Client) QueueItem(ctx context.Context, id int64) (lifecycle.QueueState, error) {
	j, err := c.connect(ctx)
	if err != nil {
		return lifecycle.QueueState{}, err
	}
	task, err := j.GetQueueItem(ctx, id)
	if err != nil {
		return lifecycle.QueueState{}, classify(err, api.ErrNotFound)
	}
	return lifecycle.QueueState{
		BuildNumber: task.Raw.Executable.Number,
		Cancelled:   task.Raw.Cancelled,
		Why:         task.Raw.Why,
	}, nil
}

// buildBySelector fetches one build by concrete number or symbolic token.
// Symbolic tokens resolve on the server, never locally.
func (c *Client) buildBySelector(ctx context.Context, path []string, sel api.BuildSelector) (*gojenkins.Build, error) {
	job, err := c.getJob(ctx, path, api.ErrJobNotFound)
	if err != nil {
		return nil, err
	}

	var build *gojenkins.Build
	switch sel.Symbolic {
	case "":
		build, err = job.GetBuild(ctx, sel.Number)
	case api.SelectorLastBuild:
		build, err = job.GetLastBuild(ctx)
	case api.SelectorLastSuccessfulBuild:
		build, err = job.GetLastSuccessfulBuild(ctx)
	case api.SelectorLastCompletedBuild:
		build, err = job.GetLastCompletedBuild(ctx)
	default:
		return nil, fmt.Errorf("%w: unsupported selector %q", api.ErrBuildNotFound, sel.Symbolic)
	}
	if err != nil {
		return nil, classify(err, api.ErrBuildNotFound)
	}
	if build == nil {
		return nil, fmt.Errorf("%w: %q has no build %s", api.ErrBuildNotFound, namespace.Join(path), sel)
	}
	return build, nil
}

// Build reads one build of the job at path, selected by number or by one
// of the symbolic tokens the server resolves itself.
func (c *Client) Build(ctx context.Context, path []string, sel api.BuildSelector) (api.BuildRecord, error) {
	build, err := c.buildBySelector(ctx, path, sel)
	if err != nil {
		return api.BuildRecord{}, err
	}
	return toRecord(build, path), nil
}

// ConsoleChunk reads console output of one build starting at cursor.
func (c *Client) ConsoleChunk(ctx context.Context, path []string, sel api.BuildSelector, cursor int64) (api.LogChunk, error) {
	build, err := c.buildBySelector(ctx, path, sel)
	if err != nil {
		return api.LogChunk{}, err
	}

	if cursor < 0 {
		cursor = 0
	}
	resp, err := build.GetConsoleOutputFromIndex(ctx, cursor)
	if err != nil {
		return api.LogChunk{}, classify(err, api.ErrBuildNotFound)
	}
	return api.LogChunk{
		JobPath:   namespace.Join(path),
		Selector:  sel.String(),
		Text:      resp.Content,
		NewCursor: resp.Offset,
		Complete:  !resp.HasMoreText,
	}, nil
}

// BuildHistory returns up to limit builds of the job at path, newest
// first. Every build is read individually; builds that vanish between the
// id listing and the detail read are skipped.
func (c *Client) BuildHistory(ctx context.Context, path []string, limit int) ([]api.BuildRecord, error) {
	job, err := c.getJob(ctx, path, api.ErrJobNotFound)
	if err != nil {
		return nil, err
	}

	ids, err := job.GetAllBuildIds(ctx)
	if err != nil {
		return nil, classify(err, api.ErrJobNotFound)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Number > ids[j].Number })

	records := make([]api.BuildRecord, 0, limit)
	for _, id := range ids {
		if len(records) >= limit {
			break
		}
		build, err := job.GetBuild(ctx, id.Number)
		if err != nil {
			c.log.Warn("skipping unreadable build",
				"job", namespace.Join(path),
				"build", id.Number,
				"error", err.Error(),
			)
			continue
		}
		records = append(records, toRecord(build, path))
	}
	return records, nil
}

func toRecord(build *gojenkins.Build, path []string) api.BuildRecord {
	record := api.BuildRecord{
		JobPath:  namespace.Join(path),
		Number:   build.Raw.Number,
		Status:   statusOf(build.Raw.Building, build.Raw.Result),
		URL:      build.Raw.URL,
		Duration: time.Duration(build.Raw.Duration) * time.Millisecond,
	}
	if build.Raw.Timestamp > 0 {
		record.Timestamp = time.UnixMilli(build.Raw.Timestamp)
	}
	return record
}

// statusOf normalizes the building flag and result string Jenkins reports.
// UNSTABLE counts as a failure: the build completed but did not pass.
func statusOf(building bool, result string) api.BuildStatus {
	if building {
		return api.StatusRunning
	}
	switch result {
	case "SUCCESS":
		return api.StatusSuccess
	case "FAILURE", "UNSTABLE":
		return api.StatusFailure
	case "ABORTED":
		return api.StatusAborted
	case "":
		return api.StatusPending
	default:
		return api.StatusUnknown
	}
}
