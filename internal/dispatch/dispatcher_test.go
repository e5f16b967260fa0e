package dispatch

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jenkins-mcp-integ/internal/namespace"
	"github.com/jenkins-mcp-integ/pkg/api"
)

// fakeSnaps serves a fixed namespace. Intermediate folders become entries
// of their own, the way a real recursive fetch reports them.
type fakeSnaps struct {
	paths []string
	err   error
}

func (f *fakeSnaps) Fetch(_ context.Context, root []string, recursive bool) (*namespace.Snapshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	var segs [][]string
	for _, p := range f.paths {
		split := namespace.Split(p)
		for end := 1; end <= len(split); end++ {
			segs = append(segs, split[:end])
		}
	}
	return namespace.NewSnapshot(root, recursive, segs), nil
}

type fakeLifecycle struct {
	triggered  []string
	queueID    int64
	build      *api.BuildRecord
	abandoned  *api.Abandoned
	statusOf   map[string]api.BuildRecord
	historyOf  map[string][]api.BuildRecord
	lastLimit  int
	lastCursor int64
}

func (f *fakeLifecycle) Trigger(_ context.Context, jobPath []string, _ map[string]string) (api.QueueRef, error) {
	f.triggered = append(f.triggered, namespace.Join(jobPath))
	return api.QueueRef{ID: f.queueID, JobPath: namespace.Join(jobPath), SubmittedAt: time.Now()}, nil
}

func (f *fakeLifecycle) AwaitBuildNumber(_ context.Context, _ api.QueueRef, _ time.Duration) (*api.BuildRecord, *api.Abandoned, error) {
	return f.build, f.abandoned, nil
}

func (f *fakeLifecycle) Status(_ context.Context, jobPath []string, _ api.BuildSelector) (api.BuildRecord, error) {
	record, ok := f.statusOf[namespace.Join(jobPath)]
	if !ok {
		return api.BuildRecord{}, fmt.Errorf("no build: %w", api.ErrBuildNotFound)
	}
	return record, nil
}

func (f *fakeLifecycle) Log(_ context.Context, jobPath []string, sel api.BuildSelector, cursor int64) (api.LogChunk, error) {
	f.lastCursor = cursor
	return api.LogChunk{JobPath: namespace.Join(jobPath), Selector: sel.String(), Text: "ok", Complete: true}, nil
}

func (f *fakeLifecycle) RecentBuilds(_ context.Context, jobPath []string, limit int) ([]api.BuildRecord, error) {
	f.lastLimit = limit
	return f.historyOf[namespace.Join(jobPath)], nil
}

type fakeCreator struct {
	created []string
	err     error
}

func (f *fakeCreator) CreateJob(_ context.Context, folder []string, name, _, _ string) (api.CreatedJob, error) {
	if f.err != nil {
		return api.CreatedJob{}, f.err
	}
	path := namespace.Join(append(append([]string(nil), folder...), name))
	f.created = append(f.created, path)
	return api.CreatedJob{JobPath: path}, nil
}

func newTestDispatcher(snaps *fakeSnaps, life *fakeLifecycle, create *fakeCreator) *Dispatcher {
	return New(snaps, life, create, 50*time.Millisecond, nil)
}

func TestDispatchUnknownAction(t *testing.T) {
	d := newTestDispatcher(&fakeSnaps{}, &fakeLifecycle{}, &fakeCreator{})

	_, err := d.Dispatch(context.Background(), api.ActionRequest{Action: "restart_server"})
	require.Error(t, err)
	assert.Equal(t, api.KindUnknownAction, api.ClassifyError(err))
}

func TestDispatchMissingJobName(t *testing.T) {
	d := newTestDispatcher(&fakeSnaps{}, &fakeLifecycle{}, &fakeCreator{})

	for _, action := range []string{
		api.ActionTriggerBuild,
		api.ActionGetBuildStatus,
		api.ActionListJobBuilds,
		api.ActionGetBuildLog,
	} {
		t.Run(action, func(t *testing.T) {
			_, err := d.Dispatch(context.Background(), api.ActionRequest{Action: action})
			require.Error(t, err)
			assert.Equal(t, api.KindMissingParameter, api.ClassifyError(err))
		})
	}
}

func TestDispatchListJobs(t *testing.T) {
	snaps := &fakeSnaps{paths: []string{"Deploy/Prod", "smoke-test"}}
	d := newTestDispatcher(snaps, &fakeLifecycle{}, &fakeCreator{})

	result, err := d.Dispatch(context.Background(), api.ActionRequest{
		Action: api.ActionListJobs,
	})
	require.NoError(t, err)
	assert.Equal(t, api.ActionListJobs, result.Action)
	assert.False(t, result.Redirected)
	require.Len(t, result.Jobs, 3)
	kinds := map[string]string{}
	for _, j := range result.Jobs {
		kinds[j.Path] = j.Kind
	}
	assert.Equal(t, "folder", kinds["Deploy"])
	assert.Equal(t, "job", kinds["Deploy/Prod"])
	assert.Equal(t, "job", kinds["smoke-test"])
}

func TestDispatchTriggerResolvedJob(t *testing.T) {
	snaps := &fakeSnaps{paths: []string{"Deploy/Prod"}}
	life := &fakeLifecycle{
		queueID: 4,
		build:   &api.BuildRecord{JobPath: "Deploy/Prod", Number: 8, Status: api.StatusRunning},
	}
	d := newTestDispatcher(snaps, life, &fakeCreator{})

	result, err := d.Dispatch(context.Background(), api.ActionRequest{
		Action:     api.ActionTriggerBuild,
		Parameters: map[string]any{"job_name": "run deploy prod"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Deploy/Prod"}, life.triggered)
	require.NotNil(t, result.Trigger)
	require.NotNil(t, result.Trigger.Build)
	assert.Equal(t, int64(8), result.Trigger.Build.Number)
	assert.Nil(t, result.Trigger.Abandoned)
	assert.Empty(t, result.Notice)
}

func TestDispatchTriggerAbandoned(t *testing.T) {
	snaps := &fakeSnaps{paths: []string{"Deploy/Prod"}}
	life := &fakeLifecycle{
		queueID:   4,
		abandoned: &api.Abandoned{Reason: api.AbandonTimeout},
	}
	d := newTestDispatcher(snaps, life, &fakeCreator{})

	result, err := d.Dispatch(context.Background(), api.ActionRequest{
		Action:     api.ActionTriggerBuild,
		Parameters: map[string]any{"job_name": "Deploy/Prod"},
	})
	require.NoError(t, err)
	require.NotNil(t, result.Trigger)
	assert.Nil(t, result.Trigger.Build)
	require.NotNil(t, result.Trigger.Abandoned)
	assert.Contains(t, result.Notice, "timeout")
}

func TestDispatchFolderReferenceRedirects(t *testing.T) {
	snaps := &fakeSnaps{paths: []string{"Deploy/Prod", "Deploy/Staging"}}
	life := &fakeLifecycle{}
	d := newTestDispatcher(snaps, life, &fakeCreator{})

	result, err := d.Dispatch(context.Background(), api.ActionRequest{
		Action:     api.ActionTriggerBuild,
		Parameters: map[string]any{"job_name": "Deploy"},
	})
	require.NoError(t, err)
	assert.Equal(t, api.ActionListJobs, result.Action)
	assert.True(t, result.Redirected)
	assert.NotEmpty(t, result.Notice)
	assert.Equal(t, "Deploy", result.Folder)
	assert.Len(t, result.Jobs, 2)
	assert.Empty(t, life.triggered, "a folder reference must never trigger a build")
}

func TestDispatchUnresolvedReferenceRedirects(t *testing.T) {
	snaps := &fakeSnaps{paths: []string{"Deploy/Prod"}}
	life := &fakeLifecycle{}
	d := newTestDispatcher(snaps, life, &fakeCreator{})

	result, err := d.Dispatch(context.Background(), api.ActionRequest{
		Action:     api.ActionGetBuildStatus,
		Parameters: map[string]any{"job_name": "Deploy/Nonexistent"},
	})
	require.NoError(t, err)
	assert.Equal(t, api.ActionListJobs, result.Action)
	assert.True(t, result.Redirected)
	assert.Equal(t, "Deploy", result.Folder)
}

func TestDispatchBuildStatus(t *testing.T) {
	snaps := &fakeSnaps{paths: []string{"Deploy/Prod"}}
	life := &fakeLifecycle{statusOf: map[string]api.BuildRecord{
		"Deploy/Prod": {JobPath: "Deploy/Prod", Number: 12, Status: api.StatusSuccess},
	}}
	d := newTestDispatcher(snaps, life, &fakeCreator{})

	result, err := d.Dispatch(context.Background(), api.ActionRequest{
		Action:     api.ActionGetBuildStatus,
		Parameters: map[string]any{"job_name": "Deploy/Prod", "build_number": "12"},
	})
	require.NoError(t, err)
	require.NotNil(t, result.Build)
	assert.Equal(t, api.StatusSuccess, result.Build.Status)
}

func TestDispatchBuildStatusInvalidSelector(t *testing.T) {
	snaps := &fakeSnaps{paths: []string{"Deploy/Prod"}}
	d := newTestDispatcher(snaps, &fakeLifecycle{}, &fakeCreator{})

	_, err := d.Dispatch(context.Background(), api.ActionRequest{
		Action:     api.ActionGetBuildStatus,
		Parameters: map[string]any{"job_name": "Deploy/Prod", "build_number": "latest"},
	})
	require.Error(t, err)
	assert.Equal(t, api.KindMissingParameter, api.ClassifyError(err))
}

func TestDispatchListBuildsPassesLimit(t *testing.T) {
	snaps := &fakeSnaps{paths: []string{"Deploy/Prod"}}
	life := &fakeLifecycle{historyOf: map[string][]api.BuildRecord{
		"Deploy/Prod": {{Number: 3}, {Number: 2}},
	}}
	d := newTestDispatcher(snaps, life, &fakeCreator{})

	result, err := d.Dispatch(context.Background(), api.ActionRequest{
		Action:     api.ActionListJobBuilds,
		Parameters: map[string]any{"job_name": "Deploy/Prod", "limit": float64(2)},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, life.lastLimit)
	assert.Len(t, result.Builds, 2)
}

func TestDispatchBuildLogCursor(t *testing.T) {
	snaps := &fakeSnaps{paths: []string{"Deploy/Prod"}}
	life := &fakeLifecycle{}
	d := newTestDispatcher(snaps, life, &fakeCreator{})

	result, err := d.Dispatch(context.Background(), api.ActionRequest{
		Action:     api.ActionGetBuildLog,
		Parameters: map[string]any{"job_name": "Deploy/Prod", "cursor": float64(128)},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(128), life.lastCursor)
	require.NotNil(t, result.Log)
	assert.Equal(t, "lastBuild", result.Log.Selector)
}

func TestDispatchCreateJob(t *testing.T) {
	creator := &fakeCreator{}
	d := newTestDispatcher(&fakeSnaps{}, &fakeLifecycle{}, creator)

	result, err := d.Dispatch(context.Background(), api.ActionRequest{
		Action: api.ActionCreateJob,
		Parameters: map[string]any{
			"job_name":    "nightly-backup",
			"command":     "make backup",
			"folder_name": "Ops",
		},
	})
	require.NoError(t, err)
	require.NotNil(t, result.Created)
	assert.Equal(t, "Ops/nightly-backup", result.Created.JobPath)
	assert.Equal(t, []string{"Ops/nightly-backup"}, creator.created)
}

func TestDispatchCreateJobValidation(t *testing.T) {
	d := newTestDispatcher(&fakeSnaps{}, &fakeLifecycle{}, &fakeCreator{})

	_, err := d.Dispatch(context.Background(), api.ActionRequest{
		Action:     api.ActionCreateJob,
		Parameters: map[string]any{"command": "true"},
	})
	require.Error(t, err)
	assert.Equal(t, api.KindMissingParameter, api.ClassifyError(err))

	_, err = d.Dispatch(context.Background(), api.ActionRequest{
		Action:     api.ActionCreateJob,
		Parameters: map[string]any{"job_name": "x"},
	})
	require.Error(t, err)
	assert.Equal(t, api.KindMissingParameter, api.ClassifyError(err))
}

func TestDispatchTriggerThenStatusScenario(t *testing.T) {
	// A single job with no children: the bare name resolves as a job,
	// trigger produces a numbered build, and a later status read reports a
	// terminal result.
	snaps := &fakeSnaps{paths: []string{"backups"}}
	life := &fakeLifecycle{
		queueID: 2,
		build:   &api.BuildRecord{JobPath: "backups", Number: 1, Status: api.StatusRunning},
		statusOf: map[string]api.BuildRecord{
			"backups": {JobPath: "backups", Number: 1, Status: api.StatusSuccess},
		},
	}
	d := newTestDispatcher(snaps, life, &fakeCreator{})

	result, err := d.Dispatch(context.Background(), api.ActionRequest{
		Action:     api.ActionTriggerBuild,
		Parameters: map[string]any{"job_name": "backups"},
	})
	require.NoError(t, err)
	require.NotNil(t, result.Trigger)
	require.NotNil(t, result.Trigger.Build)
	assert.Positive(t, result.Trigger.Build.Number)

	result, err = d.Dispatch(context.Background(), api.ActionRequest{
		Action:     api.ActionGetBuildStatus,
		Parameters: map[string]any{"job_name": "backups", "build_number": "lastBuild"},
	})
	require.NoError(t, err)
	require.NotNil(t, result.Build)
	assert.True(t, result.Build.Status.Terminal())
}

func TestDispatchSnapshotFailurePropagates(t *testing.T) {
	snaps := &fakeSnaps{err: fmt.Errorf("down: %w", api.ErrUpstreamUnavailable)}
	d := newTestDispatcher(snaps, &fakeLifecycle{}, &fakeCreator{})

	_, err := d.Dispatch(context.Background(), api.ActionRequest{
		Action:     api.ActionGetBuildStatus,
		Parameters: map[string]any{"job_name": "Deploy/Prod"},
	})
	require.Error(t, err)
	assert.Equal(t, api.KindUpstreamUnavailable, api.ClassifyError(err))
}
