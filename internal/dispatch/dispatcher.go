// Package dispatch validates structured action calls against the closed
// operation set and wires the resolver and the build lifecycle together.
// It performs no natural-language interpretation: action names and
// parameters arrive already structured, however they were produced.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jenkins-mcp-integ/internal/namespace"
	"github.com/jenkins-mcp-integ/internal/resolver"
	"github.com/jenkins-mcp-integ/pkg/api"
)

// Snapshotter fetches fresh namespace snapshots. Every dispatch that needs
// the namespace fetches its own; topology can change between calls.
type Snapshotter interface {
	Fetch(ctx context.Context, root []string, recursive bool) (*namespace.Snapshot, error)
}

// Lifecycle is the orchestrator surface the dispatcher invokes.
type Lifecycle interface {
	Trigger(ctx context.Context, jobPath []string, params map[string]string) (api.QueueRef, error)
	AwaitBuildNumber(ctx context.Context, ref api.QueueRef, timeout time.Duration) (*api.BuildRecord, *api.Abandoned, error)
	Status(ctx context.Context, jobPath []string, sel api.BuildSelector) (api.BuildRecord, error)
	Log(ctx context.Context, jobPath []string, sel api.BuildSelector, cursor int64) (api.LogChunk, error)
	RecentBuilds(ctx context.Context, jobPath []string, limit int) ([]api.BuildRecord, error)
}

// Creator creates jobs on the CI server.
type Creator interface {
	CreateJob(ctx context.Context, folder []string, name, description, command string) (api.CreatedJob, error)
}

// Dispatcher is the single externally callable entry point of the core.
type Dispatcher struct {
	snaps        Snapshotter
	life         Lifecycle
	create       Creator
	awaitTimeout time.Duration
	log          *slog.Logger
}

// New creates a Dispatcher. awaitTimeout bounds how long trigger_build
// waits for a queue item to become a numbered build.
func New(snaps Snapshotter, life Lifecycle, create Creator, awaitTimeout time.Duration, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		snaps:        snaps,
		life:         life,
		create:       create,
		awaitTimeout: awaitTimeout,
		log:          logger,
	}
}

// Dispatch validates req and executes it. The returned error is always one
// of the named taxonomy kinds wrapped with detail; a nil error means a
// populated result.
func (d *Dispatcher) Dispatch(ctx context.Context, req api.ActionRequest) (*api.Result, error) {
	logger := d.log.With(
		slog.String("request_id", uuid.NewString()),
		slog.String("action", req.Action),
	)

	switch req.Action {
	case api.ActionListJobs:
		return d.listJobs(ctx, req, logger)
	case api.ActionTriggerBuild:
		return d.jobAction(ctx, req, logger, d.triggerBuild)
	case api.ActionGetBuildStatus:
		return d.jobAction(ctx, req, logger, d.buildStatus)
	case api.ActionListJobBuilds:
		return d.jobAction(ctx, req, logger, d.listBuilds)
	case api.ActionGetBuildLog:
		return d.jobAction(ctx, req, logger, d.buildLog)
	case api.ActionCreateJob:
		return d.createJob(ctx, req, logger)
	default:
		return nil, api.UnknownAction(req.Action)
	}
}

func (d *Dispatcher) listJobs(ctx context.Context, req api.ActionRequest, logger *slog.Logger) (*api.Result, error) {
	folder := namespace.Split(stringParam(req, "folder_name"))
	recursive := boolParam(req, "recursive", true)

	snap, err := d.snaps.Fetch(ctx, folder, recursive)
	if err != nil {
		return nil, err
	}
	logger.Info("jobs listed",
		slog.String("folder", namespace.Join(folder)),
		slog.Int("entries", snap.Len()),
	)
	return &api.Result{
		Action: api.ActionListJobs,
		Folder: namespace.Join(folder),
		Jobs:   summarize(snap, nil),
	}, nil
}

// jobHandler executes one job-requiring action against a resolved job path.
type jobHandler func(ctx context.Context, req api.ActionRequest, jobPath []string) (*api.Result, error)

// jobAction resolves the job_name parameter against a fresh recursive
// snapshot and applies the redirect policy: a reference that names a
// folder, or that does not resolve, degrades to a listing of the nearest
// folder so the caller always receives something actionable. The effective
// action is then list_jobs, never the one originally requested.
func (d *Dispatcher) jobAction(ctx context.Context, req api.ActionRequest, logger *slog.Logger, handle jobHandler) (*api.Result, error) {
	jobName := stringParam(req, "job_name")
	if jobName == "" {
		return nil, api.MissingParameter("job_name")
	}

	snap, err := d.snaps.Fetch(ctx, nil, true)
	if err != nil {
		return nil, err
	}

	res := resolver.Resolve(jobName, snap)
	switch {
	case res.Resolved && res.Kind == namespace.KindJob:
		logger.Info("reference resolved",
			slog.String("query", jobName),
			slog.String("path", namespace.Join(res.Path)),
		)
		return handle(ctx, req, res.Path)
	case res.Resolved:
		logger.Info("reference names a folder, redirecting to listing",
			slog.String("query", jobName),
			slog.String("folder", namespace.Join(res.Path)),
		)
		return d.redirect(snap, res.Path,
			fmt.Sprintf("%q is a folder, not a job; listing its contents instead", namespace.Join(res.Path))), nil
	default:
		logger.Info("reference unresolved, redirecting to listing",
			slog.String("query", jobName),
			slog.String("fallback", namespace.Join(res.Fallback)),
		)
		return d.redirect(snap, res.Fallback,
			fmt.Sprintf("no job matched %q; listing %s instead", jobName, folderName(res.Fallback))), nil
	}
}

// redirect builds the listing result for the redirect policy from the
// snapshot already in hand; the snapshot is owned by this request, so no
// refetch is needed.
func (d *Dispatcher) redirect(snap *namespace.Snapshot, folder []string, notice string) *api.Result {
	return &api.Result{
		Action:     api.ActionListJobs,
		Redirected: true,
		Notice:     notice,
		Folder:     namespace.Join(folder),
		Jobs:       summarize(snap, folder),
	}
}

func (d *Dispatcher) triggerBuild(ctx context.Context, req api.ActionRequest, jobPath []string) (*api.Result, error) {
	params := stringMapParam(req, "build_parameters")

	ref, err := d.life.Trigger(ctx, jobPath, params)
	if err != nil {
		return nil, err
	}

	build, abandoned, err := d.life.AwaitBuildNumber(ctx, ref, d.awaitTimeout)
	if err != nil {
		return nil, err
	}

	result := &api.Result{
		Action: api.ActionTriggerBuild,
		Trigger: &api.TriggerResult{
			Queue:     ref,
			Build:     build,
			Abandoned: abandoned,
		},
	}
	if abandoned != nil {
		result.Notice = fmt.Sprintf("build queued but not yet numbered (%s)", abandoned.Reason)
	}
	return result, nil
}

func (d *Dispatcher) buildStatus(ctx context.Context, req api.ActionRequest, jobPath []string) (*api.Result, error) {
	sel, err := selectorParam(req)
	if err != nil {
		return nil, err
	}
	record, err := d.life.Status(ctx, jobPath, sel)
	if err != nil {
		return nil, err
	}
	return &api.Result{Action: api.ActionGetBuildStatus, Build: &record}, nil
}

func (d *Dispatcher) listBuilds(ctx context.Context, req api.ActionRequest, jobPath []string) (*api.Result, error) {
	limit := intParam(req, "limit", 0)
	builds, err := d.life.RecentBuilds(ctx, jobPath, limit)
	if err != nil {
		return nil, err
	}
	return &api.Result{Action: api.ActionListJobBuilds, Builds: builds}, nil
}

func (d *Dispatcher) buildLog(ctx context.Context, req api.ActionRequest, jobPath []string) (*api.Result, error) {
	sel, err := selectorParam(req)
	if err != nil {
		return nil, err
	}
	cursor := int64(intParam(req, "cursor", 0))
	chunk, err := d.life.Log(ctx, jobPath, sel, cursor)
	if err != nil {
		return nil, err
	}
	return &api.Result{Action: api.ActionGetBuildLog, Log: &chunk}, nil
}

func (d *Dispatcher) createJob(ctx context.Context, req api.ActionRequest, logger *slog.Logger) (*api.Result, error) {
	name := stringParam(req, "job_name")
	if name == "" {
		return nil, api.MissingParameter("job_name")
	}
	command := stringParam(req, "command")
	if command == "" {
		return nil, api.MissingParameter("command")
	}
	description := stringParam(req, "job_description")
	folder := namespace.Split(stringParam(req, "folder_name"))

	created, err := d.create.CreateJob(ctx, folder, name, description, command)
	if err != nil {
		return nil, err
	}
	logger.Info("job created", slog.String("path", created.JobPath))
	return &api.Result{Action: api.ActionCreateJob, Created: &created}, nil
}

// summarize renders snapshot entries under folder (all entries when folder
// is nil) with their derived kinds.
func summarize(snap *namespace.Snapshot, folder []string) []api.JobSummary {
	paths := snap.Under(folder)
	out := make([]api.JobSummary, 0, len(paths))
	for _, p := range paths {
		out = append(out, api.JobSummary{
			Path: namespace.Join(p),
			Kind: snap.Kind(p).String(),
		})
	}
	return out
}

func folderName(folder []string) string {
	if len(folder) == 0 {
		return "the repository root"
	}
	return fmt.Sprintf("folder %q", namespace.Join(folder))
}
