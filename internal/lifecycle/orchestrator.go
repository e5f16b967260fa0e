// Package lifecycle turns build trigger requests into reliable run
// identifiers. A trigger does not return a build number; Jenkins assigns
// one only when the queued item is dequeued, and that assignment can race
// with polling, be cancelled, or be deduplicated against a build of the
// same job that is already running. The orchestrator bridges that gap with
// a bounded queue poll and never fabricates a number client-side.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jenkins-mcp-integ/internal/namespace"
	"github.com/jenkins-mcp-integ/pkg/api"
)

// QueueState is one observation of a queue item.
type QueueState struct {
	BuildNumber int64 // 0 until the server assigns one
	Cancelled   bool
	Why         string
}

// CI is the subset of CI-server functionality the orchestrator depends on.
// Implementations must return the api sentinel errors for absent entities
// and transport failures.
type CI interface {
	// Trigger submits one build request and returns the queue item id.
	// It re-validates at call time that path names a buildable job.
	Trigger(ctx context.Context, path []string, params map[string]string) (int64, error)

	// QueueItem reads the current state of a queue item.
	QueueItem(ctx context.Context, id int64) (QueueState, error)

	// Build reads one build, live, by number or symbolic selector.
	Build(ctx context.Context, path []string, sel api.BuildSelector) (api.BuildRecord, error)

	// ConsoleChunk reads console output starting at cursor.
	ConsoleChunk(ctx context.Context, path []string, sel api.BuildSelector, cursor int64) (api.LogChunk, error)

	// BuildHistory returns up to limit builds, newest first.
	BuildHistory(ctx context.Context, path []string, limit int) ([]api.BuildRecord, error)
}

// DefaultRecentLimit bounds list_recent_builds when the caller gives none.
const DefaultRecentLimit = 5

// Orchestrator tracks triggers through the queue to concrete builds and
// serves live status and log reads. It holds no authoritative build state;
// the remote server is the sole source of truth.
type Orchestrator struct {
	ci           CI
	pollInterval time.Duration
	recentLimit  int
	log          *slog.Logger
}

// New creates an Orchestrator polling the queue every pollInterval.
// recentLimit caps list_job_builds when the caller gives no limit.
func New(ci CI, pollInterval time.Duration, recentLimit int, logger *slog.Logger) *Orchestrator {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	if recentLimit <= 0 {
		recentLimit = DefaultRecentLimit
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{ci: ci, pollInterval: pollInterval, recentLimit: recentLimit, log: logger}
}

// Trigger submits one build request for jobPath. Not idempotent: every call
// enqueues a new build, so callers must not retry blindly.
func (o *Orchestrator) Trigger(ctx context.Context, jobPath []string, params map[string]string) (api.QueueRef, error) {
	id, err := o.ci.Trigger(ctx, jobPath, params)
	if err != nil {
		return api.QueueRef{}, fmt.Errorf("trigger %q: %w", namespace.Join(jobPath), err)
	}
	ref := api.QueueRef{
		ID:          id,
		JobPath:     namespace.Join(jobPath),
		SubmittedAt: time.Now(),
	}
	o.log.Info("build triggered",
		slog.String("job", ref.JobPath),
		slog.Int64("queue_id", id),
	)
	return ref, nil
}

// AwaitBuildNumber polls the queue item behind ref until the server assigns
// a build number, reports the item cancelled, or timeout elapses. Timeout
// is a hard bound on total wall-clock time, not per poll. Abandoned is a
// normal outcome, not an error; after a client-side abandon the remote
// queue entry is left alone and may still produce a real build later.
func (o *Orchestrator) AwaitBuildNumber(ctx context.Context, ref api.QueueRef, timeout time.Duration) (*api.BuildRecord, *api.Abandoned, error) {
	if timeout <= 0 {
		return nil, &api.Abandoned{Reason: api.AbandonTimeout, Detail: "no wait requested"}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(o.pollInterval)
	defer ticker.Stop()

	attempt := 0
	for {
		attempt++
		state, err := o.ci.QueueItem(ctx, ref.ID)
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return nil, o.timedOut(ref, attempt), nil
		case err != nil:
			if !api.Retryable(err) {
				return nil, nil, fmt.Errorf("queue item %d: %w", ref.ID, err)
			}
			o.log.Warn("queue poll failed",
				slog.Int64("queue_id", ref.ID),
				slog.String("error", err.Error()),
			)
		case state.Cancelled:
			o.log.Info("queue item cancelled",
				slog.Int64("queue_id", ref.ID),
				slog.String("why", state.Why),
			)
			return nil, &api.Abandoned{Reason: api.AbandonCancelled, Detail: state.Why}, nil
		case state.BuildNumber > 0:
			record := o.observeBuild(ctx, ref, state.BuildNumber)
			o.log.Info("build number assigned",
				slog.String("job", ref.JobPath),
				slog.Int64("queue_id", ref.ID),
				slog.Int64("build", state.BuildNumber),
				slog.Int("attempts", attempt),
			)
			return &record, nil, nil
		}

		select {
		case <-ctx.Done():
			return nil, o.timedOut(ref, attempt), nil
		case <-ticker.C:
		}
	}
}

// observeBuild reads the freshly started build. Immediately after number
// assignment the build JSON can lag behind the queue endpoint; in that
// window the record carries the assigned number with Pending status.
func (o *Orchestrator) observeBuild(ctx context.Context, ref api.QueueRef, number int64) api.BuildRecord {
	record, err := o.ci.Build(ctx, namespace.Split(ref.JobPath), api.BuildSelector{Number: number})
	if err != nil {
		return api.BuildRecord{
			JobPath: ref.JobPath,
			Number:  number,
			Status:  api.StatusPending,
		}
	}
	return record
}

func (o *Orchestrator) timedOut(ref api.QueueRef, attempts int) *api.Abandoned {
	o.log.Info("queue tracking timed out",
		slog.String("job", ref.JobPath),
		slog.Int64("queue_id", ref.ID),
		slog.Int("attempts", attempts),
	)
	return &api.Abandoned{Reason: api.AbandonTimeout, Detail: fmt.Sprintf("no build number after %d polls", attempts)}
}

// Status reads one build live from the server. Symbolic selectors are
// resolved by the server's own latest semantics, never cached locally.
func (o *Orchestrator) Status(ctx context.Context, jobPath []string, sel api.BuildSelector) (api.BuildRecord, error) {
	record, err := o.ci.Build(ctx, jobPath, sel)
	if err != nil {
		return api.BuildRecord{}, fmt.Errorf("status of %q build %s: %w", namespace.Join(jobPath), sel, err)
	}
	return record, nil
}

// Log reads one incremental chunk of console output. A zero cursor starts
// from the top; Complete=false means more output may still arrive and the
// caller should poll again with NewCursor.
func (o *Orchestrator) Log(ctx context.Context, jobPath []string, sel api.BuildSelector, cursor int64) (api.LogChunk, error) {
	chunk, err := o.ci.ConsoleChunk(ctx, jobPath, sel, cursor)
	if err != nil {
		return api.LogChunk{}, fmt.Errorf("log of %q build %s: %w", namespace.Join(jobPath), sel, err)
	}
	return chunk, nil
}

// RecentBuilds returns up to limit builds of jobPath, newest first. Each
// call fetches fresh; nothing is cached between calls.
func (o *Orchestrator) RecentBuilds(ctx context.Context, jobPath []string, limit int) ([]api.BuildRecord, error) {
	if limit <= 0 {
		limit = o.recentLimit
	}
	builds, err := o.ci.BuildHistory(ctx, jobPath, limit)
	if err != nil {
		return nil, fmt.Errorf("builds of %q: %w", namespace.Join(jobPath), err)
	}
	return builds, nil
}
