package api

import (
	"fmt"
	"strconv"
	"time"
)

// Action names accepted by the dispatcher. The set is closed; anything else
// fails with unknown_action.
const (
	ActionListJobs       = "list_jobs"
	ActionGetBuildStatus = "get_build_status"
	ActionListJobBuilds  = "list_job_builds"
	ActionTriggerBuild   = "trigger_build"
	ActionGetBuildLog    = "get_build_log"
	ActionCreateJob      = "create_job"
)

// ActionRequest is the structured call produced by an external classifier
// (or assembled directly by the REST and MCP surfaces).
type ActionRequest struct {
	Action     string         `json:"action"`
	Parameters map[string]any `json:"parameters"`
}

// BuildStatus is the normalized status of one build.
type BuildStatus string

const (
	StatusPending BuildStatus = "Pending"
	StatusRunning BuildStatus = "Running"
	StatusSuccess BuildStatus = "Success"
	StatusFailure BuildStatus = "Failure"
	StatusAborted BuildStatus = "Aborted"
	StatusUnknown BuildStatus = "Unknown"
)

// Terminal reports whether the status can no longer change.
func (s BuildStatus) Terminal() bool {
	switch s {
	case StatusSuccess, StatusFailure, StatusAborted:
		return true
	}
	return false
}

// BuildRecord is a concrete, numbered execution of a job as last observed
// from the CI server. It is never fabricated client-side.
type BuildRecord struct {
	JobPath   string        `json:"job_path"`
	Number    int64         `json:"build_number"`
	Status    BuildStatus   `json:"status"`
	URL       string        `json:"url,omitempty"`
	Timestamp time.Time     `json:"timestamp,omitempty"`
	Duration  time.Duration `json:"duration,omitempty"`
}

// QueueRef identifies a just-submitted trigger before a build number exists.
type QueueRef struct {
	ID          int64     `json:"queue_id"`
	JobPath     string    `json:"job_path"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Abandon reasons for queue tracking.
const (
	AbandonTimeout   = "timeout"
	AbandonCancelled = "cancelled"
)

// Abandoned is a valid terminal outcome of build tracking, not an error.
// Cancelled covers both user cancellation and server-side deduplication
// against an already-running build.
type Abandoned struct {
	Reason string `json:"reason"`
	Detail string `json:"detail,omitempty"`
}

// TriggerResult reports a trigger plus whatever the queue tracking produced.
// Exactly one of Build and Abandoned is set once tracking finished.
type TriggerResult struct {
	Queue     QueueRef     `json:"queue"`
	Build     *BuildRecord `json:"build,omitempty"`
	Abandoned *Abandoned   `json:"abandoned,omitempty"`
}

// LogChunk is one incremental slice of console output.
type LogChunk struct {
	JobPath   string `json:"job_path"`
	Selector  string `json:"build_selector"`
	Text      string `json:"text"`
	NewCursor int64  `json:"new_cursor"`
	Complete  bool   `json:"complete"`
}

// JobSummary is one namespace entry in a listing result.
type JobSummary struct {
	Path string `json:"path"`
	Kind string `json:"kind"` // "job" or "folder"
	URL  string `json:"url,omitempty"`
}

// CreatedJob reports a successful create_job call.
type CreatedJob struct {
	JobPath string `json:"job_path"`
	URL     string `json:"url,omitempty"`
}

// Result is the single result shape returned by the dispatcher. Action is
// the effective action performed; Redirected is set when a job-requiring
// action degraded to a listing because the reference named a folder or did
// not resolve.
type Result struct {
	Action     string         `json:"action"`
	Redirected bool           `json:"redirected,omitempty"`
	Notice     string         `json:"notice,omitempty"`
	Folder     string         `json:"folder,omitempty"`
	Jobs       []JobSummary   `json:"jobs,omitempty"`
	Build      *BuildRecord   `json:"build,omitempty"`
	Builds     []BuildRecord  `json:"builds,omitempty"`
	Trigger    *TriggerResult `json:"trigger,omitempty"`
	Log        *LogChunk      `json:"log,omitempty"`
	Created    *CreatedJob    `json:"created,omitempty"`
}

// Symbolic build selectors resolved by the CI server at query time.
const (
	SelectorLastBuild           = "lastBuild"
	SelectorLastSuccessfulBuild = "lastSuccessfulBuild"
	SelectorLastCompletedBuild  = "lastCompletedBuild"
)

// BuildSelector is either a concrete build number or a symbolic token.
type BuildSelector struct {
	Number   int64
	Symbolic string
}

func (s BuildSelector) String() string {
	if s.Symbolic != "" {
		return s.Symbolic
	}
	return strconv.FormatInt(s.Number, 10)
}

// ParseBuildSelector accepts a positive build number or one of the three
// symbolic tokens.
func ParseBuildSelector(raw string) (BuildSelector, error) {
	switch raw {
	case SelectorLastBuild, SelectorLastSuccessfulBuild, SelectorLastCompletedBuild:
		return BuildSelector{Symbolic: raw}, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return BuildSelector{}, fmt.Errorf("invalid build selector %q: must be a positive number or one of %s, %s, %s",
			raw, SelectorLastBuild, SelectorLastSuccessfulBuild, SelectorLastCompletedBuild)
	}
	return BuildSelector{Number: n}, nil
}
