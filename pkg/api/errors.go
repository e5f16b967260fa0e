package api

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by the Jenkins client, the orchestrator and the
// dispatcher. Callers classify with errors.Is.
var (
	// ErrUpstreamUnavailable covers transport failures and malformed
	// responses from the CI server. Safe to retry with backoff.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrNotFound indicates a folder path that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrJobNotFound indicates the referenced path is not a buildable job.
	ErrJobNotFound = errors.New("job not found")

	// ErrBuildNotFound indicates the build selector matched no build.
	ErrBuildNotFound = errors.New("build not found")
)

// ErrorKind names one entry of the error taxonomy in wire-friendly form.
type ErrorKind string

const (
	KindUpstreamUnavailable ErrorKind = "upstream_unavailable"
	KindNotFound            ErrorKind = "not_found"
	KindJobNotFound         ErrorKind = "job_not_found"
	KindBuildNotFound       ErrorKind = "build_not_found"
	KindUnknownAction       ErrorKind = "unknown_action"
	KindMissingParameter    ErrorKind = "missing_parameter"
	KindInternal            ErrorKind = "internal"
)

// DispatchError is a caller/input error from the action dispatcher. It is
// never retryable without fixing the request.
type DispatchError struct {
	Kind   ErrorKind
	Detail string
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// UnknownAction builds a DispatchError for an action outside the closed set.
func UnknownAction(action string) error {
	return &DispatchError{Kind: KindUnknownAction, Detail: fmt.Sprintf("unknown action %q", action)}
}

// MissingParameter builds a DispatchError naming the absent field.
func MissingParameter(name string) error {
	return &DispatchError{Kind: KindMissingParameter, Detail: fmt.Sprintf("missing required parameter %q", name)}
}

// ClassifyError maps any error surfaced by the core to its taxonomy kind.
func ClassifyError(err error) ErrorKind {
	var de *DispatchError
	switch {
	case errors.As(err, &de):
		return de.Kind
	case errors.Is(err, ErrJobNotFound):
		return KindJobNotFound
	case errors.Is(err, ErrBuildNotFound):
		return KindBuildNotFound
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrUpstreamUnavailable):
		return KindUpstreamUnavailable
	default:
		return KindInternal
	}
}

// Retryable reports whether the caller may retry the same request.
func Retryable(err error) bool {
	return ClassifyError(err) == KindUpstreamUnavailable
}
