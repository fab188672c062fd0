package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrJobNotFound      = errors.New("job not found")
	ErrPageNotFound     = errors.New("page not found")
	ErrErrorLogNotFound = errors.New("error log not found")
	ErrInvalidSelection = errors.New("invalid selection")
	ErrInvalidScope     = errors.New("invalid scan scope")
)

// Terminal job error codes.
const (
	CodeGenerate    = "generate"
	CodeStoreQuota  = "store_quota"
	CodeStoreWrite  = "store_write"
	CodeInterrupted = "interrupted"
	CodePanic       = "panic"
)

// ValidationError reports a malformed request payload.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid request: " + e.Reason
	}
	return fmt.Sprintf("invalid field %q: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidSelection }

// ResolutionError lists refs that did not match any catalog record.
type ResolutionError struct {
	Locations []string `json:"locations"`
	Services  []string `json:"services"`
}

func (e *ResolutionError) Error() string {
	var parts []string
	if len(e.Locations) > 0 {
		parts = append(parts, "locations: "+strings.Join(e.Locations, ", "))
	}
	if len(e.Services) > 0 {
		parts = append(parts, "services: "+strings.Join(e.Services, ", "))
	}
	return "unresolved refs (" + strings.Join(parts, "; ") + ")"
}

func (e *ResolutionError) Unwrap() error { return ErrInvalidSelection }

// JobError is a terminal failure recorded on a job.
type JobError struct {
	Code string
	Err  error
}

func (e *JobError) Error() string { return e.Code + ": " + e.Err.Error() }

func (e *JobError) Unwrap() error { return e.Err }

// storeError wraps a store failure with a code telling quota exhaustion
// ("try later") apart from other write failures.
func storeError(op string, err error) *JobError {
	return &JobError{Code: classifyStoreError(err), Err: fmt.Errorf("failed to %s: %w", op, err)}
}

func classifyStoreError(err error) string {
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"quota", "resource exhausted", "resource_exhausted", "too many connections", "sqlstate 53"} {
		if strings.Contains(msg, marker) {
			return CodeStoreQuota
		}
	}
	return CodeStoreWrite
}
