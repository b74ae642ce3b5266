package services

import (
	"errors"
	"fmt"
	"strings"
)

// Pipeline error taxonomy. Callers classify failures with errors.Is.
var (
	ErrDuplicateKey       = errors.New("duplicate key")
	ErrNotFound           = errors.New("not found")
	ErrNotReady           = errors.New("not ready")
	ErrStageFailure       = errors.New("stage failure")
	ErrSelectionExhausted = errors.New("selection exhausted")
	ErrSchedulerJob       = errors.New("scheduler job failure")
	ErrBusy               = errors.New("pipeline busy")
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Retryable reports whether a failure may succeed on a later attempt. Duplicate
// keys, missing items, bad configuration and exhausted selection never will.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, ErrDuplicateKey),
		errors.Is(err, ErrNotFound),
		errors.Is(err, ErrConfiguration),
		errors.Is(err, ErrSelectionExhausted):
		return false
	default:
		return true
	}
}

// Hint returns a short operator-facing hint for the error class, used as the
// error_hint log field.
func Hint(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrDuplicateKey):
		return "item already exists in the ledger; it will be skipped"
	case errors.Is(err, ErrNotReady):
		return "item has not finished generation; run generate or retry first"
	case errors.Is(err, ErrNotFound):
		return "check the item id with `versereel list`"
	case errors.Is(err, ErrSelectionExhausted):
		return "widen selection.min_words/max_words or the allowed books"
	case errors.Is(err, ErrConfiguration):
		return "run `versereel config validate`"
	case errors.Is(err, ErrExternalTool):
		return "run `versereel doctor` to verify external tools"
	case errors.Is(err, ErrTimeout):
		return "the operation timed out; it will be retried"
	case errors.Is(err, ErrBusy):
		return "wait for the running command to finish, or stop `versereel schedule` first"
	case errors.Is(err, ErrStageFailure):
		return "the item is marked failed; run `versereel retry`"
	default:
		return ""
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
