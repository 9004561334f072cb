package engine

import (
	"errors"
	"fmt"
	"strings"
)

// Failure kinds reported to the caller. Every error leaving the engine wraps
// exactly one of these so callers can classify without string matching.
var (
	// ErrInvalidInput marks caller mistakes: empty descriptor lists,
	// start >= end, cut ranges outside the source duration.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDecode marks unreadable or corrupt source media.
	ErrDecode = errors.New("decode failure")

	// ErrEncode marks failures while writing or encoding output.
	ErrEncode = errors.New("encode failure")

	// ErrMissingAsset marks a referenced optional asset that does not exist.
	// Missing optional assets degrade the render instead of aborting it; the
	// sentinel exists for the rare caller that wants to surface the skip.
	ErrMissingAsset = errors.New("missing auxiliary asset")
)

// Wrap tags err with the given failure kind and component/operation context.
// A nil err produces a bare tagged failure.
func Wrap(kind error, component, op string, err error) error {
	detail := buildDetail(component, op, "")
	if err != nil {
		return fmt.Errorf("%w: %s: %w", kind, detail, err)
	}
	return fmt.Errorf("%w: %s", kind, detail)
}

// Wrapf is Wrap with a formatted message instead of an underlying error.
func Wrapf(kind error, component, op, format string, args ...any) error {
	detail := buildDetail(component, op, fmt.Sprintf(format, args...))
	return fmt.Errorf("%w: %s", kind, detail)
}

func buildDetail(component, op, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if op = strings.TrimSpace(op); op != "" {
		parts = append(parts, op)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "engine failure"
	}
	return strings.Join(parts, ": ")
}
