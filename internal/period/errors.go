package period

import (
	"errors"
	"fmt"

	"github.com/dukerupert/flatrota/internal/cadence"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrAlreadyGenerated   = errors.New("periods already generated")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrConflict           = errors.New("period already completed")
	ErrInvalidAssignee    = errors.New("assignee is not on the task roster")
	ErrUnsupportedCadence = cadence.ErrUnsupportedCadence
	ErrStorage            = errors.New("storage failure")
)

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}

// Kind names the error kind of err for logs and metrics. A nil error is "ok".
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAlreadyGenerated):
		return "already_generated"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrInvalidAssignee):
		return "invalid_assignee"
	case errors.Is(err, ErrUnsupportedCadence):
		return "unsupported_cadence"
	case errors.Is(err, ErrStorage):
		return "storage_failure"
	default:
		return "internal"
	}
}
