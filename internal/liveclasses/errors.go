package liveclasses

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kavindurs8/studifynew-sub001/internal/models"
)

// ErrNotFound is returned when no live class has the requested id.
var ErrNotFound = errors.New("live class not found")

// Action names an administrator action on a live class.
type Action string

const (
	ActionApprove    Action = "approve"
	ActionReject     Action = "reject"
	ActionReschedule Action = "reschedule"
	ActionCancel     Action = "cancel"
)

// PreconditionError means the live class is not in a state the action accepts.
// Nothing was written and the provider was not called.
type PreconditionError struct {
	Action Action
	Status models.LiveClassStatus
	Want   []models.LiveClassStatus
}

func (e *PreconditionError) Error() string {
	if len(e.Want) == 0 {
		return fmt.Sprintf("cannot %s a live class that is %s", e.Action, e.Status)
	}
	return fmt.Sprintf("cannot %s a live class that is %s (requires %s)", e.Action, e.Status, joinStatuses(e.Want))
}

// ValidationError reports malformed input, detected before any read or write.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// TransactionError wraps a persistence failure. The store guarantees the record is unchanged.
type TransactionError struct {
	Err error
}

func (e *TransactionError) Error() string {
	return "live class transaction failed: " + e.Err.Error()
}

func (e *TransactionError) Unwrap() error { return e.Err }

func joinStatuses(ss []models.LiveClassStatus) string {
	names := make([]string, len(ss))
	for i, s := range ss {
		names[i] = string(s)
	}
	return strings.Join(names, " or ")
}
