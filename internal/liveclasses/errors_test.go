package liveclasses

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kavindurs8/studifynew-sub001/internal/models"
)

func TestPreconditionErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *PreconditionError
		want string
	}{
		{
			name: "no allowed states",
			err:  &PreconditionError{Action: ActionApprove, Status: models.LiveClassRejected},
			want: "cannot approve a live class that is rejected",
		},
		{
			name: "one allowed state",
			err:  &PreconditionError{Action: ActionReschedule, Status: models.LiveClassDraft, Want: []models.LiveClassStatus{models.LiveClassScheduled}},
			want: "cannot reschedule a live class that is draft (requires scheduled)",
		},
		{
			name: "several allowed states",
			err: &PreconditionError{
				Action: ActionCancel,
				Status: models.LiveClassCancelled,
				Want:   []models.LiveClassStatus{models.LiveClassDraft, models.LiveClassPendingApproval, models.LiveClassScheduled},
			},
			want: "cannot cancel a live class that is cancelled (requires draft or pending_approval or scheduled)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.EqualError(t, tt.err, tt.want)
		})
	}
}

func TestTransactionErrorUnwraps(t *testing.T) {
	cause := errors.New("connection reset")
	err := &TransactionError{Err: cause}
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "live class transaction failed: connection reset", err.Error())
}
