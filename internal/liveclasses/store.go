package liveclasses

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/kavindurs8/studifynew-sub001/internal/models"
	"github.com/kavindurs8/studifynew-sub001/internal/zoom"
	"github.com/kavindurs8/studifynew-sub001/pkg/queue"
)

// ListFilter narrows List results. Nil fields do not filter.
type ListFilter struct {
	TeacherID *uuid.UUID
	Status    *models.LiveClassStatus
}

// Store is the persistence the live class service depends on.
type Store interface {
	Create(ctx context.Context, s *models.LiveClassSession) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.LiveClassSession, error)
	List(ctx context.Context, f ListFilter) ([]models.LiveClassSession, error)
	TeacherContact(ctx context.Context, teacherID uuid.UUID) (email, name string, err error)
	// WithTx runs fn in one transaction. fn's error rolls back and is returned unchanged.
	WithTx(ctx context.Context, fn func(tx SessionTx) error) error
}

// SessionTx is the transactional view of a live class row.
type SessionTx interface {
	// GetForUpdate reads the row and holds a write lock on it until the transaction ends.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*models.LiveClassSession, error)
	Save(ctx context.Context, s *models.LiveClassSession) error
}

// MeetingProvider provisions remote meetings.
type MeetingProvider interface {
	CreateMeeting(ctx context.Context, spec zoom.MeetingSpec) (*zoom.Meeting, error)
	UpdateMeeting(ctx context.Context, meetingID string, spec zoom.MeetingSpec) (json.RawMessage, error)
	DeleteMeeting(ctx context.Context, meetingID string) error
}

// CleanupQueue takes provider meetings that could not be deleted inline.
type CleanupQueue interface {
	EnqueueMeetingCleanup(ctx context.Context, payload queue.MeetingCleanupPayload) error
}

var (
	_ MeetingProvider = (*zoom.Client)(nil)
	_ CleanupQueue    = (*queue.Queue)(nil)
)
