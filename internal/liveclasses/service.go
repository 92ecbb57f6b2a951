package liveclasses

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kavindurs8/studifynew-sub001/internal/mailer"
	"github.com/kavindurs8/studifynew-sub001/internal/models"
	"github.com/kavindurs8/studifynew-sub001/internal/zoom"
	"github.com/kavindurs8/studifynew-sub001/pkg/queue"
)

const (
	MaxNotesLength  = 1000
	MaxTitleLength  = 255
	MinDurationMins = 15
	MaxDurationMins = 480

	// bounds best-effort provider calls that run after the request context may be gone
	cleanupTimeout = 15 * time.Second
)

// CreateInput is a teacher's new live class.
type CreateInput struct {
	TeacherID         uuid.UUID
	Title             string
	Description       string
	DurationMinutes   int
	SubmitForApproval bool
}

// ApproveInput schedules a pending live class.
type ApproveInput struct {
	AdminID     uuid.UUID
	ScheduledAt time.Time
	Notes       string
}

// RejectInput declines a pending live class.
type RejectInput struct {
	AdminID uuid.UUID
	Notes   string
}

// RescheduleInput moves a scheduled live class.
type RescheduleInput struct {
	AdminID     uuid.UUID
	ScheduledAt time.Time
	Notes       string
}

// CancelInput cancels a live class.
type CancelInput struct {
	AdminID uuid.UUID
	Notes   string
}

// Service runs the live class approval workflow. Every action re-reads and locks the row in its
// own transaction; provider meetings are created or updated before the local write and committed
// only when the provider call succeeded.
type Service struct {
	store    Store
	provider MeetingProvider
	mail     mailer.Sender
	cleanup  CleanupQueue
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates the live class service. mail and cleanup may be nil.
func NewService(store Store, provider MeetingProvider, mail mailer.Sender, cleanup CleanupQueue, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:    store,
		provider: provider,
		mail:     mail,
		cleanup:  cleanup,
		logger:   logger,
		now:      time.Now,
	}
}

// Create stores a new live class in draft, or pending_approval when submitted right away.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.LiveClassSession, error) {
	title := strings.TrimSpace(in.Title)
	switch {
	case title == "":
		return nil, &ValidationError{Field: "title", Message: "is required"}
	case utf8.RuneCountInString(title) > MaxTitleLength:
		return nil, &ValidationError{Field: "title", Message: "must be at most 255 characters"}
	case in.DurationMinutes < MinDurationMins || in.DurationMinutes > MaxDurationMins:
		return nil, &ValidationError{Field: "duration_minutes", Message: "must be between 15 and 480"}
	}
	lc := &models.LiveClassSession{
		TeacherID:       in.TeacherID,
		Title:           title,
		Description:     strings.TrimSpace(in.Description),
		DurationMinutes: in.DurationMinutes,
		Status:          models.LiveClassDraft,
	}
	if in.SubmitForApproval {
		lc.Status = models.LiveClassPendingApproval
	}
	if err := s.store.Create(ctx, lc); err != nil {
		return nil, &TransactionError{Err: err}
	}
	return lc, nil
}

// Get returns one live class.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.LiveClassSession, error) {
	return s.store.GetByID(ctx, id)
}

// List returns live classes matching f.
func (s *Service) List(ctx context.Context, f ListFilter) ([]models.LiveClassSession, error) {
	return s.store.List(ctx, f)
}

// Approve creates the provider meeting and moves a pending live class to scheduled. If the
// provider call fails nothing is written. If a meeting exists at the provider but the approval
// is not committed, the meeting is deleted again.
func (s *Service) Approve(ctx context.Context, id uuid.UUID, in ApproveInput) (*models.LiveClassSession, error) {
	if err := s.validateSchedule(in.ScheduledAt); err != nil {
		return nil, err
	}
	notes, err := validateNotes(in.Notes, false)
	if err != nil {
		return nil, err
	}

	var created *zoom.Meeting
	var approved *models.LiveClassSession
	discardReason := "approve write failed"
	err = s.store.WithTx(ctx, func(tx SessionTx) error {
		cur, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if cur.Status != models.LiveClassPendingApproval {
			return &PreconditionError{Action: ActionApprove, Status: cur.Status, Want: []models.LiveClassStatus{models.LiveClassPendingApproval}}
		}

		next := cur.Clone()
		at := in.ScheduledAt.UTC()
		next.ScheduledAt = &at
		if notes != "" {
			next.AdminNotes = &notes
		}

		m, err := s.provider.CreateMeeting(ctx, meetingSpec(next))
		if err != nil {
			var perr *zoom.ProviderError
			if errors.As(err, &perr) && perr.MeetingID != "" {
				created = &zoom.Meeting{ID: perr.MeetingID}
				discardReason = "incomplete create response"
			}
			return err
		}
		created = m

		next.Meeting = &models.Meeting{ID: m.ID, JoinURL: m.JoinURL, StartURL: m.StartURL, Password: m.Password}
		next.MeetingPayload = m.Raw
		next.Status = models.LiveClassScheduled
		approvedAt := s.now().UTC()
		adminID := in.AdminID
		next.ApprovedAt = &approvedAt
		next.ApprovedBy = &adminID
		if err := tx.Save(ctx, next); err != nil {
			return err
		}
		approved = next
		return nil
	})
	if err != nil {
		if created != nil {
			s.discardMeeting(ctx, id, created.ID, discardReason)
		}
		return nil, classify(err)
	}

	s.logger.Info("live class approved",
		zap.String("session_id", id.String()),
		zap.String("meeting_id", approved.Meeting.ID),
		zap.String("admin_id", in.AdminID.String()),
	)
	s.notify(ctx, approved, models.EmailTemplateLiveClassApproved)
	return approved, nil
}

// Reject declines a pending live class. No provider call is made.
func (s *Service) Reject(ctx context.Context, id uuid.UUID, in RejectInput) (*models.LiveClassSession, error) {
	notes, err := validateNotes(in.Notes, true)
	if err != nil {
		return nil, err
	}

	var rejected *models.LiveClassSession
	err = s.store.WithTx(ctx, func(tx SessionTx) error {
		cur, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if cur.Status != models.LiveClassPendingApproval {
			return &PreconditionError{Action: ActionReject, Status: cur.Status, Want: []models.LiveClassStatus{models.LiveClassPendingApproval}}
		}
		next := cur.Clone()
		next.Status = models.LiveClassRejected
		next.AdminNotes = &notes
		decidedAt := s.now().UTC()
		adminID := in.AdminID
		next.ApprovedAt = &decidedAt
		next.ApprovedBy = &adminID
		if err := tx.Save(ctx, next); err != nil {
			return err
		}
		rejected = next
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}

	s.logger.Info("live class rejected", zap.String("session_id", id.String()), zap.String("admin_id", in.AdminID.String()))
	s.notify(ctx, rejected, models.EmailTemplateLiveClassRejected)
	return rejected, nil
}

// Reschedule moves a scheduled live class and its provider meeting to a new start time. The
// prior schedule is kept when the provider update fails.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, in RescheduleInput) (*models.LiveClassSession, error) {
	if err := s.validateSchedule(in.ScheduledAt); err != nil {
		return nil, err
	}
	notes, err := validateNotes(in.Notes, false)
	if err != nil {
		return nil, err
	}

	var previous, moved *models.LiveClassSession
	updated := false
	err = s.store.WithTx(ctx, func(tx SessionTx) error {
		cur, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if cur.Status != models.LiveClassScheduled {
			return &PreconditionError{Action: ActionReschedule, Status: cur.Status, Want: []models.LiveClassStatus{models.LiveClassScheduled}}
		}
		previous = cur

		next := cur.Clone()
		at := in.ScheduledAt.UTC()
		next.ScheduledAt = &at
		if notes != "" {
			next.AdminNotes = &notes
		}

		if next.HasMeeting() {
			raw, err := s.provider.UpdateMeeting(ctx, next.Meeting.ID, meetingSpec(next))
			if err != nil {
				return err
			}
			updated = true
			if raw != nil {
				next.MeetingPayload = raw
			}
		}
		if err := tx.Save(ctx, next); err != nil {
			return err
		}
		moved = next
		return nil
	})
	if err != nil {
		if updated {
			s.restoreSchedule(ctx, previous)
		}
		return nil, classify(err)
	}

	s.logger.Info("live class rescheduled",
		zap.String("session_id", id.String()),
		zap.Time("scheduled_at", *moved.ScheduledAt),
		zap.String("admin_id", in.AdminID.String()),
	)
	s.notify(ctx, moved, models.EmailTemplateLiveClassRescheduled)
	return moved, nil
}

// Cancel cancels a live class. The cancellation is committed first; deleting the provider
// meeting afterwards is best effort and its failure only queues a cleanup job.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, in CancelInput) (*models.LiveClassSession, error) {
	notes, err := validateNotes(in.Notes, true)
	if err != nil {
		return nil, err
	}

	var meetingID string
	var cancelled *models.LiveClassSession
	err = s.store.WithTx(ctx, func(tx SessionTx) error {
		cur, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if cur.Status.Terminal() {
			return &PreconditionError{
				Action: ActionCancel,
				Status: cur.Status,
				Want:   []models.LiveClassStatus{models.LiveClassDraft, models.LiveClassPendingApproval, models.LiveClassScheduled},
			}
		}
		next := cur.Clone()
		if next.HasMeeting() {
			meetingID = next.Meeting.ID
		}
		next.Status = models.LiveClassCancelled
		next.AdminNotes = &notes
		next.Meeting = nil
		next.MeetingPayload = nil
		if err := tx.Save(ctx, next); err != nil {
			return err
		}
		cancelled = next
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}

	s.logger.Info("live class cancelled", zap.String("session_id", id.String()), zap.String("admin_id", in.AdminID.String()))
	if meetingID != "" {
		s.discardMeeting(ctx, id, meetingID, "live class cancelled")
	}
	s.notify(ctx, cancelled, models.EmailTemplateLiveClassCancelled)
	return cancelled, nil
}

// discardMeeting deletes a provider meeting that no live class references any more. Failures
// are logged and handed to the cleanup queue.
func (s *Service) discardMeeting(ctx context.Context, sessionID uuid.UUID, meetingID, reason string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	err := s.provider.DeleteMeeting(ctx, meetingID)
	if err == nil {
		return
	}
	s.logger.Warn("delete zoom meeting failed",
		zap.String("session_id", sessionID.String()),
		zap.String("meeting_id", meetingID),
		zap.String("reason", reason),
		zap.Error(err),
	)
	if s.cleanup == nil {
		return
	}
	if qerr := s.cleanup.EnqueueMeetingCleanup(ctx, queue.MeetingCleanupPayload{
		SessionID: sessionID,
		MeetingID: meetingID,
		Reason:    reason,
	}); qerr != nil {
		s.logger.Error("enqueue meeting cleanup failed",
			zap.String("session_id", sessionID.String()),
			zap.String("meeting_id", meetingID),
			zap.Error(qerr),
		)
	}
}

// restoreSchedule puts the provider meeting back on the committed schedule after a failed write.
func (s *Service) restoreSchedule(ctx context.Context, committed *models.LiveClassSession) {
	if committed == nil || !committed.HasMeeting() || committed.ScheduledAt == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	if _, err := s.provider.UpdateMeeting(ctx, committed.Meeting.ID, meetingSpec(committed)); err != nil {
		s.logger.Error("restore zoom meeting schedule failed",
			zap.String("session_id", committed.ID.String()),
			zap.String("meeting_id", committed.Meeting.ID),
			zap.Error(err),
		)
	}
}

// notify emails the owning teacher. Errors are logged, never returned.
func (s *Service) notify(ctx context.Context, lc *models.LiveClassSession, template string) {
	if s.mail == nil {
		return
	}
	email, name, err := s.store.TeacherContact(ctx, lc.TeacherID)
	if err != nil {
		s.logger.Warn("notification skipped: teacher lookup failed",
			zap.String("session_id", lc.ID.String()),
			zap.String("template", template),
			zap.Error(err),
		)
		return
	}

	data := map[string]string{
		"teacher_name": name,
		"title":        lc.Title,
	}
	if lc.ScheduledAt != nil {
		data["scheduled_at"] = lc.ScheduledAt.UTC().Format(time.RFC1123)
	}
	if lc.AdminNotes != nil {
		data["admin_notes"] = *lc.AdminNotes
	}
	if lc.Meeting != nil {
		data["join_url"] = lc.Meeting.JoinURL
		data["start_url"] = lc.Meeting.StartURL
	}
	sessionID := lc.ID
	if err := s.mail.Send(ctx, mailer.Message{Template: template, To: email, SessionID: &sessionID, Data: data}); err != nil {
		s.logger.Warn("notification enqueue failed",
			zap.String("session_id", lc.ID.String()),
			zap.String("template", template),
			zap.Error(err),
		)
	}
}

func (s *Service) validateSchedule(at time.Time) error {
	if at.IsZero() {
		return &ValidationError{Field: "scheduled_at", Message: "is required"}
	}
	if !at.After(s.now()) {
		return &ValidationError{Field: "scheduled_at", Message: "must be in the future"}
	}
	return nil
}

func validateNotes(notes string, required bool) (string, error) {
	notes = strings.TrimSpace(notes)
	if required && notes == "" {
		return "", &ValidationError{Field: "admin_notes", Message: "is required"}
	}
	if utf8.RuneCountInString(notes) > MaxNotesLength {
		return "", &ValidationError{Field: "admin_notes", Message: "must be at most 1000 characters"}
	}
	return notes, nil
}

func meetingSpec(lc *models.LiveClassSession) zoom.MeetingSpec {
	spec := zoom.MeetingSpec{
		Topic:           lc.Title,
		Agenda:          lc.Description,
		DurationMinutes: lc.DurationMinutes,
	}
	if lc.ScheduledAt != nil {
		spec.StartTime = *lc.ScheduledAt
	}
	return spec
}

// classify keeps the workflow's own errors and wraps anything else from the store as a
// TransactionError.
func classify(err error) error {
	var (
		pre  *PreconditionError
		val  *ValidationError
		auth *zoom.AuthError
		prov *zoom.ProviderError
	)
	switch {
	case errors.Is(err, ErrNotFound),
		errors.As(err, &pre),
		errors.As(err, &val),
		errors.As(err, &auth),
		errors.As(err, &prov):
		return err
	}
	return &TransactionError{Err: err}
}
