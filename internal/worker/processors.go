package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kavindurs8/studifynew-sub001/internal/mailer"
	"github.com/kavindurs8/studifynew-sub001/internal/models"
	"github.com/kavindurs8/studifynew-sub001/pkg/queue"
)

func errUnknownJob(t queue.JobType) error {
	return fmt.Errorf("unknown job type: %s", t)
}

// EmailLogStore records delivery attempts.
type EmailLogStore interface {
	Create(ctx context.Context, el *models.EmailLog) error
	MarkSent(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
}

// EmailProcessor renders and delivers notification emails, one email_logs row per attempt.
type EmailProcessor struct {
	logs      EmailLogStore
	deliverer mailer.Deliverer
	logger    *zap.Logger
}

// NewEmailProcessor creates an email job processor.
func NewEmailProcessor(logs EmailLogStore, deliverer mailer.Deliverer, logger *zap.Logger) *EmailProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmailProcessor{logs: logs, deliverer: deliverer, logger: logger}
}

// Process executes one email job.
func (p *EmailProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeEmail {
		return errUnknownJob(job.Type)
	}
	var payload queue.EmailPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	rendered, err := mailer.Render(payload.Template, payload.Data)
	if err != nil {
		return err
	}

	el := &models.EmailLog{
		SessionID:      payload.SessionID,
		Template:       payload.Template,
		RecipientEmail: payload.Recipient,
		Subject:        rendered.Subject,
	}
	if err := p.logs.Create(ctx, el); err != nil {
		return fmt.Errorf("create email log: %w", err)
	}

	if err := p.deliverer.Deliver(ctx, payload.Recipient, rendered); err != nil {
		if mErr := p.logs.MarkFailed(ctx, el.ID, err.Error()); mErr != nil {
			p.logger.Error("mark email failed", zap.String("email_log_id", el.ID.String()), zap.Error(mErr))
		}
		return fmt.Errorf("deliver %s: %w", payload.Template, err)
	}
	if err := p.logs.MarkSent(ctx, el.ID); err != nil {
		// already delivered; a retry would send a duplicate
		p.logger.Error("mark email sent", zap.String("email_log_id", el.ID.String()), zap.Error(err))
	}

	p.logger.Info("email sent", zap.String("template", payload.Template), zap.String("job_id", job.ID))
	return nil
}

// MeetingDeleter removes provider meetings.
type MeetingDeleter interface {
	DeleteMeeting(ctx context.Context, meetingID string) error
}

// MeetingCleanupProcessor deletes provider meetings that no live class references. Local
// records are never touched.
type MeetingCleanupProcessor struct {
	provider MeetingDeleter
	logger   *zap.Logger
}

// NewMeetingCleanupProcessor creates a meeting cleanup processor.
func NewMeetingCleanupProcessor(provider MeetingDeleter, logger *zap.Logger) *MeetingCleanupProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MeetingCleanupProcessor{provider: provider, logger: logger}
}

// Process executes one meeting cleanup job.
func (p *MeetingCleanupProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeMeetingCleanup {
		return errUnknownJob(job.Type)
	}
	var payload queue.MeetingCleanupPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	if payload.MeetingID == "" {
		p.logger.Warn("meeting cleanup without meeting id", zap.String("job_id", job.ID))
		return nil
	}
	if err := p.provider.DeleteMeeting(ctx, payload.MeetingID); err != nil {
		return fmt.Errorf("delete meeting %s: %w", payload.MeetingID, err)
	}
	p.logger.Info("orphaned meeting deleted",
		zap.String("meeting_id", payload.MeetingID),
		zap.String("session_id", payload.SessionID.String()),
		zap.String("reason", payload.Reason),
	)
	return nil
}
