package models

import (
	"time"

	"github.com/google/uuid"
)

// Email templates sent by the platform.
const (
	EmailTemplateLiveClassApproved    = "live_class_approved"
	EmailTemplateLiveClassRejected    = "live_class_rejected"
	EmailTemplateLiveClassRescheduled = "live_class_rescheduled"
	EmailTemplateLiveClassCancelled   = "live_class_cancelled"
	EmailTemplateTeacherOTP           = "teacher_otp"
)

// EmailLogStatus for delivery.
const (
	EmailLogStatusPending = "pending"
	EmailLogStatusSent    = "sent"
	EmailLogStatusFailed  = "failed"
)

// EmailLog records delivered notification emails.
type EmailLog struct {
	ID             uuid.UUID  `json:"id"`
	SessionID      *uuid.UUID `json:"session_id,omitempty"`
	Template       string     `json:"template"`
	RecipientEmail string     `json:"recipient_email"`
	Subject        string     `json:"subject,omitempty"`
	Status         string     `json:"status"`
	SentAt         *time.Time `json:"sent_at,omitempty"`
	ErrorMessage   string     `json:"error_message,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}
