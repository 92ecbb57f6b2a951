package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// LiveClassStatus is the approval lifecycle state of a live class.
type LiveClassStatus string

const (
	LiveClassDraft           LiveClassStatus = "draft"
	LiveClassPendingApproval LiveClassStatus = "pending_approval"
	LiveClassScheduled       LiveClassStatus = "scheduled"
	LiveClassRejected        LiveClassStatus = "rejected"
	LiveClassCancelled       LiveClassStatus = "cancelled"
)

// Valid reports whether s is a known status.
func (s LiveClassStatus) Valid() bool {
	switch s {
	case LiveClassDraft, LiveClassPendingApproval, LiveClassScheduled, LiveClassRejected, LiveClassCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further administrator action applies.
func (s LiveClassStatus) Terminal() bool {
	return s == LiveClassRejected || s == LiveClassCancelled
}

// LiveClassSession is a teacher's live class under administrator approval control.
type LiveClassSession struct {
	ID              uuid.UUID       `json:"id"`
	TeacherID       uuid.UUID       `json:"teacher_id"`
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	ScheduledAt     *time.Time      `json:"scheduled_at,omitempty"`
	DurationMinutes int             `json:"duration_minutes"`
	Status          LiveClassStatus `json:"status"`
	AdminNotes      *string         `json:"admin_notes,omitempty"`
	Meeting         *Meeting        `json:"meeting,omitempty"`
	MeetingPayload  json.RawMessage `json:"-"`
	ApprovedBy      *uuid.UUID      `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time      `json:"approved_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Meeting holds the provider meeting fields. They exist as a unit: a session either has a
// Meeting with ID, JoinURL and StartURL all set, or none.
type Meeting struct {
	ID       string  `json:"id"`
	JoinURL  string  `json:"join_url"`
	StartURL string  `json:"start_url"`
	Password *string `json:"password,omitempty"`
}

// HasMeeting reports whether a provider meeting is attached.
func (s *LiveClassSession) HasMeeting() bool {
	return s.Meeting != nil && s.Meeting.ID != ""
}

// Clone returns a deep copy so callers can mutate a candidate without touching the original.
func (s *LiveClassSession) Clone() *LiveClassSession {
	c := *s
	if s.ScheduledAt != nil {
		t := *s.ScheduledAt
		c.ScheduledAt = &t
	}
	if s.AdminNotes != nil {
		n := *s.AdminNotes
		c.AdminNotes = &n
	}
	if s.Meeting != nil {
		m := *s.Meeting
		if s.Meeting.Password != nil {
			p := *s.Meeting.Password
			m.Password = &p
		}
		c.Meeting = &m
	}
	if s.MeetingPayload != nil {
		c.MeetingPayload = append(json.RawMessage(nil), s.MeetingPayload...)
	}
	if s.ApprovedBy != nil {
		id := *s.ApprovedBy
		c.ApprovedBy = &id
	}
	if s.ApprovedAt != nil {
		t := *s.ApprovedAt
		c.ApprovedAt = &t
	}
	return &c
}
