package liveclasses

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kavindurs8/studifynew-sub001/internal/models"
)

const sessionColumns = `id, teacher_id, title, description, scheduled_at, duration_minutes, status, admin_notes,
	zoom_meeting_id, zoom_join_url, zoom_start_url, zoom_password, zoom_payload,
	approved_by, approved_at, created_at, updated_at`

// Repository handles live class persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a live class repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ Store = (*Repository)(nil)

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row rowScanner) (*models.LiveClassSession, error) {
	var s models.LiveClassSession
	var status string
	var meetingID, joinURL, startURL, password *string
	var payload []byte
	err := row.Scan(&s.ID, &s.TeacherID, &s.Title, &s.Description, &s.ScheduledAt, &s.DurationMinutes, &status, &s.AdminNotes,
		&meetingID, &joinURL, &startURL, &password, &payload,
		&s.ApprovedBy, &s.ApprovedAt, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	s.Status = models.LiveClassStatus(status)
	if meetingID != nil {
		s.Meeting = &models.Meeting{ID: *meetingID, Password: password}
		if joinURL != nil {
			s.Meeting.JoinURL = *joinURL
		}
		if startURL != nil {
			s.Meeting.StartURL = *startURL
		}
	}
	if len(payload) > 0 {
		s.MeetingPayload = payload
	}
	return &s, nil
}

// Create inserts a new live class.
func (r *Repository) Create(ctx context.Context, s *models.LiveClassSession) error {
	const q = `INSERT INTO live_class_sessions (teacher_id, title, description, duration_minutes, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, s.TeacherID, s.Title, s.Description, s.DurationMinutes, string(s.Status)).
		Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
}

// GetByID returns a live class by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.LiveClassSession, error) {
	return scanSession(r.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM live_class_sessions WHERE id = $1`, id))
}

// List returns live classes, newest first, optionally filtered by teacher and status.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]models.LiveClassSession, error) {
	q := `SELECT ` + sessionColumns + ` FROM live_class_sessions WHERE 1=1`
	var args []interface{}
	if f.TeacherID != nil {
		args = append(args, *f.TeacherID)
		q += fmt.Sprintf(" AND teacher_id = $%d", len(args))
	}
	if f.Status != nil {
		args = append(args, string(*f.Status))
		q += fmt.Sprintf(" AND status = $%d", len(args))
	}
	rows, err := r.pool.Query(ctx, q+" ORDER BY created_at DESC", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]models.LiveClassSession, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *s)
	}
	return list, rows.Err()
}

// TeacherContact returns the owning teacher's email and name.
func (r *Repository) TeacherContact(ctx context.Context, teacherID uuid.UUID) (string, string, error) {
	var email, name string
	err := r.pool.QueryRow(ctx, `SELECT email, full_name FROM users WHERE id = $1`, teacherID).Scan(&email, &name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", "", fmt.Errorf("teacher %s not found", teacherID)
	}
	return email, name, err
}

// WithTx runs fn inside a read-committed transaction. Rows read through GetForUpdate are
// locked (SELECT ... FOR UPDATE), so competing actions on the same class serialize and the
// later one re-reads the committed status.
func (r *Repository) WithTx(ctx context.Context, fn func(tx SessionTx) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	if err := fn(&pgxSessionTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type pgxSessionTx struct {
	tx pgx.Tx
}

func (t *pgxSessionTx) GetForUpdate(ctx context.Context, id uuid.UUID) (*models.LiveClassSession, error) {
	return scanSession(t.tx.QueryRow(ctx, `SELECT `+sessionColumns+` FROM live_class_sessions WHERE id = $1 FOR UPDATE`, id))
}

func (t *pgxSessionTx) Save(ctx context.Context, s *models.LiveClassSession) error {
	const q = `UPDATE live_class_sessions SET
		scheduled_at = $2, status = $3, admin_notes = $4,
		zoom_meeting_id = $5, zoom_join_url = $6, zoom_start_url = $7, zoom_password = $8, zoom_payload = $9,
		approved_by = $10, approved_at = $11, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`
	var meetingID, joinURL, startURL, password *string
	if s.Meeting != nil {
		meetingID, joinURL, startURL, password = &s.Meeting.ID, &s.Meeting.JoinURL, &s.Meeting.StartURL, s.Meeting.Password
	}
	var payload interface{}
	if len(s.MeetingPayload) > 0 {
		payload = string(s.MeetingPayload)
	}
	err := t.tx.QueryRow(ctx, q, s.ID, s.ScheduledAt, string(s.Status), s.AdminNotes,
		meetingID, joinURL, startURL, password, payload,
		s.ApprovedBy, s.ApprovedAt).Scan(&s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
