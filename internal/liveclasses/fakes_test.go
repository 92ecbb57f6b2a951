package liveclasses

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kavindurs8/studifynew-sub001/internal/mailer"
	"github.com/kavindurs8/studifynew-sub001/internal/models"
	"github.com/kavindurs8/studifynew-sub001/internal/zoom"
	"github.com/kavindurs8/studifynew-sub001/pkg/queue"
)

// memStore is an in-memory Store. GetForUpdate takes a per-row mutex held until the transaction
// ends, which mirrors SELECT ... FOR UPDATE.
type memStore struct {
	mu        sync.Mutex
	rows      map[uuid.UUID]*models.LiveClassSession
	rowLocks  map[uuid.UUID]*sync.Mutex
	teachers  map[uuid.UUID][2]string
	writes    int
	saveErr   error
	commitErr error
}

func newMemStore() *memStore {
	return &memStore{
		rows:     make(map[uuid.UUID]*models.LiveClassSession),
		rowLocks: make(map[uuid.UUID]*sync.Mutex),
		teachers: make(map[uuid.UUID][2]string),
	}
}

func (m *memStore) seed(lc *models.LiveClassSession) *models.LiveClassSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	if lc.ID == uuid.Nil {
		lc.ID = uuid.New()
	}
	if lc.TeacherID == uuid.Nil {
		lc.TeacherID = uuid.New()
	}
	m.rows[lc.ID] = lc.Clone()
	m.teachers[lc.TeacherID] = [2]string{"teacher@example.com", "Ada Teacher"}
	return lc
}

func (m *memStore) row(id uuid.UUID) *models.LiveClassSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[id].Clone()
}

func (m *memStore) writeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

func (m *memStore) lockFor(id uuid.UUID) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.rowLocks[id]
	if !ok {
		l = &sync.Mutex{}
		m.rowLocks[id] = l
	}
	return l
}

func (m *memStore) Create(_ context.Context, s *models.LiveClassSession) error {
	s.ID = uuid.New()
	s.CreatedAt = time.Now()
	s.UpdatedAt = s.CreatedAt
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[s.ID] = s.Clone()
	return nil
}

func (m *memStore) GetByID(_ context.Context, id uuid.UUID) (*models.LiveClassSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	return r.Clone(), nil
}

func (m *memStore) List(_ context.Context, f ListFilter) ([]models.LiveClassSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := make([]models.LiveClassSession, 0, len(m.rows))
	for _, r := range m.rows {
		if f.TeacherID != nil && r.TeacherID != *f.TeacherID {
			continue
		}
		if f.Status != nil && r.Status != *f.Status {
			continue
		}
		list = append(list, *r.Clone())
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Title < list[j].Title })
	return list, nil
}

func (m *memStore) TeacherContact(_ context.Context, teacherID uuid.UUID) (string, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.teachers[teacherID]
	if !ok {
		return "", "", fmt.Errorf("teacher %s not found", teacherID)
	}
	return c[0], c[1], nil
}

func (m *memStore) WithTx(ctx context.Context, fn func(tx SessionTx) error) error {
	tx := &memTx{store: m, pending: make(map[uuid.UUID]*models.LiveClassSession)}
	defer tx.release()

	if err := fn(tx); err != nil {
		return err
	}
	if m.commitErr != nil {
		return fmt.Errorf("commit tx: %w", m.commitErr)
	}
	m.mu.Lock()
	for id, r := range tx.pending {
		m.rows[id] = r
	}
	m.mu.Unlock()
	return nil
}

type memTx struct {
	store   *memStore
	held    []*sync.Mutex
	pending map[uuid.UUID]*models.LiveClassSession
}

func (t *memTx) release() {
	for _, l := range t.held {
		l.Unlock()
	}
}

func (t *memTx) GetForUpdate(ctx context.Context, id uuid.UUID) (*models.LiveClassSession, error) {
	l := t.store.lockFor(id)
	l.Lock()
	t.held = append(t.held, l)
	return t.store.GetByID(ctx, id)
}

func (t *memTx) Save(_ context.Context, s *models.LiveClassSession) error {
	t.store.mu.Lock()
	t.store.writes++
	t.store.mu.Unlock()
	if t.store.saveErr != nil {
		return t.store.saveErr
	}
	t.pending[s.ID] = s.Clone()
	return nil
}

// fakeProvider records calls and fails on demand.
type fakeProvider struct {
	mu          sync.Mutex
	createErr   error
	updateErr   error
	deleteErr   error
	createDelay time.Duration
	noPassword  bool
	creates     int
	updates     []string
	deletes     []string
	specs       []zoom.MeetingSpec
}

func (p *fakeProvider) CreateMeeting(_ context.Context, spec zoom.MeetingSpec) (*zoom.Meeting, error) {
	if p.createDelay > 0 {
		time.Sleep(p.createDelay)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.creates++
	p.specs = append(p.specs, spec)
	if p.createErr != nil {
		return nil, p.createErr
	}
	id := fmt.Sprintf("8%09d", p.creates)
	m := &zoom.Meeting{
		ID:       id,
		JoinURL:  "https://zoom.example/j/" + id,
		StartURL: "https://zoom.example/s/" + id,
		Raw:      json.RawMessage(`{"id":` + id + `}`),
	}
	if !p.noPassword {
		pwd := "abc123"
		m.Password = &pwd
	}
	return m, nil
}

func (p *fakeProvider) UpdateMeeting(_ context.Context, meetingID string, spec zoom.MeetingSpec) (json.RawMessage, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updates = append(p.updates, meetingID)
	p.specs = append(p.specs, spec)
	if p.updateErr != nil {
		return nil, p.updateErr
	}
	return json.RawMessage(`{"id":` + meetingID + `,"start_time":"` + spec.StartTime.UTC().Format(time.RFC3339) + `"}`), nil
}

func (p *fakeProvider) DeleteMeeting(_ context.Context, meetingID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deletes = append(p.deletes, meetingID)
	return p.deleteErr
}

func (p *fakeProvider) calls() (creates, updates, deletes int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.creates, len(p.updates), len(p.deletes)
}

type fakeSender struct {
	mu   sync.Mutex
	err  error
	sent []mailer.Message
}

func (s *fakeSender) Send(_ context.Context, msg mailer.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return s.err
}

type fakeCleanup struct {
	mu   sync.Mutex
	jobs []queue.MeetingCleanupPayload
}

func (q *fakeCleanup) EnqueueMeetingCleanup(_ context.Context, p queue.MeetingCleanupPayload) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, p)
	return nil
}
