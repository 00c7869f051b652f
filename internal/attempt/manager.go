package attempt

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/provalab/provahub-backend/internal/model"
)

// Key identifies a session: one attempt per exam per student at a time.
type Key struct {
	ExamID    uuid.UUID
	StudentID uuid.UUID
}

// Manager owns all live attempt sessions in the process and drives their
// shared countdown. Sessions do not survive a restart; an attempt lost that
// way simply leaves the exam available again, which matches abandoning it.
type Manager struct {
	mu       sync.Mutex
	sessions map[Key]*Session
	log      zerolog.Logger
}

// NewManager creates an empty session manager.
func NewManager(log zerolog.Logger) *Manager {
	return &Manager{
		sessions: make(map[Key]*Session),
		log:      log.With().Str("component", "attempt_manager").Logger(),
	}
}

// Open returns the student's session for the exam, creating and starting a
// fresh one if none is live. The second return value reports whether the
// session already existed.
func (m *Manager) Open(exam *model.Exam, studentID uuid.UUID, now time.Time) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := Key{ExamID: exam.ID, StudentID: studentID}
	if s, ok := m.sessions[key]; ok {
		return s, true
	}

	s := NewSession(exam, studentID)
	s.Start(now)
	m.sessions[key] = s
	return s, false
}

// Get returns the live session for an exam-student pair, if any.
func (m *Manager) Get(examID, studentID uuid.UUID) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[Key{ExamID: examID, StudentID: studentID}]
	return s, ok
}

// Remove discards a session. Used both after finalize and when the student
// abandons the attempt; an abandoned attempt leaves no submission behind.
func (m *Manager) Remove(examID, studentID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, Key{ExamID: examID, StudentID: studentID})
}

// TickAll advances every in-progress countdown by one second and returns
// the sessions that expired on this tick, already forced into Submitting.
func (m *Manager) TickAll() []*Session {
	m.mu.Lock()
	live := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		live = append(live, s)
	}
	m.mu.Unlock()

	// Tick outside the map lock; each session carries its own mutex.
	var expired []*Session
	for _, s := range live {
		if s.Tick() {
			expired = append(expired, s)
		}
	}
	return expired
}

// Run drives TickAll on the given interval until ctx is cancelled, passing
// expired sessions to onExpire for finalization. Call in a goroutine.
func (m *Manager) Run(ctx context.Context, interval time.Duration, onExpire func(*Session)) {
	m.log.Info().Dur("interval", interval).Msg("Countdown ticker started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.log.Info().Msg("Countdown ticker stopped")
			return
		case <-ticker.C:
			for _, s := range m.TickAll() {
				m.log.Info().
					Str("exam_id", s.ExamID.String()).
					Str("student_id", s.StudentID.String()).
					Msg("Attempt expired, forcing submission")
				onExpire(s)
			}
		}
	}
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
