// Package attempt tracks a student's in-progress pass through an exam.
//
// A session is transient: it lives in process memory from the moment the
// student opens the exam until the attempt is finalized or abandoned, and it
// is never shared between students or exams. The countdown is modeled as an
// explicit Tick transition rather than a wall-clock side effect, so expiry
// is testable without real delays.
package attempt

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/provalab/provahub-backend/internal/grading"
	"github.com/provalab/provahub-backend/internal/model"
)

// State is the lifecycle phase of an attempt session.
type State string

const (
	StateNotStarted State = "NOT_STARTED"
	StateInProgress State = "IN_PROGRESS"
	StateSubmitting State = "SUBMITTING"
	StateFinalized  State = "FINALIZED"
)

var (
	ErrNotInProgress    = errors.New("attempt is not in progress")
	ErrNotSubmitting    = errors.New("attempt is not ready to finalize")
	ErrFinalized        = errors.New("attempt is already finalized")
	ErrFinalizeInFlight = errors.New("attempt finalize already in flight")
	ErrUnanswered       = errors.New("unanswered questions require confirmation")
	ErrUnknownQuestion  = errors.New("question does not belong to this exam")
	ErrUnknownOption    = errors.New("option does not belong to this question")
)

// Session is one student's attempt at one exam.
//
// The exam snapshot is read-only: editing or deleting the exam in the
// catalog does not affect a session already holding it. Methods are safe
// for concurrent use; HTTP handlers, the WebSocket stream and the countdown
// ticker all touch the same session.
type Session struct {
	ExamID    uuid.UUID
	StudentID uuid.UUID

	mu           sync.Mutex
	exam         *model.Exam
	state        State
	currentIndex int
	answers      map[uuid.UUID]uuid.UUID
	remaining    int // seconds
	startedAt    time.Time
	expired      bool
	finalizing   bool
	expireCh     chan struct{}
	doneCh       chan struct{}
	result       *model.Submission
}

// NewSession creates a NotStarted session over a read-only exam snapshot.
func NewSession(exam *model.Exam, studentID uuid.UUID) *Session {
	return &Session{
		ExamID:    exam.ID,
		StudentID: studentID,
		exam:      exam,
		state:     StateNotStarted,
		answers:   make(map[uuid.UUID]uuid.UUID),
		expireCh:  make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start transitions NotStarted → InProgress, arming the countdown with the
// exam's full duration and resetting the question pointer. Starting an
// already started session is a no-op.
func (s *Session) Start(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateNotStarted {
		return
	}
	s.state = StateInProgress
	s.remaining = s.exam.DurationMinutes * 60
	s.currentIndex = 0
	s.startedAt = now
}

// SelectAnswer upserts the student's answer for a question. At most one
// answer per question is kept; a second selection replaces the first.
func (s *Session) SelectAnswer(questionID, optionID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateInProgress {
		return ErrNotInProgress
	}

	q := s.findQuestion(questionID)
	if q == nil {
		return ErrUnknownQuestion
	}
	valid := false
	for i := range q.Options {
		if q.Options[i].ID == optionID {
			valid = true
			break
		}
	}
	if !valid {
		return ErrUnknownOption
	}

	s.answers[questionID] = optionID
	return nil
}

// RestoreAnswers seeds an in-progress session with answers recovered from
// the autosave pipeline after a restart. Entries that do not belong to the
// exam are skipped; the count of applied answers is returned.
func (s *Session) RestoreAnswers(answers map[uuid.UUID]uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateInProgress {
		return 0
	}

	applied := 0
	for qid, oid := range answers {
		q := s.findQuestion(qid)
		if q == nil {
			continue
		}
		for i := range q.Options {
			if q.Options[i].ID == oid {
				s.answers[qid] = oid
				applied++
				break
			}
		}
	}
	return applied
}

// NextQuestion advances the question pointer, clamped at the last question.
func (s *Session) NextQuestion() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateInProgress && s.currentIndex < len(s.exam.Questions)-1 {
		s.currentIndex++
	}
}

// PrevQuestion moves the question pointer back, clamped at zero.
func (s *Session) PrevQuestion() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateInProgress && s.currentIndex > 0 {
		s.currentIndex--
	}
}

// JumpTo moves the pointer straight to index i if it is in range.
func (s *Session) JumpTo(i int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateInProgress && i >= 0 && i < len(s.exam.Questions) {
		s.currentIndex = i
	}
}

// Tick consumes one second of remaining time. Hitting zero forces the
// InProgress → Submitting transition unconditionally: the timeout path
// never asks for the unanswered-questions confirmation. Returns true on
// the tick that expired the session.
func (s *Session) Tick() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateInProgress || s.remaining <= 0 {
		return false
	}
	s.remaining--
	if s.remaining > 0 {
		return false
	}

	s.state = StateSubmitting
	s.expired = true
	close(s.expireCh)
	return true
}

// Finish is the student's explicit submit action (InProgress → Submitting).
// If any question is unanswered, the caller must pass confirmed=true;
// otherwise ErrUnanswered is returned and the attempt stays in progress.
func (s *Session) Finish(confirmed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateInProgress:
	case StateSubmitting:
		// A previous finalize failed in the store; let the student
		// retry the submit without re-confirming.
		return nil
	case StateFinalized:
		return ErrFinalized
	default:
		return ErrNotInProgress
	}

	if len(s.answers) < len(s.exam.Questions) && !confirmed {
		return ErrUnanswered
	}

	s.state = StateSubmitting
	return nil
}

// Snapshot builds the scored Submission for a Submitting session without
// leaving the Submitting state, and marks the finalize as in flight. The
// owner appends the submission to the store first and calls Commit once the
// append stuck, or Release if it did not, so a store outage leaves the
// attempt retryable instead of finalized with no submission behind it.
func (s *Session) Snapshot(now time.Time) (*model.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateSubmitting:
	case StateFinalized:
		return nil, ErrFinalized
	default:
		return nil, ErrNotSubmitting
	}
	if s.finalizing {
		return nil, ErrFinalizeInFlight
	}
	s.finalizing = true

	answers := make([]model.Answer, 0, len(s.answers))
	for i := range s.exam.Questions {
		qid := s.exam.Questions[i].ID
		if oid, ok := s.answers[qid]; ok {
			answers = append(answers, model.Answer{QuestionID: qid, SelectedOptionID: oid})
		}
	}

	return &model.Submission{
		ID:          uuid.New(),
		ExamID:      s.ExamID,
		StudentID:   s.StudentID,
		SubmittedAt: now,
		Answers:     answers,
		Score:       grading.Grade(s.exam, s.answers),
	}, nil
}

// Commit transitions Submitting → Finalized with the stored submission and
// publishes it on DoneSignal. There is no path back: the session is dead
// weight afterwards and should be discarded by its owner.
func (s *Session) Commit(sub *model.Submission) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateSubmitting || !s.finalizing {
		return
	}
	s.state = StateFinalized
	s.finalizing = false
	s.result = sub
	close(s.doneCh)
}

// Release aborts an in-flight finalize whose store append failed. The
// session stays Submitting and the next Finish retries from Snapshot.
func (s *Session) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateSubmitting {
		s.finalizing = false
	}
}

// Finalize runs Snapshot and Commit back to back, for owners with no store
// between the two steps.
func (s *Session) Finalize(now time.Time) (*model.Submission, error) {
	sub, err := s.Snapshot(now)
	if err != nil {
		return nil, err
	}
	s.Commit(sub)
	return sub, nil
}

// Expired reports whether the countdown, not the student, ended the attempt.
func (s *Session) Expired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expired
}

// ExpireSignal is closed when the countdown forces submission. The
// WebSocket stream selects on it to push the forced-submit event.
func (s *Session) ExpireSignal() <-chan struct{} {
	return s.expireCh
}

// DoneSignal is closed once Finalize has produced the submission. Together
// with ExpireSignal it lets the WebSocket stream report the forced-submit
// result without polling.
func (s *Session) DoneSignal() <-chan struct{} {
	return s.doneCh
}

// Result returns the finalized submission, or nil before Finalize.
func (s *Session) Result() *model.Submission {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// State returns the current lifecycle phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Remaining returns the seconds left on the countdown.
func (s *Session) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remaining
}

// CurrentIndex returns the question pointer.
func (s *Session) CurrentIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentIndex
}

// Answers returns a copy of the recorded answers.
func (s *Session) Answers() map[uuid.UUID]uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[uuid.UUID]uuid.UUID, len(s.answers))
	for k, v := range s.answers {
		out[k] = v
	}
	return out
}

// AnsweredCount returns how many questions have a recorded answer.
func (s *Session) AnsweredCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.answers)
}

// QuestionCount returns the size of the exam snapshot.
func (s *Session) QuestionCount() int {
	return len(s.exam.Questions)
}

// Exam returns the read-only exam snapshot the attempt was started with.
func (s *Session) Exam() *model.Exam {
	return s.exam
}

func (s *Session) findQuestion(id uuid.UUID) *model.Question {
	for i := range s.exam.Questions {
		if s.exam.Questions[i].ID == id {
			return &s.exam.Questions[i]
		}
	}
	return nil
}
