package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/provalab/provahub-backend/internal/attempt"
	"github.com/provalab/provahub-backend/internal/config"
	"github.com/provalab/provahub-backend/internal/model"
	"github.com/provalab/provahub-backend/internal/repository"
)

// Attempt flow errors.
var (
	ErrNoActiveAttempt  = errors.New("no attempt in progress for this exam")
	ErrAlreadySubmitted = errors.New("exam already submitted by this student")
)

// AttemptState is the snapshot returned to the UI shell, covering page
// reloads within a live attempt.
type AttemptState struct {
	ExamID        uuid.UUID         `json:"exam_id"`
	State         attempt.State     `json:"state"`
	CurrentIndex  int               `json:"current_index"`
	Remaining     int               `json:"time_remaining_seconds"`
	Answers       map[string]string `json:"answers"`
	AnsweredCount int               `json:"answered_count"`
	QuestionCount int               `json:"question_count"`
}

// AttemptService orchestrates live attempt sessions: it owns the exam
// snapshot handoff from the catalog, mirrors in-flight answers to Redis for
// the autosave worker, and appends the scored submission on finalize.
type AttemptService struct {
	manager *attempt.Manager
	exams   repository.ExamRepository
	subs    repository.SubmissionRepository
	rdb     *redis.Client
	log     zerolog.Logger
	now     func() time.Time
}

// NewAttemptService creates a new AttemptService.
func NewAttemptService(
	manager *attempt.Manager,
	exams repository.ExamRepository,
	subs repository.SubmissionRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *AttemptService {
	return &AttemptService{
		manager: manager,
		exams:   exams,
		subs:    subs,
		rdb:     rdb,
		log:     log.With().Str("component", "attempt_service").Logger(),
		now:     time.Now,
	}
}

// Start opens (or resumes, after a reload) the student's attempt session.
// An exam the student already submitted cannot be attempted again.
func (s *AttemptService) Start(ctx context.Context, examID, studentID uuid.UUID) (*attempt.Session, error) {
	submitted, err := s.subs.Exists(ctx, examID, studentID)
	if err != nil {
		return nil, fmt.Errorf("check submission: %w", err)
	}
	if submitted {
		return nil, ErrAlreadySubmitted
	}

	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		return nil, err
	}

	sess, resumed := s.manager.Open(exam, studentID, s.now())
	if !resumed {
		s.restoreAutosave(ctx, sess)
		s.log.Info().
			Str("exam_id", examID.String()).
			Str("student_id", studentID.String()).
			Msg("Attempt started")
	}
	return sess, nil
}

// restoreAutosave seeds a fresh session with answers that outlived the
// process holding the previous one: the Redis buffer first, the persisted
// attempt_answers rows when the buffer is gone too. A session resumed from
// the manager never gets here; it still has its answers.
func (s *AttemptService) restoreAutosave(ctx context.Context, sess *attempt.Session) {
	key := config.CacheKey.StudentAnswersKey(sess.ExamID.String(), sess.StudentID.String())
	buffered, err := s.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		s.log.Warn().Err(err).Msg("Autosave buffer read failed")
	}

	answers := make(map[uuid.UUID]uuid.UUID, len(buffered))
	for q, o := range buffered {
		questionID, err := uuid.Parse(q)
		if err != nil {
			continue
		}
		optionID, err := uuid.Parse(o)
		if err != nil {
			continue
		}
		answers[questionID] = optionID
	}

	if len(answers) == 0 {
		answers, err = s.subs.AttemptAnswers(ctx, sess.ExamID, sess.StudentID)
		if err != nil {
			s.log.Warn().Err(err).Msg("Persisted answer read failed")
			return
		}
	}
	if len(answers) == 0 {
		return
	}

	if restored := sess.RestoreAnswers(answers); restored > 0 {
		s.log.Info().
			Int("restored", restored).
			Str("exam_id", sess.ExamID.String()).
			Str("student_id", sess.StudentID.String()).
			Msg("Autosaved answers restored")
	}
}

// State returns the live attempt snapshot for reload recovery.
func (s *AttemptService) State(examID, studentID uuid.UUID) (*AttemptState, error) {
	sess, ok := s.manager.Get(examID, studentID)
	if !ok {
		return nil, ErrNoActiveAttempt
	}
	return snapshotState(sess), nil
}

// Session exposes the raw live session; the WebSocket stream uses it.
func (s *AttemptService) Session(examID, studentID uuid.UUID) (*attempt.Session, error) {
	sess, ok := s.manager.Get(examID, studentID)
	if !ok {
		return nil, ErrNoActiveAttempt
	}
	return sess, nil
}

// SelectAnswer records an answer (last write wins) and mirrors it to the
// Redis autosave buffer plus the persistence queue.
func (s *AttemptService) SelectAnswer(ctx context.Context, examID, studentID, questionID, optionID uuid.UUID) (*AttemptState, error) {
	sess, ok := s.manager.Get(examID, studentID)
	if !ok {
		return nil, ErrNoActiveAttempt
	}

	if err := sess.SelectAnswer(questionID, optionID); err != nil {
		return nil, err
	}

	s.autosave(ctx, examID, studentID, questionID, optionID)
	return snapshotState(sess), nil
}

// Navigate moves the question pointer. dir is "next", "prev" or "jump"
// (with idx); movement clamps at the exam boundaries.
func (s *AttemptService) Navigate(examID, studentID uuid.UUID, dir string, idx int) (*AttemptState, error) {
	sess, ok := s.manager.Get(examID, studentID)
	if !ok {
		return nil, ErrNoActiveAttempt
	}

	switch dir {
	case "next":
		sess.NextQuestion()
	case "prev":
		sess.PrevQuestion()
	case "jump":
		sess.JumpTo(idx)
	default:
		return nil, fmt.Errorf("unknown direction %q", dir)
	}
	return snapshotState(sess), nil
}

// Finish is the student's explicit submit. With unanswered questions it
// requires confirmed=true, otherwise attempt.ErrUnanswered comes back and
// the attempt keeps running.
func (s *AttemptService) Finish(ctx context.Context, examID, studentID uuid.UUID, confirmed bool) (*model.Submission, error) {
	sess, ok := s.manager.Get(examID, studentID)
	if !ok {
		return nil, ErrNoActiveAttempt
	}

	if err := sess.Finish(confirmed); err != nil {
		return nil, err
	}
	return s.finalize(ctx, sess)
}

// Abandon discards a live attempt without producing a submission; the exam
// stays available for a later try. Both autosave stores are cleared right
// here so a follow-up Start cannot restore the discarded answers.
func (s *AttemptService) Abandon(ctx context.Context, examID, studentID uuid.UUID) error {
	if _, ok := s.manager.Get(examID, studentID); !ok {
		return ErrNoActiveAttempt
	}
	s.manager.Remove(examID, studentID)
	s.clearAutosave(ctx, examID, studentID)
	if err := s.subs.DeleteAttemptAnswers(ctx, examID, studentID); err != nil {
		s.log.Warn().Err(err).Msg("Persisted answer cleanup failed, queueing for worker")
		s.queueCleanup(ctx, examID, studentID, "")
	}

	s.log.Info().
		Str("exam_id", examID.String()).
		Str("student_id", studentID.String()).
		Msg("Attempt abandoned")
	return nil
}

// HandleExpiry finalizes a session the countdown forced into Submitting.
// Wired as the manager ticker's onExpire callback.
func (s *AttemptService) HandleExpiry(sess *attempt.Session) {
	if _, err := s.finalize(context.Background(), sess); err != nil {
		s.log.Error().Err(err).
			Str("exam_id", sess.ExamID.String()).
			Str("student_id", sess.StudentID.String()).
			Msg("Forced finalize failed")
	}
}

// finalize snapshots the session into a scored submission, appends it to
// the store and only then commits the Finalized state. A failed append
// releases the session back to Submitting so the student can retry the
// submit once the store recovers. The cleanup payload queued here lets the
// background worker clear autosave leftovers in batches.
func (s *AttemptService) finalize(ctx context.Context, sess *attempt.Session) (*model.Submission, error) {
	sub, err := sess.Snapshot(s.now())
	if err != nil {
		return nil, err
	}

	if err := s.subs.Append(ctx, sub); err != nil {
		sess.Release()
		return nil, fmt.Errorf("append submission: %w", err)
	}
	sess.Commit(sub)
	s.manager.Remove(sess.ExamID, sess.StudentID)

	s.queueCleanup(ctx, sess.ExamID, sess.StudentID, sub.ID.String())

	s.log.Info().
		Str("exam_id", sess.ExamID.String()).
		Str("student_id", sess.StudentID.String()).
		Float64("score", sub.Score).
		Bool("expired", sess.Expired()).
		Msg("Attempt finalized")
	return sub, nil
}

func (s *AttemptService) autosave(ctx context.Context, examID, studentID, questionID, optionID uuid.UUID) {
	key := config.CacheKey.StudentAnswersKey(examID.String(), studentID.String())
	if err := s.rdb.HSet(ctx, key, questionID.String(), optionID.String()).Err(); err != nil {
		s.log.Warn().Err(err).Msg("Autosave buffer write failed")
		return
	}

	payload, _ := json.Marshal(map[string]interface{}{
		"exam_id":     examID.String(),
		"student_id":  studentID.String(),
		"question_id": questionID.String(),
		"option_id":   optionID.String(),
	})
	s.rdb.RPush(ctx, config.WorkerKey.PersistAnswersQueue, payload)
}

func (s *AttemptService) queueCleanup(ctx context.Context, examID, studentID uuid.UUID, submissionID string) {
	payload, _ := json.Marshal(map[string]interface{}{
		"exam_id":       examID.String(),
		"student_id":    studentID.String(),
		"submission_id": submissionID,
	})
	if err := s.rdb.RPush(ctx, config.WorkerKey.FinalizeCleanupQueue, payload).Err(); err != nil {
		s.log.Warn().Err(err).Msg("Queue cleanup failed")
	}
}

func (s *AttemptService) clearAutosave(ctx context.Context, examID, studentID uuid.UUID) {
	key := config.CacheKey.StudentAnswersKey(examID.String(), studentID.String())
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		s.log.Warn().Err(err).Msg("Autosave buffer delete failed")
	}
}

func snapshotState(sess *attempt.Session) *AttemptState {
	answers := make(map[string]string)
	for q, o := range sess.Answers() {
		answers[q.String()] = o.String()
	}
	return &AttemptState{
		ExamID:        sess.ExamID,
		State:         sess.State(),
		CurrentIndex:  sess.CurrentIndex(),
		Remaining:     sess.Remaining(),
		Answers:       answers,
		AnsweredCount: sess.AnsweredCount(),
		QuestionCount: sess.QuestionCount(),
	}
}
