package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/provalab/provahub-backend/internal/config"
	"github.com/provalab/provahub-backend/internal/model"
	"github.com/provalab/provahub-backend/internal/repository"
)

// Authoring validation errors. All are detected before any mutation hits
// the catalog; a rejected exam is never partially applied.
var (
	ErrEmptyTitle       = errors.New("exam title must not be empty")
	ErrInvalidDuration  = errors.New("exam duration must be positive")
	ErrNoQuestions      = errors.New("exam has no questions")
	ErrEmptyQuestion    = errors.New("question text must not be empty")
	ErrEmptyOption      = errors.New("option text must not be empty")
	ErrTooFewOptions    = errors.New("question needs at least two options")
	ErrNoCorrectOption  = errors.New("question has no option marked correct")
	ErrNotExamAuthor    = errors.New("user is not the exam author")
)

// ExamService implements the exam catalog: professor-side authoring plus
// the cached student-facing paper.
type ExamService struct {
	exams repository.ExamRepository
	rdb   *redis.Client
	log   zerolog.Logger
}

// NewExamService creates a new ExamService.
func NewExamService(exams repository.ExamRepository, rdb *redis.Client, log zerolog.Logger) *ExamService {
	return &ExamService{
		exams: exams,
		rdb:   rdb,
		log:   log.With().Str("component", "exam_service").Logger(),
	}
}

// Create validates and appends a new exam authored by authorID.
// IDs inside the request are caller-supplied; a missing exam ID is the one
// exception and gets generated here.
func (s *ExamService) Create(ctx context.Context, authorID uuid.UUID, req *model.SaveExamRequest) (*model.Exam, error) {
	exam, err := buildExam(req, authorID)
	if err != nil {
		return nil, err
	}
	if err := ValidateExam(exam); err != nil {
		return nil, err
	}

	if err := s.exams.Create(ctx, exam); err != nil {
		return nil, fmt.Errorf("create exam: %w", err)
	}

	s.cacheExam(ctx, exam)
	return exam, nil
}

// Update replaces the exam with a matching ID wholesale. The caller must
// supply the full object; prior questions and options not present in the
// request are gone afterwards.
func (s *ExamService) Update(ctx context.Context, examID, authorID uuid.UUID, req *model.SaveExamRequest) (*model.Exam, error) {
	existing, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		return nil, err
	}
	if existing.CreatedBy != authorID {
		return nil, ErrNotExamAuthor
	}

	exam, err := buildExam(req, existing.CreatedBy)
	if err != nil {
		return nil, err
	}
	exam.ID = examID
	exam.CreatedAt = existing.CreatedAt
	for i := range exam.Questions {
		exam.Questions[i].ExamID = examID
	}

	if err := ValidateExam(exam); err != nil {
		return nil, err
	}

	if err := s.exams.Update(ctx, exam); err != nil {
		return nil, fmt.Errorf("update exam: %w", err)
	}

	s.cacheExam(ctx, exam)
	return exam, nil
}

// Delete removes an exam. Existing submissions keep their exam_id as an
// orphaned reference; referential integrity across the stores is a
// declared non-goal.
func (s *ExamService) Delete(ctx context.Context, examID, authorID uuid.UUID) error {
	existing, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		return err
	}
	if existing.CreatedBy != authorID {
		return ErrNotExamAuthor
	}

	if err := s.exams.Delete(ctx, examID); err != nil {
		return fmt.Errorf("delete exam: %w", err)
	}

	s.dropCache(ctx, examID)
	return nil
}

// GetByID retrieves the full exam, answer key included (professor view).
func (s *ExamService) GetByID(ctx context.Context, examID uuid.UUID) (*model.Exam, error) {
	return s.exams.GetByID(ctx, examID)
}

// ListByAuthor lists a professor's own exams.
func (s *ExamService) ListByAuthor(ctx context.Context, authorID uuid.UUID) ([]model.Exam, error) {
	return s.exams.ListByAuthor(ctx, authorID)
}

// ListAll lists every exam in the catalog.
func (s *ExamService) ListAll(ctx context.Context) ([]model.Exam, error) {
	return s.exams.ListAll(ctx)
}

// GetPayload returns the student-facing paper (no correct flags) from the
// Redis cache, falling back to the catalog and self-healing on a miss.
func (s *ExamService) GetPayload(ctx context.Context, examID uuid.UUID) (*model.ExamPayload, error) {
	raw, err := s.rdb.Get(ctx, config.CacheKey.ExamPayloadKey(examID.String())).Result()
	if err == nil {
		p := &model.ExamPayload{}
		if jsonErr := json.Unmarshal([]byte(raw), p); jsonErr == nil {
			return p, nil
		}
		// Corrupt cache entry; rebuild below.
	} else if !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get payload: %w", err)
	}

	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		return nil, err
	}
	s.cacheExam(ctx, exam)
	return exam.BuildPayload(), nil
}

// PrewarmAllCaches loads every exam's payload into Redis. Called once on
// startup before accepting traffic.
func (s *ExamService) PrewarmAllCaches(ctx context.Context) error {
	exams, err := s.exams.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list exams: %w", err)
	}
	for i := range exams {
		s.cacheExam(ctx, &exams[i])
	}
	s.log.Info().Int("count", len(exams)).Msg("Exam caches prewarmed")
	return nil
}

// cacheExam writes the student payload, answer key and duration to Redis.
// Cache failures are logged, not fatal; reads fall back to the catalog.
func (s *ExamService) cacheExam(ctx context.Context, exam *model.Exam) {
	id := exam.ID.String()

	payload, err := json.Marshal(exam.BuildPayload())
	if err != nil {
		s.log.Error().Err(err).Str("exam_id", id).Msg("Marshal payload failed")
		return
	}

	answerKey := make(map[string]string, len(exam.Questions))
	for i := range exam.Questions {
		if key := exam.Questions[i].CorrectOption(); key != nil {
			answerKey[exam.Questions[i].ID.String()] = key.ID.String()
		}
	}
	keyJSON, _ := json.Marshal(answerKey)

	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, config.CacheKey.ExamPayloadKey(id), payload, 0)
	pipe.Set(ctx, config.CacheKey.ExamAnswerKeyKey(id), keyJSON, 0)
	pipe.Set(ctx, config.CacheKey.ExamDurationKey(id), exam.DurationMinutes, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Warn().Err(err).Str("exam_id", id).Msg("Cache exam failed")
	}
}

func (s *ExamService) dropCache(ctx context.Context, examID uuid.UUID) {
	id := examID.String()
	if err := s.rdb.Del(ctx,
		config.CacheKey.ExamPayloadKey(id),
		config.CacheKey.ExamAnswerKeyKey(id),
		config.CacheKey.ExamDurationKey(id),
	).Err(); err != nil {
		s.log.Warn().Err(err).Str("exam_id", id).Msg("Drop exam cache failed")
	}
}

// ValidateExam enforces the authoring invariants: non-empty title, positive
// duration, at least one question, and per question non-empty text, two or
// more options with non-empty text, and at least one option marked correct.
// Multiple correct flags are tolerated; grading matches the first.
func ValidateExam(e *model.Exam) error {
	if strings.TrimSpace(e.Title) == "" {
		return ErrEmptyTitle
	}
	if e.DurationMinutes <= 0 {
		return ErrInvalidDuration
	}
	if len(e.Questions) == 0 {
		return ErrNoQuestions
	}
	for i := range e.Questions {
		q := &e.Questions[i]
		if strings.TrimSpace(q.Text) == "" {
			return ErrEmptyQuestion
		}
		if len(q.Options) < 2 {
			return ErrTooFewOptions
		}
		hasCorrect := false
		for j := range q.Options {
			if strings.TrimSpace(q.Options[j].Text) == "" {
				return ErrEmptyOption
			}
			if q.Options[j].IsCorrect {
				hasCorrect = true
			}
		}
		if !hasCorrect {
			return ErrNoCorrectOption
		}
	}
	return nil
}

// buildExam converts a save request into a domain exam, parsing the
// caller-supplied IDs. ID collisions are undefined behavior by contract
// and are not checked here.
func buildExam(req *model.SaveExamRequest, authorID uuid.UUID) (*model.Exam, error) {
	examID := uuid.New()
	if req.ID != "" {
		parsed, err := uuid.Parse(req.ID)
		if err != nil {
			return nil, fmt.Errorf("parse exam id: %w", err)
		}
		examID = parsed
	}

	exam := &model.Exam{
		ID:              examID,
		Title:           req.Title,
		Description:     req.Description,
		CreatedBy:       authorID,
		DurationMinutes: req.DurationMinutes,
		Questions:       make([]model.Question, 0, len(req.Questions)),
	}

	for _, qp := range req.Questions {
		qid, err := uuid.Parse(qp.ID)
		if err != nil {
			return nil, fmt.Errorf("parse question id: %w", err)
		}
		q := model.Question{
			ID:      qid,
			ExamID:  examID,
			Text:    qp.Text,
			Options: make([]model.Option, 0, len(qp.Options)),
		}
		for _, op := range qp.Options {
			oid, err := uuid.Parse(op.ID)
			if err != nil {
				return nil, fmt.Errorf("parse option id: %w", err)
			}
			q.Options = append(q.Options, model.Option{
				ID:         oid,
				QuestionID: qid,
				Text:       op.Text,
				IsCorrect:  op.IsCorrect,
			})
		}
		exam.Questions = append(exam.Questions, q)
	}
	return exam, nil
}
