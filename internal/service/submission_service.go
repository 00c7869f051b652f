package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/provalab/provahub-backend/internal/grading"
	"github.com/provalab/provahub-backend/internal/model"
	"github.com/provalab/provahub-backend/internal/repository"
)

// ErrNotSubmissionOwner is returned when a student requests someone else's
// submission.
var ErrNotSubmissionOwner = errors.New("submission belongs to another student")

// AvailableExam is an exam as listed to a student: no answer key, plus a
// flag for exams the student already completed.
type AvailableExam struct {
	ID              uuid.UUID `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	DurationMinutes int       `json:"duration_minutes"`
	QuestionCount   int       `json:"question_count"`
}

// QuestionResult is per-question feedback on a finalized submission.
type QuestionResult struct {
	QuestionID       uuid.UUID  `json:"question_id"`
	Text             string     `json:"text"`
	SelectedOptionID *uuid.UUID `json:"selected_option_id,omitempty"`
	CorrectOptionID  *uuid.UUID `json:"correct_option_id,omitempty"`
	Correct          bool       `json:"correct"`
}

// SubmissionResult is a scored submission with the display classification
// recomputed from the pass threshold. Passed is never stored.
type SubmissionResult struct {
	Submission *model.Submission `json:"submission"`
	ExamTitle  string            `json:"exam_title,omitempty"`
	Passed     bool              `json:"passed"`
	Questions  []QuestionResult  `json:"questions,omitempty"`
}

// SubmissionService reads the append-only submission store and builds
// result views for students and professors.
type SubmissionService struct {
	subs  repository.SubmissionRepository
	exams repository.ExamRepository
	log   zerolog.Logger
}

// NewSubmissionService creates a new SubmissionService.
func NewSubmissionService(subs repository.SubmissionRepository, exams repository.ExamRepository, log zerolog.Logger) *SubmissionService {
	return &SubmissionService{
		subs:  subs,
		exams: exams,
		log:   log.With().Str("component", "submission_service").Logger(),
	}
}

// AvailableExams lists exams the student can still take: the whole catalog
// minus exams they already submitted. This filter, not the attempt session,
// is what enforces the one-attempt rule.
func (s *SubmissionService) AvailableExams(ctx context.Context, studentID uuid.UUID) ([]AvailableExam, error) {
	exams, err := s.exams.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list exams: %w", err)
	}

	available := []AvailableExam{}
	for i := range exams {
		taken, err := s.subs.Exists(ctx, exams[i].ID, studentID)
		if err != nil {
			return nil, fmt.Errorf("check submission: %w", err)
		}
		if taken {
			continue
		}
		available = append(available, AvailableExam{
			ID:              exams[i].ID,
			Title:           exams[i].Title,
			Description:     exams[i].Description,
			DurationMinutes: exams[i].DurationMinutes,
			QuestionCount:   len(exams[i].Questions),
		})
	}
	return available, nil
}

// ListByExam returns an exam's submissions for its author.
func (s *SubmissionService) ListByExam(ctx context.Context, examID, authorID uuid.UUID) ([]model.Submission, error) {
	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		return nil, err
	}
	if exam.CreatedBy != authorID {
		return nil, ErrNotExamAuthor
	}
	return s.subs.ListByExam(ctx, examID)
}

// ListByStudent returns all of the student's own submissions.
func (s *SubmissionService) ListByStudent(ctx context.Context, studentID uuid.UUID) ([]model.Submission, error) {
	return s.subs.ListByStudent(ctx, studentID)
}

// Result builds the result view for one submission, owned by studentID.
// If the exam was deleted since, the per-question breakdown is omitted and
// only the stored score and pass classification remain.
func (s *SubmissionService) Result(ctx context.Context, submissionID, studentID uuid.UUID) (*SubmissionResult, error) {
	sub, err := s.subs.FindByID(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if sub.StudentID != studentID {
		return nil, ErrNotSubmissionOwner
	}

	result := &SubmissionResult{
		Submission: sub,
		Passed:     grading.Passed(sub.Score),
	}

	exam, err := s.exams.GetByID(ctx, sub.ExamID)
	if errors.Is(err, repository.ErrNotFound) {
		// Orphaned submission: the exam was deleted after grading.
		return result, nil
	}
	if err != nil {
		return nil, err
	}

	selected := make(map[uuid.UUID]uuid.UUID, len(sub.Answers))
	for _, a := range sub.Answers {
		selected[a.QuestionID] = a.SelectedOptionID
	}

	result.ExamTitle = exam.Title
	for i := range exam.Questions {
		q := &exam.Questions[i]
		qr := QuestionResult{QuestionID: q.ID, Text: q.Text}
		if oid, ok := selected[q.ID]; ok {
			sel := oid
			qr.SelectedOptionID = &sel
		}
		if key := q.CorrectOption(); key != nil {
			kid := key.ID
			qr.CorrectOptionID = &kid
			qr.Correct = qr.SelectedOptionID != nil && *qr.SelectedOptionID == kid
		}
		result.Questions = append(result.Questions, qr)
	}
	return result, nil
}
