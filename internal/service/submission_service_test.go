package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/provalab/provahub-backend/internal/model"
	"github.com/provalab/provahub-backend/internal/repository"
	"github.com/provalab/provahub-backend/internal/repository/memory"
	"github.com/provalab/provahub-backend/internal/service"
)

type submissionFixture struct {
	exams       *memory.ExamRepository
	subs        *memory.SubmissionRepository
	examService *service.ExamService
	subService  *service.SubmissionService
	authorID    uuid.UUID
}

func makeSubmissionFixture(t *testing.T) *submissionFixture {
	t.Helper()

	exams := memory.NewExamRepository()
	subs := memory.NewSubmissionRepository()
	return &submissionFixture{
		exams:       exams,
		subs:        subs,
		examService: service.NewExamService(exams, testRedis(t), zerolog.Nop()),
		subService:  service.NewSubmissionService(subs, exams, zerolog.Nop()),
		authorID:    uuid.New(),
	}
}

func (f *submissionFixture) createExam(t *testing.T, title string) *model.Exam {
	t.Helper()
	exam, err := f.examService.Create(context.Background(), f.authorID, saveRequest(title))
	require.NoError(t, err)
	return exam
}

// submitFor appends a half-right submission (first of two questions correct).
func (f *submissionFixture) submitFor(t *testing.T, exam *model.Exam, studentID uuid.UUID) *model.Submission {
	t.Helper()
	q0, q1 := exam.Questions[0], exam.Questions[1]
	sub := &model.Submission{
		ID:          uuid.New(),
		ExamID:      exam.ID,
		StudentID:   studentID,
		SubmittedAt: time.Now(),
		Answers: []model.Answer{
			{QuestionID: q0.ID, SelectedOptionID: q0.Options[0].ID},
			{QuestionID: q1.ID, SelectedOptionID: q1.Options[1].ID},
		},
		Score: 50,
	}
	require.NoError(t, f.subs.Append(context.Background(), sub))
	return sub
}

func TestSubmissionService_AvailableExamsFiltersTaken(t *testing.T) {
	f := makeSubmissionFixture(t)
	studentID := uuid.New()

	taken := f.createExam(t, "Taken")
	open := f.createExam(t, "Open")
	f.submitFor(t, taken, studentID)

	available, err := f.subService.AvailableExams(context.Background(), studentID)
	require.NoError(t, err)
	require.Len(t, available, 1)
	require.Equal(t, open.ID, available[0].ID)
	require.Equal(t, 2, available[0].QuestionCount)

	// Another student still sees both.
	available, err = f.subService.AvailableExams(context.Background(), uuid.New())
	require.NoError(t, err)
	require.Len(t, available, 2)
}

func TestSubmissionService_ListByExamAuthorOnly(t *testing.T) {
	f := makeSubmissionFixture(t)
	exam := f.createExam(t, "Guarded")
	f.submitFor(t, exam, uuid.New())

	subs, err := f.subService.ListByExam(context.Background(), exam.ID, f.authorID)
	require.NoError(t, err)
	require.Len(t, subs, 1)

	_, err = f.subService.ListByExam(context.Background(), exam.ID, uuid.New())
	require.ErrorIs(t, err, service.ErrNotExamAuthor)
}

func TestSubmissionService_ResultBreakdown(t *testing.T) {
	f := makeSubmissionFixture(t)
	studentID := uuid.New()
	exam := f.createExam(t, "Scored")
	sub := f.submitFor(t, exam, studentID)

	result, err := f.subService.Result(context.Background(), sub.ID, studentID)
	require.NoError(t, err)
	require.Equal(t, 50.0, result.Submission.Score)
	require.False(t, result.Passed)
	require.Equal(t, "Scored", result.ExamTitle)
	require.Len(t, result.Questions, 2)
	require.True(t, result.Questions[0].Correct)
	require.False(t, result.Questions[1].Correct)
}

func TestSubmissionService_ResultOwnerOnly(t *testing.T) {
	f := makeSubmissionFixture(t)
	exam := f.createExam(t, "Private")
	sub := f.submitFor(t, exam, uuid.New())

	_, err := f.subService.Result(context.Background(), sub.ID, uuid.New())
	require.ErrorIs(t, err, service.ErrNotSubmissionOwner)
}

func TestSubmissionService_ResultSurvivesExamDeletion(t *testing.T) {
	f := makeSubmissionFixture(t)
	studentID := uuid.New()
	exam := f.createExam(t, "Doomed")
	sub := f.submitFor(t, exam, studentID)

	require.NoError(t, f.examService.Delete(context.Background(), exam.ID, f.authorID))

	// The stored score and classification remain; the breakdown is gone.
	result, err := f.subService.Result(context.Background(), sub.ID, studentID)
	require.NoError(t, err)
	require.Equal(t, 50.0, result.Submission.Score)
	require.Empty(t, result.Questions)
	require.Empty(t, result.ExamTitle)
}

func TestSubmissionService_ResultNotFound(t *testing.T) {
	f := makeSubmissionFixture(t)

	_, err := f.subService.Result(context.Background(), uuid.New(), uuid.New())
	require.ErrorIs(t, err, repository.ErrNotFound)
}
