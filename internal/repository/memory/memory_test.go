package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/provalab/provahub-backend/internal/model"
	"github.com/provalab/provahub-backend/internal/repository"
	"github.com/provalab/provahub-backend/internal/repository/memory"
)

func buildExam(authorID uuid.UUID, title string) *model.Exam {
	exam := &model.Exam{
		ID:              uuid.New(),
		Title:           title,
		CreatedBy:       authorID,
		DurationMinutes: 30,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
	q := model.Question{ID: uuid.New(), ExamID: exam.ID, Text: "Q1"}
	q.Options = []model.Option{
		{ID: uuid.New(), QuestionID: q.ID, Text: "right", IsCorrect: true},
		{ID: uuid.New(), QuestionID: q.ID, Text: "wrong"},
	}
	exam.Questions = []model.Question{q}
	return exam
}

func TestExamRepository_UpdateReadBackExactness(t *testing.T) {
	repo := memory.NewExamRepository()
	ctx := context.Background()
	exam := buildExam(uuid.New(), "Before")
	require.NoError(t, repo.Create(ctx, exam))

	replacement := buildExam(exam.CreatedBy, "After")
	replacement.ID = exam.ID
	require.NoError(t, repo.Update(ctx, replacement))

	got, err := repo.GetByID(ctx, exam.ID)
	require.NoError(t, err)
	require.Equal(t, replacement, got)
}

func TestExamRepository_ReadsAreIsolated(t *testing.T) {
	repo := memory.NewExamRepository()
	ctx := context.Background()
	exam := buildExam(uuid.New(), "Isolated")
	require.NoError(t, repo.Create(ctx, exam))

	// Mutating a returned snapshot must not leak into the store.
	got, err := repo.GetByID(ctx, exam.ID)
	require.NoError(t, err)
	got.Title = "tampered"
	got.Questions[0].Text = "tampered"

	fresh, err := repo.GetByID(ctx, exam.ID)
	require.NoError(t, err)
	require.Equal(t, "Isolated", fresh.Title)
	require.Equal(t, "Q1", fresh.Questions[0].Text)
}

func TestExamRepository_DeleteVisibility(t *testing.T) {
	repo := memory.NewExamRepository()
	ctx := context.Background()
	exam := buildExam(uuid.New(), "Doomed")
	require.NoError(t, repo.Create(ctx, exam))

	require.NoError(t, repo.Delete(ctx, exam.ID))

	_, err := repo.GetByID(ctx, exam.ID)
	require.ErrorIs(t, err, repository.ErrNotFound)

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Empty(t, all)

	require.ErrorIs(t, repo.Delete(ctx, exam.ID), repository.ErrNotFound)
	require.ErrorIs(t, repo.Update(ctx, exam), repository.ErrNotFound)
}

func TestExamRepository_ListByAuthor(t *testing.T) {
	repo := memory.NewExamRepository()
	ctx := context.Background()
	authorID := uuid.New()

	first := buildExam(authorID, "First")
	second := buildExam(authorID, "Second")
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))
	require.NoError(t, repo.Create(ctx, buildExam(uuid.New(), "Other")))

	mine, err := repo.ListByAuthor(ctx, authorID)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	// Insertion order is stable.
	require.Equal(t, "First", mine[0].Title)
	require.Equal(t, "Second", mine[1].Title)
}

func TestSubmissionRepository_AppendAndFilters(t *testing.T) {
	repo := memory.NewSubmissionRepository()
	ctx := context.Background()
	examID := uuid.New()
	studentID := uuid.New()

	sub := &model.Submission{
		ID:          uuid.New(),
		ExamID:      examID,
		StudentID:   studentID,
		SubmittedAt: time.Now(),
		Score:       75,
	}
	require.NoError(t, repo.Append(ctx, sub))
	require.NoError(t, repo.Append(ctx, &model.Submission{
		ID: uuid.New(), ExamID: examID, StudentID: uuid.New(), SubmittedAt: time.Now(), Score: 25,
	}))

	byExam, err := repo.ListByExam(ctx, examID)
	require.NoError(t, err)
	require.Len(t, byExam, 2)

	byStudent, err := repo.ListByStudent(ctx, studentID)
	require.NoError(t, err)
	require.Len(t, byStudent, 1)
	require.Equal(t, sub.ID, byStudent[0].ID)

	got, err := repo.FindByID(ctx, sub.ID)
	require.NoError(t, err)
	require.Equal(t, 75.0, got.Score)

	_, err = repo.FindByID(ctx, uuid.New())
	require.ErrorIs(t, err, repository.ErrNotFound)

	taken, err := repo.Exists(ctx, examID, studentID)
	require.NoError(t, err)
	require.True(t, taken)

	taken, err = repo.Exists(ctx, uuid.New(), studentID)
	require.NoError(t, err)
	require.False(t, taken)
}

func TestUserRepository_RoundTrip(t *testing.T) {
	repo := memory.NewUserRepository()
	ctx := context.Background()

	user := &model.User{
		ID:           uuid.New(),
		Name:         "Ada",
		Email:        "ada@example.com",
		Role:         model.RoleProfessor,
		PasswordHash: "x",
		CreatedAt:    time.Now(),
	}
	require.NoError(t, repo.Create(ctx, user))

	byEmail, err := repo.GetByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	require.Equal(t, user.ID, byEmail.ID)

	byID, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, model.RoleProfessor, byID.Role)

	_, err = repo.GetByEmail(ctx, "nobody@example.com")
	require.ErrorIs(t, err, repository.ErrNotFound)
}
