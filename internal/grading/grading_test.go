package grading_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/provalab/provahub-backend/internal/grading"
	"github.com/provalab/provahub-backend/internal/model"
)

// buildExam creates an exam with n questions of two options each; the first
// option of every question is the correct one.
func buildExam(n int) *model.Exam {
	exam := &model.Exam{ID: uuid.New(), Title: "Grading fixture", DurationMinutes: 10}
	for i := 0; i < n; i++ {
		q := model.Question{ID: uuid.New(), ExamID: exam.ID, Text: "Q"}
		q.Options = []model.Option{
			{ID: uuid.New(), QuestionID: q.ID, Text: "right", IsCorrect: true},
			{ID: uuid.New(), QuestionID: q.ID, Text: "wrong"},
		}
		exam.Questions = append(exam.Questions, q)
	}
	return exam
}

func correctAnswers(exam *model.Exam, count int) map[uuid.UUID]uuid.UUID {
	answers := make(map[uuid.UUID]uuid.UUID)
	for i := 0; i < count; i++ {
		q := exam.Questions[i]
		answers[q.ID] = q.Options[0].ID
	}
	return answers
}

func TestGrade(t *testing.T) {
	tests := map[string]struct {
		questions int
		arrange   func(exam *model.Exam) map[uuid.UUID]uuid.UUID
		want      float64
	}{
		"all correct scores 100": {
			questions: 4,
			arrange:   func(e *model.Exam) map[uuid.UUID]uuid.UUID { return correctAnswers(e, 4) },
			want:      100,
		},
		"three of four scores 75": {
			questions: 4,
			arrange: func(e *model.Exam) map[uuid.UUID]uuid.UUID {
				answers := correctAnswers(e, 3)
				answers[e.Questions[3].ID] = e.Questions[3].Options[1].ID
				return answers
			},
			want: 75,
		},
		"empty answer set scores 0": {
			questions: 4,
			arrange:   func(e *model.Exam) map[uuid.UUID]uuid.UUID { return nil },
			want:      0,
		},
		"zero questions scores 0": {
			questions: 0,
			arrange:   func(e *model.Exam) map[uuid.UUID]uuid.UUID { return nil },
			want:      0,
		},
		"unanswered questions count as incorrect": {
			questions: 4,
			arrange:   func(e *model.Exam) map[uuid.UUID]uuid.UUID { return correctAnswers(e, 2) },
			want:      50,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			exam := buildExam(tt.questions)
			answers := tt.arrange(exam)

			got := grading.Grade(exam, answers)
			require.Equal(t, tt.want, got)
			require.GreaterOrEqual(t, got, 0.0)
			require.LessOrEqual(t, got, 100.0)

			// Same inputs, same score.
			require.Equal(t, got, grading.Grade(exam, answers))
		})
	}
}

func TestGrade_NoCorrectOptionCountsIncorrect(t *testing.T) {
	exam := buildExam(2)
	for i := range exam.Questions[1].Options {
		exam.Questions[1].Options[i].IsCorrect = false
	}

	// Selecting anything on the keyless question cannot score.
	answers := correctAnswers(exam, 1)
	answers[exam.Questions[1].ID] = exam.Questions[1].Options[0].ID

	require.Equal(t, 50.0, grading.Grade(exam, answers))
}

func TestGrade_FirstCorrectOptionWins(t *testing.T) {
	exam := buildExam(1)
	exam.Questions[0].Options[1].IsCorrect = true // two flagged correct

	first := map[uuid.UUID]uuid.UUID{exam.Questions[0].ID: exam.Questions[0].Options[0].ID}
	second := map[uuid.UUID]uuid.UUID{exam.Questions[0].ID: exam.Questions[0].Options[1].ID}

	require.Equal(t, 100.0, grading.Grade(exam, first))
	require.Equal(t, 0.0, grading.Grade(exam, second))
}

func TestGradeAnswers_LastEntryWins(t *testing.T) {
	exam := buildExam(1)
	q := exam.Questions[0]

	answers := []model.Answer{
		{QuestionID: q.ID, SelectedOptionID: q.Options[1].ID},
		{QuestionID: q.ID, SelectedOptionID: q.Options[0].ID},
	}
	require.Equal(t, 100.0, grading.GradeAnswers(exam, answers))
}

func TestPassed(t *testing.T) {
	require.True(t, grading.Passed(60))
	require.True(t, grading.Passed(100))
	require.False(t, grading.Passed(59.9))
	require.False(t, grading.Passed(0))
}
