package model

import (
	"time"

	"github.com/google/uuid"
)

// Answer records the option a student selected for one question.
type Answer struct {
	QuestionID       uuid.UUID `json:"question_id"`
	SelectedOptionID uuid.UUID `json:"selected_option_id"`
}

// Submission is the finalized, scored record of a completed attempt.
// Submissions are append-only: the score is computed once at finalize time
// and never mutated afterwards.
type Submission struct {
	ID          uuid.UUID `json:"id"`
	ExamID      uuid.UUID `json:"exam_id"`
	StudentID   uuid.UUID `json:"student_id"`
	SubmittedAt time.Time `json:"submitted_at"`
	Answers     []Answer  `json:"answers"`
	Score       float64   `json:"score"`
}
