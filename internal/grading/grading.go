// Package grading scores a finalized answer set against an exam's answer key.
// Grading is a pure function of its inputs: no clock, no randomness, no
// store access, so a submission graded twice always yields the same score.
package grading

import (
	"github.com/google/uuid"

	"github.com/provalab/provahub-backend/internal/model"
)

// PassThreshold is the percentage at or above which a score counts as a
// pass. It exists for display only: it is never stored on a submission and
// every consumer recomputes the pass/fail classification from the raw score.
const PassThreshold = 60.0

// Grade scores answers against exam. For each question the first option
// flagged correct is the key; a recorded answer matching that option counts
// as correct. Unanswered questions and questions with no correct-flagged
// option count as incorrect. Grading never fails.
//
// The returned score is correct/total*100 in [0, 100]. An exam with zero
// questions scores 0.
func Grade(exam *model.Exam, answers map[uuid.UUID]uuid.UUID) float64 {
	total := len(exam.Questions)
	if total == 0 {
		return 0
	}

	correct := 0
	for i := range exam.Questions {
		q := &exam.Questions[i]
		key := q.CorrectOption()
		if key == nil {
			continue
		}
		if selected, ok := answers[q.ID]; ok && selected == key.ID {
			correct++
		}
	}

	return float64(correct) / float64(total) * 100
}

// GradeAnswers is Grade for the slice form used by stored submissions.
// Duplicate question IDs keep the last entry, matching the attempt
// session's last-write-wins answer map.
func GradeAnswers(exam *model.Exam, answers []model.Answer) float64 {
	m := make(map[uuid.UUID]uuid.UUID, len(answers))
	for _, a := range answers {
		m[a.QuestionID] = a.SelectedOptionID
	}
	return Grade(exam, m)
}

// Passed reports whether a score clears the display pass threshold.
func Passed(score float64) bool {
	return score >= PassThreshold
}
