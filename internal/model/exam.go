package model

import (
	"time"

	"github.com/google/uuid"
)

// Option is a single answer choice of a question.
type Option struct {
	ID         uuid.UUID `json:"id"`
	QuestionID uuid.UUID `json:"question_id"`
	Text       string    `json:"text"`
	IsCorrect  bool      `json:"is_correct"`
}

// Question is a multiple-choice question with at least two options.
type Question struct {
	ID      uuid.UUID `json:"id"`
	ExamID  uuid.UUID `json:"exam_id"`
	Text    string    `json:"text"`
	Options []Option  `json:"options"`
}

// CorrectOption returns the first option flagged correct, or nil if none is.
// First match wins when multiple options are flagged; graders rely on this.
func (q *Question) CorrectOption() *Option {
	for i := range q.Options {
		if q.Options[i].IsCorrect {
			return &q.Options[i]
		}
	}
	return nil
}

// Exam is an authored exam with its full nested question set. The catalog
// always reads and writes exams whole; updates replace the entire object.
type Exam struct {
	ID              uuid.UUID  `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description,omitempty"`
	CreatedBy       uuid.UUID  `json:"created_by"`
	DurationMinutes int        `json:"duration_minutes"`
	Questions       []Question `json:"questions"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// OptionPayload carries one option in a create/update request.
// IDs are caller-supplied so the authoring UI can build the object offline.
type OptionPayload struct {
	ID        string `json:"id" binding:"required,uuid"`
	Text      string `json:"text" binding:"required,max=1000"`
	IsCorrect bool   `json:"is_correct"`
}

// QuestionPayload carries one question in a create/update request.
type QuestionPayload struct {
	ID      string          `json:"id" binding:"required,uuid"`
	Text    string          `json:"text" binding:"required,max=2000"`
	Options []OptionPayload `json:"options" binding:"required,min=2,dive"`
}

// SaveExamRequest is the payload for creating or fully replacing an exam.
// There is no partial merge: omitted questions are dropped on update.
type SaveExamRequest struct {
	ID              string            `json:"id" binding:"omitempty,uuid"`
	Title           string            `json:"title" binding:"required,min=1,max=255"`
	Description     string            `json:"description" binding:"omitempty,max=2000"`
	DurationMinutes int               `json:"duration_minutes" binding:"required,min=1,max=480"`
	Questions       []QuestionPayload `json:"questions" binding:"required,min=1,dive"`
}

// StudentOption is an option as shown to a student: no correct flag.
type StudentOption struct {
	ID   uuid.UUID `json:"id"`
	Text string    `json:"text"`
}

// StudentQuestion is a question as shown to a student.
type StudentQuestion struct {
	ID      uuid.UUID       `json:"id"`
	Text    string          `json:"text"`
	Options []StudentOption `json:"options"`
}

// ExamPayload is the Redis-cached exam paper sent to students.
type ExamPayload struct {
	ExamID          uuid.UUID         `json:"exam_id"`
	Title           string            `json:"title"`
	Description     string            `json:"description,omitempty"`
	DurationMinutes int               `json:"duration_minutes"`
	Questions       []StudentQuestion `json:"questions"`
}

// BuildPayload strips the answer key from an exam for student delivery.
func (e *Exam) BuildPayload() *ExamPayload {
	p := &ExamPayload{
		ExamID:          e.ID,
		Title:           e.Title,
		Description:     e.Description,
		DurationMinutes: e.DurationMinutes,
		Questions:       make([]StudentQuestion, 0, len(e.Questions)),
	}
	for _, q := range e.Questions {
		sq := StudentQuestion{
			ID:      q.ID,
			Text:    q.Text,
			Options: make([]StudentOption, 0, len(q.Options)),
		}
		for _, o := range q.Options {
			sq.Options = append(sq.Options, StudentOption{ID: o.ID, Text: o.Text})
		}
		p.Questions = append(p.Questions, sq)
	}
	return p
}
