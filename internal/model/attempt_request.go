package model

// SelectAnswerRequest records or replaces the student's answer to a question.
type SelectAnswerRequest struct {
	QuestionID string `json:"question_id" binding:"required,uuid"`
	OptionID   string `json:"option_id" binding:"required,uuid"`
}

// NavigateRequest moves the attempt cursor. Direction is next, prev or jump;
// Index is only read for jump.
type NavigateRequest struct {
	Direction string `json:"direction" binding:"required,oneof=next prev jump"`
	Index     int    `json:"index"`
}

// FinishRequest ends an attempt. Confirmed must be true when questions are
// still unanswered.
type FinishRequest struct {
	Confirmed bool `json:"confirmed"`
}
