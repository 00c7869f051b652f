package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionSelectAnswer Action = "select_answer"
	ActionNavigate     Action = "navigate"
	ActionFinish       Action = "finish"
	ActionPing         Action = "ping"
)

// RequestPayload is the single client frame. Fields beyond Action are read
// depending on the action.
type RequestPayload struct {
	Action     Action `json:"action"`
	QuestionID string `json:"question_id,omitempty"`
	OptionID   string `json:"option_id,omitempty"`
	Direction  string `json:"direction,omitempty"`
	Index      int    `json:"index,omitempty"`
	Confirmed  bool   `json:"confirmed,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventState  Event = "state"
	EventTick   Event = "tick"
	EventGraded Event = "graded"
	EventError  Event = "error"
	EventPong   Event = "pong"
)

// StateResponse carries an attempt snapshot after a state-changing action.
type StateResponse struct {
	Event Event       `json:"event"`
	State interface{} `json:"state"`
}

// TickResponse is pushed once per countdown second.
type TickResponse struct {
	Event     Event `json:"event"`
	Remaining int   `json:"time_remaining_seconds"`
}

// GradedResponse closes out the attempt, on explicit finish or timer expiry.
type GradedResponse struct {
	Event        Event   `json:"event"`
	SubmissionID string  `json:"submission_id"`
	Score        float64 `json:"score"`
	Expired      bool    `json:"expired"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
