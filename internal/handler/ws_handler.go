package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/provalab/provahub-backend/internal/attempt"
	"github.com/provalab/provahub-backend/internal/middleware"
	"github.com/provalab/provahub-backend/internal/service"
	ws "github.com/provalab/provahub-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allow-list permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams a live attempt over WebSocket: answer and navigation
// actions from the client, countdown ticks and the graded result back.
type WSHandler struct {
	attemptService *service.AttemptService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(attemptService *service.AttemptService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		attemptService: attemptService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// AttemptStream godoc
// WS /ws/v1/student/exams/:examId/stream
// Requires a live attempt session; clients open it right after StartAttempt.
func (h *WSHandler) AttemptStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	examID, err := uuid.Parse(c.Param("examId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid exam ID"})
		return
	}
	studentID := claims.UserID

	sess, err := h.attemptService.Session(examID, studentID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no attempt in progress for this exam"})
		return
	}

	raw, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	conn := ws.Wrap(raw)
	defer conn.Close()

	wsLog := h.log.With().
		Str("exam_id", examID.String()).
		Str("student_id", studentID.String()).
		Logger()
	wsLog.Info().Msg("Student connected")

	streamCtx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	go h.pushTicks(streamCtx, conn, sess, wsLog)

	for {
		var msg ws.RequestPayload
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		switch msg.Action {
		case ws.ActionSelectAnswer:
			h.handleSelectAnswer(c.Request.Context(), conn, examID, studentID, &msg)
		case ws.ActionNavigate:
			h.handleNavigate(conn, examID, studentID, &msg)
		case ws.ActionFinish:
			if done := h.handleFinish(c.Request.Context(), conn, examID, studentID, &msg); done {
				return
			}
		case ws.ActionPing:
			conn.WriteTyped(ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			conn.WriteError("unknown action: " + string(msg.Action))
		}
	}
}

// pushTicks sends the remaining time once per second and, when the countdown
// forces submission, waits for the forced finalize and reports the result.
func (h *WSHandler) pushTicks(ctx context.Context, conn *ws.Conn, sess *attempt.Session, wsLog zerolog.Logger) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sess.ExpireSignal():
			select {
			case <-sess.DoneSignal():
			case <-ctx.Done():
				return
			case <-time.After(10 * time.Second):
				wsLog.Error().Msg("Forced finalize did not complete")
				conn.WriteError("submission failed")
				return
			}
			sub := sess.Result()
			conn.WriteTyped(ws.GradedResponse{
				Event:        ws.EventGraded,
				SubmissionID: sub.ID.String(),
				Score:        sub.Score,
				Expired:      true,
			})
			return
		case <-ticker.C:
			if sess.State() != attempt.StateInProgress {
				continue
			}
			conn.WriteTyped(ws.TickResponse{
				Event:     ws.EventTick,
				Remaining: sess.Remaining(),
			})
		}
	}
}

func (h *WSHandler) handleSelectAnswer(ctx context.Context, conn *ws.Conn, examID, studentID uuid.UUID, msg *ws.RequestPayload) {
	questionID, err := uuid.Parse(msg.QuestionID)
	if err != nil {
		conn.WriteError("invalid question_id format")
		return
	}
	optionID, err := uuid.Parse(msg.OptionID)
	if err != nil {
		conn.WriteError("invalid option_id format")
		return
	}

	state, err := h.attemptService.SelectAnswer(ctx, examID, studentID, questionID, optionID)
	if err != nil {
		conn.WriteError(err.Error())
		return
	}
	conn.WriteTyped(ws.StateResponse{Event: ws.EventState, State: state})
}

func (h *WSHandler) handleNavigate(conn *ws.Conn, examID, studentID uuid.UUID, msg *ws.RequestPayload) {
	state, err := h.attemptService.Navigate(examID, studentID, msg.Direction, msg.Index)
	if err != nil {
		conn.WriteError(err.Error())
		return
	}
	conn.WriteTyped(ws.StateResponse{Event: ws.EventState, State: state})
}

// handleFinish grades the attempt. Returns true once a submission exists so
// the stream can close; validation errors keep the stream open.
func (h *WSHandler) handleFinish(ctx context.Context, conn *ws.Conn, examID, studentID uuid.UUID, msg *ws.RequestPayload) bool {
	sub, err := h.attemptService.Finish(ctx, examID, studentID, msg.Confirmed)
	if err != nil {
		conn.WriteError(err.Error())
		return false
	}

	conn.WriteTyped(ws.GradedResponse{
		Event:        ws.EventGraded,
		SubmissionID: sub.ID.String(),
		Score:        sub.Score,
	})
	return true
}
