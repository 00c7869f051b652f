package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/provalab/provahub-backend/internal/attempt"
	"github.com/provalab/provahub-backend/internal/middleware"
	"github.com/provalab/provahub-backend/internal/model"
	"github.com/provalab/provahub-backend/internal/repository"
	"github.com/provalab/provahub-backend/internal/response"
	"github.com/provalab/provahub-backend/internal/service"
	"github.com/provalab/provahub-backend/internal/validator"
)

// StudentHandler handles exam-taking endpoints.
type StudentHandler struct {
	examService       *service.ExamService
	attemptService    *service.AttemptService
	submissionService *service.SubmissionService
}

// NewStudentHandler creates a new StudentHandler.
func NewStudentHandler(
	examService *service.ExamService,
	attemptService *service.AttemptService,
	submissionService *service.SubmissionService,
) *StudentHandler {
	return &StudentHandler{
		examService:       examService,
		attemptService:    attemptService,
		submissionService: submissionService,
	}
}

// AvailableExams godoc
// GET /api/v1/student/exams
// Lists exams the student has not submitted yet.
func (h *StudentHandler) AvailableExams(c *gin.Context) {
	claims := middleware.GetClaims(c)

	exams, err := h.submissionService.AvailableExams(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exams": exams})
}

// StartAttempt godoc
// POST /api/v1/student/exams/:examId/attempt
// Opens (or resumes) the attempt session and returns the student payload
// with correct-option flags stripped.
func (h *StudentHandler) StartAttempt(c *gin.Context) {
	claims := middleware.GetClaims(c)

	examID, ok := parseExamID(c)
	if !ok {
		return
	}

	sess, err := h.attemptService.Start(c.Request.Context(), examID, claims.UserID)
	if err != nil {
		status, code := mapAttemptError(err)
		response.Fail(c, status, code)
		return
	}

	payload, err := h.examService.GetPayload(c.Request.Context(), examID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"exam":                   payload,
		"state":                  sess.State(),
		"current_index":          sess.CurrentIndex(),
		"time_remaining_seconds": sess.Remaining(),
	})
}

// AttemptState godoc
// GET /api/v1/student/exams/:examId/attempt
func (h *StudentHandler) AttemptState(c *gin.Context) {
	claims := middleware.GetClaims(c)

	examID, ok := parseExamID(c)
	if !ok {
		return
	}

	state, err := h.attemptService.State(examID, claims.UserID)
	if err != nil {
		status, code := mapAttemptError(err)
		response.Fail(c, status, code)
		return
	}

	response.Success(c, http.StatusOK, state)
}

// SelectAnswer godoc
// PUT /api/v1/student/exams/:examId/attempt/answer
// Upserts the answer for one question. The latest selection wins.
func (h *StudentHandler) SelectAnswer(c *gin.Context) {
	claims := middleware.GetClaims(c)

	examID, ok := parseExamID(c)
	if !ok {
		return
	}

	var req model.SelectAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	questionID, _ := uuid.Parse(req.QuestionID)
	optionID, _ := uuid.Parse(req.OptionID)

	state, err := h.attemptService.SelectAnswer(c.Request.Context(), examID, claims.UserID, questionID, optionID)
	if err != nil {
		status, code := mapAttemptError(err)
		response.Fail(c, status, code)
		return
	}

	response.Success(c, http.StatusOK, state)
}

// Navigate godoc
// PUT /api/v1/student/exams/:examId/attempt/position
func (h *StudentHandler) Navigate(c *gin.Context) {
	claims := middleware.GetClaims(c)

	examID, ok := parseExamID(c)
	if !ok {
		return
	}

	var req model.NavigateRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	state, err := h.attemptService.Navigate(examID, claims.UserID, req.Direction, req.Index)
	if err != nil {
		status, code := mapAttemptError(err)
		response.Fail(c, status, code)
		return
	}

	response.Success(c, http.StatusOK, state)
}

// FinishAttempt godoc
// POST /api/v1/student/exams/:examId/attempt/finish
// Grades the attempt and appends the submission. Unanswered questions need
// confirmed=true; the timer expiry path skips that check.
func (h *StudentHandler) FinishAttempt(c *gin.Context) {
	claims := middleware.GetClaims(c)

	examID, ok := parseExamID(c)
	if !ok {
		return
	}

	var req model.FinishRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	sub, err := h.attemptService.Finish(c.Request.Context(), examID, claims.UserID, req.Confirmed)
	if err != nil {
		status, code := mapAttemptError(err)
		response.Fail(c, status, code)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"submission": sub})
}

// AbandonAttempt godoc
// DELETE /api/v1/student/exams/:examId/attempt
// Discards the session without grading; the exam stays available.
func (h *StudentHandler) AbandonAttempt(c *gin.Context) {
	claims := middleware.GetClaims(c)

	examID, ok := parseExamID(c)
	if !ok {
		return
	}

	if err := h.attemptService.Abandon(c.Request.Context(), examID, claims.UserID); err != nil {
		status, code := mapAttemptError(err)
		response.Fail(c, status, code)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"abandoned": true})
}

// Submissions godoc
// GET /api/v1/student/submissions
func (h *StudentHandler) Submissions(c *gin.Context) {
	claims := middleware.GetClaims(c)

	subs, err := h.submissionService.ListByStudent(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"submissions": subs})
}

// Result godoc
// GET /api/v1/student/submissions/:submissionId
// Per-question breakdown of an own submission.
func (h *StudentHandler) Result(c *gin.Context) {
	claims := middleware.GetClaims(c)

	submissionID, err := uuid.Parse(c.Param("submissionId"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	result, err := h.submissionService.Result(c.Request.Context(), submissionID, claims.UserID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrNotSubmissionOwner):
			response.Fail(c, http.StatusForbidden, response.ErrForbidden)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, result)
}

func parseExamID(c *gin.Context) (uuid.UUID, bool) {
	examID, err := uuid.Parse(c.Param("examId"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return examID, true
}

// mapAttemptError translates attempt/session errors into HTTP status + code.
func mapAttemptError(err error) (int, response.ErrCode) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, response.ErrNotFound
	case errors.Is(err, service.ErrAlreadySubmitted):
		return http.StatusConflict, response.ErrAlreadySubmitted
	case errors.Is(err, service.ErrNoActiveAttempt):
		return http.StatusNotFound, response.ErrNoActiveAttempt
	case errors.Is(err, attempt.ErrUnanswered):
		return http.StatusConflict, response.ErrUnansweredPending
	case errors.Is(err, attempt.ErrUnknownQuestion):
		return http.StatusUnprocessableEntity, response.ErrUnknownQuestion
	case errors.Is(err, attempt.ErrUnknownOption):
		return http.StatusUnprocessableEntity, response.ErrUnknownOption
	case errors.Is(err, attempt.ErrFinalized):
		return http.StatusConflict, response.ErrAttemptFinalized
	case errors.Is(err, attempt.ErrNotInProgress),
		errors.Is(err, attempt.ErrNotSubmitting),
		errors.Is(err, attempt.ErrFinalizeInFlight):
		return http.StatusConflict, response.ErrConflict
	default:
		return http.StatusInternalServerError, response.ErrInternal
	}
}
