package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/provalab/provahub-backend/internal/middleware"
	"github.com/provalab/provahub-backend/internal/model"
	"github.com/provalab/provahub-backend/internal/repository"
	"github.com/provalab/provahub-backend/internal/response"
	"github.com/provalab/provahub-backend/internal/service"
	"github.com/provalab/provahub-backend/internal/validator"
)

// ExamHandler handles professor-facing exam authoring endpoints.
type ExamHandler struct {
	examService       *service.ExamService
	submissionService *service.SubmissionService
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(examService *service.ExamService, submissionService *service.SubmissionService) *ExamHandler {
	return &ExamHandler{examService: examService, submissionService: submissionService}
}

// Create godoc
// POST /api/v1/professor/exams
func (h *ExamHandler) Create(c *gin.Context) {
	claims := middleware.GetClaims(c)

	var req model.SaveExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exam, err := h.examService.Create(c.Request.Context(), claims.UserID, &req)
	if err != nil {
		status, code := mapExamError(err)
		response.Fail(c, status, code)
		return
	}

	response.Success(c, http.StatusCreated, exam)
}

// Update godoc
// PUT /api/v1/professor/exams/:examId
// Replaces the exam definition wholesale. There is no partial merge.
func (h *ExamHandler) Update(c *gin.Context) {
	claims := middleware.GetClaims(c)

	examID, err := uuid.Parse(c.Param("examId"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.SaveExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exam, err := h.examService.Update(c.Request.Context(), examID, claims.UserID, &req)
	if err != nil {
		status, code := mapExamError(err)
		response.Fail(c, status, code)
		return
	}

	response.Success(c, http.StatusOK, exam)
}

// Delete godoc
// DELETE /api/v1/professor/exams/:examId
// Past submissions are kept; only the exam definition is removed.
func (h *ExamHandler) Delete(c *gin.Context) {
	claims := middleware.GetClaims(c)

	examID, err := uuid.Parse(c.Param("examId"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.examService.Delete(c.Request.Context(), examID, claims.UserID); err != nil {
		status, code := mapExamError(err)
		response.Fail(c, status, code)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// GetByID godoc
// GET /api/v1/professor/exams/:examId
// Returns the full exam including correct-option flags. Author only.
func (h *ExamHandler) GetByID(c *gin.Context) {
	claims := middleware.GetClaims(c)

	examID, err := uuid.Parse(c.Param("examId"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	exam, err := h.examService.GetByID(c.Request.Context(), examID)
	if err != nil {
		status, code := mapExamError(err)
		response.Fail(c, status, code)
		return
	}
	if exam.CreatedBy != claims.UserID {
		response.Fail(c, http.StatusForbidden, response.ErrNotExamAuthor)
		return
	}

	response.Success(c, http.StatusOK, exam)
}

// List godoc
// GET /api/v1/professor/exams?page=1&per_page=20
func (h *ExamHandler) List(c *gin.Context) {
	claims := middleware.GetClaims(c)

	page, perPage := parsePagination(c)

	exams, err := h.examService.ListByAuthor(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	total := len(exams)
	start := (page - 1) * perPage
	if start > total {
		start = total
	}
	end := start + perPage
	if end > total {
		end = total
	}

	response.SuccessWithPagination(c, http.StatusOK,
		gin.H{"exams": exams[start:end]},
		response.NewPagination(page, perPage, total))
}

func parsePagination(c *gin.Context) (page, perPage int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	perPage, _ = strconv.Atoi(c.DefaultQuery("per_page", "20"))
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	return page, perPage
}

// Results godoc
// GET /api/v1/professor/exams/:examId/results
// Lists every submission for the exam. Author only.
func (h *ExamHandler) Results(c *gin.Context) {
	claims := middleware.GetClaims(c)

	examID, err := uuid.Parse(c.Param("examId"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	subs, err := h.submissionService.ListByExam(c.Request.Context(), examID, claims.UserID)
	if err != nil {
		status, code := mapExamError(err)
		response.Fail(c, status, code)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"submissions": subs})
}

// mapExamError translates service-level errors into HTTP status + error code.
func mapExamError(err error) (int, response.ErrCode) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, response.ErrNotFound
	case errors.Is(err, service.ErrNotExamAuthor):
		return http.StatusForbidden, response.ErrNotExamAuthor
	case errors.Is(err, service.ErrNoQuestions):
		return http.StatusUnprocessableEntity, response.ErrNoQuestions
	case errors.Is(err, service.ErrNoCorrectOption):
		return http.StatusUnprocessableEntity, response.ErrNoCorrectOption
	case errors.Is(err, service.ErrTooFewOptions):
		return http.StatusUnprocessableEntity, response.ErrTooFewOptions
	case errors.Is(err, service.ErrEmptyTitle),
		errors.Is(err, service.ErrInvalidDuration),
		errors.Is(err, service.ErrEmptyQuestion),
		errors.Is(err, service.ErrEmptyOption):
		return http.StatusUnprocessableEntity, response.ErrValidation
	default:
		return http.StatusInternalServerError, response.ErrInternal
	}
}
