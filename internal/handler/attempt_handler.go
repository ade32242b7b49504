package handler

import (
	"net/http"

	"github.com/examforge/exams-service/internal/apperr"
	"github.com/examforge/exams-service/internal/middleware"
	"github.com/examforge/exams-service/internal/model"
	"github.com/examforge/exams-service/internal/response"
	"github.com/examforge/exams-service/internal/service"
	"github.com/examforge/exams-service/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AttemptHandler handles the student-facing attempt endpoints.
type AttemptHandler struct {
	svc *service.ExamLifecycleService
}

// NewAttemptHandler creates a new AttemptHandler.
func NewAttemptHandler(svc *service.ExamLifecycleService) *AttemptHandler {
	return &AttemptHandler{svc: svc}
}

// StartAttempt godoc
// POST /api/v1/exams/:exam_id/attempts
// Starts a new attempt. When the content service is down the attempt is
// still created and the response is 202 with an empty question list; the
// client retries fetching questions.
func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	user, ok := middleware.GetUser(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	meta := service.ClientMeta{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}

	result, err := h.svc.StartAttempt(c.Request.Context(), examID, user.ID, meta)
	if err != nil {
		if apperr.IsKind(err, apperr.KindServiceDegraded) && result != nil {
			response.PartialSuccess(c, http.StatusAccepted, gin.H{"attempt": result}, response.ErrPartialResponse, "")
			return
		}
		response.FailError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"attempt": result})
}

// SubmitAttempt godoc
// POST /api/v1/attempts/:attempt_id/submit
// Submits all responses, evaluates them and completes the attempt.
func (h *AttemptHandler) SubmitAttempt(c *gin.Context) {
	user, ok := middleware.GetUser(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.SubmitAttemptRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.svc.SubmitAttempt(c.Request.Context(), attemptID, user.ID, req)
	if err != nil {
		response.FailError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": result})
}

// GetResults godoc
// GET /api/v1/exams/:exam_id/results
// Returns the authenticated student's completed attempts on the exam.
func (h *AttemptHandler) GetResults(c *gin.Context) {
	user, ok := middleware.GetUser(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	attempts, err := h.svc.GetResults(c.Request.Context(), examID, user.ID)
	if err != nil {
		response.FailError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempts": attempts})
}
