package handler

import (
	"net/http"

	"github.com/examforge/exams-service/internal/middleware"
	"github.com/examforge/exams-service/internal/model"
	"github.com/examforge/exams-service/internal/response"
	"github.com/examforge/exams-service/internal/service"
	"github.com/examforge/exams-service/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ExamHandler handles exam management endpoints.
type ExamHandler struct {
	svc *service.ExamLifecycleService
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(svc *service.ExamLifecycleService) *ExamHandler {
	return &ExamHandler{svc: svc}
}

// CreateExam godoc
// POST /api/v1/exams
// Creates a new draft exam owned by the authenticated teacher.
func (h *ExamHandler) CreateExam(c *gin.Context) {
	user, ok := middleware.GetUser(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.CreateExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exam, err := h.svc.CreateExam(c.Request.Context(), user, req)
	if err != nil {
		response.FailError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"exam": exam})
}

// GetExam godoc
// GET /api/v1/exams/:exam_id
func (h *ExamHandler) GetExam(c *gin.Context) {
	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	exam, err := h.svc.GetExam(c.Request.Context(), examID)
	if err != nil {
		response.FailError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exam": exam})
}

// AddQuestions godoc
// POST /api/v1/exams/:exam_id/questions
// Attaches content-service questions to a draft exam.
func (h *ExamHandler) AddQuestions(c *gin.Context) {
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

	var req model.AddQuestionsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.svc.AddQuestions(c.Request.Context(), examID, user, req); err != nil {
		response.FailError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"added": len(req.Questions)})
}

// PublishExam godoc
// POST /api/v1/exams/:exam_id/publish
// Transitions a draft exam to PUBLISHED and freezes its question count.
func (h *ExamHandler) PublishExam(c *gin.Context) {
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

	exam, err := h.svc.Publish(c.Request.Context(), examID, user)
	if err != nil {
		response.FailError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exam": exam})
}

// GetStatistics godoc
// GET /api/v1/exams/:exam_id/statistics
// Aggregates completed attempts; served cache-aside with a short TTL.
func (h *ExamHandler) GetStatistics(c *gin.Context) {
	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	stats, err := h.svc.GetStatistics(c.Request.Context(), examID)
	if err != nil {
		response.FailError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"statistics": stats})
}
