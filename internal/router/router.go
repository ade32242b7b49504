package router

import (
	"net/http"
	"time"

	"github.com/examforge/exams-service/internal/config"
	"github.com/examforge/exams-service/internal/handler"
	"github.com/examforge/exams-service/internal/metrics"
	"github.com/examforge/exams-service/internal/middleware"
	"github.com/examforge/exams-service/internal/model"
	"github.com/examforge/exams-service/internal/response"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Exam    *handler.ExamHandler
	Attempt *handler.AttemptHandler
	WS      *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	wsAuth middleware.TokenValidator,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check and Prometheus scrape endpoint.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Exam management (teachers and admins).
	manageAPI := router.Group("/api/v1/exams")
	manageAPI.Use(
		middleware.RequireAuth(cfg.JWTSecret),
		middleware.RequireRole(model.RoleTeacher, model.RoleAdmin),
	)
	{
		manageAPI.POST("", handlers.Exam.CreateExam)
		manageAPI.GET("/:exam_id", handlers.Exam.GetExam)
		manageAPI.POST("/:exam_id/questions", handlers.Exam.AddQuestions)
		manageAPI.POST("/:exam_id/publish", handlers.Exam.PublishExam)
		manageAPI.GET("/:exam_id/statistics", handlers.Exam.GetStatistics)
	}

	// Attempt lifecycle (students).
	studentAPI := router.Group("/api/v1")
	studentAPI.Use(
		middleware.RequireAuth(cfg.JWTSecret),
		middleware.RequireRole(model.RoleStudent),
	)
	{
		studentAPI.POST("/exams/:exam_id/attempts", handlers.Attempt.StartAttempt)
		studentAPI.POST("/attempts/:attempt_id/submit", handlers.Attempt.SubmitAttempt)
		studentAPI.GET("/exams/:exam_id/results", handlers.Attempt.GetResults)
	}

	// Live result stream. WS upgrades carry the token as a query param and
	// are validated remotely so revoked tokens cannot hold a stream open.
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireWSAuth(wsAuth))
	{
		ws.GET("/exams/:exam_id/results", handlers.WS.ResultStream)
	}

	return router
}
