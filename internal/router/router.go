package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/provalab/provahub-backend/internal/config"
	"github.com/provalab/provahub-backend/internal/handler"
	"github.com/provalab/provahub-backend/internal/middleware"
	"github.com/provalab/provahub-backend/internal/response"
	"github.com/provalab/provahub-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth    *handler.AuthHandler
	Exam    *handler.ExamHandler
	Student *handler.StudentHandler
	WS      *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
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

	// Apply brotli middleware globally.
	router.Use(middleware.Brotli())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for auth routes (30 requests per minute per IP).
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/register", handlers.Auth.Register)
		auth.POST("/login", handlers.Auth.Login)
		auth.GET("/me", middleware.RequireAnyJWT(authService), handlers.Auth.Me)
	}

	// ─── 2. Professor Group (JWT, professor role) ──────────────────────
	professorAPI := router.Group("/api/v1/professor")
	professorAPI.Use(middleware.RequireProfessorJWT(authService))
	{
		professorAPI.GET("/exams", handlers.Exam.List)
		professorAPI.POST("/exams", handlers.Exam.Create)
		professorAPI.GET("/exams/:examId", handlers.Exam.GetByID)
		professorAPI.PUT("/exams/:examId", handlers.Exam.Update)
		professorAPI.DELETE("/exams/:examId", handlers.Exam.Delete)
		professorAPI.GET("/exams/:examId/results", handlers.Exam.Results)
	}

	// ─── 3. Student Group (JWT, student role) ──────────────────────────
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(middleware.RequireStudentJWT(authService))
	{
		studentAPI.GET("/exams", handlers.Student.AvailableExams)
		studentAPI.POST("/exams/:examId/attempt", handlers.Student.StartAttempt)
		studentAPI.GET("/exams/:examId/attempt", handlers.Student.AttemptState)
		studentAPI.PUT("/exams/:examId/attempt/answer", handlers.Student.SelectAnswer)
		studentAPI.PUT("/exams/:examId/attempt/position", handlers.Student.Navigate)
		studentAPI.POST("/exams/:examId/attempt/finish", handlers.Student.FinishAttempt)
		studentAPI.DELETE("/exams/:examId/attempt", handlers.Student.AbandonAttempt)
		studentAPI.GET("/submissions", handlers.Student.Submissions)
		studentAPI.GET("/submissions/:submissionId", handlers.Student.Result)
	}

	// ─── 4. WebSocket Group (Student WS Auth) ──────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireStudentWSAuth(authService))
	{
		ws.GET("/student/exams/:examId/stream", handlers.WS.AttemptStream)
	}

	return router
}
