package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/HuynhHoangThai/Oncademy-sub000/internal/apperr"
	"github.com/HuynhHoangThai/Oncademy-sub000/internal/middleware"
	"github.com/HuynhHoangThai/Oncademy-sub000/internal/models"
	"github.com/HuynhHoangThai/Oncademy-sub000/internal/service"
)

type AttemptManager interface {
	GetQuizForAttempt(ctx context.Context, caller service.Caller, quizID string) (*service.QuizForAttempt, error)
	SubmitAttempt(ctx context.Context, caller service.Caller, quizID string, input service.SubmitInput) (*service.SubmitResult, error)
	GradeAttempt(ctx context.Context, caller service.Caller, attemptID string, input service.GradeInput) (*models.QuizAttempt, error)
	ListQuizAttempts(ctx context.Context, caller service.Caller, quizID string, status models.AttemptStatus) ([]models.QuizAttempt, error)
	ListMyAttempts(ctx context.Context, caller service.Caller, quizID string) ([]models.QuizAttempt, error)
	GetAttempt(ctx context.Context, caller service.Caller, attemptID string) (*models.QuizAttempt, error)
}

type AttemptHandler struct {
	attempts AttemptManager
	timeout  time.Duration
	log      zerolog.Logger
}

func NewAttemptHandler(attempts AttemptManager, timeout time.Duration, log zerolog.Logger) *AttemptHandler {
	return &AttemptHandler{
		attempts: attempts,
		timeout:  timeout,
		log:      log.With().Str("component", "attempt_handler").Logger(),
	}
}

// RegisterRoutes mounts the attempt routes. submitLimit guards submission
// and may be nil.
func (h *AttemptHandler) RegisterRoutes(protected *gin.RouterGroup, submitLimit gin.HandlerFunc) {
	studentOnly := middleware.RequireRole(service.RoleStudent)
	educatorOnly := middleware.RequireRole(service.RoleEducator)

	submit := []gin.HandlerFunc{studentOnly}
	if submitLimit != nil {
		submit = append(submit, submitLimit)
	}
	submit = append(submit, h.SubmitAttempt)

	quizzes := protected.Group("/quizzes")
	quizzes.GET("/:id/take", studentOnly, h.GetQuizForAttempt)
	quizzes.POST("/:id/submit", submit...)
	quizzes.GET("/:id/attempts", educatorOnly, h.ListQuizAttempts)
	quizzes.GET("/:id/attempts/me", h.ListMyAttempts)

	attempts := protected.Group("/attempts")
	attempts.GET("/:attemptId", h.GetAttempt)
	attempts.PUT("/:attemptId/grade", educatorOnly, h.GradeAttempt)
}

func (h *AttemptHandler) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), h.timeout)
}

func (h *AttemptHandler) GetQuizForAttempt(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	view, err := h.attempts.GetQuizForAttempt(ctx, callerFrom(c), c.Param("id"))
	if err != nil {
		// The attempt limit response still carries the quiz and prior count.
		if apperr.Is(err, apperr.KindAttemptLimit) {
			ErrorResponse(c, h.log, err, view)
			return
		}
		ErrorResponse(c, h.log, err, nil)
		return
	}
	SuccessResponse(c, http.StatusOK, "Quiz ready", view)
}

func (h *AttemptHandler) SubmitAttempt(c *gin.Context) {
	var input service.SubmitInput
	if err := c.ShouldBindJSON(&input); err != nil {
		BadRequestResponse(c, "Invalid request body: "+err.Error())
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	result, err := h.attempts.SubmitAttempt(ctx, callerFrom(c), c.Param("id"), input)
	if err != nil {
		ErrorResponse(c, h.log, err, nil)
		return
	}
	SuccessResponse(c, http.StatusCreated, "Attempt submitted", result)
}

func (h *AttemptHandler) GradeAttempt(c *gin.Context) {
	var input service.GradeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		BadRequestResponse(c, "Invalid request body: "+err.Error())
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	attempt, err := h.attempts.GradeAttempt(ctx, callerFrom(c), c.Param("attemptId"), input)
	if err != nil {
		ErrorResponse(c, h.log, err, nil)
		return
	}
	SuccessResponse(c, http.StatusOK, "Attempt graded", attempt)
}

func (h *AttemptHandler) ListQuizAttempts(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	status := models.AttemptStatus(c.Query("status"))
	attempts, err := h.attempts.ListQuizAttempts(ctx, callerFrom(c), c.Param("id"), status)
	if err != nil {
		ErrorResponse(c, h.log, err, nil)
		return
	}
	SuccessResponse(c, http.StatusOK, "Attempts retrieved successfully", attempts)
}

func (h *AttemptHandler) ListMyAttempts(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	attempts, err := h.attempts.ListMyAttempts(ctx, callerFrom(c), c.Param("id"))
	if err != nil {
		ErrorResponse(c, h.log, err, nil)
		return
	}
	SuccessResponse(c, http.StatusOK, "Attempts retrieved successfully", attempts)
}

func (h *AttemptHandler) GetAttempt(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	attempt, err := h.attempts.GetAttempt(ctx, callerFrom(c), c.Param("attemptId"))
	if err != nil {
		ErrorResponse(c, h.log, err, nil)
		return
	}
	SuccessResponse(c, http.StatusOK, "Attempt retrieved successfully", attempt)
}
