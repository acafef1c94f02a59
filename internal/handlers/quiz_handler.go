package handlers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/HuynhHoangThai/Oncademy-sub000/internal/apperr"
	"github.com/HuynhHoangThai/Oncademy-sub000/internal/middleware"
	"github.com/HuynhHoangThai/Oncademy-sub000/internal/models"
	"github.com/HuynhHoangThai/Oncademy-sub000/internal/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type QuizManager interface {
	CreateQuiz(ctx context.Context, caller service.Caller, input service.QuizInput) (*models.Quiz, error)
	UpdateQuiz(ctx context.Context, caller service.Caller, id string, input service.QuizInput) (*models.Quiz, error)
	DeleteQuiz(ctx context.Context, caller service.Caller, id string) error
	PublishQuiz(ctx context.Context, caller service.Caller, id string) (*models.Quiz, error)
	UnpublishQuiz(ctx context.Context, caller service.Caller, id string) (*models.Quiz, error)
	GetQuiz(ctx context.Context, caller service.Caller, id string) (*models.Quiz, error)
	ListByContent(ctx context.Context, caller service.Caller, ref models.ContentRef) ([]service.QuizSummary, error)
	ImportQuiz(ctx context.Context, caller service.Caller, ref models.ContentRef, filename string, data []byte) (*models.Quiz, error)
	Template() (*bytes.Buffer, error)
	UploadQuestionImage(ctx context.Context, caller service.Caller, quizID, questionID string, r io.Reader, size int64, contentType string) (*models.Quiz, error)
}

type QuizHandler struct {
	quizzes       QuizManager
	timeout       time.Duration
	maxUploadSize int64
	log           zerolog.Logger
}

func NewQuizHandler(quizzes QuizManager, timeout time.Duration, maxUploadSize int64, log zerolog.Logger) *QuizHandler {
	return &QuizHandler{
		quizzes:       quizzes,
		timeout:       timeout,
		maxUploadSize: maxUploadSize,
		log:           log.With().Str("component", "quiz_handler").Logger(),
	}
}

func (h *QuizHandler) RegisterRoutes(protected *gin.RouterGroup) {
	educatorOnly := middleware.RequireRole(service.RoleEducator)

	quizzes := protected.Group("/quizzes")
	quizzes.POST("", educatorOnly, h.CreateQuiz)
	quizzes.GET("/template", educatorOnly, h.DownloadTemplate)
	quizzes.POST("/import", educatorOnly, h.ImportQuiz)
	quizzes.GET("/content/:kind/:id", h.ListByContent)
	quizzes.GET("/:id", educatorOnly, h.GetQuiz)
	quizzes.PUT("/:id", educatorOnly, h.UpdateQuiz)
	quizzes.DELETE("/:id", educatorOnly, h.DeleteQuiz)
	quizzes.PATCH("/:id/publish", educatorOnly, h.PublishQuiz)
	quizzes.PATCH("/:id/unpublish", educatorOnly, h.UnpublishQuiz)
	quizzes.POST("/:id/questions/:questionId/image", educatorOnly, h.UploadQuestionImage)
}

func (h *QuizHandler) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), h.timeout)
}

func (h *QuizHandler) CreateQuiz(c *gin.Context) {
	var input service.QuizInput
	if err := c.ShouldBindJSON(&input); err != nil {
		BadRequestResponse(c, "Invalid request body: "+err.Error())
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	quiz, err := h.quizzes.CreateQuiz(ctx, callerFrom(c), input)
	if err != nil {
		ErrorResponse(c, h.log, err, nil)
		return
	}
	SuccessResponse(c, http.StatusCreated, "Quiz created successfully", quiz)
}

func (h *QuizHandler) UpdateQuiz(c *gin.Context) {
	var input service.QuizInput
	if err := c.ShouldBindJSON(&input); err != nil {
		BadRequestResponse(c, "Invalid request body: "+err.Error())
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	quiz, err := h.quizzes.UpdateQuiz(ctx, callerFrom(c), c.Param("id"), input)
	if err != nil {
		ErrorResponse(c, h.log, err, nil)
		return
	}
	SuccessResponse(c, http.StatusOK, "Quiz updated successfully", quiz)
}

func (h *QuizHandler) DeleteQuiz(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	if err := h.quizzes.DeleteQuiz(ctx, callerFrom(c), c.Param("id")); err != nil {
		ErrorResponse(c, h.log, err, nil)
		return
	}
	SuccessResponse(c, http.StatusOK, "Quiz deleted successfully", nil)
}

func (h *QuizHandler) PublishQuiz(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	quiz, err := h.quizzes.PublishQuiz(ctx, callerFrom(c), c.Param("id"))
	if err != nil {
		ErrorResponse(c, h.log, err, nil)
		return
	}
	SuccessResponse(c, http.StatusOK, "Quiz published successfully", quiz)
}

func (h *QuizHandler) UnpublishQuiz(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	quiz, err := h.quizzes.UnpublishQuiz(ctx, callerFrom(c), c.Param("id"))
	if err != nil {
		ErrorResponse(c, h.log, err, nil)
		return
	}
	SuccessResponse(c, http.StatusOK, "Quiz unpublished successfully", quiz)
}

func (h *QuizHandler) GetQuiz(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	quiz, err := h.quizzes.GetQuiz(ctx, callerFrom(c), c.Param("id"))
	if err != nil {
		ErrorResponse(c, h.log, err, nil)
		return
	}
	SuccessResponse(c, http.StatusOK, "Quiz retrieved successfully", quiz)
}

func (h *QuizHandler) ListByContent(c *gin.Context) {
	ref, err := service.ParseContentRef(c.Param("kind"), c.Param("id"))
	if err != nil {
		ErrorResponse(c, h.log, err, nil)
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	quizzes, err := h.quizzes.ListByContent(ctx, callerFrom(c), ref)
	if err != nil {
		ErrorResponse(c, h.log, err, nil)
		return
	}
	SuccessResponse(c, http.StatusOK, "Quizzes retrieved successfully", quizzes)
}

func (h *QuizHandler) DownloadTemplate(c *gin.Context) {
	buf, err := h.quizzes.Template()
	if err != nil {
		ErrorResponse(c, h.log, err, nil)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="quiz-template.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (h *QuizHandler) ImportQuiz(c *gin.Context) {
	ref, err := contentFromForm(c)
	if err != nil {
		ErrorResponse(c, h.log, err, nil)
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		BadRequestResponse(c, "file is required")
		return
	}
	if file.Size > h.maxUploadSize {
		BadRequestResponse(c, fmt.Sprintf("file exceeds %d bytes", h.maxUploadSize))
		return
	}

	f, err := file.Open()
	if err != nil {
		BadRequestResponse(c, "could not read uploaded file")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.maxUploadSize))
	if err != nil {
		BadRequestResponse(c, "could not read uploaded file")
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	quiz, err := h.quizzes.ImportQuiz(ctx, callerFrom(c), ref, file.Filename, data)
	if err != nil {
		ErrorResponse(c, h.log, err, nil)
		return
	}
	SuccessResponse(c, http.StatusCreated, fmt.Sprintf("Imported %d questions", len(quiz.Questions)), quiz)
}

func contentFromForm(c *gin.Context) (models.ContentRef, error) {
	if id := c.PostForm("courseId"); id != "" {
		return service.ParseContentRef(string(models.ContentKindCourse), id)
	}
	if id := c.PostForm("pathwayId"); id != "" {
		return service.ParseContentRef(string(models.ContentKindPathway), id)
	}
	return models.ContentRef{}, apperr.Validation("courseId or pathwayId is required")
}

func (h *QuizHandler) UploadQuestionImage(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		BadRequestResponse(c, "image is required")
		return
	}
	if file.Size > h.maxUploadSize {
		BadRequestResponse(c, fmt.Sprintf("image exceeds %d bytes", h.maxUploadSize))
		return
	}

	f, err := file.Open()
	if err != nil {
		BadRequestResponse(c, "could not read uploaded image")
		return
	}
	defer f.Close()

	ctx, cancel := h.requestContext(c)
	defer cancel()

	quiz, err := h.quizzes.UploadQuestionImage(ctx, callerFrom(c), c.Param("id"), c.Param("questionId"), f, file.Size, file.Header.Get("Content-Type"))
	if err != nil {
		ErrorResponse(c, h.log, err, nil)
		return
	}
	SuccessResponse(c, http.StatusOK, "Image uploaded successfully", quiz)
}
