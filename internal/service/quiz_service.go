package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/HuynhHoangThai/Oncademy-sub000/internal/apperr"
	"github.com/HuynhHoangThai/Oncademy-sub000/internal/event"
	"github.com/HuynhHoangThai/Oncademy-sub000/internal/metrics"
	"github.com/HuynhHoangThai/Oncademy-sub000/internal/models"
	"github.com/HuynhHoangThai/Oncademy-sub000/internal/spreadsheet"
	"github.com/HuynhHoangThai/Oncademy-sub000/internal/storage"
)

type QuizService struct {
	quizzes   QuizStore
	attempts  AttemptStore
	content   ContentOwners
	media     MediaStore
	publisher event.Publisher
	validate  *validator.Validate
	now       func() time.Time
	log       zerolog.Logger
}

// NewQuizService wires the quiz engine. media may be nil, in which case
// image uploads are rejected and imports are not archived.
func NewQuizService(quizzes QuizStore, attempts AttemptStore, content ContentOwners, media MediaStore, publisher event.Publisher, log zerolog.Logger) *QuizService {
	return &QuizService{
		quizzes:   quizzes,
		attempts:  attempts,
		content:   content,
		media:     media,
		publisher: publisher,
		validate:  validator.New(),
		now:       time.Now,
		log:       log.With().Str("component", "quiz_service").Logger(),
	}
}

// QuizInput is the editable part of a quiz. The content reference is only
// read on create.
type QuizInput struct {
	CourseID             string            `json:"courseId"`
	PathwayID            string            `json:"pathwayId"`
	ChapterID            string            `json:"chapterId"`
	LectureID            string            `json:"lectureId"`
	Title                string            `json:"title" validate:"required,max=200"`
	Description          string            `json:"description" validate:"max=5000"`
	Type                 string            `json:"type" validate:"max=50"`
	Duration             int               `json:"duration" validate:"gte=0"`
	StartDate            *time.Time        `json:"startDate"`
	Deadline             *time.Time        `json:"deadline"`
	AllowLateSubmission  bool              `json:"allowLateSubmission"`
	LatePenalty          float64           `json:"latePenalty" validate:"gte=0,lte=100"`
	MaxAttempts          int               `json:"maxAttempts" validate:"gte=0"`
	PassingScore         float64           `json:"passingScore" validate:"gte=0,lte=100"`
	Questions            []models.Question `json:"questions"`
	ShuffleQuestions     bool              `json:"shuffleQuestions"`
	ShuffleOptions       bool              `json:"shuffleOptions"`
	ShowCorrectAnswers   bool              `json:"showCorrectAnswers"`
	ShowScoreImmediately bool              `json:"showScoreImmediately"`
}

// QuizSummary is the list view of a quiz. It never carries questions.
type QuizSummary struct {
	ID            string     `json:"id"`
	ChapterID     string     `json:"chapterId,omitempty"`
	LectureID     string     `json:"lectureId,omitempty"`
	Title         string     `json:"title"`
	Description   string     `json:"description,omitempty"`
	Type          string     `json:"type"`
	Duration      int        `json:"duration"`
	StartDate     *time.Time `json:"startDate,omitempty"`
	Deadline      *time.Time `json:"deadline,omitempty"`
	MaxAttempts   int        `json:"maxAttempts"`
	PassingScore  float64    `json:"passingScore"`
	TotalPoints   float64    `json:"totalPoints"`
	QuestionCount int        `json:"questionCount"`
	IsPublished   bool       `json:"isPublished"`
}

func summarize(q *models.Quiz) QuizSummary {
	return QuizSummary{
		ID:            q.ID.Hex(),
		ChapterID:     q.ChapterID,
		LectureID:     q.LectureID,
		Title:         q.Title,
		Description:   q.Description,
		Type:          q.Type,
		Duration:      q.Duration,
		StartDate:     q.StartDate,
		Deadline:      q.Deadline,
		MaxAttempts:   q.MaxAttempts,
		PassingScore:  q.PassingScore,
		TotalPoints:   q.TotalPoints,
		QuestionCount: len(q.Questions),
		IsPublished:   q.IsPublished,
	}
}

func (s *QuizService) checkInput(input *QuizInput) error {
	if err := s.validate.Struct(input); err != nil {
		return validationError(err)
	}
	if input.StartDate != nil && input.Deadline != nil && input.Deadline.Before(*input.StartDate) {
		return apperr.Validation("deadline must be after start date")
	}
	return prepareQuestions(input.Questions)
}

// prepareQuestions assigns missing ids and validates every question.
func prepareQuestions(questions []models.Question) error {
	seen := make(map[string]struct{}, len(questions))
	for i := range questions {
		q := &questions[i]
		if q.ID == "" {
			q.ID = uuid.NewString()
		}
		if _, dup := seen[q.ID]; dup {
			return apperr.Validation("question %d: duplicate id %s", i+1, q.ID)
		}
		seen[q.ID] = struct{}{}

		switch b := q.Body.(type) {
		case models.MultipleChoice:
			assignOptionIDs(b.Options)
		case models.TrueFalse:
			assignOptionIDs(b.Options)
		}
		if err := q.Validate(); err != nil {
			return apperr.Validation("question %d: %v", i+1, err)
		}
	}
	return nil
}

func assignOptionIDs(options []models.Option) {
	for i := range options {
		if options[i].ID == "" {
			options[i].ID = uuid.NewString()
		}
	}
}

func (s *QuizService) requireContentOwner(ctx context.Context, caller Caller, ref models.ContentRef) error {
	owner, err := s.content.FindOwner(ctx, ref)
	if err != nil {
		return notFound(err, string(ref.Kind))
	}
	if owner != caller.UserID {
		return apperr.Authorization("only the %s educator can manage its quizzes", ref.Kind)
	}
	return nil
}

// loadOwnedQuiz returns the quiz when caller created it.
func (s *QuizService) loadOwnedQuiz(ctx context.Context, caller Caller, id string) (*models.Quiz, error) {
	quiz, err := s.loadQuiz(ctx, id)
	if err != nil {
		return nil, err
	}
	if quiz.CreatedBy != caller.UserID {
		return nil, apperr.Authorization("only the quiz creator can perform this action")
	}
	return quiz, nil
}

func (s *QuizService) loadQuiz(ctx context.Context, id string) (*models.Quiz, error) {
	oid, err := parseObjectID(id, "quiz")
	if err != nil {
		return nil, err
	}
	quiz, err := s.quizzes.FindByID(ctx, oid)
	if err != nil {
		return nil, notFound(err, "quiz")
	}
	return quiz, nil
}

func (s *QuizService) publish(ctx context.Context, eventType string, quiz *models.Quiz) {
	if err := s.publisher.PublishQuizEvent(ctx, event.NewQuizEvent(eventType, quiz, s.now().Unix())); err != nil {
		s.log.Warn().Err(err).Str("quiz_id", quiz.ID.Hex()).Str("event", eventType).Msg("failed to publish quiz event")
	}
}

func (s *QuizService) CreateQuiz(ctx context.Context, caller Caller, input QuizInput) (*models.Quiz, error) {
	ref, err := contentFromInput(input)
	if err != nil {
		return nil, err
	}
	if err := s.checkInput(&input); err != nil {
		return nil, err
	}
	if err := s.requireContentOwner(ctx, caller, ref); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	quiz := &models.Quiz{CreatedBy: caller.UserID, CreatedAt: now}
	quiz.SetContent(ref)
	applyInput(quiz, input, now)

	if err := s.quizzes.Create(ctx, quiz); err != nil {
		return nil, fmt.Errorf("failed to create quiz: %w", err)
	}

	s.log.Info().Str("quiz_id", quiz.ID.Hex()).Str("educator_id", caller.UserID).Int("questions", len(quiz.Questions)).Msg("quiz created")
	s.publish(ctx, event.EventTypeQuizCreated, quiz)
	return quiz, nil
}

func contentFromInput(input QuizInput) (models.ContentRef, error) {
	switch {
	case input.CourseID != "" && input.PathwayID != "":
		return models.ContentRef{}, apperr.Validation("a quiz belongs to either a course or a pathway, not both")
	case input.CourseID != "":
		return ParseContentRef(string(models.ContentKindCourse), input.CourseID)
	case input.PathwayID != "":
		return ParseContentRef(string(models.ContentKindPathway), input.PathwayID)
	}
	return models.ContentRef{}, apperr.Validation("courseId or pathwayId is required")
}

func applyInput(quiz *models.Quiz, input QuizInput, now time.Time) {
	quiz.ChapterID = input.ChapterID
	quiz.LectureID = input.LectureID
	quiz.Title = input.Title
	quiz.Description = input.Description
	quiz.Type = input.Type
	if quiz.Type == "" {
		quiz.Type = spreadsheet.DefaultQuizType
	}
	quiz.Duration = input.Duration
	quiz.StartDate = input.StartDate
	quiz.Deadline = input.Deadline
	quiz.AllowLateSubmission = input.AllowLateSubmission
	quiz.LatePenalty = input.LatePenalty
	quiz.MaxAttempts = input.MaxAttempts
	quiz.PassingScore = input.PassingScore
	quiz.Questions = input.Questions
	if quiz.Questions == nil {
		quiz.Questions = []models.Question{}
	}
	quiz.ShuffleQuestions = input.ShuffleQuestions
	quiz.ShuffleOptions = input.ShuffleOptions
	quiz.ShowCorrectAnswers = input.ShowCorrectAnswers
	quiz.ShowScoreImmediately = input.ShowScoreImmediately
	quiz.UpdatedAt = now
	quiz.RecalculateTotalPoints()
}

func (s *QuizService) UpdateQuiz(ctx context.Context, caller Caller, id string, input QuizInput) (*models.Quiz, error) {
	quiz, err := s.loadOwnedQuiz(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkInput(&input); err != nil {
		return nil, err
	}
	if quiz.IsPublished && len(input.Questions) == 0 {
		return nil, apperr.Validation("a published quiz must keep at least one question")
	}

	applyInput(quiz, input, s.now().UTC())
	if err := s.quizzes.Replace(ctx, quiz); err != nil {
		return nil, fmt.Errorf("failed to update quiz: %w", err)
	}

	s.log.Info().Str("quiz_id", quiz.ID.Hex()).Msg("quiz updated")
	s.publish(ctx, event.EventTypeQuizUpdated, quiz)
	return quiz, nil
}

// DeleteQuiz removes the quiz and every attempt made on it.
func (s *QuizService) DeleteQuiz(ctx context.Context, caller Caller, id string) error {
	quiz, err := s.loadOwnedQuiz(ctx, caller, id)
	if err != nil {
		return err
	}

	if err := s.quizzes.Delete(ctx, quiz.ID); err != nil {
		return notFound(err, "quiz")
	}
	removed, err := s.attempts.DeleteByQuiz(ctx, quiz.ID)
	if err != nil {
		return fmt.Errorf("quiz deleted but its attempts were not: %w", err)
	}

	s.log.Info().Str("quiz_id", quiz.ID.Hex()).Int64("attempts_removed", removed).Msg("quiz deleted")
	s.publish(ctx, event.EventTypeQuizDeleted, quiz)
	return nil
}

func (s *QuizService) PublishQuiz(ctx context.Context, caller Caller, id string) (*models.Quiz, error) {
	quiz, err := s.loadOwnedQuiz(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if len(quiz.Questions) == 0 {
		return nil, apperr.Validation("cannot publish a quiz without questions")
	}
	return s.setPublished(ctx, quiz, true)
}

func (s *QuizService) UnpublishQuiz(ctx context.Context, caller Caller, id string) (*models.Quiz, error) {
	quiz, err := s.loadOwnedQuiz(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	return s.setPublished(ctx, quiz, false)
}

func (s *QuizService) setPublished(ctx context.Context, quiz *models.Quiz, published bool) (*models.Quiz, error) {
	now := s.now().UTC()
	if err := s.quizzes.SetPublished(ctx, quiz.ID, published, now); err != nil {
		return nil, notFound(err, "quiz")
	}
	quiz.IsPublished = published
	quiz.UpdatedAt = now

	eventType := event.EventTypeQuizUnpublished
	if published {
		eventType = event.EventTypeQuizPublished
	}
	s.publish(ctx, eventType, quiz)
	return quiz, nil
}

// GetQuiz returns the full quiz, answers included, to its creator.
func (s *QuizService) GetQuiz(ctx context.Context, caller Caller, id string) (*models.Quiz, error) {
	return s.loadOwnedQuiz(ctx, caller, id)
}

// ListByContent lists the quizzes of a course or pathway. The content owner
// sees drafts too.
func (s *QuizService) ListByContent(ctx context.Context, caller Caller, ref models.ContentRef) ([]QuizSummary, error) {
	owner, err := s.content.FindOwner(ctx, ref)
	if err != nil {
		return nil, notFound(err, string(ref.Kind))
	}

	quizzes, err := s.quizzes.FindByContent(ctx, ref, owner != caller.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list quizzes: %w", err)
	}

	summaries := make([]QuizSummary, 0, len(quizzes))
	for i := range quizzes {
		summaries = append(summaries, summarize(&quizzes[i]))
	}
	return summaries, nil
}

// ImportQuiz creates an unpublished quiz from an xlsx workbook.
func (s *QuizService) ImportQuiz(ctx context.Context, caller Caller, ref models.ContentRef, filename string, data []byte) (*models.Quiz, error) {
	if err := s.requireContentOwner(ctx, caller, ref); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		metrics.QuizImports.WithLabelValues("failure").Inc()
		return nil, apperr.Import("file is empty")
	}

	quiz, err := spreadsheet.Parse(bytes.NewReader(data))
	if err != nil {
		metrics.QuizImports.WithLabelValues("failure").Inc()
		return nil, err
	}

	now := s.now().UTC()
	quiz.SetContent(ref)
	quiz.CreatedBy = caller.UserID
	quiz.CreatedAt = now
	quiz.UpdatedAt = now
	quiz.IsPublished = false

	if err := s.quizzes.Create(ctx, quiz); err != nil {
		metrics.QuizImports.WithLabelValues("failure").Inc()
		return nil, fmt.Errorf("failed to create imported quiz: %w", err)
	}
	metrics.QuizImports.WithLabelValues("success").Inc()

	if s.media != nil {
		if key, err := s.media.ArchiveImport(ctx, caller.UserID, filename, data); err != nil {
			s.log.Warn().Err(err).Str("quiz_id", quiz.ID.Hex()).Msg("failed to archive import file")
		} else {
			s.log.Debug().Str("key", key).Msg("archived import file")
		}
	}

	s.log.Info().Str("quiz_id", quiz.ID.Hex()).Int("questions", len(quiz.Questions)).Msg("quiz imported")
	s.publish(ctx, event.EventTypeQuizImported, quiz)
	return quiz, nil
}

func (s *QuizService) Template() (*bytes.Buffer, error) {
	return spreadsheet.Template()
}

// UploadQuestionImage stores an image for one question and points the
// question at it.
func (s *QuizService) UploadQuestionImage(ctx context.Context, caller Caller, quizID, questionID string, r io.Reader, size int64, contentType string) (*models.Quiz, error) {
	if s.media == nil {
		return nil, apperr.Unavailable("media storage is not configured")
	}
	if !storage.IsSupportedImage(contentType) {
		return nil, apperr.Validation("unsupported image type %q", contentType)
	}

	quiz, err := s.loadOwnedQuiz(ctx, caller, quizID)
	if err != nil {
		return nil, err
	}
	index := -1
	for i := range quiz.Questions {
		if quiz.Questions[i].ID == questionID {
			index = i
			break
		}
	}
	if index < 0 {
		return nil, apperr.NotFound("question not found")
	}

	url, err := s.media.UploadQuestionImage(ctx, quiz.ID.Hex(), questionID, r, size, contentType)
	if err != nil {
		return nil, err
	}

	quiz.Questions[index].Image = url
	quiz.UpdatedAt = s.now().UTC()
	if err := s.quizzes.Replace(ctx, quiz); err != nil {
		return nil, fmt.Errorf("failed to save question image: %w", err)
	}
	s.publish(ctx, event.EventTypeQuizUpdated, quiz)
	return quiz, nil
}
