package service

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/HuynhHoangThai/Oncademy-sub000/internal/apperr"
	"github.com/HuynhHoangThai/Oncademy-sub000/internal/event"
	"github.com/HuynhHoangThai/Oncademy-sub000/internal/grading"
	"github.com/HuynhHoangThai/Oncademy-sub000/internal/metrics"
	"github.com/HuynhHoangThai/Oncademy-sub000/internal/models"
	"github.com/HuynhHoangThai/Oncademy-sub000/internal/repository"
)

// maxSubmitRetries bounds how often a submission re-counts prior attempts
// after losing an attemptNumber race.
const maxSubmitRetries = 3

type AttemptService struct {
	quizzes   QuizStore
	attempts  AttemptStore
	publisher event.Publisher
	validate  *validator.Validate
	now       func() time.Time
	log       zerolog.Logger
}

func NewAttemptService(quizzes QuizStore, attempts AttemptStore, publisher event.Publisher, log zerolog.Logger) *AttemptService {
	return &AttemptService{
		quizzes:   quizzes,
		attempts:  attempts,
		publisher: publisher,
		validate:  validator.New(),
		now:       time.Now,
		log:       log.With().Str("component", "attempt_service").Logger(),
	}
}

type PublicOption struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// PublicQuestion is a question as a student sees it while taking a quiz.
type PublicQuestion struct {
	ID       string              `json:"id"`
	Type     models.QuestionType `json:"type"`
	Text     string              `json:"text"`
	Image    string              `json:"image,omitempty"`
	Points   float64             `json:"points"`
	Options  []PublicOption      `json:"options,omitempty"`
	MaxWords int                 `json:"maxWords,omitempty"`
}

type QuizForAttempt struct {
	ID                  string           `json:"id"`
	Title               string           `json:"title"`
	Description         string           `json:"description,omitempty"`
	Type                string           `json:"type"`
	Duration            int              `json:"duration"`
	StartDate           *time.Time       `json:"startDate,omitempty"`
	Deadline            *time.Time       `json:"deadline,omitempty"`
	AllowLateSubmission bool             `json:"allowLateSubmission"`
	MaxAttempts         int              `json:"maxAttempts"`
	PassingScore        float64          `json:"passingScore"`
	TotalPoints         float64          `json:"totalPoints"`
	Questions           []PublicQuestion `json:"questions,omitempty"`
	AttemptNumber       int              `json:"attemptNumber"`
	PriorAttempts       int              `json:"priorAttempts"`
	IsLate              bool             `json:"isLate"`
}

type SubmittedAnswer struct {
	QuestionID string `json:"questionId" validate:"required"`
	Answer     string `json:"answer"`
}

type SubmitInput struct {
	Answers   []SubmittedAnswer `json:"answers" validate:"dive"`
	StartedAt *time.Time        `json:"startedAt"`
}

// QuestionResult is the per-question feedback returned right after a
// submission when the quiz allows it.
type QuestionResult struct {
	QuestionID     string   `json:"questionId"`
	Answer         string   `json:"answer"`
	IsCorrect      *bool    `json:"isCorrect"`
	PointsEarned   *float64 `json:"pointsEarned"`
	Points         float64  `json:"points"`
	CorrectAnswer  string   `json:"correctAnswer,omitempty"`
	CorrectAnswers []string `json:"correctAnswers,omitempty"`
	Explanation    string   `json:"explanation,omitempty"`
}

type SubmitResult struct {
	AttemptID     string               `json:"attemptId"`
	AttemptNumber int                  `json:"attemptNumber"`
	Status        models.AttemptStatus `json:"status"`
	IsLate        bool                 `json:"isLate"`
	SubmittedAt   time.Time            `json:"submittedAt"`
	TimeSpent     int                  `json:"timeSpent"`
	Scoring       *models.Scoring      `json:"scoring,omitempty"`
	Results       []QuestionResult     `json:"results,omitempty"`
}

type GradeInput struct {
	Grades []grading.ManualGrade `json:"grades" validate:"required,min=1,dive"`
}

func (s *AttemptService) loadQuiz(ctx context.Context, id string) (*models.Quiz, error) {
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

// availability reports whether the quiz can be taken at now and whether a
// submission at now counts as late.
func availability(quiz *models.Quiz, now time.Time) (late bool, err error) {
	if !quiz.IsPublished {
		return false, apperr.Unavailable("quiz is not published")
	}
	if quiz.StartDate != nil && now.Before(*quiz.StartDate) {
		return false, apperr.Unavailable("quiz has not started yet")
	}
	if quiz.Deadline != nil && now.After(*quiz.Deadline) {
		if !quiz.AllowLateSubmission {
			return false, apperr.Unavailable("quiz deadline has passed")
		}
		return true, nil
	}
	return false, nil
}

func limitReached(quiz *models.Quiz, prior int) bool {
	return quiz.MaxAttempts > 0 && prior >= quiz.MaxAttempts
}

// GetQuizForAttempt returns the sanitized quiz for the caller's next attempt.
// When the attempt limit is reached the view is still returned, without
// questions, together with an AttemptLimit error.
func (s *AttemptService) GetQuizForAttempt(ctx context.Context, caller Caller, quizID string) (*QuizForAttempt, error) {
	quiz, err := s.loadQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	late, err := availability(quiz, s.now())
	if err != nil {
		return nil, err
	}

	prior, err := s.attempts.CountByStudent(ctx, quiz.ID, caller.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to count attempts: %w", err)
	}

	view := &QuizForAttempt{
		ID:                  quiz.ID.Hex(),
		Title:               quiz.Title,
		Description:         quiz.Description,
		Type:                quiz.Type,
		Duration:            quiz.Duration,
		StartDate:           quiz.StartDate,
		Deadline:            quiz.Deadline,
		AllowLateSubmission: quiz.AllowLateSubmission,
		MaxAttempts:         quiz.MaxAttempts,
		PassingScore:        quiz.PassingScore,
		TotalPoints:         quiz.TotalPoints,
		AttemptNumber:       prior + 1,
		PriorAttempts:       prior,
		IsLate:              late,
	}
	if limitReached(quiz, prior) {
		return view, apperr.AttemptLimit("maximum attempts (%d) reached", quiz.MaxAttempts)
	}

	view.Questions = deliver(quiz, caller.UserID, prior+1)
	return view, nil
}

// deliver sanitizes the questions and applies the quiz's shuffle flags. The
// order is a pure function of quiz, student and attempt number.
func deliver(quiz *models.Quiz, studentID string, attemptNumber int) []PublicQuestion {
	rng := attemptRand(quiz.ID.Hex(), studentID, attemptNumber)

	questions := make([]PublicQuestion, 0, len(quiz.Questions))
	for _, q := range quiz.Questions {
		pq := sanitize(q)
		if quiz.ShuffleOptions && len(pq.Options) > 1 {
			rng.Shuffle(len(pq.Options), func(i, j int) {
				pq.Options[i], pq.Options[j] = pq.Options[j], pq.Options[i]
			})
		}
		questions = append(questions, pq)
	}
	if quiz.ShuffleQuestions {
		rng.Shuffle(len(questions), func(i, j int) {
			questions[i], questions[j] = questions[j], questions[i]
		})
	}
	return questions
}

func attemptRand(quizID, studentID string, attemptNumber int) *rand.Rand {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s:%s:%d", quizID, studentID, attemptNumber)
	seed := h.Sum64()
	return rand.New(rand.NewPCG(seed, seed>>1|1))
}

func sanitize(q models.Question) PublicQuestion {
	pq := PublicQuestion{
		ID:     q.ID,
		Type:   q.Type(),
		Text:   q.Text,
		Image:  q.Image,
		Points: q.Points,
	}
	for _, o := range q.Options() {
		pq.Options = append(pq.Options, PublicOption{ID: o.ID, Text: o.Text})
	}
	if essay, ok := q.Body.(models.Essay); ok {
		pq.MaxWords = essay.MaxWords
	}
	return pq
}

// SubmitAttempt grades and stores one attempt. Eligibility is checked again
// because the quiz may have changed since it was delivered.
func (s *AttemptService) SubmitAttempt(ctx context.Context, caller Caller, quizID string, input SubmitInput) (*SubmitResult, error) {
	start := time.Now()
	defer func() {
		metrics.SubmitDuration.Observe(time.Since(start).Seconds())
	}()

	if err := s.validate.Struct(input); err != nil {
		return nil, validationError(err)
	}
	quiz, err := s.loadQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	late, err := availability(quiz, now)
	if err != nil {
		return nil, err
	}

	submitted := make(map[string]string, len(input.Answers))
	for _, a := range input.Answers {
		if _, ok := quiz.Question(a.QuestionID); !ok {
			return nil, apperr.Validation("unknown question %s", a.QuestionID)
		}
		submitted[a.QuestionID] = a.Answer
	}
	result := grading.Grade(quiz, submitted)

	startedAt := now
	if input.StartedAt != nil && !input.StartedAt.After(now) {
		startedAt = input.StartedAt.UTC()
	}
	attempt := &models.QuizAttempt{
		QuizID:      quiz.ID,
		StudentID:   caller.UserID,
		Answers:     result.Answers,
		Scoring:     result.Scoring,
		Status:      result.Status,
		IsLate:      late,
		StartedAt:   startedAt,
		SubmittedAt: now,
		TimeSpent:   int(now.Sub(startedAt).Seconds()),
	}

	if err := s.insertNumbered(ctx, quiz, attempt); err != nil {
		return nil, err
	}

	metrics.AttemptsSubmitted.WithLabelValues(string(attempt.Status)).Inc()
	s.log.Info().
		Str("quiz_id", quiz.ID.Hex()).
		Str("student_id", caller.UserID).
		Int("attempt", attempt.AttemptNumber).
		Str("status", string(attempt.Status)).
		Msg("attempt submitted")
	s.publish(ctx, event.EventTypeAttemptSubmitted, attempt)

	return buildSubmitResult(quiz, attempt), nil
}

// insertNumbered assigns attemptNumber = prior + 1 and inserts. A unique
// index turns a concurrent submission into a duplicate key, which re-counts.
func (s *AttemptService) insertNumbered(ctx context.Context, quiz *models.Quiz, attempt *models.QuizAttempt) error {
	for try := 0; try < maxSubmitRetries; try++ {
		prior, err := s.attempts.CountByStudent(ctx, quiz.ID, attempt.StudentID)
		if err != nil {
			return fmt.Errorf("failed to count attempts: %w", err)
		}
		if limitReached(quiz, prior) {
			return apperr.AttemptLimit("maximum attempts (%d) reached", quiz.MaxAttempts)
		}

		attempt.AttemptNumber = prior + 1
		err = s.attempts.Create(ctx, attempt)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrDuplicateAttempt) {
			return fmt.Errorf("failed to save attempt: %w", err)
		}
		s.log.Debug().Str("quiz_id", quiz.ID.Hex()).Int("attempt", attempt.AttemptNumber).Msg("attempt number taken, retrying")
	}
	return fmt.Errorf("failed to save attempt after %d tries: %w", maxSubmitRetries, repository.ErrDuplicateAttempt)
}

func buildSubmitResult(quiz *models.Quiz, attempt *models.QuizAttempt) *SubmitResult {
	res := &SubmitResult{
		AttemptID:     attempt.ID.Hex(),
		AttemptNumber: attempt.AttemptNumber,
		Status:        attempt.Status,
		IsLate:        attempt.IsLate,
		SubmittedAt:   attempt.SubmittedAt,
		TimeSpent:     attempt.TimeSpent,
	}
	if !quiz.ShowScoreImmediately || attempt.HasPendingAnswers() {
		return res
	}

	scoring := attempt.Scoring
	res.Scoring = &scoring
	res.Results = make([]QuestionResult, 0, len(attempt.Answers))
	for _, a := range attempt.Answers {
		q, _ := quiz.Question(a.QuestionID)
		qr := QuestionResult{
			QuestionID:   a.QuestionID,
			Answer:       a.Answer,
			IsCorrect:    a.IsCorrect,
			PointsEarned: a.PointsEarned,
			Points:       q.Points,
		}
		if quiz.ShowCorrectAnswers {
			qr.Explanation = q.Explanation
			disclose(&qr, q)
		}
		res.Results = append(res.Results, qr)
	}
	return res
}

func disclose(qr *QuestionResult, q models.Question) {
	switch b := q.Body.(type) {
	case models.FillBlank:
		qr.CorrectAnswers = b.CorrectAnswers
	default:
		for _, o := range q.Options() {
			if o.IsCorrect {
				qr.CorrectAnswer = o.ID
				return
			}
		}
	}
}

// GradeAttempt applies an educator's manual grades. It is the only way a
// submitted attempt changes.
func (s *AttemptService) GradeAttempt(ctx context.Context, caller Caller, attemptID string, input GradeInput) (*models.QuizAttempt, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, validationError(err)
	}
	attempt, quiz, err := s.loadAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if quiz.CreatedBy != caller.UserID {
		return nil, apperr.Authorization("only the quiz creator can grade attempts")
	}

	if err := grading.ApplyManualGrades(attempt, input.Grades, caller.UserID, s.now().UTC()); err != nil {
		return nil, err
	}
	if err := s.attempts.SaveGrading(ctx, attempt); err != nil {
		return nil, notFound(err, "attempt")
	}

	metrics.AttemptsGraded.Inc()
	s.log.Info().
		Str("attempt_id", attempt.ID.Hex()).
		Str("status", string(attempt.Status)).
		Str("graded_by", caller.UserID).
		Msg("attempt graded")
	if attempt.Status == models.AttemptStatusGraded {
		s.publish(ctx, event.EventTypeAttemptGraded, attempt)
	}
	return attempt, nil
}

func (s *AttemptService) loadAttempt(ctx context.Context, attemptID string) (*models.QuizAttempt, *models.Quiz, error) {
	oid, err := parseObjectID(attemptID, "attempt")
	if err != nil {
		return nil, nil, err
	}
	attempt, err := s.attempts.FindByID(ctx, oid)
	if err != nil {
		return nil, nil, notFound(err, "attempt")
	}
	quiz, err := s.quizzes.FindByID(ctx, attempt.QuizID)
	if err != nil {
		return nil, nil, notFound(err, "quiz")
	}
	return attempt, quiz, nil
}

// ListQuizAttempts is the creator's view of a quiz's attempts. status may be
// empty to list all of them.
func (s *AttemptService) ListQuizAttempts(ctx context.Context, caller Caller, quizID string, status models.AttemptStatus) ([]models.QuizAttempt, error) {
	quiz, err := s.loadQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if quiz.CreatedBy != caller.UserID {
		return nil, apperr.Authorization("only the quiz creator can list attempts")
	}
	switch status {
	case "", models.AttemptStatusCompleted, models.AttemptStatusPending, models.AttemptStatusGraded:
	default:
		return nil, apperr.Validation("unknown attempt status %q", status)
	}

	attempts, err := s.attempts.FindByQuiz(ctx, quiz.ID, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	return attempts, nil
}

func (s *AttemptService) ListMyAttempts(ctx context.Context, caller Caller, quizID string) ([]models.QuizAttempt, error) {
	oid, err := parseObjectID(quizID, "quiz")
	if err != nil {
		return nil, err
	}
	attempts, err := s.attempts.FindByStudent(ctx, oid, caller.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	return attempts, nil
}

func (s *AttemptService) GetAttempt(ctx context.Context, caller Caller, attemptID string) (*models.QuizAttempt, error) {
	attempt, quiz, err := s.loadAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.StudentID != caller.UserID && quiz.CreatedBy != caller.UserID {
		return nil, apperr.Authorization("not allowed to view this attempt")
	}
	return attempt, nil
}

func (s *AttemptService) publish(ctx context.Context, eventType string, attempt *models.QuizAttempt) {
	if err := s.publisher.PublishAttemptEvent(ctx, event.NewAttemptEvent(eventType, attempt, s.now().Unix())); err != nil {
		s.log.Warn().Err(err).Str("attempt_id", attempt.ID.Hex()).Str("event", eventType).Msg("failed to publish attempt event")
	}
}
