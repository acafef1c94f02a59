package service

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HuynhHoangThai/Oncademy-sub000/internal/apperr"
	"github.com/HuynhHoangThai/Oncademy-sub000/internal/event"
	"github.com/HuynhHoangThai/Oncademy-sub000/internal/grading"
	"github.com/HuynhHoangThai/Oncademy-sub000/internal/models"
)

var attemptNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type attemptFixture struct {
	quizzes   *memoryQuizzes
	attempts  *memoryAttempts
	publisher *recordingPublisher
	service   *AttemptService
}

func newAttemptFixture() *attemptFixture {
	f := &attemptFixture{
		quizzes:   newMemoryQuizzes(),
		attempts:  &memoryAttempts{},
		publisher: &recordingPublisher{},
	}
	f.service = NewAttemptService(f.quizzes, f.attempts, f.publisher, zerolog.Nop())
	f.service.now = func() time.Time { return attemptNow }
	return f
}

// addQuiz stores a published quiz built from sampleQuestions after applying
// mutate.
func (f *attemptFixture) addQuiz(t *testing.T, mutate func(*models.Quiz)) *models.Quiz {
	t.Helper()
	quiz := &models.Quiz{
		Title:        "Arithmetic",
		Type:         "practice",
		PassingScore: 60,
		Questions:    sampleQuestions(),
		IsPublished:  true,
		CreatedBy:    educatorID,
	}
	if mutate != nil {
		mutate(quiz)
	}
	quiz.RecalculateTotalPoints()
	require.NoError(t, f.quizzes.Create(context.Background(), quiz))
	return quiz
}

func withEssay(q *models.Quiz) {
	q.Questions = append(q.Questions, models.Question{
		ID: "q4", Text: "Explain addition.", Points: 3,
		Body: models.Essay{MaxWords: 200, Rubric: "Mentions counting."},
	})
}

func allCorrect() SubmitInput {
	return SubmitInput{Answers: []SubmittedAnswer{
		{QuestionID: "q1", Answer: "b"},
		{QuestionID: "q2", Answer: "t"},
		{QuestionID: "q3", Answer: " paris "},
	}}
}

func TestGetQuizForAttemptSanitizes(t *testing.T) {
	f := newAttemptFixture()
	quiz := f.addQuiz(t, withEssay)

	view, err := f.service.GetQuizForAttempt(context.Background(), student, quiz.ID.Hex())
	require.NoError(t, err)

	assert.Equal(t, 1, view.AttemptNumber)
	assert.Equal(t, 0, view.PriorAttempts)
	assert.False(t, view.IsLate)
	require.Len(t, view.Questions, 4)

	assert.Equal(t, models.QuestionTypeMultipleChoice, view.Questions[0].Type)
	assert.Len(t, view.Questions[0].Options, 3)
	assert.Empty(t, view.Questions[2].Options)
	assert.Equal(t, 200, view.Questions[3].MaxWords)
}

func TestGetQuizForAttemptShuffleIsStablePerAttempt(t *testing.T) {
	f := newAttemptFixture()
	quiz := f.addQuiz(t, func(q *models.Quiz) {
		q.ShuffleQuestions = true
		q.ShuffleOptions = true
	})
	ctx := context.Background()

	first, err := f.service.GetQuizForAttempt(ctx, student, quiz.ID.Hex())
	require.NoError(t, err)
	again, err := f.service.GetQuizForAttempt(ctx, student, quiz.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, first.Questions, again.Questions)

	ids := make([]string, 0, len(first.Questions))
	for _, q := range first.Questions {
		ids = append(ids, q.ID)
	}
	sort.Strings(ids)
	assert.Equal(t, []string{"q1", "q2", "q3"}, ids)
}

func TestAvailability(t *testing.T) {
	past := attemptNow.Add(-time.Hour)
	future := attemptNow.Add(time.Hour)

	testCases := []struct {
		name     string
		mutate   func(*models.Quiz)
		wantKind apperr.Kind
		wantLate bool
	}{
		{"open", nil, "", false},
		{"unpublished", func(q *models.Quiz) { q.IsPublished = false }, apperr.KindUnavailable, false},
		{"not started", func(q *models.Quiz) { q.StartDate = &future }, apperr.KindUnavailable, false},
		{"deadline passed", func(q *models.Quiz) { q.Deadline = &past }, apperr.KindUnavailable, false},
		{"late allowed", func(q *models.Quiz) {
			q.Deadline = &past
			q.AllowLateSubmission = true
		}, "", true},
		{"before deadline", func(q *models.Quiz) { q.Deadline = &future }, "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newAttemptFixture()
			quiz := f.addQuiz(t, tc.mutate)

			view, err := f.service.GetQuizForAttempt(context.Background(), student, quiz.ID.Hex())
			if tc.wantKind != "" {
				require.Error(t, err)
				assert.Equal(t, tc.wantKind, apperr.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantLate, view.IsLate)
		})
	}
}

func TestGetQuizForAttemptLimitStillReturnsMetadata(t *testing.T) {
	f := newAttemptFixture()
	quiz := f.addQuiz(t, func(q *models.Quiz) { q.MaxAttempts = 1 })
	ctx := context.Background()

	_, err := f.service.SubmitAttempt(ctx, student, quiz.ID.Hex(), allCorrect())
	require.NoError(t, err)

	view, err := f.service.GetQuizForAttempt(ctx, student, quiz.ID.Hex())
	assert.True(t, apperr.Is(err, apperr.KindAttemptLimit))
	require.NotNil(t, view)
	assert.Equal(t, 1, view.PriorAttempts)
	assert.Equal(t, "Arithmetic", view.Title)
	assert.Empty(t, view.Questions)

	_, err = f.service.SubmitAttempt(ctx, student, quiz.ID.Hex(), allCorrect())
	assert.True(t, apperr.Is(err, apperr.KindAttemptLimit))
}

func TestAttemptLimitBoundary(t *testing.T) {
	testCases := []struct {
		name        string
		maxAttempts int
		prior       int
		wantLimited bool
	}{
		{"one of two used", 2, 1, false},
		{"two of two used", 2, 2, true},
		{"unlimited after many", 0, 4, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newAttemptFixture()
			quiz := f.addQuiz(t, func(q *models.Quiz) { q.MaxAttempts = tc.maxAttempts })
			ctx := context.Background()

			for i := 0; i < tc.prior; i++ {
				_, err := f.service.SubmitAttempt(ctx, student, quiz.ID.Hex(), allCorrect())
				require.NoError(t, err)
			}

			view, err := f.service.GetQuizForAttempt(ctx, student, quiz.ID.Hex())
			require.NotNil(t, view)
			assert.Equal(t, tc.prior, view.PriorAttempts)

			res, submitErr := f.service.SubmitAttempt(ctx, student, quiz.ID.Hex(), allCorrect())
			if tc.wantLimited {
				assert.True(t, apperr.Is(err, apperr.KindAttemptLimit), "retrieval: got %v", err)
				assert.True(t, apperr.Is(submitErr, apperr.KindAttemptLimit), "submission: got %v", submitErr)
				assert.Len(t, f.attempts.attempts, tc.prior)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.prior+1, view.AttemptNumber)
			require.NoError(t, submitErr)
			assert.Equal(t, tc.prior+1, res.AttemptNumber)
		})
	}
}

func TestSubmitAttemptAutoGraded(t *testing.T) {
	testCases := []struct {
		name        string
		showScore   bool
		showAnswers bool
	}{
		{"hidden score", false, false},
		{"score without answers", true, false},
		{"score with answers", true, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newAttemptFixture()
			quiz := f.addQuiz(t, func(q *models.Quiz) {
				q.ShowScoreImmediately = tc.showScore
				q.ShowCorrectAnswers = tc.showAnswers
			})

			res, err := f.service.SubmitAttempt(context.Background(), student, quiz.ID.Hex(), allCorrect())
			require.NoError(t, err)

			assert.Equal(t, 1, res.AttemptNumber)
			assert.Equal(t, models.AttemptStatusCompleted, res.Status)
			assert.Equal(t, []string{event.EventTypeAttemptSubmitted}, f.publisher.events)

			if !tc.showScore {
				assert.Nil(t, res.Scoring)
				assert.Nil(t, res.Results)
				return
			}
			require.NotNil(t, res.Scoring)
			assert.InDelta(t, 100, *res.Scoring.ScorePercentage, 0.001)
			assert.True(t, *res.Scoring.Passed)
			require.Len(t, res.Results, 3)
			if tc.showAnswers {
				assert.Equal(t, "b", res.Results[0].CorrectAnswer)
				assert.Equal(t, []string{"Paris"}, res.Results[2].CorrectAnswers)
			} else {
				assert.Empty(t, res.Results[0].CorrectAnswer)
				assert.Empty(t, res.Results[2].CorrectAnswers)
			}
		})
	}
}

func TestSubmitAttemptRejectsUnknownQuestion(t *testing.T) {
	f := newAttemptFixture()
	quiz := f.addQuiz(t, nil)

	input := SubmitInput{Answers: []SubmittedAnswer{{QuestionID: "nope", Answer: "a"}}}
	_, err := f.service.SubmitAttempt(context.Background(), student, quiz.ID.Hex(), input)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Empty(t, f.attempts.attempts)
}

func TestSubmitAttemptChecksAvailabilityFirst(t *testing.T) {
	f := newAttemptFixture()
	quiz := f.addQuiz(t, func(q *models.Quiz) { q.IsPublished = false })

	input := SubmitInput{Answers: []SubmittedAnswer{{QuestionID: "nope", Answer: "a"}}}
	_, err := f.service.SubmitAttempt(context.Background(), student, quiz.ID.Hex(), input)
	assert.True(t, apperr.Is(err, apperr.KindUnavailable), "got %v", err)
}

func TestSubmitAttemptRetriesTakenNumber(t *testing.T) {
	f := newAttemptFixture()
	quiz := f.addQuiz(t, nil)
	f.attempts.collide = 1

	res, err := f.service.SubmitAttempt(context.Background(), student, quiz.ID.Hex(), allCorrect())
	require.NoError(t, err)
	assert.Equal(t, 2, res.AttemptNumber)
}

func TestSubmitAttemptGivesUpAfterRetries(t *testing.T) {
	f := newAttemptFixture()
	quiz := f.addQuiz(t, nil)
	f.attempts.collide = maxSubmitRetries

	_, err := f.service.SubmitAttempt(context.Background(), student, quiz.ID.Hex(), allCorrect())
	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
}

func TestEssayAttemptPendingThenGraded(t *testing.T) {
	f := newAttemptFixture()
	quiz := f.addQuiz(t, func(q *models.Quiz) {
		withEssay(q)
		q.ShowScoreImmediately = true
	})
	ctx := context.Background()

	input := allCorrect()
	input.Answers = append(input.Answers, SubmittedAnswer{QuestionID: "q4", Answer: "You count up."})
	res, err := f.service.SubmitAttempt(ctx, student, quiz.ID.Hex(), input)
	require.NoError(t, err)
	assert.Equal(t, models.AttemptStatusPending, res.Status)
	assert.Nil(t, res.Scoring)

	pending, err := f.service.ListQuizAttempts(ctx, educator, quiz.ID.Hex(), models.AttemptStatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	grades := GradeInput{Grades: []grading.ManualGrade{{QuestionID: "q4", PointsEarned: 1.5, Feedback: "Brief."}}}

	_, err = f.service.GradeAttempt(ctx, student, res.AttemptID, grades)
	assert.True(t, apperr.Is(err, apperr.KindAuthorization))

	graded, err := f.service.GradeAttempt(ctx, educator, res.AttemptID, grades)
	require.NoError(t, err)
	assert.Equal(t, models.AttemptStatusGraded, graded.Status)
	require.NotNil(t, graded.Scoring.PointsEarned)
	assert.InDelta(t, 6.5, *graded.Scoring.PointsEarned, 0.001)
	assert.InDelta(t, 81.25, *graded.Scoring.ScorePercentage, 0.001)
	assert.Equal(t, educatorID, graded.GradedBy)
	assert.Contains(t, f.publisher.events, event.EventTypeAttemptGraded)

	stored, err := f.service.GetAttempt(ctx, student, res.AttemptID)
	require.NoError(t, err)
	assert.Equal(t, models.AttemptStatusGraded, stored.Status)
}

func TestGradeAttemptAfterQuizEdit(t *testing.T) {
	testCases := []struct {
		name string
		edit func(*models.Quiz)
	}{
		{"essay worth more", func(q *models.Quiz) { q.Questions[3].Points = 10 }},
		{"essay removed", func(q *models.Quiz) { q.Questions = q.Questions[:3] }},
		{"passing score raised", func(q *models.Quiz) { q.PassingScore = 95 }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newAttemptFixture()
			quiz := f.addQuiz(t, withEssay)
			ctx := context.Background()

			input := allCorrect()
			input.Answers = append(input.Answers, SubmittedAnswer{QuestionID: "q4", Answer: "You count up."})
			res, err := f.service.SubmitAttempt(ctx, student, quiz.ID.Hex(), input)
			require.NoError(t, err)
			require.Equal(t, models.AttemptStatusPending, res.Status)

			edited, err := f.quizzes.FindByID(ctx, quiz.ID)
			require.NoError(t, err)
			tc.edit(edited)
			edited.RecalculateTotalPoints()
			require.NoError(t, f.quizzes.Replace(ctx, edited))

			grades := GradeInput{Grades: []grading.ManualGrade{{QuestionID: "q4", PointsEarned: 1.5}}}
			graded, err := f.service.GradeAttempt(ctx, educator, res.AttemptID, grades)
			require.NoError(t, err)

			assert.Equal(t, models.AttemptStatusGraded, graded.Status)
			assert.Equal(t, 8.0, graded.Scoring.TotalPoints)
			assert.InDelta(t, 6.5, *graded.Scoring.PointsEarned, 0.001)
			assert.InDelta(t, 81.25, *graded.Scoring.ScorePercentage, 0.001)
			assert.True(t, *graded.Scoring.Passed)
		})
	}
}

func TestGradeAttemptRejectsBadInput(t *testing.T) {
	f := newAttemptFixture()
	quiz := f.addQuiz(t, withEssay)
	ctx := context.Background()

	res, err := f.service.SubmitAttempt(ctx, student, quiz.ID.Hex(), allCorrect())
	require.NoError(t, err)

	testCases := []struct {
		name   string
		grades []grading.ManualGrade
	}{
		{"no grades", nil},
		{"missing question id", []grading.ManualGrade{{PointsEarned: 1}}},
		{"negative points", []grading.ManualGrade{{QuestionID: "q4", PointsEarned: -1}}},
		{"more than the question is worth", []grading.ManualGrade{{QuestionID: "q4", PointsEarned: 4}}},
		{"foreign question", []grading.ManualGrade{{QuestionID: "zz", PointsEarned: 1}}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.service.GradeAttempt(ctx, educator, res.AttemptID, GradeInput{Grades: tc.grades})
			require.Error(t, err)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		})
	}
}

func TestGetAttemptVisibility(t *testing.T) {
	f := newAttemptFixture()
	quiz := f.addQuiz(t, nil)
	ctx := context.Background()

	res, err := f.service.SubmitAttempt(ctx, student, quiz.ID.Hex(), allCorrect())
	require.NoError(t, err)

	_, err = f.service.GetAttempt(ctx, student, res.AttemptID)
	assert.NoError(t, err)
	_, err = f.service.GetAttempt(ctx, educator, res.AttemptID)
	assert.NoError(t, err)
	_, err = f.service.GetAttempt(ctx, Caller{UserID: "other_student", Role: RoleStudent}, res.AttemptID)
	assert.True(t, apperr.Is(err, apperr.KindAuthorization))

	mine, err := f.service.ListMyAttempts(ctx, student, quiz.ID.Hex())
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	_, err = f.service.ListQuizAttempts(ctx, educator, quiz.ID.Hex(), "bogus")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}
