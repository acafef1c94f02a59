// Package grading scores quiz submissions. Everything here is pure: callers
// load the quiz and attempt and persist the result.
package grading

import (
	"strings"
	"time"

	"github.com/HuynhHoangThai/Oncademy-sub000/internal/apperr"
	"github.com/HuynhHoangThai/Oncademy-sub000/internal/models"
)

// Result is the outcome of grading a full submission.
type Result struct {
	Answers []models.AnswerRecord
	Scoring models.Scoring
	Status  models.AttemptStatus
}

// ManualGrade is one educator verdict for an essay answer.
type ManualGrade struct {
	QuestionID   string  `json:"questionId" validate:"required"`
	PointsEarned float64 `json:"pointsEarned" validate:"gte=0"`
	Feedback     string  `json:"feedback"`
}

// GradeAnswer grades a single answer. Essay answers come back with nil
// IsCorrect and PointsEarned.
func GradeAnswer(q models.Question, answer string) models.AnswerRecord {
	record := models.AnswerRecord{QuestionID: q.ID, Answer: answer, MaxPoints: q.Points}

	var correct bool
	switch b := q.Body.(type) {
	case models.MultipleChoice:
		correct = matchOption(b.Options, answer)
	case models.TrueFalse:
		correct = matchOption(b.Options, answer)
	case models.FillBlank:
		correct = matchBlank(b, answer)
	case models.Essay:
		return record
	default:
		return record
	}

	record.IsCorrect = models.BoolPtr(correct)
	if correct {
		record.PointsEarned = models.Float64Ptr(q.Points)
	} else {
		record.PointsEarned = models.Float64Ptr(0)
	}
	return record
}

func matchOption(options []models.Option, answer string) bool {
	for _, opt := range options {
		if opt.IsCorrect {
			return opt.ID == answer
		}
	}
	return false
}

func matchBlank(b models.FillBlank, answer string) bool {
	submitted := strings.TrimSpace(answer)
	if submitted == "" {
		return false
	}
	for _, accepted := range b.CorrectAnswers {
		accepted = strings.TrimSpace(accepted)
		if b.CaseSensitive {
			if submitted == accepted {
				return true
			}
		} else if strings.EqualFold(submitted, accepted) {
			return true
		}
	}
	return false
}

// Grade grades every question of quiz against the submitted answers keyed by
// question id. Questions without a submitted answer are graded as blank.
func Grade(quiz *models.Quiz, submitted map[string]string) Result {
	answers := make([]models.AnswerRecord, 0, len(quiz.Questions))
	for _, q := range quiz.Questions {
		answers = append(answers, GradeAnswer(q, submitted[q.ID]))
	}

	scoring, status := Aggregate(answers, quiz.TotalPoints, quiz.PassingScore, quiz.HasEssay())
	return Result{Answers: answers, Scoring: scoring, Status: status}
}

// Aggregate sums the answers into a scoring block. When the quiz holds an
// essay and any answer is still ungraded the whole score stays nil and the
// attempt is pending.
func Aggregate(answers []models.AnswerRecord, totalPoints, passingScore float64, hasEssay bool) (models.Scoring, models.AttemptStatus) {
	scoring := models.Scoring{TotalPoints: totalPoints, PassingScore: passingScore}

	pending := false
	earned := 0.0
	for _, a := range answers {
		if a.Pending() {
			pending = true
			continue
		}
		earned += *a.PointsEarned
	}

	if hasEssay && pending {
		return scoring, models.AttemptStatusPending
	}

	percentage := Percentage(earned, totalPoints)
	scoring.PointsEarned = models.Float64Ptr(earned)
	scoring.ScorePercentage = models.Float64Ptr(percentage)
	scoring.Passed = models.BoolPtr(percentage >= passingScore)

	if hasEssay {
		return scoring, models.AttemptStatusGraded
	}
	return scoring, models.AttemptStatusCompleted
}

func Percentage(earned, total float64) float64 {
	if total == 0 {
		return 0
	}
	return earned / total * 100
}

// ApplyManualGrades merges educator grades into attempt by question id and
// recomputes the score over all answers. Questions, point caps, total and
// passing score come from the attempt itself, so later edits to the quiz do
// not change how it is graded. The attempt becomes graded once no essay
// answer is left without points.
func ApplyManualGrades(attempt *models.QuizAttempt, grades []ManualGrade, gradedBy string, now time.Time) error {
	if len(grades) == 0 {
		return apperr.Validation("at least one grade is required")
	}
	if attempt.Status != models.AttemptStatusPending && attempt.Status != models.AttemptStatusGraded {
		return apperr.Validation("attempt with status %s cannot be graded manually", attempt.Status)
	}

	index := make(map[string]int, len(attempt.Answers))
	for i, a := range attempt.Answers {
		index[a.QuestionID] = i
	}

	for _, g := range grades {
		i, ok := index[g.QuestionID]
		if !ok {
			return apperr.Validation("question %s is not part of this attempt", g.QuestionID)
		}
		if limit := attempt.Answers[i].MaxPoints; g.PointsEarned < 0 || g.PointsEarned > limit {
			return apperr.Validation("points for question %s must be between 0 and %g", g.QuestionID, limit)
		}
	}

	for _, g := range grades {
		i := index[g.QuestionID]
		attempt.Answers[i].PointsEarned = models.Float64Ptr(g.PointsEarned)
		attempt.Answers[i].IsCorrect = models.BoolPtr(g.PointsEarned > 0)
		attempt.Answers[i].Feedback = g.Feedback
	}

	scoring, status := Aggregate(attempt.Answers, attempt.Scoring.TotalPoints, attempt.Scoring.PassingScore, true)
	attempt.Scoring = scoring
	attempt.Status = status
	if status == models.AttemptStatusGraded {
		attempt.GradedAt = &now
		attempt.GradedBy = gradedBy
	}
	return nil
}
