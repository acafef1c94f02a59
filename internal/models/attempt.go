package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type AttemptStatus string

const (
	AttemptStatusInProgress AttemptStatus = "in-progress"
	AttemptStatusCompleted  AttemptStatus = "completed"
	AttemptStatusPending    AttemptStatus = "pending"
	AttemptStatusGraded     AttemptStatus = "graded"
)

// AnswerRecord is one graded (or pending) answer. IsCorrect and PointsEarned
// stay nil for essay answers until an educator grades them. MaxPoints is the
// question's worth when the attempt was submitted.
type AnswerRecord struct {
	QuestionID   string   `bson:"questionId" json:"questionId"`
	Answer       string   `bson:"answer" json:"answer"`
	MaxPoints    float64  `bson:"maxPoints" json:"maxPoints"`
	IsCorrect    *bool    `bson:"isCorrect" json:"isCorrect"`
	PointsEarned *float64 `bson:"pointsEarned" json:"pointsEarned"`
	Feedback     string   `bson:"feedback,omitempty" json:"feedback,omitempty"`
}

func (a AnswerRecord) Pending() bool {
	return a.PointsEarned == nil
}

// Scoring fields other than TotalPoints and PassingScore are nil while any
// essay answer is ungraded. Both are copied from the quiz at submission.
type Scoring struct {
	TotalPoints     float64  `bson:"totalPoints" json:"totalPoints"`
	PassingScore    float64  `bson:"passingScore" json:"passingScore"`
	PointsEarned    *float64 `bson:"pointsEarned" json:"pointsEarned"`
	ScorePercentage *float64 `bson:"scorePercentage" json:"scorePercentage"`
	Passed          *bool    `bson:"passed" json:"passed"`
}

type QuizAttempt struct {
	ID            bson.ObjectID  `bson:"_id,omitempty" json:"id"`
	QuizID        bson.ObjectID  `bson:"quizId" json:"quizId"`
	StudentID     string         `bson:"studentId" json:"studentId"`
	AttemptNumber int            `bson:"attemptNumber" json:"attemptNumber"`
	Answers       []AnswerRecord `bson:"answers" json:"answers"`
	Scoring       Scoring        `bson:"scoring" json:"scoring"`
	Status        AttemptStatus  `bson:"status" json:"status"`
	IsLate        bool           `bson:"isLate" json:"isLate"`
	StartedAt     time.Time      `bson:"startedAt" json:"startedAt"`
	SubmittedAt   time.Time      `bson:"submittedAt" json:"submittedAt"`
	TimeSpent     int            `bson:"timeSpent" json:"timeSpent"`
	GradedAt      *time.Time     `bson:"gradedAt,omitempty" json:"gradedAt,omitempty"`
	GradedBy      string         `bson:"gradedBy,omitempty" json:"gradedBy,omitempty"`
}

func (a *QuizAttempt) HasPendingAnswers() bool {
	for _, answer := range a.Answers {
		if answer.Pending() {
			return true
		}
	}
	return false
}

func BoolPtr(v bool) *bool { return &v }

func Float64Ptr(v float64) *float64 { return &v }
