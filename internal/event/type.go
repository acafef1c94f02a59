package event

import "github.com/HuynhHoangThai/Oncademy-sub000/internal/models"

const ExchangeName = "marketplace.events"

const (
	EventTypeQuizCreated     = "quiz.created"
	EventTypeQuizUpdated     = "quiz.updated"
	EventTypeQuizPublished   = "quiz.published"
	EventTypeQuizUnpublished = "quiz.unpublished"
	EventTypeQuizDeleted     = "quiz.deleted"
	EventTypeQuizImported    = "quiz.imported"

	EventTypeAttemptSubmitted = "quiz.attempt.submitted"
	EventTypeAttemptGraded    = "quiz.attempt.graded"

	EventTypeDashboardSynced = "dashboard.synced"
)

// Routing keys consumed from other services.
const (
	RoutingKeyPaymentCompleted = "payment.completed"
	RoutingKeyCourseCreated    = "course.created"
	RoutingKeyCourseUpdated    = "course.updated"
	RoutingKeyCourseDeleted    = "course.deleted"
	RoutingKeyPathwayCreated   = "pathway.created"
	RoutingKeyPathwayUpdated   = "pathway.updated"
	RoutingKeyPathwayDeleted   = "pathway.deleted"
)

type QuizEvent struct {
	EventType     string `json:"eventType"`
	QuizID        string `json:"quizId"`
	CourseID      string `json:"courseId,omitempty"`
	PathwayID     string `json:"pathwayId,omitempty"`
	EducatorID    string `json:"educatorId"`
	Title         string `json:"title,omitempty"`
	QuestionCount int    `json:"questionCount"`
	Timestamp     int64  `json:"timestamp"`
}

type AttemptEvent struct {
	EventType       string               `json:"eventType"`
	AttemptID       string               `json:"attemptId"`
	QuizID          string               `json:"quizId"`
	StudentID       string               `json:"studentId"`
	AttemptNumber   int                  `json:"attemptNumber"`
	Status          models.AttemptStatus `json:"status"`
	ScorePercentage *float64             `json:"scorePercentage"`
	Passed          *bool                `json:"passed"`
	Timestamp       int64                `json:"timestamp"`
}

type DashboardEvent struct {
	EventType        string  `json:"eventType"`
	EducatorID       string  `json:"educatorId"`
	TotalCourses     int     `json:"totalCourses"`
	TotalEarnings    float64 `json:"totalEarnings"`
	TotalEnrollments int     `json:"totalEnrollments"`
	Timestamp        int64   `json:"timestamp"`
}

// PaymentEventData is published by the payment service once a checkout
// session settles.
type PaymentEventData struct {
	PurchaseID string `json:"purchaseId"`
	Status     string `json:"status"`
	Timestamp  string `json:"timestamp,omitempty"`
}

// ContentEventData is published by the catalogue service for course and
// pathway changes.
type ContentEventData struct {
	CourseID   string `json:"courseId,omitempty"`
	PathwayID  string `json:"pathwayId,omitempty"`
	EducatorID string `json:"educatorId"`
}

func NewQuizEvent(eventType string, quiz *models.Quiz, timestamp int64) *QuizEvent {
	e := &QuizEvent{
		EventType:     eventType,
		QuizID:        quiz.ID.Hex(),
		EducatorID:    quiz.CreatedBy,
		Title:         quiz.Title,
		QuestionCount: len(quiz.Questions),
		Timestamp:     timestamp,
	}
	if quiz.CourseID != nil {
		e.CourseID = quiz.CourseID.Hex()
	}
	if quiz.PathwayID != nil {
		e.PathwayID = quiz.PathwayID.Hex()
	}
	return e
}

func NewAttemptEvent(eventType string, attempt *models.QuizAttempt, timestamp int64) *AttemptEvent {
	return &AttemptEvent{
		EventType:       eventType,
		AttemptID:       attempt.ID.Hex(),
		QuizID:          attempt.QuizID.Hex(),
		StudentID:       attempt.StudentID,
		AttemptNumber:   attempt.AttemptNumber,
		Status:          attempt.Status,
		ScorePercentage: attempt.Scoring.ScorePercentage,
		Passed:          attempt.Scoring.Passed,
		Timestamp:       timestamp,
	}
}
