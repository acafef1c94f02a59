package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type PurchaseStatus string

const (
	PurchaseStatusPending   PurchaseStatus = "pending"
	PurchaseStatusCompleted PurchaseStatus = "completed"
	PurchaseStatusFailed    PurchaseStatus = "failed"
	PurchaseStatusCancelled PurchaseStatus = "cancelled"
)

type Purchase struct {
	ID          bson.ObjectID  `bson:"_id,omitempty" json:"id"`
	StudentID   string         `bson:"studentId" json:"studentId"`
	CourseID    *bson.ObjectID `bson:"courseId,omitempty" json:"courseId,omitempty"`
	PathwayID   *bson.ObjectID `bson:"pathwayId,omitempty" json:"pathwayId,omitempty"`
	Amount      float64        `bson:"amount" json:"amount"`
	Currency    string         `bson:"currency,omitempty" json:"currency,omitempty"`
	Status      PurchaseStatus `bson:"status" json:"status"`
	CreatedAt   time.Time      `bson:"createdAt" json:"createdAt"`
	CompletedAt *time.Time     `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
}

// PurchaseRecord is a completed course purchase joined with the student and
// course display fields as they were when the record was read.
type PurchaseRecord struct {
	ID        bson.ObjectID `bson:"_id" json:"id"`
	StudentID string        `bson:"studentId" json:"studentId"`
	CourseID  bson.ObjectID `bson:"courseId" json:"courseId"`
	Amount    float64       `bson:"amount" json:"amount"`
	CreatedAt time.Time     `bson:"createdAt" json:"createdAt"`
	Student   UserSummary   `bson:"student" json:"student"`
	Course    CourseSummary `bson:"course" json:"course"`
}
