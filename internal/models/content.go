package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Course is the read model of a course owned by the course catalogue. Only
// the fields used for ownership and dashboard statistics are mapped.
type Course struct {
	ID               bson.ObjectID `bson:"_id,omitempty" json:"id"`
	Title            string        `bson:"title" json:"title"`
	Thumbnail        string        `bson:"thumbnail,omitempty" json:"thumbnail,omitempty"`
	Price            float64       `bson:"price" json:"price"`
	Educator         string        `bson:"educator" json:"educator"`
	EnrolledStudents []string      `bson:"enrolledStudents" json:"enrolledStudents"`
	CreatedAt        time.Time     `bson:"createdAt" json:"createdAt"`
}

type Pathway struct {
	ID               bson.ObjectID `bson:"_id,omitempty" json:"id"`
	Title            string        `bson:"title" json:"title"`
	Thumbnail        string        `bson:"thumbnail,omitempty" json:"thumbnail,omitempty"`
	Price            float64       `bson:"price" json:"price"`
	Educator         string        `bson:"educator" json:"educator"`
	EnrolledStudents []string      `bson:"enrolledStudents" json:"enrolledStudents"`
	CreatedAt        time.Time     `bson:"createdAt" json:"createdAt"`
}

// UserSummary carries the display fields denormalized into dashboards.
type UserSummary struct {
	ID       string `bson:"_id" json:"id"`
	Name     string `bson:"name" json:"name"`
	Email    string `bson:"email" json:"email"`
	ImageURL string `bson:"imageUrl,omitempty" json:"imageUrl,omitempty"`
}

type CourseSummary struct {
	ID        bson.ObjectID `bson:"_id" json:"id"`
	Title     string        `bson:"title" json:"title"`
	Thumbnail string        `bson:"thumbnail,omitempty" json:"thumbnail,omitempty"`
}
