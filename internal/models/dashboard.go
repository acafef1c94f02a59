package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Dashboard is a per-educator cache derived from courses, purchases and
// users. It is only ever written by a full recompute.
type Dashboard struct {
	EducatorID        string             `bson:"educatorId" json:"educatorId"`
	TotalCourses      int                `bson:"totalCourses" json:"totalCourses"`
	TotalEarnings     float64            `bson:"totalEarnings" json:"totalEarnings"`
	TotalPurchases    int                `bson:"totalPurchases" json:"totalPurchases"`
	TotalEnrollments  int                `bson:"totalEnrollments" json:"totalEnrollments"`
	CourseStats       []CourseStat       `bson:"courseStats" json:"courseStats"`
	TopCourses        []TopCourse        `bson:"topCourses" json:"topCourses"`
	MonthlyEarnings   []MonthlyEarning   `bson:"monthlyEarnings" json:"monthlyEarnings"`
	RecentEnrollments []RecentEnrollment `bson:"recentEnrollments" json:"recentEnrollments"`
	EnrolledStudents  []EnrolledStudent  `bson:"enrolledStudents" json:"enrolledStudents"`
	LastUpdated       time.Time          `bson:"lastUpdated" json:"lastUpdated"`
}

type CourseStat struct {
	CourseID      bson.ObjectID `bson:"courseId" json:"courseId"`
	Title         string        `bson:"title" json:"title"`
	Thumbnail     string        `bson:"thumbnail,omitempty" json:"thumbnail,omitempty"`
	Price         float64       `bson:"price" json:"price"`
	EnrolledCount int           `bson:"enrolledCount" json:"enrolledCount"`
	CreatedAt     time.Time     `bson:"createdAt" json:"createdAt"`
}

type TopCourse struct {
	CourseID  bson.ObjectID `bson:"courseId" json:"courseId"`
	Title     string        `bson:"title" json:"title"`
	Thumbnail string        `bson:"thumbnail,omitempty" json:"thumbnail,omitempty"`
	Revenue   float64       `bson:"revenue" json:"revenue"`
	Purchases int           `bson:"purchases" json:"purchases"`
}

type MonthlyEarning struct {
	Month     string  `bson:"month" json:"month"`
	Label     string  `bson:"label" json:"label"`
	Earnings  float64 `bson:"earnings" json:"earnings"`
	Purchases int     `bson:"purchases" json:"purchases"`
}

type RecentEnrollment struct {
	PurchaseID      bson.ObjectID `bson:"purchaseId" json:"purchaseId"`
	StudentID       string        `bson:"studentId" json:"studentId"`
	StudentName     string        `bson:"studentName" json:"studentName"`
	StudentEmail    string        `bson:"studentEmail" json:"studentEmail"`
	StudentImageURL string        `bson:"studentImageUrl,omitempty" json:"studentImageUrl,omitempty"`
	CourseID        bson.ObjectID `bson:"courseId" json:"courseId"`
	CourseTitle     string        `bson:"courseTitle" json:"courseTitle"`
	CourseThumbnail string        `bson:"courseThumbnail,omitempty" json:"courseThumbnail,omitempty"`
	Amount          float64       `bson:"amount" json:"amount"`
	PurchasedAt     time.Time     `bson:"purchasedAt" json:"purchasedAt"`
}

type EnrolledStudent struct {
	StudentID string `bson:"studentId" json:"studentId"`
	Name      string `bson:"name" json:"name"`
	Email     string `bson:"email" json:"email"`
	ImageURL  string `bson:"imageUrl,omitempty" json:"imageUrl,omitempty"`
}
