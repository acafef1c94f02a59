package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/HuynhHoangThai/Oncademy-sub000/internal/models"
)

// ContentRepository reads the course and pathway collections owned by the
// catalogue. Writes are limited to enrolment on purchase completion.
type ContentRepository struct {
	courses  *mongo.Collection
	pathways *mongo.Collection
}

func NewContentRepository(db *mongo.Database) *ContentRepository {
	return &ContentRepository{
		courses:  db.Collection("courses"),
		pathways: db.Collection("pathways"),
	}
}

func (r *ContentRepository) collectionFor(kind models.ContentKind) *mongo.Collection {
	if kind == models.ContentKindPathway {
		return r.pathways
	}
	return r.courses
}

// FindOwner returns the educator id of a course or pathway, or
// mongo.ErrNoDocuments.
func (r *ContentRepository) FindOwner(ctx context.Context, ref models.ContentRef) (string, error) {
	var owner struct {
		Educator string `bson:"educator"`
	}
	opts := options.FindOne().SetProjection(bson.M{"educator": 1})
	if err := r.collectionFor(ref.Kind).FindOne(ctx, bson.M{"_id": ref.ID}, opts).Decode(&owner); err != nil {
		return "", err
	}
	return owner.Educator, nil
}

func (r *ContentRepository) FindCoursesByEducator(ctx context.Context, educatorID string) ([]models.Course, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}})
	cursor, err := r.courses.Find(ctx, bson.M{"educator": educatorID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find courses: %w", err)
	}
	defer cursor.Close(ctx)

	courses := []models.Course{}
	if err = cursor.All(ctx, &courses); err != nil {
		return nil, fmt.Errorf("failed to decode courses: %w", err)
	}
	return courses, nil
}

// AddEnrolledStudent adds studentID to the enrolment list once.
func (r *ContentRepository) AddEnrolledStudent(ctx context.Context, ref models.ContentRef, studentID string) error {
	update := bson.M{"$addToSet": bson.M{"enrolledStudents": studentID}}
	result, err := r.collectionFor(ref.Kind).UpdateOne(ctx, bson.M{"_id": ref.ID}, update)
	if err != nil {
		return fmt.Errorf("failed to enroll student: %w", err)
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
