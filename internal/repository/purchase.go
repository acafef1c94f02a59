package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/HuynhHoangThai/Oncademy-sub000/internal/models"
)

type PurchaseRepository struct {
	collection *mongo.Collection
}

func NewPurchaseRepository(db *mongo.Database) *PurchaseRepository {
	return &PurchaseRepository{collection: db.Collection("purchases")}
}

func (r *PurchaseRepository) FindByID(ctx context.Context, id bson.ObjectID) (*models.Purchase, error) {
	var purchase models.Purchase
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&purchase); err != nil {
		return nil, err
	}
	return &purchase, nil
}

func (r *PurchaseRepository) UpdateStatus(ctx context.Context, id bson.ObjectID, status models.PurchaseStatus, at time.Time) error {
	set := bson.M{"status": status}
	if status == models.PurchaseStatusCompleted {
		set["completedAt"] = at
	}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update purchase status: %w", err)
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// FindCompletedByCourses loads completed course purchases joined with the
// buyer's and the course's display fields as they are right now.
func (r *PurchaseRepository) FindCompletedByCourses(ctx context.Context, courseIDs []bson.ObjectID) ([]models.PurchaseRecord, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"courseId": bson.M{"$in": courseIDs},
			"status":   models.PurchaseStatusCompleted,
		}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         "users",
			"localField":   "studentId",
			"foreignField": "_id",
			"as":           "student",
		}}},
		{{Key: "$unwind", Value: bson.M{"path": "$student", "preserveNullAndEmptyArrays": true}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         "courses",
			"localField":   "courseId",
			"foreignField": "_id",
			"as":           "course",
		}}},
		{{Key: "$unwind", Value: bson.M{"path": "$course", "preserveNullAndEmptyArrays": true}}},
		{{Key: "$project", Value: bson.M{
			"studentId":        1,
			"courseId":         1,
			"amount":           1,
			"createdAt":        1,
			"student._id":      1,
			"student.name":     1,
			"student.email":    1,
			"student.imageUrl": 1,
			"course._id":       1,
			"course.title":     1,
			"course.thumbnail": 1,
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate purchases: %w", err)
	}
	defer cursor.Close(ctx)

	records := []models.PurchaseRecord{}
	if err = cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode purchases: %w", err)
	}
	return records, nil
}
