package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/HuynhHoangThai/Oncademy-sub000/internal/models"
)

// ErrDuplicateAttempt is returned when another submission already took the
// attempt number.
var ErrDuplicateAttempt = errors.New("attempt number already taken")

type AttemptRepository struct {
	collection *mongo.Collection
}

func NewAttemptRepository(db *mongo.Database) *AttemptRepository {
	return &AttemptRepository{collection: db.Collection("quizattempts")}
}

func (r *AttemptRepository) Create(ctx context.Context, attempt *models.QuizAttempt) error {
	if attempt.ID.IsZero() {
		attempt.ID = bson.NewObjectID()
	}
	if _, err := r.collection.InsertOne(ctx, attempt); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateAttempt
		}
		return fmt.Errorf("failed to insert attempt: %w", err)
	}
	return nil
}

func (r *AttemptRepository) FindByID(ctx context.Context, id bson.ObjectID) (*models.QuizAttempt, error) {
	var attempt models.QuizAttempt
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&attempt); err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *AttemptRepository) CountByStudent(ctx context.Context, quizID bson.ObjectID, studentID string) (int, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"quizId": quizID, "studentId": studentID})
	if err != nil {
		return 0, fmt.Errorf("failed to count attempts: %w", err)
	}
	return int(count), nil
}

// FindByQuiz lists attempts of a quiz, newest first. An empty status
// matches every attempt.
func (r *AttemptRepository) FindByQuiz(ctx context.Context, quizID bson.ObjectID, status models.AttemptStatus) ([]models.QuizAttempt, error) {
	filter := bson.M{"quizId": quizID}
	if status != "" {
		filter["status"] = status
	}
	return r.find(ctx, filter)
}

func (r *AttemptRepository) FindByStudent(ctx context.Context, quizID bson.ObjectID, studentID string) ([]models.QuizAttempt, error) {
	return r.find(ctx, bson.M{"quizId": quizID, "studentId": studentID})
}

func (r *AttemptRepository) find(ctx context.Context, filter bson.M) ([]models.QuizAttempt, error) {
	opts := options.Find().SetSort(bson.D{{Key: "submittedAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find attempts: %w", err)
	}
	defer cursor.Close(ctx)

	attempts := []models.QuizAttempt{}
	if err = cursor.All(ctx, &attempts); err != nil {
		return nil, fmt.Errorf("failed to decode attempts: %w", err)
	}
	return attempts, nil
}

// SaveGrading writes the result of manual grading. It is the only update
// ever applied to a stored attempt.
func (r *AttemptRepository) SaveGrading(ctx context.Context, attempt *models.QuizAttempt) error {
	update := bson.M{"$set": bson.M{
		"answers":  attempt.Answers,
		"scoring":  attempt.Scoring,
		"status":   attempt.Status,
		"gradedAt": attempt.GradedAt,
		"gradedBy": attempt.GradedBy,
	}}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": attempt.ID}, update)
	if err != nil {
		return fmt.Errorf("failed to save grading: %w", err)
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (r *AttemptRepository) DeleteByQuiz(ctx context.Context, quizID bson.ObjectID) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{"quizId": quizID})
	if err != nil {
		return 0, fmt.Errorf("failed to delete attempts: %w", err)
	}
	return result.DeletedCount, nil
}

func (r *AttemptRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "quizId", Value: 1},
				{Key: "studentId", Value: 1},
				{Key: "attemptNumber", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "quizId", Value: 1}, {Key: "status", Value: 1}},
		},
	}

	_, err := r.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create attempt indexes: %w", err)
	}
	return nil
}
