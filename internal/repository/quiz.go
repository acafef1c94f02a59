package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/HuynhHoangThai/Oncademy-sub000/internal/models"
)

type QuizRepository struct {
	collection *mongo.Collection
}

func NewQuizRepository(db *mongo.Database) *QuizRepository {
	return &QuizRepository{collection: db.Collection("quizzes")}
}

func (r *QuizRepository) Create(ctx context.Context, quiz *models.Quiz) error {
	if quiz.ID.IsZero() {
		quiz.ID = bson.NewObjectID()
	}
	if _, err := r.collection.InsertOne(ctx, quiz); err != nil {
		return fmt.Errorf("failed to insert quiz: %w", err)
	}
	return nil
}

// FindByID returns mongo.ErrNoDocuments when the quiz does not exist.
func (r *QuizRepository) FindByID(ctx context.Context, id bson.ObjectID) (*models.Quiz, error) {
	var quiz models.Quiz
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&quiz); err != nil {
		return nil, err
	}
	return &quiz, nil
}

func (r *QuizRepository) Replace(ctx context.Context, quiz *models.Quiz) error {
	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": quiz.ID}, quiz)
	if err != nil {
		return fmt.Errorf("failed to update quiz: %w", err)
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (r *QuizRepository) SetPublished(ctx context.Context, id bson.ObjectID, published bool, now time.Time) error {
	update := bson.M{"$set": bson.M{"isPublished": published, "updatedAt": now}}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to update quiz publication: %w", err)
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (r *QuizRepository) Delete(ctx context.Context, id bson.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete quiz: %w", err)
	}
	if result.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (r *QuizRepository) FindByContent(ctx context.Context, ref models.ContentRef, publishedOnly bool) ([]models.Quiz, error) {
	filter := bson.M{contentField(ref.Kind): ref.ID}
	if publishedOnly {
		filter["isPublished"] = true
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find quizzes: %w", err)
	}
	defer cursor.Close(ctx)

	quizzes := []models.Quiz{}
	if err = cursor.All(ctx, &quizzes); err != nil {
		return nil, fmt.Errorf("failed to decode quizzes: %w", err)
	}
	return quizzes, nil
}

func (r *QuizRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "courseId", Value: 1}, {Key: "isPublished", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "pathwayId", Value: 1}, {Key: "isPublished", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "createdBy", Value: 1}},
		},
	}

	_, err := r.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create quiz indexes: %w", err)
	}
	return nil
}

func contentField(kind models.ContentKind) string {
	if kind == models.ContentKindPathway {
		return "pathwayId"
	}
	return "courseId"
}
