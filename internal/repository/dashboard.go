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

type DashboardRepository struct {
	collection *mongo.Collection
}

func NewDashboardRepository(db *mongo.Database) *DashboardRepository {
	return &DashboardRepository{collection: db.Collection("dashboards")}
}

// FindByEducator returns nil, nil when no dashboard has been built yet.
func (r *DashboardRepository) FindByEducator(ctx context.Context, educatorID string) (*models.Dashboard, error) {
	var dashboard models.Dashboard
	err := r.collection.FindOne(ctx, bson.M{"educatorId": educatorID}).Decode(&dashboard)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find dashboard: %w", err)
	}
	return &dashboard, nil
}

// Upsert replaces the whole document so concurrent recomputes converge on
// the last writer.
func (r *DashboardRepository) Upsert(ctx context.Context, dashboard *models.Dashboard) error {
	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"educatorId": dashboard.EducatorID}, dashboard, opts)
	if err != nil {
		return fmt.Errorf("failed to upsert dashboard: %w", err)
	}
	return nil
}

func (r *DashboardRepository) CreateIndexes(ctx context.Context) error {
	index := mongo.IndexModel{
		Keys:    bson.D{{Key: "educatorId", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := r.collection.Indexes().CreateOne(ctx, index); err != nil {
		return fmt.Errorf("failed to create dashboard indexes: %w", err)
	}
	return nil
}
