package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/HuynhHoangThai/Oncademy-sub000/internal/apperr"
	"github.com/HuynhHoangThai/Oncademy-sub000/internal/models"
)

type memoryPurchases struct {
	purchases map[bson.ObjectID]*models.Purchase
	updates   int
}

func (m *memoryPurchases) FindByID(_ context.Context, id bson.ObjectID) (*models.Purchase, error) {
	p, ok := m.purchases[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	cp := *p
	return &cp, nil
}

func (m *memoryPurchases) UpdateStatus(_ context.Context, id bson.ObjectID, status models.PurchaseStatus, at time.Time) error {
	p, ok := m.purchases[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	m.updates++
	p.Status = status
	if status == models.PurchaseStatusCompleted {
		p.CompletedAt = &at
	}
	return nil
}

type purchaseFixture struct {
	purchases  *memoryPurchases
	content    *memoryContent
	dashboards *recordingRefresher
	service    *PurchaseService
	courseID   bson.ObjectID
}

func newPurchaseFixture() *purchaseFixture {
	f := &purchaseFixture{
		purchases:  &memoryPurchases{purchases: map[bson.ObjectID]*models.Purchase{}},
		content:    newMemoryContent(),
		dashboards: &recordingRefresher{},
	}
	f.courseID = f.content.add(educatorID)
	f.service = NewPurchaseService(f.purchases, f.content, f.dashboards, zerolog.Nop())
	return f
}

func (f *purchaseFixture) addPurchase(status models.PurchaseStatus) bson.ObjectID {
	id := bson.NewObjectID()
	course := f.courseID
	f.purchases.purchases[id] = &models.Purchase{
		ID:        id,
		StudentID: studentID,
		CourseID:  &course,
		Amount:    49.99,
		Status:    status,
	}
	return id
}

func TestHandlePaymentSuccessEnrollsAndRefreshes(t *testing.T) {
	f := newPurchaseFixture()
	id := f.addPurchase(models.PurchaseStatusPending)

	require.NoError(t, f.service.HandlePaymentNotification(context.Background(), id, "success"))

	assert.Equal(t, models.PurchaseStatusCompleted, f.purchases.purchases[id].Status)
	assert.NotNil(t, f.purchases.purchases[id].CompletedAt)
	assert.Equal(t, []string{studentID}, f.content.enrolled[f.courseID])
	assert.Equal(t, []string{educatorID}, f.dashboards.educators)
}

func TestHandlePaymentIsIdempotent(t *testing.T) {
	f := newPurchaseFixture()
	id := f.addPurchase(models.PurchaseStatusPending)
	ctx := context.Background()

	require.NoError(t, f.service.HandlePaymentNotification(ctx, id, "completed"))
	require.NoError(t, f.service.HandlePaymentNotification(ctx, id, "completed"))

	assert.Equal(t, 1, f.purchases.updates)
	assert.Equal(t, []string{studentID}, f.content.enrolled[f.courseID])
}

func TestHandlePaymentFailureOnlyUpdatesStatus(t *testing.T) {
	testCases := []struct {
		name   string
		status string
		want   models.PurchaseStatus
	}{
		{"failed", "failed", models.PurchaseStatusFailed},
		{"cancelled", "Cancelled", models.PurchaseStatusCancelled},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newPurchaseFixture()
			id := f.addPurchase(models.PurchaseStatusPending)

			require.NoError(t, f.service.HandlePaymentNotification(context.Background(), id, tc.status))

			assert.Equal(t, tc.want, f.purchases.purchases[id].Status)
			assert.Empty(t, f.content.enrolled)
			assert.Empty(t, f.dashboards.educators)
		})
	}
}

func TestHandlePaymentDoesNotDowngradeCompleted(t *testing.T) {
	f := newPurchaseFixture()
	id := f.addPurchase(models.PurchaseStatusCompleted)

	require.NoError(t, f.service.HandlePaymentNotification(context.Background(), id, "failed"))
	assert.Equal(t, models.PurchaseStatusCompleted, f.purchases.purchases[id].Status)
	assert.Zero(t, f.purchases.updates)
}

func TestHandlePaymentRejects(t *testing.T) {
	f := newPurchaseFixture()
	id := f.addPurchase(models.PurchaseStatusPending)
	ctx := context.Background()

	err := f.service.HandlePaymentNotification(ctx, id, "refunded")
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	err = f.service.HandlePaymentNotification(ctx, bson.NewObjectID(), "success")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
