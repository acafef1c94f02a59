package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/HuynhHoangThai/Oncademy-sub000/internal/apperr"
	"github.com/HuynhHoangThai/Oncademy-sub000/internal/models"
)

type PurchaseStore interface {
	FindByID(ctx context.Context, id bson.ObjectID) (*models.Purchase, error)
	UpdateStatus(ctx context.Context, id bson.ObjectID, status models.PurchaseStatus, at time.Time) error
}

type Enroller interface {
	ContentOwners
	AddEnrolledStudent(ctx context.Context, ref models.ContentRef, studentID string) error
}

type DashboardRefresher interface {
	Refresh(ctx context.Context, educatorID string)
}

// PurchaseService applies payment outcomes reported by the payment service.
type PurchaseService struct {
	purchases  PurchaseStore
	content    Enroller
	dashboards DashboardRefresher
	now        func() time.Time
	log        zerolog.Logger
}

func NewPurchaseService(purchases PurchaseStore, content Enroller, dashboards DashboardRefresher, log zerolog.Logger) *PurchaseService {
	return &PurchaseService{
		purchases:  purchases,
		content:    content,
		dashboards: dashboards,
		now:        time.Now,
		log:        log.With().Str("component", "purchase_service").Logger(),
	}
}

func paymentStatus(status string) (models.PurchaseStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "success", "succeeded", "completed", "paid":
		return models.PurchaseStatusCompleted, true
	case "failed", "failure":
		return models.PurchaseStatusFailed, true
	case "cancelled", "canceled":
		return models.PurchaseStatusCancelled, true
	}
	return "", false
}

// HandlePaymentNotification marks the purchase with the reported outcome.
// On success the student is enrolled and the educator's dashboard refreshed.
// Redelivered notifications are harmless: enrolment is a set add and an
// already completed purchase is left alone.
func (s *PurchaseService) HandlePaymentNotification(ctx context.Context, purchaseID bson.ObjectID, status string) error {
	target, ok := paymentStatus(status)
	if !ok {
		return apperr.Validation("unknown payment status %q", status)
	}

	purchase, err := s.purchases.FindByID(ctx, purchaseID)
	if err != nil {
		return notFound(err, "purchase")
	}
	if purchase.Status == models.PurchaseStatusCompleted && target != models.PurchaseStatusCompleted {
		s.log.Warn().Str("purchase_id", purchaseID.Hex()).Str("status", string(target)).Msg("ignoring downgrade of completed purchase")
		return nil
	}

	if purchase.Status != target {
		if err := s.purchases.UpdateStatus(ctx, purchaseID, target, s.now().UTC()); err != nil {
			return notFound(err, "purchase")
		}
	}
	if target != models.PurchaseStatusCompleted {
		s.log.Info().Str("purchase_id", purchaseID.Hex()).Str("status", string(target)).Msg("purchase updated")
		return nil
	}

	ref, ok := purchaseContent(purchase)
	if !ok {
		return apperr.Validation("purchase %s has no course or pathway", purchaseID.Hex())
	}
	if err := s.content.AddEnrolledStudent(ctx, ref, purchase.StudentID); err != nil {
		return fmt.Errorf("failed to enroll student for purchase %s: %w", purchaseID.Hex(), err)
	}

	educator, err := s.content.FindOwner(ctx, ref)
	if err != nil {
		s.log.Warn().Err(err).Str("purchase_id", purchaseID.Hex()).Msg("could not resolve educator for dashboard refresh")
		return nil
	}
	if ref.Kind == models.ContentKindCourse {
		s.dashboards.Refresh(ctx, educator)
	}

	s.log.Info().
		Str("purchase_id", purchaseID.Hex()).
		Str("student_id", purchase.StudentID).
		Str("educator_id", educator).
		Msg("purchase completed")
	return nil
}

func purchaseContent(p *models.Purchase) (models.ContentRef, bool) {
	if p.CourseID != nil {
		return models.ContentRef{Kind: models.ContentKindCourse, ID: *p.CourseID}, true
	}
	if p.PathwayID != nil {
		return models.ContentRef{Kind: models.ContentKindPathway, ID: *p.PathwayID}, true
	}
	return models.ContentRef{}, false
}
