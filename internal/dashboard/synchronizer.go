package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/HuynhHoangThai/Oncademy-sub000/internal/event"
	"github.com/HuynhHoangThai/Oncademy-sub000/internal/metrics"
	"github.com/HuynhHoangThai/Oncademy-sub000/internal/models"
)

const DefaultStaleAfter = 5 * time.Minute

type CourseSource interface {
	FindCoursesByEducator(ctx context.Context, educatorID string) ([]models.Course, error)
}

type PurchaseSource interface {
	FindCompletedByCourses(ctx context.Context, courseIDs []bson.ObjectID) ([]models.PurchaseRecord, error)
}

type UserSource interface {
	FindByIDs(ctx context.Context, ids []string) ([]models.UserSummary, error)
}

// Store persists dashboards. FindByEducator returns nil, nil when none exists.
type Store interface {
	FindByEducator(ctx context.Context, educatorID string) (*models.Dashboard, error)
	Upsert(ctx context.Context, dashboard *models.Dashboard) error
}

type Synchronizer struct {
	courses    CourseSource
	purchases  PurchaseSource
	users      UserSource
	store      Store
	publisher  event.Publisher
	staleAfter time.Duration
	now        func() time.Time
	log        zerolog.Logger
}

func NewSynchronizer(courses CourseSource, purchases PurchaseSource, users UserSource, store Store, publisher event.Publisher, staleAfter time.Duration, log zerolog.Logger) *Synchronizer {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	return &Synchronizer{
		courses:    courses,
		purchases:  purchases,
		users:      users,
		store:      store,
		publisher:  publisher,
		staleAfter: staleAfter,
		now:        time.Now,
		log:        log.With().Str("component", "dashboard").Logger(),
	}
}

// Sync recomputes the educator's dashboard from source data and replaces the
// cached document.
func (s *Synchronizer) Sync(ctx context.Context, educatorID string) (*models.Dashboard, error) {
	start := time.Now()

	courses, err := s.courses.FindCoursesByEducator(ctx, educatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to load courses: %w", err)
	}

	courseIDs := make([]bson.ObjectID, 0, len(courses))
	for _, c := range courses {
		courseIDs = append(courseIDs, c.ID)
	}

	var purchases []models.PurchaseRecord
	if len(courseIDs) > 0 {
		purchases, err = s.purchases.FindCompletedByCourses(ctx, courseIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to load purchases: %w", err)
		}
	}

	var students []models.UserSummary
	if ids := StudentIDs(courses, purchases); len(ids) > 0 {
		students, err = s.users.FindByIDs(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("failed to load students: %w", err)
		}
	}

	dashboard := Build(educatorID, courses, purchases, students, s.now().UTC())
	if err := s.store.Upsert(ctx, dashboard); err != nil {
		return nil, fmt.Errorf("failed to save dashboard: %w", err)
	}

	metrics.DashboardSyncDuration.Observe(time.Since(start).Seconds())
	s.log.Info().
		Str("educator_id", educatorID).
		Int("courses", dashboard.TotalCourses).
		Int("purchases", dashboard.TotalPurchases).
		Int("enrollments", dashboard.TotalEnrollments).
		Msg("dashboard synchronized")

	if err := s.publisher.PublishDashboardEvent(ctx, &event.DashboardEvent{
		EventType:        event.EventTypeDashboardSynced,
		EducatorID:       educatorID,
		TotalCourses:     dashboard.TotalCourses,
		TotalEarnings:    dashboard.TotalEarnings,
		TotalEnrollments: dashboard.TotalEnrollments,
		Timestamp:        dashboard.LastUpdated.Unix(),
	}); err != nil {
		s.log.Warn().Err(err).Str("educator_id", educatorID).Msg("failed to publish dashboard event")
	}

	return dashboard, nil
}

// Get returns the cached dashboard, recomputing it first when it is missing
// or older than the staleness window.
func (s *Synchronizer) Get(ctx context.Context, educatorID string) (*models.Dashboard, error) {
	cached, err := s.store.FindByEducator(ctx, educatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to load dashboard: %w", err)
	}
	if cached != nil && s.now().Sub(cached.LastUpdated) <= s.staleAfter {
		metrics.DashboardCacheResults.WithLabelValues("hit").Inc()
		return cached, nil
	}

	metrics.DashboardCacheResults.WithLabelValues("miss").Inc()
	return s.Sync(ctx, educatorID)
}

// Refresh recomputes the dashboard after a mutation. Failures are logged and
// never reach the caller.
func (s *Synchronizer) Refresh(ctx context.Context, educatorID string) {
	if educatorID == "" {
		return
	}
	if _, err := s.Sync(ctx, educatorID); err != nil {
		metrics.DashboardRefreshFailures.Inc()
		s.log.Error().Err(err).Str("educator_id", educatorID).Msg("dashboard refresh failed")
	}
}
