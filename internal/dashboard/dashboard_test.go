package dashboard

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/HuynhHoangThai/Oncademy-sub000/internal/event"
	"github.com/HuynhHoangThai/Oncademy-sub000/internal/models"
)

var fixedNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func purchase(student string, course models.Course, amount float64, at time.Time) models.PurchaseRecord {
	return models.PurchaseRecord{
		ID:        bson.NewObjectID(),
		StudentID: student,
		CourseID:  course.ID,
		Amount:    amount,
		CreatedAt: at,
		Student:   models.UserSummary{ID: student, Name: "name-" + student},
		Course:    models.CourseSummary{ID: course.ID, Title: course.Title},
	}
}

func TestBuildUnionOfStudents(t *testing.T) {
	courseA := models.Course{ID: bson.NewObjectID(), Title: "A", EnrolledStudents: []string{"S1", "S2"}}
	purchases := []models.PurchaseRecord{purchase("S1", courseA, 20, fixedNow)}

	d := Build("edu-1", []models.Course{courseA}, purchases, nil, fixedNow)

	assert.Equal(t, 2, d.TotalEnrollments)
	assert.Equal(t, 1, d.TotalPurchases)
	require.Len(t, d.EnrolledStudents, 2)
	assert.Equal(t, "S1", d.EnrolledStudents[0].StudentID)
	assert.Equal(t, "S2", d.EnrolledStudents[1].StudentID)
}

func TestBuildMonthlyEarningsZeroFill(t *testing.T) {
	course := models.Course{ID: bson.NewObjectID(), Title: "A"}
	purchases := []models.PurchaseRecord{
		purchase("S1", course, 10, fixedNow.AddDate(0, 0, -1)),
		purchase("S2", course, 15, fixedNow),
		purchase("S3", course, 99, fixedNow.AddDate(0, -7, 0)),
	}

	d := Build("edu-1", []models.Course{course}, purchases, nil, fixedNow)

	require.Len(t, d.MonthlyEarnings, 6)
	zeros := 0
	for _, m := range d.MonthlyEarnings {
		if m.Earnings == 0 {
			zeros++
		}
	}
	assert.Equal(t, 5, zeros)
	assert.Equal(t, "2025-01", d.MonthlyEarnings[0].Month)
	assert.Equal(t, "2025-06", d.MonthlyEarnings[5].Month)
	assert.Equal(t, 25.0, d.MonthlyEarnings[5].Earnings)
	assert.Equal(t, 2, d.MonthlyEarnings[5].Purchases)
	assert.Equal(t, 124.0, d.TotalEarnings)
}

func TestBuildTopCourses(t *testing.T) {
	var courses []models.Course
	var purchases []models.PurchaseRecord
	for i := 0; i < 7; i++ {
		c := models.Course{ID: bson.NewObjectID(), Title: fmt.Sprintf("course-%d", i)}
		courses = append(courses, c)
		for j := 0; j <= i; j++ {
			purchases = append(purchases, purchase(fmt.Sprintf("S%d-%d", i, j), c, 10, fixedNow))
		}
	}

	d := Build("edu-1", courses, purchases, nil, fixedNow)

	require.Len(t, d.TopCourses, 5)
	assert.Equal(t, "course-6", d.TopCourses[0].Title)
	assert.Equal(t, 70.0, d.TopCourses[0].Revenue)
	assert.Equal(t, 7, d.TopCourses[0].Purchases)
	for i := 1; i < len(d.TopCourses); i++ {
		assert.GreaterOrEqual(t, d.TopCourses[i-1].Revenue, d.TopCourses[i].Revenue)
	}
	assert.Equal(t, "course-2", d.TopCourses[4].Title)
}

func TestBuildRecentEnrollmentsLimitAndOrder(t *testing.T) {
	course := models.Course{ID: bson.NewObjectID(), Title: "A"}
	var purchases []models.PurchaseRecord
	for i := 0; i < 60; i++ {
		purchases = append(purchases, purchase(fmt.Sprintf("S%d", i), course, 1, fixedNow.Add(-time.Duration(i)*time.Hour)))
	}

	d := Build("edu-1", []models.Course{course}, purchases, nil, fixedNow)

	require.Len(t, d.RecentEnrollments, 50)
	assert.Equal(t, "S0", d.RecentEnrollments[0].StudentID)
	assert.Equal(t, "name-S0", d.RecentEnrollments[0].StudentName)
	assert.Equal(t, "S49", d.RecentEnrollments[49].StudentID)
}

func TestBuildIsIdempotent(t *testing.T) {
	course := models.Course{ID: bson.NewObjectID(), Title: "A", EnrolledStudents: []string{"S3"}}
	purchases := []models.PurchaseRecord{
		purchase("S1", course, 10, fixedNow),
		purchase("S2", course, 10, fixedNow),
	}
	students := []models.UserSummary{{ID: "S1", Name: "One"}, {ID: "S2", Name: "Two"}}

	first := Build("edu-1", []models.Course{course}, purchases, students, fixedNow)
	second := Build("edu-1", []models.Course{course}, purchases, students, fixedNow)

	assert.Equal(t, first, second)
}

type fakeSources struct {
	courses   []models.Course
	purchases []models.PurchaseRecord
	users     []models.UserSummary
	err       error
}

func (f *fakeSources) FindCoursesByEducator(_ context.Context, _ string) ([]models.Course, error) {
	return f.courses, f.err
}

func (f *fakeSources) FindCompletedByCourses(_ context.Context, _ []bson.ObjectID) ([]models.PurchaseRecord, error) {
	return f.purchases, nil
}

func (f *fakeSources) FindByIDs(_ context.Context, _ []string) ([]models.UserSummary, error) {
	return f.users, nil
}

type memoryStore struct {
	docs    map[string]*models.Dashboard
	upserts int
}

func (m *memoryStore) FindByEducator(_ context.Context, educatorID string) (*models.Dashboard, error) {
	return m.docs[educatorID], nil
}

func (m *memoryStore) Upsert(_ context.Context, d *models.Dashboard) error {
	m.upserts++
	m.docs[d.EducatorID] = d
	return nil
}

type nopPublisher struct{ dashboards int }

func (p *nopPublisher) PublishQuizEvent(context.Context, *event.QuizEvent) error       { return nil }
func (p *nopPublisher) PublishAttemptEvent(context.Context, *event.AttemptEvent) error { return nil }
func (p *nopPublisher) PublishDashboardEvent(context.Context, *event.DashboardEvent) error {
	p.dashboards++
	return nil
}
func (p *nopPublisher) Close() error { return nil }

func newTestSynchronizer(src *fakeSources, store *memoryStore, now *time.Time) *Synchronizer {
	s := NewSynchronizer(src, src, src, store, &nopPublisher{}, 0, zerolog.Nop())
	s.now = func() time.Time { return *now }
	return s
}

func TestGetRecomputesOnlyWhenStale(t *testing.T) {
	course := models.Course{ID: bson.NewObjectID(), Title: "A", EnrolledStudents: []string{"S1"}}
	src := &fakeSources{courses: []models.Course{course}}
	store := &memoryStore{docs: map[string]*models.Dashboard{}}
	now := fixedNow
	sync := newTestSynchronizer(src, store, &now)
	ctx := context.Background()

	d, err := sync.Get(ctx, "edu-1")
	require.NoError(t, err)
	assert.Equal(t, 1, store.upserts)
	assert.Equal(t, 1, d.TotalCourses)

	now = fixedNow.Add(4 * time.Minute)
	_, err = sync.Get(ctx, "edu-1")
	require.NoError(t, err)
	assert.Equal(t, 1, store.upserts, "fresh dashboard must be served from cache")

	now = fixedNow.Add(6 * time.Minute)
	d, err = sync.Get(ctx, "edu-1")
	require.NoError(t, err)
	assert.Equal(t, 2, store.upserts)
	assert.Equal(t, now, d.LastUpdated)
}

func TestRefreshSwallowsErrors(t *testing.T) {
	src := &fakeSources{err: errors.New("connection refused")}
	store := &memoryStore{docs: map[string]*models.Dashboard{}}
	now := fixedNow
	sync := newTestSynchronizer(src, store, &now)

	assert.NotPanics(t, func() { sync.Refresh(context.Background(), "edu-1") })
	assert.Equal(t, 0, store.upserts)
}

func TestSyncWithoutCourses(t *testing.T) {
	src := &fakeSources{}
	store := &memoryStore{docs: map[string]*models.Dashboard{}}
	now := fixedNow
	sync := newTestSynchronizer(src, store, &now)

	d, err := sync.Sync(context.Background(), "edu-1")
	require.NoError(t, err)

	assert.Equal(t, 0, d.TotalCourses)
	assert.Len(t, d.MonthlyEarnings, 6)
	assert.Empty(t, d.TopCourses)
	assert.Same(t, d, store.docs["edu-1"])
}
