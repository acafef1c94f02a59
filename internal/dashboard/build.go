// Package dashboard derives and caches the per-educator analytics document.
package dashboard

import (
	"sort"
	"time"

	"github.com/HuynhHoangThai/Oncademy-sub000/internal/models"
)

const (
	topCoursesLimit        = 5
	recentEnrollmentsLimit = 50
	trailingMonths         = 6
)

// StudentIDs returns the union of ids found in completed purchases and in the
// courses' enrolment lists, sorted.
func StudentIDs(courses []models.Course, purchases []models.PurchaseRecord) []string {
	seen := make(map[string]struct{})
	for _, p := range purchases {
		if p.StudentID != "" {
			seen[p.StudentID] = struct{}{}
		}
	}
	for _, c := range courses {
		for _, id := range c.EnrolledStudents {
			if id != "" {
				seen[id] = struct{}{}
			}
		}
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Build derives the dashboard from its source records. The result depends on
// the inputs and now only, so rebuilding from the same data is idempotent.
func Build(educatorID string, courses []models.Course, purchases []models.PurchaseRecord, students []models.UserSummary, now time.Time) *models.Dashboard {
	studentIDs := StudentIDs(courses, purchases)

	d := &models.Dashboard{
		EducatorID:        educatorID,
		TotalCourses:      len(courses),
		TotalPurchases:    len(purchases),
		TotalEnrollments:  len(studentIDs),
		CourseStats:       courseStats(courses),
		TopCourses:        topCourses(courses, purchases),
		MonthlyEarnings:   monthlyEarnings(purchases, now),
		RecentEnrollments: recentEnrollments(purchases),
		EnrolledStudents:  enrolledStudents(studentIDs, students),
		LastUpdated:       now,
	}
	for _, p := range purchases {
		d.TotalEarnings += p.Amount
	}
	return d
}

func courseStats(courses []models.Course) []models.CourseStat {
	stats := make([]models.CourseStat, 0, len(courses))
	for _, c := range courses {
		stats = append(stats, models.CourseStat{
			CourseID:      c.ID,
			Title:         c.Title,
			Thumbnail:     c.Thumbnail,
			Price:         c.Price,
			EnrolledCount: len(c.EnrolledStudents),
			CreatedAt:     c.CreatedAt,
		})
	}
	return stats
}

func topCourses(courses []models.Course, purchases []models.PurchaseRecord) []models.TopCourse {
	known := make(map[string]models.Course, len(courses))
	for _, c := range courses {
		known[c.ID.Hex()] = c
	}

	grouped := make(map[string]*models.TopCourse)
	for _, p := range purchases {
		key := p.CourseID.Hex()
		entry, ok := grouped[key]
		if !ok {
			entry = &models.TopCourse{CourseID: p.CourseID, Title: p.Course.Title, Thumbnail: p.Course.Thumbnail}
			if c, found := known[key]; found {
				entry.Title = c.Title
				entry.Thumbnail = c.Thumbnail
			}
			grouped[key] = entry
		}
		entry.Revenue += p.Amount
		entry.Purchases++
	}

	top := make([]models.TopCourse, 0, len(grouped))
	for _, entry := range grouped {
		top = append(top, *entry)
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Revenue != top[j].Revenue {
			return top[i].Revenue > top[j].Revenue
		}
		if top[i].Purchases != top[j].Purchases {
			return top[i].Purchases > top[j].Purchases
		}
		return top[i].CourseID.Hex() < top[j].CourseID.Hex()
	})
	if len(top) > topCoursesLimit {
		top = top[:topCoursesLimit]
	}
	return top
}

// monthlyEarnings buckets purchases into the trailing calendar months ending
// with the month of now, oldest first. Months are computed in UTC.
func monthlyEarnings(purchases []models.PurchaseRecord, now time.Time) []models.MonthlyEarning {
	now = now.UTC()
	current := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	months := make([]models.MonthlyEarning, trailingMonths)
	index := make(map[string]int, trailingMonths)
	for i := 0; i < trailingMonths; i++ {
		month := current.AddDate(0, i-(trailingMonths-1), 0)
		key := month.Format("2006-01")
		months[i] = models.MonthlyEarning{Month: key, Label: month.Format("Jan 2006")}
		index[key] = i
	}

	for _, p := range purchases {
		i, ok := index[p.CreatedAt.UTC().Format("2006-01")]
		if !ok {
			continue
		}
		months[i].Earnings += p.Amount
		months[i].Purchases++
	}
	return months
}

func recentEnrollments(purchases []models.PurchaseRecord) []models.RecentEnrollment {
	sorted := make([]models.PurchaseRecord, len(purchases))
	copy(sorted, purchases)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
		}
		return sorted[i].ID.Hex() > sorted[j].ID.Hex()
	})
	if len(sorted) > recentEnrollmentsLimit {
		sorted = sorted[:recentEnrollmentsLimit]
	}

	recent := make([]models.RecentEnrollment, 0, len(sorted))
	for _, p := range sorted {
		recent = append(recent, models.RecentEnrollment{
			PurchaseID:      p.ID,
			StudentID:       p.StudentID,
			StudentName:     p.Student.Name,
			StudentEmail:    p.Student.Email,
			StudentImageURL: p.Student.ImageURL,
			CourseID:        p.CourseID,
			CourseTitle:     p.Course.Title,
			CourseThumbnail: p.Course.Thumbnail,
			Amount:          p.Amount,
			PurchasedAt:     p.CreatedAt,
		})
	}
	return recent
}

// enrolledStudents keeps an entry for every id, even when the user record
// could not be loaded.
func enrolledStudents(ids []string, students []models.UserSummary) []models.EnrolledStudent {
	byID := make(map[string]models.UserSummary, len(students))
	for _, s := range students {
		byID[s.ID] = s
	}

	enrolled := make([]models.EnrolledStudent, 0, len(ids))
	for _, id := range ids {
		s := byID[id]
		enrolled = append(enrolled, models.EnrolledStudent{
			StudentID: id,
			Name:      s.Name,
			Email:     s.Email,
			ImageURL:  s.ImageURL,
		})
	}
	return enrolled
}
