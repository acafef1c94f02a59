package service

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/HuynhHoangThai/Oncademy-sub000/internal/event"
	"github.com/HuynhHoangThai/Oncademy-sub000/internal/models"
	"github.com/HuynhHoangThai/Oncademy-sub000/internal/repository"
)

type memoryQuizzes struct {
	mu      sync.Mutex
	quizzes map[bson.ObjectID]models.Quiz
}

func newMemoryQuizzes() *memoryQuizzes {
	return &memoryQuizzes{quizzes: map[bson.ObjectID]models.Quiz{}}
}

func (m *memoryQuizzes) Create(_ context.Context, quiz *models.Quiz) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	quiz.ID = bson.NewObjectID()
	m.quizzes[quiz.ID] = *quiz
	return nil
}

func (m *memoryQuizzes) FindByID(_ context.Context, id bson.ObjectID) (*models.Quiz, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	quiz, ok := m.quizzes[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	quiz.Questions = append([]models.Question(nil), quiz.Questions...)
	return &quiz, nil
}

func (m *memoryQuizzes) Replace(_ context.Context, quiz *models.Quiz) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.quizzes[quiz.ID]; !ok {
		return mongo.ErrNoDocuments
	}
	m.quizzes[quiz.ID] = *quiz
	return nil
}

func (m *memoryQuizzes) SetPublished(_ context.Context, id bson.ObjectID, published bool, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	quiz, ok := m.quizzes[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	quiz.IsPublished = published
	quiz.UpdatedAt = now
	m.quizzes[id] = quiz
	return nil
}

func (m *memoryQuizzes) Delete(_ context.Context, id bson.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.quizzes[id]; !ok {
		return mongo.ErrNoDocuments
	}
	delete(m.quizzes, id)
	return nil
}

func (m *memoryQuizzes) FindByContent(_ context.Context, ref models.ContentRef, publishedOnly bool) ([]models.Quiz, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Quiz
	for _, quiz := range m.quizzes {
		got, ok := quiz.Content()
		if !ok || got != ref {
			continue
		}
		if publishedOnly && !quiz.IsPublished {
			continue
		}
		out = append(out, quiz)
	}
	return out, nil
}

type memoryAttempts struct {
	mu       sync.Mutex
	attempts []models.QuizAttempt
	// collide makes the next n Create calls fail as if another request took
	// the number first.
	collide int
}

func (m *memoryAttempts) Create(_ context.Context, attempt *models.QuizAttempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.collide > 0 {
		m.collide--
		m.attempts = append(m.attempts, models.QuizAttempt{
			ID:            bson.NewObjectID(),
			QuizID:        attempt.QuizID,
			StudentID:     attempt.StudentID,
			AttemptNumber: attempt.AttemptNumber,
			Status:        models.AttemptStatusCompleted,
		})
		return repository.ErrDuplicateAttempt
	}
	for _, a := range m.attempts {
		if a.QuizID == attempt.QuizID && a.StudentID == attempt.StudentID && a.AttemptNumber == attempt.AttemptNumber {
			return repository.ErrDuplicateAttempt
		}
	}
	attempt.ID = bson.NewObjectID()
	m.attempts = append(m.attempts, *attempt)
	return nil
}

func (m *memoryAttempts) FindByID(_ context.Context, id bson.ObjectID) (*models.QuizAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.attempts {
		if a.ID == id {
			a.Answers = append([]models.AnswerRecord(nil), a.Answers...)
			return &a, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (m *memoryAttempts) CountByStudent(_ context.Context, quizID bson.ObjectID, studentID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, a := range m.attempts {
		if a.QuizID == quizID && a.StudentID == studentID {
			n++
		}
	}
	return n, nil
}

func (m *memoryAttempts) FindByQuiz(_ context.Context, quizID bson.ObjectID, status models.AttemptStatus) ([]models.QuizAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.QuizAttempt
	for _, a := range m.attempts {
		if a.QuizID == quizID && (status == "" || a.Status == status) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memoryAttempts) FindByStudent(_ context.Context, quizID bson.ObjectID, studentID string) ([]models.QuizAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.QuizAttempt
	for _, a := range m.attempts {
		if a.QuizID == quizID && a.StudentID == studentID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memoryAttempts) SaveGrading(_ context.Context, attempt *models.QuizAttempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.attempts {
		if m.attempts[i].ID == attempt.ID {
			m.attempts[i] = *attempt
			return nil
		}
	}
	return mongo.ErrNoDocuments
}

func (m *memoryAttempts) DeleteByQuiz(_ context.Context, quizID bson.ObjectID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.attempts[:0]
	var removed int64
	for _, a := range m.attempts {
		if a.QuizID == quizID {
			removed++
			continue
		}
		kept = append(kept, a)
	}
	m.attempts = kept
	return removed, nil
}

// memoryContent maps content ids to their educator and records enrolments.
type memoryContent struct {
	owners   map[bson.ObjectID]string
	enrolled map[bson.ObjectID][]string
}

func newMemoryContent() *memoryContent {
	return &memoryContent{owners: map[bson.ObjectID]string{}, enrolled: map[bson.ObjectID][]string{}}
}

func (m *memoryContent) add(educator string) bson.ObjectID {
	id := bson.NewObjectID()
	m.owners[id] = educator
	return id
}

func (m *memoryContent) FindOwner(_ context.Context, ref models.ContentRef) (string, error) {
	owner, ok := m.owners[ref.ID]
	if !ok {
		return "", mongo.ErrNoDocuments
	}
	return owner, nil
}

func (m *memoryContent) AddEnrolledStudent(_ context.Context, ref models.ContentRef, studentID string) error {
	if _, ok := m.owners[ref.ID]; !ok {
		return mongo.ErrNoDocuments
	}
	for _, s := range m.enrolled[ref.ID] {
		if s == studentID {
			return nil
		}
	}
	m.enrolled[ref.ID] = append(m.enrolled[ref.ID], studentID)
	return nil
}

type fakeMedia struct {
	uploads  []string
	archived []string
	err      error
}

func (f *fakeMedia) UploadQuestionImage(_ context.Context, quizID, questionID string, r io.Reader, _ int64, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	key := fmt.Sprintf("quizzes/%s/questions/%s", quizID, questionID)
	f.uploads = append(f.uploads, key)
	return "http://media.test/" + key, nil
}

func (f *fakeMedia) ArchiveImport(_ context.Context, educatorID, filename string, _ []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	key := "imports/" + educatorID + "/" + filename
	f.archived = append(f.archived, key)
	return key, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) record(eventType string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, eventType)
}

func (p *recordingPublisher) PublishQuizEvent(_ context.Context, e *event.QuizEvent) error {
	p.record(e.EventType)
	return nil
}

func (p *recordingPublisher) PublishAttemptEvent(_ context.Context, e *event.AttemptEvent) error {
	p.record(e.EventType)
	return nil
}

func (p *recordingPublisher) PublishDashboardEvent(_ context.Context, e *event.DashboardEvent) error {
	p.record(e.EventType)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

type recordingRefresher struct {
	educators []string
}

func (r *recordingRefresher) Refresh(_ context.Context, educatorID string) {
	r.educators = append(r.educators, educatorID)
}
