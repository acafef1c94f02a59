package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/HuynhHoangThai/Oncademy-sub000/internal/apperr"
	"github.com/HuynhHoangThai/Oncademy-sub000/internal/models"
)

const (
	RoleStudent  = "student"
	RoleEducator = "educator"
	RoleAdmin    = "admin"
)

// Caller is the authenticated user on whose behalf an operation runs.
type Caller struct {
	UserID string
	Role   string
}

type QuizStore interface {
	Create(ctx context.Context, quiz *models.Quiz) error
	FindByID(ctx context.Context, id bson.ObjectID) (*models.Quiz, error)
	Replace(ctx context.Context, quiz *models.Quiz) error
	SetPublished(ctx context.Context, id bson.ObjectID, published bool, now time.Time) error
	Delete(ctx context.Context, id bson.ObjectID) error
	FindByContent(ctx context.Context, ref models.ContentRef, publishedOnly bool) ([]models.Quiz, error)
}

type AttemptStore interface {
	Create(ctx context.Context, attempt *models.QuizAttempt) error
	FindByID(ctx context.Context, id bson.ObjectID) (*models.QuizAttempt, error)
	CountByStudent(ctx context.Context, quizID bson.ObjectID, studentID string) (int, error)
	FindByQuiz(ctx context.Context, quizID bson.ObjectID, status models.AttemptStatus) ([]models.QuizAttempt, error)
	FindByStudent(ctx context.Context, quizID bson.ObjectID, studentID string) ([]models.QuizAttempt, error)
	SaveGrading(ctx context.Context, attempt *models.QuizAttempt) error
	DeleteByQuiz(ctx context.Context, quizID bson.ObjectID) (int64, error)
}

type ContentOwners interface {
	FindOwner(ctx context.Context, ref models.ContentRef) (string, error)
}

type MediaStore interface {
	UploadQuestionImage(ctx context.Context, quizID, questionID string, r io.Reader, size int64, contentType string) (string, error)
	ArchiveImport(ctx context.Context, educatorID, filename string, data []byte) (string, error)
}

func parseObjectID(id, label string) (bson.ObjectID, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return bson.ObjectID{}, apperr.Validation("invalid %s id", label)
	}
	return oid, nil
}

// ParseContentRef builds a content reference from a kind ("course" or
// "pathway") and a hex id.
func ParseContentRef(kind, id string) (models.ContentRef, error) {
	k := models.ContentKind(kind)
	if k != models.ContentKindCourse && k != models.ContentKindPathway {
		return models.ContentRef{}, apperr.Validation("content kind must be course or pathway")
	}
	oid, err := parseObjectID(id, kind)
	if err != nil {
		return models.ContentRef{}, err
	}
	return models.ContentRef{Kind: k, ID: oid}, nil
}

// notFound turns a missing document into a NotFound business error and
// wraps anything else.
func notFound(err error, what string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return apperr.NotFound("%s not found", what)
	}
	return fmt.Errorf("failed to load %s: %w", what, err)
}

func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperr.Validation("invalid input: %v", err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s failed on %s", fe.Namespace(), fe.Tag()))
	}
	return apperr.Validation("invalid input: %s", strings.Join(msgs, "; "))
}
