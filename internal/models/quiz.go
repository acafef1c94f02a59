package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type ContentKind string

const (
	ContentKindCourse  ContentKind = "course"
	ContentKindPathway ContentKind = "pathway"
)

// ContentRef points at the course or pathway a quiz belongs to.
type ContentRef struct {
	Kind ContentKind
	ID   bson.ObjectID
}

type Quiz struct {
	ID                   bson.ObjectID  `bson:"_id,omitempty" json:"id"`
	CourseID             *bson.ObjectID `bson:"courseId,omitempty" json:"courseId,omitempty"`
	PathwayID            *bson.ObjectID `bson:"pathwayId,omitempty" json:"pathwayId,omitempty"`
	ChapterID            string         `bson:"chapterId,omitempty" json:"chapterId,omitempty"`
	LectureID            string         `bson:"lectureId,omitempty" json:"lectureId,omitempty"`
	Title                string         `bson:"title" json:"title"`
	Description          string         `bson:"description,omitempty" json:"description,omitempty"`
	Type                 string         `bson:"type" json:"type"`
	Duration             int            `bson:"duration" json:"duration"`
	StartDate            *time.Time     `bson:"startDate,omitempty" json:"startDate,omitempty"`
	Deadline             *time.Time     `bson:"deadline,omitempty" json:"deadline,omitempty"`
	AllowLateSubmission  bool           `bson:"allowLateSubmission" json:"allowLateSubmission"`
	LatePenalty          float64        `bson:"latePenalty" json:"latePenalty"`
	MaxAttempts          int            `bson:"maxAttempts" json:"maxAttempts"`
	PassingScore         float64        `bson:"passingScore" json:"passingScore"`
	Questions            []Question     `bson:"questions" json:"questions"`
	TotalPoints          float64        `bson:"totalPoints" json:"totalPoints"`
	ShuffleQuestions     bool           `bson:"shuffleQuestions" json:"shuffleQuestions"`
	ShuffleOptions       bool           `bson:"shuffleOptions" json:"shuffleOptions"`
	ShowCorrectAnswers   bool           `bson:"showCorrectAnswers" json:"showCorrectAnswers"`
	ShowScoreImmediately bool           `bson:"showScoreImmediately" json:"showScoreImmediately"`
	IsPublished          bool           `bson:"isPublished" json:"isPublished"`
	CreatedBy            string         `bson:"createdBy" json:"createdBy"`
	CreatedAt            time.Time      `bson:"createdAt" json:"createdAt"`
	UpdatedAt            time.Time      `bson:"updatedAt" json:"updatedAt"`
}

// Content returns the course or pathway the quiz is scoped to.
func (q *Quiz) Content() (ContentRef, bool) {
	if q.CourseID != nil {
		return ContentRef{Kind: ContentKindCourse, ID: *q.CourseID}, true
	}
	if q.PathwayID != nil {
		return ContentRef{Kind: ContentKindPathway, ID: *q.PathwayID}, true
	}
	return ContentRef{}, false
}

func (q *Quiz) SetContent(ref ContentRef) {
	id := ref.ID
	q.CourseID, q.PathwayID = nil, nil
	switch ref.Kind {
	case ContentKindCourse:
		q.CourseID = &id
	case ContentKindPathway:
		q.PathwayID = &id
	}
}

// RecalculateTotalPoints enforces totalPoints == sum of question points. It
// must run before every write that touches Questions.
func (q *Quiz) RecalculateTotalPoints() {
	total := 0.0
	for _, question := range q.Questions {
		total += question.Points
	}
	q.TotalPoints = total
}

func (q *Quiz) HasEssay() bool {
	for _, question := range q.Questions {
		if question.IsEssay() {
			return true
		}
	}
	return false
}

func (q *Quiz) Question(id string) (Question, bool) {
	for _, question := range q.Questions {
		if question.ID == id {
			return question, true
		}
	}
	return Question{}, false
}
