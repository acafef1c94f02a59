package models

import (
	"encoding/json"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type QuestionType string

const (
	QuestionTypeMultipleChoice QuestionType = "multiple-choice"
	QuestionTypeTrueFalse      QuestionType = "true-false"
	QuestionTypeEssay          QuestionType = "essay"
	QuestionTypeFillBlank      QuestionType = "fill-blank"
)

func (t QuestionType) Valid() bool {
	switch t {
	case QuestionTypeMultipleChoice, QuestionTypeTrueFalse, QuestionTypeEssay, QuestionTypeFillBlank:
		return true
	}
	return false
}

type Option struct {
	ID        string `bson:"id" json:"id"`
	Text      string `bson:"text" json:"text"`
	IsCorrect bool   `bson:"isCorrect" json:"isCorrect"`
}

// QuestionBody is the type specific part of a question. The set of
// implementations is closed: MultipleChoice, TrueFalse, Essay, FillBlank.
type QuestionBody interface {
	Type() QuestionType
	questionBody()
}

type MultipleChoice struct {
	Options []Option
}

type TrueFalse struct {
	Options []Option
}

type Essay struct {
	MaxWords int
	Rubric   string
}

type FillBlank struct {
	CorrectAnswers []string
	CaseSensitive  bool
}

func (MultipleChoice) Type() QuestionType { return QuestionTypeMultipleChoice }
func (TrueFalse) Type() QuestionType      { return QuestionTypeTrueFalse }
func (Essay) Type() QuestionType          { return QuestionTypeEssay }
func (FillBlank) Type() QuestionType      { return QuestionTypeFillBlank }

func (MultipleChoice) questionBody() {}
func (TrueFalse) questionBody()      {}
func (Essay) questionBody()          {}
func (FillBlank) questionBody()      {}

type Question struct {
	ID          string
	Text        string
	Image       string
	Points      float64
	Explanation string
	Body        QuestionBody
}

func (q Question) Type() QuestionType {
	if q.Body == nil {
		return ""
	}
	return q.Body.Type()
}

func (q Question) IsEssay() bool {
	_, ok := q.Body.(Essay)
	return ok
}

// Options returns the choice list for multiple-choice and true-false
// questions and nil for the other types.
func (q Question) Options() []Option {
	switch b := q.Body.(type) {
	case MultipleChoice:
		return b.Options
	case TrueFalse:
		return b.Options
	}
	return nil
}

// Validate checks the common and the type specific required fields.
func (q Question) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("question text is required")
	}
	if q.Points < 0 {
		return fmt.Errorf("question points cannot be negative")
	}
	switch b := q.Body.(type) {
	case MultipleChoice:
		if len(b.Options) < 2 {
			return fmt.Errorf("multiple-choice question requires at least 2 options")
		}
		return validateChoices(b.Options)
	case TrueFalse:
		if len(b.Options) != 2 {
			return fmt.Errorf("true-false question requires exactly 2 options")
		}
		return validateChoices(b.Options)
	case Essay:
		if b.MaxWords < 0 {
			return fmt.Errorf("essay max words cannot be negative")
		}
		return nil
	case FillBlank:
		for _, answer := range b.CorrectAnswers {
			if strings.TrimSpace(answer) != "" {
				return nil
			}
		}
		return fmt.Errorf("fill-blank question requires at least one correct answer")
	case nil:
		return fmt.Errorf("question type is required")
	}
	return fmt.Errorf("unsupported question type %q", q.Type())
}

func validateChoices(options []Option) error {
	correct := 0
	for _, opt := range options {
		if strings.TrimSpace(opt.Text) == "" {
			return fmt.Errorf("option text is required")
		}
		if opt.IsCorrect {
			correct++
		}
	}
	if correct != 1 {
		return fmt.Errorf("exactly one option must be marked correct, got %d", correct)
	}
	return nil
}

// questionDoc is the flat stored and transported shape of a Question.
type questionDoc struct {
	ID             string       `bson:"id" json:"id"`
	Type           QuestionType `bson:"type" json:"type"`
	Text           string       `bson:"text" json:"text"`
	Image          string       `bson:"image,omitempty" json:"image,omitempty"`
	Points         float64      `bson:"points" json:"points"`
	Explanation    string       `bson:"explanation,omitempty" json:"explanation,omitempty"`
	Options        []Option     `bson:"options,omitempty" json:"options,omitempty"`
	MaxWords       int          `bson:"maxWords,omitempty" json:"maxWords,omitempty"`
	Rubric         string       `bson:"rubric,omitempty" json:"rubric,omitempty"`
	CorrectAnswers []string     `bson:"correctAnswers,omitempty" json:"correctAnswers,omitempty"`
	CaseSensitive  bool         `bson:"caseSensitive,omitempty" json:"caseSensitive,omitempty"`
}

func (q Question) toDoc() questionDoc {
	doc := questionDoc{
		ID:          q.ID,
		Type:        q.Type(),
		Text:        q.Text,
		Image:       q.Image,
		Points:      q.Points,
		Explanation: q.Explanation,
	}
	switch b := q.Body.(type) {
	case MultipleChoice:
		doc.Options = b.Options
	case TrueFalse:
		doc.Options = b.Options
	case Essay:
		doc.MaxWords = b.MaxWords
		doc.Rubric = b.Rubric
	case FillBlank:
		doc.CorrectAnswers = b.CorrectAnswers
		doc.CaseSensitive = b.CaseSensitive
	}
	return doc
}

func (d questionDoc) toQuestion() (Question, error) {
	q := Question{
		ID:          d.ID,
		Text:        d.Text,
		Image:       d.Image,
		Points:      d.Points,
		Explanation: d.Explanation,
	}
	switch d.Type {
	case QuestionTypeMultipleChoice:
		q.Body = MultipleChoice{Options: d.Options}
	case QuestionTypeTrueFalse:
		q.Body = TrueFalse{Options: d.Options}
	case QuestionTypeEssay:
		q.Body = Essay{MaxWords: d.MaxWords, Rubric: d.Rubric}
	case QuestionTypeFillBlank:
		q.Body = FillBlank{CorrectAnswers: d.CorrectAnswers, CaseSensitive: d.CaseSensitive}
	default:
		return q, fmt.Errorf("unsupported question type %q", d.Type)
	}
	return q, nil
}

func (q Question) MarshalBSON() ([]byte, error) {
	return bson.Marshal(q.toDoc())
}

func (q *Question) UnmarshalBSON(data []byte) error {
	var doc questionDoc
	if err := bson.Unmarshal(data, &doc); err != nil {
		return err
	}
	parsed, err := doc.toQuestion()
	if err != nil {
		return err
	}
	*q = parsed
	return nil
}

func (q Question) MarshalJSON() ([]byte, error) {
	return json.Marshal(q.toDoc())
}

func (q *Question) UnmarshalJSON(data []byte) error {
	var doc questionDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	parsed, err := doc.toQuestion()
	if err != nil {
		return err
	}
	*q = parsed
	return nil
}
