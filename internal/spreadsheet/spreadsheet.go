// Package spreadsheet converts between xlsx workbooks and quiz definitions.
//
// The first sheet holds a header row. Quiz metadata columns are read from
// the first data row only; every data row that has both Question and
// QuestionType becomes a question.
package spreadsheet

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/HuynhHoangThai/Oncademy-sub000/internal/apperr"
	"github.com/HuynhHoangThai/Oncademy-sub000/internal/models"
)

const (
	ColQuizTitle       = "QuizTitle"
	ColQuizDescription = "QuizDescription"
	ColQuizType        = "QuizType"
	ColDuration        = "Duration"
	ColPassingScore    = "PassingScore"
	ColQuestion        = "Question"
	ColQuestionType    = "QuestionType"
	ColPoints          = "Points"
	ColOptionA         = "OptionA"
	ColOptionB         = "OptionB"
	ColOptionC         = "OptionC"
	ColOptionD         = "OptionD"
	ColCorrectAnswer   = "CorrectAnswer"
	ColExplanation     = "Explanation"
	ColMaxWords        = "MaxWords"
	ColRubric          = "Rubric"
	ColCaseSensitive   = "CaseSensitive"
)

const (
	DefaultQuizTitle    = "Imported Quiz"
	DefaultQuizType     = "practice"
	DefaultDuration     = 30
	DefaultPassingScore = 70.0
	DefaultPoints       = 1.0
	DefaultMaxWords     = 500
)

// Columns is the header row written by Template and understood by Parse.
var Columns = []string{
	ColQuizTitle, ColQuizDescription, ColQuizType, ColDuration, ColPassingScore,
	ColQuestion, ColQuestionType, ColPoints,
	ColOptionA, ColOptionB, ColOptionC, ColOptionD,
	ColCorrectAnswer, ColExplanation, ColMaxWords, ColRubric, ColCaseSensitive,
}

var optionColumns = []string{ColOptionA, ColOptionB, ColOptionC, ColOptionD}

const templateSheet = "Quiz"

type row struct {
	number int
	cells  []string
	header map[string]int
}

func (r row) get(col string) string {
	i, ok := r.header[col]
	if !ok || i >= len(r.cells) {
		return ""
	}
	return strings.TrimSpace(r.cells[i])
}

// Parse reads the first sheet of an xlsx workbook into an unsaved quiz. The
// returned quiz carries no content reference, owner or id.
func Parse(r io.Reader) (*models.Quiz, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindImport, err, "file is not a readable xlsx workbook")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperr.Import("file is empty")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, apperr.Wrap(apperr.KindImport, err, "failed to read sheet")
	}
	if len(rows) < 2 {
		return nil, apperr.Import("file is empty")
	}

	header := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		name = strings.TrimSpace(name)
		if name != "" {
			header[name] = i
		}
	}
	if _, ok := header[ColQuestion]; !ok {
		return nil, apperr.Import("missing %s column", ColQuestion)
	}
	if _, ok := header[ColQuestionType]; !ok {
		return nil, apperr.Import("missing %s column", ColQuestionType)
	}

	first := row{number: 2, cells: rows[1], header: header}
	quiz, err := parseMetadata(first)
	if err != nil {
		return nil, err
	}

	for i, cells := range rows[1:] {
		current := row{number: i + 2, cells: cells, header: header}
		if current.get(ColQuestion) == "" || current.get(ColQuestionType) == "" {
			continue
		}
		question, err := parseQuestion(current)
		if err != nil {
			return nil, err
		}
		quiz.Questions = append(quiz.Questions, question)
	}

	if len(quiz.Questions) == 0 {
		return nil, apperr.Import("no questions found in file")
	}
	quiz.RecalculateTotalPoints()
	return quiz, nil
}

func parseMetadata(r row) (*models.Quiz, error) {
	quiz := &models.Quiz{
		Title:        r.get(ColQuizTitle),
		Description:  r.get(ColQuizDescription),
		Type:         r.get(ColQuizType),
		Duration:     DefaultDuration,
		PassingScore: DefaultPassingScore,
	}
	if quiz.Title == "" {
		quiz.Title = DefaultQuizTitle
	}
	if quiz.Type == "" {
		quiz.Type = DefaultQuizType
	}
	if v := r.get(ColDuration); v != "" {
		duration, err := strconv.Atoi(v)
		if err != nil || duration < 0 {
			return nil, apperr.Import("row %d: invalid %s %q", r.number, ColDuration, v)
		}
		quiz.Duration = duration
	}
	if v := r.get(ColPassingScore); v != "" {
		score, err := strconv.ParseFloat(v, 64)
		if err != nil || score < 0 || score > 100 {
			return nil, apperr.Import("row %d: invalid %s %q", r.number, ColPassingScore, v)
		}
		quiz.PassingScore = score
	}
	return quiz, nil
}

func parseQuestion(r row) (models.Question, error) {
	q := models.Question{
		ID:          uuid.NewString(),
		Text:        r.get(ColQuestion),
		Explanation: r.get(ColExplanation),
		Points:      DefaultPoints,
	}
	if v := r.get(ColPoints); v != "" {
		points, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return q, apperr.Import("row %d: invalid %s %q", r.number, ColPoints, v)
		}
		q.Points = points
	}

	kind := models.QuestionType(strings.ToLower(r.get(ColQuestionType)))
	correct := r.get(ColCorrectAnswer)

	switch kind {
	case models.QuestionTypeMultipleChoice:
		options, err := letterOptions(r, correct)
		if err != nil {
			return q, err
		}
		q.Body = models.MultipleChoice{Options: options}
	case models.QuestionTypeTrueFalse:
		var truth bool
		switch strings.ToLower(correct) {
		case "true":
			truth = true
		case "false":
		default:
			return q, apperr.Import("row %d: %s must be true or false, got %q", r.number, ColCorrectAnswer, correct)
		}
		q.Body = models.TrueFalse{Options: []models.Option{
			{ID: uuid.NewString(), Text: "True", IsCorrect: truth},
			{ID: uuid.NewString(), Text: "False", IsCorrect: !truth},
		}}
	case models.QuestionTypeFillBlank:
		var answers []string
		for _, answer := range strings.Split(correct, "|") {
			if answer = strings.TrimSpace(answer); answer != "" {
				answers = append(answers, answer)
			}
		}
		q.Body = models.FillBlank{
			CorrectAnswers: answers,
			CaseSensitive:  strings.EqualFold(r.get(ColCaseSensitive), "yes"),
		}
	case models.QuestionTypeEssay:
		maxWords := DefaultMaxWords
		if v := r.get(ColMaxWords); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return q, apperr.Import("row %d: invalid %s %q", r.number, ColMaxWords, v)
			}
			maxWords = n
		}
		q.Body = models.Essay{MaxWords: maxWords, Rubric: r.get(ColRubric)}
	default:
		return q, apperr.Import("row %d: unknown question type %q", r.number, r.get(ColQuestionType))
	}

	if err := q.Validate(); err != nil {
		return q, apperr.Wrap(apperr.KindImport, err, fmt.Sprintf("row %d: invalid question", r.number))
	}
	return q, nil
}

func letterOptions(r row, correct string) ([]models.Option, error) {
	letter := strings.ToUpper(correct)
	if len(letter) != 1 || letter[0] < 'A' || letter[0] > 'D' {
		return nil, apperr.Import("row %d: %s must be a letter A-D, got %q", r.number, ColCorrectAnswer, correct)
	}

	var options []models.Option
	matched := false
	for i, col := range optionColumns {
		text := r.get(col)
		if text == "" {
			continue
		}
		isCorrect := string(rune('A'+i)) == letter
		matched = matched || isCorrect
		options = append(options, models.Option{ID: uuid.NewString(), Text: text, IsCorrect: isCorrect})
	}
	if !matched {
		return nil, apperr.Import("row %d: correct option %s is empty", r.number, letter)
	}
	return options, nil
}

// Template returns an xlsx workbook with one example row per question type.
func Template() (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", templateSheet); err != nil {
		return nil, fmt.Errorf("failed to name template sheet: %w", err)
	}

	header := make([]interface{}, len(Columns))
	for i, col := range Columns {
		header[i] = col
	}
	if err := f.SetSheetRow(templateSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write template header: %w", err)
	}

	for i, example := range templateRows {
		values := make([]interface{}, len(Columns))
		for j, col := range Columns {
			values[j] = example[col]
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve template cell: %w", err)
		}
		if err := f.SetSheetRow(templateSheet, cell, &values); err != nil {
			return nil, fmt.Errorf("failed to write template row: %w", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render template: %w", err)
	}
	return buf, nil
}

var templateRows = []map[string]string{
	{
		ColQuizTitle:       "Sample Quiz",
		ColQuizDescription: "Replace these rows with your own questions",
		ColQuizType:        DefaultQuizType,
		ColDuration:        "30",
		ColPassingScore:    "70",
		ColQuestion:        "Which planet is known as the Red Planet?",
		ColQuestionType:    string(models.QuestionTypeMultipleChoice),
		ColPoints:          "2",
		ColOptionA:         "Venus",
		ColOptionB:         "Mars",
		ColOptionC:         "Jupiter",
		ColOptionD:         "Saturn",
		ColCorrectAnswer:   "B",
		ColExplanation:     "Iron oxide gives Mars its color.",
	},
	{
		ColQuestion:      "The Earth orbits the Sun.",
		ColQuestionType:  string(models.QuestionTypeTrueFalse),
		ColPoints:        "1",
		ColCorrectAnswer: "true",
	},
	{
		ColQuestion:     "Explain the water cycle in your own words.",
		ColQuestionType: string(models.QuestionTypeEssay),
		ColPoints:       "5",
		ColMaxWords:     "300",
		ColRubric:       "Covers evaporation and precipitation.",
	},
	{
		ColQuestion:      "The capital of France is ____.",
		ColQuestionType:  string(models.QuestionTypeFillBlank),
		ColPoints:        "1",
		ColCorrectAnswer: "Paris|paris",
		ColCaseSensitive: "no",
	},
}
