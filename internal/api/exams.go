package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/cikmis/examclient/internal/exam"
	"github.com/cikmis/examclient/internal/model"
)

type wireQuestion struct {
	ID           int64           `json:"id"`
	ExamID       int64           `json:"exam_id"`
	QuestionText string          `json:"question_text"`
	Answer       string          `json:"answer"`
	Options      json.RawMessage `json:"options"`
}

// ExamQuestions fetches the question set of one exam. Options are normalized;
// a question whose options cannot be decoded gets an empty list.
func (c *Client) ExamQuestions(ctx context.Context, examID int64) ([]model.Question, error) {
	var wire []wireQuestion
	if err := c.getJSON(ctx, fmt.Sprintf("/exams/%d/questions", examID), nil, &wire); err != nil {
		return nil, err
	}

	questions := make([]model.Question, 0, len(wire))
	for _, w := range wire {
		opts, err := exam.NormalizeOptions(w.Options)
		if err != nil {
			slog.Warn("malformed question options", "exam_id", examID, "question_id", w.ID, "error", err)
		}
		questions = append(questions, model.Question{
			ID:           w.ID,
			ExamID:       w.ExamID,
			QuestionText: w.QuestionText,
			Answer:       w.Answer,
			Options:      opts,
		})
	}
	return questions, nil
}

// Explain requests an explanation for a question.
func (c *Client) Explain(ctx context.Context, req model.ExplainRequest) (string, error) {
	var resp model.ExplainResponse
	if err := c.postJSON(ctx, "/exams/explain-question", req, &resp); err != nil {
		return "", err
	}
	return resp.Explanation, nil
}

type wireSimilar struct {
	Question   string               `json:"question"`
	Options    []exam.SimilarOption `json:"options"`
	CorrectAns string               `json:"correct_ans"`
}

// SimilarQuestion requests a question similar to req.OriginalQuestion.
func (c *Client) SimilarQuestion(ctx context.Context, req model.SimilarRequest) (*model.SimilarQuestion, error) {
	var w wireSimilar
	if err := c.postJSON(ctx, "/exams/generate-similar-question", req, &w); err != nil {
		return nil, err
	}
	return w.toModel(), nil
}

func (w wireSimilar) toModel() *model.SimilarQuestion {
	return &model.SimilarQuestion{
		Question:   w.Question,
		Options:    exam.LabelSimilarOptions(w.Options),
		CorrectAns: w.CorrectAns,
	}
}

// Exams lists exams matching f.
func (c *Client) Exams(ctx context.Context, f model.ExamFilter) ([]model.Exam, error) {
	q := url.Values{}
	setID := func(k string, v int64) {
		if v != 0 {
			q.Set(k, strconv.FormatInt(v, 10))
		}
	}
	setID("university_id", f.UniversityID)
	setID("department_id", f.DepartmentID)
	setID("class_level_id", f.ClassLevelID)
	if f.ClassLevel != 0 {
		q.Set("class_level", strconv.Itoa(f.ClassLevel))
	}
	if f.CourseName != "" {
		q.Set("course_name", f.CourseName)
	}
	if f.Year != 0 {
		q.Set("year", strconv.Itoa(f.Year))
	}
	if f.Semester != "" {
		q.Set("semester", f.Semester)
	}

	var exams []model.Exam
	if err := c.getJSON(ctx, "/exams/", q, &exams); err != nil {
		return nil, err
	}
	return exams, nil
}

// CreateExam creates an exam and returns it with its id.
func (c *Client) CreateExam(ctx context.Context, e model.Exam) (*model.Exam, error) {
	var out model.Exam
	if err := c.postJSON(ctx, "/exams/", e, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UploadQuestions attaches questions to an existing exam.
func (c *Client) UploadQuestions(ctx context.Context, examID int64, questions []model.QuestionUpload) (int, error) {
	var created []json.RawMessage
	if err := c.postJSON(ctx, fmt.Sprintf("/exams/%d/upload-questions", examID), questions, &created); err != nil {
		return 0, err
	}
	return len(created), nil
}
