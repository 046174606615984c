package authoring

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cikmis/examclient/internal/model"
)

// ExamInfo is the exam-metadata step of the wizard.
type ExamInfo struct {
	CourseName string `json:"course_name"`
	Year       int    `json:"year"`
	Semester   string `json:"semester"`
}

// NewExamInfo returns an empty form with the year defaulted to now.
func NewExamInfo(now time.Time) ExamInfo {
	return ExamInfo{Year: now.Year()}
}

// Validate checks that all fields are filled.
func (e ExamInfo) Validate() error {
	switch {
	case strings.TrimSpace(e.CourseName) == "":
		return fmt.Errorf("%w: course name is required", ErrIncomplete)
	case e.Year <= 0:
		return fmt.Errorf("%w: year is required", ErrIncomplete)
	case strings.TrimSpace(e.Semester) == "":
		return fmt.Errorf("%w: semester is required", ErrIncomplete)
	}
	return nil
}

// Title composes the exam title as "<course> <year> <semester>".
func (e ExamInfo) Title() string {
	return fmt.Sprintf("%s %d %s", strings.TrimSpace(e.CourseName), e.Year, strings.TrimSpace(e.Semester))
}

// Uploader creates exams and attaches questions on the remote service.
type Uploader interface {
	CreateExam(ctx context.Context, e model.Exam) (*model.Exam, error)
	UploadQuestions(ctx context.Context, examID int64, questions []model.QuestionUpload) (int, error)
}

// Submit creates the exam under classLevelID and uploads its questions.
// It returns the created exam and the number of stored questions.
func Submit(ctx context.Context, up Uploader, classLevelID int64, info ExamInfo, questions []model.QuestionUpload) (*model.Exam, int, error) {
	if classLevelID == 0 {
		return nil, 0, fmt.Errorf("%w: class level is required", ErrIncomplete)
	}
	if err := info.Validate(); err != nil {
		return nil, 0, err
	}
	if len(questions) == 0 {
		return nil, 0, ErrNoQuestions
	}

	created, err := up.CreateExam(ctx, model.Exam{
		Title:        info.Title(),
		CourseName:   strings.TrimSpace(info.CourseName),
		Year:         info.Year,
		Semester:     strings.TrimSpace(info.Semester),
		ClassLevelID: &classLevelID,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("create exam: %w", err)
	}

	n, err := up.UploadQuestions(ctx, created.ID, questions)
	if err != nil {
		return created, 0, fmt.Errorf("upload questions to exam %d: %w", created.ID, err)
	}
	return created, n, nil
}
