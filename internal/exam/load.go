package exam

import (
	"context"
	"errors"
	"log/slog"

	"github.com/cikmis/examclient/internal/model"
)

// QuestionSource fetches the question set of one exam.
type QuestionSource interface {
	ExamQuestions(ctx context.Context, examID int64) ([]model.Question, error)
}

// notFound is implemented by transport errors that mean "nothing here".
type notFound interface {
	NotFound() bool
}

// Load fetches the questions of examID and starts an attempt over them.
// Fetch failures are classified as KindNotFound or KindFetchFailed and no
// attempt is returned. An empty question set yields an attempt in PhaseNoContent.
func Load(ctx context.Context, src QuestionSource, examID int64) (*Attempt, error) {
	questions, err := src.ExamQuestions(ctx, examID)
	if err != nil {
		var nf notFound
		if errors.As(err, &nf) && nf.NotFound() {
			slog.Info("exam has no questions", "exam_id", examID)
			return nil, &Error{Kind: KindNotFound, Detail: "no questions for this exam", Err: err}
		}
		slog.Error("fetch questions failed", "exam_id", examID, "error", err)
		return nil, &Error{Kind: KindFetchFailed, Detail: "could not load questions", Err: err}
	}

	a := NewAttempt(examID, questions)
	slog.Debug("attempt started", "exam_id", examID, "attempt_id", a.ID(), "questions", a.Len())
	return a, nil
}
