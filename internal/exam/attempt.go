package exam

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/cikmis/examclient/internal/model"
)

// Phase is the lifecycle stage of an attempt.
type Phase string

const (
	PhaseReady      Phase = "ready"
	PhaseInProgress Phase = "in_progress"
	PhaseFinished   Phase = "finished"
	PhaseNoContent  Phase = "no_content"
)

// Result records the outcome of one answered question.
type Result struct {
	QuestionID int64
	Selected   string
	IsCorrect  bool
}

// Outcome is what the caller shows right after an answer is checked.
type Outcome struct {
	QuestionID    int64
	Selected      string
	IsCorrect     bool
	CorrectAnswer string
}

// Score summarizes a finished attempt.
type Score struct {
	Correct int `json:"correct"`
	Wrong   int `json:"wrong"`
	Total   int `json:"total"`
}

// Attempt is one run through a fixed, ordered list of questions.
// It is not safe for concurrent use; Session adds locking.
type Attempt struct {
	id        string
	examID    int64
	questions []model.Question
	current   int
	results   []Result
}

// NewAttempt starts an attempt over a private copy of questions.
func NewAttempt(examID int64, questions []model.Question) *Attempt {
	qs := make([]model.Question, len(questions))
	for i, q := range questions {
		q.Options = append([]string(nil), q.Options...)
		if q.Options == nil {
			q.Options = []string{}
		}
		qs[i] = q
	}
	return &Attempt{
		id:        uuid.NewString(),
		examID:    examID,
		questions: qs,
	}
}

// ID identifies this run; it changes on Retry.
func (a *Attempt) ID() string { return a.id }

// ExamID returns the exam the questions belong to.
func (a *Attempt) ExamID() int64 { return a.examID }

// Len returns the number of questions.
func (a *Attempt) Len() int { return len(a.questions) }

// Index returns the current position; Len() means finished.
func (a *Attempt) Index() int { return a.current }

// Phase reports where the attempt is in its lifecycle.
func (a *Attempt) Phase() Phase {
	switch {
	case len(a.questions) == 0:
		return PhaseNoContent
	case a.current >= len(a.questions):
		return PhaseFinished
	case a.current == 0 && len(a.results) == 0:
		return PhaseReady
	default:
		return PhaseInProgress
	}
}

// Current returns the question at the current index.
func (a *Attempt) Current() (model.Question, bool) {
	if a.current >= len(a.questions) {
		return model.Question{}, false
	}
	return a.questions[a.current], true
}

// Answered reports whether the current question already has a result.
func (a *Attempt) Answered() bool {
	return a.current < len(a.questions) && len(a.results) > a.current
}

// SubmitAnswer checks selected against the current question's answer by exact
// string equality and records the result. A second submission for the same
// index changes nothing and returns the recorded outcome with ErrAlreadyAnswered.
func (a *Attempt) SubmitAnswer(selected string) (Outcome, error) {
	q, ok := a.Current()
	if !ok {
		return Outcome{}, fmt.Errorf("submit answer in phase %s: %w", a.Phase(), ErrInvalidState)
	}
	if a.Answered() {
		r := a.results[a.current]
		return Outcome{QuestionID: r.QuestionID, Selected: r.Selected, IsCorrect: r.IsCorrect, CorrectAnswer: q.Answer}, ErrAlreadyAnswered
	}

	r := Result{QuestionID: q.ID, Selected: selected, IsCorrect: selected == q.Answer}
	a.results = append(a.results, r)
	return Outcome{QuestionID: q.ID, Selected: selected, IsCorrect: r.IsCorrect, CorrectAnswer: q.Answer}, nil
}

// Outcome returns the recorded outcome for the current question, if any.
func (a *Attempt) Outcome() (Outcome, bool) {
	if !a.Answered() {
		return Outcome{}, false
	}
	r := a.results[a.current]
	return Outcome{QuestionID: r.QuestionID, Selected: r.Selected, IsCorrect: r.IsCorrect, CorrectAnswer: a.questions[a.current].Answer}, true
}

// Advance moves past an answered question. Past the last question the attempt is finished.
func (a *Attempt) Advance() error {
	if a.current >= len(a.questions) {
		return fmt.Errorf("advance in phase %s: %w", a.Phase(), ErrInvalidState)
	}
	if !a.Answered() {
		return ErrNotAnswered
	}
	a.current++
	return nil
}

// Score counts correct and wrong answers. Only valid once finished.
func (a *Attempt) Score() (Score, error) {
	if a.Phase() != PhaseFinished {
		return Score{}, fmt.Errorf("score in phase %s: %w", a.Phase(), ErrInvalidState)
	}
	correct := 0
	for _, r := range a.results {
		if r.IsCorrect {
			correct++
		}
	}
	return Score{Correct: correct, Wrong: len(a.questions) - correct, Total: len(a.questions)}, nil
}

// Retry restarts the same questions from the beginning under a new id.
// It may be called in any phase.
func (a *Attempt) Retry() {
	a.id = uuid.NewString()
	a.current = 0
	a.results = nil
}

// Questions returns a copy of the question list.
func (a *Attempt) Questions() []model.Question {
	out := make([]model.Question, len(a.questions))
	copy(out, a.questions)
	return out
}

// Results returns a copy of the recorded results in answer order.
func (a *Attempt) Results() []Result {
	return append([]Result(nil), a.results...)
}
