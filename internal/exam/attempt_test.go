package exam

import (
	"errors"
	"reflect"
	"testing"

	"github.com/cikmis/examclient/internal/model"
)

func testQuestions(n int) []model.Question {
	qs := make([]model.Question, n)
	for i := range qs {
		qs[i] = model.Question{
			ID:           int64(i + 1),
			QuestionText: "Capital of France?",
			Answer:       "Paris",
			Options:      []string{"Paris", "Lyon", "Marseille"},
		}
	}
	return qs
}

func TestSubmitAnswerCorrectness(t *testing.T) {
	tests := []struct {
		name     string
		selected string
		want     bool
	}{
		{"correct", "Paris", true},
		{"wrong", "Lyon", false},
		{"case differs", "paris", false},
		{"not an option", "Nice", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAttempt(1, testQuestions(1))
			o, err := a.SubmitAnswer(tt.selected)
			if err != nil {
				t.Fatalf("SubmitAnswer: %v", err)
			}
			if o.IsCorrect != tt.want {
				t.Errorf("IsCorrect = %v, want %v", o.IsCorrect, tt.want)
			}
			if o.CorrectAnswer != "Paris" {
				t.Errorf("CorrectAnswer = %q, want 'Paris'", o.CorrectAnswer)
			}
		})
	}
}

func TestSubmitAnswerIdempotent(t *testing.T) {
	a := NewAttempt(1, testQuestions(2))

	if _, err := a.SubmitAnswer("Lyon"); err != nil {
		t.Fatalf("first SubmitAnswer: %v", err)
	}
	o, err := a.SubmitAnswer("Paris")
	if !errors.Is(err, ErrAlreadyAnswered) {
		t.Fatalf("expected ErrAlreadyAnswered, got %v", err)
	}
	if o.IsCorrect || o.Selected != "Lyon" {
		t.Errorf("second submit changed outcome: %+v", o)
	}
	if got := len(a.Results()); got != 1 {
		t.Errorf("expected 1 result, got %d", got)
	}
}

func TestAdvanceRequiresAnswer(t *testing.T) {
	a := NewAttempt(1, testQuestions(2))
	if err := a.Advance(); !errors.Is(err, ErrNotAnswered) {
		t.Fatalf("expected ErrNotAnswered, got %v", err)
	}
	if a.Index() != 0 {
		t.Errorf("index moved to %d", a.Index())
	}
}

func TestFullRunScore(t *testing.T) {
	a := NewAttempt(7, testQuestions(3))
	if a.Phase() != PhaseReady {
		t.Fatalf("expected ready, got %s", a.Phase())
	}

	for i, sel := range []string{"Paris", "Lyon", "Paris"} {
		if got := len(a.Results()); got != a.Index() {
			t.Fatalf("before answering %d: len(results)=%d index=%d", i, got, a.Index())
		}
		if _, err := a.SubmitAnswer(sel); err != nil {
			t.Fatalf("SubmitAnswer %d: %v", i, err)
		}
		if a.Phase() != PhaseInProgress {
			t.Errorf("expected in_progress, got %s", a.Phase())
		}
		if _, err := a.Score(); !errors.Is(err, ErrInvalidState) {
			t.Errorf("Score before finish: expected ErrInvalidState, got %v", err)
		}
		if err := a.Advance(); err != nil {
			t.Fatalf("Advance %d: %v", i, err)
		}
	}

	if a.Phase() != PhaseFinished {
		t.Fatalf("expected finished, got %s", a.Phase())
	}
	if a.Index() != a.Len() {
		t.Errorf("index = %d, want %d", a.Index(), a.Len())
	}
	sc, err := a.Score()
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	want := Score{Correct: 2, Wrong: 1, Total: 3}
	if sc != want {
		t.Errorf("Score = %+v, want %+v", sc, want)
	}
	if sc.Correct+sc.Wrong != sc.Total {
		t.Errorf("correct+wrong != total")
	}
	if len(a.Results()) != a.Len() {
		t.Errorf("expected one result per question")
	}
}

func TestOperationsAfterFinish(t *testing.T) {
	a := NewAttempt(1, testQuestions(1))
	_, _ = a.SubmitAnswer("Paris")
	_ = a.Advance()

	if _, err := a.SubmitAnswer("Paris"); !errors.Is(err, ErrInvalidState) {
		t.Errorf("SubmitAnswer after finish: expected ErrInvalidState, got %v", err)
	}
	if err := a.Advance(); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Advance after finish: expected ErrInvalidState, got %v", err)
	}
	if KindOf(func() error { _, err := a.SubmitAnswer("x"); return err }()) != KindInvalidState {
		t.Errorf("expected KindInvalidState")
	}
}

func TestRetryKeepsQuestions(t *testing.T) {
	a := NewAttempt(1, testQuestions(2))
	before := a.Questions()
	firstID := a.ID()

	for _, sel := range []string{"Paris", "Lyon"} {
		_, _ = a.SubmitAnswer(sel)
		_ = a.Advance()
	}
	if a.Phase() != PhaseFinished {
		t.Fatalf("expected finished, got %s", a.Phase())
	}

	a.Retry()
	if a.Index() != 0 {
		t.Errorf("index = %d, want 0", a.Index())
	}
	if len(a.Results()) != 0 {
		t.Errorf("results not cleared")
	}
	if !reflect.DeepEqual(before, a.Questions()) {
		t.Errorf("questions changed on retry")
	}
	if a.ID() == firstID {
		t.Errorf("retry should assign a new attempt id")
	}
	if a.Phase() != PhaseReady {
		t.Errorf("expected ready after retry, got %s", a.Phase())
	}
}

func TestEmptyAttempt(t *testing.T) {
	a := NewAttempt(1, nil)
	if a.Phase() != PhaseNoContent {
		t.Fatalf("expected no_content, got %s", a.Phase())
	}
	if _, err := a.SubmitAnswer("x"); !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected ErrInvalidState, got %v", err)
	}
	if _, err := a.Score(); !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected ErrInvalidState from Score, got %v", err)
	}
}

func TestAnswerNotAmongOptions(t *testing.T) {
	a := NewAttempt(1, []model.Question{{ID: 1, QuestionText: "Q", Answer: "Z", Options: []string{"A", "B"}}})
	o, err := a.SubmitAnswer("A")
	if err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}
	if o.IsCorrect {
		t.Errorf("no option can match an answer outside the list")
	}
	if err := a.Advance(); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	sc, _ := a.Score()
	if sc.Wrong != 1 {
		t.Errorf("expected 1 wrong, got %d", sc.Wrong)
	}
}

func TestNewAttemptCopiesQuestions(t *testing.T) {
	qs := testQuestions(1)
	a := NewAttempt(1, qs)
	qs[0].Options[0] = "Berlin"
	qs[0].Answer = "Berlin"

	q, _ := a.Current()
	if q.Options[0] != "Paris" || q.Answer != "Paris" {
		t.Errorf("attempt shares storage with caller: %+v", q)
	}
}
