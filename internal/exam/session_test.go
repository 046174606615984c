package exam

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cikmis/examclient/internal/model"
)

// fakeAssistant blocks each call until a value is sent on the matching channel
// when gate is set; otherwise it answers immediately.
type fakeAssistant struct {
	explainGate chan string
	similarGate chan *model.SimilarQuestion
	explainErr  error
	similarErr  error
	explainReqs []model.ExplainRequest
	similarReqs []model.SimilarRequest
	started     chan struct{}
}

func (f *fakeAssistant) Explain(ctx context.Context, req model.ExplainRequest) (string, error) {
	f.explainReqs = append(f.explainReqs, req)
	if f.explainErr != nil {
		return "", f.explainErr
	}
	if f.explainGate != nil {
		if f.started != nil {
			f.started <- struct{}{}
		}
		return <-f.explainGate, nil
	}
	return "because", nil
}

func (f *fakeAssistant) SimilarQuestion(ctx context.Context, req model.SimilarRequest) (*model.SimilarQuestion, error) {
	f.similarReqs = append(f.similarReqs, req)
	if f.similarErr != nil {
		return nil, f.similarErr
	}
	if f.similarGate != nil {
		if f.started != nil {
			f.started <- struct{}{}
		}
		return <-f.similarGate, nil
	}
	return &model.SimilarQuestion{Question: "Capital of Italy?", CorrectAns: "A"}, nil
}

func TestSessionExplain(t *testing.T) {
	fa := &fakeAssistant{}
	s := NewSession(NewAttempt(1, testQuestions(2)), fa)

	if _, err := s.SubmitAnswer("Lyon"); err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}
	text, err := s.Explain(context.Background())
	if err != nil {
		t.Fatalf("Explain: %v", err)
	}
	if text != "because" {
		t.Errorf("Explain = %q", text)
	}
	if v := s.View(); v.Explanation != "because" || v.ExplainLoading {
		t.Errorf("view not updated: %+v", v)
	}
	req := fa.explainReqs[0]
	if req.UserAnswer == nil || *req.UserAnswer != "Lyon" {
		t.Errorf("expected selected option in request")
	}
	if len(req.Options) != 3 || req.Options[2].Label != "C" {
		t.Errorf("unexpected labeled options: %+v", req.Options)
	}
}

func TestSessionExplainFallback(t *testing.T) {
	fa := &fakeAssistant{explainErr: errors.New("boom")}
	s := NewSession(NewAttempt(1, testQuestions(1)), fa)

	text, err := s.Explain(context.Background())
	if err != nil {
		t.Fatalf("Explain should not fail: %v", err)
	}
	if text != FallbackExplanation {
		t.Errorf("Explain = %q, want fallback", text)
	}
	v := s.View()
	if !v.ExplanationFailed {
		t.Errorf("expected ExplanationFailed")
	}
	if v.Index != 0 || v.Answered {
		t.Errorf("assist failure changed attempt state: %+v", v)
	}
}

func TestSessionExplainNoAssistant(t *testing.T) {
	s := NewSession(NewAttempt(1, testQuestions(1)), nil)
	text, err := s.Explain(context.Background())
	if err != nil || text != FallbackExplanation {
		t.Errorf("Explain = %q, %v; want fallback", text, err)
	}
}

func TestSessionStaleExplanation(t *testing.T) {
	fa := &fakeAssistant{explainGate: make(chan string), started: make(chan struct{})}
	s := NewSession(NewAttempt(1, testQuestions(2)), fa)
	_, _ = s.SubmitAnswer("Paris")

	type res struct {
		text string
		err  error
	}
	done := make(chan res)
	go func() {
		text, err := s.Explain(context.Background())
		done <- res{text, err}
	}()
	<-fa.started

	if _, err := s.Explain(context.Background()); !errors.Is(err, ErrAssistBusy) {
		t.Errorf("expected ErrAssistBusy for concurrent explain, got %v", err)
	}

	if err := s.Advance(); err != nil {
		t.Fatalf("Advance while explaining: %v", err)
	}
	fa.explainGate <- "explanation of question 1"
	r := <-done

	if !errors.Is(r.err, ErrStale) {
		t.Fatalf("expected ErrStale, got %v", r.err)
	}
	v := s.View()
	if v.Explanation != "" {
		t.Errorf("stale explanation attached to question %d: %q", v.Question.ID, v.Explanation)
	}
	if v.Question.ID != 2 {
		t.Errorf("expected question 2, got %d", v.Question.ID)
	}
}

func TestSessionAssistsIndependent(t *testing.T) {
	fa := &fakeAssistant{explainGate: make(chan string), started: make(chan struct{})}
	s := NewSession(NewAttempt(1, testQuestions(1)), fa)

	done := make(chan struct{})
	go func() {
		_, _ = s.Explain(context.Background())
		close(done)
	}()
	<-fa.started

	sq, err := s.SimilarQuestion(context.Background())
	if err != nil {
		t.Fatalf("SimilarQuestion while explaining: %v", err)
	}
	if sq.Question != "Capital of Italy?" {
		t.Errorf("unexpected similar question %+v", sq)
	}
	if !s.View().ExplainLoading {
		t.Errorf("explain should still be loading")
	}
	if _, err := s.SubmitAnswer("Paris"); err != nil {
		t.Errorf("answering must not wait on assists: %v", err)
	}

	fa.explainGate <- "done"
	<-done
	if got := s.View().Explanation; got != "done" {
		t.Errorf("Explanation = %q", got)
	}
}

func TestSessionSimilarQuestion(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		fa := &fakeAssistant{}
		s := NewSession(NewAttempt(1, testQuestions(1)), fa)
		if _, err := s.SimilarQuestion(context.Background()); err != nil {
			t.Fatalf("SimilarQuestion: %v", err)
		}
		want := "Question: Capital of France?\nOptions:\nA) Paris\nB) Lyon\nC) Marseille"
		if got := fa.similarReqs[0].OriginalQuestion; got != want {
			t.Errorf("original question = %q, want %q", got, want)
		}
		if s.View().Similar == nil {
			t.Errorf("expected similar question in view")
		}
		s.CloseSimilar()
		if s.View().Similar != nil {
			t.Errorf("expected overlay closed")
		}
	})

	t.Run("failure", func(t *testing.T) {
		fa := &fakeAssistant{similarErr: errors.New("model down")}
		s := NewSession(NewAttempt(1, testQuestions(1)), fa)
		_, _ = s.SubmitAnswer("Paris")
		_, err := s.SimilarQuestion(context.Background())
		if KindOf(err) != KindAssistFailed {
			t.Fatalf("expected KindAssistFailed, got %v", err)
		}
		v := s.View()
		if !v.SimilarFailed || !v.Answered || v.Index != 0 {
			t.Errorf("unexpected view after failure: %+v", v)
		}
	})
}

func TestSessionAdvanceClearsTransientState(t *testing.T) {
	s := NewSession(NewAttempt(1, testQuestions(2)), &fakeAssistant{})
	_, _ = s.SubmitAnswer("Paris")
	_, _ = s.Explain(context.Background())
	_, _ = s.SimilarQuestion(context.Background())

	if err := s.Advance(); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	v := s.View()
	if v.Explanation != "" || v.Similar != nil || v.Answered {
		t.Errorf("transient state survived advance: %+v", v)
	}
	if v.Index != 1 || !v.IsLast {
		t.Errorf("expected last question at index 1, got %+v", v)
	}
}

func TestSessionSummaryAndRecord(t *testing.T) {
	s := NewSession(NewAttempt(3, testQuestions(2)), nil)
	if _, err := s.Summary(); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("Summary before finish: expected ErrInvalidState, got %v", err)
	}
	for _, sel := range []string{"Paris", "Lyon"} {
		_, _ = s.SubmitAnswer(sel)
		_ = s.Advance()
	}
	sum, err := s.Summary()
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if sum.ExamID != 3 || sum.Score != (Score{Correct: 1, Wrong: 1, Total: 2}) || len(sum.Results) != 2 {
		t.Errorf("unexpected summary %+v", sum)
	}
	var writes int
	write := func(Summary) error { writes++; return nil }
	if ok, err := s.RecordOnce(write); !ok || err != nil {
		t.Errorf("first RecordOnce = %v, %v", ok, err)
	}
	if ok, _ := s.RecordOnce(write); ok {
		t.Errorf("second RecordOnce should not write")
	}
	s.Retry()
	if s.View().Phase != PhaseReady {
		t.Errorf("expected ready after retry")
	}
	for range 2 {
		_, _ = s.SubmitAnswer("Paris")
		_ = s.Advance()
	}
	if ok, _ := s.RecordOnce(write); !ok {
		t.Errorf("retried attempt should be recorded again")
	}
	if writes != 2 {
		t.Errorf("writes = %d, want 2", writes)
	}
}

func TestSessionRecordOnceRetriesFailedWrite(t *testing.T) {
	s := NewSession(NewAttempt(3, testQuestions(1)), nil)
	if _, err := s.RecordOnce(func(Summary) error { return nil }); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("RecordOnce before finish: expected ErrInvalidState, got %v", err)
	}
	_, _ = s.SubmitAnswer("Paris")
	_ = s.Advance()

	diskFull := errors.New("disk full")
	if ok, err := s.RecordOnce(func(Summary) error { return diskFull }); ok || !errors.Is(err, diskFull) {
		t.Fatalf("failed write: got %v, %v", ok, err)
	}
	var got []Summary
	ok, err := s.RecordOnce(func(sum Summary) error { got = append(got, sum); return nil })
	if !ok || err != nil {
		t.Fatalf("RecordOnce after failure = %v, %v", ok, err)
	}
	if len(got) != 1 || got[0].Score.Correct != 1 {
		t.Errorf("unexpected summaries %+v", got)
	}
	if ok, _ := s.RecordOnce(func(Summary) error { t.Error("written twice"); return nil }); ok {
		t.Errorf("expected no second write")
	}
}

func TestSummaryRecord(t *testing.T) {
	s := NewSession(NewAttempt(8, testQuestions(2)), nil)
	for _, sel := range []string{"Lyon", "Paris"} {
		_, _ = s.SubmitAnswer(sel)
		_ = s.Advance()
	}
	sum, err := s.Summary()
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	rec := sum.Record(at)
	if rec.ID != sum.AttemptID || rec.ExamID != 8 || !rec.FinishedAt.Equal(at) {
		t.Errorf("unexpected record header %+v", rec)
	}
	if rec.Correct != 1 || rec.Wrong != 1 || rec.Total != 2 || len(rec.Answers) != 2 {
		t.Fatalf("unexpected record counts %+v", rec)
	}
	if rec.Answers[0].Selected != "Lyon" || rec.Answers[0].IsCorrect || rec.Answers[1].Position != 1 {
		t.Errorf("unexpected answers %+v", rec.Answers)
	}
}

func TestSessionStartExplain(t *testing.T) {
	fa := &fakeAssistant{explainGate: make(chan string), started: make(chan struct{})}
	s := NewSession(NewAttempt(1, testQuestions(1)), fa)

	if err := s.StartExplain(context.Background()); err != nil {
		t.Fatalf("StartExplain: %v", err)
	}
	if !s.View().ExplainLoading {
		t.Fatal("loading flag should be set before StartExplain returns")
	}
	<-fa.started
	if err := s.StartExplain(context.Background()); !errors.Is(err, ErrAssistBusy) {
		t.Errorf("expected ErrAssistBusy, got %v", err)
	}

	fa.explainGate <- "because"
	deadline := time.After(2 * time.Second)
	for s.View().ExplainLoading {
		select {
		case <-deadline:
			t.Fatal("explanation never arrived")
		case <-time.After(5 * time.Millisecond):
		}
	}
	if got := s.View().Explanation; got != "because" {
		t.Errorf("Explanation = %q", got)
	}
}

func TestSessionStartSimilarAfterFinish(t *testing.T) {
	s := NewSession(NewAttempt(1, testQuestions(1)), &fakeAssistant{})
	_, _ = s.SubmitAnswer("Paris")
	_ = s.Advance()
	if err := s.StartSimilarQuestion(context.Background()); !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected ErrInvalidState after finish, got %v", err)
	}
}
