package exam

import (
	"context"
	"errors"
	"testing"

	"github.com/cikmis/examclient/internal/model"
)

type statusErr int

func (e statusErr) Error() string  { return "status error" }
func (e statusErr) NotFound() bool { return e == 404 }

type fakeSource struct {
	questions []model.Question
	err       error
	calls     int
}

func (f *fakeSource) ExamQuestions(ctx context.Context, examID int64) ([]model.Question, error) {
	f.calls++
	return f.questions, f.err
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name      string
		src       *fakeSource
		wantKind  Kind
		wantPhase Phase
	}{
		{"ok", &fakeSource{questions: testQuestions(2)}, "", PhaseReady},
		{"empty", &fakeSource{questions: []model.Question{}}, "", PhaseNoContent},
		{"not found", &fakeSource{err: statusErr(404)}, KindNotFound, ""},
		{"server error", &fakeSource{err: statusErr(500)}, KindFetchFailed, ""},
		{"transport error", &fakeSource{err: errors.New("connection refused")}, KindFetchFailed, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := Load(context.Background(), tt.src, 9)
			if tt.wantKind != "" {
				if KindOf(err) != tt.wantKind {
					t.Fatalf("expected kind %s, got %v", tt.wantKind, err)
				}
				if a != nil {
					t.Errorf("attempt should not be constructed on %s", tt.wantKind)
				}
				return
			}
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if a.Phase() != tt.wantPhase {
				t.Errorf("phase = %s, want %s", a.Phase(), tt.wantPhase)
			}
			if a.ExamID() != 9 {
				t.Errorf("exam id = %d, want 9", a.ExamID())
			}
		})
	}
}

func TestRetryDoesNotRefetch(t *testing.T) {
	src := &fakeSource{questions: testQuestions(2)}
	a, err := Load(context.Background(), src, 1)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	_, _ = a.SubmitAnswer("Paris")
	a.Retry()
	if src.calls != 1 {
		t.Errorf("expected 1 fetch, got %d", src.calls)
	}
}
