package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cikmis/examclient/internal/exam"
	"github.com/cikmis/examclient/internal/handler/views"
)

func examIDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "examID"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid exam ID %q", chi.URLParam(r, "examID"))
	}
	return id, nil
}

// examSession returns the visitor's session for the exam in the URL, loading
// the questions on first use. ok is false when a response was already written.
func (h *Handler) examSession(w http.ResponseWriter, r *http.Request, create bool) (*exam.Session, int64, bool) {
	examID, err := examIDParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, 0, false
	}
	visitor := visitorFromContext(r.Context())
	if s, found := h.exams.get(visitor, examID, h.now()); found {
		return s, examID, true
	}
	if !create {
		// Session expired or server restarted; start over on the exam page.
		http.Redirect(w, r, h.path(fmt.Sprintf("/exam/%d", examID)), http.StatusSeeOther)
		return nil, 0, false
	}

	a, err := exam.Load(r.Context(), h.api, examID)
	if err != nil {
		msgID, status := "FetchFailed", http.StatusBadGateway
		if exam.KindOf(err) == exam.KindNotFound {
			msgID, status = "NoQuestions", http.StatusNotFound
		}
		h.render(w, r, status, views.ExamErrorPage(msgID))
		return nil, 0, false
	}
	s := exam.NewSession(a, h.assist)
	if kept := h.exams.put(visitor, examID, s, h.now()); kept != s {
		// A concurrent request for the same visitor loaded the exam first.
		return kept, examID, true
	}
	slog.Info("exam session started", "exam_id", examID, "attempt_id", a.ID(), "questions", a.Len())
	return s, examID, true
}

func (h *Handler) redirectToExam(w http.ResponseWriter, r *http.Request, examID int64) {
	http.Redirect(w, r, h.path(fmt.Sprintf("/exam/%d", examID)), http.StatusSeeOther)
}

func (h *Handler) handleExamPage(w http.ResponseWriter, r *http.Request) {
	s, _, ok := h.examSession(w, r, true)
	if !ok {
		return
	}
	v := s.View()
	if v.Phase == exam.PhaseFinished {
		h.recordAttempt(s)
	}
	h.render(w, r, http.StatusOK, views.ExamPage(v))
}

// recordAttempt stores a finished attempt in the local history once. A failed
// write is retried on the next page load.
func (h *Handler) recordAttempt(s *exam.Session) {
	var sum exam.Summary
	written, err := s.RecordOnce(func(got exam.Summary) error {
		sum = got
		return h.store.RecordAttempt(got.Record(h.now()))
	})
	if err != nil {
		slog.Error("failed to record attempt", "attempt_id", sum.AttemptID, "error", err)
		return
	}
	if written {
		slog.Info("attempt finished", "exam_id", sum.ExamID, "attempt_id", sum.AttemptID,
			"correct", sum.Score.Correct, "wrong", sum.Score.Wrong, "total", sum.Score.Total)
	}
}

// currentQuestion reports whether the form was rendered for the question the
// session is on now. A form from a stale page (back button, second tab) must
// not act on a later question.
func currentQuestion(r *http.Request, v exam.View) bool {
	idx, err := strconv.Atoi(r.FormValue("index"))
	return err == nil && idx == v.Index
}

func (h *Handler) handleAnswer(w http.ResponseWriter, r *http.Request) {
	s, examID, ok := h.examSession(w, r, false)
	if !ok {
		return
	}
	v := s.View()
	if !currentQuestion(r, v) {
		slog.Debug("stale answer ignored", "exam_id", examID, "form_index", r.FormValue("index"), "index", v.Index)
		h.redirectToExam(w, r, examID)
		return
	}
	idx, err := strconv.Atoi(r.FormValue("option"))
	if err != nil || idx < 0 || idx >= len(v.Options) {
		http.Error(w, "invalid option", http.StatusBadRequest)
		return
	}
	if _, err := s.SubmitAnswer(v.Options[idx].Text); err != nil && !errors.Is(err, exam.ErrAlreadyAnswered) {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	h.redirectToExam(w, r, examID)
}

func (h *Handler) handleNext(w http.ResponseWriter, r *http.Request) {
	s, examID, ok := h.examSession(w, r, false)
	if !ok {
		return
	}
	if !currentQuestion(r, s.View()) {
		slog.Debug("stale next ignored", "exam_id", examID, "form_index", r.FormValue("index"))
		h.redirectToExam(w, r, examID)
		return
	}
	if err := s.Advance(); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	h.redirectToExam(w, r, examID)
}

func (h *Handler) handleRetry(w http.ResponseWriter, r *http.Request) {
	s, examID, ok := h.examSession(w, r, false)
	if !ok {
		return
	}
	s.Retry()
	h.redirectToExam(w, r, examID)
}

// startAssist launches a background assist request bounded by the assist
// timeout. A busy request of the same kind is left running.
func (h *Handler) startAssist(start func(context.Context) error) error {
	ctx, cancel := h.assistContext()
	if err := start(ctx); err != nil {
		cancel()
		return err
	}
	time.AfterFunc(h.assistTimeout, cancel)
	return nil
}

func (h *Handler) handleExplain(w http.ResponseWriter, r *http.Request) {
	s, examID, ok := h.examSession(w, r, false)
	if !ok {
		return
	}
	if err := h.startAssist(s.StartExplain); err != nil && !errors.Is(err, exam.ErrAssistBusy) {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	h.redirectToExam(w, r, examID)
}

func (h *Handler) handleSimilar(w http.ResponseWriter, r *http.Request) {
	s, examID, ok := h.examSession(w, r, false)
	if !ok {
		return
	}
	if err := h.startAssist(s.StartSimilarQuestion); err != nil && !errors.Is(err, exam.ErrAssistBusy) {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	h.redirectToExam(w, r, examID)
}

func (h *Handler) handleCloseSimilar(w http.ResponseWriter, r *http.Request) {
	s, examID, ok := h.examSession(w, r, false)
	if !ok {
		return
	}
	s.CloseSimilar()
	h.redirectToExam(w, r, examID)
}
