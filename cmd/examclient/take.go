package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/cikmis/examclient/internal/exam"
	appI18n "github.com/cikmis/examclient/internal/i18n"
	"github.com/cikmis/examclient/internal/model"
)

// runner plays one exam session on a line-oriented terminal.
type runner struct {
	in            io.Reader
	out           io.Writer
	session       *exam.Session
	assistTimeout time.Duration
	record        func(model.AttemptRecord) error
}

func (r *runner) printf(format string, args ...any) {
	fmt.Fprintf(r.out, format, args...)
}

func (r *runner) run(ctx context.Context) error {
	sc := bufio.NewScanner(r.in)
	shown := ""
	for {
		v := r.session.View()
		switch v.Phase {
		case exam.PhaseNoContent:
			r.printf("%s\n", appI18n.T(ctx, "NoContent"))
			return nil
		case exam.PhaseFinished:
			if key := v.AttemptID + "/done"; shown != key {
				r.finish(ctx, v)
				shown = key
			}
			r.recordFinished(v)
			r.printf("%s\n> ", appI18n.T(ctx, "TerminalFinished"))
		default:
			if key := v.AttemptID + "/" + strconv.Itoa(v.Index); shown != key {
				r.showQuestion(ctx, v)
				shown = key
			}
			r.printf("> ")
		}

		if !sc.Scan() {
			return sc.Err()
		}
		cmd := strings.ToLower(strings.TrimSpace(sc.Text()))
		if cmd == "q" {
			return nil
		}
		if v.Phase == exam.PhaseFinished {
			if cmd == "r" {
				r.session.Retry()
			}
			continue
		}
		r.handle(ctx, v, cmd)
	}
}

func (r *runner) showQuestion(ctx context.Context, v exam.View) {
	r.printf("\n%s\n%s\n", appI18n.Td(ctx, "QuestionN", map[string]any{"N": v.Index + 1, "Total": v.Total}), v.Question.QuestionText)
	for i, o := range v.Options {
		r.printf("  %d. %s) %s\n", i+1, o.Label, o.Text)
	}
	r.printf("%s\n", appI18n.Td(ctx, "TerminalHelp", map[string]any{"N": len(v.Options)}))
}

func (r *runner) handle(ctx context.Context, v exam.View, cmd string) {
	switch cmd {
	case "n":
		if err := r.session.Advance(); err != nil {
			r.printf("%s\n", appI18n.T(ctx, "InvalidChoice"))
		}
	case "e":
		actx, cancel := context.WithTimeout(ctx, r.assistTimeout)
		defer cancel()
		text, err := r.session.Explain(actx)
		if err != nil {
			slog.Warn("explain failed", "error", err)
			return
		}
		r.printf("\n%s:\n%s\n", appI18n.T(ctx, "ExplanationTitle"), text)
	case "s":
		actx, cancel := context.WithTimeout(ctx, r.assistTimeout)
		defer cancel()
		sq, err := r.session.SimilarQuestion(actx)
		if err != nil {
			if exam.KindOf(err) == exam.KindAssistFailed {
				r.printf("%s\n", appI18n.T(ctx, "SimilarFailed"))
				r.session.CloseSimilar()
			} else {
				slog.Warn("similar question failed", "error", err)
			}
			return
		}
		r.printf("\n%s:\n%s\n", appI18n.T(ctx, "SimilarTitle"), sq.Question)
		for _, o := range sq.Options {
			r.printf("  %s) %s\n", o.Label, o.Text)
		}
		r.printf("%s\n", appI18n.Td(ctx, "SimilarAnswer", map[string]any{"Answer": sq.CorrectAns}))
		r.session.CloseSimilar()
	default:
		idx, ok := optionIndex(cmd, len(v.Options))
		if !ok {
			r.printf("%s\n", appI18n.T(ctx, "InvalidChoice"))
			return
		}
		out, err := r.session.SubmitAnswer(v.Options[idx].Text)
		if err != nil && !errors.Is(err, exam.ErrAlreadyAnswered) {
			r.printf("%s\n", appI18n.T(ctx, "InvalidChoice"))
			return
		}
		if out.IsCorrect {
			r.printf("%s\n", appI18n.T(ctx, "AnswerCorrect"))
		} else {
			r.printf("%s\n", appI18n.Td(ctx, "AnswerWrong", map[string]any{"Answer": out.CorrectAnswer}))
		}
	}
}

// optionIndex accepts a 1-based number or an option letter.
func optionIndex(cmd string, n int) (int, bool) {
	if i, err := strconv.Atoi(cmd); err == nil {
		return i - 1, i >= 1 && i <= n
	}
	if len(cmd) == 1 && cmd[0] >= 'a' && cmd[0] <= 'z' {
		i := int(cmd[0] - 'a')
		return i, i < n
	}
	return 0, false
}

func (r *runner) finish(ctx context.Context, v exam.View) {
	r.printf("\n%s\n%s\n", appI18n.T(ctx, "ExamFinished"), appI18n.Td(ctx, "ScoreSummary", map[string]any{
		"Correct": v.Score.Correct, "Wrong": v.Score.Wrong, "Total": v.Score.Total,
	}))
}

// recordFinished writes the finished attempt to the history. A failed write
// is tried again after the next input line.
func (r *runner) recordFinished(v exam.View) {
	if r.record == nil {
		return
	}
	_, err := r.session.RecordOnce(func(sum exam.Summary) error {
		return r.record(sum.Record(time.Now()))
	})
	if err != nil {
		slog.Error("failed to record attempt", "attempt_id", v.AttemptID, "error", err)
	}
}
