package authoring

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strings"

	"github.com/cikmis/examclient/internal/model"
)

// ErrNoQuestions is returned when the pasted text holds no question.
var ErrNoQuestions = errors.New("authoring: no questions found")

// ParseError points at the offending question or line of pasted input.
type ParseError struct {
	Line int // 1-based line for numbered text, 1-based entry for JSON
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

var (
	questionLinePattern = regexp.MustCompile(`^(\d+)[.)]\s+(.+)$`)
	optionLinePattern   = regexp.MustCompile(`^(\*|X\s)?\s*([a-zA-Z])\)\s*(.*?)\s*(\*)?$`)
)

// ParseQuestions reads pasted questions. A JSON array of
// {question_text, answer, options} is used as is; anything else is read as
// numbered text:
//
//	1. What is the capital of France?
//	*a) Paris
//	b) Lyon
//
// where the correct option is marked with a leading "*" or "X " or a trailing "*".
func ParseQuestions(text string) ([]model.QuestionUpload, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrNoQuestions
	}

	var (
		qs  []model.QuestionUpload
		err error
	)
	if strings.HasPrefix(text, "[") {
		qs, err = parseJSON(text)
	} else {
		qs, err = parseNumbered(text)
	}
	if err != nil {
		return nil, err
	}
	if len(qs) == 0 {
		return nil, ErrNoQuestions
	}
	for i, q := range qs {
		if !slices.Contains(q.Options, q.Answer) {
			slog.Warn("answer is not among the options", "question", i+1, "answer", q.Answer)
		}
	}
	return qs, nil
}

func parseJSON(text string) ([]model.QuestionUpload, error) {
	var qs []model.QuestionUpload
	if err := json.Unmarshal([]byte(text), &qs); err != nil {
		return nil, fmt.Errorf("questions must be a JSON array: %w", err)
	}
	for i := range qs {
		qs[i].QuestionText = strings.TrimSpace(qs[i].QuestionText)
		if qs[i].QuestionText == "" {
			return nil, &ParseError{Line: i + 1, Msg: "question_text is empty"}
		}
		if strings.TrimSpace(qs[i].Answer) == "" {
			return nil, &ParseError{Line: i + 1, Msg: "answer is empty"}
		}
		if qs[i].Options == nil {
			qs[i].Options = []string{}
		}
	}
	return qs, nil
}

type rawQuestion struct {
	line    int
	text    string
	options []string
	correct int
}

func (r *rawQuestion) finish() (model.QuestionUpload, error) {
	if len(r.options) < 2 {
		return model.QuestionUpload{}, &ParseError{Line: r.line, Msg: "question needs at least two options"}
	}
	if r.correct < 0 {
		return model.QuestionUpload{}, &ParseError{Line: r.line, Msg: "no option is marked correct"}
	}
	return model.QuestionUpload{
		QuestionText: r.text,
		Answer:       r.options[r.correct],
		Options:      r.options,
	}, nil
}

func parseNumbered(text string) ([]model.QuestionUpload, error) {
	var (
		out []model.QuestionUpload
		cur *rawQuestion
	)
	flush := func() error {
		if cur == nil {
			return nil
		}
		q, err := cur.finish()
		if err != nil {
			return err
		}
		out = append(out, q)
		cur = nil
		return nil
	}

	for i, line := range strings.Split(text, "\n") {
		lineNo := i + 1
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if m := questionLinePattern.FindStringSubmatch(line); m != nil {
			if err := flush(); err != nil {
				return nil, err
			}
			cur = &rawQuestion{line: lineNo, text: strings.TrimSpace(m[2]), correct: -1}
			continue
		}

		if cur == nil {
			return nil, &ParseError{Line: lineNo, Msg: "expected a numbered question"}
		}

		if m := optionLinePattern.FindStringSubmatch(line); m != nil {
			if m[1] != "" || m[4] != "" {
				if cur.correct >= 0 {
					return nil, &ParseError{Line: lineNo, Msg: "more than one option is marked correct"}
				}
				cur.correct = len(cur.options)
			}
			cur.options = append(cur.options, m[3])
			continue
		}

		// Continuation of a wrapped line.
		if n := len(cur.options); n > 0 {
			cur.options[n-1] += " " + line
		} else {
			cur.text += " " + line
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return out, nil
}
