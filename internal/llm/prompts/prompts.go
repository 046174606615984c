package prompts

import (
	"bytes"
	"embed"
	"errors"
	"regexp"
	"strings"
	"sync"
	"text/template"
	"unicode/utf8"

	"github.com/cikmis/examclient/internal/model"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

const maxInputRunes = 10000

var (
	questionTagRegex = regexp.MustCompile(`(?i)</?\s*(question|example-question)\b[^>]*>`)
	fenceRegex       = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")
)

// AnswerStatus describes the user's answer relative to the correct one.
type AnswerStatus string

const (
	AnswerCorrect AnswerStatus = "correct"
	AnswerWrong   AnswerStatus = "wrong"
	AnswerMissing AnswerStatus = "missing"
)

var (
	loadOnce    sync.Once
	loadErr     error
	explainTmpl *template.Template
	similarTmpl *template.Template
)

// ExplainData holds template data for explanation prompts.
type ExplainData struct {
	Question      string
	Options       []model.LabeledOption
	CorrectAnswer string
	UserAnswer    string
	Status        AnswerStatus
}

// SimilarData holds template data for similar-question prompts.
type SimilarData struct {
	Original string
}

func load() error {
	loadOnce.Do(func() {
		parse := func(name string) (*template.Template, error) {
			content, err := templateFS.ReadFile("templates/" + name)
			if err != nil {
				return nil, errors.New("failed to read prompt file " + name + ": " + err.Error())
			}
			tmpl, err := template.New(name).Parse(string(content))
			if err != nil {
				return nil, errors.New("failed to parse prompt template " + name + ": " + err.Error())
			}
			return tmpl, nil
		}
		if explainTmpl, loadErr = parse("explain.tmpl"); loadErr != nil {
			return
		}
		similarTmpl, loadErr = parse("similar.tmpl")
	})
	return loadErr
}

// StatusOf classifies the user's answer.
func StatusOf(req model.ExplainRequest) AnswerStatus {
	switch {
	case req.UserAnswer == nil || *req.UserAnswer == "":
		return AnswerMissing
	case *req.UserAnswer == req.CorrectAnswer:
		return AnswerCorrect
	default:
		return AnswerWrong
	}
}

// BuildExplainPrompt renders the explanation prompt for req.
func BuildExplainPrompt(req model.ExplainRequest) (string, error) {
	if err := load(); err != nil {
		return "", err
	}

	opts := make([]model.LabeledOption, len(req.Options))
	for i, o := range req.Options {
		opts[i] = model.LabeledOption{Label: o.Label, Text: sanitize(o.Text)}
	}
	data := ExplainData{
		Question:      sanitize(req.Question),
		Options:       opts,
		CorrectAnswer: sanitize(req.CorrectAnswer),
		Status:        StatusOf(req),
	}
	if req.UserAnswer != nil {
		data.UserAnswer = sanitize(*req.UserAnswer)
	}

	var buf bytes.Buffer
	if err := explainTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// BuildSimilarPrompt renders the similar-question prompt.
func BuildSimilarPrompt(original string) (string, error) {
	if err := load(); err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := similarTmpl.Execute(&buf, SimilarData{Original: sanitize(original)}); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// CleanExplanation strips markdown emphasis markers and surrounding space.
func CleanExplanation(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "*", ""))
}

// StripFences removes a surrounding markdown code fence, if present.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if m := fenceRegex.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return s
}

func sanitize(s string) string {
	s = questionTagRegex.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) > maxInputRunes {
		runes := []rune(s)
		s = string(runes[:maxInputRunes]) + "\n\n[truncated]"
	}
	return s
}
