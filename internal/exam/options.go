package exam

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cikmis/examclient/internal/model"
)

// NormalizeOptions decodes an options field that may arrive as a JSON array,
// as a string holding a JSON array, or as null. Absent and null values yield an
// empty slice. Anything else yields an empty slice and a KindMalformedOptions error.
func NormalizeOptions(raw json.RawMessage) ([]string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []string{}, nil
	}

	var opts []string
	if err := json.Unmarshal(raw, &opts); err == nil {
		return nonNil(opts), nil
	}

	var encoded string
	if err := json.Unmarshal(raw, &encoded); err != nil {
		return []string{}, &Error{Kind: KindMalformedOptions, Detail: "options is neither a list nor a string", Err: err}
	}
	encoded = strings.TrimSpace(encoded)
	if encoded == "" || encoded == "null" {
		return []string{}, nil
	}
	if err := json.Unmarshal([]byte(encoded), &opts); err != nil {
		return []string{}, &Error{Kind: KindMalformedOptions, Detail: fmt.Sprintf("cannot decode options text %q", encoded), Err: err}
	}
	return nonNil(opts), nil
}

func nonNil(opts []string) []string {
	if opts == nil {
		return []string{}
	}
	return opts
}

// Label returns the letter for a zero-based option position: A, B, ..., Z, AA, AB, ...
func Label(i int) string {
	if i < 26 {
		return string(rune('A' + i))
	}
	return Label(i/26-1) + string(rune('A'+i%26))
}

// LabelOptions pairs each option with its positional letter.
func LabelOptions(options []string) []model.LabeledOption {
	out := make([]model.LabeledOption, len(options))
	for i, opt := range options {
		out[i] = model.LabeledOption{Label: Label(i), Text: opt}
	}
	return out
}

// SimilarOption is one option of a generated similar question as it comes
// back from the service or a model. Older replies put the letter under
// "options" or "key" instead of "option_label".
type SimilarOption struct {
	OptionLabel string `json:"option_label"`
	Options     string `json:"options"`
	Key         string `json:"key"`
	Text        string `json:"text"`
}

// LabelSimilarOptions resolves each option's label from the first non-empty
// label field, falling back to its positional letter.
func LabelSimilarOptions(options []SimilarOption) []model.LabeledOption {
	out := make([]model.LabeledOption, len(options))
	for i, o := range options {
		label := o.OptionLabel
		for _, alt := range []string{o.Options, o.Key, Label(i)} {
			if label != "" {
				break
			}
			label = alt
		}
		out[i] = model.LabeledOption{Label: label, Text: o.Text}
	}
	return out
}

// BuildExplainRequest assembles the explanation request for q.
// selected is nil when the user has not chosen an option.
func BuildExplainRequest(q model.Question, selected *string) model.ExplainRequest {
	return model.ExplainRequest{
		Question:      q.QuestionText,
		Options:       LabelOptions(q.Options),
		CorrectAnswer: q.Answer,
		UserAnswer:    selected,
	}
}

// ComposeOriginalQuestion renders q and its lettered options as a single text blob.
func ComposeOriginalQuestion(q model.Question) string {
	var sb strings.Builder
	sb.WriteString("Question: " + q.QuestionText + "\nOptions:")
	for _, o := range LabelOptions(q.Options) {
		sb.WriteString("\n" + o.Label + ") " + o.Text)
	}
	return sb.String()
}
