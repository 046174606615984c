package exam

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/cikmis/examclient/internal/model"
)

func TestNormalizeOptions(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		want      []string
		malformed bool
	}{
		{"array", `["A","B"]`, []string{"A", "B"}, false},
		{"encoded string", `"[\"A\",\"B\"]"`, []string{"A", "B"}, false},
		{"null", `null`, []string{}, false},
		{"absent", ``, []string{}, false},
		{"empty string", `""`, []string{}, false},
		{"empty array", `[]`, []string{}, false},
		{"order kept", `["c","a","b"]`, []string{"c", "a", "b"}, false},
		{"garbage string", `"A, B"`, []string{}, true},
		{"number", `42`, []string{}, true},
		{"object", `{"a":1}`, []string{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeOptions(json.RawMessage(tt.raw))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("NormalizeOptions(%s) = %#v, want %#v", tt.raw, got, tt.want)
			}
			if tt.malformed {
				if KindOf(err) != KindMalformedOptions {
					t.Errorf("expected KindMalformedOptions, got %v", err)
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestLabel(t *testing.T) {
	tests := []struct {
		i    int
		want string
	}{
		{0, "A"}, {1, "B"}, {25, "Z"}, {26, "AA"}, {27, "AB"}, {51, "AZ"}, {52, "BA"},
	}
	for _, tt := range tests {
		if got := Label(tt.i); got != tt.want {
			t.Errorf("Label(%d) = %q, want %q", tt.i, got, tt.want)
		}
	}
}

func TestLabelOptions(t *testing.T) {
	got := LabelOptions([]string{"Paris", "Lyon", "Marseille"})
	want := []model.LabeledOption{
		{Label: "A", Text: "Paris"},
		{Label: "B", Text: "Lyon"},
		{Label: "C", Text: "Marseille"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("LabelOptions = %+v, want %+v", got, want)
	}
	if len(LabelOptions(nil)) != 0 {
		t.Errorf("expected empty labels for nil options")
	}
}

func TestLabelSimilarOptions(t *testing.T) {
	got := LabelSimilarOptions([]SimilarOption{
		{OptionLabel: "A", Options: "X", Text: "Rome"},
		{Options: "B", Text: "Milan"},
		{Key: "C", Text: "Turin"},
		{Text: "Naples"},
	})
	want := []model.LabeledOption{
		{Label: "A", Text: "Rome"},
		{Label: "B", Text: "Milan"},
		{Label: "C", Text: "Turin"},
		{Label: "D", Text: "Naples"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("LabelSimilarOptions = %+v, want %+v", got, want)
	}
}

func TestBuildExplainRequest(t *testing.T) {
	q := model.Question{QuestionText: "Capital?", Answer: "Paris", Options: []string{"Lyon", "Paris"}}

	t.Run("unanswered", func(t *testing.T) {
		req := BuildExplainRequest(q, nil)
		if req.UserAnswer != nil {
			t.Errorf("expected nil user answer")
		}
		data, _ := json.Marshal(req)
		if !strings.Contains(string(data), `"user_answer":null`) {
			t.Errorf("user_answer should serialize as null: %s", data)
		}
		if !strings.Contains(string(data), `{"option_label":"B","text":"Paris"}`) {
			t.Errorf("options should be lettered by position: %s", data)
		}
	})

	t.Run("answered", func(t *testing.T) {
		sel := "Lyon"
		req := BuildExplainRequest(q, &sel)
		if req.UserAnswer == nil || *req.UserAnswer != "Lyon" {
			t.Errorf("expected user answer Lyon")
		}
		if req.CorrectAnswer != "Paris" {
			t.Errorf("expected correct answer Paris, got %q", req.CorrectAnswer)
		}
	})
}

func TestComposeOriginalQuestion(t *testing.T) {
	q := model.Question{QuestionText: "Capital?", Options: []string{"Paris", "Lyon"}}
	got := ComposeOriginalQuestion(q)
	want := "Question: Capital?\nOptions:\nA) Paris\nB) Lyon"
	if got != want {
		t.Errorf("ComposeOriginalQuestion = %q, want %q", got, want)
	}
}
