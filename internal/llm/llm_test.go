package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/cikmis/examclient/internal/exam"
	"github.com/cikmis/examclient/internal/model"
)

func TestParseSimilar(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []model.LabeledOption
		wantErr bool
	}{
		{
			name: "plain json",
			raw:  `{"question":"Q","options":[{"option_label":"A","text":"x"},{"option_label":"B","text":"y"}],"correct_ans":"A"}`,
			want: []model.LabeledOption{{Label: "A", Text: "x"}, {Label: "B", Text: "y"}},
		},
		{
			name: "fenced",
			raw:  "```json\n{\"question\":\"Q\",\"options\":[{\"options\":\"A\",\"text\":\"x\"}],\"correct_ans\":\"A\"}\n```",
			want: []model.LabeledOption{{Label: "A", Text: "x"}},
		},
		{
			name: "key labels",
			raw:  `{"question":"Q","options":[{"key":"A","text":"x"},{"key":"B","text":"y"}],"correct_ans":"B"}`,
			want: []model.LabeledOption{{Label: "A", Text: "x"}, {Label: "B", Text: "y"}},
		},
		{
			name: "missing labels",
			raw:  `{"question":"Q","options":[{"text":"x"},{"text":"y"}],"correct_ans":"B"}`,
			want: []model.LabeledOption{{Label: "A", Text: "x"}, {Label: "B", Text: "y"}},
		},
		{name: "not json", raw: "Sure! Here is a question.", wantErr: true},
		{name: "no options", raw: `{"question":"Q","options":[],"correct_ans":"A"}`, wantErr: true},
		{name: "no question", raw: `{"question":" ","options":[{"text":"x"}]}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sq, err := parseSimilar(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", sq)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseSimilar: %v", err)
			}
			if !reflect.DeepEqual(sq.Options, tt.want) {
				t.Errorf("options = %+v, want %+v", sq.Options, tt.want)
			}
		})
	}
}

// newChatServer serves canned chat completions and records the prompts it got.
func newChatServer(t *testing.T, reply string, prompts *[]string) *OpenAI {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		for _, m := range req.Messages {
			*prompts = append(*prompts, m.Content)
		}
		w.Header().Set("Content-Type", "application/json")
		resp := map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": reply},
			}},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return NewOpenAI(srv.URL+"/v1", "test-key", "test-model")
}

func TestOpenAIExplain(t *testing.T) {
	var prompts []string
	c := newChatServer(t, "**Paris** is the capital.", &prompts)

	q := model.Question{QuestionText: "Capital of France?", Answer: "Paris", Options: []string{"Paris", "Lyon"}}
	wrong := "Lyon"
	text, err := c.Explain(context.Background(), exam.BuildExplainRequest(q, &wrong))
	if err != nil {
		t.Fatalf("Explain: %v", err)
	}
	if text != "Paris is the capital." {
		t.Errorf("Explain = %q", text)
	}
	if len(prompts) != 1 {
		t.Fatalf("expected one prompt, got %d", len(prompts))
	}
	for _, want := range []string{"Capital of France?", "A) Paris", "B) Lyon", "(WRONG)"} {
		if !strings.Contains(prompts[0], want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestOpenAISimilarQuestion(t *testing.T) {
	var prompts []string
	c := newChatServer(t, `{"question":"Capital of Italy?","options":[{"option_label":"A","text":"Rome"},{"option_label":"B","text":"Milan"}],"correct_ans":"A"}`, &prompts)

	sq, err := c.SimilarQuestion(context.Background(), model.SimilarRequest{OriginalQuestion: "Question: Capital of France?"})
	if err != nil {
		t.Fatalf("SimilarQuestion: %v", err)
	}
	if sq.Question != "Capital of Italy?" || sq.CorrectAns != "A" || len(sq.Options) != 2 {
		t.Errorf("unexpected similar question %+v", sq)
	}
	if len(prompts) != 1 || !strings.Contains(prompts[0], "Capital of France?") {
		t.Errorf("prompt should embed the original question, got %v", prompts)
	}
}

func TestOpenAIServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":{"message":"overloaded"}}`)
	}))
	t.Cleanup(srv.Close)
	c := NewOpenAI(srv.URL+"/v1", "k", "m")

	if _, err := c.Explain(context.Background(), model.ExplainRequest{Question: "Q"}); err == nil {
		t.Error("expected error from Explain")
	}
	if _, err := c.SimilarQuestion(context.Background(), model.SimilarRequest{OriginalQuestion: "Q"}); err == nil {
		t.Error("expected error from SimilarQuestion")
	}
}

func TestNewGeminiRequiresKey(t *testing.T) {
	if _, err := NewGemini(context.Background(), "", "gemini-1.5-flash"); err == nil {
		t.Error("expected error for empty API key")
	}
}
