package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/cikmis/examclient/internal/llm/prompts"
	"github.com/cikmis/examclient/internal/model"
)

// Gemini answers assist requests through the Gemini API.
type Gemini struct {
	client *genai.Client
	text   *genai.GenerativeModel
	json   *genai.GenerativeModel
}

// NewGemini creates a Gemini assistant. Close releases the client.
func NewGemini(ctx context.Context, apiKey, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	text := client.GenerativeModel(modelName)
	text.SetTemperature(0.3)

	js := client.GenerativeModel(modelName)
	js.SetTemperature(0.7)
	js.ResponseMIMEType = "application/json"

	return &Gemini{client: client, text: text, json: js}, nil
}

// Close releases the underlying client.
func (g *Gemini) Close() error {
	return g.client.Close()
}

// Explain asks Gemini to explain a question.
func (g *Gemini) Explain(ctx context.Context, req model.ExplainRequest) (string, error) {
	prompt, err := prompts.BuildExplainPrompt(req)
	if err != nil {
		return "", fmt.Errorf("build explain prompt: %w", err)
	}
	raw, err := generate(ctx, g.text, prompt)
	if err != nil {
		return "", err
	}
	slog.Debug("gemini explanation", "raw", raw)
	return prompts.CleanExplanation(raw), nil
}

// SimilarQuestion asks Gemini for a question like the original one.
func (g *Gemini) SimilarQuestion(ctx context.Context, req model.SimilarRequest) (*model.SimilarQuestion, error) {
	prompt, err := prompts.BuildSimilarPrompt(req.OriginalQuestion)
	if err != nil {
		return nil, fmt.Errorf("build similar prompt: %w", err)
	}
	raw, err := generate(ctx, g.json, prompt)
	if err != nil {
		return nil, err
	}
	slog.Debug("gemini similar question", "raw", raw)
	return parseSimilar(raw)
}

func generate(ctx context.Context, m *genai.GenerativeModel, prompt string) (string, error) {
	resp, err := m.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini API call: %w", err)
	}
	text := responseText(resp)
	if text == "" {
		return "", fmt.Errorf("gemini returned no text")
	}
	return text, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		var sb strings.Builder
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				sb.WriteString(string(t))
			}
		}
		if sb.Len() > 0 {
			return sb.String()
		}
	}
	return ""
}
