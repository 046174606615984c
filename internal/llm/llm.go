package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/cikmis/examclient/internal/exam"
	"github.com/cikmis/examclient/internal/llm/prompts"
	"github.com/cikmis/examclient/internal/model"
)

// OpenAI answers assist requests through an OpenAI-compatible chat API.
type OpenAI struct {
	api   *openai.Client
	model string
}

// NewOpenAI creates a new assistant for the given endpoint and model.
func NewOpenAI(baseURL, apiKey, modelName string) *OpenAI {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &OpenAI{
		api:   openai.NewClientWithConfig(config),
		model: modelName,
	}
}

// Ping checks that the endpoint answers.
func (c *OpenAI) Ping(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// Explain asks the model to explain a question.
func (c *OpenAI) Explain(ctx context.Context, req model.ExplainRequest) (string, error) {
	prompt, err := prompts.BuildExplainPrompt(req)
	if err != nil {
		return "", fmt.Errorf("build explain prompt: %w", err)
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("LLM API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("LLM returned no choices")
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("LLM explanation", "raw", raw)
	return prompts.CleanExplanation(raw), nil
}

// SimilarQuestion asks the model for a question like the original one.
func (c *OpenAI) SimilarQuestion(ctx context.Context, req model.SimilarRequest) (*model.SimilarQuestion, error) {
	prompt, err := prompts.BuildSimilarPrompt(req.OriginalQuestion)
	if err != nil {
		return nil, fmt.Errorf("build similar prompt: %w", err)
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.7,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("LLM returned no choices")
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("LLM similar question", "raw", raw)
	return parseSimilar(raw)
}

type similarPayload struct {
	Question   string               `json:"question"`
	Options    []exam.SimilarOption `json:"options"`
	CorrectAns string               `json:"correct_ans"`
}

// parseSimilar decodes a model reply into a similar question. Code fences are
// tolerated; a reply without a question or options is rejected.
func parseSimilar(raw string) (*model.SimilarQuestion, error) {
	var p similarPayload
	if err := json.Unmarshal([]byte(prompts.StripFences(raw)), &p); err != nil {
		return nil, fmt.Errorf("parse similar question: %w (raw: %s)", err, raw)
	}
	if strings.TrimSpace(p.Question) == "" || len(p.Options) == 0 {
		return nil, fmt.Errorf("similar question is incomplete (raw: %s)", raw)
	}

	return &model.SimilarQuestion{
		Question:   p.Question,
		Options:    exam.LabelSimilarOptions(p.Options),
		CorrectAns: p.CorrectAns,
	}, nil
}
