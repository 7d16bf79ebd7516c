package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// QuestionGenerator produces exam questions from a passage of study material.
type QuestionGenerator interface {
	GenerateQuestions(ctx context.Context, passage string, count int) ([]string, error)
	Close() error
}

// GeminiGenerator calls the Gemini API to draft questions.
type GeminiGenerator struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGeminiGenerator dials the Gemini API and configures the model.
func NewGeminiGenerator(ctx context.Context, apiKey, modelName string) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is not configured")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}
	model := client.GenerativeModel(modelName)

	temp := float32(0.4)
	model.Temperature = &temp
	model.SafetySettings = []*genai.SafetySetting{
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockNone},
	}

	return &GeminiGenerator{client: client, model: model}, nil
}

// Close releases the underlying client.
func (g *GeminiGenerator) Close() error {
	return g.client.Close()
}

// GenerateQuestions asks the model for numbered questions about the passage.
// Transient failures are retried with exponential backoff.
func (g *GeminiGenerator) GenerateQuestions(ctx context.Context, passage string, count int) ([]string, error) {
	prompt := fmt.Sprintf(
		"You are preparing a college internal examination. Based only on the study material below, write exactly %d exam questions. Return them as a numbered list, one question per line, with no preamble and no answers.\n\nStudy material:\n%s",
		count, passage)

	backoff := []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}

	var lastErr error
	for i, wait := range backoff {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
		if err == nil {
			questions := ParseNumberedQuestions(responseText(resp))
			if len(questions) > 0 {
				return questions, nil
			}
			err = fmt.Errorf("model returned no questions")
		}
		lastErr = err
		if i < len(backoff)-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}
	}
	return nil, fmt.Errorf("generate questions: %w", lastErr)
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
	}
	return sb.String()
}

// ParseNumberedQuestions extracts question lines from a numbered list. Lines
// with a leading index ("1.", "2)", "3 -") have the marker stripped; blank
// lines and unnumbered chatter are dropped.
func ParseNumberedQuestions(text string) []string {
	var questions []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		i := 0
		for i < len(line) && line[i] >= '0' && line[i] <= '9' {
			i++
		}
		if i == 0 {
			continue
		}
		rest := strings.TrimLeft(line[i:], ".): -")
		rest = strings.TrimSpace(rest)
		if rest == "" {
			continue
		}
		questions = append(questions, rest)
	}
	return questions
}
