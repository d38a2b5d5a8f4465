// Package suggest obtains tag suggestions for question text from the Gemini
// API. Its output is consumed as an opaque list of short strings; any failure
// is reported to the caller, who treats it as "no tags produced".
package suggest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"icebackfill/config"
	"icebackfill/pkg/metrics"
)

// Suggester produces a small list of tag strings for a question text.
type Suggester interface {
	SuggestTags(ctx context.Context, questionText string) ([]string, error)
}

const tagPrompt = `Generate 3-5 relevant tags for this icebreaker question.
Tags should be short, descriptive words or phrases that categorize the question.

Question: %q

Format the response as a JSON array of strings, for example:
["funny", "personal", "reflective"]

Return ONLY the JSON array, nothing else.`

type GeminiSuggester struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

func NewGeminiSuggester(ctx context.Context, cfg config.GeminiConfig, logger *zap.Logger) (*GeminiSuggester, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}

	return &GeminiSuggester{
		client: client,
		model:  model,
		logger: logger,
	}, nil
}

// SuggestTags asks the model for tags and parses its reply as a JSON array
// of strings.
func (s *GeminiSuggester) SuggestTags(ctx context.Context, questionText string) ([]string, error) {
	prompt := fmt.Sprintf(tagPrompt, questionText)

	start := time.Now()
	resp, err := s.client.Models.GenerateContent(ctx, s.model, genai.Text(prompt), nil)
	if err != nil {
		metrics.RecordSuggestCall("error", time.Since(start))
		return nil, fmt.Errorf("generate tags: %w", err)
	}
	metrics.RecordSuggestCall("ok", time.Since(start))

	tags, err := parseTagArray(resp.Text())
	if err != nil {
		s.logger.Warn("Unparseable tag suggestion response",
			zap.String("model", s.model),
			zap.Error(err),
		)
		return nil, err
	}
	return tags, nil
}

// parseTagArray extracts a JSON string array from a model reply, tolerating
// a ``` or ```json fence around it.
func parseTagArray(raw string) ([]string, error) {
	content := strings.TrimSpace(raw)
	if after, ok := strings.CutPrefix(content, "```json"); ok {
		content = after
	} else if after, ok := strings.CutPrefix(content, "```"); ok {
		content = after
	}
	content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	content = strings.TrimSpace(content)

	var tags []string
	if err := json.Unmarshal([]byte(content), &tags); err != nil {
		return nil, fmt.Errorf("parse tag array: %w", err)
	}
	return tags, nil
}
