// Package convex is the document-store implementation of the store adapter,
// speaking the Convex deployment HTTP API.
package convex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"icebackfill/config"
	"icebackfill/internal/model"
)

const (
	listFunction   = "questions:list"
	updateFunction = "questions:updateCategories"
)

type Client struct {
	baseURL    string
	authToken  string
	debug      bool
	httpClient *http.Client
	logger     *zap.Logger
}

func NewClient(cfg config.ConvexConfig, logger *zap.Logger) *Client {
	return &Client{
		baseURL:   cfg.URL,
		authToken: cfg.AuthToken,
		debug:     cfg.Debug,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// request is the body of a Convex function call.
type request struct {
	Path   string `json:"path"`
	Args   any    `json:"args"`
	Format string `json:"format"`
}

// response is the envelope every Convex function call returns.
type response struct {
	Status       string          `json:"status"`
	Value        json.RawMessage `json:"value"`
	ErrorMessage string          `json:"errorMessage"`
}

// question mirrors the fields of a question document this pipeline reads.
type question struct {
	ID       string   `json:"_id"`
	Text     string   `json:"text"`
	Category string   `json:"category"`
	Tags     []string `json:"tags"`
}

type categoryUpdate struct {
	ID       string `json:"id"`
	Category string `json:"category"`
}

// ListQuestions fetches the full question set via the questions:list query.
func (c *Client) ListQuestions(ctx context.Context) ([]model.Question, error) {
	var docs []question
	if err := c.call(ctx, "query", listFunction, map[string]any{}, &docs); err != nil {
		return nil, err
	}

	questions := make([]model.Question, 0, len(docs))
	for _, d := range docs {
		questions = append(questions, model.Question{
			ID:       d.ID,
			Text:     d.Text,
			Category: model.Category(d.Category),
			Tags:     d.Tags,
		})
	}
	return questions, nil
}

// ApplyCategoryUpdates applies one batch through the questions:updateCategories
// mutation. The mutation applies the whole batch or fails it.
func (c *Client) ApplyCategoryUpdates(ctx context.Context, updates []model.CategoryUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	payload := make([]categoryUpdate, 0, len(updates))
	for _, u := range updates {
		payload = append(payload, categoryUpdate{ID: u.ID, Category: string(u.Category)})
	}

	return c.call(ctx, "mutation", updateFunction, map[string]any{"updates": payload}, nil)
}

// call POSTs a function invocation to the deployment and decodes the value
// envelope into out when out is non-nil.
func (c *Client) call(ctx context.Context, endpoint, path string, args any, out any) error {
	body, err := json.Marshal(request{Path: path, Args: args, Format: "json"})
	if err != nil {
		return fmt.Errorf("marshal %s args: %w", path, err)
	}

	url := fmt.Sprintf("%s/api/%s", c.baseURL, endpoint)
	if c.debug {
		c.logger.Debug("Convex request",
			zap.String("url", url),
			zap.ByteString("body", body),
		)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("call %s: unexpected status %d", path, resp.StatusCode)
	}

	var envelope response
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	if c.debug {
		c.logger.Debug("Convex response",
			zap.String("path", path),
			zap.String("status", envelope.Status),
			zap.ByteString("value", envelope.Value),
		)
	}
	if envelope.Status != "success" {
		return fmt.Errorf("call %s: %s", path, envelope.ErrorMessage)
	}

	c.logger.Debug("Convex call succeeded", zap.String("path", path))

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(envelope.Value, out); err != nil {
		return fmt.Errorf("decode %s value: %w", path, err)
	}
	return nil
}
