package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"hyprpilot/internal/actions"
)

// ErrMalformedResponse means the model replied but the reply was not a
// parseable action plan. Callers degrade the query instead of crashing.
var ErrMalformedResponse = errors.New("malformed model response")

// Plan is one parsed model reply: what the model intends to do and the
// ordered actions that do it.
type Plan struct {
	Explanation string         `json:"explanation"`
	Actions     []actions.Spec `json:"actions"`
}

// Planner turns a natural-language query plus desktop context into an
// ordered action plan.
type Planner interface {
	GenerateActions(ctx context.Context, query string, bundle ContextBundle) (*Plan, error)
}

// Client talks to the Gemini API.
type Client struct {
	log    *zap.Logger
	client *genai.Client
	model  string
}

// NewClient builds a Gemini-backed planner.
func NewClient(ctx context.Context, log *zap.Logger, apiKey, model string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Client{log: log, client: client, model: model}, nil
}

// GenerateActions asks the model for an action plan. When the bundle
// carries a screenshot it is attached inline so the model can see the
// screen it is acting on.
func (c *Client) GenerateActions(ctx context.Context, query string, bundle ContextBundle) (*Plan, error) {
	parts := []*genai.Part{
		genai.NewPartFromText(buildPrompt(query, bundle)),
	}
	if len(bundle.Screenshot) > 0 {
		parts = append(parts, genai.NewPartFromBytes(bundle.Screenshot, "image/png"))
	}
	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}

	result, err := c.client.Models.GenerateContent(ctx, c.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		Temperature:       genai.Ptr[float32](0.7),
		TopP:              genai.Ptr[float32](0.95),
		MaxOutputTokens:   4096,
		ResponseMIMEType:  "application/json",
	})
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}

	text := result.Text()
	if text == "" {
		return nil, fmt.Errorf("%w: empty reply", ErrMalformedResponse)
	}
	plan, err := ParsePlan(text)
	if err != nil {
		c.log.Warn("unparseable model reply", zap.String("reply", clip(text, 200)), zap.Error(err))
		return nil, err
	}
	return plan, nil
}

// ParsePlan extracts the JSON plan from a model reply, tolerating
// markdown code fences around the payload.
func ParsePlan(text string) (*Plan, error) {
	text = stripFences(strings.TrimSpace(text))

	var plan Plan
	if err := json.Unmarshal([]byte(text), &plan); err != nil {
		// Some replies are a bare array rather than the wrapper object.
		var bare []actions.Spec
		if err2 := json.Unmarshal([]byte(text), &bare); err2 != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		plan.Actions = bare
	}
	// An empty action list is a valid plan: the model answered in words
	// and has nothing for us to execute.
	for i, a := range plan.Actions {
		if a.Type == "" {
			return nil, fmt.Errorf("%w: action %d has no type", ErrMalformedResponse, i)
		}
	}
	return &plan, nil
}

func stripFences(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
