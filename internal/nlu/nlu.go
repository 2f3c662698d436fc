// Package nlu wraps the OpenAI API as the conversation's language oracle.
//
// Every operation demands a raw-JSON reply from the model, strips Markdown
// code fences before parsing, and degrades to a deterministic local
// heuristic on transport failure, rate limiting, or malformed JSON. Callers
// receive the same result shape on both paths and must not branch on which
// one produced it. The oracle never mutates prospect state.
package nlu

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/VigiaLabs/LeadPipe/internal/models"
)

// DefaultRequestTimeout bounds every oracle call.
const DefaultRequestTimeout = 15 * time.Second

// IntentType is the coarse classification of a scheduling-phase reply.
type IntentType string

const (
	IntentAccept          IntentType = "accept"
	IntentReject          IntentType = "reject"
	IntentPriceRequest    IntentType = "price_request"
	IntentAlternativeTime IntentType = "alternative_time"
	IntentUnclear         IntentType = "unclear"
)

// RelevanceAssessment is the oracle's judgement of a qualification answer.
type RelevanceAssessment struct {
	IsRelevant        bool   `json:"is_relevant"`
	ShouldContinue    bool   `json:"should_continue"`
	SuggestedResponse string `json:"suggested_response,omitempty"`
	Reasoning         string `json:"reasoning"`
}

// IntentClassification is the oracle's read of a free-form reply.
type IntentClassification struct {
	Intent     IntentType `json:"intent"`
	Confidence float64    `json:"confidence"`
	Reasoning  string     `json:"reasoning"`
}

// ClientInterface is the oracle dependency injected into the flow engine.
type ClientInterface interface {
	// AnalyzeInterest scores a prospect once qualification completes.
	AnalyzeInterest(ctx context.Context, p *models.ProspectState) models.InterestAnalysis

	// AssessRelevance judges whether an answer actually addresses the
	// question it was given for.
	AssessRelevance(ctx context.Context, question, answer string) RelevanceAssessment

	// DetectIntent classifies a reply during invitation/scheduling.
	DetectIntent(ctx context.Context, message string) IntentClassification
}

// chatService defines the minimal completion surface, kept narrow so tests
// can substitute a mock.
type chatService interface {
	Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error)
}

// openaiChat adapts the real client to chatService.
type openaiChat struct {
	client openai.Client
}

func (o openaiChat) Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error) {
	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return openai.ChatCompletion{}, err
	}
	return *resp, nil
}

// Opts holds configuration options for the oracle client.
type Opts struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Option defines a configuration option for the oracle client.
type Option func(*Opts)

// WithAPIKey sets the OpenAI API key explicitly.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithModel overrides the completion model.
func WithModel(model string) Option {
	return func(o *Opts) { o.Model = model }
}

// WithTimeout overrides the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *Opts) { o.Timeout = d }
}

// Client is the production oracle implementation.
type Client struct {
	chat    chatService
	model   string
	timeout time.Duration
}

// NewClient initializes the oracle, falling back to OPENAI_API_KEY when no
// key option is given.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}
	if cfg.Model == "" {
		cfg.Model = openai.ChatModelGPT4oMini
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultRequestTimeout
	}

	cli := openai.NewClient(option.WithAPIKey(cfg.APIKey))
	slog.Debug("nlu client created", "model", cfg.Model, "timeout", cfg.Timeout)
	return &Client{chat: openaiChat{client: cli}, model: cfg.Model, timeout: cfg.Timeout}, nil
}

// AnalyzeInterest scores the prospect's qualification answers into the
// interest analysis consumed by the routing decision.
func (c *Client) AnalyzeInterest(ctx context.Context, p *models.ProspectState) models.InterestAnalysis {
	prompt := buildInterestPrompt(p)

	var analysis models.InterestAnalysis
	if err := c.completeJSON(ctx, interestSystemPrompt, prompt, &analysis); err != nil {
		slog.Warn("nlu AnalyzeInterest falling back to heuristic", "error", err, "phone", p.PhoneNumber)
		return fallbackInterest(p)
	}
	if analysis.InterestScore < 1 || analysis.InterestScore > 10 {
		slog.Warn("nlu AnalyzeInterest score out of range, using heuristic", "score", analysis.InterestScore)
		return fallbackInterest(p)
	}
	return analysis
}

// AssessRelevance judges a single question/answer pair.
func (c *Client) AssessRelevance(ctx context.Context, question, answer string) RelevanceAssessment {
	prompt := fmt.Sprintf("Pregunta: %q\nRespuesta del prospecto: %q", question, answer)

	var assessment RelevanceAssessment
	if err := c.completeJSON(ctx, relevanceSystemPrompt, prompt, &assessment); err != nil {
		slog.Warn("nlu AssessRelevance falling back to heuristic", "error", err)
		return fallbackRelevance(question, answer)
	}
	return assessment
}

// DetectIntent classifies a scheduling-phase reply, NLU first.
func (c *Client) DetectIntent(ctx context.Context, message string) IntentClassification {
	prompt := fmt.Sprintf("Mensaje del prospecto: %q", message)

	var classification IntentClassification
	if err := c.completeJSON(ctx, intentSystemPrompt, prompt, &classification); err != nil {
		slog.Warn("nlu DetectIntent falling back to heuristic", "error", err)
		return fallbackIntent(message)
	}
	switch classification.Intent {
	case IntentAccept, IntentReject, IntentPriceRequest, IntentAlternativeTime, IntentUnclear:
		return classification
	default:
		slog.Warn("nlu DetectIntent returned unknown intent, using heuristic", "intent", classification.Intent)
		return fallbackIntent(message)
	}
}

// completeJSON sends one completion request and parses the reply as JSON
// after stripping any Markdown code fences.
func (c *Client) completeJSON(ctx context.Context, systemPrompt, userPrompt string, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.chat.Create(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
		Temperature: openai.Float(0.2),
	})
	if err != nil {
		var apierr *openai.Error
		if errors.As(err, &apierr) && apierr.StatusCode == 429 {
			return fmt.Errorf("oracle rate limited: %w", err)
		}
		return fmt.Errorf("oracle request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return fmt.Errorf("oracle returned no choices")
	}

	raw := StripCodeFences(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("oracle returned malformed JSON: %w", err)
	}
	return nil
}

// StripCodeFences removes Markdown ``` fences (with optional language tag)
// wrapping a model reply.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		// Drop a language tag like "json" on the opening fence line.
		firstLine := strings.TrimSpace(s[:idx])
		if len(firstLine) <= 10 && !strings.ContainsAny(firstLine, "{}[]") {
			s = s[idx+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
