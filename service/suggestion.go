package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"finera/config"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"google.golang.org/genai"
)

var (
	// ErrInvalidAmount the budget amount must be positive
	ErrInvalidAmount = errors.New("amount must be greater than 0")
	// ErrAIUnavailable no API key is configured
	ErrAIUnavailable = errors.New("AI provider is not configured")
	// ErrAIUpstream the provider call failed or returned unusable output
	ErrAIUpstream = errors.New("AI provider request failed")
)

const suggestionSystemPrompt = `You are Finera's AI Budget Assistant.
Rules:
- Output ONLY valid JSON (no markdown, no extra text).
- JSON is an array of items: [{ "title": string, "description": string, "category": string, "estimatedCost": number }]
- "estimatedCost" is in %[1]s. Each suggestion must cost at most the user's amount.
- Mix short-term ideas (dinner, transport) with long-term ones (savings, bills).
- Avoid naming specific real businesses; prefer generic descriptions such as "rice & curry at a cafe".
Output must begin with "[" and end with "]".`

const suggestionUserPrompt = `User:
- Budget Amount: %[1]s %[2]s
- Location (optional): %[3]s
- Preferred categories (optional): %[4]s
Task:
- Return 6 budget-friendly suggestions for Sri Lanka context, suitable for %[2]s.
- Include at least 2 food ideas under the amount (e.g., dinner under %[2]s %[1]s).
- Keep titles concise; descriptions 1-2 sentences.
- Use categories like Food, Transport, Bills, Entertainment, Savings, Misc.`

// Generator produces raw model text for a system instruction and a user prompt
type Generator interface {
	Generate(ctx context.Context, systemPrompt, prompt string) (string, error)
}

// GeminiGenerator calls Gemini through the genai SDK
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

// NewGeminiGenerator creates a Gemini API client
func NewGeminiGenerator(ctx context.Context, apiKey, model string) (*GeminiGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiGenerator{client: client, model: model}, nil
}

// Generate requests a single JSON candidate
func (g *GeminiGenerator) Generate(ctx context.Context, systemPrompt, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		Temperature:       genai.Ptr[float32](0.6),
		CandidateCount:    1,
		ResponseMIMEType:  "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	return resp.Text(), nil
}

// SuggestionRequest input for Suggest
type SuggestionRequest struct {
	Amount     decimal.Decimal
	Location   string
	Currency   string
	Categories []string
}

// Suggestion one spending idea
type Suggestion struct {
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	Category      string          `json:"category"`
	EstimatedCost decimal.Decimal `json:"estimatedCost"`
}

// SuggestionService turns a budget amount into spending suggestions
type SuggestionService struct {
	gen     Generator
	timeout time.Duration
}

// NewSuggestionService wires Gemini when an API key is configured.
// Without a key every call fails with ErrAIUnavailable.
func NewSuggestionService(cfg *config.AIConfig) *SuggestionService {
	s := &SuggestionService{timeout: cfg.Timeout}
	if cfg.APIKey == "" {
		log.Warn().Msg("ai.api_key not set, suggestions are disabled")
		return s
	}

	gen, err := NewGeminiGenerator(context.Background(), cfg.APIKey, cfg.Model)
	if err != nil {
		log.Error().Err(err).Msg("AI provider unavailable")
		return s
	}
	s.gen = gen
	return s
}

// NewSuggestionServiceWithGenerator uses gen for every call
func NewSuggestionServiceWithGenerator(gen Generator, timeout time.Duration) *SuggestionService {
	return &SuggestionService{gen: gen, timeout: timeout}
}

// Suggest asks the model for ideas and keeps those costing between 0 and the amount
func (s *SuggestionService) Suggest(ctx context.Context, req SuggestionRequest) ([]Suggestion, error) {
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if s.gen == nil {
		return nil, ErrAIUnavailable
	}
	if req.Currency == "" {
		req.Currency = "LKR"
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	system, prompt := BuildSuggestionPrompts(req)
	raw, err := s.gen.Generate(ctx, system, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAIUpstream, err)
	}
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("%w: empty response from model", ErrAIUpstream)
	}

	var items []Suggestion
	if err := json.Unmarshal([]byte(cleanModelJSON(raw)), &items); err != nil {
		return nil, fmt.Errorf("%w: decoding model output: %v", ErrAIUpstream, err)
	}

	return filterSuggestions(items, req.Amount), nil
}

// BuildSuggestionPrompts renders the system instruction and user prompt
func BuildSuggestionPrompts(req SuggestionRequest) (string, string) {
	location := strings.TrimSpace(req.Location)
	if location == "" {
		location = "Unknown"
	}
	categories := "None"
	if len(req.Categories) > 0 {
		categories = strings.Join(req.Categories, ", ")
	}

	system := fmt.Sprintf(suggestionSystemPrompt, req.Currency)
	prompt := fmt.Sprintf(suggestionUserPrompt, req.Amount.String(), req.Currency, location, categories)
	return system, prompt
}

func filterSuggestions(items []Suggestion, amount decimal.Decimal) []Suggestion {
	kept := make([]Suggestion, 0, len(items))
	for _, it := range items {
		if it.EstimatedCost.IsNegative() || it.EstimatedCost.GreaterThan(amount) {
			continue
		}
		kept = append(kept, it)
	}
	return kept
}

// cleanModelJSON strips markdown fences and any text around the JSON array
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		idx := strings.Index(s, "\n")
		if idx == -1 {
			return s
		}
		s = strings.TrimSpace(s[idx+1:])
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	if start := strings.Index(s, "["); start != -1 {
		if end := strings.LastIndex(s, "]"); end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}
	return s
}
