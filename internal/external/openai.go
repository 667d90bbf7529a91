package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"zeusbolt/internal/types"
)

// openAIAPIBase is the default OpenAI API base URL.
// Overridable in tests via OpenAIClientConfig.BaseURL.
const openAIAPIBase = "https://api.openai.com"

// blueprintSystemPrompt instructs the model to answer with the exact JSON
// shape the frontend renders.
const blueprintSystemPrompt = `You are a product architect. Given an app idea, produce a concise product blueprint.
Respond with a JSON object with exactly these keys:
"overview" (string, 2-3 sentences), "pages" (array of page names), "dataModels" (array of data model names), "nextSteps" (string, 2-3 sentences).`

// OpenAIClientConfig holds the configuration for creating an OpenAIClient.
type OpenAIClientConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	BaseURL     string // Override for testing; defaults to openAIAPIBase
	Logger      *slog.Logger
}

// OpenAIClient implements BlueprintGenerator via the chat completions API.
type OpenAIClient struct {
	base        *BaseClient
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
	baseURL     string
	logger      *slog.Logger
}

// NewOpenAIClient creates a new OpenAIClient. The httpClient timeout bounds
// the generation latency; completions are not retried aggressively since each
// attempt is expensive.
func NewOpenAIClient(httpClient *http.Client, cfg OpenAIClientConfig) *OpenAIClient {
	base := NewBaseClient(
		httpClient,
		"openai",
		RetryPolicy{
			MaxRetries: 1,
			MinWait:    1 * time.Second,
			MaxWait:    5 * time.Second,
		},
		"ZeusBolt/1.0",
	)
	return NewOpenAIClientWithBase(base, cfg)
}

// NewOpenAIClientWithBase creates an OpenAIClient with a pre-configured
// BaseClient, for tests.
func NewOpenAIClientWithBase(base *BaseClient, cfg OpenAIClientConfig) *OpenAIClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = openAIAPIBase
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &OpenAIClient{
		base:        base,
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		logger:      logger,
	}
}

// ---------------------------------------------------------------------------
// Chat Completions Wire Types
// ---------------------------------------------------------------------------

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponseFormat struct {
	Type string `json:"type"`
}

type chatCompletionRequest struct {
	Model          string             `json:"model"`
	Messages       []chatMessage      `json:"messages"`
	Temperature    float64            `json:"temperature"`
	MaxTokens      int                `json:"max_tokens"`
	ResponseFormat chatResponseFormat `json:"response_format"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
}

type openAIErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// GenerateBlueprint asks the model for a structured blueprint of the given
// project content and parses the JSON answer into a types.Blueprint.
func (c *OpenAIClient) GenerateBlueprint(ctx context.Context, content string) (*types.Blueprint, error) {
	reqBody := chatCompletionRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: blueprintSystemPrompt},
			{Role: "user", Content: content},
		},
		Temperature:    c.temperature,
		MaxTokens:      c.maxTokens,
		ResponseFormat: chatResponseFormat{Type: "json_object"},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to encode completion request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to build completion request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.base.Do(req)
	if err != nil {
		if _, ok := err.(*types.AppError); ok {
			return nil, err
		}
		return nil, types.NewAppError(types.ErrCodeUpstreamAI, "completion request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.handleErrorResponse(resp)
	}

	var completion chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamAI, "failed to decode completion response", err)
	}
	if len(completion.Choices) == 0 {
		return nil, types.NewAppError(types.ErrCodeUpstreamAI, "completion response has no choices", nil)
	}

	var blueprint types.Blueprint
	answer := completion.Choices[0].Message.Content
	if err := json.Unmarshal([]byte(answer), &blueprint); err != nil {
		// The model occasionally wraps JSON in a code fence despite the
		// response_format hint; strip it and retry once.
		trimmed := stripCodeFence(answer)
		if err2 := json.Unmarshal([]byte(trimmed), &blueprint); err2 != nil {
			return nil, types.NewAppError(types.ErrCodeUpstreamAI, "model answer is not a valid blueprint", err)
		}
	}

	c.logger.InfoContext(ctx, "blueprint generated",
		"model", c.model,
		"pages", len(blueprint.Pages),
		"data_models", len(blueprint.DataModels),
	)

	return &blueprint, nil
}

// handleErrorResponse maps an OpenAI error body to a types.AppError.
func (c *OpenAIClient) handleErrorResponse(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var apiErr openAIErrorResponse
	_ = json.Unmarshal(body, &apiErr)

	msg := apiErr.Error.Message
	if msg == "" {
		msg = fmt.Sprintf("status %d", resp.StatusCode)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return types.NewAppError(types.ErrCodeUpstreamRateLimited, "AI provider rate limit exceeded: "+msg, nil)
	}
	return types.NewAppError(types.ErrCodeUpstreamAI, "AI provider error: "+msg, nil)
}

// stripCodeFence removes a surrounding markdown code fence from a model answer.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// Compile-time interface assertion.
var _ BlueprintGenerator = (*OpenAIClient)(nil)
