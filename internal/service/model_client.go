package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/casper/babelbot/internal/metrics"
	"github.com/casper/babelbot/internal/prompts"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

// ModelClient wraps the single outbound call to an OpenAI-compatible chat
// completion endpoint. Inputs are sanitized, never rejected: the message is
// length-capped and quote-escaped, the language filtered to an allow-list.
type ModelClient struct {
	client         *resty.Client
	model          string
	endpoint       string
	limiter        *rate.Limiter
	maxMessageLen  int
	maxLanguageLen int
}

// ModelConfig holds configuration for the model client.
type ModelConfig struct {
	Provider       string
	Model          string
	APIKey         string
	BaseURL        string
	MaxMessageLen  int
	MaxLanguageLen int
	RequestsPerSec float64
	Burst          int
}

// ModelTranslation is the normalized record produced from one model reply.
type ModelTranslation struct {
	Original         string
	Translated       string
	DetectedLanguage string
}

// NewModelClient creates a new model client.
// Parameters:
//   - cfg: model configuration including provider, model, and API key.
//
// Returns:
//   - *ModelClient: initialized client wrapper.
func NewModelClient(cfg *ModelConfig) *ModelClient {
	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = providerBaseURL(cfg.Provider)
	}
	endpoint := baseURL + "/chat/completions"

	maxMessageLen := cfg.MaxMessageLen
	if maxMessageLen <= 0 {
		maxMessageLen = 1800
	}
	maxLanguageLen := cfg.MaxLanguageLen
	if maxLanguageLen <= 0 {
		maxLanguageLen = 40
	}

	rps := cfg.RequestsPerSec
	if rps <= 0 {
		rps = 5
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 10
	}

	return &ModelClient{
		client:         client,
		model:          cfg.Model,
		endpoint:       endpoint,
		limiter:        rate.NewLimiter(rate.Limit(rps), burst),
		maxMessageLen:  maxMessageLen,
		maxLanguageLen: maxLanguageLen,
	}
}

// providerBaseURL returns the default API base URL for a provider. An
// explicit base_url in config always wins; this only fills the gap.
func providerBaseURL(provider string) string {
	switch strings.ToLower(provider) {
	case "openrouter":
		return "https://openrouter.ai/api/v1"
	case "ollama":
		return "http://localhost:11434/v1"
	default:
		return "https://api.openai.com/v1"
	}
}

// GetModel returns the model name being used.
func (c *ModelClient) GetModel() string {
	return c.model
}

// OpenAI-compatible Chat Completion API request/response structures
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float32       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// languageFilter strips everything but letters, spaces, and hyphens.
var languageFilter = regexp.MustCompile(`[^a-zA-Z \-]+`)

// messageEscaper neutralizes attempts to break out of the quoted message in
// the prompt via the content itself.
var messageEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// sanitizeMessage truncates the message to the length cap and escapes quote
// characters before it is embedded in the prompt.
func sanitizeMessage(text string, maxLen int) string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) > maxLen {
		runes = runes[:maxLen]
	}
	return messageEscaper.Replace(string(runes))
}

// sanitizeLanguage filters the target language to letters/spaces/hyphens and
// caps its length, neutralizing injection via the language field.
func sanitizeLanguage(language string, maxLen int) string {
	language = languageFilter.ReplaceAllString(language, "")
	language = strings.TrimSpace(language)
	if len(language) > maxLen {
		language = strings.TrimSpace(language[:maxLen])
	}
	return language
}

// Translate sends one translation request and normalizes the reply.
//
// Decoding is pinned to temperature 0: content-hash caching assumes the same
// input should tend toward the same output for a given model version, so
// response variance is traded away deliberately. There is no client-side
// timeout; callers bound latency through ctx if they need to.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - text: raw message text as submitted.
//   - targetLanguage: normalized target language.
//
// Returns:
//   - *ModelTranslation: normalized record with field defaults applied.
//   - error: transport failure, API error, or *ParseError.
func (c *ModelClient) Translate(ctx context.Context, text, targetLanguage string) (*ModelTranslation, error) {
	message := sanitizeMessage(text, c.maxMessageLen)
	language := sanitizeLanguage(targetLanguage, c.maxLanguageLen)
	if language == "" {
		language = "english"
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait aborted: %w", err)
	}

	req := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: prompts.TranslateSystemPrompt},
			{Role: "user", Content: prompts.TranslateUserPrompt(message, language)},
		},
		MaxTokens:   1024,
		Temperature: 0,
	}

	start := time.Now()
	var resp chatResponse
	httpResp, err := c.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		Post(c.endpoint)
	metrics.ModelRequestSeconds.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.ModelRequestsTotal.WithLabelValues("transport_error").Inc()
		return nil, fmt.Errorf("failed to call model API: %w", err)
	}

	// Check HTTP status code
	if httpResp.StatusCode() < 200 || httpResp.StatusCode() >= 300 {
		metrics.ModelRequestsTotal.WithLabelValues("http_error").Inc()
		errorMsg := fmt.Sprintf("HTTP %d", httpResp.StatusCode())
		if resp.Error != nil {
			errorMsg = fmt.Sprintf("HTTP %d: %s", httpResp.StatusCode(), resp.Error.Message)
		} else if len(httpResp.Body()) > 0 {
			errorMsg = fmt.Sprintf("HTTP %d: %s", httpResp.StatusCode(), string(httpResp.Body()))
		}
		return nil, fmt.Errorf("model API returned error: %s", errorMsg)
	}

	if resp.Error != nil {
		metrics.ModelRequestsTotal.WithLabelValues("http_error").Inc()
		return nil, fmt.Errorf("model API error: %s", resp.Error.Message)
	}

	if len(resp.Choices) == 0 {
		metrics.ModelRequestsTotal.WithLabelValues("http_error").Inc()
		return nil, fmt.Errorf("no response from model API (status: %d)", httpResp.StatusCode())
	}

	result, err := ParseModelReply(resp.Choices[0].Message.Content, text)
	if err != nil {
		metrics.ModelRequestsTotal.WithLabelValues("parse_error").Inc()
		return nil, err
	}

	metrics.ModelRequestsTotal.WithLabelValues("ok").Inc()
	return result, nil
}
