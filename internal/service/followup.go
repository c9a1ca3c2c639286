package service

import (
	"context"
	"fmt"
	"time"

	"github.com/casper/babelbot/internal/config"
	"github.com/casper/babelbot/internal/domain"
	"github.com/go-resty/resty/v2"
)

// FollowupPoster delivers results of deferred translations through the
// follow-up channel (a webhook URL supplied by the transport layer).
type FollowupPoster struct {
	client  *resty.Client
	url     string
	enabled bool
}

// followupPayload is the wire shape of one follow-up delivery.
type followupPayload struct {
	RequestID string                    `json:"request_id"`
	Status    string                    `json:"status"`
	Result    *domain.TranslationResult `json:"result,omitempty"`
	Error     string                    `json:"error,omitempty"`
}

// NewFollowupPoster creates a follow-up poster. An empty URL disables
// delivery; Deliver calls then become no-ops so the dispatcher can run in
// fire-and-forget mode without one.
// Parameters:
//   - cfg: follow-up configuration with URL, auth token, and timeout.
// Returns:
//   - *FollowupPoster: initialized poster.
func NewFollowupPoster(cfg *config.FollowupConfig) *FollowupPoster {
	if cfg == nil || cfg.URL == "" {
		return &FollowupPoster{enabled: false}
	}

	client := resty.New()
	client.SetHeader("Content-Type", "application/json")
	if cfg.AuthToken != "" {
		client.SetHeader("Authorization", "Bearer "+cfg.AuthToken)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	client.SetTimeout(timeout)

	return &FollowupPoster{
		client:  client,
		url:     cfg.URL,
		enabled: true,
	}
}

// IsEnabled returns whether follow-up delivery is configured.
func (p *FollowupPoster) IsEnabled() bool {
	return p.enabled
}

// Deliver posts a successful result for the given request.
func (p *FollowupPoster) Deliver(ctx context.Context, requestID string, result *domain.TranslationResult) error {
	return p.post(ctx, &followupPayload{
		RequestID: requestID,
		Status:    "ok",
		Result:    result,
	})
}

// DeliverFailure posts a uniform, non-leaking failure notice for the given
// request.
func (p *FollowupPoster) DeliverFailure(ctx context.Context, requestID, message string) error {
	return p.post(ctx, &followupPayload{
		RequestID: requestID,
		Status:    "failed",
		Error:     message,
	})
}

func (p *FollowupPoster) post(ctx context.Context, payload *followupPayload) error {
	if !p.enabled {
		return nil
	}

	httpResp, err := p.client.R().
		SetContext(ctx).
		SetBody(payload).
		Post(p.url)
	if err != nil {
		return fmt.Errorf("follow-up delivery failed: %w", err)
	}
	if httpResp.StatusCode() < 200 || httpResp.StatusCode() >= 300 {
		return fmt.Errorf("follow-up delivery rejected: HTTP %d", httpResp.StatusCode())
	}
	return nil
}
