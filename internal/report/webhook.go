package report

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/orderbatch/internal/config"
	"github.com/timmy/orderbatch/internal/domain"
)

// webhookPayload is the body POSTed to the report webhook.
type webhookPayload struct {
	Event   string             `json:"event"`
	Outcome string             `json:"outcome"`
	Summary *domain.RunSummary `json:"summary"`
}

// WebhookPublisher POSTs the summary as JSON to a configured URL.
type WebhookPublisher struct {
	client *resty.Client
	url    string
}

// NewWebhookPublisher creates a WebhookPublisher from cfg.
func NewWebhookPublisher(cfg *config.WebhookConfig) *WebhookPublisher {
	client := resty.New()
	client.SetHeader("Content-Type", "application/json")
	for k, v := range cfg.Headers {
		client.SetHeader(k, v)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client.SetTimeout(timeout)

	return &WebhookPublisher{
		client: client,
		url:    cfg.URL,
	}
}

func (p *WebhookPublisher) Name() string { return "webhook" }

// Publish sends the summary. Any non-2xx response is an error.
func (p *WebhookPublisher) Publish(ctx context.Context, summary *domain.RunSummary) error {
	body := webhookPayload{
		Event:   "run.finished",
		Outcome: statusLabel(summary.Status),
		Summary: summary,
	}

	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(body).
		Post(p.url)
	if err != nil {
		return fmt.Errorf("failed to call report webhook: %w", err)
	}
	if resp.StatusCode() < http.StatusOK || resp.StatusCode() >= http.StatusMultipleChoices {
		return fmt.Errorf("report webhook error: status %d", resp.StatusCode())
	}
	return nil
}
