package notifiers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/Fullex26/backupnotify/internal/config"
	"github.com/Fullex26/backupnotify/pkg/models"
)

const userAgent = "backupnotify/0.1"

// WebhookPayload is the JSON body posted for each backup result
type WebhookPayload struct {
	Label   string               `json:"label"`
	Trigger string               `json:"trigger"`
	Outcome string               `json:"outcome"`
	Status  models.SeverityLevel `json:"status"`
	Output  string               `json:"output"`
}

// Webhook sends backup results to a generic HTTP endpoint
type Webhook struct {
	url    string
	method string
	client *http.Client
}

func NewWebhook(cfg config.WebhookConfig) *Webhook {
	method := strings.ToUpper(cfg.Method)
	if method == "" {
		method = http.MethodPost
	}
	return &Webhook{
		url:    cfg.URL,
		method: method,
		client: &http.Client{},
	}
}

func (w *Webhook) Name() string { return "webhook" }

func (w *Webhook) Notify(ctx context.Context, outcome models.Outcome, job models.Job) error {
	tag, level, err := outcome.Status()
	if err != nil {
		return err
	}
	data, err := json.Marshal(WebhookPayload{
		Label:   job.Label,
		Trigger: job.Trigger,
		Outcome: outcome.String(),
		Status:  level,
		Output:  models.FormatMessage(tag, job.Label, job.Trigger),
	})
	if err != nil {
		return err
	}
	return w.send(ctx, data)
}

func (w *Webhook) Test(ctx context.Context) error {
	return w.Notify(ctx, models.OutcomeSuccess, testJob)
}

func (w *Webhook) send(ctx context.Context, data []byte) error {
	req, err := http.NewRequestWithContext(ctx, w.method, w.url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook send failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
