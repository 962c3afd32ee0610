package notifiers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/Fullex26/backupnotify/internal/config"
	"github.com/Fullex26/backupnotify/pkg/models"
)

// Ntfy pushes backup results to an ntfy topic
type Ntfy struct {
	server string
	topic  string
	token  string
	client *http.Client
}

func NewNtfy(cfg config.NtfyConfig) *Ntfy {
	server := strings.TrimRight(cfg.Server, "/")
	if server == "" {
		server = "https://ntfy.sh"
	}
	return &Ntfy{
		server: server,
		topic:  cfg.Topic,
		token:  cfg.Token,
		client: &http.Client{},
	}
}

func (n *Ntfy) Name() string { return "ntfy" }

func (n *Ntfy) Notify(ctx context.Context, outcome models.Outcome, job models.Job) error {
	tag, level, err := outcome.Status()
	if err != nil {
		return err
	}

	priority := "default"
	tags := "floppy_disk"
	switch level {
	case models.LevelCritical:
		priority = "urgent"
		tags = "rotating_light"
	case models.LevelWarning:
		priority = "high"
		tags = "warning"
	}

	title := fmt.Sprintf("Backup %s: %s", outcome, job.Label)
	return n.send(ctx, title, models.FormatMessage(tag, job.Label, job.Trigger), priority, tags)
}

func (n *Ntfy) Test(ctx context.Context) error {
	return n.Notify(ctx, models.OutcomeSuccess, testJob)
}

func (n *Ntfy) send(ctx context.Context, title, body, priority, tags string) error {
	url := fmt.Sprintf("%s/%s", n.server, n.topic)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(body))
	if err != nil {
		return err
	}

	req.Header.Set("Title", title)
	req.Header.Set("Priority", priority)
	req.Header.Set("Tags", tags)

	if n.token != "" {
		req.Header.Set("Authorization", "Bearer "+n.token)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("ntfy send failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ntfy returned status %d", resp.StatusCode)
	}
	return nil
}
