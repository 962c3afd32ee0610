package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Fullex26/backupnotify/internal/config"
	"github.com/Fullex26/backupnotify/internal/notifiers"
	"github.com/Fullex26/backupnotify/pkg/models"
)

// Version is set at build time via ldflags: -X github.com/Fullex26/backupnotify/internal/dispatch.Version=<tag>
var Version = "dev"

// Recorder persists delivery attempts. *store.Store satisfies it.
type Recorder interface {
	SaveDelivery(d models.Delivery) error
}

// Dispatcher is the pipeline-side entry point: it decides whether an
// outcome is reported and fans it out to every configured notifier.
type Dispatcher struct {
	policy    config.PolicyConfig
	notifiers []notifiers.Notifier
	recorder  Recorder
	now       func() time.Time
}

// New creates a dispatcher. recorder may be nil.
func New(policy config.PolicyConfig, ns []notifiers.Notifier, recorder Recorder) *Dispatcher {
	return &Dispatcher{
		policy:    policy,
		notifiers: append([]notifiers.Notifier(nil), ns...),
		recorder:  recorder,
		now:       time.Now,
	}
}

// NotifiersFromConfig builds the enabled notifiers
func NotifiersFromConfig(cfg *config.Config) []notifiers.Notifier {
	var ns []notifiers.Notifier
	if cfg.Notifications.Sensu.Enabled {
		ns = append(ns, notifiers.NewSensu(cfg.Notifications.Sensu))
	}
	if cfg.Notifications.Ntfy.Enabled {
		ns = append(ns, notifiers.NewNtfy(cfg.Notifications.Ntfy))
	}
	if cfg.Notifications.Webhook.Enabled {
		ns = append(ns, notifiers.NewWebhook(cfg.Notifications.Webhook))
	}
	return ns
}

// Notifiers returns the names of the configured notifiers
func (d *Dispatcher) Notifiers() []string {
	names := make([]string, 0, len(d.notifiers))
	for _, n := range d.notifiers {
		names = append(names, n.Name())
	}
	return names
}

// ShouldNotify applies the on_success / on_warning / on_failure policy.
// Enabling a less severe outcome implies reporting the more severe ones.
func (d *Dispatcher) ShouldNotify(outcome models.Outcome) bool {
	switch outcome {
	case models.OutcomeSuccess:
		return d.policy.OnSuccess
	case models.OutcomeWarning:
		return d.policy.OnSuccess || d.policy.OnWarning
	case models.OutcomeFailure:
		return d.policy.OnSuccess || d.policy.OnWarning || d.policy.OnFailure
	}
	return false
}

// Notify reports the outcome of job to every notifier. Each notifier is
// tried once; failures are joined and returned so the caller can decide
// whether they are fatal to the run.
func (d *Dispatcher) Notify(ctx context.Context, job models.Job, outcome models.Outcome) error {
	_, level, err := outcome.Status()
	if err != nil {
		return err
	}

	if !d.ShouldNotify(outcome) {
		slog.Debug("notification suppressed by policy", "label", job.Label, "outcome", outcome)
		return nil
	}

	var errs []error
	for _, n := range d.notifiers {
		sendErr := n.Notify(ctx, outcome, job)
		d.record(n.Name(), job, outcome, level, sendErr)

		if sendErr != nil {
			slog.Error("notification failed",
				"notifier", n.Name(),
				"label", job.Label,
				"outcome", outcome,
				"error", sendErr,
			)
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), sendErr))
			continue
		}
		slog.Info("notification sent",
			"notifier", n.Name(),
			"label", job.Label,
			"trigger", job.Trigger,
			"outcome", outcome,
		)
	}
	return errors.Join(errs...)
}

func (d *Dispatcher) record(notifier string, job models.Job, outcome models.Outcome, level models.SeverityLevel, sendErr error) {
	if d.recorder == nil {
		return
	}
	delivery := models.Delivery{
		Notifier:  notifier,
		Label:     job.Label,
		Trigger:   job.Trigger,
		Outcome:   outcome,
		Level:     level,
		Timestamp: d.now(),
	}
	if sendErr != nil {
		delivery.Error = sendErr.Error()
	}
	if err := d.recorder.SaveDelivery(delivery); err != nil {
		slog.Error("failed to record delivery", "notifier", notifier, "error", err)
	}
}

// Test sends a test message to all configured notifiers
func (d *Dispatcher) Test(ctx context.Context) error {
	for _, n := range d.notifiers {
		slog.Info("testing notifier", "name", n.Name())
		if err := n.Test(ctx); err != nil {
			return fmt.Errorf("%s: %w", n.Name(), err)
		}
		slog.Info("notifier OK", "name", n.Name())
	}
	return nil
}
