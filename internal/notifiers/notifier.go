package notifiers

import (
	"context"

	"github.com/Fullex26/backupnotify/pkg/models"
)

// Notifier reports backup outcomes to an external channel
type Notifier interface {
	// Name returns the notifier identifier
	Name() string
	// Notify delivers the outcome of one backup job run
	Notify(ctx context.Context, outcome models.Outcome, job models.Job) error
	// Test sends a test notification to verify configuration
	Test(ctx context.Context) error
}

// testJob is reported by Test on every notifier
var testJob = models.Job{Label: "backupnotify", Trigger: "test"}
