package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidOutcome is returned for any value outside the Outcome set
var ErrInvalidOutcome = errors.New("invalid backup outcome")

// Outcome is the final classification of a backup job run
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeWarning
	OutcomeFailure
)

// SeverityLevel is the wire-level status code sent to the receiver
type SeverityLevel int

const (
	LevelOK       SeverityLevel = 0
	LevelWarning  SeverityLevel = 1
	LevelCritical SeverityLevel = 2
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeWarning:
		return "warning"
	case OutcomeFailure:
		return "failure"
	}
	return "unknown"
}

// Status maps an outcome to its message tag and severity level.
// Values outside the closed set fail with ErrInvalidOutcome.
func (o Outcome) Status() (string, SeverityLevel, error) {
	switch o {
	case OutcomeSuccess:
		return "[Backup::Success]", LevelOK, nil
	case OutcomeWarning:
		return "[Backup::Warning]", LevelWarning, nil
	case OutcomeFailure:
		return "[Backup::Failure]", LevelCritical, nil
	}
	return "", 0, fmt.Errorf("%w: %d", ErrInvalidOutcome, int(o))
}

// ParseOutcome converts "success", "warning" or "failure" to an Outcome
func ParseOutcome(s string) (Outcome, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "success":
		return OutcomeSuccess, nil
	case "warning":
		return OutcomeWarning, nil
	case "failure":
		return OutcomeFailure, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidOutcome, s)
}

// Job identifies the backup run being reported on
type Job struct {
	Label   string `json:"label"`   // e.g. "mysql_backup"
	Trigger string `json:"trigger"` // e.g. "nightly"
}

// CheckResult is the payload a Sensu client socket accepts.
// Field order here is the order on the wire.
type CheckResult struct {
	Name    string        `json:"name"`
	Output  string        `json:"output"`
	Status  SeverityLevel `json:"status"`
	Handler []string      `json:"handler"`
}

// FormatMessage builds the single-line check output
func FormatMessage(tag, label, trigger string) string {
	return fmt.Sprintf("%s %s (%s)", tag, label, trigger)
}

// Delivery records one notification attempt
type Delivery struct {
	ID        string        `json:"id"`
	Notifier  string        `json:"notifier"`
	Label     string        `json:"label"`
	Trigger   string        `json:"trigger"`
	Outcome   Outcome       `json:"outcome"`
	Level     SeverityLevel `json:"level"`
	Timestamp time.Time     `json:"timestamp"`
	Error     string        `json:"error,omitempty"` // empty when delivered
}

// Failed reports whether the attempt returned an error
func (d Delivery) Failed() bool {
	return d.Error != ""
}
