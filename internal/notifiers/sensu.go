package notifiers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strconv"

	"github.com/Fullex26/backupnotify/internal/config"
	"github.com/Fullex26/backupnotify/pkg/models"
)

// TransmissionError wraps a local transport failure (resolution, socket
// or send). Receiver-side processing errors are never observed.
type TransmissionError struct {
	Addr string
	Err  error
}

func (e *TransmissionError) Error() string {
	return fmt.Sprintf("sensu transmit to %s: %v", e.Addr, e.Err)
}

func (e *TransmissionError) Unwrap() error { return e.Err }

type dialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// Sensu emits check results to a Sensu client socket over UDP.
// A Sensu value is immutable after NewSensu and safe for concurrent use.
type Sensu struct {
	host    string
	port    int
	name    string
	handler []string
	dial    dialFunc
}

func NewSensu(cfg config.SensuConfig) *Sensu {
	host := cfg.Host
	if host == "" {
		host = config.DefaultSensuHost
	}
	port := cfg.Port
	if port == 0 {
		port = config.DefaultSensuPort
	}
	name := cfg.Name
	if name == "" {
		name = config.DefaultSensuName
	}
	handler := config.DefaultSensuHandler()
	if len(cfg.Handler) > 0 {
		handler = append([]string(nil), cfg.Handler...)
	}
	return &Sensu{
		host:    host,
		port:    port,
		name:    name,
		handler: handler,
		dial:    (&net.Dialer{}).DialContext,
	}
}

func (s *Sensu) Name() string { return "sensu" }

// Addr returns the destination host:port
func (s *Sensu) Addr() string {
	return net.JoinHostPort(s.host, strconv.Itoa(s.port))
}

func (s *Sensu) Notify(ctx context.Context, outcome models.Outcome, job models.Job) error {
	tag, level, err := outcome.Status()
	if err != nil {
		return err
	}
	return s.Emit(ctx, tag, level, job.Label, job.Trigger)
}

func (s *Sensu) Test(ctx context.Context) error {
	return s.Notify(ctx, models.OutcomeSuccess, testJob)
}

// Emit sends exactly one datagram carrying the check result. It returns
// once the local transport has accepted the datagram.
func (s *Sensu) Emit(ctx context.Context, tag string, level models.SeverityLevel, label, trigger string) error {
	payload, err := s.Payload(tag, level, label, trigger)
	if err != nil {
		return err
	}

	addr := s.Addr()
	conn, err := s.dial(ctx, "udp", addr)
	if err != nil {
		return &TransmissionError{Addr: addr, Err: err}
	}
	defer conn.Close()

	if _, err := conn.Write(payload); err != nil {
		return &TransmissionError{Addr: addr, Err: err}
	}
	return nil
}

// Payload returns the serialized check result for one emit
func (s *Sensu) Payload(tag string, level models.SeverityLevel, label, trigger string) ([]byte, error) {
	result := models.CheckResult{
		Name:    s.name,
		Output:  models.FormatMessage(tag, label, trigger),
		Status:  level,
		Handler: s.handler,
	}
	return encodeCheckResult(result)
}

// encodeCheckResult marshals compactly without HTML escaping so labels
// like "a&b" reach the receiver unchanged.
func encodeCheckResult(r models.CheckResult) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r); err != nil {
		return nil, fmt.Errorf("encoding check result: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
