// Package notify delivers email messages through a configurable driver.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/minicrm/backend/internal/metrics"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"
)

// Sender delivers a single message to one recipient.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Drivers accepted by New.
const (
	DriverLog    = "log"
	DriverSMTP   = "smtp"
	DriverResend = "resend"
)

// Config selects and configures a driver.
type Config struct {
	Driver string
	From   string
	SMTP   SMTPConfig
	// ResendAPIKey is required for the resend driver.
	ResendAPIKey string
}

// New builds the Sender for cfg.Driver, wrapped with delivery metrics.
func New(cfg Config) (Sender, error) {
	var s Sender
	switch cfg.Driver {
	case "", DriverLog:
		s = NewLogSender()
	case DriverSMTP:
		if cfg.SMTP.Addr == "" {
			return nil, fmt.Errorf("notify: smtp driver requires an address")
		}
		s = NewSMTPSender(cfg.SMTP, cfg.From)
	case DriverResend:
		if cfg.ResendAPIKey == "" {
			return nil, fmt.Errorf("notify: resend driver requires an API key")
		}
		s = NewResendSender(cfg.ResendAPIKey, cfg.From)
	default:
		return nil, fmt.Errorf("notify: unknown driver %q", cfg.Driver)
	}
	driver := cfg.Driver
	if driver == "" {
		driver = DriverLog
	}
	return WithMetrics(driver, s), nil
}

// LogSender only logs the message. It is the development default.
type LogSender struct{}

func NewLogSender() *LogSender { return &LogSender{} }

func (LogSender) Send(ctx context.Context, to, subject, body string) error {
	slog.InfoContext(ctx, "email message (log driver)", "to", to, "subject", subject, "body_bytes", len(body))
	return nil
}

type metered struct {
	driver string
	next   Sender
}

// WithMetrics counts delivery outcomes of next under the driver label.
func WithMetrics(driver string, next Sender) Sender {
	return &metered{driver: driver, next: next}
}

func (m *metered) Send(ctx context.Context, to, subject, body string) error {
	err := m.next.Send(ctx, to, subject, body)
	metrics.ObserveDelivery(m.driver, err)
	return err
}

// mdRenderer escapes raw HTML in bodies (WithUnsafe is not set).
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// RenderHTML converts a Markdown message body into the HTML alternative.
func RenderHTML(body string) (string, error) {
	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(body), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return buf.String(), nil
}
