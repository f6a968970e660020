package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
)

// SMTPConfig configures SMTPSender.
type SMTPConfig struct {
	Addr     string
	Username string
	Password string
	// Timeout bounds one delivery. Zero means 10 seconds.
	Timeout time.Duration
}

// SMTPSender delivers through an SMTP relay, using PLAIN auth when a
// username is configured.
type SMTPSender struct {
	cfg  SMTPConfig
	from string
	// sendMail is smtp.SendMail; replaced in tests.
	sendMail func(addr string, a sasl.Client, from string, to []string, r io.Reader) error
}

func NewSMTPSender(cfg SMTPConfig, from string) *SMTPSender {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &SMTPSender{cfg: cfg, from: from, sendMail: smtp.SendMail}
}

func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	raw, err := buildMessage(s.from, to, subject, body, time.Now())
	if err != nil {
		return err
	}

	var auth sasl.Client
	if s.cfg.Username != "" {
		auth = sasl.NewPlainClient("", s.cfg.Username, s.cfg.Password)
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- s.sendMail(s.cfg.Addr, auth, s.from, []string{to}, bytes.NewReader(raw))
	}()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("smtp send: %w", ctx.Err())
	}
}

// buildMessage renders a multipart/alternative message with the Markdown
// body as text/plain and its HTML rendering as text/html.
func buildMessage(from, to, subject, body string, date time.Time) ([]byte, error) {
	html, err := RenderHTML(body)
	if err != nil {
		return nil, err
	}

	var h mail.Header
	h.SetDate(date)
	h.SetAddressList("From", []*mail.Address{{Address: from}})
	h.SetAddressList("To", []*mail.Address{{Address: to}})
	h.SetSubject(subject)
	if err := h.GenerateMessageID(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, err
	}
	iw, err := mw.CreateInline()
	if err != nil {
		return nil, err
	}
	for _, part := range []struct{ mediaType, content string }{
		{"text/plain", body},
		{"text/html", html},
	} {
		var ph mail.InlineHeader
		ph.SetContentType(part.mediaType, map[string]string{"charset": "utf-8"})
		pw, err := iw.CreatePart(ph)
		if err != nil {
			return nil, err
		}
		if _, err := io.WriteString(pw, part.content); err != nil {
			return nil, err
		}
		if err := pw.Close(); err != nil {
			return nil, err
		}
	}
	if err := iw.Close(); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
