package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/resend/resend-go/v2"
)

// ---------------------------------------------------------------------------
// in-process SMTP server
// ---------------------------------------------------------------------------

type received struct {
	from string
	to   []string
	data []byte
}

type testBackend struct {
	mu       sync.Mutex
	messages []received
	username string
	password string
}

func (b *testBackend) NewSession(_ *smtp.Conn) (smtp.Session, error) {
	return &testSession{backend: b}, nil
}

func (b *testBackend) last() received {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.messages[len(b.messages)-1]
}

type testSession struct {
	backend *testBackend
	authed  bool
	cur     received
}

func (s *testSession) AuthMechanisms() []string {
	if s.backend.username == "" {
		return nil
	}
	return []string{sasl.Plain}
}

func (s *testSession) Auth(mech string) (sasl.Server, error) {
	return sasl.NewPlainServer(func(identity, username, password string) error {
		if username != s.backend.username || password != s.backend.password {
			return errors.New("invalid credentials")
		}
		s.authed = true
		return nil
	}), nil
}

func (s *testSession) Mail(from string, _ *smtp.MailOptions) error {
	if s.backend.username != "" && !s.authed {
		return smtp.ErrAuthRequired
	}
	s.cur.from = from
	return nil
}

func (s *testSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.cur.to = append(s.cur.to, to)
	return nil
}

func (s *testSession) Data(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.cur.data = data
	s.backend.mu.Lock()
	s.backend.messages = append(s.backend.messages, s.cur)
	s.backend.mu.Unlock()
	return nil
}

func (s *testSession) Reset()        { s.cur = received{} }
func (s *testSession) Logout() error { return nil }

func startSMTP(t *testing.T, be *testBackend) string {
	t.Helper()
	srv := smtp.NewServer(be)
	srv.Domain = "localhost"
	srv.AllowInsecureAuth = true
	srv.ReadTimeout = 5 * time.Second
	srv.WriteTimeout = 5 * time.Second

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go func() { _ = srv.Serve(l) }()
	t.Cleanup(func() { _ = srv.Close() })
	return l.Addr().String()
}

// ---------------------------------------------------------------------------
// SMTPSender
// ---------------------------------------------------------------------------

func TestSMTPSender_DeliversMultipartMessage(t *testing.T) {
	be := &testBackend{username: "crm", password: "secret"}
	addr := startSMTP(t, be)

	s := NewSMTPSender(SMTPConfig{Addr: addr, Username: "crm", Password: "secret", Timeout: 5 * time.Second}, "noreply@minicrm.test")
	if err := s.Send(context.Background(), "ann@example.com", "Quarterly update", "Hello **Ann**"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	got := be.last()
	if got.from != "noreply@minicrm.test" || len(got.to) != 1 || got.to[0] != "ann@example.com" {
		t.Errorf("envelope = %s -> %v", got.from, got.to)
	}

	mr, err := mail.CreateReader(strings.NewReader(string(got.data)))
	if err != nil {
		t.Fatalf("parse message: %v", err)
	}
	if subject, _ := mr.Header.Subject(); subject != "Quarterly update" {
		t.Errorf("subject = %q", subject)
	}
	parts := map[string]string{}
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("next part: %v", err)
		}
		if h, ok := p.Header.(*mail.InlineHeader); ok {
			mediaType, _, _ := h.ContentType()
			b, _ := io.ReadAll(p.Body)
			parts[mediaType] = string(b)
		}
	}
	if parts["text/plain"] != "Hello **Ann**" {
		t.Errorf("text part = %q", parts["text/plain"])
	}
	if !strings.Contains(parts["text/html"], "<strong>Ann</strong>") {
		t.Errorf("html part = %q", parts["text/html"])
	}
}

func TestSMTPSender_RejectedCredentials(t *testing.T) {
	be := &testBackend{username: "crm", password: "secret"}
	addr := startSMTP(t, be)

	s := NewSMTPSender(SMTPConfig{Addr: addr, Username: "crm", Password: "wrong"}, "noreply@minicrm.test")
	if err := s.Send(context.Background(), "ann@example.com", "s", "b"); err == nil {
		t.Fatal("expected auth failure")
	}
}

func TestSMTPSender_Timeout(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{Addr: "unused", Timeout: 20 * time.Millisecond}, "noreply@minicrm.test")
	block := make(chan struct{})
	defer close(block)
	s.sendMail = func(string, sasl.Client, string, []string, io.Reader) error {
		<-block
		return nil
	}

	err := s.Send(context.Background(), "ann@example.com", "s", "b")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}

// ---------------------------------------------------------------------------
// ResendSender
// ---------------------------------------------------------------------------

func TestResendSender_PostsEmail(t *testing.T) {
	var payload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer re_test" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&payload)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"msg_123"}`)
	}))
	defer srv.Close()

	s := NewResendSender("re_test", "noreply@minicrm.test")
	s.client.BaseURL, _ = url.Parse(srv.URL + "/")

	if err := s.Send(context.Background(), "ann@example.com", "Hi", "# Title"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if payload["subject"] != "Hi" || payload["from"] != "noreply@minicrm.test" {
		t.Errorf("payload = %v", payload)
	}
	if html, _ := payload["html"].(string); !strings.Contains(html, "<h1>Title</h1>") {
		t.Errorf("html = %q", html)
	}
}

func TestResendSender_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = io.WriteString(w, `{"statusCode":422,"name":"validation_error","message":"bad from"}`)
	}))
	defer srv.Close()

	s := &ResendSender{client: resend.NewClient("re_test"), from: "x"}
	s.client.BaseURL, _ = url.Parse(srv.URL + "/")
	if err := s.Send(context.Background(), "ann@example.com", "Hi", "b"); err == nil {
		t.Fatal("expected error")
	}
}

// ---------------------------------------------------------------------------
// driver selection, metrics, rendering
// ---------------------------------------------------------------------------

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"default is log", Config{}, false},
		{"log", Config{Driver: DriverLog}, false},
		{"smtp", Config{Driver: DriverSMTP, SMTP: SMTPConfig{Addr: "localhost:25"}}, false},
		{"smtp without address", Config{Driver: DriverSMTP}, true},
		{"resend", Config{Driver: DriverResend, ResendAPIKey: "re_x"}, false},
		{"resend without key", Config{Driver: DriverResend}, true},
		{"unknown", Config{Driver: "pigeon"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && s == nil {
				t.Fatal("expected a sender")
			}
		})
	}
}

type errSender struct{ err error }

func (e errSender) Send(context.Context, string, string, string) error { return e.err }

func TestWithMetrics_PassesThroughErrors(t *testing.T) {
	boom := errors.New("boom")
	if err := WithMetrics("test", errSender{err: boom}).Send(context.Background(), "a", "b", "c"); !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
	if err := WithMetrics("test", NewLogSender()).Send(context.Background(), "a", "b", "c"); err != nil {
		t.Errorf("log sender err = %v", err)
	}
}

func TestRenderHTML_EscapesRawHTML(t *testing.T) {
	html, err := RenderHTML("line one\nline two <script>alert(1)</script>")
	if err != nil {
		t.Fatalf("RenderHTML: %v", err)
	}
	if strings.Contains(html, "<script>") {
		t.Errorf("raw HTML must not pass through: %q", html)
	}
	if !strings.Contains(html, "<br") {
		t.Errorf("expected hard wraps: %q", html)
	}
}
