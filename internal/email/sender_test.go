package email

import (
	"context"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/SergeiKhy/referral-service/internal/config"
	"github.com/emersion/go-smtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// captureBackend принимает письма в память
type captureBackend struct {
	mu   sync.Mutex
	from string
	to   []string
	data string
}

func (b *captureBackend) NewSession(c *smtp.Conn) (smtp.Session, error) {
	return &captureSession{backend: b}, nil
}

type captureSession struct {
	backend *captureBackend
	from    string
	to      []string
}

func (s *captureSession) Mail(from string, opts *smtp.MailOptions) error {
	s.from = from
	return nil
}

func (s *captureSession) Rcpt(to string, opts *smtp.RcptOptions) error {
	s.to = append(s.to, to)
	return nil
}

func (s *captureSession) Data(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	s.backend.from = s.from
	s.backend.to = s.to
	s.backend.data = string(data)
	return nil
}

func (s *captureSession) Reset() {
	s.from = ""
	s.to = nil
}

func (s *captureSession) Logout() error {
	return nil
}

func startTestServer(t *testing.T) (*captureBackend, string, string) {
	t.Helper()

	backend := &captureBackend{}
	server := smtp.NewServer(backend)
	server.Domain = "localhost"
	server.AllowInsecureAuth = true
	server.ReadTimeout = 5 * time.Second
	server.WriteTimeout = 5 * time.Second

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go server.Serve(l)
	t.Cleanup(func() { server.Close() })

	host, port, err := net.SplitHostPort(l.Addr().String())
	require.NoError(t, err)
	return backend, host, port
}

func TestSMTPSender_Send(t *testing.T) {
	backend, host, port := startTestServer(t)

	sender := NewSMTPSender(config.SMTPConfig{
		Host: host,
		Port: port,
		From: "Referral Platform <noreply@example.com>",
	}, zap.NewNop())

	err := sender.Send(context.Background(), Message{
		To:      "referrer@example.com",
		Subject: ConversionSubject,
		HTML:    ConversionNotificationHTML("Ann", "Gala", 2),
	})
	require.NoError(t, err)

	backend.mu.Lock()
	defer backend.mu.Unlock()

	assert.Equal(t, "noreply@example.com", backend.from)
	assert.Equal(t, []string{"referrer@example.com"}, backend.to)
	assert.Contains(t, backend.data, "To: referrer@example.com")
	assert.Contains(t, backend.data, "Content-Type: text/html; charset=utf-8")
	assert.Contains(t, backend.data, "Total Conversions:</strong> 2")
}

func TestSMTPSender_Send_Unreachable(t *testing.T) {
	sender := NewSMTPSender(config.SMTPConfig{Host: "127.0.0.1", Port: "1", From: "a@b.c"}, zap.NewNop())

	err := sender.Send(context.Background(), Message{To: "x@y.z", Subject: "s", HTML: "h"})
	assert.Error(t, err)
}

func TestSMTPSender_Send_RequiresRecipient(t *testing.T) {
	sender := NewSMTPSender(config.SMTPConfig{Host: "127.0.0.1", Port: "25"}, zap.NewNop())
	assert.Error(t, sender.Send(context.Background(), Message{Subject: "s"}))
}

func TestBuildMessage(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	data := string(BuildMessage(Message{
		From:    "Team <team@example.com>",
		To:      "a@example.com",
		Subject: "Привет",
		HTML:    "<p>1</p>\n<p>2</p>",
	}, now))

	assert.Contains(t, data, "From: Team <team@example.com>\r\n")
	assert.Contains(t, data, "Subject: =?utf-8?q?")
	assert.Contains(t, data, "Date: "+now.Format(time.RFC1123Z))
	assert.Contains(t, data, "@example.com>\r\n")
	assert.True(t, strings.HasSuffix(data, "<p>1</p>\r\n<p>2</p>\r\n"))
}

func TestEnvelopeAddress(t *testing.T) {
	assert.Equal(t, "noreply@x.io", envelopeAddress("Platform <noreply@x.io>"))
	assert.Equal(t, "plain@x.io", envelopeAddress(" plain@x.io "))
	assert.Equal(t, "x.io", domainOf("Platform <noreply@x.io>"))
	assert.Equal(t, "localhost", domainOf("nobody"))
}

func TestSMTPSender_Send_RejectsInvalidRecipient(t *testing.T) {
	backend, host, port := startTestServer(t)
	sender := NewSMTPSender(config.SMTPConfig{Host: host, Port: port, From: "a@example.com"}, zap.NewNop())

	for _, to := range []string{"victim@example.com\r\nBcc: all@example.com", "not an address"} {
		assert.Error(t, sender.Send(context.Background(), Message{To: to, Subject: "s", HTML: "h"}), to)
	}

	backend.mu.Lock()
	defer backend.mu.Unlock()
	assert.Empty(t, backend.data)
}

func TestBuildMessage_StripsLineBreaks(t *testing.T) {
	data := string(BuildMessage(Message{
		From:    "a@example.com",
		To:      "b@example.com\r\nBcc: all@example.com",
		Subject: "Hi\nBcc: all@example.com",
		HTML:    "<p>x</p>",
	}, time.Now()))

	assert.NotContains(t, data, "\r\nBcc:")
	assert.NotContains(t, data, "\nBcc:")
	assert.Contains(t, data, "To: b@example.comBcc: all@example.com\r\n")
}
