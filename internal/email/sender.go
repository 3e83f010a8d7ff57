package email

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"net/mail"
	"strings"
	"time"

	"github.com/SergeiKhy/referral-service/internal/config"
	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Message письмо с HTML телом одному получателю
type Message struct {
	From    string
	To      string
	Subject string
	HTML    string
}

// Sender отправляет письма. Реализации не делают повторных попыток,
// их выполняет вызывающая сторона.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPSender отправляет письма через SMTP relay
type SMTPSender struct {
	addr     string
	username string
	password string
	from     string
	logger   *zap.Logger
}

func NewSMTPSender(cfg config.SMTPConfig, logger *zap.Logger) *SMTPSender {
	return &SMTPSender{
		addr:     cfg.Addr(),
		username: cfg.Username,
		password: cfg.Password,
		from:     cfg.From,
		logger:   logger,
	}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if msg.From == "" {
		msg.From = s.from
	}
	if msg.To == "" {
		return fmt.Errorf("recipient is required")
	}
	if _, err := mail.ParseAddress(msg.To); err != nil || strings.ContainsAny(msg.To, "\r\n") {
		return fmt.Errorf("invalid recipient %q", msg.To)
	}

	var auth sasl.Client
	if s.username != "" {
		auth = sasl.NewPlainClient("", s.username, s.password)
	}

	data := BuildMessage(msg, time.Now())

	// SendMail не принимает context, поэтому отправка идёт в горутине
	errCh := make(chan error, 1)
	go func() {
		errCh <- smtp.SendMail(s.addr, auth, envelopeAddress(msg.From), []string{msg.To}, bytes.NewReader(data))
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to send email via %s: %w", s.addr, err)
		}
	}

	s.logger.Debug("Email sent",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
	)
	return nil
}

// LogSender только логирует письма. Используется, когда SMTP не настроен.
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.logger.Info("SMTP not configured, email skipped",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
	)
	return nil
}

// BuildMessage собирает письмо в формате RFC 5322
func BuildMessage(msg Message, now time.Time) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("From: %s\r\n", headerValue(msg.From)))
	buf.WriteString(fmt.Sprintf("To: %s\r\n", headerValue(msg.To)))
	buf.WriteString(fmt.Sprintf("Subject: %s\r\n", mime.QEncoding.Encode("utf-8", headerValue(msg.Subject))))
	buf.WriteString(fmt.Sprintf("Date: %s\r\n", now.Format(time.RFC1123Z)))
	buf.WriteString(fmt.Sprintf("Message-ID: <%s@%s>\r\n", uuid.New().String(), domainOf(msg.From)))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/html; charset=utf-8\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(strings.ReplaceAll(msg.HTML, "\n", "\r\n"))
	buf.WriteString("\r\n")

	return buf.Bytes()
}

// headerValue убирает переводы строк, чтобы значение не породило новый заголовок
func headerValue(v string) string {
	return strings.NewReplacer("\r", "", "\n", "").Replace(v)
}

// envelopeAddress достаёт адрес из вида "Name <user@host>"
func envelopeAddress(from string) string {
	if i := strings.LastIndex(from, "<"); i >= 0 {
		if j := strings.Index(from[i:], ">"); j > 0 {
			return from[i+1 : i+j]
		}
	}
	return strings.TrimSpace(from)
}

func domainOf(from string) string {
	addr := envelopeAddress(from)
	if i := strings.LastIndex(addr, "@"); i >= 0 {
		return addr[i+1:]
	}
	return "localhost"
}
