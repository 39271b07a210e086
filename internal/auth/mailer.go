package auth

import (
	"context"
	"fmt"
	"sync"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

const (
	senderName   = "Düğün Anıları"
	resetSubject = "Şifre sıfırlama"
)

// Mailer delivers password reset links
type Mailer interface {
	SendPasswordReset(ctx context.Context, to, link string) error
}

func resetBody(link string) (plain, html string) {
	plain = fmt.Sprintf("Şifrenizi sıfırlamak için bu bağlantıyı kullanın:\n\n%s\n\nBu isteği siz yapmadıysanız e-postayı yok sayabilirsiniz.", link)
	html = fmt.Sprintf(`<p>Şifrenizi sıfırlamak için <a href="%s">buraya tıklayın</a>.</p><p>Bu isteği siz yapmadıysanız e-postayı yok sayabilirsiniz.</p>`, link)
	return plain, html
}

type sendGridMailer struct {
	apiKey string
	from   string
}

// NewSendGridMailer sends through the SendGrid v3 API
func NewSendGridMailer(apiKey, from string) Mailer {
	return &sendGridMailer{apiKey: apiKey, from: from}
}

func (m *sendGridMailer) SendPasswordReset(ctx context.Context, to, link string) error {
	plain, html := resetBody(link)
	message := mail.NewSingleEmail(mail.NewEmail(senderName, m.from), resetSubject, mail.NewEmail("", to), plain, html)

	response, err := sendgrid.NewSendClient(m.apiKey).SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send email via SendGrid: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("SendGrid returned error status: %d", response.StatusCode)
	}
	return nil
}

type smtpMailer struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPMailer sends through an SMTP relay
func NewSMTPMailer(host string, port int, username, password, from string) Mailer {
	return &smtpMailer{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
	}
}

func (m *smtpMailer) SendPasswordReset(ctx context.Context, to, link string) error {
	plain, html := resetBody(link)

	msg := gomail.NewMessage()
	msg.SetHeader("From", msg.FormatAddress(m.from, senderName))
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", resetSubject)
	msg.SetBody("text/plain", plain)
	msg.AddAlternative("text/html", html)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send email via SMTP: %w", err)
	}
	return nil
}

// MockMailer logs instead of sending and remembers the last link per
// address.
type MockMailer struct {
	logger *zap.Logger

	mu    sync.Mutex
	links map[string]string
}

func NewMockMailer(logger *zap.Logger) *MockMailer {
	return &MockMailer{logger: logger, links: make(map[string]string)}
}

func (m *MockMailer) SendPasswordReset(ctx context.Context, to, link string) error {
	m.mu.Lock()
	m.links[to] = link
	m.mu.Unlock()
	m.logger.Info("mock password reset email", zap.String("to", to), zap.String("link", link))
	return nil
}

// LastLink returns the most recent link sent to the address
func (m *MockMailer) LastLink(to string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.links[to]
}
