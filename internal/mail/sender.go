package mail

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hugh/go-contacts/pkg/config"
	gomail "github.com/wneessen/go-mail"
)

type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Sender delivers a rendered message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPSender sends mail through an SMTP relay such as SendGrid.
type SMTPSender struct {
	cfg    config.MailConfig
	logger *slog.Logger
}

func NewSMTPSender(cfg config.MailConfig, logger *slog.Logger) *SMTPSender {
	return &SMTPSender{cfg: cfg, logger: logger}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	m := gomail.NewMsg()
	if err := m.From(s.cfg.From); err != nil {
		return fmt.Errorf("setting from address: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return fmt.Errorf("setting to address: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(gomail.TypeTextPlain, msg.Text)
	if msg.HTML != "" {
		m.AddAlternativeString(gomail.TypeTextHTML, msg.HTML)
	}

	client, err := gomail.NewClient(s.cfg.Host,
		gomail.WithPort(s.cfg.Port),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.cfg.Username),
		gomail.WithPassword(s.cfg.Password),
	)
	if err != nil {
		return fmt.Errorf("creating smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("sending mail: %w", err)
	}

	s.logger.Debug("mail sent", "to", msg.To, "subject", msg.Subject)
	return nil
}

// VerificationNotifier renders and sends verification mail in-process.
// It is used when no task queue is available.
type VerificationNotifier struct {
	sender  Sender
	baseURL string
}

func NewVerificationNotifier(sender Sender, baseURL string) *VerificationNotifier {
	return &VerificationNotifier{sender: sender, baseURL: baseURL}
}

func (n *VerificationNotifier) SendVerification(ctx context.Context, email, token string) error {
	msg, err := RenderVerification(n.baseURL, email, token)
	if err != nil {
		return fmt.Errorf("rendering verification mail: %w", err)
	}
	return n.sender.Send(ctx, msg)
}
