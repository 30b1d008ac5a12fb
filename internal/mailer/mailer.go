package mailer

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/wneessen/go-mail"

	"github.com/feedpulse/feedpulse/internal/config"
)

// Sender delivers one message to one recipient. Implementations must not
// retry internally; the caller decides how failures are handled.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPSender sends plain-text mail through a configured SMTP relay.
// When the relay is not configured the message is logged and dropped, so an
// environment without SMTP still runs end to end.
type SMTPSender struct {
	cfg config.SMTPConfig
}

func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

func (s *SMTPSender) configured() bool {
	return s.cfg.Host != "" && s.cfg.FromAddress != ""
}

func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	if !s.configured() {
		log.Warn().Str("to", to).Str("subject", subject).Msg("SMTP not configured; email dropped")
		return nil
	}

	msg := mail.NewMsg()
	if err := msg.FromFormat(s.cfg.FromName, s.cfg.FromAddress); err != nil {
		return err
	}
	if err := msg.To(to); err != nil {
		return err
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}

	client, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return err
	}
	return client.DialAndSendWithContext(ctx, msg)
}
