package notifications

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/stockroom-backend/pkg/config"
	"github.com/angelmondragon/stockroom-backend/pkg/enums"
	"github.com/wneessen/go-mail"
)

type mailDialer interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// EmailSender delivers alerts over SMTP.
type EmailSender struct {
	cfg    config.NotificationsConfig
	dialer func() (mailDialer, error)
}

func NewEmailSender(cfg config.NotificationsConfig) *EmailSender {
	s := &EmailSender{cfg: cfg}
	s.dialer = s.newClient
	return s
}

func (s *EmailSender) Channel() enums.NotificationChannel {
	return enums.NotificationChannelEmail
}

func (s *EmailSender) Enabled() bool {
	return s.cfg.EmailEnabled()
}

func (s *EmailSender) Send(ctx context.Context, delivery Delivery) error {
	if !s.Enabled() {
		return ErrChannelDisabled
	}
	recipient := strings.TrimSpace(delivery.Recipient)
	if recipient == "" {
		return fmt.Errorf("email recipient required")
	}

	msg, err := s.message(recipient, delivery)
	if err != nil {
		return err
	}
	client, err := s.dialer()
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

func (s *EmailSender) message(recipient string, delivery Delivery) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(s.cfg.AlertEmailFrom); err != nil {
		return nil, fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(recipient); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}
	subject := delivery.Subject
	if subject == "" {
		subject = alertSubject
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, delivery.Text)
	return msg, nil
}

func (s *EmailSender) newClient() (mailDialer, error) {
	policy := mail.TLSOpportunistic
	if s.cfg.SMTPTLS {
		policy = mail.TLSMandatory
	}
	opts := []mail.Option{
		mail.WithPort(s.cfg.SMTPPort),
		mail.WithTLSPolicy(policy),
	}
	if s.cfg.SendTimeout > 0 {
		opts = append(opts, mail.WithTimeout(s.cfg.SendTimeout))
	}
	if s.cfg.SMTPUsername != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.SMTPUsername),
			mail.WithPassword(s.cfg.SMTPPassword),
		)
	}
	return mail.NewClient(s.cfg.SMTPHost, opts...)
}
