package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"

	"donor-crm/internal/config"
	"donor-crm/internal/core/ports"

	"github.com/jordan-wright/email"
)

// SMTPSender delivers email over SMTP with STARTTLS
type SMTPSender struct {
	cfg config.SMTPConfig
}

func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

func (s *SMTPSender) SendEmail(ctx context.Context, msg ports.EmailMessage) (ports.Outcome, error) {
	e := email.NewEmail()
	e.From = fmt.Sprintf("%s <%s>", s.cfg.FromName, s.cfg.FromEmail)
	e.To = []string{msg.To}
	e.Subject = msg.Subject
	e.HTML = []byte(msg.HTML)
	e.Text = []byte(msg.Text)

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	// email has no context support; the send is abandoned, not aborted, on timeout
	errCh := make(chan error, 1)
	go func() {
		errCh <- e.SendWithStartTLS(addr, auth, &tls.Config{ServerName: s.cfg.Host})
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return nil, fmt.Errorf("smtp send to %s: %w", msg.To, err)
		}
		return ports.Outcome{"provider": "smtp", "to": msg.To}, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("smtp send to %s: %w", msg.To, ctx.Err())
	}
}
