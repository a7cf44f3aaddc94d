package notify

import (
	"context"

	"donor-crm/internal/config"
	"donor-crm/internal/core/ports"
	"donor-crm/internal/pkg/logger"
)

type emailSender interface {
	SendEmail(ctx context.Context, msg ports.EmailMessage) (ports.Outcome, error)
}

type textSender interface {
	SendSMS(ctx context.Context, msg ports.SMSMessage) (ports.Outcome, error)
	SendWhatsApp(ctx context.Context, msg ports.SMSMessage) (ports.Outcome, error)
}

// Dispatcher routes each channel to its provider. A channel without a
// configured provider is logged and reported as delivered in dry-run mode.
type Dispatcher struct {
	log   *logger.Logger
	email emailSender
	text  textSender
}

var _ ports.Notifier = (*Dispatcher)(nil)

func New(log *logger.Logger, smtpCfg config.SMTPConfig, twilioCfg config.TwilioConfig) *Dispatcher {
	d := &Dispatcher{log: log.Component("notify")}
	if smtpCfg.Enabled() {
		d.email = NewSMTPSender(smtpCfg)
	} else {
		d.log.Warn("SMTP not configured, emails will only be logged")
	}
	if twilioCfg.Enabled() {
		d.text = NewTwilioClient(twilioCfg)
	} else {
		d.log.Warn("Twilio not configured, SMS and WhatsApp will only be logged")
	}
	return d
}

func (d *Dispatcher) SendEmail(ctx context.Context, msg ports.EmailMessage) (ports.Outcome, error) {
	if d.email == nil {
		d.log.Info("dry-run email", "to", msg.To, "subject", msg.Subject)
		return dryRun(msg.To), nil
	}
	return d.email.SendEmail(ctx, msg)
}

func (d *Dispatcher) SendSMS(ctx context.Context, msg ports.SMSMessage) (ports.Outcome, error) {
	if d.text == nil {
		d.log.Info("dry-run sms", "to", msg.To)
		return dryRun(msg.To), nil
	}
	return d.text.SendSMS(ctx, msg)
}

func (d *Dispatcher) SendWhatsApp(ctx context.Context, msg ports.SMSMessage) (ports.Outcome, error) {
	if d.text == nil {
		d.log.Info("dry-run whatsapp", "to", msg.To)
		return dryRun(msg.To), nil
	}
	return d.text.SendWhatsApp(ctx, msg)
}

func dryRun(to string) ports.Outcome {
	return ports.Outcome{"provider": "log", "dryRun": true, "to": to}
}
