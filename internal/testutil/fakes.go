package testutil

import (
	"context"
	"sync"

	"donor-crm/internal/core/ports"
	"donor-crm/internal/domain"
)

// Sent is one message captured by Notifier
type Sent struct {
	Channel string
	To      string
	Subject string
	Body    string
}

// Notifier records every send. Err, when set, fails all sends.
type Notifier struct {
	mu   sync.Mutex
	sent []Sent
	Err  error
}

func (n *Notifier) SendEmail(_ context.Context, msg ports.EmailMessage) (ports.Outcome, error) {
	return n.record(Sent{Channel: "email", To: msg.To, Subject: msg.Subject, Body: msg.Text})
}

func (n *Notifier) SendSMS(_ context.Context, msg ports.SMSMessage) (ports.Outcome, error) {
	return n.record(Sent{Channel: "sms", To: msg.To, Body: msg.Body})
}

func (n *Notifier) SendWhatsApp(_ context.Context, msg ports.SMSMessage) (ports.Outcome, error) {
	return n.record(Sent{Channel: "whatsapp", To: msg.To, Body: msg.Body})
}

func (n *Notifier) record(s Sent) (ports.Outcome, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.Err != nil {
		return nil, n.Err
	}
	n.sent = append(n.sent, s)
	return ports.Outcome{"id": len(n.sent)}, nil
}

func (n *Notifier) Sent() []Sent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Sent(nil), n.sent...)
}

// EventBus collects published run events
type EventBus struct {
	mu     sync.Mutex
	events []domain.RunEvent
}

func (b *EventBus) PublishRunEvent(_ context.Context, event domain.RunEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
	return nil
}

func (b *EventBus) Events() []domain.RunEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.RunEvent(nil), b.events...)
}
