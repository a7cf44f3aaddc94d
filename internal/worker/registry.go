package worker

import (
	"context"
	"strings"
	"time"

	"donor-crm/internal/core/ports"
	"donor-crm/internal/domain"
)

// NodeHandler executes one node's side effect for a contact. Failures are
// reported in the result, never returned.
type NodeHandler func(ctx context.Context, node domain.Node, contact *domain.Contact) domain.NodeResult

// NodeRegistry holds the executable node types
type NodeRegistry map[domain.NodeType]NodeHandler

// InitRegistry wires up the node types against a notifier
func InitRegistry(notifier ports.Notifier, sendTimeout time.Duration) NodeRegistry {
	registry := make(NodeRegistry)

	registry[domain.NodeEmail] = func(ctx context.Context, node domain.Node, contact *domain.Contact) domain.NodeResult {
		to := firstNonBlank(contactField(contact, func(c *domain.Contact) string { return c.Email }))
		if to == "" {
			return skipped("email", "no email address")
		}
		body := node.Text("content", "subtitle")
		msg := ports.EmailMessage{
			To:      to,
			Subject: node.Text("subject", "title"),
			HTML:    body,
			Text:    body,
		}
		return send(ctx, sendTimeout, "email", to, func(ctx context.Context) (ports.Outcome, error) {
			return notifier.SendEmail(ctx, msg)
		})
	}

	registry[domain.NodeSMS] = func(ctx context.Context, node domain.Node, contact *domain.Contact) domain.NodeResult {
		to := firstNonBlank(
			contactField(contact, func(c *domain.Contact) string { return c.Phone }),
			contactField(contact, func(c *domain.Contact) string { return c.Mobile }),
		)
		if to == "" {
			return skipped("sms", "no phone number")
		}
		msg := ports.SMSMessage{To: to, Body: textBody(node)}
		return send(ctx, sendTimeout, "sms", to, func(ctx context.Context) (ports.Outcome, error) {
			return notifier.SendSMS(ctx, msg)
		})
	}

	registry[domain.NodeWhatsApp] = func(ctx context.Context, node domain.Node, contact *domain.Contact) domain.NodeResult {
		to := firstNonBlank(
			contactField(contact, func(c *domain.Contact) string { return c.WhatsApp }),
			contactField(contact, func(c *domain.Contact) string { return c.Phone }),
			contactField(contact, func(c *domain.Contact) string { return c.Mobile }),
		)
		if to == "" {
			return skipped("whatsapp", "no whatsapp number")
		}
		msg := ports.SMSMessage{To: to, Body: textBody(node)}
		return send(ctx, sendTimeout, "whatsapp", to, func(ctx context.Context) (ports.Outcome, error) {
			return notifier.SendWhatsApp(ctx, msg)
		})
	}

	// Conditions only record what they were configured with; branching is not evaluated.
	registry[domain.NodeCondition] = func(_ context.Context, node domain.Node, _ *domain.Contact) domain.NodeResult {
		return domain.NodeResult{
			OK:             true,
			ConditionType:  node.Value("conditionType"),
			ConditionValue: node.Value("conditionValue"),
		}
	}

	// The wait already happened before the node became due.
	registry[domain.NodeDelay] = func(context.Context, domain.Node, *domain.Contact) domain.NodeResult {
		return domain.NodeResult{OK: true}
	}

	return registry
}

func send(ctx context.Context, timeout time.Duration, channel, to string, fn func(context.Context) (ports.Outcome, error)) domain.NodeResult {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	out, err := fn(ctx)
	if err != nil {
		return domain.NodeResult{OK: false, Channel: channel, To: to, Error: err.Error()}
	}
	return domain.NodeResult{OK: true, Channel: channel, To: to, Outcome: out}
}

func skipped(channel, reason string) domain.NodeResult {
	return domain.NodeResult{OK: true, Skipped: true, Channel: channel, Reason: reason}
}

func textBody(node domain.Node) string {
	return node.Text("content", "message", "subtitle")
}

func contactField(c *domain.Contact, get func(*domain.Contact) string) string {
	if c == nil {
		return ""
	}
	return get(c)
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
