package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"donor-crm/internal/config"
	"donor-crm/internal/core/ports"
)

// TwilioClient posts messages to the Twilio Messages API. WhatsApp goes
// through the same endpoint with "whatsapp:" addresses.
type TwilioClient struct {
	cfg        config.TwilioConfig
	httpClient *http.Client
}

func NewTwilioClient(cfg config.TwilioConfig) *TwilioClient {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &TwilioClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type twilioMessage struct {
	SID          string  `json:"sid"`
	Status       string  `json:"status"`
	To           string  `json:"to"`
	ErrorCode    *int    `json:"error_code"`
	ErrorMessage *string `json:"error_message"`
}

type twilioError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

func (c *TwilioClient) SendSMS(ctx context.Context, msg ports.SMSMessage) (ports.Outcome, error) {
	return c.send(ctx, msg.To, c.cfg.FromNumber, msg.Body)
}

func (c *TwilioClient) SendWhatsApp(ctx context.Context, msg ports.SMSMessage) (ports.Outcome, error) {
	from := c.cfg.WhatsAppFrom
	if from == "" {
		from = c.cfg.FromNumber
	}
	return c.send(ctx, whatsAppAddress(msg.To), whatsAppAddress(from), msg.Body)
}

func (c *TwilioClient) send(ctx context.Context, to, from, body string) (ports.Outcome, error) {
	if from == "" {
		return nil, fmt.Errorf("twilio: sender number not configured")
	}

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", from)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", c.cfg.BaseURL, c.cfg.AccountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(c.cfg.AccountSID, c.cfg.AuthToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("twilio: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("twilio: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr twilioError
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Message != "" {
			return nil, fmt.Errorf("twilio http %d: %s (code=%d)", resp.StatusCode, apiErr.Message, apiErr.Code)
		}
		return nil, fmt.Errorf("twilio http %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var m twilioMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("twilio: decode response: %w", err)
	}
	return ports.Outcome{"provider": "twilio", "sid": m.SID, "status": m.Status, "to": m.To}, nil
}

func whatsAppAddress(number string) string {
	number = strings.TrimSpace(number)
	if number == "" || strings.HasPrefix(number, "whatsapp:") {
		return number
	}
	return "whatsapp:" + number
}
