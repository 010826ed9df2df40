// Package notify sends transactional SMS. Delivery is best-effort:
// callers treat the result as opaque and never block business flows on it.
package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/blackpearlke/blackpearl-api/internal/config"
)

type Notifier interface {
	Send(ctx context.Context, phone, message string) error
}

// New creates a notifier based on configuration
func New(cfg *config.SMSConfig) (Notifier, error) {
	switch cfg.Provider {
	case "twilio":
		return NewTwilioNotifier(cfg.AccountSID, cfg.AuthToken, cfg.From), nil
	case "noop":
		return &NoopNotifier{}, nil
	default:
		return nil, fmt.Errorf("unsupported SMS provider: %s", cfg.Provider)
	}
}

type TwilioNotifier struct {
	accountSID string
	authToken  string
	from       string
	client     *http.Client
}

func NewTwilioNotifier(accountSID, authToken, from string) *TwilioNotifier {
	return &TwilioNotifier{
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (n *TwilioNotifier) Send(ctx context.Context, phone, message string) error {
	endpoint := fmt.Sprintf("https://api.twilio.com/2010-04-01/Accounts/%s/Messages.json", n.accountSID)

	form := url.Values{}
	form.Set("To", "+"+phone)
	form.Set("From", n.from)
	form.Set("Body", message)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create SMS request: %w", err)
	}
	req.SetBasicAuth(n.accountSID, n.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send SMS: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("twilio API error (%d): %s", resp.StatusCode, string(body))
	}
	return nil
}

// NoopNotifier drops messages. Used in development and tests.
type NoopNotifier struct{}

func (n *NoopNotifier) Send(ctx context.Context, phone, message string) error {
	return nil
}

var (
	_ Notifier = (*TwilioNotifier)(nil)
	_ Notifier = (*NoopNotifier)(nil)
)
