package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// SlackChannel delivers messages to a Slack incoming webhook.
type SlackChannel struct {
	name       string
	webhookURL string
	client     *http.Client
}

// NewSlackChannel creates a Slack channel over an incoming webhook URL.
func NewSlackChannel(name, webhookURL string, timeout time.Duration) *SlackChannel {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SlackChannel{
		name:       name,
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: timeout},
	}
}

// Name returns the channel's identifier.
func (c *SlackChannel) Name() string {
	return c.name
}

// slackPayload is the incoming-webhook message format.
type slackPayload struct {
	Text string `json:"text"`
}

// Send posts the message text to the webhook.
func (c *SlackChannel) Send(ctx context.Context, msg Message) error {
	text := fmt.Sprintf("[%s] %s (rule %s, decision %s)",
		msg.Disposition, msg.Body, msg.RuleID, msg.DecisionID)

	payload, err := json.Marshal(slackPayload{Text: text})
	if err != nil {
		return fmt.Errorf("notify: encode slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("notify: build slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("notify: slack %s: %w", c.name, err)
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("notify: slack %s returned status %d", c.name, resp.StatusCode)
	}
	return nil
}
