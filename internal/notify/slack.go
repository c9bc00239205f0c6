// Package notify forwards post lifecycle events to a Slack incoming webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"socialhub-backend/internal/events"
	"socialhub-backend/internal/models"
)

type SlackNotifier struct {
	webhookURL string
	client     *http.Client
}

var _ events.Publisher = (*SlackNotifier)(nil)

type slackMessage struct {
	Text   string  `json:"text"`
	Blocks []block `json:"blocks"`
}

type block struct {
	Type   string  `json:"type"`
	Text   *text   `json:"text,omitempty"`
	Fields []*text `json:"fields,omitempty"`
}

type text struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Emoji bool   `json:"emoji,omitempty"`
}

func NewSlackNotifier(webhookURL string) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 5 * time.Second},
	}
}

// Publish posts a message for events a reviewer cares about. Other event
// types are ignored.
func (n *SlackNotifier) Publish(ctx context.Context, ev models.PostEvent) error {
	msg, ok := buildMessage(ev)
	if !ok {
		return nil
	}

	reqBody, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("slack: marshal: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("slack: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("slack: post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("slack: %s: %s", resp.Status, string(body))
	}
	return nil
}

func buildMessage(ev models.PostEvent) (slackMessage, bool) {
	var header string
	switch ev.Type {
	case models.EventPostCreated:
		if ev.Status != models.PostPending {
			return slackMessage{}, false
		}
		header = "📝 Post awaiting approval"
	case models.EventPostApproved:
		header = "✅ Post approved"
	case models.EventPostDeclined:
		header = "🚫 Post declined"
	case models.EventPostPublished:
		header = "📣 Post published"
	default:
		return slackMessage{}, false
	}

	actor := ev.ActorID
	if actor == "" {
		actor = "scheduler"
	}

	return slackMessage{
		Text: fmt.Sprintf("%s: %s", header, ev.PostID),
		Blocks: []block{
			{
				Type: "header",
				Text: &text{Type: "plain_text", Text: header, Emoji: true},
			},
			{
				Type: "section",
				Fields: []*text{
					{Type: "mrkdwn", Text: "*Post:*\n" + ev.PostID},
					{Type: "mrkdwn", Text: "*Organization:*\n" + ev.OrgID},
					{Type: "mrkdwn", Text: "*Status:*\n" + string(ev.Status)},
					{Type: "mrkdwn", Text: "*By:*\n" + actor},
				},
			},
		},
	}, true
}
