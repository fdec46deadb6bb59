// Package slack implements the notify.Notifier for Slack.
package slack

import (
	"fmt"

	slackapi "github.com/slack-go/slack"

	"github.com/automatix-sh/automatix/internal/notify"
)

// slackClient abstracts the Slack API methods we use, enabling test mocks.
type slackClient interface {
	PostMessage(channelID string, options ...slackapi.MsgOption) (string, string, error)
}

// Notifier posts run summaries to a Slack channel.
type Notifier struct {
	client  slackClient
	channel string
}

// Opts holds parameters for creating a Slack Notifier.
type Opts struct {
	BotToken string // xoxb-... Slack bot token
	Channel  string // channel ID to post to
	// For testing: inject a mock client instead of the real Slack API.
	Client slackClient
}

// New creates a Slack Notifier.
func New(opts Opts) (*Notifier, error) {
	if opts.Client == nil && opts.BotToken == "" {
		return nil, fmt.Errorf("slack: bot token is required")
	}
	if opts.Channel == "" {
		return nil, fmt.Errorf("slack: channel is required")
	}
	client := opts.Client
	if client == nil {
		client = slackapi.New(opts.BotToken)
	}
	return &Notifier{client: client, channel: opts.Channel}, nil
}

// Name implements notify.Notifier.
func (n *Notifier) Name() string { return "slack" }

// Notify posts the summary as an attachment, colored by run status.
func (n *Notifier) Notify(s notify.Summary) error {
	attachment := slackapi.Attachment{
		Color: statusColor(s.Status),
		Title: s.Subject(),
		Text:  s.Body(),
	}
	_, _, err := n.client.PostMessage(n.channel, slackapi.MsgOptionAttachments(attachment))
	if err != nil {
		return fmt.Errorf("post to %s: %w", n.channel, err)
	}
	return nil
}

// statusColor maps a run status to a Slack attachment color.
func statusColor(status string) string {
	switch status {
	case "success":
		return "good"
	case "aborted":
		return "warning"
	default:
		return "danger"
	}
}
