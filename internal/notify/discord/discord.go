// Package discord implements the notify.Notifier for Discord.
package discord

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/automatix-sh/automatix/internal/notify"
)

// session abstracts the discordgo methods we use, enabling test mocks.
type session interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Notifier posts run summaries to a Discord channel. Messages go through
// the REST API; no gateway connection is opened.
type Notifier struct {
	session session
	channel string
}

// Opts holds parameters for creating a Discord Notifier.
type Opts struct {
	BotToken string
	Channel  string // channel ID to post to
	// For testing: inject a mock session instead of the real API.
	Session session
}

// New creates a Discord Notifier.
func New(opts Opts) (*Notifier, error) {
	if opts.Session == nil && opts.BotToken == "" {
		return nil, fmt.Errorf("discord: bot token is required")
	}
	if opts.Channel == "" {
		return nil, fmt.Errorf("discord: channel is required")
	}
	sess := opts.Session
	if sess == nil {
		s, err := discordgo.New("Bot " + opts.BotToken)
		if err != nil {
			return nil, fmt.Errorf("discord: create session: %w", err)
		}
		sess = s
	}
	return &Notifier{session: sess, channel: opts.Channel}, nil
}

// Name implements notify.Notifier.
func (n *Notifier) Name() string { return "discord" }

// Notify posts the summary as an embed, colored by run status.
func (n *Notifier) Notify(s notify.Summary) error {
	embed := &discordgo.MessageEmbed{
		Title:       s.Subject(),
		Description: s.Body(),
		Color:       statusColor(s.Status),
	}
	if _, err := n.session.ChannelMessageSendEmbed(n.channel, embed); err != nil {
		return fmt.Errorf("post to %s: %w", n.channel, err)
	}
	return nil
}

// statusColor maps a run status to an embed color.
func statusColor(status string) int {
	switch status {
	case "success":
		return 0x2ecc71
	case "aborted":
		return 0xf1c40f
	default:
		return 0xe74c3c
	}
}
