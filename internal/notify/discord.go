package notify

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// DiscordNotifier sends escalation alerts to a support channel.
type DiscordNotifier struct {
	Session   *discordgo.Session
	ChannelID string
}

func NewDiscordNotifier(token, channelID string) (*DiscordNotifier, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	return &DiscordNotifier{Session: session, ChannelID: channelID}, nil
}

func (d *DiscordNotifier) Notify(text string) error {
	if d.ChannelID == "" {
		return fmt.Errorf("invalid discord channel ID")
	}
	_, err := d.Session.ChannelMessageSend(d.ChannelID, text)
	return err
}
