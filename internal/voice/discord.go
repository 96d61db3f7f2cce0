package voice

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
)

const sendTimeout = time.Second

// DiscordDialer joins voice channels through a gateway session.
type DiscordDialer struct {
	Session *discordgo.Session
}

// Dial joins channelID deafened. Joining while already connected in the
// guild moves the existing connection.
func (d DiscordDialer) Dial(ctx context.Context, guildID, channelID string) (Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vc, err := d.Session.ChannelVoiceJoin(guildID, channelID, false, true)
	if err != nil {
		return nil, err
	}
	return &discordConn{vc: vc}, nil
}

type discordConn struct {
	vc *discordgo.VoiceConnection
}

func (c *discordConn) ChannelID() string {
	c.vc.RLock()
	defer c.vc.RUnlock()
	return c.vc.ChannelID
}

func (c *discordConn) Speaking(speaking bool) error {
	return c.vc.Speaking(speaking)
}

func (c *discordConn) SendFrame(ctx context.Context, frame []byte) error {
	timer := time.NewTimer(sendTimeout)
	defer timer.Stop()

	select {
	case c.vc.OpusSend <- frame:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrSendTimeout
	}
}

func (c *discordConn) Disconnect() error {
	return c.vc.Disconnect()
}
