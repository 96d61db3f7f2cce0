package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"server-bonjour/internal/welcome"
)

// transitionOf flattens a gateway voice update. BeforeUpdate is only
// known when the session tracks voice state.
func transitionOf(v *discordgo.VoiceStateUpdate) welcome.Transition {
	t := welcome.Transition{
		ActorID:     v.UserID,
		GuildID:     v.GuildID,
		NewChannel:  v.ChannelID,
		DisplayName: displayName(v.Member),
	}
	if v.BeforeUpdate != nil {
		t.PreviousChannel = v.BeforeUpdate.ChannelID
	}
	return t
}

// displayName prefers the guild nickname, then the global name, then the
// username.
func displayName(m *discordgo.Member) string {
	if m == nil {
		return ""
	}
	if m.Nick != "" {
		return m.Nick
	}
	if m.User == nil {
		return ""
	}
	if m.User.GlobalName != "" {
		return m.User.GlobalName
	}
	return m.User.Username
}

// Members resolves display names from the state cache, falling back to REST.
type Members struct {
	Session *discordgo.Session
}

func (m Members) DisplayName(ctx context.Context, guildID, userID string) (string, error) {
	if m.Session.State != nil {
		if member, err := m.Session.State.Member(guildID, userID); err == nil {
			if name := displayName(member); name != "" {
				return name, nil
			}
		}
	}

	member, err := m.Session.GuildMember(guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("failed to fetch member %s: %w", userID, err)
	}
	if name := displayName(member); name != "" {
		return name, nil
	}
	return "", fmt.Errorf("member %s has no name", userID)
}
