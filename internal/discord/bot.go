package discord

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"

	"server-bonjour/internal/welcome"
	"server-bonjour/pkg/log"
)

// Welcomer consumes voice transitions.
type Welcomer interface {
	HandleTransition(ctx context.Context, t welcome.Transition) error
	Filter() *welcome.Filter
}

// VoiceCloser leaves every voice channel on shutdown.
type VoiceCloser interface {
	Close()
}

// Bot is a Discord bot
type Bot struct {
	dg      *discordgo.Session
	welcome Welcomer
	voice   VoiceCloser
	log     *logrus.Entry
	ctx     context.Context
}

// NewSession creates a gateway session with the intents the bot needs.
func NewSession(token string) (*discordgo.Session, error) {
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentsGuildMembers
	return dg, nil
}

func NewBot(dg *discordgo.Session, w Welcomer, v VoiceCloser) *Bot {
	return &Bot{
		dg:      dg,
		welcome: w,
		voice:   v,
		log:     log.Component("discord"),
		ctx:     context.Background(),
	}
}

// Run opens the session and blocks until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	b.ctx = ctx

	b.dg.AddHandler(b.onReady)
	b.dg.AddHandler(b.onGuildCreate)
	b.dg.AddHandler(b.onVoiceStateUpdate)

	if err := b.dg.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}
	defer b.dg.Close()

	<-ctx.Done()
	b.log.Info("❎ Shutdown signal received. Cleaning up...")

	// leave voice before the gateway goes away
	b.voice.Close()
	return nil
}

// onReady is called when the bot is ready
func (b *Bot) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	if r.User == nil {
		b.log.Warn("Ready event without user")
		return
	}

	// our own joins must never be greeted
	b.welcome.Filter().Deny(r.User.ID)

	b.log.Infof("✅ Discord bot %v is running in %d guild(s).", r.User.Username, len(r.Guilds))
}

// onGuildCreate is called when a guild becomes available
func (b *Bot) onGuildCreate(_ *discordgo.Session, g *discordgo.GuildCreate) {
	if g.Guild == nil {
		return
	}
	b.log.WithField("guild", g.ID).Debugf("Guild available: %s (%d voice states)", g.Name, len(g.VoiceStates))
}

// onVoiceStateUpdate hands every voice transition to the welcome pipeline.
func (b *Bot) onVoiceStateUpdate(_ *discordgo.Session, v *discordgo.VoiceStateUpdate) {
	if v == nil || v.VoiceState == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			b.log.WithField("guild", v.GuildID).Errorf("Panic while handling voice update: %v\n%s", r, debug.Stack())
		}
	}()

	t := transitionOf(v)
	if err := b.welcome.HandleTransition(b.ctx, t); err != nil {
		b.log.WithFields(log.Fields{"guild": t.GuildID}).Errorf("Couldn't welcome %s: %v", t.ActorID, err)
	}
}
