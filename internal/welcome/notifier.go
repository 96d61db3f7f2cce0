package welcome

import (
	"context"

	"server-bonjour/internal/voice"
	"server-bonjour/pkg/log"
)

// BeginTrackNotifier moves the bot to the channel of the user being greeted
// when their greeting starts, then restarts the track in case it began
// playing before the move completed.
type BeginTrackNotifier struct {
	GuildID   string
	ChannelID string
	Transport Transport
}

func (n *BeginTrackNotifier) Act(ctx context.Context, ev voice.TrackEvent) {
	l := log.Component("welcome").WithField("guild", n.GuildID)

	call, ok := n.Transport.Get(n.GuildID)
	if !ok {
		return
	}

	call.Lock()
	defer call.Unlock()

	// the end notifier may have left while we waited for the lock
	if cur, ok := n.Transport.Get(n.GuildID); !ok || cur != call {
		l.Debug("Call already left, not rejoining")
		return
	}

	joined, err := n.Transport.Join(ctx, n.GuildID, n.ChannelID)
	if err != nil {
		l.Warnf("Couldn't move to channel %s: %v", n.ChannelID, err)
		return
	}

	current, ok := joined.Queue().Current()
	if !ok {
		l.Warn("No current track to restart")
		return
	}
	if err := current.Seek(0); err != nil {
		l.Warnf("Cannot restart track: %v", err)
	}
}

// EndTrackNotifier leaves the guild's voice channel once the queue drains.
type EndTrackNotifier struct {
	GuildID   string
	Transport Transport
}

func (n *EndTrackNotifier) Act(ctx context.Context, ev voice.TrackEvent) {
	l := log.Component("welcome").WithField("guild", n.GuildID)

	call, ok := n.Transport.Get(n.GuildID)
	if !ok {
		return
	}

	call.Lock()
	defer call.Unlock()

	if !call.Queue().IsEmpty() {
		return
	}

	l.Info("Queue drained, leaving voice channel")
	if err := n.Transport.Leave(ctx, n.GuildID); err != nil {
		l.Errorf("%v: %v", ErrLeaveFailure, err)
	}
}
