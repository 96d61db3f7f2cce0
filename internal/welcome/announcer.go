package welcome

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"server-bonjour/internal/voice"
	"server-bonjour/pkg/log"
	"server-bonjour/pkg/tracing"
)

// Transport is the voice layer the announcer drives.
type Transport interface {
	GetOrCreate(guildID string) voice.Call
	Get(guildID string) (voice.Call, bool)
	Join(ctx context.Context, guildID, channelID string) (voice.Call, error)
	Leave(ctx context.Context, guildID string) error
}

// SourceFactory turns an audio file into a restartable source.
type SourceFactory func(path string) voice.Source

// Announcer puts greetings on a guild's play queue, joining the channel
// first when the bot is not connected anywhere in the guild.
type Announcer struct {
	transport Transport
	sources   SourceFactory
	log       *logrus.Entry
	tracer    trace.Tracer
}

func NewAnnouncer(transport Transport, sources SourceFactory) *Announcer {
	return &Announcer{
		transport: transport,
		sources:   sources,
		log:       log.Component("welcome"),
		tracer:    tracing.Tracer("welcome"),
	}
}

// Announce enqueues audioPath for guildID and registers the lifecycle
// notifiers on the new track. It returns once the track is queued.
func (a *Announcer) Announce(ctx context.Context, guildID, channelID, audioPath string) (voice.Track, error) {
	ctx, span := a.tracer.Start(ctx, "welcome.announce", trace.WithAttributes(
		attribute.String("guild.id", guildID),
		attribute.String("channel.id", channelID),
	))
	defer span.End()

	track, err := a.enqueue(ctx, guildID, channelID, a.sources(audioPath))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if err := track.AddEvent(voice.TrackBegin, &BeginTrackNotifier{
		GuildID:   guildID,
		ChannelID: channelID,
		Transport: a.transport,
	}); err != nil {
		return track, fmt.Errorf("cannot add begin event for track: %w", err)
	}
	if err := track.AddEvent(voice.TrackEnd, &EndTrackNotifier{
		GuildID:   guildID,
		Transport: a.transport,
	}); err != nil {
		return track, fmt.Errorf("cannot add end event for track: %w", err)
	}
	return track, nil
}

// enqueue holds the call lock across "connected?" -> join -> enqueue so that
// two joins never race to open two connections and the end-of-queue
// notifier never leaves between our join and our enqueue.
func (a *Announcer) enqueue(ctx context.Context, guildID, channelID string, src voice.Source) (voice.Track, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		call := a.transport.GetOrCreate(guildID)
		call.Lock()

		// Leave replaces the guild's call; a lock on the old one guards nothing.
		if cur, ok := a.transport.Get(guildID); !ok || cur != call {
			call.Unlock()
			a.log.WithField("guild", guildID).Debug("Call was left while waiting, retrying on the new one")
			continue
		}

		track, stale, err := a.enqueueLocked(ctx, call, guildID, channelID, src)
		call.Unlock()
		if stale {
			continue
		}
		return track, err
	}
}

// enqueueLocked runs with call locked. stale reports that the join landed on
// a different call than the one we hold, so nothing was queued.
func (a *Announcer) enqueueLocked(ctx context.Context, call voice.Call, guildID, channelID string, src voice.Source) (voice.Track, bool, error) {
	if call.CurrentChannel() == "" {
		a.log.WithField("guild", guildID).Infof("Joining first channel %s", channelID)
		joined, err := a.transport.Join(ctx, guildID, channelID)
		if err != nil {
			return nil, false, fmt.Errorf("%w: %w", ErrJoinFailure, err)
		}
		if joined != call {
			return nil, true, nil
		}
	}

	track, err := call.Queue().Enqueue(src)
	return track, false, err
}
