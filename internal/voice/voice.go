// Package voice keeps one voice call per guild, each with a play queue that
// streams tracks in order and reports when each track begins and ends.
package voice

import (
	"context"
	"errors"
	"time"
)

const (
	Channels   = 2
	SampleRate = 48000
	FrameSize  = 960 // 20ms at 48kHz
)

var (
	ErrJoin        = errors.New("failed to join voice channel")
	ErrLeave       = errors.New("failed to leave voice channel")
	ErrNoCall      = errors.New("no voice call for guild")
	ErrCallClosed  = errors.New("voice call is closed")
	ErrTrackEnded  = errors.New("track has already ended")
	ErrNotPlaying  = errors.New("track is not playing")
	ErrNoConn      = errors.New("voice connection not ready")
	ErrSendTimeout = errors.New("timed out sending voice frame")
)

// EventKind identifies a track lifecycle event.
type EventKind int

const (
	TrackBegin EventKind = iota + 1
	TrackEnd
)

func (k EventKind) String() string {
	switch k {
	case TrackBegin:
		return "begin"
	case TrackEnd:
		return "end"
	default:
		return "unknown"
	}
}

// TrackEvent is delivered to handlers registered on a track.
// Err is set on TrackEnd when playback stopped on an error.
type TrackEvent struct {
	Kind    EventKind
	GuildID string
	Track   Track
	Err     error
}

// EventHandler reacts to a track event. Handlers run on their own goroutine.
type EventHandler interface {
	Act(ctx context.Context, ev TrackEvent)
}

// EventHandlerFunc adapts a function to EventHandler.
type EventHandlerFunc func(ctx context.Context, ev TrackEvent)

func (f EventHandlerFunc) Act(ctx context.Context, ev TrackEvent) { f(ctx, ev) }

// Track is a queued source.
type Track interface {
	ID() string
	Source() Source
	// AddEvent registers h for kind. Registering after the event already
	// happened delivers it immediately.
	AddEvent(kind EventKind, h EventHandler) error
	// Seek restarts the source at pos. Only valid while the track plays.
	Seek(pos time.Duration) error
}

// Queue is a guild's play queue. The head is the current track while it plays.
type Queue interface {
	Enqueue(src Source) (Track, error)
	IsEmpty() bool
	Len() int
	Current() (Track, bool)
}

// Call is a guild's voice session handle. Lock serializes connection
// decisions (check current channel, then join); it is not held by the
// transport itself.
type Call interface {
	GuildID() string
	Lock()
	Unlock()
	CurrentChannel() string
	Queue() Queue
}

// Source produces opus frames and can be reopened at an offset.
type Source interface {
	Name() string
	Open(ctx context.Context, offset time.Duration) (FrameReader, error)
}

// FrameReader yields encoded frames until io.EOF.
type FrameReader interface {
	ReadFrame() ([]byte, error)
	Close() error
}

// Conn is an established voice connection.
type Conn interface {
	ChannelID() string
	Speaking(speaking bool) error
	SendFrame(ctx context.Context, frame []byte) error
	Disconnect() error
}

// Dialer opens (or moves) the voice connection of a guild.
type Dialer interface {
	Dial(ctx context.Context, guildID, channelID string) (Conn, error)
}
