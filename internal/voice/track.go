package voice

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type track struct {
	id      string
	guildID string
	src     Source
	seek    chan time.Duration
	events  context.Context

	mu       sync.Mutex
	handlers map[EventKind][]EventHandler
	fired    map[EventKind]TrackEvent
	playing  bool
}

func newTrack(events context.Context, guildID string, src Source) *track {
	return &track{
		id:       uuid.NewString(),
		guildID:  guildID,
		src:      src,
		seek:     make(chan time.Duration, 1),
		events:   events,
		handlers: make(map[EventKind][]EventHandler),
		fired:    make(map[EventKind]TrackEvent),
	}
}

func (t *track) ID() string     { return t.id }
func (t *track) Source() Source { return t.src }

func (t *track) AddEvent(kind EventKind, h EventHandler) error {
	t.mu.Lock()
	ev, done := t.fired[kind]
	if !done {
		t.handlers[kind] = append(t.handlers[kind], h)
	}
	t.mu.Unlock()

	if done {
		go h.Act(t.events, ev)
	}
	return nil
}

func (t *track) Seek(pos time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ended := t.fired[TrackEnd]; ended {
		return ErrTrackEnded
	}
	if !t.playing {
		return ErrNotPlaying
	}

	// keep only the latest request
	select {
	case <-t.seek:
	default:
	}
	t.seek <- pos
	return nil
}

// fire records the event and dispatches it to every registered handler.
func (t *track) fire(kind EventKind, err error) {
	ev := TrackEvent{Kind: kind, GuildID: t.guildID, Track: t, Err: err}

	t.mu.Lock()
	t.fired[kind] = ev
	t.playing = kind == TrackBegin
	handlers := t.handlers[kind]
	t.handlers[kind] = nil
	t.mu.Unlock()

	for _, h := range handlers {
		go h.Act(t.events, ev)
	}
}

func (t *track) isPlaying() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.playing
}
