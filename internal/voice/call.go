package voice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"server-bonjour/pkg/log"
)

type call struct {
	guildID string
	events  context.Context
	log     *logrus.Entry

	// connectMu is the exported Lock; callers hold it across check-then-join.
	connectMu sync.Mutex

	mu     sync.Mutex
	conn   Conn
	tracks []*track
	closed bool
	wake   chan struct{}

	ctx         context.Context
	cancel      context.CancelFunc
	done        chan struct{}
	connectWait time.Duration
}

func newCall(parent, events context.Context, guildID string, connectWait time.Duration) *call {
	ctx, cancel := context.WithCancel(parent)
	c := &call{
		guildID:     guildID,
		events:      events,
		log:         log.Component("voice").WithField("guild", guildID),
		wake:        make(chan struct{}, 1),
		ctx:         ctx,
		cancel:      cancel,
		done:        make(chan struct{}),
		connectWait: connectWait,
	}
	go c.run()
	return c
}

func (c *call) GuildID() string { return c.guildID }
func (c *call) Lock()           { c.connectMu.Lock() }
func (c *call) Unlock()         { c.connectMu.Unlock() }
func (c *call) Queue() Queue    { return c }

func (c *call) CurrentChannel() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || c.closed {
		return ""
	}
	return c.conn.ChannelID()
}

func (c *call) setConn(conn Conn) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrCallClosed
	}
	c.conn = conn
	return nil
}

func (c *call) currentConn() Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

// Enqueue appends src and returns immediately.
func (c *call) Enqueue(src Source) (Track, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrCallClosed
	}
	t := newTrack(c.events, c.guildID, src)
	c.tracks = append(c.tracks, t)
	n := len(c.tracks)
	c.mu.Unlock()

	c.log.WithField("track", t.id).Debugf("Enqueued %s | QueueLen=%d", src.Name(), n)

	select {
	case c.wake <- struct{}{}:
	default:
	}
	return t, nil
}

func (c *call) IsEmpty() bool { return c.Len() == 0 }

func (c *call) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tracks)
}

func (c *call) Current() (Track, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.tracks) == 0 || !c.tracks[0].isPlaying() {
		return nil, false
	}
	return c.tracks[0], true
}

func (c *call) head() *track {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || len(c.tracks) == 0 {
		return nil
	}
	return c.tracks[0]
}

func (c *call) pop(t *track) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.tracks) > 0 && c.tracks[0] == t {
		c.tracks = c.tracks[1:]
	}
}

// close stops playback, drops queued tracks and disconnects.
func (c *call) close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn := c.conn
	c.conn = nil
	c.tracks = nil
	c.mu.Unlock()

	c.cancel()

	if conn == nil {
		return nil
	}
	if err := conn.Disconnect(); err != nil {
		return fmt.Errorf("%w: %v", ErrLeave, err)
	}
	return nil
}

// run plays the queue head until the call is closed.
func (c *call) run() {
	defer close(c.done)

	for {
		t := c.head()
		if t == nil {
			select {
			case <-c.ctx.Done():
				return
			case <-c.wake:
				continue
			}
		}

		c.log.WithField("track", t.id).Infof("Starting track %s", t.src.Name())
		t.fire(TrackBegin, nil)

		err := c.play(t)
		c.pop(t)

		if c.ctx.Err() != nil {
			return
		}
		if err != nil {
			c.log.WithField("track", t.id).Errorf("Playback error: %v", err)
		} else {
			c.log.WithField("track", t.id).Info("Track finished")
		}
		t.fire(TrackEnd, err)
	}
}

func (c *call) play(t *track) error {
	conn, err := c.waitConn()
	if err != nil {
		return err
	}

	reader, err := t.src.Open(c.ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", t.src.Name(), err)
	}
	defer func() { reader.Close() }()

	if err := conn.Speaking(true); err != nil {
		c.log.Warnf("Couldn't set speaking: %v", err)
	}
	defer func() {
		if conn := c.currentConn(); conn != nil {
			_ = conn.Speaking(false)
		}
	}()

	for {
		select {
		case <-c.ctx.Done():
			return c.ctx.Err()
		case pos := <-t.seek:
			reader.Close()
			reader, err = t.src.Open(c.ctx, pos)
			if err != nil {
				reader = nopReader{}
				return fmt.Errorf("failed to seek %s to %s: %w", t.src.Name(), pos, err)
			}
			c.log.WithField("track", t.id).Debugf("Seeked to %s", pos)
			continue
		default:
		}

		frame, err := reader.ReadFrame()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read error: %w", err)
		}

		// the connection may have moved or been replaced since the last frame
		if conn = c.currentConn(); conn == nil {
			if conn, err = c.waitConn(); err != nil {
				return err
			}
		}
		if err := conn.SendFrame(c.ctx, frame); err != nil {
			return err
		}
	}
}

// waitConn waits up to connectWait for the call to have a connection.
func (c *call) waitConn() (Conn, error) {
	if conn := c.currentConn(); conn != nil {
		return conn, nil
	}

	timeout := time.NewTimer(c.connectWait)
	defer timeout.Stop()
	tick := time.NewTicker(20 * time.Millisecond)
	defer tick.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return nil, c.ctx.Err()
		case <-timeout.C:
			return nil, ErrNoConn
		case <-tick.C:
			if conn := c.currentConn(); conn != nil {
				return conn, nil
			}
		}
	}
}

type nopReader struct{}

func (nopReader) ReadFrame() ([]byte, error) { return nil, io.EOF }
func (nopReader) Close() error               { return nil }
