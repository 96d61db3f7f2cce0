package welcome

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"server-bonjour/internal/storage"
	"server-bonjour/internal/voice"
)

type fakeSource struct{ path string }

func (s *fakeSource) Name() string { return s.path }
func (s *fakeSource) Open(context.Context, time.Duration) (voice.FrameReader, error) {
	return nil, errors.New("not playable")
}

func fakeSources(path string) voice.Source { return &fakeSource{path: path} }

type fakeTrack struct {
	id  string
	src voice.Source

	mu       sync.Mutex
	handlers map[voice.EventKind][]voice.EventHandler
	seeks    []time.Duration
}

func (t *fakeTrack) ID() string           { return t.id }
func (t *fakeTrack) Source() voice.Source { return t.src }

func (t *fakeTrack) AddEvent(kind voice.EventKind, h voice.EventHandler) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handlers[kind] = append(t.handlers[kind], h)
	return nil
}

func (t *fakeTrack) Seek(pos time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seeks = append(t.seeks, pos)
	return nil
}

func (t *fakeTrack) handlersFor(kind voice.EventKind) []voice.EventHandler {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.handlers[kind]
}

type fakeQueue struct {
	mu      sync.Mutex
	tracks  []*fakeTrack
	current *fakeTrack
	closed  bool
}

func (q *fakeQueue) Enqueue(src voice.Source) (voice.Track, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil, voice.ErrCallClosed
	}
	t := &fakeTrack{
		id:       fmt.Sprintf("track-%d", len(q.tracks)),
		src:      src,
		handlers: make(map[voice.EventKind][]voice.EventHandler),
	}
	q.tracks = append(q.tracks, t)
	return t, nil
}

func (q *fakeQueue) IsEmpty() bool { return q.Len() == 0 }

func (q *fakeQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tracks)
}

func (q *fakeQueue) Current() (voice.Track, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.current == nil {
		return nil, false
	}
	return q.current, true
}

type fakeCall struct {
	sync.Mutex
	guildID string
	queue   *fakeQueue

	stateMu sync.Mutex
	channel string
}

func newFakeCall(guildID string) *fakeCall {
	return &fakeCall{guildID: guildID, queue: &fakeQueue{}}
}

func (c *fakeCall) GuildID() string    { return c.guildID }
func (c *fakeCall) Queue() voice.Queue { return c.queue }

func (c *fakeCall) CurrentChannel() string {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.channel
}

func (c *fakeCall) setChannel(id string) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	c.channel = id
}

type fakeTransport struct {
	mu       sync.Mutex
	calls    map[string]*fakeCall
	joins    []string
	leaves   []string
	joinErr  error
	leaveErr error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{calls: make(map[string]*fakeCall)}
}

func (f *fakeTransport) getOrCreate(guildID string) *fakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.calls[guildID]
	if !ok {
		c = newFakeCall(guildID)
		f.calls[guildID] = c
	}
	return c
}

func (f *fakeTransport) GetOrCreate(guildID string) voice.Call { return f.getOrCreate(guildID) }

func (f *fakeTransport) Get(guildID string) (voice.Call, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.calls[guildID]
	if !ok {
		return nil, false
	}
	return c, true
}

func (f *fakeTransport) Join(_ context.Context, guildID, channelID string) (voice.Call, error) {
	f.mu.Lock()
	f.joins = append(f.joins, channelID)
	err := f.joinErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}

	c := f.getOrCreate(guildID)
	c.setChannel(channelID)
	return c, nil
}

func (f *fakeTransport) Leave(_ context.Context, guildID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leaves = append(f.leaves, guildID)
	if f.leaveErr != nil {
		return f.leaveErr
	}
	if c, ok := f.calls[guildID]; ok {
		c.queue.mu.Lock()
		c.queue.closed = true
		c.queue.mu.Unlock()
	}
	delete(f.calls, guildID)
	return nil
}

func (f *fakeTransport) joined() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.joins...)
}

func (f *fakeTransport) left() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.leaves...)
}

type fakeCache struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (c *fakeCache) GetOrCreate(_ context.Context, text string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.texts = append(c.texts, text)
	if c.err != nil {
		return "", c.err
	}
	return "voices/" + text + ".mp3", nil
}

type fakeHistory struct {
	mu       sync.Mutex
	welcomes map[string][]string
	last     map[string]time.Time
}

func newFakeHistory() *fakeHistory {
	return &fakeHistory{welcomes: map[string][]string{}, last: map[string]time.Time{}}
}

func (h *fakeHistory) AppendWelcome(guildID string, w storage.WelcomeRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.welcomes[guildID] = append(h.welcomes[guildID], w.Text)
	h.last[guildID+"/"+w.UserID] = w.Datetime
	return nil
}

func (h *fakeHistory) LastGreeted(guildID, userID string) (time.Time, bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	t, ok := h.last[guildID+"/"+userID]
	return t, ok, nil
}

type fakeNames map[string]string

func (n fakeNames) DisplayName(_ context.Context, _, userID string) (string, error) {
	name, ok := n[userID]
	if !ok {
		return "", errors.New("unknown member")
	}
	return name, nil
}

// playable sources for tests that run the real voice manager

type stubSource struct {
	frames int
	delay  time.Duration
}

func (s *stubSource) Name() string { return "stub" }

func (s *stubSource) Open(context.Context, time.Duration) (voice.FrameReader, error) {
	return &stubReader{left: s.frames, delay: s.delay}, nil
}

type stubReader struct {
	left  int
	delay time.Duration
}

func (r *stubReader) ReadFrame() ([]byte, error) {
	if r.left == 0 {
		return nil, io.EOF
	}
	r.left--
	time.Sleep(r.delay)
	return []byte{0xf8, 0xff, 0xfe}, nil
}

func (r *stubReader) Close() error { return nil }

type stubConn struct {
	mu           sync.Mutex
	channel      string
	disconnected bool
}

func (c *stubConn) ChannelID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channel
}
func (c *stubConn) Speaking(bool) error                     { return nil }
func (c *stubConn) SendFrame(context.Context, []byte) error { return nil }
func (c *stubConn) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnected = true
	return nil
}

type stubDialer struct {
	mu    sync.Mutex
	dials []string
	conns []*stubConn
}

func (d *stubDialer) Dial(_ context.Context, _, channelID string) (voice.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials = append(d.dials, channelID)
	c := &stubConn{channel: channelID}
	d.conns = append(d.conns, c)
	return c, nil
}

func (d *stubDialer) dialed() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.dials...)
}
