package voice

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"server-bonjour/pkg/log"
)

const defaultConnectWait = 10 * time.Second

// Manager owns the calls of every guild.
type Manager struct {
	ctx         context.Context
	dialer      Dialer
	connectWait time.Duration
	log         *logrus.Entry

	mu    sync.Mutex
	calls map[string]*call
}

type Option func(*Manager)

// WithConnectWait bounds how long a track waits for a connection before it
// is skipped.
func WithConnectWait(d time.Duration) Option {
	return func(m *Manager) { m.connectWait = d }
}

// NewManager returns a manager whose players and event handlers live until
// ctx is cancelled.
func NewManager(ctx context.Context, dialer Dialer, opts ...Option) *Manager {
	m := &Manager{
		ctx:         ctx,
		dialer:      dialer,
		connectWait: defaultConnectWait,
		log:         log.Component("voice"),
		calls:       make(map[string]*call),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// GetOrCreate returns the guild's call, creating an unconnected one if needed.
func (m *Manager) GetOrCreate(guildID string) Call {
	return m.getOrCreate(guildID)
}

func (m *Manager) getOrCreate(guildID string) *call {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.calls[guildID]; ok {
		return c
	}
	c := newCall(m.ctx, m.ctx, guildID, m.connectWait)
	m.calls[guildID] = c
	return c
}

// Get returns the guild's call if there is one.
func (m *Manager) Get(guildID string) (Call, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.calls[guildID]
	if !ok {
		return nil, false
	}
	return c, true
}

// Join connects the guild's call to channelID, moving it if it is already
// connected elsewhere.
func (m *Manager) Join(ctx context.Context, guildID, channelID string) (Call, error) {
	c := m.getOrCreate(guildID)

	conn, err := m.dialer.Dial(ctx, guildID, channelID)
	if err != nil {
		return c, fmt.Errorf("%w %s: %v", ErrJoin, channelID, err)
	}
	if err := c.setConn(conn); err != nil {
		_ = conn.Disconnect()
		return c, fmt.Errorf("%w %s: %v", ErrJoin, channelID, err)
	}

	c.log.Infof("Joined voice channel %s", channelID)
	return c, nil
}

// Leave disconnects the guild's call and discards its queue.
func (m *Manager) Leave(ctx context.Context, guildID string) error {
	m.mu.Lock()
	c, ok := m.calls[guildID]
	delete(m.calls, guildID)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w %s", ErrNoCall, guildID)
	}
	if err := c.close(); err != nil {
		return err
	}
	c.log.Info("Left voice channel")
	return nil
}

// Close leaves every guild.
func (m *Manager) Close() {
	m.mu.Lock()
	guilds := make([]string, 0, len(m.calls))
	for id := range m.calls {
		guilds = append(guilds, id)
	}
	m.mu.Unlock()

	for _, id := range guilds {
		if err := m.Leave(context.Background(), id); err != nil {
			m.log.WithField("guild", id).Warnf("Leave on shutdown failed: %v", err)
		}
	}
}
