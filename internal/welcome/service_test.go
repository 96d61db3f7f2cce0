package welcome

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"server-bonjour/internal/cache"
	"server-bonjour/internal/greeting"
	"server-bonjour/internal/tts"
	"server-bonjour/internal/voice"
)

func clock(hour int) func() time.Time {
	return func() time.Time { return time.Date(2024, 5, 1, hour, 0, 0, 0, time.UTC) }
}

type serviceFixture struct {
	svc       *Service
	transport *fakeTransport
	cache     *fakeCache
	history   *fakeHistory
}

func newServiceFixture(t *testing.T, hour int, mutate func(*Options)) *serviceFixture {
	t.Helper()

	greeter, err := greeting.NewGreeter(greeting.DefaultTable(), "fr", time.UTC, clock(hour))
	require.NoError(t, err)

	f := &serviceFixture{
		transport: newFakeTransport(),
		cache:     &fakeCache{},
		history:   newFakeHistory(),
	}
	opts := Options{
		Filter:    NewFilter([]string{"bot"}, false),
		Greeter:   greeter,
		Cache:     f.cache,
		Announcer: NewAnnouncer(f.transport, fakeSources),
		History:   f.history,
		Now:       clock(hour),
	}
	if mutate != nil {
		mutate(&opts)
	}
	f.svc = NewService(opts)
	return f
}

func TestService_GreetsMorningJoin(t *testing.T) {
	f := newServiceFixture(t, 9, nil)

	err := f.svc.HandleTransition(context.Background(), Transition{
		ActorID: "u1", GuildID: "g1", NewChannel: "A", DisplayName: "Alice",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Bonjour Alice"}, f.cache.texts)
	assert.Equal(t, []string{"A"}, f.transport.joined())

	call := f.transport.getOrCreate("g1")
	require.Equal(t, 1, call.queue.Len())
	track := call.queue.tracks[0]
	assert.Equal(t, "voices/Bonjour Alice.mp3", track.Source().Name())
	assert.Len(t, track.handlersFor(voice.TrackBegin), 1)
	assert.Len(t, track.handlersFor(voice.TrackEnd), 1)

	assert.Equal(t, []string{"Bonjour Alice"}, f.history.welcomes["g1"])
}

func TestService_GreetsEveningJoin(t *testing.T) {
	f := newServiceFixture(t, 18, nil)

	err := f.svc.HandleTransition(context.Background(), Transition{
		ActorID: "u2", GuildID: "g1", NewChannel: "A", DisplayName: "Bob",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Bonsoir Bob"}, f.cache.texts)
}

func TestService_IgnoresRejectedTransitions(t *testing.T) {
	f := newServiceFixture(t, 9, nil)

	for _, tr := range []Transition{
		{ActorID: "u1", GuildID: "g1", PreviousChannel: "A", NewChannel: "B", DisplayName: "Alice"},
		{ActorID: "u1", GuildID: "g1", PreviousChannel: "A", DisplayName: "Alice"},
		{ActorID: "bot", GuildID: "g1", NewChannel: "A", DisplayName: "Bonjour"},
	} {
		require.NoError(t, f.svc.HandleTransition(context.Background(), tr))
	}

	assert.Empty(t, f.cache.texts)
	assert.Empty(t, f.transport.joined())
}

func TestService_MissingGuild(t *testing.T) {
	f := newServiceFixture(t, 9, nil)

	err := f.svc.HandleTransition(context.Background(), Transition{ActorID: "u1", NewChannel: "A", DisplayName: "Alice"})
	require.ErrorIs(t, err, ErrPrecondition)
	assert.Empty(t, f.cache.texts)
}

func TestService_MissingMember(t *testing.T) {
	f := newServiceFixture(t, 9, nil)

	err := f.svc.HandleTransition(context.Background(), Transition{ActorID: "u1", GuildID: "g1", NewChannel: "A"})
	require.ErrorIs(t, err, ErrPrecondition)
}

func TestService_ResolvesMissingName(t *testing.T) {
	f := newServiceFixture(t, 9, func(o *Options) { o.Names = fakeNames{"u1": "Alice"} })

	err := f.svc.HandleTransition(context.Background(), Transition{ActorID: "u1", GuildID: "g1", NewChannel: "A"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Bonjour Alice"}, f.cache.texts)

	err = f.svc.HandleTransition(context.Background(), Transition{ActorID: "u9", GuildID: "g1", NewChannel: "A"})
	require.ErrorIs(t, err, ErrPrecondition)
}

func TestService_SynthesisFailureQueuesNothing(t *testing.T) {
	f := newServiceFixture(t, 9, nil)
	f.cache.err = tts.ErrSynthesisUnavailable

	err := f.svc.HandleTransition(context.Background(), Transition{
		ActorID: "u1", GuildID: "g1", NewChannel: "A", DisplayName: "Alice",
	})
	require.ErrorIs(t, err, tts.ErrSynthesisUnavailable)
	assert.Empty(t, f.transport.joined())
	assert.Empty(t, f.history.welcomes)
}

func TestService_JoinFailure(t *testing.T) {
	f := newServiceFixture(t, 9, nil)
	f.transport.joinErr = errors.New("no permission")

	err := f.svc.HandleTransition(context.Background(), Transition{
		ActorID: "u1", GuildID: "g1", NewChannel: "A", DisplayName: "Alice",
	})
	require.ErrorIs(t, err, ErrJoinFailure)
	assert.Empty(t, f.history.welcomes)
}

func TestService_Cooldown(t *testing.T) {
	f := newServiceFixture(t, 9, func(o *Options) { o.Cooldown = time.Hour })
	join := Transition{ActorID: "u1", GuildID: "g1", NewChannel: "A", DisplayName: "Alice"}

	require.NoError(t, f.svc.HandleTransition(context.Background(), join))
	require.NoError(t, f.svc.HandleTransition(context.Background(), join))

	assert.Len(t, f.cache.texts, 1)

	other := Transition{ActorID: "u2", GuildID: "g1", NewChannel: "A", DisplayName: "Bob"}
	require.NoError(t, f.svc.HandleTransition(context.Background(), other))
	assert.Len(t, f.cache.texts, 2)
}

// writes a non-empty file so the cache accepts it
type fileSynth struct{ calls int }

func (s *fileSynth) Synthesize(_ context.Context, text, _, outputPath string) (string, error) {
	s.calls++
	return outputPath, os.WriteFile(outputPath, []byte("ID3"+text), 0o644)
}

func TestService_PlaysAndLeaves(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dialer := &stubDialer{}
	manager := voice.NewManager(ctx, dialer, voice.WithConnectWait(time.Second))
	defer manager.Close()

	synth := &fileSynth{}
	assets, err := cache.New(filepath.Join(t.TempDir(), "voices"), "fr", synth)
	require.NoError(t, err)

	greeter, err := greeting.NewGreeter(greeting.DefaultTable(), "fr", time.UTC, clock(9))
	require.NoError(t, err)

	svc := NewService(Options{
		Filter:  NewFilter(nil, false),
		Greeter: greeter,
		Cache:   assets,
		Announcer: NewAnnouncer(manager, func(string) voice.Source {
			return &stubSource{frames: 10, delay: 2 * time.Millisecond}
		}),
	})

	err = svc.HandleTransition(ctx, Transition{ActorID: "u1", GuildID: "g1", NewChannel: "A", DisplayName: "Alice"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, ok := manager.Get("g1")
		return !ok
	}, 3*time.Second, 10*time.Millisecond)

	for _, ch := range dialer.dialed() {
		assert.Equal(t, "A", ch)
	}
	assert.Equal(t, 1, synth.calls)
}
