package welcome

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"server-bonjour/internal/greeting"
	"server-bonjour/internal/storage"
	"server-bonjour/pkg/log"
	"server-bonjour/pkg/tracing"
)

// AssetCache resolves greeting text to a playable audio file.
type AssetCache interface {
	GetOrCreate(ctx context.Context, text string) (string, error)
}

// History records greetings and answers cooldown queries.
type History interface {
	AppendWelcome(guildID string, w storage.WelcomeRecord) error
	LastGreeted(guildID, userID string) (time.Time, bool, error)
}

// NameResolver looks up a member's display name when the event lacks one.
type NameResolver interface {
	DisplayName(ctx context.Context, guildID, userID string) (string, error)
}

type Options struct {
	Filter    *Filter
	Greeter   *greeting.Greeter
	Cache     AssetCache
	Announcer *Announcer

	// optional
	History  History
	Names    NameResolver
	Cooldown time.Duration
	Now      func() time.Time
}

// Service turns accepted joins into queued greetings.
type Service struct {
	filter    *Filter
	greeter   *greeting.Greeter
	cache     AssetCache
	announcer *Announcer
	history   History
	names     NameResolver
	cooldown  time.Duration
	now       func() time.Time
	log       *logrus.Entry
	tracer    trace.Tracer
}

func NewService(opts Options) *Service {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		filter:    opts.Filter,
		greeter:   opts.Greeter,
		cache:     opts.Cache,
		announcer: opts.Announcer,
		history:   opts.History,
		names:     opts.Names,
		cooldown:  opts.Cooldown,
		now:       now,
		log:       log.Component("welcome"),
		tracer:    tracing.Tracer("welcome"),
	}
}

// Filter exposes the join filter so callers can extend its denylist.
func (s *Service) Filter() *Filter { return s.filter }

// HandleTransition greets the actor of t if it is a fresh join. Rejected
// transitions return nil. The call returns once the greeting is queued.
func (s *Service) HandleTransition(ctx context.Context, t Transition) error {
	decision := s.filter.Evaluate(t)
	if !decision.Accepted {
		s.log.WithField("guild", t.GuildID).Debugf("Ignored voice update of %s: %s", t.ActorID, decision.Reason)
		return nil
	}

	announceID := uuid.NewString()
	l := s.log.WithFields(log.Fields{
		"guild":       decision.GuildID,
		"announce_id": announceID,
	})

	ctx, span := s.tracer.Start(ctx, "welcome.handle", trace.WithAttributes(
		attribute.String("announce.id", announceID),
		attribute.String("guild.id", decision.GuildID),
		attribute.String("channel.id", decision.ChannelID),
	))
	defer span.End()

	err := s.handle(ctx, l, announceID, decision, t.DisplayName)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (s *Service) handle(ctx context.Context, l *logrus.Entry, announceID string, d Decision, name string) error {
	if d.GuildID == "" {
		return fmt.Errorf("%w: voice update of %s carries no guild", ErrPrecondition, d.ActorID)
	}

	if s.coolingDown(l, d) {
		return nil
	}

	if name == "" && s.names != nil {
		resolved, err := s.names.DisplayName(ctx, d.GuildID, d.ActorID)
		if err != nil {
			return fmt.Errorf("%w: cannot resolve member %s: %w", ErrPrecondition, d.ActorID, err)
		}
		name = resolved
	}
	if name == "" {
		return fmt.Errorf("%w: voice update of %s carries no member", ErrPrecondition, d.ActorID)
	}

	text := s.greeter.Text(name)
	path, err := s.cache.GetOrCreate(ctx, text)
	if err != nil {
		return fmt.Errorf("cannot prepare greeting %q: %w", text, err)
	}

	track, err := s.announcer.Announce(ctx, d.GuildID, d.ChannelID, path)
	if err != nil {
		return err
	}
	l.WithField("track", track.ID()).Infof("Queued %q for %s in %s", text, d.ActorID, d.ChannelID)

	if s.history == nil {
		return nil
	}
	err = s.history.AppendWelcome(d.GuildID, storage.WelcomeRecord{
		AnnounceID:  announceID,
		UserID:      d.ActorID,
		DisplayName: name,
		ChannelID:   d.ChannelID,
		Text:        text,
		AssetKey:    greeting.KeyOf(text).String(),
		Datetime:    s.now(),
	})
	if err != nil {
		l.Warnf("Couldn't record welcome: %v", err)
	}
	return nil
}

func (s *Service) coolingDown(l *logrus.Entry, d Decision) bool {
	if s.cooldown <= 0 || s.history == nil {
		return false
	}
	last, ok, err := s.history.LastGreeted(d.GuildID, d.ActorID)
	if err != nil {
		l.Warnf("Couldn't read last greeting of %s: %v", d.ActorID, err)
		return false
	}
	if ok && s.now().Sub(last) < s.cooldown {
		l.Debugf("Skipping %s, greeted %s ago", d.ActorID, s.now().Sub(last).Round(time.Second))
		return true
	}
	return false
}
