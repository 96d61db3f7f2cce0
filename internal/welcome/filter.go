package welcome

import "sync"

// Transition is a voice-state change of one user. Empty channel ids mean
// "not in a voice channel".
type Transition struct {
	ActorID         string
	GuildID         string
	PreviousChannel string
	NewChannel      string
	DisplayName     string
}

// Reason explains why a transition was not announced.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonLeft
	ReasonSameChannel
	ReasonMoved
	ReasonDenylisted
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "accepted"
	case ReasonLeft:
		return "left voice"
	case ReasonSameChannel:
		return "no channel change"
	case ReasonMoved:
		return "moved between channels"
	case ReasonDenylisted:
		return "denylisted actor"
	default:
		return "unknown"
	}
}

// Decision is the filter's verdict.
type Decision struct {
	Accepted  bool
	Reason    Reason
	ActorID   string
	ChannelID string
	GuildID   string
}

// Filter decides which transitions are new joins worth a greeting.
type Filter struct {
	announceMoves bool

	mu     sync.RWMutex
	denied map[string]struct{}
}

// NewFilter returns a filter rejecting the given actors. When announceMoves
// is set, moving from one channel to another counts as a join.
func NewFilter(denylist []string, announceMoves bool) *Filter {
	f := &Filter{
		announceMoves: announceMoves,
		denied:        make(map[string]struct{}, len(denylist)),
	}
	for _, id := range denylist {
		f.denied[id] = struct{}{}
	}
	return f
}

// Deny adds an actor to the denylist.
func (f *Filter) Deny(actorID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.denied[actorID] = struct{}{}
}

func (f *Filter) isDenied(actorID string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.denied[actorID]
	return ok
}

// Evaluate applies the rules in order: left, same channel, moved,
// denylisted. It has no side effects.
func (f *Filter) Evaluate(t Transition) Decision {
	reject := func(r Reason) Decision { return Decision{Reason: r} }

	switch {
	case t.NewChannel == "":
		return reject(ReasonLeft)
	case t.PreviousChannel != "" && t.PreviousChannel == t.NewChannel:
		return reject(ReasonSameChannel)
	case t.PreviousChannel != "" && !f.announceMoves:
		return reject(ReasonMoved)
	case f.isDenied(t.ActorID):
		return reject(ReasonDenylisted)
	}

	return Decision{
		Accepted:  true,
		ActorID:   t.ActorID,
		ChannelID: t.NewChannel,
		GuildID:   t.GuildID,
	}
}
