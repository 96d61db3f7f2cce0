// Package greeting builds the spoken welcome text and its cache key.
package greeting

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Greeter renders "<prologue> <display name>" for a fixed locale.
type Greeter struct {
	prologue Prologue
	loc      *time.Location
	now      func() time.Time
}

// NewGreeter returns a Greeter for locale using table. now may be nil.
func NewGreeter(table Table, locale string, loc *time.Location, now func() time.Time) (*Greeter, error) {
	p, ok := table.Lookup(locale)
	if !ok {
		return nil, fmt.Errorf("no greeting prologue for locale %q", locale)
	}
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &Greeter{prologue: p, loc: loc, now: now}, nil
}

// Text returns the greeting for name at the current time.
func (g *Greeter) Text(name string) string {
	return g.TextAt(name, g.now())
}

// TextAt returns the greeting for name at t, evaluated in the greeter's timezone.
func (g *Greeter) TextAt(name string, t time.Time) string {
	prologue := g.prologue.For(t.In(g.loc).Hour())
	name = strings.TrimSpace(name)
	if name == "" {
		return prologue
	}
	return prologue + " " + name
}

// Variants returns every greeting name can receive in a day.
func (g *Greeter) Variants(name string) []string {
	name = strings.TrimSpace(name)
	out := make([]string, 0, 2)
	for _, p := range []string{g.prologue.Day, g.prologue.Evening} {
		if name != "" {
			p += " " + name
		}
		if !slices.Contains(out, p) {
			out = append(out, p)
		}
	}
	return out
}
