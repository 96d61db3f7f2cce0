package greeting

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultEveningHour is the first hour greeted with the evening form.
const DefaultEveningHour = 17

// Prologue is the opening word(s) of a greeting for one locale.
type Prologue struct {
	Day     string `yaml:"day"`
	Evening string `yaml:"evening"`
	// EveningHour is nil when unset; 0 makes every hour evening.
	EveningHour *int `yaml:"evening_hour"`
}

// For returns the prologue form for the given hour of day (0-23).
// EveningHour itself is already evening.
func (p Prologue) For(hour int) string {
	cutoff := DefaultEveningHour
	if p.EveningHour != nil {
		cutoff = *p.EveningHour
	}
	if hour < cutoff {
		return p.Day
	}
	return p.Evening
}

// Table maps a locale (lower case language code) to its prologue.
type Table map[string]Prologue

// DefaultTable returns the built-in prologues.
func DefaultTable() Table {
	return Table{
		"fr": {Day: "Bonjour", Evening: "Bonsoir"},
		"en": {Day: "Hello", Evening: "Good evening"},
	}
}

// Lookup finds the prologue for locale. Region suffixes are ignored, so
// "fr-FR" and "fr_CA" both resolve to "fr".
func (t Table) Lookup(locale string) (Prologue, bool) {
	locale = strings.ToLower(strings.TrimSpace(locale))
	if p, ok := t[locale]; ok {
		return p, true
	}
	if i := strings.IndexAny(locale, "-_"); i > 0 {
		p, ok := t[locale[:i]]
		return p, ok
	}
	return Prologue{}, false
}

// LoadTable reads a YAML file of locale prologues and merges it over the
// built-in table.
//
//	fr:
//	  day: Salut
//	  evening: Bonsoir
//	  evening_hour: 18
func LoadTable(path string) (Table, error) {
	table := DefaultTable()
	if path == "" {
		return table, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read greetings file: %w", err)
	}

	var overrides map[string]Prologue
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("failed to parse greetings file: %w", err)
	}

	for locale, p := range overrides {
		if p.Day == "" || p.Evening == "" {
			return nil, fmt.Errorf("locale %q: day and evening are required", locale)
		}
		if h := p.EveningHour; h != nil && (*h < 0 || *h > 23) {
			return nil, fmt.Errorf("locale %q: evening_hour %d out of range", locale, *h)
		}
		table[strings.ToLower(locale)] = p
	}
	return table, nil
}
