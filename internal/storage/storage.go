package storage

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/keshon/datastore"
)

const defaultHistoryLimit = 20

type Storage struct {
	ds           *datastore.DataStore
	historyLimit int

	// datastore values are whole records; mu serializes read-modify-write
	mu sync.Mutex
}

// WelcomeRecord is one greeting that was queued in a guild.
type WelcomeRecord struct {
	AnnounceID  string    `json:"announce_id"`
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	ChannelID   string    `json:"channel_id"`
	Text        string    `json:"text"`
	AssetKey    string    `json:"asset_key"`
	Datetime    time.Time `json:"datetime"`
}

type Record struct {
	Welcomes    []WelcomeRecord      `json:"welcomes"`
	LastGreeted map[string]time.Time `json:"last_greeted"` // key = userID
}

// New opens the JSON store at filePath. historyLimit <= 0 selects the default.
func New(filePath string, historyLimit int) (*Storage, error) {
	ds, err := datastore.New(filePath)
	if err != nil {
		return nil, err
	}
	if historyLimit <= 0 {
		historyLimit = defaultHistoryLimit
	}
	return &Storage{ds: ds, historyLimit: historyLimit}, nil
}

func (s *Storage) Close() error {
	return s.ds.Close()
}

func (s *Storage) getOrCreateGuildRecord(guildID string) (*Record, error) {
	data, exists := s.ds.Get(guildID)
	if !exists {
		return &Record{
			Welcomes:    []WelcomeRecord{},
			LastGreeted: map[string]time.Time{},
		}, nil
	}

	// values loaded from disk come back as generic maps
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("error marshalling data: %w", err)
	}

	var record Record
	if err := json.Unmarshal(jsonData, &record); err != nil {
		return nil, fmt.Errorf("error unmarshalling to *Record: %w", err)
	}

	if record.LastGreeted == nil {
		record.LastGreeted = map[string]time.Time{}
	}
	if len(record.Welcomes) > s.historyLimit {
		record.Welcomes = record.Welcomes[len(record.Welcomes)-s.historyLimit:]
	}

	return &record, nil
}

// AppendWelcome records a greeting and bumps the user's last-greeted time.
func (s *Storage) AppendWelcome(guildID string, w WelcomeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.getOrCreateGuildRecord(guildID)
	if err != nil {
		return err
	}

	record.Welcomes = append(record.Welcomes, w)
	if len(record.Welcomes) > s.historyLimit {
		record.Welcomes = record.Welcomes[len(record.Welcomes)-s.historyLimit:]
	}
	record.LastGreeted[w.UserID] = w.Datetime

	s.ds.Add(guildID, record)
	return nil
}

// FetchWelcomes returns the guild's recent greetings, oldest first.
func (s *Storage) FetchWelcomes(guildID string) ([]WelcomeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.getOrCreateGuildRecord(guildID)
	if err != nil {
		return nil, err
	}
	return record.Welcomes, nil
}

// LastGreeted returns when userID was last greeted in the guild.
func (s *Storage) LastGreeted(guildID, userID string) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.getOrCreateGuildRecord(guildID)
	if err != nil {
		return time.Time{}, false, err
	}
	t, ok := record.LastGreeted[userID]
	return t, ok, nil
}

// Flush writes pending changes to disk.
func (s *Storage) Flush() error {
	return s.ds.SaveToFile()
}
