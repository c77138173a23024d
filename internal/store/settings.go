package store

import (
	"encoding/json"
	"time"

	"pogocal/eventworker/logger"
	"pogocal/eventworker/services/kvstore"
)

const (
	// SettingsPrefix is the key prefix for persisted settings
	SettingsPrefix = "pogo_config_"

	settingsKey = "settings"
)

// Settings is the flat persisted configuration object
type Settings struct {
	Theme               string     `json:"theme"`
	Language            string     `json:"language"`
	AutoSync            bool       `json:"autoSync"`
	SyncIntervalMinutes int        `json:"syncInterval"`
	Notifications       bool       `json:"notifications"`
	LastSync            *time.Time `json:"lastSync"`
}

// DefaultSettings returns the out-of-the-box settings
func DefaultSettings() Settings {
	return Settings{
		Theme:               "light",
		Language:            "es",
		AutoSync:            false,
		SyncIntervalMinutes: 60,
		Notifications:       true,
	}
}

// SettingsStore persists the settings object, merging whatever was saved
// over the defaults on load so new fields pick up their default value.
type SettingsStore struct {
	kv     kvstore.Store
	prefix string
	log    *logger.Logger
}

// NewSettingsStore creates a settings store over kv
func NewSettingsStore(kv kvstore.Store, prefix string) *SettingsStore {
	return &SettingsStore{
		kv:     kv,
		prefix: prefix,
		log:    logger.ForStore(),
	}
}

// Load returns the persisted settings merged over the defaults
func (s *SettingsStore) Load() Settings {
	settings := DefaultSettings()

	raw, err := s.kv.GetItem(s.prefix + settingsKey)
	if err != nil {
		return settings
	}
	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		s.log.Warn().Err(err).Msg("Discarding corrupt settings payload")
		return DefaultSettings()
	}
	return settings
}

// Save persists the settings object
func (s *SettingsStore) Save(settings Settings) bool {
	data, err := json.Marshal(settings)
	if err != nil {
		return false
	}
	if err := s.kv.SetItem(s.prefix+settingsKey, string(data)); err != nil {
		s.log.Warn().Err(err).Msg("Settings write failed")
		return false
	}
	return true
}

// Update applies fn to the current settings and persists the result
func (s *SettingsStore) Update(fn func(*Settings)) bool {
	settings := s.Load()
	fn(&settings)
	return s.Save(settings)
}

// Reset restores the default settings
func (s *SettingsStore) Reset() bool {
	return s.Save(DefaultSettings())
}
