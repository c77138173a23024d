package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"pogocal/eventworker/services/kvstore"
)

func TestSettingsDefaults(t *testing.T) {
	settings := NewSettingsStore(kvstore.NewMemoryStore(), SettingsPrefix).Load()

	assert.Equal(t, "light", settings.Theme)
	assert.Equal(t, "es", settings.Language)
	assert.False(t, settings.AutoSync)
	assert.Equal(t, 60, settings.SyncIntervalMinutes)
	assert.True(t, settings.Notifications)
	assert.Nil(t, settings.LastSync)
}

func TestSettingsRoundtrip(t *testing.T) {
	kv := kvstore.NewMemoryStore()
	store := NewSettingsStore(kv, SettingsPrefix)

	now := time.Date(2025, time.August, 1, 9, 0, 0, 0, time.UTC)
	assert.True(t, store.Update(func(s *Settings) {
		s.AutoSync = true
		s.SyncIntervalMinutes = 15
		s.LastSync = &now
	}))

	settings := store.Load()
	assert.True(t, settings.AutoSync)
	assert.Equal(t, 15, settings.SyncIntervalMinutes)
	assert.NotNil(t, settings.LastSync)
	assert.Equal(t, now, *settings.LastSync)
	// Untouched fields keep their defaults
	assert.Equal(t, "light", settings.Theme)
}

func TestSettingsPartialPayloadMergesDefaults(t *testing.T) {
	kv := kvstore.NewMemoryStore()
	assert.NoError(t, kv.SetItem(SettingsPrefix+"settings", `{"theme":"dark"}`))

	settings := NewSettingsStore(kv, SettingsPrefix).Load()
	assert.Equal(t, "dark", settings.Theme)
	assert.Equal(t, "es", settings.Language)
	assert.Equal(t, 60, settings.SyncIntervalMinutes)
}

func TestSettingsCorruptPayloadFallsBack(t *testing.T) {
	kv := kvstore.NewMemoryStore()
	assert.NoError(t, kv.SetItem(SettingsPrefix+"settings", "{broken"))

	settings := NewSettingsStore(kv, SettingsPrefix).Load()
	assert.Equal(t, DefaultSettings(), settings)
}

func TestSettingsReset(t *testing.T) {
	store := NewSettingsStore(kvstore.NewMemoryStore(), SettingsPrefix)
	store.Update(func(s *Settings) { s.Theme = "dark" })

	assert.True(t, store.Reset())
	assert.Equal(t, DefaultSettings(), store.Load())
}
