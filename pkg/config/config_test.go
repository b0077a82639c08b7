package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_BACKEND", StoreMemory)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3*time.Second, cfg.TypingWindow)
	assert.Equal(t, UnreadFlag, cfg.UnreadMode)
	assert.Equal(t, TypingFirestore, cfg.TypingBackend)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", StoreMemory)
	t.Setenv("TYPING_WINDOW", "1500ms")
	t.Setenv("UNREAD_MODE", UnreadCount)
	t.Setenv("WS_ALLOWED_ORIGINS", "https://freshkart.app, http://localhost:3000")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 1500*time.Millisecond, cfg.TypingWindow)
	assert.Equal(t, UnreadCount, cfg.UnreadMode)
	assert.Equal(t, []string{"https://freshkart.app", "http://localhost:3000"}, cfg.AllowedOrigins)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := map[string]map[string]string{
		"unread mode":     {"STORE_BACKEND": StoreMemory, "UNREAD_MODE": "sum"},
		"typing backend":  {"STORE_BACKEND": StoreMemory, "TYPING_BACKEND": "memcached"},
		"typing window":   {"STORE_BACKEND": StoreMemory, "TYPING_WINDOW": "soon"},
		"missing project": {"STORE_BACKEND": StoreFirestore, "FIREBASE_PROJECT_ID": ""},
		"negative window": {"STORE_BACKEND": StoreMemory, "TYPING_WINDOW": "-1s"},
	}
	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
