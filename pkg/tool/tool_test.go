package tool

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigurationAccessors(t *testing.T) {
	cfg := Configuration{
		"enabled":        true,
		"dateFormat":     "YYYY-MM-DD",
		"modifyInterval": "15",
		"duration":       float64(2000),
		"toggle":         "true",
		"order":          "title\n\n  date \ntags",
	}

	assert.True(t, cfg.Enabled())
	assert.True(t, cfg.Bool("toggle"))
	assert.False(t, cfg.Bool("missing"))
	assert.Equal(t, "YYYY-MM-DD", cfg.String("dateFormat"))
	assert.Equal(t, "2000", cfg.String("duration"))
	assert.Equal(t, "", cfg.String("missing"))

	n, ok := cfg.Int("modifyInterval")
	require.True(t, ok)
	assert.Equal(t, 15, n)

	_, ok = cfg.Float("dateFormat")
	assert.False(t, ok)

	assert.Equal(t, []string{"title", "date", "tags"}, cfg.Lines("order"))
}

func TestConfigurationCloneAndEqual(t *testing.T) {
	cfg := Configuration{"enabled": false, "label": "x", "count": 3}

	clone := cfg.Clone()
	clone["label"] = "y"
	assert.Equal(t, "x", cfg["label"])

	assert.True(t, cfg.Equal(Configuration{"enabled": false, "label": "x", "count": float64(3)}))
	assert.False(t, cfg.Equal(clone))
	assert.False(t, cfg.Equal(Configuration{"enabled": false}))

	with := cfg.With("enabled", true)
	assert.True(t, with.Enabled())
	assert.False(t, cfg.Enabled())
}

func TestRequireKeys(t *testing.T) {
	defaults := Configuration{"enabled": false, "label": "x", "interval": 10}

	tests := []struct {
		name    string
		cfg     Configuration
		wantErr bool
	}{
		{"valid", Configuration{"enabled": true, "label": "y", "interval": float64(5)}, false},
		{"numeric string", Configuration{"enabled": true, "label": "y", "interval": "5"}, false},
		{"extra keys", Configuration{"enabled": true, "label": "y", "interval": 5, "more": 1}, false},
		{"missing key", Configuration{"enabled": true, "label": "y"}, true},
		{"wrong bool", Configuration{"enabled": "yes", "label": "y", "interval": 5}, true},
		{"wrong string", Configuration{"enabled": true, "label": 1, "interval": 5}, true},
		{"wrong number", Configuration{"enabled": true, "label": "y", "interval": "often"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := RequireKeys(tt.cfg, defaults)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBaseSubSettings(t *testing.T) {
	var b Base

	b.OnConfigChange(Configuration{"enabled": false, "a": true, "b": false})
	assert.False(t, b.IsSubSettingEnabled("a"), "sub-settings are off while the tool is disabled")

	b.OnConfigChange(Configuration{"enabled": true, "a": true, "b": false})
	assert.True(t, b.IsSubSettingEnabled("a"))
	assert.False(t, b.IsSubSettingEnabled("b"))
	assert.True(t, b.AnySubSettingEnabled("a", "b"))
	assert.False(t, b.AllSubSettingsEnabled("a", "b"))
	assert.True(t, b.AllSubSettingsEnabled("a"))

	cfg := b.Config()
	cfg["a"] = false
	assert.True(t, b.IsSubSettingEnabled("a"), "Config returns a copy")
}

func TestCommandAvailable(t *testing.T) {
	always := Command{ID: "a", Run: func(context.Context, Invocation) error { return nil }}
	assert.True(t, always.Available(Invocation{}))

	onlyMarkdown := Command{ID: "b", Check: func(inv Invocation) bool { return inv.Target != "" }}
	assert.False(t, onlyMarkdown.Available(Invocation{}))
	assert.True(t, onlyMarkdown.Available(Invocation{Target: "note.md"}))
}

func TestNotifierFunc(t *testing.T) {
	var got string
	var n Notifier = NotifierFunc(func(msg string, d time.Duration) { got = msg })
	n.Notify("copied", time.Second)
	assert.Equal(t, "copied", got)
}
