package tool

import "sync"

// Base holds the configuration snapshot last delivered by the registry.
// Tools embed it to get OnConfigChange and the sub-setting helpers.
type Base struct {
	mu  sync.RWMutex
	cfg Configuration
}

// Config returns a copy of the current configuration.
func (b *Base) Config() Configuration {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.cfg.Clone()
}

// OnConfigChange stores cfg as the current configuration.
func (b *Base) OnConfigChange(cfg Configuration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cfg = cfg.Clone()
}

// IsSubSettingEnabled reports whether the boolean sub-setting name is on.
// Always false while the tool itself is disabled.
func (b *Base) IsSubSettingEnabled(name string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.cfg.Enabled() && b.cfg.Bool(name)
}

// AllSubSettingsEnabled reports whether every named sub-setting is on.
func (b *Base) AllSubSettingsEnabled(names ...string) bool {
	for _, name := range names {
		if !b.IsSubSettingEnabled(name) {
			return false
		}
	}
	return true
}

// AnySubSettingEnabled reports whether at least one named sub-setting is on.
func (b *Base) AnySubSettingEnabled(names ...string) bool {
	for _, name := range names {
		if b.IsSubSettingEnabled(name) {
			return true
		}
	}
	return false
}
