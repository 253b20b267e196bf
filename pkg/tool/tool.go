// Package tool defines the contract between feature tools and the registry
// that owns them.
package tool

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/entrhq/toolbox/pkg/config"
)

// KeyEnabled is the configuration key every tool carries.
const KeyEnabled = "enabled"

// Descriptor is the static identity of a tool.
type Descriptor struct {
	// ID is globally unique and stable across versions.
	ID string

	// Name is the display name.
	Name string

	// SortKey orders tools independently of the display name.
	SortKey string

	Description string
}

// Tool is a self-contained feature unit with its own configuration and
// lifecycle. The registry drives every method.
type Tool interface {
	Descriptor() Descriptor

	// Enable starts the tool. A returned error means it did not start.
	Enable(ctx context.Context) error

	// Disable stops the tool.
	Disable(ctx context.Context) error

	// DefaultConfig returns a fresh copy of the default configuration.
	DefaultConfig() Configuration

	// ValidateConfig reports why cfg is not acceptable, or nil.
	ValidateConfig(cfg Configuration) error
}

// ConfigChangeHandler is implemented by tools that want every accepted
// configuration delivered to them.
type ConfigChangeHandler interface {
	OnConfigChange(cfg Configuration)
}

// Configuration maps field names to values (strings, booleans, numbers).
type Configuration map[string]any

// Enabled reports the enabled flag.
func (c Configuration) Enabled() bool {
	return c.Bool(KeyEnabled)
}

// Bool returns the boolean stored under key. Boolean strings are parsed.
func (c Configuration) Bool(key string) bool {
	switch v := c[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	}
	return false
}

// String returns the value under key formatted as a string.
func (c Configuration) String(key string) string {
	switch v := c[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// Float returns the numeric value under key. Numeric strings are parsed.
func (c Configuration) Float(key string) (float64, bool) {
	return config.ToFloat(c[key])
}

// Int returns the value under key truncated to an int.
func (c Configuration) Int(key string) (int, bool) {
	f, ok := c.Float(key)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// Lines splits a newline separated string field into trimmed, non-empty lines.
func (c Configuration) Lines(key string) []string {
	var lines []string
	for _, line := range strings.Split(c.String(key), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// Clone returns a deep copy.
func (c Configuration) Clone() Configuration {
	if c == nil {
		return nil
	}
	return Configuration(config.Clone(c))
}

// With returns a copy with key set to value.
func (c Configuration) With(key string, value any) Configuration {
	out := c.Clone()
	if out == nil {
		out = make(Configuration)
	}
	out[key] = value
	return out
}

// Equal reports whether both configurations hold the same keys and values.
func (c Configuration) Equal(other Configuration) bool {
	if len(c) != len(other) {
		return false
	}
	for k, v := range c {
		ov, ok := other[k]
		if !ok || !config.ValuesEqual(v, ov) {
			return false
		}
	}
	return true
}

// RequireKeys checks that cfg carries every key of defaults with a value
// of a compatible kind. Numeric fields accept numeric strings.
func RequireKeys(cfg, defaults Configuration) error {
	for key, def := range defaults {
		v, ok := cfg[key]
		if !ok {
			return fmt.Errorf("missing field %q", key)
		}
		if !sameKind(def, v) {
			return fmt.Errorf("field %q has type %T, expected %T", key, v, def)
		}
	}
	return nil
}

func sameKind(def, v any) bool {
	switch def.(type) {
	case bool:
		_, ok := v.(bool)
		return ok
	case string:
		_, ok := v.(string)
		return ok
	}
	if _, ok := config.ToFloat(def); ok {
		_, num := config.ToFloat(v)
		return num
	}
	return true
}
