// Package tools holds what the built-in tools share: the host services they
// are constructed with and a few helpers over them. Each tool lives in its
// own sub-package.
package tools

import (
	"fmt"
	"net/http"
	"time"

	"github.com/entrhq/toolbox/pkg/clipboard"
	"github.com/entrhq/toolbox/pkg/logging"
	"github.com/entrhq/toolbox/pkg/palette"
	"github.com/entrhq/toolbox/pkg/tool"
	"github.com/entrhq/toolbox/pkg/vault"
)

// SelfWriteWindow is how long watcher events for a note a tool just wrote
// are suppressed.
const SelfWriteWindow = time.Second

// Host is the set of services a tool may use. Nil services are replaced by
// inert defaults through the accessor methods.
type Host struct {
	Vault      *vault.Vault
	Watcher    *vault.Watcher
	Commands   tool.CommandRegistrar
	Menu       *palette.Menu
	Clipboard  clipboard.Clipboard
	Notifier   tool.Notifier
	Logger     *logging.Logger
	HTTPClient *http.Client

	// Now replaces time.Now.
	Now func() time.Time
}

// Log returns the logger scoped to component.
func (h Host) Log(component string) *logging.Logger {
	if h.Logger == nil {
		return logging.Discard()
	}
	return h.Logger.With(component)
}

// Clock returns the current time.
func (h Host) Clock() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// Notify shows message when a notifier is configured.
func (h Host) Notify(message string, d time.Duration) {
	if h.Notifier != nil {
		h.Notifier.Notify(message, d)
	}
}

// Copy writes text to the clipboard.
func (h Host) Copy(text string) error {
	if h.Clipboard == nil {
		return fmt.Errorf("no clipboard configured")
	}
	return h.Clipboard.WriteText(text)
}

// Client returns the HTTP client used for outbound requests.
func (h Host) Client() *http.Client {
	if h.HTTPClient != nil {
		return h.HTTPClient
	}
	return http.DefaultClient
}

// WriteNote writes a note, hiding the write from watcher subscribers.
func (h Host) WriteNote(rel, content string) error {
	if h.Watcher != nil {
		h.Watcher.Suppress(rel, SelfWriteWindow)
	}
	return h.Vault.Write(rel, content)
}

// IgnoreMatcher compiles the ignore patterns stored under the given keys.
// An empty key is skipped.
func IgnoreMatcher(cfg tool.Configuration, foldersKey, filesKey, tagsKey string) (*vault.Matcher, error) {
	var folders, files, tags []string
	if foldersKey != "" {
		folders = cfg.Lines(foldersKey)
	}
	if filesKey != "" {
		files = cfg.Lines(filesKey)
	}
	if tagsKey != "" {
		tags = cfg.Lines(tagsKey)
	}
	return vault.NewMatcher(folders, files, tags)
}

// Enabled returns a command check that passes while t is enabled.
func Enabled(cfg func() tool.Configuration) func(tool.Invocation) bool {
	return func(tool.Invocation) bool {
		return cfg().Enabled()
	}
}
