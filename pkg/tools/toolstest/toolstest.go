// Package toolstest builds tool hosts over temporary vaults for tests.
package toolstest

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/entrhq/toolbox/pkg/clipboard"
	"github.com/entrhq/toolbox/pkg/palette"
	"github.com/entrhq/toolbox/pkg/tool"
	"github.com/entrhq/toolbox/pkg/tools"
	"github.com/entrhq/toolbox/pkg/vault"
	"github.com/stretchr/testify/require"
)

// Registrar records command registrations.
type Registrar struct {
	mu       sync.Mutex
	commands map[string][]tool.Command
}

// RegisterCommands implements tool.CommandRegistrar.
func (r *Registrar) RegisterCommands(toolID string, cmds []tool.Command) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.commands == nil {
		r.commands = make(map[string][]tool.Command)
	}
	r.commands[toolID] = cmds
}

// UnregisterCommands implements tool.CommandRegistrar.
func (r *Registrar) UnregisterCommands(toolID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.commands, toolID)
}

// Commands returns the commands registered for toolID.
func (r *Registrar) Commands(toolID string) []tool.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.commands[toolID]
}

// Command returns one registered command.
func (r *Registrar) Command(toolID, id string) (tool.Command, bool) {
	for _, cmd := range r.Commands(toolID) {
		if cmd.ID == id {
			return cmd, true
		}
	}
	return tool.Command{}, false
}

// Notice is one recorded notification.
type Notice struct {
	Message  string
	Duration time.Duration
}

// Notices records notifications.
type Notices struct {
	mu   sync.Mutex
	list []Notice
}

// Notify implements tool.Notifier.
func (n *Notices) Notify(message string, d time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.list = append(n.list, Notice{Message: message, Duration: d})
}

// All returns every notice in order.
func (n *Notices) All() []Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notice(nil), n.list...)
}

// Env is a host plus the fakes behind it.
type Env struct {
	Host      tools.Host
	Vault     *vault.Vault
	Watcher   *vault.Watcher
	Clipboard *clipboard.Memory
	Registrar *Registrar
	Notices   *Notices
	Menu      *palette.Menu

	mu  sync.Mutex
	now time.Time
}

// New creates a vault in a temporary directory holding files and a host
// over it. The host clock starts at now and moves only through Advance.
func New(t *testing.T, files map[string]string, now time.Time) *Env {
	t.Helper()

	root := t.TempDir()
	for rel, content := range files {
		Write(t, root, rel, content)
	}

	v, err := vault.Open(root)
	require.NoError(t, err)

	w := vault.NewWatcher(v, nil)
	t.Cleanup(func() { _ = w.Close() })

	env := &Env{
		Vault:     v,
		Watcher:   w,
		Clipboard: &clipboard.Memory{},
		Registrar: &Registrar{},
		Notices:   &Notices{},
		Menu:      palette.NewMenu(),
		now:       now,
	}
	env.Host = tools.Host{
		Vault:     v,
		Watcher:   w,
		Commands:  env.Registrar,
		Menu:      env.Menu,
		Clipboard: env.Clipboard,
		Notifier:  env.Notices,
		Now:       env.Now,
	}
	return env
}

// Write creates a file under root.
func Write(t *testing.T, root, rel, content string) {
	t.Helper()
	abs := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
	require.NoError(t, os.WriteFile(abs, []byte(content), 0o644))
}

// Now returns the fake clock.
func (e *Env) Now() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.now
}

// Advance moves the fake clock.
func (e *Env) Advance(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = e.now.Add(d)
}

// Read returns a note's content.
func (e *Env) Read(t *testing.T, rel string) string {
	t.Helper()
	content, err := e.Vault.Read(rel)
	require.NoError(t, err)
	return content
}

// SetModTime sets a file's modification time.
func (e *Env) SetModTime(t *testing.T, rel string, ts time.Time) {
	t.Helper()
	abs, err := e.Vault.Abs(rel)
	require.NoError(t, err)
	require.NoError(t, os.Chtimes(abs, ts, ts))
}

// Configure delivers cfg, with enabled set, to a tool.
func Configure(h tool.ConfigChangeHandler, cfg tool.Configuration, enabled bool) {
	h.OnConfigChange(cfg.With(tool.KeyEnabled, enabled))
}
