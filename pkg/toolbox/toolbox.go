// Package toolbox assembles the application: the vault, its watcher, the
// settings store, the registry with every built-in tool, and the command
// palette and context menu the tools contribute to.
package toolbox

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/entrhq/toolbox/pkg/clipboard"
	"github.com/entrhq/toolbox/pkg/config"
	"github.com/entrhq/toolbox/pkg/form"
	"github.com/entrhq/toolbox/pkg/logging"
	"github.com/entrhq/toolbox/pkg/palette"
	"github.com/entrhq/toolbox/pkg/registry"
	"github.com/entrhq/toolbox/pkg/tool"
	"github.com/entrhq/toolbox/pkg/tools"
	"github.com/entrhq/toolbox/pkg/tools/fmsort"
	"github.com/entrhq/toolbox/pkg/tools/inlinecode"
	"github.com/entrhq/toolbox/pkg/tools/pathcopy"
	"github.com/entrhq/toolbox/pkg/tools/tabcopy"
	"github.com/entrhq/toolbox/pkg/tools/timestamps"
	"github.com/entrhq/toolbox/pkg/ui/settings"
	"github.com/entrhq/toolbox/pkg/vault"
)

// DataDir is the folder inside the vault holding toolbox state.
const DataDir = ".toolbox"

// Factory builds a tool over the shared host services.
type Factory func(host tools.Host) tool.Tool

// builtinTools is the static tool table, in registration order.
var builtinTools = []Factory{
	func(h tools.Host) tool.Tool { return timestamps.New(h) },
	func(h tools.Host) tool.Tool { return fmsort.New(h) },
	func(h tools.Host) tool.Tool { return pathcopy.New(h) },
	func(h tools.Host) tool.Tool { return tabcopy.New(h) },
	func(h tools.Host) tool.Tool { return inlinecode.New(h) },
}

// Options configures Open.
type Options struct {
	// VaultRoot is the folder of notes. Required.
	VaultRoot string

	// StorePath is the settings file. Defaults to <vault>/.toolbox/data.json.
	StorePath string

	// PluginID prefixes palette command ids.
	PluginID string

	// Watch starts the filesystem watcher so tools react to note changes.
	Watch bool

	Logger     *logging.Logger
	Clipboard  clipboard.Clipboard
	Notifier   tool.Notifier
	HTTPClient *http.Client

	// Store replaces the file store, mainly for tests.
	Store config.Store

	// Tools replaces the built-in tool table.
	Tools []Factory
}

// Toolbox is an opened application.
type Toolbox struct {
	Vault    *vault.Vault
	Watcher  *vault.Watcher
	Registry *registry.Registry
	Palette  *palette.Palette
	Menu     *palette.Menu
	Host     tools.Host

	logger *logging.Logger
	closed bool
}

// Open builds the application, registers and loads every tool, and starts
// the watcher when asked. Tools that fail to load are reported in the
// returned error alongside a usable Toolbox.
func Open(ctx context.Context, opts Options) (*Toolbox, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	v, err := vault.Open(opts.VaultRoot)
	if err != nil {
		return nil, err
	}

	store := opts.Store
	if store == nil {
		storePath := opts.StorePath
		if storePath == "" {
			storePath = filepath.Join(v.Root(), DataDir, "data.json")
		}
		if err := os.MkdirAll(filepath.Dir(storePath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create settings directory: %w", err)
		}
		fs, err := config.NewFileStore(storePath)
		if err != nil {
			return nil, err
		}
		store = fs
	}

	clip := opts.Clipboard
	if clip == nil {
		clip = clipboard.System{}
	}
	notifier := opts.Notifier
	if notifier == nil {
		notices := logger.With("notice")
		notifier = tool.NotifierFunc(func(message string, d time.Duration) {
			notices.Infof("%s", message)
		})
	}

	pal := palette.New()
	regOpts := []registry.Option{
		registry.WithLogger(logger.With("registry")),
		registry.WithCommandSurface(pal),
	}
	if opts.PluginID != "" {
		regOpts = append(regOpts, registry.WithPluginID(opts.PluginID))
	}
	reg := registry.New(store, regOpts...)

	tb := &Toolbox{
		Vault:    v,
		Watcher:  vault.NewWatcher(v, logger.With("watcher")),
		Registry: reg,
		Palette:  pal,
		Menu:     palette.NewMenu(),
		logger:   logger,
	}
	tb.Host = tools.Host{
		Vault:      v,
		Watcher:    tb.Watcher,
		Commands:   reg,
		Menu:       tb.Menu,
		Clipboard:  clip,
		Notifier:   notifier,
		Logger:     logger,
		HTTPClient: opts.HTTPClient,
	}

	factories := opts.Tools
	if factories == nil {
		factories = builtinTools
	}
	for _, factory := range factories {
		if err := reg.Register(factory(tb.Host)); err != nil {
			logger.Warnf("%v", err)
		}
	}

	loadErr := reg.LoadAll(ctx)
	if loadErr != nil {
		logger.Errorf("some tools failed to load: %v", loadErr)
	}

	if opts.Watch {
		if err := tb.Watcher.Start(); err != nil {
			_ = tb.Close(ctx)
			return nil, fmt.Errorf("failed to watch vault: %w", err)
		}
	}
	return tb, loadErr
}

// Close stops the watcher and runs the Disable hook of every enabled tool
// without changing stored settings.
func (tb *Toolbox) Close(ctx context.Context) error {
	if tb.closed {
		return nil
	}
	tb.closed = true

	var errs []error
	if err := tb.Registry.Unload(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := tb.Watcher.Close(); err != nil && !errors.Is(err, vault.ErrWatcherClosed) {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Tools implements settings.Source.
func (tb *Toolbox) Tools() []settings.Entry {
	sorted := tb.Registry.Sorted()
	entries := make([]settings.Entry, 0, len(sorted))
	for _, t := range sorted {
		d := t.Descriptor()
		entries = append(entries, settings.Entry{
			ID:          d.ID,
			Name:        d.Name,
			Description: d.Description,
			Enabled:     tb.Registry.IsEnabled(d.ID),
		})
	}
	return entries
}

// SetEnabled implements settings.Source.
func (tb *Toolbox) SetEnabled(ctx context.Context, id string, enabled bool) error {
	return tb.Registry.SetEnabled(ctx, id, enabled)
}

// Settings builds a form engine over the tool's settings groups, renders
// it into r and returns it. The caller closes the engine.
func (tb *Toolbox) Settings(id string, r form.Renderer) (*form.Engine, error) {
	t, ok := tb.Registry.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", registry.ErrToolNotFound, id)
	}
	provider, ok := t.(form.Provider)
	if !ok {
		return nil, fmt.Errorf("tool %s has no settings", id)
	}

	cfg, err := tb.Registry.Configuration(id)
	if err != nil {
		return nil, err
	}
	engine := form.New(id, cfg, tb.Registry, r, form.WithLogger(tb.logger.With("form")))
	engine.Render(provider.SettingsGroups()...)
	return engine, nil
}

// Field returns the settings descriptor of one field of a tool.
func (tb *Toolbox) Field(id, name string) (form.Field, error) {
	t, ok := tb.Registry.Get(id)
	if !ok {
		return form.Field{}, fmt.Errorf("%w: %s", registry.ErrToolNotFound, id)
	}
	if provider, ok := t.(form.Provider); ok {
		for _, g := range provider.SettingsGroups() {
			for _, f := range g.Fields {
				if f.Name == name {
					return f, nil
				}
			}
		}
	}
	return form.Field{}, fmt.Errorf("%w: %s.%s", form.ErrUnknownField, id, name)
}

// Run invokes a palette command.
func (tb *Toolbox) Run(ctx context.Context, commandID string, inv tool.Invocation) error {
	return tb.Palette.Run(ctx, commandID, inv)
}
