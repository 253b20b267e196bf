// Package registry owns the registered tools, their lifecycle, their
// persisted configuration and the per-tool command table.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/entrhq/toolbox/pkg/config"
	"github.com/entrhq/toolbox/pkg/logging"
	"github.com/entrhq/toolbox/pkg/tool"
)

var (
	// ErrToolNotFound is returned for operations on an unknown tool id.
	ErrToolNotFound = errors.New("tool not found")

	// ErrDuplicateTool is returned when a tool id is registered twice.
	ErrDuplicateTool = errors.New("tool already registered")

	// ErrInvalidConfig is returned when a tool rejects a configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrPersist is returned when the store write fails. The in-memory
	// configuration keeps the new value.
	ErrPersist = errors.New("failed to persist configuration")
)

// LifecycleError reports a failing Enable or Disable hook.
type LifecycleError struct {
	ToolID string
	Op     string
	Err    error
}

func (e *LifecycleError) Error() string {
	return fmt.Sprintf("failed to %s tool %s: %v", e.Op, e.ToolID, e.Err)
}

func (e *LifecycleError) Unwrap() error {
	return e.Err
}

// CommandSurface is the host command palette. It has no removal API.
type CommandSurface interface {
	AddCommand(cmd tool.FullCommand) error
}

// DefaultPluginID prefixes surfaced command ids when no plugin id is set.
const DefaultPluginID = "toolbox"

type entry struct {
	tool tool.Tool
	cfg  tool.Configuration
}

// Registry manages tools and mediates every read and write of their
// persisted configuration.
type Registry struct {
	mu       sync.RWMutex
	store    config.Store
	surface  CommandSurface
	logger   *logging.Logger
	pluginID string

	order    []string
	entries  map[string]*entry
	commands map[string][]tool.Command
	prefs    config.Preferences
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithCommandSurface sets the palette commands are surfaced on.
func WithCommandSurface(surface CommandSurface) Option {
	return func(r *Registry) {
		r.surface = surface
	}
}

// WithPluginID sets the prefix of surfaced command ids.
func WithPluginID(id string) Option {
	return func(r *Registry) {
		r.pluginID = id
	}
}

// New creates a registry persisting to store.
func New(store config.Store, opts ...Option) *Registry {
	r := &Registry{
		store:    store,
		logger:   logging.Discard(),
		pluginID: DefaultPluginID,
		entries:  make(map[string]*entry),
		commands: make(map[string][]tool.Command),
		prefs:    config.DefaultPreferences(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a tool. A duplicate id is logged and ignored.
func (r *Registry) Register(t tool.Tool) error {
	id := t.Descriptor().ID

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[id]; exists {
		r.logger.Warnf("tool %s is already registered", id)
		return fmt.Errorf("%w: %s", ErrDuplicateTool, id)
	}

	r.entries[id] = &entry{tool: t, cfg: t.DefaultConfig()}
	r.order = append(r.order, id)
	return nil
}

// Unregister runs the tool's Disable hook and removes it. Commands already
// surfaced stay on the palette.
func (r *Registry) Unregister(ctx context.Context, id string) error {
	r.mu.Lock()
	e, ok := r.entries[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrToolNotFound, id)
	}
	delete(r.entries, id)
	delete(r.commands, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.mu.Unlock()

	if err := e.tool.Disable(ctx); err != nil {
		r.logger.Errorf("failed to disable tool %s while unregistering: %v", id, err)
		return &LifecycleError{ToolID: id, Op: "disable", Err: err}
	}
	return nil
}

// Get returns the tool registered under id.
func (r *Registry) Get(id string) (tool.Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[id]
	if !ok {
		return nil, false
	}
	return e.tool, true
}

// All returns the tools in registration order.
func (r *Registry) All() []tool.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]tool.Tool, 0, len(r.order))
	for _, id := range r.order {
		tools = append(tools, r.entries[id].tool)
	}
	return tools
}

// Sorted returns the tools ordered by the sortBy preference.
func (r *Registry) Sorted() []tool.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := append([]string(nil), r.order...)
	byEnabled := r.prefs.SortBy == config.SortByEnabled

	sort.SliceStable(ids, func(i, j int) bool {
		a, b := r.entries[ids[i]], r.entries[ids[j]]
		if byEnabled {
			ae, be := a.cfg.Enabled(), b.cfg.Enabled()
			if ae != be {
				return ae
			}
		}
		return sortKey(a.tool.Descriptor()) < sortKey(b.tool.Descriptor())
	})

	tools := make([]tool.Tool, 0, len(ids))
	for _, id := range ids {
		tools = append(tools, r.entries[id].tool)
	}
	return tools
}

func sortKey(d tool.Descriptor) string {
	if d.SortKey != "" {
		return strings.ToLower(d.SortKey)
	}
	return strings.ToLower(d.Name)
}

// IsEnabled reports the tool's enabled flag.
func (r *Registry) IsEnabled(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[id]
	return ok && e.cfg.Enabled()
}

// Configuration returns a copy of the tool's in-memory configuration.
func (r *Registry) Configuration(id string) (tool.Configuration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, id)
	}
	return e.cfg.Clone(), nil
}

// Enable sets the enabled flag and runs the Enable hook. If the hook fails
// the flag is restored and a *LifecycleError is returned.
func (r *Registry) Enable(ctx context.Context, id string) error {
	return r.transition(ctx, id, true)
}

// Disable clears the enabled flag and runs the Disable hook, restoring the
// flag if the hook fails.
func (r *Registry) Disable(ctx context.Context, id string) error {
	return r.transition(ctx, id, false)
}

func (r *Registry) transition(ctx context.Context, id string, enabled bool) error {
	r.mu.Lock()
	e, ok := r.entries[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrToolNotFound, id)
	}
	previous := e.cfg.Enabled()
	e.cfg[tool.KeyEnabled] = enabled
	snapshot := e.cfg.Clone()
	r.mu.Unlock()

	deliver(e.tool, snapshot)

	if err := runHook(ctx, e.tool, enabled); err != nil {
		r.mu.Lock()
		e.cfg[tool.KeyEnabled] = previous
		snapshot = e.cfg.Clone()
		r.mu.Unlock()

		deliver(e.tool, snapshot)
		lerr := &LifecycleError{ToolID: id, Op: opName(enabled), Err: err}
		r.logger.Errorf("%v", lerr)
		return lerr
	}

	r.logger.Debugf("tool %s %sd", id, opName(enabled))
	return nil
}

// SetEnabled enables or disables the tool, then persists its section and
// the enabledTools list.
func (r *Registry) SetEnabled(ctx context.Context, id string, enabled bool) error {
	if err := r.transition(ctx, id, enabled); err != nil {
		return err
	}

	cfg, err := r.Configuration(id)
	if err != nil {
		return err
	}
	if err := r.store.UpdateSection(ctx, id, map[string]any(cfg)); err != nil {
		return r.persistErr(id, err)
	}
	return r.syncEnabledTools(ctx)
}

// UpdateConfiguration validates cfg and, on success, replaces the in-memory
// configuration, runs the lifecycle hook when the enabled flag flips,
// notifies the tool and persists the section. A store failure returns
// ErrPersist and keeps the in-memory value.
func (r *Registry) UpdateConfiguration(ctx context.Context, id string, cfg tool.Configuration) error {
	r.mu.Lock()
	e, ok := r.entries[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrToolNotFound, id)
	}
	if err := e.tool.ValidateConfig(cfg); err != nil {
		r.mu.Unlock()
		return fmt.Errorf("%w for %s: %v", ErrInvalidConfig, id, err)
	}

	previous := e.cfg
	next := cfg.Clone()
	e.cfg = next
	snapshot := next.Clone()
	r.mu.Unlock()

	deliver(e.tool, snapshot)

	flipped := previous.Enabled() != snapshot.Enabled()
	if flipped {
		if err := runHook(ctx, e.tool, snapshot.Enabled()); err != nil {
			r.mu.Lock()
			e.cfg = previous
			restored := previous.Clone()
			r.mu.Unlock()

			deliver(e.tool, restored)
			lerr := &LifecycleError{ToolID: id, Op: opName(snapshot.Enabled()), Err: err}
			r.logger.Errorf("%v", lerr)
			return lerr
		}
	}

	if err := r.store.UpdateSection(ctx, id, map[string]any(snapshot)); err != nil {
		return r.persistErr(id, err)
	}
	if flipped {
		return r.syncEnabledTools(ctx)
	}
	return nil
}

// UpdateField sets one field, validates the whole configuration and
// persists just that field.
func (r *Registry) UpdateField(ctx context.Context, id, field string, value any) error {
	if field == tool.KeyEnabled {
		enabled, ok := value.(bool)
		if !ok {
			return fmt.Errorf("%w for %s: enabled must be a boolean", ErrInvalidConfig, id)
		}
		return r.SetEnabled(ctx, id, enabled)
	}

	snapshot, err := r.setField(id, field, value)
	if err != nil {
		return err
	}

	if err := r.store.UpdateField(ctx, id, field, snapshot[field]); err != nil {
		return r.persistErr(id, err)
	}
	return nil
}

// SetSubSetting writes a sub-setting whether or not the tool is enabled,
// notifies the tool and persists the field.
func (r *Registry) SetSubSetting(ctx context.Context, id, name string, value any) error {
	return r.UpdateField(ctx, id, name, value)
}

// IsSubSettingEnabled reports whether the boolean sub-setting is on. Always
// false while the tool is disabled.
func (r *Registry) IsSubSettingEnabled(id, name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[id]
	if !ok || !e.cfg.Enabled() {
		return false
	}
	v, isBool := e.cfg[name].(bool)
	return isBool && v
}

func (r *Registry) setField(id, field string, value any) (tool.Configuration, error) {
	r.mu.Lock()
	e, ok := r.entries[id]
	if !ok {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, id)
	}

	next := e.cfg.With(field, value)
	if err := e.tool.ValidateConfig(next); err != nil {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w for %s: %v", ErrInvalidConfig, id, err)
	}
	e.cfg = next
	snapshot := next.Clone()
	r.mu.Unlock()

	deliver(e.tool, snapshot)
	return snapshot, nil
}

// LoadAll reads the store once and applies it to every registered tool.
// Stored values are merged over defaults; a merged configuration the tool
// rejects is replaced by the defaults with a warning. Each tool is then
// enabled or disabled according to its flag. Tools with no stored entry get
// one written back. Lifecycle failures are joined into the returned error.
func (r *Registry) LoadAll(ctx context.Context) error {
	doc, err := r.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	r.mu.Lock()
	r.prefs = config.PreferencesFromDocument(doc)
	entries := r.snapshotEntriesLocked()
	r.mu.Unlock()

	var errs []error
	var writeBack []string

	for _, e := range entries {
		id := e.tool.Descriptor().ID
		cfg, found := r.resolveStored(id, e.tool, doc[id])
		if !found {
			writeBack = append(writeBack, id)
		}

		r.mu.Lock()
		e.cfg = cfg.Clone()
		r.mu.Unlock()

		if err := r.transition(ctx, id, cfg.Enabled()); err != nil {
			errs = append(errs, err)
			if cfg.Enabled() {
				// A tool that failed to start is stored as disabled.
				r.markDisabled(e)
				if found {
					writeBack = append(writeBack, id)
				}
			}
		}
	}

	for _, id := range writeBack {
		cfg, err := r.Configuration(id)
		if err != nil {
			continue
		}
		if err := r.store.UpdateSection(ctx, id, map[string]any(cfg)); err != nil {
			errs = append(errs, r.persistErr(id, err))
		}
	}

	if err := r.syncEnabledTools(ctx); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func (r *Registry) markDisabled(e *entry) {
	r.mu.Lock()
	e.cfg[tool.KeyEnabled] = false
	snapshot := e.cfg.Clone()
	r.mu.Unlock()

	deliver(e.tool, snapshot)
}

func (r *Registry) resolveStored(id string, t tool.Tool, raw any) (tool.Configuration, bool) {
	defaults := t.DefaultConfig()
	if raw == nil {
		return defaults, false
	}

	stored, ok := config.AsMap(raw)
	if !ok {
		r.logger.Warnf("stored settings for %s are not an object, using defaults", id)
		return defaults, true
	}

	merged, err := config.Merge(defaults, stored)
	if err != nil {
		r.logger.Warnf("failed to merge settings for %s, using defaults: %v", id, err)
		return defaults, true
	}

	cfg := tool.Configuration(merged)
	if err := t.ValidateConfig(cfg); err != nil {
		r.logger.Warnf("stored settings for %s failed validation, using defaults: %v", id, err)
		return t.DefaultConfig(), true
	}
	return cfg, true
}

// SaveAll validates every tool configuration and writes all sections plus
// the preferences in a single store write. Nothing is written if any tool
// rejects its configuration. Keys of unregistered tools are left untouched.
func (r *Registry) SaveAll(ctx context.Context) error {
	r.mu.RLock()
	entries := r.snapshotEntriesLocked()
	prefs := r.prefs
	configs := make(map[string]tool.Configuration, len(entries))
	for _, e := range entries {
		configs[e.tool.Descriptor().ID] = e.cfg.Clone()
	}
	r.mu.RUnlock()

	for _, e := range entries {
		id := e.tool.Descriptor().ID
		if err := e.tool.ValidateConfig(configs[id]); err != nil {
			return fmt.Errorf("%w for %s: %v", ErrInvalidConfig, id, err)
		}
	}

	sections := make(config.Document, len(configs)+5)
	for id, cfg := range configs {
		sections[id] = map[string]any(cfg)
	}
	prefs.EnabledTools = enabledIDs(entries, configs)
	prefs.ApplyTo(sections)

	if err := r.store.UpdateSections(ctx, sections); err != nil {
		r.logger.Errorf("failed to save settings: %v", err)
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}

	r.mu.Lock()
	r.prefs.EnabledTools = prefs.EnabledTools
	r.mu.Unlock()
	return nil
}

// Preferences returns the registry-wide preferences.
func (r *Registry) Preferences() config.Preferences {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p := r.prefs
	p.EnabledTools = append([]string{}, r.prefs.EnabledTools...)
	return p
}

// UpdatePreferences applies fn to a copy of the preferences, validates the
// result and persists the keys that changed.
func (r *Registry) UpdatePreferences(ctx context.Context, fn func(p *config.Preferences)) error {
	current := r.Preferences()
	next := current
	next.EnabledTools = append([]string{}, current.EnabledTools...)
	fn(&next)

	if err := next.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	// enabledTools follows tool state only.
	next.EnabledTools = current.EnabledTools

	r.mu.Lock()
	r.prefs = next
	r.mu.Unlock()

	before, after := config.Document{}, config.Document{}
	current.ApplyTo(before)
	next.ApplyTo(after)
	for key, value := range after {
		if config.ValuesEqual(before[key], value) {
			continue
		}
		if err := r.store.UpdateSection(ctx, key, value); err != nil {
			r.logger.Errorf("failed to persist preference %s: %v", key, err)
			return fmt.Errorf("%w: %v", ErrPersist, err)
		}
	}
	return nil
}

// RegisterCommands records cmds for the tool and surfaces each one on the
// command palette. Unknown tools are logged and ignored.
func (r *Registry) RegisterCommands(toolID string, cmds []tool.Command) {
	r.mu.Lock()
	e, ok := r.entries[toolID]
	if !ok {
		r.mu.Unlock()
		r.logger.Warnf("cannot register commands for unregistered tool %s", toolID)
		return
	}
	r.commands[toolID] = append([]tool.Command(nil), cmds...)
	name := e.tool.Descriptor().Name
	surface := r.surface
	r.mu.Unlock()

	if surface == nil {
		return
	}
	if name == "" {
		name = toolID
	}

	for _, cmd := range cmds {
		full := tool.FullCommand{
			ID:      r.FullCommandID(toolID, cmd.ID),
			Name:    fmt.Sprintf("%s: %s", name, cmd.Name),
			ToolID:  toolID,
			Command: cmd,
		}
		if err := surface.AddCommand(full); err != nil {
			r.logger.Errorf("failed to register command %s: %v", full.ID, err)
		}
	}
}

// UnregisterCommands forgets the tool's commands. The palette keeps them
// until the process restarts.
func (r *Registry) UnregisterCommands(toolID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.commands, toolID)
}

// Commands returns the commands recorded for the tool.
func (r *Registry) Commands(toolID string) ([]tool.Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cmds, ok := r.commands[toolID]
	if !ok {
		return nil, false
	}
	return append([]tool.Command(nil), cmds...), true
}

// AllCommands returns a copy of the whole command table.
func (r *Registry) AllCommands() map[string][]tool.Command {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make(map[string][]tool.Command, len(r.commands))
	for id, cmds := range r.commands {
		all[id] = append([]tool.Command(nil), cmds...)
	}
	return all
}

// FullCommandID builds the palette id of a tool command.
func (r *Registry) FullCommandID(toolID, commandID string) string {
	return fmt.Sprintf("%s:%s-%s", r.pluginID, toolID, commandID)
}

// Unload runs the Disable hook of every enabled tool without touching the
// stored flags.
func (r *Registry) Unload(ctx context.Context) error {
	r.mu.RLock()
	entries := r.snapshotEntriesLocked()
	r.mu.RUnlock()

	var errs []error
	for _, e := range entries {
		r.mu.RLock()
		enabled := e.cfg.Enabled()
		r.mu.RUnlock()
		if !enabled {
			continue
		}
		if err := e.tool.Disable(ctx); err != nil {
			id := e.tool.Descriptor().ID
			r.logger.Errorf("failed to unload tool %s: %v", id, err)
			errs = append(errs, &LifecycleError{ToolID: id, Op: "disable", Err: err})
		}
	}
	return errors.Join(errs...)
}

func (r *Registry) syncEnabledTools(ctx context.Context) error {
	r.mu.Lock()
	entries := r.snapshotEntriesLocked()
	configs := make(map[string]tool.Configuration, len(entries))
	for _, e := range entries {
		configs[e.tool.Descriptor().ID] = e.cfg
	}
	ids := enabledIDs(entries, configs)
	r.prefs.EnabledTools = ids
	r.mu.Unlock()

	if err := r.store.UpdateSection(ctx, config.KeyEnabledTools, ids); err != nil {
		r.logger.Errorf("failed to persist enabled tools: %v", err)
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	return nil
}

func (r *Registry) persistErr(id string, err error) error {
	r.logger.Errorf("failed to persist settings for %s: %v", id, err)
	return fmt.Errorf("%w for %s: %v", ErrPersist, id, err)
}

func (r *Registry) snapshotEntriesLocked() []*entry {
	entries := make([]*entry, 0, len(r.order))
	for _, id := range r.order {
		entries = append(entries, r.entries[id])
	}
	return entries
}

func enabledIDs(entries []*entry, configs map[string]tool.Configuration) []string {
	ids := []string{}
	for _, e := range entries {
		id := e.tool.Descriptor().ID
		if configs[id].Enabled() {
			ids = append(ids, id)
		}
	}
	return ids
}

func deliver(t tool.Tool, cfg tool.Configuration) {
	if h, ok := t.(tool.ConfigChangeHandler); ok {
		h.OnConfigChange(cfg)
	}
}

func runHook(ctx context.Context, t tool.Tool, enabled bool) error {
	if enabled {
		return t.Enable(ctx)
	}
	return t.Disable(ctx)
}

func opName(enabled bool) string {
	if enabled {
		return "enable"
	}
	return "disable"
}
