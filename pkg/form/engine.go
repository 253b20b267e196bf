package form

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/entrhq/toolbox/pkg/logging"
	"github.com/entrhq/toolbox/pkg/registry"
	"github.com/entrhq/toolbox/pkg/tool"
)

// ErrUnknownField is returned by UpdateValue for a field that was never rendered.
var ErrUnknownField = errors.New("unknown field")

// Persister writes accepted values. *registry.Registry implements it.
type Persister interface {
	UpdateField(ctx context.Context, toolID, field string, value any) error
	SetSubSetting(ctx context.Context, toolID, name string, value any) error
}

// Renderer creates the concrete widgets.
type Renderer interface {
	// Section starts a titled group of controls.
	Section(title, description string)

	// Control creates a widget for field showing value. The widget calls
	// onChange with every value the user enters.
	Control(field Field, value any, onChange func(value any)) Control
}

// Control is a rendered widget.
type Control interface {
	SetVisible(visible bool)
	ShowError(message string)
	HideError()
	SetValue(value any)
}

type binding struct {
	field   Field
	control Control
	visible bool
	err     string

	timer        *time.Timer
	pendingValue any
	lastThrottle time.Time
}

// Engine binds one tool's fields to its configuration.
type Engine struct {
	mu        sync.Mutex
	toolID    string
	cfg       tool.Configuration
	persister Persister
	renderer  Renderer
	logger    *logging.Logger
	ctx       context.Context
	now       func() time.Time

	bindings map[string]*binding
	order    []string
	pending  sync.WaitGroup
	closed   bool
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the logger used for background write failures.
func WithLogger(logger *logging.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithContext sets the context used by writes the engine starts itself.
func WithContext(ctx context.Context) EngineOption {
	return func(e *Engine) {
		e.ctx = ctx
	}
}

// WithClock replaces time.Now for throttling.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// New creates an engine for toolID over a copy of cfg.
func New(toolID string, cfg tool.Configuration, persister Persister, renderer Renderer, opts ...EngineOption) *Engine {
	if cfg == nil {
		cfg = tool.Configuration{}
	}
	e := &Engine{
		toolID:    toolID,
		cfg:       cfg.Clone(),
		persister: persister,
		renderer:  renderer,
		logger:    logging.Discard(),
		ctx:       context.Background(),
		now:       time.Now,
		bindings:  make(map[string]*binding),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Render renders every group, then computes visibility of all fields.
func (e *Engine) Render(groups ...Group) {
	for _, g := range groups {
		e.renderGroup(g)
	}
	e.refreshVisibility("")
}

// RenderGroup renders one group.
func (e *Engine) RenderGroup(group Group) {
	e.Render(group)
}

func (e *Engine) renderGroup(group Group) {
	e.renderer.Section(group.Title, group.Description)

	for _, f := range group.Fields {
		value := e.effectiveValue(f)
		name := f.Name
		control := e.renderer.Control(f, value, func(v any) {
			e.Submit(name, v)
		})

		b := &binding{field: f, control: control, visible: true}
		if err := f.Validate(value); err != nil {
			b.err = validationMessage(err)
			control.ShowError(b.err)
		}

		e.mu.Lock()
		if _, exists := e.bindings[name]; !exists {
			e.order = append(e.order, name)
		}
		e.bindings[name] = b
		e.mu.Unlock()
	}
}

// effectiveValue is the configured value, or the field default when unset.
func (e *Engine) effectiveValue(f Field) any {
	e.mu.Lock()
	defer e.mu.Unlock()

	if v, ok := e.cfg[f.Name]; ok && v != nil {
		return v
	}
	return f.Default
}

func (e *Engine) effectiveValueLocked(name string) any {
	if v, ok := e.cfg[name]; ok && v != nil {
		return v
	}
	if b, ok := e.bindings[name]; ok {
		return b.field.Default
	}
	return nil
}

// Submit routes a value entered by the user through the field's throttle
// and debounce wrappers, then commits it. Failures are shown on the control
// and logged.
func (e *Engine) Submit(name string, value any) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	b, ok := e.bindings[name]
	if !ok {
		e.mu.Unlock()
		e.logger.Warnf("change for unknown field %s.%s ignored", e.toolID, name)
		return
	}

	behavior := b.field.Behavior
	if behavior.Throttle > 0 {
		now := e.now()
		if !b.lastThrottle.IsZero() && now.Sub(b.lastThrottle) < behavior.Throttle {
			e.mu.Unlock()
			return
		}
		b.lastThrottle = now
	}

	if behavior.Debounce > 0 {
		if b.timer != nil && b.timer.Stop() {
			e.pending.Done()
		}
		b.pendingValue = value
		e.pending.Add(1)
		var timer *time.Timer
		timer = time.AfterFunc(behavior.Debounce, func() {
			defer e.pending.Done()
			e.fire(name, b, timer, value)
		})
		b.timer = timer
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()

	e.commit(name, value)
}

func (e *Engine) fire(name string, b *binding, timer *time.Timer, value any) {
	e.mu.Lock()
	if b.timer == timer {
		b.timer = nil
	}
	closed := e.closed
	e.mu.Unlock()

	if !closed {
		e.commit(name, value)
	}
}

func (e *Engine) commit(name string, value any) {
	if err := e.UpdateValue(e.ctx, name, value); err != nil {
		e.logger.Debugf("change to %s.%s not applied: %v", e.toolID, name, err)
	}
}

// UpdateValue validates value, shows or clears the field's error, writes it
// into the configuration, re-evaluates dependent fields and persists it.
// A *ValidationError leaves the configuration untouched. A value the tool
// rejects is reverted; a persistence failure keeps the new value.
func (e *Engine) UpdateValue(ctx context.Context, name string, value any) error {
	e.mu.Lock()
	b, ok := e.bindings[name]
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownField, name)
	}

	if err := b.field.Validate(value); err != nil {
		b.err = validationMessage(err)
		b.control.ShowError(b.err)
		e.mu.Unlock()
		return err
	}

	if b.err != "" {
		b.err = ""
		b.control.HideError()
	}
	previous, hadPrevious := e.cfg[name]
	e.cfg[name] = value
	e.mu.Unlock()

	e.refreshVisibility(name)

	var err error
	if b.field.SubSetting {
		err = e.persister.SetSubSetting(ctx, e.toolID, name, value)
	} else {
		err = e.persister.UpdateField(ctx, e.toolID, name, value)
	}
	if err == nil {
		return nil
	}

	if errors.Is(err, registry.ErrInvalidConfig) || errors.Is(err, registry.ErrToolNotFound) {
		e.mu.Lock()
		if hadPrevious {
			e.cfg[name] = previous
		} else {
			delete(e.cfg, name)
		}
		restored := e.effectiveValueLocked(name)
		b.err = err.Error()
		b.control.SetValue(restored)
		b.control.ShowError(b.err)
		e.mu.Unlock()

		e.refreshVisibility(name)
		return err
	}

	e.logger.Errorf("failed to persist %s.%s: %v", e.toolID, name, err)
	return err
}

// refreshVisibility recomputes visibility of the fields depending on
// changed, or of every field when changed is empty.
func (e *Engine) refreshVisibility(changed string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, name := range e.order {
		b := e.bindings[name]
		dep := b.field.DependsOn
		if dep == nil {
			continue
		}
		if changed != "" && dep.Field != changed {
			continue
		}

		visible := dep.Holds(e.effectiveValueLocked(dep.Field))
		if visible != b.visible || changed == "" {
			b.visible = visible
			b.control.SetVisible(visible)
		}
	}
}

// Visible reports whether the field is currently shown.
func (e *Engine) Visible(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	b, ok := e.bindings[name]
	return ok && b.visible
}

// Value returns the field's effective value.
func (e *Engine) Value(name string) any {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.effectiveValueLocked(name)
}

// Error returns the message currently shown for the field.
func (e *Engine) Error(name string) string {
	e.mu.Lock()
	defer e.mu.Unlock()

	if b, ok := e.bindings[name]; ok {
		return b.err
	}
	return ""
}

// Field returns the descriptor of a rendered field.
func (e *Engine) Field(name string) (Field, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	b, ok := e.bindings[name]
	if !ok {
		return Field{}, false
	}
	return b.field, true
}

// Fields returns the rendered field names in render order.
func (e *Engine) Fields() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.order...)
}

// Config returns a copy of the engine's working configuration.
func (e *Engine) Config() tool.Configuration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg.Clone()
}

// Flush commits every pending debounced value now and waits for writes in
// flight to finish.
func (e *Engine) Flush() {
	type due struct {
		name  string
		value any
	}
	var ready []due

	e.mu.Lock()
	for _, name := range e.order {
		b := e.bindings[name]
		if b.timer != nil && b.timer.Stop() {
			e.pending.Done()
			b.timer = nil
			ready = append(ready, due{name: name, value: b.pendingValue})
		}
	}
	e.mu.Unlock()

	for _, d := range ready {
		e.commit(d.name, d.value)
	}
	e.pending.Wait()
}

// Close cancels pending debounced writes. Later changes are ignored.
func (e *Engine) Close() {
	e.mu.Lock()
	e.closed = true
	for _, b := range e.bindings {
		if b.timer != nil && b.timer.Stop() {
			e.pending.Done()
		}
		b.timer = nil
	}
	e.mu.Unlock()

	e.pending.Wait()
}

func validationMessage(err error) string {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Message
	}
	return err.Error()
}
