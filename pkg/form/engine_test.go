package form

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/toolbox/pkg/config"
	"github.com/entrhq/toolbox/pkg/registry"
	"github.com/entrhq/toolbox/pkg/tool"
)

// fakeControl records what the engine did to a widget
type fakeControl struct {
	mu       sync.Mutex
	field    Field
	value    any
	visible  bool
	err      string
	onChange func(any)
}

func (c *fakeControl) SetVisible(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.visible = v
}

func (c *fakeControl) ShowError(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = msg
}

func (c *fakeControl) HideError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = ""
}

func (c *fakeControl) SetValue(v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = v
}

func (c *fakeControl) state() (any, bool, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value, c.visible, c.err
}

// fakeRenderer creates fakeControls
type fakeRenderer struct {
	sections []string
	controls map[string]*fakeControl
}

func newFakeRenderer() *fakeRenderer {
	return &fakeRenderer{controls: make(map[string]*fakeControl)}
}

func (r *fakeRenderer) Section(title, description string) {
	r.sections = append(r.sections, title)
}

func (r *fakeRenderer) Control(f Field, value any, onChange func(any)) Control {
	c := &fakeControl{field: f, value: value, visible: true, onChange: onChange}
	r.controls[f.Name] = c
	return c
}

// fakePersister records writes
type fakePersister struct {
	mu     sync.Mutex
	fields []string
	values []any
	subs   []string
	err    error
}

func (p *fakePersister) UpdateField(ctx context.Context, toolID, field string, value any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.fields = append(p.fields, field)
	p.values = append(p.values, value)
	return nil
}

func (p *fakePersister) SetSubSetting(ctx context.Context, toolID, name string, value any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.subs = append(p.subs, name)
	p.values = append(p.values, value)
	return nil
}

func (p *fakePersister) written() []any {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]any(nil), p.values...)
}

func intervalField() Field {
	return Field{
		Name:    "modifyInterval",
		Label:   "Modify interval",
		Kind:    KindText,
		Default: "10",
		Validation: &Validation{
			Required:       true,
			Pattern:        `^[1-9]\d*$`,
			PatternMessage: "please enter a positive integer",
		},
	}
}

func TestEngineRender(t *testing.T) {
	renderer := newFakeRenderer()
	e := New("t1", tool.Configuration{"enabled": true, "label": "stored"}, &fakePersister{}, renderer)

	e.Render(Group{
		Title: "General",
		Fields: []Field{
			{Name: "label", Kind: KindText, Default: "default"},
			{Name: "color", Kind: KindColor, Default: "#ff0000"},
		},
	})

	assert.Equal(t, []string{"General"}, renderer.sections)
	assert.Equal(t, "stored", renderer.controls["label"].value, "configured value wins")
	assert.Equal(t, "#ff0000", renderer.controls["color"].value, "default when unset")
	assert.Equal(t, "#ff0000", e.Value("color"))
	assert.Equal(t, []string{"label", "color"}, e.Fields())

	f, ok := e.Field("color")
	require.True(t, ok)
	assert.Equal(t, KindColor, f.Kind)
}

func TestEngineInitialValidation(t *testing.T) {
	renderer := newFakeRenderer()
	e := New("t1", tool.Configuration{"modifyInterval": "0"}, &fakePersister{}, renderer)

	e.RenderGroup(Group{Fields: []Field{intervalField()}})

	_, _, msg := renderer.controls["modifyInterval"].state()
	assert.Equal(t, "please enter a positive integer", msg)
	assert.Equal(t, "please enter a positive integer", e.Error("modifyInterval"))
}

func TestEngineUpdateValue(t *testing.T) {
	ctx := context.Background()

	t.Run("validation failure does not mutate", func(t *testing.T) {
		persister := &fakePersister{}
		renderer := newFakeRenderer()
		e := New("t1", tool.Configuration{"modifyInterval": "10"}, persister, renderer)
		e.Render(Group{Fields: []Field{intervalField()}})

		err := e.UpdateValue(ctx, "modifyInterval", "0")

		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "modifyInterval", verr.Field)
		assert.Equal(t, "10", e.Value("modifyInterval"))
		assert.Empty(t, persister.written())
		_, _, msg := renderer.controls["modifyInterval"].state()
		assert.NotEmpty(t, msg)
	})

	t.Run("valid value clears the error and persists", func(t *testing.T) {
		persister := &fakePersister{}
		renderer := newFakeRenderer()
		e := New("t1", tool.Configuration{"modifyInterval": "10"}, persister, renderer)
		e.Render(Group{Fields: []Field{intervalField()}})
		_ = e.UpdateValue(ctx, "modifyInterval", "abc")

		require.NoError(t, e.UpdateValue(ctx, "modifyInterval", "30"))

		assert.Equal(t, "30", e.Value("modifyInterval"))
		assert.Equal(t, []any{"30"}, persister.written())
		assert.Equal(t, []string{"modifyInterval"}, persister.fields)
		assert.Empty(t, e.Error("modifyInterval"))
	})

	t.Run("sub-settings persist through the sub-setting path", func(t *testing.T) {
		persister := &fakePersister{}
		e := New("t1", nil, persister, newFakeRenderer())
		e.Render(Group{Fields: []Field{{Name: "showHierarchy", Kind: KindToggle, Default: true, SubSetting: true}}})

		require.NoError(t, e.UpdateValue(ctx, "showHierarchy", false))

		assert.Equal(t, []string{"showHierarchy"}, persister.subs)
		assert.Empty(t, persister.fields)
	})

	t.Run("persistence failure keeps the value", func(t *testing.T) {
		persister := &fakePersister{err: errors.New("disk full")}
		e := New("t1", nil, persister, newFakeRenderer())
		e.Render(Group{Fields: []Field{{Name: "label", Kind: KindText, Default: "x"}}})

		err := e.UpdateValue(ctx, "label", "y")

		assert.Error(t, err)
		assert.Equal(t, "y", e.Value("label"))
	})

	t.Run("tool rejection reverts the value", func(t *testing.T) {
		persister := &fakePersister{err: fmt.Errorf("%w for t1: nope", registry.ErrInvalidConfig)}
		renderer := newFakeRenderer()
		e := New("t1", tool.Configuration{"label": "x"}, persister, renderer)
		e.Render(Group{Fields: []Field{{Name: "label", Kind: KindText}}})

		err := e.UpdateValue(ctx, "label", "y")

		assert.ErrorIs(t, err, registry.ErrInvalidConfig)
		assert.Equal(t, "x", e.Value("label"))
		value, _, msg := renderer.controls["label"].state()
		assert.Equal(t, "x", value)
		assert.Contains(t, msg, "nope")
	})

	t.Run("unknown field", func(t *testing.T) {
		e := New("t1", nil, &fakePersister{}, newFakeRenderer())
		assert.ErrorIs(t, e.UpdateValue(ctx, "ghost", 1), ErrUnknownField)
	})
}

func TestEngineDependencies(t *testing.T) {
	ctx := context.Background()
	renderer := newFakeRenderer()
	e := New("t1", tool.Configuration{"showNotification": true, "text": "Copied!"}, &fakePersister{}, renderer)

	e.Render(Group{Fields: []Field{
		{Name: "showNotification", Kind: KindToggle, Default: true},
		{Name: "text", Kind: KindText, DependsOn: &Dependency{Field: "showNotification", Value: true}},
		{Name: "duration", Kind: KindSlider, Default: 2000.0, DependsOn: &Dependency{Field: "showNotification", Operator: OpNotEquals, Value: false}},
	}})

	assert.True(t, e.Visible("text"))
	assert.True(t, e.Visible("duration"))

	require.NoError(t, e.UpdateValue(ctx, "showNotification", false))

	assert.False(t, e.Visible("text"))
	assert.False(t, e.Visible("duration"))
	_, visible, _ := renderer.controls["text"].state()
	assert.False(t, visible)
	assert.Equal(t, "Copied!", e.Value("text"), "hidden values are preserved")

	require.NoError(t, e.UpdateValue(ctx, "showNotification", true))
	assert.True(t, e.Visible("text"))
}

func TestEngineDependencyOnUnrenderedKey(t *testing.T) {
	e := New("t1", tool.Configuration{"enabled": false}, &fakePersister{}, newFakeRenderer())

	e.Render(Group{Fields: []Field{
		{Name: "extra", Kind: KindText, DependsOn: &Dependency{Field: "enabled", Value: true}},
	}})

	assert.False(t, e.Visible("extra"))
}

func TestEngineDebounce(t *testing.T) {
	persister := &fakePersister{}
	renderer := newFakeRenderer()
	e := New("t1", nil, persister, renderer)
	defer e.Close()

	e.Render(Group{Fields: []Field{
		{Name: "label", Kind: KindText, Behavior: Behavior{Debounce: 30 * time.Millisecond}},
	}})

	onChange := renderer.controls["label"].onChange
	onChange("a")
	onChange("ab")
	onChange("abc")

	assert.Eventually(t, func() bool {
		return len(persister.written()) == 1
	}, time.Second, 5*time.Millisecond)

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, []any{"abc"}, persister.written(), "only the last value is written")
}

func TestEngineFlush(t *testing.T) {
	persister := &fakePersister{}
	renderer := newFakeRenderer()
	e := New("t1", nil, persister, renderer)

	e.Render(Group{Fields: []Field{
		{Name: "label", Kind: KindText, Behavior: Behavior{Debounce: time.Hour}},
	}})

	renderer.controls["label"].onChange("pending")
	e.Flush()

	assert.Equal(t, []any{"pending"}, persister.written())
	e.Close()
}

func TestEngineCloseCancelsPending(t *testing.T) {
	persister := &fakePersister{}
	renderer := newFakeRenderer()
	e := New("t1", nil, persister, renderer)

	e.Render(Group{Fields: []Field{
		{Name: "label", Kind: KindText, Behavior: Behavior{Debounce: 20 * time.Millisecond}},
	}})

	renderer.controls["label"].onChange("dropped")
	e.Close()
	time.Sleep(50 * time.Millisecond)

	assert.Empty(t, persister.written())

	renderer.controls["label"].onChange("after close")
	assert.Empty(t, persister.written())
}

func TestEngineThrottle(t *testing.T) {
	persister := &fakePersister{}
	renderer := newFakeRenderer()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	e := New("t1", nil, persister, renderer, WithClock(func() time.Time { return now }))

	e.Render(Group{Fields: []Field{
		{Name: "size", Kind: KindSlider, Min: 0, Max: 100, Step: 1, Behavior: Behavior{Throttle: 100 * time.Millisecond}},
	}})

	onChange := renderer.controls["size"].onChange
	onChange(1.0)
	now = now.Add(50 * time.Millisecond)
	onChange(2.0)
	now = now.Add(60 * time.Millisecond)
	onChange(3.0)

	assert.Equal(t, []any{1.0, 3.0}, persister.written())
}

func TestEngineWithRegistry(t *testing.T) {
	ctx := context.Background()
	store := config.NewMemoryStore(nil)
	reg := registry.New(store)
	require.NoError(t, reg.Register(&intervalTool{}))
	require.NoError(t, reg.LoadAll(ctx))

	cfg, err := reg.Configuration("interval-tool")
	require.NoError(t, err)

	e := New("interval-tool", cfg, reg, newFakeRenderer())
	e.Render(Group{Fields: []Field{intervalField()}})

	require.Error(t, e.UpdateValue(ctx, "modifyInterval", "0"))
	stored, _ := reg.Configuration("interval-tool")
	assert.Equal(t, "10", stored["modifyInterval"])

	require.NoError(t, e.UpdateValue(ctx, "modifyInterval", "10"))
	require.NoError(t, e.UpdateValue(ctx, "modifyInterval", "25"))

	stored, _ = reg.Configuration("interval-tool")
	assert.Equal(t, "25", stored["modifyInterval"])

	doc, _ := store.Load(ctx)
	assert.Equal(t, "25", doc["interval-tool"].(map[string]any)["modifyInterval"])
}

// intervalTool is a minimal tool with one string field
type intervalTool struct {
	tool.Base
}

func (t *intervalTool) Descriptor() tool.Descriptor {
	return tool.Descriptor{ID: "interval-tool", Name: "Interval"}
}

func (t *intervalTool) Enable(ctx context.Context) error  { return nil }
func (t *intervalTool) Disable(ctx context.Context) error { return nil }

func (t *intervalTool) DefaultConfig() tool.Configuration {
	return tool.Configuration{"enabled": false, "modifyInterval": "10"}
}

func (t *intervalTool) ValidateConfig(cfg tool.Configuration) error {
	return tool.RequireKeys(cfg, t.DefaultConfig())
}
