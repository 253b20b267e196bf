package settings

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/entrhq/toolbox/pkg/config"
	"github.com/entrhq/toolbox/pkg/form"
)

// Form is a form.Renderer that keeps the rendered sections in memory for
// the terminal model to draw and drive.
type Form struct {
	mu       sync.Mutex
	sections []*section
}

type section struct {
	title       string
	description string
	controls    []*Control
}

// Control is one rendered field. The engine may update it from timer
// goroutines, so every accessor locks the owning form.
type Control struct {
	form     *Form
	field    form.Field
	value    any
	visible  bool
	err      string
	onChange func(value any)
}

// NewForm creates an empty form.
func NewForm() *Form {
	return &Form{}
}

// Section implements form.Renderer.
func (f *Form) Section(title, description string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sections = append(f.sections, &section{title: title, description: description})
}

// Control implements form.Renderer.
func (f *Form) Control(field form.Field, value any, onChange func(value any)) form.Control {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sections) == 0 {
		f.sections = append(f.sections, &section{})
	}
	c := &Control{form: f, field: field, value: value, visible: true, onChange: onChange}
	s := f.sections[len(f.sections)-1]
	s.controls = append(s.controls, c)
	return c
}

// Visible returns the controls currently shown, in render order.
func (f *Form) Visible() []*Control {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*Control
	for _, s := range f.sections {
		for _, c := range s.controls {
			if c.visible {
				out = append(out, c)
			}
		}
	}
	return out
}

// Lookup returns the control of a field.
func (f *Form) Lookup(name string) (*Control, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sections {
		for _, c := range s.controls {
			if c.field.Name == name {
				return c, true
			}
		}
	}
	return nil, false
}

// SetVisible implements form.Control.
func (c *Control) SetVisible(visible bool) {
	c.form.mu.Lock()
	defer c.form.mu.Unlock()
	c.visible = visible
}

// ShowError implements form.Control.
func (c *Control) ShowError(message string) {
	c.form.mu.Lock()
	defer c.form.mu.Unlock()
	c.err = message
}

// HideError implements form.Control.
func (c *Control) HideError() {
	c.form.mu.Lock()
	defer c.form.mu.Unlock()
	c.err = ""
}

// SetValue implements form.Control.
func (c *Control) SetValue(value any) {
	c.form.mu.Lock()
	defer c.form.mu.Unlock()
	c.value = value
}

// Field returns the descriptor.
func (c *Control) Field() form.Field {
	return c.field
}

// Value returns the value shown.
func (c *Control) Value() any {
	c.form.mu.Lock()
	defer c.form.mu.Unlock()
	return c.value
}

// Error returns the message shown under the control.
func (c *Control) Error() string {
	c.form.mu.Lock()
	defer c.form.mu.Unlock()
	return c.err
}

// Visible reports whether the control is shown.
func (c *Control) Visible() bool {
	c.form.mu.Lock()
	defer c.form.mu.Unlock()
	return c.visible
}

// set shows value and hands it to the engine.
func (c *Control) set(value any) {
	c.SetValue(value)
	c.onChange(value)
}

// Toggle flips a toggle control.
func (c *Control) Toggle() {
	on, _ := c.Value().(bool)
	c.set(!on)
}

// Cycle selects the next (or previous) dropdown option.
func (c *Control) Cycle(step int) {
	opts := c.field.Options
	if len(opts) == 0 {
		return
	}
	current := fmt.Sprint(c.Value())
	i := 0
	for j, o := range opts {
		if o.Value == current {
			i = j
			break
		}
	}
	i = (i + step + len(opts)) % len(opts)
	c.set(opts[i].Value)
}

// Step moves a slider by n steps, clamped to its bounds.
func (c *Control) Step(n int) {
	current, _ := config.ToFloat(c.Value())
	step := c.field.Step
	if step <= 0 {
		step = 1
	}
	next := current + float64(n)*step
	if c.field.Max > c.field.Min {
		next = math.Max(c.field.Min, math.Min(c.field.Max, next))
	}
	c.set(next)
}

// Submit hands text entered in the edit dialog to the engine.
func (c *Control) Submit(text string) {
	c.set(text)
}

// Display renders the value the way it is shown in the list.
func (c *Control) Display() string {
	value := c.Value()
	switch c.field.Kind {
	case form.KindToggle:
		if on, _ := value.(bool); on {
			return "[x]"
		}
		return "[ ]"
	case form.KindDropdown:
		current := fmt.Sprint(value)
		for _, o := range c.field.Options {
			if o.Value == current && o.Label != "" {
				return "< " + o.Label + " >"
			}
		}
		return "< " + current + " >"
	case form.KindSlider:
		n, _ := config.ToFloat(value)
		return "◀ " + strconv.FormatFloat(n, 'f', -1, 64) + " ▶"
	case form.KindTextArea:
		s := fmt.Sprint(value)
		lines := strings.Count(s, "\n") + 1
		if s == "" {
			return "(empty)"
		}
		first, _, _ := strings.Cut(s, "\n")
		if lines > 1 {
			return fmt.Sprintf("%s … (%d lines)", first, lines)
		}
		return first
	default:
		if value == nil {
			return ""
		}
		return strconv.Quote(fmt.Sprint(value))
	}
}
