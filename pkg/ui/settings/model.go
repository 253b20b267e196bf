// Package settings is the terminal settings screen: a tool list with
// enable switches and, per tool, the form its settings groups describe.
package settings

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/entrhq/toolbox/pkg/form"
)

// Entry is one row of the tool list.
type Entry struct {
	ID          string
	Name        string
	Description string
	Enabled     bool
}

// Source is the application side of the settings screen.
type Source interface {
	Tools() []Entry
	SetEnabled(ctx context.Context, id string, enabled bool) error
	// Settings renders the tool's settings into r and returns the engine
	// bound to them.
	Settings(id string, r form.Renderer) (*form.Engine, error)
}

type screen int

const (
	screenTools screen = iota
	screenForm
	screenEdit
)

type keyMap struct {
	Up     key.Binding
	Down   key.Binding
	Left   key.Binding
	Right  key.Binding
	Toggle key.Binding
	Open   key.Binding
	Save   key.Binding
	Back   key.Binding
	Quit   key.Binding
}

var keys = keyMap{
	Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Left:   key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←", "decrease")),
	Right:  key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→", "increase")),
	Toggle: key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle")),
	Open:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
	Save:   key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save")),
	Back:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	Quit:   key.NewBinding(key.WithKeys("ctrl+c", "q"), key.WithHelp("q", "quit")),
}

// Model is the bubbletea model of the settings screen.
type Model struct {
	src Source
	ctx context.Context

	screen screen
	tools  []Entry
	cursor int

	toolID string
	form   *Form
	engine *form.Engine
	focus  int

	editing *Control
	input   textinput.Model
	area    textarea.Model

	status string
	width  int
	height int
}

// New creates the model over src.
func New(ctx context.Context, src Source) *Model {
	input := textinput.New()
	input.Prompt = "> "
	area := textarea.New()
	area.ShowLineNumbers = false

	return &Model{
		src:   src,
		ctx:   ctx,
		tools: src.Tools(),
		input: input,
		area:  area,
		width: 80,
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.input.Width = msg.Width - 8
		m.area.SetWidth(msg.Width - 8)
		return m, nil
	case tea.KeyMsg:
		switch m.screen {
		case screenTools:
			return m.updateTools(msg)
		case screenForm:
			return m.updateForm(msg)
		case screenEdit:
			return m.updateEdit(msg)
		}
	}
	return m, nil
}

func (m *Model) updateTools(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit), key.Matches(msg, keys.Back):
		return m, tea.Quit
	case key.Matches(msg, keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, keys.Down):
		if m.cursor < len(m.tools)-1 {
			m.cursor++
		}
	case key.Matches(msg, keys.Toggle):
		m.toggleTool()
	case key.Matches(msg, keys.Open):
		m.openForm()
	}
	return m, nil
}

func (m *Model) toggleTool() {
	if len(m.tools) == 0 {
		return
	}
	entry := m.tools[m.cursor]
	if err := m.src.SetEnabled(m.ctx, entry.ID, !entry.Enabled); err != nil {
		m.status = fmt.Sprintf("Failed to update %s: %v", entry.Name, err)
	} else {
		m.status = ""
	}
	m.tools = m.src.Tools()
}

func (m *Model) openForm() {
	if len(m.tools) == 0 {
		return
	}
	entry := m.tools[m.cursor]
	f := NewForm()
	engine, err := m.src.Settings(entry.ID, f)
	if err != nil {
		m.status = fmt.Sprintf("No settings for %s: %v", entry.Name, err)
		return
	}
	m.toolID = entry.ID
	m.form = f
	m.engine = engine
	m.focus = 0
	m.status = ""
	m.screen = screenForm
}

func (m *Model) closeForm() {
	if m.engine != nil {
		m.engine.Flush()
		m.engine.Close()
	}
	m.engine = nil
	m.form = nil
	m.toolID = ""
	m.screen = screenTools
	m.tools = m.src.Tools()
}

func (m *Model) focused() *Control {
	visible := m.form.Visible()
	if len(visible) == 0 {
		return nil
	}
	if m.focus >= len(visible) {
		m.focus = len(visible) - 1
	}
	return visible[m.focus]
}

func (m *Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.String() == "ctrl+c":
		m.closeForm()
		return m, tea.Quit
	case key.Matches(msg, keys.Back):
		m.closeForm()
		return m, nil
	case key.Matches(msg, keys.Up):
		if m.focus > 0 {
			m.focus--
		}
		return m, nil
	case key.Matches(msg, keys.Down):
		if m.focus < len(m.form.Visible())-1 {
			m.focus++
		}
		return m, nil
	}

	c := m.focused()
	if c == nil {
		return m, nil
	}

	switch c.Field().Kind {
	case form.KindToggle:
		if key.Matches(msg, keys.Toggle, keys.Open) {
			c.Toggle()
		}
	case form.KindDropdown:
		switch {
		case key.Matches(msg, keys.Toggle, keys.Open, keys.Right):
			c.Cycle(1)
		case key.Matches(msg, keys.Left):
			c.Cycle(-1)
		}
	case form.KindSlider:
		switch {
		case key.Matches(msg, keys.Right):
			c.Step(1)
		case key.Matches(msg, keys.Left):
			c.Step(-1)
		}
	default:
		if key.Matches(msg, keys.Open) {
			return m, m.startEdit(c)
		}
	}
	return m, nil
}

func (m *Model) startEdit(c *Control) tea.Cmd {
	m.editing = c
	m.screen = screenEdit
	value := fmt.Sprint(c.Value())
	if c.Value() == nil {
		value = ""
	}

	if c.Field().Kind == form.KindTextArea {
		m.area.SetValue(value)
		m.area.Placeholder = c.Field().Placeholder
		if rows := c.Field().Rows; rows > 0 {
			m.area.SetHeight(rows)
		}
		return m.area.Focus()
	}
	m.input.SetValue(value)
	m.input.Placeholder = c.Field().Placeholder
	m.input.CursorEnd()
	return m.input.Focus()
}

func (m *Model) updateEdit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	multiline := m.editing.Field().Kind == form.KindTextArea

	switch {
	case key.Matches(msg, keys.Back):
		m.endEdit()
		return m, nil
	case key.Matches(msg, keys.Save), !multiline && key.Matches(msg, keys.Open):
		value := m.input.Value()
		if multiline {
			value = m.area.Value()
		}
		m.editing.Submit(value)
		m.endEdit()
		return m, nil
	}

	var cmd tea.Cmd
	if multiline {
		m.area, cmd = m.area.Update(msg)
	} else {
		m.input, cmd = m.input.Update(msg)
	}
	return m, cmd
}

func (m *Model) endEdit() {
	m.input.Blur()
	m.area.Blur()
	m.editing = nil
	m.screen = screenForm
}

// View implements tea.Model.
func (m *Model) View() string {
	switch m.screen {
	case screenForm:
		return m.viewForm()
	case screenEdit:
		return m.viewEdit()
	default:
		return m.viewTools()
	}
}

func (m *Model) viewTools() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Toolbox settings") + "\n\n")

	if len(m.tools) == 0 {
		b.WriteString(descriptionStyle.Render("No tools registered") + "\n")
	}
	for i, entry := range m.tools {
		state := "[ ]"
		if entry.Enabled {
			state = enabledStyle.Render("[x]")
		}
		name := itemStyle.Render(entry.Name)
		cursor := "  "
		if i == m.cursor {
			name = selectedStyle.Render(entry.Name)
			cursor = selectedStyle.Render("> ")
		}
		fmt.Fprintf(&b, "%s%s %s\n", cursor, state, name)
		if entry.Description != "" {
			b.WriteString("      " + descriptionStyle.Render(entry.Description) + "\n")
		}
	}

	m.writeStatus(&b)
	b.WriteString("\n" + helpStyle.Render("space enable/disable • enter settings • q quit"))
	return b.String()
}

func (m *Model) viewForm() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.toolName()+" settings") + "\n")

	focused := m.focused()
	m.form.mu.Lock()
	sections := m.form.sections
	m.form.mu.Unlock()

	for _, s := range sections {
		var rows []string
		for _, c := range s.controls {
			if !c.Visible() {
				continue
			}
			rows = append(rows, m.viewControl(c, c == focused))
		}
		if len(rows) == 0 {
			continue
		}
		if s.title != "" {
			b.WriteString(sectionStyle.Render(s.title) + "\n")
		}
		if s.description != "" {
			b.WriteString(descriptionStyle.Render(s.description) + "\n")
		}
		b.WriteString(strings.Join(rows, ""))
	}

	m.writeStatus(&b)
	b.WriteString("\n" + helpStyle.Render("↑/↓ move • space toggle • ←/→ adjust • enter edit • esc back"))
	return b.String()
}

func (m *Model) viewControl(c *Control, focused bool) string {
	field := c.Field()
	label := field.Label
	if label == "" {
		label = field.Name
	}

	cursor := "  "
	line := itemStyle.Render(label) + "  " + c.Display()
	if focused {
		cursor = selectedStyle.Render("> ")
		line = selectedStyle.Render(label) + "  " + c.Display()
	}

	var b strings.Builder
	b.WriteString(cursor + line + "\n")
	if focused && field.Description != "" {
		b.WriteString("    " + descriptionStyle.Render(field.Description) + "\n")
	}
	if msg := c.Error(); msg != "" {
		b.WriteString("    " + errorStyle.Render(msg) + "\n")
	}
	return b.String()
}

func (m *Model) viewEdit() string {
	field := m.editing.Field()
	label := field.Label
	if label == "" {
		label = field.Name
	}

	body := m.input.View()
	help := "enter save • esc cancel"
	if field.Kind == form.KindTextArea {
		body = m.area.View()
		help = "ctrl+s save • esc cancel"
	}

	content := titleStyle.Render(label) + "\n"
	if field.Description != "" {
		content += descriptionStyle.Render(field.Description) + "\n"
	}
	content += "\n" + body + "\n\n" + helpStyle.Render(help)
	return dialogStyle.Render(content)
}

func (m *Model) writeStatus(b *strings.Builder) {
	if m.status != "" {
		b.WriteString("\n" + errorStyle.Render(m.status) + "\n")
	}
}

func (m *Model) toolName() string {
	for _, entry := range m.tools {
		if entry.ID == m.toolID {
			return entry.Name
		}
	}
	return m.toolID
}

// Run starts the settings screen on the terminal and blocks until the user
// quits.
func Run(ctx context.Context, src Source) error {
	m := New(ctx, src)
	_, err := tea.NewProgram(m, tea.WithContext(ctx), tea.WithAltScreen()).Run()
	if m.engine != nil {
		m.closeForm()
	}
	return err
}
