package tool

import (
	"context"
	"io"
	"time"
)

// Hotkey is an optional default key binding for a command.
type Hotkey struct {
	Modifiers []string
	Key       string
}

// Invocation carries what a command acts on.
type Invocation struct {
	// Target is a vault-relative path or a URL, depending on the command.
	Target string

	Args []string

	// Out receives user-facing output. Never nil when invoked by the palette.
	Out io.Writer
}

// Command is a tool-contributed action.
type Command struct {
	// ID is unique within the tool.
	ID   string
	Name string

	// Check reports whether the command is available for inv. Nil means always.
	Check func(inv Invocation) bool

	Run func(ctx context.Context, inv Invocation) error

	Hotkeys []Hotkey
}

// Available reports whether the command can run for inv.
func (c Command) Available(inv Invocation) bool {
	return c.Check == nil || c.Check(inv)
}

// CommandRegistrar keeps the per-tool command table.
type CommandRegistrar interface {
	RegisterCommands(toolID string, cmds []Command)
	UnregisterCommands(toolID string)
}

// Notifier shows short user-facing notices.
type Notifier interface {
	Notify(message string, duration time.Duration)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(message string, duration time.Duration)

// Notify calls f.
func (f NotifierFunc) Notify(message string, duration time.Duration) {
	f(message, duration)
}

// FullCommand is a command as surfaced to the host palette.
type FullCommand struct {
	// ID is "<pluginID>:<toolID>-<commandID>".
	ID string

	// Name is "<Tool Name>: <Command Name>".
	Name string

	ToolID  string
	Command Command
}
