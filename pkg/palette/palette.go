// Package palette holds the command palette and context menu that tools
// surface their actions on.
package palette

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/entrhq/toolbox/pkg/tool"
)

var (
	// ErrUnknownCommand is returned by Run for ids never added.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrUnavailable is returned by Run when the command's check fails.
	ErrUnavailable = errors.New("command is not available")
)

// Palette is the set of commands offered to the user. Commands are never
// removed; re-adding an id replaces it.
type Palette struct {
	mu       sync.RWMutex
	commands map[string]tool.FullCommand
}

// New creates an empty palette.
func New() *Palette {
	return &Palette{commands: make(map[string]tool.FullCommand)}
}

// AddCommand adds or replaces cmd.
func (p *Palette) AddCommand(cmd tool.FullCommand) error {
	if cmd.ID == "" {
		return fmt.Errorf("command id cannot be empty")
	}
	if cmd.Command.Run == nil {
		return fmt.Errorf("command %s has no action", cmd.ID)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.commands[cmd.ID] = cmd
	return nil
}

// Lookup returns the command with the given id.
func (p *Palette) Lookup(id string) (tool.FullCommand, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	cmd, ok := p.commands[id]
	return cmd, ok
}

// List returns every command sorted by name.
func (p *Palette) List() []tool.FullCommand {
	p.mu.RLock()
	defer p.mu.RUnlock()

	list := make([]tool.FullCommand, 0, len(p.commands))
	for _, cmd := range p.commands {
		list = append(list, cmd)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Name != list[j].Name {
			return list[i].Name < list[j].Name
		}
		return list[i].ID < list[j].ID
	})
	return list
}

// Available returns the commands whose check passes for inv.
func (p *Palette) Available(inv tool.Invocation) []tool.FullCommand {
	var out []tool.FullCommand
	for _, cmd := range p.List() {
		if cmd.Command.Available(inv) {
			out = append(out, cmd)
		}
	}
	return out
}

// Run checks availability and runs the command.
func (p *Palette) Run(ctx context.Context, id string, inv tool.Invocation) error {
	cmd, ok := p.Lookup(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, id)
	}
	if inv.Out == nil {
		inv.Out = io.Discard
	}
	if !cmd.Command.Available(inv) {
		return fmt.Errorf("%w: %s", ErrUnavailable, id)
	}
	return cmd.Command.Run(ctx, inv)
}
