package palette

import (
	"context"
	"io"
	"sync"
)

// Target is what a context menu was opened on: one or more vault paths, or
// the note open in the editor.
type Target struct {
	Paths  []string
	Editor bool
}

// MenuItem is one context menu entry.
type MenuItem struct {
	Title  string
	Icon   string
	ToolID string
	Run    func(ctx context.Context, out io.Writer) error
}

// Contributor builds a tool's items for a target.
type Contributor interface {
	MenuItems(target Target) []MenuItem
}

// ContributorFunc adapts a function to Contributor.
type ContributorFunc func(target Target) []MenuItem

// MenuItems calls f.
func (f ContributorFunc) MenuItems(target Target) []MenuItem {
	return f(target)
}

type contribution struct {
	toolID      string
	contributor Contributor
}

// Menu collects contributors. Each tool contributes at most once.
type Menu struct {
	mu           sync.RWMutex
	contributors []contribution
}

// NewMenu creates an empty menu.
func NewMenu() *Menu {
	return &Menu{}
}

// Install adds the tool's contributor. It returns false when the tool
// already has one installed.
func (m *Menu) Install(toolID string, c Contributor) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.contributors {
		if existing.toolID == toolID {
			return false
		}
	}
	m.contributors = append(m.contributors, contribution{toolID: toolID, contributor: c})
	return true
}

// Uninstall removes the tool's contributor.
func (m *Menu) Uninstall(toolID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, existing := range m.contributors {
		if existing.toolID == toolID {
			m.contributors = append(m.contributors[:i], m.contributors[i+1:]...)
			return
		}
	}
}

// Installed reports whether the tool has a contributor.
func (m *Menu) Installed(toolID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, existing := range m.contributors {
		if existing.toolID == toolID {
			return true
		}
	}
	return false
}

// Items returns the items of every contributor in install order.
func (m *Menu) Items(target Target) []MenuItem {
	m.mu.RLock()
	contributors := append([]contribution(nil), m.contributors...)
	m.mu.RUnlock()

	var items []MenuItem
	for _, c := range contributors {
		for _, item := range c.contributor.MenuItems(target) {
			item.ToolID = c.toolID
			items = append(items, item)
		}
	}
	return items
}
