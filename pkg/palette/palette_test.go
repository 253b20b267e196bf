package palette

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/entrhq/toolbox/pkg/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoCommand(id, name string, check func(tool.Invocation) bool) tool.FullCommand {
	return tool.FullCommand{
		ID:     id,
		Name:   name,
		ToolID: "echo",
		Command: tool.Command{
			ID:    id,
			Name:  name,
			Check: check,
			Run: func(ctx context.Context, inv tool.Invocation) error {
				_, err := fmt.Fprintf(inv.Out, "%s %s", id, inv.Target)
				return err
			},
		},
	}
}

func TestPaletteAddAndList(t *testing.T) {
	p := New()

	require.NoError(t, p.AddCommand(echoCommand("toolbox:b-run", "B: Run", nil)))
	require.NoError(t, p.AddCommand(echoCommand("toolbox:a-run", "A: Run", nil)))
	require.NoError(t, p.AddCommand(echoCommand("toolbox:a-run", "A: Run again", nil)))

	list := p.List()
	require.Len(t, list, 2)
	assert.Equal(t, "A: Run again", list[0].Name)
	assert.Equal(t, "B: Run", list[1].Name)

	assert.Error(t, p.AddCommand(tool.FullCommand{}))
	assert.Error(t, p.AddCommand(tool.FullCommand{ID: "x"}))
}

func TestPaletteRun(t *testing.T) {
	p := New()
	onlyNotes := func(inv tool.Invocation) bool { return inv.Target != "" }
	require.NoError(t, p.AddCommand(echoCommand("toolbox:echo-run", "Echo: Run", onlyNotes)))

	t.Run("runs available command", func(t *testing.T) {
		var out bytes.Buffer
		err := p.Run(context.Background(), "toolbox:echo-run", tool.Invocation{Target: "a.md", Out: &out})
		require.NoError(t, err)
		assert.Equal(t, "toolbox:echo-run a.md", out.String())
	})

	t.Run("unavailable", func(t *testing.T) {
		err := p.Run(context.Background(), "toolbox:echo-run", tool.Invocation{})
		assert.ErrorIs(t, err, ErrUnavailable)
	})

	t.Run("unknown", func(t *testing.T) {
		err := p.Run(context.Background(), "toolbox:missing", tool.Invocation{})
		assert.ErrorIs(t, err, ErrUnknownCommand)
	})

	t.Run("available filter", func(t *testing.T) {
		assert.Empty(t, p.Available(tool.Invocation{}))
		assert.Len(t, p.Available(tool.Invocation{Target: "a.md"}), 1)
	})
}

func TestMenu(t *testing.T) {
	m := NewMenu()

	copyItems := ContributorFunc(func(target Target) []MenuItem {
		if len(target.Paths) == 0 {
			return nil
		}
		return []MenuItem{{
			Title: fmt.Sprintf("Copy %d", len(target.Paths)),
			Run:   func(ctx context.Context, out io.Writer) error { return nil },
		}}
	})
	sortItems := ContributorFunc(func(target Target) []MenuItem {
		if !target.Editor {
			return nil
		}
		return []MenuItem{{Title: "Sort front matter"}}
	})

	assert.True(t, m.Install("path-copy", copyItems))
	assert.False(t, m.Install("path-copy", copyItems))
	assert.True(t, m.Install("front-matter-sort", sortItems))
	assert.True(t, m.Installed("path-copy"))

	items := m.Items(Target{Paths: []string{"a.md", "b.md"}, Editor: true})
	require.Len(t, items, 2)
	assert.Equal(t, "Copy 2", items[0].Title)
	assert.Equal(t, "path-copy", items[0].ToolID)
	assert.Equal(t, "front-matter-sort", items[1].ToolID)

	m.Uninstall("path-copy")
	m.Uninstall("path-copy")
	assert.False(t, m.Installed("path-copy"))
	assert.Len(t, m.Items(Target{Paths: []string{"a.md"}, Editor: true}), 1)

	assert.True(t, m.Install("path-copy", copyItems))
}
