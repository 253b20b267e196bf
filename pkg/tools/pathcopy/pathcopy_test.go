package pathcopy

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/entrhq/toolbox/pkg/palette"
	"github.com/entrhq/toolbox/pkg/tool"
	"github.com/entrhq/toolbox/pkg/tools/toolstest"
	"github.com/entrhq/toolbox/pkg/vault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var files = map[string]string{
	"docs/a.md":     "A",
	"docs/sub/b.md": "B",
	"docs/sub/c.md": "C",
	"docs/z.md":     "Z",
	"root.md":       "R",
}

func setup(t *testing.T, overrides tool.Configuration) (*Tool, *toolstest.Env) {
	t.Helper()
	env := toolstest.New(t, files, time.Now())
	pc := New(env.Host)
	cfg := pc.DefaultConfig()
	for k, v := range overrides {
		cfg[k] = v
	}
	require.NoError(t, pc.ValidateConfig(cfg))
	toolstest.Configure(pc, cfg, true)
	return pc, env
}

func titles(items []palette.MenuItem) []string {
	var out []string
	for _, item := range items {
		out = append(out, item.Title)
	}
	return out
}

func TestHierarchy(t *testing.T) {
	pc, _ := setup(t, nil)

	got, err := pc.Hierarchy("docs")
	require.NoError(t, err)
	want := "docs\n" +
		"├── a.md\n" +
		"├── sub/\n" +
		"│   ├── b.md\n" +
		"│   └── c.md\n" +
		"└── z.md\n"
	assert.Equal(t, want, got)

	got, err = pc.Hierarchy("docs/a.md")
	require.NoError(t, err)
	assert.Equal(t, "docs/a.md", got)

	_, err = pc.Hierarchy("missing")
	assert.Error(t, err)
}

func TestRender(t *testing.T) {
	pc, env := setup(t, tool.Configuration{KeyMultiFileSeparator: ", "})

	abs, err := pc.Render(Absolute, []string{"root.md"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(env.Vault.Root(), "root.md"), abs)

	rel, err := pc.Render(Relative, []string{"./docs/../root.md", "docs/a.md"})
	require.NoError(t, err)
	assert.Equal(t, "root.md, docs/a.md", rel)

	_, err = pc.Render(Relative, []string{"../outside.md"})
	assert.ErrorIs(t, err, vault.ErrOutsideVault)

	_, err = pc.Render(Relative, nil)
	assert.Error(t, err)
}

func TestCopy(t *testing.T) {
	pc, env := setup(t, nil)

	_, err := pc.Copy(Relative, []string{"docs/a.md"})
	require.NoError(t, err)
	_, err = pc.Copy(Relative, []string{"docs/a.md", "root.md"})
	require.NoError(t, err)
	_, err = pc.Copy(Hierarchy, []string{"docs/sub"})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"docs/a.md",
		"docs/a.md\nroot.md",
		"sub\n├── b.md\n└── c.md\n",
	}, env.Clipboard.History())

	notices := env.Notices.All()
	require.Len(t, notices, 3)
	assert.Equal(t, "Copied relative path: docs/a.md", notices[0].Message)
	assert.Equal(t, "Copied relative path of 2 files", notices[1].Message)
	assert.Equal(t, "Copied hierarchy: docs/sub", notices[2].Message)

	_, err = pc.Copy(Absolute, []string{"missing.md"})
	assert.Error(t, err)
	assert.Equal(t, "Failed to copy absolute path", env.Notices.All()[3].Message)
}

func TestMenuItems(t *testing.T) {
	pc, env := setup(t, nil)
	ctx := context.Background()
	require.NoError(t, pc.Enable(ctx))

	t.Run("file", func(t *testing.T) {
		items := env.Menu.Items(palette.Target{Paths: []string{"root.md"}})
		assert.Equal(t, []string{"Copy absolute path", "Copy relative path"}, titles(items))
	})

	t.Run("folder", func(t *testing.T) {
		items := env.Menu.Items(palette.Target{Paths: []string{"docs"}})
		assert.Equal(t, []string{"Copy absolute path", "Copy relative path", "Copy hierarchy"}, titles(items))
	})

	t.Run("several", func(t *testing.T) {
		items := env.Menu.Items(palette.Target{Paths: []string{"docs", "root.md"}})
		assert.Equal(t, []string{
			"Copy absolute path (2 files)",
			"Copy relative path (2 files)",
			"Copy hierarchy (2 files)",
		}, titles(items))

		require.NoError(t, items[2].Run(ctx, &bytes.Buffer{}))
		history := env.Clipboard.History()
		assert.Contains(t, history[len(history)-1], "└── z.md\n\nroot.md")
	})

	t.Run("editor", func(t *testing.T) {
		items := env.Menu.Items(palette.Target{Paths: []string{"docs/sub/b.md"}, Editor: true})
		require.Len(t, items, 4)

		var out bytes.Buffer
		require.NoError(t, items[1].Run(ctx, &out))
		assert.Equal(t, "docs/sub/b.md", out.String())

		out.Reset()
		require.NoError(t, items[2].Run(ctx, &out))
		assert.Equal(t, filepath.Join(env.Vault.Root(), "docs", "sub"), out.String())

		out.Reset()
		require.NoError(t, items[3].Run(ctx, &out))
		assert.Equal(t, "docs/sub", out.String())
	})

	t.Run("editor note at root", func(t *testing.T) {
		items := env.Menu.Items(palette.Target{Paths: []string{"root.md"}, Editor: true})
		var out bytes.Buffer
		require.NoError(t, items[3].Run(ctx, &out))
		assert.Equal(t, "", out.String())
	})
}

func TestMenuRespectsOptions(t *testing.T) {
	pc, env := setup(t, tool.Configuration{
		KeyShowAbsolutePathOption: false,
		KeyRelativePathMenuTitle:  "Relative",
	})
	require.NoError(t, pc.Enable(context.Background()))

	items := env.Menu.Items(palette.Target{Paths: []string{"docs"}})
	assert.Equal(t, []string{"Relative", "Copy hierarchy"}, titles(items))

	editor := env.Menu.Items(palette.Target{Paths: []string{"root.md"}, Editor: true})
	assert.Len(t, editor, 2)

	toolstest.Configure(pc, pc.Config(), false)
	assert.Empty(t, env.Menu.Items(palette.Target{Paths: []string{"docs"}}))
}

func TestCommands(t *testing.T) {
	pc, env := setup(t, nil)
	ctx := context.Background()
	require.NoError(t, pc.Enable(ctx))
	assert.Len(t, env.Registrar.Commands(ID), 3)

	cmd, ok := env.Registrar.Command(ID, "copy-relative-path")
	require.True(t, ok)
	assert.False(t, cmd.Available(tool.Invocation{}))

	var out bytes.Buffer
	require.NoError(t, cmd.Run(ctx, tool.Invocation{Target: "docs/a.md", Args: []string{"root.md"}, Out: &out}))
	assert.Equal(t, "docs/a.md\nroot.md\n", out.String())

	require.NoError(t, pc.Disable(ctx))
	assert.Empty(t, env.Registrar.Commands(ID))
	assert.False(t, env.Menu.Installed(ID))
}
