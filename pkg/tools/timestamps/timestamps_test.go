package timestamps

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/entrhq/toolbox/pkg/tool"
	"github.com/entrhq/toolbox/pkg/tools/toolstest"
	"github.com/entrhq/toolbox/pkg/vault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	clock    = time.Date(2024, 6, 1, 12, 0, 0, 0, time.Local)
	fileTime = time.Date(2023, 1, 2, 3, 4, 5, 0, time.Local)
)

func setup(t *testing.T, files map[string]string, overrides tool.Configuration) (*Tool, *toolstest.Env) {
	t.Helper()
	env := toolstest.New(t, files, clock)
	for rel := range files {
		env.SetModTime(t, rel, fileTime)
	}

	ts := New(env.Host)
	cfg := ts.DefaultConfig()
	for k, v := range overrides {
		cfg[k] = v
	}
	require.NoError(t, ts.ValidateConfig(cfg))
	toolstest.Configure(ts, cfg, true)
	return ts, env
}

func TestValidateConfig(t *testing.T) {
	ts := New(toolstest.New(t, nil, clock).Host)

	tests := []struct {
		name    string
		mutate  func(tool.Configuration)
		wantErr bool
	}{
		{"defaults", func(tool.Configuration) {}, false},
		{"numeric string interval", func(c tool.Configuration) { c[KeyModifyInterval] = "15" }, false},
		{"float interval", func(c tool.Configuration) { c[KeyModifyInterval] = 2.5 }, false},
		{"zero interval", func(c tool.Configuration) { c[KeyModifyInterval] = 0 }, true},
		{"negative string interval", func(c tool.Configuration) { c[KeyModifyInterval] = "-3" }, true},
		{"text interval", func(c tool.Configuration) { c[KeyModifyInterval] = "soon" }, true},
		{"missing key", func(c tool.Configuration) { delete(c, KeyDateFormat) }, true},
		{"wrong type", func(c tool.Configuration) { c[KeyEnableCreatedTime] = "yes" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := ts.DefaultConfig()
			tt.mutate(cfg)
			err := ts.ValidateConfig(cfg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAddTimestamps(t *testing.T) {
	t.Run("inserts front matter", func(t *testing.T) {
		ts, env := setup(t, map[string]string{"note.md": "Hello"}, nil)

		changed, err := ts.AddTimestamps(context.Background(), "note.md")
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, "---\ncreated: \"2023-01-02 03:04:05\"\nmodified: \"2023-01-02 03:04:05\"\n---\nHello", env.Read(t, "note.md"))
	})

	t.Run("keeps existing values", func(t *testing.T) {
		ts, env := setup(t, map[string]string{"note.md": "---\ntitle: x\ncreated: yesterday\n---\nBody"}, nil)

		changed, err := ts.AddTimestamps(context.Background(), "note.md")
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, "---\ntitle: x\ncreated: yesterday\nmodified: \"2023-01-02 03:04:05\"\n---\nBody", env.Read(t, "note.md"))

		changed, err = ts.AddTimestamps(context.Background(), "note.md")
		require.NoError(t, err)
		assert.False(t, changed)
	})

	t.Run("current time and custom format", func(t *testing.T) {
		ts, env := setup(t, map[string]string{"note.md": ""}, tool.Configuration{
			KeyUseFileCreationDate: false,
			KeyEnableModifiedTime:  false,
			KeyDateFormat:          "YYYY/MM/DD",
		})

		_, err := ts.AddTimestamps(context.Background(), "note.md")
		require.NoError(t, err)
		assert.Equal(t, "---\ncreated: 2024/06/01\n---\n", env.Read(t, "note.md"))
	})

	t.Run("ignored folder file and tag", func(t *testing.T) {
		files := map[string]string{
			"templates/t.md":  "T",
			"drafts/x.md":     "X",
			"notes/tagged.md": "---\ntags: [private]\n---\nP",
			"notes/inline.md": "text #temp/one",
			"notes/plain.md":  "plain",
		}
		ts, env := setup(t, files, tool.Configuration{
			KeyIgnoredFolders: "templates",
			KeyIgnoredFiles:   "drafts/*.md",
			KeyIgnoredTags:    "#private\ntemp/*",
		})

		for _, rel := range []string{"templates/t.md", "drafts/x.md", "notes/tagged.md", "notes/inline.md"} {
			changed, err := ts.AddTimestamps(context.Background(), rel)
			require.NoError(t, err)
			assert.False(t, changed, rel)
			assert.Equal(t, files[rel], env.Read(t, rel), rel)
		}

		changed, err := ts.AddTimestamps(context.Background(), "notes/plain.md")
		require.NoError(t, err)
		assert.True(t, changed)
	})

	t.Run("non markdown", func(t *testing.T) {
		ts, _ := setup(t, nil, nil)
		changed, err := ts.AddTimestamps(context.Background(), "image.png")
		require.NoError(t, err)
		assert.False(t, changed)
	})
}

func TestTouchModified(t *testing.T) {
	ts, env := setup(t, map[string]string{"note.md": "---\nmodified: old\n---\n"}, tool.Configuration{
		KeyUseFileModificationDate: false,
		KeyModifyInterval:          "10",
	})
	ctx := context.Background()

	changed, err := ts.TouchModified(ctx, "note.md")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "---\nmodified: \"2024-06-01 12:00:00\"\n---\n", env.Read(t, "note.md"))

	env.Advance(5 * time.Second)
	changed, err = ts.TouchModified(ctx, "note.md")
	require.NoError(t, err)
	assert.False(t, changed)

	env.Advance(6 * time.Second)
	changed, err = ts.TouchModified(ctx, "note.md")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "---\nmodified: \"2024-06-01 12:00:11\"\n---\n", env.Read(t, "note.md"))
}

func TestTouchModifiedDisabled(t *testing.T) {
	ts, env := setup(t, map[string]string{"note.md": "x"}, tool.Configuration{KeyEnableModifiedTime: false})

	changed, err := ts.TouchModified(context.Background(), "note.md")
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, "x", env.Read(t, "note.md"))
}

func TestAddToAll(t *testing.T) {
	files := map[string]string{
		"a.md":           "A",
		"b.md":           "---\ncreated: c\n---\nB",
		"c.md":           "---\ncreated: c\nmodified: m\n---\nC",
		"templates/t.md": "T",
	}

	t.Run("created only", func(t *testing.T) {
		ts, env := setup(t, files, tool.Configuration{KeyIgnoredFolders: "templates"})

		res, err := ts.AddToAll(context.Background(), true, false)
		require.NoError(t, err)
		assert.Equal(t, Result{Created: 1, Skipped: 1}, res)
		assert.Equal(t, "---\ncreated: \"2023-01-02 03:04:05\"\n---\nA", env.Read(t, "a.md"))
	})

	t.Run("both", func(t *testing.T) {
		ts, _ := setup(t, files, nil)

		res, err := ts.AddToAll(context.Background(), true, true)
		require.NoError(t, err)
		assert.Equal(t, Result{Created: 2, Modified: 3}, res)
	})

	t.Run("flag disabled in config", func(t *testing.T) {
		ts, _ := setup(t, files, tool.Configuration{KeyEnableCreatedTime: false})

		res, err := ts.AddToAll(context.Background(), true, false)
		require.NoError(t, err)
		assert.Equal(t, Result{}, res)
	})

	t.Run("tool disabled", func(t *testing.T) {
		ts, _ := setup(t, files, nil)
		toolstest.Configure(ts, ts.Config(), false)

		res, err := ts.AddToAll(context.Background(), true, true)
		require.NoError(t, err)
		assert.Equal(t, Result{}, res)
	})

	t.Run("cancelled", func(t *testing.T) {
		ts, _ := setup(t, files, nil)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := ts.AddToAll(ctx, true, true)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestEnableDisable(t *testing.T) {
	ts, env := setup(t, map[string]string{"existing.md": "E"}, nil)
	ctx := context.Background()

	require.NoError(t, ts.Enable(ctx))
	require.NoError(t, ts.Enable(ctx))
	assert.Len(t, env.Registrar.Commands(ID), 4)

	toolstest.Write(t, env.Vault.Root(), "new.md", "New")
	env.SetModTime(t, "new.md", fileTime)
	env.Watcher.Emit(vault.Event{Op: vault.OpCreate, Path: "new.md"})
	assert.Contains(t, env.Read(t, "new.md"), "created:")

	cmd, ok := env.Registrar.Command(ID, "add-timestamps-to-all-files")
	require.True(t, ok)
	assert.True(t, cmd.Available(tool.Invocation{}))

	var out bytes.Buffer
	require.NoError(t, cmd.Run(ctx, tool.Invocation{Out: &out}))
	assert.Equal(t, "Added timestamps: 1 created, 1 modified, 0 skipped\n", out.String())
	require.NotEmpty(t, env.Notices.All())

	fileCmd, ok := env.Registrar.Command(ID, "add-timestamps-to-file")
	require.True(t, ok)
	assert.False(t, fileCmd.Available(tool.Invocation{}))
	assert.True(t, fileCmd.Available(tool.Invocation{Target: "existing.md"}))

	require.NoError(t, ts.Disable(ctx))
	require.NoError(t, ts.Disable(ctx))
	assert.Empty(t, env.Registrar.Commands(ID))

	toolstest.Write(t, env.Vault.Root(), "later.md", "Later")
	env.Watcher.Emit(vault.Event{Op: vault.OpCreate, Path: "later.md"})
	assert.Equal(t, "Later", env.Read(t, "later.md"))
}

func TestCommandsUnavailableWhenDisabled(t *testing.T) {
	ts, env := setup(t, nil, tool.Configuration{KeyEnableCreatedTime: false})
	require.NoError(t, ts.Enable(context.Background()))

	created, ok := env.Registrar.Command(ID, "add-created-time-to-all-files")
	require.True(t, ok)
	assert.False(t, created.Available(tool.Invocation{}))

	modified, ok := env.Registrar.Command(ID, "add-modified-time-to-all-files")
	require.True(t, ok)
	assert.True(t, modified.Available(tool.Invocation{}))

	toolstest.Configure(ts, ts.Config(), false)
	assert.False(t, modified.Available(tool.Invocation{}))
}
