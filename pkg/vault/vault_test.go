package vault

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		abs := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
		require.NoError(t, os.WriteFile(abs, []byte(content), 0o644))
	}
}

func openTestVault(t *testing.T, files map[string]string) *Vault {
	t.Helper()
	root := t.TempDir()
	writeFiles(t, root, files)
	v, err := Open(root)
	require.NoError(t, err)
	return v
}

func TestOpen(t *testing.T) {
	t.Run("empty root", func(t *testing.T) {
		_, err := Open("")
		assert.Error(t, err)
	})

	t.Run("missing root", func(t *testing.T) {
		_, err := Open(filepath.Join(t.TempDir(), "missing"))
		assert.Error(t, err)
	})

	t.Run("file root", func(t *testing.T) {
		root := t.TempDir()
		writeFiles(t, root, map[string]string{"a.md": ""})
		_, err := Open(filepath.Join(root, "a.md"))
		assert.Error(t, err)
	})
}

func TestFiles(t *testing.T) {
	v := openTestVault(t, map[string]string{
		"b.md":                "",
		"a.md":                "",
		"notes/c.md":          "",
		"notes/image.png":     "",
		".obsidian/ignore.md": "",
		"notes/.hidden/x.md":  "",
		"README.MD":           "",
	})

	files, err := v.Files()
	require.NoError(t, err)
	assert.Equal(t, []string{"README.MD", "a.md", "b.md", "notes/c.md"}, files)
}

func TestAbsRel(t *testing.T) {
	v := openTestVault(t, map[string]string{"notes/a.md": ""})

	abs, err := v.Abs("notes/a.md")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(v.Root(), "notes", "a.md"), abs)

	rel, err := v.Rel(abs)
	require.NoError(t, err)
	assert.Equal(t, "notes/a.md", rel)

	rel, err = v.Rel(v.Root())
	require.NoError(t, err)
	assert.Equal(t, "", rel)

	_, err = v.Abs("../outside.md")
	assert.ErrorIs(t, err, ErrOutsideVault)

	_, err = v.Rel(filepath.Dir(v.Root()))
	assert.ErrorIs(t, err, ErrOutsideVault)
}

func TestReadWrite(t *testing.T) {
	v := openTestVault(t, nil)

	require.NoError(t, v.Write("deep/folder/note.md", "hello"))
	content, err := v.Read("deep/folder/note.md")
	require.NoError(t, err)
	assert.Equal(t, "hello", content)

	assert.ErrorIs(t, v.Write("image.png", "x"), ErrNotMarkdown)
	_, err = v.Read("image.png")
	assert.ErrorIs(t, err, ErrNotMarkdown)

	_, err = v.Read("missing.md")
	assert.Error(t, err)
}

func TestWriteKeepsPermissions(t *testing.T) {
	v := openTestVault(t, map[string]string{"a.md": "x"})
	abs, _ := v.Abs("a.md")
	require.NoError(t, os.Chmod(abs, 0o600))

	require.NoError(t, v.Write("a.md", "y"))

	info, err := os.Stat(abs)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestStat(t *testing.T) {
	v := openTestVault(t, map[string]string{"notes/a.md": "12345"})

	info, err := v.Stat("notes/a.md")
	require.NoError(t, err)
	assert.Equal(t, "notes/a.md", info.Path)
	assert.Equal(t, "a.md", info.Name)
	assert.False(t, info.IsDir)
	assert.EqualValues(t, 5, info.Size)
	assert.False(t, info.Modified.IsZero())
	assert.Equal(t, info.Modified, info.Created)

	info, err = v.Stat("notes")
	require.NoError(t, err)
	assert.True(t, info.IsDir)
}

func TestTree(t *testing.T) {
	v := openTestVault(t, map[string]string{
		"projects/b.md":       "",
		"projects/a/one.md":   "",
		"projects/.git/x":     "",
		"projects/z/deep.txt": "",
	})

	tree, err := v.Tree("projects")
	require.NoError(t, err)
	assert.Equal(t, "projects", tree.Name)
	assert.Equal(t, "projects", tree.Path)
	require.Len(t, tree.Children, 3)
	assert.Equal(t, "a", tree.Children[0].Name)
	assert.True(t, tree.Children[0].IsDir)
	assert.Equal(t, "projects/a/one.md", tree.Children[0].Children[0].Path)
	assert.Equal(t, "b.md", tree.Children[1].Name)
	assert.Equal(t, "z", tree.Children[2].Name)

	_, err = v.Tree("projects/b.md")
	assert.Error(t, err)
}
