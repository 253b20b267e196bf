package vault

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNote(t *testing.T) {
	t.Run("with front matter", func(t *testing.T) {
		fm, body, err := ParseNote("---\ntitle: Hello\ntags: [a, b]\n---\n# Body\n")
		require.NoError(t, err)
		assert.True(t, fm.Present())
		assert.Equal(t, []string{"title", "tags"}, fm.Keys())
		assert.Equal(t, "# Body\n", body)

		title, ok := fm.GetString("title")
		assert.True(t, ok)
		assert.Equal(t, "Hello", title)

		tags, ok := fm.Get("tags")
		assert.True(t, ok)
		assert.Equal(t, []any{"a", "b"}, tags)
	})

	t.Run("without front matter", func(t *testing.T) {
		fm, body, err := ParseNote("just text\n---\nmore")
		require.NoError(t, err)
		assert.False(t, fm.Present())
		assert.Empty(t, fm.Keys())
		assert.Equal(t, "just text\n---\nmore", body)
	})

	t.Run("unclosed block is body", func(t *testing.T) {
		fm, body, err := ParseNote("---\ntitle: x\n")
		require.NoError(t, err)
		assert.False(t, fm.Present())
		assert.Equal(t, "---\ntitle: x\n", body)
	})

	t.Run("empty block", func(t *testing.T) {
		fm, body, err := ParseNote("---\n---\nbody")
		require.NoError(t, err)
		assert.True(t, fm.Present())
		assert.Empty(t, fm.Keys())
		assert.Equal(t, "body", body)
	})

	t.Run("crlf", func(t *testing.T) {
		fm, body, err := ParseNote("---\r\na: 1\r\n---\r\nbody")
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, fm.Keys())
		assert.Equal(t, "body", body)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		_, _, err := ParseNote("---\na: [\n---\n")
		assert.Error(t, err)
	})

	t.Run("not a mapping", func(t *testing.T) {
		_, _, err := ParseNote("---\n- a\n- b\n---\n")
		assert.Error(t, err)
	})
}

func TestFrontMatterSetRender(t *testing.T) {
	fm, body, err := ParseNote("---\ntitle: Hello\ncreated: old\n---\nBody\n")
	require.NoError(t, err)

	require.NoError(t, fm.Set("created", "2024-01-02 03:04:05"))
	require.NoError(t, fm.Set("modified", "2024-02-03 04:05:06"))

	out, err := fm.Render(body)
	require.NoError(t, err)
	assert.Equal(t, "---\ntitle: Hello\ncreated: \"2024-01-02 03:04:05\"\nmodified: \"2024-02-03 04:05:06\"\n---\nBody\n", out)
}

func TestFrontMatterInsertedWhenMissing(t *testing.T) {
	fm, body, err := ParseNote("Body only")
	require.NoError(t, err)

	out, err := fm.Render(body)
	require.NoError(t, err)
	assert.Equal(t, "Body only", out)

	require.NoError(t, fm.Set("created", "today"))
	out, err = fm.Render(body)
	require.NoError(t, err)
	assert.Equal(t, "---\ncreated: today\n---\nBody only", out)
}

func TestFrontMatterDelete(t *testing.T) {
	fm, _, err := ParseNote("---\na: 1\nb: 2\n---\n")
	require.NoError(t, err)

	fm.Delete("a")
	fm.Delete("missing")
	assert.Equal(t, []string{"b"}, fm.Keys())
	assert.False(t, fm.Has("a"))
}

func TestFrontMatterReorder(t *testing.T) {
	content := "---\nmodified: m\ntitle: t\nauthor: a\ntags: [x]\n---\n"

	t.Run("keep unspecified", func(t *testing.T) {
		fm, _, err := ParseNote(content)
		require.NoError(t, err)

		changed := fm.Reorder([]string{"title", "date", "tags", "created", "modified"}, true)
		assert.True(t, changed)
		assert.Equal(t, []string{"title", "tags", "modified", "author"}, fm.Keys())

		v, ok := fm.Get("tags")
		require.True(t, ok)
		assert.Equal(t, []any{"x"}, v)
	})

	t.Run("drop unspecified", func(t *testing.T) {
		fm, _, err := ParseNote(content)
		require.NoError(t, err)

		fm.Reorder([]string{"title", "modified"}, false)
		assert.Equal(t, []string{"title", "modified"}, fm.Keys())
	})

	t.Run("already sorted", func(t *testing.T) {
		fm, _, err := ParseNote("---\ntitle: t\ntags: x\n---\n")
		require.NoError(t, err)
		assert.False(t, fm.Reorder([]string{"title", "tags"}, true))
	})
}
