package vault

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const frontMatterDelimiter = "---"

// FrontMatter is the YAML header of a note. Key order is preserved through
// edits.
type FrontMatter struct {
	node    *yaml.Node
	present bool
}

// NewFrontMatter returns an empty front matter block.
func NewFrontMatter() *FrontMatter {
	return &FrontMatter{node: &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}}
}

// ParseNote splits content into its front matter and body. Content without a
// front matter block yields an empty FrontMatter and the whole content as
// body.
func ParseNote(content string) (*FrontMatter, string, error) {
	block, body, ok := splitFrontMatter(content)
	if !ok {
		return NewFrontMatter(), content, nil
	}

	fm := NewFrontMatter()
	fm.present = true
	if strings.TrimSpace(block) == "" {
		return fm, body, nil
	}

	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(block), &doc); err != nil {
		return nil, "", fmt.Errorf("front matter parse error: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return fm, body, nil
	}
	if doc.Content[0].Kind != yaml.MappingNode {
		return nil, "", fmt.Errorf("front matter is not a mapping")
	}
	fm.node = doc.Content[0]
	return fm, body, nil
}

// splitFrontMatter finds a leading "---" block closed by a "---" line.
func splitFrontMatter(content string) (block, body string, ok bool) {
	first, rest, found := cutLine(content)
	if !found || strings.TrimRight(first, " \t") != frontMatterDelimiter {
		return "", content, false
	}

	offset := 0
	for {
		line, next, more := cutLine(rest[offset:])
		if strings.TrimRight(line, " \t") == frontMatterDelimiter {
			return rest[:offset], next, true
		}
		if !more {
			return "", content, false
		}
		offset = len(rest) - len(next)
	}
}

// cutLine returns the first line of s without its terminator and the rest.
// more is false when s holds no line terminator.
func cutLine(s string) (line, rest string, more bool) {
	i := strings.IndexByte(s, '\n')
	if i < 0 {
		return s, "", false
	}
	return strings.TrimSuffix(s[:i], "\r"), s[i+1:], true
}

// Present reports whether the note had a front matter block when parsed.
func (f *FrontMatter) Present() bool {
	return f.present
}

// Keys returns the keys in document order.
func (f *FrontMatter) Keys() []string {
	keys := make([]string, 0, len(f.node.Content)/2)
	for i := 0; i+1 < len(f.node.Content); i += 2 {
		keys = append(keys, f.node.Content[i].Value)
	}
	return keys
}

func (f *FrontMatter) index(key string) int {
	for i := 0; i+1 < len(f.node.Content); i += 2 {
		if f.node.Content[i].Value == key {
			return i
		}
	}
	return -1
}

// Has reports whether key is set.
func (f *FrontMatter) Has(key string) bool {
	return f.index(key) >= 0
}

// Get decodes the value of key.
func (f *FrontMatter) Get(key string) (any, bool) {
	i := f.index(key)
	if i < 0 {
		return nil, false
	}
	var v any
	if err := f.node.Content[i+1].Decode(&v); err != nil {
		return nil, false
	}
	return v, true
}

// GetString returns the scalar text of key.
func (f *FrontMatter) GetString(key string) (string, bool) {
	i := f.index(key)
	if i < 0 || f.node.Content[i+1].Kind != yaml.ScalarNode {
		return "", false
	}
	return f.node.Content[i+1].Value, true
}

// Set replaces the value of key in place, or appends key when missing.
func (f *FrontMatter) Set(key string, value any) error {
	var valueNode yaml.Node
	if err := valueNode.Encode(value); err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}

	if i := f.index(key); i >= 0 {
		f.node.Content[i+1] = &valueNode
		return nil
	}

	keyNode := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}
	f.node.Content = append(f.node.Content, keyNode, &valueNode)
	return nil
}

// Delete removes key.
func (f *FrontMatter) Delete(key string) {
	if i := f.index(key); i >= 0 {
		f.node.Content = append(f.node.Content[:i], f.node.Content[i+2:]...)
	}
}

// Reorder moves the keys named in order to the front, in that order. Keys
// not named follow in their current order when keepUnspecified is set and
// are dropped otherwise. It reports whether the document changed.
func (f *FrontMatter) Reorder(order []string, keepUnspecified bool) bool {
	before := f.Keys()

	named := make(map[string]bool, len(order))
	var content []*yaml.Node
	for _, key := range order {
		if named[key] {
			continue
		}
		named[key] = true
		if i := f.index(key); i >= 0 {
			content = append(content, f.node.Content[i], f.node.Content[i+1])
		}
	}
	if keepUnspecified {
		for i := 0; i+1 < len(f.node.Content); i += 2 {
			if !named[f.node.Content[i].Value] {
				content = append(content, f.node.Content[i], f.node.Content[i+1])
			}
		}
	}
	f.node.Content = content

	after := f.Keys()
	if len(before) != len(after) {
		return true
	}
	for i := range before {
		if before[i] != after[i] {
			return true
		}
	}
	return false
}

// Render writes the front matter followed by body. A note without keys and
// without an original block renders as body alone.
func (f *FrontMatter) Render(body string) (string, error) {
	if len(f.node.Content) == 0 {
		if !f.present {
			return body, nil
		}
		return frontMatterDelimiter + "\n" + frontMatterDelimiter + "\n" + body, nil
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(f.node); err != nil {
		return "", fmt.Errorf("front matter encode error: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("front matter encode error: %w", err)
	}

	var sb strings.Builder
	sb.WriteString(frontMatterDelimiter + "\n")
	sb.Write(buf.Bytes())
	sb.WriteString(frontMatterDelimiter + "\n")
	sb.WriteString(body)
	return sb.String(), nil
}
