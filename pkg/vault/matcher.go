package vault

import (
	"fmt"
	"path"
	"strings"

	"github.com/gobwas/glob"
)

// Matcher decides whether a note is excluded from automatic processing.
// Patterns support * (any run of characters, including /) and ? (one
// character); every other character is literal and a pattern must match the
// whole path or tag.
type Matcher struct {
	folders []glob.Glob
	files   []glob.Glob
	tags    []glob.Glob
}

// NewMatcher compiles folder, file and tag patterns. Blank patterns are
// skipped and tag patterns may carry a leading #.
func NewMatcher(folders, files, tags []string) (*Matcher, error) {
	m := &Matcher{}
	var err error
	if m.folders, err = compileAll(folders, false); err != nil {
		return nil, fmt.Errorf("invalid folder pattern: %w", err)
	}
	if m.files, err = compileAll(files, false); err != nil {
		return nil, fmt.Errorf("invalid file pattern: %w", err)
	}
	if m.tags, err = compileAll(tags, true); err != nil {
		return nil, fmt.Errorf("invalid tag pattern: %w", err)
	}
	return m, nil
}

func compileAll(patterns []string, tag bool) ([]glob.Glob, error) {
	var out []glob.Glob
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if tag {
			p = strings.TrimPrefix(p, "#")
		}
		if p == "" {
			continue
		}
		g, err := glob.Compile(quotePattern(p))
		if err != nil {
			return nil, fmt.Errorf("%q: %w", p, err)
		}
		out = append(out, g)
	}
	return out, nil
}

// quotePattern escapes every glob meta character except * and ?.
func quotePattern(p string) string {
	var sb strings.Builder
	start := 0
	for i, r := range p {
		if r == '*' || r == '?' {
			sb.WriteString(glob.QuoteMeta(p[start:i]))
			sb.WriteRune(r)
			start = i + 1
		}
	}
	sb.WriteString(glob.QuoteMeta(p[start:]))
	return sb.String()
}

// Empty reports whether no pattern was configured.
func (m *Matcher) Empty() bool {
	return len(m.folders) == 0 && len(m.files) == 0 && len(m.tags) == 0
}

// HasTagPatterns reports whether tag patterns were configured, so callers
// can skip reading notes when they are not.
func (m *Matcher) HasTagPatterns() bool {
	return len(m.tags) > 0
}

// MatchPath reports whether p or one of its folders matches a folder
// pattern, or p matches a file pattern.
func (m *Matcher) MatchPath(p string) bool {
	for _, g := range m.files {
		if g.Match(p) {
			return true
		}
	}
	for _, g := range m.folders {
		if g.Match(p) {
			return true
		}
		for dir := path.Dir(p); dir != "." && dir != "/"; dir = path.Dir(dir) {
			if g.Match(dir) {
				return true
			}
		}
	}
	return false
}

// MatchTags reports whether any tag, with its # removed, matches a tag pattern.
func (m *Matcher) MatchTags(tags []string) bool {
	for _, tag := range tags {
		clean := strings.TrimPrefix(tag, "#")
		for _, g := range m.tags {
			if g.Match(clean) {
				return true
			}
		}
	}
	return false
}

// Match reports whether a note with path p and tags is excluded.
func (m *Matcher) Match(p string, tags []string) bool {
	return m.MatchPath(p) || m.MatchTags(tags)
}
