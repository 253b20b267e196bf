package vault

import (
	"fmt"
	"regexp"
	"strings"
)

var inlineTag = regexp.MustCompile(`(?:^|[\s(])#([\p{L}\p{N}_/\-]*[\p{L}_/\-][\p{L}\p{N}_/\-]*)`)

// Tags returns the tags of a note: front matter "tags" (a string or a list)
// followed by inline #tags of the body, deduplicated, each with a leading #.
// Fenced code blocks are not scanned.
func Tags(fm *FrontMatter, body string) []string {
	seen := make(map[string]bool)
	var tags []string
	add := func(tag string) {
		tag = strings.TrimSpace(tag)
		if tag == "" || tag == "#" {
			return
		}
		if !strings.HasPrefix(tag, "#") {
			tag = "#" + tag
		}
		if !seen[tag] {
			seen[tag] = true
			tags = append(tags, tag)
		}
	}

	if fm != nil {
		if raw, ok := fm.Get("tags"); ok {
			switch v := raw.(type) {
			case string:
				for _, t := range strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == ' ' }) {
					add(t)
				}
			case []any:
				for _, t := range v {
					if t != nil {
						add(fmt.Sprint(t))
					}
				}
			}
		}
	}

	inFence := false
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		for _, m := range inlineTag.FindAllStringSubmatch(line, -1) {
			add(m[1])
		}
	}
	return tags
}
