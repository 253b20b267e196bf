// Package pathcopy implements the path-copy tool: absolute and relative
// paths and folder hierarchies of vault entries, copied to the clipboard.
package pathcopy

import (
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/entrhq/toolbox/pkg/logging"
	"github.com/entrhq/toolbox/pkg/palette"
	"github.com/entrhq/toolbox/pkg/tool"
	"github.com/entrhq/toolbox/pkg/tools"
	"github.com/entrhq/toolbox/pkg/vault"
)

// ID is the tool id.
const ID = "path-copy"

// Configuration keys.
const (
	KeyShowAbsolutePathOption = "showAbsolutePathOption"
	KeyShowRelativePathOption = "showRelativePathOption"
	KeyShowHierarchyOption    = "showHierarchyOption"
	KeyAbsolutePathMenuTitle  = "absolutePathMenuTitle"
	KeyRelativePathMenuTitle  = "relativePathMenuTitle"
	KeyHierarchyMenuTitle     = "hierarchyMenuTitle"
	KeyMultiFileSeparator     = "multiFileSeparator"
)

// Kind selects what is copied for a target.
type Kind int

const (
	Absolute Kind = iota
	Relative
	Hierarchy
)

func (k Kind) String() string {
	switch k {
	case Absolute:
		return "absolute path"
	case Relative:
		return "relative path"
	case Hierarchy:
		return "hierarchy"
	default:
		return "unknown"
	}
}

// Tool copies paths of vault entries.
type Tool struct {
	tool.Base

	host   tools.Host
	logger *logging.Logger

	mu            sync.Mutex
	menuInstalled bool
}

// New creates the tool.
func New(host tools.Host) *Tool {
	return &Tool{host: host, logger: host.Log(ID)}
}

// Descriptor implements tool.Tool.
func (t *Tool) Descriptor() tool.Descriptor {
	return tool.Descriptor{
		ID:          ID,
		Name:        "Path Copy",
		SortKey:     "path copy",
		Description: "Copies absolute paths, relative paths and folder hierarchies",
	}
}

// DefaultConfig implements tool.Tool.
func (t *Tool) DefaultConfig() tool.Configuration {
	return tool.Configuration{
		tool.KeyEnabled:           false,
		KeyShowAbsolutePathOption: true,
		KeyShowRelativePathOption: true,
		KeyShowHierarchyOption:    true,
		KeyAbsolutePathMenuTitle:  "Copy absolute path",
		KeyRelativePathMenuTitle:  "Copy relative path",
		KeyHierarchyMenuTitle:     "Copy hierarchy",
		KeyMultiFileSeparator:     "\n",
	}
}

// ValidateConfig implements tool.Tool.
func (t *Tool) ValidateConfig(cfg tool.Configuration) error {
	return tool.RequireKeys(cfg, t.DefaultConfig())
}

// Enable installs the context menu items and registers the copy commands.
func (t *Tool) Enable(ctx context.Context) error {
	t.mu.Lock()
	if !t.menuInstalled && t.host.Menu != nil {
		t.menuInstalled = t.host.Menu.Install(ID, palette.ContributorFunc(t.menuItems))
	}
	t.mu.Unlock()

	if t.host.Commands != nil {
		t.host.Commands.RegisterCommands(ID, t.commands())
	}
	return nil
}

// Disable removes what Enable installed.
func (t *Tool) Disable(ctx context.Context) error {
	t.mu.Lock()
	if t.menuInstalled {
		t.host.Menu.Uninstall(ID)
		t.menuInstalled = false
	}
	t.mu.Unlock()

	if t.host.Commands != nil {
		t.host.Commands.UnregisterCommands(ID)
	}
	return nil
}

// AbsolutePath returns the filesystem path of a vault entry.
func (t *Tool) AbsolutePath(rel string) (string, error) {
	info, err := t.host.Vault.Stat(rel)
	if err != nil {
		return "", err
	}
	return t.host.Vault.Abs(info.Path)
}

// RelativePath returns the normalized vault path of an entry.
func (t *Tool) RelativePath(rel string) (string, error) {
	info, err := t.host.Vault.Stat(rel)
	if err != nil {
		return "", err
	}
	return info.Path, nil
}

// Hierarchy renders the tree of a folder. A file renders as its path.
func (t *Tool) Hierarchy(rel string) (string, error) {
	info, err := t.host.Vault.Stat(rel)
	if err != nil {
		return "", err
	}
	if !info.IsDir {
		return info.Path, nil
	}

	root, err := t.host.Vault.Tree(info.Path)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	writeTree(&b, root, 0, true)
	return b.String(), nil
}

// writeTree draws node with box characters. The root line has no trailing
// slash and no connector.
func writeTree(b *strings.Builder, node *vault.Node, level int, last bool) {
	if level == 0 {
		b.WriteString(node.Name + "\n")
	} else {
		b.WriteString(strings.Repeat("│   ", level-1) + connector(last) + node.Name + "/\n")
	}

	for i, child := range node.Children {
		isLast := i == len(node.Children)-1
		if child.IsDir {
			writeTree(b, child, level+1, isLast)
			continue
		}
		b.WriteString(strings.Repeat("│   ", level) + connector(isLast) + child.Name + "\n")
	}
}

func connector(last bool) string {
	if last {
		return "└── "
	}
	return "├── "
}

// Render produces the text copied for targets: one entry per target joined
// by the configured separator.
func (t *Tool) Render(kind Kind, targets []string) (string, error) {
	if len(targets) == 0 {
		return "", fmt.Errorf("no paths to copy")
	}

	parts := make([]string, 0, len(targets))
	for _, rel := range targets {
		var (
			text string
			err  error
		)
		switch kind {
		case Absolute:
			text, err = t.AbsolutePath(rel)
		case Relative:
			text, err = t.RelativePath(rel)
		case Hierarchy:
			text, err = t.Hierarchy(rel)
		default:
			err = fmt.Errorf("unknown copy kind %d", kind)
		}
		if err != nil {
			return "", err
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, t.Config().String(KeyMultiFileSeparator)), nil
}

// Copy renders targets and writes the result to the clipboard, reporting
// the outcome as a notice.
func (t *Tool) Copy(kind Kind, targets []string) (string, error) {
	text, err := t.Render(kind, targets)
	if err == nil {
		err = t.host.Copy(text)
	}
	if err != nil {
		t.logger.Errorf("failed to copy %s: %v", kind, err)
		t.host.Notify(fmt.Sprintf("Failed to copy %s", kind), 0)
		return "", err
	}

	if len(targets) == 1 {
		shown := text
		if kind == Hierarchy {
			shown = targets[0]
		}
		t.host.Notify(fmt.Sprintf("Copied %s: %s", kind, shown), 0)
	} else {
		t.host.Notify(fmt.Sprintf("Copied %s of %d files", kind, len(targets)), 0)
	}
	return text, nil
}

func (t *Tool) commands() []tool.Command {
	hasTarget := func(inv tool.Invocation) bool {
		return t.Config().Enabled() && inv.Target != ""
	}
	command := func(id, name string, kind Kind) tool.Command {
		return tool.Command{
			ID:    id,
			Name:  name,
			Check: hasTarget,
			Run: func(ctx context.Context, inv tool.Invocation) error {
				targets := append([]string{inv.Target}, inv.Args...)
				text, err := t.Copy(kind, targets)
				if err != nil {
					return err
				}
				fmt.Fprintln(inv.Out, strings.TrimSuffix(text, "\n"))
				return nil
			},
		}
	}
	return []tool.Command{
		command("copy-absolute-path", "Copy absolute path", Absolute),
		command("copy-relative-path", "Copy relative path", Relative),
		command("copy-hierarchy", "Copy folder hierarchy", Hierarchy),
	}
}

func (t *Tool) menuItems(target palette.Target) []palette.MenuItem {
	cfg := t.Config()
	if !cfg.Enabled() || len(target.Paths) == 0 {
		return nil
	}
	if target.Editor {
		return t.editorItems(cfg, target.Paths[0])
	}

	copyItem := func(title, icon string, kind Kind) palette.MenuItem {
		paths := append([]string(nil), target.Paths...)
		return palette.MenuItem{
			Title: title,
			Icon:  icon,
			Run: func(ctx context.Context, out io.Writer) error {
				_, err := t.Copy(kind, paths)
				return err
			},
		}
	}

	suffix := ""
	if n := len(target.Paths); n > 1 {
		suffix = fmt.Sprintf(" (%d files)", n)
	}

	var items []palette.MenuItem
	if cfg.Bool(KeyShowAbsolutePathOption) {
		items = append(items, copyItem(cfg.String(KeyAbsolutePathMenuTitle)+suffix, "link", Absolute))
	}
	if cfg.Bool(KeyShowRelativePathOption) {
		items = append(items, copyItem(cfg.String(KeyRelativePathMenuTitle)+suffix, "link", Relative))
	}
	if cfg.Bool(KeyShowHierarchyOption) && (len(target.Paths) > 1 || t.isFolder(target.Paths[0])) {
		items = append(items, copyItem(cfg.String(KeyHierarchyMenuTitle)+suffix, "folder", Hierarchy))
	}
	return items
}

func (t *Tool) isFolder(rel string) bool {
	info, err := t.host.Vault.Stat(rel)
	return err == nil && info.IsDir
}

// editorItems paste paths of the open note and its folder into the editor,
// which here means writing them to out.
func (t *Tool) editorItems(cfg tool.Configuration, note string) []palette.MenuItem {
	rel, err := t.RelativePath(note)
	if err != nil {
		return nil
	}
	folder := path.Dir(rel)
	if folder == "." {
		folder = ""
	}

	paste := func(title, icon, text, notice string) palette.MenuItem {
		return palette.MenuItem{
			Title: title,
			Icon:  icon,
			Run: func(ctx context.Context, out io.Writer) error {
				if _, err := io.WriteString(out, text); err != nil {
					return err
				}
				t.host.Notify(notice, 0)
				return nil
			},
		}
	}
	abs := func(p string) string {
		return filepath.Join(t.host.Vault.Root(), filepath.FromSlash(p))
	}

	var items []palette.MenuItem
	if cfg.Bool(KeyShowAbsolutePathOption) {
		items = append(items, paste("Paste absolute path of this note", "link", abs(rel), "Pasted absolute path of the note"))
	}
	if cfg.Bool(KeyShowRelativePathOption) {
		items = append(items, paste("Paste relative path of this note", "link", rel, "Pasted relative path of the note"))
	}
	if cfg.Bool(KeyShowAbsolutePathOption) {
		items = append(items, paste("Paste absolute path of this folder", "folder", abs(folder), "Pasted absolute path of the folder"))
	}
	if cfg.Bool(KeyShowRelativePathOption) {
		items = append(items, paste("Paste relative path of this folder", "folder", folder, "Pasted relative path of the folder"))
	}
	return items
}
