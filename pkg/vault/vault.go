// Package vault provides access to a directory of Markdown notes: listing,
// reading and writing notes, front matter editing, tag extraction, ignore
// patterns and change notifications.
package vault

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

var (
	// ErrNotMarkdown is returned when a note operation targets a non-.md file.
	ErrNotMarkdown = errors.New("not a markdown note")

	// ErrOutsideVault is returned for paths that resolve outside the vault root.
	ErrOutsideVault = errors.New("path is outside the vault")
)

// Vault is a directory of Markdown notes. Paths passed to and returned by a
// Vault are relative to its root and slash separated.
type Vault struct {
	root string
}

// FileInfo describes a vault entry.
type FileInfo struct {
	Path     string
	Name     string
	IsDir    bool
	Size     int64
	Created  time.Time
	Modified time.Time
}

// Node is one entry of a folder tree. Children are sorted by name.
type Node struct {
	Name     string
	Path     string
	IsDir    bool
	Children []*Node
}

// Open opens the vault rooted at root. The root is converted to an absolute
// path and symlinks are evaluated.
func Open(root string) (*Vault, error) {
	if root == "" {
		return nil, fmt.Errorf("vault root cannot be empty")
	}

	absPath, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve vault root: %w", err)
	}

	evalPath, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate vault root: %w", err)
	}

	info, err := os.Stat(evalPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat vault root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("vault root %s is not a directory", root)
	}

	return &Vault{root: evalPath}, nil
}

// Root returns the absolute vault root.
func (v *Vault) Root() string {
	return v.root
}

// IsMarkdown reports whether p names a Markdown note.
func IsMarkdown(p string) bool {
	return strings.EqualFold(path.Ext(p), ".md")
}

// Abs resolves a vault-relative path to an absolute filesystem path. The
// empty path and "." resolve to the root.
func (v *Vault) Abs(rel string) (string, error) {
	cleaned := path.Clean(filepath.ToSlash(rel))
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") || path.IsAbs(cleaned) {
		return "", fmt.Errorf("%w: %s", ErrOutsideVault, rel)
	}
	return filepath.Join(v.root, filepath.FromSlash(cleaned)), nil
}

// Rel converts p to a vault-relative slash path. Relative inputs are taken
// as already relative to the root.
func (v *Vault) Rel(p string) (string, error) {
	if !filepath.IsAbs(p) {
		abs, err := v.Abs(p)
		if err != nil {
			return "", err
		}
		p = abs
	}

	p = filepath.Clean(p)
	if !v.within(p) {
		if resolved, err := filepath.EvalSymlinks(p); err == nil && v.within(resolved) {
			p = resolved
		} else {
			return "", fmt.Errorf("%w: %s", ErrOutsideVault, p)
		}
	}

	rel, err := filepath.Rel(v.root, p)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrOutsideVault, p)
	}
	if rel == "." {
		return "", nil
	}
	return filepath.ToSlash(rel), nil
}

func (v *Vault) within(abs string) bool {
	return abs == v.root || strings.HasPrefix(abs, v.root+string(filepath.Separator))
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// Files lists every Markdown note in the vault, sorted. Dot-directories are
// skipped.
func (v *Vault) Files() ([]string, error) {
	var files []string
	err := filepath.WalkDir(v.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != v.root && hidden(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !IsMarkdown(d.Name()) {
			return nil
		}
		rel, err := filepath.Rel(v.root, p)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}

	sort.Strings(files)
	return files, nil
}

// Read returns the content of a note.
func (v *Vault) Read(rel string) (string, error) {
	if !IsMarkdown(rel) {
		return "", fmt.Errorf("%w: %s", ErrNotMarkdown, rel)
	}
	abs, err := v.Abs(rel)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", rel, err)
	}
	return string(data), nil
}

// Write replaces the content of a note, creating it and its parent folders
// when missing. An existing file keeps its permissions.
func (v *Vault) Write(rel, content string) error {
	if !IsMarkdown(rel) {
		return fmt.Errorf("%w: %s", ErrNotMarkdown, rel)
	}
	abs, err := v.Abs(rel)
	if err != nil {
		return err
	}

	mode := os.FileMode(0o644)
	if info, err := os.Stat(abs); err == nil {
		mode = info.Mode().Perm()
	} else if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("failed to create folder for %s: %w", rel, err)
	}

	if err := os.WriteFile(abs, []byte(content), mode); err != nil {
		return fmt.Errorf("failed to write %s: %w", rel, err)
	}
	return nil
}

// Stat describes a vault entry. Created is the modification time: portable
// birth times are not available.
func (v *Vault) Stat(rel string) (FileInfo, error) {
	abs, err := v.Abs(rel)
	if err != nil {
		return FileInfo{}, err
	}

	info, err := os.Stat(abs)
	if err != nil {
		return FileInfo{}, fmt.Errorf("failed to stat %s: %w", rel, err)
	}

	clean, _ := v.Rel(abs)
	return FileInfo{
		Path:     clean,
		Name:     info.Name(),
		IsDir:    info.IsDir(),
		Size:     info.Size(),
		Created:  info.ModTime(),
		Modified: info.ModTime(),
	}, nil
}

// Tree returns the folder tree under dir, skipping dot entries.
func (v *Vault) Tree(dir string) (*Node, error) {
	abs, err := v.Abs(dir)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a folder", dir)
	}

	rel, _ := v.Rel(abs)
	name := path.Base(rel)
	if rel == "" {
		name = filepath.Base(v.root)
	}
	root := &Node{Name: name, Path: rel, IsDir: true}
	if err := v.fill(root, abs); err != nil {
		return nil, err
	}
	return root, nil
}

func (v *Vault) fill(node *Node, abs string) error {
	entries, err := os.ReadDir(abs)
	if err != nil {
		return fmt.Errorf("failed to read folder %s: %w", node.Path, err)
	}

	for _, entry := range entries {
		if hidden(entry.Name()) {
			continue
		}
		child := &Node{
			Name:  entry.Name(),
			Path:  path.Join(node.Path, entry.Name()),
			IsDir: entry.IsDir(),
		}
		if child.IsDir {
			if err := v.fill(child, filepath.Join(abs, entry.Name())); err != nil {
				return err
			}
		}
		node.Children = append(node.Children, child)
	}
	return nil
}
