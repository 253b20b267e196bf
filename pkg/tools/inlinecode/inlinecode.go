// Package inlinecode implements the inline-code-copy tool: the inline code
// spans of a note, copied to the clipboard one at a time.
package inlinecode

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/entrhq/toolbox/pkg/logging"
	"github.com/entrhq/toolbox/pkg/palette"
	"github.com/entrhq/toolbox/pkg/tool"
	"github.com/entrhq/toolbox/pkg/tools"
	"github.com/entrhq/toolbox/pkg/vault"
)

// ID is the tool id.
const ID = "inline-code-copy"

// Configuration keys.
const (
	KeyShowCopyNotification     = "showCopyNotification"
	KeyCopyNotificationText     = "copyNotificationText"
	KeyCopyNotificationDuration = "copyNotificationDuration"
)

// CopyCooldown is the window in which repeated copies are ignored.
const CopyCooldown = 500 * time.Millisecond

// maxMenuSpans caps the editor menu entries.
const maxMenuSpans = 10

// Tool copies inline code.
type Tool struct {
	tool.Base

	host   tools.Host
	logger *logging.Logger

	mu            sync.Mutex
	enabled       bool
	menuInstalled bool
	lastCopy      time.Time
}

// New creates the tool.
func New(host tools.Host) *Tool {
	return &Tool{host: host, logger: host.Log(ID)}
}

// Descriptor implements tool.Tool.
func (t *Tool) Descriptor() tool.Descriptor {
	return tool.Descriptor{
		ID:          ID,
		Name:        "Inline Code Copy",
		SortKey:     "inline code copy",
		Description: "Copies the content of inline code spans",
	}
}

// DefaultConfig implements tool.Tool.
func (t *Tool) DefaultConfig() tool.Configuration {
	return tool.Configuration{
		tool.KeyEnabled:             false,
		KeyShowCopyNotification:     true,
		KeyCopyNotificationText:     "Copied code",
		KeyCopyNotificationDuration: 2000,
	}
}

// ValidateConfig implements tool.Tool.
func (t *Tool) ValidateConfig(cfg tool.Configuration) error {
	if err := tool.RequireKeys(cfg, t.DefaultConfig()); err != nil {
		return err
	}
	if d, _ := cfg.Float(KeyCopyNotificationDuration); d <= 0 {
		return fmt.Errorf("%s must be positive", KeyCopyNotificationDuration)
	}
	return nil
}

// Enable registers the commands and the editor menu items.
func (t *Tool) Enable(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.enabled {
		return nil
	}
	t.enabled = true

	if t.host.Menu != nil {
		t.menuInstalled = t.host.Menu.Install(ID, palette.ContributorFunc(t.menuItems))
	}
	if t.host.Commands != nil {
		t.host.Commands.RegisterCommands(ID, t.commands())
	}
	return nil
}

// Disable undoes Enable.
func (t *Tool) Disable(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return nil
	}
	t.enabled = false

	if t.menuInstalled {
		t.host.Menu.Uninstall(ID)
		t.menuInstalled = false
	}
	if t.host.Commands != nil {
		t.host.Commands.UnregisterCommands(ID)
	}
	return nil
}

// NoteSpans reads a note and returns its inline code spans.
func (t *Tool) NoteSpans(rel string) ([]Span, error) {
	content, err := t.host.Vault.Read(rel)
	if err != nil {
		return nil, err
	}
	return Spans(content), nil
}

// Copy writes code to the clipboard. It reports false without copying when
// the previous copy happened less than CopyCooldown ago.
func (t *Tool) Copy(code string) (bool, error) {
	cfg := t.Config()
	if !cfg.Enabled() {
		return false, nil
	}

	now := t.host.Clock()
	t.mu.Lock()
	if !t.lastCopy.IsZero() && now.Sub(t.lastCopy) < CopyCooldown {
		t.mu.Unlock()
		t.logger.Debugf("copy ignored during cooldown")
		return false, nil
	}
	t.lastCopy = now
	t.mu.Unlock()

	if err := t.host.Copy(code); err != nil {
		t.logger.Errorf("failed to copy inline code: %v", err)
		return false, err
	}

	if cfg.Bool(KeyShowCopyNotification) {
		ms, _ := cfg.Float(KeyCopyNotificationDuration)
		t.host.Notify(cfg.String(KeyCopyNotificationText), time.Duration(ms)*time.Millisecond)
	}
	return true, nil
}

// CopySpan copies the n-th (1-based) inline code span of a note.
func (t *Tool) CopySpan(rel string, n int) (Span, bool, error) {
	spans, err := t.NoteSpans(rel)
	if err != nil {
		return Span{}, false, err
	}
	if n < 1 || n > len(spans) {
		return Span{}, false, fmt.Errorf("%s has %d inline code spans, no span %d", rel, len(spans), n)
	}
	span := spans[n-1]
	copied, err := t.Copy(span.Text)
	return span, copied, err
}

func (t *Tool) commands() []tool.Command {
	onNote := func(inv tool.Invocation) bool {
		return t.Config().Enabled() && vault.IsMarkdown(inv.Target)
	}
	return []tool.Command{
		{
			ID:    "list-inline-code",
			Name:  "List inline code of the current note",
			Check: onNote,
			Run: func(ctx context.Context, inv tool.Invocation) error {
				spans, err := t.NoteSpans(inv.Target)
				if err != nil {
					return err
				}
				for i, span := range spans {
					fmt.Fprintf(inv.Out, "%d\t%d\t%s\n", i+1, span.Line, span.Text)
				}
				return nil
			},
		},
		{
			ID:    "copy-inline-code",
			Name:  "Copy inline code",
			Check: onNote,
			Run: func(ctx context.Context, inv tool.Invocation) error {
				n := 1
				if len(inv.Args) > 0 {
					parsed, err := strconv.Atoi(inv.Args[0])
					if err != nil {
						return fmt.Errorf("invalid span number %q: %w", inv.Args[0], err)
					}
					n = parsed
				}
				span, copied, err := t.CopySpan(inv.Target, n)
				if err != nil {
					return err
				}
				if copied {
					fmt.Fprintln(inv.Out, span.Text)
				}
				return nil
			},
		},
	}
}

func (t *Tool) menuItems(target palette.Target) []palette.MenuItem {
	if !t.Config().Enabled() || !target.Editor || len(target.Paths) != 1 {
		return nil
	}
	spans, err := t.NoteSpans(target.Paths[0])
	if err != nil {
		return nil
	}
	if len(spans) > maxMenuSpans {
		spans = spans[:maxMenuSpans]
	}

	items := make([]palette.MenuItem, 0, len(spans))
	for _, span := range spans {
		code := span.Text
		items = append(items, palette.MenuItem{
			Title: "Copy `" + code + "`",
			Icon:  "code",
			Run: func(ctx context.Context, out io.Writer) error {
				_, err := t.Copy(code)
				return err
			},
		})
	}
	return items
}
