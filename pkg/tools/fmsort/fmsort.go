// Package fmsort implements the front-matter-sort tool, which orders front
// matter properties by a configured list.
package fmsort

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/entrhq/toolbox/pkg/logging"
	"github.com/entrhq/toolbox/pkg/palette"
	"github.com/entrhq/toolbox/pkg/tool"
	"github.com/entrhq/toolbox/pkg/tools"
	"github.com/entrhq/toolbox/pkg/vault"
)

// ID is the tool id.
const ID = "front-matter-sort"

// Configuration keys.
const (
	KeyPropertyOrder             = "propertyOrder"
	KeyAutoSortOnSave            = "autoSortOnSave"
	KeyAutoSortOnStartup         = "autoSortOnStartup"
	KeyKeepUnspecifiedProperties = "keepUnspecifiedProperties"
	KeyIgnoredFolders            = "ignoredFolders"
	KeyIgnoredFiles              = "ignoredFiles"
)

// DefaultPropertyOrder is the order used until the user changes it.
const DefaultPropertyOrder = "title\ndate\ntags\ncreated\nmodified"

// resultNoticeInterval limits how often bulk results are announced.
const resultNoticeInterval = 5 * time.Second

// ErrBusy is returned when a bulk sort is already running.
var ErrBusy = errors.New("front matter is already being sorted")

// Result counts the notes a bulk sort touched.
type Result struct {
	Sorted  int
	Skipped int
	Failed  int
}

// Tool sorts front matter on demand, on save and once at startup.
type Tool struct {
	tool.Base

	host   tools.Host
	logger *logging.Logger

	processing atomic.Bool

	mu             sync.Mutex
	unsubscribe    func()
	menuInstalled  bool
	startupSorted  bool
	lastResultNote time.Time
}

// New creates the tool.
func New(host tools.Host) *Tool {
	return &Tool{host: host, logger: host.Log(ID)}
}

// Descriptor implements tool.Tool.
func (t *Tool) Descriptor() tool.Descriptor {
	return tool.Descriptor{
		ID:          ID,
		Name:        "Front Matter Sort",
		SortKey:     "front matter sort",
		Description: "Sorts note front matter properties in a custom order",
	}
}

// DefaultConfig implements tool.Tool.
func (t *Tool) DefaultConfig() tool.Configuration {
	return tool.Configuration{
		tool.KeyEnabled:              false,
		KeyPropertyOrder:             DefaultPropertyOrder,
		KeyAutoSortOnSave:            true,
		KeyAutoSortOnStartup:         false,
		KeyKeepUnspecifiedProperties: true,
		KeyIgnoredFolders:            "",
		KeyIgnoredFiles:              "",
	}
}

// ValidateConfig implements tool.Tool.
func (t *Tool) ValidateConfig(cfg tool.Configuration) error {
	return tool.RequireKeys(cfg, t.DefaultConfig())
}

// OnConfigChange stores cfg. Turning on the startup sort while the tool is
// already running sorts the vault once.
func (t *Tool) OnConfigChange(cfg tool.Configuration) {
	previous := t.Config()
	t.Base.OnConfigChange(cfg)

	if previous.Enabled() && cfg.Enabled() &&
		cfg.Bool(KeyAutoSortOnStartup) && !previous.Bool(KeyAutoSortOnStartup) {
		t.startupSort(context.Background())
	}
}

// Enable subscribes to note modifications, registers commands, installs
// the editor menu item and runs the startup sort when configured.
func (t *Tool) Enable(ctx context.Context) error {
	t.mu.Lock()
	if t.unsubscribe == nil && t.host.Watcher != nil {
		t.unsubscribe = t.host.Watcher.Subscribe(t.handleEvent)
	}
	if !t.menuInstalled && t.host.Menu != nil {
		t.menuInstalled = t.host.Menu.Install(ID, palette.ContributorFunc(t.menuItems))
	}
	t.mu.Unlock()

	if t.host.Commands != nil {
		t.host.Commands.RegisterCommands(ID, t.commands())
	}

	if t.Config().Bool(KeyAutoSortOnStartup) {
		t.startupSort(ctx)
	}
	return nil
}

// Disable undoes Enable. It is safe to call on a tool that was never
// enabled.
func (t *Tool) Disable(ctx context.Context) error {
	t.mu.Lock()
	if t.unsubscribe != nil {
		t.unsubscribe()
		t.unsubscribe = nil
	}
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

// startupSort sorts every note once per tool instance.
func (t *Tool) startupSort(ctx context.Context) {
	t.mu.Lock()
	if t.startupSorted {
		t.mu.Unlock()
		t.logger.Debugf("startup sort already ran")
		return
	}
	t.startupSorted = true
	t.mu.Unlock()

	t.logger.Infof("sorting front matter of all notes at startup")
	res, err := t.SortAll(ctx)
	if err != nil {
		t.logger.Errorf("startup sort failed: %v", err)
		return
	}
	t.announce(res)
}

func (t *Tool) commands() []tool.Command {
	return []tool.Command{
		{
			ID:   "sort-current-file-front-matter",
			Name: "Sort front matter of the current note",
			Check: func(inv tool.Invocation) bool {
				return t.Config().Enabled() && vault.IsMarkdown(inv.Target)
			},
			Run: func(ctx context.Context, inv tool.Invocation) error {
				changed, err := t.SortNote(ctx, inv.Target)
				if err != nil {
					return err
				}
				if changed {
					fmt.Fprintf(inv.Out, "Sorted front matter of %s\n", inv.Target)
				} else {
					fmt.Fprintf(inv.Out, "%s is already sorted\n", inv.Target)
				}
				return nil
			},
		},
		{
			ID:    "sort-all-files-front-matter",
			Name:  "Sort front matter of all notes",
			Check: tools.Enabled(t.Config),
			Run: func(ctx context.Context, inv tool.Invocation) error {
				res, err := t.SortAll(ctx)
				if err != nil {
					return err
				}
				t.announce(res)
				fmt.Fprintln(inv.Out, resultMessage(res))
				return nil
			},
		},
	}
}

func (t *Tool) menuItems(target palette.Target) []palette.MenuItem {
	if !t.Config().Enabled() || !target.Editor || len(target.Paths) != 1 || !vault.IsMarkdown(target.Paths[0]) {
		return nil
	}
	rel := target.Paths[0]
	return []palette.MenuItem{{
		Title: "Sort front matter",
		Icon:  "list-ordered",
		Run: func(ctx context.Context, out io.Writer) error {
			if _, err := t.SortNote(ctx, rel); err != nil {
				return err
			}
			fmt.Fprintf(out, "Sorted front matter of %s\n", rel)
			return nil
		},
	}}
}

func resultMessage(res Result) string {
	msg := fmt.Sprintf("Sorted %d notes, skipped %d", res.Sorted, res.Skipped)
	if res.Failed > 0 {
		msg += fmt.Sprintf(", %d failed", res.Failed)
	}
	return msg
}

// announce notifies bulk results at most once per resultNoticeInterval.
func (t *Tool) announce(res Result) {
	if res.Sorted == 0 && res.Skipped == 0 {
		return
	}
	now := t.host.Clock()
	t.mu.Lock()
	if !t.lastResultNote.IsZero() && now.Sub(t.lastResultNote) <= resultNoticeInterval {
		t.mu.Unlock()
		return
	}
	t.lastResultNote = now
	t.mu.Unlock()

	t.host.Notify(resultMessage(res), 0)
}

func (t *Tool) handleEvent(ev vault.Event) {
	if ev.Op != vault.OpModify || t.processing.Load() {
		return
	}
	cfg := t.Config()
	if !cfg.Enabled() || !cfg.Bool(KeyAutoSortOnSave) {
		return
	}

	ignored, err := t.ignored(cfg, ev.Path)
	if err != nil || ignored {
		return
	}

	if !t.processing.CompareAndSwap(false, true) {
		return
	}
	defer t.processing.Store(false)

	if _, err := t.SortNote(context.Background(), ev.Path); err != nil {
		t.logger.Errorf("failed to sort front matter of %s: %v", ev.Path, err)
	}
}

func (t *Tool) ignored(cfg tool.Configuration, rel string) (bool, error) {
	if !vault.IsMarkdown(rel) {
		return true, nil
	}
	matcher, err := tools.IgnoreMatcher(cfg, KeyIgnoredFolders, KeyIgnoredFiles, "")
	if err != nil {
		return false, err
	}
	return matcher.MatchPath(rel), nil
}

// SortNote orders the note's front matter and reports whether it changed.
// Notes without front matter are left alone.
func (t *Tool) SortNote(ctx context.Context, rel string) (bool, error) {
	cfg := t.Config()

	content, err := t.host.Vault.Read(rel)
	if err != nil {
		return false, err
	}
	fm, body, err := vault.ParseNote(content)
	if err != nil {
		return false, fmt.Errorf("failed to parse %s: %w", rel, err)
	}
	if !fm.Present() || len(fm.Keys()) == 0 {
		return false, nil
	}

	if !fm.Reorder(cfg.Lines(KeyPropertyOrder), cfg.Bool(KeyKeepUnspecifiedProperties)) {
		return false, nil
	}

	out, err := fm.Render(body)
	if err != nil {
		return false, err
	}
	if err := t.host.WriteNote(rel, out); err != nil {
		return false, err
	}
	t.logger.Debugf("sorted front matter of %s", rel)
	return true, nil
}

// SortAll sorts every note that is not ignored.
func (t *Tool) SortAll(ctx context.Context) (Result, error) {
	var res Result
	if !t.processing.CompareAndSwap(false, true) {
		return res, ErrBusy
	}
	defer t.processing.Store(false)

	cfg := t.Config()
	files, err := t.host.Vault.Files()
	if err != nil {
		return res, err
	}

	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		ignored, err := t.ignored(cfg, rel)
		if err != nil {
			return res, err
		}
		if ignored {
			res.Skipped++
			continue
		}

		changed, err := t.SortNote(ctx, rel)
		if err != nil {
			t.logger.Errorf("failed to sort front matter of %s: %v", rel, err)
			res.Failed++
			continue
		}
		if changed {
			res.Sorted++
		}
	}
	return res, nil
}
