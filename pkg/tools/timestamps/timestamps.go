// Package timestamps implements the auto-timestamps tool: it keeps "created"
// and "modified" front matter properties on notes.
package timestamps

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/entrhq/toolbox/pkg/config"
	"github.com/entrhq/toolbox/pkg/logging"
	"github.com/entrhq/toolbox/pkg/tool"
	"github.com/entrhq/toolbox/pkg/tools"
	"github.com/entrhq/toolbox/pkg/vault"
)

// ID is the tool id.
const ID = "auto-timestamps"

// Configuration keys.
const (
	KeyDateFormat              = "dateFormat"
	KeyEnableCreatedTime       = "enableCreatedTime"
	KeyEnableModifiedTime      = "enableModifiedTime"
	KeyModifyInterval          = "modifyInterval"
	KeyIgnoredFolders          = "ignoredFolders"
	KeyIgnoredFiles            = "ignoredFiles"
	KeyIgnoredTags             = "ignoredTags"
	KeyUseFileCreationDate     = "useFileCreationDate"
	KeyUseFileModificationDate = "useFileModificationDate"
)

// Front matter properties written by the tool.
const (
	PropCreated  = "created"
	PropModified = "modified"
)

// ErrBusy is returned when a bulk run is already in progress.
var ErrBusy = errors.New("timestamps are already being processed")

// Result counts the notes a bulk run touched.
type Result struct {
	Created  int
	Modified int
	Skipped  int
	Failed   int
}

// Tool adds timestamps to new notes, refreshes "modified" on edits and
// offers bulk commands.
type Tool struct {
	tool.Base

	host   tools.Host
	logger *logging.Logger

	processing atomic.Bool

	mu           sync.Mutex
	unsubscribe  func()
	lastModified map[string]time.Time
}

// New creates the tool.
func New(host tools.Host) *Tool {
	return &Tool{
		host:         host,
		logger:       host.Log(ID),
		lastModified: make(map[string]time.Time),
	}
}

// Descriptor implements tool.Tool.
func (t *Tool) Descriptor() tool.Descriptor {
	return tool.Descriptor{
		ID:          ID,
		Name:        "Auto Timestamps",
		SortKey:     "auto timestamps",
		Description: "Adds created and modified timestamps to note front matter",
	}
}

// DefaultConfig implements tool.Tool.
func (t *Tool) DefaultConfig() tool.Configuration {
	return tool.Configuration{
		tool.KeyEnabled:            false,
		KeyDateFormat:              DefaultDateFormat,
		KeyEnableCreatedTime:       true,
		KeyEnableModifiedTime:      true,
		KeyModifyInterval:          10,
		KeyIgnoredFolders:          "",
		KeyIgnoredFiles:            "",
		KeyIgnoredTags:             "",
		KeyUseFileCreationDate:     true,
		KeyUseFileModificationDate: true,
	}
}

// ValidateConfig implements tool.Tool. The modify interval may be stored as
// a number or a numeric string and must be positive.
func (t *Tool) ValidateConfig(cfg tool.Configuration) error {
	if err := tool.RequireKeys(cfg, t.DefaultConfig()); err != nil {
		return err
	}
	if _, err := interval(cfg); err != nil {
		return err
	}
	return nil
}

func interval(cfg tool.Configuration) (time.Duration, error) {
	n, ok := config.ToFloat(cfg[KeyModifyInterval])
	if !ok || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive number of seconds", KeyModifyInterval)
	}
	return time.Duration(n * float64(time.Second)), nil
}

// Enable subscribes to vault changes and registers the bulk commands.
func (t *Tool) Enable(ctx context.Context) error {
	t.mu.Lock()
	if t.unsubscribe == nil && t.host.Watcher != nil {
		t.unsubscribe = t.host.Watcher.Subscribe(t.handleEvent)
	}
	t.mu.Unlock()

	if t.host.Commands != nil {
		t.host.Commands.RegisterCommands(ID, t.commands())
	}
	return nil
}

// Disable unsubscribes and forgets the commands. It is safe to call on a
// tool that was never enabled.
func (t *Tool) Disable(ctx context.Context) error {
	t.mu.Lock()
	if t.unsubscribe != nil {
		t.unsubscribe()
		t.unsubscribe = nil
	}
	t.lastModified = make(map[string]time.Time)
	t.mu.Unlock()

	if t.host.Commands != nil {
		t.host.Commands.UnregisterCommands(ID)
	}
	return nil
}

func (t *Tool) commands() []tool.Command {
	enabled := func(keys ...string) func(tool.Invocation) bool {
		return func(tool.Invocation) bool {
			cfg := t.Config()
			if !cfg.Enabled() {
				return false
			}
			for _, k := range keys {
				if !cfg.Bool(k) {
					return false
				}
			}
			return true
		}
	}

	return []tool.Command{
		{
			ID:    "add-created-time-to-all-files",
			Name:  "Add created time to all notes",
			Check: enabled(KeyEnableCreatedTime),
			Run: func(ctx context.Context, inv tool.Invocation) error {
				res, err := t.AddToAll(ctx, true, false)
				return t.report(inv.Out, res, err)
			},
		},
		{
			ID:    "add-modified-time-to-all-files",
			Name:  "Add modified time to all notes",
			Check: enabled(KeyEnableModifiedTime),
			Run: func(ctx context.Context, inv tool.Invocation) error {
				res, err := t.AddToAll(ctx, false, true)
				return t.report(inv.Out, res, err)
			},
		},
		{
			ID:    "add-timestamps-to-all-files",
			Name:  "Add created and modified time to all notes",
			Check: enabled(),
			Run: func(ctx context.Context, inv tool.Invocation) error {
				cfg := t.Config()
				res, err := t.AddToAll(ctx, cfg.Bool(KeyEnableCreatedTime), cfg.Bool(KeyEnableModifiedTime))
				return t.report(inv.Out, res, err)
			},
		},
		{
			ID:   "add-timestamps-to-file",
			Name: "Add timestamps to the current note",
			Check: func(inv tool.Invocation) bool {
				return enabled()(inv) && vault.IsMarkdown(inv.Target)
			},
			Run: func(ctx context.Context, inv tool.Invocation) error {
				changed, err := t.AddTimestamps(ctx, inv.Target)
				if err != nil {
					return err
				}
				if changed {
					fmt.Fprintf(inv.Out, "Added timestamps to %s\n", inv.Target)
				} else {
					fmt.Fprintf(inv.Out, "%s already has timestamps\n", inv.Target)
				}
				return nil
			},
		},
	}
}

func (t *Tool) report(out io.Writer, res Result, err error) error {
	if err != nil {
		t.host.Notify(fmt.Sprintf("Adding timestamps failed: %v", err), 0)
		return err
	}
	msg := fmt.Sprintf("Added timestamps: %d created, %d modified, %d skipped", res.Created, res.Modified, res.Skipped)
	if res.Failed > 0 {
		msg += fmt.Sprintf(", %d failed", res.Failed)
	}
	t.host.Notify(msg, 0)
	fmt.Fprintln(out, msg)
	return nil
}

func (t *Tool) handleEvent(ev vault.Event) {
	if t.processing.Load() || !t.Config().Enabled() {
		return
	}

	ctx := context.Background()
	var err error
	switch ev.Op {
	case vault.OpCreate:
		_, err = t.AddTimestamps(ctx, ev.Path)
	case vault.OpModify:
		_, err = t.TouchModified(ctx, ev.Path)
	}
	if err != nil {
		t.logger.Errorf("failed to update timestamps of %s: %v", ev.Path, err)
	}
}

// note is a parsed note with the facts the tool decides on.
type note struct {
	path string
	fm   *vault.FrontMatter
	body string
	info vault.FileInfo
}

// load reads a note and reports whether it is excluded by the ignore
// patterns.
func (t *Tool) load(cfg tool.Configuration, rel string) (*note, bool, error) {
	if !vault.IsMarkdown(rel) {
		return nil, true, nil
	}

	matcher, err := tools.IgnoreMatcher(cfg, KeyIgnoredFolders, KeyIgnoredFiles, KeyIgnoredTags)
	if err != nil {
		return nil, false, err
	}
	if matcher.MatchPath(rel) {
		return nil, true, nil
	}

	content, err := t.host.Vault.Read(rel)
	if err != nil {
		return nil, false, err
	}
	info, err := t.host.Vault.Stat(rel)
	if err != nil {
		return nil, false, err
	}
	fm, body, err := vault.ParseNote(content)
	if err != nil {
		return nil, false, fmt.Errorf("failed to parse %s: %w", rel, err)
	}

	if matcher.HasTagPatterns() && matcher.MatchTags(vault.Tags(fm, body)) {
		t.logger.Debugf("ignoring %s: tag matches an ignore pattern", rel)
		return nil, true, nil
	}
	return &note{path: rel, fm: fm, body: body, info: info}, false, nil
}

func (t *Tool) save(n *note) error {
	content, err := n.fm.Render(n.body)
	if err != nil {
		return err
	}
	return t.host.WriteNote(n.path, content)
}

func (t *Tool) createdValue(cfg tool.Configuration, n *note) string {
	ts := t.host.Clock()
	if cfg.Bool(KeyUseFileCreationDate) {
		ts = n.info.Created
	}
	return Format(ts, dateFormat(cfg))
}

func (t *Tool) modifiedValue(cfg tool.Configuration, n *note) string {
	ts := t.host.Clock()
	if cfg.Bool(KeyUseFileModificationDate) {
		ts = n.info.Modified
	}
	return Format(ts, dateFormat(cfg))
}

func dateFormat(cfg tool.Configuration) string {
	if f := cfg.String(KeyDateFormat); f != "" {
		return f
	}
	return DefaultDateFormat
}

// fill adds the missing properties the flags ask for and reports which were
// added.
func (t *Tool) fill(cfg tool.Configuration, n *note, created, modified bool) (addedCreated, addedModified bool, err error) {
	if created && !n.fm.Has(PropCreated) {
		if err := n.fm.Set(PropCreated, t.createdValue(cfg, n)); err != nil {
			return false, false, err
		}
		addedCreated = true
	}
	if modified && !n.fm.Has(PropModified) {
		if err := n.fm.Set(PropModified, t.modifiedValue(cfg, n)); err != nil {
			return false, false, err
		}
		addedModified = true
	}
	return addedCreated, addedModified, nil
}

// AddTimestamps adds whichever of "created" and "modified" are enabled and
// missing, inserting front matter when the note has none. It reports
// whether the note was written.
func (t *Tool) AddTimestamps(ctx context.Context, rel string) (bool, error) {
	cfg := t.Config()
	n, ignored, err := t.load(cfg, rel)
	if err != nil || ignored {
		return false, err
	}

	c, m, err := t.fill(cfg, n, cfg.Bool(KeyEnableCreatedTime), cfg.Bool(KeyEnableModifiedTime))
	if err != nil {
		return false, err
	}
	if !c && !m {
		return false, nil
	}
	if err := t.save(n); err != nil {
		return false, err
	}
	t.logger.Debugf("added timestamps to %s", rel)
	return true, nil
}

// TouchModified refreshes "modified" at most once per modify interval for
// each note. It reports whether the note was written.
func (t *Tool) TouchModified(ctx context.Context, rel string) (bool, error) {
	cfg := t.Config()
	if !cfg.Bool(KeyEnableModifiedTime) {
		return false, nil
	}
	every, err := interval(cfg)
	if err != nil {
		return false, err
	}

	now := t.host.Clock()
	t.mu.Lock()
	last, seen := t.lastModified[rel]
	if seen && now.Sub(last) <= every {
		t.mu.Unlock()
		return false, nil
	}
	t.lastModified[rel] = now
	t.mu.Unlock()

	n, ignored, err := t.load(cfg, rel)
	if err != nil || ignored {
		return false, err
	}
	if err := n.fm.Set(PropModified, t.modifiedValue(cfg, n)); err != nil {
		return false, err
	}
	if err := t.save(n); err != nil {
		return false, err
	}
	return true, nil
}

// AddToAll adds the requested missing properties to every note that is not
// ignored. Notes that fail are logged and counted.
func (t *Tool) AddToAll(ctx context.Context, created, modified bool) (Result, error) {
	var res Result
	cfg := t.Config()
	if !cfg.Enabled() {
		return res, nil
	}
	created = created && cfg.Bool(KeyEnableCreatedTime)
	modified = modified && cfg.Bool(KeyEnableModifiedTime)
	if !created && !modified {
		return res, nil
	}

	if !t.processing.CompareAndSwap(false, true) {
		return res, ErrBusy
	}
	defer t.processing.Store(false)

	files, err := t.host.Vault.Files()
	if err != nil {
		return res, err
	}

	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		n, ignored, err := t.load(cfg, rel)
		if err != nil {
			t.logger.Errorf("failed to read %s: %v", rel, err)
			res.Failed++
			continue
		}
		if ignored {
			res.Skipped++
			continue
		}

		c, m, err := t.fill(cfg, n, created, modified)
		if err == nil && (c || m) {
			err = t.save(n)
		}
		if err != nil {
			t.logger.Errorf("failed to add timestamps to %s: %v", rel, err)
			res.Failed++
			continue
		}
		if c {
			res.Created++
		}
		if m {
			res.Modified++
		}
	}

	t.logger.Infof("bulk timestamps: %d created, %d modified, %d skipped, %d failed",
		res.Created, res.Modified, res.Skipped, res.Failed)
	return res, nil
}
