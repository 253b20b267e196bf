// Package tabcopy implements the tab-copy tool: a link to the open note or
// web page, copied to the clipboard.
package tabcopy

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/entrhq/toolbox/pkg/logging"
	"github.com/entrhq/toolbox/pkg/palette"
	"github.com/entrhq/toolbox/pkg/tool"
	"github.com/entrhq/toolbox/pkg/tools"
	"github.com/entrhq/toolbox/pkg/vault"
)

// ID is the tool id.
const ID = "tab-copy"

// Configuration keys.
const (
	KeyLinkStyle     = "linkStyle"
	KeyFetchWebTitle = "fetchWebTitle"
	KeyTitleTimeout  = "titleTimeout"
)

// Link styles for notes.
const (
	StyleWiki     = "wiki"
	StyleMarkdown = "markdown"
)

// Tool builds links for notes and URLs.
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
		Name:        "Tab Copy",
		SortKey:     "tab copy",
		Description: "Copies a link to the open note or web page",
	}
}

// DefaultConfig implements tool.Tool.
func (t *Tool) DefaultConfig() tool.Configuration {
	return tool.Configuration{
		tool.KeyEnabled:  false,
		KeyLinkStyle:     StyleWiki,
		KeyFetchWebTitle: true,
		KeyTitleTimeout:  5,
	}
}

// ValidateConfig implements tool.Tool.
func (t *Tool) ValidateConfig(cfg tool.Configuration) error {
	if err := tool.RequireKeys(cfg, t.DefaultConfig()); err != nil {
		return err
	}
	switch style := cfg.String(KeyLinkStyle); style {
	case StyleWiki, StyleMarkdown:
	default:
		return fmt.Errorf("unknown link style %q", style)
	}
	if timeout, _ := cfg.Float(KeyTitleTimeout); timeout < 1 || timeout > 30 {
		return fmt.Errorf("%s must be between 1 and 30 seconds", KeyTitleTimeout)
	}
	return nil
}

// Enable registers the copy-link command and the editor menu item.
func (t *Tool) Enable(ctx context.Context) error {
	t.mu.Lock()
	if !t.menuInstalled && t.host.Menu != nil {
		t.menuInstalled = t.host.Menu.Install(ID, palette.ContributorFunc(t.menuItems))
	}
	t.mu.Unlock()

	if t.host.Commands != nil {
		t.host.Commands.RegisterCommands(ID, []tool.Command{{
			ID:   "copy-link",
			Name: "Copy link",
			Check: func(inv tool.Invocation) bool {
				return t.Config().Enabled() && inv.Target != ""
			},
			Run: func(ctx context.Context, inv tool.Invocation) error {
				link, err := t.CopyLink(ctx, inv.Target)
				if err != nil {
					return err
				}
				fmt.Fprintln(inv.Out, link)
				return nil
			},
		}})
	}
	return nil
}

// Disable removes the command and menu item.
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

func (t *Tool) menuItems(target palette.Target) []palette.MenuItem {
	if !t.Config().Enabled() || !target.Editor || len(target.Paths) != 1 {
		return nil
	}
	rel := target.Paths[0]
	return []palette.MenuItem{{
		Title: "Copy link",
		Icon:  "link",
		Run: func(ctx context.Context, out io.Writer) error {
			_, err := t.CopyLink(ctx, rel)
			return err
		},
	}}
}

// IsWebURL reports whether target is an http or https URL.
func IsWebURL(target string) bool {
	u, err := url.Parse(target)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Link builds the link for target: a note path or a web URL.
func (t *Tool) Link(ctx context.Context, target string) (string, error) {
	if IsWebURL(target) {
		return t.webLink(ctx, target), nil
	}
	return t.noteLink(target)
}

func (t *Tool) noteLink(target string) (string, error) {
	info, err := t.host.Vault.Stat(target)
	if err != nil {
		return "", err
	}
	if info.IsDir || !vault.IsMarkdown(info.Path) {
		return "", fmt.Errorf("%w: %s", vault.ErrNotMarkdown, target)
	}

	name := strings.TrimSuffix(path.Base(info.Path), path.Ext(info.Path))
	if t.Config().String(KeyLinkStyle) == StyleMarkdown {
		return fmt.Sprintf("[%s](%s)", name, strings.ReplaceAll(info.Path, " ", "%20")), nil
	}
	return fmt.Sprintf("[[%s]]", name), nil
}

// webLink titles the link with the page title when fetching is on, and with
// the URL itself otherwise or when the page has no usable title.
func (t *Tool) webLink(ctx context.Context, rawURL string) string {
	title := rawURL
	if t.IsSubSettingEnabled(KeyFetchWebTitle) {
		seconds, _ := t.Config().Float(KeyTitleTimeout)
		timeout := time.Duration(seconds * float64(time.Second))
		fetchCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		fetched, err := FetchTitle(fetchCtx, t.host.Client(), rawURL)
		switch {
		case err != nil:
			t.logger.Warnf("failed to fetch title of %s: %v", rawURL, err)
		case fetched != "":
			title = fetched
		}
	}
	title = strings.NewReplacer("[", `\[`, "]", `\]`).Replace(title)
	return fmt.Sprintf("[%s](%s)", title, rawURL)
}

// CopyLink builds the link for target and writes it to the clipboard.
func (t *Tool) CopyLink(ctx context.Context, target string) (string, error) {
	link, err := t.Link(ctx, target)
	if err == nil {
		err = t.host.Copy(link)
	}
	if err != nil {
		t.logger.Errorf("failed to copy link for %s: %v", target, err)
		t.host.Notify("Copy failed, please try again", 0)
		return "", err
	}

	kind := "Markdown"
	if strings.HasPrefix(link, "[[") {
		kind = "wiki"
	}
	t.host.Notify(fmt.Sprintf("Copied %s link: %s", kind, link), 0)
	return link, nil
}
