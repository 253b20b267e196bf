package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/entrhq/toolbox/pkg/palette"
	"github.com/entrhq/toolbox/pkg/tool"
	"github.com/entrhq/toolbox/pkg/toolbox"
	"github.com/entrhq/toolbox/pkg/ui/settings"
)

func (a *app) commandsCmd() *cobra.Command {
	var target string
	cmd := &cobra.Command{
		Use:   "commands",
		Short: "List the palette commands of the enabled tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withToolbox(cmd, false, func(_ context.Context, tb *toolbox.Toolbox) error {
				list := tb.Palette.List()
				if cmd.Flags().Changed("target") {
					list = tb.Palette.Available(tool.Invocation{Target: target})
				}
				tw := newTable(cmd.OutOrStdout(), "ID", "Name")
				for _, c := range list {
					tw.AppendRow(table.Row{c.ID, c.Name})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&target, "target", "t", "", "only list commands available for this note or URL")
	return cmd
}

func (a *app) runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <command-id> [target] [args...]",
		Short: "Run a palette command",
		Long: `Run a palette command.

The command id may omit the plugin prefix, so "path-copy-copy-hierarchy"
resolves to "toolbox:path-copy-copy-hierarchy".`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withToolbox(cmd, false, func(ctx context.Context, tb *toolbox.Toolbox) error {
				inv := tool.Invocation{Out: cmd.OutOrStdout()}
				if len(args) > 1 {
					inv.Target = args[1]
					inv.Args = args[2:]
				}
				return tb.Run(ctx, resolveCommand(tb.Palette, args[0]), inv)
			})
		},
	}
}

// resolveCommand expands an id without plugin prefix when exactly one
// command ends with it.
func resolveCommand(p *palette.Palette, id string) string {
	if _, ok := p.Lookup(id); ok || strings.Contains(id, ":") {
		return id
	}
	var match string
	for _, c := range p.List() {
		if strings.HasSuffix(c.ID, ":"+id) {
			if match != "" {
				return id
			}
			match = c.ID
		}
	}
	if match == "" {
		return id
	}
	return match
}

func (a *app) menuCmd() *cobra.Command {
	var (
		editor bool
		pick   int
	)
	cmd := &cobra.Command{
		Use:   "menu <path>...",
		Short: "Show or run the context menu items for notes or folders",
		Long: `Show the context menu the enabled tools contribute for the given paths.

With --editor the paths are treated as the note open in an editor. With
--run N the Nth item is run instead of listed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withToolbox(cmd, false, func(ctx context.Context, tb *toolbox.Toolbox) error {
				items := tb.Menu.Items(palette.Target{Paths: args, Editor: editor})
				out := cmd.OutOrStdout()
				if pick == 0 {
					for i, item := range items {
						fmt.Fprintf(out, "%d\t%s\n", i+1, item.Title)
					}
					return nil
				}
				if pick < 1 || pick > len(items) {
					return fmt.Errorf("no menu item %d, there are %d", pick, len(items))
				}
				return items[pick-1].Run(ctx, out)
			})
		},
	}
	cmd.Flags().BoolVarP(&editor, "editor", "e", false, "use the editor menu of a single note")
	cmd.Flags().IntVarP(&pick, "run", "r", 0, "run the Nth item")
	return cmd
}

func (a *app) watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch the vault so enabled tools react to note changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			cmd.SetContext(ctx)

			return a.withToolbox(cmd, true, func(ctx context.Context, tb *toolbox.Toolbox) error {
				fmt.Fprintf(cmd.OutOrStdout(), "Watching %s\n", tb.Vault.Root())
				<-ctx.Done()
				return nil
			})
		},
	}
}

func (a *app) settingsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "settings",
		Short: "Open the interactive settings screen",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withToolbox(cmd, false, func(ctx context.Context, tb *toolbox.Toolbox) error {
				return settings.Run(ctx, tb)
			})
		},
	}
}
