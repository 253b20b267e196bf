package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/entrhq/toolbox/pkg/config"
	"github.com/entrhq/toolbox/pkg/form"
	"github.com/entrhq/toolbox/pkg/toolbox"
	"github.com/entrhq/toolbox/pkg/ui/settings"
)

func (a *app) toolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the tools and whether they are enabled",
		Long: `List every tool of the toolbox.

The order follows the sortBy preference: by name, or enabled tools first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withToolbox(cmd, false, func(_ context.Context, tb *toolbox.Toolbox) error {
				tw := newTable(cmd.OutOrStdout(), "ID", "Name", "Status", "Description")
				for _, e := range tb.Tools() {
					status := "disabled"
					if e.Enabled {
						status = "enabled"
					}
					tw.AppendRow(table.Row{e.ID, e.Name, status, e.Description})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func (a *app) enableCmd() *cobra.Command {
	return a.toggleCmd("enable", "Enable tools", true)
}

func (a *app) disableCmd() *cobra.Command {
	return a.toggleCmd("disable", "Disable tools", false)
}

func (a *app) toggleCmd(use, short string, enabled bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <tool-id>...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withToolbox(cmd, false, func(ctx context.Context, tb *toolbox.Toolbox) error {
				for _, id := range args {
					if err := tb.SetEnabled(ctx, id, enabled); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%sd %s\n", use, id)
				}
				return nil
			})
		},
	}
}

func (a *app) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change tool settings",
	}

	get := &cobra.Command{
		Use:   "get <tool-id> [field]",
		Short: "Print a tool's settings as JSON",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withToolbox(cmd, false, func(_ context.Context, tb *toolbox.Toolbox) error {
				cfg, err := tb.Registry.Configuration(args[0])
				if err != nil {
					return err
				}
				var value any = cfg
				if len(args) == 2 {
					v, ok := cfg[args[1]]
					if !ok {
						return fmt.Errorf("%w: %s.%s", form.ErrUnknownField, args[0], args[1])
					}
					value = v
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(value)
			})
		},
	}

	set := &cobra.Command{
		Use:   "set <tool-id> <field> <value>",
		Short: "Validate and store one setting",
		Long: `Validate and store one setting the way the settings screen does.

Toggles take true or false, sliders take a number and dropdowns take an
option value or label. In text areas a literal \n separates lines.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, name, raw := args[0], args[1], args[2]
			return a.withToolbox(cmd, false, func(ctx context.Context, tb *toolbox.Toolbox) error {
				field, err := tb.Field(id, name)
				if err != nil {
					return err
				}
				value, err := parseFieldValue(field, raw)
				if err != nil {
					return err
				}

				engine, err := tb.Settings(id, settings.NewForm())
				if err != nil {
					return err
				}
				defer engine.Close()
				if !engine.Visible(name) {
					return fmt.Errorf("%s is hidden by the current settings", name)
				}
				if err := engine.UpdateValue(ctx, name, value); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s.%s updated\n", id, name)
				return nil
			})
		},
	}

	cmd.AddCommand(get, set)
	return cmd
}

// parseFieldValue converts command line text to the value type of the
// field's kind. A literal \n in a text area value separates lines.
func parseFieldValue(f form.Field, raw string) (any, error) {
	if f.Kind == form.KindTextArea {
		return strings.ReplaceAll(raw, `\n`, "\n"), nil
	}
	return form.Coerce(f, raw)
}

func (a *app) prefsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Show the general preferences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withToolbox(cmd, false, func(_ context.Context, tb *toolbox.Toolbox) error {
				doc := config.Document{}
				tb.Registry.Preferences().ApplyTo(doc)
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(doc)
			})
		},
	}

	set := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change a general preference",
		Long: `Change a general preference.

Keys: sortBy (name|enabled), viewMode (list|grid), openMode (tab|modal),
autoCollapseGeneralSettings (true|false).`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withToolbox(cmd, false, func(ctx context.Context, tb *toolbox.Toolbox) error {
				var setErr error
				err := tb.Registry.UpdatePreferences(ctx, func(p *config.Preferences) {
					setErr = p.Set(args[0], args[1])
				})
				if setErr != nil {
					return setErr
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s set to %s\n", args[0], args[1])
				return nil
			})
		},
	}

	cmd.AddCommand(set)
	return cmd
}
