package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/entrhq/toolbox/pkg/logging"
	"github.com/entrhq/toolbox/pkg/tool"
	"github.com/entrhq/toolbox/pkg/toolbox"
)

// app carries the state shared by every subcommand.
type app struct {
	v      *viper.Viper
	logger *logging.Logger
}

// boundFlags are read through viper so TOOLBOX_* variables and the config
// file can supply them.
var boundFlags = []string{"vault", "store", "plugin-id", "verbose"}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "toolbox",
		Short: "Tools and settings for a Markdown vault",
		Long: `toolbox manages a set of small tools working on a folder of Markdown notes.

Tools are enabled and configured per vault. Settings live in
<vault>/.toolbox/data.json unless --store says otherwise.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.initialize(cmd)
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if a.logger != nil {
				_ = a.logger.Close()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "CLI config file (yaml, json or toml)")
	flags.StringP("vault", "d", ".", "vault folder")
	flags.String("store", "", "settings file (default is <vault>/.toolbox/data.json)")
	flags.String("plugin-id", "", "prefix of palette command ids")
	flags.BoolP("verbose", "v", false, "log to stderr instead of the session log file")
	for _, name := range boundFlags {
		_ = a.v.BindPFlag(name, flags.Lookup(name))
	}

	a.v.SetEnvPrefix("TOOLBOX")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	root.AddCommand(
		a.toolsCmd(),
		a.enableCmd(),
		a.disableCmd(),
		a.configCmd(),
		a.prefsCmd(),
		a.commandsCmd(),
		a.runCmd(),
		a.menuCmd(),
		a.watchCmd(),
		a.settingsCmd(),
	)
	return root
}

func (a *app) initialize(cmd *cobra.Command) error {
	if cfgFile, _ := cmd.Flags().GetString("config"); cfgFile != "" {
		a.v.SetConfigFile(cfgFile)
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if a.v.GetBool("verbose") {
		a.logger = logging.NewWriterLogger("toolbox", cmd.ErrOrStderr())
		return nil
	}
	// A logger that cannot open its file falls back to stderr.
	a.logger, _ = logging.NewLogger("toolbox")
	return nil
}

// open builds the application for one command. Tools that failed to load
// are logged and the toolbox is used anyway.
func (a *app) open(cmd *cobra.Command, watch bool) (*toolbox.Toolbox, error) {
	stderr := cmd.ErrOrStderr()
	tb, err := toolbox.Open(cmd.Context(), toolbox.Options{
		VaultRoot: a.v.GetString("vault"),
		StorePath: a.v.GetString("store"),
		PluginID:  a.v.GetString("plugin-id"),
		Watch:     watch,
		Logger:    a.logger,
		Notifier:  noticePrinter(stderr),
	})
	if tb == nil {
		return nil, err
	}
	if err != nil {
		a.logger.Warnf("%v", err)
	}
	return tb, nil
}

// withToolbox opens the toolbox, runs fn and closes it.
func (a *app) withToolbox(cmd *cobra.Command, watch bool, fn func(ctx context.Context, tb *toolbox.Toolbox) error) error {
	tb, err := a.open(cmd, watch)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	runErr := fn(ctx, tb)
	if err := tb.Close(ctx); err != nil {
		a.logger.Errorf("failed to close toolbox: %v", err)
	}
	return runErr
}

func noticePrinter(w io.Writer) tool.Notifier {
	return tool.NotifierFunc(func(message string, _ time.Duration) {
		fmt.Fprintln(w, message)
	})
}

// newTable returns a borderless table writer mirroring to w.
func newTable(w io.Writer, header ...any) table.Writer {
	style := table.StyleDefault
	style.Options = table.OptionsNoBordersAndSeparators
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(style)
	tw.AppendHeader(table.Row(header))
	return tw
}
