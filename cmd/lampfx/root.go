package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newRootCmd builds the command tree. It is rebuilt per call so tests get
// fresh flag state.
func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "lampfx",
		Short: "lampfx - lighting effects engine for addressable lamp arrays",
		Long: `lampfx renders animated lighting effects onto lamp arrays such as
RGB keyboards. Arrays are discovered over MQTT or previewed in the terminal,
and effects can be changed at runtime through the HTTP API.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", getConfigPath(), "path to the YAML configuration file")

	root.AddCommand(
		newRunCmd(&configPath),
		newPreviewCmd(&configPath),
		newDevicesCmd(&configPath),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "lampfx %s\ncommit: %s\nbuilt:  %s\n", version, commit, date)
		},
	}
}

func newRunCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the effects engine",
		Long: `Run loads the configuration, discovers lamp arrays and renders the
configured effect until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, runOptions{out: cmd.OutOrStdout()})
		},
	}
}

func newPreviewCmd(configPath *string) *cobra.Command {
	var (
		lamps     int
		columns   int
		noConfig  bool
		forceCols bool
	)

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Render effects onto a virtual keyboard in the terminal",
		Long: `Preview runs the engine against a single virtual lamp array drawn as
true-colour blocks. MQTT discovery and the device inventory are disabled;
the HTTP API stays available when enabled.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := previewConfig(*configPath, noConfig)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("lamps") {
				cfg.Console.Lamps = lamps
			}
			if cmd.Flags().Changed("columns") {
				cfg.Console.Columns = columns
			}
			return run(cmd.Context(), cfg, runOptions{
				out:        cmd.OutOrStdout(),
				preview:    true,
				forceColor: forceCols,
			})
		},
	}
	cmd.Flags().IntVar(&lamps, "lamps", 24, "number of virtual lamps")
	cmd.Flags().IntVar(&columns, "columns", 12, "lamps per terminal row")
	cmd.Flags().BoolVar(&noConfig, "no-config", false, "ignore the configuration file and use defaults")
	cmd.Flags().BoolVar(&forceCols, "force-color", false, "emit colour even when stdout is not a terminal")
	return cmd
}
