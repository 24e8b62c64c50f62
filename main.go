package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/spf13/cobra"

	"github.com/smazurov/videowall/cmd"
	"github.com/smazurov/videowall/internal/config"
	"github.com/smazurov/videowall/internal/logging"
	"github.com/smazurov/videowall/internal/version"
)

const usage = "videowall <root-dir> <grid-width> <grid-height> [window-width] [window-height]"

func main() {
	var opts *config.Options
	var cli humacli.CLI

	cli = humacli.New(func(_ humacli.Hooks, o *config.Options) {
		opts = o
		if loadErr := config.LoadConfig(o, cli.Root()); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		loggingConfig := config.LoadLoggingConfig(o.Config)
		loggingConfig.Level = o.LoggingLevel
		loggingConfig.Format = o.LoggingFormat
		logging.Initialize(loggingConfig)
	})

	root := cli.Root()
	root.Use = usage
	root.Short = "Play a directory of videos in a grid"
	root.Long = `Plays every video in <root-dir> in a <grid-width> x <grid-height> wall, looping ` +
		`each source at its own frame rate. The window defaults to the primary display size.

Keys: space pause/resume, r reshuffle, q or escape quit, F11 fullscreen.`
	root.Version = version.Get().String()
	root.SilenceUsage = true
	root.SilenceErrors = true

	// The window must own the main goroutine, so the wall runs from RunE
	// instead of a humacli start hook (those run on a separate goroutine).
	root.RunE = func(c *cobra.Command, args []string) error {
		logger := logging.GetLogger("main")

		wallArgs, err := parseArgs(args)
		if err != nil {
			logger.Error("Invalid arguments", "error", err, "usage", usage)
			os.Exit(1)
		}
		if err := opts.Validate(); err != nil {
			logger.Error("Invalid options", "error", err)
			os.Exit(1)
		}
		if err := runWall(c.Context(), opts, wallArgs); err != nil {
			logger.Error("Video wall failed", "error", err)
			os.Exit(1)
		}
		return nil
	}

	root.AddCommand(cmd.CreateProbeCmd(func() *config.Options { return opts }))
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(c *cobra.Command, _ []string) {
			fmt.Fprintln(c.OutOrStdout(), version.Get().String())
		},
	})

	cli.Run()
}
