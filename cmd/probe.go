// Package cmd holds the videowall subcommands.
package cmd

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/smazurov/videowall/internal/catalog"
	"github.com/smazurov/videowall/internal/config"
	"github.com/smazurov/videowall/internal/decode"
	"github.com/smazurov/videowall/internal/ffmpeg"
	"github.com/smazurov/videowall/internal/logging"
)

// Prober reads stream parameters of a source.
type Prober interface {
	Probe(ctx context.Context, path string) (ffmpeg.ProbeResult, error)
}

// CreateProbeCmd creates the probe command. opts returns the parsed global
// options when the command runs.
func CreateProbeCmd(opts func() *config.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "probe <root-dir>",
		Short: "List sources with their size and frame interval",
		Long: `Scans the root directory the way the wall does and runs ffprobe on every ` +
			`matching source, printing its size, frame rate and presentation interval.`,
		Args: cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			o := opts()
			prober := decode.NewFFmpeg(decode.FFmpegOptions{Logger: logging.GetLogger("decode")})
			failed, err := RunProbe(c.Context(), c.OutOrStdout(), args[0], o.NormalizedExtensions(), prober)
			if err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d source(s) could not be probed", failed)
			}
			return nil
		},
		SilenceUsage: true,
	}
}

// RunProbe writes one line per source to w and returns how many failed.
func RunProbe(ctx context.Context, w io.Writer, root string, exts []string, p Prober) (int, error) {
	paths, err := catalog.Scan(root, exts)
	if err != nil {
		return 0, err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SOURCE\tSIZE\tFPS\tINTERVAL")

	failed := 0
	for _, path := range paths {
		if ctx.Err() != nil {
			return failed, ctx.Err()
		}
		name := filepath.Base(path)
		res, err := p.Probe(ctx, path)
		if err != nil {
			failed++
			fmt.Fprintf(tw, "%s\terror: %v\t\t\n", name, err)
			continue
		}
		interval := "unknown"
		if d := res.FrameInterval(); d > 0 {
			interval = d.String()
		}
		fmt.Fprintf(tw, "%s\t%dx%d\t%.3f\t%s\n", name, res.Width, res.Height, res.FPS, interval)
	}
	return failed, tw.Flush()
}
