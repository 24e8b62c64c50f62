package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/smazurov/videowall/internal/api"
	"github.com/smazurov/videowall/internal/catalog"
	"github.com/smazurov/videowall/internal/compositor"
	"github.com/smazurov/videowall/internal/config"
	"github.com/smazurov/videowall/internal/decode"
	"github.com/smazurov/videowall/internal/display"
	"github.com/smazurov/videowall/internal/events"
	"github.com/smazurov/videowall/internal/ffmpeg"
	"github.com/smazurov/videowall/internal/imaging"
	"github.com/smazurov/videowall/internal/logging"
	"github.com/smazurov/videowall/internal/metrics"
	"github.com/smazurov/videowall/internal/stream"
	"github.com/smazurov/videowall/internal/systemd"
	"github.com/smazurov/videowall/internal/version"
	"github.com/smazurov/videowall/internal/wall"
)

// wallArgs are the positional arguments of the root command.
type wallArgs struct {
	Root         string
	GridWidth    int
	GridHeight   int
	WindowWidth  int // 0 = primary display
	WindowHeight int
}

func parseArgs(args []string) (wallArgs, error) {
	if len(args) < 3 || len(args) > 5 {
		return wallArgs{}, fmt.Errorf("want 3 to 5 arguments, got %d", len(args))
	}
	if len(args) == 4 {
		return wallArgs{}, errors.New("window width and height must be given together")
	}

	var err error
	a := wallArgs{Root: args[0]}
	if a.GridWidth, err = positiveInt("grid width", args[1]); err != nil {
		return wallArgs{}, err
	}
	if a.GridHeight, err = positiveInt("grid height", args[2]); err != nil {
		return wallArgs{}, err
	}
	if len(args) == 5 {
		if a.WindowWidth, err = positiveInt("window width", args[3]); err != nil {
			return wallArgs{}, err
		}
		if a.WindowHeight, err = positiveInt("window height", args[4]); err != nil {
			return wallArgs{}, err
		}
	}
	return a, nil
}

func positiveInt(name, s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", name, s)
	}
	return n, nil
}

// runWall plays the wall until the window closes, a quit key is pressed or
// the process is signalled. It must run on the main goroutine.
func runWall(parent context.Context, opts *config.Options, args wallArgs) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := logging.GetLogger("main")
	logger.Info("Starting video wall", "version", version.Get().Version, "root", args.Root,
		"grid", fmt.Sprintf("%dx%d", args.GridWidth, args.GridHeight))

	paths, err := catalog.Scan(args.Root, opts.NormalizedExtensions())
	if err != nil {
		return err
	}
	logger.Info("Sources found", "count", len(paths))

	targetW, targetH := args.WindowWidth, args.WindowHeight
	if targetW == 0 {
		targetW, targetH = display.PrimaryDisplaySize()
	}
	geometry, err := compositor.NewGeometry(args.GridWidth, args.GridHeight, targetW, targetH)
	if err != nil {
		return err
	}
	canvasW, canvasH := geometry.CanvasSize()
	logger.Info("Geometry", "layout", geometry.String(), "canvas", fmt.Sprintf("%dx%d", canvasW, canvasH))

	fitter, err := imaging.NewFitter(opts.Scaler)
	if err != nil {
		return err
	}

	inputOptions, err := ffmpeg.ParseOptions(splitList(opts.InputOptions))
	if err != nil {
		return err
	}

	bus := events.New()
	decoder := decode.NewFFmpeg(decode.FFmpegOptions{
		InputOptions: inputOptions,
		Threads:      opts.DecodeThreads,
		MaxWidth:     opts.MaxDecodeWidth,
	})

	pool, err := wall.NewPool(wall.PoolOptions{
		GridWidth:  args.GridWidth,
		GridHeight: args.GridHeight,
		Decoder:    decoder,
		Stream: stream.Options{
			Capacity: opts.Capacity,
			Loop:     opts.Loop,
		},
		Rand: newRand(opts.Seed),
		Bus:  bus,
	})
	if err != nil {
		return err
	}
	defer pool.Teardown()

	pool.SetCatalog(paths)
	assigned, err := pool.Assign(ctx, paths)
	if err != nil {
		return err
	}

	notifier := systemd.NewNotifier(nil)
	defer notifier.FollowEvents(bus)()
	notifier.Status("Playing %d of %d slots from %d sources", assigned, geometry.Cells(), len(paths))

	disp, err := display.New(display.Options{
		Title:      display.DefaultTitle,
		Fullscreen: opts.Fullscreen,
		Actions: display.Actions{
			TogglePause: pool.TogglePause,
			Reshuffle: func() {
				if err := pool.Reshuffle(ctx); err != nil {
					logger.Warn("Reshuffle failed", "error", err)
				}
			},
			Quit:   cancel,
			Paused: pool.Paused,
		},
	}, canvasW, canvasH)
	if err != nil {
		return err
	}

	comp, err := compositor.New(compositor.Config{
		Geometry: geometry,
		Fitter:   fitter,
		Sink:     disp,
		Pool:     pool,
	})
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	refresh := time.Second / time.Duration(opts.RefreshRate)
	wg.Go(func() {
		if err := comp.Run(ctx, refresh); err != nil {
			logger.Error("Render loop failed", "error", err)
		}
		// A closed display ends the render loop; stop everything else too.
		cancel()
	})

	var watcher *catalog.Watcher
	if opts.WatchCatalog {
		watcher = catalog.NewWatcher(catalog.WatcherOptions{
			Root:       args.Root,
			Extensions: opts.NormalizedExtensions(),
			Target:     pool,
			Bus:        bus,
		})
		if err := watcher.Start(); err != nil {
			logger.Warn("Catalog watcher not started", "error", err)
			watcher = nil
		}
	}

	var server *api.Server
	if opts.APIListen != "" {
		server = api.NewServer(&api.Options{
			Wall:           pool,
			EventBus:       bus,
			MetricsHandler: metrics.HTTPHandler(),
		})
		wg.Go(func() {
			if err := server.Start(opts.APIListen); err != nil {
				logger.Error("API server failed", "error", err)
			}
		})
	}

	wg.Go(func() { notifier.RunWatchdog(ctx) })
	notifier.Ready()

	runErr := disp.Run(ctx)
	cancel()
	logger.Info("Shutting down")
	notifier.Stopping()

	if server != nil {
		if err := server.Stop(); err != nil {
			logger.Warn("Error stopping API server", "error", err)
		}
	}
	if watcher != nil {
		if err := watcher.Stop(); err != nil {
			logger.Warn("Error stopping catalog watcher", "error", err)
		}
	}
	wg.Wait()
	return runErr
}

func newRand(seed int) *rand.Rand {
	if seed == 0 {
		return nil
	}
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)))
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
