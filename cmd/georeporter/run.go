package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"georeporter/internal/collector"
	"georeporter/internal/config"
	"georeporter/internal/core"
	"georeporter/internal/location"
	"georeporter/internal/logging"
	"georeporter/internal/progress"
	"georeporter/internal/ratelimit"
	"georeporter/internal/reporter"
	"georeporter/internal/session"
	"georeporter/internal/transport"
)

const (
	sessionCheckInterval = time.Second
	shutdownTimeout      = 15 * time.Second
)

type runOptions struct {
	configPath string
	disabled   bool
	verbose    bool
	quiet      bool
	output     string
	duration   time.Duration
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Replay readings and report them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReporter(cmd.Context(), opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.configPath, "config", "c", "georeporter.yaml", "path to YAML config file")
	f.BoolVar(&opts.disabled, "disabled", false, "start with reporting disabled")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug output (request/response logging)")
	f.BoolVarP(&opts.quiet, "quiet", "q", false, "suppress progress output")
	f.StringVarP(&opts.output, "output", "o", "text", "summary format: text, json")
	f.DurationVar(&opts.duration, "duration", 0, "stop after this long (0 = until interrupted)")
	return cmd
}

func runReporter(ctx context.Context, opts *runOptions, stdout, stderr io.Writer) error {
	if opts.output != "text" && opts.output != "json" {
		return fmt.Errorf("--output must be 'text' or 'json', got %q", opts.output)
	}

	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		return err
	}
	if cfg.Location.File == "" {
		return errors.New("location.file is required for run")
	}
	if opts.verbose {
		cfg.Log.Level = "debug"
	}

	logger, closeLog, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer closeLog()

	src, err := location.LoadFile(cfg.Location.File, location.Mode(cfg.Location.Mode))
	if err != nil {
		return err
	}

	store := session.NewStore(core.RealClock{})
	if cfg.Session.AccessToken != "" {
		if err := store.Set(cfg.Session.AccessToken); err != nil {
			logger.Warn().Err(err).Msg("access token rejected, starting signed out")
		}
	}

	invoker, err := newInvoker(cfg, store, logger, opts.verbose)
	if err != nil {
		return err
	}

	coll := collector.NewCollector()
	rep := reporter.New(invoker,
		reporter.WithLogger(logger),
		reporter.WithRecorder(coll),
	)
	unsubscribe := store.Subscribe(func(id *core.Identity) {
		if id == nil {
			logger.Info().Msg("session ended")
		}
		rep.SetSession(id)
	})
	defer unsubscribe()

	rep.Observe(reporter.Inputs{
		Enabled: cfg.Reporter.IsEnabled() && !opts.disabled,
		Session: store.Current(),
	})

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if opts.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.duration)
		defer cancel()
	}

	prog := progress.NewProgress(coll, opts.quiet || opts.verbose)
	prog.SetOutput(stderr)
	prog.Printf("georeporter starting: %d readings from %s every %v, endpoint %s",
		src.Len(), cfg.Location.File, cfg.Location.Interval, invoker.Endpoint())
	prog.Start()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return location.Replay(gctx, src, cfg.Location.Interval, core.RealClock{}, func(s *core.Sample) {
			rep.SetLocation(s)
		})
	})
	g.Go(func() error {
		return watchSession(gctx, store, sessionCheckInterval)
	})

	runErr := g.Wait()
	prog.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := rep.Close(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("shutdown did not wait for in-flight report")
	}
	coll.Close()

	if runErr != nil && !errors.Is(runErr, context.Canceled) && !errors.Is(runErr, context.DeadlineExceeded) {
		return runErr
	}

	summary := coll.Summarize()
	thresholds := cfg.Thresholds.Check(summary)
	if opts.output == "json" {
		collector.FormatJSON(stdout, summary, thresholds)
	} else {
		collector.FormatText(stdout, summary, thresholds)
	}

	if !thresholds.Passed {
		return errThresholdFailed
	}
	return nil
}

func newInvoker(cfg *config.Config, tokens core.TokenSource, logger zerolog.Logger, verbose bool) (*transport.FunctionInvoker, error) {
	var debug *transport.DebugLogger
	if verbose {
		debug = transport.NewDebugLogger(logger.With().Str("component", "transport").Logger())
	}

	return transport.NewFunctionInvoker(transport.Options{
		BaseURL:  cfg.Remote.BaseURL,
		Function: cfg.Remote.Function,
		APIKey:   cfg.Remote.APIKey,
		Headers:  cfg.Remote.Headers,
		Tokens:   tokens,
		Client:   &http.Client{Timeout: cfg.Remote.Timeout},
		Limiter:  ratelimit.NewLimiter(cfg.Remote.MaxRPS),
		Debug:    debug,
	})
}

// watchSession polls the store so an expiring token ends the session
// even while no readings arrive.
func watchSession(ctx context.Context, store *session.Store, every time.Duration) error {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			store.Current()
		}
	}
}
