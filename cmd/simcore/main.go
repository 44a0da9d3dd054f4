package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/zeusync/simcore/internal/config"
	"github.com/zeusync/simcore/internal/core/events/bus"
	"github.com/zeusync/simcore/internal/core/observability/log"
	"github.com/zeusync/simcore/internal/core/sim/request"
	"github.com/zeusync/simcore/internal/core/sim/world"
	"github.com/zeusync/simcore/internal/runner"
)

func main() {
	var (
		configPath   = flag.String("config", "", "path to a YAML config file")
		scenarioPath = flag.String("scenario", "", "run a JSON or YAML scenario and print its summary")
		batch        = flag.Bool("batch", false, "read all request lines first and evaluate them in parallel")
		tracePath    = flag.String("trace", "", "write a per-frame trace (overrides trace.path)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error loading config:", err)
		os.Exit(2)
	}
	if *tracePath != "" {
		cfg.Trace.Path = *tracePath
	}

	logger := log.New(cfg.Level())
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case *scenarioPath != "":
		err = runScenario(ctx, cfg, logger, *scenarioPath, os.Stdout)
	case *batch:
		err = serveBatch(ctx, cfg, logger, os.Stdin, os.Stdout)
	default:
		err = serve(ctx, cfg, logger, os.Stdin, os.Stdout)
	}
	if err != nil && ctx.Err() == nil {
		logger.Error("simcore failed", log.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func newDispatcher(cfg config.Config, logger log.Log) *request.Dispatcher {
	return request.NewDispatcher(logger,
		request.WithMode(cfg.Mode),
		request.WithWorldValidation(cfg.ValidateWorld),
		request.WithErrorDetail(cfg.ErrorDetail))
}

func newScanner(cfg config.Config, in io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), cfg.MaxLineBytes)
	return sc
}

// readLines scans non-blank lines from sc on its own goroutine so callers can
// stop waiting on ctx. The error channel receives exactly one value once the
// line channel is closed.
func readLines(ctx context.Context, sc *bufio.Scanner) (<-chan []byte, <-chan error) {
	lines := make(chan []byte)
	errc := make(chan error, 1)
	go func() {
		var err error
		defer func() {
			close(lines)
			errc <- err
		}()
		for sc.Scan() {
			line := sc.Bytes()
			if len(bytes.TrimSpace(line)) == 0 {
				continue
			}
			select {
			case lines <- append([]byte(nil), line...):
			case <-ctx.Done():
				err = ctx.Err()
				return
			}
		}
		err = sc.Err()
	}()
	return lines, errc
}

// serve answers one request per input line until EOF or cancellation.
func serve(ctx context.Context, cfg config.Config, logger log.Log, in io.Reader, out io.Writer) error {
	d := newDispatcher(cfg, logger)
	w := bufio.NewWriter(out)
	lines, errc := readLines(ctx, newScanner(cfg, in))

	logger.Info("Serving requests", log.String("mode", cfg.Mode))
	for {
		select {
		case <-ctx.Done():
			logger.Info("Serving stopped", log.Error(ctx.Err()))
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return <-errc
			}
			if _, err := w.Write(d.ProcessLine(line)); err != nil {
				return err
			}
			if err := w.WriteByte('\n'); err != nil {
				return err
			}
			if err := w.Flush(); err != nil {
				return err
			}
		}
	}
}

func serveBatch(ctx context.Context, cfg config.Config, logger log.Log, in io.Reader, out io.Writer) error {
	d := newDispatcher(cfg, logger)
	lines, errc := readLines(ctx, newScanner(cfg, in))

	var batch [][]byte
collect:
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				break collect
			}
			batch = append(batch, line)
		}
	}
	if err := <-errc; err != nil {
		return err
	}

	logger.Info("Evaluating batch", log.Int("requests", len(batch)), log.Int("workers", cfg.Workers))
	responses, err := d.ProcessBatch(ctx, batch, cfg.Workers)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(out)
	for _, resp := range responses {
		if _, err = w.Write(resp); err != nil {
			return err
		}
		if err = w.WriteByte('\n'); err != nil {
			return err
		}
	}
	return w.Flush()
}

func runScenario(ctx context.Context, cfg config.Config, logger log.Log, path string, out io.Writer) error {
	sc, err := loadScenario(path)
	if err != nil {
		return err
	}

	var opts []runner.Option
	if cfg.Trace.Path != "" {
		tw, err := runner.OpenTrace(cfg.Trace.Path, cfg.Trace.Compress)
		if err != nil {
			return fmt.Errorf("open trace: %w", err)
		}
		defer func() { _ = tw.Close() }()
		opts = append(opts, runner.WithTrace(tw))
	}

	r := runner.New(logger, bus.New(), cfg.Runner, opts...)
	summary, err := r.Run(ctx, *sc)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}

func loadScenario(path string) (*world.Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return world.LoadYAML(f)
	default:
		return world.LoadJSON(f)
	}
}
