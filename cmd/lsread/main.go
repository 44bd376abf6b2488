// Command lsread reads a LedgerStream stream to stdout, one JSON
// event per line.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/c360/ledgerstream"
	"github.com/c360/ledgerstream/config"
	"github.com/c360/ledgerstream/stream"
)

// Build information constants
const (
	Version = "0.1.0"
	appName = "lsread"
)

func main() {
	if err := run(); err != nil {
		slog.Error("read failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := parseFlags()
	if err := validateFlags(cfg); err != nil {
		flag.Usage()
		return fmt.Errorf("invalid flags: %w", err)
	}

	if cfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil
	}
	if cfg.ShowHelp {
		flag.Usage()
		return nil
	}

	logger := setupLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	settings, err := loadSettings(cfg)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := ledgerstream.Connect(ctx, settings, ledgerstream.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := client.Close(closeCtx); err != nil {
			logger.Warn("session close reported errors", "error", err)
		}
	}()

	if err := client.Ready(ctx); err != nil {
		return fmt.Errorf("session never became available: %w", err)
	}

	events, err := openRead(ctx, client, cfg)
	if err != nil {
		return err
	}
	return emit(events, cfg.Count)
}

func loadSettings(cfg *CLIConfig) (*config.Settings, error) {
	if cfg.URL != "" {
		return config.ParseConnectionString(cfg.URL)
	}
	if cfg.ConfigPath != "" {
		return config.NewLoader().LoadFile(cfg.ConfigPath)
	}
	return config.DefaultSettings(), nil
}

func openRead(
	ctx context.Context, client *ledgerstream.Client, cfg *CLIConfig,
) (iter.Seq2[stream.ResolvedEvent, error], error) {
	var opts []ledgerstream.ReadOption
	if cfg.PageSize > 0 {
		opts = append(opts, ledgerstream.WithPageSize(cfg.PageSize))
	}
	if cfg.ResolveLinks {
		opts = append(opts, ledgerstream.WithResolvedLinks())
	}

	if cfg.All {
		from, err := parseAllCursor(cfg.From, cfg.Backward)
		if err != nil {
			return nil, err
		}
		if cfg.Backward {
			return client.ReadAllBackward(ctx, from, opts...), nil
		}
		return client.ReadAllForward(ctx, from, opts...), nil
	}

	from, err := parseStreamCursor(cfg.From, cfg.Backward)
	if err != nil {
		return nil, err
	}
	if cfg.Backward {
		return client.ReadStreamBackward(ctx, cfg.Stream, from, opts...), nil
	}
	return client.ReadStreamForward(ctx, cfg.Stream, from, opts...), nil
}

func parseStreamCursor(raw string, backward bool) (stream.EventNumber, error) {
	switch raw {
	case "":
		if backward {
			return stream.StreamEnd, nil
		}
		return stream.StreamStart, nil
	case "start":
		return stream.StreamStart, nil
	case "end":
		return stream.StreamEnd, nil
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid -from %q: %w", raw, err)
	}
	return stream.EventNumber(n), nil
}

func parseAllCursor(raw string, backward bool) (stream.Position, error) {
	switch raw {
	case "":
		if backward {
			return stream.PositionEnd, nil
		}
		return stream.PositionStart, nil
	case "start":
		return stream.PositionStart, nil
	case "end":
		return stream.PositionEnd, nil
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return stream.Position{}, fmt.Errorf("invalid -from %q: %w", raw, err)
	}
	return stream.Position{Commit: n, Prepare: n}, nil
}

func emit(events iter.Seq2[stream.ResolvedEvent, error], limit int64) error {
	encoder := json.NewEncoder(os.Stdout)

	var emitted int64
	for event, err := range events {
		if err != nil {
			return err
		}
		if err := encoder.Encode(event); err != nil {
			return fmt.Errorf("write event: %w", err)
		}
		emitted++
		if limit > 0 && emitted >= limit {
			break
		}
	}

	slog.Info("read complete", "events", emitted)
	return nil
}
