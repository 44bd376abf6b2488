package main

import (
	"flag"
	"fmt"
	"os"
	"time"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigPath      string
	URL             string
	Stream          string
	All             bool
	Backward        bool
	From            string
	Count           int64
	PageSize        int
	ResolveLinks    bool
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	ShowVersion     bool
	ShowHelp        bool
}

func parseFlags() *CLIConfig {
	cfg := &CLIConfig{}

	flag.StringVar(&cfg.ConfigPath, "config",
		getEnv("LSREAD_CONFIG", ""),
		"Path to settings file (env: LSREAD_CONFIG)")

	flag.StringVar(&cfg.URL, "url",
		getEnv("LSREAD_URL", ""),
		"Connection string, overrides -config (env: LSREAD_URL)")

	flag.StringVar(&cfg.Stream, "stream", "", "Named stream to read")
	flag.BoolVar(&cfg.All, "all", false, "Read the global stream instead of a named one")
	flag.BoolVar(&cfg.Backward, "backward", false, "Read toward the start instead of the tail")
	flag.StringVar(&cfg.From, "from", "",
		"Cursor to start from: an event number, \"start\" (default), or \"end\"")
	flag.Int64Var(&cfg.Count, "count", 0, "Stop after this many events, 0 for all")
	flag.IntVar(&cfg.PageSize, "page-size", 0, "Events per server round trip, 0 for the default")
	flag.BoolVar(&cfg.ResolveLinks, "resolve-links", false, "Follow link events")

	flag.StringVar(&cfg.LogLevel, "log-level",
		getEnv("LSREAD_LOG_LEVEL", "warn"),
		"Log level: debug, info, warn, error (env: LSREAD_LOG_LEVEL)")

	flag.StringVar(&cfg.LogFormat, "log-format",
		getEnv("LSREAD_LOG_FORMAT", "text"),
		"Log format: json, text (env: LSREAD_LOG_FORMAT)")

	flag.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", 10*time.Second,
		"Graceful shutdown timeout")

	flag.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	flag.BoolVar(&cfg.ShowHelp, "help", false, "Show help information")
	flag.BoolVar(&cfg.ShowHelp, "h", false, "Show help information")

	flag.Parse()
	return cfg
}

func validateFlags(cfg *CLIConfig) error {
	if cfg.ShowVersion || cfg.ShowHelp {
		return nil
	}
	if cfg.Stream == "" && !cfg.All {
		return fmt.Errorf("either -stream or -all is required")
	}
	if cfg.Stream != "" && cfg.All {
		return fmt.Errorf("-stream and -all are mutually exclusive")
	}
	if cfg.Count < 0 {
		return fmt.Errorf("-count cannot be negative")
	}
	if cfg.PageSize < 0 {
		return fmt.Errorf("-page-size cannot be negative")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
