package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aluiziolira/go-books-dashboard/config"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configFile    string
	verbose       bool
	pages         int
	baseURL       string
	dataFile      string
	format        string
	respectRobots bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "books-dashboard",
		Short:         "Scrape, store, filter and chart book listings.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			logger, level := newLogger(opts.verbose)
			slog.SetDefault(logger)
			slog.SetLogLoggerLevel(level.Level())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "JSON5 config file (a .local sibling overrides it)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose logging")
	flags.IntVar(&opts.pages, "pages", 0, "Catalogue pages to scrape")
	flags.StringVar(&opts.baseURL, "base-url", "", "Listing URL template with a {page} placeholder")
	flags.StringVar(&opts.dataFile, "data-file", "", "CSV data file")
	flags.StringVar(&opts.format, "format", "", "Scrape output format: csv, json, or dual")
	flags.BoolVar(&opts.respectRobots, "respect-robots", false, "Respect robots.txt directives")

	root.AddCommand(newServeCmd(opts), newScrapeCmd(opts), newShowCmd(opts))
	return root
}

// loadConfig layers flags that were set explicitly over file and environment
// settings.
func loadConfig(cmd *cobra.Command, opts *rootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("pages") {
		cfg.PageCount = opts.pages
	}
	if flags.Changed("base-url") {
		cfg.BaseURL = opts.baseURL
	}
	if flags.Changed("data-file") {
		cfg.DataFile = opts.dataFile
	}
	if flags.Changed("format") {
		cfg.OutputFormat = strings.ToLower(opts.format)
	}
	if flags.Changed("respect-robots") {
		cfg.RespectRobotsTxt = opts.respectRobots
	}
	cfg.Verbose = opts.verbose

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	if isTerminal(os.Stderr) {
		logLevel := log.InfoLevel
		if verbose {
			logLevel = log.DebugLevel
		}
		handler := log.NewWithOptions(os.Stderr, log.Options{
			Level:           logLevel,
			ReportTimestamp: true,
			TimeFormat:      time.Kitchen,
		})
		return slog.New(handler), level
	}

	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
