package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/aluiziolira/go-books-dashboard/chart"
	"github.com/aluiziolira/go-books-dashboard/dashboard"
	"github.com/aluiziolira/go-books-dashboard/models"
	"github.com/briandowns/spinner"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard over HTTP.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("listen") {
				cfg.ListenAddr = listen
			}

			reg := prometheus.NewRegistry()
			d, err := dashboard.New(cfg, dashboard.WithRegistry(reg))
			if err != nil {
				return err
			}
			srv, err := dashboard.NewServer(d, reg)
			if err != nil {
				return err
			}

			slog.Info("starting dashboard",
				slog.String("addr", cfg.ListenAddr),
				slog.String("data_file", cfg.DataFile),
				slog.Int("pages", cfg.PageCount),
			)
			return srv.ListenAndServe(cmd.Context(), cfg.ListenAddr)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "Listen address (default from config, :8501)")
	return cmd
}

func newScrapeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "scrape",
		Short: "Scrape the listing site and save the data file.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			d, err := dashboard.New(cfg)
			if err != nil {
				return err
			}

			report := withSpinner(" Scraping book data from website...", func() *dashboard.Report {
				return d.Scrape(cmd.Context())
			})

			out := cmd.OutOrStdout()
			dashboard.NewTerminalRenderer(out, 0).Report(report)
			printSummary(cmd, report, cfg.DataFile)
			return report.Err
		},
	}
}

func newShowCmd(opts *rootOptions) *cobra.Command {
	var (
		source   string
		maxPrice int
		search   string
		advanced bool
		export   string
		chartDir string
		rows     int
	)
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Load a table and print every dashboard section.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			d, err := dashboard.New(cfg)
			if err != nil {
				return err
			}

			var report *dashboard.Report
			switch source {
			case "csv":
				report = d.LoadCSV(cmd.Context())
			case "scrape":
				report = withSpinner(" Scraping book data from website...", func() *dashboard.Report {
					return d.Scrape(cmd.Context())
				})
			case "db":
				report = d.LoadDatabase(cmd.Context())
			default:
				return fmt.Errorf("unknown source %q (want csv, scrape, or db)", source)
			}

			r := dashboard.NewTerminalRenderer(cmd.OutOrStdout(), rows)
			r.Report(report)
			if report.Err != nil {
				return report.Err
			}

			params := dashboard.Params{Search: search, Advanced: advanced}
			if cmd.Flags().Changed("max-price") {
				params.MaxPrice = &maxPrice
			}
			r.View(d.Snapshot(params))

			if export != "" {
				if err := writeExport(d, params, export); err != nil {
					return err
				}
			}
			if chartDir != "" {
				if err := writeCharts(d, chartDir, advanced); err != nil {
					return err
				}
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&source, "source", "csv", "Where to load from: csv, scrape, or db")
	flags.IntVar(&maxPrice, "max-price", 0, "Price ceiling (default min(max price, 50))")
	flags.StringVar(&search, "search", "", "Title search term")
	flags.BoolVar(&advanced, "advanced", false, "Include histogram and box plot")
	flags.StringVar(&export, "export", "", "Write the price-filtered view to this CSV file")
	flags.StringVar(&chartDir, "chart-dir", "", "Write SVG charts into this directory")
	flags.IntVar(&rows, "rows", dashboard.DefaultTerminalRows, "Rows printed per table")
	return cmd
}

func withSpinner(suffix string, fn func() *dashboard.Report) *dashboard.Report {
	if !isTerminal(os.Stderr) {
		return fn()
	}
	s := spinner.New(spinner.CharSets[9], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = suffix
	s.Start()
	defer s.Stop()
	return fn()
}

func writeExport(d *dashboard.Dashboard, params dashboard.Params, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export: %w", err)
	}
	if err := d.Export(f, params); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close export: %w", err)
	}
	slog.Info("exported filtered view", slog.String("path", path))
	return nil
}

func writeCharts(d *dashboard.Dashboard, dir string, advanced bool) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create chart directory: %w", err)
	}
	kinds := []chart.Kind{chart.KindBar}
	if advanced {
		kinds = append(kinds, chart.KindHistogram, chart.KindBox)
	}

	var errs []error
	for _, kind := range kinds {
		path := filepath.Join(dir, string(kind)+".svg")
		f, err := os.Create(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("create %s: %w", path, err))
			continue
		}
		err = d.Chart(f, kind)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			// A view error only disables the chart.
			if models.KindOf(err) == models.KindView {
				slog.Warn("chart skipped", slog.String("kind", string(kind)), slog.Any("error", err))
				os.Remove(path)
				continue
			}
			errs = append(errs, err)
			continue
		}
		slog.Info("wrote chart", slog.String("path", path))
	}
	return errors.Join(errs...)
}

func printSummary(cmd *cobra.Command, report *dashboard.Report, dataFile string) {
	out := cmd.OutOrStdout()
	separator := "--------------------------------------------------"
	fmt.Fprintln(out, "\n"+separator)
	fmt.Fprintln(out, "Scrape complete")

	fmt.Fprintf(out, "  Rows loaded:   %d\n", report.Rows)
	if res := report.Scrape; res != nil {
		successRate := 0.0
		if res.PageCount > 0 {
			successRate = float64(res.PageCount-res.FailedPages) / float64(res.PageCount) * 100
		}
		fmt.Fprintf(out, "  Pages:         %d\n", res.PageCount)
		fmt.Fprintf(out, "  Success rate:  %.2f%%\n", successRate)
		fmt.Fprintf(out, "  Requests:      %d\n", res.RequestCount)
		fmt.Fprintf(out, "  Skipped items: %d\n", res.SkippedItems)
		if len(res.ErrorsByType) > 0 {
			fmt.Fprintf(out, "  Error types:   %v\n", res.ErrorsByType)
		}
	}
	fmt.Fprintf(out, "  Diagnostics:   %d\n", len(report.Diagnostics))
	fmt.Fprintf(out, "  Duration:      %v\n", report.Duration)
	fmt.Fprintf(out, "  Output file:   %s\n", dataFile)
	fmt.Fprintln(out, separator)
}
