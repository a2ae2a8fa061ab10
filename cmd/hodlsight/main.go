// hodlsight — corporate bitcoin treasury reconstruction from SEC filings.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/hodlsight/hodlsight/api"
	"github.com/hodlsight/hodlsight/internal/config"
	"github.com/hodlsight/hodlsight/internal/extract"
	"github.com/hodlsight/hodlsight/internal/provider"
	"github.com/hodlsight/hodlsight/internal/providers"
	"github.com/hodlsight/hodlsight/internal/providers/edgar"
	"github.com/hodlsight/hodlsight/internal/providers/stooq"
	"github.com/hodlsight/hodlsight/internal/treasury"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config
var cfg *config.Config

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "hodlsight",
	Short: "hodlsight — corporate bitcoin treasury tracking from SEC filings",
	Long: `hodlsight mines a public company's SEC filings for bitcoin treasury
disclosures and reconstructs the holdings and average purchase price over
time, served as chart-ready series alongside the market price.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(seriesCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("hodlsight %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Series Command ---

var seriesCmd = &cobra.Command{
	Use:   "series [symbol]",
	Short: "Reconstruct a company's treasury history and print it",
	Long: `Reconstruct the bitcoin treasury snapshots for a ticker from its SEC
filings and print them, optionally as the full chart overlay with the
market price series.

Examples:
  hodlsight series MSTR
  hodlsight series MSTR --from 2021-01-01 --json
  hodlsight series MSTR --overlay`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		symbol := args[0]
		asJSON, _ := cmd.Flags().GetBool("json")
		overlay, _ := cmd.Flags().GetBool("overlay")

		from := time.Now().UTC().AddDate(-cfg.Edgar.HistoryYears, 0, 0)
		if fs, _ := cmd.Flags().GetString("from"); fs != "" {
			t, err := time.Parse("2006-01-02", fs)
			if err != nil {
				return fmt.Errorf("invalid from date %q; use YYYY-MM-DD", fs)
			}
			from = t
		}

		svc := newTreasuryService()
		meta, err := svc.Report(cmd.Context(), symbol, from)
		if err != nil {
			return err
		}

		if overlay {
			price, perr := stooq.New().DailyCloses(cmd.Context(), cfg.Price.Symbol, from, time.Time{})
			if perr != nil {
				return fmt.Errorf("price series: %w", perr)
			}
			o := treasury.BuildOverlay(meta.Symbol, price, meta, nil)
			return printJSON(o)
		}

		if asJSON {
			return printJSON(meta)
		}

		fmt.Printf("%s (%s)\n", meta.Symbol, meta.CompanyName)
		fmt.Printf("latest disclosure: %s (%d days old)\n", meta.AsOfLabel, meta.StalenessDays)
		fmt.Printf("source: %s\n\n", meta.SourceURL)
		fmt.Printf("%-12s  %12s  %14s  %16s\n", "DATE", "BTC", "AVG COST", "TOTAL COST")
		for _, s := range meta.Snapshots {
			fmt.Printf("%-12s  %12d  %14.0f  %16.0f\n",
				s.Date.Format("2006-01-02"), s.HoldingsBTC, s.AvgCostUSD, s.TotalCostUSD)
		}
		return nil
	},
}

func init() {
	seriesCmd.Flags().String("from", "", "history start date (YYYY-MM-DD)")
	seriesCmd.Flags().Bool("json", false, "print snapshots as JSON")
	seriesCmd.Flags().Bool("overlay", false, "print the full chart overlay (price + avg cost) as JSON")
}

// --- Serve Command (API Server) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		srv, err := api.NewServer(cfg)
		if err != nil {
			return err
		}
		addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
		fmt.Printf("Starting hodlsight API server on %s\n", addr)
		return srv.ListenAndServe(addr)
	},
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show system status and upstream reachability",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := provider.NewRegistry()
		if err := providers.RegisterAllTo(reg); err != nil {
			return fmt.Errorf("register providers: %w", err)
		}

		fmt.Println("═══════════════════════════════════════")
		fmt.Println("  hodlsight — System Status")
		fmt.Println("═══════════════════════════════════════")
		fmt.Printf("  Version:     %s (%s)\n", version, commit)
		fmt.Printf("  API Server:  %s:%d\n", cfg.API.Host, cfg.API.Port)
		fmt.Printf("  Price feed:  stooq (%s)\n", cfg.Price.Symbol)
		fmt.Println()

		fmt.Println("  Providers:")
		for _, info := range reg.List() {
			p, err := reg.Get(info.Name)
			if err != nil {
				continue
			}
			status := "ok"
			if err := p.Ping(cmd.Context()); err != nil {
				status = "unreachable: " + err.Error()
			}
			fmt.Printf("    %-12s %s\n", info.Name+":", status)
			for _, model := range info.Models {
				fmt.Printf("                 - %s\n", model)
			}
		}

		fmt.Println("═══════════════════════════════════════")
		return nil
	},
}

// --- helpers ---

func newTreasuryService() *treasury.Service {
	ed := edgar.New(
		edgar.WithUserAgent(cfg.Edgar.UserAgent),
		edgar.WithMaxHistoryPages(cfg.Edgar.MaxHistoryPages),
	)
	ex := extract.New(extract.Options{
		Tolerance:      cfg.Extraction.Tolerance,
		MinAvgUSD:      cfg.Extraction.MinAvgUSD,
		MaxAvgUSD:      cfg.Extraction.MaxAvgUSD,
		MaxHoldingsBTC: cfg.Extraction.MaxHoldingsBTC,
		WindowBefore:   cfg.Extraction.WindowBefore,
		WindowAfter:    cfg.Extraction.WindowAfter,
	})
	return treasury.NewService(ed, ex, treasury.Policy{
		RecentWindowDays: cfg.Edgar.RecentWindowDays,
		MaxPerMonth:      cfg.Edgar.MaxPerMonth,
		CandidateBudget:  cfg.Edgar.CandidateBudget,
		Workers:          cfg.Edgar.Workers,
	})
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
