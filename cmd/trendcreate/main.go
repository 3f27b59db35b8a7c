package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"trendcreate/internal/app"
	"trendcreate/internal/config"
	"trendcreate/internal/domain"
	"trendcreate/internal/logging"
)

var version = "dev"

var (
	statsDays      int
	cleanupDays    int
	exportDays     int
	daemonInterval time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "trendcreate",
		Short:        "TLDR AI newsletter aggregation pipeline",
		Version:      version,
		SilenceUsage: true,
		Long: `trendcreate scrapes the TLDR newsletter's AI section, fetches full
article content from origin sites, deduplicates against previously stored
articles and exports each run to markdown.`,
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Execute one full aggregation run",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, application *app.Application) error {
				report, err := application.Run(ctx)
				if err != nil {
					return err
				}
				printReport(report)
				return nil
			})
		},
	}

	daemonCmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the pipeline on a fixed interval until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, application *app.Application) error {
				return application.RunDaemon(ctx, daemonInterval)
			})
		},
	}
	daemonCmd.Flags().DurationVar(&daemonInterval, "interval", 24*time.Hour, "time between runs")

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show duplicate-detection statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, application *app.Application) error {
				stats, err := application.Stats(ctx, statsDays)
				if err != nil {
					return err
				}
				fmt.Printf("Items in last %d days: %d\n", statsDays, stats.TotalChecked)
				fmt.Printf("Title-hash duplicate clusters: %d\n", stats.TitleDuplicates)
				fmt.Println("Per-domain distribution:")
				domains := make([]string, 0, len(stats.DomainDistribution))
				for d := range stats.DomainDistribution {
					domains = append(domains, d)
				}
				sort.Strings(domains)
				for _, d := range domains {
					fmt.Printf("  %-40s %d\n", d, stats.DomainDistribution[d])
				}
				return nil
			})
		},
	}
	statsCmd.Flags().IntVar(&statsDays, "days", 30, "lookback window in days")

	cleanupCmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Collapse old duplicate groups down to their newest member",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, application *app.Application) error {
				removed, err := application.Cleanup(ctx, cleanupDays)
				if err != nil {
					return err
				}
				fmt.Printf("Removed %d old duplicate entries\n", removed)
				return nil
			})
		},
	}
	cleanupCmd.Flags().IntVar(&cleanupDays, "days", 0, "retention horizon in days (0 uses configured default)")

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Re-export recently stored articles to markdown",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, application *app.Application) error {
				path, err := application.Export(ctx, exportDays)
				if err != nil {
					return err
				}
				fmt.Printf("Exported to %s\n", path)
				return nil
			})
		},
	}
	exportCmd.Flags().IntVar(&exportDays, "days", 7, "lookback window in days")

	rootCmd.AddCommand(runCmd, daemonCmd, statsCmd, cleanupCmd, exportCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func withApp(fn func(context.Context, *app.Application) error) error {
	ctx := context.Background()
	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level)

	application, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer application.Close()

	return fn(ctx, application)
}

func printReport(report domain.RunReport) {
	fmt.Println("Aggregation summary")
	fmt.Printf("  Source:       %s\n", report.Source)
	fmt.Printf("  Found:        %d\n", report.Found)
	fmt.Printf("  Saved:        %d\n", report.Saved)
	fmt.Printf("  Duplicates:   %d\n", report.Duplicates)
	fmt.Printf("  Errors:       %d\n", report.Errors)
	fmt.Printf("  With content: %d (%d words)\n", report.WithContent, report.WordsFetched)
	if len(report.DuplicateReasons) > 0 {
		fmt.Println("  Duplicate breakdown:")
		reasons := make([]string, 0, len(report.DuplicateReasons))
		for reason := range report.DuplicateReasons {
			reasons = append(reasons, reason)
		}
		sort.Strings(reasons)
		for _, reason := range reasons {
			fmt.Printf("    %-30s %d\n", reason, report.DuplicateReasons[reason])
		}
	}
	if report.ExportPath != "" {
		fmt.Printf("  Export:       %s\n", report.ExportPath)
	}
}
