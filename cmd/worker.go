package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/approval-portal/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run background jobs",
	Long:  `Run background jobs such as granting the yearly leave allowance.`,
}

var balanceWorkerCmd = &cobra.Command{
	Use:   "balances",
	Short: "Grant the yearly leave allowance",
	Long: `Create leave balances for every active employee that has none for the year.
With --every the worker keeps running and re-grants the current year on each tick,
which picks up employees hired since the last run.`,
	Run: func(cmd *cobra.Command, args []string) {
		runBalanceWorker()
	},
}

var (
	grantYear  int
	grantDays  float64
	grantEvery time.Duration
)

func runBalanceWorker() {
	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	lg := logger.LoggerWrapper()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := newApp(ctx, cfg, lg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	days := grantDays
	if days <= 0 {
		days = cfg.Leave.DefaultAnnualDays
	}

	grant := func() {
		year := grantYear
		if year == 0 {
			year = time.Now().Year()
		}
		created, err := app.Leave.GrantYear(ctx, year, decimal.NewFromFloat(days))
		if err != nil {
			lg.Error("leave grant failed", "error", err, "year", year)
			return
		}
		lg.Info("leave grant finished", "year", year, "days", days, "created", created)
	}

	grant()
	if grantEvery <= 0 {
		return
	}

	ticker := time.NewTicker(grantEvery)
	defer ticker.Stop()
	lg.Info("balance worker is running. Press Ctrl+C to stop.", "every", grantEvery)
	for {
		select {
		case <-ctx.Done():
			lg.Info("balance worker stopped")
			return
		case <-ticker.C:
			grant()
		}
	}
}

func init() {
	balanceWorkerCmd.Flags().IntVar(&grantYear, "year", 0, "year to grant (defaults to the current year)")
	balanceWorkerCmd.Flags().Float64Var(&grantDays, "days", 0, "days granted per employee (overrides leave.default_annual_days)")
	balanceWorkerCmd.Flags().DurationVar(&grantEvery, "every", 0, "keep running and grant again at this interval")

	workerCmd.AddCommand(balanceWorkerCmd)
	rootCmd.AddCommand(workerCmd)
}
