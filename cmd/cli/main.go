package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/iho/godeposit/internal/app"
	"github.com/iho/godeposit/internal/domain"
	"github.com/iho/godeposit/internal/infrastructure/config"
	"github.com/iho/godeposit/internal/infrastructure/logger"
	"github.com/iho/godeposit/internal/infrastructure/postgres"
	"github.com/iho/godeposit/internal/usecase"
)

// Services is what the commands need from the running application.
type Services interface {
	ReconcileOne(ctx context.Context, address string) (*usecase.ReconcileResult, error)
	ReconcileAll(ctx context.Context) (*usecase.BatchReport, error)
	GetCheckpoint(ctx context.Context, address string) (*domain.Checkpoint, error)
	GetBalances(ctx context.Context, address string) (*usecase.BalanceReport, error)
	InvalidateBalance(ctx context.Context, address string) error
	ListDeposits(ctx context.Context, address string, limit, offset int) ([]*domain.DepositRecord, error)
	CheckConsistency(ctx context.Context) ([]usecase.LedgerTotal, error)
	Consume(ctx context.Context) error
	Close() error
}

type openFunc func(ctx context.Context) (Services, error)

// Migrator applies or reverts schema migrations.
type Migrator interface {
	Up() error
	Down() error
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var verbose bool
	var log zerolog.Logger
	loadConfig := func() (*config.Config, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		level := "warn"
		if verbose {
			level = "debug"
		}
		log = logger.New(logger.Config{Level: level, Format: "console", Output: os.Stderr})
		return cfg, nil
	}

	open := func(ctx context.Context) (Services, error) {
		cfg, err := loadConfig()
		if err != nil {
			return nil, err
		}
		a, err := app.New(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		return appServices{a}, nil
	}
	migrator := func() (Migrator, error) {
		cfg, err := loadConfig()
		if err != nil {
			return nil, err
		}
		return dbMigrator{url: cfg.DatabaseURL, log: log}, nil
	}

	rootCmd := newRootCmd(open, migrator)
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log at debug level to stderr")

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(open openFunc, migrator func() (Migrator, error)) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "godeposit-cli",
		Short:         "godeposit CLI tool",
		Long:          `Operate the deposit watcher: run reconciliations, inspect cursors, balances and deposits.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		reconcileCmd(open),
		reconcileAllCmd(open),
		checkpointCmd(open),
		balanceCmd(open),
		depositsCmd(open),
		consistencyCmd(open),
		consumeCmd(open),
		migrateCmd(migrator),
	)
	return rootCmd
}

// withServices opens the application for one command and closes it afterwards.
func withServices(cmd *cobra.Command, open openFunc, fn func(Services) error) error {
	svc, err := open(cmd.Context())
	if err != nil {
		return err
	}
	defer svc.Close()
	return fn(svc)
}

func reconcileCmd(open openFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile <address>",
		Short: "Scan one watched address for new deposits",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, open, func(svc Services) error {
				result, err := svc.ReconcileOne(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), result)
			})
		},
	}
}

func reconcileAllCmd(open openFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile-all",
		Short: "Scan every active watched address once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withServices(cmd, open, func(svc Services) error {
				report, err := svc.ReconcileAll(cmd.Context())
				if report != nil {
					printReport(cmd.OutOrStdout(), report)
				}
				return err
			})
		},
	}
}

func checkpointCmd(open openFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "checkpoint <address>",
		Short: "Show the reconciliation cursor of an address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, open, func(svc Services) error {
				cp, err := svc.GetCheckpoint(cmd.Context(), args[0])
				if errors.Is(err, domain.ErrCheckpointNotFound) {
					fmt.Fprintf(cmd.OutOrStdout(), "no checkpoint for %s: never scanned\n", args[0])
					return nil
				}
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), cp)
			})
		},
	}
}

func balanceCmd(open openFunc) *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "balance <address>",
		Short: "Show on-chain and ledger balances of an address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, open, func(svc Services) error {
				if refresh {
					if err := svc.InvalidateBalance(cmd.Context(), args[0]); err != nil {
						return err
					}
				}
				report, err := svc.GetBalances(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), report)
			})
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Bypass the cached on-chain balance")
	return cmd
}

func depositsCmd(open openFunc) *cobra.Command {
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "deposits <address>",
		Short: "List recorded deposits of an address, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, open, func(svc Services) error {
				deposits, err := svc.ListDeposits(cmd.Context(), args[0], limit, offset)
				if err != nil {
					return err
				}
				printDeposits(cmd.OutOrStdout(), deposits)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of deposits")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of deposits to skip")
	return cmd
}

func consistencyCmd(open openFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "consistency",
		Short: "Check that every balance equals the sum of its deposits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withServices(cmd, open, func(svc Services) error {
				mismatches, err := svc.CheckConsistency(cmd.Context())
				out := cmd.OutOrStdout()
				if errors.Is(err, usecase.ErrInconsistentLedger) {
					fmt.Fprintln(out, "Consistency check FAILED")
					for _, m := range mismatches {
						fmt.Fprintf(out, "member=%d asset=%d deposited=%s balance=%s\n",
							m.MemberID, m.AssetID, m.Deposited, m.Balance)
					}
					return err
				}
				if err != nil {
					return err
				}
				fmt.Fprintln(out, "Consistency check PASSED")
				return nil
			})
		},
	}
}

func consumeCmd(open openFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "consume",
		Short: "Run the downstream notification consumer until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withServices(cmd, open, func(svc Services) error {
				return svc.Consume(cmd.Context())
			})
		},
	}
}

func migrateCmd(migrator func() (Migrator, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or revert database migrations",
	}

	run := func(apply func(Migrator) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			m, err := migrator()
			if err != nil {
				return err
			}
			if err := apply(m); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE:  run(Migrator.Up),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Revert the last migration",
			Args:  cobra.NoArgs,
			RunE:  run(Migrator.Down),
		},
	)
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printReport(w io.Writer, r *usecase.BatchReport) {
	fmt.Fprintf(w, "accounts=%d succeeded=%d skipped=%d failed=%d new_deposits=%d elapsed=%s\n",
		r.Accounts, r.Succeeded, r.Skipped, len(r.Failures), r.NewDeposits, r.Elapsed.Round(time.Millisecond))
	for _, f := range r.Failures {
		fmt.Fprintf(w, "  %s: %v\n", f.Address, f.Err)
	}
}

func printDeposits(w io.Writer, deposits []*domain.DepositRecord) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TX\tSLOT\tAMOUNT\tFROM\tCONFIRMED")
	for _, d := range deposits {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n",
			truncate(d.TxID, 16), d.Slot, d.Amount, truncate(d.Counterparty, 12), d.ConfirmedAt.Format(time.RFC3339))
	}
	tw.Flush()
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

type appServices struct {
	*app.App
}

func (s appServices) ReconcileOne(ctx context.Context, address string) (*usecase.ReconcileResult, error) {
	return s.Batch.ReconcileOne(ctx, address)
}

func (s appServices) ReconcileAll(ctx context.Context) (*usecase.BatchReport, error) {
	return s.Batch.ReconcileAll(ctx)
}

func (s appServices) GetCheckpoint(ctx context.Context, address string) (*domain.Checkpoint, error) {
	return s.Checkpoints.GetCheckpoint(ctx, address)
}

func (s appServices) GetBalances(ctx context.Context, address string) (*usecase.BalanceReport, error) {
	return s.Balances.GetBalances(ctx, address)
}

func (s appServices) InvalidateBalance(ctx context.Context, address string) error {
	return s.Balances.InvalidateBalance(ctx, address)
}

func (s appServices) ListDeposits(ctx context.Context, address string, limit, offset int) ([]*domain.DepositRecord, error) {
	return s.Deposits.ListDeposits(ctx, address, limit, offset)
}

func (s appServices) CheckConsistency(ctx context.Context) ([]usecase.LedgerTotal, error) {
	return s.Ledger.CheckConsistency(ctx)
}

func (s appServices) Consume(ctx context.Context) error {
	return s.Broker.Consume(ctx, s.Consumer.Handle)
}

type dbMigrator struct {
	url string
	log zerolog.Logger
}

func (m dbMigrator) Up() error   { return postgres.RunMigrations(m.url, m.log) }
func (m dbMigrator) Down() error { return postgres.RunMigrationsDown(m.url, m.log) }
