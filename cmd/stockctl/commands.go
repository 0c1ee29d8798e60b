package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/aristath/stockwatch/internal/config"
	"github.com/aristath/stockwatch/internal/di"
	"github.com/aristath/stockwatch/internal/modules/stocks"
	"github.com/aristath/stockwatch/pkg/logger"
	"github.com/google/subcommands"
)

var commands = []subcommands.Command{
	&seedCmd{},
	&refreshCmd{},
	&listCmd{},
	&backupCmd{},
}

// env is the wired application shared by every command
type env struct {
	cfg       *config.Config
	container *di.Container
}

func setup(verbose bool) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	level := "warn"
	if verbose {
		level = cfg.LogLevel
	}
	log := logger.New(logger.Config{Level: level, Pretty: true, Output: os.Stderr})

	container, err := di.Wire(cfg, log)
	if err != nil {
		return nil, err
	}

	return &env{cfg: cfg, container: container}, nil
}

func interruptible(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}

type seedCmd struct {
	file    string
	verbose bool
}

func (*seedCmd) Name() string     { return "seed" }
func (*seedCmd) Synopsis() string { return "track every symbol listed in a seed file" }
func (*seedCmd) Usage() string {
	return `stockctl seed [-f <file>] [-v]

  Creates each symbol in the YAML seed file that is not tracked yet,
  fetching its quote and history through the paced providers.
`
}

func (c *seedCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.file, "f", "", "Seed file (defaults to SEED_FILE, then seeds/stocks.yaml).")
	f.BoolVar(&c.verbose, "v", false, "Log at the configured level instead of warn.")
}

func (c *seedCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	e, err := setup(c.verbose)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer e.container.Close()

	file := c.file
	if file == "" {
		file = e.cfg.SeedFile
	}
	if file == "" {
		file = "seeds/stocks.yaml"
	}

	entries, err := stocks.LoadSeedFile(file)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	ctx, cancel := interruptible(ctx)
	defer cancel()

	result, err := e.container.SyncService.Seed(ctx, entries)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	fmt.Printf("created %d, already tracked %d, failed %d\n", len(result.Created), len(result.Existing), len(result.Failed))
	printFailures(os.Stdout, result.Failed)
	if len(result.Failed) > 0 {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type refreshCmd struct {
	verbose bool
}

func (*refreshCmd) Name() string     { return "refresh" }
func (*refreshCmd) Synopsis() string { return "refresh every tracked symbol now" }
func (*refreshCmd) Usage() string {
	return `stockctl refresh [-v]

  Runs one batch refresh over all tracked symbols and records it in the
  run history with the "cli" trigger.
`
}

func (c *refreshCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.verbose, "v", false, "Log at the configured level instead of warn.")
}

func (c *refreshCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	e, err := setup(c.verbose)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer e.container.Close()

	ctx, cancel := interruptible(ctx)
	defer cancel()
	ctx, timeout := context.WithTimeout(ctx, e.cfg.Sync.RefreshTimeout)
	defer timeout()

	report, err := e.container.SyncService.RefreshAllWithTrigger(ctx, stocks.TriggerCLI)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	fmt.Printf("run %s: %d succeeded, %d failed in %s\n",
		report.RunID, len(report.Succeeded), len(report.Failed), report.Duration().Round(time.Millisecond))
	printFailures(os.Stdout, report.Failed)
	if len(report.Failed) > 0 {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type listCmd struct {
	currency string
}

func (*listCmd) Name() string     { return "list" }
func (*listCmd) Synopsis() string { return "print the tracked stocks" }
func (*listCmd) Usage() string {
	return `stockctl list [-currency INR]

  Prints every tracked stock with its latest price and change. With
  -currency INR, global prices are shown converted at USD_INR_RATE.
`
}

func (c *listCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.currency, "currency", "", "Display currency (only INR is supported).")
}

func (c *listCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	currency := strings.ToUpper(strings.TrimSpace(c.currency))
	if currency != "" && currency != "INR" {
		fmt.Fprintf(os.Stderr, "unsupported currency %q\n", c.currency)
		return subcommands.ExitUsageError
	}

	e, err := setup(false)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer e.container.Close()

	records, err := e.container.SyncService.ListStocks()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	views := e.container.DisplayConverter.Views(records, currency)

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SYMBOL\tNAME\tSECTOR\tPRICE\tCHANGE\tCHANGE %\tUPDATED")
	for _, v := range views {
		price := stocks.FormatAmount(v.Price, stocks.Currency(v.Symbol))
		change := stocks.FormatAmount(v.Change, stocks.Currency(v.Symbol))
		if v.Display != nil {
			price, change = v.Display.Price, v.Display.Change
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%.2f\t%s\n",
			v.Symbol, v.Name, v.Sector, price, change, v.ChangePercent, v.LastUpdated.Format("2006-01-02 15:04"))
	}
	if err := tw.Flush(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	return subcommands.ExitSuccess
}

type backupCmd struct {
	rotateOnly bool
}

func (*backupCmd) Name() string     { return "backup" }
func (*backupCmd) Synopsis() string { return "upload a database backup to R2" }
func (*backupCmd) Usage() string {
	return `stockctl backup [-rotate-only]

  Snapshots the database, uploads it to the configured R2 bucket and
  deletes backups past the retention window.
`
}

func (c *backupCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.rotateOnly, "rotate-only", false, "Only delete expired backups.")
}

func (c *backupCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	e, err := setup(false)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer e.container.Close()

	if e.container.BackupService == nil {
		fmt.Fprintln(os.Stderr, "backups are not configured: set R2_ACCOUNT_ID, R2_ACCESS_KEY_ID, R2_SECRET_ACCESS_KEY and R2_BUCKET_NAME")
		return subcommands.ExitFailure
	}

	ctx, cancel := interruptible(ctx)
	defer cancel()

	if c.rotateOnly {
		deleted, err := e.container.BackupService.RotateOldBackups(ctx)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitFailure
		}
		fmt.Printf("deleted %d expired backups\n", deleted)
		return subcommands.ExitSuccess
	}

	result, err := e.container.BackupService.Run(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	fmt.Printf("uploaded %s (%d bytes, %s), deleted %d expired\n",
		result.Archive, result.SizeBytes, result.Checksum, result.Deleted)
	return subcommands.ExitSuccess
}

func printFailures(w io.Writer, failures []stocks.RefreshFailure) {
	for _, f := range failures {
		fmt.Fprintf(w, "  %s: %s\n", f.Symbol, f.Error)
	}
}
