package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"bookkeeper/internal/analytics"
	"bookkeeper/internal/cli"
	"bookkeeper/internal/core"
	"bookkeeper/internal/log"
	"bookkeeper/internal/services"
)

// ledgerService is the part of services.LedgerService the commands use.
type ledgerService interface {
	RecordTransaction(ctx context.Context, session core.Session, in core.RecordInput) (string, error)
	Summarize(ctx context.Context, session core.Session, start, end core.Date) (core.SummaryResult, error)
	CurrentDate() string
}

var errUsage = errors.New("usage")

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stdout)
		os.Exit(1)
	}
	switch os.Args[1] {
	case "help", "-h", "--help":
		printUsage(os.Stdout)
		return
	}

	cli.LoadEnvFile()
	// Logs go to stderr so command output stays clean.
	logger := log.New(log.Config{
		Level:     log.ParseLevel(os.Getenv("LOG_LEVEL")),
		Component: log.ComponentCLI,
		Output:    os.Stderr,
	})
	log.SetDefault(logger)
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, stop := cli.ShutdownContext(context.Background())
	defer stop()

	store := cli.MustOpenBackend(ctx, logger, cfg, cfg.DataBackend)
	defer store.Cleanup()

	engine := analytics.New(store.Store, analytics.Options{StrictOperations: cfg.StrictOperations}, logger.Logger)
	svc := services.NewLedgerService(store.Store, engine, services.LedgerServiceConfig{
		Currency: cfg.Currency,
		Logger:   logger.WithComponent(log.ComponentLedger),
	})
	session := core.Session{AppName: cfg.AppName, UserID: currentUser()}

	if err := run(ctx, svc, session, cfg.Currency, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
			printUsage(os.Stderr)
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func currentUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "cli"
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Bookkeeper ledger CLI")
	fmt.Fprintln(w, "\nUsage:")
	fmt.Fprintln(w, "  ledger <command> [options]")
	fmt.Fprintln(w, "\nCommands:")
	fmt.Fprintln(w, "  record     Append a transaction to the ledger")
	fmt.Fprintln(w, "  summarize  Summarize the ledger over an optional date range")
	fmt.Fprintln(w, "  today      Print the current date and weekday")
	fmt.Fprintln(w, "  help       Show this help message")
	fmt.Fprintln(w, "\nRun 'ledger <command> -h' for more information on a command.")
}

func run(ctx context.Context, svc ledgerService, session core.Session, currency string, args []string, out io.Writer) error {
	switch args[0] {
	case "record":
		return runRecord(ctx, svc, session, args[1:], out)
	case "summarize":
		return runSummarize(ctx, svc, session, currency, args[1:], out)
	case "today":
		fmt.Fprintln(out, svc.CurrentDate())
		return nil
	default:
		return errUsage
	}
}

func runRecord(ctx context.Context, svc ledgerService, session core.Session, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("record", flag.ContinueOnError)
	txType := fs.String("type", "", "transaction type, e.g. Payment or \"Receive From\"")
	merchant := fs.String("merchant", "", "merchant or counterparty")
	details := fs.String("details", "", "payment details")
	date := fs.String("date", "", "date as DD/MM/YYYY")
	clock := fs.String("time", "", "time of day as written on the receipt")
	amount := fs.String("amount", "", "unsigned amount, e.g. 15.00")
	operation := fs.String("operation", "Expense", "Income or Expense")
	key := fs.String("key", "", "idempotency key")
	fs.SetOutput(out)
	if err := fs.Parse(args); err != nil {
		return err
	}

	in := core.NewRecordInput(*txType, *merchant, *details, *date, *clock, *amount, *operation)
	in.IdempotencyKey = *key
	msg, err := svc.RecordTransaction(ctx, session, in)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, msg)
	return nil
}

func runSummarize(ctx context.Context, svc ledgerService, session core.Session, currency string, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("summarize", flag.ContinueOnError)
	startFlag := fs.String("start", "", "inclusive start date YYYY-MM-DD")
	endFlag := fs.String("end", "", "inclusive end date YYYY-MM-DD")
	fs.SetOutput(out)
	if err := fs.Parse(args); err != nil {
		return err
	}

	start, err := parseBound("start", *startFlag)
	if err != nil {
		return err
	}
	end, err := parseBound("end", *endFlag)
	if err != nil {
		return err
	}

	res, err := svc.Summarize(ctx, session, start, end)
	if err != nil {
		return err
	}
	printSummary(out, res, currency)
	return nil
}

func parseBound(name, v string) (core.Date, error) {
	if strings.TrimSpace(v) == "" {
		return core.Date{}, nil
	}
	d, err := core.ParseQueryDate(v)
	if err != nil {
		return core.Date{}, fmt.Errorf("invalid -%s %q: expected YYYY-MM-DD", name, v)
	}
	return d, nil
}

func printSummary(w io.Writer, res core.SummaryResult, currency string) {
	fmt.Fprintf(w, "Period:         %s\n", res.Period)
	fmt.Fprintf(w, "Total expenses: %s%s\n", currency, core.FormatAmount(res.TotalExpenses))
	fmt.Fprintf(w, "Total income:   %s%s\n", currency, core.FormatAmount(res.TotalIncome))
	fmt.Fprintf(w, "Net flow:       %s%s\n", currency, core.FormatAmount(res.NetFlow))
	fmt.Fprintf(w, "Transactions:   %d\n", res.Matched)

	if breakdown := res.SortedBreakdown(); len(breakdown) > 0 {
		fmt.Fprintln(w, "\nBy merchant:")
		for _, m := range breakdown {
			name := m.Merchant
			if name == "" {
				name = "(none)"
			}
			fmt.Fprintf(w, "  %-30s %s%s\n", name, currency, core.FormatAmount(m.Amount))
		}
	}

	if len(res.RecentTransactions) > 0 {
		fmt.Fprintln(w, "\nRecent:")
		for _, row := range res.RecentTransactions {
			fmt.Fprintf(w, "  %s %s  %-9s %-30s %s\n",
				row[core.ColDate], row[core.ColTime], row[core.ColOperation], row[core.ColMerchant], row[core.ColAmount])
		}
	}
}
