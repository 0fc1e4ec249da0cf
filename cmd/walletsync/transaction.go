package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/MrJamesThe3rd/walletsync/cmd/walletsync/internal/view"
	"github.com/MrJamesThe3rd/walletsync/internal/importer"
	"github.com/MrJamesThe3rd/walletsync/internal/transaction"
)

func txCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tx",
		Aliases: []string{"transaction"},
		Short:   "Manage transactions of the selected wallet",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cmd.Root().PersistentPreRunE(cmd, args); err != nil {
				return err
			}

			return a.currentWallet(cmd.Context())
		},
	}

	cmd.AddCommand(
		txAddCmd(a),
		txListCmd(a),
		txEditCmd(a),
		txDeleteCmd(a),
		txSummaryCmd(a),
		txRecurCmd(a),
		txImportCmd(a),
	)

	return cmd
}

type txFlags struct {
	amount      string
	typ         string
	status      string
	category    string
	description string
	notes       string
	date        string
	recurrence  string
	until       string
	tags        []string
}

func (f *txFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.amount, "amount", "a", "", "amount, always positive")
	cmd.Flags().StringVarP(&f.typ, "type", "t", string(transaction.TypeExpense), "income, expense or transfer")
	cmd.Flags().StringVar(&f.status, "status", string(transaction.StatusCompleted), "pending, completed or cancelled")
	cmd.Flags().StringVar(&f.category, "category", "", "category id")
	cmd.Flags().StringVarP(&f.description, "description", "d", "", "description")
	cmd.Flags().StringVar(&f.notes, "notes", "", "free-form notes")
	cmd.Flags().StringVar(&f.date, "date", "", "date as YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&f.recurrence, "repeat", "", "daily, weekly, monthly or yearly")
	cmd.Flags().StringVar(&f.until, "until", "", "last date of a repeating transaction")
	cmd.Flags().StringSliceVar(&f.tags, "tag", nil, "tag, repeatable")
}

// apply copies the flags that were set on cmd into tx.
func (f *txFlags) apply(cmd *cobra.Command, tx *transaction.Transaction) error {
	changed := cmd.Flags().Changed

	if changed("amount") {
		amount, err := decimal.NewFromString(f.amount)
		if err != nil {
			return fmt.Errorf("invalid amount %q: %w", f.amount, err)
		}

		tx.Amount = amount
	}

	if changed("type") || tx.Type == "" {
		tx.Type = transaction.Type(f.typ)
	}

	if changed("status") || tx.Status == "" {
		tx.Status = transaction.Status(f.status)
	}

	if changed("category") {
		tx.CategoryID = f.category
	}

	if changed("description") {
		tx.Description = f.description
	}

	if changed("notes") {
		tx.Notes = f.notes
	}

	if changed("tag") {
		tx.Tags = f.tags
	}

	if changed("date") {
		d, err := parseDate(f.date)
		if err != nil {
			return err
		}

		tx.Date = d
	}

	if tx.Date.IsZero() {
		tx.Date = today()
	}

	if changed("repeat") {
		tx.Recurrence = transaction.Recurrence(f.recurrence)
		tx.IsRecurring = tx.Recurrence != transaction.RecurrenceNone && tx.Recurrence != ""
	}

	if changed("until") {
		d, err := parseDate(f.until)
		if err != nil {
			return err
		}

		tx.RecurrenceEndDate = &d
	}

	return nil
}

func txAddCmd(a *app) *cobra.Command {
	var f txFlags

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a transaction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tx := &transaction.Transaction{}
			if err := f.apply(cmd, tx); err != nil {
				return err
			}

			if err := a.txCtx.Create(cmd.Context(), tx); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "recorded %s %s on %s (%s)\n",
				tx.Type, view.FormatAmount(tx.Amount, a.currency()), view.FormatDate(tx.Date), tx.ID)

			return nil
		},
	}

	f.register(cmd)
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func txEditCmd(a *app) *cobra.Command {
	var f txFlags

	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Change fields of a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			existing, err := a.resolveTransaction(args[0])
			if err != nil {
				return err
			}

			tx := *existing
			if err := f.apply(cmd, &tx); err != nil {
				return err
			}

			return a.txCtx.Update(cmd.Context(), &tx)
		},
	}

	f.register(cmd)

	return cmd
}

func txListCmd(a *app) *cobra.Command {
	var (
		from  string
		to    string
		limit int
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List transactions, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			start, end, err := dateRange(from, to)
			if err != nil {
				return err
			}

			var txs []*transaction.Transaction

			for _, tx := range a.txCtx.State().Transactions {
				if (!start.IsZero() && tx.Date.Before(start)) || (!end.IsZero() && tx.Date.After(end)) {
					continue
				}

				txs = append(txs, tx)
			}

			if limit > 0 && len(txs) > limit {
				txs = txs[:limit]
			}

			return view.Transactions(cmd.OutOrStdout(), txs, a.currency())
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "first date, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last date, YYYY-MM-DD")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "show at most n transactions")

	return cmd
}

func txDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "delete ID",
		Aliases: []string{"rm"},
		Short:   "Delete a transaction",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tx, err := a.resolveTransaction(args[0])
			if err != nil {
				return err
			}

			return a.txCtx.Delete(cmd.Context(), tx.ID)
		},
	}
}

func txSummaryCmd(a *app) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Totals by category for a date range (default this month)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			start, end, err := dateRange(from, to)
			if err != nil {
				return err
			}

			now := today()
			if start.IsZero() {
				start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
			}

			if end.IsZero() {
				end = endOfDay(now)
			}

			s, err := a.txCtx.Summary(start, end)
			if err != nil {
				return err
			}

			return view.Summary(cmd.OutOrStdout(), s, a.currency())
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "first date, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last date, YYYY-MM-DD")

	return cmd
}

func txRecurCmd(a *app) *cobra.Command {
	var until string

	cmd := &cobra.Command{
		Use:   "recur",
		Short: "Create the due instances of repeating transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			end := today()

			if until != "" {
				d, err := parseDate(until)
				if err != nil {
					return err
				}

				end = d
			}

			n, err := a.txCtx.MaterializeRecurring(cmd.Context(), end)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "created %d transactions\n", n)

			return nil
		},
	}

	cmd.Flags().StringVar(&until, "until", "", "create instances due up to this date (default today)")

	return cmd
}

func txImportCmd(a *app) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import a bank CSV statement as pending transactions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			res, err := importer.New().Parse(f)
			if err != nil {
				return fmt.Errorf("parsing %s: %w", args[0], err)
			}

			st := a.txCtx.State()
			fresh := importer.Fresh(a.store.GetAllTransactions(cmd.Context(), st.WalletID, true), res.Transactions)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s statement (%s): %d lines, %d new\n",
				res.Profile, res.Charset, len(res.Transactions), len(fresh))

			if dryRun {
				return view.Transactions(out, fresh, a.currency())
			}

			for _, tx := range fresh {
				if err := a.txCtx.Create(cmd.Context(), tx); err != nil {
					return fmt.Errorf("importing %q: %w", tx.Description, err)
				}
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show what would be imported")

	return cmd
}

func (a *app) resolveTransaction(ref string) (*transaction.Transaction, error) {
	txs := a.txCtx.State().Transactions

	if id, err := uuid.Parse(ref); err == nil {
		for _, tx := range txs {
			if tx.ID == id {
				return tx, nil
			}
		}

		return nil, fmt.Errorf("%w: %s", transaction.ErrNotFound, ref)
	}

	var matches []*transaction.Transaction

	for _, tx := range txs {
		if strings.HasPrefix(tx.ID.String(), ref) {
			matches = append(matches, tx)
		}
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s", transaction.ErrNotFound, ref)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("%q matches %d transactions", ref, len(matches))
	}
}

func parseDate(s string) (time.Time, error) {
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}

	return d, nil
}

func dateRange(from, to string) (start, end time.Time, err error) {
	if from != "" {
		if start, err = parseDate(from); err != nil {
			return
		}
	}

	if to != "" {
		if end, err = parseDate(to); err != nil {
			return
		}

		end = endOfDay(end)
	}

	return
}

func today() time.Time {
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

func endOfDay(d time.Time) time.Time {
	return d.Add(24*time.Hour - time.Millisecond)
}
