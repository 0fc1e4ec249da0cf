package view

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/MrJamesThe3rd/walletsync/internal/syncer"
	"github.com/MrJamesThe3rd/walletsync/internal/transaction"
	"github.com/MrJamesThe3rd/walletsync/internal/wallet"
)

// newTable builds a bordered table whose styles match the color profile of w.
// Columns listed in right are right-aligned.
func newTable(w io.Writer, right []int, headers ...string) *table.Table {
	r := lipgloss.NewRenderer(w)

	header := r.NewStyle().Bold(true).Padding(0, 1)
	cell := r.NewStyle().Padding(0, 1)

	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(r.NewStyle().Foreground(lipgloss.Color("240"))).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := cell
			if row == table.HeaderRow {
				s = header
			}

			if slices.Contains(right, col) {
				s = s.Align(lipgloss.Right)
			}

			return s
		}).
		Headers(headers...)
}

func render(w io.Writer, t *table.Table) error {
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

// Wallets prints one row per wallet. The current wallet is marked with '*'.
func Wallets(w io.Writer, wallets []*wallet.Wallet, current *wallet.Wallet) error {
	t := newTable(w, nil, "", "ID", "NAME", "TYPE", "CURRENCY", "DEFAULT", "SYNC")

	for _, wal := range wallets {
		marker := ""
		if current != nil && current.ID == wal.ID {
			marker = "*"
		}

		t.Row(marker, wal.ID.String(), wal.Name, string(wal.Type), wal.Currency,
			yesNo(wal.IsDefault), syncState(wal.NeedsSync))
	}

	return render(w, t)
}

func Transactions(w io.Writer, txs []*transaction.Transaction, currencyCode string) error {
	t := newTable(w, []int{3}, "ID", "DATE", "TYPE", "AMOUNT", "STATUS", "CATEGORY", "DESCRIPTION", "SYNC")

	for _, tx := range txs {
		t.Row(tx.ID.String(), FormatDate(tx.Date), string(tx.Type), FormatAmount(tx.Amount, currencyCode),
			string(tx.Status), tx.CategoryID, tx.Description, syncState(tx.NeedsSync))
	}

	return render(w, t)
}

func Summary(w io.Writer, s *transaction.Summary, currencyCode string) error {
	if _, err := fmt.Fprintf(w, "%s to %s, %d transactions\n",
		FormatDate(s.StartDate), FormatDate(s.EndDate), s.TransactionCount); err != nil {
		return err
	}

	totals := newTable(w, []int{1}, "TOTAL", "AMOUNT").
		Row("income", FormatAmount(s.TotalIncome, currencyCode)).
		Row("expense", FormatAmount(s.TotalExpense, currencyCode)).
		Row("balance", FormatAmount(s.Balance, currencyCode))

	if err := render(w, totals); err != nil {
		return err
	}

	t := newTable(w, []int{2, 3, 4}, "TYPE", "CATEGORY", "TOTAL", "COUNT", "SHARE")

	for _, c := range s.ByCategory {
		category := c.CategoryID
		if category == "" {
			category = "(none)"
		}

		t.Row(string(c.Type), category, FormatAmount(c.Total, currencyCode),
			strconv.Itoa(c.Count), c.Percentage.StringFixed(2)+"%")
	}

	return render(w, t)
}

// WalletStatus is one row of the status table.
type WalletStatus struct {
	Name string
	syncer.Status
}

func Status(w io.Writer, rows []WalletStatus, now time.Time) error {
	t := newTable(w, []int{1, 2}, "WALLET", "UPLOADS", "DELETES", "LAST SYNC")

	for _, r := range rows {
		t.Row(r.Name, strconv.Itoa(r.PendingUploads), strconv.Itoa(r.PendingDeletes), FormatSince(r.LastSyncAt, now))
	}

	return render(w, t)
}

func Report(w io.Writer, r syncer.Report) {
	fmt.Fprintf(w, "pushed %d (acknowledged %d), pulled %d (applied %d)\n",
		r.Pushed, r.Acknowledged, r.Pulled, r.Applied)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}

	return "no"
}

func syncState(dirty bool) string {
	if dirty {
		return "pending"
	}

	return "synced"
}
