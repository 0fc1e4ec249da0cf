package transaction

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CategoryTotal struct {
	CategoryID string          `json:"categoryId"`
	Type       Type            `json:"type"`
	Total      decimal.Decimal `json:"total"`
	Count      int             `json:"count"`
	Percentage decimal.Decimal `json:"percentage"`
}

type DailyTotal struct {
	Date    time.Time       `json:"date"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Balance decimal.Decimal `json:"balance"`
}

// Summary aggregates the transactions of one wallet over a closed date range.
type Summary struct {
	WalletID         uuid.UUID       `json:"walletId"`
	StartDate        time.Time       `json:"startDate"`
	EndDate          time.Time       `json:"endDate"`
	TotalIncome      decimal.Decimal `json:"totalIncome"`
	TotalExpense     decimal.Decimal `json:"totalExpense"`
	Balance          decimal.Decimal `json:"balance"`
	TransactionCount int             `json:"transactionCount"`
	ByCategory       []CategoryTotal `json:"byCategory"`
	Daily            []DailyTotal    `json:"daily"`
}

var hundred = decimal.NewFromInt(100)

// Summarize computes totals for txs dated within [start, end]. Deleted and cancelled
// transactions are skipped; transfers are counted but move no money in or out.
func Summarize(walletID uuid.UUID, txs []*Transaction, start, end time.Time) *Summary {
	s := &Summary{
		WalletID:   walletID,
		StartDate:  start,
		EndDate:    end,
		ByCategory: []CategoryTotal{},
		Daily:      []DailyTotal{},
	}

	type categoryKey struct {
		id  string
		typ Type
	}

	categories := map[categoryKey]*CategoryTotal{}
	days := map[time.Time]*DailyTotal{}

	for _, tx := range txs {
		if tx.IsDeleted() || tx.Status == StatusCancelled {
			continue
		}

		if tx.Date.Before(start) || tx.Date.After(end) {
			continue
		}

		s.TransactionCount++

		if tx.Type == TypeTransfer {
			continue
		}

		y, m, d := tx.Date.UTC().Date()
		day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

		daily, ok := days[day]
		if !ok {
			daily = &DailyTotal{Date: day}
			days[day] = daily
		}

		switch tx.Type {
		case TypeIncome:
			s.TotalIncome = s.TotalIncome.Add(tx.Amount)
			daily.Income = daily.Income.Add(tx.Amount)
		case TypeExpense:
			s.TotalExpense = s.TotalExpense.Add(tx.Amount)
			daily.Expense = daily.Expense.Add(tx.Amount)
		}

		key := categoryKey{id: tx.CategoryID, typ: tx.Type}

		ct, ok := categories[key]
		if !ok {
			ct = &CategoryTotal{CategoryID: tx.CategoryID, Type: tx.Type}
			categories[key] = ct
		}

		ct.Total = ct.Total.Add(tx.Amount)
		ct.Count++
	}

	s.Balance = s.TotalIncome.Sub(s.TotalExpense)

	for _, ct := range categories {
		base := s.TotalExpense
		if ct.Type == TypeIncome {
			base = s.TotalIncome
		}

		if !base.IsZero() {
			ct.Percentage = ct.Total.Div(base).Mul(hundred).Round(2)
		}

		s.ByCategory = append(s.ByCategory, *ct)
	}

	slices.SortFunc(s.ByCategory, func(a, b CategoryTotal) int {
		if a.Type != b.Type {
			if a.Type < b.Type {
				return -1
			}

			return 1
		}

		if c := b.Total.Cmp(a.Total); c != 0 {
			return c
		}

		if a.CategoryID < b.CategoryID {
			return -1
		}

		if a.CategoryID > b.CategoryID {
			return 1
		}

		return 0
	})

	for _, d := range days {
		d.Balance = d.Income.Sub(d.Expense)
		s.Daily = append(s.Daily, *d)
	}

	slices.SortFunc(s.Daily, func(a, b DailyTotal) int {
		return a.Date.Compare(b.Date)
	})

	return s
}
