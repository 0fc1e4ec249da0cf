package view

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// FormatAmount renders amount with the currency's symbol, grouping and minor units.
// Unknown currency codes fall back to "<code> <amount>".
func FormatAmount(amount decimal.Decimal, code string) string {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return fmt.Sprintf("%s %s", code, amount.StringFixed(2))
	}

	return printer.Sprint(currency.Symbol(unit.Amount(amount.InexactFloat64())))
}

// FormatDate formats a time.Time into YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(time.DateOnly)
}

// FormatSince renders how long ago t was, or "never" for a nil time.
func FormatSince(t *time.Time, now time.Time) string {
	if t == nil {
		return "never"
	}

	d := now.Sub(*t).Round(time.Second)
	if d < time.Second {
		return "just now"
	}

	return d.String() + " ago"
}
