// Package importer turns bank CSV exports into pending transactions.
package importer

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/walletsync/internal/transaction"
)

var ErrUnknownFormat = errors.New("unrecognized statement format")

// MetadataKey is the transaction metadata entry holding the import fingerprint.
const MetadataKey = "importKey"

type Result struct {
	Profile      string
	Charset      string
	Transactions []*transaction.Transaction
}

type Importer struct {
	profiles []Profile
}

// New returns an importer that tries profiles in order, or DefaultProfiles when none are given.
func New(profiles ...Profile) *Importer {
	if len(profiles) == 0 {
		profiles = DefaultProfiles
	}

	return &Importer{profiles: profiles}
}

// Parse reads a statement in any supported encoding and delimiter. Rows without
// a parseable date or a non-zero amount (preambles, footers, balances) are skipped.
func (i *Importer) Parse(r io.Reader) (*Result, error) {
	utf8r, charset, err := utf8Reader(r)
	if err != nil {
		return nil, fmt.Errorf("detecting encoding: %w", err)
	}

	data, err := io.ReadAll(utf8r)
	if err != nil {
		return nil, fmt.Errorf("reading statement: %w", err)
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = sniffDelimiter(data)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading csv: %w", err)
	}

	p, cols, header := i.detect(rows)
	if p == nil {
		return nil, ErrUnknownFormat
	}

	txs, err := parseRows(p, cols, rows[header+1:], header+1)
	if err != nil {
		return nil, err
	}

	slog.Debug("parsed statement", "profile", p.Name, "charset", charset, "transactions", len(txs))

	return &Result{Profile: p.Name, Charset: charset, Transactions: txs}, nil
}

// sniffDelimiter picks ';' or ',' by counting them on the first lines.
func sniffDelimiter(data []byte) rune {
	sc := bufio.NewScanner(bytes.NewReader(data))

	semi, comma := 0, 0

	for n := 0; n < 20 && sc.Scan(); n++ {
		line := sc.Text()
		semi += strings.Count(line, ";")
		comma += strings.Count(line, ",")
	}

	if semi >= comma && semi > 0 {
		return ';'
	}

	return ','
}

type colIndex map[string]int

func (i *Importer) detect(rows [][]string) (*Profile, colIndex, int) {
	for rowIdx, row := range rows {
		cols := make(colIndex, len(row))

		for c, cell := range row {
			if name := strings.TrimSpace(cell); name != "" {
				cols[name] = c
			}
		}

		for p := range i.profiles {
			if matches(&i.profiles[p], cols) {
				return &i.profiles[p], cols, rowIdx
			}
		}
	}

	return nil, nil, 0
}

func matches(p *Profile, cols colIndex) bool {
	for _, name := range p.requiredCols() {
		if _, ok := cols[name]; !ok {
			return false
		}
	}

	return true
}

func parseRows(p *Profile, cols colIndex, rows [][]string, offset int) ([]*transaction.Transaction, error) {
	var txs []*transaction.Transaction

	// identical lines in one statement are distinct purchases
	occurrences := map[string]int{}

	for n, row := range rows {
		date, err := time.Parse(p.DateLayout, cell(row, cols[p.DateCol]))
		if err != nil {
			continue
		}

		amount, typ, ok := rowAmount(p, cols, row)
		if !ok {
			continue
		}

		desc := cell(row, cols[p.DescCol])
		if desc == "" {
			return nil, fmt.Errorf("row %d: missing description", offset+n+1)
		}

		tx := &transaction.Transaction{
			Amount:      amount,
			Type:        typ,
			Status:      transaction.StatusPending,
			Description: desc,
			Date:        date,
		}

		base := Fingerprint(tx)

		key := base
		if c := occurrences[base]; c > 0 {
			key = fmt.Sprintf("%s-%d", base, c)
		}

		occurrences[base]++
		tx.Metadata = map[string]any{MetadataKey: key}

		txs = append(txs, tx)
	}

	return txs, nil
}

func rowAmount(p *Profile, cols colIndex, row []string) (decimal.Decimal, transaction.Type, bool) {
	if !p.split() {
		d, ok := parseAmount(cell(row, cols[p.AmountCol]), p.DecimalComma)
		if !ok {
			return decimal.Zero, "", false
		}

		if d.IsNegative() {
			return d.Neg(), transaction.TypeExpense, true
		}

		return d, transaction.TypeIncome, true
	}

	if d, ok := parseAmount(cell(row, cols[p.DebitCol]), p.DecimalComma); ok {
		return d.Abs(), transaction.TypeExpense, true
	}

	if d, ok := parseAmount(cell(row, cols[p.CreditCol]), p.DecimalComma); ok {
		return d.Abs(), transaction.TypeIncome, true
	}

	return decimal.Zero, "", false
}

// parseAmount accepts "1.234,56" when decimalComma is set and "1,234.56" otherwise.
// Zero and unparseable values report false.
func parseAmount(s string, decimalComma bool) (decimal.Decimal, bool) {
	if s == "" {
		return decimal.Zero, false
	}

	if decimalComma {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	} else {
		s = strings.ReplaceAll(s, ",", "")
	}

	d, err := decimal.NewFromString(strings.ReplaceAll(s, " ", ""))
	if err != nil || d.IsZero() {
		return decimal.Zero, false
	}

	return d, true
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}

	return strings.TrimSpace(row[idx])
}

// Fingerprint identifies a statement line by date, direction, amount and description,
// so importing the same export twice does not duplicate transactions.
func Fingerprint(tx *transaction.Transaction) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%s", tx.Date.Format(time.DateOnly), tx.Type, tx.Amount.String(), tx.Description)

	return hex.EncodeToString(h.Sum(nil))[:16]
}

func importKey(tx *transaction.Transaction) string {
	key, _ := tx.Metadata[MetadataKey].(string)
	return key
}

// Fresh drops the parsed transactions whose import key already appears among existing.
func Fresh(existing, parsed []*transaction.Transaction) []*transaction.Transaction {
	seen := make(map[string]bool, len(existing))

	for _, tx := range existing {
		if key := importKey(tx); key != "" {
			seen[key] = true
		}
	}

	var out []*transaction.Transaction

	for _, tx := range parsed {
		if seen[importKey(tx)] {
			continue
		}

		out = append(out, tx)
	}

	return out
}
