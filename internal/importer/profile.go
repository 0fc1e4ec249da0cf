package importer

// Profile describes the column layout of one bank's CSV export. A profile with an
// AmountCol has a single signed amount; otherwise DebitCol and CreditCol hold
// unsigned amounts.
type Profile struct {
	Name       string
	DateCol    string
	DateLayout string
	DescCol    string
	AmountCol  string
	DebitCol   string
	CreditCol  string

	// DecimalComma is set for exports written as "1.234,56".
	DecimalComma bool
}

func (p Profile) split() bool {
	return p.AmountCol == ""
}

func (p Profile) requiredCols() []string {
	if p.split() {
		return []string{p.DateCol, p.DescCol, p.DebitCol, p.CreditCol}
	}

	return []string{p.DateCol, p.DescCol, p.AmountCol}
}

// DefaultProfiles are tried in order; more specific layouts come first.
var DefaultProfiles = []Profile{
	{
		Name:         "cgd-card",
		DateCol:      "Data",
		DateLayout:   "02-01-2006",
		DescCol:      "Descrição",
		DebitCol:     "Débito",
		CreditCol:    "Crédito",
		DecimalComma: true,
	},
	{
		Name:         "cgd-statement",
		DateCol:      "Data mov.",
		DateLayout:   "02-01-2006",
		DescCol:      "Descrição",
		AmountCol:    "Movimento",
		DecimalComma: true,
	},
	{
		Name:         "cgd-account",
		DateCol:      "Data mov.",
		DateLayout:   "02-01-2006",
		DescCol:      "Descrição",
		AmountCol:    "Montante",
		DecimalComma: true,
	},
	{
		Name:       "generic",
		DateCol:    "Date",
		DateLayout: "2006-01-02",
		DescCol:    "Description",
		AmountCol:  "Amount",
	},
	{
		Name:       "generic-split",
		DateCol:    "Date",
		DateLayout: "2006-01-02",
		DescCol:    "Description",
		DebitCol:   "Debit",
		CreditCol:  "Credit",
	},
}
