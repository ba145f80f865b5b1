package dataflows

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dyike/TradeMind/internal/config"
)

// Statement kinds available from the offline fundamentals archive.
const (
	StatementBalanceSheet = "balance_sheet"
	StatementIncome       = "income_stmt"
	StatementCashflow     = "cashflow"
)

// SimfinClient reads financial statements from the offline SimFin
// archive under the data directory. There is no online path; the
// archive is refreshed out of band.
type SimfinClient struct {
	dataDir string
}

func NewSimfinClient(cfg *config.Config) *SimfinClient {
	return &SimfinClient{dataDir: cfg.DataDir}
}

// GetStatement loads the most recent statement of the given kind for
// a symbol.
func (sc *SimfinClient) GetStatement(symbol, kind string) (*FundamentalStatement, error) {
	switch kind {
	case StatementBalanceSheet, StatementIncome, StatementCashflow:
	default:
		return nil, fmt.Errorf("unknown statement kind: %s", kind)
	}

	path := filepath.Join(sc.dataDir, "fundamental_data", kind,
		fmt.Sprintf("%s.json", strings.ToUpper(symbol)))

	var stmt FundamentalStatement
	if err := LoadJSON(path, &stmt); err != nil {
		return nil, fmt.Errorf("offline %s not available for %s: %w", kind, symbol, err)
	}
	return &stmt, nil
}

// FormatStatement renders a statement as a markdown section.
func FormatStatement(stmt *FundamentalStatement) string {
	var b strings.Builder
	fmt.Fprintf(&b, "### %s (%s)\n\n", statementTitle(stmt.Statement), stmt.Symbol)
	fmt.Fprintf(&b, "Fiscal date: %s", stmt.FiscalDate)
	if stmt.Currency != "" {
		fmt.Fprintf(&b, " | Currency: %s", stmt.Currency)
	}
	b.WriteString("\n\n| Item | Value |\n|------|-------|\n")

	names := make([]string, 0, len(stmt.Items))
	for name := range stmt.Items {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&b, "| %s | %.2f |\n", name, stmt.Items[name])
	}
	return b.String()
}

func statementTitle(kind string) string {
	switch kind {
	case StatementBalanceSheet:
		return "Balance Sheet"
	case StatementIncome:
		return "Income Statement"
	case StatementCashflow:
		return "Cash Flow Statement"
	}
	return kind
}
