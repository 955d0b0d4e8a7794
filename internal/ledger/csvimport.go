package ledger

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"spendlens/internal/core"
	"spendlens/internal/log"
)

// FallbackCategory is assigned to imported rows when the statement has
// no category column.
const FallbackCategory = "Bank Debit"

var ErrMissingColumns = errors.New("csv missing date or amount column")

// Importer reads bank statement CSVs into the ledger. Column names vary
// between banks, so headers are matched by substring.
type Importer struct {
	writer Writer
	logger *log.Logger
}

func NewImporter(w Writer, logger *log.Logger) *Importer {
	return &Importer{writer: w, logger: logger.WithComponent(log.ComponentImport)}
}

// Import appends every parsable debit row to the user's ledger.
// Malformed rows (bad date, bad amount, short record) are counted as
// skipped and do not abort the import.
func (im *Importer) Import(ctx context.Context, user string, r io.Reader) (ImportSummary, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return ImportSummary{}, fmt.Errorf("read csv header: %w", err)
	}

	cols, err := mapColumns(header)
	if err != nil {
		return ImportSummary{}, err
	}

	var sum ImportSummary
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			sum.Skipped++
			continue
		}

		e, err := cols.expense(row)
		if err != nil {
			sum.Skipped++
			im.logger.Debug("Skipping malformed row", "error", err)
			continue
		}

		if _, err := im.writer.Append(ctx, user, e); err != nil {
			return sum, fmt.Errorf("append imported expense: %w", err)
		}
		sum.Imported++
	}

	im.logger.InfoContext(ctx, "CSV import finished",
		log.FieldUser, user,
		log.FieldImported, sum.Imported,
		log.FieldSkipped, sum.Skipped)

	return sum, nil
}

// columnMap holds the resolved index of each field, -1 when absent.
type columnMap struct {
	date     int
	amount   int
	note     int
	category int
}

func mapColumns(header []string) (columnMap, error) {
	cols := columnMap{date: -1, amount: -1, note: -1, category: -1}
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		switch {
		case cols.date < 0 && strings.Contains(name, "date"):
			cols.date = i
		case cols.amount < 0 && (strings.Contains(name, "debit") ||
			strings.Contains(name, "withdraw") ||
			strings.Contains(name, "amount")):
			cols.amount = i
		case cols.category < 0 && strings.Contains(name, "categ"):
			cols.category = i
		case cols.note < 0 && (strings.Contains(name, "desc") ||
			strings.Contains(name, "narration") ||
			strings.Contains(name, "details") ||
			strings.Contains(name, "note")):
			cols.note = i
		}
	}
	if cols.date < 0 || cols.amount < 0 {
		return cols, ErrMissingColumns
	}
	return cols, nil
}

func (c columnMap) expense(row []string) (core.Expense, error) {
	need := c.date
	if c.amount > need {
		need = c.amount
	}
	if len(row) <= need {
		return core.Expense{}, errors.New("row too short")
	}

	date, err := ParseDateFlexible(row[c.date])
	if err != nil {
		return core.Expense{}, err
	}

	cents, err := core.ParseDecimalToCents(row[c.amount])
	if err != nil {
		return core.Expense{}, err
	}

	e := core.Expense{
		Date:     date,
		Amount:   core.Money{Cents: cents},
		Category: FallbackCategory,
	}
	if c.category >= 0 && len(row) > c.category && strings.TrimSpace(row[c.category]) != "" {
		e.Category = strings.TrimSpace(row[c.category])
	}
	if c.note >= 0 && len(row) > c.note {
		e.Note = strings.TrimSpace(row[c.note])
	}
	return e, e.Validate()
}
