package ledger

import (
	"errors"
	"strings"
	"time"

	"spendlens/internal/core"
)

// dateFormats are tried in order. Day-first formats come before
// month-first so ambiguous values like 03/04/2026 resolve day-first.
var dateFormats = []string{
	"02/01/2006",
	"2006-01-02",
	"02-01-2006",
	"01/02/2006",
	"02.01.2006",
}

var ErrUnparsableDate = errors.New("unparsable date")

// ParseDateFlexible parses the date formats commonly found in bank
// statement exports.
func ParseDateFlexible(s string) (core.Date, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateFormats {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		return core.DateOf(t), nil
	}
	return core.Date{}, ErrUnparsableDate
}
