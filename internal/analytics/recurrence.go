package analytics

import (
	"math"
	"sort"
	"strings"

	"spendlens/internal/core"
)

// Recurring charges rarely land on the exact same calendar day each
// cycle, so detection clusters by amount tolerance and interval
// regularity instead of exact matching. A record's signature is its
// normalized note when present, otherwise its normalized category;
// note wins over category because it is the more specific label.

type band struct {
	meanCents float64
	items     []core.Expense
}

// DetectRecurring scans the record set for probable recurring charges
// and returns candidates ranked by confidence: more occurrences and
// tighter gap variance rank higher. A signature needs at least the
// configured minimum occurrences (never fewer than 3 by default)
// whose successive date gaps fit a weekly or monthly cadence within
// the configured jitter.
func (e *Engine) DetectRecurring(records []core.Expense) ([]Candidate, error) {
	if len(records) == 0 {
		return nil, ErrEmptyLedger
	}

	groups := make(map[string][]core.Expense)
	display := make(map[string]string)
	for _, r := range records {
		key, label := signature(r)
		if _, seen := display[key]; !seen {
			display[key] = label
		}
		groups[key] = append(groups[key], r)
	}

	var out []Candidate
	for key, items := range groups {
		for _, b := range e.amountBands(items) {
			if c, ok := e.candidate(display[key], b); ok {
				out = append(out, c)
			}
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Occurrences != out[j].Occurrences {
			return out[i].Occurrences > out[j].Occurrences
		}
		vi, vj := gapSpread(out[i]), gapSpread(out[j])
		if vi != vj {
			return vi < vj
		}
		return out[i].Signature < out[j].Signature
	})
	return out, nil
}

func signature(r core.Expense) (key, label string) {
	if note := strings.TrimSpace(r.Note); note != "" {
		return "n:" + core.NormalizeCategory(note), note
	}
	return "c:" + core.NormalizeCategory(r.Category), strings.TrimSpace(r.Category)
}

// amountBands clusters a signature's records into relative-tolerance
// bands. A record joins the first band, in band-creation order, whose
// running mean it sits within; amounts that drift beyond tolerance
// start a new band, splitting the signature into separate candidates.
func (e *Engine) amountBands(items []core.Expense) []*band {
	sorted := append([]core.Expense(nil), items...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date.Time)
	})

	var bands []*band
	for _, r := range sorted {
		placed := false
		for _, b := range bands {
			if math.Abs(float64(r.Amount.Cents)-b.meanCents) <= b.meanCents*e.cfg.AmountTolerancePct {
				b.items = append(b.items, r)
				b.meanCents += (float64(r.Amount.Cents) - b.meanCents) / float64(len(b.items))
				placed = true
				break
			}
		}
		if !placed {
			bands = append(bands, &band{meanCents: float64(r.Amount.Cents), items: []core.Expense{r}})
		}
	}
	return bands
}

// candidate checks whether a band's date gaps fit a weekly or monthly
// cadence and builds the Candidate if so.
func (e *Engine) candidate(label string, b *band) (Candidate, bool) {
	if len(b.items) < e.cfg.MinOccurrences {
		return Candidate{}, false
	}

	gaps := make([]float64, 0, len(b.items)-1)
	for i := 1; i < len(b.items); i++ {
		days := b.items[i].Date.Sub(b.items[i-1].Date.Time).Hours() / 24
		gaps = append(gaps, days)
	}

	interval, target := cadence(gaps, float64(e.cfg.WeeklyJitterDays), float64(e.cfg.MonthlyJitterDays))
	if interval == "" {
		return Candidate{}, false
	}

	mean := meanOf(gaps)
	last := b.items[len(b.items)-1]
	next := core.DateOf(last.Date.AddDate(0, 0, int(math.Round(mean))))

	return Candidate{
		Signature:    label,
		Interval:     interval,
		Occurrences:  len(b.items),
		MeanGapDays:  mean,
		LastAmount:   last.Amount,
		NextExpected: next,
		Confidence:   confidence(len(b.items), stddevOf(gaps, mean), target),
	}, true
}

// cadence returns the matched interval name and its nominal length,
// or "" when the gaps fit neither cadence. Every successive gap must
// sit within the jitter band; one wild gap disqualifies the run.
func cadence(gaps []float64, weeklyJitter, monthlyJitter float64) (string, float64) {
	if fitsAll(gaps, 7, weeklyJitter) {
		return "weekly", 7
	}
	if fitsAll(gaps, 30, monthlyJitter) {
		return "monthly", 30
	}
	return "", 0
}

func fitsAll(gaps []float64, target, jitter float64) bool {
	for _, g := range gaps {
		if math.Abs(g-target) > jitter {
			return false
		}
	}
	return true
}

func confidence(count int, stddev, target float64) string {
	switch {
	case count >= 5 && stddev <= target*0.1:
		return "high"
	case count >= 4 || stddev <= target*0.2:
		return "medium"
	default:
		return "low"
	}
}

// gapSpread is the ranking proxy for interval tightness: mean absolute
// deviation of the candidate's gaps from its cadence target.
func gapSpread(c Candidate) float64 {
	target := 7.0
	if c.Interval == "monthly" {
		target = 30.0
	}
	return math.Abs(c.MeanGapDays - target)
}

func meanOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func stddevOf(xs []float64, mean float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	var ss float64
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}
