package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/johnfercher/maroto/pkg/color"
	"github.com/johnfercher/maroto/pkg/consts"
	"github.com/johnfercher/maroto/pkg/pdf"
	"github.com/johnfercher/maroto/pkg/props"

	"spendlens/internal/log"
)

// PDFRenderer writes spending reports into a reports directory, one
// file per user per day.
type PDFRenderer struct {
	dir    string
	logger *log.Logger
}

func NewPDFRenderer(dir string, logger *log.Logger) *PDFRenderer {
	return &PDFRenderer{dir: dir, logger: logger.WithComponent(log.ComponentReport)}
}

var (
	accent = color.Color{Red: 0, Green: 105, Blue: 146}
	ink    = color.Color{Red: 30, Green: 41, Blue: 59}
	faint  = color.Color{Red: 148, Green: 163, Blue: 184}
)

// Render writes the PDF and returns its path.
func (r *PDFRenderer) Render(data Data) (string, error) {
	if err := os.MkdirAll(r.dir, 0755); err != nil {
		return "", fmt.Errorf("create reports directory: %w", err)
	}

	m := pdf.NewMaroto(consts.Portrait, consts.A4)
	m.SetPageMargins(15, 20, 15)

	m.RegisterHeader(func() {
		m.Row(10, func() {
			m.Col(12, func() {
				m.Text("SpendLens", props.Text{Size: 16, Style: consts.Bold, Color: accent, Align: consts.Left})
				m.Text("SPENDING REPORT", props.Text{Top: 5, Size: 10, Style: consts.Bold, Color: ink, Align: consts.Right})
			})
		})
		m.Row(8, func() {
			m.Col(12, func() {
				m.Text(data.User, props.Text{Size: 10, Color: faint, Align: consts.Left})
				m.Text(data.GeneratedAt.Format("2 January 2006"), props.Text{Size: 10, Color: ink, Align: consts.Right})
			})
		})
		m.Line(2.0, props.Line{Color: accent})
	})

	m.Row(12, func() {
		m.Col(12, func() {
			m.Text(fmt.Sprintf("Total spending over the last %d days: %.2f", data.TrendDays, data.TrendTotal),
				props.Text{Top: 4, Size: 11, Style: consts.Bold, Color: ink})
		})
	})

	r.pointTable(m, "TOP CATEGORIES (LAST 30 DAYS)", data.Categories, "No spending in the last 30 days.")
	r.pointTable(m, "SPENDING BY WEEKDAY", data.Weekdays, "No weekday data.")
	r.lineSection(m, "RECURRING CHARGES", data.Recurring, "No recurring charges detected.")
	r.pointTable(m, "LARGEST TRANSACTIONS", data.Largest, "No transactions found.")
	r.lineSection(m, "INSIGHTS", data.Insights, "No insights yet.")

	m.RegisterFooter(func() {
		m.Row(10, func() {
			m.Col(12, func() {
				m.Line(1.0)
				m.Text("Generated by SpendLens", props.Text{Top: 3, Size: 8, Align: consts.Center, Color: faint})
			})
		})
	})

	path := filepath.Join(r.dir, fmt.Sprintf("%s_report_%s.pdf", data.User, data.GeneratedAt.Format("2006-01-02")))
	if err := m.OutputFileAndClose(path); err != nil {
		return "", fmt.Errorf("write pdf: %w", err)
	}

	r.logger.Info("Report rendered", log.FieldUser, data.User, log.FieldReportPath, path)
	return path, nil
}

func (r *PDFRenderer) pointTable(m pdf.Maroto, title string, points []Point, emptyText string) {
	r.sectionTitle(m, title)
	m.Row(7, func() {
		m.Col(8, func() { m.Text("LABEL", props.Text{Style: consts.Bold, Size: 9}) })
		m.Col(4, func() { m.Text("AMOUNT", props.Text{Style: consts.Bold, Size: 9}) })
	})
	m.Line(0.5)

	if len(points) == 0 {
		m.Row(8, func() {
			m.Col(12, func() { m.Text(emptyText, props.Text{Size: 9, Style: consts.Italic}) })
		})
		return
	}
	for _, p := range points {
		m.Row(7, func() {
			m.Col(8, func() { m.Text(p.Label, props.Text{Top: 2, Size: 9}) })
			m.Col(4, func() { m.Text(fmt.Sprintf("%.2f", p.Value), props.Text{Top: 2, Size: 9}) })
		})
		m.Line(0.1, props.Line{Color: color.Color{Red: 240, Green: 240, Blue: 240}})
	}
}

func (r *PDFRenderer) lineSection(m pdf.Maroto, title string, lines []string, emptyText string) {
	r.sectionTitle(m, title)
	if len(lines) == 0 {
		m.Row(8, func() {
			m.Col(12, func() { m.Text(emptyText, props.Text{Size: 9, Style: consts.Italic}) })
		})
		return
	}
	for _, line := range lines {
		m.Row(7, func() {
			m.Col(12, func() { m.Text(line, props.Text{Top: 2, Size: 9}) })
		})
	}
}

func (r *PDFRenderer) sectionTitle(m pdf.Maroto, title string) {
	m.Row(12, func() {
		m.Col(12, func() {
			m.Text(title, props.Text{Top: 6, Size: 11, Style: consts.Bold, Color: ink})
		})
	})
}
