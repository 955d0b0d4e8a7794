package http

import (
	"errors"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"spendlens/internal/analytics"
	"spendlens/internal/core"
	"spendlens/internal/ledger"
	"spendlens/internal/log"
)

const (
	maxJSONBody   = 1 << 20  // 1 MiB
	maxImportBody = 10 << 20 // 10 MiB
	maxUserLen    = 64
)

type expenseJSON struct {
	Date     string `json:"date"`
	Amount   string `json:"amount"`
	Category string `json:"category"`
	Note     string `json:"note,omitempty"`
}

func toExpenseJSON(e core.Expense) expenseJSON {
	return expenseJSON{
		Date:     e.Date.String(),
		Amount:   e.Amount.String(),
		Category: e.Category,
		Note:     e.Note,
	}
}

// requireUser extracts and validates the user query parameter. Every
// data endpoint is scoped by it; handlers never mix users.
func (s *Server) requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	user := sanitizeInput(r.URL.Query().Get("user"))
	if user == "" {
		writeError(w, http.StatusBadRequest, "missing user parameter")
		return "", false
	}
	if len(user) > maxUserLen {
		writeError(w, http.StatusBadRequest, "user parameter too long")
		return "", false
	}
	return user, true
}

func (s *Server) handleExpenses(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listExpenses(w, r)
	case http.MethodPost:
		s.createExpense(w, r)
	default:
		methodNotAllowed(w, "GET, POST")
	}
}

func (s *Server) listExpenses(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	records, err := s.loadExpenses(r.Context(), user)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "List expenses failed",
			log.FieldUser, user, log.FieldError, err)
		writeError(w, http.StatusInternalServerError, "failed to list expenses")
		return
	}

	out := make([]expenseJSON, 0, len(records))
	for _, e := range records {
		out = append(out, toExpenseJSON(e))
	}
	writeJSON(w, http.StatusOK, struct {
		User     string        `json:"user"`
		Expenses []expenseJSON `json:"expenses"`
	}{User: user, Expenses: out})
}

func (s *Server) createExpense(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	var req expenseJSON
	if !decodeJSONBody(w, r, maxJSONBody, &req) {
		return
	}

	day, err := ledger.ParseDateFlexible(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unparsable date: "+req.Date)
		return
	}
	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount: "+req.Amount)
		return
	}

	expense := core.Expense{
		Date:     day,
		Amount:   core.Money{Cents: cents},
		Category: sanitizeInput(req.Category),
		Note:     sanitizeInput(req.Note),
	}
	if err := expense.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rowRef, err := s.store.Append(r.Context(), user, expense)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Append expense failed",
			log.FieldUser, user, log.FieldError, err)
		writeError(w, http.StatusInternalServerError, "failed to store expense")
		return
	}
	s.invalidateUser(user)

	s.logger.InfoContext(r.Context(), "Expense recorded",
		log.FieldUser, user,
		log.FieldCategory, expense.Category,
		log.FieldAmount, expense.Amount.Cents,
		log.FieldDate, expense.Date.String())

	writeJSON(w, http.StatusCreated, struct {
		RowRef string `json:"row_ref"`
	}{RowRef: rowRef})
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImportBody)

	src := r.Body
	if mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type")); err == nil && strings.HasPrefix(mt, "multipart/") {
		file, _, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "missing file field")
			return
		}
		defer func() { _ = file.Close() }()
		src = file
	}

	summary, err := s.importer.Import(r.Context(), user, src)
	if err != nil {
		if errors.Is(err, ledger.ErrMissingColumns) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.ErrorContext(r.Context(), "Import failed",
			log.FieldUser, user, log.FieldError, err)
		writeError(w, http.StatusInternalServerError, "import failed")
		return
	}
	s.invalidateUser(user)

	writeJSON(w, http.StatusOK, struct {
		Imported int `json:"imported"`
		Skipped  int `json:"skipped"`
	}{Imported: summary.Imported, Skipped: summary.Skipped})
}

func (s *Server) handleLimit(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		limit, err := s.store.GetWeeklyLimit(r.Context(), user)
		if err != nil {
			s.logger.ErrorContext(r.Context(), "Get weekly limit failed",
				log.FieldUser, user, log.FieldError, err)
			writeError(w, http.StatusInternalServerError, "failed to read limit")
			return
		}
		writeJSON(w, http.StatusOK, struct {
			User        string `json:"user"`
			WeeklyLimit string `json:"weekly_limit"`
		}{User: user, WeeklyLimit: limit.Amount.String()})

	case http.MethodPut:
		var req struct {
			WeeklyLimit string `json:"weekly_limit"`
		}
		if !decodeJSONBody(w, r, maxJSONBody, &req) {
			return
		}
		cents, err := core.ParseDecimalToCents(req.WeeklyLimit)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid weekly_limit: "+req.WeeklyLimit)
			return
		}
		limit := core.WeeklyLimit{Amount: core.Money{Cents: cents}}
		if err := limit.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := s.store.SetWeeklyLimit(r.Context(), user, limit); err != nil {
			s.logger.ErrorContext(r.Context(), "Set weekly limit failed",
				log.FieldUser, user, log.FieldError, err)
			writeError(w, http.StatusInternalServerError, "failed to store limit")
			return
		}
		writeJSON(w, http.StatusOK, struct {
			User        string `json:"user"`
			WeeklyLimit string `json:"weekly_limit"`
		}{User: user, WeeklyLimit: limit.Amount.String()})

	default:
		methodNotAllowed(w, "GET, PUT")
	}
}

func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	months := 1
	if raw := r.URL.Query().Get("months"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "months must be a number")
			return
		}
		months = n
	}

	records, err := s.loadExpenses(r.Context(), user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list expenses")
		return
	}

	days, err := s.engine.DailyTrend(records, months)
	if err != nil {
		s.writeAnalyticsError(w, r, user, err)
		return
	}

	type dayJSON struct {
		Day   string `json:"day"`
		Total string `json:"total"`
	}
	out := make([]dayJSON, 0, len(days))
	for _, d := range days {
		out = append(out, dayJSON{Day: d.Day.String(), Total: d.Total.String()})
	}
	writeJSON(w, http.StatusOK, struct {
		User   string    `json:"user"`
		Months int       `json:"months"`
		Days   []dayJSON `json:"days"`
	}{User: user, Months: months, Days: out})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	k := 0
	if raw := r.URL.Query().Get("k"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "k must be a positive number")
			return
		}
		k = n
	}

	records, err := s.loadExpenses(r.Context(), user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list expenses")
		return
	}

	cats, err := s.engine.TopCategories(records, k)
	if err != nil {
		s.writeAnalyticsError(w, r, user, err)
		return
	}

	type catJSON struct {
		Name  string `json:"name"`
		Total string `json:"total"`
	}
	out := make([]catJSON, 0, len(cats))
	for _, c := range cats {
		out = append(out, catJSON{Name: c.Name, Total: c.Total.String()})
	}
	writeJSON(w, http.StatusOK, struct {
		User       string    `json:"user"`
		Categories []catJSON `json:"categories"`
	}{User: user, Categories: out})
}

func (s *Server) handleWeekdays(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	records, err := s.loadExpenses(r.Context(), user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list expenses")
		return
	}

	profile, err := s.engine.WeekdayProfile(records)
	if err != nil {
		s.writeAnalyticsError(w, r, user, err)
		return
	}

	type weekdayJSON struct {
		Weekday string `json:"weekday"`
		Total   string `json:"total"`
	}
	out := make([]weekdayJSON, 0, len(profile))
	for _, wd := range profile {
		out = append(out, weekdayJSON{Weekday: wd.Weekday.String(), Total: wd.Total.String()})
	}
	writeJSON(w, http.StatusOK, struct {
		User     string        `json:"user"`
		Weekdays []weekdayJSON `json:"weekdays"`
	}{User: user, Weekdays: out})
}

func (s *Server) handleRecurring(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	records, err := s.loadExpenses(r.Context(), user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list expenses")
		return
	}

	candidates, err := s.engine.DetectRecurring(records)
	if err != nil {
		s.writeAnalyticsError(w, r, user, err)
		return
	}

	type candidateJSON struct {
		Signature    string  `json:"signature"`
		Interval     string  `json:"interval"`
		Occurrences  int     `json:"occurrences"`
		MeanGapDays  float64 `json:"mean_gap_days"`
		LastAmount   string  `json:"last_amount"`
		NextExpected string  `json:"next_expected"`
		Confidence   string  `json:"confidence"`
	}
	out := make([]candidateJSON, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, candidateJSON{
			Signature:    c.Signature,
			Interval:     c.Interval,
			Occurrences:  c.Occurrences,
			MeanGapDays:  c.MeanGapDays,
			LastAmount:   c.LastAmount.String(),
			NextExpected: c.NextExpected.String(),
			Confidence:   c.Confidence,
		})
	}
	writeJSON(w, http.StatusOK, struct {
		User      string          `json:"user"`
		Recurring []candidateJSON `json:"recurring"`
	}{User: user, Recurring: out})
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	records, err := s.loadExpenses(r.Context(), user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list expenses")
		return
	}
	limit, err := s.store.GetWeeklyLimit(r.Context(), user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read limit")
		return
	}

	insights, err := s.engine.Insights(records, limit)
	if err != nil {
		s.writeAnalyticsError(w, r, user, err)
		return
	}

	type insightJSON struct {
		Kind string `json:"kind"`
		Text string `json:"text"`
	}
	out := make([]insightJSON, 0, len(insights))
	for _, in := range insights {
		out = append(out, insightJSON{Kind: in.Kind, Text: in.Text})
	}
	writeJSON(w, http.StatusOK, struct {
		User     string        `json:"user"`
		Insights []insightJSON `json:"insights"`
	}{User: user, Insights: out})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	var req struct {
		Question string `json:"question"`
	}
	if !decodeJSONBody(w, r, maxJSONBody, &req) {
		return
	}
	question := sanitizeInput(req.Question)
	if question == "" {
		writeError(w, http.StatusBadRequest, "missing question")
		return
	}

	records, err := s.loadExpenses(r.Context(), user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list expenses")
		return
	}
	limit, err := s.store.GetWeeklyLimit(r.Context(), user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read limit")
		return
	}

	answer, err := s.engine.AnswerQuestion(records, limit, question)
	if err != nil {
		s.writeAnalyticsError(w, r, user, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		User   string `json:"user"`
		Intent string `json:"intent"`
		Answer string `json:"answer"`
	}{User: user, Intent: string(answer.Intent), Answer: answer.Text})
}

func (s *Server) handleReportRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	if s.publisher == nil {
		writeError(w, http.StatusServiceUnavailable, "report queue is not configured")
		return
	}

	if err := s.publisher.PublishReportRequest(r.Context(), user); err != nil {
		s.logger.ErrorContext(r.Context(), "Report request publish failed",
			log.FieldUser, user, log.FieldError, err)
		writeError(w, http.StatusServiceUnavailable, "failed to enqueue report request")
		return
	}

	writeJSON(w, http.StatusAccepted, struct {
		User   string `json:"user"`
		Queued bool   `json:"queued"`
	}{User: user, Queued: true})
}

// writeAnalyticsError maps engine errors onto HTTP statuses. Window
// errors are the caller's fault; empty or short ledgers are a data
// state, reported as unprocessable rather than a server fault.
func (s *Server) writeAnalyticsError(w http.ResponseWriter, r *http.Request, user string, err error) {
	switch {
	case errors.Is(err, analytics.ErrInvalidWindow):
		writeError(w, http.StatusBadRequest, "months must be one of 1, 3, 6, 12")
	case errors.Is(err, analytics.ErrEmptyLedger):
		writeError(w, http.StatusUnprocessableEntity, "no expenses recorded yet")
	case errors.Is(err, analytics.ErrInsufficientHistory):
		writeError(w, http.StatusUnprocessableEntity, "not enough history for this analysis")
	default:
		s.logger.ErrorContext(r.Context(), "Analytics failed",
			log.FieldUser, user, log.FieldError, err)
		writeError(w, http.StatusInternalServerError, "analysis failed")
	}
}
