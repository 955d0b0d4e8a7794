package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"spendlens/internal/analytics"
	"spendlens/internal/core"
	"spendlens/internal/ledger/memory"
	"spendlens/internal/log"
)

var fixedNow = time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

type fakePublisher struct {
	users []string
	err   error
}

func (p *fakePublisher) PublishReportRequest(_ context.Context, user string) error {
	if p.err != nil {
		return p.err
	}
	p.users = append(p.users, user)
	return nil
}

func newTestServer(t *testing.T, publisher ReportPublisher) (*Server, *memory.Store) {
	t.Helper()
	store := memory.New()
	engine := analytics.New(analytics.DefaultConfig()).WithClock(func() time.Time { return fixedNow })
	logger := log.New(log.DefaultConfig())
	s := NewServer("127.0.0.1:0", store, engine, publisher, logger)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})
	return s, store
}

func seed(t *testing.T, store *memory.Store, user string, day core.Date, cents int64, category string) {
	t.Helper()
	_, err := store.Append(context.Background(), user, core.Expense{
		Date:     day,
		Amount:   core.Money{Cents: cents},
		Category: category,
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func doJSON(s *Server, method, target string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("unmarshal response %q: %v", rec.Body.String(), err)
	}
}

func TestCreateAndListExpenses(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := doJSON(s, http.MethodPost, "/expenses?user=alice", expenseJSON{
		Date: "31/08/2026", Amount: "12.34", Category: "Food", Note: "lunch",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	var created struct {
		RowRef string `json:"row_ref"`
	}
	decodeBody(t, rec, &created)
	if created.RowRef == "" {
		t.Fatal("expected non-empty row_ref")
	}

	rec = doJSON(s, http.MethodGet, "/expenses?user=alice", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var listed struct {
		User     string        `json:"user"`
		Expenses []expenseJSON `json:"expenses"`
	}
	decodeBody(t, rec, &listed)
	if len(listed.Expenses) != 1 {
		t.Fatalf("expected 1 expense, got %d", len(listed.Expenses))
	}
	got := listed.Expenses[0]
	if got.Date != "2026-08-31" || got.Amount != "12.34" || got.Category != "Food" {
		t.Fatalf("unexpected expense %+v", got)
	}
}

func TestCreateExpenseValidation(t *testing.T) {
	s, _ := newTestServer(t, nil)

	tests := []struct {
		name string
		body expenseJSON
	}{
		{"bad date", expenseJSON{Date: "not-a-date", Amount: "5.00", Category: "Food"}},
		{"bad amount", expenseJSON{Date: "31/08/2026", Amount: "abc", Category: "Food"}},
		{"zero amount", expenseJSON{Date: "31/08/2026", Amount: "0", Category: "Food"}},
		{"empty category", expenseJSON{Date: "31/08/2026", Amount: "5.00", Category: "  "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(s, http.MethodPost, "/expenses?user=alice", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestMissingUserParameter(t *testing.T) {
	s, _ := newTestServer(t, nil)

	for _, target := range []string{"/expenses", "/analytics/trend", "/limit", "/analytics/insights"} {
		rec := doJSON(s, http.MethodGet, target, nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: status = %d, want 400", target, rec.Code)
		}
	}
}

func TestExpensesMethodNotAllowed(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := doJSON(s, http.MethodDelete, "/expenses?user=alice", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
	if allow := rec.Header().Get("Allow"); !strings.Contains(allow, "GET") {
		t.Fatalf("Allow header = %q", allow)
	}
}

func TestTrendEndpoint(t *testing.T) {
	s, store := newTestServer(t, nil)
	seed(t, store, "alice", core.NewDate(2026, 8, 30), 1500, "Food")
	seed(t, store, "alice", core.NewDate(2026, 8, 31), 500, "Transport")

	rec := doJSON(s, http.MethodGet, "/analytics/trend?user=alice&months=1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Months int `json:"months"`
		Days   []struct {
			Day   string `json:"day"`
			Total string `json:"total"`
		} `json:"days"`
	}
	decodeBody(t, rec, &resp)

	// Window [2026-07-31, 2026-08-31] inclusive, zero-filled.
	if len(resp.Days) != 32 {
		t.Fatalf("expected 32 days, got %d", len(resp.Days))
	}
	last := resp.Days[len(resp.Days)-1]
	if last.Day != "2026-08-31" || last.Total != "5.00" {
		t.Fatalf("unexpected last day %+v", last)
	}
}

func TestTrendInvalidWindow(t *testing.T) {
	s, store := newTestServer(t, nil)
	seed(t, store, "alice", core.NewDate(2026, 8, 30), 1500, "Food")

	rec := doJSON(s, http.MethodGet, "/analytics/trend?user=alice&months=5", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestTrendEmptyLedger(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := doJSON(s, http.MethodGet, "/analytics/trend?user=alice&months=1", nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
}

func TestCategoriesEndpoint(t *testing.T) {
	s, store := newTestServer(t, nil)
	seed(t, store, "alice", core.NewDate(2026, 8, 20), 3000, "Rent")
	seed(t, store, "alice", core.NewDate(2026, 8, 21), 1000, "Food")
	seed(t, store, "alice", core.NewDate(2026, 8, 22), 500, "Transport")

	rec := doJSON(s, http.MethodGet, "/analytics/categories?user=alice&k=2", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Categories []struct {
			Name  string `json:"name"`
			Total string `json:"total"`
		} `json:"categories"`
	}
	decodeBody(t, rec, &resp)
	if len(resp.Categories) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(resp.Categories))
	}
	if resp.Categories[0].Name != "Rent" || resp.Categories[0].Total != "30.00" {
		t.Fatalf("unexpected top category %+v", resp.Categories[0])
	}
}

func TestWeekdaysEndpoint(t *testing.T) {
	s, store := newTestServer(t, nil)
	seed(t, store, "alice", core.NewDate(2026, 8, 24), 700, "Food") // a Monday

	rec := doJSON(s, http.MethodGet, "/analytics/weekdays?user=alice", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Weekdays []struct {
			Weekday string `json:"weekday"`
			Total   string `json:"total"`
		} `json:"weekdays"`
	}
	decodeBody(t, rec, &resp)
	if len(resp.Weekdays) != 7 {
		t.Fatalf("expected 7 weekday buckets, got %d", len(resp.Weekdays))
	}
	if resp.Weekdays[0].Weekday != "Monday" || resp.Weekdays[0].Total != "7.00" {
		t.Fatalf("unexpected Monday bucket %+v", resp.Weekdays[0])
	}
}

func TestRecurringEndpoint(t *testing.T) {
	s, store := newTestServer(t, nil)
	// Monthly charge, same note, three hits.
	seed3 := func(day core.Date) {
		_, err := store.Append(context.Background(), "alice", core.Expense{
			Date: day, Amount: core.Money{Cents: 1299}, Category: "Entertainment", Note: "NETFLIX",
		})
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	seed3(core.NewDate(2026, 6, 15))
	seed3(core.NewDate(2026, 7, 15))
	seed3(core.NewDate(2026, 8, 15))

	rec := doJSON(s, http.MethodGet, "/analytics/recurring?user=alice", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Recurring []struct {
			Signature  string `json:"signature"`
			Interval   string `json:"interval"`
			LastAmount string `json:"last_amount"`
		} `json:"recurring"`
	}
	decodeBody(t, rec, &resp)
	if len(resp.Recurring) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(resp.Recurring))
	}
	got := resp.Recurring[0]
	if got.Interval != "monthly" || got.LastAmount != "12.99" {
		t.Fatalf("unexpected candidate %+v", got)
	}
}

func TestInsightsEndpointEmptyLedger(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := doJSON(s, http.MethodGet, "/analytics/insights?user=alice", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Insights []struct {
			Kind string `json:"kind"`
			Text string `json:"text"`
		} `json:"insights"`
	}
	decodeBody(t, rec, &resp)
	if len(resp.Insights) != 1 {
		t.Fatalf("expected single empty-ledger insight, got %d", len(resp.Insights))
	}
}

func TestAskEndpoint(t *testing.T) {
	s, store := newTestServer(t, nil)
	seed(t, store, "alice", core.NewDate(2026, 8, 20), 2000, "Food")

	rec := doJSON(s, http.MethodPost, "/ask?user=alice", map[string]string{
		"question": "Where am I overspending?",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Intent string `json:"intent"`
		Answer string `json:"answer"`
	}
	decodeBody(t, rec, &resp)
	if resp.Intent != string(analytics.IntentOverspending) {
		t.Fatalf("intent = %q", resp.Intent)
	}
	if !strings.Contains(resp.Answer, "Food") {
		t.Fatalf("answer = %q, want mention of Food", resp.Answer)
	}
}

func TestAskMissingQuestion(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := doJSON(s, http.MethodPost, "/ask?user=alice", map[string]string{"question": "  "})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestWeeklyLimitRoundTrip(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := doJSON(s, http.MethodGet, "/limit?user=alice", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		WeeklyLimit string `json:"weekly_limit"`
	}
	decodeBody(t, rec, &resp)
	if resp.WeeklyLimit != "1000.00" {
		t.Fatalf("default limit = %q, want 1000.00", resp.WeeklyLimit)
	}

	rec = doJSON(s, http.MethodPut, "/limit?user=alice", map[string]string{"weekly_limit": "700.00"})
	if rec.Code != http.StatusOK {
		t.Fatalf("put status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(s, http.MethodGet, "/limit?user=alice", nil)
	decodeBody(t, rec, &resp)
	if resp.WeeklyLimit != "700.00" {
		t.Fatalf("limit after put = %q, want 700.00", resp.WeeklyLimit)
	}
}

func TestImportCSVRawBody(t *testing.T) {
	s, _ := newTestServer(t, nil)

	csv := "Date,Amount,Description\n30/08/2026,12.50,Coffee\nbad-date,9.99,Broken\n"
	req := httptest.NewRequest(http.MethodPost, "/expenses/import?user=alice", strings.NewReader(csv))
	req.Header.Set("Content-Type", "text/csv")
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Imported int `json:"imported"`
		Skipped  int `json:"skipped"`
	}
	decodeBody(t, rec, &resp)
	if resp.Imported != 1 || resp.Skipped != 1 {
		t.Fatalf("imported=%d skipped=%d, want 1/1", resp.Imported, resp.Skipped)
	}

	list := doJSON(s, http.MethodGet, "/expenses?user=alice", nil)
	var listed struct {
		Expenses []expenseJSON `json:"expenses"`
	}
	decodeBody(t, list, &listed)
	if len(listed.Expenses) != 1 {
		t.Fatalf("expected imported row visible, got %d rows", len(listed.Expenses))
	}
}

func TestImportCSVMultipart(t *testing.T) {
	s, _ := newTestServer(t, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "statement.csv")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = fw.Write([]byte("Date,Withdrawal Amt\n29/08/2026,40.00\n30/08/2026,15.00\n"))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/expenses/import?user=alice", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Imported int `json:"imported"`
		Skipped  int `json:"skipped"`
	}
	decodeBody(t, rec, &resp)
	if resp.Imported != 2 || resp.Skipped != 0 {
		t.Fatalf("imported=%d skipped=%d, want 2/0", resp.Imported, resp.Skipped)
	}
}

func TestImportMissingColumns(t *testing.T) {
	s, _ := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/expenses/import?user=alice", strings.NewReader("Foo,Bar\n1,2\n"))
	req.Header.Set("Content-Type", "text/csv")
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestReportRequestQueued(t *testing.T) {
	pub := &fakePublisher{}
	s, _ := newTestServer(t, pub)

	rec := doJSON(s, http.MethodPost, "/reports?user=alice", nil)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if len(pub.users) != 1 || pub.users[0] != "alice" {
		t.Fatalf("published users = %v", pub.users)
	}
}

func TestReportRequestNoQueue(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := doJSON(s, http.MethodPost, "/reports?user=alice", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestCacheInvalidationOnCreate(t *testing.T) {
	s, _ := newTestServer(t, nil)

	create := func(amount string) {
		rec := doJSON(s, http.MethodPost, "/expenses?user=alice", expenseJSON{
			Date: "30/08/2026", Amount: amount, Category: "Food",
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("create status = %d", rec.Code)
		}
	}

	create("5.00")
	// Warm the cache.
	doJSON(s, http.MethodGet, "/expenses?user=alice", nil)
	create("6.00")

	rec := doJSON(s, http.MethodGet, "/expenses?user=alice", nil)
	var listed struct {
		Expenses []expenseJSON `json:"expenses"`
	}
	decodeBody(t, rec, &listed)
	if len(listed.Expenses) != 2 {
		t.Fatalf("expected 2 expenses after invalidation, got %d", len(listed.Expenses))
	}
}

func TestUserScopingIsolated(t *testing.T) {
	s, store := newTestServer(t, nil)
	seed(t, store, "alice", core.NewDate(2026, 8, 30), 1000, "Food")
	seed(t, store, "bob", core.NewDate(2026, 8, 30), 2000, "Rent")

	rec := doJSON(s, http.MethodGet, "/expenses?user=bob", nil)
	var listed struct {
		Expenses []expenseJSON `json:"expenses"`
	}
	decodeBody(t, rec, &listed)
	if len(listed.Expenses) != 1 || listed.Expenses[0].Category != "Rent" {
		t.Fatalf("bob's ledger leaked: %+v", listed.Expenses)
	}
}

func TestHealthEndpoints(t *testing.T) {
	s, _ := newTestServer(t, nil)

	for path, want := range map[string]string{"/healthz": "ok", "/readyz": "ready"} {
		rec := doJSON(s, http.MethodGet, path, nil)
		if rec.Code != http.StatusOK || rec.Body.String() != want {
			t.Fatalf("%s: status=%d body=%q", path, rec.Code, rec.Body.String())
		}
	}
}
