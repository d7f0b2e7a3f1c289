package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendlog/internal/auth"
	"spendlog/internal/core"
	applog "spendlog/internal/log"
	"spendlog/internal/services"
	"spendlog/internal/storage"
	"spendlog/internal/storage/memory"
)

const testSecret = "0123456789abcdef0123456789abcdef"

var (
	now       = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	groceries = storage.CategoryID("Groceries")
	transport = storage.CategoryID("Transportation")
)

type harness struct {
	srv      *Server
	svc      *services.ExpenseService
	sessions *auth.Sessions
	alice    core.User
	bob      core.User
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()
	clock := &core.FixedClock{FixedNow: now}
	quiet := applog.New(applog.Config{Output: io.Discard, Level: applog.ParseLevel("error")})

	store := memory.NewWithDefaults()
	svc := services.NewExpenseService(store, services.WithClock(clock), services.WithLogger(quiet.Slog()))
	sessions := auth.NewSessions(testSecret, time.Hour, clock)

	alice, err := store.UpsertUser(ctx, core.User{Email: "alice@example.com", Name: "Alice"})
	require.NoError(t, err)
	bob, err := store.UpsertUser(ctx, core.User{Email: "bob@example.com", Name: "Bob"})
	require.NoError(t, err)

	handlers := auth.NewHandlers(auth.HandlersConfig{
		Sessions:    sessions,
		Users:       store,
		DemoEnabled: true,
		Logger:      quiet.Slog(),
	})
	srv := NewServer(Config{
		Addr:               ":0",
		Expenses:           svc,
		Sessions:           sessions,
		Auth:               handlers,
		Logger:             quiet,
		Clock:              clock,
		Currency:           "$",
		RateLimitPerMinute: 1000,
	})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	require.NotNil(t, srv.templates, "templates should parse")

	return &harness{srv: srv, svc: svc, sessions: sessions, alice: alice, bob: bob}
}

func (h *harness) add(t *testing.T, owner core.User, amount, category, desc string, date time.Time) core.Expense {
	t.Helper()
	m, err := core.ParseMoney(amount)
	require.NoError(t, err)
	e, err := h.svc.Create(context.Background(), owner.ID, core.ExpenseInput{
		Amount: m, CategoryID: category, Description: desc, Date: date,
	})
	require.NoError(t, err)
	return e
}

func (h *harness) token(t *testing.T, u core.User) string {
	t.Helper()
	tok, _, err := h.sessions.Issue(u)
	require.NoError(t, err)
	return tok
}

// client replays cookies between requests the way a browser would.
type client struct {
	h       *harness
	cookies map[string]*http.Cookie
}

func (h *harness) browser(t *testing.T, u core.User) *client {
	c := &client{h: h, cookies: map[string]*http.Cookie{}}
	c.cookies[auth.SessionCookie] = &http.Cookie{Name: auth.SessionCookie, Value: h.token(t, u)}
	return c
}

func (c *client) do(req *http.Request) *httptest.ResponseRecorder {
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	rr := httptest.NewRecorder()
	c.h.srv.Handler.ServeHTTP(rr, req)
	for _, ck := range rr.Result().Cookies() {
		if ck.MaxAge < 0 {
			delete(c.cookies, ck.Name)
			continue
		}
		c.cookies[ck.Name] = &http.Cookie{Name: ck.Name, Value: ck.Value}
	}
	return rr
}

func (c *client) get(path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("HX-Request", "true")
	return c.do(req)
}

func (c *client) post(path string, form url.Values, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("HX-Request", "true")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	return c.do(req)
}

func (h *harness) api(t *testing.T, method, path, body string, u *core.User) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if u != nil {
		req.Header.Set("Authorization", "Bearer "+h.token(t, *u))
	}
	rr := httptest.NewRecorder()
	h.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func errorMessage(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body), rr.Body.String())
	return body.Error
}

func TestHealthReadyAndMetrics(t *testing.T) {
	h := newHarness(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := httptest.NewRecorder()
		h.srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rr.Code, path)
		assert.Contains(t, rr.Body.String(), `"status"`)
	}

	h.api(t, http.MethodPost, "/api/expenses",
		`{"amount": 10, "categoryId": "`+groceries+`", "date": "2024-03-14"}`, &h.alice)

	rr := httptest.NewRecorder()
	h.srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "# TYPE http_requests_total counter")
	assert.Contains(t, body, `expense_mutations_total{action="created"} 1`)
	assert.Contains(t, body, "dashboard_visits_active 0")
}

func TestSecurityHeadersAndRequestID(t *testing.T) {
	h := newHarness(t)
	rr := httptest.NewRecorder()
	h.srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
}

func TestAPI_RequiresSession(t *testing.T) {
	h := newHarness(t)
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/expenses"},
		{http.MethodPost, "/api/expenses"},
		{http.MethodPut, "/api/expenses/x"},
		{http.MethodDelete, "/api/expenses/x"},
		{http.MethodGet, "/api/dashboard"},
	} {
		rr := h.api(t, tc.method, tc.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Code, tc.method+" "+tc.path)
		assert.Equal(t, "Unauthorized", errorMessage(t, rr))
	}
}

func TestAPI_ExpenseLifecycle(t *testing.T) {
	h := newHarness(t)

	rr := h.api(t, http.MethodGet, "/api/expenses", "", &h.alice)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())

	rr = h.api(t, http.MethodPost, "/api/expenses",
		`{"amount": 42.5, "categoryId": "`+groceries+`", "description": "Weekly shop", "date": "2024-03-10"}`, &h.alice)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var created core.Expense
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "42.50", created.Amount.String())
	assert.Equal(t, h.alice.ID, created.OwnerID)
	assert.Equal(t, "Groceries", created.Category.Name)

	rr = h.api(t, http.MethodPut, "/api/expenses/"+created.ID,
		`{"amount": "50", "categoryId": "`+transport+`", "date": "2024-03-11"}`, &h.alice)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var updated core.Expense
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &updated))
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "50.00", updated.Amount.String())
	assert.Equal(t, transport, updated.CategoryID)

	rr = h.api(t, http.MethodGet, "/api/expenses", "", &h.alice)
	var list []core.Expense
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	require.Len(t, list, 1)

	rr = h.api(t, http.MethodDelete, "/api/expenses/"+created.ID, "", &h.alice)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"success": true}`, rr.Body.String())

	rr = h.api(t, http.MethodGet, "/api/expenses", "", &h.alice)
	assert.JSONEq(t, `[]`, rr.Body.String())
}

func TestAPI_UpdateAndDeleteChecks(t *testing.T) {
	h := newHarness(t)
	bobs := h.add(t, h.bob, "9.99", groceries, "", now.AddDate(0, 0, -1))
	valid := `{"amount": 5, "categoryId": "` + groceries + `", "date": "2024-03-10"}`

	tests := []struct {
		name   string
		method string
		id     string
		body   string
		status int
		msg    string
	}{
		{"update missing", http.MethodPut, "missing", valid, http.StatusNotFound, "Expense not found"},
		{"update foreign", http.MethodPut, bobs.ID, valid, http.StatusForbidden, "Forbidden"},
		{"malformed body on foreign record", http.MethodPut, bobs.ID, `{"amount": "abc"}`, http.StatusForbidden, "Forbidden"},
		{"malformed body on missing record", http.MethodPut, "missing", `not json`, http.StatusNotFound, "Expense not found"},
		{"delete missing", http.MethodDelete, "missing", "", http.StatusNotFound, "Expense not found"},
		{"delete foreign", http.MethodDelete, bobs.ID, "", http.StatusForbidden, "Forbidden"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := h.api(t, tt.method, "/api/expenses/"+tt.id, tt.body, &h.alice)
			assert.Equal(t, tt.status, rr.Code, rr.Body.String())
			assert.Equal(t, tt.msg, errorMessage(t, rr))
		})
	}

	list, err := h.svc.List(context.Background(), h.bob.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "9.99", list[0].Amount.String(), "foreign record must be untouched")
}

func TestAPI_ValidationErrors(t *testing.T) {
	h := newHarness(t)
	own := h.add(t, h.alice, "1", groceries, "", now)

	tests := []struct {
		name string
		body string
	}{
		{"negative amount", `{"amount": -3, "categoryId": "` + groceries + `", "date": "2024-03-10"}`},
		{"amount too large", `{"amount": 10000000000, "categoryId": "` + groceries + `", "date": "2024-03-10"}`},
		{"missing category", `{"amount": 3, "date": "2024-03-10"}`},
		{"unknown category", `{"amount": 3, "categoryId": "nope", "date": "2024-03-10"}`},
		{"missing date", `{"amount": 3, "categoryId": "` + groceries + `"}`},
		{"bad date", `{"amount": 3, "categoryId": "` + groceries + `", "date": "10/03/2024"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := h.api(t, http.MethodPost, "/api/expenses", tt.body, &h.alice)
			assert.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
			assert.NotEmpty(t, errorMessage(t, rr))

			rr = h.api(t, http.MethodPut, "/api/expenses/"+own.ID, tt.body, &h.alice)
			assert.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
		})
	}
}

func TestAPI_DashboardAndCategories(t *testing.T) {
	h := newHarness(t)
	h.add(t, h.alice, "10", groceries, "milk", now.AddDate(0, 0, -2))
	h.add(t, h.alice, "30", transport, "train", now.AddDate(0, 0, -20))
	h.add(t, h.alice, "100", groceries, "old", now.AddDate(0, 0, -200))
	h.add(t, h.bob, "999", groceries, "not mine", now)

	rr := h.api(t, http.MethodGet, "/api/dashboard?period=last-30-days", "", &h.alice)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var v struct {
		Count         int `json:"count"`
		CategoryCount int `json:"categoryCount"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v))
	assert.Equal(t, 2, v.Count)
	assert.Equal(t, 2, v.CategoryCount)
	assert.Contains(t, rr.Body.String(), `"total":40.00`)

	rr = h.api(t, http.MethodGet, "/api/dashboard?period=all-time&category="+groceries, "", &h.alice)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"total":110.00`)

	rr = h.api(t, http.MethodGet, "/api/dashboard?period=forever", "", &h.alice)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = h.api(t, http.MethodGet, "/api/categories", "", &h.alice)
	require.Equal(t, http.StatusOK, rr.Code)
	var cats []core.Category
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &cats))
	assert.Len(t, cats, len(storage.DefaultCategories()))

	rr = h.api(t, http.MethodGet, "/api/me", "", &h.alice)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "alice@example.com")
}

func TestAPI_Activity(t *testing.T) {
	h := newHarness(t)
	e := h.add(t, h.alice, "10", groceries, "", now)
	require.NoError(t, h.svc.Delete(context.Background(), h.alice.ID, e.ID))

	rr := h.api(t, http.MethodGet, "/api/activity?limit=5", "", &h.alice)
	require.Equal(t, http.StatusOK, rr.Code)
	// without a worker nothing has been recorded yet
	assert.JSONEq(t, `[]`, rr.Body.String())
}

func TestDashboardPage_RequiresSignIn(t *testing.T) {
	h := newHarness(t)
	rr := httptest.NewRecorder()
	h.srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, auth.SignInPath, rr.Header().Get("Location"))
}

func TestDashboardPage_RendersSummary(t *testing.T) {
	h := newHarness(t)
	h.add(t, h.alice, "12.50", groceries, "Bread & butter", now.AddDate(0, 0, -1))
	h.add(t, h.alice, "7.50", transport, "Bus", now.AddDate(0, 0, -3))
	h.add(t, h.bob, "500", transport, "Bob's taxi", now)

	c := h.browser(t, h.alice)
	rr := c.do(httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	body := rr.Body.String()
	assert.Contains(t, body, "Expense Tracker")
	assert.Contains(t, body, "Alice")
	assert.Contains(t, body, "Total expenses")
	assert.Contains(t, body, "$20.00")
	assert.Contains(t, body, "Across 2 transactions in 2 categories")
	assert.Contains(t, body, "Bread &amp; butter")
	assert.NotContains(t, body, "taxi")
	assert.Contains(t, c.cookies, visitCookie)
	assert.Equal(t, 1, h.srv.visits.Size())
}

func TestDashboardPage_Empty(t *testing.T) {
	h := newHarness(t)
	c := h.browser(t, h.alice)
	rr := c.do(httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "No expenses found for the selected period.")
	assert.Contains(t, rr.Body.String(), "$0.00")
}

func TestFilters_ApplyTriggeringControl(t *testing.T) {
	h := newHarness(t)
	h.add(t, h.alice, "12.50", groceries, "Bread", now.AddDate(0, 0, -1))
	h.add(t, h.alice, "7.50", transport, "Bus", now.AddDate(0, 0, -3))
	h.add(t, h.alice, "3", transport, "Tram", now.AddDate(0, 0, -120))

	c := h.browser(t, h.alice)
	require.Equal(t, http.StatusOK, c.do(httptest.NewRequest(http.MethodGet, "/", nil)).Code)

	form := url.Values{"period": {"last-90-days"}, "category": {transport}, "search": {""}}
	rr := c.post("/ui/filters", form, "HX-Trigger-Name", "category")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), "Across 1 transactions in 1 categories")
	assert.Contains(t, rr.Body.String(), "$7.50")

	rr = c.post("/ui/filters", url.Values{"period": {"all-time"}}, "HX-Trigger-Name", "period")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "$10.50", "category filter survives a period change")

	rr = c.post("/ui/filters", url.Values{"search": {"tram"}}, "HX-Trigger-Name", "search")
	assert.Contains(t, rr.Body.String(), "Across 1 transactions")

	rr = c.post("/ui/filters/reset", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Across 2 transactions in 2 categories")

	rr = c.post("/ui/filters", url.Values{"period": {"forever"}}, "HX-Trigger-Name", "period")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Header().Get("HX-Trigger"), "show-notification")
}

func TestPartials_WithoutVisitStartFresh(t *testing.T) {
	h := newHarness(t)
	h.add(t, h.alice, "5", groceries, "", now)

	c := h.browser(t, h.alice)
	rr := c.get("/ui/dashboard")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `id="dashboard"`)
	assert.Contains(t, rr.Body.String(), "$5.00")
	assert.Contains(t, c.cookies, visitCookie)
}

func TestPartials_VisitNotSharedBetweenUsers(t *testing.T) {
	h := newHarness(t)
	h.add(t, h.alice, "5", groceries, "alice-only", now)

	alice := h.browser(t, h.alice)
	require.Equal(t, http.StatusOK, alice.do(httptest.NewRequest(http.MethodGet, "/", nil)).Code)

	bob := h.browser(t, h.bob)
	bob.cookies[visitCookie] = alice.cookies[visitCookie]
	rr := bob.get("/ui/dashboard")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), "alice-only")
	assert.NotEqual(t, alice.cookies[visitCookie].Value, bob.cookies[visitCookie].Value)
}

func TestPagination(t *testing.T) {
	h := newHarness(t)
	for i := 0; i < 12; i++ {
		h.add(t, h.alice, "1", groceries, "item", now.AddDate(0, 0, -i))
	}
	c := h.browser(t, h.alice)
	rr := c.do(httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Showing 1 to 10 of 12 results")

	rr = c.post("/ui/page", url.Values{"page": {"2"}})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Showing 11 to 12 of 12 results")

	rr = c.post("/ui/page", url.Values{"page": {"x"}})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUI_CreateUpdateDelete(t *testing.T) {
	h := newHarness(t)
	c := h.browser(t, h.alice)
	require.Equal(t, http.StatusOK, c.do(httptest.NewRequest(http.MethodGet, "/", nil)).Code)

	rr := c.get("/ui/expenses/new")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Add Expense")
	assert.Contains(t, rr.Body.String(), `value="2024-03-15"`)

	rr = c.post("/ui/expenses", url.Values{
		"amount": {"19,90"}, "categoryId": {groceries}, "description": {"Cheese"}, "date": {"2024-03-14"},
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "#dashboard", rr.Header().Get("HX-Retarget"))
	assert.Contains(t, rr.Header().Get("HX-Trigger"), "expense:created")
	assert.Contains(t, rr.Header().Get("HX-Trigger"), "modal:close")
	assert.Contains(t, rr.Body.String(), "$19.90")

	list, err := h.svc.List(context.Background(), h.alice.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	id := list[0].ID

	rr = c.get("/ui/expenses/" + id + "/edit")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Edit Expense")
	assert.Contains(t, rr.Body.String(), `value="19.90"`)

	rr = c.post("/ui/expenses/"+id, url.Values{
		"amount": {"21"}, "categoryId": {groceries}, "description": {"Cheese"}, "date": {"2024-03-14"},
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Header().Get("HX-Trigger"), "expense:updated")
	assert.Contains(t, rr.Body.String(), "$21.00")

	req := httptest.NewRequest(http.MethodDelete, "/ui/expenses/"+id, nil)
	req.Header.Set("HX-Request", "true")
	rr = c.do(req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Header().Get("HX-Trigger"), "expense:deleted")
	assert.Contains(t, rr.Body.String(), "No expenses found for the selected period.")

	list, err = h.svc.List(context.Background(), h.alice.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestUI_FormErrors(t *testing.T) {
	h := newHarness(t)
	c := h.browser(t, h.alice)

	rr := c.post("/ui/expenses", url.Values{"amount": {"abc"}, "categoryId": {groceries}, "date": {"2024-03-14"}})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "#form-error", rr.Header().Get("HX-Retarget"))
	assert.Contains(t, rr.Body.String(), `class="error"`)

	rr = c.get("/ui/expenses/missing/edit")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "Expense not found")
}

func TestUI_RedirectsUnauthenticatedHTMX(t *testing.T) {
	h := newHarness(t)
	req := httptest.NewRequest(http.MethodGet, "/ui/dashboard", nil)
	req.Header.Set("HX-Request", "true")
	rr := httptest.NewRecorder()
	h.srv.Handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, auth.SignInPath, rr.Header().Get("HX-Redirect"))
}

func TestSignInPage(t *testing.T) {
	h := newHarness(t)

	rr := httptest.NewRecorder()
	h.srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, auth.SignInPath+"?error=state", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Try the demo")
	assert.NotContains(t, rr.Body.String(), "Sign in with Google")
	assert.Contains(t, rr.Body.String(), "Your sign-in session expired")

	c := h.browser(t, h.alice)
	rr = c.do(httptest.NewRequest(http.MethodGet, auth.SignInPath, nil))
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/", rr.Header().Get("Location"))
}

func TestDemoSignInThenDashboard(t *testing.T) {
	h := newHarness(t)
	c := &client{h: h, cookies: map[string]*http.Cookie{}}

	rr := c.do(httptest.NewRequest(http.MethodPost, "/auth/demo", nil))
	require.Equal(t, http.StatusSeeOther, rr.Code)
	require.Contains(t, c.cookies, auth.SessionCookie)

	rr = c.do(httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), storage.DemoName)
}

func TestStaticAssets(t *testing.T) {
	h := newHarness(t)
	rr := httptest.NewRecorder()
	h.srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/static/app.js", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "htmx:beforeSwap")
	assert.Contains(t, rr.Header().Get("Cache-Control"), "max-age=3600")
}
