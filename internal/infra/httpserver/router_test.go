package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/mailguard/internal/application/analysis"
	"github.com/bryanwahyu/mailguard/internal/application/chat"
	"github.com/bryanwahyu/mailguard/internal/application/inbox"
	"github.com/bryanwahyu/mailguard/internal/application/reports"
	"github.com/bryanwahyu/mailguard/internal/domain/ai"
	"github.com/bryanwahyu/mailguard/internal/domain/discovery"
	"github.com/bryanwahyu/mailguard/internal/domain/mailbox"
	"github.com/bryanwahyu/mailguard/internal/infra/catalog"
)

// gateClock blocks every Sleep until the gate is closed
type gateClock struct{ gate chan struct{} }

func (c gateClock) Now() time.Time { return time.Now() }

func (c gateClock) Sleep(ctx context.Context, _ time.Duration) error {
	select {
	case <-c.gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type memRepo struct{ reports map[discovery.ReportID]*discovery.Report }

func (m *memRepo) Save(_ context.Context, r *discovery.Report) error {
	m.reports[r.ID] = r
	return nil
}

func (m *memRepo) Get(_ context.Context, id discovery.ReportID) (*discovery.Report, error) {
	return m.reports[id], nil
}

func (m *memRepo) Latest(_ context.Context, _ int) ([]*discovery.Report, error) {
	out := []*discovery.Report{}
	for _, r := range m.reports {
		out = append(out, r)
	}
	return out, nil
}

type fixture struct {
	handler http.Handler
	store   *analysis.Store
	repo    *memRepo
}

func newFixture(t *testing.T, clock gateClock, withReports bool) fixture {
	t.Helper()
	matcher := mailbox.NewMatcher(catalog.Keywords)
	deps := analysis.Deps{
		Source:    catalog.Inbox{},
		Directory: catalog.Directory{},
		Matcher:   matcher,
		Responder: chat.NewResponder(catalog.Responses()),
		Clock:     clock,
	}
	f := fixture{}
	var rs *reports.Service
	if withReports {
		f.repo = &memRepo{reports: map[discovery.ReportID]*discovery.Report{}}
		rs = &reports.Service{Repo: f.repo}
		deps.Recorder = rs
	}
	f.store = analysis.NewStore(deps, analysis.Options{Owner: "user@gmail.com"})
	f.handler = NewRouter(Deps{
		Store:   f.store,
		Inbox:   inbox.NewService(catalog.Inbox{}, nil, inbox.KeywordClassifier{Matcher: matcher}),
		Reports: rs,
	})
	return f
}

func openGate() gateClock {
	c := gateClock{gate: make(chan struct{})}
	close(c.gate)
	return c
}

func (f fixture) do(t *testing.T, method, path, body string) (int, envelope) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(path, "/v1") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec.Code, env
}

func dataMap(t *testing.T, env envelope) map[string]any {
	t.Helper()
	m, ok := env.Data.(map[string]any)
	require.True(t, ok, "data is %T", env.Data)
	return m
}

func TestNewRouter_PanicsWithoutStore(t *testing.T) {
	assert.Panics(t, func() { NewRouter(Deps{}) })
}

func TestAnalyzeFlow(t *testing.T) {
	f := newFixture(t, openGate(), false)

	code, env := f.do(t, http.MethodPost, "/v1/analyze", "")
	assert.Equal(t, http.StatusAccepted, code)
	assert.Equal(t, "success", env.Status)
	f.store.Wait()

	code, env = f.do(t, http.MethodGet, "/v1/state", "")
	require.Equal(t, http.StatusOK, code)
	state := dataMap(t, env)
	assert.Equal(t, false, state["analyzing"])
	assert.Equal(t, float64(100), state["progress"])
	assert.Len(t, state["services"], 8)
	assert.Len(t, state["warnings"], 3)

	code, env = f.do(t, http.MethodGet, "/v1/overview", "")
	require.Equal(t, http.StatusOK, code)
	overview := dataMap(t, env)
	assert.Equal(t, float64(63), overview["score"])
	assert.Equal(t, "C", overview["grade"])
}

func TestAnalyze_Conflict(t *testing.T) {
	clock := gateClock{gate: make(chan struct{})}
	f := newFixture(t, clock, false)

	code, _ := f.do(t, http.MethodPost, "/v1/analyze", "")
	require.Equal(t, http.StatusAccepted, code)

	code, env := f.do(t, http.MethodPost, "/v1/analyze", "")
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "error", env.Status)

	close(clock.gate)
	f.store.Wait()
}

func TestServices(t *testing.T) {
	f := newFixture(t, openGate(), false)
	require.NoError(t, f.store.Analyze(context.Background()))

	code, env := f.do(t, http.MethodGet, "/v1/services?grade=f&sort=risk_desc", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(3), dataMap(t, env)["total_count"])

	code, _ = f.do(t, http.MethodGet, "/v1/services?grade=Z", "")
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = f.do(t, http.MethodGet, "/v1/services?sort=name", "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = f.do(t, http.MethodGet, "/v1/services/9", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "GitHub", dataMap(t, env)["company"])

	code, _ = f.do(t, http.MethodGet, "/v1/services/8", "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestSelection(t *testing.T) {
	f := newFixture(t, openGate(), false)
	require.NoError(t, f.store.Analyze(context.Background()))

	code, _ := f.do(t, http.MethodPut, "/v1/selection", `{"id":"4"}`)
	require.Equal(t, http.StatusOK, code)
	require.NotNil(t, f.store.Snapshot().Selected)

	code, _ = f.do(t, http.MethodPut, "/v1/selection", `{"id":"404"}`)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = f.do(t, http.MethodPut, "/v1/selection", ``)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = f.do(t, http.MethodDelete, "/v1/selection", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Nil(t, f.store.Snapshot().Selected)
}

func TestChat(t *testing.T) {
	f := newFixture(t, openGate(), false)

	code, env := f.do(t, http.MethodPost, "/v1/chat", `{"message":"토스 보안은?"}`)
	require.Equal(t, http.StatusOK, code)
	reply := dataMap(t, env)["reply"].(map[string]any)
	assert.Equal(t, "assistant", reply["role"])
	assert.Contains(t, reply["content"], "토스")

	code, _ = f.do(t, http.MethodPost, "/v1/chat", `{"message":"   "}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = f.do(t, http.MethodGet, "/v1/chat", "")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, env.Data, 3)
}

func TestEmails(t *testing.T) {
	f := newFixture(t, openGate(), false)

	code, env := f.do(t, http.MethodPost, "/v1/emails/sync", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(9), dataMap(t, env)["synced_count"])

	code, env = f.do(t, http.MethodGet, "/v1/emails?skip=0&limit=3", "")
	require.Equal(t, http.StatusOK, code)
	list := dataMap(t, env)
	assert.Equal(t, float64(9), list["total_count"])
	assert.Len(t, list["emails"], 3)

	code, _ = f.do(t, http.MethodGet, "/v1/emails?skip=-1", "")
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = f.do(t, http.MethodGet, "/v1/emails?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestClassifyEmails(t *testing.T) {
	f := newFixture(t, openGate(), false)

	code, env := f.do(t, http.MethodPost, "/v1/ai/classify-emails",
		`{"emails":[{"id":"1","subject":"쿠팡에 가입을 환영합니다!","sender":"Coupang"},{"id":"8","subject":"이번 달 결제 영수증","sender":"Netflix"}]}`)
	require.Equal(t, http.StatusOK, code)
	data := dataMap(t, env)
	results := data["results"].([]any)
	require.Len(t, results, 2)
	assert.Equal(t, "REGISTER", results[0].(map[string]any)["classification"])
	assert.Equal(t, "OTHER", results[1].(map[string]any)["classification"])
	assert.Empty(t, data["failed_ids"])

	code, _ = f.do(t, http.MethodPost, "/v1/ai/classify-emails", `{"emails":[]}`)
	assert.Equal(t, http.StatusBadRequest, code)
}

type quotaClassifier struct{}

func (quotaClassifier) Classify(context.Context, []mailbox.Email) ([]ai.Result, error) {
	return nil, ai.ErrQuotaExceeded
}

func TestClassifyEmails_QuotaFallsBackToKeywords(t *testing.T) {
	f := newFixture(t, openGate(), false)
	matcher := mailbox.NewMatcher(catalog.Keywords)
	f.handler = NewRouter(Deps{
		Store: f.store,
		Inbox: inbox.NewService(catalog.Inbox{}, quotaClassifier{}, inbox.KeywordClassifier{Matcher: matcher}),
	})

	code, env := f.do(t, http.MethodPost, "/v1/ai/classify-emails",
		`{"emails":[{"id":"9","subject":"Welcome to GitHub","sender":"GitHub"}]}`)
	require.Equal(t, http.StatusOK, code)
	data := dataMap(t, env)
	assert.Equal(t, []any{"9"}, data["failed_ids"])
	results := data["results"].([]any)
	require.Len(t, results, 1)
	assert.Equal(t, "REGISTER", results[0].(map[string]any)["classification"])
}

func TestReports(t *testing.T) {
	off := newFixture(t, openGate(), false)
	code, env := off.do(t, http.MethodGet, "/v1/reports", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, discovery.ErrPersistenceDisabled.Error(), env.Message)

	f := newFixture(t, openGate(), true)
	require.NoError(t, f.store.Analyze(context.Background()))
	require.Len(t, f.repo.reports, 1)

	code, env = f.do(t, http.MethodGet, "/v1/reports?limit=5", "")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, env.Data, 1)

	var id discovery.ReportID
	for k := range f.repo.reports {
		id = k
	}
	code, env = f.do(t, http.MethodGet, "/v1/reports/"+string(id), "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(3), dataMap(t, env)["dangerous"])

	code, _ = f.do(t, http.MethodGet, "/v1/reports/6f1c2d3e-4b5a-4c6d-8e7f-9a0b1c2d3e4f", "")
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = f.do(t, http.MethodGet, "/v1/reports/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestRateLimit(t *testing.T) {
	f := newFixture(t, openGate(), false)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	f.handler = NewRouter(Deps{
		Context:      ctx,
		Store:        f.store,
		Inbox:        inbox.NewService(catalog.Inbox{}, nil, inbox.KeywordClassifier{Matcher: mailbox.NewMatcher(catalog.Keywords)}),
		RateCapacity: 1,
	})

	code, _ := f.do(t, http.MethodGet, "/v1/overview", "")
	assert.Equal(t, http.StatusOK, code)

	req := httptest.NewRequest(http.MethodGet, "/v1/overview", nil)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	f := newFixture(t, openGate(), false)
	for _, path := range []string{"/health", "/ready", "/live"} {
		code, _ := f.do(t, http.MethodGet, path, "")
		assert.Equal(t, http.StatusOK, code, path)
	}
}
