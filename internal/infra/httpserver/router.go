package httpserver

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/bryanwahyu/mailguard/internal/application/analysis"
	"github.com/bryanwahyu/mailguard/internal/application/inbox"
	"github.com/bryanwahyu/mailguard/internal/application/reports"
	"github.com/bryanwahyu/mailguard/internal/domain/discovery"
	"github.com/bryanwahyu/mailguard/internal/domain/mailbox"
	"github.com/bryanwahyu/mailguard/internal/logger"
	"github.com/bryanwahyu/mailguard/internal/metrics"
	"github.com/bryanwahyu/mailguard/internal/middleware"
)

const maxBodyBytes = 1 << 20

// Deps wires the router. Store and Inbox are required; Reports may be nil.
// Context bounds background work such as the rate limiter sweeper.
type Deps struct {
	Context context.Context

	Store   *analysis.Store
	Inbox   *inbox.Service
	Reports *reports.Service

	Checkers       map[string]middleware.HealthChecker
	APIKeys        map[string]string
	RateCapacity   int
	RateRefill     int
	AllowedOrigins []string
}

type Router struct {
	store   *analysis.Store
	inbox   *inbox.Service
	reports *reports.Service
}

func NewRouter(d Deps) http.Handler {
	if d.Store == nil || d.Inbox == nil {
		panic("httpserver: analysis store and inbox service are required")
	}
	r := &Router{store: d.Store, inbox: d.Inbox, reports: d.Reports}
	mux := chi.NewRouter()

	mux.Use(chimw.RequestID)
	mux.Use(chimw.Recoverer)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	mux.Use(middleware.MetricsMiddleware)
	mux.Use(middleware.LoggingMiddleware)
	mux.Use(middleware.APIKeyAuth(d.APIKeys))
	if d.RateCapacity > 0 {
		ctx := d.Context
		if ctx == nil {
			ctx = context.Background()
		}
		mux.Use(middleware.RateLimitMiddleware(ctx, d.RateCapacity, d.RateRefill))
	}

	mux.Get("/health", middleware.HealthHandler(d.Checkers))
	mux.Get("/ready", middleware.ReadinessHandler)
	mux.Get("/live", middleware.LivenessHandler)
	mux.Handle("/metrics", metrics.Handler())

	mux.Route("/v1", func(rt chi.Router) {
		rt.Post("/analyze", r.wrap(r.handleAnalyze))
		rt.Get("/state", r.wrap(r.handleState))
		rt.Get("/overview", r.wrap(r.handleOverview))
		rt.Get("/services", r.wrap(r.handleServices))
		rt.Get("/services/{id}", r.wrap(r.handleService))
		rt.Put("/selection", r.wrap(r.handleSelect))
		rt.Delete("/selection", r.wrap(r.handleClearSelection))
		rt.Get("/chat", r.wrap(r.handleChatLog))
		rt.Post("/chat", r.wrap(r.handleAsk))

		rt.Get("/emails", r.wrap(r.handleEmails))
		rt.Post("/emails/sync", r.wrap(r.handleSync))
		rt.Post("/ai/classify-emails", r.wrap(r.handleClassify))

		rt.Get("/reports", r.wrap(r.handleReports))
		rt.Get("/reports/{id}", r.wrap(r.handleReport))
	})

	return mux
}

// envelope is the body of every /v1 response
type envelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// badRequest marks validation failures
type badRequest struct{ err error }

func (b badRequest) Error() string { return b.err.Error() }
func (b badRequest) Unwrap() error { return b.err }

func invalid(format string, args ...any) error {
	return badRequest{err: fmt.Errorf(format, args...)}
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			logger.Error("request handler failed", zap.String("path", req.URL.Path), zap.Error(err))
		}
		writeJSON(w, status, envelope{Status: "error", Message: err.Error()})
	}
}

func statusFor(err error) int {
	var br badRequest
	switch {
	case errors.As(err, &br), errors.Is(err, discovery.ErrEmptyMessage):
		return http.StatusBadRequest
	case errors.Is(err, discovery.ErrNotFound), errors.Is(err, sql.ErrNoRows), errors.Is(err, discovery.ErrPersistenceDisabled):
		return http.StatusNotFound
	case errors.Is(err, discovery.ErrAlreadyAnalyzing):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func ok(w http.ResponseWriter, status int, message string, data any) error {
	writeJSON(w, status, envelope{Status: "success", Message: message, Data: data})
	return nil
}

func decode(w http.ResponseWriter, req *http.Request, dst any) error {
	body := http.MaxBytesReader(w, req.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return invalid("request body is empty")
		}
		return invalid("invalid request body: %v", err)
	}
	return nil
}

// POST /v1/analyze
// Jalankan di background, client polling /v1/state
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	if err := r.store.Start(); err != nil {
		return err
	}
	return ok(w, http.StatusAccepted, "analysis started in background", map[string]any{
		"status":   "queued",
		"queuedAt": time.Now(),
	})
}

// GET /v1/state
func (r *Router) handleState(w http.ResponseWriter, req *http.Request) error {
	return ok(w, http.StatusOK, "", r.store.Snapshot())
}

// GET /v1/overview
func (r *Router) handleOverview(w http.ResponseWriter, req *http.Request) error {
	return ok(w, http.StatusOK, "", r.store.Overview())
}

// GET /v1/services?search=&grade=&sort=
func (r *Router) handleServices(w http.ResponseWriter, req *http.Request) error {
	q := req.URL.Query()
	search, err := middleware.ValidateSearch(q.Get("search"))
	if err != nil {
		return badRequest{err: err}
	}
	grade, err := middleware.ValidateGrade(q.Get("grade"))
	if err != nil {
		return badRequest{err: err}
	}
	sort, err := analysis.ParseSort(q.Get("sort"))
	if err != nil {
		return badRequest{err: err}
	}

	list := r.store.Services(analysis.Query{Search: search, Grade: grade, Sort: sort})
	return ok(w, http.StatusOK, "", map[string]any{
		"total_count": len(list),
		"services":    list,
	})
}

// GET /v1/services/{id}
func (r *Router) handleService(w http.ResponseWriter, req *http.Request) error {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateEmailID(id); err != nil {
		return badRequest{err: err}
	}
	svc, err := r.store.Service(mailbox.EmailID(id))
	if err != nil {
		return err
	}
	return ok(w, http.StatusOK, "", svc)
}

// PUT /v1/selection
// Body: {"id": "<service id>"}
func (r *Router) handleSelect(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		ID string `json:"id"`
	}
	if err := decode(w, req, &body); err != nil {
		return err
	}
	if err := middleware.ValidateEmailID(body.ID); err != nil {
		return badRequest{err: err}
	}
	svc, err := r.store.Select(mailbox.EmailID(body.ID))
	if err != nil {
		return err
	}
	return ok(w, http.StatusOK, "service selected", svc)
}

// DELETE /v1/selection
func (r *Router) handleClearSelection(w http.ResponseWriter, req *http.Request) error {
	r.store.ClearSelection()
	return ok(w, http.StatusOK, "selection cleared", nil)
}

// GET /v1/chat
func (r *Router) handleChatLog(w http.ResponseWriter, req *http.Request) error {
	return ok(w, http.StatusOK, "", r.store.Chat())
}

// POST /v1/chat
// Body: {"message": "<text>"}
func (r *Router) handleAsk(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Message string `json:"message"`
	}
	if err := decode(w, req, &body); err != nil {
		return err
	}
	msg, err := middleware.ValidateMessage(body.Message)
	if err != nil {
		return badRequest{err: err}
	}
	reply, err := r.store.Ask(msg)
	if err != nil {
		return err
	}
	return ok(w, http.StatusOK, "", map[string]any{"reply": reply})
}

// GET /v1/emails?skip=&limit=
func (r *Router) handleEmails(w http.ResponseWriter, req *http.Request) error {
	q := req.URL.Query()
	skip, err := middleware.ParseInt(q.Get("skip"), "skip")
	if err != nil {
		return badRequest{err: err}
	}
	if err := middleware.ValidateSkip(skip); err != nil {
		return badRequest{err: err}
	}
	limit, err := middleware.ParseInt(q.Get("limit"), "limit")
	if err != nil {
		return badRequest{err: err}
	}
	return ok(w, http.StatusOK, "", r.inbox.List(skip, middleware.ValidateLimit(limit, 50)))
}

// POST /v1/emails/sync
func (r *Router) handleSync(w http.ResponseWriter, req *http.Request) error {
	n, err := r.inbox.Sync(req.Context())
	if err != nil {
		return err
	}
	return ok(w, http.StatusOK, "inbox synced", map[string]any{"synced_count": n})
}

// POST /v1/ai/classify-emails
// Body: {"emails": [{"id": "", "subject": "", "sender": ""}]}
// Primary classifier failures (quota included) fall back to keywords and show up in failed_ids.
func (r *Router) handleClassify(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Emails []struct {
			ID      string `json:"id"`
			Subject string `json:"subject"`
			Sender  string `json:"sender"`
		} `json:"emails"`
	}
	if err := decode(w, req, &body); err != nil {
		return err
	}
	if len(body.Emails) == 0 {
		return invalid("emails is required")
	}
	if len(body.Emails) > middleware.MaxClassifyBatch {
		return invalid("at most %d emails per request", middleware.MaxClassifyBatch)
	}

	emails := make([]mailbox.Email, 0, len(body.Emails))
	for _, e := range body.Emails {
		if err := middleware.ValidateEmailID(e.ID); err != nil {
			return badRequest{err: err}
		}
		emails = append(emails, mailbox.Email{
			ID:      mailbox.EmailID(e.ID),
			Subject: middleware.SanitizeString(e.Subject),
			Sender:  middleware.SanitizeString(e.Sender),
		})
	}

	resp, err := r.inbox.Classify(req.Context(), emails)
	if err != nil {
		return err
	}
	return ok(w, http.StatusOK, "", resp)
}

// GET /v1/reports?limit=20
func (r *Router) handleReports(w http.ResponseWriter, req *http.Request) error {
	if r.reports == nil {
		return discovery.ErrPersistenceDisabled
	}
	limit, err := middleware.ParseInt(req.URL.Query().Get("limit"), "limit")
	if err != nil {
		return badRequest{err: err}
	}
	list, err := r.reports.Latest(req.Context(), middleware.ValidateLimit(limit, 20))
	if err != nil {
		return err
	}
	return ok(w, http.StatusOK, "", list)
}

// GET /v1/reports/{id}
func (r *Router) handleReport(w http.ResponseWriter, req *http.Request) error {
	if r.reports == nil {
		return discovery.ErrPersistenceDisabled
	}
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateReportID(id); err != nil {
		return badRequest{err: err}
	}
	rep, err := r.reports.Get(req.Context(), discovery.ReportID(id))
	if err != nil {
		return err
	}
	return ok(w, http.StatusOK, "", rep)
}
