package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"assesscal/internal/calendar"
	"assesscal/internal/config"
	"assesscal/internal/feed"
	appLog "assesscal/internal/log"
	"assesscal/internal/metrics"
	"assesscal/internal/model"
	"assesscal/internal/provider"
	"assesscal/internal/temporal"
)

// Snapshot is what the server needs from the record store.
type Snapshot interface {
	Records() []model.Record
	Status() provider.Status
}

// Server provides the HTTP API over the current record snapshot.
type Server struct {
	cfg    *config.Config
	store  Snapshot
	router *mux.Router

	// now is swapped in tests.
	now func() time.Time
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, store Snapshot) *Server {
	s := &Server{
		cfg:    cfg,
		store:  store,
		router: mux.NewRouter(),
		now:    time.Now,
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.router)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="assesscal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Run serves the API on cfg.Listen until ctx is canceled, then shuts down
// gracefully.
func Run(ctx context.Context, cfg *config.Config, store Snapshot) error {
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           NewServer(cfg, store).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) registerRoutes() {
	s.router.Use(s.countRequests)

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/api/status", s.handleStatus).Methods(http.MethodGet)
	s.router.HandleFunc("/api/events", s.handleEvents).Methods(http.MethodGet)
	s.router.HandleFunc("/api/calendar", s.handleCalendar).Methods(http.MethodGet)
	s.router.HandleFunc("/api/day", s.handleDay).Methods(http.MethodGet)
	s.router.HandleFunc("/calendar.ics", s.handleFeed).Methods(http.MethodGet)
	s.router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Status())
}

// eventsResponse is the JSON response shape for /api/events.
type eventsResponse struct {
	Timezone string           `json:"timezone"`
	Date     string           `json:"date,omitempty"`
	Entries  []calendar.Entry `json:"entries"`
}

// handleEvents lists every record rendered in the viewer timezone.
//
// GET /api/events?tz=Europe/Madrid&date=2025-03-01
//   - tz:   overrides config.Timezone
//   - date: only records whose span covers that day
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	loc, ok := s.viewerZone(w, r)
	if !ok {
		return
	}

	entries := calendar.NormalizeAll(s.store.Records(), loc)
	resp := eventsResponse{Timezone: loc.String(), Entries: entries}

	if raw := r.URL.Query().Get("date"); raw != "" {
		d, err := temporal.ParseDay(raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		resp.Date = d.String()
		resp.Entries = calendar.OnDay(entries, d, loc)
	}
	writeJSON(w, http.StatusOK, resp)
}

// calendarResponse is the JSON response shape for /api/calendar.
type calendarResponse struct {
	Timezone  string          `json:"timezone"`
	WeekStart string          `json:"week_start"`
	Start     string          `json:"start"`
	Prev      string          `json:"prev"`
	Next      string          `json:"next"`
	Cells     []calendar.Cell `json:"cells"`
}

// handleCalendar returns the four-week grid containing ?start (default:
// today in the viewer timezone).
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	loc, ok := s.viewerZone(w, r)
	if !ok {
		return
	}
	anchor, ok := s.dayParam(w, r, "start", loc)
	if !ok {
		return
	}

	weekStart := calendar.ParseWeekStart(s.cfg.WeekStart)
	entries := calendar.NormalizeAll(s.store.Records(), loc)

	writeJSON(w, http.StatusOK, calendarResponse{
		Timezone:  loc.String(),
		WeekStart: s.cfg.WeekStart,
		Start:     calendar.GridStart(anchor, weekStart).String(),
		Prev:      calendar.PrevPage(anchor, weekStart).String(),
		Next:      calendar.NextPage(anchor, weekStart).String(),
		Cells:     calendar.Grid(entries, anchor, weekStart, loc),
	})
}

// dayResponse is the JSON response shape for /api/day.
type dayResponse struct {
	Timezone string `json:"timezone"`
	calendar.DayPanel
}

// handleDay returns the selected-day panel.
//
// GET /api/day?date=2025-03-01&limit=5
func (s *Server) handleDay(w http.ResponseWriter, r *http.Request) {
	loc, ok := s.viewerZone(w, r)
	if !ok {
		return
	}
	d, ok := s.dayParam(w, r, "date", loc)
	if !ok {
		return
	}
	limit := parseIntDefault(r.URL.Query().Get("limit"), s.cfg.DayLimit)

	entries := calendar.NormalizeAll(s.store.Records(), loc)
	writeJSON(w, http.StatusOK, dayResponse{
		Timezone: loc.String(),
		DayPanel: calendar.EventsOn(entries, d, loc, limit),
	})
}

// handleFeed serves the schedule as an iCalendar subscription.
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	loc, ok := s.viewerZone(w, r)
	if !ok {
		return
	}
	entries := calendar.NormalizeAll(s.store.Records(), loc)

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	err := feed.Write(w, entries, feed.Options{
		Name:     "Assessments",
		Timezone: loc.String(),
		Now:      s.now(),
	})
	if err != nil {
		appLog.Error("failed to write calendar feed", err)
	}
}

// viewerZone resolves the request's display timezone once: ?tz when given,
// else config.Timezone. An unknown ?tz is a 400.
func (s *Server) viewerZone(w http.ResponseWriter, r *http.Request) (*time.Location, bool) {
	if tz := r.URL.Query().Get("tz"); tz != "" {
		loc, err := temporal.LoadZone(tz)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "unknown timezone "+strconv.Quote(tz))
			return nil, false
		}
		return loc, true
	}
	return resolveLocationOrUTC(s.cfg.Timezone), true
}

// dayParam reads a YYYY-MM-DD query parameter, defaulting to today in loc.
func (s *Server) dayParam(w http.ResponseWriter, r *http.Request, name string, loc *time.Location) (temporal.Day, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return temporal.DayFromTime(s.now().In(loc)), true
	}
	d, err := temporal.ParseDay(raw)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, name+" must be YYYY-MM-DD")
		return temporal.Day{}, false
	}
	return d, true
}

func resolveLocationOrUTC(name string) *time.Location {
	loc, err := temporal.LoadZone(name)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to UTC", err, "name", name)
		return time.UTC
	}
	return loc
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

// statusRecorder remembers the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		metrics.ObserveRequest(route, strconv.Itoa(rec.status))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	type errResp struct {
		Error     string `json:"error"`
		RequestID string `json:"request_id"`
	}
	writeJSON(w, status, errResp{Error: msg, RequestID: ensureRequestID(w, r)})
}

// ensureRequestID returns the caller's X-Request-ID, minting and echoing a
// new one when absent.
func ensureRequestID(w http.ResponseWriter, r *http.Request) string {
	id := strings.TrimSpace(r.Header.Get("X-Request-ID"))
	if id == "" {
		id = uuid.NewString()
	}
	w.Header().Set("X-Request-ID", id)
	return id
}
