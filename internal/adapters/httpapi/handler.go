// Package httpapi serves dashboard sessions, their consumers and exports over
// HTTP.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"penguindash/internal/adapters/exports"
	"penguindash/internal/core"
	"penguindash/internal/dashboard"
	"penguindash/internal/views"
)

// Sessions is the session registry the handler serves.
type Sessions interface {
	Controls() core.Controls
	Create(initial *core.Update) *dashboard.Session
	Get(id string) (*dashboard.Session, error)
	Delete(id string) error
}

// RequestObserver is told about every served request.
type RequestObserver interface {
	ObserveRequest(route string, code int)
}

// Options configures optional handler collaborators.
type Options struct {
	Exports  exports.Scheduler
	Metrics  http.Handler
	Requests RequestObserver
	Logger   *zap.Logger
	Title    string
	// ChartWidth and ChartHeight size PNG chart responses.
	ChartWidth  int
	ChartHeight int
}

// Handler routes /api/v1, /metrics and /healthz.
type Handler struct {
	Sessions Sessions
	opts     Options
}

// NewHandler constructs the API handler.
func NewHandler(sessions Sessions, opts Options) *Handler {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Title == "" {
		opts.Title = "Penguins dashboard"
	}
	return &Handler{Sessions: sessions, opts: opts}
}

const (
	sessionsPath = "/api/v1/sessions"
	exportsPath  = "/api/v1/exports"
)

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	start := time.Now()
	route := h.route(rec, r)
	if h.opts.Requests != nil {
		h.opts.Requests.ObserveRequest(route, rec.status)
	}
	h.opts.Logger.Debug("request",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("route", route),
		zap.Int("status", rec.status),
		zap.Duration("elapsed", time.Since(start)),
	)
}

// route dispatches the request and returns its route label.
func (h *Handler) route(w http.ResponseWriter, r *http.Request) string {
	if h.Sessions == nil {
		writeError(w, http.StatusInternalServerError, "session registry not configured")
		return "unconfigured"
	}

	path := strings.TrimSuffix(r.URL.Path, "/")
	switch {
	case path == "/healthz":
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return path
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return path
	case path == "/metrics":
		if h.opts.Metrics == nil {
			http.NotFound(w, r)
			return path
		}
		h.opts.Metrics.ServeHTTP(w, r)
		return path
	case path == "/api/v1/controls":
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return path
		}
		writeJSON(w, http.StatusOK, map[string]any{"controls": h.Sessions.Controls()})
		return path
	case path == sessionsPath:
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return path
		}
		h.handleCreateSession(w, r)
		return path
	case strings.HasPrefix(path, sessionsPath+"/"):
		return h.handleSession(w, r, strings.TrimPrefix(path, sessionsPath+"/"))
	case strings.HasPrefix(path, exportsPath+"/"):
		if h.opts.Exports == nil {
			http.NotFound(w, r)
			return "exports"
		}
		return h.handleExport(w, r, strings.TrimPrefix(path, exportsPath+"/"))
	default:
		http.NotFound(w, r)
		return "unmatched"
	}
}

// sessionActions maps each session sub-resource to its method.
var sessionActions = map[string]string{
	"controls": http.MethodPost,
	"summary":  http.MethodGet,
	"chart":    http.MethodGet,
	"table":    http.MethodGet,
	"exports":  http.MethodPost,
}

// controlsRequest distinguishes an absent species list from an empty one.
type controlsRequest struct {
	Mass    *float64  `json:"mass"`
	Species *[]string `json:"species"`
}

func (c controlsRequest) update() core.Update {
	u := core.Update{MassCeiling: c.Mass}
	if c.Species != nil {
		u.Species = append([]string{}, (*c.Species)...)
	}
	return u
}

func decodeControls(r *http.Request) (controlsRequest, bool, error) {
	var req controlsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return req, false, nil
		}
		return req, false, err
	}
	return req, true, nil
}

type sessionResponse struct {
	ID        string             `json:"id"`
	CreatedAt time.Time          `json:"created_at"`
	Snapshot  dashboard.Snapshot `json:"snapshot"`
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	req, present, err := decodeControls(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid controls payload")
		return
	}
	var initial *core.Update
	if present {
		u := req.update()
		initial = &u
	}
	s := h.Sessions.Create(initial)
	writeJSON(w, http.StatusCreated, map[string]any{"session": sessionResponse{
		ID:        s.ID(),
		CreatedAt: s.CreatedAt(),
		Snapshot:  s.Snapshot(),
	}})
}

func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request, remainder string) string {
	segments := strings.Split(remainder, "/")
	s, err := h.Sessions.Get(segments[0])
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return sessionsPath + "/{id}"
	}

	if len(segments) == 1 {
		switch r.Method {
		case http.MethodGet:
			h.handleSessionGet(w, r, s)
		case http.MethodDelete:
			if err := h.Sessions.Delete(s.ID()); err != nil {
				writeError(w, http.StatusNotFound, "session not found")
				break
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
		return sessionsPath + "/{id}"
	}

	action := segments[1]
	route := sessionsPath + "/{id}/" + action
	if len(segments) != 2 {
		writeError(w, http.StatusNotFound, "session endpoint not found")
		return sessionsPath + "/{id}/unmatched"
	}

	want, known := sessionActions[action]
	if !known {
		writeError(w, http.StatusNotFound, "session endpoint not found")
		return sessionsPath + "/{id}/unmatched"
	}
	if r.Method != want {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return route
	}

	switch action {
	case "controls":
		h.handleControls(w, r, s)
	case "summary":
		writeJSON(w, http.StatusOK, map[string]any{"summary": s.Snapshot().Summary})
	case "chart":
		h.handleChart(w, r, s)
	case "table":
		h.handleTable(w, r, s)
	case "exports":
		h.handleExportCreate(w, r, s)
	}
	return route
}

func (h *Handler) handleSessionGet(w http.ResponseWriter, r *http.Request, s *dashboard.Session) {
	snap := s.Snapshot()
	switch strings.ToLower(r.URL.Query().Get("format")) {
	case "", "json":
		writeJSON(w, http.StatusOK, map[string]any{"session": sessionResponse{
			ID:        s.ID(),
			CreatedAt: s.CreatedAt(),
			Snapshot:  snap,
		}})
	case "html":
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(views.HTML(h.opts.Title, snap.Summary, snap.Table))
	default:
		writeError(w, http.StatusNotAcceptable, "requested format not supported")
	}
}

func (h *Handler) handleControls(w http.ResponseWriter, r *http.Request, s *dashboard.Session) {
	req, _, err := decodeControls(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid controls payload")
		return
	}
	snap := s.Apply(req.update())
	writeJSON(w, http.StatusOK, map[string]any{"snapshot": snap})
}

func (h *Handler) handleChart(w http.ResponseWriter, r *http.Request, s *dashboard.Session) {
	chart := s.Snapshot().Chart
	switch strings.ToLower(r.URL.Query().Get("format")) {
	case "", "json":
		writeJSON(w, http.StatusOK, map[string]any{"chart": chart})
	case "png":
		payload, err := views.PNG(chart, h.opts.ChartWidth, h.opts.ChartHeight)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(payload)
	default:
		writeError(w, http.StatusNotAcceptable, "requested format not supported")
	}
}

func (h *Handler) handleTable(w http.ResponseWriter, r *http.Request, s *dashboard.Session) {
	format := negotiateFormat(r)
	if format == "" {
		writeError(w, http.StatusNotAcceptable, "requested format not supported")
		return
	}
	query, err := parseTableQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	table := s.Snapshot().Table
	if !query.IsZero() {
		if table, err = table.Query(query); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	if format == "csv" {
		filename := fmt.Sprintf("penguins-v%d.csv", table.Version)
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
		w.WriteHeader(http.StatusOK)
		_ = views.WriteCSV(w, table)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"table": table})
}

func negotiateFormat(r *http.Request) string {
	wanted := strings.ToLower(r.URL.Query().Get("format"))
	if wanted == "" {
		if strings.Contains(r.Header.Get("Accept"), "text/csv") {
			wanted = "csv"
		} else {
			wanted = "json"
		}
	}
	switch wanted {
	case "csv", "json":
		return wanted
	}
	return ""
}

// parseTableQuery reads sort, order and the bracketed filter[col], min[col]
// and max[col] parameters.
func parseTableQuery(r *http.Request) (views.TableQuery, error) {
	values := r.URL.Query()
	q := views.TableQuery{SortBy: values.Get("sort")}
	switch strings.ToLower(values.Get("order")) {
	case "", "asc":
	case "desc":
		q.Descending = true
	default:
		return q, fmt.Errorf("invalid order %q", values.Get("order"))
	}
	for key, vals := range values {
		name, col, ok := bracketed(key)
		if !ok || len(vals) == 0 {
			continue
		}
		v := vals[len(vals)-1]
		switch name {
		case "filter":
			if q.Contains == nil {
				q.Contains = map[string]string{}
			}
			q.Contains[col] = v
		case "min", "max":
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return q, fmt.Errorf("invalid %s bound for %s: %q", name, col, v)
			}
			if name == "min" {
				if q.Min == nil {
					q.Min = map[string]float64{}
				}
				q.Min[col] = f
			} else {
				if q.Max == nil {
					q.Max = map[string]float64{}
				}
				q.Max[col] = f
			}
		}
	}
	return q, nil
}

func bracketed(key string) (name, col string, ok bool) {
	open := strings.IndexByte(key, '[')
	if open <= 0 || !strings.HasSuffix(key, "]") {
		return "", "", false
	}
	return key[:open], key[open+1 : len(key)-1], true
}

type exportRequest struct {
	Formats     []string `json:"formats"`
	RequestedBy string   `json:"requested_by"`
}

func (h *Handler) handleExportCreate(w http.ResponseWriter, r *http.Request, s *dashboard.Session) {
	if h.opts.Exports == nil {
		writeError(w, http.StatusNotFound, "exports not configured")
		return
	}
	var req exportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid export request payload")
		return
	}
	formats := make([]exports.Format, 0, len(req.Formats))
	for _, f := range req.Formats {
		parsed, err := exports.ParseFormat(f)
		if err != nil {
			writeError(w, http.StatusNotAcceptable, err.Error())
			return
		}
		formats = append(formats, parsed)
	}

	state, version := s.State()
	record, err := h.opts.Exports.Enqueue(r.Context(), exports.Input{
		SessionID:   s.ID(),
		State:       state,
		Version:     version,
		Formats:     formats,
		RequestedBy: req.RequestedBy,
	})
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, exports.ErrQueueFull) || errors.Is(err, exports.ErrStopped) {
			status = http.StatusServiceUnavailable
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"export": record})
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request, remainder string) string {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return exportsPath + "/{id}"
	}
	segments := strings.Split(remainder, "/")
	switch {
	case len(segments) == 1 && segments[0] != "":
		record, ok := h.opts.Exports.Get(segments[0])
		if !ok {
			writeError(w, http.StatusNotFound, "export not found")
			return exportsPath + "/{id}"
		}
		writeJSON(w, http.StatusOK, map[string]any{"export": record})
		return exportsPath + "/{id}"
	case len(segments) == 3 && segments[1] == "artifacts":
		route := exportsPath + "/{id}/artifacts/{artifact}"
		artifact, rc, err := h.opts.Exports.Open(r.Context(), segments[0], segments[2])
		if err != nil {
			if errors.Is(err, exports.ErrNotFound) {
				writeError(w, http.StatusNotFound, "artifact not found")
			} else {
				writeError(w, http.StatusInternalServerError, err.Error())
			}
			return route
		}
		defer rc.Close()
		w.Header().Set("Content-Type", artifact.ContentType)
		w.Header().Set("Content-Length", strconv.FormatInt(artifact.SizeBytes, 10))
		w.WriteHeader(http.StatusOK)
		if _, err := io.Copy(w, rc); err != nil {
			h.opts.Logger.Warn("stream artifact", zap.String("key", artifact.Key), zap.Error(err))
		}
		return route
	default:
		writeError(w, http.StatusNotFound, "export endpoint not found")
		return exportsPath + "/unmatched"
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status  int
	written bool
}

func (s *statusRecorder) WriteHeader(code int) {
	if !s.written {
		s.status = code
		s.written = true
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(p []byte) (int, error) {
	s.written = true
	return s.ResponseWriter.Write(p)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
