// Package exports renders snapshots of a session's filtered view into stored
// artifacts on a background worker.
package exports

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"penguindash/internal/blob"
	"penguindash/internal/core"
	"penguindash/internal/dashboard"
	"penguindash/internal/views"
	"penguindash/pkg/domain"
)

// Format is an artifact encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatHTML Format = "html"
	FormatPNG  Format = "png"
)

// Formats lists every supported format.
func Formats() []Format { return []Format{FormatJSON, FormatCSV, FormatHTML, FormatPNG} }

// ParseFormat accepts a format name case-insensitively.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats() {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// Status describes the lifecycle stage of an export.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported export format")
	ErrQueueFull         = errors.New("export queue full")
	ErrStopped           = errors.New("export worker stopped")
	ErrNotFound          = errors.New("export not found")
)

// Artifact is one stored rendering of an export.
type Artifact struct {
	ID          string            `json:"id"`
	Format      Format            `json:"format"`
	ContentType string            `json:"content_type"`
	SizeBytes   int64             `json:"size_bytes"`
	Key         string            `json:"key"`
	URL         string            `json:"url,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// Record tracks an export request and its artifacts. State and Version are
// the filter state captured when the export was requested.
type Record struct {
	ID          string           `json:"id"`
	SessionID   string           `json:"session_id,omitempty"`
	State       core.FilterState `json:"state"`
	Version     uint64           `json:"version"`
	Formats     []Format         `json:"formats"`
	Status      Status           `json:"status"`
	Error       string           `json:"error,omitempty"`
	Artifacts   []Artifact       `json:"artifacts,omitempty"`
	RequestedBy string           `json:"requested_by,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}

// Input is an enqueue request.
type Input struct {
	SessionID   string
	State       core.FilterState
	Version     uint64
	Formats     []Format
	RequestedBy string
}

// Scheduler queues exports and reports their status.
type Scheduler interface {
	Enqueue(ctx context.Context, input Input) (Record, error)
	Get(id string) (Record, bool)
	Open(ctx context.Context, exportID, artifactID string) (Artifact, io.ReadCloser, error)
}

// StatusObserver is told about every export reaching a terminal status.
type StatusObserver interface {
	ExportFinished(status string)
}

// Options configures rendering and queueing. Zero values select defaults.
// A zero Retention keeps finished records until the worker is dropped.
type Options struct {
	Title     string
	Bins      int
	Order     []string
	Width     int
	Height    int
	QueueSize int
	Retention time.Duration
	Observer  StatusObserver
	Logger    *zap.Logger
	Now       func() time.Time
}

// Worker executes exports asynchronously against the shared dataset.
type Worker struct {
	ds    *domain.Dataset
	store blob.Store
	audit AuditLogger
	opts  Options

	queue chan string
	mu    sync.RWMutex
	jobs  map[string]*Record

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWorker constructs a worker. audit may be nil.
func NewWorker(ds *domain.Dataset, store blob.Store, audit AuditLogger, opts Options) *Worker {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 32
	}
	if opts.Title == "" {
		opts.Title = "Penguins dashboard"
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if len(opts.Order) == 0 {
		opts.Order = domain.AllSpecies()
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		ds:     ds,
		store:  store,
		audit:  audit,
		opts:   opts,
		queue:  make(chan string, opts.QueueSize),
		jobs:   make(map[string]*Record),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins processing queued exports.
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.loop()
}

// Stop signals the worker to halt and waits for the current export. Exports
// still queued are marked failed with ErrStopped.
func (w *Worker) Stop(ctx context.Context) error {
	w.mu.Lock()
	w.cancel()
	var pending []string
	for drained := false; !drained; {
		select {
		case id := <-w.queue:
			pending = append(pending, id)
		default:
			drained = true
		}
	}
	w.mu.Unlock()
	for _, id := range pending {
		w.finish(id, nil, ErrStopped)
	}
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case id := <-w.queue:
			w.process(id)
		}
	}
}

// Enqueue captures input.State and schedules the export. Later changes to
// the session never affect what is rendered.
func (w *Worker) Enqueue(ctx context.Context, input Input) (Record, error) {
	formats := input.Formats
	if len(formats) == 0 {
		formats = []Format{FormatJSON, FormatCSV}
	}
	uniq := make([]Format, 0, len(formats))
	seen := make(map[Format]struct{}, len(formats))
	for _, f := range formats {
		parsed, err := ParseFormat(string(f))
		if err != nil {
			return Record{}, err
		}
		if _, dup := seen[parsed]; dup {
			continue
		}
		seen[parsed] = struct{}{}
		uniq = append(uniq, parsed)
	}

	now := w.opts.Now()
	record := Record{
		ID:          uuid.NewString(),
		SessionID:   input.SessionID,
		State:       core.NewFilterState(input.State.MassCeiling, input.State.Species),
		Version:     input.Version,
		Formats:     uniq,
		Status:      StatusQueued,
		RequestedBy: input.RequestedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	// Stop drains the queue under mu, so a send made while holding mu is
	// either processed or failed by Stop.
	w.mu.Lock()
	if w.ctx.Err() != nil {
		w.mu.Unlock()
		return Record{}, ErrStopped
	}
	w.jobs[record.ID] = &record
	queued := record.copy()
	w.record(ctx, queued, nil)
	select {
	case w.queue <- record.ID:
		w.mu.Unlock()
		return queued, nil
	default:
		delete(w.jobs, record.ID)
		w.mu.Unlock()
		queued.Status = StatusFailed
		w.record(ctx, queued, ErrQueueFull)
		return Record{}, ErrQueueFull
	}
}

// Get returns a snapshot of the export record.
func (w *Worker) Get(id string) (Record, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	record, ok := w.jobs[id]
	if !ok {
		return Record{}, false
	}
	return record.copy(), true
}

// Sweep drops finished records that completed more than Retention ago and
// returns how many were removed. Stored artifacts are left in place.
func (w *Worker) Sweep() int {
	if w.opts.Retention <= 0 {
		return 0
	}
	cutoff := w.opts.Now().Add(-w.opts.Retention)
	removed := 0
	w.mu.Lock()
	for id, record := range w.jobs {
		if record.CompletedAt != nil && record.CompletedAt.Before(cutoff) {
			delete(w.jobs, id)
			removed++
		}
	}
	w.mu.Unlock()
	if removed > 0 {
		w.opts.Logger.Info("export records evicted", zap.Int("count", removed))
	}
	return removed
}

// Open streams a stored artifact of a finished export.
func (w *Worker) Open(ctx context.Context, exportID, artifactID string) (Artifact, io.ReadCloser, error) {
	record, ok := w.Get(exportID)
	if !ok {
		return Artifact{}, nil, ErrNotFound
	}
	for _, a := range record.Artifacts {
		if a.ID == artifactID || string(a.Format) == artifactID {
			_, rc, err := w.store.Get(ctx, a.Key)
			if err != nil {
				return Artifact{}, nil, fmt.Errorf("open artifact %s: %w", a.Key, err)
			}
			return a, rc, nil
		}
	}
	return Artifact{}, nil, fmt.Errorf("%w: artifact %s", ErrNotFound, artifactID)
}

func (w *Worker) process(id string) {
	record, ok := w.Get(id)
	if !ok {
		return
	}
	w.setStatus(id, StatusRunning, "")

	view := core.Filter(w.ds, record.State)
	view.Version = record.Version
	board := dashboard.NewBoard(w.opts.Bins, w.opts.Order)
	board.Render(view)
	snap := board.Snapshot()

	artifacts := make([]Artifact, 0, len(record.Formats))
	for _, format := range record.Formats {
		payload, contentType, err := w.materialize(format, snap)
		if err != nil {
			w.finish(id, nil, err)
			return
		}
		artifactID := uuid.NewString()
		key := fmt.Sprintf("exports/%s/%s.%s", id, artifactID, format)
		md := map[string]string{
			"export":  id,
			"format":  string(format),
			"rows":    strconv.Itoa(snap.Summary.Count),
			"version": strconv.FormatUint(record.Version, 10),
		}
		info, err := w.store.Put(w.ctx, key, bytes.NewReader(payload), blob.PutOptions{ContentType: contentType, Metadata: md})
		if err != nil {
			w.finish(id, nil, fmt.Errorf("store artifact: %w", err))
			return
		}
		artifacts = append(artifacts, Artifact{
			ID:          artifactID,
			Format:      format,
			ContentType: contentType,
			SizeBytes:   int64(len(payload)),
			Key:         key,
			URL:         info.URL,
			Metadata:    md,
			CreatedAt:   info.LastModified,
		})
	}
	w.finish(id, artifacts, nil)
}

func (w *Worker) materialize(format Format, snap dashboard.Snapshot) ([]byte, string, error) {
	switch format {
	case FormatJSON:
		payload, err := json.Marshal(snap)
		if err != nil {
			return nil, "", fmt.Errorf("marshal json: %w", err)
		}
		return payload, "application/json", nil
	case FormatCSV:
		payload, err := views.CSV(snap.Table)
		if err != nil {
			return nil, "", fmt.Errorf("render csv: %w", err)
		}
		return payload, "text/csv", nil
	case FormatHTML:
		return views.HTML(w.opts.Title, snap.Summary, snap.Table), "text/html; charset=utf-8", nil
	case FormatPNG:
		payload, err := views.PNG(snap.Chart, w.opts.Width, w.opts.Height)
		if err != nil {
			return nil, "", fmt.Errorf("render png: %w", err)
		}
		return payload, "image/png", nil
	default:
		return nil, "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

func (w *Worker) setStatus(id string, status Status, message string) {
	w.mu.Lock()
	record, ok := w.jobs[id]
	if ok {
		record.Status = status
		record.Error = message
		record.UpdatedAt = w.opts.Now()
	}
	var snapshot Record
	if ok {
		snapshot = record.copy()
	}
	w.mu.Unlock()
	if ok {
		w.record(w.ctx, snapshot, nil)
	}
}

func (w *Worker) finish(id string, artifacts []Artifact, cause error) {
	now := w.opts.Now()
	w.mu.Lock()
	record, ok := w.jobs[id]
	if !ok {
		w.mu.Unlock()
		return
	}
	if cause != nil {
		record.Status = StatusFailed
		record.Error = cause.Error()
	} else {
		record.Status = StatusSucceeded
		record.Error = ""
		record.Artifacts = artifacts
	}
	record.UpdatedAt = now
	record.CompletedAt = &now
	snapshot := record.copy()
	w.mu.Unlock()

	if w.opts.Observer != nil {
		w.opts.Observer.ExportFinished(string(snapshot.Status))
	}
	if cause != nil {
		w.opts.Logger.Warn("export failed", zap.String("export", id), zap.Error(cause))
	} else {
		w.opts.Logger.Info("export succeeded", zap.String("export", id), zap.Int("artifacts", len(artifacts)))
	}
	w.record(w.ctx, snapshot, cause)
}

func (w *Worker) record(ctx context.Context, r Record, cause error) {
	if w.audit == nil {
		return
	}
	entry := AuditEntry{
		ID:         uuid.NewString(),
		Action:     "view_export",
		Actor:      r.RequestedBy,
		ExportID:   r.ID,
		SessionID:  r.SessionID,
		Status:     r.Status,
		Version:    r.Version,
		OccurredAt: time.Now().UTC(),
	}
	if cause != nil {
		entry.Metadata = map[string]any{"error": cause.Error()}
	} else if r.Status == StatusSucceeded {
		entry.Metadata = map[string]any{"artifacts": len(r.Artifacts)}
	}
	w.audit.Record(ctx, entry)
}

func (r Record) copy() Record {
	dup := r
	dup.State = r.State.Clone()
	dup.Formats = append([]Format(nil), r.Formats...)
	if len(r.Artifacts) > 0 {
		dup.Artifacts = make([]Artifact, len(r.Artifacts))
		for i, a := range r.Artifacts {
			a.Metadata = blob.CloneMetadata(a.Metadata)
			dup.Artifacts[i] = a
		}
	}
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		dup.CompletedAt = &t
	}
	return dup
}
