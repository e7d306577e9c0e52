package exports

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// AuditEntry is one export lifecycle event.
type AuditEntry struct {
	ID         string         `json:"id"`
	Action     string         `json:"action"`
	Actor      string         `json:"actor,omitempty"`
	ExportID   string         `json:"export_id"`
	SessionID  string         `json:"session_id,omitempty"`
	Status     Status         `json:"status"`
	Version    uint64         `json:"version"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// AuditLogger records export audit entries.
type AuditLogger interface {
	Record(ctx context.Context, entry AuditEntry)
}

// ZapAuditLog writes audit entries as structured log lines.
type ZapAuditLog struct {
	logger *zap.Logger
}

// NewZapAuditLog returns an audit logger writing to logger under "audit".
func NewZapAuditLog(logger *zap.Logger) *ZapAuditLog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapAuditLog{logger: logger.Named("audit")}
}

// Record logs entry at info level.
func (l *ZapAuditLog) Record(_ context.Context, entry AuditEntry) {
	fields := []zap.Field{
		zap.String("id", entry.ID),
		zap.String("action", entry.Action),
		zap.String("export", entry.ExportID),
		zap.String("status", string(entry.Status)),
		zap.Uint64("version", entry.Version),
		zap.Time("occurred_at", entry.OccurredAt),
	}
	if entry.Actor != "" {
		fields = append(fields, zap.String("actor", entry.Actor))
	}
	if entry.SessionID != "" {
		fields = append(fields, zap.String("session", entry.SessionID))
	}
	if len(entry.Metadata) > 0 {
		fields = append(fields, zap.Any("metadata", entry.Metadata))
	}
	l.logger.Info("export audit", fields...)
}

// MemoryAuditLog captures audit entries in memory for assertions.
type MemoryAuditLog struct {
	mu      sync.Mutex
	entries []AuditEntry
}

// Record stores an audit entry.
func (l *MemoryAuditLog) Record(_ context.Context, entry AuditEntry) {
	l.mu.Lock()
	l.entries = append(l.entries, entry)
	l.mu.Unlock()
}

// Entries returns a copy of the recorded entries.
func (l *MemoryAuditLog) Entries() []AuditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]AuditEntry, len(l.entries))
	copy(out, l.entries)
	return out
}
