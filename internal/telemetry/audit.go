package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	LevelInfo = "INFO"
	LevelWarn = "WARN"
)

type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
	Close() error
}

// AuditEmitter publishes session audit records (session_start, session_end and
// debug checks). Publishing is best effort: failures are logged, never
// returned.
type AuditEmitter struct {
	publisher  Publisher
	routingKey string
	source     AuditSource
	logger     *zap.Logger
	now        func() time.Time
}

type AuditSource struct {
	Service     string `json:"service"`
	Environment string `json:"environment"`
}

type AuditRecord struct {
	Version   int         `json:"version"`
	Kind      string      `json:"kind"`
	At        time.Time   `json:"at"`
	Source    AuditSource `json:"source"`
	RequestID string      `json:"request_id,omitempty"`
	TraceID   string      `json:"trace_id,omitempty"`
	UserID    *string     `json:"user_id,omitempty"`
	Level     string      `json:"level"`
	Text      string      `json:"text"`
}

func NewAuditEmitter(publisher Publisher, routingKey, service, environment string, logger *zap.Logger) *AuditEmitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditEmitter{
		publisher:  publisher,
		routingKey: routingKey,
		source:     AuditSource{Service: service, Environment: environment},
		logger:     logger.With(zap.String("component", "audit")),
		now:        time.Now,
	}
}

// Emit publishes one record. A nil emitter or publisher drops it.
func (e *AuditEmitter) Emit(ctx context.Context, level, text, requestID string, userID *string) {
	if e == nil || e.publisher == nil {
		return
	}
	record := e.record(ctx, level, text, requestID, userID)
	if err := e.publisher.Publish(ctx, e.routingKey, record); err != nil {
		e.logger.Warn("audit publish failed", zap.String("text", text), zap.Error(err))
		return
	}
	e.logger.Debug("audit published", zap.String("text", text), zap.String("trace_id", record.TraceID))
}

func (e *AuditEmitter) record(ctx context.Context, level, text, requestID string, userID *string) AuditRecord {
	if level == "" {
		level = LevelInfo
	}
	record := AuditRecord{
		Version:   2,
		Kind:      "client_audit",
		At:        e.now().UTC(),
		Source:    e.source,
		RequestID: requestID,
		UserID:    userID,
		Level:     level,
		Text:      text,
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		record.TraceID = sc.TraceID().String()
	}
	return record
}
