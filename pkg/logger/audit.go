package logger

import (
	"context"
	"log/slog"
	"time"
)

// AuditEvent represents a security audit event
type AuditEvent struct {
	EventType     string
	AccountID     string
	Email         string
	IPAddress     string
	UserAgent     string
	Success       bool
	FailureReason string
	Metadata      map[string]string
}

// GateEvent is one passcode check outcome
type GateEvent struct {
	Email             string
	DeviceFingerprint string
	Allowed           bool
	Blocked           bool
	Attempts          int
	Path              string // "account", "session" or "untracked"
}

// AuditLogger provides audit logging functionality
type AuditLogger struct {
	logger *slog.Logger
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{
		logger: logger,
	}
}

// LogAuthAttempt logs signup, login and logout attempts
func (al *AuditLogger) LogAuthAttempt(event AuditEvent) {
	attrs := []slog.Attr{
		slog.String("audit_type", "auth"),
		slog.String("event_type", event.EventType),
		slog.Bool("success", event.Success),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	if event.AccountID != "" {
		attrs = append(attrs, slog.String("account_id", event.AccountID))
	}
	if event.Email != "" {
		attrs = append(attrs, slog.String("email", SanitizedEmail(event.Email)))
	}
	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}
	if event.UserAgent != "" {
		attrs = append(attrs, slog.String("user_agent", event.UserAgent))
	}
	if event.FailureReason != "" {
		attrs = append(attrs, slog.String("failure_reason", event.FailureReason))
	}
	for key, val := range event.Metadata {
		attrs = append(attrs, slog.String(key, val))
	}

	al.log(event.Success, attrs)
}

// LogGateDecision logs the outcome of a passcode check
func (al *AuditLogger) LogGateDecision(event GateEvent) {
	attrs := []slog.Attr{
		slog.String("audit_type", "gate"),
		slog.String("event_type", gateEventType(event)),
		slog.Bool("success", event.Allowed),
		slog.Bool("blocked", event.Blocked),
		slog.String("path", event.Path),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	if !event.Allowed && !event.Blocked {
		attrs = append(attrs, slog.Int("attempts", event.Attempts))
	}
	if event.Email != "" {
		attrs = append(attrs, slog.String("email", SanitizedEmail(event.Email)))
	}
	if event.DeviceFingerprint != "" {
		attrs = append(attrs, slog.Bool("has_device_fingerprint", true))
	}

	al.log(event.Allowed, attrs)
}

// LogAccountAction logs general account actions
func (al *AuditLogger) LogAccountAction(eventType, accountID string, metadata map[string]string) {
	attrs := []slog.Attr{
		slog.String("audit_type", "account"),
		slog.String("event_type", eventType),
		slog.String("account_id", accountID),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	for key, val := range metadata {
		attrs = append(attrs, slog.String(key, val))
	}

	al.logger.LogAttrs(context.Background(), slog.LevelInfo, "audit", attrs...)
}

func (al *AuditLogger) log(success bool, attrs []slog.Attr) {
	if success {
		al.logger.LogAttrs(context.Background(), slog.LevelInfo, "audit", attrs...)
	} else {
		al.logger.LogAttrs(context.Background(), slog.LevelWarn, "audit", attrs...)
	}
}

func gateEventType(event GateEvent) string {
	switch {
	case event.Allowed:
		return "gate_allowed"
	case event.Blocked:
		return "gate_blocked"
	default:
		return "gate_denied"
	}
}
