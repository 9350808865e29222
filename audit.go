package goSession

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/MrEthical07/goSession/authapi"
	"github.com/MrEthical07/goSession/internal/audit"
	"github.com/MrEthical07/goSession/session"
)

// Audit event names.
const (
	AuditLogin      = audit.EventLogin
	AuditLogout     = audit.EventLogout
	AuditRoleSwitch = audit.EventRoleSwitch
)

type (
	AuditEvent     = audit.Event
	AuditSink      = audit.Sink
	AuditSinkFunc  = audit.SinkFunc
	NoOpSink       = audit.NoOpSink
	ChannelSink    = audit.ChannelSink
	JSONWriterSink = audit.JSONWriterSink
)

func NewChannelSink(buffer int) *ChannelSink {
	return audit.NewChannelSink(buffer)
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}

// apiAuditSink posts events to the audit-log endpoint. Delivery failures are
// logged and otherwise ignored.
type apiAuditSink struct {
	api     *authapi.Client
	store   *session.Store
	timeout time.Duration
	logger  zerolog.Logger
}

func (s *apiAuditSink) Emit(ctx context.Context, event AuditEvent) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var token string
	if creds, err := s.store.Credentials(ctx, ""); err == nil {
		token = creds.Token
	}
	if err := s.api.PostAudit(ctx, token, event); err != nil {
		s.logger.Warn().
			Err(err).
			Str("event", event.Event).
			Str("audit_id", event.ID).
			Msg("audit log delivery failed")
	}
}

func (m *Manager) emitAudit(ctx context.Context, kind string, rec *session.Record, metadata map[string]string) {
	if m.audit == nil || rec == nil {
		return
	}
	m.audit.Emit(ctx, audit.NewEvent(kind, string(rec.UserType), rec.UserID, m.now(), metadata))
}

// AuditDropped returns the number of audit events dropped because the buffer
// was full.
func (m *Manager) AuditDropped() uint64 {
	if m == nil {
		return 0
	}
	return m.audit.Dropped()
}
