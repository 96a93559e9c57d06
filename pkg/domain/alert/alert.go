package alert

import (
	"context"
	"time"

	"github.com/pranaysuyash/metaextract-sub011/pkg/domain"
)

// Alert types raised by the monitoring sweep and the scoring pipeline.
const (
	TypeHighMemory        = "high_memory"
	TypeLowStorage        = "low_storage"
	TypeRateLimitSpike    = "rate_limit_spike"
	TypeAbuseSpike        = "abuse_spike"
	TypeHighRiskIP        = "high_risk_ip"
	TypeMonitoringFailure = "monitoring_failure"
)

const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Alert is one operator notification. Alerts live in memory only; the
// matching security event is the durable record.
type Alert struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Severity  string         `json:"severity"`
	Source    string         `json:"source"`
	Message   string         `json:"message"`
	Details   domain.JSONMap `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Channel delivers an alert to one destination. Send must honor the context
// deadline; failures are per-channel and never abort the others.
type Channel interface {
	Name() string
	Send(ctx context.Context, a *Alert) error
}
