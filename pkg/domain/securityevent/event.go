package securityevent

import (
	"context"
	"time"

	"github.com/pranaysuyash/metaextract-sub011/pkg/domain"
)

// Event types emitted by the engine. Every decision point produces one.
const (
	TypeFingerprintTracked = "fingerprint_tracked"
	TypeAnomalyDetected    = "anomaly_detected"
	TypeThreatDetected     = "threat_detected"
	TypeThreatChecked      = "threat_checked"
	TypeMaliciousIPReport  = "malicious_ip_report"
	TypeDecision           = "risk_decision"
	TypeRateLimitViolation = "rate_limit_violation"
	TypeSystemAlert        = "system_alert"
)

const (
	SeverityInfo     = "info"
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// SecurityEvent is the auditable record of one decision point.
type SecurityEvent struct {
	ID        string         `json:"id" gorm:"primaryKey"`
	Type      string         `json:"type" gorm:"index"`
	Severity  string         `json:"severity" gorm:"index"`
	Source    string         `json:"source"`
	IP        string         `json:"ip" gorm:"index"`
	UserID    string         `json:"user_id" gorm:"index"`
	SessionID string         `json:"session_id"`
	Details   domain.JSONMap `json:"details" gorm:"type:jsonb"`
	Timestamp time.Time      `json:"timestamp" gorm:"index"`
}

// Filter narrows event queries. Zero values are ignored.
type Filter struct {
	From     time.Time
	To       time.Time
	Type     string
	Severity string
	IP       string
	UserID   string
	Limit    int
	Offset   int
}

// HourlyCount is one bucket of the per-hour rollup.
type HourlyCount struct {
	Hour  int   `json:"hour"`
	Count int64 `json:"count"`
}

// IPCount is one entry of the top-offenders rollup.
type IPCount struct {
	IP    string `json:"ip"`
	Count int64  `json:"count"`
}

// Analytics is the aggregate view over a time window.
type Analytics struct {
	Total      int64            `json:"total"`
	ByType     map[string]int64 `json:"by_type"`
	BySeverity map[string]int64 `json:"by_severity"`
	ByHour     []HourlyCount    `json:"by_hour"`
	TopIPs     []IPCount        `json:"top_ips"`
}

type Repository interface {
	SaveBatch(ctx context.Context, events []*SecurityEvent) error
	Query(ctx context.Context, filter Filter) ([]*SecurityEvent, int64, error)
	Analytics(ctx context.Context, since time.Time) (*Analytics, error)
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	CountByTypeSince(ctx context.Context, eventType string, since time.Time) (int64, error)
}
