package providers

import (
	"context"
	"time"
)

// Report is the normalized verdict of one external reputation source.
// Score is 0-100, higher is worse.
type Report struct {
	Provider   string        `json:"provider"`
	Score      int           `json:"score"`
	IsTor      bool          `json:"is_tor"`
	IsVPN      bool          `json:"is_vpn"`
	IsProxy    bool          `json:"is_proxy"`
	Categories []string      `json:"categories,omitempty"`
	TTL        time.Duration `json:"-"`
}

// Provider is one external IP reputation source. Check must honor the
// context deadline; the aggregator treats any error as an abstain.
type Provider interface {
	Name() string
	Check(ctx context.Context, ip string) (*Report, error)
}

// Reporter is implemented by providers that accept abuse submissions.
type Reporter interface {
	ReportMalicious(ctx context.Context, ip string, categories []string, comment string) error
}
