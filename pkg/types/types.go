package types

import "time"

// RiskLevel is the discrete band derived from a 0-100 risk score.
type RiskLevel string

const (
	RiskLevelLow      RiskLevel = "low"
	RiskLevelMedium   RiskLevel = "medium"
	RiskLevelHigh     RiskLevel = "high"
	RiskLevelCritical RiskLevel = "critical"

	// RiskLevelUnknown marks a verdict that was never computed, such as a
	// threat check for a syntactically invalid address.
	RiskLevelUnknown RiskLevel = "unknown"
)

// Action is the advisory verdict handed to the caller. The engine never
// rejects a request itself.
type Action string

const (
	ActionAllow     Action = "allow"
	ActionChallenge Action = "challenge"
	ActionBlock     Action = "block"
)

// Risk score bands. Strictly increasing, non-overlapping.
const (
	MediumRiskThreshold   = 25
	HighRiskThreshold     = 50
	CriticalRiskThreshold = 70
)

// LevelForScore maps a composite 0-100 score to its band.
func LevelForScore(score int) RiskLevel {
	switch {
	case score >= CriticalRiskThreshold:
		return RiskLevelCritical
	case score >= HighRiskThreshold:
		return RiskLevelHigh
	case score >= MediumRiskThreshold:
		return RiskLevelMedium
	default:
		return RiskLevelLow
	}
}

// ActionForLevel maps a band to the advisory action.
func ActionForLevel(level RiskLevel) Action {
	switch level {
	case RiskLevelCritical:
		return ActionBlock
	case RiskLevelHigh:
		return ActionChallenge
	default:
		return ActionAllow
	}
}

// RequestContext is the abstract inbound context a caller hands to the
// engine: source IP, header bag, optional authenticated identity and
// optional client-reported fingerprint attributes from the collector script.
type RequestContext struct {
	IP        string              `json:"ip"`
	Headers   map[string][]string `json:"headers"`
	UserID    string              `json:"user_id,omitempty"`
	SessionID string              `json:"session_id,omitempty"`
	FileSize  int64               `json:"file_size,omitempty"`
	FileType  string              `json:"file_type,omitempty"`
	Timestamp time.Time           `json:"timestamp"`

	// ClientAttributes carries the untrusted rich signals reported by the
	// client-side collector (canvas, webgl, audio, fonts, plugins, hardware).
	ClientAttributes map[string]interface{} `json:"client_attributes,omitempty"`
}

// Header returns the first value of a header, mirroring http.Header.Get
// without canonicalizing the key.
func (r *RequestContext) Header(key string) string {
	if values, ok := r.Headers[key]; ok && len(values) > 0 {
		return values[0]
	}
	return ""
}

// RequesterKey identifies the history bucket for behavioral analysis:
// authenticated user when present, source IP otherwise.
func (r *RequestContext) RequesterKey() string {
	if r.UserID != "" {
		return "user:" + r.UserID
	}
	return "ip:" + r.IP
}

// Decision is the engine's composite output.
type Decision struct {
	Action              Action    `json:"action"`
	RiskLevel           RiskLevel `json:"risk_level"`
	RiskScore           int       `json:"risk_score"`
	ContributingFactors []string  `json:"contributing_factors"`
	Recommendations     []string  `json:"recommendations"`
}
