package fingerprint

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	AnomalyHeadlessBrowser = "Headless browser detected"
	AnomalyMinimalData     = "Minimal browser fingerprint"
	AnomalyCookiesDisabled = "Cookies disabled"
	AnomalyDeviceMismatch  = "Device type mismatch"
)

// Per-anomaly additive risk contributions.
const (
	headlessRisk     = 30
	minimalDataRisk  = 20
	cookiesRisk      = 10
	mismatchRisk     = 15
	similarMatchRisk = 5
)

// Per-finding confidence penalties. Confidence never drops below the floor.
const (
	anomalyPenalty      = 0.15
	similarMatchPenalty = 0.05
	confidenceFloor     = 0.1
)

var headlessMarkers = []string{
	"headlesschrome",
	"phantomjs",
	"puppeteer",
	"playwright",
	"selenium",
	"electron",
}

// Analysis is the evasion verdict for one fingerprint.
type Analysis struct {
	Anomalies    []string
	SimilarCount int
	RiskScore    int
	Confidence   float64
}

// Analyzer inspects a generated fingerprint for evasion indicators and scores
// them. Findings only ever raise risk; absence of a signal is neutral.
type Analyzer struct {
	tracker     Tracker
	maxDistance int
	logger      *logrus.Logger
}

func NewAnalyzer(tracker Tracker, maxDistance int, logger *logrus.Logger) *Analyzer {
	return &Analyzer{
		tracker:     tracker,
		maxDistance: maxDistance,
		logger:      logger,
	}
}

// Analyze flags headless automation, suppressed client data, disabled cookies
// and device-class mismatches, then folds in near-duplicate fingerprints from
// the similarity index. The tracker lookup is advisory: on error the analysis
// proceeds without it.
func (a *Analyzer) Analyze(ctx context.Context, fp *Fingerprint) *Analysis {
	analysis := &Analysis{}

	if isHeadless(fp.UserAgent) {
		a.flag(analysis, AnomalyHeadlessBrowser, headlessRisk)
	}
	if fp.HasClientData && fp.Attributes[AttrPlugins] == "" && fp.Attributes[AttrFonts] == "" {
		a.flag(analysis, AnomalyMinimalData, minimalDataRisk)
	}
	if fp.Attributes[AttrCookiesEnabled] == "false" {
		a.flag(analysis, AnomalyCookiesDisabled, cookiesRisk)
	}
	if deviceMismatch(fp) {
		a.flag(analysis, AnomalyDeviceMismatch, mismatchRisk)
	}

	similar, err := a.tracker.FindSimilar(ctx, fp, a.maxDistance)
	if err != nil {
		a.logger.WithError(err).Warn("fingerprint similarity lookup failed")
	}
	analysis.SimilarCount = len(similar)
	analysis.RiskScore += len(similar) * similarMatchRisk

	analysis.Confidence = 1 -
		float64(len(analysis.Anomalies))*anomalyPenalty -
		float64(analysis.SimilarCount)*similarMatchPenalty
	if analysis.Confidence < confidenceFloor {
		analysis.Confidence = confidenceFloor
	}

	return analysis
}

func (a *Analyzer) flag(analysis *Analysis, anomaly string, risk int) {
	analysis.Anomalies = append(analysis.Anomalies, anomaly)
	analysis.RiskScore += risk
}

func isHeadless(userAgent string) bool {
	ua := strings.ToLower(userAgent)
	for _, marker := range headlessMarkers {
		if strings.Contains(ua, marker) {
			return true
		}
	}
	return false
}

// deviceMismatch reports a mobile user agent claiming zero touch points, a
// combination no real handset produces.
func deviceMismatch(fp *Fingerprint) bool {
	ua := strings.ToLower(fp.Attributes[AttrUserAgent])
	mobile := strings.Contains(ua, "mobile") || strings.Contains(ua, "android") || strings.Contains(ua, "iphone")
	touch, reported := fp.Attributes[AttrTouchSupport]
	return mobile && reported && (touch == "false" || touch == "0")
}
