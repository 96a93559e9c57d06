package anomaly

import (
	"context"
	"fmt"
	"math"
	"net"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pranaysuyash/metaextract-sub011/pkg/app/events"
	"github.com/pranaysuyash/metaextract-sub011/pkg/domain"
	"github.com/pranaysuyash/metaextract-sub011/pkg/domain/securityevent"
	"github.com/pranaysuyash/metaextract-sub011/pkg/types"
)

// factorThreshold is the per-feature level above which a feature is named as
// a contributing factor in the detection.
const factorThreshold = 0.5

// Observer receives scored observations for threshold recalibration.
type Observer interface {
	Observe(ctx context.Context, requesterKey string, v FeatureVector, score float64, anomalous bool)
}

// Detection is the behavioral verdict for one upload. RiskScore is the
// anomaly score projected onto the shared 0-100 scale.
type Detection struct {
	Anomalous           bool            `json:"anomalous"`
	Score               float64         `json:"score"`
	RiskScore           int             `json:"risk_score"`
	RiskLevel           types.RiskLevel `json:"risk_level"`
	Threshold           float64         `json:"threshold"`
	Features            FeatureVector   `json:"features"`
	ContributingFactors []string        `json:"contributing_factors"`
	Recommendations     []string        `json:"recommendations"`
}

// Detector scores upload behavior against the requester's own history. With
// no usable history it falls back to a conservative static rule.
type Detector struct {
	history   *History
	extractor *Extractor
	scorer    Scorer
	observer  Observer
	window    time.Duration
	recorder  events.Recorder
	logger    *logrus.Logger
}

func NewDetector(
	history *History,
	extractor *Extractor,
	scorer Scorer,
	observer Observer,
	window time.Duration,
	recorder events.Recorder,
	logger *logrus.Logger,
) *Detector {
	return &Detector{
		history:   history,
		extractor: extractor,
		scorer:    scorer,
		observer:  observer,
		window:    window,
		recorder:  recorder,
		logger:    logger,
	}
}

// DetectUploadAnomaly scores the request, appends it to the requester's
// history and emits an event when the verdict is anomalous. History access
// is advisory; on Redis failure the static fallback rule decides.
func (d *Detector) DetectUploadAnomaly(ctx context.Context, req *types.RequestContext, deviceID, fingerprintHash string) *Detection {
	requesterKey := req.RequesterKey()
	now := req.Timestamp
	if now.IsZero() {
		now = time.Now()
	}
	current := Record{
		Timestamp:       now,
		IP:              req.IP,
		DeviceID:        deviceID,
		FingerprintHash: fingerprintHash,
		FileSize:        req.FileSize,
		FileType:        req.FileType,
		GeoCountry:      req.Header("CF-IPCountry"),
	}

	history, err := d.history.Recent(ctx, requesterKey, d.window)
	if err != nil {
		d.logger.WithError(err).Warn("behavior history lookup failed")
		return d.fallback(req, now)
	}

	features := d.extractor.Extract(req, current, history)
	score := d.scorer.Score(features)
	threshold := d.scorer.Threshold()
	anomalous := score >= threshold

	detection := &Detection{
		Anomalous:           anomalous,
		Score:               score,
		RiskScore:           riskScore(score),
		Threshold:           threshold,
		Features:            features,
		ContributingFactors: contributingFactors(features, d.extractor.IsOffHours(now)),
	}
	detection.RiskLevel = types.LevelForScore(detection.RiskScore)
	detection.Recommendations = recommendations(detection)

	if err := d.history.Append(ctx, requesterKey, current); err != nil {
		d.logger.WithError(err).Warn("behavior history append failed")
	}
	if d.observer != nil {
		d.observer.Observe(ctx, requesterKey, features, score, anomalous)
	}
	if anomalous {
		d.recordEvent(req, detection)
	}

	return detection
}

// fallback decides without history: an anonymous requester from a private or
// loopback address during off-hours is treated as anomalous.
func (d *Detector) fallback(req *types.RequestContext, now time.Time) *Detection {
	suspicious := req.UserID == "" && isInternalIP(req.IP) && d.extractor.IsOffHours(now)

	detection := &Detection{
		Anomalous: suspicious,
		Threshold: d.scorer.Threshold(),
		RiskLevel: types.RiskLevelLow,
	}
	if suspicious {
		detection.Score = detection.Threshold
		detection.RiskScore = riskScore(detection.Score)
		detection.RiskLevel = types.LevelForScore(detection.RiskScore)
		detection.ContributingFactors = []string{
			"anonymous requester on internal address during off-hours",
		}
		detection.Recommendations = []string{
			"require authentication for this source",
		}
		d.recordEvent(req, detection)
	}
	return detection
}

func (d *Detector) recordEvent(req *types.RequestContext, detection *Detection) {
	d.recorder.Record(&securityevent.SecurityEvent{
		Type:      securityevent.TypeAnomalyDetected,
		Severity:  securityevent.SeverityMedium,
		Source:    "anomaly",
		IP:        req.IP,
		UserID:    req.UserID,
		SessionID: req.SessionID,
		Details: domain.JSONMap{
			"score":                detection.Score,
			"threshold":            detection.Threshold,
			"contributing_factors": detection.ContributingFactors,
		},
	})
}

func contributingFactors(v FeatureVector, offHours bool) []string {
	var factors []string
	add := func(value float64, name string) {
		if value >= factorThreshold {
			factors = append(factors, fmt.Sprintf("%s (%.2f)", name, value))
		}
	}
	add(v.Frequency, "elevated upload frequency")
	add(v.Burst, "upload burst")
	add(v.FileSizeDeviation, "unusual file size")
	add(v.FileSizeVariance, "erratic file sizes")
	add(v.IPInstability, "unstable source IP")
	add(v.DeviceInstability, "unstable device identity")
	add(v.TimeIrregularity, "irregular time pattern")
	add(v.GeoSpread, "implausible geographic spread")
	add(v.FingerprintInstability, "unstable fingerprint")
	if offHours {
		factors = append(factors, "off-hours activity")
	}
	return factors
}

func recommendations(d *Detection) []string {
	if !d.Anomalous {
		return nil
	}
	var recs []string
	if d.Features.Burst >= factorThreshold || d.Features.Frequency >= factorThreshold {
		recs = append(recs, "apply rate limiting to this requester")
	}
	if d.Features.IPInstability >= factorThreshold || d.Features.DeviceInstability >= factorThreshold {
		recs = append(recs, "challenge the session with step-up verification")
	}
	if d.Features.GeoSpread >= factorThreshold {
		recs = append(recs, "review session for account takeover")
	}
	if len(recs) == 0 {
		recs = append(recs, "monitor subsequent activity from this requester")
	}
	return recs
}

// riskScore projects a [0,1] anomaly score onto the 0-100 band scale.
func riskScore(score float64) int {
	return int(math.Round(score * 100))
}

func isInternalIP(ip string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	return parsed.IsLoopback() || parsed.IsPrivate() || parsed.IsLinkLocalUnicast()
}
