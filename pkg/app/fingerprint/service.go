package fingerprint

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pranaysuyash/metaextract-sub011/pkg/app/events"
	"github.com/pranaysuyash/metaextract-sub011/pkg/domain"
	domainfp "github.com/pranaysuyash/metaextract-sub011/pkg/domain/fingerprint"
	"github.com/pranaysuyash/metaextract-sub011/pkg/domain/securityevent"
	infrafp "github.com/pranaysuyash/metaextract-sub011/pkg/infra/fingerprint"
	"github.com/pranaysuyash/metaextract-sub011/pkg/types"
)

const (
	maxFingerprintRisk = 100
	repeatOffenderRisk = 10
	recentHistoryLimit = 10
)

// Result is the per-request fingerprint verdict.
type Result struct {
	Fingerprint   *infrafp.Fingerprint `json:"fingerprint"`
	RiskScore     int                  `json:"risk_score"`
	RiskLevel     types.RiskLevel      `json:"risk_level"`
	Action        types.Action         `json:"action"`
	Confidence    float64              `json:"confidence"`
	PriorSessions int64                `json:"prior_sessions"`
	Blocked       bool                 `json:"blocked"`
}

// Service generates, analyzes and tracks device fingerprints. Storage is
// advisory: a Redis or Postgres outage degrades signal quality but never
// fails the request.
type Service struct {
	generator *infrafp.Generator
	analyzer  *infrafp.Analyzer
	tracker   infrafp.Tracker
	repo      domainfp.Repository
	recorder  events.Recorder
	retention time.Duration
	logger    *logrus.Logger
}

func NewService(
	generator *infrafp.Generator,
	analyzer *infrafp.Analyzer,
	tracker infrafp.Tracker,
	repo domainfp.Repository,
	recorder events.Recorder,
	retention time.Duration,
	logger *logrus.Logger,
) *Service {
	return &Service{
		generator: generator,
		analyzer:  analyzer,
		tracker:   tracker,
		repo:      repo,
		recorder:  recorder,
		retention: retention,
		logger:    logger,
	}
}

// Track fingerprints one request end to end: generate, score evasion
// indicators, update the similarity index and persist the audit row.
func (s *Service) Track(ctx context.Context, req *types.RequestContext) (*Result, error) {
	fp := s.generator.Generate(req)

	analysis := s.analyzer.Analyze(ctx, fp)
	fp.Anomalies = analysis.Anomalies
	fp.Confidence = analysis.Confidence

	blocked, err := s.tracker.IsBlocked(ctx, fp)
	if err != nil {
		s.logger.WithError(err).Warn("fingerprint block lookup failed")
	}

	priorSessions, err := s.repo.CountSessionsByDeviceID(ctx, fp.DeviceID)
	if err != nil {
		s.logger.WithError(err).Warn("fingerprint session count failed")
	}

	if err := s.tracker.Store(ctx, fp, s.retention); err != nil {
		s.logger.WithError(err).Warn("fingerprint index update failed")
	}

	score := analysis.RiskScore
	if s.repeatOffender(ctx, fp.DeviceID) {
		score += repeatOffenderRisk
	}
	if score > maxFingerprintRisk {
		score = maxFingerprintRisk
	}
	s.persist(ctx, fp, score)
	level := types.LevelForScore(score)
	action := types.ActionForLevel(level)
	if blocked {
		action = types.ActionBlock
		level = types.RiskLevelCritical
	}

	s.recordEvent(fp, analysis, score, level)

	return &Result{
		Fingerprint:   fp,
		RiskScore:     score,
		RiskLevel:     level,
		Action:        action,
		Confidence:    analysis.Confidence,
		PriorSessions: priorSessions,
		Blocked:       blocked,
	}, nil
}

// repeatOffender reports whether the device's recent persisted sessions
// already landed in the high or critical band. Lookup failures are advisory.
func (s *Service) repeatOffender(ctx context.Context, deviceID string) bool {
	recent, err := s.repo.FindRecentByDeviceID(ctx, deviceID, recentHistoryLimit)
	if err != nil {
		s.logger.WithError(err).Warn("fingerprint history lookup failed")
		return false
	}
	for _, row := range recent {
		switch types.LevelForScore(row.RiskScore) {
		case types.RiskLevelHigh, types.RiskLevelCritical:
			return true
		}
	}
	return false
}

// Block bans a device id for the given duration. Subsequent requests from the
// same device resolve to a block action regardless of score.
func (s *Service) Block(ctx context.Context, fp *infrafp.Fingerprint, duration time.Duration) error {
	return s.tracker.Block(ctx, fp, duration)
}

func (s *Service) persist(ctx context.Context, fp *infrafp.Fingerprint, riskScore int) {
	attrs := make(domain.JSONMap, len(fp.Attributes))
	for key, value := range fp.Attributes {
		attrs[key] = value
	}
	record := &domainfp.Fingerprint{
		Hash:       fp.Hash,
		DeviceID:   fp.DeviceID,
		IP:         fp.IP,
		UserID:     fp.UserID,
		UserAgent:  fp.UserAgent,
		Attributes: attrs,
		Confidence: fp.Confidence,
		Anomalies:  domain.StringArray(fp.Anomalies),
		RiskScore:  riskScore,
	}
	if err := s.repo.Save(ctx, record); err != nil {
		s.logger.WithError(err).Warn("fingerprint persistence failed")
	}
}

func (s *Service) recordEvent(
	fp *infrafp.Fingerprint,
	analysis *infrafp.Analysis,
	score int,
	level types.RiskLevel,
) {
	severity := securityevent.SeverityInfo
	eventType := securityevent.TypeFingerprintTracked
	if len(analysis.Anomalies) > 0 {
		severity = securityevent.SeverityMedium
		eventType = securityevent.TypeAnomalyDetected
	}
	if level == types.RiskLevelCritical {
		severity = securityevent.SeverityHigh
	}
	s.recorder.Record(&securityevent.SecurityEvent{
		Type:     eventType,
		Severity: severity,
		Source:   "fingerprint",
		IP:       fp.IP,
		UserID:   fp.UserID,
		Details: domain.JSONMap{
			"device_id":     fp.DeviceID,
			"hash":          fp.Hash,
			"risk_score":    score,
			"anomalies":     analysis.Anomalies,
			"similar_count": analysis.SimilarCount,
			"confidence":    analysis.Confidence,
		},
	})
}
