package engine

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/pranaysuyash/metaextract-sub011/pkg/app/alerts"
	"github.com/pranaysuyash/metaextract-sub011/pkg/app/anomaly"
	"github.com/pranaysuyash/metaextract-sub011/pkg/app/events"
	appfp "github.com/pranaysuyash/metaextract-sub011/pkg/app/fingerprint"
	"github.com/pranaysuyash/metaextract-sub011/pkg/app/threatintel"
	"github.com/pranaysuyash/metaextract-sub011/pkg/domain"
	"github.com/pranaysuyash/metaextract-sub011/pkg/domain/alert"
	"github.com/pranaysuyash/metaextract-sub011/pkg/domain/securityevent"
	"github.com/pranaysuyash/metaextract-sub011/pkg/infra/prometheus"
	"github.com/pranaysuyash/metaextract-sub011/pkg/types"
)

// Fusion weights for the composite score. Reputation dominates because it is
// the only externally corroborated signal.
const (
	weightThreat      = 0.40
	weightAnomaly     = 0.35
	weightFingerprint = 0.25
)

// Evaluation is the full engine output for one request: the advisory
// decision plus the per-component verdicts it was fused from.
type Evaluation struct {
	Decision    types.Decision      `json:"decision"`
	Fingerprint *appfp.Result       `json:"fingerprint,omitempty"`
	Anomaly     *anomaly.Detection  `json:"anomaly,omitempty"`
	Threat      *threatintel.Result `json:"threat,omitempty"`
}

// Evaluator fuses the three scoring components into one decision. It never
// returns an error to the caller: a failed component abstains and the rest
// decide.
type Evaluator struct {
	fingerprints *appfp.Service
	detector     *anomaly.Detector
	threats      *threatintel.Aggregator
	alerts       *alerts.Manager
	recorder     events.Recorder
	logger       *logrus.Logger
}

func NewEvaluator(
	fingerprints *appfp.Service,
	detector *anomaly.Detector,
	threats *threatintel.Aggregator,
	alertManager *alerts.Manager,
	recorder events.Recorder,
	logger *logrus.Logger,
) *Evaluator {
	return &Evaluator{
		fingerprints: fingerprints,
		detector:     detector,
		threats:      threats,
		alerts:       alertManager,
		recorder:     recorder,
		logger:       logger,
	}
}

// Evaluate runs fingerprinting, behavioral scoring and threat intel for one
// request and fuses them. A device blocked in the similarity index
// short-circuits to a block verdict.
func (e *Evaluator) Evaluate(ctx context.Context, req *types.RequestContext) *Evaluation {
	evaluation := &Evaluation{}
	var factors, recommendations []string

	fpResult, err := e.fingerprints.Track(ctx, req)
	if err != nil {
		e.logger.WithError(err).Warn("fingerprint tracking failed, component abstains")
	} else {
		evaluation.Fingerprint = fpResult
	}

	if fpResult != nil && fpResult.Blocked {
		evaluation.Decision = types.Decision{
			Action:              types.ActionBlock,
			RiskLevel:           types.RiskLevelCritical,
			RiskScore:           100,
			ContributingFactors: []string{"device is blocked"},
			Recommendations:     []string{"reject the request"},
		}
		e.finish(req, evaluation)
		return evaluation
	}

	var deviceID, fpHash string
	if fpResult != nil {
		deviceID = fpResult.Fingerprint.DeviceID
		fpHash = fpResult.Fingerprint.Hash
	}
	detection := e.detector.DetectUploadAnomaly(ctx, req, deviceID, fpHash)
	evaluation.Anomaly = detection

	threat, err := e.threats.Check(ctx, req.IP)
	if err != nil {
		e.logger.WithError(err).WithField("ip", req.IP).
			Warn("threat check failed, component abstains")
	} else {
		evaluation.Threat = threat
	}

	// Weighted fusion over the components that produced a verdict. Weights
	// of missing components are redistributed by renormalizing.
	var weightedSum, weightTotal float64
	if threat != nil && threat.RiskLevel != types.RiskLevelUnknown {
		weightedSum += float64(threat.Score) * weightThreat
		weightTotal += weightThreat
		if threat.Score >= types.HighRiskThreshold {
			factors = append(factors, fmt.Sprintf("ip reputation score %d", threat.Score))
		}
		if threat.IsTor {
			factors = append(factors, "tor exit node")
		}
	}
	if detection != nil {
		weightedSum += detection.Score * 100 * weightAnomaly
		weightTotal += weightAnomaly
		if detection.Anomalous {
			factors = append(factors, detection.ContributingFactors...)
			recommendations = append(recommendations, detection.Recommendations...)
		}
	}
	if fpResult != nil {
		weightedSum += float64(fpResult.RiskScore) * weightFingerprint
		weightTotal += weightFingerprint
		factors = append(factors, fpResult.Fingerprint.Anomalies...)
	}

	score := 0
	if weightTotal > 0 {
		score = int(weightedSum / weightTotal)
	}
	if score > 100 {
		score = 100
	}
	level := types.LevelForScore(score)
	action := types.ActionForLevel(level)
	if action == types.ActionChallenge {
		recommendations = append(recommendations, "present a verification challenge")
	}

	evaluation.Decision = types.Decision{
		Action:              action,
		RiskLevel:           level,
		RiskScore:           score,
		ContributingFactors: factors,
		Recommendations:     recommendations,
	}
	e.finish(req, evaluation)
	return evaluation
}

func (e *Evaluator) finish(req *types.RequestContext, evaluation *Evaluation) {
	decision := evaluation.Decision
	prometheus.DecisionTotal.WithLabelValues(string(decision.Action), string(decision.RiskLevel)).Inc()

	severity := securityevent.SeverityInfo
	if decision.RiskLevel == types.RiskLevelHigh {
		severity = securityevent.SeverityHigh
	}
	if decision.RiskLevel == types.RiskLevelCritical {
		severity = securityevent.SeverityCritical
	}
	e.recorder.Record(&securityevent.SecurityEvent{
		Type:      securityevent.TypeDecision,
		Severity:  severity,
		Source:    "engine",
		IP:        req.IP,
		UserID:    req.UserID,
		SessionID: req.SessionID,
		Details: domain.JSONMap{
			"action":     string(decision.Action),
			"risk_level": string(decision.RiskLevel),
			"risk_score": decision.RiskScore,
			"factors":    decision.ContributingFactors,
		},
	})

	if decision.RiskLevel == types.RiskLevelCritical {
		e.alerts.Trigger(context.Background(), alert.TypeHighRiskIP, alert.SeverityCritical, "engine",
			fmt.Sprintf("critical risk request from %s (score %d)", req.IP, decision.RiskScore),
			domain.JSONMap{
				"ip":         req.IP,
				"user_id":    req.UserID,
				"risk_score": decision.RiskScore,
			})
	}
}
