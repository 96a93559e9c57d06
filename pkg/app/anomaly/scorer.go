package anomaly

import (
	"context"
	"math"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/pranaysuyash/metaextract-sub011/pkg/domain/training"
)

// Scorer maps a feature vector to an anomaly score in [0, 1] and owns the
// threshold above which a score counts as anomalous.
type Scorer interface {
	Score(v FeatureVector) float64
	Threshold() float64
}

// Rule weights. They sum below 1 so a single moderate signal cannot cross
// the default threshold alone; bursts carry the largest share.
const (
	weightFrequency   = 0.20
	weightBurst       = 0.15
	weightFileSizeDev = 0.05
	weightFileSizeVar = 0.05
	weightIP          = 0.10
	weightDevice      = 0.10
	weightTime        = 0.10
	weightGeo         = 0.10
	weightFingerprint = 0.10
)

// RuleScorer is the deterministic weighted-sum scorer. It is the default and
// the fallback when the trainable scorer has no data.
type RuleScorer struct {
	threshold float64
}

func NewRuleScorer(threshold float64) *RuleScorer {
	return &RuleScorer{threshold: threshold}
}

func (s *RuleScorer) Score(v FeatureVector) float64 {
	score := v.Frequency*weightFrequency +
		v.Burst*weightBurst +
		v.FileSizeDeviation*weightFileSizeDev +
		v.FileSizeVariance*weightFileSizeVar +
		v.IPInstability*weightIP +
		v.DeviceInstability*weightDevice +
		v.TimeIrregularity*weightTime +
		v.GeoSpread*weightGeo +
		v.FingerprintInstability*weightFingerprint

	// A saturated burst means a machine, not a busy human.
	if v.Burst >= 1 {
		score += 0.15
	}
	return clamp01(score)
}

func (s *RuleScorer) Threshold() float64 {
	return s.threshold
}

// TrainableScorer wraps the rule scorer and recalibrates its threshold from
// the observed score distribution: after every N samples the threshold moves
// to mean + 2 sigma, clamped to a sane band. Scoring stays deterministic;
// only the cut point adapts to the deployment's traffic.
type TrainableScorer struct {
	base       *RuleScorer
	repo       training.Repository
	bufferSize int
	retrainN   int
	logger     *logrus.Logger

	mu        sync.RWMutex
	threshold float64
	scores    []float64
	observed  int
}

func NewTrainableScorer(
	base *RuleScorer,
	repo training.Repository,
	bufferSize int,
	retrainN int,
	logger *logrus.Logger,
) *TrainableScorer {
	return &TrainableScorer{
		base:       base,
		repo:       repo,
		bufferSize: bufferSize,
		retrainN:   retrainN,
		logger:     logger,
		threshold:  base.Threshold(),
		scores:     make([]float64, 0, bufferSize),
	}
}

func (s *TrainableScorer) Score(v FeatureVector) float64 {
	return s.base.Score(v)
}

func (s *TrainableScorer) Threshold() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.threshold
}

// Warm seeds the score buffer from previously persisted samples, newest
// first, so a restart does not reset the calibrated threshold. Failures leave
// the configured threshold in place.
func (s *TrainableScorer) Warm(ctx context.Context) {
	samples, err := s.repo.Recent(ctx, s.bufferSize)
	if err != nil {
		s.logger.WithError(err).Warn("training sample warmup failed")
		return
	}
	if len(samples) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sample := range samples {
		if len(s.scores) >= s.bufferSize {
			break
		}
		s.scores = append(s.scores, sample.Confidence)
	}
	s.observed = len(s.scores)
	s.recalibrate()

	s.logger.WithField("samples", len(s.scores)).Info("anomaly scorer warmed from persisted samples")
}

// Observe records one scored observation. The sample is persisted for later
// curation and the in-memory buffer drives recalibration.
func (s *TrainableScorer) Observe(ctx context.Context, requesterKey string, v FeatureVector, score float64, anomalous bool) {
	sample := &training.Sample{
		RequesterKey: requesterKey,
		Features:     v.Map(),
		Anomalous:    anomalous,
		Confidence:   score,
	}
	if err := s.repo.Save(ctx, sample); err != nil {
		s.logger.WithError(err).Warn("training sample persistence failed")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.scores) >= s.bufferSize {
		s.scores = s.scores[1:]
	}
	s.scores = append(s.scores, score)
	s.observed++

	if s.observed%s.retrainN == 0 {
		s.recalibrate()
	}
}

// recalibrate must be called with the lock held.
func (s *TrainableScorer) recalibrate() {
	if len(s.scores) < s.retrainN {
		return
	}
	var sum, sumSq float64
	for _, score := range s.scores {
		sum += score
		sumSq += score * score
	}
	n := float64(len(s.scores))
	mean := sum / n
	variance := sumSq/n - mean*mean
	if variance < 0 {
		variance = 0
	}

	threshold := mean + 2*math.Sqrt(variance)
	if threshold < 0.5 {
		threshold = 0.5
	}
	if threshold > 0.95 {
		threshold = 0.95
	}

	if threshold != s.threshold {
		s.logger.WithFields(logrus.Fields{
			"old_threshold": s.threshold,
			"new_threshold": threshold,
			"samples":       len(s.scores),
		}).Info("anomaly threshold recalibrated")
		s.threshold = threshold
	}
}
