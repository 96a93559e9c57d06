package anomaly

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/pranaysuyash/metaextract-sub011/pkg/domain/training"
	trainingMocks "github.com/pranaysuyash/metaextract-sub011/pkg/domain/training/mocks"
)

func TestRuleScorer_Score(t *testing.T) {
	scorer := NewRuleScorer(0.7)

	t.Run("benign vector scores zero", func(t *testing.T) {
		assert.Zero(t, scorer.Score(FeatureVector{}))
	})

	t.Run("saturated vector stays in range", func(t *testing.T) {
		v := FeatureVector{
			Frequency:              1,
			FileSizeDeviation:      1,
			FileSizeVariance:       1,
			IPInstability:          1,
			DeviceInstability:      1,
			TimeIrregularity:       1,
			GeoSpread:              1,
			FingerprintInstability: 1,
			Burst:                  1,
		}
		score := scorer.Score(v)
		assert.Greater(t, score, 0.9)
		assert.LessOrEqual(t, score, 1.0)
	})

	t.Run("score grows with each feature", func(t *testing.T) {
		base := scorer.Score(FeatureVector{Frequency: 0.5})
		more := scorer.Score(FeatureVector{Frequency: 0.5, IPInstability: 0.5})
		assert.Greater(t, more, base)
	})

	t.Run("saturated burst adds a bonus", func(t *testing.T) {
		almost := scorer.Score(FeatureVector{Burst: 0.99})
		saturated := scorer.Score(FeatureVector{Burst: 1})
		assert.Greater(t, saturated-almost, 0.14)
	})

	t.Run("single moderate signal stays under threshold", func(t *testing.T) {
		assert.Less(t, scorer.Score(FeatureVector{Frequency: 0.6}), scorer.Threshold())
	})
}

func TestTrainableScorer_Recalibration(t *testing.T) {
	repo := new(trainingMocks.Repository)
	repo.On("Save", mock.Anything, mock.Anything).Return(nil)

	logger := logrus.New()
	scorer := NewTrainableScorer(NewRuleScorer(0.7), repo, 100, 10, logger)

	assert.InDelta(t, 0.7, scorer.Threshold(), 0.001)

	// Uniform low scores pull the threshold down to the floor of the band.
	for i := 0; i < 10; i++ {
		scorer.Observe(context.Background(), "ip:203.0.113.10", FeatureVector{}, 0.1, false)
	}
	assert.InDelta(t, 0.5, scorer.Threshold(), 0.001)

	repo.AssertNumberOfCalls(t, "Save", 10)
}

func TestTrainableScorer_Warm(t *testing.T) {
	t.Run("persisted samples recalibrate the threshold", func(t *testing.T) {
		samples := make([]*training.Sample, 10)
		for i := range samples {
			samples[i] = &training.Sample{Confidence: 0.1}
		}
		repo := new(trainingMocks.Repository)
		repo.On("Recent", mock.Anything, 100).Return(samples, nil)

		scorer := NewTrainableScorer(NewRuleScorer(0.7), repo, 100, 10, logrus.New())
		scorer.Warm(context.Background())

		assert.InDelta(t, 0.5, scorer.Threshold(), 0.001)
		repo.AssertCalled(t, "Recent", mock.Anything, 100)
	})

	t.Run("lookup failure keeps the configured threshold", func(t *testing.T) {
		repo := new(trainingMocks.Repository)
		repo.On("Recent", mock.Anything, 100).Return(nil, assert.AnError)

		scorer := NewTrainableScorer(NewRuleScorer(0.7), repo, 100, 10, logrus.New())
		scorer.Warm(context.Background())

		assert.InDelta(t, 0.7, scorer.Threshold(), 0.001)
	})
}

func TestTrainableScorer_ThresholdCeiling(t *testing.T) {
	repo := new(trainingMocks.Repository)
	repo.On("Save", mock.Anything, mock.Anything).Return(nil)

	scorer := NewTrainableScorer(NewRuleScorer(0.7), repo, 100, 10, logrus.New())

	// Wildly varying scores cannot push the threshold past the ceiling.
	for i := 0; i < 10; i++ {
		score := 0.0
		if i%2 == 0 {
			score = 1.0
		}
		scorer.Observe(context.Background(), "ip:203.0.113.10", FeatureVector{}, score, false)
	}
	assert.LessOrEqual(t, scorer.Threshold(), 0.95)
	assert.GreaterOrEqual(t, scorer.Threshold(), 0.5)
}
