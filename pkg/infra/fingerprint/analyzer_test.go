package fingerprint_test

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/pranaysuyash/metaextract-sub011/pkg/infra/fingerprint"
	"github.com/pranaysuyash/metaextract-sub011/pkg/infra/fingerprint/mocks"
)

func newAnalyzer(tracker *mocks.Tracker) *fingerprint.Analyzer {
	logger := logrus.New()
	return fingerprint.NewAnalyzer(tracker, 2, logger)
}

func cleanFingerprint() *fingerprint.Fingerprint {
	return &fingerprint.Fingerprint{
		Attributes: map[string]string{
			fingerprint.AttrUserAgent: "Mozilla/5.0 (X11; Linux x86_64) Chrome/120.0",
			fingerprint.AttrPlugins:   "pdf-viewer",
			fingerprint.AttrFonts:     "Arial,Helvetica",
		},
		Hash:          "hash-1",
		DeviceID:      "device-1",
		UserAgent:     "Mozilla/5.0 (X11; Linux x86_64) Chrome/120.0",
		Confidence:    0.9,
		HasClientData: true,
	}
}

func TestAnalyzer_Analyze(t *testing.T) {
	t.Run("clean fingerprint has no anomalies", func(t *testing.T) {
		tracker := new(mocks.Tracker)
		tracker.On("FindSimilar", mock.Anything, mock.Anything, 2).Return(nil, nil)

		analysis := newAnalyzer(tracker).Analyze(context.Background(), cleanFingerprint())

		assert.Empty(t, analysis.Anomalies)
		assert.Zero(t, analysis.RiskScore)
		assert.InDelta(t, 1.0, analysis.Confidence, 0.001)
	})

	t.Run("detects headless browser", func(t *testing.T) {
		tracker := new(mocks.Tracker)
		tracker.On("FindSimilar", mock.Anything, mock.Anything, 2).Return(nil, nil)

		fp := cleanFingerprint()
		fp.UserAgent = "Mozilla/5.0 HeadlessChrome/120.0"
		fp.Attributes[fingerprint.AttrUserAgent] = fp.UserAgent

		analysis := newAnalyzer(tracker).Analyze(context.Background(), fp)

		assert.Contains(t, analysis.Anomalies, "Headless browser detected")
		assert.Equal(t, 30, analysis.RiskScore)
	})

	t.Run("detects minimal fingerprint only with client data", func(t *testing.T) {
		tracker := new(mocks.Tracker)
		tracker.On("FindSimilar", mock.Anything, mock.Anything, 2).Return(nil, nil)

		fp := cleanFingerprint()
		delete(fp.Attributes, fingerprint.AttrPlugins)
		delete(fp.Attributes, fingerprint.AttrFonts)

		analysis := newAnalyzer(tracker).Analyze(context.Background(), fp)
		assert.Contains(t, analysis.Anomalies, "Minimal browser fingerprint")

		fp.HasClientData = false
		analysis = newAnalyzer(tracker).Analyze(context.Background(), fp)
		assert.NotContains(t, analysis.Anomalies, "Minimal browser fingerprint")
	})

	t.Run("detects disabled cookies and device mismatch", func(t *testing.T) {
		tracker := new(mocks.Tracker)
		tracker.On("FindSimilar", mock.Anything, mock.Anything, 2).Return(nil, nil)

		fp := cleanFingerprint()
		fp.Attributes[fingerprint.AttrCookiesEnabled] = "false"
		fp.Attributes[fingerprint.AttrUserAgent] = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0) Mobile"
		fp.Attributes[fingerprint.AttrTouchSupport] = "false"

		analysis := newAnalyzer(tracker).Analyze(context.Background(), fp)

		assert.Contains(t, analysis.Anomalies, "Cookies disabled")
		assert.Contains(t, analysis.Anomalies, "Device type mismatch")
		assert.Equal(t, 10+15, analysis.RiskScore)
	})

	t.Run("similar matches add risk and reduce confidence", func(t *testing.T) {
		tracker := new(mocks.Tracker)
		similar := []*fingerprint.Fingerprint{
			{Hash: "hash-2"}, {Hash: "hash-3"},
		}
		tracker.On("FindSimilar", mock.Anything, mock.Anything, 2).Return(similar, nil)

		analysis := newAnalyzer(tracker).Analyze(context.Background(), cleanFingerprint())

		assert.Equal(t, 2, analysis.SimilarCount)
		assert.Equal(t, 10, analysis.RiskScore)
		assert.InDelta(t, 0.9, analysis.Confidence, 0.001)
	})

	t.Run("confidence never drops below the floor", func(t *testing.T) {
		tracker := new(mocks.Tracker)
		var crowd []*fingerprint.Fingerprint
		for i := 0; i < 30; i++ {
			crowd = append(crowd, &fingerprint.Fingerprint{Hash: "other"})
		}
		tracker.On("FindSimilar", mock.Anything, mock.Anything, 2).Return(crowd, nil)

		fp := cleanFingerprint()
		fp.UserAgent = "puppeteer"
		fp.Attributes[fingerprint.AttrUserAgent] = "puppeteer"

		analysis := newAnalyzer(tracker).Analyze(context.Background(), fp)
		assert.InDelta(t, 0.1, analysis.Confidence, 0.001)
	})

	t.Run("tracker failure is advisory", func(t *testing.T) {
		tracker := new(mocks.Tracker)
		tracker.On("FindSimilar", mock.Anything, mock.Anything, 2).
			Return(nil, assert.AnError)

		analysis := newAnalyzer(tracker).Analyze(context.Background(), cleanFingerprint())
		assert.Zero(t, analysis.SimilarCount)
		assert.Empty(t, analysis.Anomalies)
	})
}
