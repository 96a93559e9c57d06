package anomaly

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pranaysuyash/metaextract-sub011/pkg/cache"
	"github.com/pranaysuyash/metaextract-sub011/pkg/domain/securityevent"
	"github.com/pranaysuyash/metaextract-sub011/pkg/types"
)

type recorderStub struct {
	mu     sync.Mutex
	events []*securityevent.SecurityEvent
}

func (r *recorderStub) Record(event *securityevent.SecurityEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorderStub) recorded() []*securityevent.SecurityEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events
}

func newDetector(client *cache.Cache, recorder *recorderStub) *Detector {
	return NewDetector(
		NewHistory(client, 500),
		testExtractor(),
		NewRuleScorer(0.7),
		nil,
		24*time.Hour,
		recorder,
		logrus.New(),
	)
}

func TestDetector_BenignRequest(t *testing.T) {
	client, mock := redismock.NewClientMock()
	mock.MatchExpectationsInOrder(false)
	recorder := &recorderStub{}
	detector := newDetector(cache.NewCacheWithClient(client), recorder)

	mock.ExpectLRange("behavior:ip:203.0.113.10", 0, 499).SetVal(nil)

	req := &types.RequestContext{
		IP:        "203.0.113.10",
		Timestamp: time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC),
	}
	detection := detector.DetectUploadAnomaly(context.Background(), req, "device-1", "hash-1")

	assert.False(t, detection.Anomalous)
	assert.Less(t, detection.Score, detection.Threshold)
	assert.Empty(t, recorder.recorded())
}

func TestDetector_AnomalousBurst(t *testing.T) {
	client, mock := redismock.NewClientMock()
	mock.MatchExpectationsInOrder(false)
	recorder := &recorderStub{}
	detector := newDetector(cache.NewCacheWithClient(client), recorder)

	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	var raw []string
	countries := []string{"DE", "US", "BR", "SG", "JP"}
	for i := 0; i < 40; i++ {
		record := Record{
			Timestamp:       now.Add(-time.Duration(i) * time.Second),
			IP:              fmt.Sprintf("203.0.113.%d", i),
			DeviceID:        fmt.Sprintf("device-%d", i),
			FingerprintHash: fmt.Sprintf("hash-%d", i),
			GeoCountry:      countries[i%len(countries)],
		}
		data, err := json.Marshal(record)
		require.NoError(t, err)
		raw = append(raw, string(data))
	}
	mock.ExpectLRange("behavior:ip:203.0.113.200", 0, 499).SetVal(raw)

	req := &types.RequestContext{IP: "203.0.113.200", Timestamp: now}
	req.Headers = map[string][]string{"CF-IPCountry": {"AU"}}

	detection := detector.DetectUploadAnomaly(context.Background(), req, "device-x", "hash-x")

	assert.True(t, detection.Anomalous)
	assert.GreaterOrEqual(t, detection.Score, detection.Threshold)
	assert.Equal(t, int(math.Round(detection.Score*100)), detection.RiskScore)
	assert.Equal(t, types.LevelForScore(detection.RiskScore), detection.RiskLevel)
	assert.NotEmpty(t, detection.ContributingFactors)
	assert.NotEmpty(t, detection.Recommendations)

	events := recorder.recorded()
	require.Len(t, events, 1)
	assert.Equal(t, securityevent.TypeAnomalyDetected, events[0].Type)
}

func TestDetector_FallbackRule(t *testing.T) {
	t.Run("anonymous internal off-hours request is anomalous", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		recorder := &recorderStub{}
		detector := newDetector(cache.NewCacheWithClient(client), recorder)

		mock.ExpectLRange("behavior:ip:10.0.0.5", 0, 499).SetErr(assert.AnError)

		req := &types.RequestContext{
			IP:        "10.0.0.5",
			Timestamp: time.Date(2026, 8, 25, 23, 30, 0, 0, time.UTC),
		}
		detection := detector.DetectUploadAnomaly(context.Background(), req, "", "")

		assert.True(t, detection.Anomalous)
		assert.NotEmpty(t, detection.ContributingFactors)
		assert.Len(t, recorder.recorded(), 1)
	})

	t.Run("authenticated public request passes", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		recorder := &recorderStub{}
		detector := newDetector(cache.NewCacheWithClient(client), recorder)

		mock.ExpectLRange("behavior:user:alice", 0, 499).SetErr(assert.AnError)

		req := &types.RequestContext{
			IP:        "203.0.113.10",
			UserID:    "alice",
			Timestamp: time.Date(2026, 8, 25, 23, 30, 0, 0, time.UTC),
		}
		detection := detector.DetectUploadAnomaly(context.Background(), req, "", "")

		assert.False(t, detection.Anomalous)
		assert.Empty(t, recorder.recorded())
	})
}
