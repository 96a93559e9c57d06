package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pranaysuyash/metaextract-sub011/pkg/app/threatintel"
	"github.com/pranaysuyash/metaextract-sub011/pkg/cache"
	"github.com/pranaysuyash/metaextract-sub011/pkg/domain/securityevent"
	"github.com/pranaysuyash/metaextract-sub011/pkg/infra/providers"
)

type noopRecorder struct{}

func (noopRecorder) Record(*securityevent.SecurityEvent) {}

type staticProvider struct {
	score int
}

func (staticProvider) Name() string { return "static" }

func (p staticProvider) Check(context.Context, string) (*providers.Report, error) {
	return &providers.Report{Provider: "static", Score: p.score, TTL: time.Hour}, nil
}

func newTestAggregator(score int) *threatintel.Aggregator {
	client, mock := redismock.NewClientMock()
	mock.MatchExpectationsInOrder(false)
	return threatintel.NewAggregator(
		[]threatintel.WeightedProvider{
			{Provider: staticProvider{score: score}, Weight: 1.0, Timeout: time.Second},
		},
		nil,
		cache.NewCacheWithClient(client),
		threatintel.Bonuses{TorExit: 15, VPNProxy: 10},
		threatintel.NewMetrics(100),
		noopRecorder{},
		nil,
		logrus.New(),
	)
}

func TestCheckThreatHandler(t *testing.T) {
	handler := NewCheckThreatHandler(logrus.New(), newTestAggregator(55))

	app := fiber.New()
	app.Get("/api/v1/threat/check/:ip", handler.Handle)

	t.Run("returns the aggregated verdict", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/threat/check/203.0.113.10", nil)
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)

		var result threatintel.Result
		require.NoError(t, json.Unmarshal(body, &result))
		assert.Equal(t, "203.0.113.10", result.IP)
		assert.Equal(t, 55, result.Score)
		assert.Equal(t, []string{"static"}, result.Sources)
	})

	t.Run("rejects invalid addresses", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/threat/check/not-an-ip", nil)
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, 400, resp.StatusCode)
	})
}
