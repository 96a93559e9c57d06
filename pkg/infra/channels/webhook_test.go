package channels

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pranaysuyash/metaextract-sub011/pkg/domain/alert"
	"github.com/pranaysuyash/metaextract-sub011/pkg/infra/httpx/mocks"
)

func response(status int) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewReader(nil)),
	}
}

func TestNewWebhookChannel(t *testing.T) {
	t.Run("requires a url", func(t *testing.T) {
		_, err := NewWebhookChannel(map[string]interface{}{}, new(mocks.MockHTTPClient))
		assert.Error(t, err)
	})

	t.Run("decodes settings", func(t *testing.T) {
		channel, err := NewWebhookChannel(map[string]interface{}{
			"url":     "https://hooks.example.com/alerts",
			"headers": map[string]string{"Authorization": "Bearer token"},
		}, new(mocks.MockHTTPClient))
		require.NoError(t, err)
		assert.Equal(t, WebhookChannelName, channel.Name())
	})
}

func TestWebhookChannel_Send(t *testing.T) {
	settings := map[string]interface{}{
		"url":     "https://hooks.example.com/alerts",
		"headers": map[string]string{"X-Token": "secret"},
	}
	a := &alert.Alert{
		ID:       "a-1",
		Type:     alert.TypeHighRiskIP,
		Severity: alert.SeverityCritical,
		Source:   "engine",
		Message:  "critical decision for 203.0.113.10",
	}

	t.Run("posts the alert as json", func(t *testing.T) {
		client := new(mocks.MockHTTPClient)
		client.On("Do", mock.MatchedBy(func(req *http.Request) bool {
			if req.Method != http.MethodPost || req.URL.String() != "https://hooks.example.com/alerts" {
				return false
			}
			if req.Header.Get("Content-Type") != "application/json" || req.Header.Get("X-Token") != "secret" {
				return false
			}
			body, err := io.ReadAll(req.Body)
			if err != nil {
				return false
			}
			var decoded alert.Alert
			return json.Unmarshal(body, &decoded) == nil && decoded.ID == "a-1"
		})).Return(response(http.StatusOK), nil)

		channel, err := NewWebhookChannel(settings, client)
		require.NoError(t, err)

		assert.NoError(t, channel.Send(context.Background(), a))
		client.AssertExpectations(t)
	})

	t.Run("non-2xx status is an error", func(t *testing.T) {
		client := new(mocks.MockHTTPClient)
		client.On("Do", mock.Anything).Return(response(http.StatusBadGateway), nil)

		channel, err := NewWebhookChannel(settings, client)
		require.NoError(t, err)

		err = channel.Send(context.Background(), a)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "502")
	})

	t.Run("transport errors propagate", func(t *testing.T) {
		client := new(mocks.MockHTTPClient)
		client.On("Do", mock.Anything).Return(nil, assert.AnError)

		channel, err := NewWebhookChannel(settings, client)
		require.NoError(t, err)

		assert.Error(t, channel.Send(context.Background(), a))
	})
}
