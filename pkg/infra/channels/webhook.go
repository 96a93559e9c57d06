package channels

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/mitchellh/mapstructure"

	"github.com/pranaysuyash/metaextract-sub011/pkg/domain/alert"
	"github.com/pranaysuyash/metaextract-sub011/pkg/infra/httpx"
)

const WebhookChannelName = "webhook"

type WebhookConfig struct {
	URL     string            `mapstructure:"url"`
	Headers map[string]string `mapstructure:"headers"`
}

// WebhookChannel posts the alert as JSON to a configured endpoint.
type WebhookChannel struct {
	cfg    WebhookConfig
	client httpx.Client
}

func NewWebhookChannel(settings map[string]interface{}, client httpx.Client) (*WebhookChannel, error) {
	var conf WebhookConfig
	if err := mapstructure.Decode(settings, &conf); err != nil {
		return nil, fmt.Errorf("invalid webhook config: %w", err)
	}
	if conf.URL == "" {
		return nil, errors.New("webhook url is required")
	}
	return &WebhookChannel{cfg: conf, client: client}, nil
}

func (c *WebhookChannel) Name() string {
	return WebhookChannelName
}

func (c *WebhookChannel) Send(ctx context.Context, a *alert.Alert) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for key, value := range c.cfg.Headers {
		req.Header.Set(key, value)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
