package channels

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/pranaysuyash/metaextract-sub011/pkg/config"
	"github.com/pranaysuyash/metaextract-sub011/pkg/domain/alert"
	"github.com/pranaysuyash/metaextract-sub011/pkg/infra/httpx"
)

// Build constructs the enabled delivery channels from configuration. The log
// channel is always present so alerts are never silently dropped.
func Build(cfgs []config.ChannelConfig, client httpx.Client, logger *logrus.Logger) ([]alert.Channel, error) {
	channels := []alert.Channel{NewLogChannel(logger)}

	for _, cfg := range cfgs {
		if !cfg.Enabled {
			continue
		}
		switch cfg.Type {
		case LogChannelName:
			// already wired
		case EmailChannelName:
			channel, err := NewEmailChannel(cfg.Settings)
			if err != nil {
				return nil, fmt.Errorf("failed to build email channel: %w", err)
			}
			channels = append(channels, channel)
		case WebhookChannelName:
			channel, err := NewWebhookChannel(cfg.Settings, client)
			if err != nil {
				return nil, fmt.Errorf("failed to build webhook channel: %w", err)
			}
			channels = append(channels, channel)
		default:
			return nil, fmt.Errorf("unknown alert channel type: %s", cfg.Type)
		}
	}
	return channels, nil
}
