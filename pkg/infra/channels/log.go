package channels

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/pranaysuyash/metaextract-sub011/pkg/domain/alert"
)

const LogChannelName = "log"

// LogChannel writes alerts to the structured log. It is the fallback channel
// and cannot fail.
type LogChannel struct {
	logger *logrus.Logger
}

func NewLogChannel(logger *logrus.Logger) *LogChannel {
	return &LogChannel{logger: logger}
}

func (c *LogChannel) Name() string {
	return LogChannelName
}

func (c *LogChannel) Send(_ context.Context, a *alert.Alert) error {
	entry := c.logger.WithFields(logrus.Fields{
		"alert_id": a.ID,
		"type":     a.Type,
		"severity": a.Severity,
		"source":   a.Source,
	})
	if a.Severity == alert.SeverityCritical {
		entry.Error(a.Message)
	} else {
		entry.Warn(a.Message)
	}
	return nil
}
