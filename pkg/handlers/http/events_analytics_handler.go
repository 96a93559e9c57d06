package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/pranaysuyash/metaextract-sub011/pkg/app/events"
)

type eventsAnalyticsHandler struct {
	logger   *logrus.Logger
	pipeline *events.Pipeline
}

func NewEventsAnalyticsHandler(logger *logrus.Logger, pipeline *events.Pipeline) Handler {
	return &eventsAnalyticsHandler{logger: logger, pipeline: pipeline}
}

func (h *eventsAnalyticsHandler) Handle(c *fiber.Ctx) error {
	hours := c.QueryInt("hours", 24)
	if hours <= 0 || hours > 24*30 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "hours must be between 1 and 720"})
	}

	analytics, err := h.pipeline.Analytics(c.Context(), time.Now().Add(-time.Duration(hours)*time.Hour))
	if err != nil {
		h.logger.WithError(err).Error("event analytics failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "event analytics failed"})
	}

	return c.Status(fiber.StatusOK).JSON(analytics)
}
