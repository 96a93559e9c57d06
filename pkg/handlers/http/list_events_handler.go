package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/pranaysuyash/metaextract-sub011/pkg/app/events"
	"github.com/pranaysuyash/metaextract-sub011/pkg/domain/securityevent"
)

type listEventsHandler struct {
	logger   *logrus.Logger
	pipeline *events.Pipeline
}

func NewListEventsHandler(logger *logrus.Logger, pipeline *events.Pipeline) Handler {
	return &listEventsHandler{logger: logger, pipeline: pipeline}
}

func (h *listEventsHandler) Handle(c *fiber.Ctx) error {
	filter := securityevent.Filter{
		Type:     c.Query("type"),
		Severity: c.Query("severity"),
		IP:       c.Query("ip"),
		UserID:   c.Query("user_id"),
		Limit:    c.QueryInt("limit"),
		Offset:   c.QueryInt("offset"),
	}
	if from := c.Query("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid from timestamp"})
		}
		filter.From = t
	}
	if to := c.Query("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid to timestamp"})
		}
		filter.To = t
	}

	items, total, err := h.pipeline.Query(c.Context(), filter)
	if err != nil {
		h.logger.WithError(err).Error("event query failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "event query failed"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"events": items,
		"total":  total,
	})
}
