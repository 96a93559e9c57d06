package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/pranaysuyash/metaextract-sub011/pkg/app/threatintel"
)

type threatMetricsHandler struct {
	metrics *threatintel.Metrics
}

func NewThreatMetricsHandler(metrics *threatintel.Metrics) Handler {
	return &threatMetricsHandler{metrics: metrics}
}

func (h *threatMetricsHandler) Handle(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(h.metrics.Snapshot())
}
