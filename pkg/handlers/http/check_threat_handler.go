package http

import (
	"net"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/pranaysuyash/metaextract-sub011/pkg/app/threatintel"
)

type checkThreatHandler struct {
	logger     *logrus.Logger
	aggregator *threatintel.Aggregator
}

func NewCheckThreatHandler(logger *logrus.Logger, aggregator *threatintel.Aggregator) Handler {
	return &checkThreatHandler{logger: logger, aggregator: aggregator}
}

func (h *checkThreatHandler) Handle(c *fiber.Ctx) error {
	ip := c.Params("ip")
	if net.ParseIP(ip) == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid ip address"})
	}

	result, err := h.aggregator.Check(c.Context(), ip)
	if err != nil {
		h.logger.WithError(err).WithField("ip", ip).Error("threat check failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "threat check failed"})
	}

	return c.Status(fiber.StatusOK).JSON(result)
}
