package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/pranaysuyash/metaextract-sub011/pkg/app/threatintel"
)

type reportThreatRequest struct {
	IP         string   `json:"ip"`
	Categories []string `json:"categories"`
	Comment    string   `json:"comment"`
}

type reportThreatHandler struct {
	logger     *logrus.Logger
	aggregator *threatintel.Aggregator
}

func NewReportThreatHandler(logger *logrus.Logger, aggregator *threatintel.Aggregator) Handler {
	return &reportThreatHandler{logger: logger, aggregator: aggregator}
}

func (h *reportThreatHandler) Handle(c *fiber.Ctx) error {
	var req reportThreatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.IP == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "ip is required"})
	}

	if err := h.aggregator.ReportMaliciousIP(c.Context(), req.IP, req.Categories, req.Comment); err != nil {
		if errors.Is(err, threatintel.ErrInvalidIP) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid ip address"})
		}
		h.logger.WithError(err).WithField("ip", req.IP).Error("malicious ip report failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "report failed"})
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "reported"})
}
