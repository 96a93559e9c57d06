package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/pranaysuyash/metaextract-sub011/pkg/app/alerts"
)

type listAlertsHandler struct {
	manager *alerts.Manager
}

func NewListAlertsHandler(manager *alerts.Manager) Handler {
	return &listAlertsHandler{manager: manager}
}

func (h *listAlertsHandler) Handle(c *fiber.Ctx) error {
	history := h.manager.History()
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"alerts": history,
		"count":  len(history),
	})
}
