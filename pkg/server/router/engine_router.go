package router

import (
	"github.com/gofiber/fiber/v2"

	handlers "github.com/pranaysuyash/metaextract-sub011/pkg/handlers/http"
)

type engineRouter struct {
	handlerTransport handlers.HandlerTransport
}

func NewEngineRouter(handlerTransport handlers.HandlerTransport) ServerRouter {
	return &engineRouter{handlerTransport: handlerTransport}
}

func (r *engineRouter) BuildRoutes(router *fiber.App) error {
	v1 := router.Group("/api/v1")
	{
		v1.Post("/evaluate", r.handlerTransport.EvaluateHandler.Handle)

		threat := v1.Group("/threat")
		{
			threat.Get("/check/:ip", r.handlerTransport.CheckThreatHandler.Handle)
			threat.Post("/report", r.handlerTransport.ReportThreatHandler.Handle)
			threat.Get("/metrics", r.handlerTransport.ThreatMetricsHandler.Handle)
		}

		events := v1.Group("/events")
		{
			events.Get("", r.handlerTransport.ListEventsHandler.Handle)
			events.Get("/analytics", r.handlerTransport.EventsAnalyticsHandler.Handle)
		}

		v1.Get("/alerts", r.handlerTransport.ListAlertsHandler.Handle)
	}
	return nil
}
