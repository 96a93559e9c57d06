package http

import "github.com/gofiber/fiber/v2"

type Handler interface {
	Handle(c *fiber.Ctx) error
}

type HandlerTransport struct {
	EvaluateHandler        Handler
	CheckThreatHandler     Handler
	ReportThreatHandler    Handler
	ThreatMetricsHandler   Handler
	ListEventsHandler      Handler
	EventsAnalyticsHandler Handler
	ListAlertsHandler      Handler
}
