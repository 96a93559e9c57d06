package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/pranaysuyash/metaextract-sub011/pkg/app/engine"
	"github.com/pranaysuyash/metaextract-sub011/pkg/types"
)

type evaluateRequest struct {
	IP               string                 `json:"ip"`
	UserID           string                 `json:"user_id"`
	SessionID        string                 `json:"session_id"`
	FileSize         int64                  `json:"file_size"`
	FileType         string                 `json:"file_type"`
	Headers          map[string][]string    `json:"headers"`
	ClientAttributes map[string]interface{} `json:"client_attributes"`
}

type evaluateHandler struct {
	logger    *logrus.Logger
	evaluator *engine.Evaluator
}

func NewEvaluateHandler(logger *logrus.Logger, evaluator *engine.Evaluator) Handler {
	return &evaluateHandler{logger: logger, evaluator: evaluator}
}

// Handle scores one request context. The caller may describe a request it is
// proxying (body fields) or let the engine observe the calling request
// itself (empty body).
func (h *evaluateHandler) Handle(c *fiber.Ctx) error {
	var req evaluateRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
	}

	reqCtx := &types.RequestContext{
		IP:               req.IP,
		Headers:          req.Headers,
		UserID:           req.UserID,
		SessionID:        req.SessionID,
		FileSize:         req.FileSize,
		FileType:         req.FileType,
		Timestamp:        time.Now(),
		ClientAttributes: req.ClientAttributes,
	}
	if reqCtx.IP == "" {
		reqCtx.IP = c.IP()
	}
	if reqCtx.Headers == nil {
		reqCtx.Headers = make(map[string][]string)
		c.Request().Header.VisitAll(func(key, value []byte) {
			name := string(key)
			reqCtx.Headers[name] = append(reqCtx.Headers[name], string(value))
		})
	}

	evaluation := h.evaluator.Evaluate(c.Context(), reqCtx)

	h.logger.WithFields(logrus.Fields{
		"ip":         reqCtx.IP,
		"action":     evaluation.Decision.Action,
		"risk_level": evaluation.Decision.RiskLevel,
		"risk_score": evaluation.Decision.RiskScore,
	}).Info("request evaluated")

	return c.Status(fiber.StatusOK).JSON(evaluation)
}
