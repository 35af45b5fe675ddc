package v1

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/focusmind/plugin/ai/memory"
)

// ContextResponse carries the assembled system prompt context.
type ContextResponse struct {
	Context string `json:"context"`
	Tokens  int    `json:"tokens"`
}

// GetContext returns the full context.
// GET /api/v1/context
func (s *APIV1Service) GetContext(c echo.Context) error {
	res := s.Engine.Assembler().Build(c.Request().Context())
	return c.JSON(http.StatusOK, ContextResponse{Context: res.Context, Tokens: res.TotalTokens})
}

// GetReport returns a fresh intelligence report.
// GET /api/v1/report
func (s *APIV1Service) GetReport(c echo.Context) error {
	return c.JSON(http.StatusOK, s.Engine.Assembler().GenerateIntelligenceReport(c.Request().Context()))
}

// InvalidateCache drops every cached tier.
// POST /api/v1/cache/invalidate
func (s *APIV1Service) InvalidateCache(c echo.Context) error {
	s.Engine.Assembler().InvalidateCache()
	return c.NoContent(http.StatusNoContent)
}

type feedbackRequest struct {
	Positive *bool `json:"positive"`
}

// RecordFeedback counts explicit feedback.
// POST /api/v1/feedback
func (s *APIV1Service) RecordFeedback(c echo.Context) error {
	var req feedbackRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid feedback body")
	}
	if req.Positive == nil {
		return badRequest(c, "positive is required")
	}
	s.Engine.Assembler().RecordFeedback(c.Request().Context(), *req.Positive)
	return c.NoContent(http.StatusNoContent)
}

type actionRequest struct {
	Action          string `json:"action"`
	DurationMinutes int    `json:"duration_minutes"`
	TaskType        string `json:"task_type"`
}

// LearnFromAction records a user action at the current hour.
// POST /api/v1/actions
func (s *APIV1Service) LearnFromAction(c echo.Context) error {
	var req actionRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid action body")
	}
	req.Action = strings.TrimSpace(req.Action)
	if req.Action == "" {
		return badRequest(c, "action is required")
	}
	if req.DurationMinutes < 0 {
		return badRequest(c, "duration_minutes must be >= 0")
	}
	s.Engine.Assembler().LearnFromAction(c.Request().Context(), req.Action, memory.ActionContext{
		Hour:            s.now().Hour(),
		DurationMinutes: req.DurationMinutes,
		TaskType:        req.TaskType,
	})
	return c.NoContent(http.StatusNoContent)
}

type conversationRequest struct {
	Intent       string   `json:"intent"`
	Actions      []string `json:"actions"`
	Satisfaction *bool    `json:"satisfaction"`
}

// RecordConversation stores the outcome of a finished conversation.
// POST /api/v1/conversations
func (s *APIV1Service) RecordConversation(c echo.Context) error {
	var req conversationRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid conversation body")
	}
	s.Engine.Assembler().RecordConversationOutcome(c.Request().Context(), strings.TrimSpace(req.Intent), req.Actions, req.Satisfaction)
	return c.NoContent(http.StatusNoContent)
}
