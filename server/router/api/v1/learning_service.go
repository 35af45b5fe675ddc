package v1

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	coreerrors "github.com/hrygo/focusmind/internal/errors"
	"github.com/hrygo/focusmind/plugin/ai/memory"
)

// MemoryResponse carries both memory aggregates.
type MemoryResponse struct {
	Memory   memory.Memory          `json:"memory"`
	Patterns memory.LearnedPatterns `json:"patterns"`
}

// GetMemory returns the long-term memory.
// GET /api/v1/memory
func (s *APIV1Service) GetMemory(c echo.Context) error {
	mem := s.Engine.Memory()
	return c.JSON(http.StatusOK, MemoryResponse{Memory: mem.Memory(), Patterns: mem.Patterns()})
}

type memoryItemRequest struct {
	Text string `json:"text"`
}

// AddMemoryItem adds a fact, goal, challenge or recent goal.
// POST /api/v1/memory/:kind
func (s *APIV1Service) AddMemoryItem(c echo.Context) error {
	var req memoryItemRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid memory item body")
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return badRequest(c, "text is required")
	}

	ctx := c.Request().Context()
	mem := s.Engine.Memory()
	var m memory.Memory
	switch c.Param("kind") {
	case "facts":
		m = mem.AddLearnedFact(ctx, text)
	case "goals":
		m = mem.AddGoal(ctx, text)
	case "challenges":
		m = mem.AddChallenge(ctx, text)
	case "recent-goals":
		m = mem.AddRecentGoal(ctx, text)
	default:
		return errorJSON(c, http.StatusNotFound, coreerrors.NotFound("unknown memory kind "+c.Param("kind")))
	}
	return c.JSON(http.StatusOK, m)
}

// ResetMemory deletes both memory blobs.
// DELETE /api/v1/memory
func (s *APIV1Service) ResetMemory(c echo.Context) error {
	s.Engine.Memory().Reset(c.Request().Context())
	return c.NoContent(http.StatusNoContent)
}

// GetProfile returns the learned user profile.
// GET /api/v1/profile
func (s *APIV1Service) GetProfile(c echo.Context) error {
	return c.JSON(http.StatusOK, s.Engine.Learner().Profile())
}

// AnalyzeProfile re-runs the profile analysis immediately.
// POST /api/v1/profile/analyze
func (s *APIV1Service) AnalyzeProfile(c echo.Context) error {
	p, err := s.Engine.Learner().RunOnce(c.Request().Context(), s.Engine.Sources().Sessions)
	if err != nil {
		return errorJSON(c, http.StatusServiceUnavailable, coreerrors.Wrap(err, coreerrors.ErrCodeSourceUnavailable, "session source unavailable"))
	}
	return c.JSON(http.StatusOK, p)
}
