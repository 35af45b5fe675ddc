package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/focusmind/internal/observability"
	aicontext "github.com/hrygo/focusmind/plugin/ai/context"
)

// StatsResponse represents the engine counters.
type StatsResponse struct {
	Context *aicontext.ContextStats                `json:"context"`
	Metrics *observability.MetricsSnapshot         `json:"metrics"`
	Tiers   map[string]observability.TierSnapshot `json:"tiers"`
	HitRate map[string]float64                    `json:"hit_rate"`
}

// GetStats returns context build statistics and per-tier cache counters.
// GET /api/v1/stats
func (s *APIV1Service) GetStats(c echo.Context) error {
	assembler := s.Engine.Assembler()
	tiers := assembler.Cache().Stats()

	resp := StatsResponse{
		Context: assembler.GetStats(),
		Metrics: s.Engine.Metrics().Snapshot(),
		Tiers:   make(map[string]observability.TierSnapshot, len(tiers)),
		HitRate: make(map[string]float64, len(tiers)),
	}
	for tier, snap := range tiers {
		resp.Tiers[string(tier)] = snap
		resp.HitRate[string(tier)] = snap.HitRate()
	}
	return c.JSON(http.StatusOK, resp)
}
