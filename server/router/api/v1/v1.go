package v1

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	coreerrors "github.com/hrygo/focusmind/internal/errors"
	"github.com/hrygo/focusmind/internal/profile"
	"github.com/hrygo/focusmind/plugin/ai/activity"
	"github.com/hrygo/focusmind/plugin/ai/engine"
	"github.com/hrygo/focusmind/server/middleware"
)

// APIV1Service serves the engine over JSON.
type APIV1Service struct {
	Profile *profile.Profile
	Engine  *engine.Engine
	// Snapshot receives pushed activity data. Nil disables the /snapshot routes.
	Snapshot *activity.Snapshot

	now func() time.Time
}

// NewAPIV1Service creates the v1 service. snapshot may be nil when the engine
// reads its sources from elsewhere.
func NewAPIV1Service(profile *profile.Profile, eng *engine.Engine, snapshot *activity.Snapshot) *APIV1Service {
	return &APIV1Service{
		Profile:  profile,
		Engine:   eng,
		Snapshot: snapshot,
		now:      time.Now,
	}
}

// RegisterRoutes mounts every route under /api/v1.
func (s *APIV1Service) RegisterRoutes(e *echo.Echo, mws ...echo.MiddlewareFunc) {
	g := e.Group("/api/v1", mws...)

	g.GET("/healthz", s.Healthz)
	g.GET("/context", s.GetContext)
	g.GET("/report", s.GetReport)
	g.GET("/stats", s.GetStats)
	g.POST("/cache/invalidate", s.InvalidateCache)

	g.POST("/feedback", s.RecordFeedback)
	g.POST("/actions", s.LearnFromAction)
	g.POST("/conversations", s.RecordConversation)

	g.GET("/memory", s.GetMemory)
	g.POST("/memory/:kind", s.AddMemoryItem)
	g.DELETE("/memory", s.ResetMemory)
	g.GET("/profile", s.GetProfile)
	g.POST("/profile/analyze", s.AnalyzeProfile)

	g.PUT("/snapshot/sessions", s.ReplaceSessions)
	g.POST("/snapshot/sessions", s.AddSession)
	g.PUT("/snapshot/tasks", s.ReplaceTasks)
	g.POST("/snapshot/completions", s.SetCompletion)
	g.PUT("/snapshot/presets", s.ReplacePresets)
	g.PUT("/snapshot/settings", s.SetSettings)
}

// Healthz reports liveness.
// GET /api/v1/healthz
func (s *APIV1Service) Healthz(c echo.Context) error {
	version := ""
	if s.Profile != nil {
		version = s.Profile.Version
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok", "version": version})
}

func errorJSON(c echo.Context, status int, err *coreerrors.CoreError) error {
	return c.JSON(status, middleware.ErrorBody{Code: err.Code, Message: err.Message})
}

func badRequest(c echo.Context, msg string) error {
	return errorJSON(c, http.StatusBadRequest, coreerrors.InvalidArgument(msg))
}
