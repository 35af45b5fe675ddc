package v1

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	coreerrors "github.com/hrygo/focusmind/internal/errors"
	"github.com/hrygo/focusmind/plugin/ai/activity"
	"github.com/hrygo/focusmind/plugin/ai/cache"
)

const dayLayout = "2006-01-02"

// snapshot returns the push target or writes a 404 when pushing is disabled.
func (s *APIV1Service) snapshot(c echo.Context) (*activity.Snapshot, error) {
	if s.Snapshot == nil {
		return nil, errorJSON(c, http.StatusNotFound, coreerrors.NotFound("snapshot push is disabled"))
	}
	return s.Snapshot, nil
}

// ReplaceSessions replaces the session history.
// PUT /api/v1/snapshot/sessions
func (s *APIV1Service) ReplaceSessions(c echo.Context) error {
	snap, err := s.snapshot(c)
	if snap == nil {
		return err
	}
	var sessions []activity.SessionRecord
	if err := c.Bind(&sessions); err != nil {
		return badRequest(c, "invalid sessions body")
	}
	snap.ReplaceSessions(sessions)
	return c.NoContent(http.StatusNoContent)
}

// AddSession appends one completed session.
// POST /api/v1/snapshot/sessions
func (s *APIV1Service) AddSession(c echo.Context) error {
	snap, err := s.snapshot(c)
	if snap == nil {
		return err
	}
	var session activity.SessionRecord
	if err := c.Bind(&session); err != nil {
		return badRequest(c, "invalid session body")
	}
	if session.DurationSeconds < 0 {
		return badRequest(c, "duration_seconds must be >= 0")
	}
	if session.Date.IsZero() {
		session.Date = s.now()
	}
	snap.AddSession(session)
	return c.NoContent(http.StatusNoContent)
}

// ReplaceTasks replaces the task list.
// PUT /api/v1/snapshot/tasks
func (s *APIV1Service) ReplaceTasks(c echo.Context) error {
	snap, err := s.snapshot(c)
	if snap == nil {
		return err
	}
	var tasks []activity.TaskRecord
	if err := c.Bind(&tasks); err != nil {
		return badRequest(c, "invalid tasks body")
	}
	snap.ReplaceTasks(tasks)
	return c.NoContent(http.StatusNoContent)
}

type completionRequest struct {
	TaskID string `json:"task_id"`
	Day    string `json:"day"`
	Done   *bool  `json:"done"`
}

// SetCompletion marks a task done or not done on a day (today by default).
// POST /api/v1/snapshot/completions
func (s *APIV1Service) SetCompletion(c echo.Context) error {
	snap, err := s.snapshot(c)
	if snap == nil {
		return err
	}
	var req completionRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid completion body")
	}
	if req.TaskID == "" {
		return badRequest(c, "task_id is required")
	}
	day := s.now()
	if req.Day != "" {
		day, err = time.ParseInLocation(dayLayout, req.Day, time.Local)
		if err != nil {
			return badRequest(c, "day must be YYYY-MM-DD")
		}
	}
	done := true
	if req.Done != nil {
		done = *req.Done
	}
	snap.SetCompletion(req.TaskID, day, done)
	return c.NoContent(http.StatusNoContent)
}

type presetsRequest struct {
	Presets        []activity.PresetRecord `json:"presets"`
	ActivePresetID string                  `json:"active_preset_id"`
}

// ReplacePresets replaces the timer presets.
// PUT /api/v1/snapshot/presets
func (s *APIV1Service) ReplacePresets(c echo.Context) error {
	snap, err := s.snapshot(c)
	if snap == nil {
		return err
	}
	var req presetsRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid presets body")
	}
	snap.ReplacePresets(req.Presets, req.ActivePresetID)
	return c.NoContent(http.StatusNoContent)
}

// SetSettings replaces the settings. Settings have no change stream, so the
// progress tier (daily goal) and full tier (focus state) are dropped here.
// PUT /api/v1/snapshot/settings
func (s *APIV1Service) SetSettings(c echo.Context) error {
	snap, err := s.snapshot(c)
	if snap == nil {
		return err
	}
	settings := activity.DefaultSettings()
	if err := c.Bind(&settings); err != nil {
		return badRequest(c, "invalid settings body")
	}
	if settings.DailyGoalMinutes <= 0 {
		return badRequest(c, "daily_goal_minutes must be greater than 0")
	}
	snap.SetSettings(settings)
	s.Engine.Invalidator().Trigger(cache.TierProgress)
	return c.NoContent(http.StatusNoContent)
}
