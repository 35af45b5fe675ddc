package activity

import (
	"context"
	"time"

	coreerrors "github.com/hrygo/focusmind/internal/errors"
)

// Data is a point-in-time copy of everything the sources expose.
type Data struct {
	Sessions       []SessionRecord
	Tasks          []TaskRecord
	Presets        []PresetRecord
	ActivePresetID string
	Settings       Settings
	Completed      func(taskID string, day time.Time) bool
}

// Collect reads every configured source. A failing or missing source leaves its
// fields empty; the failures are returned alongside the best available data.
func Collect(ctx context.Context, src Sources) (Data, []error) {
	d := Data{
		Settings:  DefaultSettings(),
		Completed: func(string, time.Time) bool { return false },
	}
	var errs []error

	if src.Sessions != nil {
		sessions, err := src.Sessions.CurrentSessions(ctx)
		if err != nil {
			errs = append(errs, coreerrors.SourceUnavailable("sessions", err))
		} else {
			d.Sessions = sessions
		}
	}
	if src.Tasks != nil {
		tasks, err := src.Tasks.CurrentTasks(ctx)
		if err != nil {
			errs = append(errs, coreerrors.SourceUnavailable("tasks", err))
		} else {
			d.Tasks = tasks
			d.Completed = src.Tasks.IsCompleted
		}
	}
	if src.Presets != nil {
		presets, err := src.Presets.CurrentPresets(ctx)
		if err != nil {
			errs = append(errs, coreerrors.SourceUnavailable("presets", err))
		} else {
			d.Presets = presets
			d.ActivePresetID = src.Presets.ActivePresetID()
		}
	}
	if src.Settings != nil {
		settings, err := src.Settings.Settings(ctx)
		if err != nil {
			errs = append(errs, coreerrors.SourceUnavailable("settings", err))
		} else {
			d.Settings = settings
		}
	}
	return d, errs
}
