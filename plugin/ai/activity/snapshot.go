package activity

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const dayLayout = "2006-01-02"

// Snapshot is an in-memory implementation of every source. The app (or the HTTP
// surface) pushes its data in with the Replace* methods; each mutation notifies
// the matching change stream.
type Snapshot struct {
	mu             sync.RWMutex
	sessions       []SessionRecord
	tasks          []TaskRecord
	presets        []PresetRecord
	activePresetID string
	completed      map[string]struct{}
	settings       Settings

	sessionsChanged Notifier
	tasksChanged    Notifier
	presetsChanged  Notifier
}

// NewSnapshot creates an empty snapshot with default settings.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		completed: make(map[string]struct{}),
		settings:  DefaultSettings(),
	}
}

var (
	_ SessionSource  = (*Snapshot)(nil)
	_ TaskSource     = taskStream{}
	_ PresetSource   = presetStream{}
	_ SettingsSource = (*Snapshot)(nil)
)

// Sources returns the snapshot wired as all four collaborators.
func (s *Snapshot) Sources() Sources {
	return Sources{Sessions: s, Tasks: s.TaskSource(), Presets: s.PresetSource(), Settings: s}
}

func (s *Snapshot) CurrentSessions(_ context.Context) ([]SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]SessionRecord(nil), s.sessions...), nil
}

func (s *Snapshot) CurrentTasks(_ context.Context) ([]TaskRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]TaskRecord(nil), s.tasks...), nil
}

func (s *Snapshot) IsCompleted(taskID string, day time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.completed[completionKey(taskID, day)]
	return ok
}

func (s *Snapshot) CurrentPresets(_ context.Context) ([]PresetRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]PresetRecord(nil), s.presets...), nil
}

func (s *Snapshot) ActivePresetID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activePresetID
}

func (s *Snapshot) Settings(_ context.Context) (Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings, nil
}

// Subscribe registers fn for session changes. Use TaskSource and PresetSource
// for the other two streams.
func (s *Snapshot) Subscribe(fn func()) func() {
	return s.sessionsChanged.Subscribe(fn)
}

// taskStream and presetStream let the three Subscribe methods coexist on one type.
type taskStream struct{ *Snapshot }
type presetStream struct{ *Snapshot }

func (t taskStream) Subscribe(fn func()) func() { return t.tasksChanged.Subscribe(fn) }
func (p presetStream) Subscribe(fn func()) func() { return p.presetsChanged.Subscribe(fn) }

// TaskSource returns the snapshot as a TaskSource whose Subscribe follows task changes.
func (s *Snapshot) TaskSource() TaskSource { return taskStream{s} }

// PresetSource returns the snapshot as a PresetSource whose Subscribe follows preset changes.
func (s *Snapshot) PresetSource() PresetSource { return presetStream{s} }

// ReplaceSessions swaps the session history.
func (s *Snapshot) ReplaceSessions(sessions []SessionRecord) {
	s.mu.Lock()
	s.sessions = append([]SessionRecord(nil), sessions...)
	s.mu.Unlock()
	s.sessionsChanged.Notify()
}

// AddSession appends one completed session.
func (s *Snapshot) AddSession(session SessionRecord) {
	s.mu.Lock()
	s.sessions = append(s.sessions, session)
	s.mu.Unlock()
	s.sessionsChanged.Notify()
}

// ReplaceTasks swaps the task list.
func (s *Snapshot) ReplaceTasks(tasks []TaskRecord) {
	s.mu.Lock()
	s.tasks = append([]TaskRecord(nil), tasks...)
	s.mu.Unlock()
	s.tasksChanged.Notify()
}

// SetCompletion marks or unmarks a task as completed on day.
func (s *Snapshot) SetCompletion(taskID string, day time.Time, done bool) {
	s.mu.Lock()
	key := completionKey(taskID, day)
	if done {
		s.completed[key] = struct{}{}
	} else {
		delete(s.completed, key)
	}
	s.mu.Unlock()
	s.tasksChanged.Notify()
}

// ReplacePresets swaps the presets and the active preset id.
func (s *Snapshot) ReplacePresets(presets []PresetRecord, activeID string) {
	s.mu.Lock()
	s.presets = append([]PresetRecord(nil), presets...)
	s.activePresetID = activeID
	s.mu.Unlock()
	s.presetsChanged.Notify()
}

// SetSettings swaps the settings. Settings have no change stream; the full tier TTL covers them.
func (s *Snapshot) SetSettings(settings Settings) {
	s.mu.Lock()
	s.settings = settings
	s.mu.Unlock()
}

func completionKey(taskID string, day time.Time) string {
	return taskID + "@" + Day(day).Format(dayLayout)
}

// Completion marks a task done on a calendar day (YYYY-MM-DD, local time).
type Completion struct {
	TaskID string `json:"task_id" yaml:"task_id"`
	Day    string `json:"day" yaml:"day"`
}

// SnapshotFile is the on-disk form of a Snapshot.
type SnapshotFile struct {
	Sessions       []SessionRecord `json:"sessions" yaml:"sessions"`
	Tasks          []TaskRecord    `json:"tasks" yaml:"tasks"`
	Presets        []PresetRecord  `json:"presets" yaml:"presets"`
	ActivePresetID string          `json:"active_preset_id" yaml:"active_preset_id"`
	Completions    []Completion    `json:"completions" yaml:"completions"`
	Settings       *Settings       `json:"settings" yaml:"settings"`
}

// LoadSnapshotFile reads a .json, .yaml or .yml snapshot file.
func LoadSnapshotFile(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read snapshot %s", path)
	}

	var f SnapshotFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &f)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &f)
	default:
		return nil, errors.Errorf("unsupported snapshot format %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode snapshot %s", path)
	}
	return f.Build()
}

// Build turns the file form into a live Snapshot.
func (f *SnapshotFile) Build() (*Snapshot, error) {
	s := NewSnapshot()
	s.sessions = append(s.sessions, f.Sessions...)
	s.tasks = append(s.tasks, f.Tasks...)
	s.presets = append(s.presets, f.Presets...)
	s.activePresetID = f.ActivePresetID
	if f.Settings != nil {
		s.settings = *f.Settings
	}
	for _, c := range f.Completions {
		day, err := time.ParseInLocation(dayLayout, c.Day, time.Local)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid completion day %q for task %s", c.Day, c.TaskID)
		}
		s.completed[completionKey(c.TaskID, day)] = struct{}{}
	}
	return s, nil
}
