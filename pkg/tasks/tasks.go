// Package tasks maps training task names to their datasets and cameras.
package tasks

import (
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

var (
	ErrUnknownTask = errors.New("unknown task")
	ErrInvalidTask = errors.New("invalid task")
)

// Task describes the data a training run is built from.
type Task struct {
	Name        string   `json:"name" toml:"-"`
	DatasetDirs []string `json:"dataset_dir" toml:"dataset_dir"`
	EpisodeLen  int      `json:"episode_len" toml:"episode_len"`
	CameraNames []string `json:"camera_names" toml:"camera_names"`
}

// Validate checks that t can be used to load data.
func (t Task) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return errors.Wrap(ErrInvalidTask, "empty name")
	}
	if len(t.DatasetDirs) == 0 {
		return errors.Wrapf(ErrInvalidTask, "%s: no dataset_dir", t.Name)
	}
	for _, d := range t.DatasetDirs {
		if strings.TrimSpace(d) == "" {
			return errors.Wrapf(ErrInvalidTask, "%s: empty dataset_dir entry", t.Name)
		}
	}
	if t.EpisodeLen <= 0 {
		return errors.Wrapf(ErrInvalidTask, "%s: episode_len must be positive, got %d", t.Name, t.EpisodeLen)
	}
	if len(t.CameraNames) == 0 {
		return errors.Wrapf(ErrInvalidTask, "%s: no camera_names", t.Name)
	}
	seen := make(map[string]bool, len(t.CameraNames))
	for _, c := range t.CameraNames {
		if c == "" {
			return errors.Wrapf(ErrInvalidTask, "%s: empty camera name", t.Name)
		}
		if seen[c] {
			return errors.Wrapf(ErrInvalidTask, "%s: duplicate camera %q", t.Name, c)
		}
		seen[c] = true
	}
	return nil
}

func (t Task) clone() Task {
	t.DatasetDirs = append([]string(nil), t.DatasetDirs...)
	t.CameraNames = append([]string(nil), t.CameraNames...)
	return t
}

// Registry is a set of tasks keyed by name. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	tasks map[string]Task
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{tasks: make(map[string]Task)}
}

// Default returns a registry holding the built-in tasks.
func Default() *Registry {
	r := NewRegistry()
	for _, t := range builtin {
		if err := r.Register(t); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds t, replacing any task with the same name.
func (r *Registry) Register(t Task) error {
	if err := t.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[t.Name] = t.clone()
	return nil
}

// Lookup returns the task called name.
func (r *Registry) Lookup(name string) (Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[name]
	if !ok {
		return Task{}, errors.Wrapf(ErrUnknownTask, "%q", name)
	}
	return t.clone(), nil
}

// Names returns all task names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tasks))
	for n := range r.tasks {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
