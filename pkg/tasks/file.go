package tasks

import (
	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

type fileConfig struct {
	Tasks map[string]Task `toml:"tasks"`
}

// LoadFile merges the [tasks.<name>] tables of a TOML file into r.
// Keys missing from a table keep the value of the existing task with the
// same name, if any.
func (r *Registry) LoadFile(path string) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return errors.Wrap(err, "load task file")
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return errors.Errorf("load task file: unknown key %s", undecoded[0])
	}

	merged := make([]Task, 0, len(raw.Tasks))
	for name, t := range raw.Tasks {
		m := Task{Name: name}
		if base, err := r.Lookup(name); err == nil {
			m = base
		}
		if meta.IsDefined("tasks", name, "dataset_dir") {
			m.DatasetDirs = t.DatasetDirs
		}
		if meta.IsDefined("tasks", name, "episode_len") {
			m.EpisodeLen = t.EpisodeLen
		}
		if meta.IsDefined("tasks", name, "camera_names") {
			m.CameraNames = t.CameraNames
		}
		if err := m.Validate(); err != nil {
			return errors.Wrapf(err, "task file %s", path)
		}
		merged = append(merged, m)
	}

	for _, m := range merged {
		if err := r.Register(m); err != nil {
			return err
		}
	}
	return nil
}
