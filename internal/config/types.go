package config

import (
	"fmt"
	"time"
)

// Duration wraps time.Duration for YAML unmarshalling.
type Duration struct {
	time.Duration
	explicit bool
}

// UnmarshalText parses a textual duration, accepting empty strings.
func (d *Duration) UnmarshalText(text []byte) error {
	d.explicit = true
	if len(text) == 0 {
		d.Duration = 0
		return nil
	}
	dur, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = dur
	return nil
}

// MarshalText renders the duration using time.Duration formatting.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// IsSet reports whether the duration was explicitly provided or non-zero.
func (d Duration) IsSet() bool {
	return d.explicit || d.Duration != 0
}

// File mirrors the pool.yaml document structure.
type File struct {
	Pool    PoolSpec      `yaml:"pool"`
	Workers []*WorkerSpec `yaml:"workers"`
}

// PoolSpec carries pool-wide settings.
type PoolSpec struct {
	Name        string   `yaml:"name"`
	Splay       Duration `yaml:"splay"`
	GracePeriod Duration `yaml:"gracePeriod"`
}

// WorkerSpec describes one class of worker to supervise.
type WorkerSpec struct {
	Name       string            `yaml:"name"`
	Command    []string          `yaml:"command"`
	Count      int               `yaml:"count"`
	MaxRunTime Duration          `yaml:"maxRunTime"`
	Env        map[string]string `yaml:"env"`
	Dir        string            `yaml:"dir"`
}

// Replicas returns the number of worker slots the spec occupies.
func (w *WorkerSpec) Replicas() int {
	if w.Count < 1 {
		return 1
	}
	return w.Count
}
