package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Load reads a pool manifest from the provided path and validates it.
func Load(path string) (*File, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve pool path: %w", err)
	}

	f, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("open pool file: %w", err)
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	var doc File
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%s: decode: %w", absPath, err)
	}

	for _, w := range doc.Workers {
		if w == nil {
			continue
		}
		for k, v := range w.Env {
			w.Env[k] = os.ExpandEnv(v)
		}
		if w.Dir != "" {
			w.Dir = os.ExpandEnv(w.Dir)
		}
	}

	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", absPath, err)
	}
	return &doc, nil
}

// Validate checks structural constraints on the manifest.
func (f *File) Validate() error {
	if len(f.Workers) == 0 {
		return fmt.Errorf("no workers defined")
	}
	if f.Pool.Splay.Duration < 0 {
		return fmt.Errorf("pool.splay must not be negative")
	}
	if f.Pool.GracePeriod.Duration < 0 {
		return fmt.Errorf("pool.gracePeriod must not be negative")
	}

	seen := make(map[string]struct{}, len(f.Workers))
	for i, w := range f.Workers {
		if w == nil {
			return fmt.Errorf("workers[%d]: empty entry", i)
		}
		if w.Name == "" {
			return fmt.Errorf("workers[%d]: name is required", i)
		}
		if _, dup := seen[w.Name]; dup {
			return fmt.Errorf("workers[%d]: duplicate name %q", i, w.Name)
		}
		seen[w.Name] = struct{}{}
		if len(w.Command) == 0 || w.Command[0] == "" {
			return fmt.Errorf("worker %s: command is required", w.Name)
		}
		if w.Count < 0 {
			return fmt.Errorf("worker %s: count must not be negative", w.Name)
		}
		if w.MaxRunTime.Duration < 0 {
			return fmt.Errorf("worker %s: maxRunTime must not be negative", w.Name)
		}
	}
	return nil
}
