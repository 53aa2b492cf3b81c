// Package config loads benchmark targets and run settings.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/weiihann/stackbench/workload"
)

// Target identifies one benchmarked configuration. Targets are passed by
// value and never modified once loaded.
type Target struct {
	Name  string `toml:"name" json:"name" validate:"required"`
	Stack string `toml:"stack" json:"stack,omitempty"`

	Command string   `toml:"command" json:"command" validate:"required"`
	Args    []string `toml:"args" json:"args,omitempty"`
	Dir     string   `toml:"dir" json:"dir,omitempty"`
	Env     []string `toml:"env" json:"env,omitempty"`

	// Build is an optional argv run once in Dir before the subject starts.
	Build []string `toml:"build" json:"build,omitempty"`

	LoadCommand string           `toml:"load_command" json:"load_command"`
	LoadArgs    []string         `toml:"load_args" json:"load_args,omitempty"`
	Load        *workload.Config `toml:"load" json:"load,omitempty"`

	Duration Duration `toml:"duration" json:"duration" validate:"gt=0"`
	ReadyURL string   `toml:"ready_url" json:"ready_url,omitempty" validate:"omitempty,url"`
}

// Slug returns a filesystem-safe stem derived from the target name, used
// to name the run's artifacts.
func (t Target) Slug() string {
	var b strings.Builder

	for _, r := range strings.ToLower(t.Name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}

	if b.Len() == 0 {
		return "target"
	}

	return b.String()
}

// RunDuration returns the configured run length.
func (t Target) RunDuration() time.Duration {
	return t.Duration.Std()
}

// SubjectArgs returns a copy of the subject's arguments.
func (t Target) SubjectArgs() []string {
	return slices.Clone(t.Args)
}

// LoadArguments returns the load generator's argument vector, built from
// the structured load profile when no explicit arguments are given.
func (t Target) LoadArguments() ([]string, error) {
	if len(t.LoadArgs) > 0 {
		return slices.Clone(t.LoadArgs), nil
	}

	if t.Load == nil {
		return nil, fmt.Errorf("target %s: no load_args or load profile", t.Name)
	}

	args, err := t.Load.Args(t.RunDuration())
	if err != nil {
		return nil, fmt.Errorf("target %s: load profile: %w", t.Name, err)
	}

	return args, nil
}

// File is the on-disk targets file.
type File struct {
	Targets []Target `toml:"target" validate:"required,min=1,dive"`
}

var validate = validator.New()

// Load reads, normalises and validates a targets file. Relative working
// directories are resolved against the file's directory.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read targets %s: %w", path, err)
	}

	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("targets %s: %w", path, err)
	}

	base, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("resolve targets dir: %w", err)
	}

	for i := range f.Targets {
		if f.Targets[i].Dir != "" && !filepath.IsAbs(f.Targets[i].Dir) {
			f.Targets[i].Dir = filepath.Join(base, f.Targets[i].Dir)
		}
	}

	return f, nil
}

// Parse decodes and validates targets from TOML. Unknown keys are
// rejected.
func Parse(data []byte) (*File, error) {
	var f File

	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	if err := dec.Decode(&f); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, fmt.Errorf("decode: %s", strict.String())
		}

		return nil, fmt.Errorf("decode: %w", err)
	}

	for i := range f.Targets {
		applyDefaults(&f.Targets[i])
	}

	if err := f.Validate(); err != nil {
		return nil, err
	}

	return &f, nil
}

func applyDefaults(t *Target) {
	if t.Command == "" && t.Stack != "" {
		if p, ok := StackPreset(t.Stack); ok {
			t.Command = p.Command
			if len(t.Args) == 0 {
				t.Args = slices.Clone(p.Args)
			}
		}
	}

	if t.LoadCommand == "" {
		t.LoadCommand = workload.DefaultCommand
	}
}

// Validate checks every target and that names are unique.
func (f *File) Validate() error {
	if err := validate.Struct(f); err != nil {
		return fmt.Errorf("validate: %w", err)
	}

	seen := make(map[string]bool, len(f.Targets))
	slugs := make(map[string]string, len(f.Targets))

	for _, t := range f.Targets {
		if seen[t.Name] {
			return fmt.Errorf("duplicate target name %q", t.Name)
		}
		seen[t.Name] = true

		if other, ok := slugs[t.Slug()]; ok {
			return fmt.Errorf(
				"targets %q and %q share artifact name %q",
				other, t.Name, t.Slug(),
			)
		}
		slugs[t.Slug()] = t.Name

		if t.Stack != "" {
			if _, ok := StackPreset(t.Stack); !ok {
				return fmt.Errorf(
					"target %s: unknown stack %q (known: %s)",
					t.Name, t.Stack, strings.Join(KnownStacks(), ", "),
				)
			}
		}

		if _, err := t.LoadArguments(); err != nil {
			return err
		}
	}

	return nil
}

// Select returns the targets named in only, in file order. An empty
// filter selects everything.
func (f *File) Select(only []string) ([]Target, error) {
	if len(only) == 0 {
		return slices.Clone(f.Targets), nil
	}

	known := make(map[string]bool, len(f.Targets))
	for _, t := range f.Targets {
		known[t.Name] = true
	}

	for _, name := range only {
		if !known[name] {
			return nil, fmt.Errorf("unknown target %q", name)
		}
	}

	out := make([]Target, 0, len(only))
	for _, t := range f.Targets {
		if slices.Contains(only, t.Name) {
			out = append(out, t)
		}
	}

	return out, nil
}
