package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. STACKBENCH_COOLDOWN=10s.
const EnvPrefix = "STACKBENCH"

// Ready modes.
const (
	ReadyProbe  = "probe"
	ReadyPrompt = "prompt"
	ReadyDelay  = "delay"
	ReadyNone   = "none"
)

// Settings are the run-wide knobs shared by every target.
type Settings struct {
	TargetsFile string
	Only        []string
	OutputDir   string

	Interval     time.Duration
	Cooldown     time.Duration
	ReadyMode    string
	ReadyTimeout time.Duration
	ReadyDelay   time.Duration
	ProbeEvery   time.Duration
	KillTimeout  time.Duration
	LoadGrace    time.Duration

	NoChart       bool
	JSON          bool
	AllowFailures bool
	LogLevel      slog.Level
}

// LoadDotEnv loads a .env file if one exists. A missing file is not an
// error.
func LoadDotEnv(paths ...string) error {
	if err := godotenv.Load(paths...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	return nil
}

// NewViper returns a viper instance bound to flags and STACKBENCH_*
// environment variables. Flag names with dashes map to underscores in
// the environment.
func NewViper(flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(flags); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}

	return v, nil
}

// SettingsFromViper reads and validates Settings.
func SettingsFromViper(v *viper.Viper) (Settings, error) {
	s := Settings{
		TargetsFile:   v.GetString("targets"),
		Only:          v.GetStringSlice("only"),
		OutputDir:     v.GetString("out"),
		Interval:      v.GetDuration("interval"),
		Cooldown:      v.GetDuration("cooldown"),
		ReadyMode:     v.GetString("ready"),
		ReadyTimeout:  v.GetDuration("ready-timeout"),
		ReadyDelay:    v.GetDuration("ready-delay"),
		ProbeEvery:    v.GetDuration("probe-every"),
		KillTimeout:   v.GetDuration("kill-timeout"),
		LoadGrace:     v.GetDuration("load-grace"),
		NoChart:       v.GetBool("no-chart"),
		JSON:          v.GetBool("json"),
		AllowFailures: v.GetBool("allow-failures"),
	}

	if err := s.LogLevel.UnmarshalText([]byte(v.GetString("log-level"))); err != nil {
		return s, fmt.Errorf("log level: %w", err)
	}

	return s, s.Validate()
}

// Validate checks the settings for values the orchestrator cannot use.
func (s Settings) Validate() error {
	if s.TargetsFile == "" {
		return fmt.Errorf("a targets file is required (--targets)")
	}

	if s.Interval <= 0 {
		return fmt.Errorf("interval must be positive, got %s", s.Interval)
	}

	if s.Cooldown < 0 || s.ReadyTimeout < 0 || s.KillTimeout < 0 || s.LoadGrace < 0 {
		return fmt.Errorf("timeouts and delays must not be negative")
	}

	if s.KillTimeout <= 0 {
		return fmt.Errorf("kill-timeout must be positive, got %s", s.KillTimeout)
	}

	switch s.ReadyMode {
	case ReadyProbe, ReadyPrompt, ReadyDelay, ReadyNone:
	default:
		return fmt.Errorf(
			"unknown ready mode %q (want %s, %s, %s or %s)",
			s.ReadyMode, ReadyProbe, ReadyPrompt, ReadyDelay, ReadyNone,
		)
	}

	if s.ReadyMode == ReadyProbe && s.ProbeEvery <= 0 {
		return fmt.Errorf("probe-every must be positive in probe mode")
	}

	// The probe's attempt budget is derived from the timeout.
	if s.ReadyMode == ReadyProbe && s.ReadyTimeout <= 0 {
		return fmt.Errorf("ready-timeout must be positive in probe mode")
	}

	return nil
}
