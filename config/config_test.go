package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTargets = `
[[target]]
name = "go"
stack = "go"
dir = "subjects/go"
duration = "10s"
ready_url = "http://127.0.0.1:3000/"

[target.load]
threads = 12
connections = 400
url = "http://127.0.0.1:3000/"
params = 4

[[target]]
name = "node"
command = "node"
args = ["index.js"]
dir = "/srv/node"
load_args = ["-t4", "-c100", "-d5s", "http://127.0.0.1:3000/"]
duration = "5s"
`

func TestParseAppliesPresetsAndDefaults(t *testing.T) {
	f, err := Parse([]byte(sampleTargets))
	require.NoError(t, err)
	require.Len(t, f.Targets, 2)

	goTarget := f.Targets[0]
	assert.Equal(t, "go", goTarget.Command)
	assert.Equal(t, []string{"run", "."}, goTarget.Args)
	assert.Equal(t, "wrk", goTarget.LoadCommand)
	assert.Equal(t, 10*time.Second, goTarget.RunDuration())

	args, err := goTarget.LoadArguments()
	require.NoError(t, err)
	assert.Equal(t, []string{
		"-t12", "-c400", "-d10s",
		"http://127.0.0.1:3000/?q1=1&q2=2&q3=3&q4=4",
	}, args)

	nodeArgs, err := f.Targets[1].LoadArguments()
	require.NoError(t, err)
	assert.Equal(t, "-d5s", nodeArgs[2])
}

func TestLoadResolvesRelativeDirs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "targets.toml")
	require.NoError(t, os.WriteFile(path, []byte(sampleTargets), 0o644))

	f, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "subjects", "go"), f.Targets[0].Dir)
	assert.Equal(t, "/srv/node", f.Targets[1].Dir)
}

func TestParseRejectsInvalidTargets(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		errText string
	}{
		{
			name:    "no targets",
			input:   ``,
			errText: "validate",
		},
		{
			name: "missing command",
			input: `
[[target]]
name = "x"
duration = "1s"
load_args = ["http://localhost"]
`,
			errText: "Command",
		},
		{
			name: "zero duration",
			input: `
[[target]]
name = "x"
command = "true"
load_args = ["http://localhost"]
`,
			errText: "Duration",
		},
		{
			name: "bad duration",
			input: `
[[target]]
name = "x"
command = "true"
duration = "ten seconds"
load_args = ["http://localhost"]
`,
			errText: "duration",
		},
		{
			name: "unknown key",
			input: `
[[target]]
name = "x"
command = "true"
duration = "1s"
load_args = ["http://localhost"]
colour = "blue"
`,
			errText: "colour",
		},
		{
			name: "duplicate names",
			input: `
[[target]]
name = "x"
command = "true"
duration = "1s"
load_args = ["http://localhost"]

[[target]]
name = "x"
command = "true"
duration = "1s"
load_args = ["http://localhost"]
`,
			errText: "duplicate",
		},
		{
			name: "unknown stack",
			input: `
[[target]]
name = "x"
stack = "cobol"
command = "true"
duration = "1s"
load_args = ["http://localhost"]
`,
			errText: "unknown stack",
		},
		{
			name: "no load arguments",
			input: `
[[target]]
name = "x"
command = "true"
duration = "1s"
`,
			errText: "no load_args",
		},
		{
			name: "invalid ready url",
			input: `
[[target]]
name = "x"
command = "true"
duration = "1s"
load_args = ["http://localhost"]
ready_url = "not a url"
`,
			errText: "ReadyURL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errText)
		})
	}
}

func TestSlug(t *testing.T) {
	tests := map[string]string{
		"go":             "go",
		"Node JS":        "node-js",
		"bun/no-params":  "bun-no-params",
		"rust_actix 4.x": "rust_actix-4-x",
		"":               "target",
	}

	for name, want := range tests {
		if got := (Target{Name: name}).Slug(); got != want {
			t.Errorf("Slug(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestSelect(t *testing.T) {
	f, err := Parse([]byte(sampleTargets))
	require.NoError(t, err)

	all, err := f.Select(nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	some, err := f.Select([]string{"node"})
	require.NoError(t, err)
	require.Len(t, some, 1)
	assert.Equal(t, "node", some[0].Name)

	_, err = f.Select([]string{"python"})
	assert.Error(t, err)
}

func TestTargetArgsAreCopies(t *testing.T) {
	target := Target{Args: []string{"a"}, LoadArgs: []string{"b"}}

	args := target.SubjectArgs()
	args[0] = "mutated"

	loadArgs, err := target.LoadArguments()
	require.NoError(t, err)
	loadArgs[0] = "mutated"

	assert.Equal(t, "a", target.Args[0])
	assert.Equal(t, "b", target.LoadArgs[0])
}

func newTestFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("targets", "targets.toml", "")
	fs.StringSlice("only", nil, "")
	fs.String("out", "results", "")
	fs.Duration("interval", time.Second, "")
	fs.Duration("cooldown", 5*time.Second, "")
	fs.String("ready", ReadyProbe, "")
	fs.Duration("ready-timeout", time.Minute, "")
	fs.Duration("ready-delay", 0, "")
	fs.Duration("probe-every", 500*time.Millisecond, "")
	fs.Duration("kill-timeout", 5*time.Second, "")
	fs.Duration("load-grace", 5*time.Second, "")
	fs.Bool("no-chart", false, "")
	fs.Bool("json", false, "")
	fs.Bool("allow-failures", false, "")
	fs.String("log-level", "info", "")

	return fs
}

func TestSettingsEnvOverride(t *testing.T) {
	t.Setenv("STACKBENCH_COOLDOWN", "12s")
	t.Setenv("STACKBENCH_READY_TIMEOUT", "3s")

	v, err := NewViper(newTestFlags())
	require.NoError(t, err)

	s, err := SettingsFromViper(v)
	require.NoError(t, err)

	assert.Equal(t, 12*time.Second, s.Cooldown)
	assert.Equal(t, 3*time.Second, s.ReadyTimeout)
	assert.Equal(t, time.Second, s.Interval)
	assert.Equal(t, ReadyProbe, s.ReadyMode)
}

func TestSettingsValidate(t *testing.T) {
	base := Settings{
		TargetsFile: "targets.toml",
		Interval:    time.Second,
		ReadyMode:   ReadyNone,
		KillTimeout: 5 * time.Second,
	}
	require.NoError(t, base.Validate())

	bad := base
	bad.Interval = 0
	assert.Error(t, bad.Validate())

	bad = base
	bad.ReadyMode = "telepathy"
	assert.ErrorContains(t, bad.Validate(), "unknown ready mode")

	bad = base
	bad.ReadyMode = ReadyProbe
	bad.ReadyTimeout = time.Minute
	assert.ErrorContains(t, bad.Validate(), "probe-every")

	bad = base
	bad.KillTimeout = 0
	assert.ErrorContains(t, bad.Validate(), "kill-timeout")

	bad = base
	bad.ReadyMode = ReadyProbe
	bad.ProbeEvery = 500 * time.Millisecond
	assert.ErrorContains(t, bad.Validate(), "ready-timeout")

	ok := bad
	ok.ReadyTimeout = time.Minute
	assert.NoError(t, ok.Validate())

	// Non-probe modes leave the ready timeout optional.
	ok = base
	ok.ReadyMode = ReadyPrompt
	assert.NoError(t, ok.Validate())

	bad = base
	bad.TargetsFile = ""
	assert.True(t, strings.Contains(bad.Validate().Error(), "--targets"))
}

func TestLoadDotEnvMissingFile(t *testing.T) {
	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), ".env")))
}

func TestLoadBundledExample(t *testing.T) {
	f, err := Load(filepath.Join("..", "examples", "targets.toml"))
	require.NoError(t, err)
	require.Len(t, f.Targets, 2)

	subjectDir, err := filepath.Abs(filepath.Join("..", "subjects", "go"))
	require.NoError(t, err)

	for _, target := range f.Targets {
		assert.Equal(t, subjectDir, target.Dir)
		assert.Equal(t, "./subject", target.Command)
		assert.Equal(t, 30*time.Second, target.RunDuration())

		_, err := target.LoadArguments()
		assert.NoError(t, err)
	}
}
