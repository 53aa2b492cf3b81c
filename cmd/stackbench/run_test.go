//go:build unix

package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weiihann/stackbench/config"
	"github.com/weiihann/stackbench/harness"
)

const mixedTargets = `
[[target]]
name = "missing"
command = "sleep"
args = ["30"]
dir = "/nonexistent/stackbench-test"
load_command = "sleep"
load_args = ["0.2"]
duration = "5s"

[[target]]
name = "healthy"
command = "sleep"
args = ["30"]
load_command = "sleep"
load_args = ["0.2"]
duration = "5s"
`

func quietLogger() *slog.Logger {
	return newLogger(io.Discard, slog.LevelError)
}

func testSettings(t *testing.T) config.Settings {
	t.Helper()

	if _, err := exec.LookPath("sleep"); err != nil {
		t.Skipf("sleep not available: %v", err)
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "targets.toml")
	require.NoError(t, os.WriteFile(path, []byte(mixedTargets), 0o644))

	return config.Settings{
		TargetsFile: path,
		OutputDir:   filepath.Join(dir, "out"),
		Interval:    50 * time.Millisecond,
		ReadyMode:   config.ReadyNone,
		KillTimeout: 2 * time.Second,
		LoadGrace:   time.Second,
		NoChart:     true,
	}
}

func TestRunBenchmarkFailsWhenAnyTargetFails(t *testing.T) {
	s := testSettings(t)

	var out bytes.Buffer
	err := runBenchmark(context.Background(), quietLogger(), s, strings.NewReader(""), &out)

	require.Error(t, err)
	assert.ErrorIs(t, err, harness.ErrSpawn)
	assert.Contains(t, err.Error(), "missing")

	// The healthy target still ran and the summary covers both.
	assert.Contains(t, out.String(), "healthy")
	assert.Contains(t, out.String(), "1 of 2 FAILED")
	assert.FileExists(t, filepath.Join(s.OutputDir, "summary.md"))
	assert.FileExists(t, filepath.Join(s.OutputDir, "healthy_series.json"))
}

func TestRunBenchmarkAllowFailures(t *testing.T) {
	s := testSettings(t)
	s.AllowFailures = true
	s.JSON = true

	var out bytes.Buffer
	err := runBenchmark(context.Background(), quietLogger(), s, strings.NewReader(""), &out)

	require.NoError(t, err)
	assert.Contains(t, out.String(), `"status": "failed"`)
	assert.Contains(t, out.String(), `"status": "completed"`)
}

func TestRunBenchmarkInterruptedIsAnError(t *testing.T) {
	s := testSettings(t)
	s.AllowFailures = true

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := runBenchmark(ctx, quietLogger(), s, strings.NewReader(""), io.Discard)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "interrupted")
}

func TestProbeCheckerPollsUntilReady(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	checker := newChecker(config.Settings{
		ReadyMode:    config.ReadyProbe,
		ReadyTimeout: time.Second,
		ProbeEvery:   10 * time.Millisecond,
	}, strings.NewReader(""), quietLogger())

	err := checker.AwaitReady(context.Background(), config.Target{Name: "go", ReadyURL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}
