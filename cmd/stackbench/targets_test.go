package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

func TestTargetsCommandListsBundledExample(t *testing.T) {
	var out, errOut bytes.Buffer

	cmd := newTargetsCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{"--targets", filepath.Join("..", "..", "examples", "targets.toml")})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("targets failed: %v", err)
	}

	for _, want := range []string{"go-no-params", "./subject", "wrk -t4 -c100 -d30s"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}

	if got := errOut.String(); got != "2 targets OK\n" {
		t.Errorf("stderr = %q, want %q", got, "2 targets OK\n")
	}
}
