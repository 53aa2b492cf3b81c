// Package workload builds load-generator invocations from a structured
// load profile. The default generator is wrk.
package workload

import (
	"encoding/hex"
	"fmt"
	mrand "math/rand"
	"net/url"
	"strconv"
	"time"
)

// DefaultCommand is the load generator used when a target names none.
const DefaultCommand = "wrk"

// Config is a wrk load profile.
type Config struct {
	Threads     int    `toml:"threads" json:"threads"`
	Connections int    `toml:"connections" json:"connections"`
	URL         string `toml:"url" json:"url"`
	// Params appends q1..qN query parameters to URL.
	Params int `toml:"params" json:"params,omitempty"`
	// Seed randomises the parameter values deterministically. Zero keeps
	// the plain qN=N values.
	Seed    int64  `toml:"seed" json:"seed,omitempty"`
	Script  string `toml:"script" json:"script,omitempty"`
	Latency bool   `toml:"latency" json:"latency,omitempty"`
}

// Validate checks the profile against what wrk accepts.
func (c Config) Validate() error {
	if c.Threads < 1 {
		return fmt.Errorf("threads must be at least 1, got %d", c.Threads)
	}

	if c.Connections < c.Threads {
		return fmt.Errorf(
			"connections (%d) must be >= threads (%d)",
			c.Connections, c.Threads,
		)
	}

	if c.Params < 0 {
		return fmt.Errorf("params must not be negative, got %d", c.Params)
	}

	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("parse url %q: %w", c.URL, err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url %q must use http or https", c.URL)
	}

	if u.Host == "" {
		return fmt.Errorf("url %q has no host", c.URL)
	}

	return nil
}

// Args returns the wrk argument vector for a run of duration d. wrk only
// takes whole seconds, so d is rounded up.
func (c Config) Args(d time.Duration) ([]string, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	if d <= 0 {
		return nil, fmt.Errorf("duration must be positive, got %s", d)
	}

	target, err := c.TargetURL()
	if err != nil {
		return nil, err
	}

	seconds := int64((d + time.Second - 1) / time.Second)

	args := []string{
		"-t" + strconv.Itoa(c.Threads),
		"-c" + strconv.Itoa(c.Connections),
		"-d" + strconv.FormatInt(seconds, 10) + "s",
	}

	if c.Script != "" {
		args = append(args, "-s", c.Script)
	}

	if c.Latency {
		args = append(args, "--latency")
	}

	return append(args, target), nil
}

// TargetURL returns URL with the generated query parameters applied.
func (c Config) TargetURL() (string, error) {
	u, err := url.Parse(c.URL)
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", c.URL, err)
	}

	if c.Params == 0 {
		return u.String(), nil
	}

	q := u.Query()

	var rng *mrand.Rand
	if c.Seed != 0 {
		rng = mrand.New(mrand.NewSource(c.Seed))
	}

	for i := 1; i <= c.Params; i++ {
		value := strconv.Itoa(i)
		if rng != nil {
			value = randomToken(rng)
		}
		q.Set("q"+strconv.Itoa(i), value)
	}

	u.RawQuery = q.Encode()

	return u.String(), nil
}

func randomToken(rng *mrand.Rand) string {
	var buf [4]byte
	rng.Read(buf[:])

	return hex.EncodeToString(buf[:])
}
