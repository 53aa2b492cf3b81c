// Go subject serves the benchmark's JSON echo endpoint with net/http.
// Each request echoes q1..q4 back as JSON after a round trip through a
// scratch file, so the load exercises both CPU and disk I/O.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
)

type query struct {
	QueryParam1 string `json:"queryParam1"`
	QueryParam2 string `json:"queryParam2"`
	QueryParam3 string `json:"queryParam3"`
	QueryParam4 string `json:"queryParam4"`
}

func main() {
	addr := flag.String("addr", ":3000", "listen address")
	scratch := flag.String("scratch", "json", "directory for per-request scratch files")
	flag.Parse()

	if err := os.MkdirAll(*scratch, 0o755); err != nil {
		fatal("create scratch dir: %v", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/", echoHandler(*scratch))

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = srv.Shutdown(shutdownCtx)
	}()

	fmt.Printf("Listening on %s\n", *addr)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		fatal("serve: %v", err)
	}
}

func echoHandler(dir string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		params := r.URL.Query()

		body, err := json.Marshal(query{
			QueryParam1: params.Get("q1"),
			QueryParam2: params.Get("q2"),
			QueryParam3: params.Get("q3"),
			QueryParam4: params.Get("q4"),
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		out, err := roundTrip(filepath.Join(dir, uuid.NewString()), body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(out)
	})
}

// roundTrip writes body to path, reads it back and removes the file.
func roundTrip(path string, body []byte) ([]byte, error) {
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return nil, fmt.Errorf("write scratch: %w", err)
	}
	defer os.Remove(path)

	out, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scratch: %w", err)
	}

	return out, nil
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "go-subject: "+format+"\n", args...)
	os.Exit(1)
}
