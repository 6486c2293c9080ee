// Command scripted is a deterministic automation driver used for exercising
// the run loop without a browser. Its behaviour is steered entirely through
// environment variables:
//
//	LINGOBOT_SCRIPT        comma separated outcomes (ok|retry|fatal), consumed
//	                       one per iteration; the last entry repeats (default "ok")
//	LINGOBOT_FAIL_LOGIN    when set to "1", every login is refused
//	LINGOBOT_ITERATION_MS  milliseconds each iteration sleeps (default 100)
package main

import (
	"context"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-plugin"

	driverrpc "lingobot/internal/modules/workflow/adapter/out/rpc"
)

type server struct {
	mu       sync.Mutex
	script   []string
	next     int
	loggedIn bool
}

func newServer() *server {
	raw := os.Getenv("LINGOBOT_SCRIPT")
	if raw == "" {
		raw = "ok"
	}
	var script []string
	for _, step := range strings.Split(raw, ",") {
		step = strings.TrimSpace(step)
		if step != "" {
			script = append(script, step)
		}
	}
	if len(script) == 0 {
		script = []string{"ok"}
	}
	return &server{script: script}
}

func (s *server) Describe(_ context.Context, _ *driverrpc.Empty) (*driverrpc.DriverInfo, error) {
	return &driverrpc.DriverInfo{
		Name:    "scripted",
		Version: "1.0.0",
		Modes:   []string{"lesson", "stories"},
	}, nil
}

func (s *server) Login(_ context.Context, _ *driverrpc.LoginRequest) (*driverrpc.LoginResponse, error) {
	if os.Getenv("LINGOBOT_FAIL_LOGIN") == "1" {
		return &driverrpc.LoginResponse{OK: false, Reason: "scripted login refusal"}, nil
	}
	s.mu.Lock()
	s.loggedIn = true
	s.mu.Unlock()
	return &driverrpc.LoginResponse{OK: true}, nil
}

func (s *server) RunIteration(ctx context.Context, in *driverrpc.IterationRequest) (*driverrpc.IterationResponse, error) {
	s.mu.Lock()
	if !s.loggedIn {
		s.mu.Unlock()
		return &driverrpc.IterationResponse{Status: "fatal", Reason: "iteration before login"}, nil
	}
	step := s.script[s.next]
	if s.next < len(s.script)-1 {
		s.next++
	}
	s.mu.Unlock()

	delay := 100 * time.Millisecond
	if ms, err := strconv.Atoi(os.Getenv("LINGOBOT_ITERATION_MS")); err == nil && ms >= 0 {
		delay = time.Duration(ms) * time.Millisecond
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(delay):
	}

	switch step {
	case "ok", "retry", "fatal":
		reason := ""
		if step != "ok" {
			reason = "scripted " + step + " on " + in.Unit.Kind + ":" + in.Unit.Name
		}
		return &driverrpc.IterationResponse{Status: step, Reason: reason}, nil
	default:
		return &driverrpc.IterationResponse{Status: "fatal", Reason: "unknown scripted step " + step}, nil
	}
}

func main() {
	plugin.Serve(&plugin.ServeConfig{
		HandshakeConfig: driverrpc.HandshakeConfig,
		Plugins:         driverrpc.PluginMap(newServer()),
		GRPCServer:      plugin.DefaultGRPCServer,
	})
}
