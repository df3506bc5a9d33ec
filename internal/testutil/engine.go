package testutil

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gantryci/gantry/internal/envbuild"
)

// newTestLogger builds a debug-level text logger writing to w.
func newTestLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// ScriptedEngine is an in-memory envbuild.Engine for tests. Every call is
// recorded; outcomes are produced by the optional Handler, defaulting to
// success with an empty log. It also tracks how many executions overlap,
// which concurrency-bound tests assert on.
type ScriptedEngine struct {
	// Handler, when set, decides the outcome of each action.
	Handler func(dir string, argv []string) (*envbuild.ExecResult, error)
	// Delay makes every action take at least this long, honouring ctx.
	Delay time.Duration

	mu        sync.Mutex
	calls     [][]string
	active    int
	maxActive int
}

// Exec implements envbuild.Engine.
func (e *ScriptedEngine) Exec(ctx context.Context, dir string, argv []string) (*envbuild.ExecResult, error) {
	e.mu.Lock()
	e.calls = append(e.calls, append([]string(nil), argv...))
	e.active++
	if e.active > e.maxActive {
		e.maxActive = e.active
	}
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.active--
		e.mu.Unlock()
	}()

	if e.Delay > 0 {
		select {
		case <-time.After(e.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if e.Handler != nil {
		return e.Handler(dir, argv)
	}
	return &envbuild.ExecResult{}, nil
}

// Calls returns a copy of every recorded argv, in execution order.
func (e *ScriptedEngine) Calls() [][]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([][]string, len(e.calls))
	copy(out, e.calls)
	return out
}

// CallStrings returns each recorded argv joined with spaces.
func (e *ScriptedEngine) CallStrings() []string {
	calls := e.Calls()
	out := make([]string, len(calls))
	for i, argv := range calls {
		out[i] = strings.Join(argv, " ")
	}
	return out
}

// MaxActive returns the high-water mark of overlapping executions.
func (e *ScriptedEngine) MaxActive() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.maxActive
}
