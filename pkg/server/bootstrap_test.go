package server

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nimburion/taskboard/pkg/observability/logger"
)

type fakeRunnable struct {
	err     error
	started chan struct{}
	stopped chan struct{}
}

func newFakeRunnable(err error) *fakeRunnable {
	return &fakeRunnable{err: err, started: make(chan struct{}), stopped: make(chan struct{})}
}

func (f *fakeRunnable) Start(ctx context.Context) error {
	close(f.started)
	defer close(f.stopped)
	if f.err != nil {
		return f.err
	}
	<-ctx.Done()
	return nil
}

func TestRun_StopsOnCancel(t *testing.T) {
	// Given
	a, b := newFakeRunnable(nil), newFakeRunnable(nil)
	var order []string
	var mu sync.Mutex
	record := func(name string) func(context.Context) error {
		return func(context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
			return nil
		}
	}
	ctx, cancel := context.WithCancel(context.Background())

	// When
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, []Runnable{a, b}, RunOptions{
			Logger:        logger.Nop{},
			StartupHooks:  []LifecycleHook{{Name: "seed", Fn: record("start")}},
			ShutdownHooks: []LifecycleHook{{Name: "db", Fn: record("close db")}, {Name: "tracer", Fn: record("flush tracer")}},
		})
	}()
	<-a.started
	<-b.started
	cancel()

	// Then
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}
	if got := strings.Join(order, ","); got != "start,flush tracer,close db" {
		t.Errorf("hook order = %s", got)
	}
}

func TestRun_FailingServerStopsOthers(t *testing.T) {
	boom := errors.New("bind: address in use")
	ok, bad := newFakeRunnable(nil), newFakeRunnable(boom)

	err := Run(context.Background(), []Runnable{ok, bad}, RunOptions{})

	if !errors.Is(err, boom) {
		t.Fatalf("Run() = %v, want %v", err, boom)
	}
	select {
	case <-ok.stopped:
	case <-time.After(time.Second):
		t.Error("healthy server was not stopped")
	}
}

func TestRun_StartupHookFailure(t *testing.T) {
	srv := newFakeRunnable(nil)
	shutdownRan := false

	err := Run(context.Background(), []Runnable{srv}, RunOptions{
		StartupHooks:  []LifecycleHook{{Fn: func(context.Context) error { return errors.New("indexes") }}},
		ShutdownHooks: []LifecycleHook{{Fn: func(context.Context) error { shutdownRan = true; return nil }}},
	})

	if err == nil || !strings.Contains(err.Error(), `"unnamed"`) {
		t.Fatalf("Run() = %v", err)
	}
	select {
	case <-srv.started:
		t.Error("server started despite failing hook")
	default:
	}
	if shutdownRan {
		t.Error("shutdown hooks must not run when startup fails")
	}
}

func TestRunShutdownHooks_AggregatesErrors(t *testing.T) {
	err := runShutdownHooks(RunOptions{
		Logger: logger.Nop{},
		ShutdownHooks: []LifecycleHook{
			{Name: "a", Fn: func(context.Context) error { return errors.New("a failed") }},
			{Name: "b", Fn: func(ctx context.Context) error {
				if _, ok := ctx.Deadline(); !ok {
					return errors.New("missing deadline")
				}
				return nil
			}},
			{Name: "c", Fn: func(context.Context) error { return errors.New("c failed") }},
		},
	})
	if err == nil || !strings.Contains(err.Error(), "a failed") || !strings.Contains(err.Error(), "c failed") {
		t.Errorf("runShutdownHooks() = %v", err)
	}
	if strings.Contains(err.Error(), "missing deadline") {
		t.Error("hooks must run with a deadline")
	}
}

func TestRun_RequiresServers(t *testing.T) {
	if err := Run(context.Background(), nil, RunOptions{}); err == nil {
		t.Error("expected error without servers")
	}
}
