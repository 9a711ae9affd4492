package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nimburion/taskboard/pkg/observability/logger"
)

// Runnable is a server driven by a context.
type Runnable interface {
	Start(ctx context.Context) error
}

// LifecycleHook defines a named startup/shutdown action.
type LifecycleHook struct {
	Name string
	Fn   func(context.Context) error
}

// RunOptions configures Run.
type RunOptions struct {
	Logger        logger.Logger
	StartupHooks  []LifecycleHook
	ShutdownHooks []LifecycleHook
	// ShutdownHookTimeout bounds each shutdown hook. Defaults to 10s.
	ShutdownHookTimeout time.Duration
}

// Run executes the startup hooks, starts every server concurrently and
// blocks until ctx is cancelled or one server fails. A failing server stops
// the others. Shutdown hooks run last, in reverse order, even on failure.
func Run(ctx context.Context, servers []Runnable, opts RunOptions) error {
	if len(servers) == 0 {
		return errors.New("at least one server is required")
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop{}
	}

	if err := runStartupHooks(ctx, opts); err != nil {
		return err
	}
	defer func() {
		if err := runShutdownHooks(opts); err != nil {
			opts.Logger.Error("shutdown hooks completed with errors", "error", err)
		}
	}()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, len(servers))
	for _, srv := range servers {
		go func(srv Runnable) { errCh <- srv.Start(runCtx) }(srv)
	}

	var firstErr error
	for range servers {
		if err := <-errCh; err != nil && firstErr == nil {
			firstErr = err
			cancel()
		}
	}
	return firstErr
}

// RunWithSignals runs servers until SIGINT or SIGTERM.
func RunWithSignals(servers []Runnable, opts RunOptions, signals ...os.Signal) error {
	if len(signals) == 0 {
		signals = []os.Signal{os.Interrupt, syscall.SIGTERM}
	}
	ctx, stop := signal.NotifyContext(context.Background(), signals...)
	defer stop()
	return Run(ctx, servers, opts)
}

func hookName(h LifecycleHook) string {
	if name := strings.TrimSpace(h.Name); name != "" {
		return name
	}
	return "unnamed"
}

func runStartupHooks(ctx context.Context, opts RunOptions) error {
	for _, hook := range opts.StartupHooks {
		if hook.Fn == nil {
			continue
		}
		name := hookName(hook)
		opts.Logger.Info("startup hook start", "hook", name)
		if err := hook.Fn(ctx); err != nil {
			opts.Logger.Error("startup hook failed", "hook", name, "error", err)
			return fmt.Errorf("startup hook %q failed: %w", name, err)
		}
		opts.Logger.Info("startup hook complete", "hook", name)
	}
	return nil
}

func runShutdownHooks(opts RunOptions) error {
	timeout := opts.ShutdownHookTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	var errs []error
	for i := len(opts.ShutdownHooks) - 1; i >= 0; i-- {
		hook := opts.ShutdownHooks[i]
		if hook.Fn == nil {
			continue
		}
		name := hookName(hook)
		hookCtx, cancel := context.WithTimeout(context.Background(), timeout)
		err := hook.Fn(hookCtx)
		cancel()
		if err != nil {
			opts.Logger.Error("shutdown hook failed", "hook", name, "error", err)
			errs = append(errs, fmt.Errorf("shutdown hook %q failed: %w", name, err))
			continue
		}
		opts.Logger.Info("shutdown hook complete", "hook", name)
	}
	return errors.Join(errs...)
}
