package health

import (
	"context"
	"time"
)

// Checkable is implemented by adapters that can probe their backend.
type Checkable interface {
	HealthCheck(ctx context.Context) error
}

// AdapterChecker probes a Checkable under a timeout. A failing critical
// dependency is unhealthy; a failing optional one only degrades the service.
type AdapterChecker struct {
	name     string
	adapter  Checkable
	timeout  time.Duration
	critical bool
}

// NewAdapterChecker creates a critical checker for adapter.
func NewAdapterChecker(name string, adapter Checkable, timeout time.Duration) *AdapterChecker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &AdapterChecker{name: name, adapter: adapter, timeout: timeout, critical: true}
}

// NewDatabaseChecker checks the primary data store.
func NewDatabaseChecker(name string, db Checkable) *AdapterChecker {
	return NewAdapterChecker(name, db, 5*time.Second)
}

// NewCacheChecker checks Redis. The rate limiter fails open, so an
// unreachable cache degrades rather than fails readiness.
func NewCacheChecker(name string, cache Checkable) *AdapterChecker {
	c := NewAdapterChecker(name, cache, 3*time.Second)
	c.critical = false
	return c
}

// Check probes the adapter.
func (c *AdapterChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := c.adapter.HealthCheck(checkCtx)
	res := CheckResult{Name: c.name, Timestamp: time.Now(), Duration: time.Since(start)}
	if err == nil {
		res.Status = StatusHealthy
		res.Message = "OK"
		return res
	}
	res.Error = err.Error()
	res.Status = StatusUnhealthy
	if !c.critical {
		res.Status = StatusDegraded
	}
	return res
}

// Name returns the check name.
func (c *AdapterChecker) Name() string { return c.name }

// PingChecker is always healthy. Used for liveness.
type PingChecker struct {
	name string
}

// NewPingChecker creates a liveness checker.
func NewPingChecker(name string) *PingChecker { return &PingChecker{name: name} }

// Check always reports healthy.
func (c *PingChecker) Check(context.Context) CheckResult {
	return CheckResult{Name: c.name, Status: StatusHealthy, Message: "Service is alive", Timestamp: time.Now()}
}

// Name returns the check name.
func (c *PingChecker) Name() string { return c.name }

// StateReporter exposes a circuit breaker state such as "closed",
// "half-open" or "open".
type StateReporter interface {
	State() string
}

// BreakerChecker maps a circuit breaker state to a health status: open is
// unhealthy and half-open is degraded.
type BreakerChecker struct {
	name    string
	breaker StateReporter
}

// NewBreakerChecker creates a checker for breaker.
func NewBreakerChecker(name string, breaker StateReporter) *BreakerChecker {
	return &BreakerChecker{name: name, breaker: breaker}
}

// Check reads the breaker state.
func (c *BreakerChecker) Check(context.Context) CheckResult {
	state := c.breaker.State()
	res := CheckResult{
		Name:      c.name,
		Status:    StatusHealthy,
		Timestamp: time.Now(),
		Metadata:  map[string]interface{}{"state": state},
	}
	switch state {
	case "open":
		res.Status = StatusUnhealthy
		res.Error = "circuit breaker is open"
	case "half-open":
		res.Status = StatusDegraded
		res.Message = "circuit breaker is probing"
	default:
		res.Message = "OK"
	}
	return res
}

// Name returns the check name.
func (c *BreakerChecker) Name() string { return c.name }
