package bootstrap

import (
	"context"
	"fmt"
)

// Hook is a callback run when the runtime shuts down, such as flushing
// telemetry exporters.
type Hook func(ctx context.Context) error

// OnStop registers hooks run by Shutdown in registration order.
func (rt *Runtime) OnStop(hooks ...Hook) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.onStop = append(rt.onStop, hooks...)
}

// runHooks executes every hook, returning the first error.
func runHooks(ctx context.Context, hooks []Hook) error {
	var first error
	for i, h := range hooks {
		if err := h(ctx); err != nil && first == nil {
			first = fmt.Errorf("hook %d failed: %w", i, err)
		}
	}
	return first
}
