// Package lifecycle holds the run state, port descriptions and health
// reporting shared by the semweave processors.
package lifecycle

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360studio/semstreams/component"
)

// ErrAlreadyRunning is returned by Begin on a running component.
var ErrAlreadyRunning = errors.New("component already running")

// Ports describes port definitions for the given direction. JetStream
// definitions become JetStreamPorts, everything else a core NATSPort.
func Ports(defs []component.PortDefinition, direction component.Direction) []component.Port {
	ports := make([]component.Port, len(defs))
	for i, def := range defs {
		ports[i] = component.Port{
			Name:        def.Name,
			Direction:   direction,
			Required:    def.Required,
			Description: def.Description,
		}
		if def.Type == "jetstream" {
			ports[i].Config = component.JetStreamPort{
				StreamName: def.StreamName,
				Subjects:   []string{def.Subject},
			}
		} else {
			ports[i].Config = component.NATSPort{Subject: def.Subject}
		}
	}
	return ports
}

// InputPorts describes the inputs of cfg. A nil cfg has none.
func InputPorts(cfg *component.PortConfig) []component.Port {
	if cfg == nil {
		return []component.Port{}
	}
	return Ports(cfg.Inputs, component.DirectionInput)
}

// OutputPorts describes the outputs of cfg. A nil cfg has none.
func OutputPorts(cfg *component.PortConfig) []component.Port {
	if cfg == nil {
		return []component.Port{}
	}
	return Ports(cfg.Outputs, component.DirectionOutput)
}

// Endpoint returns the subject and stream of the first definition, or the
// fallbacks when there is none.
func Endpoint(defs []component.PortDefinition, subject, stream string) (string, string) {
	if len(defs) == 0 {
		return subject, stream
	}
	return defs[0].Subject, defs[0].StreamName
}

// Runner tracks the consuming state of a component. The zero value is a
// stopped runner.
type Runner struct {
	mu      sync.Mutex
	running bool
	started time.Time
	cancel  context.CancelFunc

	lastActivity atomic.Int64
}

// Begin marks the runner running and returns the context consumers should
// run under. It is cancelled by End.
func (r *Runner) Begin(ctx context.Context) (context.Context, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return nil, ErrAlreadyRunning
	}
	runCtx, cancel := context.WithCancel(ctx)
	r.running = true
	r.started = time.Now()
	r.cancel = cancel
	return runCtx, nil
}

// End cancels the run context. It reports whether the runner was running.
func (r *Runner) End() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return false
	}
	r.cancel()
	r.running = false
	r.cancel = nil
	return true
}

// Running reports whether the runner is running.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Touch records message activity.
func (r *Runner) Touch() {
	r.lastActivity.Store(time.Now().UnixNano())
}

// LastActivity returns the time of the last Touch, or the zero time.
func (r *Runner) LastActivity() time.Time {
	n := r.lastActivity.Load()
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

// Health reports the run state with the component's error count.
func (r *Runner) Health(errorCount int64) component.HealthStatus {
	r.mu.Lock()
	running, started := r.running, r.started
	r.mu.Unlock()

	status := component.HealthStatus{
		Healthy:    running,
		LastCheck:  time.Now(),
		ErrorCount: int(errorCount),
		Status:     "stopped",
	}
	if running {
		status.Status = "running"
		status.Uptime = time.Since(started)
	}
	return status
}

// Flow reports the error rate over handled messages and the last activity.
func (r *Runner) Flow(handled, failed int64) component.FlowMetrics {
	var rate float64
	if total := handled + failed; total > 0 {
		rate = float64(failed) / float64(total)
	}
	return component.FlowMetrics{
		ErrorRate:    rate,
		LastActivity: r.LastActivity(),
	}
}
