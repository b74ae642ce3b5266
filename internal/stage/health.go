package stage

import (
	"context"
	"fmt"
)

// HealthChecker is implemented by stages that can report readiness.
type HealthChecker interface {
	HealthCheck(ctx context.Context) Health
}

// Health is a stage readiness report as shown by doctor and logged at
// daemon start.
type Health struct {
	Name   string
	Ready  bool
	Detail string
}

func (h Health) String() string {
	state := "ready"
	if !h.Ready {
		state = "not ready"
	}
	if h.Detail == "" {
		return h.Name + ": " + state
	}
	return fmt.Sprintf("%s: %s (%s)", h.Name, state, h.Detail)
}

// Healthy reports name as ready.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Unhealthy reports name as not ready with detail.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Detail: detail}
}

// MissingBinary reports that the executable a stage shells out to is absent.
func MissingBinary(name, binary string) Health {
	return Unhealthy(name, fmt.Sprintf("binary %q not found", binary))
}
