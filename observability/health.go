package observability

import "context"

// HealthStatus represents the health state of a component.
type HealthStatus string

const (
	HealthStatusUp       HealthStatus = "up"
	HealthStatusDown     HealthStatus = "down"
	HealthStatusDegraded HealthStatus = "degraded"
)

// Health describes the state of one dispatch component, for example the
// resolver before and after the MPI library has been identified.
type Health struct {
	Name    string            `json:"name" yaml:"name"`
	Status  HealthStatus      `json:"status" yaml:"status"`
	Message string            `json:"message,omitempty" yaml:"message,omitempty"`
	Details map[string]string `json:"details,omitempty" yaml:"details,omitempty"`
}

// ServiceHealth aggregates component health.
type ServiceHealth struct {
	Service    string       `json:"service" yaml:"service"`
	Status     HealthStatus `json:"status" yaml:"status"`
	Version    string       `json:"version,omitempty" yaml:"version,omitempty"`
	Components []Health     `json:"components,omitempty" yaml:"components,omitempty"`
}

// HealthChecker is implemented by components that can report their health.
type HealthChecker interface {
	CheckHealth(ctx context.Context) Health
}

// NewServiceHealth creates a ServiceHealth with status up.
func NewServiceHealth(service, version string) *ServiceHealth {
	return &ServiceHealth{
		Service: service,
		Status:  HealthStatusUp,
		Version: version,
	}
}

// AddComponent adds a component health result and degrades overall status if needed.
func (sh *ServiceHealth) AddComponent(ch Health) {
	sh.Components = append(sh.Components, ch)

	switch ch.Status {
	case HealthStatusDown:
		sh.Status = HealthStatusDown
	case HealthStatusDegraded:
		if sh.Status != HealthStatusDown {
			sh.Status = HealthStatusDegraded
		}
	}
}
