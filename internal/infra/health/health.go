// Package health provides system health monitoring and status reporting.
package health

// SystemStatus represents the overall health state of the system or a component.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusDegraded SystemStatus = "degraded"
	StatusCritical SystemStatus = "critical"
)

// ComponentHealth contains the state of one dependency.
type ComponentHealth struct {
	Name   string       `json:"name"`
	Status SystemStatus `json:"status"`
	Detail string       `json:"detail,omitempty"`
}

// Report contains the full system health report.
type Report struct {
	Status     SystemStatus               `json:"status"`
	Components map[string]ComponentHealth `json:"components"`
	Breakers   map[string]string          `json:"breakers"`
	QueueDepth int64                      `json:"queue_depth"`
}
