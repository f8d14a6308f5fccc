package health

import (
	"context"
	"sync"
	"time"

	"github.com/vietddude/gridpulse/internal/resilience"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Health(ctx context.Context) error
}

// DepthReader reports the arrival queue backlog.
type DepthReader interface {
	QueueDepth(ctx context.Context) (int64, error)
}

// Monitor aggregates health status from the pipeline's dependencies. Any
// dependency may be nil when the deployment runs without it.
type Monitor struct {
	db      Pinger
	redis   Pinger
	depth   DepthReader
	breaker *resilience.Breaker

	mu         sync.RWMutex
	lastCheck  time.Time
	lastReport *Report
}

// NewMonitor creates a new health monitor.
func NewMonitor(db, redis Pinger, depth DepthReader, breaker *resilience.Breaker) *Monitor {
	return &Monitor{
		db:      db,
		redis:   redis,
		depth:   depth,
		breaker: breaker,
	}
}

// CheckHealth performs a health check across dependencies.
func (m *Monitor) CheckHealth(ctx context.Context) *Report {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Rate limit checks (max once per 10s) to avoid hammering dependencies
	if time.Since(m.lastCheck) < 10*time.Second && m.lastReport != nil {
		return m.lastReport
	}

	report := &Report{
		Status:     StatusHealthy,
		Components: make(map[string]ComponentHealth),
		Breakers:   make(map[string]string),
	}

	m.checkPinger(ctx, report, "database", m.db)
	m.checkPinger(ctx, report, "redis", m.redis)

	if m.depth != nil {
		if depth, err := m.depth.QueueDepth(ctx); err == nil {
			report.QueueDepth = depth
		}
	}

	if m.breaker != nil {
		for resource, state := range m.breaker.Snapshot() {
			report.Breakers[resource] = string(state)
			// An open circuit means a downstream is refusing work.
			if state == resilience.StateOpen {
				report.Status = StatusCritical
			}
		}
	}

	m.lastCheck = time.Now()
	m.lastReport = report
	return report
}

func (m *Monitor) checkPinger(ctx context.Context, report *Report, name string, p Pinger) {
	if p == nil {
		return
	}

	component := ComponentHealth{Name: name, Status: StatusHealthy}
	if err := p.Health(ctx); err != nil {
		component.Status = StatusDegraded
		component.Detail = err.Error()
		if report.Status == StatusHealthy {
			report.Status = StatusDegraded
		}
	}
	report.Components[name] = component
}
