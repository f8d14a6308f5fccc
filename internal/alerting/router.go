package alerting

import "github.com/vietddude/gridpulse/internal/core/domain"

// Delivery targets resolved by the dispatcher.
const (
	TargetAll     = "all"
	TargetPrimary = "primary"
)

// Input is either an anomaly context (Record set) or an error context
// (Event set).
type Input struct {
	Record *domain.EnergyRecord
	Event  *domain.ErrorEvent
}

// Route is the routing outcome: severity plus the channel set to deliver to.
// DigestOnly routes are counted for the daily digest but not dispatched
// immediately.
type Route struct {
	Severity   domain.Severity
	Target     string
	DigestOnly bool
}

// rule is one entry of the ordered routing table. First match wins.
type rule struct {
	name  string
	match func(Input) bool
	route Route
}

var routingTable = []rule{
	{
		name: "persistence outage",
		match: func(in Input) bool {
			if in.Event == nil {
				return false
			}
			if in.Event.Kind == domain.ErrorKindCircuitOpen {
				return true
			}
			return in.Event.Kind == domain.ErrorKindPermanent &&
				in.Event.Context.Resource == domain.ResourceEnergyStore
		},
		route: Route{Severity: domain.SeverityCritical, Target: TargetAll},
	},
	{
		name: "retries exhausted",
		match: func(in Input) bool {
			if in.Event == nil {
				return false
			}
			switch in.Event.Kind {
			case domain.ErrorKindTransient, domain.ErrorKindThrottling, domain.ErrorKindUnknown:
				return true
			}
			return false
		},
		route: Route{Severity: domain.SeverityHigh, Target: TargetPrimary},
	},
	{
		name: "implausible reading",
		match: func(in Input) bool {
			if in.Record == nil {
				return false
			}
			return in.Record.HasReason(domain.ReasonNegativeNet) ||
				in.Record.HasReason(domain.ReasonNegativeGeneration) ||
				in.Record.HasReason(domain.ReasonNegativeConsumption)
		},
		route: Route{Severity: domain.SeverityMedium, Target: TargetPrimary},
	},
	{
		name: "incomplete reading",
		match: func(in Input) bool {
			return in.Record != nil && in.Record.Anomaly &&
				in.Record.HasReason(domain.ReasonMissingField)
		},
		route: Route{Severity: domain.SeverityLow, DigestOnly: true},
	},
}

// RouteFor walks the ordered rule table and returns the first matching route.
// ok is false when no rule matches (no alert).
func RouteFor(in Input) (Route, bool) {
	for _, r := range routingTable {
		if r.match(in) {
			return r.route, true
		}
	}
	return Route{}, false
}
