package health

import "time"

func newStatus(component, state, message string) Status {
	return Status{
		Component: component,
		Healthy:   state == StateHealthy,
		Status:    state,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// NewHealthy creates a new healthy status
func NewHealthy(component, message string) Status {
	return newStatus(component, StateHealthy, message)
}

// NewUnhealthy creates a new unhealthy status
func NewUnhealthy(component, message string) Status {
	return newStatus(component, StateUnhealthy, message)
}

// NewDegraded creates a new degraded status
func NewDegraded(component, message string) Status {
	return newStatus(component, StateDegraded, message)
}

func rank(state string) int {
	switch state {
	case StateHealthy:
		return 0
	case StateDegraded:
		return 1
	default:
		return 2
	}
}

// Aggregate reports the worst of subs, with subs attached as sub-statuses.
// No subs is healthy.
func Aggregate(component string, subs []Status) Status {
	if len(subs) == 0 {
		return NewHealthy(component, "no live subscriptions")
	}

	worst := StateHealthy
	for _, sub := range subs {
		if rank(sub.Status) > rank(worst) {
			worst = sub.Status
		}
	}

	var message string
	switch worst {
	case StateHealthy:
		message = "all subscriptions healthy"
	case StateDegraded:
		message = "one or more subscriptions reconnecting"
	default:
		worst = StateUnhealthy
		message = "one or more subscriptions failed"
	}

	status := newStatus(component, worst, message)
	status.SubStatuses = make([]Status, len(subs))
	copy(status.SubStatuses, subs)
	return status
}
