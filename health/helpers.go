package health

import "time"

// NewHealthy creates a new healthy status
func NewHealthy(service, message string) Status {
	return Status{
		Service:   service,
		Healthy:   true,
		Status:    "healthy",
		Message:   message,
		Timestamp: time.Now(),
	}
}

// NewUnhealthy creates a new unhealthy status
func NewUnhealthy(service, message string) Status {
	return Status{
		Service:   service,
		Healthy:   false,
		Status:    "unhealthy",
		Message:   message,
		Timestamp: time.Now(),
	}
}

// NewDegraded creates a new degraded status
func NewDegraded(service, message string) Status {
	return Status{
		Service:   service,
		Healthy:   false,
		Status:    "degraded",
		Message:   message,
		Timestamp: time.Now(),
	}
}

// Aggregate creates a status by aggregating sub-statuses.
// The aggregation rules are:
//   - If all sub-statuses are healthy, the aggregate is healthy
//   - If any sub-status is unhealthy, the aggregate is unhealthy
//   - If none is unhealthy but at least one is degraded, the aggregate is degraded
func Aggregate(service string, subStatuses []Status) Status {
	if len(subStatuses) == 0 {
		return NewHealthy(service, "No services to aggregate")
	}

	hasUnhealthy := false
	hasDegraded := false

	for _, sub := range subStatuses {
		if sub.IsUnhealthy() {
			hasUnhealthy = true
		} else if sub.IsDegraded() {
			hasDegraded = true
		}
	}

	var status Status
	if hasUnhealthy {
		status = NewUnhealthy(service, "One or more services are unhealthy")
	} else if hasDegraded {
		status = NewDegraded(service, "One or more services are degraded")
	} else {
		status = NewHealthy(service, "All services are healthy")
	}

	status.SubStatuses = make([]Status, len(subStatuses))
	copy(status.SubStatuses, subStatuses)

	return status
}
