package domain

// ============================================================
// Ops API Responses
// ============================================================

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded, unhealthy
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual component.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	Detail      string `json:"detail,omitempty"`
	LastChecked string `json:"lastChecked"`
}

// ControlStats is returned by GET /v1/stats.
type ControlStats struct {
	TotalRequests   int64   `json:"totalRequests"`
	ErrorRequests   int64   `json:"errorRequests"`
	ErrorRate       float64 `json:"errorRate"`
	ServersAdded    int64   `json:"serversAdded"`
	ServersRemoved  int64   `json:"serversRemoved"`
	BrownoutChanges int64   `json:"brownoutChanges"`
	CacheHitRate    float64 `json:"cacheHitRate"`
	Period          string  `json:"period"`
}
