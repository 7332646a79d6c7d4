package dto

import "time"

// WelcomeResponse describes the API root
type WelcomeResponse struct {
	Status        int               `json:"status" example:"200"`
	Message       string            `json:"message"`
	Description   string            `json:"description"`
	Version       string            `json:"version" example:"1.0.0"`
	Endpoints     map[string]string `json:"endpoints"`
	Documentation string            `json:"documentation"`
}

// ComponentHealth is the status of one dependency
type ComponentHealth struct {
	Status string `json:"status" example:"up"`
	Error  string `json:"error,omitempty"`
}

// HealthResponse aggregates dependency checks
type HealthResponse struct {
	Status    string                     `json:"status" example:"healthy"`
	Timestamp time.Time                  `json:"timestamp"`
	Version   string                     `json:"version"`
	Checks    map[string]ComponentHealth `json:"checks"`
}

// StoreProbeResponse reports a write and read round trip against the catalog store
type StoreProbeResponse struct {
	Backend   string    `json:"backend" example:"postgres"`
	ProbeSeq  int64     `json:"probeSeq"`
	Timestamp time.Time `json:"timestamp"`
}
