// Package handlers contains the HTTP handlers for the API. Success bodies
// are {ok:true, data:...}; failures are APIError.
package handlers

import (
	"context"
	"net/http"

	"github.com/jobops/jobops-api/internal/version"
)

// DBPinger is the database health check dependency.
type DBPinger interface {
	Ping() error
}

// HealthHandler serves the liveness/readiness probe.
type HealthHandler struct {
	db DBPinger
}

// NewHealthHandler creates a health handler. db may be nil, in which case
// the probe only reports process liveness.
func NewHealthHandler(db DBPinger) *HealthHandler {
	return &HealthHandler{db: db}
}

// HealthzOutput is the health probe response.
type HealthzOutput struct {
	Body struct {
		OK   bool `json:"ok"`
		Data struct {
			Status string `json:"status"`
		} `json:"data"`
	}
}

// Healthz reports process and database health.
func (h *HealthHandler) Healthz(ctx context.Context, input *struct{}) (*HealthzOutput, error) {
	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			return nil, apiError(http.StatusServiceUnavailable, KindInternal, "database unreachable: "+err.Error())
		}
	}
	out := &HealthzOutput{}
	out.Body.OK = true
	out.Body.Data.Status = "ok"
	return out, nil
}

// VersionOutput is the build information response.
type VersionOutput struct {
	Body struct {
		OK   bool         `json:"ok"`
		Data version.Info `json:"data"`
	}
}

// Version returns build information baked in at link time.
func Version(ctx context.Context, input *struct{}) (*VersionOutput, error) {
	out := &VersionOutput{}
	out.Body.OK = true
	out.Body.Data = version.Get()
	return out, nil
}
