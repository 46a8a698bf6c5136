package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"
)

type fakePinger struct {
	err error
}

func (p *fakePinger) Ping() error { return p.err }

func TestHealthz(t *testing.T) {
	t.Run("healthy database", func(t *testing.T) {
		h := NewHealthHandler(&fakePinger{})
		out, err := h.Healthz(context.Background(), nil)
		if err != nil {
			t.Fatalf("Healthz() error = %v", err)
		}
		if !out.Body.OK || out.Body.Data.Status != "ok" {
			t.Errorf("Healthz() body = %+v, want ok", out.Body)
		}
	})

	t.Run("unreachable database", func(t *testing.T) {
		h := NewHealthHandler(&fakePinger{err: errors.New("connection refused")})
		_, err := h.Healthz(context.Background(), nil)
		apiErr, ok := err.(*APIError)
		if !ok {
			t.Fatalf("Healthz() error = %T, want *APIError", err)
		}
		if apiErr.Status != http.StatusServiceUnavailable {
			t.Errorf("Status = %d, want %d", apiErr.Status, http.StatusServiceUnavailable)
		}
	})

	t.Run("nil pinger reports liveness only", func(t *testing.T) {
		h := NewHealthHandler(nil)
		out, err := h.Healthz(context.Background(), nil)
		if err != nil {
			t.Fatalf("Healthz() error = %v", err)
		}
		if !out.Body.OK {
			t.Error("Healthz() not ok with nil pinger")
		}
	})
}

func TestVersion(t *testing.T) {
	out, err := Version(context.Background(), nil)
	if err != nil {
		t.Fatalf("Version() error = %v", err)
	}
	if !out.Body.OK {
		t.Error("Version() not ok")
	}
	if out.Body.Data.Version == "" {
		t.Error("Version() returned empty version")
	}
	if out.Body.Data.GoVersion == "" {
		t.Error("Version() returned empty go version")
	}
}
