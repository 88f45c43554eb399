package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCheckLiveness(t *testing.T) {
	checker := New(time.Second)

	status := checker.CheckLiveness(context.Background())
	if status.Status != "ok" {
		t.Errorf("liveness status = %q, want ok", status.Status)
	}
	if status.Timestamp.IsZero() {
		t.Error("timestamp not set")
	}
}

func TestCheckReadiness_NoChecks(t *testing.T) {
	checker := New(time.Second)

	status := checker.CheckReadiness(context.Background())
	if status.Status != "ready" {
		t.Errorf("status = %q, want ready with no checks", status.Status)
	}
}

func TestCheckReadiness_AllHealthy(t *testing.T) {
	checker := New(time.Second)
	checker.RegisterCheck("audit", func(ctx context.Context) error { return nil })
	checker.RegisterCheck("bundle", func(ctx context.Context) error { return nil })

	status := checker.CheckReadiness(context.Background())
	if status.Status != "ready" {
		t.Errorf("status = %q, want ready", status.Status)
	}
	if len(status.Checks) != 2 {
		t.Fatalf("got %d check results, want 2", len(status.Checks))
	}
	if status.Checks["audit"].Status != "ok" {
		t.Errorf("audit check = %+v, want ok", status.Checks["audit"])
	}
}

func TestCheckReadiness_Degraded(t *testing.T) {
	checker := New(time.Second)
	checker.RegisterCheck("audit", func(ctx context.Context) error { return nil })
	checker.RegisterCheck("limits", func(ctx context.Context) error {
		return errors.New("database locked")
	})

	status := checker.CheckReadiness(context.Background())
	if status.Status != "degraded" {
		t.Errorf("status = %q, want degraded", status.Status)
	}
	if got := status.Checks["limits"]; got.Status != "unhealthy" || got.Message != "database locked" {
		t.Errorf("limits check = %+v, want unhealthy with message", got)
	}
}

func TestCheckReadiness_Timeout(t *testing.T) {
	checker := New(20 * time.Millisecond)
	checker.RegisterCheck("stuck", func(ctx context.Context) error {
		<-ctx.Done()
		time.Sleep(time.Second)
		return nil
	})

	start := time.Now()
	status := checker.CheckReadiness(context.Background())
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("readiness took %v, stuck check not bounded", elapsed)
	}
	if status.Status != "degraded" {
		t.Errorf("status = %q, want degraded on timeout", status.Status)
	}
	if status.Checks["stuck"].Message != "health check timeout" {
		t.Errorf("message = %q, want timeout message", status.Checks["stuck"].Message)
	}
}

func TestUnregisterCheck(t *testing.T) {
	checker := New(time.Second)
	checker.RegisterCheck("temp", func(ctx context.Context) error { return errors.New("down") })
	checker.UnregisterCheck("temp")

	if names := checker.ListChecks(); len(names) != 0 {
		t.Errorf("ListChecks() = %v, want empty", names)
	}
	if status := checker.CheckReadiness(context.Background()); status.Status != "ready" {
		t.Errorf("status = %q, want ready after unregister", status.Status)
	}
}

func TestLivenessHandler(t *testing.T) {
	checker := New(time.Second)
	handler := checker.LivenessHandler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var status Status
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if status.Status != "ok" {
		t.Errorf("body status = %q, want ok", status.Status)
	}
}

func TestLivenessHandler_RejectsPost(t *testing.T) {
	checker := New(time.Second)
	rec := httptest.NewRecorder()
	checker.LivenessHandler()(rec, httptest.NewRequest(http.MethodPost, "/healthz", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestReadinessHandler_Degraded(t *testing.T) {
	checker := New(time.Second)
	checker.RegisterCheck("bundle", func(ctx context.Context) error {
		return errors.New("no snapshot loaded")
	})

	rec := httptest.NewRecorder()
	checker.ReadinessHandler()(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	var status Status
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if status.Checks["bundle"].Message != "no snapshot loaded" {
		t.Errorf("bundle message = %q", status.Checks["bundle"].Message)
	}
}

func TestVersionHandler(t *testing.T) {
	handler := VersionHandler("1.2.3", "abc123", "2026-01-01T00:00:00Z")

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/version", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var info VersionInfo
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if info.Version != "1.2.3" || info.Commit != "abc123" {
		t.Errorf("info = %+v", info)
	}
	if info.GoVersion == "" {
		t.Error("go version not populated")
	}
}

func TestRegisterMountsEndpoints(t *testing.T) {
	checker := New(time.Second)
	mux := http.NewServeMux()
	checker.Register(mux, "1.0.0", "deadbeef", "2026-01-01")

	for _, path := range []string{"/healthz", "/readyz", "/version"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, rec.Code)
		}
	}
}
