// Package health provides liveness and readiness probes for Warden.
//
// A Checker aggregates named component checks (bundle source, audit
// storage, limit storage) and exposes three HTTP endpoints:
//
//   - /healthz: liveness, always 200 while the process runs
//   - /readyz: readiness, 503 when any registered check fails
//   - /version: build information
//
// Component checks run concurrently with a per-check timeout so one stuck
// dependency cannot hang a probe.
//
//	checker := health.New(5 * time.Second)
//	checker.RegisterCheck("audit", func(ctx context.Context) error {
//	    return store.Ping(ctx)
//	})
//	srv := health.NewServer(cfg.ListenAddress, checker, version, commit, buildTime)
//	go srv.Start()
package health
