// Package health implements the liveness, readiness and version endpoints.
//
// Liveness (/health) answers 200 whenever the process can serve HTTP.
// Readiness (/ready) runs every registered check concurrently, each under
// its own timeout, and answers 503 when any check fails:
//
//	checker := health.New(cfg.Telemetry.Health.CheckTimeout)
//	checker.RegisterCheck("providers", health.ProvidersCheck(manager, 1))
//	checker.RegisterCheck("audit", health.PingCheck(store))
//	checker.Register(mux, health.VersionInfo{Version: version.Version})
//
// Example readiness response:
//
//	{
//	    "status": "degraded",
//	    "checks": {
//	        "providers": {"status": "unhealthy", "message": "0 of 3 providers healthy, need 1"},
//	        "audit": {"status": "ok", "duration_ms": 0.4}
//	    },
//	    "timestamp": "2026-01-12T10:30:00Z"
//	}
package health
