// Package handlers contains HTTP handler interfaces, implementations, and middleware.
//
// This package provides:
//   - Health check interfaces and implementations
//   - Bearer token authentication that yields an access.Caller
//   - Reusable middleware components
//
// # Health Checks
//
// The HealthChecker interface allows registering multiple named health checks
// that are executed in parallel:
//
//	checker := handlers.NewCompositeHealthChecker("v1.0.0")
//	checker.AddCheck("postgres", handlers.NewPingCheck(db))
//	checker.AddCheck("redis", handlers.NewPingCheck(cache))
//
//	status := checker.Check(ctx)
//	if !status.Healthy {
//	    log.Printf("Health check failed: %s", status.Message)
//	}
//
// # Authentication
//
// Tokens are HS256 JWTs with a username claim and a roles claim:
//
//	auth, _ := handlers.NewJWTAuth(handlers.JWTConfig{Secret: secret})
//	protected := auth.Middleware(writeUnauthorized)(mux)
//
// Handlers read the caller back with handlers.CallerFromContext and pass it to
// the application layer, which checks roles before doing any work.
package handlers
