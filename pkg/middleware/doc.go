// Package middleware provides the HTTP middleware of the domsync server.
//
// This package includes:
//   - Prometheus request metrics
//   - OpenTelemetry request tracing
//   - Structured request logging
//
// Every middleware has the func(http.Handler) http.Handler shape, so it
// plugs into a chi router:
//
//	r := chi.NewRouter()
//	r.Use(
//	    middleware.OpenTelemetry(),
//	    middleware.Prometheus(middleware.WithRegistry(registry)),
//	    middleware.Logger(logger),
//	)
//
// Routes are labelled with their chi pattern ("/ws", "/metrics"), never the
// raw request path, to keep label cardinality bounded.
//
// # Websocket Upgrades
//
// An upgraded request stays inside the handler for the lifetime of the
// session, so its recorded duration is the session length.
package middleware
