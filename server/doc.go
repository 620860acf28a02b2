// Package server exposes the bridge over HTTP.
//
// Routes:
//
//	GET  /healthz       liveness
//	GET  /api/status    coordinator status and the latest snapshot
//	GET  /api/entities  sensor projections
//	POST /api/reauth    replace the API key of the running entry
//	GET  /metrics       Prometheus exposition
//
// The server runs as a suture service and shuts down gracefully when its
// context is cancelled.
package server
