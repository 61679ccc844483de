// Package api hosts the ops HTTP server that runs beside a sweep. Routes:
//   - GET /healthz for liveness probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/runs/{run_id} for sweep run status via store.RunRepository.
package api
