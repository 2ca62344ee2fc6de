// Package api hosts the operator HTTP server started alongside a scrapper
// command. Notable routes:
//   - GET /healthz and /readyz for probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/markers?pattern=... to inspect visited page markers.
package api
