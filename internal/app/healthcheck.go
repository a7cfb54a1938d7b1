package app

import (
	"fmt"
	"net/http"
)

// healthHandler answers liveness probes.
func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	a.logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

// healthCheckServer builds the health check HTTP server, or returns nil when
// it is disabled.
func (a *App) healthCheckServer() *http.Server {
	a.logger.Debug("Configuring health check server.")
	if a.config.HealthcheckPort <= 0 {
		a.logger.Warn("Health check server not started: disabled")
		return nil
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", a.healthHandler)
	return &http.Server{
		Addr:    fmt.Sprintf(":%d", a.config.HealthcheckPort),
		Handler: mux,
	}
}
