package router

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/user/asset-pipeline/internal/delivery/http/handler"
	"github.com/user/asset-pipeline/internal/delivery/http/middleware"
)

func New(h *handler.Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", h.HandleHealthCheck)
	mux.HandleFunc("POST /api/domains", h.HandleSubmitDomain)
	mux.HandleFunc("GET /api/domains/{id}", h.HandleGetDomainStatus)
	mux.HandleFunc("DELETE /api/domains/{id}", h.HandleDeleteDomain)
	mux.HandleFunc("POST /api/domains/{id}/urls", h.HandleSeedURL)
	mux.HandleFunc("GET /api/urls/{id}", h.HandleGetURLStatus)
	mux.HandleFunc("GET /api/assets/{id}", h.HandleGetAssetStatus)
	mux.HandleFunc("POST /api/sweeps", h.HandleTriggerSweep)

	// Prometheus metrics endpoint
	mux.Handle("/metrics", promhttp.Handler())

	// Apply middlewares
	var chainedHandler http.Handler = mux
	chainedHandler = middleware.Metrics(chainedHandler)
	chainedHandler = middleware.Logging(chainedHandler)

	return chainedHandler
}
