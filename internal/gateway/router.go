package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router.
//
// The scanner WebSocket endpoint sits outside the middleware chain because
// the upgrade needs the raw hijackable ResponseWriter.
func (g *Gateway) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(g.requestIDMiddleware)
		r.Use(g.loggingMiddleware)
		r.Use(g.recoveryMiddleware)
		r.Use(g.bodySizeLimitMiddleware)

		r.Get("/health", g.handleHealth)
		r.Get("/network", g.handleNetwork)

		r.Route("/devices", func(r chi.Router) {
			r.Use(g.hostAuthMiddleware)
			r.Get("/", g.handleListDevices)
			r.Post("/{id}/kick", g.handleKick)
		})
	})

	r.Get(g.cfg.Path, g.handleWebSocket)

	return r
}
