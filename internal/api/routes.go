package api

import (
	"net/http"

	"modstream/internal/version"
)

// registerRoutes registers all API routes
func (s *Server) registerRoutes() {
	s.router.Get("/", s.handleRoot)
	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/bundles", s.handleListBundles)
	s.router.Get("/bundles/{target}", s.handleBundle)

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NotFound(w, "no route for "+r.URL.Path)
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, map[string]string{"error": "method not allowed", "code": "METHOD_NOT_ALLOWED"}, http.StatusMethodNotAllowed)
	})
}

// handleRoot lists the available endpoints
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"name":    "modstream",
		"version": version.Version,
		"endpoints": []string{
			"GET /healthz - Health check",
			"GET /bundles - List bundle targets",
			"GET /bundles/{target} - Stream a bundle (application/x-modstream)",
		},
	}

	WriteJSON(w, response, http.StatusOK)
}
