package server

import (
	"net/http"
	"time"

	"github.com/gatherlens/gatherlens/pkg/serializer"
)

// HealthResponse is the body of the /health and /ready endpoints.
type HealthResponse struct {
	Status    string    `json:"status" yaml:"status"`
	Service   string    `json:"service,omitempty" yaml:"service,omitempty"`
	Version   string    `json:"version,omitempty" yaml:"version,omitempty"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	Reason    string    `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// handleHealth reports process liveness. It answers as soon as the mux is
// serving, independent of whether startup has finished.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	serializer.RespondJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Service:   s.name,
		Version:   s.version,
		Timestamp: time.Now().UTC(),
	})
}

// handleReady reports readiness to accept work. The flag flips once the
// listener is up, so load balancers hold traffic during startup.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	ready := s.ready
	s.mu.RUnlock()

	if !ready {
		serializer.RespondJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status:    "not_ready",
			Service:   s.name,
			Timestamp: time.Now().UTC(),
			Reason:    "service is initializing",
		})
		return
	}

	serializer.RespondJSON(w, http.StatusOK, HealthResponse{
		Status:    "ready",
		Service:   s.name,
		Timestamp: time.Now().UTC(),
	})
}
