package internal

import (
	"encoding/json"
	"net/http"
)

// Server ties the routing core to its HTTP surface: the websocket endpoint,
// the room list, metrics, and the health probe.
type Server struct {
	rooms      RoomSet
	registry   *Registry
	fanout     *Fanout
	directory  *DirectoryPublisher
	controller *Controller
	metrics    *Metrics
	limiter    *RateLimiter
}

func NewServer(rooms RoomSet) *Server {
	registry := NewRegistry()
	fanout := NewFanout(registry)
	directory := NewDirectoryPublisher(registry, fanout)
	metrics := NewMetrics()
	return &Server{
		rooms:      rooms,
		registry:   registry,
		fanout:     fanout,
		directory:  directory,
		controller: NewController(rooms, registry, fanout, directory, metrics),
		metrics:    metrics,
		limiter:    NewRateLimiter(rateLimitBurst, rateLimitWindow),
	}
}

// HandleRooms reports the closed room set so clients can offer a picker
// without hardcoding the configuration.
func (server *Server) HandleRooms(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"rooms": server.rooms.Names()})
}

func (server *Server) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok", "version": Version})
}

func (server *Server) MetricsHandler() http.Handler {
	return server.metrics
}
