package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

// WebSocketHandler serves websocket upgrade requests for room connections.
type WebSocketHandler struct {
	connectionManager *ConnectionManager
}

func NewWebSocketHandler(cm *ConnectionManager) *WebSocketHandler {
	return &WebSocketHandler{connectionManager: cm}
}

// HandleRoomConnection upgrades a client into a room. The room name comes
// from the query string and stays fixed for the connection's lifetime.
func (h *WebSocketHandler) HandleRoomConnection(w http.ResponseWriter, r *http.Request) {
	roomName := r.URL.Query().Get("roomName")
	if roomName == "" {
		http.Error(w, "roomName is required", http.StatusBadRequest)
		return
	}

	userName := r.URL.Query().Get("userName")
	if userName == "" {
		userName = "Anonymous"
	}

	if err := h.connectionManager.UpgradeConnection(w, r, roomName, userName); err != nil {
		log.Error().
			Err(err).
			Str("room", roomName).
			Str("user", userName).
			Msg("failed to upgrade room connection")
		http.Error(w, "failed to upgrade connection", http.StatusInternalServerError)
		return
	}
}

// HandleConnectionStats reports live connection counts.
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	total, rooms := h.connectionManager.Stats()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{
		"total_connections": total,
		"active_rooms":      rooms,
	})
}

// RegisterRoutes registers websocket routes on an HTTP mux.
func (h *WebSocketHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/room", h.HandleRoomConnection)
	mux.HandleFunc("/ws/stats", h.HandleConnectionStats)
}
