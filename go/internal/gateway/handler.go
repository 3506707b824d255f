package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

// WebSocketHandler handles WebSocket upgrade requests for player connections.
type WebSocketHandler struct {
	connectionManager *ConnectionManager
}

// NewWebSocketHandler creates a new WebSocket handler.
func NewWebSocketHandler(cm *ConnectionManager) *WebSocketHandler {
	return &WebSocketHandler{
		connectionManager: cm,
	}
}

// HandlePlayerConnection upgrades a player's websocket session.
func (h *WebSocketHandler) HandlePlayerConnection(w http.ResponseWriter, r *http.Request) {
	// In production the identity would come from a session token; the
	// game server passes the platform player identity directly.
	playerID := r.URL.Query().Get("player_id")
	if playerID == "" {
		http.Error(w, "player_id is required", http.StatusBadRequest)
		return
	}

	playerName := r.URL.Query().Get("player_name")
	if playerName == "" {
		playerName = playerID
	}

	if err := h.connectionManager.UpgradeConnection(w, r, playerID, playerName); err != nil {
		log.Error().
			Err(err).
			Str("player_id", playerID).
			Msg("failed to upgrade WebSocket connection")
		return
	}
}

// HandleConnectionStats returns statistics about active connections.
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	stats := h.connectionManager.Stats()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		log.Error().Err(err).Msg("failed to encode connection stats")
	}
}

// RegisterRoutes registers WebSocket routes with an HTTP mux.
func (h *WebSocketHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", h.HandlePlayerConnection)
	mux.HandleFunc("/ws/stats", h.HandleConnectionStats)
}
