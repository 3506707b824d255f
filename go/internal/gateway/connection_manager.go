package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/squadlink-dev/squadlink/go/internal/protocol"
	"github.com/squadlink-dev/squadlink/go/internal/team/events"
)

// CommandHandler executes one inbound client command and produces the
// direct reply. Implementations must be safe for concurrent use; the
// directory's own mutex is the serialization point.
type CommandHandler interface {
	HandleCommand(ctx context.Context, playerID, playerName string, cmd protocol.Command) protocol.CommandResult
}

// ConnectionManager owns the websocket connections, one per player.
type ConnectionManager struct {
	connections map[string]*Connection
	mu          sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig
	handler  CommandHandler

	// Lifecycle hooks set by the gateway service.
	onConnect    func(playerID string)
	onDisconnect func(playerID string)

	broadcastCh chan routedMessage
}

// Connection is one player's websocket session.
type Connection struct {
	ID         string
	PlayerID   string
	PlayerName string
	Conn       *websocket.Conn
	Send       chan []byte
	Manager    *ConnectionManager

	// done closes on unregister. Send itself is never closed, so a
	// delivery racing the unregister cannot hit a closed channel.
	done chan struct{}

	ConnectedAt time.Time
	LastPing    time.Time
}

// ConnectionConfig holds websocket tuning knobs.
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// routedMessage carries an event toward connections. Empty targets
// means broadcast.
type routedMessage struct {
	event   *events.Event
	targets []string
}

// DefaultConnectionConfig returns default websocket configuration.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  4096,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// Allow all origins in development - restrict in production
			return true
		},
	}
}

// NewConnectionManager creates a connection manager.
func NewConnectionManager(config ConnectionConfig, handler CommandHandler) *ConnectionManager {
	return &ConnectionManager{
		connections: make(map[string]*Connection),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		handler:     handler,
		broadcastCh: make(chan routedMessage, 1000),
	}
}

// Start processes routed events until the context is cancelled.
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			return
		case message := <-cm.broadcastCh:
			cm.deliver(message)
		}
	}
}

// UpgradeConnection upgrades an HTTP request to a player websocket
// session. A second connection for the same player replaces the first.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, playerID, playerName string) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade websocket connection")
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		PlayerID:    playerID,
		PlayerName:  playerName,
		Conn:        conn,
		Send:        make(chan []byte, 256),
		done:        make(chan struct{}),
		Manager:     cm,
		ConnectedAt: time.Now(),
		LastPing:    time.Now(),
	}

	cm.registerConnection(connection)

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("player_id", playerID).
		Msg("websocket connection established")

	if cm.onConnect != nil {
		cm.onConnect(playerID)
	}
	return nil
}

func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	previous := cm.connections[conn.PlayerID]
	cm.connections[conn.PlayerID] = conn
	cm.mu.Unlock()

	if previous != nil {
		// The old pumps notice the closed socket and unregister
		// themselves; the mapping already points at the new session.
		previous.Conn.Close()
		log.Info().
			Str("player_id", conn.PlayerID).
			Str("replaced_connection_id", previous.ID).
			Msg("replaced existing connection")
	}

	log.Debug().
		Str("connection_id", conn.ID).
		Str("player_id", conn.PlayerID).
		Msg("connection registered")
}

func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	current, exists := cm.connections[conn.PlayerID]
	replaced := exists && current != conn
	if exists && !replaced {
		delete(cm.connections, conn.PlayerID)
		close(conn.done)
	}
	cm.mu.Unlock()

	if !exists || replaced {
		return
	}

	log.Info().
		Str("connection_id", conn.ID).
		Str("player_id", conn.PlayerID).
		Msg("connection unregistered")

	if cm.onDisconnect != nil {
		cm.onDisconnect(conn.PlayerID)
	}
}

// Route queues an event for delivery according to its targets.
func (cm *ConnectionManager) Route(e *events.Event) {
	select {
	case cm.broadcastCh <- routedMessage{event: e, targets: e.Targets}:
	default:
		log.Warn().Str("event_type", string(e.Type)).Msg("broadcast channel full, dropping event")
	}
}

// SendTo queues an event for a single player regardless of the
// event's own target list.
func (cm *ConnectionManager) SendTo(playerID string, e *events.Event) {
	select {
	case cm.broadcastCh <- routedMessage{event: e, targets: []string{playerID}}:
	default:
		log.Warn().
			Str("event_type", string(e.Type)).
			Str("player_id", playerID).
			Msg("broadcast channel full, dropping event")
	}
}

func (cm *ConnectionManager) deliver(message routedMessage) {
	cm.mu.RLock()
	var targets []*Connection
	if len(message.targets) == 0 {
		targets = make([]*Connection, 0, len(cm.connections))
		for _, conn := range cm.connections {
			targets = append(targets, conn)
		}
	} else {
		for _, playerID := range message.targets {
			if conn, ok := cm.connections[playerID]; ok {
				targets = append(targets, conn)
			}
		}
	}
	cm.mu.RUnlock()

	if len(targets) == 0 {
		return
	}

	data, err := json.Marshal(protocol.ServerMessage{
		Kind:  protocol.KindEvent,
		Event: message.event,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event for delivery")
		return
	}

	for _, conn := range targets {
		select {
		case conn.Send <- data:
		default:
			log.Warn().
				Str("connection_id", conn.ID).
				Str("player_id", conn.PlayerID).
				Msg("connection send buffer full, closing connection")
			cm.unregisterConnection(conn)
			conn.Conn.Close()
		}
	}

	log.Debug().
		Str("event_type", string(message.event.Type)).
		Int("connections", len(targets)).
		Msg("event delivered")
}

// ConnectedPlayers returns the IDs of all players with a live session.
func (cm *ConnectionManager) ConnectedPlayers() []string {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	players := make([]string, 0, len(cm.connections))
	for playerID := range cm.connections {
		players = append(players, playerID)
	}
	return players
}

// Stats returns counts about active sessions.
func (cm *ConnectionManager) Stats() map[string]interface{} {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	return map[string]interface{}{
		"total_connections": len(cm.connections),
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.unregisterConnection(c)
	}()

	for {
		select {
		case <-c.done:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case message := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to websocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to send ping")
				return
			}
			c.LastPing = time.Now()
		}
	}
}

func (c *Connection) readPump() {
	defer func() {
		c.Manager.unregisterConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		c.LastPing = time.Now()
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected websocket close error")
			}
			break
		}

		c.handleClientMessage(message)
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}

// handleClientMessage decodes and executes one inbound command, then
// replies with the direct result. Events carrying the state change go
// out through the bus, not here.
func (c *Connection) handleClientMessage(message []byte) {
	var cmd protocol.Command
	if err := json.Unmarshal(message, &cmd); err != nil {
		log.Warn().
			Err(err).
			Str("connection_id", c.ID).
			Str("player_id", c.PlayerID).
			Msg("failed to decode client command")
		return
	}

	result := c.Manager.handler.HandleCommand(context.Background(), c.PlayerID, c.PlayerName, cmd)

	data, err := json.Marshal(protocol.ServerMessage{
		Kind:   protocol.KindResult,
		Result: &result,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal command result")
		return
	}

	select {
	case c.Send <- data:
	default:
		log.Warn().
			Str("connection_id", c.ID).
			Str("player_id", c.PlayerID).
			Msg("connection send buffer full, dropping result")
	}
}
