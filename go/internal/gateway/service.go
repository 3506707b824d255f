package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/squadlink-dev/squadlink/go/internal/bus"
	"github.com/squadlink-dev/squadlink/go/internal/chat"
	"github.com/squadlink-dev/squadlink/go/internal/protocol"
	"github.com/squadlink-dev/squadlink/go/internal/repl"
	"github.com/squadlink-dev/squadlink/go/internal/team"
	"github.com/squadlink-dev/squadlink/go/internal/team/events"
	"github.com/squadlink-dev/squadlink/go/internal/vehicle"
)

// Config holds gateway service configuration.
type Config struct {
	ConnectionConfig ConnectionConfig
	SyncInterval     time.Duration
}

// DefaultConfig returns the gateway defaults: standard websocket
// tuning and a ten second full-sync cadence.
func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
		SyncInterval:     10 * time.Second,
	}
}

// Service is the server-side replication shim: it executes client
// commands against the authoritative directory, routes confirmed
// events out to connections, and pushes periodic full syncs so client
// mirrors converge even after missed deltas.
type Service struct {
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	teams             repl.TeamService
	chat              *chat.Relay
	locks             *vehicle.Locks
	bus               bus.Bus
	clock             clockwork.Clock
	config            Config
}

// NewService wires the gateway over the server-side team service.
func NewService(config Config, teams repl.TeamService, chatRelay *chat.Relay, locks *vehicle.Locks, b bus.Bus, clock clockwork.Clock) *Service {
	s := &Service{
		teams:  teams,
		chat:   chatRelay,
		locks:  locks,
		bus:    b,
		clock:  clock,
		config: config,
	}
	cm := NewConnectionManager(config.ConnectionConfig, s)
	cm.onConnect = s.handlePlayerConnected
	cm.onDisconnect = s.handlePlayerDisconnected
	s.connectionManager = cm
	s.wsHandler = NewWebSocketHandler(cm)
	return s
}

// Start runs the gateway until the context is cancelled.
func (s *Service) Start(ctx context.Context) error {
	log.Info().Msg("starting team gateway service")

	// Inbound events are only ever routed to clients here; the server
	// never applies its own broadcasts to the directory.
	if err := s.bus.Subscribe(ctx, func(ctx context.Context, e *events.Event) {
		s.connectionManager.Route(e)
	}); err != nil {
		return err
	}

	go s.connectionManager.Start(ctx)
	go s.runSync(ctx)

	<-ctx.Done()
	log.Info().Msg("team gateway service shutting down")
	return nil
}

// Handler returns the HTTP-facing websocket handler.
func (s *Service) Handler() *WebSocketHandler {
	return s.wsHandler
}

// Stats returns gateway statistics.
func (s *Service) Stats() map[string]interface{} {
	stats := s.connectionManager.Stats()
	stats["service"] = "team_gateway"
	return stats
}

var _ CommandHandler = (*Service)(nil)

// HandleCommand executes one client request against the authoritative
// directory and returns the direct reply. The confirmed state change
// itself reaches clients as events via the bus.
func (s *Service) HandleCommand(ctx context.Context, playerID, playerName string, cmd protocol.Command) protocol.CommandResult {
	result := protocol.CommandResult{
		RequestID: cmd.RequestID,
		Op:        cmd.Op,
	}

	var err error
	switch cmd.Op {
	case protocol.OpCreateTeam:
		var teamID int
		teamID, err = s.teams.CreateTeam(ctx, playerID, playerName)
		result.TeamID = teamID

	case protocol.OpJoinTeam:
		err = s.teams.JoinTeam(ctx, cmd.TeamID, playerID, playerName)
		if err == nil {
			result.TeamID = cmd.TeamID
		}

	case protocol.OpLeaveTeam:
		var teamID int
		teamID, err = s.teams.LeaveTeam(ctx, playerID)
		result.TeamID = teamID
		if err == nil {
			s.releaseTeamLocks(teamID)
		}

	case protocol.OpSendInvitation:
		_, err = s.teams.SendInvitation(ctx, playerID, cmd.ReceiverID, cmd.ReceiverName)

	case protocol.OpAcceptInvitation:
		var teamID int
		teamID, err = s.teams.AcceptInvitation(ctx, team.InvitationID(cmd.InvitationID), playerID)
		result.TeamID = teamID

	case protocol.OpDeclineInvitation:
		err = s.teams.DeclineInvitation(ctx, team.InvitationID(cmd.InvitationID), playerID)

	case protocol.OpChatMessage:
		err = s.chat.Send(playerID, cmd.Text)

	case protocol.OpLockVehicle:
		err = s.locks.Lock(cmd.VehicleID, playerID)

	case protocol.OpUnlockVehicle:
		err = s.locks.Unlock(cmd.VehicleID, playerID)

	default:
		result.ErrorCode = "unknown_op"
		log.Warn().Str("op", string(cmd.Op)).Str("player_id", playerID).Msg("unknown command op")
		return result
	}

	if err != nil {
		result.ErrorCode = errorCode(err)
		log.Debug().
			Str("op", string(cmd.Op)).
			Str("player_id", playerID).
			Str("error_code", result.ErrorCode).
			Msg("command rejected")
		return result
	}

	result.OK = true
	return result
}

func (s *Service) handlePlayerConnected(playerID string) {
	s.syncPlayer(playerID)
	s.resendInvitations(playerID)
}

// handlePlayerDisconnected removes the player from their team, as the
// legacy world module did on disconnect.
func (s *Service) handlePlayerDisconnected(playerID string) {
	if s.teams.PlayerTeam(playerID) == 0 {
		return
	}
	teamID, err := s.teams.LeaveTeam(context.Background(), playerID)
	if err != nil {
		log.Error().Err(err).Str("player_id", playerID).Msg("failed to remove disconnected player from team")
		return
	}
	s.releaseTeamLocks(teamID)
}

// releaseTeamLocks frees a dissolved team's vehicle locks. Team IDs
// are never reused, so a dead team's locks would otherwise be stuck
// forever.
func (s *Service) releaseTeamLocks(teamID int) {
	if !s.teams.TeamExists(teamID) {
		s.locks.ReleaseTeam(teamID)
	}
}

// syncPlayer pushes the full membership list of the player's team to
// that player.
func (s *Service) syncPlayer(playerID string) {
	teamID := s.teams.PlayerTeam(playerID)
	if teamID == 0 {
		return
	}

	members := s.teams.TeamMembers(teamID)
	infos := make([]events.MemberInfo, len(members))
	for i, mem := range members {
		infos[i] = events.MemberInfo{
			PlayerID:   mem.PlayerID,
			PlayerName: mem.PlayerName,
			IsLeader:   mem.IsLeader,
			JoinedAt:   mem.JoinedAt,
		}
	}

	e, err := events.New(events.TypeTeamSync, teamID, s.clock.Now(), events.TeamSyncPayload{
		TeamID:  teamID,
		Members: infos,
	})
	if err != nil {
		log.Error().Err(err).Str("player_id", playerID).Msg("failed to build sync event")
		return
	}
	s.connectionManager.SendTo(playerID, e)
}

// resendInvitations replays the player's pending invitations after a
// (re)connect so the mirror does not miss offers issued while offline.
func (s *Service) resendInvitations(playerID string) {
	for _, inv := range s.teams.PendingInvitations(playerID) {
		e, err := events.New(events.TypeInvitationSent, inv.TeamID, s.clock.Now(), events.InvitationSentPayload{
			Invitation: events.InvitationInfo{
				InvitationID: string(inv.ID),
				TeamID:       inv.TeamID,
				SenderID:     inv.SenderID,
				SenderName:   inv.SenderName,
				ReceiverID:   inv.ReceiverID,
				ReceiverName: inv.ReceiverName,
				CreatedAt:    inv.CreatedAt,
			},
		})
		if err != nil {
			log.Error().Err(err).Str("player_id", playerID).Msg("failed to build invitation replay event")
			continue
		}
		s.connectionManager.SendTo(playerID, e)
	}
}

func (s *Service) runSync(ctx context.Context) {
	log.Info().Dur("interval", s.config.SyncInterval).Msg("periodic team sync started")

	ticker := s.clock.NewTicker(s.config.SyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("periodic team sync shutting down")
			return
		case <-ticker.Chan():
			for _, playerID := range s.connectionManager.ConnectedPlayers() {
				s.syncPlayer(playerID)
			}
		}
	}
}

// errorCode maps domain errors from every consumer onto stable wire
// codes.
func errorCode(err error) string {
	switch {
	case errors.Is(err, vehicle.ErrAlreadyLocked):
		return "vehicle_already_locked"
	case errors.Is(err, vehicle.ErrNotLocked):
		return "vehicle_not_locked"
	case errors.Is(err, vehicle.ErrNotAuthorized):
		return "vehicle_not_authorized"
	case errors.Is(err, chat.ErrEmptyMessage):
		return "empty_message"
	default:
		return team.ErrorCode(err)
	}
}
