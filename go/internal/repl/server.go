package repl

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/squadlink-dev/squadlink/go/internal/bus"
	"github.com/squadlink-dev/squadlink/go/internal/team"
	"github.com/squadlink-dev/squadlink/go/internal/team/events"
)

// Publisher forwards directory events onto the bus. It satisfies
// team.EventSink; publish failures are logged and dropped, with the
// periodic full sync as the safety net.
type Publisher struct {
	bus bus.Bus
}

// NewPublisher wraps a bus as an event sink.
func NewPublisher(b bus.Bus) *Publisher {
	return &Publisher{bus: b}
}

func (p *Publisher) Emit(e *events.Event) {
	if err := p.bus.Publish(context.Background(), e); err != nil {
		log.Error().Err(err).Str("event_type", string(e.Type)).Msg("failed to publish event")
	}
}

// Server is the authoritative TeamService: it mutates the directory
// synchronously and lets the directory's sink publish the confirmed
// result.
type Server struct {
	mgr *team.Manager
}

// NewServer wraps the authoritative directory.
func NewServer(mgr *team.Manager) *Server {
	return &Server{mgr: mgr}
}

var _ TeamService = (*Server)(nil)

func (s *Server) CreateTeam(ctx context.Context, playerID, playerName string) (int, error) {
	return s.mgr.CreateTeam(playerID, playerName)
}

func (s *Server) JoinTeam(ctx context.Context, teamID int, playerID, playerName string) error {
	return s.mgr.JoinTeam(teamID, playerID, playerName)
}

func (s *Server) LeaveTeam(ctx context.Context, playerID string) (int, error) {
	return s.mgr.LeaveTeam(playerID)
}

func (s *Server) SendInvitation(ctx context.Context, senderID, receiverID, receiverName string) (team.Invitation, error) {
	inv, err := s.mgr.SendInvitation(senderID, receiverID, receiverName)
	if err != nil {
		return team.Invitation{}, err
	}
	return *inv, nil
}

func (s *Server) AcceptInvitation(ctx context.Context, id team.InvitationID, playerID string) (int, error) {
	return s.mgr.AcceptInvitation(id, playerID)
}

func (s *Server) DeclineInvitation(ctx context.Context, id team.InvitationID, playerID string) error {
	return s.mgr.DeclineInvitation(id, playerID)
}

func (s *Server) PlayerTeam(playerID string) int {
	return s.mgr.PlayerTeam(playerID)
}

func (s *Server) IsLeader(playerID string, teamID int) bool {
	return s.mgr.IsLeader(playerID, teamID)
}

func (s *Server) TeamExists(teamID int) bool {
	return s.mgr.TeamExists(teamID)
}

func (s *Server) TeamMembers(teamID int) []team.Member {
	return s.mgr.TeamMembers(teamID)
}

func (s *Server) PendingInvitations(playerID string) []team.Invitation {
	return s.mgr.PendingInvitations(playerID)
}
