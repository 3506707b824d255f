// Package repl splits the team directory across the network: a Server
// that owns the authoritative directory and publishes confirmed
// events, and a Client that forwards requests and mirrors confirmed
// state. Callers depend only on TeamService and never branch on role.
package repl

import (
	"context"
	"errors"

	"github.com/squadlink-dev/squadlink/go/internal/team"
)

// ErrPending is returned by client-side mutators: the request went to
// the server, and the real outcome arrives later as events. Callers
// treat it as "nothing changed locally yet".
var ErrPending = errors.New("request forwarded to server; result pending")

// TeamService is the role-independent contract over the team
// directory. Mutators on a client return ErrPending; on the server
// they return the real result.
type TeamService interface {
	CreateTeam(ctx context.Context, playerID, playerName string) (int, error)
	JoinTeam(ctx context.Context, teamID int, playerID, playerName string) error
	LeaveTeam(ctx context.Context, playerID string) (int, error)
	SendInvitation(ctx context.Context, senderID, receiverID, receiverName string) (team.Invitation, error)
	AcceptInvitation(ctx context.Context, id team.InvitationID, playerID string) (int, error)
	DeclineInvitation(ctx context.Context, id team.InvitationID, playerID string) error

	PlayerTeam(playerID string) int
	IsLeader(playerID string, teamID int) bool
	TeamExists(teamID int) bool
	TeamMembers(teamID int) []team.Member
	PendingInvitations(playerID string) []team.Invitation
}
