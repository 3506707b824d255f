package repl

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/squadlink-dev/squadlink/go/internal/protocol"
	"github.com/squadlink-dev/squadlink/go/internal/team"
	"github.com/squadlink-dev/squadlink/go/internal/team/events"
)

// Client is the client-side TeamService. Mutators serialize the call
// into a Command, send it to the gateway, and return ErrPending
// without touching local state; the event loop applies the server's
// confirmed events and full syncs to the local mirror.
type Client struct {
	playerID   string
	playerName string
	mirror     *team.Manager

	conn    *websocket.Conn
	writeMu sync.Mutex

	results chan protocol.CommandResult

	// OnEvent, if set, is called for every event after it has been
	// applied to the mirror. Presentation (chat lines, popups) hangs
	// off this; the mirror itself stays presentation-free.
	OnEvent func(e *events.Event)
}

var _ TeamService = (*Client)(nil)

// Dial connects to a gateway and returns a client whose mirror starts
// empty; the on-connect full sync fills it in.
func Dial(ctx context.Context, gatewayURL, playerID, playerName string, clock clockwork.Clock) (*Client, error) {
	u, err := url.Parse(gatewayURL)
	if err != nil {
		return nil, fmt.Errorf("parse gateway URL: %w", err)
	}
	q := u.Query()
	q.Set("player_id", playerID)
	q.Set("player_name", playerName)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial gateway: %w", err)
	}

	return &Client{
		playerID:   playerID,
		playerName: playerName,
		mirror:     team.NewManager(team.DefaultConfig(), clock, nil),
		conn:       conn,
		results:    make(chan protocol.CommandResult, 64),
	}, nil
}

// NewMirrorClient returns a client with no connection, useful when the
// transport is driven externally and events are fed through Apply.
func NewMirrorClient(playerID, playerName string, clock clockwork.Clock) *Client {
	return &Client{
		playerID:   playerID,
		playerName: playerName,
		mirror:     team.NewManager(team.DefaultConfig(), clock, nil),
		results:    make(chan protocol.CommandResult, 64),
	}
}

// Run reads server frames until the connection drops or the context is
// cancelled.
func (c *Client) Run(ctx context.Context) error {
	if c.conn == nil {
		<-ctx.Done()
		return nil
	}
	go func() {
		<-ctx.Done()
		c.conn.Close()
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read server frame: %w", err)
		}

		var msg protocol.ServerMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Error().Err(err).Msg("failed to unmarshal server frame")
			continue
		}

		switch msg.Kind {
		case protocol.KindEvent:
			if msg.Event != nil {
				c.Apply(msg.Event)
			}
		case protocol.KindResult:
			if msg.Result != nil {
				select {
				case c.results <- *msg.Result:
				default:
					log.Warn().Str("request_id", msg.Result.RequestID).Msg("result buffer full, dropping")
				}
			}
		default:
			log.Warn().Str("kind", msg.Kind).Msg("unknown server frame kind")
		}
	}
}

// Results exposes the server's direct command replies.
func (c *Client) Results() <-chan protocol.CommandResult {
	return c.results
}

// Close tears down the connection.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// Apply folds one server-confirmed event into the local mirror.
func (c *Client) Apply(e *events.Event) {
	switch e.Type {
	case events.TypeTeamCreated:
		var p events.TeamCreatedPayload
		if !c.decode(e, &p) {
			return
		}
		c.mirror.PutMember(p.TeamID, memberFromInfo(p.TeamID, p.Leader))

	case events.TypeMemberJoined:
		var p events.MemberJoinedPayload
		if !c.decode(e, &p) {
			return
		}
		c.mirror.PutMember(p.TeamID, memberFromInfo(p.TeamID, p.Member))

	case events.TypeMemberLeft:
		var p events.MemberLeftPayload
		if !c.decode(e, &p) {
			return
		}
		c.mirror.RemoveMember(p.TeamID, p.PlayerID)

	case events.TypeLeaderChanged:
		var p events.LeaderChangedPayload
		if !c.decode(e, &p) {
			return
		}
		c.mirror.SetLeader(p.TeamID, p.PlayerID)

	case events.TypeInvitationSent:
		var p events.InvitationSentPayload
		if !c.decode(e, &p) {
			return
		}
		c.mirror.PutInvitation(team.Invitation{
			ID:           team.InvitationID(p.Invitation.InvitationID),
			TeamID:       p.Invitation.TeamID,
			SenderID:     p.Invitation.SenderID,
			SenderName:   p.Invitation.SenderName,
			ReceiverID:   p.Invitation.ReceiverID,
			ReceiverName: p.Invitation.ReceiverName,
			CreatedAt:    p.Invitation.CreatedAt,
		})

	case events.TypeInvitationAccepted:
		var p events.InvitationAcceptedPayload
		if !c.decode(e, &p) {
			return
		}
		// Membership arrives via the MemberJoined broadcast.
		c.mirror.DropInvitation(team.InvitationID(p.InvitationID))

	case events.TypeInvitationDeclined:
		var p events.InvitationDeclinedPayload
		if !c.decode(e, &p) {
			return
		}
		c.mirror.DropInvitation(team.InvitationID(p.InvitationID))

	case events.TypeInvitationExpired:
		var p events.InvitationExpiredPayload
		if !c.decode(e, &p) {
			return
		}
		c.mirror.DropInvitation(team.InvitationID(p.InvitationID))

	case events.TypeTeamSync:
		var p events.TeamSyncPayload
		if !c.decode(e, &p) {
			return
		}
		members := make([]team.Member, len(p.Members))
		for i, info := range p.Members {
			members[i] = memberFromInfo(p.TeamID, info)
		}
		c.mirror.SyncTeam(p.TeamID, members)

	case events.TypeChatMessage, events.TypeVehicleLocked, events.TypeVehicleUnlocked:
		// Presentation-only; no directory state to mirror.

	default:
		log.Warn().Str("event_type", string(e.Type)).Msg("unknown event type, ignoring")
	}

	if c.OnEvent != nil {
		c.OnEvent(e)
	}
}

func (c *Client) decode(e *events.Event, payload any) bool {
	if err := json.Unmarshal(e.Data, payload); err != nil {
		log.Error().Err(err).Str("event_type", string(e.Type)).Msg("failed to decode event payload")
		return false
	}
	return true
}

func (c *Client) CreateTeam(ctx context.Context, playerID, playerName string) (int, error) {
	if err := c.send(protocol.Command{Op: protocol.OpCreateTeam}); err != nil {
		return 0, err
	}
	return 0, ErrPending
}

func (c *Client) JoinTeam(ctx context.Context, teamID int, playerID, playerName string) error {
	if err := c.send(protocol.Command{Op: protocol.OpJoinTeam, TeamID: teamID}); err != nil {
		return err
	}
	return ErrPending
}

func (c *Client) LeaveTeam(ctx context.Context, playerID string) (int, error) {
	if err := c.send(protocol.Command{Op: protocol.OpLeaveTeam}); err != nil {
		return 0, err
	}
	return 0, ErrPending
}

func (c *Client) SendInvitation(ctx context.Context, senderID, receiverID, receiverName string) (team.Invitation, error) {
	err := c.send(protocol.Command{
		Op:           protocol.OpSendInvitation,
		ReceiverID:   receiverID,
		ReceiverName: receiverName,
	})
	if err != nil {
		return team.Invitation{}, err
	}
	return team.Invitation{}, ErrPending
}

func (c *Client) AcceptInvitation(ctx context.Context, id team.InvitationID, playerID string) (int, error) {
	err := c.send(protocol.Command{
		Op:           protocol.OpAcceptInvitation,
		InvitationID: string(id),
	})
	if err != nil {
		return 0, err
	}
	return 0, ErrPending
}

func (c *Client) DeclineInvitation(ctx context.Context, id team.InvitationID, playerID string) error {
	err := c.send(protocol.Command{
		Op:           protocol.OpDeclineInvitation,
		InvitationID: string(id),
	})
	if err != nil {
		return err
	}
	return ErrPending
}

// SendChat forwards a team chat line to the server.
func (c *Client) SendChat(text string) error {
	if err := c.send(protocol.Command{Op: protocol.OpChatMessage, Text: text}); err != nil {
		return err
	}
	return ErrPending
}

// LockVehicle asks the server to lock a vehicle for the player's team.
func (c *Client) LockVehicle(vehicleID string) error {
	if err := c.send(protocol.Command{Op: protocol.OpLockVehicle, VehicleID: vehicleID}); err != nil {
		return err
	}
	return ErrPending
}

// UnlockVehicle asks the server to release a vehicle lock.
func (c *Client) UnlockVehicle(vehicleID string) error {
	if err := c.send(protocol.Command{Op: protocol.OpUnlockVehicle, VehicleID: vehicleID}); err != nil {
		return err
	}
	return ErrPending
}

func (c *Client) PlayerTeam(playerID string) int {
	return c.mirror.PlayerTeam(playerID)
}

func (c *Client) IsLeader(playerID string, teamID int) bool {
	return c.mirror.IsLeader(playerID, teamID)
}

func (c *Client) TeamExists(teamID int) bool {
	return c.mirror.TeamExists(teamID)
}

func (c *Client) TeamMembers(teamID int) []team.Member {
	return c.mirror.TeamMembers(teamID)
}

func (c *Client) PendingInvitations(playerID string) []team.Invitation {
	return c.mirror.PendingInvitations(playerID)
}

func (c *Client) send(cmd protocol.Command) error {
	if c.conn == nil {
		return fmt.Errorf("no gateway connection")
	}
	cmd.RequestID = uuid.New().String()

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteJSON(cmd); err != nil {
		return fmt.Errorf("send %s: %w", cmd.Op, err)
	}
	return nil
}

func memberFromInfo(teamID int, info events.MemberInfo) team.Member {
	return team.Member{
		PlayerID:   info.PlayerID,
		PlayerName: info.PlayerName,
		TeamID:     teamID,
		IsLeader:   info.IsLeader,
		JoinedAt:   info.JoinedAt,
	}
}
