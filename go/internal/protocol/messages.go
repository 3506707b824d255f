// Package protocol defines the websocket wire messages exchanged
// between clients and the gateway. It lives apart from both so neither
// side imports the other.
package protocol

import (
	"github.com/squadlink-dev/squadlink/go/internal/team/events"
)

// Op names a client-requested operation.
type Op string

const (
	OpCreateTeam        Op = "create_team"
	OpJoinTeam          Op = "join_team"
	OpLeaveTeam         Op = "leave_team"
	OpSendInvitation    Op = "send_invitation"
	OpAcceptInvitation  Op = "accept_invitation"
	OpDeclineInvitation Op = "decline_invitation"
	OpChatMessage       Op = "chat_message"
	OpLockVehicle       Op = "lock_vehicle"
	OpUnlockVehicle     Op = "unlock_vehicle"
)

// Command is a client-to-server request. The acting player is the
// connection's authenticated player, never a field the client controls.
type Command struct {
	RequestID    string `json:"request_id"`
	Op           Op     `json:"op"`
	TeamID       int    `json:"team_id,omitempty"`
	InvitationID string `json:"invitation_id,omitempty"`
	ReceiverID   string `json:"receiver_id,omitempty"`
	ReceiverName string `json:"receiver_name,omitempty"`
	Text         string `json:"text,omitempty"`
	VehicleID    string `json:"vehicle_id,omitempty"`
}

// CommandResult is the server's direct reply to a Command. State
// changes themselves arrive separately as events.
type CommandResult struct {
	RequestID string `json:"request_id"`
	Op        Op     `json:"op"`
	OK        bool   `json:"ok"`
	ErrorCode string `json:"error_code,omitempty"`
	TeamID    int    `json:"team_id,omitempty"`
}

// Message kinds for server-to-client frames.
const (
	KindEvent  = "event"
	KindResult = "result"
)

// ServerMessage is the envelope for every server-to-client frame.
type ServerMessage struct {
	Kind   string         `json:"kind"`
	Event  *events.Event  `json:"event,omitempty"`
	Result *CommandResult `json:"result,omitempty"`
}
