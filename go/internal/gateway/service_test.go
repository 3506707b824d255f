package gateway

import (
	"context"
	"testing"

	"github.com/jonboulle/clockwork"

	"github.com/squadlink-dev/squadlink/go/internal/bus"
	"github.com/squadlink-dev/squadlink/go/internal/chat"
	"github.com/squadlink-dev/squadlink/go/internal/protocol"
	"github.com/squadlink-dev/squadlink/go/internal/repl"
	"github.com/squadlink-dev/squadlink/go/internal/team"
	"github.com/squadlink-dev/squadlink/go/internal/vehicle"
)

func newTestService(t *testing.T) (*Service, *team.Manager) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	eventBus := bus.NewMemory()
	t.Cleanup(func() { eventBus.Close() })

	sink := repl.NewPublisher(eventBus)
	mgr := team.NewManager(team.DefaultConfig(), clock, sink)
	svc := NewService(
		DefaultConfig(),
		repl.NewServer(mgr),
		chat.NewRelay(mgr, sink, clock),
		vehicle.NewLocks(mgr, sink, clock),
		eventBus,
		clock,
	)
	return svc, mgr
}

func TestHandleCommandCreateJoinLeave(t *testing.T) {
	svc, mgr := newTestService(t)
	ctx := context.Background()

	res := svc.HandleCommand(ctx, "p1", "Alice", protocol.Command{RequestID: "r1", Op: protocol.OpCreateTeam})
	if !res.OK || res.TeamID != 1 || res.RequestID != "r1" || res.ErrorCode != "" {
		t.Fatalf("create result = %+v", res)
	}

	res = svc.HandleCommand(ctx, "p2", "Bob", protocol.Command{Op: protocol.OpJoinTeam, TeamID: 1})
	if !res.OK || res.TeamID != 1 {
		t.Fatalf("join result = %+v", res)
	}
	if mgr.PlayerTeam("p2") != 1 {
		t.Error("join did not reach the directory")
	}

	res = svc.HandleCommand(ctx, "p2", "Bob", protocol.Command{Op: protocol.OpLeaveTeam})
	if !res.OK || res.TeamID != 1 {
		t.Fatalf("leave result = %+v", res)
	}
}

func TestHandleCommandErrorCodes(t *testing.T) {
	svc, mgr := newTestService(t)
	ctx := context.Background()

	teamID, _ := mgr.CreateTeam("leader", "Leader")
	mgr.JoinTeam(teamID, "grunt", "Grunt")

	tests := []struct {
		name     string
		playerID string
		cmd      protocol.Command
		wantCode string
	}{
		{"join unknown team", "p9", protocol.Command{Op: protocol.OpJoinTeam, TeamID: 42}, "team_not_found"},
		{"leave without team", "p9", protocol.Command{Op: protocol.OpLeaveTeam}, "not_in_team"},
		{"invite by non-leader", "grunt", protocol.Command{Op: protocol.OpSendInvitation, ReceiverID: "p9"}, "not_leader"},
		{"accept unknown invitation", "p9", protocol.Command{Op: protocol.OpAcceptInvitation, InvitationID: "bogus"}, "invitation_not_found"},
		{"blank chat line", "leader", protocol.Command{Op: protocol.OpChatMessage, Text: "  "}, "empty_message"},
		{"chat without team", "p9", protocol.Command{Op: protocol.OpChatMessage, Text: "hi"}, "not_in_team"},
		{"unlock free vehicle", "leader", protocol.Command{Op: protocol.OpUnlockVehicle, VehicleID: "jeep"}, "vehicle_not_locked"},
		{"unknown op", "leader", protocol.Command{Op: "rename_team"}, "unknown_op"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := svc.HandleCommand(ctx, tt.playerID, tt.playerID, tt.cmd)
			if res.OK {
				t.Fatalf("result unexpectedly OK: %+v", res)
			}
			if res.ErrorCode != tt.wantCode {
				t.Errorf("error code = %q, want %q", res.ErrorCode, tt.wantCode)
			}
		})
	}
}

func TestHandleCommandInvitationFlow(t *testing.T) {
	svc, mgr := newTestService(t)
	ctx := context.Background()

	svc.HandleCommand(ctx, "p1", "Alice", protocol.Command{Op: protocol.OpCreateTeam})

	res := svc.HandleCommand(ctx, "p1", "Alice", protocol.Command{
		Op:           protocol.OpSendInvitation,
		ReceiverID:   "p2",
		ReceiverName: "Bob",
	})
	if !res.OK {
		t.Fatalf("send invitation result = %+v", res)
	}

	pending := mgr.PendingInvitations("p2")
	if len(pending) != 1 {
		t.Fatalf("pending invitations = %d, want 1", len(pending))
	}

	res = svc.HandleCommand(ctx, "p2", "Bob", protocol.Command{
		Op:           protocol.OpAcceptInvitation,
		InvitationID: string(pending[0].ID),
	})
	if !res.OK || res.TeamID != 1 {
		t.Fatalf("accept result = %+v", res)
	}
	if mgr.PlayerTeam("p2") != 1 {
		t.Error("accept did not join the team")
	}
}

func TestDissolvedTeamReleasesVehicleLocks(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	svc.HandleCommand(ctx, "p1", "Alice", protocol.Command{Op: protocol.OpCreateTeam})
	res := svc.HandleCommand(ctx, "p1", "Alice", protocol.Command{Op: protocol.OpLockVehicle, VehicleID: "jeep"})
	if !res.OK {
		t.Fatalf("lock result = %+v", res)
	}

	// Last member leaves, the team dissolves and its locks release.
	res = svc.HandleCommand(ctx, "p1", "Alice", protocol.Command{Op: protocol.OpLeaveTeam})
	if !res.OK {
		t.Fatalf("leave result = %+v", res)
	}

	// The vehicle is free again; a brand new team can claim it.
	svc.HandleCommand(ctx, "p2", "Bob", protocol.Command{Op: protocol.OpCreateTeam})
	res = svc.HandleCommand(ctx, "p2", "Bob", protocol.Command{Op: protocol.OpLockVehicle, VehicleID: "jeep"})
	if !res.OK {
		t.Fatalf("lock after dissolve = %+v, want OK", res)
	}
}

func TestSurvivingTeamKeepsVehicleLocks(t *testing.T) {
	svc, mgr := newTestService(t)
	ctx := context.Background()

	teamID, _ := mgr.CreateTeam("p1", "Alice")
	mgr.JoinTeam(teamID, "p2", "Bob")
	svc.HandleCommand(ctx, "p1", "Alice", protocol.Command{Op: protocol.OpLockVehicle, VehicleID: "jeep"})

	// The locker leaves but the team survives, so the lock holds.
	svc.HandleCommand(ctx, "p1", "Alice", protocol.Command{Op: protocol.OpLeaveTeam})

	res := svc.HandleCommand(ctx, "p2", "Bob", protocol.Command{Op: protocol.OpUnlockVehicle, VehicleID: "jeep"})
	if !res.OK {
		t.Fatalf("surviving member unlock = %+v, want OK", res)
	}
}

func TestDisconnectReleasesVehicleLocks(t *testing.T) {
	svc, mgr := newTestService(t)
	ctx := context.Background()

	svc.HandleCommand(ctx, "p1", "Alice", protocol.Command{Op: protocol.OpCreateTeam})
	svc.HandleCommand(ctx, "p1", "Alice", protocol.Command{Op: protocol.OpLockVehicle, VehicleID: "jeep"})

	svc.handlePlayerDisconnected("p1")

	if mgr.PlayerTeam("p1") != 0 {
		t.Fatal("disconnect should remove the player from their team")
	}
	svc.HandleCommand(ctx, "p2", "Bob", protocol.Command{Op: protocol.OpCreateTeam})
	res := svc.HandleCommand(ctx, "p2", "Bob", protocol.Command{Op: protocol.OpLockVehicle, VehicleID: "jeep"})
	if !res.OK {
		t.Fatalf("lock after disconnect dissolve = %+v, want OK", res)
	}
}

func TestHandleCommandVehicleFlow(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	svc.HandleCommand(ctx, "p1", "Alice", protocol.Command{Op: protocol.OpCreateTeam})

	res := svc.HandleCommand(ctx, "p1", "Alice", protocol.Command{Op: protocol.OpLockVehicle, VehicleID: "jeep"})
	if !res.OK {
		t.Fatalf("lock result = %+v", res)
	}

	res = svc.HandleCommand(ctx, "p1", "Alice", protocol.Command{Op: protocol.OpLockVehicle, VehicleID: "jeep"})
	if res.OK || res.ErrorCode != "vehicle_already_locked" {
		t.Fatalf("double lock result = %+v", res)
	}

	res = svc.HandleCommand(ctx, "p1", "Alice", protocol.Command{Op: protocol.OpUnlockVehicle, VehicleID: "jeep"})
	if !res.OK {
		t.Fatalf("unlock result = %+v", res)
	}
}
