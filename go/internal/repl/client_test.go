package repl

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"

	"github.com/squadlink-dev/squadlink/go/internal/team"
	"github.com/squadlink-dev/squadlink/go/internal/team/events"
)

// relaySink feeds every server event straight into a set of client
// mirrors, standing in for the bus plus websocket path.
type relaySink struct {
	clients []*Client
}

func (s *relaySink) Emit(e *events.Event) {
	for _, c := range s.clients {
		c.Apply(e)
	}
}

func newPair(t *testing.T) (*team.Manager, *Client) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	sink := &relaySink{}
	mgr := team.NewManager(team.DefaultConfig(), clock, sink)
	client := NewMirrorClient("p2", "Bob", clock)
	sink.clients = append(sink.clients, client)
	return mgr, client
}

func TestMirrorConvergesOnMembership(t *testing.T) {
	mgr, client := newPair(t)

	teamID, err := mgr.CreateTeam("p1", "Alice")
	if err != nil {
		t.Fatalf("CreateTeam: %v", err)
	}
	mgr.JoinTeam(teamID, "p2", "Bob")
	mgr.JoinTeam(teamID, "p3", "Carol")
	mgr.LeaveTeam("p1")

	if diff := cmp.Diff(mgr.TeamMembers(teamID), client.TeamMembers(teamID)); diff != "" {
		t.Errorf("mirror diverged (-server +client):\n%s", diff)
	}
	if got := client.PlayerTeam("p2"); got != teamID {
		t.Errorf("mirror PlayerTeam = %d, want %d", got, teamID)
	}
	if !client.IsLeader("p2", teamID) {
		t.Error("mirror should see p2 promoted after the leader left")
	}
}

func TestMirrorConvergesOnInvitations(t *testing.T) {
	mgr, client := newPair(t)

	teamID, _ := mgr.CreateTeam("p1", "Alice")
	inv, err := mgr.SendInvitation("p1", "p2", "Bob")
	if err != nil {
		t.Fatalf("SendInvitation: %v", err)
	}

	pending := client.PendingInvitations("p2")
	if len(pending) != 1 || pending[0].ID != inv.ID {
		t.Fatalf("mirror pending = %+v, want the sent invitation", pending)
	}

	if _, err := mgr.AcceptInvitation(inv.ID, "p2"); err != nil {
		t.Fatalf("AcceptInvitation: %v", err)
	}

	if got := client.PendingInvitations("p2"); len(got) != 0 {
		t.Errorf("mirror pending after accept = %+v, want none", got)
	}
	if diff := cmp.Diff(mgr.TeamMembers(teamID), client.TeamMembers(teamID)); diff != "" {
		t.Errorf("mirror diverged (-server +client):\n%s", diff)
	}
}

func TestMirrorTeamSyncRepairsDivergence(t *testing.T) {
	mgr, client := newPair(t)

	teamID, _ := mgr.CreateTeam("p1", "Alice")
	mgr.JoinTeam(teamID, "p2", "Bob")

	// Simulate a missed delta by corrupting the mirror.
	client.mirror.RemoveMember(teamID, "p1")

	// A full sync frame restores the server's view.
	members := mgr.TeamMembers(teamID)
	infos := make([]events.MemberInfo, len(members))
	for i, mem := range members {
		infos[i] = events.MemberInfo{
			PlayerID:   mem.PlayerID,
			PlayerName: mem.PlayerName,
			IsLeader:   mem.IsLeader,
			JoinedAt:   mem.JoinedAt,
		}
	}
	e, err := events.New(events.TypeTeamSync, teamID, members[0].JoinedAt, events.TeamSyncPayload{
		TeamID:  teamID,
		Members: infos,
	})
	if err != nil {
		t.Fatalf("build sync event: %v", err)
	}
	client.Apply(e)

	if diff := cmp.Diff(mgr.TeamMembers(teamID), client.TeamMembers(teamID)); diff != "" {
		t.Errorf("mirror diverged after sync (-server +client):\n%s", diff)
	}
}

func TestMutatorsReturnErrPendingWithoutLocalEffect(t *testing.T) {
	// A client with no connection still refuses to touch its mirror.
	clock := clockwork.NewFakeClock()
	client := NewMirrorClient("p1", "Alice", clock)

	if _, err := client.CreateTeam(context.Background(), "p1", "Alice"); err == nil {
		t.Fatal("CreateTeam on connectionless client should fail")
	}
	if got := client.PlayerTeam("p1"); got != 0 {
		t.Errorf("mirror mutated locally: PlayerTeam = %d", got)
	}
}

func TestOnEventFiresAfterApply(t *testing.T) {
	mgr, client := newPair(t)

	var seen []events.Type
	client.OnEvent = func(e *events.Event) {
		seen = append(seen, e.Type)
		// The mirror is already updated when the callback runs.
		if e.Type == events.TypeTeamCreated && client.PlayerTeam("p1") == 0 {
			t.Error("callback ran before the mirror was updated")
		}
	}

	teamID, _ := mgr.CreateTeam("p1", "Alice")
	mgr.JoinTeam(teamID, "p2", "Bob")

	want := []events.Type{events.TypeTeamCreated, events.TypeMemberJoined}
	if diff := cmp.Diff(want, seen); diff != "" {
		t.Errorf("callback sequence mismatch (-want +got):\n%s", diff)
	}
}
