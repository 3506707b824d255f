package team

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
)

func newMirror() *Manager {
	return NewManager(DefaultConfig(), clockwork.NewFakeClock(), nil)
}

func TestPutMemberUpserts(t *testing.T) {
	m := newMirror()
	joined := time.Unix(100, 0)

	m.PutMember(3, Member{PlayerID: "p1", PlayerName: "Alice", IsLeader: true, JoinedAt: joined})
	m.PutMember(3, Member{PlayerID: "p2", PlayerName: "Bob", JoinedAt: joined})

	// Re-put with changed flags replaces in place, keeping order.
	m.PutMember(3, Member{PlayerID: "p1", PlayerName: "Alice", IsLeader: false, JoinedAt: joined})

	want := []Member{
		{PlayerID: "p1", PlayerName: "Alice", TeamID: 3, JoinedAt: joined},
		{PlayerID: "p2", PlayerName: "Bob", TeamID: 3, JoinedAt: joined},
	}
	if diff := cmp.Diff(want, m.TeamMembers(3)); diff != "" {
		t.Errorf("TeamMembers mismatch (-want +got):\n%s", diff)
	}
}

func TestRemoveMemberDeletesEmptyTeam(t *testing.T) {
	m := newMirror()
	m.PutMember(1, Member{PlayerID: "p1"})
	m.PutMember(1, Member{PlayerID: "p2"})

	m.RemoveMember(1, "p1")
	if got := m.TeamMembers(1); len(got) != 1 || got[0].PlayerID != "p2" {
		t.Errorf("TeamMembers = %+v, want only p2", got)
	}

	m.RemoveMember(1, "p2")
	if m.TeamExists(1) {
		t.Error("emptied team should be deleted")
	}

	// Removing from a gone team is a no-op.
	m.RemoveMember(1, "p2")
}

func TestSetLeaderIsExclusive(t *testing.T) {
	m := newMirror()
	m.PutMember(1, Member{PlayerID: "p1", IsLeader: true})
	m.PutMember(1, Member{PlayerID: "p2"})

	m.SetLeader(1, "p2")

	for _, mem := range m.TeamMembers(1) {
		if mem.IsLeader != (mem.PlayerID == "p2") {
			t.Errorf("member %s leader flag = %v", mem.PlayerID, mem.IsLeader)
		}
	}
}

func TestSyncTeamReplacesWholesale(t *testing.T) {
	m := newMirror()
	m.PutMember(5, Member{PlayerID: "stale"})

	joined := time.Unix(200, 0)
	m.SyncTeam(5, []Member{
		{PlayerID: "p1", PlayerName: "Alice", IsLeader: true, JoinedAt: joined},
		{PlayerID: "p2", PlayerName: "Bob", JoinedAt: joined},
	})

	want := []Member{
		{PlayerID: "p1", PlayerName: "Alice", TeamID: 5, IsLeader: true, JoinedAt: joined},
		{PlayerID: "p2", PlayerName: "Bob", TeamID: 5, JoinedAt: joined},
	}
	if diff := cmp.Diff(want, m.TeamMembers(5)); diff != "" {
		t.Errorf("TeamMembers mismatch (-want +got):\n%s", diff)
	}

	m.SyncTeam(5, nil)
	if m.TeamExists(5) {
		t.Error("empty sync should delete the team")
	}
}

func TestPutInvitation(t *testing.T) {
	m := newMirror()
	inv := Invitation{ID: NewInvitationID(), TeamID: 2, SenderID: "s", ReceiverID: "r"}

	m.PutInvitation(inv)
	pending := m.PendingInvitations("r")
	if len(pending) != 1 || pending[0].ID != inv.ID {
		t.Fatalf("PendingInvitations = %+v, want the stored invitation", pending)
	}

	m.DropInvitation(inv.ID)
	if got := m.PendingInvitations("r"); len(got) != 0 {
		t.Errorf("PendingInvitations after drop = %+v, want none", got)
	}
}
