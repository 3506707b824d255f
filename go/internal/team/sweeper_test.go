package team

import (
	"context"
	"testing"
	"time"
)

func TestSweeperDefaultInterval(t *testing.T) {
	mgr, _, clock := newTestManager(t)
	s := NewSweeper(mgr, clock, 0)
	if s.interval != 30*time.Second {
		t.Errorf("interval = %v, want 30s", s.interval)
	}
}

func TestSweeperRemovesExpiredInvitations(t *testing.T) {
	mgr, _, clock := newTestManager(t)
	mgr.CreateTeam("leader", "Leader")
	inv, err := mgr.SendInvitation("leader", "recruit", "Recruit")
	if err != nil {
		t.Fatalf("SendInvitation: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sweeper := NewSweeper(mgr, clock, 30*time.Second)
	go sweeper.Run(ctx)

	// Wait for the sweeper's ticker before moving time forward.
	clock.BlockUntil(1)
	clock.Advance(150 * time.Second)

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, ok := mgr.Invitation(inv.ID); !ok {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("invitation not swept after TTL elapsed")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
