package chat

import (
	"encoding/json"
	"errors"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"

	"github.com/squadlink-dev/squadlink/go/internal/team"
	"github.com/squadlink-dev/squadlink/go/internal/team/events"
)

type captureSink struct {
	events []*events.Event
}

func (s *captureSink) Emit(e *events.Event) {
	s.events = append(s.events, e)
}

func TestSendValidation(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sink := &captureSink{}
	dir := team.NewManager(team.DefaultConfig(), clock, nil)
	relay := NewRelay(dir, sink, clock)

	if err := relay.Send("p1", "   "); !errors.Is(err, ErrEmptyMessage) {
		t.Errorf("blank text err = %v, want ErrEmptyMessage", err)
	}
	if err := relay.Send("p1", "hello"); !errors.Is(err, team.ErrNotInTeam) {
		t.Errorf("teamless sender err = %v, want ErrNotInTeam", err)
	}
	if len(sink.events) != 0 {
		t.Errorf("rejected sends must not emit events, got %d", len(sink.events))
	}
}

func TestSendWithoutSink(t *testing.T) {
	clock := clockwork.NewFakeClock()
	dir := team.NewManager(team.DefaultConfig(), clock, nil)
	relay := NewRelay(dir, nil, clock)

	dir.CreateTeam("p1", "Alice")

	if err := relay.Send("p1", "hello"); err != nil {
		t.Fatalf("Send with nil sink: %v", err)
	}
}

func TestSendTargetsTeam(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sink := &captureSink{}
	dir := team.NewManager(team.DefaultConfig(), clock, nil)
	relay := NewRelay(dir, sink, clock)

	teamID, _ := dir.CreateTeam("p1", "Alice")
	dir.JoinTeam(teamID, "p2", "Bob")
	dir.CreateTeam("outsider", "Eve")

	if err := relay.Send("p2", "on me"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(sink.events) != 1 {
		t.Fatalf("got %d events, want 1", len(sink.events))
	}

	e := sink.events[0]
	if e.Type != events.TypeChatMessage {
		t.Errorf("event type = %s, want %s", e.Type, events.TypeChatMessage)
	}

	targets := append([]string(nil), e.Targets...)
	sort.Strings(targets)
	if diff := cmp.Diff([]string{"p1", "p2"}, targets); diff != "" {
		t.Errorf("targets mismatch (-want +got):\n%s", diff)
	}

	var p events.ChatMessagePayload
	if err := json.Unmarshal(e.Data, &p); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if p.SenderID != "p2" || p.SenderName != "Bob" || p.Text != "on me" || p.TeamID != teamID {
		t.Errorf("payload = %+v", p)
	}
}
