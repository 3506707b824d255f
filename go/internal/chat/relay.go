// Package chat relays team-scoped chat lines. It is a thin consumer of
// the team directory: membership is checked server-side on every send,
// and delivery is a targeted event to the sender's current team.
package chat

import (
	"errors"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/squadlink-dev/squadlink/go/internal/team"
	"github.com/squadlink-dev/squadlink/go/internal/team/events"
)

// ErrEmptyMessage is returned for blank chat lines.
var ErrEmptyMessage = errors.New("chat message is empty")

// Relay validates and fans out team chat messages.
type Relay struct {
	dir   *team.Manager
	sink  team.EventSink
	clock clockwork.Clock
}

// NewRelay builds a relay over the authoritative directory. sink may
// be nil, matching the directory's own mirror mode.
func NewRelay(dir *team.Manager, sink team.EventSink, clock clockwork.Clock) *Relay {
	return &Relay{dir: dir, sink: sink, clock: clock}
}

// Send delivers a chat line to every member of the sender's team.
func (r *Relay) Send(senderID, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}

	teamID := r.dir.PlayerTeam(senderID)
	if teamID == 0 {
		return team.ErrNotInTeam
	}

	members := r.dir.TeamMembers(teamID)
	targets := make([]string, len(members))
	senderName := senderID
	for i, mem := range members {
		targets[i] = mem.PlayerID
		if mem.PlayerID == senderID {
			senderName = mem.PlayerName
		}
	}

	now := r.clock.Now()
	e, err := events.New(events.TypeChatMessage, teamID, now, events.ChatMessagePayload{
		TeamID:     teamID,
		SenderID:   senderID,
		SenderName: senderName,
		Text:       text,
		SentAt:     now,
	})
	if err != nil {
		return err
	}
	e.Targets = targets
	if r.sink != nil {
		r.sink.Emit(e)
	}

	log.Debug().Int("team_id", teamID).Str("sender_id", senderID).Msg("chat message relayed")
	return nil
}
