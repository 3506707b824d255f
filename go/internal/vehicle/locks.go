// Package vehicle tracks team vehicle locks. A locked vehicle is
// usable only by members of the locking player's team; unlocking makes
// it public again.
package vehicle

import (
	"errors"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/squadlink-dev/squadlink/go/internal/team"
	"github.com/squadlink-dev/squadlink/go/internal/team/events"
)

var (
	ErrAlreadyLocked = errors.New("vehicle is already locked")
	ErrNotLocked     = errors.New("vehicle is not locked")
	ErrNotAuthorized = errors.New("vehicle is locked by another team")
)

type lockEntry struct {
	teamID  int
	ownerID string
}

// Locks is the server-side vehicle lock registry.
type Locks struct {
	mu    sync.Mutex
	dir   *team.Manager
	sink  team.EventSink
	clock clockwork.Clock
	locks map[string]lockEntry
}

// NewLocks builds an empty registry over the authoritative directory.
func NewLocks(dir *team.Manager, sink team.EventSink, clock clockwork.Clock) *Locks {
	return &Locks{
		dir:   dir,
		sink:  sink,
		clock: clock,
		locks: make(map[string]lockEntry),
	}
}

// Lock claims a vehicle for the player's team.
func (l *Locks) Lock(vehicleID, playerID string) error {
	teamID := l.dir.PlayerTeam(playerID)
	if teamID == 0 {
		return team.ErrNotInTeam
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, locked := l.locks[vehicleID]; locked {
		return ErrAlreadyLocked
	}
	l.locks[vehicleID] = lockEntry{teamID: teamID, ownerID: playerID}

	log.Info().Str("vehicle_id", vehicleID).Int("team_id", teamID).Str("player_id", playerID).Msg("vehicle locked")

	members := l.dir.TeamMembers(teamID)
	targets := make([]string, len(members))
	for i, mem := range members {
		targets[i] = mem.PlayerID
	}
	l.emit(events.TypeVehicleLocked, teamID, targets, events.VehicleLockedPayload{
		VehicleID: vehicleID,
		TeamID:    teamID,
		PlayerID:  playerID,
	})
	return nil
}

// Unlock releases a vehicle. Any member of the locking team may
// unlock, not just the original locker.
func (l *Locks) Unlock(vehicleID, playerID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, locked := l.locks[vehicleID]
	if !locked {
		return ErrNotLocked
	}
	if l.dir.PlayerTeam(playerID) != entry.teamID {
		return ErrNotAuthorized
	}
	delete(l.locks, vehicleID)

	log.Info().Str("vehicle_id", vehicleID).Str("player_id", playerID).Msg("vehicle unlocked")

	l.emit(events.TypeVehicleUnlocked, entry.teamID, nil, events.VehicleUnlockedPayload{
		VehicleID: vehicleID,
		PlayerID:  playerID,
	})
	return nil
}

// AccessibleBy reports whether a player may use a vehicle: always true
// when unlocked, otherwise only for the locking team's members.
func (l *Locks) AccessibleBy(vehicleID, playerID string) bool {
	l.mu.Lock()
	entry, locked := l.locks[vehicleID]
	l.mu.Unlock()

	if !locked {
		return true
	}
	return l.dir.PlayerTeam(playerID) == entry.teamID
}

// LockedBy returns the team holding a vehicle, or 0 if unlocked.
func (l *Locks) LockedBy(vehicleID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.locks[vehicleID].teamID
}

// ReleaseTeam drops every lock held by a team. Called when a team
// dissolves.
func (l *Locks) ReleaseTeam(teamID int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for vehicleID, entry := range l.locks {
		if entry.teamID == teamID {
			delete(l.locks, vehicleID)
			l.emit(events.TypeVehicleUnlocked, teamID, nil, events.VehicleUnlockedPayload{
				VehicleID: vehicleID,
				PlayerID:  entry.ownerID,
			})
		}
	}
}

func (l *Locks) emit(t events.Type, teamID int, targets []string, payload any) {
	if l.sink == nil {
		return
	}
	e, err := events.New(t, teamID, l.clock.Now(), payload)
	if err != nil {
		log.Error().Err(err).Str("event_type", string(t)).Msg("failed to build event")
		return
	}
	e.Targets = targets
	l.sink.Emit(e)
}
