package team

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/squadlink-dev/squadlink/go/internal/team/events"
)

// EventSink receives every event the directory emits. The server wires
// this to the event bus; mirrors run without a sink.
type EventSink interface {
	Emit(e *events.Event)
}

// Config holds the tunables of the team directory.
type Config struct {
	MaxTeamSize   int
	MaxFlagpoles  int
	InvitationTTL time.Duration
}

// DefaultConfig returns the directory defaults: 8 players per team,
// one flagpole per team, invitations valid for two minutes.
func DefaultConfig() Config {
	return Config{
		MaxTeamSize:   8,
		MaxFlagpoles:  1,
		InvitationTTL: 120 * time.Second,
	}
}

// Manager is the team directory: teams, their members, and pending
// invitations. On the server it is the single source of truth; on a
// client it acts as a mirror updated only through the sync primitives.
//
// All methods serialize through one mutex. Precondition re-validation
// at execution time (not request time) is what resolves races between
// interleaved client requests.
type Manager struct {
	mu    sync.Mutex
	cfg   Config
	clock clockwork.Clock
	sink  EventSink

	teams       map[int][]*Member
	invitations map[InvitationID]*Invitation
	flagpoles   map[int][]string
	nextTeamID  int
}

// NewManager builds a directory. sink may be nil for mirrors.
func NewManager(cfg Config, clock clockwork.Clock, sink EventSink) *Manager {
	if cfg.MaxTeamSize <= 0 {
		cfg.MaxTeamSize = DefaultConfig().MaxTeamSize
	}
	if cfg.MaxFlagpoles <= 0 {
		cfg.MaxFlagpoles = DefaultConfig().MaxFlagpoles
	}
	if cfg.InvitationTTL <= 0 {
		cfg.InvitationTTL = DefaultConfig().InvitationTTL
	}
	return &Manager{
		cfg:         cfg,
		clock:       clock,
		sink:        sink,
		teams:       make(map[int][]*Member),
		invitations: make(map[InvitationID]*Invitation),
		flagpoles:   make(map[int][]string),
		nextTeamID:  1,
	}
}

// CreateTeam allocates a new team with the player as its leader and
// returns the team ID.
func (m *Manager) CreateTeam(playerID, playerName string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.playerTeamLocked(playerID) != 0 {
		return 0, ErrAlreadyOnTeam
	}

	teamID := m.nextTeamID
	m.nextTeamID++

	leader := &Member{
		PlayerID:   playerID,
		PlayerName: playerName,
		TeamID:     teamID,
		IsLeader:   true,
		JoinedAt:   m.clock.Now(),
	}
	m.teams[teamID] = []*Member{leader}

	log.Info().Int("team_id", teamID).Str("player_id", playerID).Msg("team created")

	m.emit(events.TypeTeamCreated, teamID, nil, events.TeamCreatedPayload{
		TeamID: teamID,
		Leader: memberInfo(leader),
	})
	return teamID, nil
}

// JoinTeam appends the player to an existing team as a non-leader.
func (m *Manager) JoinTeam(teamID int, playerID, playerName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.joinLocked(teamID, playerID, playerName)
}

func (m *Manager) joinLocked(teamID int, playerID, playerName string) error {
	members, ok := m.teams[teamID]
	if !ok {
		return ErrTeamNotFound
	}
	if len(members) >= m.cfg.MaxTeamSize {
		return ErrTeamFull
	}
	if m.playerTeamLocked(playerID) != 0 {
		return ErrAlreadyOnTeam
	}

	member := &Member{
		PlayerID:   playerID,
		PlayerName: playerName,
		TeamID:     teamID,
		JoinedAt:   m.clock.Now(),
	}
	m.teams[teamID] = append(members, member)

	log.Info().Int("team_id", teamID).Str("player_id", playerID).Msg("player joined team")

	m.emit(events.TypeMemberJoined, teamID, nil, events.MemberJoinedPayload{
		TeamID: teamID,
		Member: memberInfo(member),
	})
	return nil
}

// LeaveTeam removes the player from their team. If the leader leaves a
// non-empty team, the earliest-joined remaining member is promoted; an
// emptied team is deleted. Returns the team the player left.
func (m *Manager) LeaveTeam(playerID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	teamID := m.playerTeamLocked(playerID)
	if teamID == 0 {
		return 0, ErrNotInTeam
	}

	members := m.teams[teamID]
	idx := -1
	for i, mem := range members {
		if mem.PlayerID == playerID {
			idx = i
			break
		}
	}
	leaving := members[idx]
	wasLeader := leaving.IsLeader

	members = append(members[:idx], members[idx+1:]...)
	m.teams[teamID] = members

	log.Info().Int("team_id", teamID).Str("player_id", playerID).Msg("player left team")

	m.emit(events.TypeMemberLeft, teamID, nil, events.MemberLeftPayload{
		TeamID:     teamID,
		PlayerID:   leaving.PlayerID,
		PlayerName: leaving.PlayerName,
	})

	if len(members) == 0 {
		delete(m.teams, teamID)
		delete(m.flagpoles, teamID)
		return teamID, nil
	}

	if wasLeader {
		members[0].IsLeader = true
		log.Info().
			Int("team_id", teamID).
			Str("player_id", members[0].PlayerID).
			Msg("leader promoted")
		m.emit(events.TypeLeaderChanged, teamID, nil, events.LeaderChangedPayload{
			TeamID:     teamID,
			PlayerID:   members[0].PlayerID,
			PlayerName: members[0].PlayerName,
		})
	}
	return teamID, nil
}

// SendInvitation issues an invitation from a team leader to a player
// who is not yet on any team.
func (m *Manager) SendInvitation(senderID, receiverID, receiverName string) (*Invitation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	teamID := m.playerTeamLocked(senderID)
	if teamID == 0 {
		return nil, ErrNotInTeam
	}
	sender := m.memberLocked(teamID, senderID)
	if !sender.IsLeader {
		return nil, ErrNotLeader
	}
	if len(m.teams[teamID]) >= m.cfg.MaxTeamSize {
		return nil, ErrTeamFull
	}
	if m.playerTeamLocked(receiverID) != 0 {
		return nil, ErrAlreadyOnTeam
	}
	for _, inv := range m.invitations {
		if inv.TeamID == teamID && inv.ReceiverID == receiverID {
			return nil, ErrAlreadyInvited
		}
	}

	inv := &Invitation{
		ID:           NewInvitationID(),
		TeamID:       teamID,
		SenderID:     senderID,
		SenderName:   sender.PlayerName,
		ReceiverID:   receiverID,
		ReceiverName: receiverName,
		CreatedAt:    m.clock.Now(),
	}
	m.invitations[inv.ID] = inv

	log.Info().
		Str("invitation_id", string(inv.ID)).
		Int("team_id", teamID).
		Str("receiver_id", receiverID).
		Msg("invitation sent")

	m.emit(events.TypeInvitationSent, teamID, []string{senderID, receiverID},
		events.InvitationSentPayload{Invitation: invitationInfo(inv)})

	out := *inv
	return &out, nil
}

// AcceptInvitation consumes an invitation and joins the receiver to
// the invited team. Team existence and capacity are re-validated here,
// not just at send time; a stale invitation that fails re-validation
// is consumed so it cannot be retried.
func (m *Manager) AcceptInvitation(id InvitationID, playerID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	inv, ok := m.invitations[id]
	if !ok {
		return 0, ErrInvitationNotFound
	}
	if inv.ReceiverID != playerID {
		return 0, ErrInvitationNotForPlayer
	}
	if inv.Expired(m.clock.Now(), m.cfg.InvitationTTL) {
		m.expireLocked(inv)
		return 0, ErrInvitationExpired
	}

	teamID := inv.TeamID
	if _, exists := m.teams[teamID]; !exists {
		delete(m.invitations, id)
		return 0, ErrTeamNotFound
	}
	if len(m.teams[teamID]) >= m.cfg.MaxTeamSize {
		delete(m.invitations, id)
		return 0, ErrTeamFull
	}

	if err := m.joinLocked(teamID, playerID, inv.ReceiverName); err != nil {
		return 0, err
	}
	delete(m.invitations, id)

	log.Info().
		Str("invitation_id", string(id)).
		Int("team_id", teamID).
		Str("player_id", playerID).
		Msg("invitation accepted")

	targets := m.teamPlayerIDsLocked(teamID)
	targets = appendMissing(targets, inv.SenderID)
	m.emit(events.TypeInvitationAccepted, teamID, targets, events.InvitationAcceptedPayload{
		InvitationID: string(id),
		TeamID:       teamID,
		PlayerID:     playerID,
		PlayerName:   inv.ReceiverName,
	})
	return teamID, nil
}

// DeclineInvitation consumes an invitation without joining.
func (m *Manager) DeclineInvitation(id InvitationID, playerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	inv, ok := m.invitations[id]
	if !ok {
		return ErrInvitationNotFound
	}
	if inv.ReceiverID != playerID {
		return ErrInvitationNotForPlayer
	}
	delete(m.invitations, id)

	log.Info().Str("invitation_id", string(id)).Str("player_id", playerID).Msg("invitation declined")

	m.emit(events.TypeInvitationDeclined, inv.TeamID, []string{inv.SenderID, playerID},
		events.InvitationDeclinedPayload{
			InvitationID: string(id),
			PlayerID:     playerID,
		})
	return nil
}

// SweepExpiredInvitations removes every invitation older than the
// configured TTL and reports how many were removed.
func (m *Manager) SweepExpiredInvitations() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	var expired []*Invitation
	for _, inv := range m.invitations {
		if inv.Expired(now, m.cfg.InvitationTTL) {
			expired = append(expired, inv)
		}
	}
	for _, inv := range expired {
		m.expireLocked(inv)
	}
	return len(expired)
}

func (m *Manager) expireLocked(inv *Invitation) {
	delete(m.invitations, inv.ID)
	log.Info().Str("invitation_id", string(inv.ID)).Int("team_id", inv.TeamID).Msg("invitation expired")
	m.emit(events.TypeInvitationExpired, inv.TeamID, []string{inv.SenderID, inv.ReceiverID},
		events.InvitationExpiredPayload{
			InvitationID: string(inv.ID),
			TeamID:       inv.TeamID,
		})
}

// PlayerTeam returns the ID of the team the player is on, or 0.
func (m *Manager) PlayerTeam(playerID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playerTeamLocked(playerID)
}

// IsLeader reports whether the player leads the given team.
func (m *Manager) IsLeader(playerID string, teamID int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	mem := m.memberLocked(teamID, playerID)
	return mem != nil && mem.IsLeader
}

// TeamExists reports whether the team has any members.
func (m *Manager) TeamExists(teamID int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.teams[teamID]
	return ok
}

// TeamMembers returns the team's members in insertion order. The
// returned slice is a copy; the directory retains ownership of its
// own records.
func (m *Manager) TeamMembers(teamID int) []Member {
	m.mu.Lock()
	defer m.mu.Unlock()

	members, ok := m.teams[teamID]
	if !ok {
		return nil
	}
	out := make([]Member, len(members))
	for i, mem := range members {
		out[i] = *mem
	}
	return out
}

// Teams returns the IDs of all live teams.
func (m *Manager) Teams() []int {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]int, 0, len(m.teams))
	for id := range m.teams {
		ids = append(ids, id)
	}
	return ids
}

// PendingInvitations returns copies of the invitations addressed to
// the player.
func (m *Manager) PendingInvitations(playerID string) []Invitation {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Invitation
	for _, inv := range m.invitations {
		if inv.ReceiverID == playerID {
			out = append(out, *inv)
		}
	}
	return out
}

// Invitation returns a copy of the invitation, if it exists.
func (m *Manager) Invitation(id InvitationID) (Invitation, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	inv, ok := m.invitations[id]
	if !ok {
		return Invitation{}, false
	}
	return *inv, true
}

// RegisterFlagpole records a flagpole for a team, subject to the
// per-team limit.
func (m *Manager) RegisterFlagpole(teamID int, flagpoleID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.teams[teamID]; !ok {
		return ErrTeamNotFound
	}
	if len(m.flagpoles[teamID]) >= m.cfg.MaxFlagpoles {
		return ErrFlagpoleLimit
	}
	m.flagpoles[teamID] = append(m.flagpoles[teamID], flagpoleID)
	return nil
}

// TeamFlagpoles returns the flagpoles registered for a team.
func (m *Manager) TeamFlagpoles(teamID int) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.flagpoles[teamID]...)
}

func (m *Manager) playerTeamLocked(playerID string) int {
	for teamID, members := range m.teams {
		for _, mem := range members {
			if mem.PlayerID == playerID {
				return teamID
			}
		}
	}
	return 0
}

func (m *Manager) memberLocked(teamID int, playerID string) *Member {
	for _, mem := range m.teams[teamID] {
		if mem.PlayerID == playerID {
			return mem
		}
	}
	return nil
}

func (m *Manager) teamPlayerIDsLocked(teamID int) []string {
	members := m.teams[teamID]
	ids := make([]string, len(members))
	for i, mem := range members {
		ids[i] = mem.PlayerID
	}
	return ids
}

func (m *Manager) emit(t events.Type, teamID int, targets []string, payload any) {
	if m.sink == nil {
		return
	}
	e, err := events.New(t, teamID, m.clock.Now(), payload)
	if err != nil {
		log.Error().Err(err).Str("event_type", string(t)).Msg("failed to build event")
		return
	}
	e.Targets = targets
	m.sink.Emit(e)
}

func memberInfo(mem *Member) events.MemberInfo {
	return events.MemberInfo{
		PlayerID:   mem.PlayerID,
		PlayerName: mem.PlayerName,
		IsLeader:   mem.IsLeader,
		JoinedAt:   mem.JoinedAt,
	}
}

func invitationInfo(inv *Invitation) events.InvitationInfo {
	return events.InvitationInfo{
		InvitationID: string(inv.ID),
		TeamID:       inv.TeamID,
		SenderID:     inv.SenderID,
		SenderName:   inv.SenderName,
		ReceiverID:   inv.ReceiverID,
		ReceiverName: inv.ReceiverName,
		CreatedAt:    inv.CreatedAt,
	}
}

func appendMissing(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}
