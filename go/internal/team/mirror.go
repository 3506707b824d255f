package team

// Mirror primitives. A client's directory is updated only through
// these: they apply server-confirmed state without precondition checks
// and without emitting events. The server never calls them.

// PutMember upserts a member on a team, creating the team record if
// needed. Insertion order is preserved for new members.
func (m *Manager) PutMember(teamID int, member Member) {
	m.mu.Lock()
	defer m.mu.Unlock()

	member.TeamID = teamID
	for i, mem := range m.teams[teamID] {
		if mem.PlayerID == member.PlayerID {
			copied := member
			m.teams[teamID][i] = &copied
			return
		}
	}
	copied := member
	m.teams[teamID] = append(m.teams[teamID], &copied)
	if teamID >= m.nextTeamID {
		m.nextTeamID = teamID + 1
	}
}

// RemoveMember drops a member from a team; an emptied team record is
// deleted.
func (m *Manager) RemoveMember(teamID int, playerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	members := m.teams[teamID]
	for i, mem := range members {
		if mem.PlayerID == playerID {
			m.teams[teamID] = append(members[:i], members[i+1:]...)
			break
		}
	}
	if len(m.teams[teamID]) == 0 {
		delete(m.teams, teamID)
		delete(m.flagpoles, teamID)
	}
}

// SetLeader marks one member as the team leader and clears the flag on
// everyone else.
func (m *Manager) SetLeader(teamID int, playerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, mem := range m.teams[teamID] {
		mem.IsLeader = mem.PlayerID == playerID
	}
}

// SyncTeam replaces a team's member list wholesale with the server's
// copy. An empty list deletes the team.
func (m *Manager) SyncTeam(teamID int, members []Member) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(members) == 0 {
		delete(m.teams, teamID)
		delete(m.flagpoles, teamID)
		return
	}
	replacement := make([]*Member, len(members))
	for i, mem := range members {
		copied := mem
		copied.TeamID = teamID
		replacement[i] = &copied
	}
	m.teams[teamID] = replacement
	if teamID >= m.nextTeamID {
		m.nextTeamID = teamID + 1
	}
}

// RemoveTeam deletes a team record outright.
func (m *Manager) RemoveTeam(teamID int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.teams, teamID)
	delete(m.flagpoles, teamID)
}

// PutInvitation stores a server-issued invitation in the mirror.
func (m *Manager) PutInvitation(inv Invitation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := inv
	m.invitations[inv.ID] = &copied
}

// DropInvitation removes an invitation from the mirror.
func (m *Manager) DropInvitation(id InvitationID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.invitations, id)
}
