package team

import "errors"

// Sentinel errors for every way a directory operation can fail. The
// legacy system surfaced only notification text; callers here get a
// machine-readable error and render their own text.
var (
	ErrAlreadyOnTeam          = errors.New("player is already on a team")
	ErrTeamNotFound           = errors.New("team does not exist")
	ErrTeamFull               = errors.New("team is full")
	ErrNotLeader              = errors.New("player is not the team leader")
	ErrNotInTeam              = errors.New("player is not on a team")
	ErrAlreadyInvited         = errors.New("player already has a pending invitation to this team")
	ErrInvitationNotFound     = errors.New("invitation does not exist")
	ErrInvitationNotForPlayer = errors.New("invitation is addressed to another player")
	ErrInvitationExpired      = errors.New("invitation has expired")
	ErrFlagpoleLimit          = errors.New("team already has the maximum number of flagpoles")
)

// ErrorCode maps a directory error to its stable wire code. Unknown
// errors map to "internal"; nil maps to "".
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAlreadyOnTeam):
		return "already_on_team"
	case errors.Is(err, ErrTeamNotFound):
		return "team_not_found"
	case errors.Is(err, ErrTeamFull):
		return "team_full"
	case errors.Is(err, ErrNotLeader):
		return "not_leader"
	case errors.Is(err, ErrNotInTeam):
		return "not_in_team"
	case errors.Is(err, ErrAlreadyInvited):
		return "already_invited"
	case errors.Is(err, ErrInvitationNotFound):
		return "invitation_not_found"
	case errors.Is(err, ErrInvitationNotForPlayer):
		return "invitation_not_for_player"
	case errors.Is(err, ErrInvitationExpired):
		return "invitation_expired"
	case errors.Is(err, ErrFlagpoleLimit):
		return "flagpole_limit"
	default:
		return "internal"
	}
}
