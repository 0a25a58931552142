package model

import (
	"ctfplatform/internal/realtime"
	"ctfplatform/internal/team/repository"
)

// DisqualifyPayload identifies the disqualified team.
type DisqualifyPayload struct {
	ID int64 `json:"id"`
}

// NewDisqualifyTeamEvent is delivered to every audience.
func NewDisqualifyTeamEvent(team *repository.Team) realtime.Event {
	return realtime.NewEvent(realtime.KindDisqualifyTeam, DisqualifyPayload{ID: team.ID}, realtime.Audiences...)
}
