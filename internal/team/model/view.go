package model

import "ctfplatform/internal/team/repository"

// TeamPublic is the team as other teams and guests see it.
type TeamPublic struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Country      string `json:"country"`
	Locality     string `json:"locality"`
	Institution  string `json:"institution"`
	Disqualified bool   `json:"disqualified"`
	CreatedAt    int64  `json:"createdAt"`
}

// TeamFull adds the contact email for supervisors.
type TeamFull struct {
	TeamPublic
	Email string `json:"email"`
}

func Public(team *repository.Team) TeamPublic {
	return TeamPublic{
		ID:           team.ID,
		Name:         team.Name,
		Country:      team.Country,
		Locality:     team.Locality,
		Institution:  team.Institution,
		Disqualified: team.Disqualified,
		CreatedAt:    team.CreatedAt.UnixMilli(),
	}
}

func Full(team *repository.Team) TeamFull {
	return TeamFull{TeamPublic: Public(team), Email: team.Email}
}

func PublicList(teams []*repository.Team) []TeamPublic {
	out := make([]TeamPublic, 0, len(teams))
	for _, t := range teams {
		out = append(out, Public(t))
	}
	return out
}

func FullList(teams []*repository.Team) []TeamFull {
	out := make([]TeamFull, 0, len(teams))
	for _, t := range teams {
		out = append(out, Full(t))
	}
	return out
}
