package service

import (
	"context"
	"errors"
	"fmt"

	"ctfplatform/internal/realtime"
	"ctfplatform/internal/team/model"
	"ctfplatform/internal/team/repository"
	pkgerrors "ctfplatform/pkg/errors"
	"ctfplatform/pkg/utils/logger"

	"go.uber.org/zap"
)

// TeamService exposes team listings and disqualification.
type TeamService struct {
	repo   repository.TeamRepository
	events realtime.Sink
}

// NewTeamService creates a TeamService. events may be nil.
func NewTeamService(repo repository.TeamRepository, events realtime.Sink) *TeamService {
	return &TeamService{repo: repo, events: events}
}

// Get returns a team by id.
func (s *TeamService) Get(ctx context.Context, id int64) (*repository.Team, error) {
	if id <= 0 {
		return nil, pkgerrors.New(pkgerrors.TeamNotFound)
	}
	team, err := s.repo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, repository.ErrTeamNotFound) {
			return nil, pkgerrors.New(pkgerrors.TeamNotFound)
		}
		logger.Error(ctx, "get team failed", zap.Int64("team_id", id), zap.Error(err))
		return nil, pkgerrors.Wrap(fmt.Errorf("get team failed: %w", err), pkgerrors.InternalServerError)
	}
	return team, nil
}

func (s *TeamService) List(ctx context.Context) ([]*repository.Team, error) {
	teams, err := s.repo.List(ctx, nil)
	if err != nil {
		logger.Error(ctx, "list teams failed", zap.Error(err))
		return nil, pkgerrors.Wrap(fmt.Errorf("list teams failed: %w", err), pkgerrors.InternalServerError)
	}
	return teams, nil
}

func (s *TeamService) ListQualified(ctx context.Context) ([]*repository.Team, error) {
	teams, err := s.repo.ListQualified(ctx, nil)
	if err != nil {
		logger.Error(ctx, "list qualified teams failed", zap.Error(err))
		return nil, pkgerrors.Wrap(fmt.Errorf("list qualified teams failed: %w", err), pkgerrors.InternalServerError)
	}
	return teams, nil
}

// Disqualify marks the team disqualified and announces it. Disqualifying an
// already disqualified team succeeds and announces again.
func (s *TeamService) Disqualify(ctx context.Context, id int64) error {
	team, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Disqualify(ctx, nil, team.ID); err != nil {
		if errors.Is(err, repository.ErrTeamNotFound) {
			return pkgerrors.New(pkgerrors.TeamNotFound)
		}
		logger.Error(ctx, "disqualify team failed", zap.Int64("team_id", id), zap.Error(err))
		return pkgerrors.Wrap(fmt.Errorf("disqualify team failed: %w", err), pkgerrors.InternalServerError)
	}

	logger.Info(ctx, "team disqualified", zap.Int64("team_id", team.ID), zap.String("name", team.Name))
	if s.events != nil {
		s.events.Emit(ctx, model.NewDisqualifyTeamEvent(team))
	}
	return nil
}
