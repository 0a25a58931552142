package service

import (
	"context"
	"fmt"

	"ctfplatform/internal/stat/repository"
	pkgerrors "ctfplatform/pkg/errors"
	"ctfplatform/pkg/utils/logger"

	"go.uber.org/zap"
)

// Stats is the statistics document.
type Stats struct {
	Teams repository.TeamStats `json:"teams"`
}

type StatService struct {
	repo repository.StatRepository
}

func NewStatService(repo repository.StatRepository) *StatService {
	return &StatService{repo: repo}
}

func (s *StatService) GetStats(ctx context.Context) (Stats, error) {
	teams, err := s.repo.TeamStats(ctx, nil)
	if err != nil {
		logger.Error(ctx, "compute team stats failed", zap.Error(err))
		return Stats{}, pkgerrors.Wrap(fmt.Errorf("compute team stats failed: %w", err), pkgerrors.InternalServerError)
	}
	return Stats{Teams: teams}, nil
}
