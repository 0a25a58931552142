package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"ctfplatform/internal/common/cache"
	"ctfplatform/internal/submission/repository"
	taskRepo "ctfplatform/internal/task/repository"
	taskService "ctfplatform/internal/task/service"
	teamRepo "ctfplatform/internal/team/repository"
	pkgerrors "ctfplatform/pkg/errors"
	"ctfplatform/pkg/utils/logger"

	"go.uber.org/zap"
)

const rateTeamKeyPrefix = "submit:rate:team:"

// RateLimitConfig bounds attempts per team within a window. A zero window or
// max disables the limit.
type RateLimitConfig struct {
	Window time.Duration
	Max    int
}

// Config wires the dependencies of SubmissionService.
type Config struct {
	Submissions repository.SubmissionRepository
	Tasks       taskRepo.TaskRepository
	Teams       teamRepo.TeamRepository
	Cache       cache.Cache
	RateLimit   RateLimitConfig
}

// SubmissionService checks answers and records attempts and solves.
type SubmissionService struct {
	submissions repository.SubmissionRepository
	tasks       taskRepo.TaskRepository
	teams       teamRepo.TeamRepository
	cache       cache.Cache
	rateLimit   RateLimitConfig
	now         func() time.Time
}

func NewSubmissionService(cfg Config) (*SubmissionService, error) {
	if cfg.Submissions == nil || cfg.Tasks == nil || cfg.Teams == nil {
		return nil, errors.New("submission, task and team repositories are required")
	}
	return &SubmissionService{
		submissions: cfg.Submissions,
		tasks:       cfg.Tasks,
		teams:       cfg.Teams,
		cache:       cfg.Cache,
		rateLimit:   cfg.RateLimit,
		now:         time.Now,
	}, nil
}

func (s *SubmissionService) WithClock(now func() time.Time) *SubmissionService {
	s.now = now
	return s
}

// Submit checks answer against the task on behalf of the team. Only opened
// tasks accept answers and a team scores a task once.
func (s *SubmissionService) Submit(ctx context.Context, teamID, taskID int64, answer string) (bool, error) {
	if answer == "" {
		return false, pkgerrors.ValidationError("answer", "must not be empty")
	}
	if err := s.checkRateLimit(ctx, teamID); err != nil {
		return false, err
	}

	task, err := s.tasks.GetByID(ctx, nil, taskID)
	if err != nil {
		if errors.Is(err, taskRepo.ErrTaskNotFound) {
			return false, pkgerrors.New(pkgerrors.TaskNotFound)
		}
		logger.Error(ctx, "get task failed", zap.Int64("task_id", taskID), zap.Error(err))
		return false, pkgerrors.Wrap(fmt.Errorf("get task failed: %w", err), pkgerrors.InternalServerError)
	}
	if !task.IsOpened() {
		return false, pkgerrors.New(pkgerrors.TaskNotSubmittable).WithDetail("state", task.State.String())
	}

	team, err := s.teams.GetByID(ctx, nil, teamID)
	if err != nil {
		if errors.Is(err, teamRepo.ErrTeamNotFound) {
			return false, pkgerrors.New(pkgerrors.TeamNotFound)
		}
		logger.Error(ctx, "get team failed", zap.Int64("team_id", teamID), zap.Error(err))
		return false, pkgerrors.Wrap(fmt.Errorf("get team failed: %w", err), pkgerrors.InternalServerError)
	}
	if team.Disqualified {
		return false, pkgerrors.New(pkgerrors.TeamDisqualified)
	}

	solved, err := s.submissions.IsSolved(ctx, nil, teamID, taskID)
	if err != nil {
		logger.Error(ctx, "check solved failed", zap.Int64("team_id", teamID), zap.Int64("task_id", taskID), zap.Error(err))
		return false, pkgerrors.Wrap(fmt.Errorf("check solved failed: %w", err), pkgerrors.InternalServerError)
	}
	if solved {
		return false, pkgerrors.New(pkgerrors.TaskAlreadySolved)
	}

	correct := taskService.CheckAnswer(task, answer)
	now := s.now().UTC().Truncate(time.Millisecond)
	hit := &repository.Hit{TeamID: teamID, TaskID: taskID, CreatedAt: now}
	if !correct {
		hit.WrongAnswer = answer
	}
	if _, err := s.submissions.RecordHit(ctx, nil, hit); err != nil {
		logger.Error(ctx, "record hit failed", zap.Int64("team_id", teamID), zap.Int64("task_id", taskID), zap.Error(err))
		return false, pkgerrors.Wrap(fmt.Errorf("record hit failed: %w", err), pkgerrors.InternalServerError)
	}
	if !correct {
		return false, nil
	}

	if err := s.submissions.RecordSolve(ctx, nil, teamID, taskID, now); err != nil {
		if errors.Is(err, repository.ErrAlreadySolved) {
			return false, pkgerrors.New(pkgerrors.TaskAlreadySolved)
		}
		logger.Error(ctx, "record solve failed", zap.Int64("team_id", teamID), zap.Int64("task_id", taskID), zap.Error(err))
		return false, pkgerrors.Wrap(fmt.Errorf("record solve failed: %w", err), pkgerrors.InternalServerError)
	}
	logger.Info(ctx, "task solved", zap.Int64("team_id", teamID), zap.Int64("task_id", taskID))
	return true, nil
}

func (s *SubmissionService) checkRateLimit(ctx context.Context, teamID int64) error {
	if s.cache == nil || s.rateLimit.Window <= 0 || s.rateLimit.Max <= 0 {
		return nil
	}
	key := rateTeamKeyPrefix + strconv.FormatInt(teamID, 10)
	count, err := s.cache.Incr(ctx, key)
	if err != nil {
		// fail open
		logger.Warn(ctx, "rate limit check failed", zap.Int64("team_id", teamID), zap.Error(err))
		return nil
	}
	if count == 1 {
		_ = s.cache.Expire(ctx, key, s.rateLimit.Window)
	}
	if int(count) > s.rateLimit.Max {
		return pkgerrors.New(pkgerrors.SubmitTooFrequent)
	}
	return nil
}
