package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ctfplatform/internal/supervisor/repository"
	pkgerrors "ctfplatform/pkg/errors"
	"ctfplatform/pkg/utils/logger"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 72 // bcrypt input limit
)

// SupervisorService manages supervisor accounts.
type SupervisorService struct {
	repo repository.SupervisorRepository
	cost int
	now  func() time.Time
}

func NewSupervisorService(repo repository.SupervisorRepository) *SupervisorService {
	return &SupervisorService{repo: repo, cost: bcrypt.DefaultCost, now: time.Now}
}

// WithCost sets the bcrypt cost. Values outside bcrypt's range fall back to
// the default.
func (s *SupervisorService) WithCost(cost int) *SupervisorService {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	s.cost = cost
	return s
}

type CreateInput struct {
	Username string
	Password string
	Rights   string
}

func (s *SupervisorService) Create(ctx context.Context, input CreateInput) (*repository.Supervisor, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" {
		return nil, pkgerrors.ValidationError("username", "must not be empty")
	}
	rights := repository.Rights(input.Rights)
	if !rights.Valid() {
		return nil, pkgerrors.ValidationError("rights", "must be admin or manager")
	}
	if err := validatePassword(input.Password); err != nil {
		return nil, err
	}

	hash, err := s.hash(input.Password)
	if err != nil {
		return nil, err
	}
	supervisor := &repository.Supervisor{
		Username:     username,
		PasswordHash: hash,
		Rights:       rights,
		CreatedAt:    s.now().UTC().Truncate(time.Millisecond),
	}
	if _, err := s.repo.Create(ctx, nil, supervisor); err != nil {
		if errors.Is(err, repository.ErrDuplicateUsername) {
			return nil, pkgerrors.New(pkgerrors.SupervisorAlreadyExists).WithDetail("username", username)
		}
		logger.Error(ctx, "create supervisor failed", zap.String("username", username), zap.Error(err))
		return nil, pkgerrors.Wrap(fmt.Errorf("create supervisor failed: %w", err), pkgerrors.InternalServerError)
	}
	logger.Info(ctx, "supervisor created", zap.Int64("supervisor_id", supervisor.ID), zap.String("rights", string(rights)))
	return supervisor, nil
}

func (s *SupervisorService) ChangePassword(ctx context.Context, username, password string) error {
	if err := validatePassword(password); err != nil {
		return err
	}
	hash, err := s.hash(password)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePassword(ctx, nil, username, hash); err != nil {
		return s.mapError(ctx, "change supervisor password failed", username, err)
	}
	return nil
}

func (s *SupervisorService) Delete(ctx context.Context, username string) error {
	if err := s.repo.Delete(ctx, nil, username); err != nil {
		return s.mapError(ctx, "delete supervisor failed", username, err)
	}
	return nil
}

// Index lists supervisors ordered by id.
func (s *SupervisorService) Index(ctx context.Context) ([]*repository.Supervisor, error) {
	supervisors, err := s.repo.List(ctx, nil)
	if err != nil {
		logger.Error(ctx, "list supervisors failed", zap.Error(err))
		return nil, pkgerrors.Wrap(fmt.Errorf("list supervisors failed: %w", err), pkgerrors.InternalServerError)
	}
	return supervisors, nil
}

// Authenticate checks credentials. Unknown users and wrong passwords are
// indistinguishable to the caller.
func (s *SupervisorService) Authenticate(ctx context.Context, username, password string) (*repository.Supervisor, error) {
	supervisor, err := s.repo.GetByUsername(ctx, nil, username)
	if err != nil {
		if errors.Is(err, repository.ErrSupervisorNotFound) {
			return nil, pkgerrors.New(pkgerrors.InvalidCredentials)
		}
		logger.Error(ctx, "get supervisor failed", zap.String("username", username), zap.Error(err))
		return nil, pkgerrors.Wrap(fmt.Errorf("get supervisor failed: %w", err), pkgerrors.InternalServerError)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(supervisor.PasswordHash), []byte(password)); err != nil {
		return nil, pkgerrors.New(pkgerrors.InvalidCredentials)
	}
	return supervisor, nil
}

func (s *SupervisorService) hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", pkgerrors.Wrap(fmt.Errorf("hash password failed: %w", err), pkgerrors.InternalServerError)
	}
	return string(hash), nil
}

func (s *SupervisorService) mapError(ctx context.Context, msg, username string, err error) error {
	if errors.Is(err, repository.ErrSupervisorNotFound) {
		return pkgerrors.New(pkgerrors.SupervisorNotFound).WithDetail("username", username)
	}
	logger.Error(ctx, msg, zap.String("username", username), zap.Error(err))
	return pkgerrors.Wrap(fmt.Errorf("%s: %w", msg, err), pkgerrors.InternalServerError)
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return pkgerrors.ValidationError("password", fmt.Sprintf("must be at least %d characters", minPasswordLength))
	}
	if len(password) > maxPasswordLength {
		return pkgerrors.ValidationError("password", fmt.Sprintf("must be at most %d bytes", maxPasswordLength))
	}
	return nil
}
