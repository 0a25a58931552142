package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ctfplatform/internal/realtime"
	"ctfplatform/internal/task/model"
	"ctfplatform/internal/task/repository"
	pkgerrors "ctfplatform/pkg/errors"
	"ctfplatform/pkg/utils/logger"

	"go.uber.org/zap"
)

// TaskService owns the task lifecycle: creation, content updates, the
// INITIAL -> OPENED -> CLOSED transitions and answer checks.
type TaskService struct {
	repo   repository.TaskRepository
	events realtime.Sink
	now    func() time.Time
}

// NewTaskService creates a TaskService. events may be nil.
func NewTaskService(repo repository.TaskRepository, events realtime.Sink) *TaskService {
	return &TaskService{
		repo:   repo,
		events: events,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the time source.
func (s *TaskService) WithClock(now func() time.Time) *TaskService {
	s.now = now
	return s
}

// CreateInput represents input for task creation.
type CreateInput struct {
	Title         string
	Description   string
	Hints         []string
	Categories    []int64
	Answers       []string
	Value         int
	CaseSensitive bool
}

// UpdateInput carries the editable fields. Answers are merged, the rest
// replaced.
type UpdateInput struct {
	Description string
	Hints       []string
	Categories  []int64
	Answers     []string
}

// Create stores a new task in the initial state and announces it to
// supervisors.
func (s *TaskService) Create(ctx context.Context, input CreateInput) (*repository.Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, pkgerrors.BadRequest("title is required")
	}

	now := s.timestamp()
	task := &repository.Task{
		Title:         title,
		Description:   input.Description,
		Hints:         orEmpty(input.Hints),
		Categories:    orEmpty(input.Categories),
		Answers:       orEmpty(input.Answers),
		Value:         input.Value,
		CaseSensitive: input.CaseSensitive,
		State:         repository.StateInitial,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if _, err := s.repo.Create(ctx, nil, task); err != nil {
		if errors.Is(err, repository.ErrDuplicateTitle) {
			return nil, pkgerrors.New(pkgerrors.DuplicateTaskTitle).WithDetail("title", title)
		}
		logger.Error(ctx, "create task failed", zap.String("title", title), zap.Error(err))
		return nil, pkgerrors.Wrap(fmt.Errorf("create task failed: %w", err), pkgerrors.InternalServerError)
	}

	s.emit(ctx, model.NewCreateTaskEvent(task))
	return task, nil
}

// Update merges answers (existing first, new ones appended without
// duplicates), replaces description, hints and categories and refreshes
// UpdatedAt. Allowed in any state.
func (s *TaskService) Update(ctx context.Context, task *repository.Task, input UpdateInput) (*repository.Task, error) {
	if task == nil {
		return nil, pkgerrors.New(pkgerrors.TaskNotFound)
	}

	content := repository.TaskContent{
		Description: input.Description,
		Hints:       orEmpty(input.Hints),
		Categories:  orEmpty(input.Categories),
		Answers:     MergeAnswers(task.Answers, input.Answers),
		UpdatedAt:   s.timestamp(),
	}

	if err := s.repo.UpdateContent(ctx, nil, task.ID, content); err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return nil, pkgerrors.New(pkgerrors.TaskNotFound)
		}
		logger.Error(ctx, "update task failed", zap.Int64("task_id", task.ID), zap.Error(err))
		return nil, pkgerrors.Wrap(fmt.Errorf("update task failed: %w", err), pkgerrors.InternalServerError)
	}

	updated, err := s.repo.GetFresh(ctx, nil, task.ID)
	if err != nil {
		logger.Warn(ctx, "reload updated task failed", zap.Int64("task_id", task.ID), zap.Error(err))
		updated = task.Clone()
		updated.Description = content.Description
		updated.Hints = content.Hints
		updated.Categories = content.Categories
		updated.Answers = content.Answers
		updated.UpdatedAt = content.UpdatedAt
	}

	s.emit(ctx, model.NewUpdateTaskEvent(updated))
	return updated, nil
}

// Open publishes an initial task. task is not modified.
func (s *TaskService) Open(ctx context.Context, task *repository.Task) error {
	if task == nil {
		return pkgerrors.New(pkgerrors.TaskNotFound)
	}
	if !task.IsInitial() {
		return openError(task.State)
	}
	opened, err := s.transition(ctx, task, repository.StateOpened, openError)
	if err != nil {
		return err
	}
	s.emit(ctx, model.NewOpenTaskEvent(opened))
	return nil
}

// Close stops an opened task from accepting answers. task is not modified.
func (s *TaskService) Close(ctx context.Context, task *repository.Task) error {
	if task == nil {
		return pkgerrors.New(pkgerrors.TaskNotFound)
	}
	if !task.IsOpened() {
		return closeError(task.State)
	}
	closed, err := s.transition(ctx, task, repository.StateClosed, closeError)
	if err != nil {
		return err
	}
	s.emit(ctx, model.NewCloseTaskEvent(closed))
	return nil
}

// transition applies the conditional state update. When another writer moved
// the task first, the current state is mapped through stateErr.
func (s *TaskService) transition(ctx context.Context, task *repository.Task, to repository.State, stateErr func(repository.State) error) (*repository.Task, error) {
	now := s.timestamp()
	err := s.repo.TransitionState(ctx, nil, task.ID, task.State, to, now)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrTaskNotFound):
		return nil, pkgerrors.New(pkgerrors.TaskNotFound)
	case errors.Is(err, repository.ErrStateConflict):
		current, getErr := s.repo.GetFresh(ctx, nil, task.ID)
		if getErr != nil {
			logger.Error(ctx, "reload task after state conflict failed", zap.Int64("task_id", task.ID), zap.Error(getErr))
			return nil, pkgerrors.Wrap(fmt.Errorf("reload task failed: %w", getErr), pkgerrors.InternalServerError)
		}
		return nil, stateErr(current.State)
	default:
		logger.Error(ctx, "change task state failed",
			zap.Int64("task_id", task.ID),
			zap.Stringer("from", task.State),
			zap.Stringer("to", to),
			zap.Error(err),
		)
		return nil, pkgerrors.Wrap(fmt.Errorf("change task state failed: %w", err), pkgerrors.InternalServerError)
	}

	updated := task.Clone()
	updated.State = to
	updated.UpdatedAt = now
	return updated, nil
}

// Get returns a task by id.
func (s *TaskService) Get(ctx context.Context, id int64) (*repository.Task, error) {
	if id <= 0 {
		return nil, pkgerrors.New(pkgerrors.TaskNotFound)
	}
	task, err := s.repo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return nil, pkgerrors.New(pkgerrors.TaskNotFound)
		}
		logger.Error(ctx, "get task failed", zap.Int64("task_id", id), zap.Error(err))
		return nil, pkgerrors.Wrap(fmt.Errorf("get task failed: %w", err), pkgerrors.InternalServerError)
	}
	return task, nil
}

// List returns every task ordered by id.
func (s *TaskService) List(ctx context.Context) ([]*repository.Task, error) {
	tasks, err := s.repo.List(ctx, nil)
	if err != nil {
		logger.Error(ctx, "list tasks failed", zap.Error(err))
		return nil, pkgerrors.Wrap(fmt.Errorf("list tasks failed: %w", err), pkgerrors.InternalServerError)
	}
	return tasks, nil
}

// ListEligible returns opened and closed tasks.
func (s *TaskService) ListEligible(ctx context.Context) ([]*repository.Task, error) {
	tasks, err := s.repo.ListByStates(ctx, nil, repository.StateOpened, repository.StateClosed)
	if err != nil {
		logger.Error(ctx, "list eligible tasks failed", zap.Error(err))
		return nil, pkgerrors.Wrap(fmt.Errorf("list eligible tasks failed: %w", err), pkgerrors.InternalServerError)
	}
	return tasks, nil
}

// GetByCategory returns all tasks, in any state, listing categoryID.
func (s *TaskService) GetByCategory(ctx context.Context, categoryID int64) ([]*repository.Task, error) {
	tasks, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	filtered := make([]*repository.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.HasCategory(categoryID) {
			filtered = append(filtered, t)
		}
	}
	return filtered, nil
}

// CheckAnswer reports whether proposed matches one of the task's answers.
func (s *TaskService) CheckAnswer(task *repository.Task, proposed string) bool {
	return CheckAnswer(task, proposed)
}

// CheckAnswer compares exactly for case-sensitive tasks and after lower-casing
// both sides otherwise. It stops at the first match.
func CheckAnswer(task *repository.Task, proposed string) bool {
	if task == nil {
		return false
	}
	if !task.CaseSensitive {
		proposed = strings.ToLower(proposed)
	}
	for _, answer := range task.Answers {
		if task.CaseSensitive {
			if proposed == answer {
				return true
			}
			continue
		}
		if proposed == strings.ToLower(answer) {
			return true
		}
	}
	return false
}

// MergeAnswers returns existing followed by the additions not already
// present, in order and without duplicates.
func MergeAnswers(existing, additions []string) []string {
	merged := make([]string, 0, len(existing)+len(additions))
	seen := make(map[string]struct{}, len(existing)+len(additions))
	for _, list := range [][]string{existing, additions} {
		for _, a := range list {
			if _, ok := seen[a]; ok {
				continue
			}
			seen[a] = struct{}{}
			merged = append(merged, a)
		}
	}
	return merged
}

func openError(state repository.State) error {
	switch state {
	case repository.StateOpened:
		return pkgerrors.New(pkgerrors.TaskAlreadyOpened)
	case repository.StateClosed:
		return pkgerrors.New(pkgerrors.TaskClosed)
	default:
		return pkgerrors.Newf(pkgerrors.InternalServerError, "unexpected task state %d", int(state))
	}
}

func closeError(state repository.State) error {
	switch state {
	case repository.StateInitial:
		return pkgerrors.New(pkgerrors.TaskNotOpened)
	case repository.StateClosed:
		return pkgerrors.New(pkgerrors.TaskAlreadyClosed)
	default:
		return pkgerrors.Newf(pkgerrors.InternalServerError, "unexpected task state %d", int(state))
	}
}

func (s *TaskService) emit(ctx context.Context, event realtime.Event) {
	if s.events == nil {
		return
	}
	s.events.Emit(ctx, event)
}

// timestamp is truncated to the millisecond precision the store keeps.
func (s *TaskService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

func orEmpty[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
