package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"ctfplatform/internal/common/cache"
	"ctfplatform/internal/common/db"
	pkgrepo "ctfplatform/pkg/repository"
	"ctfplatform/pkg/utils/logger"

	"go.uber.org/zap"
)

const (
	defaultTaskTTL      = 10 * time.Minute
	defaultTaskEmptyTTL = 1 * time.Minute
	taskKeyPrefix       = "task:id:"
)

var (
	ErrTaskNotFound   = fmt.Errorf("task not found: %w", pkgrepo.ErrNotFound)
	ErrDuplicateTitle = fmt.Errorf("task title exists: %w", pkgrepo.ErrAlreadyExists)
	// ErrStateConflict means the task was not in the expected state when
	// a transition was attempted.
	ErrStateConflict = fmt.Errorf("task state changed: %w", pkgrepo.ErrConflict)
)

const taskColumns = "id, title, description, hints, categories, answers, value, case_sensitive, state, created_at, updated_at"

type TaskRepository interface {
	Create(ctx context.Context, tx db.Transaction, task *Task) (int64, error)
	GetByID(ctx context.Context, tx db.Transaction, id int64) (*Task, error)
	// GetFresh reads the row from the store, skipping the cache.
	GetFresh(ctx context.Context, tx db.Transaction, id int64) (*Task, error)
	List(ctx context.Context, tx db.Transaction) ([]*Task, error)
	ListByStates(ctx context.Context, tx db.Transaction, states ...State) ([]*Task, error)
	UpdateContent(ctx context.Context, tx db.Transaction, id int64, content TaskContent) error
	TransitionState(ctx context.Context, tx db.Transaction, id int64, from, to State, now time.Time) error
	InvalidateCache(ctx context.Context, id int64) error
}

// SQLTaskRepository stores tasks in MySQL or SQLite and caches single-task
// reads in Redis.
type SQLTaskRepository struct {
	db       db.Database
	cache    cache.Cache
	ttl      time.Duration
	emptyTTL time.Duration
}

func NewTaskRepository(database db.Database, cacheClient cache.Cache) *SQLTaskRepository {
	return NewTaskRepositoryWithTTL(database, cacheClient, defaultTaskTTL, defaultTaskEmptyTTL)
}

func NewTaskRepositoryWithTTL(database db.Database, cacheClient cache.Cache, ttl, emptyTTL time.Duration) *SQLTaskRepository {
	if ttl <= 0 {
		ttl = defaultTaskTTL
	}
	if emptyTTL <= 0 {
		emptyTTL = defaultTaskEmptyTTL
	}
	return &SQLTaskRepository{
		db:       database,
		cache:    cacheClient,
		ttl:      ttl,
		emptyTTL: emptyTTL,
	}
}

// Create inserts task and sets its ID. Title uniqueness is enforced by the
// table's unique key; a violation yields ErrDuplicateTitle and no row.
func (r *SQLTaskRepository) Create(ctx context.Context, tx db.Transaction, task *Task) (int64, error) {
	if task == nil {
		return 0, errors.New("task is nil")
	}
	hints, categories, answers, err := encodeLists(task)
	if err != nil {
		return 0, err
	}

	query := "INSERT INTO task (title, description, hints, categories, answers, value, case_sensitive, state, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
	result, err := db.GetQuerier(r.db, tx).Exec(ctx, query,
		task.Title,
		task.Description,
		hints,
		categories,
		answers,
		task.Value,
		task.CaseSensitive,
		int(task.State),
		task.CreatedAt.UnixMilli(),
		task.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		if key, ok := db.UniqueViolation(err); ok {
			if db.KeyMatches(key, "task", "title") || key == "" {
				return 0, ErrDuplicateTitle
			}
			return 0, pkgrepo.ErrAlreadyExists
		}
		return 0, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	task.ID = id
	// drop a cached miss for this id
	r.invalidate(ctx, id)
	return id, nil
}

func (r *SQLTaskRepository) GetByID(ctx context.Context, tx db.Transaction, id int64) (*Task, error) {
	if r.cache == nil || tx != nil {
		return r.getFromDB(ctx, tx, id)
	}
	task, err := cache.GetWithCached[*Task](
		ctx,
		r.cache,
		taskKey(id),
		r.ttl,
		r.emptyTTL,
		func(t *Task) bool { return t == nil },
		marshalTask,
		unmarshalTask,
		func(ctx context.Context) (*Task, error) {
			task, err := r.getFromDB(ctx, nil, id)
			if errors.Is(err, ErrTaskNotFound) {
				return nil, nil
			}
			return task, err
		},
	)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, ErrTaskNotFound
	}
	return task, nil
}

func (r *SQLTaskRepository) GetFresh(ctx context.Context, tx db.Transaction, id int64) (*Task, error) {
	return r.getFromDB(ctx, tx, id)
}

func (r *SQLTaskRepository) List(ctx context.Context, tx db.Transaction) ([]*Task, error) {
	query := "SELECT " + taskColumns + " FROM task ORDER BY id"
	return r.query(ctx, tx, query)
}

func (r *SQLTaskRepository) ListByStates(ctx context.Context, tx db.Transaction, states ...State) ([]*Task, error) {
	if len(states) == 0 {
		return []*Task{}, nil
	}
	placeholders := make([]string, len(states))
	args := make([]interface{}, len(states))
	for i, s := range states {
		placeholders[i] = "?"
		args[i] = int(s)
	}
	query := "SELECT " + taskColumns + " FROM task WHERE state IN (" + strings.Join(placeholders, ", ") + ") ORDER BY id"
	return r.query(ctx, tx, query, args...)
}

// UpdateContent overwrites the editable fields.
func (r *SQLTaskRepository) UpdateContent(ctx context.Context, tx db.Transaction, id int64, content TaskContent) error {
	hints, err := encodeList(content.Hints)
	if err != nil {
		return err
	}
	categories, err := encodeList(content.Categories)
	if err != nil {
		return err
	}
	answers, err := encodeList(content.Answers)
	if err != nil {
		return err
	}

	query := "UPDATE task SET description = ?, hints = ?, categories = ?, answers = ?, updated_at = ? WHERE id = ?"
	result, err := db.GetQuerier(r.db, tx).Exec(ctx, query,
		content.Description, hints, categories, answers, content.UpdatedAt.UnixMilli(), id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// MySQL reports zero for a matched row whose values did not change
		if err := r.requireExists(ctx, tx, id); err != nil {
			return err
		}
	}
	r.invalidate(ctx, id)
	return nil
}

// TransitionState moves the task from one state to another only if it is
// still in from. Zero matched rows yields ErrStateConflict (or
// ErrTaskNotFound when the row is gone).
func (r *SQLTaskRepository) TransitionState(ctx context.Context, tx db.Transaction, id int64, from, to State, now time.Time) error {
	query := "UPDATE task SET state = ?, updated_at = ? WHERE id = ? AND state = ?"
	result, err := db.GetQuerier(r.db, tx).Exec(ctx, query, int(to), now.UnixMilli(), id, int(from))
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		if err := r.requireExists(ctx, tx, id); err != nil {
			return err
		}
		return ErrStateConflict
	}
	r.invalidate(ctx, id)
	return nil
}

// InvalidateCache drops the cached copy of a task.
func (r *SQLTaskRepository) InvalidateCache(ctx context.Context, id int64) error {
	if r.cache == nil {
		return nil
	}
	return r.cache.Del(ctx, taskKey(id))
}

// invalidate runs after a committed write, so a cache failure is only
// logged. The stale entry expires with its TTL.
func (r *SQLTaskRepository) invalidate(ctx context.Context, id int64) {
	if err := r.InvalidateCache(ctx, id); err != nil {
		logger.Warn(ctx, "invalidate task cache failed", zap.Int64("task_id", id), zap.Error(err))
	}
}

func (r *SQLTaskRepository) getFromDB(ctx context.Context, tx db.Transaction, id int64) (*Task, error) {
	query := "SELECT " + taskColumns + " FROM task WHERE id = ?"
	task, err := scanTask(db.GetQuerier(r.db, tx).QueryRow(ctx, query, id))
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return task, nil
}

func (r *SQLTaskRepository) query(ctx context.Context, tx db.Transaction, query string, args ...interface{}) ([]*Task, error) {
	rows, err := db.GetQuerier(r.db, tx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]*Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tasks, nil
}

func scanTask(scanner db.Scanner) (*Task, error) {
	var (
		task                       Task
		hints, categories, answers string
		state                      int
		createdAt, updatedAt       int64
	)
	err := scanner.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&hints,
		&categories,
		&answers,
		&task.Value,
		&task.CaseSensitive,
		&state,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := decodeList(hints, &task.Hints); err != nil {
		return nil, fmt.Errorf("decode hints of task %d: %w", task.ID, err)
	}
	if err := decodeList(categories, &task.Categories); err != nil {
		return nil, fmt.Errorf("decode categories of task %d: %w", task.ID, err)
	}
	if err := decodeList(answers, &task.Answers); err != nil {
		return nil, fmt.Errorf("decode answers of task %d: %w", task.ID, err)
	}
	task.State = State(state)
	task.CreatedAt = time.UnixMilli(createdAt).UTC()
	task.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return &task, nil
}

func encodeLists(task *Task) (string, string, string, error) {
	hints, err := encodeList(task.Hints)
	if err != nil {
		return "", "", "", err
	}
	categories, err := encodeList(task.Categories)
	if err != nil {
		return "", "", "", err
	}
	answers, err := encodeList(task.Answers)
	if err != nil {
		return "", "", "", err
	}
	return hints, categories, answers, nil
}

// encodeList stores nil as an empty JSON array.
func encodeList[T any](items []T) (string, error) {
	if items == nil {
		items = []T{}
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("%w: %v", pkgrepo.ErrInvalidInput, err)
	}
	return string(payload), nil
}

func decodeList[T any](raw string, dest *[]T) error {
	if strings.TrimSpace(raw) == "" {
		*dest = []T{}
		return nil
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return err
	}
	if *dest == nil {
		*dest = []T{}
	}
	return nil
}

func (r *SQLTaskRepository) requireExists(ctx context.Context, tx db.Transaction, id int64) error {
	var exists int
	row := db.GetQuerier(r.db, tx).QueryRow(ctx, "SELECT 1 FROM task WHERE id = ?", id)
	if err := row.Scan(&exists); err != nil {
		if db.IsNoRows(err) {
			return ErrTaskNotFound
		}
		return err
	}
	return nil
}

func taskKey(id int64) string {
	return taskKeyPrefix + strconv.FormatInt(id, 10)
}

func marshalTask(task *Task) (string, error) {
	payload, err := json.Marshal(task)
	if err != nil {
		return "", err
	}
	return string(payload), nil
}

func unmarshalTask(data string) (*Task, error) {
	var task Task
	if err := json.Unmarshal([]byte(data), &task); err != nil {
		return nil, err
	}
	return &task, nil
}
