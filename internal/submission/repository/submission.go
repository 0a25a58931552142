package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ctfplatform/internal/common/db"
	pkgrepo "ctfplatform/pkg/repository"
)

// ErrAlreadySolved means a progress row for the team and task exists.
var ErrAlreadySolved = fmt.Errorf("task already solved: %w", pkgrepo.ErrAlreadyExists)

// Hit is one answer attempt. WrongAnswer is empty for correct attempts.
type Hit struct {
	ID          int64
	TeamID      int64
	TaskID      int64
	WrongAnswer string
	CreatedAt   time.Time
}

type SubmissionRepository interface {
	RecordHit(ctx context.Context, tx db.Transaction, hit *Hit) (int64, error)
	RecordSolve(ctx context.Context, tx db.Transaction, teamID, taskID int64, at time.Time) error
	IsSolved(ctx context.Context, tx db.Transaction, teamID, taskID int64) (bool, error)
	ListHits(ctx context.Context, tx db.Transaction, teamID int64) ([]*Hit, error)
}

type SQLSubmissionRepository struct {
	db db.Database
}

func NewSubmissionRepository(database db.Database) *SQLSubmissionRepository {
	return &SQLSubmissionRepository{db: database}
}

func (r *SQLSubmissionRepository) RecordHit(ctx context.Context, tx db.Transaction, hit *Hit) (int64, error) {
	var wrong sql.NullString
	if hit.WrongAnswer != "" {
		wrong = sql.NullString{String: hit.WrongAnswer, Valid: true}
	}
	query := "INSERT INTO team_task_hit (team_id, task_id, wrong_answer, created_at) VALUES (?, ?, ?, ?)"
	result, err := db.GetQuerier(r.db, tx).Exec(ctx, query, hit.TeamID, hit.TaskID, wrong, hit.CreatedAt.UnixMilli())
	if err != nil {
		return 0, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	hit.ID = id
	return id, nil
}

// RecordSolve stores the first correct answer of a team for a task.
func (r *SQLSubmissionRepository) RecordSolve(ctx context.Context, tx db.Transaction, teamID, taskID int64, at time.Time) error {
	query := "INSERT INTO team_task_progress (team_id, task_id, created_at) VALUES (?, ?, ?)"
	if _, err := db.GetQuerier(r.db, tx).Exec(ctx, query, teamID, taskID, at.UnixMilli()); err != nil {
		if _, ok := db.UniqueViolation(err); ok {
			return ErrAlreadySolved
		}
		return err
	}
	return nil
}

func (r *SQLSubmissionRepository) IsSolved(ctx context.Context, tx db.Transaction, teamID, taskID int64) (bool, error) {
	var count int64
	query := "SELECT COUNT(*) FROM team_task_progress WHERE team_id = ? AND task_id = ?"
	if err := db.GetQuerier(r.db, tx).QueryRow(ctx, query, teamID, taskID).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *SQLSubmissionRepository) ListHits(ctx context.Context, tx db.Transaction, teamID int64) ([]*Hit, error) {
	query := "SELECT id, team_id, task_id, wrong_answer, created_at FROM team_task_hit WHERE team_id = ? ORDER BY id"
	rows, err := db.GetQuerier(r.db, tx).Query(ctx, query, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	hits := make([]*Hit, 0)
	for rows.Next() {
		var (
			hit       Hit
			wrong     sql.NullString
			createdAt int64
		)
		if err := rows.Scan(&hit.ID, &hit.TeamID, &hit.TaskID, &wrong, &createdAt); err != nil {
			return nil, err
		}
		hit.WrongAnswer = wrong.String
		hit.CreatedAt = time.UnixMilli(createdAt).UTC()
		hits = append(hits, &hit)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return hits, nil
}
