package repository

import (
	"context"

	"ctfplatform/internal/common/db"
)

// TeamStats are counters over teams and their activity.
type TeamStats struct {
	Total                 int64 `json:"total"`
	Qualified             int64 `json:"qualified"`
	Disqualified          int64 `json:"disqualified"`
	AttemptedToSolveTasks int64 `json:"attemptedToSolveTasks"`
	SolvedAtLeastOneTask  int64 `json:"solvedAtLeastOneTask"`
}

type StatRepository interface {
	TeamStats(ctx context.Context, tx db.Transaction) (TeamStats, error)
}

type SQLStatRepository struct {
	db db.Database
}

func NewStatRepository(database db.Database) *SQLStatRepository {
	return &SQLStatRepository{db: database}
}

// TeamStats counts only qualified teams for the activity columns.
func (r *SQLStatRepository) TeamStats(ctx context.Context, tx db.Transaction) (TeamStats, error) {
	q := db.GetQuerier(r.db, tx)
	var stats TeamStats

	err := q.QueryRow(ctx,
		"SELECT COUNT(*), COALESCE(SUM(CASE WHEN disqualified = 0 THEN 1 ELSE 0 END), 0) FROM team",
	).Scan(&stats.Total, &stats.Qualified)
	if err != nil {
		return TeamStats{}, err
	}
	stats.Disqualified = stats.Total - stats.Qualified

	err = q.QueryRow(ctx,
		"SELECT COUNT(DISTINCT h.team_id) FROM team_task_hit h JOIN team t ON t.id = h.team_id WHERE t.disqualified = 0",
	).Scan(&stats.AttemptedToSolveTasks)
	if err != nil {
		return TeamStats{}, err
	}

	err = q.QueryRow(ctx,
		"SELECT COUNT(DISTINCT p.team_id) FROM team_task_progress p JOIN team t ON t.id = p.team_id WHERE t.disqualified = 0",
	).Scan(&stats.SolvedAtLeastOneTask)
	if err != nil {
		return TeamStats{}, err
	}
	return stats, nil
}
