package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ctfplatform/internal/common/db"
	pkgrepo "ctfplatform/pkg/repository"
)

var (
	ErrTeamNotFound   = fmt.Errorf("team not found: %w", pkgrepo.ErrNotFound)
	ErrDuplicateName  = fmt.Errorf("team name exists: %w", pkgrepo.ErrAlreadyExists)
	ErrDuplicateEmail = fmt.Errorf("team email exists: %w", pkgrepo.ErrAlreadyExists)
)

const teamColumns = "id, name, email, country, locality, institution, disqualified, created_at"

// Team is a contest participant.
type Team struct {
	ID           int64
	Name         string
	Email        string
	Country      string
	Locality     string
	Institution  string
	Disqualified bool
	CreatedAt    time.Time
}

type TeamRepository interface {
	Create(ctx context.Context, tx db.Transaction, team *Team) (int64, error)
	GetByID(ctx context.Context, tx db.Transaction, id int64) (*Team, error)
	List(ctx context.Context, tx db.Transaction) ([]*Team, error)
	ListQualified(ctx context.Context, tx db.Transaction) ([]*Team, error)
	Disqualify(ctx context.Context, tx db.Transaction, id int64) error
}

type SQLTeamRepository struct {
	db db.Database
}

func NewTeamRepository(database db.Database) *SQLTeamRepository {
	return &SQLTeamRepository{db: database}
}

func (r *SQLTeamRepository) Create(ctx context.Context, tx db.Transaction, team *Team) (int64, error) {
	if team == nil {
		return 0, errors.New("team is nil")
	}
	query := "INSERT INTO team (name, email, country, locality, institution, disqualified, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)"
	result, err := db.GetQuerier(r.db, tx).Exec(ctx, query,
		team.Name,
		team.Email,
		team.Country,
		team.Locality,
		team.Institution,
		team.Disqualified,
		team.CreatedAt.UnixMilli(),
	)
	if err != nil {
		if key, ok := db.UniqueViolation(err); ok {
			switch {
			case db.KeyMatches(key, "team", "name"):
				return 0, ErrDuplicateName
			case db.KeyMatches(key, "team", "email"):
				return 0, ErrDuplicateEmail
			}
			return 0, pkgrepo.ErrAlreadyExists
		}
		return 0, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	team.ID = id
	return id, nil
}

func (r *SQLTeamRepository) GetByID(ctx context.Context, tx db.Transaction, id int64) (*Team, error) {
	query := "SELECT " + teamColumns + " FROM team WHERE id = ?"
	team, err := scanTeam(db.GetQuerier(r.db, tx).QueryRow(ctx, query, id))
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	return team, nil
}

func (r *SQLTeamRepository) List(ctx context.Context, tx db.Transaction) ([]*Team, error) {
	return r.query(ctx, tx, "SELECT "+teamColumns+" FROM team ORDER BY id")
}

func (r *SQLTeamRepository) ListQualified(ctx context.Context, tx db.Transaction) ([]*Team, error) {
	return r.query(ctx, tx, "SELECT "+teamColumns+" FROM team WHERE disqualified = ? ORDER BY id", false)
}

// Disqualify marks the team disqualified. Repeating it is not an error.
func (r *SQLTeamRepository) Disqualify(ctx context.Context, tx db.Transaction, id int64) error {
	result, err := db.GetQuerier(r.db, tx).Exec(ctx, "UPDATE team SET disqualified = ? WHERE id = ?", true, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// already disqualified rows are reported unchanged by MySQL
		if _, err := r.GetByID(ctx, tx, id); err != nil {
			return err
		}
	}
	return nil
}

func (r *SQLTeamRepository) query(ctx context.Context, tx db.Transaction, query string, args ...interface{}) ([]*Team, error) {
	rows, err := db.GetQuerier(r.db, tx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	teams := make([]*Team, 0)
	for rows.Next() {
		team, err := scanTeam(rows)
		if err != nil {
			return nil, err
		}
		teams = append(teams, team)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return teams, nil
}

func scanTeam(scanner db.Scanner) (*Team, error) {
	var (
		team      Team
		createdAt int64
	)
	err := scanner.Scan(
		&team.ID,
		&team.Name,
		&team.Email,
		&team.Country,
		&team.Locality,
		&team.Institution,
		&team.Disqualified,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}
	team.CreatedAt = time.UnixMilli(createdAt).UTC()
	return &team, nil
}
