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
	ErrSupervisorNotFound = fmt.Errorf("supervisor not found: %w", pkgrepo.ErrNotFound)
	ErrDuplicateUsername  = fmt.Errorf("supervisor username exists: %w", pkgrepo.ErrAlreadyExists)
)

// Rights grants a supervisor its privileges.
type Rights string

const (
	RightsAdmin   Rights = "admin"
	RightsManager Rights = "manager"
)

// Valid reports whether r is a known rights value.
func (r Rights) Valid() bool {
	return r == RightsAdmin || r == RightsManager
}

// Supervisor is a contest organizer account.
type Supervisor struct {
	ID           int64
	Username     string
	PasswordHash string
	Rights       Rights
	CreatedAt    time.Time
}

type SupervisorRepository interface {
	Create(ctx context.Context, tx db.Transaction, supervisor *Supervisor) (int64, error)
	GetByUsername(ctx context.Context, tx db.Transaction, username string) (*Supervisor, error)
	List(ctx context.Context, tx db.Transaction) ([]*Supervisor, error)
	UpdatePassword(ctx context.Context, tx db.Transaction, username, passwordHash string) error
	Delete(ctx context.Context, tx db.Transaction, username string) error
}

type SQLSupervisorRepository struct {
	db db.Database
}

func NewSupervisorRepository(database db.Database) *SQLSupervisorRepository {
	return &SQLSupervisorRepository{db: database}
}

func (r *SQLSupervisorRepository) Create(ctx context.Context, tx db.Transaction, supervisor *Supervisor) (int64, error) {
	if supervisor == nil {
		return 0, errors.New("supervisor is nil")
	}
	query := "INSERT INTO supervisor (username, password_hash, rights, created_at) VALUES (?, ?, ?, ?)"
	result, err := db.GetQuerier(r.db, tx).Exec(ctx, query,
		supervisor.Username,
		supervisor.PasswordHash,
		string(supervisor.Rights),
		supervisor.CreatedAt.UnixMilli(),
	)
	if err != nil {
		if _, ok := db.UniqueViolation(err); ok {
			return 0, ErrDuplicateUsername
		}
		return 0, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	supervisor.ID = id
	return id, nil
}

func (r *SQLSupervisorRepository) GetByUsername(ctx context.Context, tx db.Transaction, username string) (*Supervisor, error) {
	query := "SELECT id, username, password_hash, rights, created_at FROM supervisor WHERE username = ?"
	supervisor, err := scanSupervisor(db.GetQuerier(r.db, tx).QueryRow(ctx, query, username))
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrSupervisorNotFound
		}
		return nil, err
	}
	return supervisor, nil
}

func (r *SQLSupervisorRepository) List(ctx context.Context, tx db.Transaction) ([]*Supervisor, error) {
	query := "SELECT id, username, password_hash, rights, created_at FROM supervisor ORDER BY id"
	rows, err := db.GetQuerier(r.db, tx).Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	supervisors := make([]*Supervisor, 0)
	for rows.Next() {
		supervisor, err := scanSupervisor(rows)
		if err != nil {
			return nil, err
		}
		supervisors = append(supervisors, supervisor)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return supervisors, nil
}

func (r *SQLSupervisorRepository) UpdatePassword(ctx context.Context, tx db.Transaction, username, passwordHash string) error {
	result, err := db.GetQuerier(r.db, tx).Exec(ctx, "UPDATE supervisor SET password_hash = ? WHERE username = ?", passwordHash, username)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

func (r *SQLSupervisorRepository) Delete(ctx context.Context, tx db.Transaction, username string) error {
	result, err := db.GetQuerier(r.db, tx).Exec(ctx, "DELETE FROM supervisor WHERE username = ?", username)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// requireAffected relies on bcrypt salts: a new hash always differs from
// the stored one, so zero rows means no such supervisor.
func requireAffected(result db.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrSupervisorNotFound
	}
	return nil
}

func scanSupervisor(scanner db.Scanner) (*Supervisor, error) {
	var (
		supervisor Supervisor
		rights     string
		createdAt  int64
	)
	if err := scanner.Scan(&supervisor.ID, &supervisor.Username, &supervisor.PasswordHash, &rights, &createdAt); err != nil {
		return nil, err
	}
	supervisor.Rights = Rights(rights)
	supervisor.CreatedAt = time.UnixMilli(createdAt).UTC()
	return &supervisor, nil
}
