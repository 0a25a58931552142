package db_test

import (
	"context"
	"errors"
	"testing"

	"ctfplatform/internal/common/db"
	"ctfplatform/internal/testutil"
)

func TestExtractDuplicateKeyName(t *testing.T) {
	cases := []struct {
		message string
		want    string
	}{
		{"Duplicate entry 'Warm up' for key 'uk_task_title'", "uk_task_title"},
		{"Duplicate entry 'Warm up' for key 'task.uk_task_title'", "task.uk_task_title"},
		{"no key here", ""},
		{"", ""},
	}
	for _, tc := range cases {
		testutil.AssertEqual(t, db.ExtractDuplicateKeyName(tc.message), tc.want)
	}
}

func TestKeyMatches(t *testing.T) {
	cases := []struct {
		key    string
		table  string
		column string
		want   bool
	}{
		{"uk_task_title", "task", "title", true},
		{"task.uk_task_title", "task", "title", true},
		{"task.title", "task", "title", true},
		{"team.name, team.email", "team", "email", true},
		{"uk_team_name", "team", "email", false},
		{"", "task", "title", false},
	}
	for _, tc := range cases {
		if got := db.KeyMatches(tc.key, tc.table, tc.column); got != tc.want {
			t.Errorf("KeyMatches(%q, %q, %q) = %v, want %v", tc.key, tc.table, tc.column, got, tc.want)
		}
	}
}

func TestUniqueViolation_SQLite(t *testing.T) {
	database := testutil.NewSQLite(t)
	ctx := context.Background()

	insert := "INSERT INTO team (name, email, created_at) VALUES (?, ?, ?)"
	_, err := database.Exec(ctx, insert, "alpha", "alpha@example.com", 1)
	testutil.AssertNoError(t, err)

	_, err = database.Exec(ctx, insert, "alpha", "other@example.com", 2)
	key, ok := db.UniqueViolation(err)
	testutil.AssertTrue(t, ok, "expected unique violation for duplicate name")
	testutil.AssertTrue(t, db.KeyMatches(key, "team", "name"), "key should name team.name, got "+key)

	_, err = database.Exec(ctx, insert, "beta", "alpha@example.com", 3)
	key, ok = db.UniqueViolation(err)
	testutil.AssertTrue(t, ok, "expected unique violation for duplicate email")
	testutil.AssertTrue(t, db.KeyMatches(key, "team", "email"), "key should name team.email, got "+key)

	_, ok = db.UniqueViolation(errors.New("other"))
	testutil.AssertFalse(t, ok, "plain errors are not unique violations")
}

func TestTransaction_RollbackOnError(t *testing.T) {
	database := testutil.NewSQLite(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := database.Transaction(ctx, func(tx db.Transaction) error {
		if _, err := tx.Exec(ctx, "INSERT INTO team (name, email, created_at) VALUES (?, ?, ?)", "gamma", "g@example.com", 1); err != nil {
			return err
		}
		return boom
	})
	testutil.AssertTrue(t, errors.Is(err, boom), "transaction should return fn error")

	var count int
	testutil.AssertNoError(t, database.QueryRow(ctx, "SELECT COUNT(*) FROM team").Scan(&count))
	testutil.AssertEqual(t, count, 0)

	err = database.Transaction(ctx, func(tx db.Transaction) error {
		_, err := tx.Exec(ctx, "INSERT INTO team (name, email, created_at) VALUES (?, ?, ?)", "gamma", "g@example.com", 1)
		return err
	})
	testutil.AssertNoError(t, err)
	testutil.AssertNoError(t, database.QueryRow(ctx, "SELECT COUNT(*) FROM team").Scan(&count))
	testutil.AssertEqual(t, count, 1)
}

func TestIsNoRows(t *testing.T) {
	database := testutil.NewSQLite(t)
	var id int64
	err := database.QueryRow(context.Background(), "SELECT id FROM task WHERE id = ?", 42).Scan(&id)
	testutil.AssertTrue(t, db.IsNoRows(err), "missing row should be reported as no rows")
	testutil.AssertEqual(t, database.Driver(), "sqlite")
}
