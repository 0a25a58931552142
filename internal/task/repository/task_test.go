package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"ctfplatform/internal/task/repository"
	"ctfplatform/internal/testutil"
	pkgrepo "ctfplatform/pkg/repository"
)

var testNow = time.UnixMilli(1_700_000_000_000).UTC()

func newTask(title string) *repository.Task {
	return &repository.Task{
		Title:         title,
		Description:   "find the flag",
		Hints:         []string{"look closer"},
		Categories:    []int64{1, 3},
		Answers:       []string{"flag{a}", "flag{b}"},
		Value:         100,
		CaseSensitive: true,
		State:         repository.StateInitial,
		CreatedAt:     testNow,
		UpdatedAt:     testNow,
	}
}

func TestTaskRepository_CreateAndGet(t *testing.T) {
	repo := repository.NewTaskRepository(testutil.NewSQLite(t), nil)
	ctx := context.Background()

	task := newTask("Warm up")
	id, err := repo.Create(ctx, nil, task)
	testutil.AssertNoError(t, err)
	testutil.AssertTrue(t, id > 0, "id should be assigned")
	testutil.AssertEqual(t, task.ID, id)

	got, err := repo.GetByID(ctx, nil, id)
	testutil.AssertNoError(t, err)
	testutil.AssertDeepEqual(t, got, task)
}

func TestTaskRepository_EmptyListsRoundTrip(t *testing.T) {
	repo := repository.NewTaskRepository(testutil.NewSQLite(t), nil)
	ctx := context.Background()

	task := newTask("Bare")
	task.Hints = nil
	task.Categories = nil
	id, err := repo.Create(ctx, nil, task)
	testutil.AssertNoError(t, err)

	got, err := repo.GetByID(ctx, nil, id)
	testutil.AssertNoError(t, err)
	testutil.AssertDeepEqual(t, got.Hints, []string{})
	testutil.AssertDeepEqual(t, got.Categories, []int64{})
}

func TestTaskRepository_DuplicateTitle(t *testing.T) {
	repo := repository.NewTaskRepository(testutil.NewSQLite(t), nil)
	ctx := context.Background()

	_, err := repo.Create(ctx, nil, newTask("Same"))
	testutil.AssertNoError(t, err)
	_, err = repo.Create(ctx, nil, newTask("Same"))
	testutil.AssertTrue(t, errors.Is(err, repository.ErrDuplicateTitle), "duplicate title should be rejected")
	testutil.AssertTrue(t, errors.Is(err, pkgrepo.ErrAlreadyExists), "duplicate wraps ErrAlreadyExists")

	tasks, err := repo.List(ctx, nil)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(tasks), 1)
}

func TestTaskRepository_NotFound(t *testing.T) {
	repo := repository.NewTaskRepository(testutil.NewSQLite(t), nil)
	ctx := context.Background()

	_, err := repo.GetByID(ctx, nil, 99)
	testutil.AssertTrue(t, errors.Is(err, repository.ErrTaskNotFound), "missing task")

	err = repo.UpdateContent(ctx, nil, 99, repository.TaskContent{Description: "x", UpdatedAt: testNow})
	testutil.AssertTrue(t, errors.Is(err, repository.ErrTaskNotFound), "update of missing task")

	err = repo.TransitionState(ctx, nil, 99, repository.StateInitial, repository.StateOpened, testNow)
	testutil.AssertTrue(t, errors.Is(err, repository.ErrTaskNotFound), "transition of missing task")
}

func TestTaskRepository_TransitionState(t *testing.T) {
	repo := repository.NewTaskRepository(testutil.NewSQLite(t), nil)
	ctx := context.Background()
	id, err := repo.Create(ctx, nil, newTask("Lifecycle"))
	testutil.AssertNoError(t, err)

	later := testNow.Add(time.Minute)
	testutil.AssertNoError(t, repo.TransitionState(ctx, nil, id, repository.StateInitial, repository.StateOpened, later))

	err = repo.TransitionState(ctx, nil, id, repository.StateInitial, repository.StateOpened, later)
	testutil.AssertTrue(t, errors.Is(err, repository.ErrStateConflict), "second open conflicts")

	got, err := repo.GetByID(ctx, nil, id)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, got.State, repository.StateOpened)
	testutil.AssertTrue(t, got.UpdatedAt.Equal(later), "updated_at follows the transition")
	testutil.AssertTrue(t, got.CreatedAt.Equal(testNow), "created_at is unchanged")
}

func TestTaskRepository_UpdateContent(t *testing.T) {
	repo := repository.NewTaskRepository(testutil.NewSQLite(t), nil)
	ctx := context.Background()
	id, err := repo.Create(ctx, nil, newTask("Editable"))
	testutil.AssertNoError(t, err)

	content := repository.TaskContent{
		Description: "new text",
		Hints:       []string{},
		Categories:  []int64{2},
		Answers:     []string{"flag{c}"},
		UpdatedAt:   testNow.Add(time.Hour),
	}
	testutil.AssertNoError(t, repo.UpdateContent(ctx, nil, id, content))
	// same values again still succeeds
	testutil.AssertNoError(t, repo.UpdateContent(ctx, nil, id, content))

	got, err := repo.GetByID(ctx, nil, id)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, got.Description, "new text")
	testutil.AssertEqual(t, got.Title, "Editable")
	testutil.AssertDeepEqual(t, got.Categories, []int64{2})
	testutil.AssertDeepEqual(t, got.Answers, []string{"flag{c}"})
	testutil.AssertEqual(t, got.Value, 100)
}

func TestTaskRepository_ListByStates(t *testing.T) {
	repo := repository.NewTaskRepository(testutil.NewSQLite(t), nil)
	ctx := context.Background()

	var ids []int64
	for _, title := range []string{"one", "two", "three"} {
		id, err := repo.Create(ctx, nil, newTask(title))
		testutil.AssertNoError(t, err)
		ids = append(ids, id)
	}
	testutil.AssertNoError(t, repo.TransitionState(ctx, nil, ids[1], repository.StateInitial, repository.StateOpened, testNow))
	testutil.AssertNoError(t, repo.TransitionState(ctx, nil, ids[2], repository.StateInitial, repository.StateOpened, testNow))
	testutil.AssertNoError(t, repo.TransitionState(ctx, nil, ids[2], repository.StateOpened, repository.StateClosed, testNow))

	eligible, err := repo.ListByStates(ctx, nil, repository.StateOpened, repository.StateClosed)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(eligible), 2)
	testutil.AssertEqual(t, eligible[0].ID, ids[1])
	testutil.AssertEqual(t, eligible[1].ID, ids[2])

	none, err := repo.ListByStates(ctx, nil)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(none), 0)
}

func TestTaskRepository_CacheInvalidation(t *testing.T) {
	mr, c := testutil.NewRedis(t)
	repo := repository.NewTaskRepository(testutil.NewSQLite(t), c)
	ctx := context.Background()

	// a miss is cached, creating the task clears it
	_, err := repo.GetByID(ctx, nil, 1)
	testutil.AssertTrue(t, errors.Is(err, repository.ErrTaskNotFound), "no task yet")
	testutil.AssertTrue(t, mr.Exists("task:id:1"), "miss should be cached")

	id, err := repo.Create(ctx, nil, newTask("Cached"))
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, id, int64(1))
	testutil.AssertFalse(t, mr.Exists("task:id:1"), "create clears the cached miss")

	got, err := repo.GetByID(ctx, nil, id)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, got.State, repository.StateInitial)
	testutil.AssertTrue(t, mr.Exists("task:id:1"), "hit should be cached")

	testutil.AssertNoError(t, repo.TransitionState(ctx, nil, id, repository.StateInitial, repository.StateOpened, testNow))
	testutil.AssertFalse(t, mr.Exists("task:id:1"), "transition clears the cache")

	got, err = repo.GetByID(ctx, nil, id)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, got.State, repository.StateOpened)
}

func TestTaskHelpers(t *testing.T) {
	task := newTask("helpers")
	testutil.AssertTrue(t, task.IsInitial(), "initial")
	testutil.AssertFalse(t, task.IsEligible(), "initial is not eligible")
	testutil.AssertTrue(t, task.HasCategory(3), "category 3")
	testutil.AssertFalse(t, task.HasCategory(2), "category 2")

	clone := task.Clone()
	clone.Answers[0] = "changed"
	testutil.AssertEqual(t, task.Answers[0], "flag{a}")

	task.State = repository.StateOpened
	testutil.AssertTrue(t, task.IsOpened(), "opened")
	testutil.AssertTrue(t, task.IsEligible(), "opened is eligible")

	task.State = repository.StateClosed
	testutil.AssertTrue(t, task.IsClosed(), "closed")
	testutil.AssertFalse(t, task.IsOpened(), "closed is not opened")
	testutil.AssertTrue(t, task.IsEligible(), "closed is eligible")
	testutil.AssertEqual(t, task.State.String(), "closed")
	testutil.AssertFalse(t, repository.State(9).Valid(), "unknown state")
	testutil.AssertTrue(t, (*repository.Task)(nil).Clone() == nil, "nil clone")
}

func TestTaskRepository_WritesSucceedWhenCacheIsDown(t *testing.T) {
	mr, c := testutil.NewRedis(t)
	repo := repository.NewTaskRepository(testutil.NewSQLite(t), c)
	ctx := context.Background()
	id, err := repo.Create(ctx, nil, newTask("Cache down"))
	testutil.AssertNoError(t, err)

	mr.Close()

	testutil.AssertNoError(t, repo.TransitionState(ctx, nil, id, repository.StateInitial, repository.StateOpened, testNow))
	testutil.AssertNoError(t, repo.UpdateContent(ctx, nil, id, repository.TaskContent{
		Description: "edited",
		Hints:       []string{},
		Categories:  []int64{},
		Answers:     []string{"flag{a}"},
		UpdatedAt:   testNow,
	}))
	testutil.AssertTrue(t, repo.InvalidateCache(ctx, id) != nil, "explicit invalidation reports the cache error")

	got, err := repo.GetFresh(ctx, nil, id)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, got.State, repository.StateOpened)
	testutil.AssertEqual(t, got.Description, "edited")
}

func TestTaskRepository_GetFreshSkipsCache(t *testing.T) {
	_, c := testutil.NewRedis(t)
	database := testutil.NewSQLite(t)
	repo := repository.NewTaskRepository(database, c)
	ctx := context.Background()
	id, err := repo.Create(ctx, nil, newTask("Fresh"))
	testutil.AssertNoError(t, err)
	_, err = repo.GetByID(ctx, nil, id)
	testutil.AssertNoError(t, err)

	_, err = database.Exec(ctx, "UPDATE task SET state = ? WHERE id = ?", int(repository.StateClosed), id)
	testutil.AssertNoError(t, err)

	cached, err := repo.GetByID(ctx, nil, id)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, cached.State, repository.StateInitial)

	fresh, err := repo.GetFresh(ctx, nil, id)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, fresh.State, repository.StateClosed)

	_, err = repo.GetFresh(ctx, nil, 999)
	testutil.AssertTrue(t, errors.Is(err, repository.ErrTaskNotFound), "missing row")
}
