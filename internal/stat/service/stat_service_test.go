package service_test

import (
	"context"
	"testing"
	"time"

	statRepo "ctfplatform/internal/stat/repository"
	"ctfplatform/internal/stat/service"
	submissionRepo "ctfplatform/internal/submission/repository"
	teamRepo "ctfplatform/internal/team/repository"
	"ctfplatform/internal/testutil"
)

func TestGetStats(t *testing.T) {
	database := testutil.NewSQLite(t)
	ctx := context.Background()
	teams := teamRepo.NewTeamRepository(database)
	submissions := submissionRepo.NewSubmissionRepository(database)
	svc := service.NewStatService(statRepo.NewStatRepository(database))

	empty, err := svc.GetStats(ctx)
	testutil.AssertNoError(t, err)
	testutil.AssertDeepEqual(t, empty.Teams, statRepo.TeamStats{})

	now := time.Now().UTC()
	ids := make(map[string]int64)
	for _, name := range []string{"alpha", "beta", "gamma", "delta"} {
		id, err := teams.Create(ctx, nil, &teamRepo.Team{Name: name, Email: name + "@example.com", CreatedAt: now})
		testutil.AssertNoError(t, err)
		ids[name] = id
	}
	testutil.AssertNoError(t, teams.Disqualify(ctx, nil, ids["delta"]))

	// alpha tried twice and solved, beta only tried, delta is disqualified
	for _, hit := range []*submissionRepo.Hit{
		{TeamID: ids["alpha"], TaskID: 1, WrongAnswer: "no", CreatedAt: now},
		{TeamID: ids["alpha"], TaskID: 1, CreatedAt: now},
		{TeamID: ids["beta"], TaskID: 1, WrongAnswer: "no", CreatedAt: now},
		{TeamID: ids["delta"], TaskID: 1, CreatedAt: now},
	} {
		_, err := submissions.RecordHit(ctx, nil, hit)
		testutil.AssertNoError(t, err)
	}
	testutil.AssertNoError(t, submissions.RecordSolve(ctx, nil, ids["alpha"], 1, now))
	testutil.AssertNoError(t, submissions.RecordSolve(ctx, nil, ids["delta"], 1, now))

	stats, err := svc.GetStats(ctx)
	testutil.AssertNoError(t, err)
	testutil.AssertDeepEqual(t, stats.Teams, statRepo.TeamStats{
		Total:                 4,
		Qualified:             3,
		Disqualified:          1,
		AttemptedToSolveTasks: 2,
		SolvedAtLeastOneTask:  1,
	})
}
