package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ctfplatform/internal/auth"
	"ctfplatform/internal/router"
	statController "ctfplatform/internal/stat/controller"
	statRepo "ctfplatform/internal/stat/repository"
	statService "ctfplatform/internal/stat/service"
	submissionController "ctfplatform/internal/submission/controller"
	submissionRepo "ctfplatform/internal/submission/repository"
	submissionService "ctfplatform/internal/submission/service"
	taskController "ctfplatform/internal/task/controller"
	taskRepo "ctfplatform/internal/task/repository"
	taskService "ctfplatform/internal/task/service"
	teamController "ctfplatform/internal/team/controller"
	teamRepo "ctfplatform/internal/team/repository"
	teamService "ctfplatform/internal/team/service"
	"ctfplatform/internal/testutil"
	pkgerrors "ctfplatform/pkg/errors"

	"github.com/gin-gonic/gin"
)

type envelope struct {
	Code    pkgerrors.ErrorCode `json:"code"`
	Message string              `json:"message"`
	Data    json.RawMessage     `json:"data"`
	TraceID string              `json:"trace_id"`
}

type api struct {
	t          *testing.T
	engine     *gin.Engine
	tokens     *auth.TokenService
	teams      *teamRepo.SQLTeamRepository
	sink       *testutil.RecordingSink
	supervisor string
}

func newAPI(t *testing.T) *api {
	t.Helper()
	gin.SetMode(gin.TestMode)
	database := testutil.NewSQLite(t)
	sink := &testutil.RecordingSink{}
	tokens := auth.NewTokenService("test-secret", "ctfplatform", time.Hour)

	tasks := taskRepo.NewTaskRepository(database, nil)
	teams := teamRepo.NewTeamRepository(database)
	submissions, err := submissionService.NewSubmissionService(submissionService.Config{
		Submissions: submissionRepo.NewSubmissionRepository(database),
		Tasks:       tasks,
		Teams:       teams,
	})
	testutil.AssertNoError(t, err)

	engine := router.New(router.Options{
		Tokens: tokens,
		Controllers: router.Controllers{
			Tasks:       taskController.NewTaskController(taskService.NewTaskService(tasks, sink)),
			Teams:       teamController.NewTeamController(teamService.NewTeamService(teams, sink)),
			Submissions: submissionController.NewSubmissionController(submissions),
			Stats:       statController.NewStatController(statService.NewStatService(statRepo.NewStatRepository(database))),
		},
	})
	supervisor, _, err := tokens.IssueToken(1, auth.RoleAdmin)
	testutil.AssertNoError(t, err)
	return &api{t: t, engine: engine, tokens: tokens, teams: teams, sink: sink, supervisor: supervisor}
}

func (a *api) teamToken(name string) string {
	a.t.Helper()
	id, err := a.teams.Create(context.Background(), nil, &teamRepo.Team{
		Name: name, Email: name + "@example.com", CreatedAt: time.Now().UTC(),
	})
	testutil.AssertNoError(a.t, err)
	token, _, err := a.tokens.IssueToken(id, auth.RoleTeam)
	testutil.AssertNoError(a.t, err)
	return token
}

func (a *api) do(method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	a.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(testutil.MustMarshalJSON(a.t, body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.engine.ServeHTTP(rec, req)

	var env envelope
	testutil.MustUnmarshalJSON(a.t, rec.Body.Bytes(), &env)
	return rec, env
}

type taskView struct {
	ID      int64    `json:"id"`
	Title   string   `json:"title"`
	State   string   `json:"state"`
	Answers []string `json:"answers"`
}

func TestTaskFlow(t *testing.T) {
	a := newAPI(t)
	create := map[string]interface{}{
		"title":       "Warm up",
		"description": "find it",
		"answers":     []string{"flag{1}"},
		"value":       100,
	}

	rec, env := a.do(http.MethodPost, "/api/v1/tasks", "", create)
	testutil.AssertEqual(t, rec.Code, http.StatusUnauthorized)

	rec, env = a.do(http.MethodPost, "/api/v1/tasks", a.supervisor, create)
	testutil.AssertEqual(t, rec.Code, http.StatusCreated)
	testutil.AssertTrue(t, env.TraceID != "", "responses carry the trace id")
	var created taskView
	testutil.MustUnmarshalJSON(t, env.Data, &created)
	testutil.AssertEqual(t, created.State, "initial")
	testutil.AssertDeepEqual(t, created.Answers, []string{"flag{1}"})

	rec, env = a.do(http.MethodPost, "/api/v1/tasks", a.supervisor, create)
	testutil.AssertEqual(t, rec.Code, http.StatusConflict)
	testutil.AssertEqual(t, env.Code, pkgerrors.DuplicateTaskTitle)

	var list []taskView
	_, env = a.do(http.MethodGet, "/api/v1/tasks", "", nil)
	testutil.MustUnmarshalJSON(t, env.Data, &list)
	testutil.AssertEqual(t, len(list), 0)

	rec, _ = a.do(http.MethodGet, "/api/v1/tasks/1", "", nil)
	testutil.AssertEqual(t, rec.Code, http.StatusNotFound)

	rec, env = a.do(http.MethodPost, "/api/v1/tasks/1/open", a.supervisor, nil)
	testutil.AssertEqual(t, rec.Code, http.StatusOK)
	var opened taskView
	testutil.MustUnmarshalJSON(t, env.Data, &opened)
	testutil.AssertEqual(t, opened.State, "opened")

	rec, env = a.do(http.MethodPost, "/api/v1/tasks/1/open", a.supervisor, nil)
	testutil.AssertEqual(t, rec.Code, http.StatusConflict)
	testutil.AssertEqual(t, env.Code, pkgerrors.TaskAlreadyOpened)

	_, env = a.do(http.MethodGet, "/api/v1/tasks", "", nil)
	testutil.MustUnmarshalJSON(t, env.Data, &list)
	testutil.AssertEqual(t, len(list), 1)
	testutil.AssertTrue(t, list[0].Answers == nil, "guests never see answers")

	rec, env = a.do(http.MethodPut, "/api/v1/tasks/1", a.supervisor, map[string]interface{}{
		"description": "updated", "answers": []string{"flag{2}"},
	})
	testutil.AssertEqual(t, rec.Code, http.StatusOK)
	var updated taskView
	testutil.MustUnmarshalJSON(t, env.Data, &updated)
	testutil.AssertDeepEqual(t, updated.Answers, []string{"flag{1}", "flag{2}"})

	rec, _ = a.do(http.MethodPost, "/api/v1/tasks/1/close", a.supervisor, nil)
	testutil.AssertEqual(t, rec.Code, http.StatusOK)

	testutil.AssertEqual(t, len(a.sink.Events()), 4)
}

func TestSubmitFlow(t *testing.T) {
	a := newAPI(t)
	team := a.teamToken("alpha")

	_, _ = a.do(http.MethodPost, "/api/v1/tasks", a.supervisor, map[string]interface{}{
		"title": "Solve me", "description": "d", "answers": []string{"Flag{Ok}"},
	})

	rec, env := a.do(http.MethodPost, "/api/v1/tasks/1/submit", team, map[string]string{"answer": "flag{ok}"})
	testutil.AssertEqual(t, rec.Code, http.StatusConflict)
	testutil.AssertEqual(t, env.Code, pkgerrors.TaskNotSubmittable)

	_, _ = a.do(http.MethodPost, "/api/v1/tasks/1/open", a.supervisor, nil)

	rec, _ = a.do(http.MethodPost, "/api/v1/tasks/1/submit", a.supervisor, map[string]string{"answer": "flag{ok}"})
	testutil.AssertEqual(t, rec.Code, http.StatusForbidden)

	rec, _ = a.do(http.MethodPost, "/api/v1/tasks/1/submit", team, map[string]string{})
	testutil.AssertEqual(t, rec.Code, http.StatusBadRequest)

	var verdict submissionController.SubmitResponse
	rec, env = a.do(http.MethodPost, "/api/v1/tasks/1/submit", team, map[string]string{"answer": "wrong"})
	testutil.AssertEqual(t, rec.Code, http.StatusOK)
	testutil.MustUnmarshalJSON(t, env.Data, &verdict)
	testutil.AssertFalse(t, verdict.Correct, "wrong answer")

	_, env = a.do(http.MethodPost, "/api/v1/tasks/1/submit", team, map[string]string{"answer": "flag{ok}"})
	testutil.MustUnmarshalJSON(t, env.Data, &verdict)
	testutil.AssertTrue(t, verdict.Correct, "right answer")

	rec, env = a.do(http.MethodPost, "/api/v1/tasks/1/submit", team, map[string]string{"answer": "flag{ok}"})
	testutil.AssertEqual(t, rec.Code, http.StatusConflict)
	testutil.AssertEqual(t, env.Code, pkgerrors.TaskAlreadySolved)

	var stats statService.Stats
	rec, env = a.do(http.MethodGet, "/api/v1/stats", a.supervisor, nil)
	testutil.AssertEqual(t, rec.Code, http.StatusOK)
	testutil.MustUnmarshalJSON(t, env.Data, &stats)
	testutil.AssertEqual(t, stats.Teams.SolvedAtLeastOneTask, int64(1))

	rec, _ = a.do(http.MethodGet, "/api/v1/stats", team, nil)
	testutil.AssertEqual(t, rec.Code, http.StatusForbidden)
}

func TestTeamsListing(t *testing.T) {
	a := newAPI(t)
	a.teamToken("alpha")
	a.teamToken("beta")

	var public []map[string]interface{}
	_, env := a.do(http.MethodGet, "/api/v1/teams", "", nil)
	testutil.MustUnmarshalJSON(t, env.Data, &public)
	testutil.AssertEqual(t, len(public), 2)
	_, hasEmail := public[0]["email"]
	testutil.AssertFalse(t, hasEmail, "guests do not see emails")

	var full []map[string]interface{}
	_, env = a.do(http.MethodGet, "/api/v1/teams", a.supervisor, nil)
	testutil.MustUnmarshalJSON(t, env.Data, &full)
	testutil.AssertEqual(t, full[0]["email"], "alpha@example.com")
}

func TestCategoryAndBadIDs(t *testing.T) {
	a := newAPI(t)
	_, _ = a.do(http.MethodPost, "/api/v1/tasks", a.supervisor, map[string]interface{}{
		"title": "Cat", "description": "d", "answers": []string{"x"}, "categories": []int64{5},
	})

	var list []taskView
	_, env := a.do(http.MethodGet, "/api/v1/categories/5/tasks", a.supervisor, nil)
	testutil.MustUnmarshalJSON(t, env.Data, &list)
	testutil.AssertEqual(t, len(list), 1)

	_, env = a.do(http.MethodGet, "/api/v1/categories/5/tasks", "", nil)
	testutil.MustUnmarshalJSON(t, env.Data, &list)
	testutil.AssertEqual(t, len(list), 0)

	rec, _ := a.do(http.MethodGet, "/api/v1/categories/abc/tasks", "", nil)
	testutil.AssertEqual(t, rec.Code, http.StatusBadRequest)
	rec, _ = a.do(http.MethodGet, "/api/v1/tasks/abc", "", nil)
	testutil.AssertEqual(t, rec.Code, http.StatusBadRequest)
	rec, env = a.do(http.MethodGet, "/nowhere", "", nil)
	testutil.AssertEqual(t, rec.Code, http.StatusNotFound)
	testutil.AssertEqual(t, env.Code, pkgerrors.NotFound)
}

func TestHealthz(t *testing.T) {
	gin.SetMode(gin.TestMode)
	healthy := true
	engine := router.New(router.Options{
		Tokens: auth.NewTokenService("s", "", 0),
		Health: func(context.Context) error {
			if healthy {
				return nil
			}
			return errors.New("down")
		},
	})

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	testutil.AssertEqual(t, rec.Code, http.StatusOK)

	healthy = false
	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	testutil.AssertEqual(t, rec.Code, http.StatusServiceUnavailable)
}
