package command

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"sort"
	"strings"
	"time"

	"ctfplatform/internal/auth"
	supervisorService "ctfplatform/internal/supervisor/service"
	taskRepo "ctfplatform/internal/task/repository"
	taskService "ctfplatform/internal/task/service"
	pkgerrors "ctfplatform/pkg/errors"
)

// ErrNotConfirmed is returned when the operator declines a confirmation.
var ErrNotConfirmed = errors.New("you should have typed yes")

// ErrVerificationFailed is returned when a password confirmation differs.
var ErrVerificationFailed = errors.New("verification has failed")

// Registry returns all admin commands keyed by name.
func Registry() map[string]Command {
	commands := []Command{
		{Name: "create_supervisor", Description: "Create supervisor", Flags: createSupervisor},
		{Name: "change_supervisor_password", Description: "Change supervisor's password", Flags: changeSupervisorPassword},
		{Name: "delete_supervisor", Description: "Delete supervisor user", Flags: deleteSupervisor},
		{Name: "index_supervisors", Description: "Index supervisors", Flags: indexSupervisors},
		{Name: "disqualify_team", Description: "Disqualify team", Flags: disqualifyTeam},
		{Name: "display_stats", Description: "Display stats", Flags: displayStats},
		{Name: "create_task", Description: "Create task", Flags: createTask},
		{Name: "update_task", Description: "Update task description, hints, categories and answers", Flags: updateTask},
		{Name: "open_task", Description: "Open task", Flags: openTask},
		{Name: "close_task", Description: "Close task", Flags: closeTask},
		{Name: "index_tasks", Description: "Index tasks", Flags: indexTasks},
		{Name: "issue_token", Description: "Issue supervisor access token", Flags: issueToken},
		{Name: "issue_team_token", Description: "Issue team access token", Flags: issueTeamToken},
	}

	result := make(map[string]Command, len(commands))
	for _, cmd := range commands {
		result[cmd.Name] = cmd
	}
	return result
}

// Names lists command names in sorted order.
func Names(commands map[string]Command) []string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FormatError renders err with the details of coded errors.
func FormatError(err error) string {
	var e *pkgerrors.Error
	if !errors.As(err, &e) || len(e.Details) == 0 {
		return err.Error()
	}
	keys := make([]string, 0, len(e.Details))
	for k := range e.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, e.Details[k]))
	}
	return fmt.Sprintf("%s (%s)", e.Error(), strings.Join(parts, ", "))
}

func createSupervisor(fs *flag.FlagSet) Runner {
	var username, rights string
	stringFlag(fs, &username, "u", "username", "username")
	stringFlag(fs, &rights, "r", "rights", "rights (admin, manager)")
	return func(ctx context.Context, env *Env) error {
		password, err := promptPassword(env, "password")
		if err != nil {
			return err
		}
		supervisor, err := env.Supervisors.Create(ctx, supervisorService.CreateInput{
			Username: username,
			Password: password,
			Rights:   rights,
		})
		if err != nil {
			return err
		}
		env.printf("Supervisor %s has been created!", supervisor.Username)
		return nil
	}
}

func changeSupervisorPassword(fs *flag.FlagSet) Runner {
	var username string
	stringFlag(fs, &username, "u", "username", "username")
	return func(ctx context.Context, env *Env) error {
		password, err := promptPassword(env, "new_password")
		if err != nil {
			return err
		}
		if err := env.Supervisors.ChangePassword(ctx, username, password); err != nil {
			return err
		}
		env.printf("Password for supervisor %s has been updated!", username)
		return nil
	}
}

func deleteSupervisor(fs *flag.FlagSet) Runner {
	var username string
	stringFlag(fs, &username, "u", "username", "username")
	return func(ctx context.Context, env *Env) error {
		if err := env.Supervisors.Delete(ctx, username); err != nil {
			return err
		}
		env.printf("Supervisor %s has been deleted!", username)
		return nil
	}
}

func indexSupervisors(fs *flag.FlagSet) Runner {
	return func(ctx context.Context, env *Env) error {
		supervisors, err := env.Supervisors.Index(ctx)
		if err != nil {
			return err
		}
		for _, s := range supervisors {
			env.printf("Supervisor #%d %s (%s)", s.ID, s.Username, s.Rights)
		}
		return nil
	}
}

func disqualifyTeam(fs *flag.FlagSet) Runner {
	var rawID string
	stringFlag(fs, &rawID, "t", "team-id", "team id")
	return func(ctx context.Context, env *Env) error {
		teamID, err := ParseInt64(rawID)
		if err != nil {
			return fmt.Errorf("invalid team id %q", rawID)
		}
		confirmation, err := env.Prompt.Line("confirmation: ")
		if err != nil {
			return err
		}
		if strings.TrimSpace(confirmation) != "yes" {
			return ErrNotConfirmed
		}
		if err := env.Teams.Disqualify(ctx, teamID); err != nil {
			return err
		}
		env.printf("Team %d has been disqualified!", teamID)
		return nil
	}
}

func displayStats(fs *flag.FlagSet) Runner {
	return func(ctx context.Context, env *Env) error {
		stats, err := env.Stats.GetStats(ctx)
		if err != nil {
			return err
		}
		env.printf("===== Teams =====")
		env.printf("Total count: %d", stats.Teams.Total)
		env.printf("Qualified count: %d", stats.Teams.Qualified)
		env.printf("Disqualified count: %d", stats.Teams.Disqualified)
		env.printf("Number of teams attempted to solve tasks: %d", stats.Teams.AttemptedToSolveTasks)
		env.printf("Number of teams solved at least one task: %d", stats.Teams.SolvedAtLeastOneTask)
		env.printf("=================")
		return nil
	}
}

func createTask(fs *flag.FlagSet) Runner {
	var title, description, hints, categories string
	var value int
	var caseSensitive bool
	fs.StringVar(&title, "title", "", "title")
	fs.StringVar(&description, "description", "", "description")
	fs.StringVar(&hints, "hints", "", "comma separated hints")
	fs.StringVar(&categories, "categories", "", "comma separated category ids")
	answers := answerFlags(fs, "answers")
	fs.IntVar(&value, "value", 0, "points")
	fs.BoolVar(&caseSensitive, "case-sensitive", false, "compare answers case-sensitively")
	return func(ctx context.Context, env *Env) error {
		categoryIDs, err := ParseInt64List(categories)
		if err != nil {
			return err
		}
		task, err := env.Tasks.Create(ctx, taskService.CreateInput{
			Title:         title,
			Description:   description,
			Hints:         ParseStringList(hints),
			Categories:    categoryIDs,
			Answers:       answers(),
			Value:         value,
			CaseSensitive: caseSensitive,
		})
		if err != nil {
			return err
		}
		env.printf("Task #%d %s has been created!", task.ID, task.Title)
		return nil
	}
}

func updateTask(fs *flag.FlagSet) Runner {
	var rawID, description, hints, categories string
	stringFlag(fs, &rawID, "i", "id", "task id")
	fs.StringVar(&description, "description", "", "description")
	fs.StringVar(&hints, "hints", "", "comma separated hints")
	fs.StringVar(&categories, "categories", "", "comma separated category ids")
	answers := answerFlags(fs, "answers to add")
	return func(ctx context.Context, env *Env) error {
		task, err := loadTask(ctx, env, rawID)
		if err != nil {
			return err
		}
		input := taskService.UpdateInput{
			Description: task.Description,
			Hints:       task.Hints,
			Categories:  task.Categories,
			Answers:     answers(),
		}
		if isSet(fs, "description") {
			input.Description = description
		}
		if isSet(fs, "hints") {
			input.Hints = ParseStringList(hints)
		}
		if isSet(fs, "categories") {
			if input.Categories, err = ParseInt64List(categories); err != nil {
				return err
			}
		}
		updated, err := env.Tasks.Update(ctx, task, input)
		if err != nil {
			return err
		}
		env.printf("Task #%d %s has been updated!", updated.ID, updated.Title)
		return nil
	}
}

func openTask(fs *flag.FlagSet) Runner {
	var rawID string
	stringFlag(fs, &rawID, "i", "id", "task id")
	return func(ctx context.Context, env *Env) error {
		task, err := loadTask(ctx, env, rawID)
		if err != nil {
			return err
		}
		if err := env.Tasks.Open(ctx, task); err != nil {
			return err
		}
		env.printf("Task #%d %s has been opened!", task.ID, task.Title)
		return nil
	}
}

func closeTask(fs *flag.FlagSet) Runner {
	var rawID string
	stringFlag(fs, &rawID, "i", "id", "task id")
	return func(ctx context.Context, env *Env) error {
		task, err := loadTask(ctx, env, rawID)
		if err != nil {
			return err
		}
		if err := env.Tasks.Close(ctx, task); err != nil {
			return err
		}
		env.printf("Task #%d %s has been closed!", task.ID, task.Title)
		return nil
	}
}

func indexTasks(fs *flag.FlagSet) Runner {
	return func(ctx context.Context, env *Env) error {
		tasks, err := env.Tasks.List(ctx)
		if err != nil {
			return err
		}
		for _, t := range tasks {
			env.printf("Task #%d %s (%s, %d points)", t.ID, t.Title, t.State, t.Value)
		}
		return nil
	}
}

func issueToken(fs *flag.FlagSet) Runner {
	var username string
	stringFlag(fs, &username, "u", "username", "username")
	return func(ctx context.Context, env *Env) error {
		password, err := env.Prompt.Hidden("password: ")
		if err != nil {
			return err
		}
		supervisor, err := env.Supervisors.Authenticate(ctx, username, password)
		if err != nil {
			return err
		}
		token, expiresAt, err := env.Tokens.IssueToken(supervisor.ID, string(supervisor.Rights))
		if err != nil {
			return err
		}
		env.printf("%s", token)
		env.printf("expires at %s", expiresAt.Format(time.RFC3339))
		return nil
	}
}

func issueTeamToken(fs *flag.FlagSet) Runner {
	var rawID string
	stringFlag(fs, &rawID, "t", "team-id", "team id")
	return func(ctx context.Context, env *Env) error {
		teamID, err := ParseInt64(rawID)
		if err != nil {
			return fmt.Errorf("invalid team id %q", rawID)
		}
		team, err := env.Teams.Get(ctx, teamID)
		if err != nil {
			return err
		}
		token, expiresAt, err := env.Tokens.IssueToken(team.ID, auth.RoleTeam)
		if err != nil {
			return err
		}
		env.printf("%s", token)
		env.printf("expires at %s", expiresAt.Format(time.RFC3339))
		return nil
	}
}

func promptPassword(env *Env, name string) (string, error) {
	password, err := env.Prompt.Hidden(name + ": ")
	if err != nil {
		return "", err
	}
	confirmation, err := env.Prompt.Hidden("confirmation: ")
	if err != nil {
		return "", err
	}
	if password != confirmation {
		return "", ErrVerificationFailed
	}
	return password, nil
}

func loadTask(ctx context.Context, env *Env, rawID string) (*taskRepo.Task, error) {
	id, err := ParseInt64(rawID)
	if err != nil {
		return nil, fmt.Errorf("invalid task id %q", rawID)
	}
	return env.Tasks.Get(ctx, id)
}
