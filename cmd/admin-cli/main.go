package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ctfplatform/internal/auth"
	"ctfplatform/internal/bootstrap"
	"ctfplatform/internal/cli/command"
	"ctfplatform/internal/cli/config"
	"ctfplatform/internal/cli/repl"
	statRepo "ctfplatform/internal/stat/repository"
	statService "ctfplatform/internal/stat/service"
	supervisorRepo "ctfplatform/internal/supervisor/repository"
	supervisorService "ctfplatform/internal/supervisor/service"
	taskRepo "ctfplatform/internal/task/repository"
	taskService "ctfplatform/internal/task/service"
	teamRepo "ctfplatform/internal/team/repository"
	teamService "ctfplatform/internal/team/service"
	"ctfplatform/pkg/utils/logger"

	"github.com/chzyer/readline"
)

const defaultConfigPath = "configs/admin_cli.yaml"

func main() {
	os.Exit(run())
}

// run returns the process exit code: 0 on success, 1 on any failure.
func run() int {
	configPath := flag.String("config", defaultConfigPath, "Path to config file")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: admin-cli [-config path] [command [options]]\n\ncommands:\n")
		commands := command.Registry()
		for _, name := range command.Names(commands) {
			fmt.Fprintf(flag.CommandLine.Output(), "  %-28s %s\n", name, commands[name].Description)
		}
	}
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		return 1
	}
	if err := logger.Init(cfg.Logger); err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		return 1
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := bootstrap.Open(ctx, &cfg.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open resources failed: %v\n", err)
		return 1
	}
	// Close drains the event emitter before exit.
	defer func() {
		_ = res.Close()
	}()

	interactive := flag.NArg() == 0
	rlCfg := &readline.Config{}
	if interactive {
		rlCfg.Prompt = repl.Prompt
		rlCfg.HistoryFile = cfg.HistoryFile
	}
	rl, err := readline.NewEx(rlCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init terminal failed: %v\n", err)
		return 1
	}
	defer func() {
		_ = rl.Close()
	}()

	env := &command.Env{
		Services: command.Services{
			Supervisors: supervisorService.NewSupervisorService(supervisorRepo.NewSupervisorRepository(res.DB)).WithCost(cfg.BcryptCost),
			Teams:       teamService.NewTeamService(teamRepo.NewTeamRepository(res.DB), res.Emitter),
			Stats:       statService.NewStatService(statRepo.NewStatRepository(res.DB)),
			Tasks: taskService.NewTaskService(
				taskRepo.NewTaskRepositoryWithTTL(res.DB, res.TaskCache(), cfg.Cache.TaskTTL, cfg.Cache.TaskEmptyTTL),
				res.Emitter,
			),
			Tokens: auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL),
		},
		Out:    os.Stdout,
		Prompt: repl.NewPrompter(rl),
	}
	session := repl.New(command.Registry(), env)

	if interactive {
		if err := session.Run(ctx, rl); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			return 1
		}
		return 0
	}

	if err := session.Execute(ctx, flag.Args()); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "error: %s\n", command.FormatError(err))
		return 1
	}
	return 0
}
