package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"ctfplatform/internal/auth"
	"ctfplatform/internal/bootstrap"
	"ctfplatform/internal/realtime"
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
	"ctfplatform/pkg/utils/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultConfigPath = "configs/platform_service.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to config file")
	flag.Parse()

	appCfg, err := loadAppConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load app config failed: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(appCfg.Logger); err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	if err := run(appCfg); err != nil {
		logger.Error(context.Background(), "platform service stopped", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(appCfg *AppConfig) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := bootstrap.Open(ctx, &appCfg.Config)
	if err != nil {
		return err
	}
	defer func() {
		if err := res.Close(); err != nil {
			logger.Warn(context.Background(), "close resources failed", zap.Error(err))
		}
	}()

	tasks := taskRepo.NewTaskRepositoryWithTTL(res.DB, res.TaskCache(), appCfg.Cache.TaskTTL, appCfg.Cache.TaskEmptyTTL)
	teams := teamRepo.NewTeamRepository(res.DB)

	tasksSvc := taskService.NewTaskService(tasks, res.Emitter)
	teamsSvc := teamService.NewTeamService(teams, res.Emitter)
	statsSvc := statService.NewStatService(statRepo.NewStatRepository(res.DB))
	submissionsSvc, err := submissionService.NewSubmissionService(submissionService.Config{
		Submissions: submissionRepo.NewSubmissionRepository(res.DB),
		Tasks:       tasks,
		Teams:       teams,
		Cache:       res.TaskCache(),
		RateLimit: submissionService.RateLimitConfig{
			Window: appCfg.Submission.RateWindow,
			Max:    appCfg.Submission.RateMax,
		},
	})
	if err != nil {
		return err
	}

	hub := realtime.NewHub()
	channelName := appCfg.Realtime.Channel
	if channelName == "" {
		channelName = realtime.DefaultChannel
	}
	if err := hub.Run(ctx, res.Channel, channelName); err != nil {
		return fmt.Errorf("subscribe realtime channel failed: %w", err)
	}
	defer hub.Shutdown()

	if appCfg.Server.GinMode != "" {
		gin.SetMode(appCfg.Server.GinMode)
	}
	handler := router.New(router.Options{
		Tokens: auth.NewTokenService(appCfg.Auth.JWTSecret, appCfg.Auth.Issuer, appCfg.Auth.TokenTTL),
		Hub:    hub,
		Controllers: router.Controllers{
			Tasks:       taskController.NewTaskController(tasksSvc),
			Teams:       teamController.NewTeamController(teamsSvc),
			Submissions: submissionController.NewSubmissionController(submissionsSvc),
			Stats:       statController.NewStatController(statsSvc),
		},
		Health: res.DB.Ping,
	})
	httpServer := &http.Server{
		Addr:         appCfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  appCfg.Server.ReadTimeout,
		WriteTimeout: appCfg.Server.WriteTimeout,
		IdleTimeout:  appCfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(context.Background(), "platform http server started", zap.String("addr", appCfg.Server.Addr))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info(context.Background(), "shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error(context.Background(), "http server shutdown failed", zap.Error(err))
	}
	return nil
}
