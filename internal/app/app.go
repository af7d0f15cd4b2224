// Package app wires config, logging, the scheduler loop and the maintenance
// task into one daemon.
package app

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"

	"dockmaint/internal/config"
	"dockmaint/internal/executor"
	"dockmaint/internal/maintenance"
	"dockmaint/internal/runtime/supervisor"
	"dockmaint/internal/scheduler"
	"dockmaint/pkg/logx"
)

type App struct {
	cfgPath string

	mgr  *config.Manager
	cfg  *config.Config
	log  logx.Logger
	logs *logx.Service
	loop *scheduler.Loop
}

func New(cfgPath string) (*App, error) {
	mgr := config.NewManager(cfgPath)
	cfg, err := mgr.Load()
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(logConfig(cfg))
	log = log.With(logx.String("comp", "app"))
	mgr.SetLogger(log.With(logx.String("comp", "config")))

	runner := &executor.OSRunner{OutputLimit: cfg.OutputLimit()}
	task := maintenance.New(runner, cfg, log)

	loop, err := scheduler.New(cfg, task, log, clock.New())
	if err != nil {
		return nil, err
	}

	// Hot reload applies logging changes only; executable paths and the
	// schedule stay fixed until restart.
	mgr.OnChange(func(next *config.Config) {
		logSvc.Apply(logConfig(next))
	})

	return &App{
		cfgPath: cfgPath,
		mgr:     mgr,
		cfg:     cfg,
		log:     log,
		logs:    logSvc,
		loop:    loop,
	}, nil
}

func (a *App) Logger() logx.Logger { return a.log }

func (a *App) Scheduler() *scheduler.Loop { return a.loop }

// Run is the daemon body: it blocks until ctx is cancelled or a goroutine
// fails, then drains everything within the configured stop timeout.
func (a *App) Run(ctx context.Context) error {
	sup := supervisor.New(ctx,
		supervisor.WithLogger(a.log),
		supervisor.WithCancelOnError(true),
	)

	sup.Go("scheduler", a.loop.Run)
	sup.Go("config-watcher", a.mgr.Watch)

	a.log.Info("daemon started",
		logx.String("config", a.cfgPath),
		logx.Time("next_run", a.loop.NextRun()),
	)
	<-sup.Context().Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), a.cfg.StopTimeout())
	defer cancel()
	err := sup.Stop(stopCtx)
	a.log.Info("daemon stopped")
	return err
}

// RunOnce executes one full maintenance run immediately and reports how many
// steps failed. Used by the `once` command; the daemon loop is not involved.
func (a *App) RunOnce(ctx context.Context) (failed int) {
	runner := &executor.OSRunner{OutputLimit: a.cfg.OutputLimit()}
	task := maintenance.New(runner, a.cfg, a.log)
	for _, res := range task.RunAll(ctx) {
		if res.Failed() {
			failed++
		}
	}
	return failed
}

// Config returns the config the app was built with.
func (a *App) Config() *config.Config { return a.cfg }

func logConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled:    cfg.Logging.File.Enabled,
			Path:       cfg.Logging.File.Path,
			MaxSizeMB:  cfg.Logging.File.MaxSizeMB,
			MaxBackups: cfg.Logging.File.MaxBackups,
			MaxAgeDays: cfg.Logging.File.MaxAgeDays,
			Compress:   cfg.Logging.File.Compress,
		},
		Journal: logx.JournalConfig{
			Enabled:    cfg.Logging.Journal.Enabled,
			MinLevel:   cfg.Logging.Journal.MinLevel,
			RatePerSec: cfg.Logging.Journal.RatePerSec,
		},
	}
}

// StopTimeout is re-exported for the platform shell.
func (a *App) StopTimeout() time.Duration { return a.cfg.StopTimeout() }
