package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zapio"

	"github.com/kingrea/lattice-deploy/internal/config"
	"github.com/kingrea/lattice-deploy/internal/confirm"
	"github.com/kingrea/lattice-deploy/internal/console"
	"github.com/kingrea/lattice-deploy/internal/logbook"
	"github.com/kingrea/lattice-deploy/internal/logging"
	"github.com/kingrea/lattice-deploy/internal/pipeline"
	"github.com/kingrea/lattice-deploy/internal/process"
	"github.com/kingrea/lattice-deploy/internal/stages/build"
	"github.com/kingrea/lattice-deploy/internal/stages/optimize"
	"github.com/kingrea/lattice-deploy/internal/stages/persist"
	"github.com/kingrea/lattice-deploy/internal/stages/preflight"
	"github.com/kingrea/lattice-deploy/internal/stages/provision"
	"github.com/kingrea/lattice-deploy/internal/stages/publish"
	"github.com/kingrea/lattice-deploy/internal/stages/summary"
	"github.com/kingrea/lattice-deploy/internal/stages/verify"
	"github.com/kingrea/lattice-deploy/internal/toolchain"
)

// environment is everything run needs from the outside world. A nil runner
// means real processes whose output is mirrored into the structured log.
type environment struct {
	rootDir     string
	getenv      func(string) string
	stdin       io.Reader
	stdout      io.Writer
	runner      process.Runner
	interactive bool
	// confirmer overrides the provider chosen from config and terminal state.
	confirmer confirm.Provider
}

// reportedError marks failures the console reporter already printed.
type reportedError struct {
	err error
}

func (e reportedError) Error() string { return e.err.Error() }
func (e reportedError) Unwrap() error { return e.err }

func reported(err error) bool {
	var r reportedError
	return errors.As(err, &r)
}

func run(ctx context.Context, env environment) error {
	cfg, err := config.Load(env.rootDir, env.getenv)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.LogsDir(), zapcore.InfoLevel)
	if err != nil {
		return err
	}
	defer logger.Close()
	history, err := logbook.New(cfg.HistoryPath())
	if err != nil {
		logger.Warn("history unavailable", zap.Error(err))
		history = nil
	}

	styles := console.DefaultStyles()
	if env.getenv("NO_COLOR") != "" {
		styles = console.Plain()
	}
	reporter := console.New(env.stdout, styles)

	if env.runner == nil {
		runner, closeRunner := newExecRunner(logger.Logger)
		defer closeRunner()
		env.runner = runner
	}

	stages := assemble(cfg, env, history)
	p, err := pipeline.New(stages, pipeline.WithReporter(reporter), pipeline.WithLogger(logger.Logger))
	if err != nil {
		return err
	}
	report, err := p.Run(ctx, cfg.File.Network.Name)
	if err != nil {
		var stageErr *pipeline.StageError
		if errors.As(err, &stageErr) {
			return reportedError{err: err}
		}
		return err
	}
	if n := len(report.Warnings); n > 0 {
		fmt.Fprintf(env.stdout, "%d warning(s); see above\n", n)
	}
	return nil
}

// newExecRunner streams child output line by line into log as it is
// produced. The returned func flushes a trailing partial line.
func newExecRunner(log *zap.Logger) (*process.ExecRunner, func()) {
	w := &zapio.Writer{Log: log.With(zap.String("source", "process")), Level: zapcore.InfoLevel}
	return process.NewExecRunner(process.WithTee(w)), func() { _ = w.Close() }
}

// assemble builds the stage list in execution order.
func assemble(cfg *config.Config, env environment, history *logbook.Logbook) []pipeline.Stage {
	f := cfg.File
	cli := toolchain.NewDeployer(env.runner, f.Tools.Deploy)
	builder := toolchain.NewBuilder(env.runner, f.Project.Artifact,
		toolchain.WithProgram(f.Tools.Build),
		toolchain.WithTarget(f.Project.Target),
		toolchain.WithProfile(f.Project.Profile),
	)
	tools := make([]preflight.Tool, 0, len(f.Preflight))
	for _, t := range f.Preflight {
		tools = append(tools, preflight.Tool{Name: t.Name, VersionArgs: t.VersionArgs, InstallHint: t.InstallHint})
	}

	stages := []pipeline.Stage{
		preflight.New(env.runner, tools),
		provision.NewNetworkStage(cli, f.Network.RPCURL, f.Network.Passphrase),
		provision.NewIdentityStage(cli, chooseConfirmer(cfg, env), f.Identity.Name,
			provision.WithFundingHint(f.Network.FundingHint)),
		build.New(builder, cfg.ProjectDir()),
	}
	if cfg.OptimizeEnabled() {
		stages = append(stages, optimize.New(cli))
	}
	return append(stages,
		publish.New(cli, f.Identity.Name),
		persist.New(cfg.RecordPath(), persist.WithHistory(history)),
		verify.New(cli),
		summary.New(env.stdout, f.Network.ExplorerURL, summary.WithHistory(history)),
	)
}

func chooseConfirmer(cfg *config.Config, env environment) confirm.Provider {
	switch {
	case env.confirmer != nil:
		return env.confirmer
	case cfg.File.Identity.Prefunded:
		return confirm.NewAuto(env.stdout)
	case env.interactive:
		return confirm.NewPrompt(env.stdin, env.stdout)
	default:
		return confirm.NewLine(env.stdin, env.stdout)
	}
}
