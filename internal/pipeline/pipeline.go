// Package pipeline sequences deployment stages and owns the run context.
// Stages report tagged results; the pipeline alone decides whether a run
// continues, degrades, or stops.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Pipeline runs stages strictly in order.
type Pipeline struct {
	stages   []Stage
	reporter Reporter
	logger   *zap.Logger
	clock    func() time.Time
	newRunID func() string
}

// Option customizes the pipeline instance.
type Option func(*Pipeline)

// WithReporter installs a progress sink.
func WithReporter(r Reporter) Option {
	return func(p *Pipeline) {
		if r != nil {
			p.reporter = r
		}
	}
}

// WithLogger installs a structured logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithClock injects a deterministic clock (primarily for tests).
func WithClock(clock func() time.Time) Option {
	return func(p *Pipeline) {
		if clock != nil {
			p.clock = clock
		}
	}
}

// WithRunID fixes the run identifier (primarily for tests).
func WithRunID(id string) Option {
	return func(p *Pipeline) {
		if id != "" {
			p.newRunID = func() string { return id }
		}
	}
}

// New validates the stage list and wires options.
func New(stages []Stage, opts ...Option) (*Pipeline, error) {
	if len(stages) == 0 {
		return nil, fmt.Errorf("pipeline: at least one stage is required")
	}
	seen := make(map[string]bool, len(stages))
	for i, st := range stages {
		if st == nil {
			return nil, fmt.Errorf("pipeline: stage %d is nil", i)
		}
		info := st.Info()
		if err := info.Validate(); err != nil {
			return nil, err
		}
		if seen[info.ID] {
			return nil, fmt.Errorf("pipeline: duplicate stage %s", info.ID)
		}
		seen[info.ID] = true
	}
	p := &Pipeline{
		stages:   append([]Stage{}, stages...),
		reporter: nopReporter{},
		logger:   zap.NewNop(),
		clock:    time.Now,
		newRunID: func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p, nil
}

// Warning records a soft failure that did not stop the run.
type Warning struct {
	Stage   string
	Message string
}

// StageRun records one executed stage.
type StageRun struct {
	ID       string
	Kind     Kind
	Duration time.Duration
}

// Report summarizes a run, successful or not.
type Report struct {
	RunID    string
	Context  Context
	Warnings []Warning
	Runs     []StageRun
	Failed   string
}

// Run executes every stage against a fresh context for network. On a hard
// failure it returns the partial report and a *StageError; stages after the
// failing one never run and nothing already provisioned is undone.
func (p *Pipeline) Run(ctx context.Context, network string) (Report, error) {
	pc := NewContext(network)
	report := Report{RunID: p.newRunID()}
	log := p.logger.With(zap.String("run_id", report.RunID), zap.String("network", network))
	log.Info("pipeline started", zap.Int("stages", len(p.stages)))

	for _, st := range p.stages {
		info := st.Info()
		if missing := missingFields(pc, info.Requires); len(missing) > 0 {
			err := fmt.Errorf("pipeline: %s requires unset %v", info.ID, missing)
			p.reporter.StageFailed(info, err, "")
			log.Error("stage precondition failed", zap.String("stage", info.ID), zap.Error(err))
			return p.fail(report, pc, info.ID, err, "")
		}

		p.reporter.StageStarted(info)
		start := p.clock()
		res := st.Run(ctx, pc)
		elapsed := p.clock().Sub(start)
		if res.Kind == KindSoftFailure && !info.SoftFail {
			res = HardFailure(errors.New(res.Warning)).WithOutput(res.Output)
		}
		report.Runs = append(report.Runs, StageRun{ID: info.ID, Kind: res.Kind, Duration: elapsed})
		stageLog := log.With(zap.String("stage", info.ID), zap.String("kind", string(res.Kind)), zap.Duration("duration", elapsed))

		switch res.Kind {
		case KindSuccess:
			if info.Produces != FieldNone {
				if res.Value == "" {
					err := fmt.Errorf("pipeline: %s succeeded without a value for %s", info.ID, info.Produces)
					p.reporter.StageFailed(info, err, res.Output)
					stageLog.Error("stage produced no value", zap.Error(err))
					return p.fail(report, pc, info.ID, err, res.Output)
				}
				if err := pc.set(info.Produces, res.Value); err != nil {
					return p.fail(report, pc, info.ID, err, "")
				}
			}
			p.reporter.StageSucceeded(info, res.Message)
			stageLog.Info("stage succeeded", zap.String("message", res.Message))
		case KindSoftFailure:
			report.Warnings = append(report.Warnings, Warning{Stage: info.ID, Message: res.Warning})
			p.reporter.StageWarned(info, res.Warning)
			stageLog.Warn("stage degraded", zap.String("warning", res.Warning))
		default:
			err := res.Err
			if err == nil {
				err = fmt.Errorf("pipeline: %s failed", info.ID)
			}
			p.reporter.StageFailed(info, err, res.Output)
			stageLog.Error("stage failed", zap.Error(err))
			return p.fail(report, pc, info.ID, err, res.Output)
		}
	}

	report.Context = pc.snapshot()
	log.Info("pipeline finished", zap.String("remote_id", pc.RemoteID), zap.Int("warnings", len(report.Warnings)))
	return report, nil
}

func (p *Pipeline) fail(report Report, pc *Context, stageID string, err error, output string) (Report, error) {
	report.Context = pc.snapshot()
	report.Failed = stageID
	return report, &StageError{Stage: stageID, Err: err, Output: output}
}

func missingFields(in Inputs, fields []Field) []Field {
	var missing []Field
	for _, f := range fields {
		if in.Value(f) == "" {
			missing = append(missing, f)
		}
	}
	return missing
}
