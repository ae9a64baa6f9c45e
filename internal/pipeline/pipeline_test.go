package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeStage struct {
	info   Info
	result Result
	calls  int
	seen   []Values
}

func (f *fakeStage) Info() Info { return f.info }

func (f *fakeStage) Run(_ context.Context, in Inputs) Result {
	f.calls++
	f.seen = append(f.seen, Values{
		FieldTargetNetwork:  in.Value(FieldTargetNetwork),
		FieldSigningAddress: in.Value(FieldSigningAddress),
		FieldArtifactPath:   in.Value(FieldArtifactPath),
		FieldRemoteID:       in.Value(FieldRemoteID),
	})
	return f.result
}

type recordingReporter struct {
	events []string
}

func (r *recordingReporter) StageStarted(info Info) {
	r.events = append(r.events, "start:"+info.ID)
}

func (r *recordingReporter) StageSucceeded(info Info, _ string) {
	r.events = append(r.events, "ok:"+info.ID)
}

func (r *recordingReporter) StageWarned(info Info, _ string) {
	r.events = append(r.events, "warn:"+info.ID)
}

func (r *recordingReporter) StageFailed(info Info, _ error, output string) {
	r.events = append(r.events, "fail:"+info.ID+":"+output)
}

func stage(id string, produces Field, res Result, requires ...Field) *fakeStage {
	return &fakeStage{info: Info{ID: id, Name: id, Produces: produces, Requires: requires}, result: res}
}

func TestRunThreadsValuesThroughContext(t *testing.T) {
	identity := stage("identity", FieldSigningAddress, Success("GABC"))
	build := stage("build", FieldArtifactPath, Success("/w/a.wasm"))
	publish := stage("publish", FieldRemoteID, Success("CONTRACT123"), FieldArtifactPath, FieldSigningAddress)
	rep := &recordingReporter{}
	p, err := New([]Stage{identity, build, publish}, WithReporter(rep), WithRunID("run-1"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	report, err := p.Run(context.Background(), "testnet")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.RunID != "run-1" {
		t.Fatalf("unexpected run id %q", report.RunID)
	}
	want := Context{TargetNetwork: "testnet", SigningAddress: "GABC", ArtifactPath: "/w/a.wasm", RemoteID: "CONTRACT123"}
	if report.Context != want {
		t.Fatalf("context mismatch: %+v", report.Context)
	}
	if got := publish.seen[0][FieldArtifactPath]; got != "/w/a.wasm" {
		t.Fatalf("publish saw artifact %q", got)
	}
	if got := identity.seen[0][FieldArtifactPath]; got != "" {
		t.Fatalf("identity should not see an artifact yet, saw %q", got)
	}
	expected := "start:identity ok:identity start:build ok:build start:publish ok:publish"
	if strings.Join(rep.events, " ") != expected {
		t.Fatalf("unexpected events: %v", rep.events)
	}
	if len(report.Runs) != 3 {
		t.Fatalf("expected 3 stage runs, got %d", len(report.Runs))
	}
}

func TestRunStopsAtHardFailure(t *testing.T) {
	build := stage("build", FieldArtifactPath, HardFailuref("cargo exited 101").WithOutput("error[E0425]"))
	publish := stage("publish", FieldRemoteID, Success("C1"), FieldArtifactPath)
	rep := &recordingReporter{}
	p, err := New([]Stage{build, publish}, WithReporter(rep))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	report, err := p.Run(context.Background(), "testnet")
	var stageErr *StageError
	if !errors.As(err, &stageErr) {
		t.Fatalf("expected StageError, got %v", err)
	}
	if stageErr.Stage != "build" || stageErr.Output != "error[E0425]" {
		t.Fatalf("unexpected stage error: %+v", stageErr)
	}
	if publish.calls != 0 {
		t.Fatalf("publish must not run after a hard failure")
	}
	if report.Failed != "build" || report.Context.RemoteID != "" {
		t.Fatalf("unexpected report: %+v", report)
	}
	if rep.events[len(rep.events)-1] != "fail:build:error[E0425]" {
		t.Fatalf("failure output not reported: %v", rep.events)
	}
}

func TestSoftFailureRetainsPreviousValue(t *testing.T) {
	build := stage("build", FieldArtifactPath, Success("/w/a.wasm"))
	optimize := stage("optimize", FieldArtifactPath, SoftFailure("optimized artifact missing"), FieldArtifactPath)
	optimize.info.SoftFail = true
	publish := stage("publish", FieldRemoteID, Success("C1"), FieldArtifactPath)
	p, err := New([]Stage{build, optimize, publish})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	report, err := p.Run(context.Background(), "testnet")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := publish.seen[0][FieldArtifactPath]; got != "/w/a.wasm" {
		t.Fatalf("publish should use the original artifact, got %q", got)
	}
	if len(report.Warnings) != 1 || report.Warnings[0].Stage != "optimize" {
		t.Fatalf("expected one optimize warning, got %+v", report.Warnings)
	}
}

func TestSoftFailureEscalatesWhenNotAllowed(t *testing.T) {
	persist := stage("persist", FieldNone, SoftFailure("disk full"))
	after := stage("after", FieldNone, Success(""))
	p, err := New([]Stage{persist, after})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = p.Run(context.Background(), "testnet")
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("expected escalated failure, got %v", err)
	}
	if after.calls != 0 {
		t.Fatalf("stage after escalated failure must not run")
	}
}

func TestRequiredFieldGatesStage(t *testing.T) {
	verify := stage("verify", FieldNone, Success(""), FieldRemoteID)
	verify.info.SoftFail = true
	p, err := New([]Stage{verify})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = p.Run(context.Background(), "testnet")
	if err == nil {
		t.Fatalf("expected precondition failure")
	}
	if verify.calls != 0 {
		t.Fatalf("verify must never run with an unset remote id")
	}
}

func TestSuccessWithoutValueIsFatal(t *testing.T) {
	publish := stage("publish", FieldRemoteID, Success(""))
	p, err := New([]Stage{publish})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	report, err := p.Run(context.Background(), "testnet")
	if err == nil {
		t.Fatalf("expected failure for empty produced value")
	}
	if report.Context.RemoteID != "" {
		t.Fatalf("remote id must stay unset")
	}
}

func TestNewRejectsBadStages(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatalf("expected error for empty stage list")
	}
	dup := []Stage{stage("a", FieldNone, Success("")), stage("a", FieldNone, Success(""))}
	if _, err := New(dup); err == nil {
		t.Fatalf("expected duplicate error")
	}
	bad := []Stage{stage("a", FieldTargetNetwork, Success("x"))}
	if _, err := New(bad); err == nil {
		t.Fatalf("expected error for stage producing the target network")
	}
}

func TestRunLogsStageOutcomes(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	ticks := 0
	clock := func() time.Time {
		ticks++
		return time.Date(2026, 10, 14, 9, 0, ticks, 0, time.UTC)
	}
	p, err := New(
		[]Stage{stage("build", FieldArtifactPath, Success("/w/a.wasm"))},
		WithLogger(zap.New(core)),
		WithClock(clock),
		WithRunID("run-7"),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	report, err := p.Run(context.Background(), "testnet")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Runs[0].Duration != time.Second {
		t.Fatalf("unexpected duration %s", report.Runs[0].Duration)
	}
	entries := logs.FilterMessage("stage succeeded").All()
	if len(entries) != 1 {
		t.Fatalf("expected one stage log entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["run_id"] != "run-7" || fields["stage"] != "build" {
		t.Fatalf("unexpected log fields: %v", fields)
	}
}
