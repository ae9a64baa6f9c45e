// Package optimize runs the size-optimization transform over the artifact.
// Failure here never stops a deploy; the unoptimized artifact is used.
package optimize

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/kingrea/lattice-deploy/internal/pipeline"
	"github.com/kingrea/lattice-deploy/internal/toolchain"
)

const (
	stageID = "optimize"
	suffix  = "_optimized"
)

// OptimizedPath inserts the optimized suffix before the extension:
// dir/artifact.wasm becomes dir/artifact_optimized.wasm.
func OptimizedPath(artifactPath string) string {
	ext := filepath.Ext(artifactPath)
	return strings.TrimSuffix(artifactPath, ext) + suffix + ext
}

// Optimize returns the optimized sibling on success, or a soft failure that
// leaves the caller on artifactPath.
func Optimize(ctx context.Context, cli *toolchain.Deployer, artifactPath string) pipeline.Result {
	out := OptimizedPath(artifactPath)
	// A leftover from an earlier run must not pass for this run's output.
	if err := os.Remove(out); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return pipeline.SoftFailure(fmt.Sprintf("remove stale %s: %v; using unoptimized artifact", out, err))
	}
	res, err := cli.ContractOptimize(ctx, artifactPath, out)
	if err != nil {
		return pipeline.SoftFailure(fmt.Sprintf("%s unavailable: %v; using unoptimized artifact", cli.Program(), err)).
			WithOutput(res.Combined())
	}
	if !res.Succeeded() {
		return pipeline.SoftFailure(fmt.Sprintf("optimizer exited %d; using unoptimized artifact", res.ExitCode)).
			WithOutput(res.Combined())
	}
	stat, err := os.Stat(out)
	if err != nil || stat.IsDir() || stat.Size() == 0 {
		return pipeline.SoftFailure(fmt.Sprintf("%s was not produced; using unoptimized artifact", out)).
			WithOutput(res.Combined())
	}
	msg := out
	if before, err := os.Stat(artifactPath); err == nil && before.Size() > 0 {
		msg = fmt.Sprintf("%s (%d → %d bytes)", out, before.Size(), stat.Size())
	}
	return pipeline.Success(out).WithMessage("%s", msg)
}

// Stage adapts Optimize to the pipeline.
type Stage struct {
	cli *toolchain.Deployer
}

// New builds the optimization stage.
func New(cli *toolchain.Deployer) *Stage {
	return &Stage{cli: cli}
}

// Info implements pipeline.Stage.
func (s *Stage) Info() pipeline.Info {
	return pipeline.Info{
		ID:       stageID,
		Name:     "Optimize artifact",
		Produces: pipeline.FieldArtifactPath,
		Requires: []pipeline.Field{pipeline.FieldArtifactPath},
		SoftFail: true,
	}
}

// Run implements pipeline.Stage.
func (s *Stage) Run(ctx context.Context, in pipeline.Inputs) pipeline.Result {
	return Optimize(ctx, s.cli, in.Value(pipeline.FieldArtifactPath))
}
