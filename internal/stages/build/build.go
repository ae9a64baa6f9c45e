// Package build compiles the contract and locates the produced artifact.
package build

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/kingrea/lattice-deploy/internal/pipeline"
	"github.com/kingrea/lattice-deploy/internal/toolchain"
)

const stageID = "build"

// Build runs the build toolchain in projectDir and returns the artifact path.
// A zero exit without a usable artifact is still a failure: some toolchains
// report success while producing nothing for the requested target.
func Build(ctx context.Context, builder *toolchain.Builder, projectDir string) pipeline.Result {
	info, err := os.Stat(projectDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return pipeline.HardFailuref("%s: project directory %s does not exist", stageID, projectDir)
		}
		return pipeline.HardFailure(fmt.Errorf("%s: stat project directory %s: %w", stageID, projectDir, err))
	}
	if !info.IsDir() {
		return pipeline.HardFailuref("%s: project path %s is not a directory", stageID, projectDir)
	}

	out, err := builder.Build(ctx, projectDir)
	if err != nil {
		return pipeline.HardFailure(fmt.Errorf("%s: run %s: %w", stageID, builder.Program(), err)).WithOutput(out.Combined())
	}
	if !out.Succeeded() {
		return pipeline.HardFailuref("%s: %s exited %d", stageID, builder.Program(), out.ExitCode).WithOutput(out.Combined())
	}

	artifact := builder.ArtifactPath(projectDir)
	stat, err := os.Stat(artifact)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return pipeline.HardFailuref("%s: %s reported success but %s was not produced", stageID, builder.Program(), artifact).
			WithOutput(out.Combined())
	case err != nil:
		return pipeline.HardFailure(fmt.Errorf("%s: stat artifact: %w", stageID, err))
	case stat.IsDir() || stat.Size() == 0:
		return pipeline.HardFailuref("%s: artifact %s is empty", stageID, artifact).WithOutput(out.Combined())
	}
	return pipeline.Success(artifact).WithMessage("%s (%d bytes)", artifact, stat.Size())
}

// Stage adapts Build to the pipeline.
type Stage struct {
	builder    *toolchain.Builder
	projectDir string
}

// New builds the build stage for projectDir.
func New(builder *toolchain.Builder, projectDir string) *Stage {
	return &Stage{builder: builder, projectDir: projectDir}
}

// Info implements pipeline.Stage.
func (s *Stage) Info() pipeline.Info {
	return pipeline.Info{ID: stageID, Name: "Build contract", Produces: pipeline.FieldArtifactPath}
}

// Run implements pipeline.Stage.
func (s *Stage) Run(ctx context.Context, _ pipeline.Inputs) pipeline.Result {
	return Build(ctx, s.builder, s.projectDir)
}
