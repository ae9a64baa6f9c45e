// Package verify confirms a deployed identifier resolves on the network.
package verify

import (
	"context"
	"fmt"

	"github.com/kingrea/lattice-deploy/internal/pipeline"
	"github.com/kingrea/lattice-deploy/internal/toolchain"
)

const stageID = "verify"

// Verify performs a read-only inspection. By the time it runs the deploy
// has succeeded and the id is on disk, so every failure is a warning.
func Verify(ctx context.Context, cli *toolchain.Deployer, id, network string) pipeline.Result {
	out, err := cli.ContractInspect(ctx, id, network)
	if err != nil {
		return pipeline.SoftFailure(fmt.Sprintf("could not inspect %s: %v", id, err))
	}
	if !out.Succeeded() {
		return pipeline.SoftFailure(fmt.Sprintf("inspect of %s exited %d", id, out.ExitCode)).WithOutput(out.Combined())
	}
	return pipeline.Success("").WithMessage("%s resolves on %s", id, network)
}

// Stage adapts Verify to the pipeline.
type Stage struct {
	cli *toolchain.Deployer
}

// New builds the verification stage.
func New(cli *toolchain.Deployer) *Stage {
	return &Stage{cli: cli}
}

// Info implements pipeline.Stage.
func (s *Stage) Info() pipeline.Info {
	return pipeline.Info{
		ID:       stageID,
		Name:     "Verify deployment",
		Requires: []pipeline.Field{pipeline.FieldRemoteID, pipeline.FieldTargetNetwork},
		SoftFail: true,
	}
}

// Run implements pipeline.Stage.
func (s *Stage) Run(ctx context.Context, in pipeline.Inputs) pipeline.Result {
	return Verify(ctx, s.cli, in.Value(pipeline.FieldRemoteID), in.Value(pipeline.FieldTargetNetwork))
}
