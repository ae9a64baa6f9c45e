// Package publish deploys the artifact and captures the remote identifier.
package publish

import (
	"context"
	"fmt"
	"strings"

	"github.com/kingrea/lattice-deploy/internal/pipeline"
	"github.com/kingrea/lattice-deploy/internal/toolchain"
)

const stageID = "publish"

// Publish runs the deploy command. The exit status and the identifier come
// from the same invocation; on a zero exit the trimmed stdout is taken as the
// identifier verbatim. Every call creates a new remote instance.
func Publish(ctx context.Context, cli *toolchain.Deployer, artifactPath, identity, network string) pipeline.Result {
	out, err := cli.ContractDeploy(ctx, artifactPath, identity, network)
	if err != nil {
		return pipeline.HardFailure(fmt.Errorf("%s: run %s: %w", stageID, cli.Program(), err)).WithOutput(out.Combined())
	}
	if !out.Succeeded() {
		return pipeline.HardFailuref("%s: deploy exited %d", stageID, out.ExitCode).WithOutput(out.Combined())
	}
	id := strings.TrimSpace(out.Stdout)
	if id == "" {
		return pipeline.HardFailuref("%s: deploy exited 0 but printed no identifier", stageID).WithOutput(out.Combined())
	}
	return pipeline.Success(id).WithMessage("%s", id)
}

// Stage adapts Publish to the pipeline.
type Stage struct {
	cli      *toolchain.Deployer
	identity string
}

// New builds the publication stage signing with identity.
func New(cli *toolchain.Deployer, identity string) *Stage {
	return &Stage{cli: cli, identity: identity}
}

// Info implements pipeline.Stage.
func (s *Stage) Info() pipeline.Info {
	return pipeline.Info{
		ID:       stageID,
		Name:     "Deploy contract",
		Produces: pipeline.FieldRemoteID,
		Requires: []pipeline.Field{
			pipeline.FieldTargetNetwork,
			pipeline.FieldSigningAddress,
			pipeline.FieldArtifactPath,
		},
	}
}

// Run implements pipeline.Stage.
func (s *Stage) Run(ctx context.Context, in pipeline.Inputs) pipeline.Result {
	return Publish(ctx, s.cli, in.Value(pipeline.FieldArtifactPath), s.identity, in.Value(pipeline.FieldTargetNetwork))
}
