// Package preflight verifies that required external tools are installed.
package preflight

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kingrea/lattice-deploy/internal/pipeline"
	"github.com/kingrea/lattice-deploy/internal/process"
	"github.com/kingrea/lattice-deploy/internal/toolchain"
)

const stageID = "preflight"

// Tool is one required executable.
type Tool struct {
	Name        string
	VersionArgs []string
	InstallHint string
}

// Check probes each tool in order and fails on the first one that is
// missing or whose version probe fails. Tool absence is not transient, so
// nothing is retried.
func Check(ctx context.Context, runner process.Runner, tools []Tool) pipeline.Result {
	versions := make([]string, 0, len(tools))
	for _, tool := range tools {
		if _, err := runner.LookPath(tool.Name); err != nil {
			return pipeline.HardFailure(missing(tool, err))
		}
		args := tool.VersionArgs
		if len(args) == 0 {
			args = []string{"--version"}
		}
		out, err := runner.Run(ctx, process.Command{Name: tool.Name, Args: args})
		if err != nil {
			return pipeline.HardFailure(missing(tool, err))
		}
		if !out.Succeeded() {
			return pipeline.HardFailuref("%s: `%s %s` exited %d; %s", stageID, tool.Name, strings.Join(args, " "), out.ExitCode, remedy(tool)).
				WithOutput(out.Combined())
		}
		version := toolchain.FirstLine(out.Stdout)
		if version == "" {
			version = toolchain.FirstLine(out.Stderr)
		}
		if version == "" {
			version = tool.Name
		}
		versions = append(versions, version)
	}
	return pipeline.Success("").WithMessage("%s", strings.Join(versions, ", "))
}

func missing(tool Tool, err error) error {
	if errors.Is(err, process.ErrNotFound) {
		return fmt.Errorf("%s: %s is not installed; %s", stageID, tool.Name, remedy(tool))
	}
	return fmt.Errorf("%s: probe %s: %w", stageID, tool.Name, err)
}

func remedy(tool Tool) string {
	if hint := strings.TrimSpace(tool.InstallHint); hint != "" {
		return hint
	}
	return fmt.Sprintf("install %s and make sure it is on PATH", tool.Name)
}

// Stage adapts Check to the pipeline.
type Stage struct {
	runner process.Runner
	tools  []Tool
}

// New builds the preflight stage.
func New(runner process.Runner, tools []Tool) *Stage {
	return &Stage{runner: runner, tools: append([]Tool{}, tools...)}
}

// Info implements pipeline.Stage.
func (s *Stage) Info() pipeline.Info {
	return pipeline.Info{ID: stageID, Name: "Check required tools"}
}

// Run implements pipeline.Stage.
func (s *Stage) Run(ctx context.Context, _ pipeline.Inputs) pipeline.Result {
	return Check(ctx, s.runner, s.tools)
}
