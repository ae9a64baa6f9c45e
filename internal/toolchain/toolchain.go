// Package toolchain holds the argument contracts for the external build
// toolchain and deploy CLI. Callers interpret the returned outcomes.
package toolchain

import (
	"bufio"
	"context"
	"path/filepath"
	"strings"

	"github.com/kingrea/lattice-deploy/internal/process"
)

const (
	DefaultDeployProgram = "stellar"
	DefaultBuildProgram  = "cargo"
	DefaultTarget        = "wasm32-unknown-unknown"
	DefaultProfile       = "release"
)

// Deployer wraps the deploy/network CLI.
type Deployer struct {
	runner  process.Runner
	program string
}

// NewDeployer builds a Deployer for program (DefaultDeployProgram when empty).
func NewDeployer(runner process.Runner, program string) *Deployer {
	if strings.TrimSpace(program) == "" {
		program = DefaultDeployProgram
	}
	return &Deployer{runner: runner, program: program}
}

// Program returns the executable name.
func (d *Deployer) Program() string {
	return d.program
}

func (d *Deployer) run(ctx context.Context, args ...string) (process.Outcome, error) {
	return d.runner.Run(ctx, process.Command{Name: d.program, Args: args})
}

// NetworkList lists configured network names.
func (d *Deployer) NetworkList(ctx context.Context) (process.Outcome, error) {
	return d.run(ctx, "network", "ls")
}

// NetworkAdd registers a network configuration.
func (d *Deployer) NetworkAdd(ctx context.Context, name, rpcURL, passphrase string) (process.Outcome, error) {
	return d.run(ctx, "network", "add", name, "--rpc-url", rpcURL, "--network-passphrase", passphrase)
}

// KeysList lists signing identity names.
func (d *Deployer) KeysList(ctx context.Context) (process.Outcome, error) {
	return d.run(ctx, "keys", "ls")
}

// KeysGenerate creates a new keypair stored under name.
func (d *Deployer) KeysGenerate(ctx context.Context, name, network string) (process.Outcome, error) {
	return d.run(ctx, "keys", "generate", name, "--network", network)
}

// KeysAddress prints the public address for name.
func (d *Deployer) KeysAddress(ctx context.Context, name string) (process.Outcome, error) {
	return d.run(ctx, "keys", "address", name)
}

// ContractOptimize writes a size-optimized copy of in to out.
func (d *Deployer) ContractOptimize(ctx context.Context, in, out string) (process.Outcome, error) {
	return d.run(ctx, "contract", "optimize", "--wasm", in, "--wasm-out", out)
}

// ContractDeploy uploads and instantiates wasm; stdout carries the contract id.
func (d *Deployer) ContractDeploy(ctx context.Context, wasm, source, network string) (process.Outcome, error) {
	return d.run(ctx, "contract", "deploy", "--wasm", wasm, "--source", source, "--network", network)
}

// ContractInspect performs a read-only lookup of a deployed contract.
func (d *Deployer) ContractInspect(ctx context.Context, id, network string) (process.Outcome, error) {
	return d.run(ctx, "contract", "info", "interface", "--id", id, "--network", network)
}

// Builder wraps the build toolchain.
type Builder struct {
	runner   process.Runner
	program  string
	target   string
	profile  string
	artifact string
}

// BuilderOption customizes a Builder.
type BuilderOption func(*Builder)

// WithProgram overrides the build executable.
func WithProgram(program string) BuilderOption {
	return func(b *Builder) {
		if p := strings.TrimSpace(program); p != "" {
			b.program = p
		}
	}
}

// WithTarget overrides the compilation target triple.
func WithTarget(target string) BuilderOption {
	return func(b *Builder) {
		if t := strings.TrimSpace(target); t != "" {
			b.target = t
		}
	}
}

// WithProfile overrides the build profile directory.
func WithProfile(profile string) BuilderOption {
	return func(b *Builder) {
		if p := strings.TrimSpace(profile); p != "" {
			b.profile = p
		}
	}
}

// NewBuilder builds a Builder producing <artifact>.wasm.
func NewBuilder(runner process.Runner, artifact string, opts ...BuilderOption) *Builder {
	b := &Builder{
		runner:   runner,
		program:  DefaultBuildProgram,
		target:   DefaultTarget,
		profile:  DefaultProfile,
		artifact: strings.TrimSpace(artifact),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// Program returns the build executable name.
func (b *Builder) Program() string {
	return b.program
}

// Build compiles the project rooted at projectDir.
func (b *Builder) Build(ctx context.Context, projectDir string) (process.Outcome, error) {
	args := []string{"build", "--target", b.target}
	if b.profile == DefaultProfile {
		args = append(args, "--release")
	} else {
		args = append(args, "--profile", b.profile)
	}
	return b.runner.Run(ctx, process.Command{Name: b.program, Args: args, Dir: projectDir})
}

// ArtifactPath is where Build is expected to leave the compiled module.
func (b *Builder) ArtifactPath(projectDir string) string {
	name := strings.ReplaceAll(b.artifact, "-", "_") + ".wasm"
	return filepath.Join(projectDir, "target", b.target, b.profile, name)
}

// ParseNames splits list output into trimmed, non-empty names.
func ParseNames(output string) []string {
	var names []string
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		names = append(names, line)
	}
	return names
}

// Contains reports whether name appears in list output.
func Contains(output, name string) bool {
	for _, candidate := range ParseNames(output) {
		if candidate == name {
			return true
		}
	}
	return false
}

// FirstLine returns the first non-empty trimmed line of output.
func FirstLine(output string) string {
	names := ParseNames(output)
	if len(names) == 0 {
		return ""
	}
	return names[0]
}
