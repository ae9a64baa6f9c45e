package provision

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kingrea/lattice-deploy/internal/confirm"
	"github.com/kingrea/lattice-deploy/internal/pipeline"
	"github.com/kingrea/lattice-deploy/internal/toolchain"
)

const (
	networkStageID  = "network"
	identityStageID = "identity"
)

// EnsureNetwork adds the network configuration when it is not listed.
// An existing entry with the same name is left untouched even if its
// parameters differ.
func EnsureNetwork(ctx context.Context, cli *toolchain.Deployer, name, rpcURL, passphrase string) pipeline.Result {
	if strings.TrimSpace(name) == "" {
		return pipeline.HardFailuref("%s: network name is required", networkStageID)
	}
	list, err := cli.NetworkList(ctx)
	if err != nil {
		return pipeline.HardFailure(fmt.Errorf("%s: list networks: %w", networkStageID, err))
	}
	if !list.Succeeded() {
		return pipeline.HardFailuref("%s: `%s network ls` exited %d", networkStageID, cli.Program(), list.ExitCode).
			WithOutput(list.Combined())
	}
	if toolchain.Contains(list.Stdout, name) {
		return pipeline.Success(name).WithMessage("%s already configured", name)
	}
	added, err := cli.NetworkAdd(ctx, name, rpcURL, passphrase)
	if err != nil {
		return pipeline.HardFailure(fmt.Errorf("%s: add network %s: %w", networkStageID, name, err))
	}
	if !added.Succeeded() {
		return pipeline.HardFailuref("%s: `%s network add %s` exited %d", networkStageID, cli.Program(), name, added.ExitCode).
			WithOutput(added.Combined())
	}
	return pipeline.Success(name).WithMessage("added %s (%s)", name, rpcURL)
}

// EnsureIdentity returns the address of the named identity, generating it
// and waiting for funding confirmation when it does not exist yet.
func EnsureIdentity(ctx context.Context, cli *toolchain.Deployer, confirmer confirm.Provider, name, network, hint string) pipeline.Result {
	if strings.TrimSpace(name) == "" {
		return pipeline.HardFailuref("%s: identity name is required", identityStageID)
	}
	list, err := cli.KeysList(ctx)
	if err != nil {
		return pipeline.HardFailure(fmt.Errorf("%s: list identities: %w", identityStageID, err))
	}
	if !list.Succeeded() {
		return pipeline.HardFailuref("%s: `%s keys ls` exited %d", identityStageID, cli.Program(), list.ExitCode).
			WithOutput(list.Combined())
	}
	if toolchain.Contains(list.Stdout, name) {
		address, res := resolveAddress(ctx, cli, name)
		if !res.OK() {
			return res
		}
		return pipeline.Success(address).WithMessage("reusing %s (%s)", name, address)
	}

	generated, err := cli.KeysGenerate(ctx, name, network)
	if err != nil {
		return pipeline.HardFailure(fmt.Errorf("%s: generate %s: %w", identityStageID, name, err))
	}
	if !generated.Succeeded() {
		return pipeline.HardFailuref("%s: `%s keys generate %s` exited %d", identityStageID, cli.Program(), name, generated.ExitCode).
			WithOutput(generated.Combined())
	}
	address, res := resolveAddress(ctx, cli, name)
	if !res.OK() {
		return res
	}
	if confirmer == nil {
		return pipeline.HardFailuref("%s: no confirmation provider for new identity %s", identityStageID, name)
	}
	req := confirm.Request{
		Identity: name,
		Address:  address,
		Network:  network,
		Hint:     strings.ReplaceAll(hint, "<address>", address),
	}
	if err := confirmer.Confirm(ctx, req); err != nil {
		if errors.Is(err, confirm.ErrAborted) {
			return pipeline.HardFailuref("%s: funding of %s not confirmed; the identity is kept and will be reused on the next run", identityStageID, address)
		}
		return pipeline.HardFailure(fmt.Errorf("%s: confirm funding: %w", identityStageID, err))
	}
	return pipeline.Success(address).WithMessage("generated %s (%s)", name, address)
}

func resolveAddress(ctx context.Context, cli *toolchain.Deployer, name string) (string, pipeline.Result) {
	out, err := cli.KeysAddress(ctx, name)
	if err != nil {
		return "", pipeline.HardFailure(fmt.Errorf("%s: address of %s: %w", identityStageID, name, err))
	}
	if !out.Succeeded() {
		return "", pipeline.HardFailuref("%s: `%s keys address %s` exited %d", identityStageID, cli.Program(), name, out.ExitCode).
			WithOutput(out.Combined())
	}
	address := strings.TrimSpace(out.Stdout)
	if address == "" {
		return "", pipeline.HardFailuref("%s: %s keys address %s printed nothing", identityStageID, cli.Program(), name)
	}
	return address, pipeline.Success(address)
}

// NetworkStage adapts EnsureNetwork; the network name comes from the run
// context.
type NetworkStage struct {
	cli        *toolchain.Deployer
	rpcURL     string
	passphrase string
}

// NewNetworkStage builds the network provisioning stage.
func NewNetworkStage(cli *toolchain.Deployer, rpcURL, passphrase string) *NetworkStage {
	return &NetworkStage{cli: cli, rpcURL: rpcURL, passphrase: passphrase}
}

// Info implements pipeline.Stage.
func (s *NetworkStage) Info() pipeline.Info {
	return pipeline.Info{
		ID:       networkStageID,
		Name:     "Ensure network configuration",
		Requires: []pipeline.Field{pipeline.FieldTargetNetwork},
	}
}

// Run implements pipeline.Stage.
func (s *NetworkStage) Run(ctx context.Context, in pipeline.Inputs) pipeline.Result {
	res := EnsureNetwork(ctx, s.cli, in.Value(pipeline.FieldTargetNetwork), s.rpcURL, s.passphrase)
	res.Value = ""
	return res
}

// IdentityStage adapts EnsureIdentity and produces the signing address.
type IdentityStage struct {
	cli       *toolchain.Deployer
	confirmer confirm.Provider
	name      string
	hint      string
}

// IdentityOption customizes the identity stage.
type IdentityOption func(*IdentityStage)

// WithFundingHint sets the instruction shown while waiting; "<address>" is
// replaced with the generated address.
func WithFundingHint(hint string) IdentityOption {
	return func(s *IdentityStage) {
		s.hint = hint
	}
}

// NewIdentityStage builds the identity provisioning stage.
func NewIdentityStage(cli *toolchain.Deployer, confirmer confirm.Provider, name string, opts ...IdentityOption) *IdentityStage {
	s := &IdentityStage{cli: cli, confirmer: confirmer, name: name}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Info implements pipeline.Stage.
func (s *IdentityStage) Info() pipeline.Info {
	return pipeline.Info{
		ID:       identityStageID,
		Name:     "Ensure signing identity",
		Produces: pipeline.FieldSigningAddress,
		Requires: []pipeline.Field{pipeline.FieldTargetNetwork},
	}
}

// Run implements pipeline.Stage.
func (s *IdentityStage) Run(ctx context.Context, in pipeline.Inputs) pipeline.Result {
	return EnsureIdentity(ctx, s.cli, s.confirmer, s.name, in.Value(pipeline.FieldTargetNetwork), s.hint)
}
