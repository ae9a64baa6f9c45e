// internal/config/config.go
//
// This package loads deploy.yaml and owns the .deploy directory layout.
// A missing config file is not an error: every setting has a default that
// targets the public test network.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// StateDir is the directory we keep logs and history in.
	StateDir = ".deploy"

	// FileName is the config file looked up in the project root.
	FileName = "deploy.yaml"

	// EnvConfigPath overrides the config file location.
	EnvConfigPath = "DEPLOY_CONFIG"
)

// ProjectConfig describes the contract sources and build output.
type ProjectConfig struct {
	Dir      string `yaml:"dir"`
	Artifact string `yaml:"artifact"`
	Target   string `yaml:"target,omitempty"`
	Profile  string `yaml:"profile,omitempty"`
}

// NetworkConfig describes the target network.
type NetworkConfig struct {
	Name       string `yaml:"name"`
	RPCURL     string `yaml:"rpc_url"`
	Passphrase string `yaml:"passphrase"`
	// ExplorerURL is a template with {network} and {id} placeholders.
	ExplorerURL string `yaml:"explorer_url,omitempty"`
	// FundingHint is shown while waiting for a new identity to be funded.
	FundingHint string `yaml:"funding_hint,omitempty"`
}

// IdentityConfig names the signing identity.
type IdentityConfig struct {
	Name string `yaml:"name"`
	// Prefunded skips the interactive funding wait for new identities.
	Prefunded bool `yaml:"prefunded,omitempty"`
}

// OptimizeConfig toggles the size optimization stage.
type OptimizeConfig struct {
	Enabled *bool `yaml:"enabled,omitempty"`
}

// RecordConfig locates the persisted remote identifier.
type RecordConfig struct {
	Path string `yaml:"path"`
}

// ToolsConfig names the external executables.
type ToolsConfig struct {
	Build  string `yaml:"build"`
	Deploy string `yaml:"deploy"`
}

// PreflightTool declares one tool that must be installed.
type PreflightTool struct {
	Name        string   `yaml:"name"`
	VersionArgs []string `yaml:"version_args,omitempty"`
	InstallHint string   `yaml:"install_hint,omitempty"`
}

// File models deploy.yaml.
type File struct {
	Version   int             `yaml:"version"`
	Project   ProjectConfig   `yaml:"project"`
	Network   NetworkConfig   `yaml:"network"`
	Identity  IdentityConfig  `yaml:"identity"`
	Optimize  OptimizeConfig  `yaml:"optimize"`
	Record    RecordConfig    `yaml:"record"`
	Tools     ToolsConfig     `yaml:"tools"`
	Preflight []PreflightTool `yaml:"preflight,omitempty"`
}

// Config holds the runtime configuration for a deploy run.
type Config struct {
	// RootDir is the directory the CLI was started from.
	RootDir string
	// Path is the config file that was read, empty when defaults were used.
	Path string
	File File
}

// Load reads the config for rootDir. getenv is injected so tests do not
// depend on the process environment; nil means os.Getenv.
func Load(rootDir string, getenv func(string) string) (*Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("config: resolve root: %w", err)
	}
	path := filepath.Join(absRoot, FileName)
	explicit := false
	if override := strings.TrimSpace(getenv(EnvConfigPath)); override != "" {
		path = resolvePath(absRoot, override)
		explicit = true
	}
	cfg := &Config{RootDir: absRoot, File: defaultFile()}
	if err := cfg.load(path, explicit); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) load(path string, explicit bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			c.File.normalize(c.RootDir)
			return c.File.validate()
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	var parsed File
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	parsed.applyDefaults()
	parsed.normalize(c.RootDir)
	if err := parsed.validate(); err != nil {
		return fmt.Errorf("config: %s: %w", path, err)
	}
	c.File = parsed
	c.Path = path
	return nil
}

// ProjectDir returns the absolute contract project directory.
func (c *Config) ProjectDir() string {
	return c.File.Project.Dir
}

// RecordPath returns the absolute path of the persisted identifier.
func (c *Config) RecordPath() string {
	return c.File.Record.Path
}

// StatePath returns RootDir/.deploy.
func (c *Config) StatePath() string {
	return filepath.Join(c.RootDir, StateDir)
}

// LogsDir returns the directory structured logs are written to.
func (c *Config) LogsDir() string {
	return filepath.Join(c.StatePath(), "logs")
}

// HistoryPath returns the deployment history logbook.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.StatePath(), "history.log")
}

// OptimizeEnabled reports whether the optimization stage runs.
func (c *Config) OptimizeEnabled() bool {
	if c.File.Optimize.Enabled == nil {
		return true
	}
	return *c.File.Optimize.Enabled
}

func defaultFile() File {
	return File{
		Version: 1,
		Project: ProjectConfig{
			Dir:      "contracts/hello_world",
			Artifact: "hello_world",
			Target:   "wasm32-unknown-unknown",
			Profile:  "release",
		},
		Network: NetworkConfig{
			Name:        "testnet",
			RPCURL:      "https://soroban-testnet.stellar.org",
			Passphrase:  "Test SDF Network ; September 2015",
			ExplorerURL: "https://stellar.expert/explorer/{network}/contract/{id}",
			FundingHint: "Fund it with https://friendbot.stellar.org/?addr=<address> or the Stellar Laboratory.",
		},
		Identity: IdentityConfig{Name: "deployer"},
		Record:   RecordConfig{Path: ".contract-id"},
		Tools:    ToolsConfig{Build: "cargo", Deploy: "stellar"},
	}
}

func defaultPreflight(tools ToolsConfig) []PreflightTool {
	return []PreflightTool{
		{Name: tools.Build, VersionArgs: []string{"--version"}, InstallHint: "install Rust from https://rustup.rs and run `rustup target add wasm32-unknown-unknown`"},
		{Name: tools.Deploy, VersionArgs: []string{"--version"}, InstallHint: "install the Stellar CLI with `cargo install --locked stellar-cli`"},
	}
}

func (f *File) applyDefaults() {
	d := defaultFile()
	if f.Version == 0 {
		f.Version = d.Version
	}
	fill(&f.Project.Dir, d.Project.Dir)
	fill(&f.Project.Artifact, d.Project.Artifact)
	fill(&f.Project.Target, d.Project.Target)
	fill(&f.Project.Profile, d.Project.Profile)
	if strings.TrimSpace(f.Network.Name) == "" {
		// Endpoint defaults only make sense for the default network.
		f.Network.Name = d.Network.Name
		fill(&f.Network.RPCURL, d.Network.RPCURL)
		fill(&f.Network.Passphrase, d.Network.Passphrase)
		fill(&f.Network.FundingHint, d.Network.FundingHint)
	}
	fill(&f.Network.ExplorerURL, d.Network.ExplorerURL)
	fill(&f.Identity.Name, d.Identity.Name)
	fill(&f.Record.Path, d.Record.Path)
	fill(&f.Tools.Build, d.Tools.Build)
	fill(&f.Tools.Deploy, d.Tools.Deploy)
}

func fill(field *string, fallback string) {
	if strings.TrimSpace(*field) == "" {
		*field = fallback
	}
}

func (f *File) normalize(base string) {
	f.Project.Dir = resolvePath(base, f.Project.Dir)
	f.Project.Artifact = strings.TrimSpace(f.Project.Artifact)
	f.Project.Target = strings.TrimSpace(f.Project.Target)
	f.Project.Profile = strings.TrimSpace(f.Project.Profile)
	f.Network.Name = strings.TrimSpace(f.Network.Name)
	f.Network.RPCURL = strings.TrimSpace(f.Network.RPCURL)
	f.Network.Passphrase = strings.TrimSpace(f.Network.Passphrase)
	f.Network.ExplorerURL = strings.TrimSpace(f.Network.ExplorerURL)
	f.Identity.Name = strings.TrimSpace(f.Identity.Name)
	f.Record.Path = resolvePath(base, f.Record.Path)
	f.Tools.Build = strings.TrimSpace(f.Tools.Build)
	f.Tools.Deploy = strings.TrimSpace(f.Tools.Deploy)
	if len(f.Preflight) == 0 {
		f.Preflight = defaultPreflight(f.Tools)
	}
	for i := range f.Preflight {
		f.Preflight[i].Name = strings.TrimSpace(f.Preflight[i].Name)
		if len(f.Preflight[i].VersionArgs) == 0 {
			f.Preflight[i].VersionArgs = []string{"--version"}
		}
	}
}

func (f *File) validate() error {
	if f.Version != 1 {
		return fmt.Errorf("unsupported config version %d", f.Version)
	}
	if f.Project.Dir == "" {
		return fmt.Errorf("project.dir is required")
	}
	if f.Project.Artifact == "" {
		return fmt.Errorf("project.artifact is required")
	}
	if f.Network.Name == "" {
		return fmt.Errorf("network.name is required")
	}
	if f.Network.RPCURL == "" {
		return fmt.Errorf("network.rpc_url is required")
	}
	if f.Network.Passphrase == "" {
		return fmt.Errorf("network.passphrase is required")
	}
	if f.Identity.Name == "" {
		return fmt.Errorf("identity.name is required")
	}
	seen := map[string]bool{}
	for i, tool := range f.Preflight {
		if tool.Name == "" {
			return fmt.Errorf("preflight[%d]: name is required", i)
		}
		if seen[tool.Name] {
			return fmt.Errorf("preflight[%d]: duplicate tool %s", i, tool.Name)
		}
		seen[tool.Name] = true
	}
	return nil
}

func resolvePath(base, candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return ""
	}
	if filepath.IsAbs(trimmed) {
		return filepath.Clean(trimmed)
	}
	return filepath.Clean(filepath.Join(base, trimmed))
}
