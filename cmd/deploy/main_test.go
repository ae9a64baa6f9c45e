package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/kingrea/lattice-deploy/internal/config"
	"github.com/kingrea/lattice-deploy/internal/confirm"
	"github.com/kingrea/lattice-deploy/internal/logging"
	"github.com/kingrea/lattice-deploy/internal/process"
	"github.com/kingrea/lattice-deploy/internal/process/processtest"
)

const artifactRel = "contracts/hello_world/target/wasm32-unknown-unknown/release/hello_world.wasm"

// stellarFake scripts a healthy toolchain: the network and identity already
// exist and the build writes a real artifact into root.
func stellarFake(t *testing.T, root string) *processtest.Fake {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "contracts", "hello_world"), 0o755))
	return processtest.New().
		Respond("cargo --version", processtest.OK("cargo 1.80.0\n")).
		Respond("stellar --version", processtest.OK("stellar 22.0.1\n")).
		Respond("stellar network ls", processtest.OK("local\ntestnet\n")).
		Respond("stellar keys ls", processtest.OK("deployer\n")).
		Respond("stellar keys address deployer", processtest.OK("GDEPLOYER\n")).
		On("cargo build", func(cmd process.Command) (process.Outcome, error) {
			path := filepath.Join(root, artifactRel)
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return process.Outcome{}, err
			}
			return processtest.OK(""), os.WriteFile(path, bytes.Repeat([]byte{0}, 64), 0o644)
		}).
		On("stellar contract optimize", func(cmd process.Command) (process.Outcome, error) {
			out := cmd.Args[len(cmd.Args)-1]
			return processtest.OK(""), os.WriteFile(out, bytes.Repeat([]byte{0}, 32), 0o644)
		}).
		Respond("stellar contract deploy", processtest.OK("CONTRACT123\n")).
		Respond("stellar contract info interface", processtest.OK("pub fn hello()\n"))
}

func testEnv(root string, runner process.Runner, out *bytes.Buffer) environment {
	return environment{
		rootDir: root,
		getenv: func(key string) string {
			if key == "NO_COLOR" {
				return "1"
			}
			return ""
		},
		stdin:     strings.NewReader(""),
		stdout:    out,
		runner:    runner,
		confirmer: confirm.NewAuto(out),
	}
}

func TestRunRecordsRemoteID(t *testing.T) {
	root := t.TempDir()
	var out bytes.Buffer
	fake := stellarFake(t, root)

	require.NoError(t, run(context.Background(), testEnv(root, fake, &out)))

	data, err := os.ReadFile(filepath.Join(root, ".contract-id"))
	require.NoError(t, err)
	assert.Equal(t, "CONTRACT123\n", string(data))
	assert.Contains(t, out.String(), "CONTRACT123")
	assert.Contains(t, out.String(), "stellar.expert/explorer/testnet/contract/CONTRACT123")
	assert.Equal(t, 0, fake.Count("stellar keys generate"))
	assert.Equal(t, 0, fake.Count("stellar network add"))

	deploy := fake.Calls[indexOf(t, fake, "stellar contract deploy")]
	assert.Contains(t, deploy.Args, filepath.Join(root, strings.TrimSuffix(artifactRel, ".wasm")+"_optimized.wasm"))
}

func TestRunMissingProjectDirLeavesNoRecord(t *testing.T) {
	root := t.TempDir()
	var out bytes.Buffer
	fake := stellarFake(t, root)
	fake.Respond("cargo build", processtest.OK(""))
	require.NoError(t, os.WriteFile(filepath.Join(root, config.FileName),
		[]byte("project:\n  dir: contracts/missing\n  artifact: hello_world\n"), 0o644))

	err := run(context.Background(), testEnv(root, fake, &out))
	require.Error(t, err)
	assert.True(t, reported(err))
	assert.Contains(t, out.String(), "contracts/missing")
	assert.NoFileExists(t, filepath.Join(root, ".contract-id"))
	assert.Equal(t, 0, fake.Count("stellar contract deploy"))
}

func TestRunPublishesOriginalWhenOptimizerProducesNothing(t *testing.T) {
	root := t.TempDir()
	var out bytes.Buffer
	fake := stellarFake(t, root)
	fake.Respond("stellar contract optimize", processtest.OK(""))

	require.NoError(t, run(context.Background(), testEnv(root, fake, &out)))

	deploy := fake.Calls[indexOf(t, fake, "stellar contract deploy")]
	assert.Contains(t, deploy.Args, filepath.Join(root, artifactRel))
	assert.Contains(t, out.String(), "using unoptimized artifact")
}

func TestRunConfigErrorIsNotReported(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, config.FileName), []byte("version: 9\n"), 0o644))
	var out bytes.Buffer

	err := run(context.Background(), testEnv(root, processtest.New(), &out))
	require.Error(t, err)
	assert.False(t, reported(err))
}

func TestAssembleSkipsDisabledOptimizer(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, config.FileName),
		[]byte("optimize:\n  enabled: false\n"), 0o644))
	cfg, err := config.Load(root, func(string) string { return "" })
	require.NoError(t, err)

	var out bytes.Buffer
	stages := assemble(cfg, testEnv(root, processtest.New(), &out), nil)
	ids := make([]string, 0, len(stages))
	for _, s := range stages {
		ids = append(ids, s.Info().ID)
	}
	assert.Equal(t, []string{"preflight", "network", "identity", "build", "publish", "persist", "verify", "summary"}, ids)
}

func TestChooseConfirmer(t *testing.T) {
	cfg := &config.Config{}
	env := environment{stdin: strings.NewReader(""), stdout: &bytes.Buffer{}}

	assert.IsType(t, &confirm.Line{}, chooseConfirmer(cfg, env))
	env.interactive = true
	assert.IsType(t, &confirm.Prompt{}, chooseConfirmer(cfg, env))
	cfg.File.Identity.Prefunded = true
	assert.IsType(t, &confirm.Auto{}, chooseConfirmer(cfg, env))
}

func TestRootCommandRejectsArguments(t *testing.T) {
	rootCmd.SetArgs([]string{"extra"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command")
}

func TestExecRunnerMirrorsOutputIntoLog(t *testing.T) {
	dir := t.TempDir()
	logger, err := logging.New(dir, zapcore.InfoLevel)
	require.NoError(t, err)

	runner, flush := newExecRunner(logger.Logger)
	out, err := runner.Run(context.Background(), process.Command{Name: "sh", Args: []string{"-c", "echo compiling hello_world; echo warning: unused >&2"}})
	require.NoError(t, err)
	require.Equal(t, 0, out.ExitCode)
	assert.Equal(t, "compiling hello_world\n", out.Stdout)
	flush()
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(filepath.Join(dir, logging.FileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), "compiling hello_world")
	assert.Contains(t, string(data), "warning: unused")
	assert.Contains(t, string(data), `"source":"process"`)
}

func indexOf(t *testing.T, fake *processtest.Fake, prefix string) int {
	t.Helper()
	for i, cmd := range fake.Calls {
		if strings.HasPrefix(cmd.String(), prefix) {
			return i
		}
	}
	t.Fatalf("no call starting with %q in %v", prefix, fake.Calls)
	return -1
}
