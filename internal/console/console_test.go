package console

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kingrea/lattice-deploy/internal/pipeline"
)

func TestReporterLifecycleLines(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, Plain())
	info := pipeline.Info{ID: "build", Name: "Build contract"}

	r.StageStarted(info)
	r.StageSucceeded(info, "target/a.wasm")
	r.StageWarned(pipeline.Info{ID: "optimize"}, "optimized artifact missing")

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Equal(t, []string{
		"→ Build contract...",
		"✓ Build contract target/a.wasm",
		"! optimize: optimized artifact missing",
	}, lines)
}

func TestReporterEchoesFailureOutput(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, Plain())
	r.StageFailed(pipeline.Info{ID: "publish", Name: "Deploy contract"}, errors.New("deploy exited 1"), "error: insufficient balance\n")
	out := buf.String()
	assert.Contains(t, out, "✗ Deploy contract: deploy exited 1")
	assert.Contains(t, out, "    error: insufficient balance")
}

func TestReporterSkipsBlankOutput(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, Plain())
	r.StageFailed(pipeline.Info{ID: "persist"}, nil, "  \n")
	assert.Equal(t, "✗ persist: failed\n", buf.String())
}
