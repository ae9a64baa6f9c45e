// Package persist writes the remote identifier to its durable record.
package persist

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/kingrea/lattice-deploy/internal/logbook"
	"github.com/kingrea/lattice-deploy/internal/pipeline"
)

const stageID = "persist"

// ErrNoParent reports that the record's directory does not exist.
var ErrNoParent = errors.New("persist: record directory does not exist")

// Persist overwrites path with id and a trailing newline. The parent
// directory is not created.
func Persist(id, path string) pipeline.Result {
	dir := filepath.Dir(path)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		if err == nil || errors.Is(err, fs.ErrNotExist) {
			return pipeline.HardFailure(fmt.Errorf("%w: %s", ErrNoParent, dir))
		}
		return pipeline.HardFailure(fmt.Errorf("%s: stat %s: %w", stageID, dir, err))
	}
	if err := os.WriteFile(path, []byte(id+"\n"), 0o644); err != nil {
		return pipeline.HardFailure(fmt.Errorf("%s: write %s: %w", stageID, path, err))
	}
	return pipeline.Success("").WithMessage("%s", path)
}

// Stage adapts Persist to the pipeline.
type Stage struct {
	path    string
	history *logbook.Logbook
}

// Option customizes the persist stage.
type Option func(*Stage)

// WithHistory also appends each persisted deployment to lb.
func WithHistory(lb *logbook.Logbook) Option {
	return func(s *Stage) {
		s.history = lb
	}
}

// New builds the persist stage writing to path.
func New(path string, opts ...Option) *Stage {
	s := &Stage{path: path}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Info implements pipeline.Stage.
func (s *Stage) Info() pipeline.Info {
	return pipeline.Info{
		ID:       stageID,
		Name:     "Record contract id",
		Requires: []pipeline.Field{pipeline.FieldRemoteID},
	}
}

// Run implements pipeline.Stage. The record is authoritative; a history
// write failure is reported in the message but does not fail the stage.
func (s *Stage) Run(_ context.Context, in pipeline.Inputs) pipeline.Result {
	id := in.Value(pipeline.FieldRemoteID)
	res := Persist(id, s.path)
	if !res.OK() || s.history == nil {
		return res
	}
	entry := logbook.Entry{
		Network:  in.Value(pipeline.FieldTargetNetwork),
		RemoteID: id,
		Artifact: in.Value(pipeline.FieldArtifactPath),
	}
	if err := s.history.Append(entry); err != nil {
		return res.WithMessage("%s (history not updated: %v)", s.path, err)
	}
	return res
}
