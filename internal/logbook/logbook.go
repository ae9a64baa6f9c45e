// Package logbook keeps an append-only history of deployments. The record
// file only holds the latest identifier; earlier deploys stay listed here.
package logbook

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Entry is one deployment.
type Entry struct {
	Time     time.Time
	Network  string
	RemoteID string
	Artifact string
}

func (e Entry) line() string {
	return fmt.Sprintf("%s %s %s %s\n",
		e.Time.UTC().Format(time.RFC3339),
		field(e.Network),
		field(e.RemoteID),
		field(e.Artifact),
	)
}

func field(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "-"
	}
	return strings.Join(strings.Fields(value), "_")
}

func parseEntry(line string) (Entry, bool) {
	parts := strings.Fields(line)
	if len(parts) != 4 {
		return Entry{}, false
	}
	ts, err := time.Parse(time.RFC3339, parts[0])
	if err != nil {
		return Entry{}, false
	}
	return Entry{Time: ts, Network: parts[1], RemoteID: parts[2], Artifact: parts[3]}, true
}

// Logbook persists deployments to a plain text file.
type Logbook struct {
	path  string
	clock func() time.Time
	mu    sync.Mutex
}

// New creates a logbook that writes to the provided path.
func New(path string) (*Logbook, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("logbook: ensure dir: %w", err)
	}
	return &Logbook{path: path, clock: time.Now}, nil
}

// WithClock overrides the timestamp source (tests).
func (l *Logbook) WithClock(clock func() time.Time) *Logbook {
	if l != nil && clock != nil {
		l.clock = clock
	}
	return l
}

// Append records a deployment. A zero Time is stamped with the clock.
func (l *Logbook) Append(e Entry) error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if e.Time.IsZero() {
		e.Time = l.clock()
	}
	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("logbook: open: %w", err)
	}
	defer file.Close()
	if _, err := file.WriteString(e.line()); err != nil {
		return fmt.Errorf("logbook: write: %w", err)
	}
	return nil
}

// Entries returns every parseable entry, oldest first. A missing file is an
// empty history.
func (l *Logbook) Entries() ([]Entry, error) {
	if l == nil {
		return nil, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	file, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("logbook: open: %w", err)
	}
	defer file.Close()

	var entries []Entry
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if e, ok := parseEntry(scanner.Text()); ok {
			entries = append(entries, e)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("logbook: read: %w", err)
	}
	return entries, nil
}

// Count returns how many deployments were recorded for network.
func (l *Logbook) Count(network string) (int, error) {
	entries, err := l.Entries()
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range entries {
		if e.Network == network {
			n++
		}
	}
	return n, nil
}
