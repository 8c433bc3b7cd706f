// Package memory writes each saved session as a CSV file in an output directory.
package memory

import (
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tropicly/labeler/internal/config"
	"github.com/tropicly/labeler/internal/samplecsv"
	"github.com/tropicly/labeler/internal/storage"
	"github.com/tropicly/labeler/pkg/core"
)

// Backend keeps the last saved snapshot per file and mirrors it to disk.
type Backend struct {
	cfg config.MemoryConfig

	sessions map[string]core.Snapshot
	lastPath string
	mu       sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg:      cfg,
		sessions: make(map[string]core.Snapshot),
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	if b.cfg.OutputDir == "" {
		return nil
	}
	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// Save stores the snapshot and writes it as CSV when an output dir is set.
func (b *Backend) Save(snap core.Snapshot) error {
	snap.Set = snap.Set.Clone()

	b.mu.Lock()
	defer b.mu.Unlock()

	b.sessions[snap.FileName] = snap
	if b.cfg.OutputDir == "" {
		return nil
	}

	path := filepath.Join(b.cfg.OutputDir, OutputName(snap.FileName, b.cfg.CompressOutput))
	if err := writeCSV(path, snap.Set, b.cfg.CompressOutput); err != nil {
		return err
	}
	b.lastPath = path
	return nil
}

// Restore returns the last snapshot saved for fileName during this run.
func (b *Backend) Restore(fileName string) (core.Snapshot, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	snap, ok := b.sessions[fileName]
	if !ok {
		return core.Snapshot{}, storage.ErrNotFound
	}
	snap.Set = snap.Set.Clone()
	return snap, nil
}

// Path returns the file written by the last Save.
func (b *Backend) Path() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastPath
}

// OutputName derives the file name written for a loaded file.
func OutputName(fileName string, compress bool) string {
	name := filepath.Base(fileName)
	if name == "." || name == string(filepath.Separator) || name == "" {
		name = "samples"
	}
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = strings.ReplaceAll(name, " ", "_")
	name = strings.ReplaceAll(name, ":", "_")
	if name == "" {
		name = "samples"
	}

	if compress {
		return name + ".csv.gz"
	}
	return name + ".csv"
}

func writeCSV(path string, set core.SampleSet, compress bool) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()

	var w io.Writer = f
	if compress {
		gz := gzip.NewWriter(f)
		defer func() {
			err = errors.Join(err, gz.Close())
		}()
		w = gz
	}

	if err := samplecsv.Encode(w, set); err != nil {
		return fmt.Errorf("failed to write samples: %w", err)
	}
	return nil
}
