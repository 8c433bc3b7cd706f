package memory

import (
	"compress/gzip"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tropicly/labeler/internal/config"
	"github.com/tropicly/labeler/internal/storage"
	"github.com/tropicly/labeler/pkg/core"
)

// Verify Backend implements the storage interfaces
var (
	_ storage.Backend   = (*Backend)(nil)
	_ storage.Restorer  = (*Backend)(nil)
	_ storage.Locatable = (*Backend)(nil)
)

func testSnapshot() core.Snapshot {
	return core.Snapshot{
		FileName: "field samples.csv",
		Cursor:   1,
		Set: core.SampleSet{
			Columns: []string{"x", "y", "label", "validation"},
			Samples: []core.Sample{
				{X: 10, Y: 10, Label: "A"},
				{X: 20, Y: 20, Label: "B", Validation: "ok"},
			},
		},
	}
}

func TestOutputName(t *testing.T) {
	tests := []struct {
		in       string
		compress bool
		want     string
	}{
		{"samples.csv", false, "samples.csv"},
		{"samples.csv", true, "samples.csv.gz"},
		{"dir/field samples.csv", false, "field_samples.csv"},
		{"12:30.txt", false, "12_30.csv"},
		{"", false, "samples.csv"},
		{"noext", false, "noext.csv"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, OutputName(tt.in, tt.compress))
		})
	}
}

func TestInit_CreatesOutputDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	b := New(config.MemoryConfig{OutputDir: dir})

	require.NoError(t, b.Init())
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.NoError(t, b.Close())
}

func TestSave_WritesCSV(t *testing.T) {
	dir := t.TempDir()
	b := New(config.MemoryConfig{OutputDir: dir})
	require.NoError(t, b.Init())

	require.NoError(t, b.Save(testSnapshot()))

	assert.Equal(t, filepath.Join(dir, "field_samples.csv"), b.Path())
	data, err := os.ReadFile(b.Path())
	require.NoError(t, err)
	assert.Equal(t, "x,y,label,validation\n10,10,A,\n20,20,B,ok\n", string(data))
}

func TestSave_Compressed(t *testing.T) {
	dir := t.TempDir()
	b := New(config.MemoryConfig{OutputDir: dir, CompressOutput: true})
	require.NoError(t, b.Init())

	require.NoError(t, b.Save(testSnapshot()))

	f, err := os.Open(filepath.Join(dir, "field_samples.csv.gz"))
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	data, err := io.ReadAll(gz)
	require.NoError(t, err)
	assert.Equal(t, "x,y,label,validation\n10,10,A,\n20,20,B,ok\n", string(data))
}

func TestSave_NoOutputDirKeepsInMemory(t *testing.T) {
	b := New(config.MemoryConfig{})
	require.NoError(t, b.Init())

	require.NoError(t, b.Save(testSnapshot()))
	assert.Empty(t, b.Path())

	snap, err := b.Restore("field samples.csv")
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Cursor)
	assert.Equal(t, "ok", snap.Set.Samples[1].Validation)
}

func TestSave_IsolatedFromCaller(t *testing.T) {
	b := New(config.MemoryConfig{})
	snap := testSnapshot()
	require.NoError(t, b.Save(snap))

	snap.Set.Samples[0].Label = "changed"

	restored, err := b.Restore(snap.FileName)
	require.NoError(t, err)
	assert.Equal(t, "A", restored.Set.Samples[0].Label)
}

func TestRestore_NotFound(t *testing.T) {
	b := New(config.MemoryConfig{})
	_, err := b.Restore("missing.csv")
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestSave_BadOutputDir(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	b := New(config.MemoryConfig{OutputDir: blocker})
	assert.Error(t, b.Save(testSnapshot()))
}
