package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tropicly/labeler/internal/config"
	"github.com/tropicly/labeler/internal/geo"
	"github.com/tropicly/labeler/internal/samplecsv"
	"github.com/tropicly/labeler/pkg/core"
)

var (
	exportOut   string
	exportStore bool
)

var checkCmd = &cobra.Command{
	Use:   "check <file>",
	Short: "Summarize a sample CSV",
	Long:  `Parses a sample file and prints its columns, sample count, bounding box and how many samples are labeled and validated.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runCheck,
}

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Rewrite a sample CSV in the labeler's output format",
	Long: `Parses a sample file and writes it back out the way the labeler exports it:
comma separated, header first, columns in their original order. With --store
the samples are also saved to the configured storage backend.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "-", "Output file, - for stdout")
	exportCmd.Flags().BoolVar(&exportStore, "store", false, "Also save the samples to the configured storage backend")
}

// Summary describes a parsed sample file.
type Summary struct {
	File      string
	Columns   []string
	Samples   int
	Labeled   int
	Validated int
	Bounds    geo.BBox
	Invalid   int
}

// Summarize counts the samples of set.
func Summarize(file string, set core.SampleSet) Summary {
	s := Summary{
		File:    file,
		Columns: set.Columns,
		Samples: set.Len(),
		Bounds:  geo.Bounds(set.Samples),
	}
	for _, smp := range set.Samples {
		if smp.Label != "" {
			s.Labeled++
		}
		if smp.Validation != "" {
			s.Validated++
		}
		if geo.Validate(geo.CoordinateOf(smp)) != nil {
			s.Invalid++
		}
	}
	return s
}

func (s Summary) write(w io.Writer) {
	fmt.Fprintf(w, "file:       %s\n", s.File)
	fmt.Fprintf(w, "columns:    %s\n", strings.Join(s.Columns, ","))
	fmt.Fprintf(w, "samples:    %d\n", s.Samples)
	fmt.Fprintf(w, "labeled:    %d\n", s.Labeled)
	fmt.Fprintf(w, "validated:  %d\n", s.Validated)
	if s.Invalid > 0 {
		fmt.Fprintf(w, "invalid:    %d (outside lat/lng range)\n", s.Invalid)
	}
	if s.Bounds.Empty {
		fmt.Fprintln(w, "bounds:     none")
		return
	}
	c := s.Bounds.Center()
	fmt.Fprintf(w, "bounds:     lat %g..%g, lng %g..%g\n", s.Bounds.MinLat, s.Bounds.MaxLat, s.Bounds.MinLng, s.Bounds.MaxLng)
	fmt.Fprintf(w, "center:     %g,%g\n", c.Lat, c.Lng)
	fmt.Fprintf(w, "center wkt: %s\n", geo.Point4326(c).AsText())
}

func readSamples(path string) (core.SampleSet, error) {
	opts, err := csvOptions()
	if err != nil {
		return core.SampleSet{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		return core.SampleSet{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	opts.Logger = Logger.With("file", path)
	set, err := samplecsv.Decode(f, opts)
	if err != nil {
		return core.SampleSet{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return set, nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	set, err := readSamples(args[0])
	if err != nil {
		return err
	}
	Summarize(filepath.Base(args[0]), set).write(cmd.OutOrStdout())
	return nil
}

func runExport(cmd *cobra.Command, args []string) (err error) {
	set, err := readSamples(args[0])
	if err != nil {
		return err
	}

	if exportOut == "-" || exportOut == "" {
		if err := samplecsv.Encode(cmd.OutOrStdout(), set); err != nil {
			return err
		}
	} else {
		data, err := samplecsv.Marshal(set)
		if err != nil {
			return err
		}
		if err := os.WriteFile(exportOut, data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", exportOut, err)
		}
		Logger.Info("Exported samples", "from", args[0], "to", exportOut, "samples", set.Len())
	}

	if !exportStore {
		return nil
	}
	backend, err := initStorage(config.GetStorageConfig())
	if err != nil {
		return err
	}
	if backend == nil {
		return fmt.Errorf("--store needs a storage backend, storage.type is none")
	}
	defer func() {
		if cerr := backend.Close(); err == nil {
			err = cerr
		}
	}()

	return backend.Save(core.Snapshot{
		FileName: filepath.Base(args[0]),
		Cursor:   -1,
		Set:      set,
		SavedAt:  time.Now(),
	})
}
