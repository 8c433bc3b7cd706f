// Package samplecsv converts between delimited text and core.SampleSet.
//
// The header row decides the record shape. x and y are parsed as numbers,
// label and validation map onto their fields and every other column is kept
// verbatim in Sample.Extra so it survives a round trip.
package samplecsv

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/tropicly/labeler/pkg/core"
)

var (
	// ErrEmptyFile is returned when the input has no header row.
	ErrEmptyFile = errors.New("csv input has no header row")
	// ErrMissingColumn is returned in strict mode when x, y or label is absent.
	ErrMissingColumn = errors.New("required column missing")
	// ErrInvalidNumber is returned in strict mode when x or y does not parse.
	ErrInvalidNumber = errors.New("invalid numeric field")
)

// requiredColumns must be present in strict mode.
var requiredColumns = []string{core.ColumnX, core.ColumnY, core.ColumnLabel}

// Options controls decoding.
type Options struct {
	// Strict rejects files missing required columns or carrying
	// non-numeric coordinates. The default is to accept anything.
	Strict bool
	// Comma overrides the field delimiter. Zero means ','.
	Comma rune
	// Logger receives a debug line for every coordinate replaced by 0 in
	// lenient mode. Nil discards them.
	Logger *slog.Logger
}

// Decode reads a header row followed by records. Blank lines are skipped,
// short rows leave the missing fields empty and surplus fields are dropped.
func Decode(r io.Reader, opts Options) (core.SampleSet, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	if opts.Comma != 0 {
		reader.Comma = opts.Comma
	}

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return core.SampleSet{}, ErrEmptyFile
	}
	if err != nil {
		return core.SampleSet{}, fmt.Errorf("failed to read header: %w", err)
	}
	header = normalizeHeader(header)

	set := core.SampleSet{Columns: header}
	if opts.Strict {
		for _, col := range requiredColumns {
			if !set.HasColumn(col) {
				return core.SampleSet{}, fmt.Errorf("%w: %s", ErrMissingColumn, col)
			}
		}
	}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return core.SampleSet{}, fmt.Errorf("failed to read record %d: %w", len(set.Samples)+1, err)
		}
		if isBlank(record) {
			continue
		}

		line, _ := reader.FieldPos(0)
		sample, err := decodeRecord(header, record, opts.Strict, func(col, value string) {
			logger.Debug("Unparsable coordinate replaced by 0", "line", line, "column", col, "value", value)
		})
		if err != nil {
			return core.SampleSet{}, fmt.Errorf("line %d: %w", line, err)
		}
		set.Samples = append(set.Samples, sample)
	}

	return set, nil
}

// decodeRecord maps one row onto a sample. In lenient mode a bad x or y is
// reported to invalid and stored as 0.
func decodeRecord(header, record []string, strict bool, invalid func(col, value string)) (core.Sample, error) {
	var s core.Sample
	for i, col := range header {
		var value string
		if i < len(record) {
			value = record[i]
		}

		switch col {
		case core.ColumnX:
			x, err := parseNumber(value)
			if err != nil {
				if strict {
					return core.Sample{}, fmt.Errorf("%w: x=%q", ErrInvalidNumber, value)
				}
				invalid(col, value)
			}
			s.X = x
		case core.ColumnY:
			y, err := parseNumber(value)
			if err != nil {
				if strict {
					return core.Sample{}, fmt.Errorf("%w: y=%q", ErrInvalidNumber, value)
				}
				invalid(col, value)
			}
			s.Y = y
		case core.ColumnLabel:
			s.Label = value
		case core.ColumnValidation:
			s.Validation = value
		default:
			if s.Extra == nil {
				s.Extra = make(map[string]string)
			}
			s.Extra[col] = value
		}
	}
	return s, nil
}

// parseNumber parses a finite float. An empty field is 0. NaN, infinities
// and out-of-range values are errors and yield 0.
func parseNumber(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("non-finite number %q", value)
	}
	return f, nil
}

func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		out[i] = strings.TrimSpace(h)
	}
	return out
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// Encode writes the header and every sample, comma separated with \n line
// endings. Columns follow set.Columns; a set without a header gets x, y,
// label and, when any sample carries one, validation.
func Encode(w io.Writer, set core.SampleSet) error {
	columns := set.Columns
	if len(columns) == 0 {
		columns = append([]string(nil), core.DefaultColumns...)
		for _, s := range set.Samples {
			if s.Validation != "" {
				columns = append(columns, core.ColumnValidation)
				break
			}
		}
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	row := make([]string, len(columns))
	for i, s := range set.Samples {
		for j, col := range columns {
			row[j] = fieldValue(s, col)
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// Marshal is Encode into a byte slice.
func Marshal(set core.SampleSet) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, set); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func fieldValue(s core.Sample, col string) string {
	switch col {
	case core.ColumnX:
		return strconv.FormatFloat(s.X, 'f', -1, 64)
	case core.ColumnY:
		return strconv.FormatFloat(s.Y, 'f', -1, 64)
	case core.ColumnLabel:
		return s.Label
	case core.ColumnValidation:
		return s.Validation
	default:
		return s.Extra[col]
	}
}
