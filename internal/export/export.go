// Package export writes and reads the annotation table.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/verte-zerg/segmark/internal/model"
)

// ErrHeader is returned when a file does not start with the export header.
var ErrHeader = errors.New("unexpected export header")

// Row renders an annotation as export cells.
func Row(a model.Annotation) []string {
	return []string{
		a.RecordingID,
		string(a.Artifact),
		strconv.FormatInt(model.EpochMillis(a.Start), 10),
		strconv.FormatInt(model.EpochMillis(a.End), 10),
		model.FormatTimestamp(a.Start),
		model.FormatTimestamp(a.End),
	}
}

// Write writes the header and one row per annotation.
func Write(w io.Writer, annotations []model.Annotation) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(model.ExportColumns); err != nil {
		return err
	}
	for _, a := range annotations {
		if err := cw.Write(Row(a)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile atomically replaces path with the export.
func WriteFile(path string, annotations []model.Annotation) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create export dir: %w", err)
	}
	tmpFile, err := os.CreateTemp(filepath.Dir(path), "annotations-*.csv")
	if err != nil {
		return fmt.Errorf("failed to create temp export: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if err := Write(tmpFile, annotations); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close export: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	return nil
}

// Read parses an export. Start and end come from the millisecond columns,
// refined by the string columns when those agree to the millisecond.
func Read(r io.Reader) ([]model.Annotation, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(model.ExportColumns)
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrHeader
		}
		return nil, err
	}
	for i, col := range model.ExportColumns {
		if header[i] != col {
			return nil, fmt.Errorf("%w: column %d is %q, want %q", ErrHeader, i+1, header[i], col)
		}
	}
	var out []model.Annotation
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		start, err := parseBound(record[2], record[4])
		if err != nil {
			return nil, err
		}
		end, err := parseBound(record[3], record[5])
		if err != nil {
			return nil, err
		}
		out = append(out, model.Annotation{
			RecordingID: record[0],
			Artifact:    model.ArtifactKind(record[1]),
			Start:       start,
			End:         end,
		})
	}
	return out, nil
}

// ReadFile reads the export at path. A missing file yields no annotations.
func ReadFile(path string) ([]model.Annotation, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			// Best-effort close for read-only export.
			_ = cerr
		}
	}()
	return Read(file)
}

// parseBound keeps the sub-millisecond digits of the string column unless it
// disagrees with the millisecond column.
func parseBound(millis, str string) (time.Time, error) {
	ms, err := strconv.ParseInt(millis, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid epoch milliseconds %q", millis)
	}
	if t, err := time.Parse(model.TimestampLayout, str); err == nil && model.EpochMillis(t) == ms {
		return t.UTC(), nil
	}
	return time.UnixMilli(ms).UTC(), nil
}
