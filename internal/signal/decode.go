// Package signal loads accelerometer recordings from CSV files.
package signal

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/verte-zerg/segmark/internal/model"
)

var (
	// ErrMissingColumn is returned when a required column is absent from the header.
	ErrMissingColumn = errors.New("missing column")
	// ErrUnordered is returned when timestamps decrease.
	ErrUnordered = errors.New("timestamps are not in order")
	// ErrEmpty is returned for a recording without samples.
	ErrEmpty = errors.New("recording has no samples")
)

// Columns required in every recording, in canonical order.
var Columns = []string{"timestamp", "x", "y", "z"}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Decode reads a recording with a header row from r.
func Decode(id string, r io.Reader) (model.Recording, error) {
	counter := &countingReader{r: r}
	reader := csv.NewReader(counter)
	reader.ReuseRecord = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return model.Recording{}, ErrEmpty
		}
		return model.Recording{}, fmt.Errorf("failed to read header: %w", err)
	}
	pos, err := columnPositions(header)
	if err != nil {
		return model.Recording{}, err
	}

	var samples []model.Sample
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return model.Recording{}, fmt.Errorf("line %d: %w", line, err)
		}
		if isBlank(record) {
			continue
		}
		sample, err := parseSample(record, pos)
		if err != nil {
			return model.Recording{}, fmt.Errorf("line %d: %w", line, err)
		}
		if n := len(samples); n > 0 && sample.Timestamp.Before(samples[n-1].Timestamp) {
			return model.Recording{}, fmt.Errorf("line %d: %w", line, ErrUnordered)
		}
		samples = append(samples, sample)
	}
	if len(samples) == 0 {
		return model.Recording{}, ErrEmpty
	}
	return model.Recording{ID: id, Samples: samples, Size: counter.n}, nil
}

func columnPositions(header []string) ([4]int, error) {
	var pos [4]int
	for i := range pos {
		pos[i] = -1
	}
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		for j, want := range Columns {
			if name == want && pos[j] < 0 {
				pos[j] = i
			}
		}
	}
	for j, p := range pos {
		if p < 0 {
			return pos, fmt.Errorf("%w %q", ErrMissingColumn, Columns[j])
		}
	}
	return pos, nil
}

func parseSample(record []string, pos [4]int) (model.Sample, error) {
	field := func(i int) (string, error) {
		if pos[i] >= len(record) {
			return "", fmt.Errorf("%w %q", ErrMissingColumn, Columns[i])
		}
		return strings.TrimSpace(record[pos[i]]), nil
	}
	raw, err := field(0)
	if err != nil {
		return model.Sample{}, err
	}
	ts, err := ParseTimestamp(raw)
	if err != nil {
		return model.Sample{}, err
	}
	var axes [3]float64
	for i := range axes {
		v, err := field(i + 1)
		if err != nil {
			return model.Sample{}, err
		}
		axes[i], err = strconv.ParseFloat(v, 64)
		if err != nil || !finite(axes[i]) {
			return model.Sample{}, fmt.Errorf("invalid %s value %q", Columns[i+1], v)
		}
	}
	return model.Sample{Timestamp: ts, X: axes[0], Y: axes[1], Z: axes[2]}, nil
}

// ParseTimestamp accepts ISO-8601 style date-times and numeric Unix epochs.
// Numeric values are read as seconds, milliseconds, microseconds or
// nanoseconds depending on magnitude. Values without a zone are UTC.
func ParseTimestamp(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	if v, err := strconv.ParseFloat(raw, 64); err == nil {
		if !finite(v) {
			return time.Time{}, fmt.Errorf("invalid timestamp %q", raw)
		}
		return epochTime(v), nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", raw)
}

func epochTime(v float64) time.Time {
	abs := math.Abs(v)
	switch {
	case abs >= 1e17:
		return time.Unix(0, int64(v)).UTC()
	case abs >= 1e14:
		return time.UnixMicro(int64(v)).UTC()
	case abs >= 1e11:
		return time.UnixMilli(int64(v)).UTC().Add(time.Duration((v - math.Trunc(v)) * float64(time.Millisecond)))
	default:
		sec, frac := math.Modf(v)
		return time.Unix(int64(sec), int64(frac*1e9)).UTC()
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
