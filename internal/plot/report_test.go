package plot

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/segmark/internal/model"
)

func TestRenderRecording(t *testing.T) {
	base := time.Date(2019, 3, 4, 10, 0, 0, 0, time.UTC)
	rec := model.Recording{ID: "a.csv", Size: 2048}
	for i := 0; i < 1200; i++ {
		rec.Samples = append(rec.Samples, model.Sample{
			Timestamp: base.Add(time.Duration(i) * 10 * time.Millisecond),
			X:         float64(i % 7),
			Y:         -1,
			Z:         1,
		})
	}
	var buf bytes.Buffer
	if err := RenderRecording(&buf, rec, Options{Width: 40, Height: 5}, 3); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"a.csv", "Samples: 1,200", "Size: 2.0 kB", "Duration: 11.99s", "Axis", "|a|", "Acceleration", "Legend:"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestRenderRecordingEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderRecording(&buf, model.Recording{ID: "b.csv"}, Options{}, 1); err != nil {
		t.Fatalf("render: %v", err)
	}
	if buf.String() != "b.csv: no samples.\n" {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestSampleRows(t *testing.T) {
	ts := time.Date(2019, 3, 4, 10, 0, 1, 250_000_000, time.UTC)
	rows := SampleRows([]model.Sample{{Timestamp: ts, X: 0.5, Y: -1, Z: 9.81}})
	want := []string{"1551693601250", "2019-03-04 10:00:01.25", "0.5000", "-1.0000", "9.8100"}
	for i := range want {
		if rows[0][i] != want[i] {
			t.Fatalf("column %d: expected %q, got %q", i, want[i], rows[0][i])
		}
	}
}

func TestMagnitude(t *testing.T) {
	got := Magnitude([]model.Sample{{X: 3, Y: 4}, {Z: -2}, {}})
	want := []float64{5, 2, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sample %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}
