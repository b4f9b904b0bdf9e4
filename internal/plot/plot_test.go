package plot

import (
	"bytes"
	"strings"
	"testing"
)

func TestPlotSeries(t *testing.T) {
	var buf bytes.Buffer
	err := PlotSeries(&buf, []Series{
		{Name: "x", Values: []float64{1, 2, 3, 2, 1}},
		{Name: "y", Values: []float64{1, 1, 2, 3, 4}},
	}, Options{Title: "Test Plot", Width: 10, Height: 4})
	if err != nil {
		t.Fatalf("PlotSeries failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Test Plot") {
		t.Fatalf("expected title in output")
	}
	if !strings.Contains(out, "Legend:") {
		t.Fatalf("expected legend in output")
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 1+4+1 {
		t.Fatalf("expected title, 4 rows and legend, got %d lines", len(lines))
	}
	if !strings.Contains(lines[1], "4.00") || !strings.Contains(lines[4], "1.00") {
		t.Fatalf("expected shared scale labels, got %q and %q", lines[1], lines[4])
	}
}

func TestPlotSeriesSkipsEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := PlotSeries(&buf, []Series{{Name: "x"}}, Options{Width: 10}); err != nil {
		t.Fatalf("PlotSeries failed: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected no output for empty series, got %q", buf.String())
	}
}

func TestPlotSeriesHighlightAndCursor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	var buf bytes.Buffer
	err := PlotSeries(&buf, []Series{
		{Name: "x", Values: []float64{0, 0, 0, 0, 0, 0, 0, 0, 0, 0}},
	}, Options{
		Width:      10,
		Height:     3,
		Highlight:  &Band{From: 2, To: 4},
		Cursor:     8,
		ShowCursor: true,
		NoLegend:   true,
	})
	if err != nil {
		t.Fatalf("PlotSeries failed: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(lines))
	}
	top := []rune(lines[0][strings.Index(lines[0], axisSeparator)+len(axisSeparator):])
	if len(top) != 10 {
		t.Fatalf("expected 10 plot columns, got %d", len(top))
	}
	for x := 2; x <= 4; x++ {
		if top[x] != highlightBlank {
			t.Fatalf("expected highlight at column %d, got %q", x, top[x])
		}
	}
	if top[1] == highlightBlank || top[5] == highlightBlank {
		t.Fatalf("highlight leaked outside the band: %q", string(top))
	}
	if top[8] != cursorRune {
		t.Fatalf("expected cursor at column 8, got %q", top[8])
	}
}

func TestResampleSeriesAveragesBuckets(t *testing.T) {
	got := resampleSeries([]float64{1, 3, 5, 7}, 2)
	if len(got) != 2 || got[0] != 2 || got[1] != 6 {
		t.Fatalf("unexpected resample: %v", got)
	}
}

func TestColumnIndexRoundTrip(t *testing.T) {
	cases := []struct {
		n, width int
	}{
		{n: 2600, width: 80},
		{n: 81, width: 80},
		{n: 20, width: 80},
		{n: 1, width: 10},
	}
	for _, tc := range cases {
		for col := 0; col < tc.width; col++ {
			i := ColumnIndex(col, tc.n, tc.width)
			if i < 0 || i >= tc.n {
				t.Fatalf("n=%d width=%d: column %d mapped outside data: %d", tc.n, tc.width, col, i)
			}
			if tc.n >= tc.width {
				if back := IndexColumn(i, tc.n, tc.width); back != col {
					t.Fatalf("n=%d width=%d: column %d -> index %d -> column %d", tc.n, tc.width, col, i, back)
				}
			}
		}
	}
	if got := IndexColumn(2599, 2600, 80); got != 79 {
		t.Fatalf("expected last index in last column, got %d", got)
	}
	if got := ColumnIndex(500, 100, 10); got != ColumnIndex(9, 100, 10) {
		t.Fatalf("expected out-of-range column to clamp, got %d", got)
	}
}
