package plot

import (
	"fmt"
	"io"
	"math"

	"github.com/dustin/go-humanize"

	"github.com/verte-zerg/segmark/internal/model"
)

// Axes splits samples into x, y and z series, smoothed over window samples.
func Axes(samples []model.Sample, window int) []Series {
	xs := make([]float64, len(samples))
	ys := make([]float64, len(samples))
	zs := make([]float64, len(samples))
	for i, s := range samples {
		xs[i], ys[i], zs[i] = s.X, s.Y, s.Z
	}
	return []Series{
		{Name: "x", Values: MovingAverage(xs, window)},
		{Name: "y", Values: MovingAverage(ys, window)},
		{Name: "z", Values: MovingAverage(zs, window)},
	}
}

const magnitudeName = "|a|"

// Magnitude returns the Euclidean norm of each sample.
func Magnitude(samples []model.Sample) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = math.Sqrt(s.X*s.X + s.Y*s.Y + s.Z*s.Z)
	}
	return out
}

// SampleRows renders samples as the rows of the preview table.
func SampleRows(samples []model.Sample) [][]string {
	rows := make([][]string, 0, len(samples))
	for _, s := range samples {
		rows = append(rows, []string{
			fmt.Sprintf("%d", model.EpochMillis(s.Timestamp)),
			model.FormatTimestamp(s.Timestamp),
			fmt.Sprintf("%.4f", s.X),
			fmt.Sprintf("%.4f", s.Y),
			fmt.Sprintf("%.4f", s.Z),
		})
	}
	return rows
}

// SampleHeaders are the preview table columns.
var SampleHeaders = []string{"Epoch", "Timestamp", "X", "Y", "Z"}

// RenderRecording prints a summary, per-axis ranges and a plot of rec.
func RenderRecording(w io.Writer, rec model.Recording, opts Options, window int) error {
	if rec.Len() == 0 {
		_, err := fmt.Fprintf(w, "%s: no samples.\n", rec.ID)
		return err
	}
	first := rec.Samples[0].Timestamp
	last := rec.Samples[rec.Len()-1].Timestamp
	if _, err := fmt.Fprintln(w, rec.ID); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Samples: %s\n", humanize.Comma(int64(rec.Len()))); err != nil {
		return err
	}
	if rec.Size > 0 {
		if _, err := fmt.Fprintf(w, "Size: %s\n", humanize.Bytes(uint64(rec.Size))); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "From: %s\nTo: %s\nDuration: %s\n", model.FormatTimestamp(first), model.FormatTimestamp(last), rec.Duration()); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, ""); err != nil {
		return err
	}

	magnitude := Magnitude(rec.Samples)
	series := append(Axes(rec.Samples, 1), Series{Name: magnitudeName, Values: magnitude})
	rows := make([][]string, 0, len(series))
	for _, s := range series {
		lo, hi := seriesMinMax([]Series{s})
		var sum float64
		for _, v := range s.Values {
			sum += v
		}
		rows = append(rows, []string{
			s.Name,
			fmt.Sprintf("%.4f", lo),
			fmt.Sprintf("%.4f", hi),
			fmt.Sprintf("%.4f", sum/float64(len(s.Values))),
		})
	}
	for _, line := range FormatTable([]string{"Axis", "Min", "Max", "Mean"}, rows, map[int]bool{1: true, 2: true, 3: true}) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w, ""); err != nil {
		return err
	}
	if opts.Title == "" {
		opts.Title = "Acceleration"
	}
	plotted := append(Axes(rec.Samples, window), Series{Name: magnitudeName, Values: MovingAverage(magnitude, window)})
	return PlotSeries(w, plotted, opts)
}
