package plot

// Initial detail window, in samples, shown when a recording opens.
const (
	DefaultViewStart = 400
	DefaultViewEnd   = 3000
	minViewSpan      = 10
)

// Viewport is the half-open sample range [Start, End) drawn in the detail plot
// of a recording with N samples.
type Viewport struct {
	Start int
	End   int
	N     int
}

// NewViewport opens the default window over n samples, shrunk to fit.
func NewViewport(n int) Viewport {
	v := Viewport{Start: DefaultViewStart, End: DefaultViewEnd, N: n}
	if v.Start >= n {
		v.Start = 0
	}
	v.clamp()
	return v
}

// Len returns the number of samples in view.
func (v Viewport) Len() int {
	return v.End - v.Start
}

// Contains reports whether sample i is in view.
func (v Viewport) Contains(i int) bool {
	return i >= v.Start && i < v.End
}

// SetRange moves the window to [start, end), clamped to the recording.
func (v *Viewport) SetRange(start, end int) {
	if start > end {
		start, end = end, start
	}
	v.Start, v.End = start, end
	v.clamp()
}

// Pan shifts the window by delta samples without changing its span.
func (v *Viewport) Pan(delta int) {
	span := v.Len()
	start := v.Start + delta
	if start < 0 {
		start = 0
	}
	if start+span > v.N {
		start = v.N - span
	}
	v.Start, v.End = start, start+span
}

// Zoom scales the span by factor around sample center. A factor below one
// zooms in.
func (v *Viewport) Zoom(factor float64, center int) {
	if factor <= 0 || v.N == 0 {
		return
	}
	span := int(float64(v.Len()) * factor)
	if span < minViewSpan {
		span = minViewSpan
	}
	if span > v.N {
		span = v.N
	}
	if center < v.Start || center >= v.End {
		center = v.Start + v.Len()/2
	}
	// Keep center at the same relative position.
	rel := 0.5
	if v.Len() > 0 {
		rel = float64(center-v.Start) / float64(v.Len())
	}
	start := center - int(rel*float64(span))
	v.Start, v.End = start, start+span
	v.clamp()
}

// Reset restores the whole recording.
func (v *Viewport) Reset() {
	v.Start, v.End = 0, v.N
}

// IndexAt returns the sample under detail column col of a plot width columns wide.
func (v Viewport) IndexAt(col, width int) int {
	return v.Start + ColumnIndex(col, v.Len(), width)
}

// ColumnOf returns the detail column for sample i, or false when i is out of view.
func (v Viewport) ColumnOf(i, width int) (int, bool) {
	if !v.Contains(i) {
		return 0, false
	}
	return IndexColumn(i-v.Start, v.Len(), width), true
}

// DetailBand returns the detail columns covered by samples [first, last].
func (v Viewport) DetailBand(first, last, width int) *Band {
	if last < v.Start || first >= v.End || v.Len() == 0 {
		return nil
	}
	if first < v.Start {
		first = v.Start
	}
	if last >= v.End {
		last = v.End - 1
	}
	from, _ := v.ColumnOf(first, width)
	to, _ := v.ColumnOf(last, width)
	return &Band{From: from, To: to}
}

// OverviewBand returns the overview columns covered by the window when the
// whole recording is drawn width columns wide.
func (v Viewport) OverviewBand(width int) *Band {
	if v.Len() == 0 {
		return nil
	}
	return &Band{
		From: IndexColumn(v.Start, v.N, width),
		To:   IndexColumn(v.End-1, v.N, width),
	}
}

func (v *Viewport) clamp() {
	if v.N <= 0 {
		v.Start, v.End = 0, 0
		return
	}
	if v.End-v.Start > v.N {
		v.Start, v.End = 0, v.N
	}
	if v.Start < 0 {
		v.End -= v.Start
		v.Start = 0
	}
	if v.End > v.N {
		v.Start -= v.End - v.N
		v.End = v.N
	}
	if v.Start < 0 {
		v.Start = 0
	}
	if v.End <= v.Start {
		v.End = v.Start + 1
		if v.End > v.N {
			v.Start, v.End = v.N-1, v.N
		}
	}
}
