// Package synth builds synthetic accelerometer recordings.
package synth

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/verte-zerg/segmark/internal/model"
)

const timestampLayout = "2006-01-02 15:04:05.000"

// Options shapes a synthetic recording.
type Options struct {
	Samples int
	Rate    float64 // samples per second
	Start   time.Time
	// Noise is the standard deviation of the additive noise, in g.
	Noise float64
}

// DefaultOptions returns a ten minute recording at 30 Hz.
func DefaultOptions() Options {
	return Options{
		Samples: 18000,
		Rate:    30,
		Start:   time.Date(2019, 3, 4, 10, 0, 0, 0, time.UTC),
		Noise:   0.02,
	}
}

// Generator produces synthetic recordings.
type Generator struct {
	rnd *rand.Rand
}

// New returns a Generator seeded with seed.
func New(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

type segment struct {
	start, end int
	kind       model.ArtifactKind
}

// Recording builds one recording: gravity on z, a walking bout with a gait
// oscillation and a run of sit-to-stand bursts, plus noise.
func (g *Generator) Recording(id string, opts Options) model.Recording {
	if opts.Rate <= 0 {
		opts.Rate = DefaultOptions().Rate
	}
	step := time.Duration(math.Round(1000/opts.Rate)) * time.Millisecond
	if step <= 0 {
		step = time.Millisecond
	}
	segments := g.plan(opts.Samples, opts.Rate)

	samples := make([]model.Sample, opts.Samples)
	for i := range samples {
		t := float64(i) / opts.Rate
		x, y, z := 0.0, 0.0, 1.0
		for _, seg := range segments {
			if i < seg.start || i >= seg.end {
				continue
			}
			local := float64(i-seg.start) / opts.Rate
			switch seg.kind {
			case model.Artifact3mWalk:
				// Roughly two steps per second.
				y += 0.3 * math.Sin(2*math.Pi*2*local)
				z += 0.15 * math.Sin(2*math.Pi*4*local)
			case model.ArtifactChairStand:
				// One rise every three seconds.
				phase := math.Mod(local, 3) / 3
				burst := math.Sin(math.Pi * phase)
				x += 0.5 * burst
				z += 0.25 * burst * burst
			}
		}
		x += 0.01*math.Sin(2*math.Pi*0.05*t) + g.rnd.NormFloat64()*opts.Noise
		y += g.rnd.NormFloat64() * opts.Noise
		z += g.rnd.NormFloat64() * opts.Noise
		samples[i] = model.Sample{
			Timestamp: opts.Start.Add(time.Duration(i) * step),
			X:         x,
			Y:         y,
			Z:         z,
		}
	}
	return model.Recording{ID: id, Samples: samples}
}

func (g *Generator) plan(n int, rate float64) []segment {
	sec := int(rate)
	if sec < 1 {
		sec = 1
	}
	if n < 20*sec {
		return nil
	}
	walkLen := (8 + g.rnd.Intn(8)) * sec
	standLen := (12 + g.rnd.Intn(10)) * sec
	walkStart := n/10 + g.rnd.Intn(n/5)
	standStart := walkStart + walkLen + 5*sec + g.rnd.Intn(n/5)
	out := []segment{{start: walkStart, end: walkStart + walkLen, kind: model.Artifact3mWalk}}
	if standStart+standLen <= n {
		out = append(out, segment{start: standStart, end: standStart + standLen, kind: model.ArtifactChairStand})
	}
	return out
}

// Write encodes rec as a timestamp,x,y,z CSV.
func Write(w io.Writer, rec model.Recording) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"timestamp", "x", "y", "z"}); err != nil {
		return err
	}
	for _, s := range rec.Samples {
		if err := cw.Write([]string{
			s.Timestamp.UTC().Format(timestampLayout),
			strconv.FormatFloat(s.X, 'f', 5, 64),
			strconv.FormatFloat(s.Y, 'f', 5, 64),
			strconv.FormatFloat(s.Z, 'f', 5, 64),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteDir writes count recordings named demo-NN.csv into dir and returns the names.
func (g *Generator) WriteDir(dir string, count int, opts Options) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create demo dir: %w", err)
	}
	names := make([]string, 0, count)
	for i := 0; i < count; i++ {
		name := fmt.Sprintf("demo-%02d.csv", i+1)
		fileOpts := opts
		fileOpts.Start = opts.Start.Add(time.Duration(i) * 24 * time.Hour)
		rec := g.Recording(name, fileOpts)
		if err := writeFile(filepath.Join(dir, name), rec); err != nil {
			return names, err
		}
		names = append(names, name)
	}
	return names, nil
}

func writeFile(path string, rec model.Recording) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return Write(f, rec)
}
