// Package model defines shared data structures.
package model

import (
	"strings"
	"time"
)

// Sample is one accelerometer reading.
type Sample struct {
	Timestamp time.Time
	X         float64
	Y         float64
	Z         float64
}

// Recording is an ordered sequence of samples loaded from one file.
type Recording struct {
	ID      string
	Samples []Sample
	// Size is the number of bytes read to decode the recording, if known.
	Size int64
}

// Len returns the number of samples.
func (r Recording) Len() int {
	return len(r.Samples)
}

// Duration returns the time between the first and last sample.
func (r Recording) Duration() time.Duration {
	if len(r.Samples) < 2 {
		return 0
	}
	return r.Samples[len(r.Samples)-1].Timestamp.Sub(r.Samples[0].Timestamp)
}

// ArtifactKind labels an annotated segment, e.g. "chair_stand".
type ArtifactKind string

// Default artifact kinds offered when no configuration overrides them.
const (
	ArtifactChairStand ArtifactKind = "chair_stand"
	Artifact3mWalk     ArtifactKind = "3m_walk"
)

// DefaultArtifacts lists the artifact kinds in display order.
func DefaultArtifacts() []ArtifactKind {
	return []ArtifactKind{ArtifactChairStand, Artifact3mWalk}
}

// Label renders the kind for humans: "chair_stand" becomes "chair stand".
func (k ArtifactKind) Label() string {
	return strings.ReplaceAll(string(k), "_", " ")
}

// Annotation is a committed time segment for one recording and artifact kind.
type Annotation struct {
	RecordingID string
	Artifact    ArtifactKind
	Start       time.Time
	End         time.Time
}

// Key identifies the annotation slot it occupies.
func (a Annotation) Key() AnnotationKey {
	return AnnotationKey{RecordingID: a.RecordingID, Artifact: a.Artifact}
}

// AnnotationKey is the uniqueness key of an annotation.
type AnnotationKey struct {
	RecordingID string
	Artifact    ArtifactKind
}

// ExportColumns is the column layout of the annotation export.
var ExportColumns = []string{"fname", "artifact", "start_time", "end_time", "start_time_str", "end_time_str"}

// TimestampLayout renders timestamps the way the export's *_str columns expect.
const TimestampLayout = "2006-01-02 15:04:05.999999"

// FormatTimestamp renders t in TimestampLayout, in UTC.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// EpochMillis returns t as milliseconds since the Unix epoch.
func EpochMillis(t time.Time) int64 {
	return t.UnixMilli()
}

// Config defines annotation session settings.
type Config struct {
	CatalogURL string
	CatalogDir string
	Artifacts  []ArtifactKind
	ExportPath string
	Resume     bool
	View       ViewConfig
}

// ViewConfig defines plot sizing and smoothing.
type ViewConfig struct {
	DetailHeight   int
	OverviewHeight int
	SmoothWindow   int
}

// AnnotationFilter narrows archived annotations.
type AnnotationFilter struct {
	RecordingID string
	Artifact    ArtifactKind
}

// ExportRecord summarizes one export written to the archive.
type ExportRecord struct {
	ID        string
	CreatedAt time.Time
	Path      string
	Count     int
}
