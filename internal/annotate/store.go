// Package annotate keeps the set of annotations created during a session.
package annotate

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/verte-zerg/segmark/internal/model"
	"github.com/verte-zerg/segmark/internal/selection"
)

var (
	// ErrEmptySelection is returned when an operation needs at least one selected sample.
	ErrEmptySelection = errors.New("select a range first")
	// ErrInvalidIndex is returned when a selection does not fit the recording.
	ErrInvalidIndex = errors.New("selection index out of range")
	// ErrUnknownArtifact is returned for a kind outside the configured set.
	ErrUnknownArtifact = errors.New("unknown artifact kind")
	// ErrNoRecording is returned when no recording identifier is given.
	ErrNoRecording = errors.New("recording id is required")
)

// InvalidIndexError reports the offending index and the recording size.
type InvalidIndexError struct {
	Index int
	Len   int
}

func (e *InvalidIndexError) Error() string {
	return fmt.Sprintf("selection index %d out of range for %d samples", e.Index, e.Len)
}

// Unwrap lets errors.Is match ErrInvalidIndex.
func (e *InvalidIndexError) Unwrap() error {
	return ErrInvalidIndex
}

// Store holds at most one annotation per recording and artifact kind.
type Store struct {
	mu      sync.Mutex
	kinds   []model.ArtifactKind
	known   map[model.ArtifactKind]struct{}
	entries []model.Annotation
}

// NewStore returns an empty store accepting the given artifact kinds.
// With no kinds the defaults are used.
func NewStore(kinds ...model.ArtifactKind) *Store {
	if len(kinds) == 0 {
		kinds = model.DefaultArtifacts()
	}
	s := &Store{known: make(map[model.ArtifactKind]struct{}, len(kinds))}
	for _, k := range kinds {
		if _, dup := s.known[k]; dup {
			continue
		}
		s.known[k] = struct{}{}
		s.kinds = append(s.kinds, k)
	}
	return s
}

// Kinds returns the accepted artifact kinds in configuration order.
func (s *Store) Kinds() []model.ArtifactKind {
	return append([]model.ArtifactKind(nil), s.kinds...)
}

// Upsert records the selected range of samples as the annotation for
// (recordingID, kind), replacing any earlier one for the same pair.
func (s *Store) Upsert(recordingID string, kind model.ArtifactKind, sel selection.Set, samples []model.Sample) (model.Annotation, error) {
	if recordingID == "" {
		return model.Annotation{}, ErrNoRecording
	}
	if _, ok := s.known[kind]; !ok {
		return model.Annotation{}, fmt.Errorf("%w: %q", ErrUnknownArtifact, kind)
	}
	first, last, err := bounds(sel, len(samples))
	if err != nil {
		return model.Annotation{}, err
	}
	ann := model.Annotation{
		RecordingID: recordingID,
		Artifact:    kind,
		Start:       samples[first].Timestamp,
		End:         samples[last].Timestamp,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(ann)
	return ann, nil
}

// Load seeds the store with previously exported annotations. Records with
// unknown kinds are skipped and reported in the returned count.
func (s *Store) Load(annotations []model.Annotation) (skipped int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ann := range annotations {
		if _, ok := s.known[ann.Artifact]; !ok || ann.RecordingID == "" {
			skipped++
			continue
		}
		s.put(ann)
	}
	return skipped
}

// put must be called with mu held.
func (s *Store) put(ann model.Annotation) {
	key := ann.Key()
	kept := s.entries[:0]
	for _, e := range s.entries {
		if e.Key() != key {
			kept = append(kept, e)
		}
	}
	s.entries = append(kept, ann)
}

// Has reports whether an annotation exists for the pair.
func (s *Store) Has(recordingID string, kind model.ArtifactKind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.RecordingID == recordingID && e.Artifact == kind {
			return true
		}
	}
	return false
}

// Len returns the number of annotations.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Snapshot returns a copy of all annotations in insertion order.
func (s *Store) Snapshot() []model.Annotation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Annotation(nil), s.entries...)
}

// Preview holds the boundary samples of a selection.
type Preview struct {
	FirstIndex int
	LastIndex  int
	First      model.Sample
	Last       model.Sample
}

// Samples returns the boundary samples as a two-row table.
func (p Preview) Samples() []model.Sample {
	return []model.Sample{p.First, p.Last}
}

// Span returns the time covered by the selection.
func (p Preview) Span() time.Duration {
	return p.Last.Timestamp.Sub(p.First.Timestamp)
}

// SelectedRangePreview returns the minimum- and maximum-index samples of sel.
func SelectedRangePreview(sel selection.Set, samples []model.Sample) (Preview, error) {
	first, last, err := bounds(sel, len(samples))
	if err != nil {
		return Preview{}, err
	}
	return Preview{
		FirstIndex: first,
		LastIndex:  last,
		First:      samples[first],
		Last:       samples[last],
	}, nil
}

func bounds(sel selection.Set, n int) (int, int, error) {
	if sel.Empty() {
		return 0, 0, ErrEmptySelection
	}
	first, last := sel.Min(), sel.Max()
	if first < 0 {
		return 0, 0, &InvalidIndexError{Index: first, Len: n}
	}
	if last >= n {
		return 0, 0, &InvalidIndexError{Index: last, Len: n}
	}
	return first, last, nil
}
