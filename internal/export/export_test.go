package export

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/verte-zerg/segmark/internal/model"
)

func TestWriteLayout(t *testing.T) {
	start := time.Date(2019, 3, 4, 10, 0, 1, 250_000_000, time.UTC)
	anns := []model.Annotation{
		{RecordingID: "a.csv", Artifact: model.ArtifactChairStand, Start: start, End: start.Add(12 * time.Second)},
		{RecordingID: "b, c.csv", Artifact: model.Artifact3mWalk, Start: start, End: start},
	}
	var buf bytes.Buffer
	if err := Write(&buf, anns); err != nil {
		t.Fatalf("write: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d lines", len(lines))
	}
	if lines[0] != "fname,artifact,start_time,end_time,start_time_str,end_time_str" {
		t.Fatalf("unexpected header %q", lines[0])
	}
	want := "a.csv,chair_stand,1551693601250,1551693613250,2019-03-04 10:00:01.25,2019-03-04 10:00:13.25"
	if lines[1] != want {
		t.Fatalf("unexpected row:\n got %q\nwant %q", lines[1], want)
	}
	if !strings.HasPrefix(lines[2], `"b, c.csv",3m_walk,`) {
		t.Fatalf("expected quoted file name, got %q", lines[2])
	}
}

func TestWriteFileThenRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "annotations.csv")
	start := time.Date(2019, 3, 4, 10, 0, 0, 0, time.UTC)
	anns := []model.Annotation{
		{RecordingID: "a.csv", Artifact: model.ArtifactChairStand, Start: start, End: start.Add(time.Second)},
		{RecordingID: "a.csv", Artifact: model.Artifact3mWalk, Start: start.Add(time.Minute), End: start.Add(2 * time.Minute)},
	}
	if err := WriteFile(path, anns); err != nil {
		t.Fatalf("write file: %v", err)
	}
	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if diff := cmp.Diff(anns, got); diff != "" {
		t.Fatalf("read mismatch (-want +got):\n%s", diff)
	}
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %v", entries)
	}
}

func TestReadFileMissing(t *testing.T) {
	got, err := ReadFile(filepath.Join(t.TempDir(), "none.csv"))
	if err != nil || got != nil {
		t.Fatalf("expected no annotations and no error, got %v, %v", got, err)
	}
}

func TestReadRejectsForeignHeader(t *testing.T) {
	_, err := Read(strings.NewReader("timestamp,x,y,z,a,b\n"))
	if !errors.Is(err, ErrHeader) {
		t.Fatalf("expected ErrHeader, got %v", err)
	}
	_, err = Read(strings.NewReader(""))
	if !errors.Is(err, ErrHeader) {
		t.Fatalf("expected ErrHeader for empty input, got %v", err)
	}
}

func TestReadKeepsSubMillisecondBounds(t *testing.T) {
	start := time.Date(2019, 3, 4, 10, 0, 0, 12_500_000, time.UTC)
	anns := []model.Annotation{
		{RecordingID: "a.csv", Artifact: model.ArtifactChairStand, Start: start, End: start.Add(1_237_500 * time.Microsecond)},
	}
	var first bytes.Buffer
	if err := Write(&first, anns); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := Read(bytes.NewReader(first.Bytes()))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if diff := cmp.Diff(anns, got); diff != "" {
		t.Fatalf("read mismatch (-want +got):\n%s", diff)
	}
	var second bytes.Buffer
	if err := Write(&second, got); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	if first.String() != second.String() {
		t.Fatalf("re-export differs:\n%s\n%s", first.String(), second.String())
	}
	if !strings.Contains(first.String(), "2019-03-04 10:00:00.0125") {
		t.Fatalf("expected sub-millisecond digits in export, got %q", first.String())
	}
}

func TestReadFallsBackToMillisOnMismatch(t *testing.T) {
	data := "fname,artifact,start_time,end_time,start_time_str,end_time_str\n" +
		"a.csv,chair_stand,1551693600000,1551693601000,2001-01-01 00:00:00.5,not a time\n"
	got, err := Read(strings.NewReader(data))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 annotation, got %d", len(got))
	}
	if got[0].Start.UnixMilli() != 1551693600000 || got[0].End.UnixMilli() != 1551693601000 {
		t.Fatalf("expected millisecond columns to win, got %v - %v", got[0].Start, got[0].End)
	}
}
