package tui

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/segmark/internal/annotate"
	"github.com/verte-zerg/segmark/internal/export"
	"github.com/verte-zerg/segmark/internal/model"
)

type fakeCatalog struct {
	names []string
}

func (c fakeCatalog) List(context.Context) ([]string, error) {
	return c.names, nil
}

type fakeLoader struct {
	recs map[string]model.Recording
}

func (l fakeLoader) Load(_ context.Context, name string) (model.Recording, error) {
	rec, ok := l.recs[name]
	if !ok {
		return model.Recording{}, errors.New("not found")
	}
	return rec, nil
}

type forgettingLoader struct {
	fakeLoader
	forgotten []string
}

func (l *forgettingLoader) Forget(name string) {
	l.forgotten = append(l.forgotten, name)
}

type fakeArchive struct {
	paths []string
	count int
	err   error
}

func (a *fakeArchive) SaveExport(_ context.Context, path string, annotations []model.Annotation) (string, error) {
	if a.err != nil {
		return "", a.err
	}
	a.paths = append(a.paths, path)
	a.count = len(annotations)
	return "export-1", nil
}

func testRecording(id string, n int) model.Recording {
	base := time.Date(2019, 3, 4, 10, 0, 0, 0, time.UTC)
	rec := model.Recording{ID: id}
	for i := 0; i < n; i++ {
		rec.Samples = append(rec.Samples, model.Sample{
			Timestamp: base.Add(time.Duration(i) * 10 * time.Millisecond),
			X:         float64(i % 5),
			Y:         0.5,
			Z:         1,
		})
	}
	return rec
}

func newTestModel(t *testing.T) *Model {
	t.Helper()
	m := NewModel(Options{
		Config: model.Config{
			ExportPath: filepath.Join(t.TempDir(), "annotations.csv"),
		},
		Catalog: fakeCatalog{names: []string{"a.csv", "b.csv"}},
		Loader: fakeLoader{recs: map[string]model.Recording{
			"a.csv": testRecording("a.csv", 4000),
			"b.csv": testRecording("b.csv", 500),
		}},
		Store: annotate.NewStore(),
	})
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return m
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func openRecording(t *testing.T, m *Model, name string) {
	t.Helper()
	cmd := m.open(name)
	if cmd == nil {
		t.Fatalf("expected a load command for %s", name)
	}
	msg := loadRecordingCmd(m.loader, name)()
	m.Update(msg)
	if !m.hasRec || m.rec.ID != name {
		t.Fatalf("expected %s to be open, got %q (status %q)", name, m.rec.ID, m.status)
	}
}

func TestFilesMessageOpensFirstRecording(t *testing.T) {
	m := newTestModel(t)
	m.Update(filesMsg{names: []string{"a.csv", "b.csv"}})
	if m.loading != "a.csv" {
		t.Fatalf("expected first recording to load, got %q", m.loading)
	}
	if len(m.files.Items()) != 2 {
		t.Fatalf("expected 2 file items, got %d", len(m.files.Items()))
	}
}

func TestOpenRecordingSetsDefaultWindow(t *testing.T) {
	m := newTestModel(t)
	openRecording(t, m, "a.csv")
	if m.view.Start != 400 || m.view.End != 3000 {
		t.Fatalf("expected [400, 3000), got [%d, %d)", m.view.Start, m.view.End)
	}
	if m.cursor != 400 {
		t.Fatalf("expected cursor at window start, got %d", m.cursor)
	}
	if m.activeTab != tabRecording {
		t.Fatalf("expected recording tab after load")
	}
}

func TestStaleRecordingIsIgnored(t *testing.T) {
	m := newTestModel(t)
	m.open("a.csv")
	m.open("b.csv")
	m.Update(recordingMsg{name: "a.csv", rec: testRecording("a.csv", 10)})
	if m.hasRec {
		t.Fatalf("a superseded load must not replace the recording")
	}
}

func TestMarkWithoutSelectionIsAdvisory(t *testing.T) {
	m := newTestModel(t)
	openRecording(t, m, "a.csv")
	m.Update(runes("1"))
	if m.store.Len() != 0 {
		t.Fatalf("expected no annotation, got %d", m.store.Len())
	}
	if !m.statusErr || !strings.Contains(m.status, "select a range first") {
		t.Fatalf("expected empty selection advisory, got %q", m.status)
	}
}

func TestRangeSelectionAndMark(t *testing.T) {
	m := newTestModel(t)
	openRecording(t, m, "a.csv")

	m.Update(runes("["))
	for i := 0; i < 5; i++ {
		m.Update(tea.KeyMsg{Type: tea.KeyRight})
	}
	m.Update(runes("]"))
	sel := m.sel.Current()
	if sel.Empty() || sel.Min() != 400 || sel.Max() != m.cursor {
		t.Fatalf("unexpected selection %v (cursor %d)", sel.Indices(), m.cursor)
	}

	m.Update(runes("1"))
	got := m.store.Snapshot()
	if len(got) != 1 {
		t.Fatalf("expected 1 annotation, got %d (status %q)", len(got), m.status)
	}
	if got[0].Artifact != model.ArtifactChairStand {
		t.Fatalf("key 1 must mark chair_stand, got %q", got[0].Artifact)
	}
	if !got[0].Start.Equal(m.rec.Samples[400].Timestamp) || !got[0].End.Equal(m.rec.Samples[m.cursor].Timestamp) {
		t.Fatalf("unexpected bounds %v - %v", got[0].Start, got[0].End)
	}
	if !strings.Contains(m.renderArtifacts(), "chair stand (done)") {
		t.Fatalf("expected done marker, got %q", m.renderArtifacts())
	}
	if strings.Contains(m.renderArtifacts(), "3m walk (done)") {
		t.Fatalf("3m walk must not be marked")
	}

	m.Update(runes("2"))
	got = m.store.Snapshot()
	if len(got) != 2 || got[1].Artifact != model.Artifact3mWalk {
		t.Fatalf("key 2 must add a 3m_walk annotation, got %+v", got)
	}
}

func TestShiftExtendsFromCursor(t *testing.T) {
	m := newTestModel(t)
	openRecording(t, m, "a.csv")
	start := m.cursor
	m.Update(tea.KeyMsg{Type: tea.KeyShiftRight})
	m.Update(tea.KeyMsg{Type: tea.KeyShiftRight})
	sel := m.sel.Current()
	if sel.Min() != start || sel.Max() != m.cursor || m.cursor <= start {
		t.Fatalf("expected selection %d..%d, got %v", start, m.cursor, sel.Indices())
	}
}

func TestSwitchingRecordingResetsSelectionAndMarkers(t *testing.T) {
	m := newTestModel(t)
	openRecording(t, m, "a.csv")
	m.Update(runes("["))
	m.Update(tea.KeyMsg{Type: tea.KeyRight})
	m.Update(runes("]"))
	m.Update(runes("1"))

	openRecording(t, m, "b.csv")
	if !m.sel.Current().Empty() {
		t.Fatalf("expected selection reset on recording switch")
	}
	if strings.Contains(m.renderArtifacts(), "(done)") {
		t.Fatalf("markers must follow the active recording, got %q", m.renderArtifacts())
	}
	if m.view.Start != 0 || m.view.End != 500 {
		t.Fatalf("expected short recording to fit the window, got [%d, %d)", m.view.Start, m.view.End)
	}
	m.Update(runes("1"))
	if m.store.Len() != 1 {
		t.Fatalf("stale selection must not mark the new recording")
	}
}

func TestClearSelectionKeepsAnnotations(t *testing.T) {
	m := newTestModel(t)
	openRecording(t, m, "a.csv")
	m.Update(runes(" "))
	m.Update(runes("2"))
	m.Update(runes("c"))
	if !m.sel.Current().Empty() {
		t.Fatalf("expected empty selection")
	}
	if m.store.Len() != 1 {
		t.Fatalf("clear must not touch annotations, got %d", m.store.Len())
	}
}

func TestExportWritesCSVAndArchive(t *testing.T) {
	m := newTestModel(t)
	archive := &fakeArchive{}
	m.archive = archive
	openRecording(t, m, "a.csv")
	m.Update(runes("["))
	m.Update(tea.KeyMsg{Type: tea.KeyRight})
	m.Update(runes("]"))
	m.Update(runes("1"))

	_, cmd := m.Update(runes("e"))
	if cmd == nil {
		t.Fatalf("expected export command")
	}
	m.Update(cmd())
	if m.statusErr {
		t.Fatalf("unexpected export error: %s", m.status)
	}
	got, err := export.ReadFile(m.cfg.ExportPath)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if len(got) != 1 || got[0].RecordingID != "a.csv" {
		t.Fatalf("unexpected exported rows: %+v", got)
	}
	if len(archive.paths) != 1 || archive.count != 1 {
		t.Fatalf("expected one archived export, got %+v", archive)
	}
	if !strings.Contains(m.status, "export-1") {
		t.Fatalf("expected export id in status, got %q", m.status)
	}
}

func TestArchiveFailureKeepsCSVExport(t *testing.T) {
	m := newTestModel(t)
	m.archive = &fakeArchive{err: errors.New("disk full")}
	openRecording(t, m, "a.csv")
	m.Update(runes(" "))
	m.Update(runes("2"))

	_, cmd := m.Update(runes("e"))
	if cmd == nil {
		t.Fatalf("expected export command")
	}
	m.Update(cmd())
	if !m.statusErr {
		t.Fatalf("expected archive failure to be reported")
	}
	for _, want := range []string{"exported 1 annotations to", "archive failed: disk full"} {
		if !strings.Contains(m.status, want) {
			t.Fatalf("expected %q in status, got %q", want, m.status)
		}
	}
	if strings.Contains(m.status, "export failed") {
		t.Fatalf("CSV export succeeded, got %q", m.status)
	}
	got, err := export.ReadFile(m.cfg.ExportPath)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if len(got) != 1 || got[0].Artifact != model.Artifact3mWalk {
		t.Fatalf("unexpected exported rows: %+v", got)
	}
	if m.lastExport.IsZero() {
		t.Fatalf("expected last export time to be set")
	}
}

func TestReloadForgetsCachedRecording(t *testing.T) {
	m := newTestModel(t)
	loader := &forgettingLoader{fakeLoader: m.loader.(fakeLoader)}
	m.loader = loader
	m.names = []string{"a.csv", "b.csv"}
	openRecording(t, m, "a.csv")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlR})
	if cmd == nil {
		t.Fatalf("expected reload command")
	}
	if len(loader.forgotten) != 1 || loader.forgotten[0] != "a.csv" {
		t.Fatalf("expected a.csv to be forgotten, got %v", loader.forgotten)
	}
	if m.loading != "a.csv" {
		t.Fatalf("expected a.csv to be loading, got %q", m.loading)
	}
	m.Update(loadRecordingCmd(m.loader, "a.csv")())
	if !m.hasRec || m.rec.ID != "a.csv" || m.loading != "" {
		t.Fatalf("expected a.csv reopened, status %q", m.status)
	}
}

func TestFileItemsShowPreviewOfLoadedRecordings(t *testing.T) {
	m := newTestModel(t)
	m.names = []string{"a.csv", "b.csv"}
	openRecording(t, m, "a.csv")
	items := m.files.Items()
	if len(items) != 2 {
		t.Fatalf("expected 2 file items, got %d", len(items))
	}
	loaded := items[0].(fileItem)
	if loaded.preview == "" || len(loaded.preview) != previewWidth {
		t.Fatalf("expected a %d column preview, got %q", previewWidth, loaded.preview)
	}
	if !strings.Contains(loaded.Description(), loaded.preview) {
		t.Fatalf("expected preview in description, got %q", loaded.Description())
	}
	if other := items[1].(fileItem); other.preview != "" {
		t.Fatalf("unloaded recording must not have a preview, got %q", other.preview)
	}
}

func TestViewRendersRecording(t *testing.T) {
	m := newTestModel(t)
	openRecording(t, m, "a.csv")
	m.Update(runes(" "))
	out := m.View()
	for _, want := range []string{"a.csv", "4,000 samples", "[1] chair stand", "Epoch", "Legend:"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in view", want)
		}
	}
	if got := strings.Count(out, "\n") + 1; got != 40 {
		t.Fatalf("expected view to fill 40 lines, got %d", got)
	}
}

func TestCatalogChangeRelists(t *testing.T) {
	changes := make(chan struct{}, 1)
	m := newTestModel(t)
	m.changes = changes
	changes <- struct{}{}
	msg := waitForChangeCmd(changes)()
	if _, ok := msg.(catalogChangedMsg); !ok {
		t.Fatalf("expected catalogChangedMsg, got %T", msg)
	}
	_, cmd := m.Update(msg)
	if cmd == nil {
		t.Fatalf("expected relist command")
	}
	close(changes)
	if got := waitForChangeCmd(changes)(); got != nil {
		t.Fatalf("expected nil after close, got %T", got)
	}
}
