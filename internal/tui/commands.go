package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/segmark/internal/catalog"
	"github.com/verte-zerg/segmark/internal/export"
	"github.com/verte-zerg/segmark/internal/model"
)

// Loader fetches a recording by name.
type Loader interface {
	Load(ctx context.Context, name string) (model.Recording, error)
}

// Forgetter is implemented by loaders that cache recordings.
type Forgetter interface {
	Forget(name string)
}

// Archive records each export.
type Archive interface {
	SaveExport(ctx context.Context, path string, annotations []model.Annotation) (string, error)
}

const requestTimeout = 2 * time.Minute

type filesMsg struct {
	names []string
	err   error
}

type recordingMsg struct {
	name string
	rec  model.Recording
	err  error
}

type exportedMsg struct {
	path  string
	count int
	id    string
	err   error
	// archiveErr is set when the CSV was written but the archive was not.
	archiveErr error
}

type catalogChangedMsg struct{}

func listFilesCmd(c catalog.Catalog) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		names, err := c.List(ctx)
		return filesMsg{names: names, err: err}
	}
}

func loadRecordingCmd(l Loader, name string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		rec, err := l.Load(ctx, name)
		return recordingMsg{name: name, rec: rec, err: err}
	}
}

func exportCmd(path string, annotations []model.Annotation, archive Archive) tea.Cmd {
	return func() tea.Msg {
		if err := export.WriteFile(path, annotations); err != nil {
			return exportedMsg{path: path, err: err}
		}
		msg := exportedMsg{path: path, count: len(annotations)}
		if archive == nil {
			return msg
		}
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		msg.id, msg.archiveErr = archive.SaveExport(ctx, path, annotations)
		return msg
	}
}

func waitForChangeCmd(changes <-chan struct{}) tea.Cmd {
	if changes == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-changes; !ok {
			return nil
		}
		return catalogChangedMsg{}
	}
}
