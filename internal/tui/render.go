package tui

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/verte-zerg/segmark/internal/annotate"
	"github.com/verte-zerg/segmark/internal/model"
	"github.com/verte-zerg/segmark/internal/plot"
)

func (m *Model) renderRecording(width int) string {
	sections := []string{
		m.renderInfo(width),
		m.renderArtifacts(),
		m.renderDetail(width),
		m.renderOverview(width),
		m.renderPreview(),
	}
	return strings.Join(sections, "\n")
}

func (m *Model) renderInfo(width int) string {
	parts := []string{
		m.rec.ID,
		humanize.Comma(int64(m.rec.Len())) + " samples",
		m.rec.Duration().String(),
	}
	if m.rec.Size > 0 {
		parts = append(parts, humanize.Bytes(uint64(m.rec.Size)))
	}
	parts = append(parts, fmt.Sprintf("view %d-%d", m.view.Start, m.view.End))
	if m.smooth && m.cfg.View.SmoothWindow > 1 {
		parts = append(parts, fmt.Sprintf("smoothed (%d)", m.cfg.View.SmoothWindow))
	}
	return headerStyle.Render(truncateLine(strings.Join(parts, "  "), width))
}

// renderArtifacts shows one entry per bound artifact kind, marked done when
// the active recording already has an annotation for it.
func (m *Model) renderArtifacts() string {
	kinds := m.store.Kinds()
	parts := make([]string, 0, len(kinds))
	for i, k := range kinds {
		if i >= 9 {
			break
		}
		label := fmt.Sprintf("[%d] %s", i+1, k.Label())
		if m.store.Has(m.rec.ID, k) {
			parts = append(parts, doneStyle.Render(label+" (done)"))
			continue
		}
		parts = append(parts, pendingStyle.Render(label))
	}
	return strings.Join(parts, "  ")
}

func (m *Model) smoothWindow() int {
	if !m.smooth {
		return 1
	}
	return m.cfg.View.SmoothWindow
}

func (m *Model) renderDetail(width int) string {
	pw := plot.PlotWidthFor(width)
	samples := m.rec.Samples[m.view.Start:m.view.End]
	opts := plot.Options{
		Width:  pw,
		Height: m.cfg.View.DetailHeight,
		Color:  true,
	}
	if col, ok := m.view.ColumnOf(m.cursor, pw); ok {
		opts.Cursor = col
		opts.ShowCursor = true
	}
	if sel := m.sel.Current(); !sel.Empty() {
		opts.Highlight = m.view.DetailBand(sel.Min(), sel.Max(), pw)
	}
	return renderPlot(plot.Axes(samples, m.smoothWindow()), opts)
}

func (m *Model) renderOverview(width int) string {
	pw := plot.PlotWidthFor(width)
	opts := plot.Options{
		Width:     pw,
		Height:    m.cfg.View.OverviewHeight,
		Color:     true,
		Highlight: m.view.OverviewBand(pw),
		NoLegend:  true,
	}
	return renderPlot(plot.Axes(m.rec.Samples, m.smoothWindow()), opts)
}

func renderPlot(series []plot.Series, opts plot.Options) string {
	var buf bytes.Buffer
	if err := plot.PlotSeries(&buf, series, opts); err != nil {
		return fmt.Sprintf("Failed to render plot: %v", err)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func (m *Model) renderPreview() string {
	cursor := m.rec.Samples[m.cursor]
	lines := []string{headerStyle.Render(fmt.Sprintf("Cursor %d  %s  x=%.4f y=%.4f z=%.4f",
		m.cursor, model.FormatTimestamp(cursor.Timestamp), cursor.X, cursor.Y, cursor.Z))}

	sel := m.sel.Current()
	p, err := annotate.SelectedRangePreview(sel, m.rec.Samples)
	if err != nil {
		return strings.Join(append(lines, noticeStyle.Render("Selection: "+err.Error())), "\n")
	}
	lines = append(lines, noticeStyle.Render(fmt.Sprintf("Selection: %s points, %d to %d, %s",
		humanize.Comma(int64(sel.Len())), p.FirstIndex, p.LastIndex, p.Span())))
	rows := plot.SampleRows(p.Samples())
	lines = append(lines, plot.FormatTable(plot.SampleHeaders, rows, map[int]bool{2: true, 3: true, 4: true})...)
	return strings.Join(lines, "\n")
}

func annotationColumns(width int) []table.Column {
	columns := []table.Column{
		{Title: "fname", Width: 24},
		{Title: "artifact", Width: 12},
		{Title: "start_time_str", Width: 26},
		{Title: "end_time_str", Width: 26},
		{Title: "duration", Width: 10},
	}
	fixed := 0
	for _, c := range columns[1:] {
		fixed += c.Width + 1
	}
	if width > 0 {
		columns[0].Width = maxInt(12, minInt(40, width-fixed-2))
	}
	return columns
}

func annotationRows(annotations []model.Annotation) []table.Row {
	rows := make([]table.Row, 0, len(annotations))
	for _, a := range annotations {
		rows = append(rows, table.Row{
			a.RecordingID,
			string(a.Artifact),
			model.FormatTimestamp(a.Start),
			model.FormatTimestamp(a.End),
			a.End.Sub(a.Start).String(),
		})
	}
	return rows
}

func buildAnnotationTable(annotations []model.Annotation, width, height int) table.Model {
	t := table.New(
		table.WithColumns(annotationColumns(width)),
		table.WithRows(annotationRows(annotations)),
		table.WithHeight(maxInt(1, height-1)),
	)
	t.SetWidth(width)
	t.SetStyles(annotationTableStyles())
	return t
}

func applyAnnotationTable(t *table.Model, annotations []model.Annotation, width, height int) {
	t.SetColumns(annotationColumns(width))
	t.SetRows(annotationRows(annotations))
	t.SetWidth(width)
	t.SetHeight(maxInt(1, height-2))
}

func annotationTableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}
