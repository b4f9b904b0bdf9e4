// Package tui provides the Bubble Tea annotation interface.
package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/verte-zerg/segmark/internal/annotate"
	"github.com/verte-zerg/segmark/internal/catalog"
	"github.com/verte-zerg/segmark/internal/model"
	"github.com/verte-zerg/segmark/internal/plot"
	"github.com/verte-zerg/segmark/internal/selection"
)

const (
	tabFiles = iota
	tabRecording
	tabAnnotations
)

const (
	defaultDetailHeight   = 12
	defaultOverviewHeight = 4
	fallbackWidth         = 80
	previewWidth          = 32
)

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	noticeStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	doneStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A")).Bold(true)
	pendingStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#B0B0B0"))
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
)

// Options wires the model to its collaborators.
type Options struct {
	Config  model.Config
	Catalog catalog.Catalog
	Loader  Loader
	Store   *annotate.Store
	// Archive is optional; exports are still written to CSV without it.
	Archive Archive
	// Changes signals that the catalog should be listed again.
	Changes <-chan struct{}
	Logger  *zap.Logger
}

// Model implements the Bubble Tea annotation UI.
type Model struct {
	cfg     model.Config
	catalog catalog.Catalog
	loader  Loader
	store   *annotate.Store
	archive Archive
	changes <-chan struct{}
	logger  *zap.Logger

	tabs      []string
	activeTab int
	width     int
	height    int

	files    list.Model
	names    []string
	previews map[string]string
	annTable table.Model
	keys     keyMap
	help     help.Model
	spinner  spinner.Model

	loading string
	rec     model.Recording
	hasRec  bool
	view    plot.Viewport
	cursor  int
	sel     *selection.Source
	smooth  bool

	status     string
	statusErr  bool
	lastExport time.Time
}

type fileItem struct {
	name    string
	marked  int
	total   int
	active  bool
	preview string
}

func (i fileItem) Title() string {
	if i.active {
		return i.name + " •"
	}
	return i.name
}

func (i fileItem) Description() string {
	desc := fmt.Sprintf("%d/%d artifacts marked", i.marked, i.total)
	if i.preview != "" {
		desc += "  " + i.preview
	}
	return desc
}

func (i fileItem) FilterValue() string { return i.name }

// NewModel constructs the annotation UI.
func NewModel(opts Options) *Model {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	store := opts.Store
	if store == nil {
		store = annotate.NewStore(opts.Config.Artifacts...)
	}
	m := &Model{
		cfg:      opts.Config,
		catalog:  opts.Catalog,
		loader:   opts.Loader,
		store:    store,
		archive:  opts.Archive,
		changes:  opts.Changes,
		logger:   logger,
		tabs:     []string{"Files", "Recording", "Annotations"},
		keys:     defaultKeyMap(),
		help:     help.New(),
		sel:      selection.NewSource(0),
		previews: map[string]string{},
	}
	if m.cfg.View.DetailHeight <= 0 {
		m.cfg.View.DetailHeight = defaultDetailHeight
	}
	if m.cfg.View.OverviewHeight <= 0 {
		m.cfg.View.OverviewHeight = defaultOverviewHeight
	}

	delegate := list.NewDefaultDelegate()
	m.files = list.New(nil, delegate, fallbackWidth, 20)
	m.files.Title = "Recordings"
	m.files.SetShowHelp(false)
	m.files.DisableQuitKeybindings()

	m.spinner = spinner.New()
	m.spinner.Spinner = spinner.Dot
	m.annTable = buildAnnotationTable(nil, fallbackWidth, 10)
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{waitForChangeCmd(m.changes)}
	if m.catalog != nil {
		cmds = append(cmds, listFilesCmd(m.catalog))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		return m, nil
	case filesMsg:
		return m, m.handleFiles(msg)
	case recordingMsg:
		m.handleRecording(msg)
		return m, nil
	case exportedMsg:
		m.handleExported(msg)
		return m, nil
	case catalogChangedMsg:
		m.logger.Debug("catalog changed")
		return m, tea.Batch(listFilesCmd(m.catalog), waitForChangeCmd(m.changes))
	case spinner.TickMsg:
		if m.loading == "" {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	if m.activeTab == tabFiles {
		var cmd tea.Cmd
		m.files, cmd = m.files.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}
	if m.activeTab == tabFiles && m.files.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.files, cmd = m.files.Update(msg)
		return m, cmd
	}
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.NextTab):
		m.moveTab(1)
		return m, tea.ClearScreen
	case key.Matches(msg, m.keys.PrevTab):
		m.moveTab(-1)
		return m, tea.ClearScreen
	case key.Matches(msg, m.keys.Export):
		return m, m.startExport()
	case key.Matches(msg, m.keys.Refresh):
		if m.activeTab == tabRecording && m.hasRec {
			return m, m.reload()
		}
		if m.catalog == nil {
			return m, nil
		}
		return m, listFilesCmd(m.catalog)
	}

	switch m.activeTab {
	case tabFiles:
		if key.Matches(msg, m.keys.Open) {
			if item, ok := m.files.SelectedItem().(fileItem); ok {
				return m, m.open(item.name)
			}
			return m, nil
		}
		var cmd tea.Cmd
		m.files, cmd = m.files.Update(msg)
		return m, cmd
	case tabRecording:
		return m, m.handleRecordingKey(msg)
	case tabAnnotations:
		var cmd tea.Cmd
		m.annTable, cmd = m.annTable.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleRecordingKey(msg tea.KeyMsg) tea.Cmd {
	if !m.hasRec {
		return nil
	}
	switch {
	case key.Matches(msg, m.keys.Left):
		m.moveCursor(-1, false)
	case key.Matches(msg, m.keys.Right):
		m.moveCursor(1, false)
	case key.Matches(msg, m.keys.ExtendLeft):
		m.moveCursor(-1, true)
	case key.Matches(msg, m.keys.ExtendRight):
		m.moveCursor(1, true)
	case key.Matches(msg, m.keys.Anchor):
		m.sel.Anchor(m.cursor)
	case key.Matches(msg, m.keys.Extend):
		m.sel.Extend(m.cursor)
	case key.Matches(msg, m.keys.Toggle):
		m.sel.Toggle(m.cursor)
	case key.Matches(msg, m.keys.Clear):
		m.sel.Clear()
		m.setStatus("selection cleared", false)
	case key.Matches(msg, m.keys.PanLeft):
		m.pan(-1)
	case key.Matches(msg, m.keys.PanRight):
		m.pan(1)
	case key.Matches(msg, m.keys.ZoomIn):
		m.view.Zoom(0.5, m.cursor)
	case key.Matches(msg, m.keys.ZoomOut):
		m.view.Zoom(2, m.cursor)
	case key.Matches(msg, m.keys.ZoomAll):
		m.view.Reset()
	case key.Matches(msg, m.keys.ZoomSel):
		sel := m.sel.Current()
		if sel.Empty() {
			m.setStatus(annotate.ErrEmptySelection.Error(), true)
			return nil
		}
		m.view.SetRange(sel.Min(), sel.Max()+1)
	case key.Matches(msg, m.keys.Smooth):
		m.smooth = !m.smooth
	case key.Matches(msg, m.keys.Mark):
		m.mark(int(msg.String()[0] - '1'))
	}
	if !m.view.Contains(m.cursor) {
		m.cursor = m.view.Start + m.view.Len()/2
	}
	return nil
}

func (m *Model) handleFiles(msg filesMsg) tea.Cmd {
	if msg.err != nil {
		m.logger.Warn("failed to list recordings", zap.Error(msg.err))
		m.setStatus(fmt.Sprintf("failed to list recordings: %v", msg.err), true)
		return nil
	}
	m.names = msg.names
	m.logger.Info("listed recordings", zap.Int("count", len(msg.names)))
	cmd := m.refreshFileItems()
	if !m.hasRec && m.loading == "" && len(m.names) > 0 {
		return tea.Batch(cmd, m.open(m.names[0]))
	}
	return cmd
}

func (m *Model) open(name string) tea.Cmd {
	if m.loader == nil || name == "" {
		return nil
	}
	m.loading = name
	m.setStatus("", false)
	return tea.Batch(loadRecordingCmd(m.loader, name), m.spinner.Tick)
}

// reload drops any cached copy of the open recording and loads it again.
func (m *Model) reload() tea.Cmd {
	name := m.rec.ID
	if f, ok := m.loader.(Forgetter); ok {
		f.Forget(name)
	}
	m.logger.Info("reloading recording", zap.String("file", name))
	return m.open(name)
}

func (m *Model) handleRecording(msg recordingMsg) {
	if msg.name != m.loading {
		return
	}
	m.loading = ""
	if msg.err != nil {
		m.logger.Warn("failed to load recording", zap.String("file", msg.name), zap.Error(msg.err))
		m.setStatus(fmt.Sprintf("failed to load %s: %v", msg.name, msg.err), true)
		return
	}
	m.setRecording(msg.rec)
	m.activeTab = tabRecording
	m.setStatus(fmt.Sprintf("opened %s", msg.name), false)
}

func (m *Model) setRecording(rec model.Recording) {
	m.rec = rec
	m.hasRec = true
	m.sel.Reset(rec.Len())
	m.view = plot.NewViewport(rec.Len())
	m.cursor = m.view.Start
	m.previews[rec.ID] = plot.Sparkline(plot.Magnitude(rec.Samples), previewWidth)
	m.refreshFileItems()
}

func (m *Model) mark(idx int) {
	kinds := m.store.Kinds()
	if idx < 0 || idx >= len(kinds) {
		m.setStatus(fmt.Sprintf("no artifact bound to %d", idx+1), true)
		return
	}
	kind := kinds[idx]
	ann, err := m.store.Upsert(m.rec.ID, kind, m.sel.Current(), m.rec.Samples)
	if err != nil {
		var idxErr *annotate.InvalidIndexError
		switch {
		case errors.Is(err, annotate.ErrEmptySelection):
			m.setStatus(err.Error(), true)
		case errors.As(err, &idxErr):
			m.setStatus(fmt.Sprintf("selection does not fit %s: %v", m.rec.ID, err), true)
		default:
			m.setStatus(err.Error(), true)
		}
		m.logger.Debug("mark rejected", zap.String("file", m.rec.ID), zap.String("artifact", string(kind)), zap.Error(err))
		return
	}
	m.logger.Info("marked artifact",
		zap.String("file", ann.RecordingID),
		zap.String("artifact", string(ann.Artifact)),
		zap.Time("start", ann.Start),
		zap.Time("end", ann.End),
	)
	m.setStatus(fmt.Sprintf("marked %s: %s to %s", kind.Label(), model.FormatTimestamp(ann.Start), model.FormatTimestamp(ann.End)), false)
	m.refreshAnnotations()
	m.refreshFileItems()
}

func (m *Model) startExport() tea.Cmd {
	path := m.cfg.ExportPath
	if path == "" {
		m.setStatus("no export path configured", true)
		return nil
	}
	return exportCmd(path, m.store.Snapshot(), m.archive)
}

func (m *Model) handleExported(msg exportedMsg) {
	if msg.err != nil {
		m.logger.Error("export failed", zap.String("path", msg.path), zap.Error(msg.err))
		m.setStatus(fmt.Sprintf("export failed: %v", msg.err), true)
		return
	}
	m.lastExport = time.Now()
	written := fmt.Sprintf("exported %s annotations to %s", humanize.Comma(int64(msg.count)), msg.path)
	if msg.archiveErr != nil {
		m.logger.Error("archive failed", zap.String("path", msg.path), zap.Error(msg.archiveErr))
		m.setStatus(fmt.Sprintf("%s; archive failed: %v", written, msg.archiveErr), true)
		return
	}
	m.logger.Info("exported annotations", zap.String("path", msg.path), zap.Int("count", msg.count), zap.String("export_id", msg.id))
	if msg.id != "" {
		written += " (export " + msg.id + ")"
	}
	m.setStatus(written, false)
}

func (m *Model) moveCursor(dir int, extend bool) {
	n := m.rec.Len()
	if n == 0 {
		return
	}
	step := maxInt(1, m.view.Len()/m.plotWidth())
	prev := m.cursor
	next := m.cursor + dir*step
	if next < 0 {
		next = 0
	}
	if next >= n {
		next = n - 1
	}
	switch {
	case next < m.view.Start:
		m.view.Pan(next - m.view.Start)
	case next >= m.view.End:
		m.view.Pan(next - m.view.End + 1)
	}
	m.cursor = next
	if !extend {
		return
	}
	if m.sel.Current().Empty() {
		m.sel.Anchor(prev)
	}
	m.sel.Extend(next)
}

func (m *Model) pan(dir int) {
	delta := dir * maxInt(1, m.view.Len()/2)
	m.view.Pan(delta)
	m.cursor += delta
	if m.cursor < m.view.Start {
		m.cursor = m.view.Start
	}
	if m.cursor >= m.view.End {
		m.cursor = m.view.End - 1
	}
}

func (m *Model) moveTab(delta int) {
	count := len(m.tabs)
	if count == 0 {
		return
	}
	next := m.activeTab + delta
	if next < 0 {
		next = count - 1
	}
	if next >= count {
		next = 0
	}
	m.activeTab = next
	if m.activeTab == tabAnnotations {
		m.refreshAnnotations()
		m.annTable.Focus()
	} else {
		m.annTable.Blur()
	}
}

func (m *Model) setStatus(s string, isErr bool) {
	m.status = s
	m.statusErr = isErr
}

func (m *Model) refreshFileItems() tea.Cmd {
	kinds := m.store.Kinds()
	items := make([]list.Item, 0, len(m.names))
	for _, name := range m.names {
		marked := 0
		for _, k := range kinds {
			if m.store.Has(name, k) {
				marked++
			}
		}
		items = append(items, fileItem{
			name:    name,
			marked:  marked,
			total:   len(kinds),
			active:  m.hasRec && name == m.rec.ID,
			preview: m.previews[name],
		})
	}
	return m.files.SetItems(items)
}

func (m *Model) refreshAnnotations() {
	_, bodyHeight, _ := m.layoutHeights()
	applyAnnotationTable(&m.annTable, m.store.Snapshot(), m.contentWidth(), bodyHeight)
}

func (m *Model) contentWidth() int {
	if m.width <= 0 {
		return fallbackWidth
	}
	return m.width
}

func (m *Model) plotWidth() int {
	return plot.PlotWidthFor(m.contentWidth())
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	tabsHeight := lipgloss.Height(activeNavStyle.Render("X"))
	if tabsHeight < 1 {
		tabsHeight = 1
	}
	headerHeight = tabsHeight
	footerHeight = 2
	bodyHeight = m.height - headerHeight - footerHeight
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, bodyHeight, _ := m.layoutHeights()
	m.files.SetSize(m.width, bodyHeight)
	m.help.Width = m.width
	m.refreshAnnotations()
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderTabs(), m.width, headerHeight)
	body := fitLines(m.renderBody(bodyHeight), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) renderTabs() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderBody(height int) string {
	switch m.activeTab {
	case tabFiles:
		if len(m.names) == 0 {
			return "No recordings found."
		}
		return m.files.View()
	case tabRecording:
		if !m.hasRec {
			return "Open a recording from the Files tab."
		}
		return m.renderRecording(m.contentWidth())
	case tabAnnotations:
		if m.store.Len() == 0 {
			return "No annotations yet."
		}
		view := tableMutedStyle.Render(m.annTable.View())
		if !m.lastExport.IsZero() {
			view += "\n" + noticeStyle.Render("Last export "+humanize.Time(m.lastExport))
		}
		return view
	}
	return ""
}

func (m *Model) renderFooter() string {
	var bindings []key.Binding
	switch m.activeTab {
	case tabFiles:
		bindings = m.keys.filesHelp()
	case tabRecording:
		bindings = m.keys.recordingHelp()
	default:
		bindings = m.keys.annotationsHelp()
	}
	helpLine := m.help.ShortHelpView(bindings)
	return helpLine + "\n" + m.renderStatus()
}

func (m *Model) renderStatus() string {
	if m.loading != "" {
		return noticeStyle.Render(m.spinner.View() + " Loading " + m.loading)
	}
	if m.status == "" {
		return ""
	}
	line := truncateLine(m.status, m.contentWidth())
	if m.statusErr {
		return errorStyle.Render(line)
	}
	return noticeStyle.Render(line)
}
