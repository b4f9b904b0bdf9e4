// Package main provides the CLI entrypoint for segmark.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/verte-zerg/segmark/internal/annotate"
	"github.com/verte-zerg/segmark/internal/catalog"
	"github.com/verte-zerg/segmark/internal/config"
	"github.com/verte-zerg/segmark/internal/export"
	"github.com/verte-zerg/segmark/internal/logging"
	"github.com/verte-zerg/segmark/internal/model"
	"github.com/verte-zerg/segmark/internal/plot"
	"github.com/verte-zerg/segmark/internal/signal"
	"github.com/verte-zerg/segmark/internal/store"
	"github.com/verte-zerg/segmark/internal/synth"
	"github.com/verte-zerg/segmark/internal/tui"
)

const (
	defaultCatalogURL     = "https://users.rcc.uchicago.edu/~manorathan/wave4/30_min_segments"
	defaultDetailHeight   = 12
	defaultOverviewHeight = 4
	defaultSmoothWindow   = 5
	defaultDemoFiles      = 3
	defaultDemoSeed       = 1
	defaultShowHeight     = 12
)

var (
	sourceURL string
	sourceDir string

	annotateArtifacts []string
	annotateExport    string
	annotateResume    bool

	showHeight int
	showSmooth int

	listFile     string
	listArtifact string
	listExports  bool

	demoFiles   int
	demoSamples int
	demoSeed    int64
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "segmark",
		Short:         "Annotate time segments in accelerometer recordings",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runAnnotateCmd,
	}

	rootCmd.PersistentFlags().StringVar(&sourceURL, "url", defaultCatalogURL, "directory listing to load recordings from")
	rootCmd.PersistentFlags().StringVar(&sourceDir, "dir", "", "local directory of recordings (overrides --url)")

	rootCmd.Flags().StringSliceVar(&annotateArtifacts, "artifacts", artifactStrings(model.DefaultArtifacts()), "artifact kinds bound to keys 1-9")
	rootCmd.Flags().StringVar(&annotateExport, "export", config.DefaultExportPath(), "annotation CSV export path")
	rootCmd.Flags().BoolVar(&annotateResume, "resume", false, "load annotations from the existing export")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newFilesCmd())
	rootCmd.AddCommand(newShowCmd())
	rootCmd.AddCommand(newAnnotationsCmd())
	rootCmd.AddCommand(newDemoCmd())

	return rootCmd
}

func runAnnotateCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadFileConfig(cmd)
	if err != nil {
		return err
	}
	applyStringConfig(cmd, "export", &annotateExport, fileCfg.Export.Path)
	applySliceConfig(cmd, "artifacts", &annotateArtifacts, fileCfg.Annotate.Artifacts)

	cfg := model.Config{
		CatalogURL: sourceURL,
		CatalogDir: sourceDir,
		Artifacts:  parseArtifacts(annotateArtifacts),
		ExportPath: annotateExport,
		Resume:     annotateResume,
		View:       viewConfig(fileCfg),
	}
	if err := validateConfig(cfg); err != nil {
		return err
	}

	logger, err := newLogger(fileCfg)
	if err != nil {
		return err
	}
	defer func() {
		if serr := logger.Sync(); serr != nil {
			// Best-effort flush.
			_ = serr
		}
	}()

	annotations := annotate.NewStore(cfg.Artifacts...)
	if cfg.Resume {
		previous, err := export.ReadFile(cfg.ExportPath)
		if err != nil {
			return fmt.Errorf("failed to resume from %s: %w", cfg.ExportPath, err)
		}
		if skipped := annotations.Load(previous); skipped > 0 {
			logErrf("skipped %d annotations with unknown artifact kinds\n", skipped)
		}
		logger.Info("resumed annotations", zap.String("path", cfg.ExportPath), zap.Int("count", annotations.Len()))
	}

	archive, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := archive.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cat, loader := newSource(cfg, logger)
	var changes <-chan struct{}
	if cfg.CatalogDir != "" {
		watcher, err := catalog.NewWatcher(ctx, cfg.CatalogDir, logger)
		if err != nil {
			logger.Warn("recordings will not refresh automatically", zap.Error(err))
		} else {
			defer func() {
				if cerr := watcher.Close(); cerr != nil {
					// Best-effort watcher shutdown.
					_ = cerr
				}
			}()
			changes = watcher.Changes()
		}
	}

	logger.Info("starting session",
		zap.String("url", cfg.CatalogURL),
		zap.String("dir", cfg.CatalogDir),
		zap.Strings("artifacts", artifactStrings(cfg.Artifacts)),
	)
	m := tui.NewModel(tui.Options{
		Config:  cfg,
		Catalog: cat,
		Loader:  loader,
		Store:   annotations,
		Archive: archive,
		Changes: changes,
		Logger:  logger,
	})
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func newSource(cfg model.Config, logger *zap.Logger) (catalog.Catalog, *signal.Loader) {
	if cfg.CatalogDir != "" {
		return catalog.DirCatalog{Dir: cfg.CatalogDir}, signal.NewDirLoader(cfg.CatalogDir, signal.WithLogger(logger))
	}
	loader := signal.NewRemoteLoader(cfg.CatalogURL,
		signal.WithCacheDir(config.DefaultCacheDir()),
		signal.WithLogger(logger),
	)
	return catalog.NewHTTPCatalog(cfg.CatalogURL), loader
}

func newFilesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "files",
		Short: "List recordings",
		Args:  cobra.NoArgs,
		RunE:  runFilesCmd,
	}
}

func runFilesCmd(cmd *cobra.Command, _ []string) error {
	if _, err := loadFileConfig(cmd); err != nil {
		return err
	}
	cat, _ := newSource(model.Config{CatalogURL: sourceURL, CatalogDir: sourceDir}, zap.NewNop())
	names, err := cat.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list recordings: %w", err)
	}
	if len(names) == 0 {
		logErrln("No recordings found.")
		return nil
	}

	marked := map[string][]string{}
	if archived, err := listArchived(cmd.Context(), model.AnnotationFilter{}); err != nil {
		logErrf("failed to read archive: %v\n", err)
	} else {
		for _, a := range archived {
			marked[a.RecordingID] = append(marked[a.RecordingID], string(a.Artifact))
		}
	}
	for _, name := range names {
		line := name
		if kinds := marked[name]; len(kinds) > 0 {
			line += "\t" + strings.Join(kinds, ",")
		}
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), line); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func newShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <file>",
		Short: "Print a recording summary and plot",
		Args:  cobra.ExactArgs(1),
		RunE:  runShowCmd,
	}
	cmd.Flags().IntVar(&showHeight, "height", defaultShowHeight, "plot height in rows")
	cmd.Flags().IntVar(&showSmooth, "smooth", 1, "moving average window in samples")
	return cmd
}

func runShowCmd(cmd *cobra.Command, args []string) error {
	fileCfg, err := loadFileConfig(cmd)
	if err != nil {
		return err
	}
	if fileCfg.View.SmoothWindow != nil && !cmd.Flags().Changed("smooth") {
		showSmooth = *fileCfg.View.SmoothWindow
	}
	if showHeight <= 0 {
		return fmt.Errorf("--height must be > 0")
	}
	_, loader := newSource(model.Config{CatalogURL: sourceURL, CatalogDir: sourceDir}, zap.NewNop())
	rec, err := loader.Load(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", args[0], err)
	}
	return plot.RenderRecording(cmd.OutOrStdout(), rec, plot.Options{Height: showHeight}, showSmooth)
}

func newAnnotationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "annotations",
		Short: "Show archived annotations",
		Args:  cobra.NoArgs,
		RunE:  runAnnotationsCmd,
	}
	cmd.Flags().StringVar(&listFile, "file", "", "recording filter")
	cmd.Flags().StringVar(&listArtifact, "artifact", "", "artifact kind filter")
	cmd.Flags().BoolVar(&listExports, "exports", false, "list export history instead")
	return cmd
}

func runAnnotationsCmd(cmd *cobra.Command, _ []string) error {
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	out := cmd.OutOrStdout()
	if listExports {
		records, err := st.ListExports(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list exports: %w", err)
		}
		return printExports(out, records, time.Now())
	}
	annotations, err := st.ListAnnotations(cmd.Context(), model.AnnotationFilter{
		RecordingID: listFile,
		Artifact:    model.ArtifactKind(listArtifact),
	})
	if err != nil {
		return fmt.Errorf("failed to list annotations: %w", err)
	}
	return printAnnotations(out, annotations)
}

func printAnnotations(w io.Writer, annotations []model.Annotation) error {
	if len(annotations) == 0 {
		_, err := fmt.Fprintln(w, "No annotations found.")
		return err
	}
	rows := make([][]string, 0, len(annotations))
	for _, a := range annotations {
		rows = append(rows, export.Row(a))
	}
	for _, line := range plot.FormatTable(model.ExportColumns, rows, map[int]bool{2: true, 3: true}) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func printExports(w io.Writer, records []model.ExportRecord, now time.Time) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No exports found.")
		return err
	}
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.ID,
			humanize.RelTime(r.CreatedAt, now, "ago", "from now"),
			fmt.Sprintf("%d", r.Count),
			r.Path,
		})
	}
	for _, line := range plot.FormatTable([]string{"ID", "When", "Count", "Path"}, rows, map[int]bool{2: true}) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func listArchived(ctx context.Context, filter model.AnnotationFilter) ([]model.Annotation, error) {
	path := config.DefaultDBPath()
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			// Best-effort close for a read-only lookup.
			_ = cerr
		}
	}()
	return st.ListAnnotations(ctx, filter)
}

func newDemoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Write synthetic recordings",
		Args:  cobra.NoArgs,
		RunE:  runDemoCmd,
	}
	cmd.Flags().IntVar(&demoFiles, "files", defaultDemoFiles, "number of recordings")
	cmd.Flags().IntVar(&demoSamples, "samples", synth.DefaultOptions().Samples, "samples per recording")
	cmd.Flags().Int64Var(&demoSeed, "seed", defaultDemoSeed, "random seed")
	return cmd
}

func runDemoCmd(_ *cobra.Command, _ []string) error {
	dir := sourceDir
	if dir == "" {
		return fmt.Errorf("--dir is required")
	}
	if demoFiles <= 0 {
		return fmt.Errorf("--files must be > 0")
	}
	if demoSamples <= 0 {
		return fmt.Errorf("--samples must be > 0")
	}
	opts := synth.DefaultOptions()
	opts.Samples = demoSamples
	names, err := synth.New(demoSeed).WriteDir(dir, demoFiles, opts)
	if err != nil {
		return fmt.Errorf("failed to write demo recordings: %w", err)
	}
	for _, name := range names {
		logErrf("Wrote %s\n", filepath.Join(dir, name))
	}
	logErrf("Annotate with: segmark --dir %s\n", dir)
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

// loadFileConfig reads the config file and applies the [catalog] section,
// which every subcommand shares.
func loadFileConfig(cmd *cobra.Command) (config.FileConfig, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return config.FileConfig{}, fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "url", &sourceURL, fileCfg.Catalog.URL)
	applyStringConfig(cmd, "dir", &sourceDir, fileCfg.Catalog.Dir)
	return fileCfg, nil
}

func newLogger(fileCfg config.FileConfig) (*zap.Logger, error) {
	opts := logging.Options{Path: config.DefaultLogPath()}
	if fileCfg.Log.Path != nil {
		opts.Path = *fileCfg.Log.Path
	}
	if fileCfg.Log.Level != nil {
		opts.Level = *fileCfg.Log.Level
	}
	logger, err := logging.New(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}

func viewConfig(fileCfg config.FileConfig) model.ViewConfig {
	view := model.ViewConfig{
		DetailHeight:   defaultDetailHeight,
		OverviewHeight: defaultOverviewHeight,
		SmoothWindow:   defaultSmoothWindow,
	}
	if fileCfg.View.DetailHeight != nil {
		view.DetailHeight = *fileCfg.View.DetailHeight
	}
	if fileCfg.View.OverviewHeight != nil {
		view.OverviewHeight = *fileCfg.View.OverviewHeight
	}
	if fileCfg.View.SmoothWindow != nil {
		view.SmoothWindow = *fileCfg.View.SmoothWindow
	}
	return view
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applySliceConfig(cmd *cobra.Command, name string, target *[]string, value []string) {
	if len(value) == 0 {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = append([]string(nil), value...)
}

func parseArtifacts(raw []string) []model.ArtifactKind {
	out := make([]model.ArtifactKind, 0, len(raw))
	seen := map[string]struct{}{}
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, model.ArtifactKind(r))
	}
	return out
}

func artifactStrings(kinds []model.ArtifactKind) []string {
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = string(k)
	}
	return out
}

func validateConfig(cfg model.Config) error {
	if cfg.CatalogURL == "" && cfg.CatalogDir == "" {
		return fmt.Errorf("one of --url or --dir is required")
	}
	if len(cfg.Artifacts) == 0 {
		return fmt.Errorf("--artifacts must not be empty")
	}
	if len(cfg.Artifacts) > 9 {
		return fmt.Errorf("--artifacts supports at most 9 kinds, got %d", len(cfg.Artifacts))
	}
	for _, k := range cfg.Artifacts {
		if strings.ContainsAny(string(k), " ,\t\n\"") {
			return fmt.Errorf("invalid artifact kind %q", k)
		}
	}
	if cfg.ExportPath == "" {
		return fmt.Errorf("--export must not be empty")
	}
	if cfg.View.DetailHeight < 3 {
		return fmt.Errorf("view.detail-height must be >= 3")
	}
	if cfg.View.OverviewHeight < 1 {
		return fmt.Errorf("view.overview-height must be >= 1")
	}
	if cfg.View.SmoothWindow < 1 {
		return fmt.Errorf("view.smooth-window must be >= 1")
	}
	return nil
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# segmark configuration
# Uncomment a value to enable it. CLI flags override config values.

[catalog]
# url = %q   # Directory listing of recordings
# dir = ""                 # Local directory of recordings (overrides url)

[annotate]
# artifacts = [%s]   # Artifact kinds bound to keys 1-9

[export]
# path = %q

[view]
# detail-height = %d      # Rows of the detail plot
# overview-height = %d     # Rows of the overview plot
# smooth-window = %d       # Moving average window when smoothing is on

[log]
# level = "info"
# path = %q
`,
		defaultCatalogURL,
		quoteAll(artifactStrings(model.DefaultArtifacts())),
		config.DefaultExportPath(),
		defaultDetailHeight,
		defaultOverviewHeight,
		defaultSmoothWindow,
		config.DefaultLogPath(),
	)
}

func quoteAll(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = fmt.Sprintf("%q", v)
	}
	return strings.Join(quoted, ", ")
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
