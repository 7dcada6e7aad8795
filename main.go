package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// ErrNoInput is returned when neither paths nor a document were given
var ErrNoInput = errors.New("no input specified")

type cliOptions struct {
	configPath string
	format     string
	direction  string
	title      string
	spread     int
	view       string
	language   string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &cliOptions{}
	root := &cobra.Command{
		Use:          appName + " [paths...]",
		Short:        "Read manga from image files, directories and archives",
		Long:         "Opens the given images, directories and zip/rar/7z archives as one manga,\nor a JSON manga document with --format json.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReader(opts, args)
		},
	}

	f := root.PersistentFlags()
	f.StringVarP(&opts.configPath, "config", "c", "", "configuration file (default ~/"+configFileName+")")
	f.StringVar(&opts.format, "format", FormatPaths, "input format: paths or json")
	f.StringVarP(&opts.direction, "direction", "d", "", "reading direction: ltr or rtl")
	f.StringVarP(&opts.title, "title", "t", "", "title shown in the window and the chrome")
	f.IntVarP(&opts.spread, "spread", "s", 0, "pages per pane: 1 or 2")
	f.StringVar(&opts.view, "view", "", "view mode: pagefit, pagewidth or panel")
	f.StringVarP(&opts.language, "language", "l", "", "interface language")

	root.AddCommand(newPreloadCommand(opts))
	return root
}

func newPreloadCommand(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "preload [paths...]",
		Short: "Decode every page and thumbnail without opening a window",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPreload(cmd.Context(), opts, cmd.OutOrStdout(), args)
		},
	}
}

// loadSettings reads the configuration file and prepares the logger
func loadSettings(opts *cliOptions) (ConfigLoadResult, *zap.Logger, error) {
	var result ConfigLoadResult
	if opts.configPath != "" {
		result = loadConfigFromPath(opts.configPath)
	} else {
		result = loadConfig()
	}

	logger, err := result.Config.Logging.Prepare()
	if err != nil {
		return result, nil, fmt.Errorf("unable to prepare logging: %w", err)
	}
	for _, w := range result.Warnings {
		logger.Warn("Configuration problem", zap.String("status", result.Status), zap.String("detail", w))
	}
	return result, logger, nil
}

// loadManga builds an unfrozen manga from the command line input
func loadManga(opts *cliOptions, args []string, cfg Config, logger *zap.Logger) (*Manga, error) {
	var data []byte
	switch opts.format {
	case FormatJSON:
		if len(args) != 1 {
			return nil, fmt.Errorf("%s format expects one document, got %d", FormatJSON, len(args))
		}
		var err error
		if args[0] == "-" {
			data, err = io.ReadAll(os.Stdin)
		} else {
			data, err = os.ReadFile(args[0])
		}
		if err != nil {
			return nil, fmt.Errorf("unable to read manga document: %w", err)
		}
	default:
		if len(args) == 0 {
			return nil, ErrNoInput
		}
		data = []byte(strings.Join(args, "\n"))
	}

	reg := NewExtractorRegistry(ExtractorOptions{
		SortMethod:     cfg.SortMethod,
		LeadingSingles: cfg.LeadingSingles,
		Logger:         logger,
	})
	m := NewManga()
	m.ThumbHeight = cfg.ThumbHeight
	if cfg.RightToLeft {
		m.Direction = RightToLeft
	}
	if err := m.ExtractData(reg, opts.format, data); err != nil {
		return nil, err
	}

	if opts.direction != "" {
		d, err := ParseDirection(opts.direction)
		if err != nil {
			return nil, err
		}
		m.Direction = d
	}
	if opts.title != "" {
		m.Title = opts.title
	}
	if m.Pages.Len() == 0 {
		return nil, ErrEmptyManga
	}
	return m, nil
}

// envLanguage reads the locale from the usual environment variables and
// turns it into a language tag ("ja_JP.UTF-8" becomes "ja-JP").
func envLanguage() string {
	for _, name := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		v := os.Getenv(name)
		if v == "" || v == "C" || v == "POSIX" {
			continue
		}
		if i := strings.IndexAny(v, ".@"); i >= 0 {
			v = v[:i]
		}
		return strings.ReplaceAll(v, "_", "-")
	}
	return ""
}

func millis(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}

func runReader(opts *cliOptions, args []string) error {
	result, logger, err := loadSettings(opts)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	cfg := result.Config

	m, err := loadManga(opts, args, cfg, logger)
	if err != nil {
		logger.Error("Unable to open manga", zap.Error(err))
		return err
	}

	spread := cfg.PageSpread
	if opts.spread != 0 {
		spread = opts.spread
	}
	mode, err := ParseViewMode(cfg.ViewMode)
	if opts.view != "" {
		mode, err = ParseViewMode(opts.view)
	}
	if err != nil {
		return err
	}
	lang := opts.language
	if lang == "" {
		lang = cfg.Language
	}
	if lang == "" {
		lang = envLanguage()
	}

	loop := NewLoop()
	tr, err := NewI18n(logger)
	if err != nil {
		return fmt.Errorf("unable to load translations: %w", err)
	}
	window := NewWindowFullscreen()
	ui, err := NewReaderInterface(loop, tr, window, logger)
	if err != nil {
		return err
	}
	vp := NewViewport(DetectSupports(cfg), ViewportOptions{
		Loop:         loop,
		ReadyTimeout: millis(cfg.ReadyTimeoutMS),
		Logger:       logger,
	})
	images := NewFileLoader(logger)

	performer, err := NewPerformer(PerformerOptions{
		Viewport:    vp,
		UI:          ui,
		Loop:        loop,
		Fullscreen:  window,
		I18n:        tr,
		Images:      images,
		Thumbs:      NewThumbnailLoader(images, m.ThumbHeight),
		Concurrency: cfg.PreloadConcurrency,
		Retain:      cfg.CacheSize,
		PageSpread:  spread,
		ViewMode:    mode,
		Language:    lang,
		Logger:      logger,
	})
	if err != nil {
		return err
	}
	defer performer.Stop()

	g, err := NewGame(GameOptions{
		Performer: performer,
		Config:    result,
		Loop:      loop,
		I18n:      tr,
		Window:    window,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	if err := performer.Play(m); err != nil {
		return err
	}

	title := appName
	if m.Title != "" {
		title = m.Title + " - " + appName
	}
	ebiten.SetWindowTitle(title)
	ebiten.SetWindowSize(cfg.WindowWidth, cfg.WindowHeight)
	ebiten.SetWindowSizeLimits(minWidth, minHeight, -1, -1)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetFullscreen(cfg.Fullscreen)

	logger.Info("Reading", zap.String("title", m.Title), zap.Int("pages", m.Pages.Len()),
		zap.Stringer("direction", m.Direction), zap.String("viewport", vp.Name()))

	if err := ebiten.RunGame(g); err != nil && !errors.Is(err, ebiten.Termination) {
		logger.Error("Game loop failed", zap.Error(err))
		return err
	}
	return nil
}

// runPreload decodes the whole manga in the background tracks and reports
// the pages and thumbnails that failed.
func runPreload(ctx context.Context, opts *cliOptions, out io.Writer, args []string) error {
	result, logger, err := loadSettings(opts)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	cfg := result.Config

	m, err := loadManga(opts, args, cfg, logger)
	if err != nil {
		logger.Error("Unable to open manga", zap.Error(err))
		return err
	}
	m.Freeze()

	images := NewFileLoader(logger)
	pre := m.Preloader(PreloaderOptions{
		Images:      images,
		Thumbs:      NewThumbnailLoader(images, m.ThumbHeight),
		Concurrency: cfg.PreloadConcurrency,
		Retain:      cfg.CacheSize,
		Logger:      logger,
	})
	defer pre.Stop()

	total := m.Pages.Len()
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetDescription("Preloading"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	done := make(chan struct{})
	var once sync.Once
	pre.OnProgress.On(func(p Progress) {
		_ = bar.Set(p.Finished)
		if p.Finished >= p.Total {
			once.Do(func() { close(done) })
		}
	})

	start := time.Now()
	pre.Preload()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	_ = bar.Finish()

	var failedPages, failedThumbs int
	for _, page := range m.Pages.All() {
		if err := pre.ImageErr(page); err != nil {
			failedPages++
			logger.Warn("Page failed to load", zap.String("src", page.Src), zap.Error(err))
		}
		h := pre.Thumb(page, m.ThumbHeight)
		select {
		case <-h.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
		if err := h.Err(); err != nil {
			failedThumbs++
			logger.Warn("Thumbnail failed to load", zap.String("src", page.Src), zap.Error(err))
		}
	}

	fmt.Fprintf(out, "%d pages preloaded in %s (%d failed, %d thumbnails failed)\n",
		total, time.Since(start).Round(time.Millisecond), failedPages, failedThumbs)
	if failedPages > 0 {
		return fmt.Errorf("%d of %d pages failed to load", failedPages, total)
	}
	return nil
}
