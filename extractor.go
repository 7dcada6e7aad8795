package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
)

var (
	ErrNilExtractor     = errors.New("extractor is nil")
	ErrUnknownExtractor = errors.New("unknown extractor")
	ErrBadPairIndex     = errors.New("pair refers to a missing page")
)

// Built-in extractor formats
const (
	FormatJSON  = "json"
	FormatPaths = "paths"
)

// Extractor fills an unfrozen manga from raw data
type Extractor func(m *Manga, data []byte) error

// ExtractorOptions configure the built-in extractors
type ExtractorOptions struct {
	SortMethod     int
	LeadingSingles int
	Logger         *zap.Logger
}

// ExtractorRegistry maps format names to extractors
type ExtractorRegistry struct {
	mu         sync.RWMutex
	extractors map[string]Extractor
	opts       ExtractorOptions
	logger     *zap.Logger
}

// NewExtractorRegistry creates a registry with the json and paths formats
func NewExtractorRegistry(opts ExtractorOptions) *ExtractorRegistry {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	r := &ExtractorRegistry{
		extractors: map[string]Extractor{},
		opts:       opts,
		logger:     opts.Logger.Named("extractor"),
	}
	r.extractors[FormatJSON] = r.extractJSON
	r.extractors[FormatPaths] = r.extractPaths
	return r
}

// Register adds or replaces the extractor for format
func (r *ExtractorRegistry) Register(format string, fn Extractor) error {
	if fn == nil {
		return fmt.Errorf("%w: %s", ErrNilExtractor, format)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.extractors[format] = fn
	return nil
}

// Formats lists the registered format names
func (r *ExtractorRegistry) Formats() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	formats := make([]string, 0, len(r.extractors))
	for f := range r.extractors {
		formats = append(formats, f)
	}
	return formats
}

// Extract runs the extractor registered for format against m
func (r *ExtractorRegistry) Extract(m *Manga, format string, data []byte) error {
	r.mu.RLock()
	fn, ok := r.extractors[format]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownExtractor, format)
	}
	if m.Frozen() {
		return ErrFrozen
	}
	if err := fn(m, data); err != nil {
		return fmt.Errorf("extract %s: %w", format, err)
	}
	return nil
}

// ExtractData fills the manga with the extractor registered for format
func (m *Manga) ExtractData(reg *ExtractorRegistry, format string, data []byte) error {
	return reg.Extract(m, format, data)
}

type jsonPage struct {
	Src   string `json:"src"`
	Thumb string `json:"thumb"`
	Num   *int   `json:"num"`
}

type jsonManga struct {
	Dir         string     `json:"dir"`
	Title       string     `json:"title"`
	Direction   string     `json:"direction"`
	ThumbHeight int        `json:"thumbHeight"`
	Pages       []jsonPage `json:"pages"`
	Pairs       [][]int    `json:"pairs"`
}

func (r *ExtractorRegistry) extractJSON(m *Manga, data []byte) error {
	var doc jsonManga
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}

	if doc.Direction != "" {
		dir, err := ParseDirection(doc.Direction)
		if err != nil {
			return err
		}
		m.Direction = dir
	}
	if doc.Title != "" {
		m.Title = doc.Title
	}
	if doc.ThumbHeight > 0 {
		m.ThumbHeight = doc.ThumbHeight
	}

	resolve := func(src string) string {
		if src == "" || doc.Dir == "" || path.IsAbs(src) || strings.Contains(src, "://") {
			return src
		}
		return path.Join(doc.Dir, src)
	}

	pages := make([]*Page, 0, len(doc.Pages))
	for _, jp := range doc.Pages {
		p := NewPage(resolve(jp.Src), resolve(jp.Thumb))
		p.Num = jp.Num
		if err := m.Pages.Add(p); err != nil {
			return err
		}
		pages = append(pages, p)
	}

	if doc.Pairs == nil {
		return addPairs(m, PairPages(pages, r.opts.LeadingSingles))
	}
	for _, idxs := range doc.Pairs {
		pp, err := NewPagePair()
		if err != nil {
			return err
		}
		for _, i := range idxs {
			if i < 0 || i >= len(pages) {
				return fmt.Errorf("%w: %d", ErrBadPairIndex, i)
			}
			if err := pp.Add(pages[i]); err != nil {
				return err
			}
		}
		if err := m.Pairs.Add(pp); err != nil {
			return err
		}
	}
	return nil
}

// extractPaths reads one path per line; blank lines are ignored
func (r *ExtractorRegistry) extractPaths(m *Manga, data []byte) error {
	var args []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			args = append(args, line)
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}

	images, err := collectImages(args, r.opts.SortMethod)
	if images == nil && err != nil {
		return err
	}
	if err != nil {
		r.logger.Warn("Some sources were skipped", zap.Error(err))
	}

	pages := make([]*Page, 0, len(images))
	for _, img := range images {
		p := NewPage(img.Path, "")
		if err := m.Pages.Add(p); err != nil {
			return err
		}
		pages = append(pages, p)
	}
	if m.Title == "" && len(args) == 1 {
		m.Title = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
	}
	return addPairs(m, PairPages(pages, r.opts.LeadingSingles))
}

func addPairs(m *Manga, pairs []*PagePair) error {
	for _, pp := range pairs {
		if err := m.Pairs.Add(pp); err != nil {
			return err
		}
	}
	return nil
}
