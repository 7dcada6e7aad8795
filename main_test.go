package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeBook(t *testing.T, n int) string {
	t.Helper()
	book := filepath.Join(t.TempDir(), "Book")
	for i := 0; i < n; i++ {
		writePNG(t, book, string(rune('a'+i))+".png", 4, 6)
	}
	return book
}

func TestLoadMangaPaths(t *testing.T) {
	book := writeBook(t, 3)
	cfg := DefaultConfig()

	m, err := loadManga(&cliOptions{format: FormatPaths}, []string{book}, cfg, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, m.Frozen())
	assert.Equal(t, "Book", m.Title)
	assert.Equal(t, 3, m.Pages.Len())
	assert.Equal(t, LeftToRight, m.Direction)
	assert.Equal(t, cfg.ThumbHeight, m.ThumbHeight)

	t.Run("overrides", func(t *testing.T) {
		opts := &cliOptions{format: FormatPaths, direction: "rtl", title: "Renamed"}
		m, err := loadManga(opts, []string{book}, cfg, zap.NewNop())
		require.NoError(t, err)
		assert.Equal(t, RightToLeft, m.Direction)
		assert.Equal(t, "Renamed", m.Title)
	})

	t.Run("configured direction", func(t *testing.T) {
		rtl := cfg
		rtl.RightToLeft = true
		m, err := loadManga(&cliOptions{format: FormatPaths}, []string{book}, rtl, zap.NewNop())
		require.NoError(t, err)
		assert.True(t, m.RTL())
	})

	t.Run("bad direction", func(t *testing.T) {
		_, err := loadManga(&cliOptions{format: FormatPaths, direction: "up"}, []string{book}, cfg, zap.NewNop())
		assert.Error(t, err)
	})

	t.Run("no input", func(t *testing.T) {
		_, err := loadManga(&cliOptions{format: FormatPaths}, nil, cfg, zap.NewNop())
		assert.ErrorIs(t, err, ErrNoInput)
	})

	t.Run("no images", func(t *testing.T) {
		_, err := loadManga(&cliOptions{format: FormatPaths}, []string{t.TempDir()}, cfg, zap.NewNop())
		assert.ErrorIs(t, err, ErrEmptyManga)
	})
}

func TestLoadMangaJSON(t *testing.T) {
	book := writeBook(t, 2)
	doc := filepath.Join(t.TempDir(), "manga.json")
	require.NoError(t, os.WriteFile(doc, []byte(`{
		"dir": "`+filepath.ToSlash(book)+`",
		"title": "From JSON",
		"pages": [{"src": "a.png"}, {"src": "b.png"}]
	}`), 0o644))
	cfg := DefaultConfig()

	m, err := loadManga(&cliOptions{format: FormatJSON}, []string{doc}, cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "From JSON", m.Title)
	require.Equal(t, 2, m.Pages.Len())
	assert.Equal(t, filepath.Join(book, "a.png"), filepath.FromSlash(m.Pages.At(0).Src))

	_, err = loadManga(&cliOptions{format: FormatJSON}, []string{doc, doc}, cfg, zap.NewNop())
	assert.Error(t, err)

	_, err = loadManga(&cliOptions{format: FormatJSON}, []string{filepath.Join(t.TempDir(), "missing.json")}, cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestEnvLanguage(t *testing.T) {
	tests := []struct {
		name                string
		all, messages, lang string
		want                string
	}{
		{"lang", "", "", "ja_JP.UTF-8", "ja-JP"},
		{"lc_all wins", "fr_FR@euro", "de_DE", "ja_JP", "fr-FR"},
		{"messages", "", "en_GB.UTF-8", "ja_JP", "en-GB"},
		{"posix is skipped", "C", "", "pt_BR", "pt-BR"},
		{"unset", "", "", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("LC_ALL", tt.all)
			t.Setenv("LC_MESSAGES", tt.messages)
			t.Setenv("LANG", tt.lang)
			assert.Equal(t, tt.want, envLanguage())
		})
	}
}

func TestRootCommandFlags(t *testing.T) {
	cmd := newRootCommand()
	require.NoError(t, cmd.ParseFlags([]string{"-d", "rtl", "--spread", "2", "--view", "panel", "-l", "ja"}))

	f := cmd.PersistentFlags()
	dir, err := f.GetString("direction")
	require.NoError(t, err)
	assert.Equal(t, "rtl", dir)
	spread, err := f.GetInt("spread")
	require.NoError(t, err)
	assert.Equal(t, 2, spread)
	format, err := f.GetString("format")
	require.NoError(t, err)
	assert.Equal(t, FormatPaths, format)

	sub, _, err := cmd.Find([]string{"preload"})
	require.NoError(t, err)
	assert.Equal(t, "preload", sub.Name())
}

func TestRunPreload(t *testing.T) {
	opts := &cliOptions{
		configPath: filepath.Join(t.TempDir(), "missing.yaml"),
		format:     FormatPaths,
	}

	t.Run("all pages", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, runPreload(context.Background(), opts, &out, []string{writeBook(t, 3)}))
		assert.Contains(t, out.String(), "3 pages preloaded")
		assert.Contains(t, out.String(), "(0 failed, 0 thumbnails failed)")
	})

	t.Run("broken page", func(t *testing.T) {
		book := writeBook(t, 2)
		require.NoError(t, os.WriteFile(filepath.Join(book, "c.png"), []byte("not a png"), 0o644))

		var out bytes.Buffer
		err := runPreload(context.Background(), opts, &out, []string{book})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "1 of 3 pages failed")
		assert.Contains(t, out.String(), "(1 failed, 1 thumbnails failed)")
	})
}
