package main

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/bodgit/sevenzip"
	"github.com/disintegration/imaging"
	"github.com/h2non/filetype"
	"github.com/nwaples/rardecode"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/singleflight"
)

// Loader errors
var (
	ErrNoSource = errors.New("page has no image source")
	ErrNotImage = errors.New("not an image")
)

type ImagePath struct {
	Path        string // Local file path or archive:entry format
	ArchivePath string // Empty for regular files, path to archive for entries
	EntryPath   string // Empty for regular files, path within archive for entries
}

// ImageLoader loads the image behind a page source. sized is called with
// the natural dimensions as soon as they are known, before full decode.
type ImageLoader interface {
	Load(ctx context.Context, src string, sized func(w, h int)) (image.Image, error)
}

// FileLoader loads images from plain files and archive entries
type FileLoader struct {
	group  singleflight.Group
	logger *zap.Logger
}

// NewFileLoader creates a loader for local files and archives
func NewFileLoader(logger *zap.Logger) *FileLoader {
	return &FileLoader{logger: logger.Named("loader")}
}

type loadResult struct {
	img image.Image
}

// Load reads, sniffs and decodes src. Concurrent loads of the same
// source share one read. The shared read outlives a cancelled caller so
// the others still get the image.
func (l *FileLoader) Load(ctx context.Context, src string, sized func(w, h int)) (image.Image, error) {
	if src == "" {
		return nil, ErrNoSource
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var reported atomic.Bool
	ch := l.group.DoChan(src, func() (any, error) {
		img, err := l.load(src, func(w, h int) {
			if ctx.Err() != nil {
				return
			}
			reported.Store(true)
			if sized != nil {
				sized(w, h)
			}
		})
		if err != nil {
			return nil, err
		}
		return loadResult{img: img}, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if res.Err != nil {
		l.logger.Debug("Load failed", zap.String("src", src), zap.Error(res.Err))
		return nil, res.Err
	}
	if res.Shared {
		l.logger.Debug("Load shared", zap.String("src", src))
	}

	img := res.Val.(loadResult).img
	if !reported.Load() && sized != nil {
		b := img.Bounds()
		sized(b.Dx(), b.Dy())
	}
	return img, nil
}

func (l *FileLoader) load(src string, sized func(w, h int)) (image.Image, error) {
	data, err := readImageBytes(parseImagePath(src))
	if err != nil {
		return nil, err
	}
	if !filetype.IsImage(data) {
		return nil, fmt.Errorf("%w: %s", ErrNotImage, src)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", src, err)
	}
	sized(cfg.Width, cfg.Height)

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", src, err)
	}
	return img, nil
}

// ThumbnailLoader scales images from another loader down to a fixed height
type ThumbnailLoader struct {
	inner  ImageLoader
	height int
}

// NewThumbnailLoader wraps inner so every image is at most height pixels tall
func NewThumbnailLoader(inner ImageLoader, height int) *ThumbnailLoader {
	if height <= 0 {
		height = defaultThumbHeight
	}
	return &ThumbnailLoader{inner: inner, height: height}
}

func (t *ThumbnailLoader) Load(ctx context.Context, src string, sized func(w, h int)) (image.Image, error) {
	img, err := t.inner.Load(ctx, src, nil)
	if err != nil {
		return nil, err
	}

	if img.Bounds().Dy() > t.height {
		img = imaging.Resize(img, 0, t.height, imaging.Lanczos)
	}
	if sized != nil {
		b := img.Bounds()
		sized(b.Dx(), b.Dy())
	}
	return img, nil
}

// parseImagePath splits "book.zip:001.png" style sources into archive and entry
func parseImagePath(src string) ImagePath {
	lower := strings.ToLower(src)
	for _, ext := range []string{".zip:", ".rar:", ".7z:"} {
		if i := strings.Index(lower, ext); i >= 0 {
			split := i + len(ext) - 1
			return ImagePath{
				Path:        src,
				ArchivePath: src[:split],
				EntryPath:   src[split+1:],
			}
		}
	}
	return ImagePath{Path: src}
}

func readImageBytes(imagePath ImagePath) ([]byte, error) {
	if imagePath.ArchivePath == "" {
		return os.ReadFile(imagePath.Path)
	}

	ext := strings.ToLower(filepath.Ext(imagePath.ArchivePath))
	switch ext {
	case ".zip":
		return readFromZip(imagePath.ArchivePath, imagePath.EntryPath)
	case ".rar":
		return readFromRar(imagePath.ArchivePath, imagePath.EntryPath)
	case ".7z":
		return readFrom7z(imagePath.ArchivePath, imagePath.EntryPath)
	default:
		return nil, fmt.Errorf("unsupported archive format: %s", ext)
	}
}

func readFromZip(archivePath, entryPath string) ([]byte, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	for _, f := range r.File {
		if f.Name == entryPath {
			rc, err := f.Open()
			if err != nil {
				return nil, err
			}
			defer rc.Close()
			return io.ReadAll(rc)
		}
	}
	return nil, fmt.Errorf("entry %s not found in %s", entryPath, archivePath)
}

func readFromRar(archivePath, entryPath string) ([]byte, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, err := rardecode.NewReader(f, "")
	if err != nil {
		return nil, err
	}

	for {
		header, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if header.Name == entryPath {
			return io.ReadAll(r)
		}
	}
	return nil, fmt.Errorf("entry %s not found in %s", entryPath, archivePath)
}

func readFrom7z(archivePath, entryPath string) ([]byte, error) {
	r, err := sevenzip.OpenReader(archivePath)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	for _, f := range r.File {
		if f.Name == entryPath {
			rc, err := f.Open()
			if err != nil {
				return nil, err
			}
			defer rc.Close()
			return io.ReadAll(rc)
		}
	}
	return nil, fmt.Errorf("entry %s not found in %s", entryPath, archivePath)
}

func isArchiveExt(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".zip", ".rar", ".7z":
		return true
	default:
		return false
	}
}

func isSupportedExt(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".webp", ".bmp", ".gif":
		return true
	default:
		return false
	}
}

// File collection functions

func listZipEntries(archivePath string) ([]ImagePath, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var images []ImagePath
	for _, f := range r.File {
		if !f.FileInfo().IsDir() && isSupportedExt(f.Name) {
			images = append(images, archiveEntry(archivePath, f.Name))
		}
	}
	return images, nil
}

func listRarEntries(archivePath string) ([]ImagePath, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, err := rardecode.NewReader(f, "")
	if err != nil {
		return nil, err
	}

	var images []ImagePath
	for {
		header, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if !header.IsDir && isSupportedExt(header.Name) {
			images = append(images, archiveEntry(archivePath, header.Name))
		}
	}
	return images, nil
}

func list7zEntries(archivePath string) ([]ImagePath, error) {
	r, err := sevenzip.OpenReader(archivePath)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var images []ImagePath
	for _, f := range r.File {
		if !f.FileInfo().IsDir() && isSupportedExt(f.Name) {
			images = append(images, archiveEntry(archivePath, f.Name))
		}
	}
	return images, nil
}

func archiveEntry(archivePath, entry string) ImagePath {
	return ImagePath{
		Path:        archivePath + ":" + entry,
		ArchivePath: archivePath,
		EntryPath:   entry,
	}
}

func processArchive(archivePath string) ([]ImagePath, error) {
	ext := strings.ToLower(filepath.Ext(archivePath))
	switch ext {
	case ".zip":
		return listZipEntries(archivePath)
	case ".rar":
		return listRarEntries(archivePath)
	case ".7z":
		return list7zEntries(archivePath)
	default:
		return nil, fmt.Errorf("unsupported archive format: %s", ext)
	}
}

// sortImagePaths returns images in the configured page order
func sortImagePaths(images []ImagePath, sortMethod int) []ImagePath {
	return PageOrderFor(sortMethod).Sort(images)
}

// collectImages expands files, directories and archives into an ordered
// image list. Broken archives are skipped; their errors are combined and
// returned alongside whatever could be collected.
func collectImages(args []string, sortMethod int) ([]ImagePath, error) {
	var (
		list    []ImagePath
		skipped error
	)

	addArchive := func(dst []ImagePath, path string) []ImagePath {
		entries, err := processArchive(path)
		if err != nil {
			multierr.AppendInto(&skipped, fmt.Errorf("archive %s: %w", path, err))
			return dst
		}
		return append(dst, sortImagePaths(entries, sortMethod)...)
	}

	for _, p := range args {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			switch {
			case isSupportedExt(p):
				list = append(list, ImagePath{Path: p})
			case isArchiveExt(p):
				list = addArchive(list, p)
			}
			continue
		}

		var dirImages []ImagePath
		err = filepath.Walk(p, func(path string, fi os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if fi.IsDir() {
				return nil
			}
			if isSupportedExt(path) {
				dirImages = append(dirImages, ImagePath{Path: path})
			} else if isArchiveExt(path) {
				dirImages = addArchive(dirImages, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		list = append(list, sortImagePaths(dirImages, sortMethod)...)
	}

	return list, skipped
}
