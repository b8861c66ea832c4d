package imaging

import (
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ImageCache holds decoded images keyed by file path.
//
// An entry is served only while the file's modification time and size match
// the ones recorded when it was decoded. A camera that rewrites the same path
// for every frame therefore gets a fresh decode on each Load, while trained
// patterns and static inspection images are decoded once.
//
// Cached images are shared; callers that mutate pixels must copy first (see
// Clone). ImageCache is safe for concurrent use.
//
//	cache := imaging.NewImageCache()
//	img, info, err := cache.LoadWithInfo("/captures/station1.png")
type ImageCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	img     image.Image
	modTime time.Time
	size    int64
}

// fresh reports whether the entry still describes the file behind stat.
func (e cacheEntry) fresh(stat os.FileInfo) bool {
	return e.size == stat.Size() && e.modTime.Equal(stat.ModTime())
}

// NewImageCache creates an empty cache.
func NewImageCache() *ImageCache {
	return &ImageCache{entries: make(map[string]cacheEntry)}
}

// Load returns the decoded image at path. Supported formats are PNG, JPEG and
// GIF. A file that has changed on disk since it was cached is decoded again.
// A file that can no longer be read is evicted and the error returned.
func (c *ImageCache) Load(path string) (image.Image, error) {
	img, _, err := c.load(path)
	return img, err
}

// LoadWithInfo returns the decoded image at path together with its metadata,
// from a single stat and at most one decode.
func (c *ImageCache) LoadWithInfo(path string) (image.Image, *ImageInfo, error) {
	img, stat, err := c.load(path)
	if err != nil {
		return nil, nil, err
	}
	return img, describe(img, path, stat.Size()), nil
}

func (c *ImageCache) load(path string) (image.Image, os.FileInfo, error) {
	stat, err := os.Stat(path)
	if err != nil {
		c.Evict(path)
		return nil, nil, fmt.Errorf("failed to open image: %w", err)
	}

	c.mu.RLock()
	e, ok := c.entries[path]
	c.mu.RUnlock()
	if ok && e.fresh(stat) {
		return e.img, stat, nil
	}

	img, err := decodeFile(path)
	if err != nil {
		c.Evict(path)
		return nil, nil, err
	}

	c.mu.Lock()
	c.entries[path] = cacheEntry{img: img, modTime: stat.ModTime(), size: stat.Size()}
	c.mu.Unlock()
	return img, stat, nil
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// Clear drops every cached image.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}

// Evict drops the entry for path, if any.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.entries, path)
	c.mu.Unlock()
}

// Len returns the number of cached images.
func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// ImageInfo describes a loaded image file.
type ImageInfo struct {
	Width  int `json:"width"`
	Height int `json:"height"`

	// Format is "png", "jpeg", "gif" or "unknown", taken from the extension.
	Format string `json:"format"`

	// ColorDepth is "8-bit" or "16-bit" per channel.
	ColorDepth string `json:"color_depth"`

	HasAlpha      bool  `json:"has_alpha"`
	FileSizeBytes int64 `json:"file_size_bytes"`
}

func describe(img image.Image, path string, size int64) *ImageInfo {
	info := &ImageInfo{
		Width:         img.Bounds().Dx(),
		Height:        img.Bounds().Dy(),
		Format:        "unknown",
		ColorDepth:    "8-bit",
		FileSizeBytes: size,
	}

	switch filepath.Ext(path) {
	case ".png":
		info.Format = "png"
	case ".jpg", ".jpeg":
		info.Format = "jpeg"
	case ".gif":
		info.Format = "gif"
	}

	switch img.(type) {
	case *image.RGBA, *image.NRGBA:
		info.HasAlpha = true
	case *image.RGBA64, *image.NRGBA64:
		info.HasAlpha = true
		info.ColorDepth = "16-bit"
	case *image.Gray16:
		info.ColorDepth = "16-bit"
	}
	return info
}
