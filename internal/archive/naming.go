package archive

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"
)

const (
	stickerSuffix = "_sticker.png"
	thumbSuffix   = "_thumb.png"
	archivePrefix = "stickers_"
)

// StickerFilename maps a source name such as "photos/cat.final.png" to
// "cat.final_sticker.png".
func StickerFilename(source string) string {
	return stem(source) + stickerSuffix
}

// ThumbnailFilename is StickerFilename for preview thumbnails.
func ThumbnailFilename(source string) string {
	return stem(source) + thumbSuffix
}

func stem(source string) string {
	base := path.Base(strings.ReplaceAll(filepath.ToSlash(source), `\`, "/"))
	if base == "." || base == "/" {
		base = ""
	}
	if i := strings.LastIndex(base, "."); i > 0 {
		base = base[:i]
	}
	if base == "" {
		base = "image"
	}
	return base
}

// ArchiveName is the date stamped container name for a run at t (UTC date).
func ArchiveName(t time.Time) string {
	return archivePrefix + t.UTC().Format("2006-01-02") + ".zip"
}

// UniqueNames returns names with collisions disambiguated by a numeric suffix
// before the extension: a.png, a_2.png, a_3.png. Order is preserved and a
// generated name never shadows a name that appears later in the list.
func UniqueNames(names []string) []string {
	reserved := make(map[string]bool, len(names))
	for _, n := range names {
		reserved[n] = true
	}
	used := make(map[string]bool, len(names))
	out := make([]string, len(names))
	for i, n := range names {
		if !used[n] {
			used[n] = true
			out[i] = n
			continue
		}
		ext := path.Ext(n)
		stem := strings.TrimSuffix(n, ext)
		for k := 2; ; k++ {
			candidate := fmt.Sprintf("%s_%d%s", stem, k, ext)
			if used[candidate] || reserved[candidate] {
				continue
			}
			used[candidate] = true
			out[i] = candidate
			break
		}
	}
	return out
}
