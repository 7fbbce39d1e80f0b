package fileutil

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

var ImageExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true,
	".webp": true, ".gif": true, ".svg": true,
}

var VideoExts = map[string]bool{
	".mp4": true, ".webm": true,
}

// Ext returns the lowercased extension of path, including the dot.
func Ext(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

func IsImage(path string) bool {
	return ImageExts[Ext(path)]
}

func IsVideo(path string) bool {
	return VideoExts[Ext(path)]
}

// IsMedia reports whether path is an image or a video the site can embed.
func IsMedia(path string) bool {
	return IsImage(path) || IsVideo(path)
}

func IsMd(path string) bool {
	return Ext(path) == ".md"
}

// IsWatched reports whether a change to path can affect the built site.
func IsWatched(path string) bool {
	return IsMd(path) || IsMedia(path)
}

func HashFile(fs afero.Fs, path string) (string, error) {
	f, err := fs.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// FileExists reports whether path exists and is a regular file.
func FileExists(fs afero.Fs, path string) bool {
	info, err := fs.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}
