// Package fsutil provides the file and path helpers shared by the content tools.
package fsutil

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// File and directory permissions.
const (
	DirPermissions  = 0o750
	FilePermissions = 0o644
)

// Data size constants.
const (
	byteUnit = 1
	kilobyte = byteUnit * 1024
	megabyte = kilobyte * 1024
	gigabyte = megabyte * 1024
)

// Time and size formatting constants.
const (
	secondsInMinute = 60
	secondsInHour   = 3600
	formatSeconds   = "%.1fs"
	formatMinutes   = "%dm %.1fs"
	formatHours     = "%dh %dm"
	formatGB        = "%.1f GB"
	formatMB        = "%.1f MB"
	formatKB        = "%.1f KB"
	formatBytes     = "%d B"
)

const (
	errFmtFailedToCreateDir  = "failed to create directory %s: %w"
	errFmtFailedToStat       = "failed to stat %s: %w"
	errFmtFailedToCreateTemp = "failed to create temp file in %s: %w"
	errFmtFailedToRename     = "failed to move %s into place: %w"
	errFmtFailedToList       = "failed to list %s: %w"
	tempFilePattern          = ".partial-*"
)

// EnsureDir ensures a directory exists at the given path, creating it if it doesn't.
func EnsureDir(path string) error {
	err := os.MkdirAll(path, DirPermissions)
	if err != nil {
		return fmt.Errorf(errFmtFailedToCreateDir, path, err)
	}

	return nil
}

// Exists reports whether a regular file or directory exists at path.
// Errors other than "not found" are returned.
func Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}

	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}

	return false, fmt.Errorf(errFmtFailedToStat, path, err)
}

// WriteFileAtomic streams src into path through a temp file in the same
// directory, so readers never observe a partially written file. An existing
// file at path is replaced.
func WriteFileAtomic(path string, write func(w io.Writer) error) error {
	dir := filepath.Dir(path)

	tempFile, err := os.CreateTemp(dir, tempFilePattern)
	if err != nil {
		return fmt.Errorf(errFmtFailedToCreateTemp, dir, err)
	}

	tempName := tempFile.Name()

	writeErr := write(tempFile)
	closeErr := tempFile.Close()

	if writeErr != nil || closeErr != nil {
		_ = os.Remove(tempName)

		if writeErr != nil {
			return writeErr
		}

		return fmt.Errorf("failed to close %s: %w", tempName, closeErr)
	}

	err = os.Chmod(tempName, FilePermissions)
	if err != nil {
		_ = os.Remove(tempName)

		return fmt.Errorf("failed to set permissions on %s: %w", tempName, err)
	}

	err = os.Rename(tempName, path)
	if err != nil {
		_ = os.Remove(tempName)

		return fmt.Errorf(errFmtFailedToRename, path, err)
	}

	return nil
}

// WriteBytesAtomic writes data to path through WriteFileAtomic.
func WriteBytesAtomic(path string, data []byte) error {
	return WriteFileAtomic(path, func(w io.Writer) error {
		_, err := w.Write(data)
		if err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}

		return nil
	})
}

// ListByExtension returns the set of base names of the regular files in dir
// with the given extension. A missing directory yields an empty set.
func ListByExtension(dir, ext string) (map[string]struct{}, error) {
	names := make(map[string]struct{})

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return names, nil
		}

		return nil, fmt.Errorf(errFmtFailedToList, dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		if strings.EqualFold(filepath.Ext(entry.Name()), ext) {
			names[entry.Name()] = struct{}{}
		}
	}

	return names, nil
}

// SortedKeys returns the keys of a name set in lexical order.
func SortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}

// FormatDuration formats a duration in a human-readable string (e.g., "1h 15m", "5m
// 30.5s", "45.2s").
func FormatDuration(seconds float64) string {
	if seconds < secondsInMinute {
		return fmt.Sprintf(formatSeconds, seconds)
	}

	if seconds < secondsInHour {
		minutes := int(seconds / secondsInMinute)
		remainingSeconds := seconds - float64(minutes*secondsInMinute)

		return fmt.Sprintf(formatMinutes, minutes, remainingSeconds)
	}

	hours := int(seconds / secondsInHour)
	remainingSeconds := seconds - float64(hours*secondsInHour)
	remainingMinutes := int(remainingSeconds / secondsInMinute)

	return fmt.Sprintf(formatHours, hours, remainingMinutes)
}

// FormatFileSize formats a file size in a human-readable string (e.g., "1.2 GB", "500.5
// MB").
func FormatFileSize(bytes int64) string {
	switch {
	case bytes >= gigabyte:
		return fmt.Sprintf(formatGB, float64(bytes)/gigabyte)
	case bytes >= megabyte:
		return fmt.Sprintf(formatMB, float64(bytes)/megabyte)
	case bytes >= kilobyte:
		return fmt.Sprintf(formatKB, float64(bytes)/kilobyte)
	default:
		return fmt.Sprintf(formatBytes, bytes)
	}
}
