package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// SpreadsheetExtensions are the download extensions the export watcher
// recognizes, lower case with leading dot.
var SpreadsheetExtensions = []string{".xls", ".xlsx", ".csv"}

// Snapshot is the set of file names present in a directory at one moment
type Snapshot map[string]struct{}

// StagingDir is the directory the browser downloads into. The pipeline
// assumes it is the only writer while a run is in progress.
type StagingDir struct {
	dir    string
	logger *zap.Logger
}

// NewStagingDir creates a StagingDir rooted at dir
func NewStagingDir(dir string, logger *zap.Logger) *StagingDir {
	return &StagingDir{
		dir:    dir,
		logger: logger,
	}
}

// Path returns the full path of name inside the directory
func (s *StagingDir) Path(name string) string {
	return filepath.Join(s.dir, filepath.Base(name))
}

// Ensure creates the directory if it does not exist
func (s *StagingDir) Ensure() error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	return nil
}

// Snapshot lists the file names currently in the directory
func (s *StagingDir) Snapshot() (Snapshot, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list staging directory: %w", err)
	}

	snap := make(Snapshot, len(entries))
	for _, e := range entries {
		snap[e.Name()] = struct{}{}
	}
	return snap, nil
}

// NewFiles returns full paths of regular files not present in before
// whose extension is one of exts (case-insensitive).
func (s *StagingDir) NewFiles(before Snapshot, exts []string) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list staging directory: %w", err)
	}

	var found []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, seen := before[e.Name()]; seen {
			continue
		}
		if !HasExtension(e.Name(), exts) {
			continue
		}
		found = append(found, filepath.Join(s.dir, e.Name()))
	}
	return found, nil
}

// Newest returns the most recently modified of paths. Paths that vanish
// between listing and stat are skipped.
func (s *StagingDir) Newest(paths []string) (string, error) {
	var newest string
	var newestInfo os.FileInfo

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			s.logger.Debug("Skipping file that disappeared", zap.String("path", p), zap.Error(err))
			continue
		}
		if newestInfo == nil || info.ModTime().After(newestInfo.ModTime()) {
			newest, newestInfo = p, info
		}
	}

	if newest == "" {
		return "", fmt.Errorf("none of %d candidate files could be read", len(paths))
	}
	return newest, nil
}

// RemoveIfExists deletes a file in the directory; a missing file is not an error
func (s *StagingDir) RemoveIfExists(name string) error {
	path := s.Path(name)
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		s.logger.Error("Failed to remove staging file",
			zap.String("path", path),
			zap.Error(err))
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}

	s.logger.Info("Removed existing staging file", zap.String("path", path))
	return nil
}

// HasExtension reports whether name ends in one of exts, ignoring case
func HasExtension(name string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range exts {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}
