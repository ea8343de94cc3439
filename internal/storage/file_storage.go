package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// LocalFileStorage manages output files inside a base directory
type LocalFileStorage struct {
	baseDir string
	logger  *zap.Logger
}

// NewLocalFileStorage creates a new LocalFileStorage
func NewLocalFileStorage(baseDir string, logger *zap.Logger) *LocalFileStorage {
	return &LocalFileStorage{
		baseDir: baseDir,
		logger:  logger,
	}
}

// Path returns the full path of name inside the base directory
func (s *LocalFileStorage) Path(name string) string {
	return filepath.Join(s.baseDir, filepath.Base(name))
}

// CopyFile copies src into the base directory as name, preserving the
// source modification time.
func (s *LocalFileStorage) CopyFile(src, name string) (string, error) {
	dst := s.Path(name)
	if err := s.ValidatePath(dst); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.baseDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directories: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("failed to open source: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("failed to create copy: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return "", fmt.Errorf("failed to copy file: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("failed to finish copy: %w", err)
	}

	if info, err := in.Stat(); err == nil {
		_ = os.Chtimes(dst, info.ModTime(), info.ModTime())
	}

	s.logger.Debug("File copied",
		zap.String("src", src),
		zap.String("dst", dst))
	return dst, nil
}

// WriteAtomic calls write with a temporary path in the base directory and,
// if it succeeds, renames the result over name. A failed write leaves any
// existing file untouched.
func (s *LocalFileStorage) WriteAtomic(name string, write func(tmpPath string) error) (string, error) {
	dst := s.Path(name)
	if err := s.ValidatePath(dst); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.baseDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directories: %w", err)
	}

	tmp, err := os.CreateTemp(s.baseDir, ".tmp-*"+filepath.Ext(name))
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := write(tmpPath); err != nil {
		return "", err
	}

	if err := os.Rename(tmpPath, dst); err != nil {
		s.logger.Error("Failed to replace file",
			zap.String("path", dst),
			zap.Error(err))
		return "", fmt.Errorf("failed to replace %s: %w", dst, err)
	}
	return dst, nil
}

// ValidatePath checks that the path is safe and within baseDir
func (s *LocalFileStorage) ValidatePath(fullPath string) error {
	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	absBase, err := filepath.Abs(s.baseDir)
	if err != nil {
		return fmt.Errorf("failed to resolve base path: %w", err)
	}

	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) && absPath != absBase {
		return fmt.Errorf("path escapes base directory: %s", fullPath)
	}

	return nil
}
