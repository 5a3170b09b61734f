// Package parser reads tabular source files into raw batches.
package parser

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ThiagoRGoveia/vaccination-etl/internal/models"
)

var ErrUnsupportedFormat = errors.New("unsupported file format")

// IsSupported reports whether path has an extension ReadFile understands.
func IsSupported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".xlsx":
		return true
	}
	return false
}

// ReadFile reads a .csv or .xlsx file. The batch is identified by the file's
// base name.
func ReadFile(path string) (models.RawBatch, error) {
	sourceID := filepath.Base(path)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		file, err := os.Open(path)
		if err != nil {
			return models.RawBatch{}, fmt.Errorf("failed to open file %s: %w", path, err)
		}
		defer file.Close()
		return ReadCSV(file, sourceID)
	case ".xlsx":
		return ReadXLSX(path, sourceID)
	}

	return models.RawBatch{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
}
