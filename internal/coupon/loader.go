package coupon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// ErrInvalidFileName is returned for coupon file names that are absolute or
// climb out of the import directory.
var ErrInvalidFileName = errors.New("invalid coupon file name")

// CleanFileName checks that name is a relative path inside the import
// directory and returns it in cleaned, slash-separated form.
func CleanFileName(name string) (string, error) {
	local := filepath.FromSlash(name)
	if !filepath.IsLocal(local) {
		return "", fmt.Errorf("%w: %q", ErrInvalidFileName, name)
	}
	return filepath.ToSlash(filepath.Clean(local)), nil
}

// fileLoader implements Loader for gzipped coupon files under one directory.
type fileLoader struct {
	dir    string
	logger zerolog.Logger
}

// NewFileLoader creates a coupon loader that reads files relative to dir.
func NewFileLoader(dir string, logger zerolog.Logger) Loader {
	if dir == "" {
		dir = "."
	}
	return &fileLoader{
		dir:    dir,
		logger: logger.With().Str("component", "coupon-loader").Logger(),
	}
}

// Load reads a gzipped coupon CSV file from the import directory.
func (l *fileLoader) Load(ctx context.Context, name string) (CouponSet, error) {
	clean, err := CleanFileName(name)
	if err != nil {
		l.logger.Warn().Str("file", name).Msg("rejected coupon file outside the import directory")
		return nil, err
	}
	filePath := filepath.Join(l.dir, filepath.FromSlash(clean))

	l.logger.Info().Str("file", filePath).Msg("loading coupon file")

	file, err := os.Open(filePath)
	if err != nil {
		l.logger.Error().Err(err).Str("file", filePath).Msg("failed to open coupon file")
		return nil, fmt.Errorf("failed to open coupon file %s: %w", name, err)
	}
	defer file.Close()

	set, err := readSet(ctx, file, name, l.logger)
	if err != nil {
		return nil, err
	}

	l.logger.Info().
		Str("file", filePath).
		Int("coupons_loaded", set.Size()).
		Int("rows_skipped", set.Skipped()).
		Msg("coupon file loaded successfully")

	return set, nil
}
