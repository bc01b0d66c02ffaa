package coupon

import (
	"compress/gzip"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"coursecart/internal/model"

	"github.com/rs/zerolog"
)

// ParseRecord turns one CSV record (CODE,COURSE_ID,PERCENT[,DESCRIPTION])
// into a definition.
func ParseRecord(record []string) (Definition, error) {
	if len(record) < 3 || len(record) > 4 {
		return Definition{}, fmt.Errorf("expected 3 or 4 fields, got %d", len(record))
	}

	code := strings.TrimSpace(record[0])
	if code == "" {
		return Definition{}, errors.New("empty coupon code")
	}

	courseID := strings.TrimSpace(record[1])
	if _, err := model.ParseCourseKey(courseID); err != nil {
		return Definition{}, err
	}

	percent, err := strconv.Atoi(strings.TrimSpace(record[2]))
	if err != nil {
		return Definition{}, fmt.Errorf("invalid percentage %q", record[2])
	}
	if percent < 0 || percent > 100 {
		return Definition{}, fmt.Errorf("percentage %d out of range", percent)
	}

	def := Definition{Code: code, CourseID: courseID, Percentage: percent}
	if len(record) == 4 {
		def.Description = strings.TrimSpace(record[3])
	}

	return def, nil
}

// readSet decompresses a gzipped CSV stream into a coupon set. Malformed rows
// are counted and skipped.
func readSet(ctx context.Context, r io.Reader, source string, logger zerolog.Logger) (CouponSet, error) {
	gzipReader, err := gzip.NewReader(r)
	if err != nil {
		logger.Error().Err(err).Str("source", source).Msg("failed to create gzip reader")
		return nil, fmt.Errorf("failed to create gzip reader for %s: %w", source, err)
	}
	defer gzipReader.Close()

	csvReader := csv.NewReader(gzipReader)
	csvReader.FieldsPerRecord = -1
	csvReader.Comment = '#'
	csvReader.TrimLeadingSpace = true
	csvReader.ReuseRecord = true

	set := NewMapCouponSet(1024).(*mapCouponSet)

	for line := 0; ; line++ {
		if line%10_000 == 0 {
			select {
			case <-ctx.Done():
				logger.Warn().Str("source", source).Msg("coupon loading cancelled")
				return nil, ctx.Err()
			default:
			}
		}

		record, err := csvReader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				logger.Debug().Err(err).Str("source", source).Msg("skipping unreadable coupon row")
				set.Skip()
				continue
			}
			logger.Error().Err(err).Str("source", source).Msg("error reading coupon file")
			return nil, fmt.Errorf("error reading coupon file %s: %w", source, err)
		}

		def, err := ParseRecord(record)
		if err != nil {
			logger.Debug().Err(err).Str("source", source).Int("line", line+1).Msg("skipping malformed coupon row")
			set.Skip()
			continue
		}
		set.Add(def)
	}

	return set, nil
}
