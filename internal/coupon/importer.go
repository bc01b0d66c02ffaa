package coupon

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// importer implements Importer with concurrent file loads.
type importer struct {
	loader Loader
	logger zerolog.Logger
}

// NewImporter creates a coupon importer reading through loader.
func NewImporter(loader Loader, logger zerolog.Logger) Importer {
	return &importer{
		loader: loader,
		logger: logger.With().Str("component", "coupon-importer").Logger(),
	}
}

// Collect loads the files concurrently and merges their definitions in file order.
func (im *importer) Collect(ctx context.Context, files []string) (*Collection, error) {
	type loadResult struct {
		index int
		set   CouponSet
		err   error
	}

	names := make([]string, len(files))
	for i, name := range files {
		clean, err := CleanFileName(name)
		if err != nil {
			im.logger.Warn().Str("file", name).Msg("rejected coupon file name")
			return nil, err
		}
		names[i] = clean
	}
	files = names

	resultChan := make(chan loadResult, len(files))
	var wg sync.WaitGroup

	for i, filePath := range files {
		wg.Add(1)
		go func(index int, path string) {
			defer wg.Done()

			set, err := im.loader.Load(ctx, path)
			resultChan <- loadResult{
				index: index,
				set:   set,
				err:   err,
			}
		}(i, filePath)
	}

	wg.Wait()
	close(resultChan)

	results := make([]loadResult, len(files))
	for result := range resultChan {
		results[result.index] = result
	}

	merged := NewMapCouponSet(1024).(*mapCouponSet)
	skipped := 0
	for i, result := range results {
		if result.err != nil {
			im.logger.Error().
				Err(result.err).
				Str("file", files[i]).
				Msg("failed to load coupon file")
			return nil, fmt.Errorf("failed to load coupon file %s: %w", files[i], result.err)
		}
		skipped += result.set.Skipped()
		for _, def := range result.set.Definitions() {
			merged.Add(def)
		}
	}

	collection := &Collection{
		Files:       len(files),
		Skipped:     skipped + merged.Skipped(),
		Definitions: merged.Definitions(),
	}

	im.logger.Info().
		Int("files", collection.Files).
		Int("definitions", len(collection.Definitions)).
		Int("skipped", collection.Skipped).
		Msg("coupon files collected")

	return collection, nil
}
