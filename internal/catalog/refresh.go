package catalog

import (
	"context"
	"errors"
	"fmt"

	"anihub/internal/anilist"
	"anihub/internal/logging"
	"anihub/internal/metrics"
	"anihub/pkg/models"
)

// Fetcher returns one normalized page of media. *anilist.Client implements it.
type Fetcher interface {
	FetchPage(ctx context.Context, sort anilist.SortKey, page int, size anilist.PageSize) ([]models.MediaRecord, error)
}

// ErrInvalidPage is returned for page numbers below 1. AniList pages are 1-based.
var ErrInvalidPage = errors.New("page must be >= 1")

// Refresh fetches one page and stores it as a new run. Nothing is written
// when the fetch or normalization fails.
func Refresh(ctx context.Context, f Fetcher, repo *Repo, sort anilist.SortKey, page int, size anilist.PageSize) (Run, error) {
	if page < 1 {
		return Run{}, fmt.Errorf("%w, got %d", ErrInvalidPage, page)
	}

	records, err := f.FetchPage(ctx, sort, page, size)
	if err != nil {
		return Run{}, fmt.Errorf("fetch page: %w", err)
	}

	run, err := repo.SaveRun(ctx, NewRun(sort.Token(), page, size.Value()), records)
	if err != nil {
		return Run{}, fmt.Errorf("save run: %w", err)
	}
	metrics.CatalogRuns.Inc()

	logging.Info().
		Str("component", "catalog").
		Str("run_id", run.ID).
		Str("sort", run.Sort).
		Int("page", run.Page).
		Int("records", run.Records).
		Msg("catalog refreshed")
	return run, nil
}
