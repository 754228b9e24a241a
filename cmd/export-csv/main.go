package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"anihub/internal/catalog"
	"anihub/internal/export"
	"anihub/internal/logging"
	"anihub/pkg/database"
	"anihub/pkg/models"
	"anihub/pkg/utils"
)

func main() {
	cfg, err := utils.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("load config")
	}

	var (
		sortName = flag.String("sort", cfg.AniList.Sort, "ranking: score|popularity|favorites|episodes")
		page     = flag.Int("page", cfg.AniList.Page, "1-based page number")
		perPage  = flag.String("per-page", cfg.AniList.PerPage, "page size: small|medium|large")
		outPath  = flag.String("out", cfg.Export.Out, "output CSV path")
		fromDB   = flag.Bool("from-db", false, "export the stored catalog instead of fetching")
		skip     = flag.Bool("skip-invalid", cfg.AniList.SkipInvalid, "drop media with bad required fields instead of failing")
	)
	flag.Parse()

	logging.Init(cfg.Log.Logging())
	defer logging.Close()

	cfg.AniList.Sort = *sortName
	cfg.AniList.Page = *page
	cfg.AniList.PerPage = *perPage
	cfg.AniList.SkipInvalid = *skip

	ctx, cancel := context.WithTimeout(context.Background(), 2*cfg.AniList.Timeout+10*time.Second)
	defer cancel()

	var records []models.MediaRecord
	if *fromDB {
		records, err = loadCatalog(ctx, cfg.Database.Path)
	} else {
		records, err = fetch(ctx, cfg.AniList)
	}
	if err != nil {
		logging.Fatal().Err(err).Msg("export aborted")
	}

	// records are complete before the file is created, so a failed run leaves nothing behind
	if err := export.WriteFile(*outPath, records); err != nil {
		logging.Fatal().Err(err).Str("out", *outPath).Msg("write csv")
	}

	logging.Info().Int("records", len(records)).Str("out", *outPath).Msg("export complete")
}

func fetch(ctx context.Context, c utils.AniListConfig) ([]models.MediaRecord, error) {
	if c.Page < 1 {
		return nil, fmt.Errorf("page must be >= 1, got %d", c.Page)
	}
	sort, size, err := c.Params()
	if err != nil {
		return nil, err
	}

	logging.Info().
		Str("endpoint", c.Endpoint).
		Str("sort", sort.Token()).
		Int("page", c.Page).
		Int("per_page", size.Value()).
		Msg("fetching page")
	return c.NewClient().FetchPage(ctx, sort, c.Page, size)
}

func loadCatalog(ctx context.Context, path string) ([]models.MediaRecord, error) {
	db, err := database.Open(database.Config{Path: path})
	if err != nil {
		return nil, err
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	return catalog.NewRepo(db).All(ctx)
}
