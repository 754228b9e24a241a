package main

import (
	"context"
	"flag"
	"time"

	"anihub/internal/catalog"
	"anihub/internal/logging"
	"anihub/pkg/database"
	"anihub/pkg/utils"
)

// scraper fetches one AniList page and stores it in the local catalog.
func main() {
	cfg, err := utils.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("load config")
	}

	var (
		sortName = flag.String("sort", cfg.AniList.Sort, "ranking: score|popularity|favorites|episodes")
		page     = flag.Int("page", cfg.AniList.Page, "1-based page number")
		perPage  = flag.String("per-page", cfg.AniList.PerPage, "page size: small|medium|large")
		endpoint = flag.String("endpoint", cfg.AniList.Endpoint, "GraphQL endpoint (http://localhost:9000/ for the mirror)")
	)
	flag.Parse()

	logging.Init(cfg.Log.Logging())
	defer logging.Close()

	cfg.AniList.Sort = *sortName
	cfg.AniList.PerPage = *perPage
	cfg.AniList.Endpoint = *endpoint

	sort, size, err := cfg.AniList.Params()
	if err != nil {
		logging.Fatal().Err(err).Msg("bad flags")
	}
	if *page < 1 {
		logging.Fatal().Int("page", *page).Msg("bad flags: page must be >= 1")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	db := database.MustOpen(database.Config{Path: cfg.Database.Path})
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		logging.Fatal().Err(err).Msg("db migrate failed")
	}

	run, err := catalog.Refresh(ctx, cfg.AniList.NewClient(), catalog.NewRepo(db), sort, *page, size)
	if err != nil {
		logging.Fatal().Err(err).Msg("scrape failed")
	}

	logging.Info().
		Str("run_id", run.ID).
		Int("records", run.Records).
		Str("db", cfg.Database.Path).
		Msg("catalog populated")
}
