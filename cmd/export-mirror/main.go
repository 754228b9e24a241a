package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"time"

	"anihub/internal/anilist"
	"anihub/internal/catalog"
	"anihub/internal/logging"
	"anihub/pkg/database"
	"anihub/pkg/utils"
)

// export-mirror dumps the stored catalog as an AniList response envelope
// that mirror-server can replay offline.
func main() {
	cfg, err := utils.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("load config")
	}

	var (
		outPath = flag.String("out", "data/mirror.json", "output JSON path")
		limit   = flag.Int("limit", 500, "how many titles to export (0 = all)")
	)
	flag.Parse()

	logging.Init(cfg.Log.Logging())
	defer logging.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db := database.MustOpen(database.Config{Path: cfg.Database.Path})
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		logging.Fatal().Err(err).Msg("db migrate failed")
	}

	records, err := catalog.NewRepo(db).All(ctx)
	if err != nil {
		logging.Fatal().Err(err).Msg("query failed")
	}
	if *limit > 0 && len(records) > *limit {
		records = records[:*limit]
	}

	b, err := anilist.NewResponse(records).MarshalIndent()
	if err != nil {
		logging.Fatal().Err(err).Msg("marshal failed")
	}

	if err := os.MkdirAll(filepath.Dir(*outPath), 0o755); err != nil {
		logging.Fatal().Err(err).Msg("mkdir failed")
	}
	if err := os.WriteFile(*outPath, b, 0o644); err != nil {
		logging.Fatal().Err(err).Msg("write failed")
	}

	logging.Info().Int("titles", len(records)).Str("out", *outPath).Msg("mirror exported")
}
