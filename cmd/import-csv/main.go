package main

import (
	"context"
	"flag"
	"os"
	"time"

	"anihub/internal/catalog"
	"anihub/internal/export"
	"anihub/internal/logging"
	"anihub/pkg/database"
	"anihub/pkg/utils"
)

// ImportSort marks runs that came from a CSV file rather than AniList.
const ImportSort = "CSV_IMPORT"

func main() {
	cfg, err := utils.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("load config")
	}

	in := flag.String("in", cfg.Export.Out, "anime.csv to load into the catalog")
	flag.Parse()

	logging.Init(cfg.Log.Logging())
	defer logging.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	f, err := os.Open(*in)
	if err != nil {
		logging.Fatal().Err(err).Msg("open csv")
	}
	records, err := export.ReadCSV(f)
	_ = f.Close()
	if err != nil {
		logging.Fatal().Err(err).Str("in", *in).Msg("parse csv")
	}

	db := database.MustOpen(database.Config{Path: cfg.Database.Path})
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		logging.Fatal().Err(err).Msg("db migrate failed")
	}

	run, err := catalog.NewRepo(db).SaveRun(ctx, catalog.NewRun(ImportSort, 0, len(records)), records)
	if err != nil {
		logging.Fatal().Err(err).Msg("import failed")
	}

	logging.Info().Str("run_id", run.ID).Int("records", run.Records).Str("in", *in).Msg("catalog imported")
}
