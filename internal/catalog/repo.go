package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"anihub/pkg/models"
)

// Run describes one fetch of a single AniList page.
type Run struct {
	ID        string    `json:"id"`
	Sort      string    `json:"sort"` // upstream token, e.g. POPULARITY_DESC
	Page      int       `json:"page"`
	PerPage   int       `json:"per_page"`
	Records   int       `json:"records"`
	FetchedAt time.Time `json:"fetched_at"`
}

// NewRun stamps a run with a fresh id and the current time.
func NewRun(sort string, page, perPage int) Run {
	return Run{
		ID:        uuid.NewString(),
		Sort:      sort,
		Page:      page,
		PerPage:   perPage,
		FetchedAt: time.Now().UTC(),
	}
}

type Repo struct {
	DB *sql.DB
}

type ListQuery struct {
	Q          string   // title substring
	Genres     []string // any-match
	Status     string
	Season     string // Winter, Spring, Summer, Fall, None
	SeasonYear int
	OrderBy    string // popularity (default), score, favorites, start_date, title
	Limit      int
	Offset     int
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// SaveRun records the run and upserts its records in one transaction.
func (r *Repo) SaveRun(ctx context.Context, run Run, records []models.MediaRecord) (Run, error) {
	run.Records = len(records)

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return run, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO fetch_runs (id, sort, page, per_page, records, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, run.ID, run.Sort, run.Page, run.PerPage, run.Records, run.FetchedAt); err != nil {
		return run, fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO anime (
		  id, title, start_year, start_month, start_day, start_date, status,
		  average_score, popularity, favorites, season, season_year, genres, run_id, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		  title = excluded.title,
		  start_year = excluded.start_year,
		  start_month = excluded.start_month,
		  start_day = excluded.start_day,
		  start_date = excluded.start_date,
		  status = excluded.status,
		  average_score = excluded.average_score,
		  popularity = excluded.popularity,
		  favorites = excluded.favorites,
		  season = excluded.season,
		  season_year = excluded.season_year,
		  genres = excluded.genres,
		  run_id = excluded.run_id,
		  updated_at = excluded.updated_at
	`)
	if err != nil {
		return run, fmt.Errorf("prepare stmt: %w", err)
	}
	defer stmt.Close()

	for _, m := range records {
		genresJSON, err := json.Marshal(m.Genres)
		if err != nil {
			return run, fmt.Errorf("marshal genres for %d: %w", m.ID, err)
		}

		if _, err := stmt.ExecContext(
			ctx,
			m.ID,
			m.Title,
			m.StartDate.Year,
			m.StartDate.Month,
			m.StartDate.Day,
			m.StartDate.String(),
			m.Status,
			m.Score,
			m.Popularity,
			m.Favorites,
			m.Season.String(),
			m.SeasonYear,
			string(genresJSON),
			run.ID,
			run.FetchedAt,
		); err != nil {
			return run, fmt.Errorf("exec upsert for %d: %w", m.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return run, fmt.Errorf("commit tx: %w", err)
	}
	return run, nil
}

const selectColumns = `
	SELECT id, title, start_year, start_month, start_day, status,
	       average_score, popularity, favorites, season, season_year, genres
	FROM anime
`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (models.MediaRecord, error) {
	var (
		id, year, month, day         uint32
		score, popularity, favorites uint32
		seasonYear                   uint32
		title, status, season        string
		genresJSON                   string
	)
	if err := s.Scan(&id, &title, &year, &month, &day, &status,
		&score, &popularity, &favorites, &season, &seasonYear, &genresJSON); err != nil {
		return models.MediaRecord{}, err
	}

	sn, err := models.SeasonFromName(season)
	if err != nil {
		return models.MediaRecord{}, fmt.Errorf("row %d: %w", id, err)
	}

	var genres []string
	if err := json.Unmarshal([]byte(genresJSON), &genres); err != nil {
		return models.MediaRecord{}, fmt.Errorf("row %d genres: %w", id, err)
	}

	return models.NewMediaRecord(id, title, models.NewFuzzyDate(year, month, day), status,
		score, popularity, favorites, sn, seasonYear, genres), nil
}

// GetByID returns nil, nil when the id is not stored.
func (r *Repo) GetByID(ctx context.Context, id uint32) (*models.MediaRecord, error) {
	row := r.DB.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	m, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan getByID: %w", err)
	}
	return &m, nil
}

func (r *Repo) Count(ctx context.Context, q ListQuery) (int, error) {
	sqlStr, args := buildListSQL(q, true)
	var total int
	if err := r.DB.QueryRowContext(ctx, sqlStr, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count scan: %w", err)
	}
	return total, nil
}

func (r *Repo) List(ctx context.Context, q ListQuery) ([]models.MediaRecord, error) {
	sqlStr, args := buildListSQL(q, false)

	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list query: %w", err)
	}
	defer rows.Close()

	out := make([]models.MediaRecord, 0, clampLimit(q.Limit))
	for rows.Next() {
		m, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("list scan: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// All returns every stored record ordered by popularity, for exports.
func (r *Repo) All(ctx context.Context) ([]models.MediaRecord, error) {
	rows, err := r.DB.QueryContext(ctx, selectColumns+` ORDER BY popularity DESC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("all query: %w", err)
	}
	defer rows.Close()

	var out []models.MediaRecord
	for rows.Next() {
		m, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("all scan: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// LatestRun returns nil, nil when nothing has been fetched yet.
func (r *Repo) LatestRun(ctx context.Context) (*Run, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT id, sort, page, per_page, records, fetched_at
		FROM fetch_runs
		ORDER BY fetched_at DESC
		LIMIT 1
	`)
	var run Run
	if err := row.Scan(&run.ID, &run.Sort, &run.Page, &run.PerPage, &run.Records, &run.FetchedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan latest run: %w", err)
	}
	return &run, nil
}

var orderColumns = map[string]string{
	"popularity": "popularity DESC",
	"score":      "average_score DESC",
	"favorites":  "favorites DESC",
	"start_date": "start_date DESC", // canonical FuzzyDate string
	"title":      "title ASC",
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 100 {
		return 20
	}
	return limit
}

func clampOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// likeEscape quotes LIKE wildcards; pair it with ESCAPE '\'.
func likeEscape(s string) string { return likeEscaper.Replace(s) }

// buildListSQL builds either COUNT(*) or the SELECT list.
// genres filter is "any-match" by doing LIKE searches inside stored JSON text.
func buildListSQL(q ListQuery, countOnly bool) (string, []any) {
	base := selectColumns
	if countOnly {
		base = `SELECT COUNT(*) FROM anime`
	}

	var where []string
	var args []any

	if kw := strings.TrimSpace(q.Q); kw != "" {
		where = append(where, `LOWER(title) LIKE ? ESCAPE '\'`)
		args = append(args, "%"+likeEscape(strings.ToLower(kw))+"%")
	}

	if s := strings.TrimSpace(q.Status); s != "" {
		where = append(where, "UPPER(status) = ?")
		args = append(args, strings.ToUpper(s))
	}

	if s := strings.TrimSpace(q.Season); s != "" {
		where = append(where, "LOWER(season) = ?")
		args = append(args, strings.ToLower(s))
	}

	if q.SeasonYear > 0 {
		where = append(where, "season_year = ?")
		args = append(args, q.SeasonYear)
	}

	if len(q.Genres) > 0 {
		var genreOr []string
		for _, g := range q.Genres {
			g = strings.TrimSpace(g)
			if g == "" {
				continue
			}
			// match the quoted JSON element, not a substring of another genre
			genreOr = append(genreOr, `LOWER(genres) LIKE ? ESCAPE '\'`)
			args = append(args, `%"`+likeEscape(strings.ToLower(g))+`"%`)
		}
		if len(genreOr) > 0 {
			where = append(where, "("+strings.Join(genreOr, " OR ")+")")
		}
	}

	sqlStr := base
	if len(where) > 0 {
		sqlStr += " WHERE " + strings.Join(where, " AND ")
	}

	if !countOnly {
		order, ok := orderColumns[strings.ToLower(strings.TrimSpace(q.OrderBy))]
		if !ok {
			order = orderColumns["popularity"]
		}
		sqlStr += " ORDER BY " + order + ", id ASC"
		sqlStr += " LIMIT ? OFFSET ?"
		args = append(args, clampLimit(q.Limit), clampOffset(q.Offset))
	}

	return sqlStr, args
}
