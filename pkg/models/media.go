package models

// MediaRecord is the normalized form of one AniList media entry.
//
// Records are built by the anilist normalizer (or read back from the catalog)
// and treated as read-only afterwards.
type MediaRecord struct {
	ID         uint32    `json:"id"`
	Title      string    `json:"title"`       // english -> romaji -> "TITLE MISSING"
	StartDate  FuzzyDate `json:"start_date"`  // canonical YYYYMMDD or "None"
	Status     string    `json:"status"`      // upstream status or "Unknown Status"
	Score      uint32    `json:"average_score"`
	Popularity uint32    `json:"popularity"`
	Favorites  uint32    `json:"favorites"`
	Season     Season    `json:"season"`
	SeasonYear uint32    `json:"season_year"` // falls back to StartDate.Year
	Genres     []string  `json:"genres"`
}

// NewMediaRecord copies genres so the record owns its slice.
func NewMediaRecord(
	id uint32,
	title string,
	start FuzzyDate,
	status string,
	score, popularity, favorites uint32,
	season Season,
	seasonYear uint32,
	genres []string,
) MediaRecord {
	owned := make([]string, len(genres))
	copy(owned, genres)

	return MediaRecord{
		ID:         id,
		Title:      title,
		StartDate:  start,
		Status:     status,
		Score:      score,
		Popularity: popularity,
		Favorites:  favorites,
		Season:     season,
		SeasonYear: seasonYear,
		Genres:     owned,
	}
}
