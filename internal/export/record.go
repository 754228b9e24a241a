// Package export flattens MediaRecords into CSV rows.
package export

import (
	"strconv"
	"strings"

	"anihub/pkg/models"
)

var header = []string{
	"title",
	"id",
	"startDate",
	"status",
	"averageScore",
	"popularity",
	"favorites",
	"season",
	"seasonYear",
	"genres",
}

// Header returns the column names in output order.
func Header() []string {
	out := make([]string, len(header))
	copy(out, header)
	return out
}

// Row returns the record's fields in Header order.
func Row(m models.MediaRecord) []string {
	return []string{
		m.Title,
		u32(m.ID),
		m.StartDate.String(),
		m.Status,
		u32(m.Score),
		u32(m.Popularity),
		u32(m.Favorites),
		m.Season.String(),
		u32(m.SeasonYear),
		FormatGenres(m.Genres),
	}
}

// FormatGenres renders "Genres: [ a, b ]"; an empty list gives "Genres: [  ]".
func FormatGenres(genres []string) string {
	return "Genres: [ " + strings.Join(genres, ", ") + " ]"
}

func u32(v uint32) string {
	return strconv.FormatUint(uint64(v), 10)
}
