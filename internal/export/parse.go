package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"anihub/pkg/models"
)

var ErrBadHeader = errors.New("csv header does not match anime.csv layout")

const (
	genresPrefix = "Genres: ["
	genresSuffix = "]"
)

// ReadCSV parses a file written by WriteCSV. Columns are matched by name.
// Genre names containing ", " do not survive the round trip, and two-digit
// years come back with the "20" prefix they were written with.
func ReadCSV(r io.Reader) ([]models.MediaRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	head, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("%w: empty input", ErrBadHeader)
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	index := make(map[string]int, len(head))
	for i, h := range head {
		index[strings.TrimSpace(h)] = i
	}
	for _, name := range header {
		if _, ok := index[name]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrBadHeader, name)
		}
	}

	var out []models.MediaRecord
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(row) == 1 && row[0] == "" {
			continue
		}

		m, err := parseRow(index, row)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, m)
	}
	return out, nil
}

func parseRow(index map[string]int, row []string) (models.MediaRecord, error) {
	get := func(name string) string {
		i := index[name]
		if i >= len(row) {
			return ""
		}
		return row[i]
	}

	nums := map[string]uint32{}
	for _, name := range []string{"id", "averageScore", "popularity", "favorites", "seasonYear"} {
		v, err := strconv.ParseUint(get(name), 10, 32)
		if err != nil {
			return models.MediaRecord{}, fmt.Errorf("%s: %w", name, err)
		}
		nums[name] = uint32(v)
	}

	start, err := models.ParseFuzzyDate(get("startDate"))
	if err != nil {
		return models.MediaRecord{}, fmt.Errorf("startDate: %w", err)
	}

	season, err := models.SeasonFromName(get("season"))
	if err != nil {
		return models.MediaRecord{}, fmt.Errorf("season: %w", err)
	}

	genres, err := ParseGenres(get("genres"))
	if err != nil {
		return models.MediaRecord{}, fmt.Errorf("genres: %w", err)
	}

	return models.NewMediaRecord(nums["id"], get("title"), start, get("status"),
		nums["averageScore"], nums["popularity"], nums["favorites"], season, nums["seasonYear"], genres), nil
}

// ParseGenres reverses FormatGenres.
func ParseGenres(s string) ([]string, error) {
	if !strings.HasPrefix(s, genresPrefix) || !strings.HasSuffix(s, genresSuffix) {
		return nil, fmt.Errorf("unexpected genres cell %q", s)
	}
	inner := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(s, genresPrefix), genresSuffix))
	if inner == "" {
		return []string{}, nil
	}
	return strings.Split(inner, ", "), nil
}
