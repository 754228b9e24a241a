package anilist

import (
	"fmt"
	"sort"

	"github.com/goccy/go-json"

	"anihub/pkg/models"
)

// Response mirrors the subset of the AniList envelope that MediaQuery selects.
type Response struct {
	Data struct {
		Page struct {
			Media []Media `json:"media"`
		} `json:"Page"`
	} `json:"data"`
}

type Media struct {
	ID           uint32    `json:"id"`
	Popularity   uint32    `json:"popularity"`
	Favourites   uint32    `json:"favourites"`
	Title        Title     `json:"title"`
	StartDate    StartDate `json:"startDate"`
	AverageScore uint32    `json:"averageScore"`
	Status       *string   `json:"status"`
	Season       *string   `json:"season"`
	SeasonYear   uint32    `json:"seasonYear"`
	Genres       []string  `json:"genres"`
}

type Title struct {
	Romaji  *string `json:"romaji"`
	English *string `json:"english"`
}

type StartDate struct {
	Year  *uint32 `json:"year"`
	Month *uint32 `json:"month"`
	Day   *uint32 `json:"day"`
}

// MediaFromRecord renders a record the way AniList would return it, so that
// normalizing the result yields the same record. Placeholder title, status
// and unknown season/date parts become nulls.
func MediaFromRecord(m models.MediaRecord) Media {
	out := Media{
		ID:           m.ID,
		Popularity:   m.Popularity,
		Favourites:   m.Favorites,
		AverageScore: m.Score,
		SeasonYear:   m.SeasonYear,
		Genres:       append([]string{}, m.Genres...),
		StartDate: StartDate{
			Year:  nonZero(m.StartDate.Year),
			Month: nonZero(m.StartDate.Month),
			Day:   nonZero(m.StartDate.Day),
		},
	}
	if m.Title != TitleMissing {
		title := m.Title
		out.Title.English = &title
	}
	if m.Status != UnknownStatus {
		status := m.Status
		out.Status = &status
	}
	if m.Season != models.SeasonUnknown {
		season := m.Season.Token()
		out.Season = &season
	}
	return out
}

func nonZero(v uint32) *uint32 {
	if v == 0 {
		return nil
	}
	return &v
}

// NewResponse wraps records in a data.Page.media envelope.
func NewResponse(records []models.MediaRecord) Response {
	var r Response
	r.Data.Page.Media = make([]Media, 0, len(records))
	for _, m := range records {
		r.Data.Page.Media = append(r.Data.Page.Media, MediaFromRecord(m))
	}
	return r
}

// Slice answers req from a stored envelope: media are ordered by the
// requested sort (stable, descending) and cut to the requested page.
func (r Response) Slice(req Request) (Response, error) {
	media := append([]Media(nil), r.Data.Page.Media...)

	if len(req.Variables.Sort) > 0 {
		key, ok := mediaSortKeys[req.Variables.Sort[0]]
		if !ok {
			return Response{}, fmt.Errorf("unsupported sort %q", req.Variables.Sort[0])
		}
		sort.SliceStable(media, func(i, j int) bool { return key(media[i]) > key(media[j]) })
	}

	page, perPage := req.Variables.Page, req.Variables.PerPage
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = PageLarge.Value()
	}

	// bound page before multiplying so huge values cannot overflow
	start, end := len(media), len(media)
	if page-1 < len(media)/perPage+1 {
		start = min((page-1)*perPage, len(media))
		end = min(start+perPage, len(media))
	}

	var out Response
	out.Data.Page.Media = media[start:end]
	return out, nil
}

var mediaSortKeys = map[string]func(Media) uint32{
	SortScore.Token():      func(m Media) uint32 { return m.AverageScore },
	SortPopularity.Token(): func(m Media) uint32 { return m.Popularity },
	SortFavorites.Token():  func(m Media) uint32 { return m.Favourites },
	// episode counts are not stored; keep file order
	SortEpisodes.Token(): func(Media) uint32 { return 0 },
}

func (r Response) MarshalIndent() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
