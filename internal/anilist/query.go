package anilist

import (
	"fmt"
	"strings"
)

// SortKey is the ranking criterion for a page of media.
type SortKey uint8

const (
	SortScore SortKey = iota
	SortPopularity
	SortFavorites
	SortEpisodes
)

// Token returns the AniList MediaSort value sent in the request.
func (s SortKey) Token() string {
	switch s {
	case SortScore:
		return "SCORE_DESC"
	case SortPopularity:
		return "POPULARITY_DESC"
	case SortFavorites:
		return "FAVOURITES_DESC"
	case SortEpisodes:
		return "EPISODES_DESC"
	default:
		return ""
	}
}

func (s SortKey) String() string {
	switch s {
	case SortScore:
		return "score"
	case SortPopularity:
		return "popularity"
	case SortFavorites:
		return "favorites"
	case SortEpisodes:
		return "episodes"
	default:
		return fmt.Sprintf("SortKey(%d)", uint8(s))
	}
}

// ParseSortKey accepts the lowercase names used in config and query strings.
func ParseSortKey(name string) (SortKey, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "score":
		return SortScore, nil
	case "popularity":
		return SortPopularity, nil
	case "favorites", "favourites":
		return SortFavorites, nil
	case "episodes":
		return SortEpisodes, nil
	}
	return 0, fmt.Errorf("unknown sort %q (want score, popularity, favorites or episodes)", name)
}

// PageSize is one of the fixed page sizes; its value is what is transmitted.
type PageSize int

const (
	PageSmall  PageSize = 10
	PageMedium PageSize = 25
	PageLarge  PageSize = 50
)

func (p PageSize) Value() int { return int(p) }

func (p PageSize) String() string {
	switch p {
	case PageSmall:
		return "small"
	case PageMedium:
		return "medium"
	case PageLarge:
		return "large"
	default:
		return fmt.Sprintf("PageSize(%d)", int(p))
	}
}

// ParsePageSize accepts small|medium|large or 10|25|50.
func ParsePageSize(name string) (PageSize, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "small", "10":
		return PageSmall, nil
	case "medium", "25":
		return PageMedium, nil
	case "large", "50":
		return PageLarge, nil
	}
	return 0, fmt.Errorf("unknown page size %q (want small, medium or large)", name)
}

// MediaQuery is the fixed GraphQL document for one page of anime.
const MediaQuery = `
query($sort: [MediaSort], $page: Int, $perPage: Int) {
    Page(page: $page, perPage: $perPage) {
        media(sort: $sort, type: ANIME) {
            id
            popularity
            favourites
            title {
                romaji
                english
            }
            startDate {
                year
                month
                day
            }
            status
            averageScore
            season
            seasonYear
            genres
        }
    }
}
`

// Request is the JSON body POSTed to the GraphQL endpoint.
type Request struct {
	Query     string    `json:"query"`
	Variables Variables `json:"variables"`
}

type Variables struct {
	Sort    []string `json:"sort"`
	Page    int      `json:"page"`
	PerPage int      `json:"perPage"`
}

// BuildRequest assembles the payload for a 1-based page.
func BuildRequest(sort SortKey, page int, size PageSize) Request {
	return Request{
		Query: MediaQuery,
		Variables: Variables{
			Sort:    []string{sort.Token()},
			Page:    page,
			PerPage: size.Value(),
		},
	}
}
