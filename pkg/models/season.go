package models

import (
	"errors"
	"fmt"
)

// Season is the airing season of a media entry.
type Season uint8

const (
	SeasonUnknown Season = iota
	SeasonWinter
	SeasonSpring
	SeasonSummer
	SeasonFall
)

// SeasonNoneToken is what AniList would call a missing season.
const SeasonNoneToken = "NONE"

var ErrUnknownSeason = errors.New("unrecognized season")

var seasonTokens = map[string]Season{
	"WINTER":        SeasonWinter,
	"SPRING":        SeasonSpring,
	"SUMMER":        SeasonSummer,
	"FALL":          SeasonFall,
	SeasonNoneToken: SeasonUnknown,
}

// ParseSeason maps an upstream token (case-sensitive) to a Season.
func ParseSeason(token string) (Season, error) {
	s, ok := seasonTokens[token]
	if !ok {
		return SeasonUnknown, fmt.Errorf("%w: %q", ErrUnknownSeason, token)
	}
	return s, nil
}

// String returns the wire name written to CSV and the catalog.
func (s Season) String() string {
	switch s {
	case SeasonWinter:
		return "Winter"
	case SeasonSpring:
		return "Spring"
	case SeasonSummer:
		return "Summer"
	case SeasonFall:
		return "Fall"
	case SeasonUnknown:
		return "None"
	default:
		return fmt.Sprintf("Season(%d)", uint8(s))
	}
}

// Token is the upstream spelling accepted by ParseSeason.
func (s Season) Token() string {
	for tok, v := range seasonTokens {
		if v == s {
			return tok
		}
	}
	return SeasonNoneToken
}

// SeasonFromName is the inverse of Season.String.
func SeasonFromName(name string) (Season, error) {
	for _, s := range []Season{SeasonUnknown, SeasonWinter, SeasonSpring, SeasonSummer, SeasonFall} {
		if s.String() == name {
			return s, nil
		}
	}
	return SeasonUnknown, fmt.Errorf("%w: %q", ErrUnknownSeason, name)
}

func (s Season) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Season) UnmarshalText(b []byte) error {
	v, err := SeasonFromName(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
