package models

import (
	"errors"
	"testing"
)

func TestParseSeason(t *testing.T) {
	tests := []struct {
		token string
		want  Season
	}{
		{"WINTER", SeasonWinter},
		{"SPRING", SeasonSpring},
		{"SUMMER", SeasonSummer},
		{"FALL", SeasonFall},
		{"NONE", SeasonUnknown},
	}
	for _, tt := range tests {
		got, err := ParseSeason(tt.token)
		if err != nil {
			t.Fatalf("ParseSeason(%q): %v", tt.token, err)
		}
		if got != tt.want {
			t.Fatalf("ParseSeason(%q) = %v, want %v", tt.token, got, tt.want)
		}
	}
}

func TestParseSeasonRejectsUnknownTokens(t *testing.T) {
	for _, token := range []string{"AUTUMN", "summer", "", "Fall"} {
		if _, err := ParseSeason(token); !errors.Is(err, ErrUnknownSeason) {
			t.Fatalf("ParseSeason(%q) err = %v, want ErrUnknownSeason", token, err)
		}
	}
}

func TestSeasonNamesRoundTrip(t *testing.T) {
	want := map[Season]string{
		SeasonWinter:  "Winter",
		SeasonSpring:  "Spring",
		SeasonSummer:  "Summer",
		SeasonFall:    "Fall",
		SeasonUnknown: "None",
	}
	for s, name := range want {
		if s.String() != name {
			t.Fatalf("%d.String() = %q, want %q", s, s.String(), name)
		}
		back, err := SeasonFromName(name)
		if err != nil || back != s {
			t.Fatalf("SeasonFromName(%q) = %v, %v", name, back, err)
		}
		parsed, err := ParseSeason(s.Token())
		if err != nil || parsed != s {
			t.Fatalf("ParseSeason(%q) = %v, %v", s.Token(), parsed, err)
		}
	}
}

func TestNewMediaRecordOwnsGenres(t *testing.T) {
	genres := []string{"Action", "Drama"}
	rec := NewMediaRecord(1, "X", NewFuzzyDate(2020, 1, 1), "FINISHED", 1, 2, 3, SeasonFall, 2020, genres)
	genres[0] = "Mutated"
	if rec.Genres[0] != "Action" {
		t.Fatalf("record genres aliased caller slice: %v", rec.Genres)
	}
}
