package models

import (
	"fmt"
	"strconv"
	"strings"
)

// UnknownDate is the canonical encoding of a FuzzyDate without a year.
const UnknownDate = "None"

// FuzzyDate is a possibly partial calendar date as reported by AniList.
// Zero components mean "unset". No calendar validation is performed:
// month 13 or day 40 are kept and encoded as given.
type FuzzyDate struct {
	Year  uint32 `json:"year"`
	Month uint32 `json:"month"`
	Day   uint32 `json:"day"`
}

func NewFuzzyDate(year, month, day uint32) FuzzyDate {
	return FuzzyDate{Year: year, Month: month, Day: day}
}

// IsUnknown reports whether the date has no year.
func (d FuzzyDate) IsUnknown() bool { return d.Year == 0 }

// String returns the canonical YYYYMMDD encoding, or "None" when the year is
// unset. Two-digit years are widened to 20YY for the encoding only.
func (d FuzzyDate) String() string {
	if d.Year == 0 {
		return UnknownDate
	}

	var b strings.Builder
	b.Grow(8)
	if d.Year < 100 {
		fmt.Fprintf(&b, "20%02d", d.Year)
	} else {
		b.WriteString(strconv.FormatUint(uint64(d.Year), 10))
	}
	fmt.Fprintf(&b, "%02d%02d", d.Month, d.Day)
	return b.String()
}

// Compare orders dates by their canonical encoding.
func (d FuzzyDate) Compare(other FuzzyDate) int {
	return strings.Compare(d.String(), other.String())
}

func (d FuzzyDate) Less(other FuzzyDate) bool { return d.Compare(other) < 0 }

// Equal is true when both dates share a canonical encoding, even if their raw
// components differ (e.g. two unknown dates with different months).
func (d FuzzyDate) Equal(other FuzzyDate) bool { return d.String() == other.String() }

func (d FuzzyDate) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *FuzzyDate) UnmarshalText(b []byte) error {
	v, err := ParseFuzzyDate(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// ParseFuzzyDate reverses String: "None", or year digits followed by MMDD.
// Years written with the 20YY widening come back as 20YY.
func ParseFuzzyDate(s string) (FuzzyDate, error) {
	if s == UnknownDate {
		return FuzzyDate{}, nil
	}
	if len(s) < 8 {
		return FuzzyDate{}, fmt.Errorf("fuzzy date %q: too short", s)
	}
	cut := len(s) - 4
	var parts [3]uint32
	for i, field := range []string{s[:cut], s[cut : cut+2], s[cut+2:]} {
		v, err := strconv.ParseUint(field, 10, 32)
		if err != nil {
			return FuzzyDate{}, fmt.Errorf("fuzzy date %q: %w", s, err)
		}
		parts[i] = uint32(v)
	}
	return NewFuzzyDate(parts[0], parts[1], parts[2]), nil
}
