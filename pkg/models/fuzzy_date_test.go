package models

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"testing"

	"github.com/goccy/go-json"
)

func TestFuzzyDateString(t *testing.T) {
	tests := []struct {
		name string
		date FuzzyDate
		want string
	}{
		{"full date", NewFuzzyDate(2020, 10, 1), "20201001"},
		{"padded month and day", NewFuzzyDate(1998, 4, 3), "19980403"},
		{"two digit year", NewFuzzyDate(19, 7, 15), "20190715"},
		{"one digit year", NewFuzzyDate(5, 1, 2), "20050102"},
		{"unset month and day", NewFuzzyDate(2021, 0, 0), "20210000"},
		{"unknown year", NewFuzzyDate(0, 12, 31), "None"},
		{"all unset", FuzzyDate{}, "None"},
		{"out of range kept", NewFuzzyDate(2020, 13, 40), "20201340"},
		{"three digit year", NewFuzzyDate(999, 1, 1), "9990101"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.date.String(); got != tt.want {
				t.Fatalf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFuzzyDateStringPrefixes(t *testing.T) {
	for year := uint32(100); year <= 3000; year += 137 {
		got := NewFuzzyDate(year, 3, 9).String()
		if !strings.HasPrefix(got, strconv.FormatUint(uint64(year), 10)) || !strings.HasSuffix(got, "0309") {
			t.Fatalf("year %d: got %q", year, got)
		}
	}
	for year := uint32(1); year < 100; year++ {
		got := NewFuzzyDate(year, 1, 1).String()
		want := fmt.Sprintf("20%02d", year)
		if !strings.HasPrefix(got, want) {
			t.Fatalf("year %d: got %q, want prefix %q", year, got, want)
		}
	}
}

func TestFuzzyDateOrdering(t *testing.T) {
	a := NewFuzzyDate(2020, 1, 1)
	b := NewFuzzyDate(2020, 12, 31)
	c := NewFuzzyDate(2021, 1, 1)

	if !a.Less(b) || !b.Less(c) {
		t.Fatalf("expected %s < %s < %s", a, b, c)
	}

	dates := []FuzzyDate{{}, c, a, b}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Less(dates[j]) })

	// "None" sorts after the digit-leading encodings.
	if !dates[3].IsUnknown() {
		t.Fatalf("unknown date should sort last lexicographically, got %v", dates)
	}
}

func TestFuzzyDateEqualUsesEncoding(t *testing.T) {
	if !NewFuzzyDate(0, 1, 1).Equal(NewFuzzyDate(0, 5, 9)) {
		t.Fatalf("unknown dates should compare equal")
	}
	if !NewFuzzyDate(19, 2, 2).Equal(NewFuzzyDate(2019, 2, 2)) {
		t.Fatalf("widened year should equal its four digit form")
	}
	if NewFuzzyDate(2019, 2, 2).Compare(NewFuzzyDate(2019, 2, 3)) >= 0 {
		t.Fatalf("expected earlier day to compare lower")
	}
}

func TestFuzzyDateMarshalText(t *testing.T) {
	b, err := NewFuzzyDate(2020, 10, 1).MarshalText()
	if err != nil {
		t.Fatalf("MarshalText: %v", err)
	}
	if string(b) != "20201001" {
		t.Fatalf("got %q", b)
	}
}

func TestParseFuzzyDate(t *testing.T) {
	tests := []struct {
		in   string
		want FuzzyDate
	}{
		{"None", FuzzyDate{}},
		{"20201001", NewFuzzyDate(2020, 10, 1)},
		{"19980400", NewFuzzyDate(1998, 4, 0)},
		{"123450101", NewFuzzyDate(12345, 1, 1)},
		{"20201340", NewFuzzyDate(2020, 13, 40)},
	}
	for _, tt := range tests {
		got, err := ParseFuzzyDate(tt.in)
		if err != nil || got != tt.want {
			t.Fatalf("ParseFuzzyDate(%q) = %+v, %v", tt.in, got, err)
		}
		if got.String() != tt.in {
			t.Fatalf("String() = %q, want %q", got.String(), tt.in)
		}
	}

	for _, bad := range []string{"", "2020", "2020AB01", "none"} {
		if _, err := ParseFuzzyDate(bad); err == nil {
			t.Fatalf("ParseFuzzyDate(%q) should fail", bad)
		}
	}
}

func TestMediaRecordJSONUsesCanonicalTokens(t *testing.T) {
	in := NewMediaRecord(1, "X", NewFuzzyDate(2020, 10, 1), "FINISHED", 80, 100, 50, SeasonFall, 2020, []string{"Action"})
	b, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(b), `"start_date":"20201001"`) || !strings.Contains(string(b), `"season":"Fall"`) {
		t.Fatalf("json = %s", b)
	}

	var out MediaRecord
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Fatalf("got %+v, want %+v", out, in)
	}
}
