package anilist

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/goccy/go-json"

	"anihub/internal/logging"
	"anihub/internal/metrics"
	"anihub/pkg/models"
)

const (
	TitleMissing  = "TITLE MISSING"
	UnknownStatus = "Unknown Status"
)

// Normalizer turns a raw GraphQL response into MediaRecords.
//
// By default any item-level failure aborts the whole pass. With SkipInvalid
// the offending item is logged and dropped instead, so the number of output
// records can be smaller than the page.
type Normalizer struct {
	SkipInvalid bool
}

// Normalize decodes body and maps every entry of data.Page.media, in order.
func (n Normalizer) Normalize(body []byte) ([]models.MediaRecord, error) {
	items, err := mediaList(body)
	if err != nil {
		metrics.NormalizeFailures.WithLabelValues("envelope").Inc()
		return nil, err
	}
	return n.NormalizeItems(items)
}

// NormalizeItems maps already decoded items. Numbers must be json.Number
// (decoded with UseNumber).
func (n Normalizer) NormalizeItems(items []any) ([]models.MediaRecord, error) {
	out := make([]models.MediaRecord, 0, len(items))
	for i, raw := range items {
		rec, err := normalizeItem(i, raw)
		if err != nil {
			var fe *FieldError
			field := "item"
			if errors.As(err, &fe) {
				field = fe.Field
			}
			metrics.NormalizeFailures.WithLabelValues(field).Inc()

			if n.SkipInvalid {
				logging.Warn().Err(err).Int("index", i).Str("field", field).Msg("skipping invalid media item")
				continue
			}
			return nil, err
		}
		out = append(out, rec)
	}
	metrics.RecordsNormalized.Add(float64(len(out)))
	return out, nil
}

func mediaList(body []byte) ([]any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var root any
	if err := dec.Decode(&root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	var extra any
	if err := dec.Decode(&extra); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after JSON value", ErrMalformedResponse)
	}

	top, _ := root.(map[string]any)
	media, ok := object(top).object("data").object("Page")["media"].([]any)
	if !ok {
		if msg := graphQLError(top); msg != "" {
			return nil, fmt.Errorf("%w: data.Page.media missing (%s)", ErrEnvelope, msg)
		}
		return nil, fmt.Errorf("%w: data.Page.media missing or not a list", ErrEnvelope)
	}
	return media, nil
}

// graphQLError returns the first message of a GraphQL "errors" array.
func graphQLError(top map[string]any) string {
	errs, _ := top["errors"].([]any)
	if len(errs) == 0 {
		return ""
	}
	first, _ := errs[0].(map[string]any)
	msg, _ := first["message"].(string)
	return msg
}

func normalizeItem(index int, raw any) (models.MediaRecord, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return models.MediaRecord{}, &FieldError{Index: index, Field: "item", Err: ErrInvalidField}
	}
	it := object(m)

	fail := func(field string, err error) (models.MediaRecord, error) {
		fe := &FieldError{Index: index, Field: field, Err: err}
		if id, idErr := it.reqUint("id"); idErr == nil {
			fe.ID = strconv.FormatUint(uint64(id), 10)
		}
		return models.MediaRecord{}, fe
	}

	titles := it.object("title")
	title := titles.optString("english", titles.optString("romaji", TitleMissing))

	id, err := it.reqUint("id")
	if err != nil {
		return fail("id", err)
	}
	score, err := it.reqUint("averageScore")
	if err != nil {
		return fail("averageScore", err)
	}
	popularity, err := it.reqUint("popularity")
	if err != nil {
		return fail("popularity", err)
	}
	favorites, err := it.reqUint("favourites")
	if err != nil {
		return fail("favourites", err)
	}

	status := it.optString("status", UnknownStatus)

	season, err := models.ParseSeason(it.optString("season", models.SeasonNoneToken))
	if err != nil {
		return fail("season", err)
	}

	sd := it.object("startDate")
	start := models.NewFuzzyDate(
		sd.optUint("year", 0),
		sd.optUint("month", 0),
		sd.optUint("day", 0),
	)
	// resolved only after start is built
	seasonYear := it.optUint("seasonYear", start.Year)

	genres, err := it.reqStrings("genres")
	if err != nil {
		return fail("genres", err)
	}

	return models.NewMediaRecord(id, title, start, status, score, popularity, favorites, season, seasonYear, genres), nil
}

// object is a JSON object with get-or-default and get-or-fail accessors.
// A nil object behaves like an empty one.
type object map[string]any

func (o object) object(key string) object {
	m, _ := o[key].(map[string]any)
	return object(m)
}

// optString returns the string at key, or def when absent, null or not a string.
func (o object) optString(key, def string) string {
	if s, ok := o[key].(string); ok {
		return s
	}
	return def
}

// optUint returns the non-negative integer at key, or def otherwise.
func (o object) optUint(key string, def uint32) uint32 {
	v, err := o.reqUint(key)
	if err != nil {
		return def
	}
	return v
}

// reqUint requires a non-negative integer that fits in uint32.
func (o object) reqUint(key string) (uint32, error) {
	v, ok := o[key]
	if !ok || v == nil {
		return 0, ErrMissingField
	}
	var s string
	switch n := v.(type) {
	case json.Number:
		s = n.String()
	case float64:
		if n != math.Trunc(n) || n < 0 || n > math.MaxUint32 {
			return 0, fmt.Errorf("%w: %v", ErrInvalidField, n)
		}
		return uint32(n), nil
	default:
		return 0, fmt.Errorf("%w: %T", ErrInvalidField, v)
	}
	u, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidField, s)
	}
	return uint32(u), nil
}

// reqStrings requires a list whose elements are all strings.
func (o object) reqStrings(key string) ([]string, error) {
	v, ok := o[key]
	if !ok || v == nil {
		return nil, ErrMissingField
	}
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrInvalidField, v)
	}
	out := make([]string, 0, len(list))
	for i, e := range list {
		s, ok := e.(string)
		if !ok {
			return nil, fmt.Errorf("%w: element %d is %T", ErrInvalidField, i, e)
		}
		out = append(out, s)
	}
	return out, nil
}
