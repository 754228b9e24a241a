package catalog

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"

	"anihub/internal/anilist"
	"anihub/internal/sync"
	"anihub/pkg/models"
)

type fakeFetcher struct {
	records []models.MediaRecord
	err     error

	gotSort anilist.SortKey
	gotPage int
	gotSize anilist.PageSize
	calls   int
}

func (f *fakeFetcher) FetchPage(_ context.Context, sort anilist.SortKey, page int, size anilist.PageSize) ([]models.MediaRecord, error) {
	f.calls++
	f.gotSort, f.gotPage, f.gotSize = sort, page, size
	return f.records, f.err
}

type recordingHub struct {
	events []any
}

func (h *recordingHub) BroadcastJSON(v any) { h.events = append(h.events, v) }

func newTestRouter(t *testing.T, f Fetcher, hub Broadcaster) (*gin.Engine, *Repo) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	repo := newTestRepo(t)
	h := NewHandler(repo, f, hub)

	r := gin.New()
	h.RegisterRoutes(r.Group("/anime"))
	h.RegisterAdminRoutes(r.Group("/anime"))
	r.GET("/export/anime.csv", h.ExportCSV)
	return r, repo
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestListAndGetHandlers(t *testing.T) {
	r, repo := newTestRouter(t, &fakeFetcher{}, nil)
	if _, err := repo.SaveRun(context.Background(), NewRun("POPULARITY_DESC", 1, 10), sampleRecords()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	w := do(r, http.MethodGet, "/anime?genres=Drama,Sci-Fi&limit=1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var page struct {
		Total  int                  `json:"total"`
		Limit  int                  `json:"limit"`
		Offset int                  `json:"offset"`
		Items  []models.MediaRecord `json:"items"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if page.Total != 2 || page.Limit != 1 || len(page.Items) != 1 || page.Items[0].ID != 2 {
		t.Fatalf("page = %+v", page)
	}

	w = do(r, http.MethodGet, "/anime?offset=-5", "")
	if err := json.Unmarshal(w.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if page.Offset != 0 || len(page.Items) != 3 {
		t.Fatalf("negative offset page = %+v", page)
	}

	w = do(r, http.MethodGet, "/anime/1", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"title":"Cowboy Bebop"`) {
		t.Fatalf("get = %d %s", w.Code, w.Body.String())
	}

	if w := do(r, http.MethodGet, "/anime/404", ""); w.Code != http.StatusNotFound {
		t.Fatalf("missing status = %d", w.Code)
	}
	if w := do(r, http.MethodGet, "/anime/-1", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("bad id status = %d", w.Code)
	}
}

func TestExportCSVHandler(t *testing.T) {
	r, repo := newTestRouter(t, &fakeFetcher{}, nil)
	if _, err := repo.SaveRun(context.Background(), NewRun("POPULARITY_DESC", 1, 10), sampleRecords()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	w := do(r, http.MethodGet, "/export/anime.csv", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("content-type = %q", ct)
	}

	rows, err := csv.NewReader(w.Body).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(rows) != 4 || rows[0][0] != "title" || rows[1][0] != "Frieren" {
		t.Fatalf("rows = %v", rows)
	}
	if rows[3][2] != "None" || rows[3][7] != "None" {
		t.Fatalf("unknown row = %v", rows[3])
	}
}

func TestRefreshHandler(t *testing.T) {
	f := &fakeFetcher{records: sampleRecords()}
	hub := &recordingHub{}
	r, repo := newTestRouter(t, f, hub)

	w := do(r, http.MethodPost, "/anime/refresh", `{"sort":"score","page":2,"per_page":"medium"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d %s", w.Code, w.Body.String())
	}
	if f.gotSort != anilist.SortScore || f.gotPage != 2 || f.gotSize != anilist.PageMedium {
		t.Fatalf("fetch args = %v %d %v", f.gotSort, f.gotPage, f.gotSize)
	}

	var run Run
	if err := json.Unmarshal(w.Body.Bytes(), &run); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if run.Sort != "SCORE_DESC" || run.PerPage != 25 || run.Records != 3 {
		t.Fatalf("run = %+v", run)
	}

	if len(hub.events) != 1 {
		t.Fatalf("events = %d", len(hub.events))
	}
	ev, ok := hub.events[0].(sync.CatalogEvent)
	if !ok || ev.Type != sync.CatalogRefreshed || ev.RunID != run.ID || ev.Records != 3 {
		t.Fatalf("event = %+v", hub.events[0])
	}

	if n, _ := repo.Count(context.Background(), ListQuery{}); n != 3 {
		t.Fatalf("stored = %d", n)
	}
}

func TestRefreshDefaults(t *testing.T) {
	f := &fakeFetcher{records: sampleRecords()[:1]}
	r, _ := newTestRouter(t, f, nil)

	if w := do(r, http.MethodPost, "/anime/refresh", ""); w.Code != http.StatusOK {
		t.Fatalf("status = %d %s", w.Code, w.Body.String())
	}
	if f.gotSort != anilist.SortPopularity || f.gotPage != 1 || f.gotSize != anilist.PageLarge {
		t.Fatalf("defaults = %v %d %v", f.gotSort, f.gotPage, f.gotSize)
	}
}

func TestRefreshErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		err  error
		want int
	}{
		{"bad json", `{`, nil, http.StatusBadRequest},
		{"bad sort", `{"sort":"newest"}`, nil, http.StatusBadRequest},
		{"bad size", `{"per_page":"huge"}`, nil, http.StatusBadRequest},
		{"bad page", `{"page":-2}`, nil, http.StatusBadRequest},
		{"field error", `{}`, &anilist.FieldError{Index: 0, ID: "1", Field: "id", Err: anilist.ErrMissingField}, http.StatusBadGateway},
		{"upstream status", `{}`, &anilist.HTTPStatusError{StatusCode: 500}, http.StatusBadGateway},
		{"envelope", `{}`, fmt.Errorf("normalize: %w", anilist.ErrEnvelope), http.StatusBadGateway},
		{"network", `{}`, errors.New("dial tcp: connection refused"), http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hub := &recordingHub{}
			r, repo := newTestRouter(t, &fakeFetcher{err: tt.err}, hub)

			w := do(r, http.MethodPost, "/anime/refresh", tt.body)
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.want, w.Body.String())
			}
			if len(hub.events) != 0 {
				t.Fatalf("failed refresh must not broadcast")
			}
			if latest, _ := repo.LatestRun(context.Background()); latest != nil {
				t.Fatalf("failed refresh stored a run: %+v", latest)
			}
		})
	}
}

func TestRefreshRejectsInvalidPage(t *testing.T) {
	for _, page := range []int{0, -1} {
		f := &fakeFetcher{records: sampleRecords()}
		repo := newTestRepo(t)

		_, err := Refresh(context.Background(), f, repo, anilist.SortPopularity, page, anilist.PageSmall)
		if !errors.Is(err, ErrInvalidPage) {
			t.Fatalf("page %d: err = %v, want ErrInvalidPage", page, err)
		}
		if f.calls != 0 {
			t.Fatalf("page %d: fetcher called %d times", page, f.calls)
		}
		if latest, _ := repo.LatestRun(context.Background()); latest != nil {
			t.Fatalf("page %d: stored a run: %+v", page, latest)
		}
	}
}
