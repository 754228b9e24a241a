package catalog

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"anihub/internal/anilist"
	"anihub/internal/export"
	"anihub/internal/logging"
	"anihub/internal/sync"
)

// Broadcaster fans events out to live subscribers. *sync.Hub implements it.
type Broadcaster interface {
	BroadcastJSON(v any)
}

type Handler struct {
	Repo    *Repo
	Fetcher Fetcher
	Hub     Broadcaster

	// DefaultRefresh fills fields missing from a refresh request body.
	DefaultRefresh RefreshRequest
}

func NewHandler(repo *Repo, fetcher Fetcher, hub Broadcaster) *Handler {
	return &Handler{
		Repo:    repo,
		Fetcher: fetcher,
		Hub:     hub,
		DefaultRefresh: RefreshRequest{
			Sort:    anilist.SortPopularity.String(),
			Page:    1,
			PerPage: anilist.PageLarge.String(),
		},
	}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.list)        // GET /anime
	rg.GET("/:id", h.getByID) // GET /anime/:id
}

// RegisterAdminRoutes expects rg to be behind the admin auth middleware.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.POST("/refresh", h.refresh)
}

func (h *Handler) list(c *gin.Context) {
	q := ListQuery{
		Q:          c.Query("q"),
		Status:     c.Query("status"),
		Season:     c.Query("season"),
		SeasonYear: parseInt(c.Query("season_year"), 0),
		OrderBy:    c.Query("order"),
		Limit:      parseInt(c.Query("limit"), 20),
		Offset:     parseInt(c.Query("offset"), 0),
	}

	// genres=Action,Drama OR genres=Action&genres=Drama
	genres := c.QueryArray("genres")
	if len(genres) == 1 && strings.Contains(genres[0], ",") {
		genres = strings.Split(genres[0], ",")
	}
	q.Genres = genres

	total, err := h.Repo.Count(c.Request.Context(), q)
	if err != nil {
		logging.Error().Err(err).Msg("count anime")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count failed"})
		return
	}

	items, err := h.Repo.List(c.Request.Context(), q)
	if err != nil {
		logging.Error().Err(err).Msg("list anime")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":  total,
		"limit":  clampLimit(q.Limit),
		"offset": clampOffset(q.Offset),
		"items":  items,
	})
}

func (h *Handler) getByID(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be a non-negative integer"})
		return
	}

	m, err := h.Repo.GetByID(c.Request.Context(), uint32(id))
	if err != nil {
		logging.Error().Err(err).Uint64("id", id).Msg("get anime")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if m == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, m)
}

// ExportCSV streams the stored catalog in the anime.csv layout.
func (h *Handler) ExportCSV(c *gin.Context) {
	records, err := h.Repo.All(c.Request.Context())
	if err != nil {
		logging.Error().Err(err).Msg("export anime")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="`+export.DefaultFile+`"`)
	c.Status(http.StatusOK)
	if err := export.WriteCSV(c.Writer, records); err != nil {
		logging.Error().Err(err).Msg("write csv response")
	}
}

type RefreshRequest struct {
	Sort    string `json:"sort"`
	Page    int    `json:"page"`
	PerPage string `json:"per_page"`
}

func (h *Handler) refresh(c *gin.Context) {
	req := h.DefaultRefresh
	if c.Request.ContentLength != 0 {
		var body RefreshRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
		if body.Sort != "" {
			req.Sort = body.Sort
		}
		if body.Page != 0 {
			req.Page = body.Page
		}
		if body.PerPage != "" {
			req.PerPage = body.PerPage
		}
	}

	sort, err := anilist.ParseSortKey(req.Sort)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	size, err := anilist.ParsePageSize(req.PerPage)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Page < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": ErrInvalidPage.Error()})
		return
	}

	run, err := Refresh(c.Request.Context(), h.Fetcher, h.Repo, sort, req.Page, size)
	if err != nil {
		logging.Error().Err(err).Str("sort", sort.Token()).Int("page", req.Page).Msg("refresh failed")
		c.JSON(upstreamStatus(err), gin.H{"error": err.Error()})
		return
	}

	if h.Hub != nil {
		h.Hub.BroadcastJSON(sync.CatalogEvent{
			Type:    sync.CatalogRefreshed,
			RunID:   run.ID,
			Sort:    run.Sort,
			Page:    run.Page,
			PerPage: run.PerPage,
			Records: run.Records,
			At:      time.Now().UTC(),
		})
	}

	c.JSON(http.StatusOK, run)
}

// upstreamStatus maps fetch failures: bad data from AniList is a 502,
// anything else (network, circuit open) a 503.
func upstreamStatus(err error) int {
	var fe *anilist.FieldError
	var se *anilist.HTTPStatusError
	switch {
	case errors.As(err, &fe), errors.As(err, &se),
		errors.Is(err, anilist.ErrEnvelope), errors.Is(err, anilist.ErrMalformedResponse):
		return http.StatusBadGateway
	default:
		return http.StatusServiceUnavailable
	}
}

func parseInt(s string, def int) int {
	if strings.TrimSpace(s) == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
