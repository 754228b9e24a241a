package main

import (
	"flag"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"

	"anihub/internal/anilist"
	"anihub/internal/logging"
)

// mirror-server answers MediaQuery POSTs from data/mirror.json so the
// pipeline can run without reaching graphql.anilist.co.
func main() {
	addr := flag.String("addr", ":9000", "listen address")
	dataPath := flag.String("data", "data/mirror.json", "envelope written by export-mirror")
	flag.Parse()

	logging.Init(logging.Config{Level: "info", Format: "console"})

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.POST("/", func(c *gin.Context) {
		var req anilist.Request
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": []gin.H{{"message": "invalid request body"}}})
			return
		}

		// re-read on every request so a fresh export is picked up
		b, err := os.ReadFile(*dataPath)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"errors": []gin.H{{"message": "cannot read mirror: " + err.Error()}}})
			return
		}
		var stored anilist.Response
		if err := json.Unmarshal(b, &stored); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"errors": []gin.H{{"message": "mirror is not valid JSON: " + err.Error()}}})
			return
		}

		page, err := stored.Slice(req)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": []gin.H{{"message": err.Error()}}})
			return
		}

		logging.Info().
			Strs("sort", req.Variables.Sort).
			Int("page", req.Variables.Page).
			Int("per_page", req.Variables.PerPage).
			Int("media", len(page.Data.Page.Media)).
			Msg("served page")
		c.JSON(http.StatusOK, page)
	})

	logging.Info().Str("addr", *addr).Str("data", *dataPath).Msg("mirror-server listening")
	if err := r.Run(*addr); err != nil {
		logging.Fatal().Err(err).Msg("mirror-server stopped")
	}
}
