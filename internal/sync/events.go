package sync

import "time"

const (
	CatalogRefreshed = "catalog.refreshed"
	Welcome          = "welcome"
)

// CatalogEvent is pushed to every subscriber after a refresh stores a run.
type CatalogEvent struct {
	Type    string    `json:"type"`
	RunID   string    `json:"run_id"`
	Sort    string    `json:"sort"`
	Page    int       `json:"page"`
	PerPage int       `json:"per_page"`
	Records int       `json:"records"`
	At      time.Time `json:"at"`
}

type WelcomeEvent struct {
	Type      string `json:"type"`
	Transport string `json:"transport"`
	Clients   int    `json:"clients"`
}
