package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"anihub/internal/auth"
	"anihub/internal/catalog"
	"anihub/internal/logging"
	"anihub/pkg/models"
	"anihub/pkg/utils"
)

const defaultBaseURL = "http://localhost:8080"

type tokenData struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type animeListResponse struct {
	Total  int                  `json:"total"`
	Limit  int                  `json:"limit"`
	Offset int                  `json:"offset"`
	Items  []models.MediaRecord `json:"items"`
}

func main() {
	logging.Init(logging.Config{Level: "info", Format: "console"})

	global := flag.NewFlagSet("anihub", flag.ExitOnError)
	baseURL := global.String("api", defaultBaseURL, "API base URL")
	tokenPath := global.String("token", defaultTokenPath(), "token file path")
	if err := global.Parse(os.Args[1:]); err != nil {
		logging.Fatal().Err(err).Msg("parse flags")
	}
	args := global.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	ctx := context.Background()
	cmd := args[0]
	sub := ""
	rest := []string{}
	if len(args) > 1 {
		sub = args[1]
		rest = args[2:]
	}

	client := &http.Client{Timeout: 30 * time.Second}

	switch cmd {
	case "anime":
		handleAnime(ctx, client, *baseURL, sub, rest)
	case "refresh":
		handleRefresh(ctx, client, *baseURL, *tokenPath, args[1:])
	case "export":
		handleExport(ctx, client, *baseURL, sub, rest)
	case "token":
		handleToken(*tokenPath, sub, rest)
	case "watch":
		handleWatch(*baseURL, args[1:])
	default:
		printUsage()
		os.Exit(1)
	}
}

func handleAnime(ctx context.Context, client *http.Client, baseURL, sub string, args []string) {
	switch sub {
	case "list":
		fs := flag.NewFlagSet("anime list", flag.ExitOnError)
		query := fs.String("q", "", "title search")
		status := fs.String("status", "", "status filter, e.g. FINISHED")
		season := fs.String("season", "", "season filter: Winter|Spring|Summer|Fall|None")
		seasonYear := fs.Int("season-year", 0, "season year filter")
		genres := fs.String("genres", "", "comma-separated genres (any match)")
		order := fs.String("order", "popularity", "popularity|score|favorites|start_date|title")
		limit := fs.Int("limit", 20, "page size")
		offset := fs.Int("offset", 0, "offset")
		_ = fs.Parse(args)

		u, err := url.Parse(baseURL + "/anime")
		if err != nil {
			logging.Fatal().Err(err).Msg("invalid base url")
		}
		qv := u.Query()
		for k, v := range map[string]string{"q": *query, "status": *status, "season": *season, "genres": *genres, "order": *order} {
			if v != "" {
				qv.Set(k, v)
			}
		}
		if *seasonYear > 0 {
			qv.Set("season_year", strconv.Itoa(*seasonYear))
		}
		qv.Set("limit", strconv.Itoa(*limit))
		qv.Set("offset", strconv.Itoa(*offset))
		u.RawQuery = qv.Encode()

		var resp animeListResponse
		if err := doJSON(ctx, client, http.MethodGet, u.String(), "", nil, &resp); err != nil {
			logging.Fatal().Err(err).Msg("list failed")
		}
		printJSON(resp)
	case "show":
		fs := flag.NewFlagSet("anime show", flag.ExitOnError)
		id := fs.Uint("id", 0, "AniList media id")
		_ = fs.Parse(args)
		if *id == 0 {
			logging.Fatal().Msg("-id is required")
		}

		var resp models.MediaRecord
		if err := doJSON(ctx, client, http.MethodGet, fmt.Sprintf("%s/anime/%d", baseURL, *id), "", nil, &resp); err != nil {
			logging.Fatal().Err(err).Msg("show failed")
		}
		printJSON(resp)
	default:
		logging.Fatal().Msg("usage: anihub anime <list|show>")
	}
}

func handleRefresh(ctx context.Context, client *http.Client, baseURL, tokenPath string, args []string) {
	fs := flag.NewFlagSet("refresh", flag.ExitOnError)
	sort := fs.String("sort", "popularity", "score|popularity|favorites|episodes")
	page := fs.Int("page", 1, "1-based page number")
	perPage := fs.String("per-page", "large", "small|medium|large")
	_ = fs.Parse(args)

	payload := catalog.RefreshRequest{Sort: *sort, Page: *page, PerPage: *perPage}
	var run catalog.Run
	if err := doJSON(ctx, client, http.MethodPost, baseURL+"/anime/refresh", mustToken(tokenPath), payload, &run); err != nil {
		logging.Fatal().Err(err).Msg("refresh failed")
	}
	printJSON(run)
}

func handleExport(ctx context.Context, client *http.Client, baseURL, sub string, args []string) {
	switch sub {
	case "csv":
		fs := flag.NewFlagSet("export csv", flag.ExitOnError)
		out := fs.String("out", "anime.csv", "output CSV path")
		_ = fs.Parse(args)

		n, err := download(ctx, client, baseURL+"/export/anime.csv", *out)
		if err != nil {
			logging.Fatal().Err(err).Msg("export csv failed")
		}
		logging.Info().Int64("bytes", n).Str("out", *out).Msg("exported catalog")
	default:
		logging.Fatal().Msg("usage: anihub export csv")
	}
}

func handleToken(tokenPath, sub string, args []string) {
	switch sub {
	case "mint":
		fs := flag.NewFlagSet("token mint", flag.ExitOnError)
		subject := fs.String("subject", "cli", "token subject")
		role := fs.String("role", auth.RoleAdmin, "token role: admin|reader")
		_ = fs.Parse(args)

		// signs with the same auth.jwt_secret the server loads
		cfg, err := utils.Load()
		if err != nil {
			logging.Fatal().Err(err).Msg("load config")
		}
		tok, exp, err := cfg.Auth.Tokens().Sign(*subject, *role)
		if err != nil {
			logging.Fatal().Err(err).Msg("mint token")
		}
		if err := saveToken(tokenPath, tokenData{Token: tok, ExpiresAt: exp}); err != nil {
			logging.Fatal().Err(err).Msg("save token")
		}
		logging.Info().Str("path", tokenPath).Time("expires_at", exp).Msg("token saved")
	case "clear":
		if err := clearToken(tokenPath); err != nil {
			logging.Fatal().Err(err).Msg("clear token")
		}
		logging.Info().Msg("token cleared")
	default:
		logging.Fatal().Msg("usage: anihub token <mint|clear>")
	}
}

func handleWatch(baseURL string, args []string) {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	wsURL := fs.String("ws", "", "WebSocket URL (defaults to /ws on the API host)")
	_ = fs.Parse(args)

	endpoint := *wsURL
	if endpoint == "" {
		var err error
		endpoint, err = websocketURL(baseURL, "/ws")
		if err != nil {
			logging.Fatal().Err(err).Msg("ws url")
		}
	}

	conn, _, err := websocket.DefaultDialer.Dial(endpoint, nil)
	if err != nil {
		logging.Fatal().Err(err).Msg("watch failed")
	}
	defer conn.Close()
	logging.Info().Str("url", endpoint).Msg("watching catalog events")

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			logging.Fatal().Err(err).Msg("connection closed")
		}
		fmt.Print(string(msg))
	}
}

func download(ctx context.Context, client *http.Client, endpoint, outPath string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("GET %s failed: %s", endpoint, strings.TrimSpace(string(b)))
	}

	if dir := filepath.Dir(outPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, err
		}
	}
	f, err := os.Create(outPath)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(f, resp.Body)
	if err != nil {
		_ = f.Close()
		return n, err
	}
	return n, f.Close()
}

func doJSON(ctx context.Context, client *http.Client, method, endpoint, token string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = strings.NewReader(string(b))
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s failed: %s", method, endpoint, strings.TrimSpace(string(data)))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

func printJSON(v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		logging.Fatal().Err(err).Msg("json")
	}
	fmt.Println(string(b))
}

func defaultTokenPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./.anihub-token.json"
	}
	return filepath.Join(home, ".anihub", "token.json")
}

func saveToken(path string, td tokenData) error {
	if td.Token == "" {
		return errors.New("empty token")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(td, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func readToken(path string) (tokenData, error) {
	var td tokenData
	data, err := os.ReadFile(path)
	if err != nil {
		return td, err
	}
	if err := json.Unmarshal(data, &td); err != nil {
		return td, err
	}
	td.Token = strings.TrimSpace(td.Token)
	return td, nil
}

func mustToken(path string) string {
	td, err := readToken(path)
	if err != nil {
		logging.Fatal().Err(err).Msg("token not found, run: anihub token mint")
	}
	if td.Token == "" {
		logging.Fatal().Msg("token empty, run: anihub token mint")
	}
	if !td.ExpiresAt.IsZero() && time.Now().After(td.ExpiresAt) {
		logging.Fatal().Time("expired_at", td.ExpiresAt).Msg("token expired, run: anihub token mint")
	}
	return td.Token
}

func clearToken(path string) error {
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return nil
}

func websocketURL(baseURL, path string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	scheme := "ws"
	if u.Scheme == "https" {
		scheme = "wss"
	}
	return (&url.URL{
		Scheme: scheme,
		Host:   u.Host,
		Path:   path,
	}).String(), nil
}

func printUsage() {
	fmt.Println("anihub [-api URL] [-token PATH] <command> [subcommand] [flags]")
	fmt.Println("commands:")
	fmt.Println("  anime list|show")
	fmt.Println("  refresh")
	fmt.Println("  export csv")
	fmt.Println("  token mint|clear")
	fmt.Println("  watch")
}
