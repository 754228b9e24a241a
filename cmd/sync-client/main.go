package main

import (
	"bufio"
	"flag"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/goccy/go-json"

	"anihub/internal/logging"
	synchub "anihub/internal/sync"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:7070", "TCP event feed address")
	pretty := flag.Bool("pretty", true, "pretty print JSON events")
	flag.Parse()

	logging.Init(logging.Config{Level: "info", Format: "console"})

	for {
		if err := run(*addr, *pretty); err != nil {
			logging.Warn().Err(err).Str("addr", *addr).Msg("disconnected")
		}
		time.Sleep(1 * time.Second) // auto reconnect
	}
}

func run(addr string, pretty bool) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	logging.Info().Str("addr", addr).Msg("connected")

	sc := bufio.NewScanner(conn)
	for sc.Scan() {
		line := sc.Bytes()

		var ev synchub.CatalogEvent
		if err := json.Unmarshal(line, &ev); err == nil && ev.Type == synchub.CatalogRefreshed {
			logging.Info().
				Str("run_id", ev.RunID).
				Str("sort", ev.Sort).
				Int("page", ev.Page).
				Int("records", ev.Records).
				Msg("catalog refreshed")
		}

		if !pretty {
			fmt.Println(string(line))
			continue
		}

		var obj map[string]any
		if err := json.Unmarshal(line, &obj); err != nil {
			fmt.Println(string(line))
			continue
		}
		b, _ := json.MarshalIndent(obj, "", "  ")
		fmt.Println(string(b))
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return os.ErrClosed
}
