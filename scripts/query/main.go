package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"HttpSpectra/internal/config"
	"HttpSpectra/internal/query"
)

func main() {
	mode := flag.String("mode", "api", "Query mode: 'api' to query the running analyzer, 'direct' to read the history store.")
	apiBase := flag.String("api", "http://localhost:8080", "Base URL of the analyzer API.")
	host := flag.String("host", "", "Host to query. Empty prints the live summary (api mode only).")
	since := flag.String("since", "", "Start of the history window in RFC3339 format (optional).")
	configPath := flag.String("c", "configs/config.yaml", "Config file naming the history store (direct mode).")
	flag.Parse()

	log.Printf("Running in '%s' mode.", *mode)

	switch *mode {
	case "api":
		queryViaAPI(*apiBase, *host, *since)
	case "direct":
		queryDirect(*configPath, *host, *since)
	default:
		log.Fatalf("Invalid mode: %s. Use 'api' or 'direct'.", *mode)
	}
}

// --- API Query Logic ---
func queryViaAPI(base, host, since string) {
	apiURL := base + "/api/v1/summary"
	if host != "" {
		apiURL = base + "/api/v1/hosts/" + url.PathEscape(host) + "/history"
		if since != "" {
			apiURL += "?since=" + url.QueryEscape(since)
		}
	}
	log.Printf("Sending request to %s", apiURL)

	resp, err := http.Get(apiURL)
	if err != nil {
		log.Fatalf("Error sending request: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Fatalf("Error reading response body: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		log.Fatalf("API returned non-200 status code: %d\nResponse: %s", resp.StatusCode, string(respBody))
	}

	var prettyJSON bytes.Buffer
	if err := json.Indent(&prettyJSON, respBody, "", "  "); err != nil {
		log.Printf("Could not prettify JSON, printing raw response:")
		fmt.Println(string(respBody))
		return
	}
	log.Println("---")
	fmt.Println(prettyJSON.String())
}

// --- Direct Store Query Logic ---
func queryDirect(configPath, host, since string) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	q, err := query.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to open history store: %v", err)
	}
	defer q.Close()

	req := query.HistoryRequest{Host: host}
	if since != "" {
		if req.Since, err = time.Parse(time.RFC3339, since); err != nil {
			log.Fatalf("Invalid since format: %v", err)
		}
	}

	points, err := q.HostHistory(context.Background(), req)
	if err != nil {
		log.Fatalf("Error executing query: %v", err)
	}
	if len(points) == 0 {
		log.Println("No data found for the specified criteria.")
		return
	}

	log.Println("--- Host History (Direct) ---")
	for _, p := range points {
		fmt.Printf("%s  %d packets (%d OUT / %d IN) Traffic: %dB (%dB OUT / %dB IN)\n",
			p.Timestamp.Format(time.RFC3339), p.TotalPackets(), p.OutMessages, p.InMessages,
			p.TotalBytes(), p.OutBytes, p.InBytes)
	}
}
