// Copyright (c) 2025 Thomas Phan
// SPDX-License-Identifier: AGPL-3.0-or-later

// status.go - Proxy status command handler.
//
// Queries the running proxy's /health and /stats endpoints and prints a
// short report. The endpoints are unauthenticated so status works
// without a token.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/thomasmphan/inference-proxy/internal/config"
	"github.com/thomasmphan/inference-proxy/internal/server"
	"github.com/thomasmphan/inference-proxy/internal/telemetry"
	"github.com/thomasmphan/inference-proxy/internal/ui/styles"
)

const statusTimeout = 5 * time.Second

// HandleStatusCommand handles "inferproxy status".
func HandleStatusCommand(args Args) error {
	cfg := config.Global()
	baseURL := args.BaseURL
	if baseURL == "" {
		baseURL = cfg.Client.BaseURL
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	client := &http.Client{Timeout: statusTimeout}

	var health server.HealthResponse
	if err := fetchJSON(client, baseURL+"/health", &health); err != nil {
		fmt.Println(styles.Error.Render("Proxy unreachable at " + baseURL))
		return err
	}

	fmt.Println(styles.Title.Render("inferproxy status"))
	fmt.Printf("  Proxy:    %s (%s, v%s)\n", baseURL, health.Status, health.Version)
	fmt.Printf("  Upstream: configured=%v\n", health.UpstreamConfigured)
	if health.CacheEnabled {
		fmt.Printf("  Cache:    %d entries, %.0f%% hit rate\n",
			health.CacheEntries, health.CacheHitRate*100)
	} else {
		fmt.Println("  Cache:    disabled")
	}

	var stats server.StatsResponse
	if err := fetchJSON(client, baseURL+"/stats", &stats); err != nil {
		// Health answered, stats is best effort.
		return nil
	}

	fmt.Printf("  Requests: %d total, %d cache hits, %d upstream errors\n",
		stats.TotalRequests, stats.CacheHits, stats.UpstreamErrors)
	fmt.Printf("  Cost:     $%.4f over %s\n",
		stats.TotalCostUSD, (time.Duration(stats.UptimeSeconds) * time.Second).String())

	printUsageHistory(cfg)
	return nil
}

// printUsageHistory reads the local telemetry database, when it exists,
// and prints the trailing 24h totals plus the most recent requests.
// Best effort; a proxy on another host leaves no local database.
func printUsageHistory(cfg *config.Config) {
	if !cfg.Telemetry.Enabled {
		return
	}
	dbPath, err := cfg.TelemetryDBPath()
	if err != nil {
		return
	}
	if _, err := os.Stat(dbPath); err != nil {
		return
	}
	store, err := telemetry.Open(dbPath)
	if err != nil {
		return
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), statusTimeout)
	defer cancel()

	totals, err := store.TotalsSince(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		return
	}
	fmt.Printf("  Last 24h: %d requests, %d in / %d out tokens, $%.4f\n",
		totals.Requests, totals.InputTokens, totals.OutputTokens, totals.CostUSD)

	recent, err := store.Recent(ctx, 5)
	if err != nil || len(recent) == 0 {
		return
	}
	fmt.Println(styles.Title.Render("recent requests"))
	for _, rec := range recent {
		fmt.Printf("  %s  %-10s  %5d/%-5d  $%.4f\n",
			rec.Timestamp.Format("15:04:05"), rec.Model,
			rec.InputTokens, rec.OutputTokens, rec.CostUSD)
	}
}

// fetchJSON GETs url and decodes the JSON body into v.
func fetchJSON(client *http.Client, url string, v interface{}) error {
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}
