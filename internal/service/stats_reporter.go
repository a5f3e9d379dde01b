package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

const statsReportTimeout = 10 * time.Second

// StatsReporter posts hub-wide totals to a bot-list stats API.
type StatsReporter struct {
	client *http.Client
	url    string
	botID  string
	apiKey string
}

func NewStatsReporter(url, botID, apiKey string) *StatsReporter {
	return &StatsReporter{
		client: &http.Client{
			Timeout: statsReportTimeout,
		},
		url:    url,
		botID:  botID,
		apiKey: apiKey,
	}
}

// statsReport mirrors the stats API's wire format, which sends every
// number as a string.
type statsReport struct {
	ID        string   `json:"id"`
	Key       string   `json:"key"`
	Servers   string   `json:"servers"`
	Users     string   `json:"users"`
	Active    []string `json:"active"`
	Commands  string   `json:"commands"`
	Popular   []string `json:"popular"`
	MemActive string   `json:"memactive"`
	MemLoad   string   `json:"memload"`
	CPULoad   string   `json:"cpuload"`
	Bandwidth string   `json:"bandwidth"`
	Custom1   string   `json:"custom1"`
	Custom2   string   `json:"custom2"`
}

func (r *StatsReporter) Report(ctx context.Context, totals StatsTotals) error {
	payload := statsReport{
		ID:       r.botID,
		Key:      r.apiKey,
		Servers:  strconv.FormatInt(totals.Servers, 10),
		Users:    strconv.FormatInt(totals.Users, 10),
		Active:   []string{},
		Commands: "0",
		Popular:  []string{},
		Custom1:  strconv.Itoa(totals.Clusters),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := r.client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		return fmt.Errorf("stats report request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("stats report failed with status %d", resp.StatusCode)
	}

	log.Info().
		Int64("servers", totals.Servers).
		Int64("users", totals.Users).
		Int("clusters", totals.Clusters).
		Dur("elapsed", elapsed).
		Msg("stats reported")
	return nil
}
