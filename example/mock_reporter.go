package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"time"
)

const mockInterval = 5 * time.Second

// MockTarget is a replica the mock reporters report for.
type MockTarget struct {
	Probe   string
	Node    string
	Replica string
	// Local targets send health instead of load.
	Local bool
}

// StartMockReporters posts a report for every target each interval until ctx
// is done. Loads drift randomly so replicas move between healthy and sick;
// now and then a replica goes silent for a while and turns dead.
func StartMockReporters(ctx context.Context, baseURL, token string, targets []MockTarget) {
	client := &http.Client{Timeout: 2 * time.Second}
	silentUntil := make(map[int]time.Time, len(targets))
	loads := make([]float64, len(targets))
	for i := range loads {
		loads[i] = 0.3 + rand.Float64()*0.4
	}

	ticker := time.NewTicker(mockInterval)
	defer ticker.Stop()

	for {
		for i, tg := range targets {
			if time.Now().Before(silentUntil[i]) {
				continue
			}
			if rand.Intn(60) == 0 {
				silentUntil[i] = time.Now().Add(time.Duration(30+rand.Intn(30)) * time.Second)
				slog.Info("replica going silent", "node", tg.Node, "replica", tg.Replica)
				continue
			}

			loads[i] = clamp(loads[i]+(rand.Float64()-0.5)*0.2, 0.05, 1.0)
			body := mockBody(tg, loads[i])
			if err := post(ctx, client, fmt.Sprintf("%s/reporter/%s/%s", baseURL, tg.Probe, tg.Node), token, body); err != nil {
				slog.Debug("mock report failed", "node", tg.Node, "error", err)
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func mockBody(tg MockTarget, load float64) map[string]any {
	interval := int(mockInterval / time.Second)
	if tg.Local {
		health := "healthy"
		if load > 0.9 {
			health = "sick"
		}
		return map[string]any{"replica": "default", "interval": interval, "health": health}
	}
	return map[string]any{
		"replica":  tg.Replica,
		"interval": interval,
		"load":     map[string]float64{"cpu": load, "ram": clamp(load*0.8+0.1, 0, 1)},
	}
}

func post(ctx context.Context, client *http.Client, url, token string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth("", token)

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
