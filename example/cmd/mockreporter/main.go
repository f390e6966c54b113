// Standalone mock reporter for testing the CLI.
//
// Usage:
//
//	BEACON_REPORTER_TOKEN=demo-token go run ./cmd/beacon serve -c example/config.yaml
//
// Then in another terminal:
//
//	go run ./example/cmd/mockreporter -token demo-token
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"time"
)

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "beacon base URL")
	token := flag.String("token", "", "reporter token")
	interval := flag.Duration("interval", 5*time.Second, "report interval")
	flag.Parse()

	fmt.Printf("Mock reporter posting to %s every %s\n", *baseURL, *interval)
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	// matches example/config.yaml
	pushNodes := []string{"worker-eu", "worker-us"}
	client := &http.Client{Timeout: 2 * time.Second}

	for {
		for _, node := range pushNodes {
			for _, replica := range []string{"r1", "r2"} {
				cpu := 0.2 + rand.Float64()*0.8
				send(client, *baseURL+"/reporter/api/"+node, *token, map[string]any{
					"replica":  replica,
					"interval": int(interval.Seconds()),
					"load":     map[string]float64{"cpu": cpu, "ram": 0.5},
				})
			}
		}

		health := "healthy"
		if rand.Intn(10) == 0 {
			health = "sick"
		}
		send(client, *baseURL+"/reporter/api/gateway", *token, map[string]any{
			"replica":  "default",
			"interval": int(interval.Seconds()),
			"health":   health,
		})

		time.Sleep(*interval)
	}
}

func send(client *http.Client, url, token string, body any) {
	data, _ := json.Marshal(body)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		slog.Error("bad request", "error", err)
		os.Exit(1)
	}
	if token != "" {
		req.SetBasicAuth("", token)
	}

	resp, err := client.Do(req)
	if err != nil {
		slog.Warn("report failed", "url", url, "error", err)
		return
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		slog.Warn("report rejected", "url", url, "status", resp.StatusCode)
	}
}
