// mock-upstream fires sample payloads at a notifier webhook URL.
//
// Usage:
//
//	go run ./mock-upstream http://localhost:8080/webhooks/<target-id>
//	go run ./mock-upstream --count 20 --interval 50ms http://localhost:8080/webhooks/<target-id>
package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
)

// sample is one canned upstream request.
type sample struct {
	name        string
	contentType string
	body        string
}

var samples = []sample{
	{
		name:        "flat",
		contentType: "application/json",
		body:        `{"event":"signup","email":"ann@example.com","name":"Ann","plan":"pro"}`,
	},
	{
		name:        "nested",
		contentType: "application/json",
		body:        `{"order":{"id":1042,"total":99.5,"customer":{"name":"Bob","email":"bob@example.com"}},"paid":true}`,
	},
	{
		name:        "json-in-string",
		contentType: "application/json",
		body:        `{"type":"invoice.paid","payload":"{\"invoice\":{\"number\":\"INV-7\",\"amount\":120}}"}`,
	},
	{
		name:        "arrays",
		contentType: "application/json",
		body:        `{"tags":["urgent","billing"],"items":[{"sku":"A1","qty":2},{"sku":"B2","qty":1}]}`,
	},
	{
		name:        "form",
		contentType: "application/x-www-form-urlencoded",
		body:        "name=Cara&email=cara%40example.com&source=landing",
	},
	{
		name:        "text",
		contentType: "text/plain",
		body:        "deployment finished",
	},
}

var (
	sent    atomic.Int64
	limited atomic.Int64
	failed  atomic.Int64
)

func main() {
	var (
		count    int
		interval time.Duration
		timeout  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "mock-upstream <webhook-url>",
		Short: "Send sample webhook payloads to a notifier",
		Long: `Send the built-in sample payloads (flat, nested, JSON inside a string,
arrays, form and text bodies) to a webhook URL in rotation. A short
interval with a large count exercises the rate-limit tiers.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := url.Parse(args[0])
			if err != nil || target.Scheme == "" || target.Host == "" {
				return fmt.Errorf("invalid webhook URL %q", args[0])
			}

			client := &http.Client{Timeout: timeout}
			for i := 0; i < count; i++ {
				s := samples[i%len(samples)]
				fire(cmd.Context(), client, target.String(), i+1, s)
				if i < count-1 {
					time.Sleep(interval)
				}
			}

			log.Printf("done: %d sent, %d rate limited, %d failed", sent.Load(), limited.Load(), failed.Load())
			return nil
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", len(samples), "Number of requests to send")
	cmd.Flags().DurationVar(&interval, "interval", 200*time.Millisecond, "Delay between requests")
	cmd.Flags().DurationVar(&timeout, "timeout", 45*time.Second, "Per-request timeout")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func fire(ctx context.Context, client *http.Client, target string, n int, s sample) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewBufferString(s.body))
	if err != nil {
		failed.Add(1)
		log.Printf("[#%d] %s -> %v", n, s.name, err)
		return
	}
	req.Header.Set("Content-Type", s.contentType)

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		failed.Add(1)
		log.Printf("[#%d] %s -> %v", n, s.name, err)
		return
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		limited.Add(1)
	case resp.StatusCode >= 300:
		failed.Add(1)
	default:
		sent.Add(1)
	}
	log.Printf("[#%d] %s -> %d in %s | retry-after=%s %s",
		n, s.name, resp.StatusCode, time.Since(start).Round(time.Millisecond),
		resp.Header.Get("Retry-After"), truncate(string(bytes.TrimSpace(body)), 80))
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
