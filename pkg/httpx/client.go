// Package httpx builds the HTTP clients used for webhooks, evidence downloads
// and the scraper API.
package httpx

import (
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// Options configures a retrying client. Zero values fall back to defaults.
type Options struct {
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	Timeout      time.Duration
	// Logger receives retry attempts. Nil disables retry logging, which the
	// logger package itself relies on to avoid logging its own webhook calls.
	Logger retryablehttp.LeveledLogger
}

// NewClient returns a stdlib *http.Client backed by retryablehttp. It retries on
// connection errors, 5xx responses (except 501) and 429 with Retry-After.
func NewClient(opts Options) *http.Client {
	if opts.RetryMax == 0 {
		opts.RetryMax = 3
	}
	if opts.RetryWaitMin == 0 {
		opts.RetryWaitMin = 500 * time.Millisecond
	}
	if opts.RetryWaitMax == 0 {
		opts.RetryWaitMax = 5 * time.Second
	}
	if opts.Timeout == 0 {
		opts.Timeout = 20 * time.Second
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = opts.RetryMax
	rc.RetryWaitMin = opts.RetryWaitMin
	rc.RetryWaitMax = opts.RetryWaitMax
	rc.Logger = opts.Logger

	client := rc.StandardClient()
	client.Timeout = opts.Timeout
	return client
}
