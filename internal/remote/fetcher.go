/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package remote retrieves the desired configuration document from the fleet API.
package remote

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"k8s.io/utils/clock"
	logf "sigs.k8s.io/controller-runtime/pkg/log"

	osv1alpha1 "in-cloud.io/os-config/api/v1alpha1"
	"in-cloud.io/os-config/internal/metrics"
	"in-cloud.io/os-config/internal/schema"
)

const (
	// HeartbeatInterval is how much cumulative backoff passes between
	// "awaiting configuration" log lines.
	HeartbeatInterval = 10 * time.Second

	// DefaultRequestTimeout bounds a single GET.
	DefaultRequestTimeout = 60 * time.Second
)

// maxDocumentSize bounds the remote document body.
var maxDocumentSize int64 = 16 << 20

// ErrDocumentTooLarge is returned when the remote document exceeds maxDocumentSize.
var ErrDocumentTooLarge = errors.New("remote document too large")

var fetchLog = logf.Log.WithName("fetch")

// StatusError is returned when the fleet API answers with a non-2xx status.
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %s", e.URL, e.Status)
}

// Fetcher downloads and validates remote configuration documents.
type Fetcher struct {
	client *http.Client
	clock  clock.Clock
	log    logr.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithClock replaces the clock used for backoff sleeps.
func WithClock(c clock.Clock) Option {
	return func(f *Fetcher) { f.clock = c }
}

// WithLogger replaces the fetcher logger.
func WithLogger(l logr.Logger) Option {
	return func(f *Fetcher) { f.log = l }
}

// WithHTTPClient replaces the HTTP client. The root certificate passed to
// NewFetcher is ignored when this option is used.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithTimeout bounds a single GET.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) { f.client.Timeout = d }
}

// NewFetcher creates a fetcher. When rootCA holds PEM certificates they are
// trusted in addition to the system roots.
func NewFetcher(rootCA []byte, opts ...Option) (*Fetcher, error) {
	client, err := newHTTPClient(rootCA)
	if err != nil {
		return nil, err
	}

	f := &Fetcher{
		client: client,
		clock:  clock.RealClock{},
		log:    fetchLog,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

func newHTTPClient(rootCA []byte) (*http.Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	if len(rootCA) > 0 {
		pool, err := x509.SystemCertPool()
		if err != nil {
			pool = x509.NewCertPool()
		}
		if !pool.AppendCertsFromPEM(rootCA) {
			return nil, fmt.Errorf("root certificate: no PEM certificates found")
		}
		transport.TLSClientConfig = &tls.Config{
			RootCAs:    pool,
			MinVersion: tls.VersionTLS12,
		}
	}

	return &http.Client{
		Transport: transport,
		Timeout:   DefaultRequestTimeout,
	}, nil
}

// ConfigURL joins an API endpoint and the configuration route.
func ConfigURL(endpoint, route string) string {
	return strings.TrimRight(endpoint, "/") + "/" + strings.TrimLeft(route, "/")
}

// Backoff returns the sleep before the next attempt given the cumulative
// time already slept.
func Backoff(slept time.Duration) time.Duration {
	switch {
	case slept < 10*time.Second:
		return 1 * time.Second
	case slept < 30*time.Second:
		return 2 * time.Second
	case slept < 60*time.Second:
		return 5 * time.Second
	case slept < 300*time.Second:
		return 10 * time.Second
	default:
		return 30 * time.Second
	}
}

// Fetch retrieves the document at url.
//
// Without retry a single GET is issued and any transport error is returned.
// With retry transport errors are retried until a response arrives or ctx is
// done. Version and structure errors of a received document are never retried.
func (f *Fetcher) Fetch(ctx context.Context, url string, retry bool) (*osv1alpha1.RemoteConfiguration, error) {
	log := f.log.WithValues("url", url)

	var (
		slept         time.Duration
		lastHeartbeat time.Duration
		lastErr       string
	)

	for {
		body, err := f.get(ctx, url)
		if err == nil {
			metrics.RecordFetchAttempt("success")
			return Parse(body)
		}
		metrics.RecordFetchAttempt("error")

		if !retry {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if msg := err.Error(); msg != lastErr {
			log.Error(err, "fetch configuration failed, retrying")
			lastErr = msg
		}

		wait := Backoff(slept)
		f.clock.Sleep(wait)
		slept += wait

		if slept-lastHeartbeat >= HeartbeatInterval {
			log.Info("awaiting configuration", "waited", slept.String())
			lastHeartbeat = slept
		}

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
}

func (f *Fetcher) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "os-config")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize+1))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if int64(len(body)) > maxDocumentSize {
		return nil, fmt.Errorf("GET %s: %w: exceeds %d bytes", url, ErrDocumentTooLarge, maxDocumentSize)
	}
	return body, nil
}

// Parse validates and decodes a remote configuration document.
func Parse(data []byte) (*osv1alpha1.RemoteConfiguration, error) {
	if _, err := schema.DecodeDocument(data, schema.RemoteDocumentSchema()); err != nil {
		return nil, fmt.Errorf("remote configuration: %w", err)
	}

	rc := &osv1alpha1.RemoteConfiguration{}
	if err := schema.DecodeInto(data, rc); err != nil {
		return nil, fmt.Errorf("decode remote configuration: %w", err)
	}
	if rc.Services == nil {
		rc.Services = map[string]map[string]string{}
	}
	if rc.Config.Overrides == nil {
		rc.Config.Overrides = map[string]interface{}{}
	}
	return rc, nil
}
