package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/PuerkitoBio/goquery"
	"github.com/sony/gobreaker"

	"job-digest/internal/resilience/circuitbreaker"
	"job-digest/internal/resilience/retry"
)

const (
	userAgent   = "JobDigestBot/1.0"
	maxBodySize = 10 * 1024 * 1024 // 10MB
)

// protectedClient is the shared HTTP layer for adapters. Every request runs
// through retry with backoff and a per-source circuit breaker.
type protectedClient struct {
	name           string
	client         *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
}

// newProtectedClient creates a protected HTTP layer for one source. The
// circuit breaker is named after the source so state changes are attributable.
func newProtectedClient(name string, client *http.Client, cbCfg circuitbreaker.Config, retryCfg retry.Config) *protectedClient {
	cbCfg.Name = name
	return &protectedClient{
		name:           name,
		client:         client,
		circuitBreaker: circuitbreaker.New(cbCfg),
		retryConfig:    retryCfg,
	}
}

// do executes fn through retry and the circuit breaker, returning its result.
func (p *protectedClient) do(ctx context.Context, url string, fn func() (interface{}, error)) (interface{}, error) {
	var result interface{}

	retryErr := retry.WithBackoff(ctx, p.retryConfig, func() error {
		cbResult, err := p.circuitBreaker.Execute(fn)
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("source circuit breaker open, request rejected",
					slog.String("source", p.name),
					slog.String("url", url),
					slog.String("state", p.circuitBreaker.State().String()))
			}
			return err
		}
		result = cbResult
		return nil
	})
	if retryErr != nil {
		return nil, retryErr
	}
	return result, nil
}

// getJSON fetches url and decodes the JSON body into out.
func (p *protectedClient) getJSON(ctx context.Context, url string, out interface{}) error {
	_, err := p.do(ctx, url, func() (interface{}, error) {
		body, err := p.fetch(ctx, url, "application/json")
		if err != nil {
			return nil, err
		}
		defer func() { _ = body.Close() }()

		if err := json.NewDecoder(io.LimitReader(body, maxBodySize)).Decode(out); err != nil {
			return nil, fmt.Errorf("decode JSON: %w", err)
		}
		return nil, nil
	})
	return err
}

// getDocument fetches url and parses the HTML body.
func (p *protectedClient) getDocument(ctx context.Context, url string) (*goquery.Document, error) {
	result, err := p.do(ctx, url, func() (interface{}, error) {
		body, err := p.fetch(ctx, url, "text/html")
		if err != nil {
			return nil, err
		}
		defer func() { _ = body.Close() }()

		doc, err := goquery.NewDocumentFromReader(io.LimitReader(body, maxBodySize))
		if err != nil {
			return nil, fmt.Errorf("parse HTML: %w", err)
		}
		return doc, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*goquery.Document), nil
}

// fetch performs a single GET without retry or circuit breaker.
func (p *protectedClient) fetch(ctx context.Context, url, accept string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", accept)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, &retry.HTTPError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("unexpected status: %s", resp.Status),
		}
	}

	return resp.Body, nil
}
