// internal/adapters/strapi/client.go
package strapi

import (
	"bytes"
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"storefront/internal/adapters/observability"
)

type Client struct {
	base  string
	hc    *http.Client
	token string
	rl    *rate.Limiter
	cb    *gobreaker.CircuitBreaker[struct{}]
}

// New builds a CMS client. The token is optional; public collections work without it.
func New(base, token string, rps int) (*Client, error) {
	base = strings.TrimRight(base, "/")
	if base == "" || strings.Contains(base, "undefined") {
		return nil, fmt.Errorf("CMS base URL is required")
	}
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		base: base,
		hc: &http.Client{
			Timeout:   20 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		token: token,
		rl:    rate.NewLimiter(rate.Limit(rps), rps),
		cb: gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
			Name:        "strapi",
			MaxRequests: 1,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(c gobreaker.Counts) bool { return c.ConsecutiveFailures >= 5 },
			// client-side statuses say nothing about CMS health
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrUnauthorized) ||
					errors.Is(err, ErrForbidden) || errors.Is(err, ErrRejected)
			},
		}),
	}, nil
}

// ---- Public API ----

type listEnvelope struct {
	Data []map[string]any `json:"data"`
}

// FetchTours loads raw tour records by document id with every relation populated.
func (c *Client) FetchTours(ctx context.Context, ids []string) ([]map[string]any, error) {
	q := url.Values{}
	for i, id := range ids {
		q.Set(fmt.Sprintf("filters[documentId][$in][%d]", i), id)
	}
	q.Set("populate", "*")
	var env listEnvelope
	if err := c.do(ctx, http.MethodGet, "/api/tours", q, nil, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

func (c *Client) FetchContactInfos(ctx context.Context) ([]map[string]any, error) {
	q := url.Values{"populate": {"domain"}}
	var env listEnvelope
	if err := c.do(ctx, http.MethodGet, "/api/contact-infos", q, nil, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

// FindBookingByPaymentID reports whether a booking for the payment order already exists.
func (c *Client) FindBookingByPaymentID(ctx context.Context, orderID string) (bool, error) {
	q := url.Values{
		"filters[paypalOrderId][$eq]": {orderID},
		"fields[0]":                   {"paypalOrderId"},
	}
	var env listEnvelope
	if err := c.do(ctx, http.MethodGet, "/api/bookings", q, nil, &env); err != nil {
		return false, err
	}
	return len(env.Data) > 0, nil
}

func (c *Client) CreateBooking(ctx context.Context, payload any) error {
	return c.do(ctx, http.MethodPost, "/api/bookings", nil, payload, nil)
}

// ---- Internals ----

var (
	ErrNotFound     = errors.New("strapi: not found")
	ErrUnauthorized = errors.New("strapi: unauthorized")
	ErrForbidden    = errors.New("strapi: forbidden")
	ErrRejected     = errors.New("strapi: request rejected")
)

func (c *Client) do(ctx context.Context, method, path string, q url.Values, body, out any) error {
	u := c.base + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("strapi: encode %s: %w", path, err)
		}
		payload = b
	}

	start := time.Now()
	status := 0
	_, err := c.cb.Execute(func() (struct{}, error) {
		var err error
		status, err = c.send(ctx, method, u, payload, out)
		return struct{}{}, err
	})
	observability.ObserveExternal("strapi", method+" "+path, status, time.Since(start))
	return err
}

// send performs one call with client-side rate limiting, retries, and JSON decode into out.
// Retries on 429 and transient 5xx, honoring Retry-After when provided.
func (c *Client) send(ctx context.Context, method, target string, payload []byte, out any) (int, error) {
	// client-side rate limiting
	if err := c.rl.Wait(ctx); err != nil {
		return 0, err
	}

	var lastErr error
	for i := 0; i < 4; i++ {
		// build a fresh request each attempt
		var rdr io.Reader
		if payload != nil {
			rdr = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, target, rdr)
		if err != nil {
			return 0, err
		}
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "storefront/1.0")

		resp, err := c.hc.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return 0, ctx.Err()
			}
			lastErr = err
			if i < 3 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return 0, ctx.Err()
			}
			return 0, lastErr
		}

		switch resp.StatusCode {
		case http.StatusOK, http.StatusCreated, http.StatusAccepted:
			defer resp.Body.Close()
			if out == nil {
				io.Copy(io.Discard, resp.Body)
				return resp.StatusCode, nil
			}
			return resp.StatusCode, json.NewDecoder(resp.Body).Decode(out)

		case http.StatusNoContent:
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return resp.StatusCode, nil

		case http.StatusNotFound:
			resp.Body.Close()
			return resp.StatusCode, ErrNotFound

		case http.StatusUnauthorized:
			resp.Body.Close()
			return resp.StatusCode, ErrUnauthorized

		case http.StatusForbidden:
			resp.Body.Close()
			return resp.StatusCode, ErrForbidden

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			// a POST that reached a 500 may have been applied; only retry writes on 429/503
			if method != http.MethodGet && resp.StatusCode != http.StatusTooManyRequests &&
				resp.StatusCode != http.StatusServiceUnavailable {
				resp.Body.Close()
				return resp.StatusCode, fmt.Errorf("strapi: remote %d", resp.StatusCode)
			}
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("strapi: remote %d", resp.StatusCode)
			if i < 3 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return resp.StatusCode, ctx.Err()
			}
			return resp.StatusCode, lastErr

		default:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			err := fmt.Errorf("bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				err = fmt.Errorf("%w: %v", ErrRejected, err)
			}
			return resp.StatusCode, err
		}
	}

	return 0, lastErr
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After header (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff returns an exponential backoff delay (200ms, 400ms, 800ms...) with up to +50% jitter.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	j := time.Duration(0.5 * f * float64(base))
	return base + j
}
