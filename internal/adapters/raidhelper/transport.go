package raidhelper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const defaultBase = "https://raid-helper.dev/api"

type Client struct {
	apiKey   string
	serverID string
	http     *http.Client
	baseURL  string
}

func New(apiKey, serverID string, opts ...Option) *Client {
	c := &Client{
		apiKey:   apiKey,
		serverID: serverID,
		http:     &http.Client{Timeout: 15 * time.Second},
		baseURL:  defaultBase,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// doJSON: arma la URL, agrega el api key, maneja 404 y 429 con Retry-After.
// A lo sumo un reintento: si el server contesta 429 dos veces seguidas,
// devolvemos el APIError y que decida el caller.
func (c *Client) doJSON(ctx context.Context, method, path string, out any) error {
	for attempt := 0; ; attempt++ {
		req, _ := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
		req.Header.Set("Authorization", c.apiKey)
		req.Header.Set("Accept", "application/json")

		res, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("raidhelper http: %w", err)
		}

		if res.StatusCode == http.StatusTooManyRequests && attempt == 0 {
			if sec, _ := strconv.Atoi(res.Header.Get("Retry-After")); sec > 0 {
				res.Body.Close()
				select {
				case <-time.After(time.Duration(sec) * time.Second):
				case <-ctx.Done():
					return ctx.Err()
				}
				continue
			}
		}

		defer res.Body.Close()
		if res.StatusCode == http.StatusNotFound {
			return ErrNotFound
		}
		if res.StatusCode < 200 || res.StatusCode >= 300 {
			b, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
			return &APIError{Status: res.StatusCode, Body: strings.TrimSpace(string(b))}
		}
		return json.NewDecoder(res.Body).Decode(out)
	}
}
