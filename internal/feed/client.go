package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"mesa-status-backend/config"
)

// Client talks to the upstream reservation feed.
type Client struct {
	baseURL   string
	occupyURL string
	headers   map[string]string
	client    *http.Client
}

// NewClient creates a feed client from configuration.
func NewClient(cfg *config.FeedConfig) *Client {
	var transport http.RoundTripper = &http.Transport{}
	if cfg.HTTPProxy != "" {
		proxyURL, err := url.Parse(cfg.HTTPProxy)
		if err != nil {
			log.Printf("Warning: Invalid proxy URL %q: %v. Feed client will not use a proxy.", cfg.HTTPProxy, err)
		} else {
			transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		}
	}

	occupyURL := cfg.OccupyURL
	if occupyURL == "" {
		occupyURL = cfg.BaseURL + "/occupy-table"
	}

	return &Client{
		baseURL:   cfg.BaseURL,
		occupyURL: occupyURL,
		headers:   cfg.Headers,
		client: &http.Client{
			Transport: transport,
			Timeout:   30 * time.Second,
		},
	}
}

// Reservations fetches the reservation rows for a restaurant and date.
func (c *Client) Reservations(ctx context.Context, restaurantID int64, date string) ([]Record, error) {
	query := url.Values{}
	query.Set("restaurantId", strconv.FormatInt(restaurantID, 10))
	query.Set("fecha", date)

	var resp reservationsResponse
	if err := c.get(ctx, c.baseURL+"/reservas?"+query.Encode(), &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("feed rejected reservations request: %s", resp.Message)
	}
	return resp.Reservas, nil
}

// Schedule fetches the open/closed status for a restaurant at a date/time.
func (c *Client) Schedule(ctx context.Context, restaurantID int64, date, clock string) (OpenStatus, error) {
	query := url.Values{}
	query.Set("restaurantId", strconv.FormatInt(restaurantID, 10))
	query.Set("fecha", date)
	query.Set("hora", clock)

	var resp scheduleResponse
	if err := c.get(ctx, c.baseURL+"/horarios?"+query.Encode(), &resp); err != nil {
		return OpenStatus{}, err
	}
	if !resp.Success {
		return OpenStatus{}, fmt.Errorf("feed rejected schedule request: %s", resp.Message)
	}
	return resp.Status, nil
}

// UpdateReservationStatus writes a new status for a reservation back to the
// feed. The upstream treats repeated writes of the same status as no-ops,
// so duplicate auto-complete calls are harmless.
func (c *Client) UpdateReservationStatus(ctx context.Context, restaurantID int64, reservationID, newStatus, date string) error {
	payload := map[string]any{
		"restaurantId":  strconv.FormatInt(restaurantID, 10),
		"reservationId": reservationID,
		"newStatus":     newStatus,
		"fecha":         date,
	}
	return c.post(ctx, c.baseURL+"/update-reservation-status", payload)
}

// OccupyTable records a manual occupy/reserve action upstream.
func (c *Client) OccupyTable(ctx context.Context, req OccupyRequest) error {
	return c.post(ctx, c.occupyURL, req)
}

func (c *Client) get(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, rawURL string, payload any) error {
	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewBuffer(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var resp writeResponse
	if err := c.do(req, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("feed rejected write: %s", resp.Message)
	}
	return nil
}

func (c *Client) do(req *http.Request, out any) error {
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("received non-200 status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to unmarshal feed response: %w", err)
	}
	return nil
}
