// Package sms is a client for the bulk SMS gateway. Requests are plain HTTP
// GETs authenticated with basic auth; responses are pipe-delimited text.
//
// Two calls are supported:
//
//   - Submit sends one message to many numbers and returns the per-number
//     acceptance answers, aligned positionally with the input.
//   - FetchDeliveryReports polls the delivery reports that changed since the
//     previous poll.
package sms

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tbourn/hijack-notifier/internal/config"
)

// ErrGatewayStatus is returned when the gateway answers with a non-200 code.
var ErrGatewayStatus = errors.New("sms gateway returned non-200 status")

// maxBodyBytes caps how much of a gateway response is read.
const maxBodyBytes = 1 << 20

// Client talks to the SMS gateway.
type Client struct {
	baseURL    string
	username   string
	password   string
	originator string
	client     *http.Client
}

// New builds a Client from configuration with a default HTTP client.
func New(cfg config.SMSConfig) *Client {
	return NewWithClient(cfg, &http.Client{Timeout: 30 * time.Second})
}

// NewWithClient builds a Client using the given HTTP client.
func NewWithClient(cfg config.SMSConfig, hc *http.Client) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		username:   cfg.Username,
		password:   cfg.Password,
		originator: cfg.Originator,
		client:     hc,
	}
}

// Submit sends text to every phone in a single bulk request and returns the
// parsed acceptance answers. A non-200 answer yields ErrGatewayStatus and no
// acceptances.
func (c *Client) Submit(ctx context.Context, phones []string, text string) ([]Acceptance, error) {
	if len(phones) == 0 {
		return nil, nil
	}
	// text is pre-encoded with the gateway's own escaping, so the query is
	// assembled by hand instead of through url.Values.
	query := "originator=" + url.QueryEscape(c.originator) +
		"&text=" + URLEncode(text) +
		"&request_delivery=true" +
		"&mobile_number=" + joinPhones(phones)

	body, err := c.get(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("submit sms: %w", err)
	}
	return ParseAcceptances(phones, body), nil
}

// joinPhones query-escapes each number so a leading "+" survives, and
// joins them with a literal comma.
func joinPhones(phones []string) string {
	escaped := make([]string, len(phones))
	for i, p := range phones {
		escaped[i] = url.QueryEscape(p)
	}
	return strings.Join(escaped, ",")
}

// FetchDeliveryReports polls the gateway for delivery reports.
func (c *Client) FetchDeliveryReports(ctx context.Context) ([]DeliveryReport, error) {
	body, err := c.get(ctx, "get_status")
	if err != nil {
		return nil, fmt.Errorf("fetch delivery reports: %w", err)
	}
	return ParseDeliveryReports(body), nil
}

func (c *Client) get(ctx context.Context, rawQuery string) (string, error) {
	sep := "?"
	if strings.Contains(c.baseURL, "?") {
		sep = "&"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+sep+rawQuery, nil)
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	if c.username != "" || c.password != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return "", fmt.Errorf("%w: %s", ErrGatewayStatus, resp.Status)
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(b), nil
}
