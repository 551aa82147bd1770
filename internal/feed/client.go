// Package feed queries the upstream GraphQL API for recently detected
// hijacks.
package feed

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tbourn/hijack-notifier/internal/config"
	"github.com/tbourn/hijack-notifier/internal/domain"
)

// ErrFeedStatus is returned when the API answers with a non-200 code.
var ErrFeedStatus = errors.New("feed returned non-200 status")

// ErrGraphQL is returned when the response carries GraphQL errors.
var ErrGraphQL = errors.New("feed graphql error")

const hijacksQuery = `query hijacks {
  view_hijacks(order_by: {time_last: desc}, where: {time_detected: {_gte: "%s"}}) {
    key
    time_detected
    time_last
    prefix
    hijack_as
    type
    active
  }
}`

// isoMillis matches the timestamp layout the API filters on.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// TokenSource supplies the bearer token for each request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Client is a minimal GraphQL client for the hijacks view.
type Client struct {
	url    string
	tokens TokenSource
	client *http.Client
}

// New builds a Client from configuration. When InsecureTLS is set,
// certificate verification is disabled so self-signed dashboards work.
func New(cfg config.FeedConfig, tokens TokenSource) *Client {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.InsecureTLS {
		tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in via FEED_INSECURE_TLS
	}
	return NewWithClient(cfg.URL, tokens, &http.Client{Timeout: 30 * time.Second, Transport: tr})
}

// NewWithClient builds a Client using the given HTTP client. tokens may be
// nil, in which case requests are sent without authorization.
func NewWithClient(url string, tokens TokenSource, hc *http.Client) *Client {
	return &Client{url: url, tokens: tokens, client: hc}
}

type gqlRequest struct {
	Query string `json:"query"`
}

type gqlError struct {
	Message string `json:"message"`
}

type wireHijack struct {
	Key          string `json:"key"`
	TimeDetected string `json:"time_detected"`
	TimeLast     string `json:"time_last"`
	Prefix       string `json:"prefix"`
	HijackAS     int64  `json:"hijack_as"`
	Type         string `json:"type"`
	Active       bool   `json:"active"`
}

type gqlResponse struct {
	Data struct {
		ViewHijacks []wireHijack `json:"view_hijacks"`
	} `json:"data"`
	Errors []gqlError `json:"errors"`
}

// Since returns the hijacks detected at or after since, most recently
// updated first.
func (c *Client) Since(ctx context.Context, since time.Time) ([]domain.HijackEvent, error) {
	body, err := json.Marshal(gqlRequest{Query: fmt.Sprintf(hijacksQuery, since.UTC().Format(isoMillis))})
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.tokens != nil {
		tok, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("forge token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: %s", ErrFeedStatus, resp.Status)
	}

	var out gqlResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(out.Errors) > 0 {
		msgs := make([]string, 0, len(out.Errors))
		for _, e := range out.Errors {
			msgs = append(msgs, e.Message)
		}
		return nil, fmt.Errorf("%w: %s", ErrGraphQL, strings.Join(msgs, "; "))
	}

	events := make([]domain.HijackEvent, 0, len(out.Data.ViewHijacks))
	for _, h := range out.Data.ViewHijacks {
		if h.Key == "" {
			continue
		}
		events = append(events, domain.HijackEvent{
			Key:        h.Key,
			DetectedAt: parseTime(h.TimeDetected),
			TimeLast:   parseTime(h.TimeLast),
			Prefix:     h.Prefix,
			HijackAS:   h.HijackAS,
			Type:       h.Type,
			Active:     h.Active,
		})
	}
	return events, nil
}

// timeLayouts are tried in order; timestamps without a zone are UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func parseTime(s string) time.Time {
	for _, l := range timeLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
