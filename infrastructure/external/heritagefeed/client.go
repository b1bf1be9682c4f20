// Package heritagefeed is the adapter for the third-party cultural events
// API. Its raw schema (localized text fields, image variants, a nested
// location object) is normalized into domain.Event here; nothing upstream
// of this package sees the feed's shapes.
package heritagefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"songarchive-backend/application/ports"
	"songarchive-backend/domain"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// DefaultTimeout bounds one fetch attempt before the single retry.
const DefaultTimeout = 10 * time.Second

// Config holds the feed connection settings.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client queries the feed with one immediate retry on failure and a circuit
// breaker so a dead feed degrades aggregation fast instead of burning the
// timeout on every request.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// NewClient creates a feed client. A zero timeout selects DefaultTimeout.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "heritage-feed",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Feed circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		breaker: breaker,
		logger:  logger,
	}
}

var _ ports.EventFeed = (*Client)(nil)

// FetchEvents queries the feed, retrying exactly once on failure with no
// backoff. A second failure is reported to the caller, which degrades to
// cached data.
func (c *Client) FetchEvents(ctx context.Context, q ports.FeedQuery) ([]domain.Event, error) {
	events, err := c.fetch(ctx, q)
	if err == nil {
		return events, nil
	}

	c.logger.Warn("Feed fetch failed, retrying once", zap.Error(err))

	events, retryErr := c.fetch(ctx, q)
	if retryErr != nil {
		return nil, fmt.Errorf("feed fetch failed after retry: %w", retryErr)
	}
	return events, nil
}

func (c *Client) fetch(ctx context.Context, q ports.FeedQuery) ([]domain.Event, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.doFetch(ctx, q)
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Event), nil
}

func (c *Client) doFetch(ctx context.Context, q ports.FeedQuery) ([]domain.Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/events?"+c.query(q).Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build feed request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	var raw []feedEvent
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode feed response: %w", err)
	}

	events := make([]domain.Event, 0, len(raw))
	for _, fe := range raw {
		events = append(events, fe.normalize())
	}
	return events, nil
}

func (c *Client) query(q ports.FeedQuery) url.Values {
	values := url.Values{}
	if !q.From.IsZero() {
		values.Set("from", q.From.UTC().Format(time.RFC3339))
	}
	if !q.To.IsZero() {
		values.Set("to", q.To.UTC().Format(time.RFC3339))
	}
	if q.Search != "" {
		values.Set("q", q.Search)
	}
	if len(q.Keywords) > 0 {
		values.Set("keywords", strings.Join(q.Keywords, ","))
	}
	if q.HasBounds {
		values.Set("bbox", fmt.Sprintf("%f,%f,%f,%f", q.West, q.South, q.East, q.North))
	}
	if q.Limit > 0 {
		values.Set("limit", strconv.Itoa(q.Limit))
	}
	return values
}

// feedEvent is the feed's raw record shape.
type feedEvent struct {
	ID          string            `json:"id"`
	Title       map[string]string `json:"title"`
	Description map[string]string `json:"description"`
	StartDate   string            `json:"start_date"`
	EndDate     string            `json:"end_date"`
	Images      struct {
		Variants []struct {
			URL   string `json:"url"`
			Width int    `json:"width"`
		} `json:"variants"`
	} `json:"images"`
	Location struct {
		Venue   string `json:"venue"`
		Street  string `json:"street"`
		City    string `json:"city"`
		Country string `json:"country"`
		Coords  struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"coordinates"`
	} `json:"location"`
	Organizer string `json:"organizer"`
	Links     struct {
		Tickets string `json:"tickets"`
		Website string `json:"website"`
	} `json:"links"`
	Keywords []string `json:"keywords"`
}

// normalize maps the raw record into the canonical event shape. Dates are
// parsed once here; records with unparseable start dates keep a zero time
// and sort first rather than failing the whole fetch.
func (fe feedEvent) normalize() domain.Event {
	return domain.Event{
		ID:          "feed-" + fe.ID,
		Title:       localized(fe.Title),
		Description: localized(fe.Description),
		StartDate:   parseFeedTime(fe.StartDate),
		EndDate:     parseFeedTime(fe.EndDate),
		ImageRef:    fe.largestImage(),
		Venue:       fe.Location.Venue,
		Address:     fe.Location.Street,
		City:        fe.Location.City,
		Country:     fe.Location.Country,
		Latitude:    fe.Location.Coords.Lat,
		Longitude:   fe.Location.Coords.Lng,
		Organizer:   fe.Organizer,
		TicketURL:   fe.Links.Tickets,
		WebsiteURL:  fe.Links.Website,
		Keywords:    fe.Keywords,
		Source:      domain.SourceFeed,
	}
}

func (fe feedEvent) largestImage() string {
	best := ""
	bestWidth := -1
	for _, v := range fe.Images.Variants {
		if v.Width > bestWidth {
			best = v.URL
			bestWidth = v.Width
		}
	}
	return best
}

// localized picks the English variant, falling back to any value present.
func localized(values map[string]string) string {
	if v, ok := values["en"]; ok && v != "" {
		return v
	}
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func parseFeedTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t
	}
	return time.Time{}
}
