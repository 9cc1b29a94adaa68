package calcom

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/raikasdev/howareya/core/calapi"
	"github.com/raikasdev/howareya/core/model"
	"github.com/raikasdev/howareya/infra/logger"
)

const maxErrorBody = 512

// Client talks to the cal.com REST and public booking page APIs.
type Client struct {
	http      *http.Client
	apiURL    string
	publicURL string
	limiter   *rate.Limiter
	log       logger.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithLogger replaces the client's logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

// NewClient creates a client from cfg. Missing settings use defaults.
func NewClient(cfg Config, opts ...Option) *Client {
	cfg.SetDefaults()
	c := &Client{
		http:      &http.Client{Timeout: cfg.Timeout()},
		apiURL:    strings.TrimSuffix(cfg.APIURL, "/"),
		publicURL: strings.TrimSuffix(cfg.PublicURL, "/"),
		limiter:   rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
		log:       logger.New("calcom-client"),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

var _ calapi.Client = (*Client)(nil)

// GetProfile resolves the organizer behind apiKey via /me.
func (c *Client) GetProfile(ctx context.Context, apiKey string) (model.Profile, error) {
	var resp meResponse
	u := c.apiEndpoint("/me", url.Values{"apiKey": {apiKey}})
	if err := c.getJSON(ctx, "profile", u, &resp); err != nil {
		return model.Profile{}, err
	}
	if resp.User == nil || resp.User.TimeZone == "" {
		return model.Profile{}, unavailable("profile", errors.New("response has no user"))
	}
	id, err := idString(resp.User.ID)
	if err != nil {
		return model.Profile{}, unavailable("profile", err)
	}
	return model.Profile{
		UserID:   id,
		TimeZone: resp.User.TimeZone,
		Locale:   resp.User.Locale,
		Email:    resp.User.Email,
		Name:     resp.User.Name,
	}, nil
}

// GetFreeBusy lists the organizer's open ranges via /availability.
func (c *Client) GetFreeBusy(ctx context.Context, apiKey, userID string, from, to time.Time) ([]model.DateRange, error) {
	var resp availabilityResponse
	u := c.apiEndpoint("/availability", url.Values{
		"apiKey":   {apiKey},
		"userId":   {userID},
		"dateFrom": {from.UTC().Format(time.RFC3339)},
		"dateTo":   {to.UTC().Format(time.RFC3339)},
	})
	if err := c.getJSON(ctx, "availability", u, &resp); err != nil {
		return nil, err
	}
	if resp.DateRanges == nil {
		return nil, unavailable("availability", errors.New("response has no dateRanges"))
	}
	out := make([]model.DateRange, 0, len(*resp.DateRanges))
	for _, r := range *resp.DateRanges {
		out = append(out, model.DateRange{Start: r.Start, End: r.End})
	}
	return out, nil
}

// GetEventType looks up a public event type.
func (c *Client) GetEventType(ctx context.Context, username, eventSlug string) (model.EventType, error) {
	var in eventInput
	in.JSON.Username = username
	in.JSON.EventSlug = eventSlug
	u, err := c.publicEndpoint("/event", in)
	if err != nil {
		return model.EventType{}, unavailable("event_type", err)
	}
	var resp trpcResponse[eventTypeJSON]
	if err := c.getJSON(ctx, "event_type", u, &resp); err != nil {
		return model.EventType{}, err
	}
	ev := resp.Result.Data.JSON
	if ev == nil || ev.ID == 0 {
		return model.EventType{}, unavailable("event_type", fmt.Errorf("event %s/%s not found", username, eventSlug))
	}
	return model.EventType{ID: ev.ID, Title: ev.Title, DurationMinutes: ev.Length}, nil
}

// GetCandidateSlots lists published start times, flattened across days and
// sorted ascending.
func (c *Client) GetCandidateSlots(ctx context.Context, username, eventSlug string, from, to time.Time, timeZone string) ([]time.Time, error) {
	var in slotsInput
	in.JSON.UsernameList = []string{username}
	in.JSON.EventTypeSlug = eventSlug
	in.JSON.StartTime = from.UTC().Format(time.RFC3339)
	in.JSON.EndTime = to.UTC().Format(time.RFC3339)
	in.JSON.TimeZone = timeZone
	in.Meta.Values = map[string][]string{"duration": {"undefined"}, "orgSlug": {"undefined"}}
	u, err := c.publicEndpoint("/slots.getSchedule", in)
	if err != nil {
		return nil, unavailable("slots", err)
	}
	var resp trpcResponse[slotsJSON]
	if err := c.getJSON(ctx, "slots", u, &resp); err != nil {
		return nil, err
	}
	if resp.Result.Data.JSON == nil {
		return nil, unavailable("slots", errors.New("response has no slots"))
	}
	var out []time.Time
	for _, day := range resp.Result.Data.JSON.Slots {
		for _, s := range day {
			out = append(out, s.Time)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

// CreateBooking posts a booking to /bookings.
func (c *Client) CreateBooking(ctx context.Context, apiKey string, req model.BookingRequest) error {
	locale := req.Locale
	if locale == "" {
		locale = "en"
	}
	body := bookingBody{
		EventTypeID: req.EventTypeID,
		Start:       req.Start.UTC().Format(time.RFC3339),
		Responses: bookingResponses{
			Name:  req.AttendeeName,
			Email: req.AttendeeEmail,
			Notes: req.Notes,
		},
		Metadata:    map[string]string{"howareya": "true"},
		TimeZone:    req.TimeZone,
		Language:    locale,
		Description: req.Notes,
	}
	if req.DurationMinutes > 0 {
		body.End = req.Start.Add(time.Duration(req.DurationMinutes) * time.Minute).UTC().Format(time.RFC3339)
	}
	if req.IdempotencyKey != "" {
		body.Metadata["idempotency_key"] = req.IdempotencyKey
	}
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%w: encode booking: %v", calapi.ErrBookingFailed, err)
	}
	u := c.apiEndpoint("/bookings", url.Values{"apiKey": {apiKey}})
	status, respBody, err := c.do(ctx, "booking", http.MethodPost, u, data)
	if err != nil {
		return fmt.Errorf("%w: %v", calapi.ErrBookingFailed, err)
	}
	if status < 200 || status > 299 {
		return fmt.Errorf("%w: status %d: %s", calapi.ErrBookingFailed, status, respBody)
	}
	return nil
}

func (c *Client) apiEndpoint(path string, q url.Values) string {
	return c.apiURL + path + "?" + q.Encode()
}

func (c *Client) publicEndpoint(path string, input any) (string, error) {
	raw, err := json.Marshal(input)
	if err != nil {
		return "", err
	}
	return c.publicURL + path + "?" + url.Values{"input": {string(raw)}}.Encode(), nil
}

func (c *Client) getJSON(ctx context.Context, op, u string, out any) error {
	status, body, err := c.do(ctx, op, http.MethodGet, u, nil)
	if err != nil {
		return unavailable(op, err)
	}
	if status != http.StatusOK {
		return unavailable(op, fmt.Errorf("unexpected status code: %d, body: %s", status, body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return unavailable(op, fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}

// do performs one rate limited request and records its result.
func (c *Client) do(ctx context.Context, op, method, u string, body []byte) (int, []byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		requestsTotal.WithLabelValues(op, "rate_limited").Inc()
		return 0, nil, err
	}
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rdr)
	if err != nil {
		requestsTotal.WithLabelValues(op, "error").Inc()
		return 0, nil, fmt.Errorf("failed to create request: %w", redact(err))
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		requestsTotal.WithLabelValues(op, "error").Inc()
		return 0, nil, fmt.Errorf("failed to send request: %w", redact(err))
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		requestsTotal.WithLabelValues(op, "error").Inc()
		return resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err)
	}
	requestsTotal.WithLabelValues(op, statusClass(resp.StatusCode)).Inc()
	c.log.Debugw("calcom request", map[string]any{
		"operation":   op,
		"status":      resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data = truncate(data)
	}
	return resp.StatusCode, data, nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", calapi.ErrUnavailable, op, err)
}

// redact drops the request URL, which carries the API key, from transport
// errors.
func redact(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return fmt.Errorf("%s: %w", uerr.Op, uerr.Err)
	}
	return err
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

func truncate(b []byte) []byte {
	if len(b) > maxErrorBody {
		return b[:maxErrorBody]
	}
	return b
}
