package calcom

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raikasdev/howareya/core/calapi"
	"github.com/raikasdev/howareya/core/model"
	"github.com/raikasdev/howareya/infra/logger"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	ResetMetrics(prometheus.NewRegistry())
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		APIURL:        srv.URL + "/api/v1",
		PublicURL:     srv.URL + "/trpc",
		RatePerSecond: 1000,
		Burst:         100,
	}, WithLogger(logger.NopLogger{}))
}

func decodeInput(t *testing.T, r *http.Request, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal([]byte(r.URL.Query().Get("input")), out))
}

func TestGetProfile(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/me", r.URL.Path)
		assert.Equal(t, "secret", r.URL.Query().Get("apiKey"))
		_, _ = io.WriteString(w, `{"user":{"id":42,"timeZone":"Europe/Helsinki","locale":"fi","email":"o@example.com","name":"Olli"}}`)
	}))

	p, err := c.GetProfile(context.Background(), "secret")
	require.NoError(t, err)
	assert.Equal(t, model.Profile{UserID: "42", TimeZone: "Europe/Helsinki", Locale: "fi", Email: "o@example.com", Name: "Olli"}, p)
	assert.Equal(t, 1.0, testutil.ToFloat64(requestsTotal.WithLabelValues("profile", "2xx")))
}

func TestGetProfileFailures(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"status": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"message":"invalid key"}`)
		},
		"no user": func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{}`)
		},
		"bad json": func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"user":`)
		},
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, h)
			_, err := c.GetProfile(context.Background(), "secret")
			assert.ErrorIs(t, err, calapi.ErrUnavailable)
			assert.NotContains(t, err.Error(), "secret")
		})
	}
}

func TestTransportErrorRedactsKey(t *testing.T) {
	c := NewClient(Config{APIURL: "http://127.0.0.1:1/api/v1", RatePerSecond: 100, Burst: 1}, WithLogger(logger.NopLogger{}))
	_, err := c.GetProfile(context.Background(), "topsecret")
	require.Error(t, err)
	assert.True(t, calapi.IsUnavailable(err))
	assert.NotContains(t, err.Error(), "topsecret")
}

func TestGetFreeBusy(t *testing.T) {
	from := time.Date(2024, 5, 3, 12, 0, 0, 0, time.UTC)
	to := from.Add(8 * 24 * time.Hour)
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/api/v1/availability", r.URL.Path)
		assert.Equal(t, "42", q.Get("userId"))
		assert.Equal(t, "2024-05-03T12:00:00Z", q.Get("dateFrom"))
		assert.Equal(t, "2024-05-11T12:00:00Z", q.Get("dateTo"))
		_, _ = io.WriteString(w, `{"dateRanges":[{"start":"2024-05-03T09:00:00.000Z","end":"2024-05-03T10:00:00.000Z"}]}`)
	}))

	ranges, err := c.GetFreeBusy(context.Background(), "k", "42", from, to)
	require.NoError(t, err)
	require.Len(t, ranges, 1)
	assert.True(t, ranges[0].Start.Equal(time.Date(2024, 5, 3, 9, 0, 0, 0, time.UTC)))
}

func TestGetFreeBusyMissingRanges(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"busy":[]}`)
	}))
	_, err := c.GetFreeBusy(context.Background(), "k", "42", time.Now(), time.Now())
	assert.ErrorIs(t, err, calapi.ErrUnavailable)
}

func TestGetEventType(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/trpc/event", r.URL.Path)
		var in eventInput
		decodeInput(t, r, &in)
		assert.Equal(t, "alice", in.JSON.Username)
		assert.Equal(t, "coffee", in.JSON.EventSlug)
		_, _ = io.WriteString(w, `{"result":{"data":{"json":{"id":7,"title":"Coffee","length":30}}}}`)
	}))

	ev, err := c.GetEventType(context.Background(), "alice", "coffee")
	require.NoError(t, err)
	assert.Equal(t, model.EventType{ID: 7, Title: "Coffee", DurationMinutes: 30}, ev)
}

func TestGetEventTypeNotFound(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"result":{"data":{"json":null}}}`)
	}))
	_, err := c.GetEventType(context.Background(), "alice", "coffee")
	assert.ErrorIs(t, err, calapi.ErrUnavailable)
}

func TestGetCandidateSlotsFlattensAndSorts(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/trpc/slots.getSchedule", r.URL.Path)
		var in slotsInput
		decodeInput(t, r, &in)
		assert.Equal(t, []string{"alice"}, in.JSON.UsernameList)
		assert.Equal(t, "Europe/Helsinki", in.JSON.TimeZone)
		assert.Equal(t, []string{"undefined"}, in.Meta.Values["orgSlug"])
		_, _ = io.WriteString(w, `{"result":{"data":{"json":{"slots":{
			"2024-05-04":[{"time":"2024-05-04T08:00:00Z"}],
			"2024-05-03":[{"time":"2024-05-03T09:00:00Z"},{"time":"2024-05-03T08:00:00Z"}]}}}}}`)
	}))

	slots, err := c.GetCandidateSlots(context.Background(), "alice", "coffee", time.Now(), time.Now(), "Europe/Helsinki")
	require.NoError(t, err)
	require.Len(t, slots, 3)
	assert.True(t, slots[0].Equal(time.Date(2024, 5, 3, 8, 0, 0, 0, time.UTC)))
	assert.True(t, slots[2].Equal(time.Date(2024, 5, 4, 8, 0, 0, 0, time.UTC)))
}

func TestCreateBooking(t *testing.T) {
	start := time.Date(2024, 5, 4, 8, 0, 0, 0, time.UTC)
	var got bookingBody
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/bookings", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":1}`)
	}))

	err := c.CreateBooking(context.Background(), "k", model.BookingRequest{
		EventTypeID:     7,
		Start:           start,
		DurationMinutes: 30,
		AttendeeName:    "Olli",
		AttendeeEmail:   "o@example.com",
		TimeZone:        "Europe/Helsinki",
		Notes:           "hello",
		IdempotencyKey:  "abc",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.EventTypeID)
	assert.Equal(t, "2024-05-04T08:00:00Z", got.Start)
	assert.Equal(t, "2024-05-04T08:30:00Z", got.End)
	assert.Equal(t, "en", got.Language)
	assert.Equal(t, "hello", got.Responses.Notes)
	assert.Equal(t, map[string]string{"howareya": "true", "idempotency_key": "abc"}, got.Metadata)
}

func TestCreateBookingRejected(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = io.WriteString(w, strings.Repeat("x", 2*maxErrorBody))
	}))
	err := c.CreateBooking(context.Background(), "k", model.BookingRequest{Start: time.Now()})
	require.ErrorIs(t, err, calapi.ErrBookingFailed)
	assert.Less(t, len(err.Error()), 2*maxErrorBody)
	assert.Equal(t, 1.0, testutil.ToFloat64(requestsTotal.WithLabelValues("booking", "4xx")))
}

func TestCanceledContextStopsAtLimiter(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request must not be sent")
	}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.GetProfile(ctx, "k")
	assert.ErrorIs(t, err, calapi.ErrUnavailable)
}

func TestRedact(t *testing.T) {
	err := redact(&url.Error{Op: "Get", URL: "http://x/?apiKey=abc", Err: io.EOF})
	assert.ErrorIs(t, err, io.EOF)
	assert.NotContains(t, err.Error(), "abc")
}
