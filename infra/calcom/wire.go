package calcom

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

type meResponse struct {
	User *struct {
		ID       json.Number `json:"id"`
		TimeZone string      `json:"timeZone"`
		Locale   string      `json:"locale"`
		Email    string      `json:"email"`
		Name     string      `json:"name"`
	} `json:"user"`
}

type availabilityResponse struct {
	DateRanges *[]struct {
		Start time.Time `json:"start"`
		End   time.Time `json:"end"`
	} `json:"dateRanges"`
}

// trpcResponse is the envelope of the public booking page API.
type trpcResponse[T any] struct {
	Result struct {
		Data struct {
			JSON *T `json:"json"`
		} `json:"data"`
	} `json:"result"`
}

type eventTypeJSON struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Length int    `json:"length"`
}

type slotsJSON struct {
	Slots map[string][]struct {
		Time time.Time `json:"time"`
	} `json:"slots"`
}

type eventInput struct {
	JSON struct {
		Username    string  `json:"username"`
		EventSlug   string  `json:"eventSlug"`
		IsTeamEvent bool    `json:"isTeamEvent"`
		Org         *string `json:"org"`
	} `json:"json"`
}

type slotsInput struct {
	JSON struct {
		IsTeamEvent   bool     `json:"isTeamEvent"`
		UsernameList  []string `json:"usernameList"`
		EventTypeSlug string   `json:"eventTypeSlug"`
		StartTime     string   `json:"startTime"`
		EndTime       string   `json:"endTime"`
		TimeZone      string   `json:"timeZone"`
		Duration      *int     `json:"duration"`
		RescheduleUID *string  `json:"rescheduleUid"`
		OrgSlug       *string  `json:"orgSlug"`
	} `json:"json"`
	Meta struct {
		Values map[string][]string `json:"values"`
	} `json:"meta"`
}

type bookingBody struct {
	EventTypeID int64             `json:"eventTypeId"`
	Start       string            `json:"start"`
	End         string            `json:"end,omitempty"`
	Responses   bookingResponses  `json:"responses"`
	Metadata    map[string]string `json:"metadata"`
	TimeZone    string            `json:"timeZone"`
	Language    string            `json:"language"`
	Description string            `json:"description"`
}

type bookingResponses struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Notes string `json:"notes"`
}

func idString(n json.Number) (string, error) {
	if n == "" {
		return "", fmt.Errorf("missing user id")
	}
	if _, err := strconv.ParseInt(string(n), 10, 64); err != nil {
		return "", fmt.Errorf("user id %q: %w", n, err)
	}
	return string(n), nil
}
