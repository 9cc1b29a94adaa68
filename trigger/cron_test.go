package trigger

import (
	"context"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigDefaultsAndValidate(t *testing.T) {
	cfg := Config{Secret: "s3cret"}
	cfg.SetDefaults()
	assert.Equal(t, DefaultCron, cfg.Cron)
	assert.Equal(t, DefaultTimezone, cfg.Timezone)
	assert.Equal(t, DefaultAddress, cfg.Address)
	require.NoError(t, cfg.Validate())

	tests := map[string]Config{
		"missing secret": {Cron: DefaultCron, Timezone: "UTC"},
		"bad cron":       {Secret: "x", Cron: "every day", Timezone: "UTC"},
		"bad timezone":   {Secret: "x", Cron: DefaultCron, Timezone: "Mars/Olympus"},
	}
	for name, c := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, c.Validate())
		})
	}
}

func TestNewCronRejectsBadInput(t *testing.T) {
	r := NewRunner(seededStore(), &fakeOrch{}, nil)

	_, err := NewCron(Config{Cron: "61 * * * *"}, r, nil)
	assert.Error(t, err)

	_, err = NewCron(Config{Timezone: "Nowhere/Town"}, r, nil)
	assert.Error(t, err)
}

func TestCronNextHonoursTimezone(t *testing.T) {
	r := NewRunner(seededStore(), &fakeOrch{}, nil)
	c, err := NewCron(Config{Cron: "0 12 * * *", Timezone: "Europe/Helsinki"}, r, nil)
	require.NoError(t, err)

	// Helsinki is UTC+3 in May.
	next := c.Next(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	assert.True(t, next.Equal(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)), "got %s", next)

	next = c.Next(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC))
	assert.True(t, next.Equal(time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC)), "got %s", next)
}

func TestCronFireRunsSweep(t *testing.T) {
	orch := &fakeOrch{}
	c, err := NewCron(Config{RunTimeoutSeconds: 30}, NewRunner(seededStore(), orch, nil), nil)
	require.NoError(t, err)

	c.fire()

	calls := orch.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, SourceCron, calls[0].trigger)
	assert.False(t, calls[0].force)
	assert.Len(t, calls[0].ids, 3)
}

func TestCronStopsWithContext(t *testing.T) {
	orch := &fakeOrch{}
	c, err := NewCron(Config{Cron: "@yearly"}, NewRunner(seededStore(), orch, nil), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := c.Start(ctx)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("cron did not stop")
	}

	// Fires after shutdown are ignored.
	c.fire()
	assert.Empty(t, orch.Calls())
}
