package monitoring

import (
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raikasdev/howareya/config"
	coremon "github.com/raikasdev/howareya/core/monitoring"
)

func TestNewSentryMonitorWithoutDSN(t *testing.T) {
	m, err := NewSentryMonitor(config.SentryConfig{})
	require.NoError(t, err)
	assert.IsType(t, coremon.NopMonitor{}, m)
}

func TestNewSentryMonitorRejectsBadDSN(t *testing.T) {
	_, err := NewSentryMonitor(config.SentryConfig{DSN: "::not a dsn"})
	assert.Error(t, err)
}

func TestNewSentryMonitorAppliesConfig(t *testing.T) {
	t.Cleanup(func() { _ = sentry.Init(sentry.ClientOptions{}) })
	cfg := config.SentryConfig{
		DSN:              "https://public@sentry.example.com/1",
		Environment:      "staging",
		Release:          "howareya@1.2.0",
		ServerName:       "booker-2",
		AttachStacktrace: true,
	}

	m, err := NewSentryMonitor(cfg)
	require.NoError(t, err)
	assert.IsType(t, &sentryMonitor{}, m)

	opts := sentry.CurrentHub().Client().Options()
	assert.Equal(t, "booker-2", opts.ServerName)
	assert.Equal(t, "staging", opts.Environment)
	assert.Equal(t, "howareya@1.2.0", opts.Release)
	assert.True(t, opts.AttachStacktrace)
}
