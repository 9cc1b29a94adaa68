package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raikasdev/howareya/config"
	"github.com/raikasdev/howareya/core/factory"
	"github.com/raikasdev/howareya/core/model"
	"github.com/raikasdev/howareya/trigger"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.Store.Path = filepath.Join(t.TempDir(), "howareya.db")
	cfg.Trigger = trigger.Config{Secret: "s", Address: "127.0.0.1:0", Cron: "@yearly"}
	cfg.Metrics.Sinks = []factory.ModuleConfig{{Type: "nop"}}
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestSetup(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, Setup(cfg))

	cfg.Log.Level = "shouting"
	assert.Error(t, Setup(cfg))
}

func TestNewAndRun(t *testing.T) {
	cfg := testConfig(t)
	svc, err := New(cfg)
	require.NoError(t, err)
	defer func() { assert.NoError(t, svc.Close()) }()

	require.NoError(t, svc.Store.SaveUser(context.Background(), model.User{ID: "u1", Name: "Olli"}))

	// A user without an API key is skipped without any network call.
	_, err = svc.Store.AddContact(context.Background(), model.Contact{
		OwnerID: "u1", MeetingURL: "https://cal.com/alice/coffee", Frequency: model.FrequencyWeekly,
	})
	require.NoError(t, err)
	report, err := svc.Runner.Sweep(context.Background(), trigger.SourceCLI)
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.Equal(t, model.OutcomeNotConnected, report.Results[0].Outcome)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("service did not stop")
	}
}

func TestNewRejectsUnknownSink(t *testing.T) {
	cfg := testConfig(t)
	cfg.Metrics.Sinks = []factory.ModuleConfig{{Type: "carrier-pigeon"}}

	_, err := New(cfg)
	assert.Error(t, err)
}
