package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raikasdev/howareya/core/model"
)

func sampleReport() model.RunReport {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return model.RunReport{
		ID:        "run-1",
		Trigger:   "cron",
		StartedAt: start,
		Duration:  1500 * time.Millisecond,
		Results: []model.ContactResult{
			{ContactID: 1, OwnerID: "u1", Outcome: model.OutcomeBooked, Start: start.Add(72 * time.Hour)},
			{ContactID: 2, OwnerID: "u1", Outcome: model.OutcomeNotDue},
			{ContactID: 3, OwnerID: "u2", Outcome: model.OutcomeNoSlot, Reason: "no free slot"},
		},
	}
}

func TestPromSinkRecordRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	r := sampleReport()
	require.NoError(t, sink.RecordRun(r))

	assert.Equal(t, 1.0, testutil.ToFloat64(sink.runs.WithLabelValues("cron")))
	assert.Equal(t, float64(r.StartedAt.Unix()), testutil.ToFloat64(sink.lastRun))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.lastRunContacts.WithLabelValues("booked")))
	assert.Equal(t, 0.0, testutil.ToFloat64(sink.lastRunContacts.WithLabelValues("panic")))
	assert.Equal(t, 1, testutil.CollectAndCount(sink.leadTime))
}

func TestPromSinkReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	s1, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)
	s2, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	require.NoError(t, s1.RecordRun(sampleReport()))
	require.NoError(t, s2.RecordRun(sampleReport()))
	assert.Equal(t, 2.0, testutil.ToFloat64(s1.runs.WithLabelValues("cron")))
}
