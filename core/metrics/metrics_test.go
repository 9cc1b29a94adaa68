package metrics

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raikasdev/howareya/core/factory"
	"github.com/raikasdev/howareya/core/model"
)

type recordSink struct {
	runs int
	err  error
}

func (r *recordSink) RecordRun(model.RunReport) error {
	r.runs++
	return r.err
}

func TestMultiSinkForwardsAndJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	s1 := &recordSink{err: boom}
	s2 := &recordSink{}
	m := NewMultiSink(s1, s2, NopSink{})

	err := m.RecordRun(model.RunReport{})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, s1.runs)
	assert.Equal(t, 1, s2.runs)
}

func TestNewMetricsSink(t *testing.T) {
	require.NoError(t, RegisterMetricsSink("test-record", func(map[string]any) (MetricsSink, error) {
		return &recordSink{}, nil
	}))

	s, err := NewMetricsSink(nil)
	require.NoError(t, err)
	assert.IsType(t, NopSink{}, s)

	s, err = NewMetricsSink([]factory.ModuleConfig{{Type: "test-record"}})
	require.NoError(t, err)
	assert.IsType(t, &recordSink{}, s)

	s, err = NewMetricsSink([]factory.ModuleConfig{{Type: "test-record"}, {Type: "test-record"}})
	require.NoError(t, err)
	multi, ok := s.(*MultiSink)
	require.True(t, ok)
	assert.Len(t, multi.Sinks, 2)

	_, err = NewMetricsSink([]factory.ModuleConfig{{Type: "missing"}})
	assert.Error(t, err)
}

type closingSink struct {
	recordSink
	closed int
}

func (c *closingSink) Close() { c.closed++ }

func TestClose(t *testing.T) {
	a, b := &closingSink{}, &closingSink{}
	Close(NewMultiSink(a, &recordSink{}, NopSink{}, b))
	assert.Equal(t, 1, a.closed)
	assert.Equal(t, 1, b.closed)

	Close(a)
	assert.Equal(t, 2, a.closed)
	Close(NopSink{})
}
