package monitoring

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recordingMonitor struct {
	errs   []error
	panics []any
	tags   []map[string]string
}

func (r *recordingMonitor) CaptureException(err error, tags map[string]string) {
	r.errs = append(r.errs, err)
	r.tags = append(r.tags, tags)
}

func (r *recordingMonitor) CapturePanic(v any, tags map[string]string) {
	r.panics = append(r.panics, v)
	r.tags = append(r.tags, tags)
}

func (r *recordingMonitor) Flush(time.Duration) {}

func TestGlobalMonitor(t *testing.T) {
	rec := &recordingMonitor{}
	Init(rec)
	t.Cleanup(func() { Init(NopMonitor{}) })

	CaptureException(nil, nil)
	CaptureException(errors.New("boom"), map[string]string{"module": "booking"})
	CapturePanic("oops", map[string]string{"contact_id": "1"})
	Flush(time.Millisecond)

	assert.Len(t, rec.errs, 1)
	assert.Equal(t, []any{"oops"}, rec.panics)
	assert.Equal(t, "booking", rec.tags[0]["module"])
}

func TestInitIgnoresNil(t *testing.T) {
	rec := &recordingMonitor{}
	Init(rec)
	t.Cleanup(func() { Init(NopMonitor{}) })
	Init(nil)
	CapturePanic(1, nil)
	assert.Len(t, rec.panics, 1)
}

func TestPanicError(t *testing.T) {
	base := errors.New("inner")
	assert.ErrorIs(t, PanicError(base), base)
	assert.EqualError(t, PanicError("x"), "panic: x")
}
