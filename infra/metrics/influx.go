package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/raikasdev/howareya/core/metrics"
	"github.com/raikasdev/howareya/core/model"
	"github.com/raikasdev/howareya/infra/logger"
)

// InfluxConfig holds the connection settings of an InfluxSink.
type InfluxConfig struct {
	URL    string `json:"url" validate:"required,url"`
	Token  string `json:"token"`
	Org    string `json:"org" validate:"required"`
	Bucket string `json:"bucket" validate:"required"`
}

// InfluxSink writes booking outcomes to an InfluxDB instance using the
// official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and returns a
// NopSink if the health check fails.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.MetricsSink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordRun writes one booking_run point and one booking_outcome point per
// contact.
func (s *InfluxSink) RecordRun(r model.RunReport) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	points := make([]*write.Point, 0, len(r.Results)+1)
	points = append(points, write.NewPointWithMeasurement("booking_run").
		AddTag("run_id", r.ID).
		AddTag("trigger", r.Trigger).
		AddTag("forced", strconv.FormatBool(r.Forced)).
		AddField("contacts", len(r.Results)).
		AddField("booked", r.Count(model.OutcomeBooked)).
		AddField("duration_ms", round3(r.Duration.Seconds()*1000)).
		SetTime(r.StartedAt))
	for _, res := range r.Results {
		points = append(points, outcomePoint(r.ID, r.Trigger, r.StartedAt, res))
	}
	return s.writeAPI.WritePoint(ctx, points...)
}

func outcomePoint(runID, trigger string, at time.Time, res model.ContactResult) *write.Point {
	p := write.NewPointWithMeasurement("booking_outcome").
		AddTag("run_id", runID).
		AddTag("trigger", trigger).
		AddTag("outcome", string(res.Outcome)).
		AddTag("owner_id", res.OwnerID).
		AddField("contact_id", res.ContactID)
	if res.Outcome == model.OutcomeBooked {
		p = p.AddField("lead_days", round3(res.Start.Sub(at).Hours()/24))
	}
	if res.Reason != "" {
		p = p.AddField("reason", res.Reason)
	}
	return p.SetTime(at)
}

// Close releases the underlying client.
func (s *InfluxSink) Close() { s.client.Close() }

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}

