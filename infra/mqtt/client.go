package mqtt

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/go-playground/validator/v10"

	"github.com/raikasdev/howareya/core/events"
	"github.com/raikasdev/howareya/core/model"
	"github.com/raikasdev/howareya/core/monitoring"
	"github.com/raikasdev/howareya/infra/logger"
	"github.com/raikasdev/howareya/internal/eventbus"
)

const DefaultTopic = "howareya/schedule/contact"

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	Broker   string `json:"broker" validate:"required"`
	ClientID string `json:"client_id"`
	Username string `json:"username"`
	Password string `json:"password"`
	// Topic carries schedule requests.
	Topic string `json:"topic"`
	// ResultTopic, when set, receives one message per contact outcome.
	ResultTopic string      `json:"result_topic"`
	QoS         byte        `json:"qos" validate:"lte=2"`
	UseTLS      bool        `json:"use_tls"`
	ClientCert  string      `json:"client_cert"`
	ClientKey   string      `json:"client_key"`
	CABundle    string      `json:"ca_bundle"`
	MaxRetries  int         `json:"max_retries"`
	BackoffMS   int         `json:"backoff_ms"`
	TLSConfig   *tls.Config `json:"-"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.Topic == "" {
		c.Topic = DefaultTopic
	}
	if c.ClientID == "" {
		c.ClientID = "howareya"
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BackoffMS <= 0 {
		c.BackoffMS = 100
	}
}

// ScheduleHandler runs a forced booking for one contact.
type ScheduleHandler func(ctx context.Context, req model.ScheduleRequest) error

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// Trigger subscribes to schedule requests and publishes booking outcomes.
type Trigger struct {
	cli      pahoClient
	cfg      Config
	handle   ScheduleHandler
	validate *validator.Validate
	log      logger.Logger
	ctx      context.Context
	backoff  time.Duration
}

// NewTrigger connects to the broker and subscribes to cfg.Topic. Every
// valid request is passed to handle on its own goroutine. Requests stop
// being handled once ctx is canceled.
func NewTrigger(ctx context.Context, cfg Config, handle ScheduleHandler) (*Trigger, error) {
	cfg.SetDefaults()
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	log := logger.New("mqtt-trigger")
	t := &Trigger{
		cfg:      cfg,
		handle:   handle,
		validate: validator.New(),
		log:      log,
		ctx:      ctx,
		backoff:  time.Duration(cfg.BackoffMS) * time.Millisecond,
	}
	opts.OnConnect = func(c paho.Client) {
		log.Infof("MQTT connected, subscribing to %s", cfg.Topic)
		if token := c.Subscribe(cfg.Topic, cfg.QoS, t.onMessage); token.Wait() && token.Error() != nil {
			log.Errorf("subscribe error: %v", token.Error())
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	t.cli = c
	return t, nil
}

// NewClientOptions builds mqtt client options from Config.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	// Handlers block on network calls; do not serialise them.
	opts.SetOrderMatters(false)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	return opts, nil
}

// LoadTLSConfig loads the TLS configuration from the file paths in the config.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	if c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "" {
		return nil, fmt.Errorf("tls config requires client_cert, client_key and ca_bundle")
	}
	cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("load cert: %w", err)
	}
	caBytes, err := os.ReadFile(c.CABundle)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caBytes) {
		return nil, fmt.Errorf("ca bundle %s has no certificates", c.CABundle)
	}
	return &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}, nil
}

func (t *Trigger) onMessage(_ paho.Client, msg paho.Message) {
	var req model.ScheduleRequest
	if err := json.Unmarshal(msg.Payload(), &req); err != nil {
		t.log.Warnf("discarding schedule request on %s: %v", msg.Topic(), err)
		return
	}
	if err := t.validate.Struct(req); err != nil {
		t.log.Warnf("discarding schedule request on %s: %v", msg.Topic(), err)
		return
	}
	if t.ctx.Err() != nil {
		return
	}
	t.log.Infow("schedule request received", map[string]any{"contact_id": req.ContactID, "owner_id": req.OwnerID})
	// A run outlives a shutdown that starts while it is in flight.
	if err := t.handle(context.WithoutCancel(t.ctx), req); err != nil {
		t.log.Warnw("schedule request failed", map[string]any{
			"contact_id": req.ContactID, "owner_id": req.OwnerID, "error": err.Error(),
		})
	}
}

type outcomeMessage struct {
	RunID     string `json:"run_id"`
	ContactID int64  `json:"contact_id"`
	OwnerID   string `json:"owner_id"`
	Outcome   string `json:"outcome"`
	Start     string `json:"start,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// PublishOutcome sends one contact result to cfg.ResultTopic, retrying with
// exponential backoff.
func (t *Trigger) PublishOutcome(runID string, res model.ContactResult) error {
	if t.cfg.ResultTopic == "" {
		return nil
	}
	msg := outcomeMessage{
		RunID:     runID,
		ContactID: res.ContactID,
		OwnerID:   res.OwnerID,
		Outcome:   string(res.Outcome),
		Reason:    res.Reason,
	}
	if !res.Start.IsZero() {
		msg.Start = res.Start.UTC().Format(time.RFC3339)
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	var publishErr error
	for attempt := 0; attempt <= t.cfg.MaxRetries; attempt++ {
		token := t.cli.Publish(t.cfg.ResultTopic, t.cfg.QoS, false, payload)
		token.Wait()
		if publishErr = token.Error(); publishErr == nil {
			return nil
		}
		t.log.Errorf("publish attempt %d failed: %v", attempt+1, publishErr)
		if attempt < t.cfg.MaxRetries {
			time.Sleep(t.backoff * time.Duration(1<<attempt))
		}
	}
	return publishErr
}

// ForwardOutcomes publishes every ContactOutcome seen on bus until ctx is
// canceled or the bus is closed.
func (t *Trigger) ForwardOutcomes(ctx context.Context, bus eventbus.EventBus) {
	if bus == nil || t.cfg.ResultTopic == "" {
		return
	}
	sub := bus.Subscribe()
	go func() {
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				e, isOutcome := ev.(events.ContactOutcome)
				if !isOutcome {
					continue
				}
				if err := t.PublishOutcome(e.RunID, e.Result); err != nil {
					monitoring.CaptureException(err, map[string]string{"module": "mqtt"})
				}
			}
		}
	}()
}

// Disconnect closes the broker connection.
func (t *Trigger) Disconnect() {
	if t.cli != nil && t.cli.IsConnected() {
		t.cli.Disconnect(250)
	}
}
