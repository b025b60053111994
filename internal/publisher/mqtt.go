package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/jgoulah/gridhours/internal/config"
	"github.com/jgoulah/gridhours/pkg/models"
)

// client is the part of mqtt.Client the publisher needs
type client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	IsConnected() bool
	Disconnect(quiesce uint)
}

// Publisher sends hourly summaries to an MQTT broker
type Publisher struct {
	client      client
	topicPrefix string
	logger      *slog.Logger
}

// New connects to the configured broker
func New(cfg config.MQTTConfig, logger *slog.Logger) (*Publisher, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("MQTT publishing is not enabled in config")
	}
	if cfg.Broker == "" {
		return nil, fmt.Errorf("MQTT broker address is required when enabled")
	}

	// Configure MQTT client options
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", cfg.Broker))
	opts.SetClientID(cfg.GetClientID())
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(false)
	opts.SetConnectTimeout(10 * time.Second)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	c := mqtt.NewClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connecting to MQTT broker: %w", token.Error())
	}

	return newWithClient(c, cfg.GetTopicPrefix(), logger), nil
}

func newWithClient(c client, topicPrefix string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{client: c, topicPrefix: topicPrefix, logger: logger}
}

// SummaryPayload is the retained message describing the latest run.
// The peak fields are null when the run has no hourly rows.
type SummaryPayload struct {
	RunID         string    `json:"run_id"`
	StartedAt     time.Time `json:"started_at"`
	MaxFeedinHour *int      `json:"max_feedin_hour"`
	MaxFeedin     *float64  `json:"max_feedin"`
	TotalPurchase float64   `json:"total_purchase"`
	TotalFeedin   float64   `json:"total_feedin"`
	Hours         int       `json:"hours"`
}

// HourTopic returns the topic for one hour of the summary
func (p *Publisher) HourTopic(hour int) string {
	return fmt.Sprintf("%s/hour/%02d", p.topicPrefix, hour)
}

// SummaryTopic returns the topic for the run summary
func (p *Publisher) SummaryTopic() string {
	return p.topicPrefix + "/summary"
}

// PublishRun sends each hourly row, retained, followed by the run summary
func (p *Publisher) PublishRun(ctx context.Context, run *models.Run) error {
	for _, h := range run.Hours {
		if err := p.publish(ctx, p.HourTopic(h.Hour), h); err != nil {
			return fmt.Errorf("publishing hour %d: %w", h.Hour, err)
		}
	}

	summary := SummaryPayload{
		RunID:         run.ID,
		StartedAt:     run.StartedAt,
		TotalPurchase: run.TotalPurchase(),
		TotalFeedin:   run.TotalFeedin(),
		Hours:         len(run.Hours),
	}
	if run.HasPeak() {
		hour, feedin := run.MaxFeedinHour, run.MaxFeedin
		summary.MaxFeedinHour = &hour
		summary.MaxFeedin = &feedin
	}
	if err := p.publish(ctx, p.SummaryTopic(), summary); err != nil {
		return fmt.Errorf("publishing summary: %w", err)
	}

	p.logger.Info("published run",
		slog.String("run_id", run.ID),
		slog.Int("hours", len(run.Hours)),
		slog.String("topic_prefix", p.topicPrefix))
	return nil
}

func (p *Publisher) publish(ctx context.Context, topic string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	token := p.client.Publish(topic, 1, true, body)
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close disconnects from the MQTT broker
func (p *Publisher) Close() {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}
