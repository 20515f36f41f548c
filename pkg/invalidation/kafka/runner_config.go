package kafka

import (
	"time"

	"github.com/mohammed-shakir/survey-stats/internal/core/config"
)

type Driver string

const (
	DriverNone  Driver = "none"
	DriverKafka Driver = "kafka"
)

type InvalidationConfig struct {
	Enabled bool
	Driver  Driver

	Brokers []string
	Topic   string
	GroupID string

	SessionTimeout   time.Duration
	Heartbeat        time.Duration
	RebalanceTimeout time.Duration
	InitialOldest    bool
	DedupeSize       int
}

// FromConfig fills the consumer timings around the service settings.
func FromConfig(c config.InvalidationCfg) InvalidationConfig {
	return InvalidationConfig{
		Enabled:          c.Enabled,
		Driver:           Driver(c.Driver),
		Brokers:          c.BrokerList(),
		Topic:            c.Topic,
		GroupID:          c.GroupID,
		SessionTimeout:   30 * time.Second,
		Heartbeat:        3 * time.Second,
		RebalanceTimeout: 30 * time.Second,
		// replaying from the oldest offset only costs redundant evictions
		InitialOldest: true,
		DedupeSize:    c.DedupeSize,
	}
}

func (c InvalidationConfig) active() bool {
	return c.Enabled && c.Driver == DriverKafka
}
