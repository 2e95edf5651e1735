// Package observability exports the action's metrics over OTLP.
package observability

import (
	"time"

	"github.com/peteraglen/slack-dm-action/internal/config"
)

const (
	defaultServiceName    = "slack-dm"
	defaultExportInterval = 10 * time.Second
	resourceServiceName   = "service.name"
)

// Config controls the meter provider.
type Config struct {
	Enabled              bool
	ExporterEndpoint     string
	ServiceName          string
	MetricExportInterval time.Duration
}

// ConfigFrom extracts the observability settings from the host config.
func ConfigFrom(cfg *config.Config) *Config {
	c := &Config{
		Enabled:              cfg.OTelEnabled,
		ExporterEndpoint:     cfg.OTelEndpoint,
		ServiceName:          cfg.OTelServiceName,
		MetricExportInterval: cfg.OTelInterval,
	}

	if c.ServiceName == "" {
		c.ServiceName = defaultServiceName
	}

	if c.MetricExportInterval <= 0 {
		c.MetricExportInterval = defaultExportInterval
	}

	return c
}
