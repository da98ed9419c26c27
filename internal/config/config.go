package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
	"go.opentelemetry.io/otel/attribute"
)

// Config holds all configuration for the service.
type Config struct {
	// Server
	Port     int    `envconfig:"PORT" default:"80"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// HTTP transport
	HTTPDebug     bool `envconfig:"HTTP_DEBUG" default:"false"`
	HTTPDebugFull bool `envconfig:"HTTP_DEBUG_FULL" default:"false"`

	// GLS
	GLSBaseURL     string `envconfig:"GLS_BASE_URL" default:"https://api.mygls.hu/ParcelService.svc/json"`
	GLSTestBaseURL string `envconfig:"GLS_TEST_BASE_URL" default:"https://api.test.mygls.hu/ParcelService.svc/json"`
	GLSFeedURL     string `envconfig:"GLS_FEED_URL" default:"https://map.gls-hungary.com/data/deliveryPoints"`
	GLSTestFeedURL string `envconfig:"GLS_TEST_FEED_URL" default:"https://map.test.gls-hungary.com/data/deliveryPoints"`
	GLSEnabled     bool   `envconfig:"GLS_ENABLED" default:"true"`
	GLSUseMock     bool   `envconfig:"GLS_USE_MOCK" default:"false"`

	// MPL
	MPLBaseURL        string `envconfig:"MPL_BASE_URL" default:"https://core.api.posta.hu/v2/mplapi"`
	MPLTestBaseURL    string `envconfig:"MPL_TEST_BASE_URL" default:"https://sandbox.api.posta.hu/v2/mplapi"`
	MPLTokenURL       string `envconfig:"MPL_TOKEN_URL" default:"https://core.api.posta.hu/oauth2/token"`
	MPLTestTokenURL   string `envconfig:"MPL_TEST_TOKEN_URL" default:"https://sandbox.api.posta.hu/oauth2/token"`
	MPLAccountingCode string `envconfig:"MPL_ACCOUNTING_CODE"`
	MPLEnabled        bool   `envconfig:"MPL_ENABLED" default:"true"`
	MPLUseMock        bool   `envconfig:"MPL_USE_MOCK" default:"false"`

	// Telemetry
	OTELEnabled  bool   `envconfig:"OTEL_ENABLED" default:"true"`
	OTELEndpoint string `envconfig:"OTEL_ENDPOINT" default:"http://jaeger-collector.observability.svc.cluster.local:4318"`
	ServiceName  string `envconfig:"SERVICE_NAME" default:"shopickup-integration"`
	Version      string `envconfig:"SERVICE_VERSION" default:"0.0.1"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &cfg, nil
}

// Attributes returns OpenTelemetry attributes for this configuration.
func (c *Config) Attributes() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("service.name", c.ServiceName),
		attribute.String("service.version", c.Version),
		attribute.Bool("gls.enabled", c.GLSEnabled),
		attribute.Bool("mpl.enabled", c.MPLEnabled),
	}
}
