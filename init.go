package main

import (
	"context"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/dfoddav2/shopickup-integration-layer-sub000/internal/config"
	"github.com/dfoddav2/shopickup-integration-layer-sub000/internal/telemetry"
	"github.com/dfoddav2/shopickup-integration-layer-sub000/pkg/carrier"
	"github.com/dfoddav2/shopickup-integration-layer-sub000/pkg/carrier/gls"
	"github.com/dfoddav2/shopickup-integration-layer-sub000/pkg/carrier/mpl"
	"github.com/dfoddav2/shopickup-integration-layer-sub000/pkg/carrier/transport"
)

func loadConfig() (*config.Config, error) {
	return config.Load()
}

func initLogger(level string) (*otelzap.Logger, error) {
	return telemetry.NewLogger(level)
}

func initTracer(ctx context.Context, cfg *config.Config) (func(context.Context) error, error) {
	if !cfg.OTELEnabled {
		return func(context.Context) error { return nil }, nil
	}

	_, shutdown, err := telemetry.InitTracer(ctx, cfg.OTELEndpoint, cfg.ServiceName, cfg.Version)
	return shutdown, err
}

func initCarrierRegistry(cfg *config.Config, logger *otelzap.Logger) *carrier.Registry {
	registry := carrier.NewRegistry()

	var tracer trace.Tracer
	if cfg.OTELEnabled {
		tracer = otel.GetTracerProvider().Tracer(cfg.ServiceName)
	}

	httpClient := transport.New(transport.ClientConfig{
		Debug:     cfg.HTTPDebug,
		DebugFull: cfg.HTTPDebugFull,
	}, logger)

	if cfg.GLSEnabled {
		registry.Register(gls.New(gls.Config{
			BaseURL:     cfg.GLSBaseURL,
			TestBaseURL: cfg.GLSTestBaseURL,
			FeedURL:     cfg.GLSFeedURL,
			TestFeedURL: cfg.GLSTestFeedURL,
			UseMock:     cfg.GLSUseMock,
		}, httpClient, logger, tracer))
	}

	if cfg.MPLEnabled {
		registry.Register(mpl.New(mpl.Config{
			BaseURL:        cfg.MPLBaseURL,
			TestBaseURL:    cfg.MPLTestBaseURL,
			TokenURL:       cfg.MPLTokenURL,
			TestTokenURL:   cfg.MPLTestTokenURL,
			AccountingCode: cfg.MPLAccountingCode,
			UseMock:        cfg.MPLUseMock,
		}, httpClient, logger, tracer))
	}

	return registry
}
