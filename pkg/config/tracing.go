package config

import (
	"fmt"

	"github.com/linkmeAman/twitter-to-kafka/pkg/logger"
	"github.com/linkmeAman/twitter-to-kafka/pkg/tracing"
)

// SetupTracing initializes OpenTelemetry tracing when it is enabled. It
// returns nil, nil when tracing is switched off.
func SetupTracing(cfg TracingConfig, version, environment string, log *logger.Logger) (*tracing.Tracer, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	tracer, err := tracing.New(tracing.Config{
		ServiceName:    cfg.ServiceName,
		ServiceVersion: version,
		Environment:    environment,
		Endpoint:       cfg.Endpoint,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to setup tracing: %w", err)
	}

	return tracer, nil
}
