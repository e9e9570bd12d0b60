package nasc

import (
	"go.opentelemetry.io/otel"

	"github.com/toutaio/toutago-nasc-injection/config"
)

// TracerName is the instrumentation name of the tracer used when tracing is
// enabled through configuration.
const TracerName = "github.com/toutaio/toutago-nasc-injection"

// NewFromConfig creates an isolated module logging with the logger described
// by cfg and, when cfg.Tracing is set, tracing with the global OpenTelemetry
// tracer provider. options are applied after the configuration.
func NewFromConfig(cfg *config.Config, options ...Option) *Module {
	return New(append(configOptions(cfg), options...)...)
}

// DefaultFromConfig returns the process-wide module named by
// cfg.DefaultModule, configured from cfg if it does not exist yet.
func DefaultFromConfig(cfg *config.Config) *Module {
	return FromName(cfg.DefaultModule, configOptions(cfg)...)
}

func configOptions(cfg *config.Config) []Option {
	options := []Option{WithLogger(cfg.Logger())}
	if cfg.Tracing {
		options = append(options, WithTracer(otel.Tracer(TracerName)))
	}
	return options
}
