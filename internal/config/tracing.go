package config

// TracingConfig holds optional OTLP trace export configuration.
//
// When Enabled is false the service installs no tracer provider and the
// OTLP exporter is never dialed. See internal/app for wiring.
type TracingConfig struct {
	// Enabled turns OTLP span export on.
	Enabled bool `mapstructure:"enabled" json:"enabled"`
	// Endpoint is the OTLP/HTTP collector endpoint (default: localhost:4318).
	Endpoint string `mapstructure:"endpoint" json:"endpoint"`
	// Environment is the deployment environment tag (default: dev).
	Environment string `mapstructure:"environment" json:"environment"`
	// ServiceName is the service name attached to spans (default: vidasana-coach).
	ServiceName string `mapstructure:"service_name" json:"service_name"`
}
