// Package telemetry provides OpenTelemetry distributed tracing.
package telemetry

// Config holds the tracing settings.
type Config struct {
	// Enabled turns tracing on.
	Enabled bool

	// ServiceName identifies the service (e.g. "mediexplain-server").
	ServiceName string

	// ServiceVersion is the deployed version.
	ServiceVersion string

	// Environment is the deploy environment ("production", "development").
	Environment string

	// OTLPEndpoint is the collector address, e.g. "jaeger:4317".
	OTLPEndpoint string

	// OTLPInsecure connects without TLS. Internal networks only.
	OTLPInsecure bool

	// SampleRate is the root sampling ratio in [0, 1].
	SampleRate float64
}

// DefaultConfig returns a disabled configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:      false,
		SampleRate:   1.0,
		OTLPInsecure: true,
	}
}
