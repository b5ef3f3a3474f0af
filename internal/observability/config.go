package observability

import (
	"cmp"

	"resumerank/internal/config"
)

const (
	defaultServiceName        = "resumerank"
	defaultPrometheusEndpoint = "/metrics"
	defaultPrometheusPort     = "9090"
)

// GetObservabilityConfig maps the application config onto the manager's settings.
// A nil cfg yields console tracing with a Prometheus endpoint on the default port.
func GetObservabilityConfig(cfg *config.Config, version string) ObservabilityConfig {
	if cfg == nil {
		return ObservabilityConfig{
			ServiceName:    defaultServiceName,
			ServiceVersion: version,
			Enabled:        true,
			ConsoleOutput:  true,
			PrettyPrint:    true,
			SampleRate:     1.0,
			Prometheus: PrometheusConfig{
				Enabled:  true,
				Endpoint: defaultPrometheusEndpoint,
				Port:     defaultPrometheusPort,
			},
		}
	}

	o := cfg.Observability
	return ObservabilityConfig{
		ServiceName:    cmp.Or(o.ServiceName, defaultServiceName),
		ServiceVersion: cmp.Or(o.ServiceVersion, version),
		Enabled:        o.Enabled,
		ConsoleOutput:  o.ConsoleOutput,
		PrettyPrint:    o.Console.PrettyPrint,
		SampleRate:     o.SampleRate,
		Prometheus: PrometheusConfig{
			Enabled:  o.Prometheus.Enabled,
			Endpoint: cmp.Or(o.Prometheus.Endpoint, defaultPrometheusEndpoint),
			Port:     cmp.Or(o.Prometheus.Port, defaultPrometheusPort),
		},
	}
}
