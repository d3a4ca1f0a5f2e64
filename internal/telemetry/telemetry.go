// Package telemetry reports anonymous usage events. Disabled unless
// the user configures an API key; the rest of the code talks to the
// Service interface and never knows which implementation it got.
package telemetry

import (
	"github.com/google/uuid"
	"github.com/posthog/posthog-go"

	"github.com/doctotypetech/kitt/internal/config"
)

// Service records usage events.
type Service interface {
	Track(event string, props map[string]any)
	Close()
}

// NewService returns a posthog-backed service when telemetry is
// enabled and configured, otherwise a no-op.
func NewService(cfg config.TelemetryConfig) (Service, error) {
	if !cfg.Enabled || cfg.APIKey == "" {
		return NewNoopService(), nil
	}
	phCfg := posthog.Config{}
	if cfg.Host != "" {
		phCfg.Endpoint = cfg.Host
	}
	client, err := posthog.NewWithConfig(cfg.APIKey, phCfg)
	if err != nil {
		return nil, err
	}
	return &posthogService{
		client: client,
		// Fresh per process; events are correlated within one run only.
		distinctID: uuid.NewString(),
	}, nil
}

type posthogService struct {
	client     posthog.Client
	distinctID string
}

func (s *posthogService) Track(event string, props map[string]any) {
	properties := posthog.NewProperties()
	for k, v := range props {
		properties.Set(k, v)
	}
	_ = s.client.Enqueue(posthog.Capture{
		DistinctId: s.distinctID,
		Event:      event,
		Properties: properties,
	})
}

func (s *posthogService) Close() {
	_ = s.client.Close()
}

// NewNoopService returns a Service that drops everything.
func NewNoopService() Service { return noopService{} }

type noopService struct{}

func (noopService) Track(string, map[string]any) {}
func (noopService) Close()                       {}
