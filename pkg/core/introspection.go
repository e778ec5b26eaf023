package core

import (
	"fmt"

	"github.com/aretw0/introspection"
)

// AggregatorState exposes internal state for observability.
type AggregatorState struct {
	Mode       AppendMode `json:"mode"`
	MaxRetries int        `json:"max_retries"`
	StoreType  string     `json:"store_type"`
	Appends    int64      `json:"appends"`
	Conflicts  int64      `json:"conflicts"`
}

// State implements introspection.Introspectable.
func (a *Aggregator) State() any {
	return AggregatorState{
		Mode:       a.mode,
		MaxRetries: a.maxRetries,
		StoreType:  componentType(a.store),
		Appends:    a.appends.Load(),
		Conflicts:  a.conflicts.Load(),
	}
}

// ComponentType implements introspection.Component.
func (a *Aggregator) ComponentType() string {
	return "aggregator"
}

// ServiceState exposes the pipeline wiring.
type ServiceState struct {
	Dataset    string          `json:"dataset"`
	TaggerType string          `json:"tagger_type"`
	Aggregator AggregatorState `json:"aggregator"`
}

// State implements introspection.Introspectable.
func (s *Service) State() any {
	return ServiceState{
		Dataset:    s.dataset.String(),
		TaggerType: componentType(s.tagger),
		Aggregator: s.aggregator.State().(AggregatorState),
	}
}

// ComponentType implements introspection.Component.
func (s *Service) ComponentType() string {
	return "service"
}

func componentType(v any) string {
	if v == nil {
		return "unknown"
	}
	// Try to get component type if v implements introspection.Component
	if comp, ok := v.(introspection.Component); ok {
		return comp.ComponentType()
	}
	return fmt.Sprintf("%T", v)
}

var (
	_ introspection.Introspectable = (*Aggregator)(nil)
	_ introspection.Component      = (*Aggregator)(nil)
	_ introspection.Introspectable = (*Service)(nil)
	_ introspection.Component      = (*Service)(nil)
)
