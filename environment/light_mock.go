package environment

import (
	"context"
)

// LightBehaviorFunc defines the function signature for light sensor behavior.
// It returns the lux value or an error.
type LightBehaviorFunc func(ctx context.Context) (float64, error)

// MockLightSensor is a LightSensor backed by a behavior function, for running
// the monitor and the CLI without hardware.
type MockLightSensor struct {
	behavior LightBehaviorFunc
}

// NewMockLightSensor creates a new mock light sensor with the given behavior function.
//
// Example usage:
//
//	// Static value
//	sensor := NewMockLightSensor(func(ctx context.Context) (float64, error) {
//		return 77.76, nil
//	})
//
//	// Error simulation
//	sensor := NewMockLightSensor(func(ctx context.Context) (float64, error) {
//		return 0, ErrInvalidResource
//	})
func NewMockLightSensor(behavior LightBehaviorFunc) *MockLightSensor {
	return &MockLightSensor{
		behavior: behavior,
	}
}

// GetLux returns the lux value by calling the behavior function.
func (m *MockLightSensor) GetLux(ctx context.Context) (float64, error) {
	return m.behavior(ctx)
}

// NewMockMAX44009 returns a mock whose readings come from a sequence of raw
// register values, decoded the same way the driver decodes them. The last
// value repeats once the sequence is exhausted.
func NewMockMAX44009(raw ...RawLux) *MockLightSensor {
	i := 0
	return NewMockLightSensor(func(ctx context.Context) (float64, error) {
		if len(raw) == 0 {
			return 0, ErrInvalidResource
		}
		val := raw[min(i, len(raw)-1)]
		i++
		return ConvertToLux(val), nil
	})
}
