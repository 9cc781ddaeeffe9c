package environment

import "context"

// LightSensor is implemented by every illuminance source: the MAX44009 driver
// and MockLightSensor.
type LightSensor interface {
	GetLux(ctx context.Context) (float64, error)
}

var (
	_ LightSensor = &MAX44009{}
	_ LightSensor = &MockLightSensor{}
)
