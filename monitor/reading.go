package monitor

import (
	"errors"
	"time"
)

var ErrInvalidLux = errors.New("lux value cannot be negative")

const (
	CategoryLow    = "low"
	CategoryMedium = "medium"
	CategoryHigh   = "high"
)

const (
	lowLightLimit    = 200.0
	mediumLightLimit = 2500.0
)

// Reading is a single illuminance measurement.
type Reading struct {
	Lux       float64   `json:"lux" yaml:"lux"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

func NewReading(lux float64, at time.Time) (Reading, error) {
	if lux < 0 {
		return Reading{}, ErrInvalidLux
	}
	return Reading{Lux: lux, Timestamp: at}, nil
}

// Category buckets the reading: below 200 lx is low, below 2500 lx medium.
func (r Reading) Category() string {
	switch {
	case r.Lux < lowLightLimit:
		return CategoryLow
	case r.Lux < mediumLightLimit:
		return CategoryMedium
	default:
		return CategoryHigh
	}
}
