package clock

import (
	"time"

	"go.uber.org/fx"
)

// Clock abstracts time so cycle and rollover logic is testable without a
// real wall clock.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

func NewSystemClock() Clock {
	return systemClock{}
}

var Module = fx.Module("clock",
	fx.Provide(NewSystemClock),
)
