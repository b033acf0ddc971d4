package clock

import (
	"time"

	"go.uber.org/fx"
)

// Clock reports the current instant. Calendar-day logic reads local time from it.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

func NewSystem() Clock {
	return systemClock{}
}

var Module = fx.Module("clock",
	fx.Provide(NewSystem),
)
