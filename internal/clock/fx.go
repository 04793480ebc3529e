package clock

import "go.uber.org/fx"

// NewSystemClock is the production Clock.
func NewSystemClock() Clock { return SystemClock{} }

var Module = fx.Module("clock",
	fx.Provide(NewSystemClock),
)
