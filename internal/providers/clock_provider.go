package providers

import "github.com/jonboulle/clockwork"

func NewClockProvider() clockwork.Clock {
	return clockwork.NewRealClock()
}
