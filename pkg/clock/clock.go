package clock

import "time"

// Clock supplies the current instant. The billing core never calls time.Now
// directly so tests can freeze time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

// System returns a Clock backed by the wall clock, in UTC.
func System() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}
