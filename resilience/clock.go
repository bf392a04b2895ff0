package resilience

import "time"

// Clock supplies the current time to breakers and limiters.
//
// Production code uses the system clock. Tests inject a manual clock to
// drive open-duration expiry and token refill deterministically instead
// of sleeping. time.Time values from the system clock carry a monotonic
// reading, so elapsed-time arithmetic is immune to wall-clock jumps.
type Clock interface {
	Now() time.Time
}

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock {
	return systemClock{}
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}
