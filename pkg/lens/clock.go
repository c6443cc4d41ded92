package lens

// DefaultClockStep is how far the clock advances per rendered frame.
const DefaultClockStep = 0.016

// Clock is the shared animation time, advanced once per rendered frame.
type Clock struct {
	t    float64
	step float64
}

// NewClock creates a clock at zero. A non-positive step uses DefaultClockStep.
func NewClock(step float64) *Clock {
	if step <= 0 {
		step = DefaultClockStep
	}
	return &Clock{step: step}
}

// Tick advances the clock one frame and returns the new time.
func (c *Clock) Tick() float64 {
	c.t += c.step
	return c.t
}

// Now returns the current time without advancing.
func (c *Clock) Now() float64 {
	return c.t
}

// Reset returns the clock to zero.
func (c *Clock) Reset() {
	c.t = 0
}
