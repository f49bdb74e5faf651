package game

// fixedClock turns variable frame times into a whole number of fixed steps.
// Time beyond maxSteps per frame is dropped so a stall cannot snowball.
type fixedClock struct {
	step     float64
	maxSteps int
	acc      float64
}

func (c *fixedClock) advance(frameDt float64) (steps int, dropped float64) {
	if frameDt <= 0 || c.step <= 0 {
		return 0, 0
	}
	c.acc += frameDt
	for c.acc >= c.step && steps < c.maxSteps {
		c.acc -= c.step
		steps++
	}
	if c.acc >= c.step {
		dropped = c.acc
		c.acc = 0
	}
	return steps, dropped
}

// alpha is the fraction of a step left in the accumulator.
func (c *fixedClock) alpha() float64 {
	if c.step <= 0 {
		return 0
	}
	return c.acc / c.step
}
