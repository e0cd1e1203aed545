package core

import "time"

type Clock struct {
	startTime float64
	elapsed   float64
}

func NewClock() *Clock {
	return &Clock{}
}

// Update refreshes elapsed time. No effect on non-started clocks.
func (c *Clock) Update() {
	if c.startTime != 0 {
		c.elapsed = float64(time.Now().UnixNano()) - c.startTime
	}
}

// Start resets elapsed time.
func (c *Clock) Start() {
	c.startTime = float64(time.Now().UnixNano())
	c.elapsed = 0
}

// Stop freezes the clock without resetting elapsed time.
func (c *Clock) Stop() {
	c.startTime = 0
}

func (c *Clock) Elapsed() float64 {
	return c.elapsed
}
