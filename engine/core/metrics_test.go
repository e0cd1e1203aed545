package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrameMetricsRollingAverage(t *testing.T) {
	m := Metrics()
	m.Reset()

	for i := 0; i < frameTimeWindow; i++ {
		m.Update(0.016)
	}
	assert.InDelta(t, 16.0, m.FrameTimeMS(), 0.001)
}

func TestFrameMetricsFPSSamplesOncePerSecond(t *testing.T) {
	m := Metrics()
	m.Reset()

	// 30ms frames cross the one-second mark on frame 34.
	for i := 0; i < 40; i++ {
		m.Update(0.03)
	}
	assert.Equal(t, 34.0, m.FPS())
}
