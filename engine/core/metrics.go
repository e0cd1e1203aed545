package core

import "sync"

// Frames in the rolling frame-time window.
const frameTimeWindow = 30

// FrameMetrics tracks frame pacing: a rolling average of frame time and a
// once-per-second FPS sample. Updated once per frame on the main loop.
type FrameMetrics struct {
	frameTimes [frameTimeWindow]float64
	cursor     int

	frameTimeAvg  float64
	accumulatedMS float64
	frames        int
	fps           float64
}

var onceMetrics sync.Once
var frameMetrics *FrameMetrics = nil

func Metrics() *FrameMetrics {
	onceMetrics.Do(func() {
		frameMetrics = &FrameMetrics{}
	})
	return frameMetrics
}

// Update folds one frame's elapsed time, in seconds, into the averages.
func (m *FrameMetrics) Update(delta float64) {
	ms := delta * 1000.0

	m.frameTimes[m.cursor] = ms
	m.cursor = (m.cursor + 1) % frameTimeWindow
	if m.cursor == 0 {
		sum := 0.0
		for _, t := range m.frameTimes {
			sum += t
		}
		m.frameTimeAvg = sum / frameTimeWindow
	}

	m.frames++
	m.accumulatedMS += ms
	if m.accumulatedMS >= 1000.0 {
		m.fps = float64(m.frames)
		m.accumulatedMS -= 1000.0
		m.frames = 0
	}
}

func (m *FrameMetrics) FPS() float64         { return m.fps }
func (m *FrameMetrics) FrameTimeMS() float64 { return m.frameTimeAvg }

func (m *FrameMetrics) Reset() {
	*m = FrameMetrics{}
}
