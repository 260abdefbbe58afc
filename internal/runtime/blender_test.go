package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCrossings(t *testing.T) {
	tests := []struct {
		name   string
		t1, t2 float32
		e      float32
		want   int
	}{
		{"inside", 0.1, 0.3, 0.2, 1},
		{"at end", 0.1, 0.3, 0.3, 1},
		{"at start", 0.1, 0.3, 0.1, 0},
		{"after", 0.1, 0.3, 0.5, 0},
		{"wrapped tail", 0.9, 1.1, 0.95, 1},
		{"wrapped head", 0.9, 1.1, 0.05, 1},
		{"wrapped outside", 0.9, 1.1, 0.5, 0},
		{"second cycle", 1.2, 1.4, 0.3, 1},
		{"no progress", 0.5, 0.5, 0.5, 0},
		{"backwards", 0.5, 0.2, 0.3, 0},
		{"two loops", 0, 2.4, 0.5, 2},
		{"loop boundary", 0.2, 3, 0, 3},
		{"several loops from mid clip", 0.6, 4.55, 0.55, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, crossings(tt.t1, tt.t2, tt.e))
		})
	}
}

func TestBlender_SetDurationKeepsNormalizedTime(t *testing.T) {
	var b blender
	b.setDuration(0, 2)
	assert.InDelta(t, 0.5, b.normalizedTime(1), 1e-6)

	b.setDuration(1, 4)
	assert.InDelta(t, 0.5, b.normalizedTime(1), 1e-6)
	assert.InDelta(t, 0.75, b.normalizedTime(2), 1e-6)

	b.setDuration(2, 0)
	assert.InDelta(t, 0.75, b.normalizedTime(10), 1e-6, "zero duration freezes time")
}

func TestBlender_ExitTimeRecordedOnce(t *testing.T) {
	var b blender
	assert.False(t, b.exitReached(0.2, 0.5))
	assert.Equal(t, float32(0.5), b.exitTime)

	// A different exit time does not move the recorded point.
	assert.False(t, b.exitReached(0.4, 0.1))
	assert.True(t, b.exitReached(0.5, 0.1))
}

func TestBlender_Ramp(t *testing.T) {
	var b blender
	b.blendIn(nil, 0, 0, 0.5, false)
	assert.Equal(t, float32(0), b.weight)
	assert.Equal(t, float32(0.5), b.remaining())

	b.advance(0.25)
	assert.InDelta(t, 0.5, b.weight, 1e-6)
	assert.InDelta(t, 0.25, b.remaining(), 1e-6)

	b.advance(0.5)
	assert.Equal(t, float32(1), b.weight)
	assert.Nil(t, b.ramp)

	b.blendOut(0)
	assert.True(t, b.empty())
}
