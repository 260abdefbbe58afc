package runtime

import (
	"math"

	"github.com/aretw0/animgraph/pkg/domain"
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// blender plays one state of a layer and ramps its weight in or out.
// A blender with a nil state is empty.
type blender struct {
	state  *domain.State
	atomic bool

	// Normalized time is offset + (clock - start) * invDuration.
	start       float64
	offset      float32
	invDuration float32

	exitTime    float32
	exitPending bool

	weight  float32
	target  float32
	ramp    *gween.Tween
	rampFor float32
	rampAt  float32
}

func (b *blender) empty() bool {
	return b.state == nil
}

func (b *blender) clear() {
	*b = blender{}
}

func (b *blender) normalizedTime(clock float64) float32 {
	return b.offset + float32(clock-b.start)*b.invDuration
}

// setDuration changes the playback length while keeping the normalized time
// at clock unchanged. A non-positive duration freezes playback.
func (b *blender) setDuration(clock float64, duration float32) {
	var inv float32
	if duration > 0 {
		inv = 1 / duration
	}
	if inv == b.invDuration {
		return
	}
	t := b.normalizedTime(clock)
	b.offset = t - float32(clock-b.start)*inv
	b.invDuration = inv
}

// rampTo moves the weight toward target over duration seconds.
func (b *blender) rampTo(target, duration float32) {
	b.target = target
	if duration <= 0 || b.weight == target {
		b.weight = target
		b.ramp = nil
		return
	}
	b.ramp = gween.New(b.weight, target, duration, ease.Linear)
	b.rampFor, b.rampAt = duration, 0
}

func (b *blender) advance(dt float32) {
	if b.ramp == nil {
		return
	}
	w, done := b.ramp.Update(dt)
	b.weight = w
	b.rampAt += dt
	if done {
		b.weight = b.target
		b.ramp = nil
	}
}

func (b *blender) blending() bool {
	return b.state != nil && b.ramp != nil
}

// remaining returns the seconds left on the current ramp.
func (b *blender) remaining() float32 {
	if b.ramp == nil {
		return 0
	}
	return max(b.rampFor-b.rampAt, 0)
}

// blendIn starts state at startOffset, ramping from zero to full weight.
func (b *blender) blendIn(state *domain.State, clock float64, startOffset, duration float32, atomic bool) {
	b.clear()
	b.state = state
	b.atomic = atomic
	b.start = clock
	b.offset = startOffset
	b.rampTo(1, duration)
}

// blendOut ramps the weight to zero. A zero duration empties the blender.
func (b *blender) blendOut(duration float32) {
	if duration <= 0 {
		b.clear()
		return
	}
	b.rampTo(0, duration)
}

// exitReached records the exit point on first use and reports whether
// normalized time t has passed it.
func (b *blender) exitReached(t, exitTime float32) bool {
	if !b.exitPending {
		b.exitTime = float32(math.Ceil(float64(t-exitTime))) + exitTime
		b.exitPending = true
	}
	return t >= b.exitTime
}

// crossings counts the loops in which the event at normalized time e lies
// in (t1, t2]. Times are unwrapped, so a window spanning several loops
// counts each of them.
func crossings(t1, t2, e float32) int {
	if t2 <= t1 {
		return 0
	}
	n := math.Floor(float64(t2)-float64(e)) - math.Floor(float64(t1)-float64(e))
	return int(n)
}

func wrap01(t float32) float32 {
	return t - float32(math.Floor(float64(t)))
}
