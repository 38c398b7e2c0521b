package scene

import (
	"sort"

	"github.com/mirelforge/photon/math"
)

// Interpolation is a glTF animation sampler's interpolation mode.
type Interpolation int

const (
	InterpLinear Interpolation = iota
	InterpStep
	InterpCubicSpline // treated as Linear; cubic-spline tangents are not evaluated
)

// TargetPath is which part of a node's local transform a channel drives.
type TargetPath int

const (
	PathTranslation TargetPath = iota
	PathRotation
	PathScale
)

// Channel drives one TargetNode property over time from a keyframe sampler.
// Exactly one of ValuesVec3/ValuesQuat is populated, matching Path.
type Channel struct {
	TargetNode *Node
	Path       TargetPath
	Interp     Interpolation

	Times      []float32
	ValuesVec3 []math.Vec3
	ValuesQuat []math.Quaternion
}

// Animation is a named set of channels sharing a timeline.
type Animation struct {
	Name     string
	Channels []*Channel
	Duration float32
}

// Sample evaluates every channel at time t (clamped to [0, Duration]) and
// writes the result into each channel's target node, marking the node's
// world matrix dirty.
func (a *Animation) Sample(t float32) {
	if t < 0 {
		t = 0
	}
	if t > a.Duration {
		t = a.Duration
	}
	for _, ch := range a.Channels {
		ch.apply(t)
	}
}

func (c *Channel) apply(t float32) {
	switch c.Path {
	case PathTranslation:
		c.TargetNode.SetPosition(c.sampleVec3(t))
	case PathScale:
		c.TargetNode.SetScale(c.sampleVec3(t))
	case PathRotation:
		c.TargetNode.SetRotation(c.sampleQuat(t))
	}
}

// keyframeSpan finds the sampler segment containing t: the index k such that
// Times[k] <= t <= Times[k+1], and the normalized [0,1] interpolant within it.
func keyframeSpan(times []float32, t float32) (k int, frac float32) {
	if len(times) == 0 {
		return 0, 0
	}
	if t <= times[0] {
		return 0, 0
	}
	if t >= times[len(times)-1] {
		return len(times) - 2, 1
	}
	k = sort.Search(len(times), func(i int) bool { return times[i] > t }) - 1
	if k < 0 {
		k = 0
	}
	span := times[k+1] - times[k]
	if span <= 0 {
		return k, 0
	}
	return k, (t - times[k]) / span
}

func (c *Channel) sampleVec3(t float32) math.Vec3 {
	k, frac := keyframeSpan(c.Times, t)
	if k+1 >= len(c.ValuesVec3) {
		return c.ValuesVec3[len(c.ValuesVec3)-1]
	}
	if c.Interp == InterpStep {
		return c.ValuesVec3[k]
	}
	return c.ValuesVec3[k].Lerp(c.ValuesVec3[k+1], frac)
}

func (c *Channel) sampleQuat(t float32) math.Quaternion {
	k, frac := keyframeSpan(c.Times, t)
	if k+1 >= len(c.ValuesQuat) {
		return c.ValuesQuat[len(c.ValuesQuat)-1]
	}
	if c.Interp == InterpStep {
		return c.ValuesQuat[k]
	}
	return c.ValuesQuat[k].Slerp(c.ValuesQuat[k+1], frac)
}
