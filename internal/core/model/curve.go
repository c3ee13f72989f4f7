package model

import "math"

// StrengthCurve is a dense, frame-indexed activation curve.
type StrengthCurve struct {
	Values    []float64
	FrameRate float64
}

// NewStrengthCurve builds a curve sampled at frameRate frames per second.
func NewStrengthCurve(values []float64, frameRate float64) *StrengthCurve {
	return &StrengthCurve{Values: values, FrameRate: frameRate}
}

// Len returns the number of frames. A nil curve has no frames.
func (c *StrengthCurve) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Values)
}

// Frame maps a timestamp to its nearest frame index. The index may be out of range.
func (c *StrengthCurve) Frame(t float64) int {
	return int(math.Round(t * c.FrameRate))
}

// At returns the strength at the frame nearest to t. Lookups that fall
// outside the curve, or on a nil curve, yield 0.
func (c *StrengthCurve) At(t float64) float64 {
	if c.Len() == 0 || c.FrameRate <= 0 {
		return 0
	}
	frame := c.Frame(t)
	if frame < 0 || frame >= len(c.Values) {
		return 0
	}
	return c.Values[frame]
}

// Duration returns the time span covered by the curve in seconds.
func (c *StrengthCurve) Duration() float64 {
	if c.Len() == 0 || c.FrameRate <= 0 {
		return 0
	}
	return float64(len(c.Values)) / c.FrameRate
}
