package controller

import (
	"math"
	"sort"
)

// ResignCalculator maintains a sliding window of minimum winner-side values
// observed in never-resign games and periodically updates the resign
// threshold to an empirical quantile (spec section 4.5).
type ResignCalculator struct {
	histSize int
	fpRate   float64
	lower    float32
	upper    float32
	stepCap  float32

	window    []float32
	threshold float32
}

// NewResignCalculator builds a calculator with the given window size,
// false-positive target quantile, clamp bounds, and an initial threshold.
// stepCap bounds how far one update may move the threshold (spec default
// 0.01).
func NewResignCalculator(histSize int, fpRate float64, lower, upper, stepCap, initial float32) *ResignCalculator {
	return &ResignCalculator{
		histSize:  histSize,
		fpRate:    fpRate,
		lower:     lower,
		upper:     upper,
		stepCap:   stepCap,
		threshold: initial,
	}
}

// Observe records one never-resign game's minimum winner-side value,
// keeping the window bounded to histSize entries (oldest first).
func (c *ResignCalculator) Observe(minWinnerValue float32) {
	c.window = append(c.window, minWinnerValue)
	if len(c.window) > c.histSize {
		c.window = c.window[len(c.window)-c.histSize:]
	}
}

// Threshold returns the calculator's current resign threshold.
func (c *ResignCalculator) Threshold() float32 {
	return c.threshold
}

// Update recomputes the threshold from the current window: the empirical
// quantile at fpRate, clamped to [lower,upper], moved by at most stepCap
// from the previous value (spec section 4.5, scenario S4).
func (c *ResignCalculator) Update() float32 {
	if len(c.window) == 0 {
		return c.threshold
	}
	sorted := append([]float32(nil), c.window...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	idx := int(math.Round(c.fpRate * float64(len(sorted))))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	target := sorted[idx]

	next := c.threshold
	switch {
	case target > c.threshold:
		next = c.threshold + minFloat32(c.stepCap, target-c.threshold)
	case target < c.threshold:
		next = c.threshold - minFloat32(c.stepCap, c.threshold-target)
	}
	if next < c.lower {
		next = c.lower
	}
	if next > c.upper {
		next = c.upper
	}
	c.threshold = next
	return c.threshold
}

func minFloat32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}
