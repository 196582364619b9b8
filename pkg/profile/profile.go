// SPDX-License-Identifier: BSD-3-Clause

// Package profile canonicalizes and evaluates piecewise-linear
// temperature-to-duty speed profiles.
package profile

import "sort"

// Point is a single (temperature in Celsius, duty percent) pair.
type Point struct {
	TempC int
	Duty  int
}

// Profile is an ordered list of Points. A Profile returned by Normalize is
// sorted ascending by TempC, deduplicated by TempC, monotonically
// non-decreasing in Duty, and clamped into [minDuty, maxDuty].
type Profile []Point

// Limits bounds the duty range a channel accepts and the temperature at or
// above which full duty is forced.
type Limits struct {
	MinDuty      int
	MaxDuty      int
	CriticalTemp int
}

// Normalize canonicalizes p per the following rules, applied in order:
//
//  1. Points are sorted ascending by TempC; duplicates by TempC are
//     removed, keeping the point with the larger Duty.
//  2. Duty is clamped into [limits.MinDuty, limits.MaxDuty].
//  3. Duty is forced monotonically non-decreasing by raising any point
//     whose duty is lower than its predecessor's.
//  4. Any point at or above limits.CriticalTemp has its duty forced to 100
//     (still subject to the MaxDuty clamp, so MaxDuty should be 100 for a
//     critical-temp point to actually reach full speed).
//
// Normalize is idempotent: Normalize(Normalize(p)) == Normalize(p).
func Normalize(p Profile, limits Limits) Profile {
	if len(p) == 0 {
		return Profile{}
	}

	byTemp := make(map[int]int, len(p)+1)
	for _, pt := range p {
		if cur, ok := byTemp[pt.TempC]; !ok || pt.Duty > cur {
			byTemp[pt.TempC] = pt.Duty
		}
	}
	// Every point at or above the critical temperature is pinned to full
	// duty, not just an exact match, and the critical-temp point always
	// exists even if the caller never supplied one there.
	for t := range byTemp {
		if t >= limits.CriticalTemp {
			byTemp[t] = 100
		}
	}
	byTemp[limits.CriticalTemp] = 100

	temps := make([]int, 0, len(byTemp))
	for t := range byTemp {
		temps = append(temps, t)
	}
	sort.Ints(temps)

	out := make(Profile, 0, len(temps))
	last := -1
	for _, t := range temps {
		duty := clamp(byTemp[t], limits.MinDuty, limits.MaxDuty)
		if duty < last {
			duty = last
		}
		last = duty
		out = append(out, Point{TempC: t, Duty: duty})
	}
	return out
}

// Interpolate evaluates a normalized profile at tempC, linearly
// interpolating between the two bracketing points using integer degree
// arithmetic. Below the first point's temperature it returns the first
// point's duty; above the last point's temperature it returns the last
// point's duty; at an exact point temperature it returns that point's duty
// exactly.
func Interpolate(p Profile, tempC int) int {
	if len(p) == 0 {
		return 0
	}
	if tempC <= p[0].TempC {
		return p[0].Duty
	}
	last := p[len(p)-1]
	if tempC >= last.TempC {
		return last.Duty
	}
	for i := 1; i < len(p); i++ {
		lo, hi := p[i-1], p[i]
		if tempC > hi.TempC {
			continue
		}
		if tempC == lo.TempC {
			return lo.Duty
		}
		span := hi.TempC - lo.TempC
		if span == 0 {
			return hi.Duty
		}
		return lo.Duty + (tempC-lo.TempC)*(hi.Duty-lo.Duty)/span
	}
	return last.Duty
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
