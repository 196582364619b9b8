// SPDX-License-Identifier: BSD-3-Clause

package profile

import "testing"

func defaultLimits() Limits {
	return Limits{MinDuty: 0, MaxDuty: 100, CriticalTemp: 100}
}

func TestNormalizeCanonicalization(t *testing.T) {
	in := Profile{{50, 40}, {30, 20}, {50, 30}, {60, 35}}
	want := Profile{{30, 20}, {50, 40}, {60, 40}, {100, 100}}

	got := Normalize(in, defaultLimits())
	if !profilesEqual(got, want) {
		t.Fatalf("Normalize(%v) = %v, want %v", in, got, want)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []Profile{
		{{50, 40}, {30, 20}, {50, 30}, {60, 35}},
		{{30, 20}, {50, 40}, {70, 80}, {100, 100}},
		{},
		{{10, 5}},
		{{0, 0}, {0, 100}},
	}
	for _, in := range inputs {
		once := Normalize(in, defaultLimits())
		twice := Normalize(once, defaultLimits())
		if !profilesEqual(once, twice) {
			t.Fatalf("Normalize not idempotent for %v: once=%v twice=%v", in, once, twice)
		}
	}
}

func TestNormalizeClampsIntoLimits(t *testing.T) {
	limits := Limits{MinDuty: 20, MaxDuty: 80, CriticalTemp: 100}
	in := Profile{{10, 0}, {50, 50}, {100, 100}}
	got := Normalize(in, limits)
	for _, pt := range got {
		if pt.Duty < limits.MinDuty || pt.Duty > limits.MaxDuty {
			t.Fatalf("point %v out of [%d,%d]", pt, limits.MinDuty, limits.MaxDuty)
		}
	}
}

func TestNormalizeMonotone(t *testing.T) {
	in := Profile{{10, 90}, {20, 10}, {30, 50}, {40, 5}}
	got := Normalize(in, defaultLimits())
	for i := 1; i < len(got); i++ {
		if got[i].Duty < got[i-1].Duty {
			t.Fatalf("not monotone at index %d: %v", i, got)
		}
	}
}

func TestInterpolateScenario(t *testing.T) {
	p := Profile{{30, 20}, {50, 40}, {70, 80}, {100, 100}}

	cases := []struct {
		temp int
		want int
	}{
		{45, 35},
		{25, 20},
		{110, 100},
		{30, 20},
		{100, 100},
		{70, 80},
	}
	for _, c := range cases {
		if got := Interpolate(p, c.temp); got != c.want {
			t.Errorf("Interpolate(p, %d) = %d, want %d", c.temp, got, c.want)
		}
	}
}

func TestInterpolateBounds(t *testing.T) {
	p := Normalize(Profile{{20, 10}, {40, 60}, {80, 30}}, defaultLimits())
	minD, maxD := p[0].Duty, p[0].Duty
	for _, pt := range p {
		if pt.Duty < minD {
			minD = pt.Duty
		}
		if pt.Duty > maxD {
			maxD = pt.Duty
		}
	}
	for temp := -10; temp <= 120; temp += 5 {
		got := Interpolate(p, temp)
		if got < minD || got > maxD {
			t.Fatalf("Interpolate(p, %d) = %d out of [%d,%d]", temp, got, minD, maxD)
		}
	}
	if got := Interpolate(p, p[0].TempC); got != p[0].Duty {
		t.Fatalf("at first point got %d want %d", got, p[0].Duty)
	}
	last := p[len(p)-1]
	if got := Interpolate(p, last.TempC); got != last.Duty {
		t.Fatalf("at last point got %d want %d", got, last.Duty)
	}
}

func TestNormalizePinsEveryPointAtOrAboveCriticalTemp(t *testing.T) {
	limits := Limits{MinDuty: 0, MaxDuty: 100, CriticalTemp: 60}
	in := Profile{{50, 30}, {60, 40}, {70, 50}}

	got := Normalize(in, limits)

	for _, pt := range got {
		if pt.TempC >= limits.CriticalTemp && pt.Duty != 100 {
			t.Fatalf("point %v at or above critical temp %d not pinned to 100: %v", pt, limits.CriticalTemp, got)
		}
	}
	last := got[len(got)-1]
	if last.TempC != 70 || last.Duty != 100 {
		t.Fatalf("expected the 70C point to stay monotone at 100 after the critical pin, got %v", got)
	}
}

func TestInterpolateEmptyProfile(t *testing.T) {
	if got := Interpolate(Profile{}, 50); got != 0 {
		t.Fatalf("Interpolate on empty profile = %d, want 0", got)
	}
}

func profilesEqual(a, b Profile) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
