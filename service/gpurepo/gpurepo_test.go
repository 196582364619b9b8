// SPDX-License-Identifier: BSD-3-Clause

package gpurepo

import "testing"

func TestFanChannelNameAndIndexRoundTrip(t *testing.T) {
	for i := 0; i < 4; i++ {
		name := fanChannelName(i)
		idx, err := fanIndex(name)
		if err != nil {
			t.Fatalf("fanIndex(%q): %v", name, err)
		}
		if idx != i {
			t.Fatalf("fanIndex(%q) = %d, want %d", name, idx, i)
		}
	}
}

func TestFanIndexRejectsGarbage(t *testing.T) {
	if _, err := fanIndex("not-a-fan"); err == nil {
		t.Fatalf("expected an error for a malformed channel name")
	}
}

func TestClamp(t *testing.T) {
	cases := []struct{ v, lo, hi, want int }{
		{-10, 0, 100, 0},
		{200, 0, 100, 100},
		{37, 0, 100, 37},
	}
	for _, c := range cases {
		if got := clamp(c.v, c.lo, c.hi); got != c.want {
			t.Errorf("clamp(%d,%d,%d) = %d, want %d", c.v, c.lo, c.hi, got, c.want)
		}
	}
}
