// SPDX-License-Identifier: BSD-3-Clause

package device

import (
	"testing"
	"time"
)

func TestNewDeviceStartsEmpty(t *testing.T) {
	d := NewDevice(Identity{Type: TypeHwmon, TypeID: 1}, Info{Name: "nzxt-kraken"})

	if got := d.Status(); !got.Timestamp.IsZero() {
		t.Fatalf("expected zero-value status, got %+v", got)
	}
	if len(d.History()) != 0 {
		t.Fatalf("expected empty history, got %d entries", len(d.History()))
	}
}

func TestApplyStatusReplacesCurrentAndAppendsHistory(t *testing.T) {
	d := NewDevice(Identity{Type: TypeCooling, TypeID: 1}, Info{})

	s1 := Status{Timestamp: time.Unix(1, 0), Temps: []TempStatus{{Name: "liquid", TempC: 30}}}
	s2 := Status{Timestamp: time.Unix(2, 0), Temps: []TempStatus{{Name: "liquid", TempC: 32}}}

	d.ApplyStatus(s1)
	d.ApplyStatus(s2)

	if got := d.Status(); got.Timestamp != s2.Timestamp {
		t.Fatalf("Status() = %+v, want current = s2", got)
	}

	hist := d.History()
	if len(hist) != 2 || hist[0].Timestamp != s1.Timestamp || hist[1].Timestamp != s2.Timestamp {
		t.Fatalf("History() = %+v, want [s1 s2] oldest-first", hist)
	}
}

func TestHistoryIsBoundedByCapacity(t *testing.T) {
	d := NewDevice(Identity{Type: TypeHwmon, TypeID: 1}, Info{})

	for i := 0; i < HistoryCapacity+10; i++ {
		d.ApplyStatus(Status{Timestamp: time.Unix(int64(i), 0)})
	}

	hist := d.History()
	if len(hist) != HistoryCapacity {
		t.Fatalf("len(History()) = %d, want %d", len(hist), HistoryCapacity)
	}
	// The oldest 10 samples (timestamps 0..9) must have been evicted.
	if hist[0].Timestamp != time.Unix(10, 0) {
		t.Fatalf("oldest retained sample = %v, want unix 10", hist[0].Timestamp)
	}
}

func TestHistoryReturnsACopy(t *testing.T) {
	d := NewDevice(Identity{Type: TypeHwmon, TypeID: 1}, Info{})
	d.ApplyStatus(Status{Timestamp: time.Unix(1, 0)})

	hist := d.History()
	hist[0] = Status{Timestamp: time.Unix(99, 0)}

	if got := d.History()[0].Timestamp; got != time.Unix(1, 0) {
		t.Fatalf("mutating the returned slice leaked into device state: got %v", got)
	}
}

func TestTempByExternalNameFindsMatch(t *testing.T) {
	d := NewDevice(Identity{Type: TypeHwmon, TypeID: 1}, Info{})
	d.ApplyStatus(Status{
		Temps: []TempStatus{
			{Name: "Package", ExternalName: "cpu_cpu_package"},
			{Name: "Core 0", ExternalName: "cpu_cpu_core_0"},
		},
	})

	got, ok := d.TempByExternalName("cpu_cpu_core_0")
	if !ok {
		t.Fatal("expected to find cpu_cpu_core_0")
	}
	if got.Name != "Core 0" {
		t.Fatalf("got %+v, want Name=Core 0", got)
	}

	if _, ok := d.TempByExternalName("does_not_exist"); ok {
		t.Fatal("expected lookup of unknown external name to fail")
	}
}

func TestTempByExternalNameOnEmptyStatus(t *testing.T) {
	d := NewDevice(Identity{Type: TypeGPU, TypeID: 1}, Info{})
	if _, ok := d.TempByExternalName("anything"); ok {
		t.Fatal("expected lookup against an empty status to fail")
	}
}
