// SPDX-License-Identifier: BSD-3-Clause

package cpurepo

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/coolerd/coolerd/pkg/device"
)

func writeProcStat(t *testing.T, path string, user, idle uint64) {
	t.Helper()
	content := "cpu  " + itoa(user) + " 0 0 " + itoa(idle) + " 0 0 0 0 0 0\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write proc stat: %v", err)
	}
}

func itoa(v uint64) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}

func TestSampleLoadRequiresTwoSamples(t *testing.T) {
	dir := t.TempDir()
	statPath := filepath.Join(dir, "stat")
	writeProcStat(t, statPath, 100, 900)

	r := New(WithProcStatPath(statPath))

	if _, ok := r.sampleLoad(); ok {
		t.Fatalf("expected no load percent from the first sample")
	}

	writeProcStat(t, statPath, 200, 950)
	pct, ok := r.sampleLoad()
	if !ok {
		t.Fatalf("expected a load percent from the second sample")
	}
	// delta user=100, delta idle=50, delta total=150: busy = 150-50=100 -> 66%
	if pct < 60 || pct > 70 {
		t.Fatalf("expected load percent near 66, got %d", pct)
	}
}

func TestUpdateStatusesPopulatesLoadChannel(t *testing.T) {
	dir := t.TempDir()
	statPath := filepath.Join(dir, "stat")
	writeProcStat(t, statPath, 100, 900)

	r := New(WithProcStatPath(statPath), WithBasePath(dir))
	if err := r.Discover(context.Background()); err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if err := r.UpdateStatuses(context.Background()); err != nil {
		t.Fatalf("UpdateStatuses: %v", err)
	}

	writeProcStat(t, statPath, 200, 950)
	if err := r.UpdateStatuses(context.Background()); err != nil {
		t.Fatalf("UpdateStatuses: %v", err)
	}

	devices := r.Statuses()
	if len(devices) != 1 {
		t.Fatalf("expected one CPU device, got %d", len(devices))
	}
	status := devices[0].Status()
	if len(status.Channels) != 1 || status.Channels[0].Name != loadChannelName {
		t.Fatalf("expected a load channel in status, got %+v", status.Channels)
	}
}

func TestSetSettingsRejected(t *testing.T) {
	r := New()
	if _, err := r.SetSettings(context.Background(), 1, device.Setting{ChannelName: loadChannelName}); err == nil {
		t.Fatalf("expected SetSettings to be rejected on a read-only repository")
	}
}
