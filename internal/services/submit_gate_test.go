package services

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSubmitGateWindow(t *testing.T) {
	clock := newFakeClock()
	gate := NewSubmitGate(&MemoryGateStore{}, clock.Now)

	if !gate.CanSubmit() || gate.RemainingCooldown() != 0 {
		t.Fatal("fresh gate should allow submission")
	}
	if err := gate.RecordSubmission(clock.Now()); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		at        time.Duration
		allowed   bool
		remaining time.Duration
	}{
		{0, false, 30 * time.Second},
		{10 * time.Second, false, 20 * time.Second},
		{29999 * time.Millisecond, false, time.Millisecond},
		{30 * time.Second, false, 0},
		{30001 * time.Millisecond, true, 0},
		{time.Hour, true, 0},
	}
	start := clock.Now()
	for _, tt := range tests {
		clock.t = start.Add(tt.at)
		if got := gate.CanSubmit(); got != tt.allowed {
			t.Errorf("at +%v: CanSubmit = %v, want %v", tt.at, got, tt.allowed)
		}
		if got := gate.RemainingCooldown(); got != tt.remaining {
			t.Errorf("at +%v: RemainingCooldown = %v, want %v", tt.at, got, tt.remaining)
		}
	}
}

func TestSubmitGateRestoresPersistedValue(t *testing.T) {
	clock := newFakeClock()
	store := &MemoryGateStore{}
	_ = store.Save(clock.Now().Add(-10 * time.Second).UnixMilli())

	gate := NewSubmitGate(store, clock.Now)
	if gate.CanSubmit() {
		t.Error("Expected restored gate to block")
	}
	if got := gate.RemainingCooldown(); got != 20*time.Second {
		t.Errorf("RemainingCooldown = %v, want 20s", got)
	}
	if _, ok, _ := store.Load(); !ok {
		t.Error("fresh persisted value should be kept")
	}
}

func TestSubmitGateClearsStaleOrFutureValue(t *testing.T) {
	for name, offset := range map[string]time.Duration{
		"stale":  -time.Minute,
		"edge":   -SubmitRateLimit,
		"future": time.Minute,
	} {
		t.Run(name, func(t *testing.T) {
			clock := newFakeClock()
			store := &MemoryGateStore{}
			_ = store.Save(clock.Now().Add(offset).UnixMilli())

			gate := NewSubmitGate(store, clock.Now)
			if !gate.CanSubmit() {
				t.Error("Expected gate to allow submission")
			}
			if !gate.lastSubmitAt.IsZero() {
				t.Errorf("lastSubmitAt = %v, want zero", gate.lastSubmitAt)
			}
			if _, ok, _ := store.Load(); ok {
				t.Error("Expected persisted value to be cleared")
			}
		})
	}
}

func TestFileGateStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "gate")
	store := NewFileGateStore(path)

	if _, ok, err := store.Load(); ok || err != nil {
		t.Fatalf("Load on missing file = %v, %v", ok, err)
	}
	if err := store.Save(1709294400123); err != nil {
		t.Fatal(err)
	}
	ms, ok, err := store.Load()
	if err != nil || !ok || ms != 1709294400123 {
		t.Fatalf("Load = %d, %v, %v", ms, ok, err)
	}

	if err := store.Clear(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("Expected file removed, stat err = %v", err)
	}
	if err := store.Clear(); err != nil {
		t.Errorf("second Clear: %v", err)
	}
}

func TestFileGateStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gate")
	if err := os.WriteFile(path, []byte("not a number"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, _, err := NewFileGateStore(path).Load(); err == nil {
		t.Error("Expected parse error")
	}
	// 损坏的文件不应阻止提交
	if gate := NewSubmitGate(NewFileGateStore(path), nil); !gate.CanSubmit() {
		t.Error("Expected gate to allow submission")
	}
}
