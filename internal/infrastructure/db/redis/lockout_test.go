package redis

import (
	"testing"
	"time"
)

func TestParseState(t *testing.T) {
	until := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		vals      []interface{}
		wantCount int
		wantUntil time.Time
	}{
		{name: "missing key", vals: []interface{}{nil, nil}},
		{name: "counting", vals: []interface{}{"3", nil}, wantCount: 3},
		{name: "locked", vals: []interface{}{"0", "1714557600"}, wantUntil: until},
		{name: "garbage", vals: []interface{}{"x", "y"}},
		{name: "short reply", vals: []interface{}{"1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseState(tt.vals)
			if got.FailedCount != tt.wantCount {
				t.Errorf("FailedCount = %d, want %d", got.FailedCount, tt.wantCount)
			}
			if !got.LockedUntil.Equal(tt.wantUntil) {
				t.Errorf("LockedUntil = %v, want %v", got.LockedUntil, tt.wantUntil)
			}
		})
	}
}

func TestLockedState(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 55, 0, 0, time.UTC)
	state := parseState([]interface{}{"0", "1714557600"})

	if !state.Locked(now) {
		t.Fatalf("expected locked five minutes before expiry")
	}
	if state.Locked(now.Add(10 * time.Minute)) {
		t.Fatalf("expected unlocked after expiry")
	}
}

func TestKeyFormat(t *testing.T) {
	s := NewLockoutStore(nil)
	if got := s.key("abc"); got != "identity:lockout:abc" {
		t.Fatalf("key = %q", got)
	}
}
