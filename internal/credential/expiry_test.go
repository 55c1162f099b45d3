package credential

import (
	"encoding/json"
	"strconv"
	"testing"
	"time"
)

func num(s string) *json.Number {
	n := json.Number(s)
	return &n
}

func TestShouldRefresh(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	policy := Policy{Now: func() time.Time { return now }}

	tests := []struct {
		name      string
		expiresAt *json.Number
		want      bool
	}{
		{"missing timestamp", nil, true},
		{"non-numeric", num("soon"), true},
		{"int64 overflow", num("99999999999999999999999999"), true},
		{"float timestamp", num("1.5e12"), true}, // not an integer: fail safe
		{"expired seconds", num(strconv.FormatInt(now.Add(-time.Hour).Unix(), 10)), true},
		{"5 days left, seconds", num(strconv.FormatInt(now.Add(5*24*time.Hour).Unix(), 10)), true},
		{"5 days left, millis", num(strconv.FormatInt(now.Add(5*24*time.Hour).UnixMilli(), 10)), true},
		{"30 days left, seconds", num(strconv.FormatInt(now.Add(30*24*time.Hour).Unix(), 10)), false},
		{"30 days left, millis", num(strconv.FormatInt(now.Add(30*24*time.Hour).UnixMilli(), 10)), false},
		{"exactly at lead time", num(strconv.FormatInt(now.Add(DefaultLeadTime).Unix(), 10)), false},
		{"one second inside lead time", num(strconv.FormatInt(now.Add(DefaultLeadTime-time.Second).Unix(), 10)), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := policy.ShouldRefresh(tt.expiresAt); got != tt.want {
				t.Errorf("ShouldRefresh(%v) = %v, want %v", tt.expiresAt, got, tt.want)
			}
		})
	}
}

// Unit inference must be consistent: a seconds timestamp and its
// millisecond equivalent always yield the same decision.
func TestShouldRefreshUnitConsistency(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	policy := Policy{Now: func() time.Time { return now }}

	offsets := []time.Duration{
		-24 * time.Hour,
		time.Hour,
		5 * 24 * time.Hour,
		9 * 24 * time.Hour,
		11 * 24 * time.Hour,
		365 * 24 * time.Hour,
	}
	for _, offset := range offsets {
		expiry := now.Add(offset)
		seconds := num(strconv.FormatInt(expiry.Unix(), 10))
		millis := num(strconv.FormatInt(expiry.UnixMilli(), 10))

		gotSeconds := policy.ShouldRefresh(seconds)
		gotMillis := policy.ShouldRefresh(millis)
		if gotSeconds != gotMillis {
			t.Errorf("offset %v: seconds decision %v != millis decision %v", offset, gotSeconds, gotMillis)
		}
		if want := offset < DefaultLeadTime; gotSeconds != want {
			t.Errorf("offset %v: decision %v, want %v", offset, gotSeconds, want)
		}
	}
}

func TestShouldRefreshCustomLeadTime(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	policy := Policy{LeadTime: time.Hour, Now: func() time.Time { return now }}

	in30m := num(strconv.FormatInt(now.Add(30*time.Minute).Unix(), 10))
	in2h := num(strconv.FormatInt(now.Add(2*time.Hour).Unix(), 10))
	if !policy.ShouldRefresh(in30m) {
		t.Error("30m left with 1h lead time should refresh")
	}
	if policy.ShouldRefresh(in2h) {
		t.Error("2h left with 1h lead time should not refresh")
	}
}

func TestExpiryInstant(t *testing.T) {
	ref := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

	fromSeconds, err := ExpiryInstant(json.Number(strconv.FormatInt(ref.Unix(), 10)))
	if err != nil {
		t.Fatalf("seconds: %v", err)
	}
	fromMillis, err := ExpiryInstant(json.Number(strconv.FormatInt(ref.UnixMilli(), 10)))
	if err != nil {
		t.Fatalf("millis: %v", err)
	}
	if !fromSeconds.Equal(ref) || !fromMillis.Equal(ref) {
		t.Errorf("instants diverge: seconds=%v millis=%v want %v", fromSeconds, fromMillis, ref)
	}

	if _, err := ExpiryInstant(json.Number("garbage")); err == nil {
		t.Error("expected error for non-numeric timestamp")
	}
}
