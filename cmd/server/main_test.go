package main

import (
	"testing"
	"time"
)

func TestWriteTimeoutOutlastsPollDeadline(t *testing.T) {
	cases := []struct {
		name        string
		pollTimeout time.Duration
		want        time.Duration
	}{
		{"default poll timeout", 0, 2*time.Minute + 30*time.Second},
		{"configured poll timeout", 10 * time.Second, 40 * time.Second},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := writeTimeout(tc.pollTimeout)
			if got != tc.want {
				t.Fatalf("writeTimeout(%v) = %v, want %v", tc.pollTimeout, got, tc.want)
			}
			if got <= tc.pollTimeout {
				t.Fatalf("write timeout %v must exceed poll timeout %v", got, tc.pollTimeout)
			}
		})
	}
}
