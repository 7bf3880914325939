package domain

import (
	"testing"
	"time"
)

func TestCredentialExpiredBufferBoundary(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	buffer := 60 * time.Second

	tests := []struct {
		name      string
		expiresAt time.Time
		expired   bool
	}{
		{"expires inside buffer", now.Add(59 * time.Second), true},
		{"expires outside buffer", now.Add(61 * time.Second), false},
		{"expires exactly at buffer edge", now.Add(60 * time.Second), true},
		{"already expired", now.Add(-time.Minute), true},
		{"far future", now.Add(24 * time.Hour), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cred := Credential{AccessToken: "at", RefreshToken: "rt", ExpiresAt: tt.expiresAt}
			if got := cred.Expired(now, buffer); got != tt.expired {
				t.Fatalf("Expired() = %v, want %v", got, tt.expired)
			}
		})
	}
}

func TestCredentialIsZero(t *testing.T) {
	if !(Credential{}).IsZero() {
		t.Fatal("empty credential should be zero")
	}
	if (Credential{AccessToken: "at"}).IsZero() {
		t.Fatal("credential with access token should not be zero")
	}
}
