package domain

import (
	"testing"
	"time"
)

func TestSessionStatus_CanTransitionTo(t *testing.T) {
	if !StatusUnderReview.CanTransitionTo(StatusAuthorized) {
		t.Fatalf("UNDER_REVIEW must be promotable to AUTHORIZED")
	}
	if !StatusWait2FA.CanTransitionTo(StatusAuthorized) {
		t.Fatalf("WAIT_2FA must be promotable to AUTHORIZED")
	}
	if StatusPending.CanTransitionTo(StatusAuthorized) {
		t.Fatalf("PENDING must never be promoted")
	}
	if StatusAuthorized.CanTransitionTo(StatusAuthorized) {
		t.Fatalf("AUTHORIZED is terminal")
	}
	if StatusUnderReview.CanTransitionTo(StatusWait2FA) {
		t.Fatalf("UNDER_REVIEW may only go to AUTHORIZED")
	}
}

func TestSession_Expired(t *testing.T) {
	now := time.Now()
	s := Session{ExpiresAt: now.Add(time.Minute)}
	if s.Expired(now) {
		t.Fatalf("future expiry should not be expired")
	}
	if !s.Expired(now.Add(time.Minute)) {
		t.Fatalf("expiry instant itself counts as expired")
	}
	if !s.Expired(now.Add(2 * time.Minute)) {
		t.Fatalf("past expiry should be expired")
	}
}

func TestSession_Negative(t *testing.T) {
	placeholder := Session{Token: "t", Status: StatusPending}
	if !placeholder.Negative() {
		t.Fatalf("pending placeholder should be negative")
	}
	real := Session{Token: "t", Status: StatusAuthorized, UserID: 7, IP: "10.0.0.1"}
	if real.Negative() {
		t.Fatalf("real session should not be negative")
	}
}
