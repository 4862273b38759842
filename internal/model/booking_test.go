package model

import (
	"testing"
	"time"
)

func TestParseBookingStatusNormalizesLegacySpellings(t *testing.T) {
	cases := map[string]BookingStatus{
		"Booked":     BookingBooked,
		"active":     BookingBooked,
		" ACTIVE ":   BookingBooked,
		"Checked-in": BookingCheckedIn,
		"CHECKED_IN": BookingCheckedIn,
		"Completed":  BookingCompleted,
		"completed":  BookingCompleted,
		"Cancelled":  BookingCancelled,
		"cancelled":  BookingCancelled,
		"canceled":   BookingCancelled,
	}
	for in, want := range cases {
		got, err := ParseBookingStatus(in)
		if err != nil {
			t.Fatalf("ParseBookingStatus(%q) error: %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseBookingStatus(%q) = %q, want %q", in, got, want)
		}
	}
	if _, err := ParseBookingStatus("archived"); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestBookingTransitions(t *testing.T) {
	tests := []struct {
		from, to BookingStatus
		ok       bool
	}{
		{BookingBooked, BookingCheckedIn, true},
		{BookingBooked, BookingCancelled, true},
		{BookingBooked, BookingCompleted, true},
		{BookingCheckedIn, BookingCompleted, true},
		{BookingCheckedIn, BookingBooked, false},
		{BookingCancelled, BookingBooked, false},
		{BookingCompleted, BookingCancelled, false},
	}
	for _, tc := range tests {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.ok {
			t.Errorf("%s -> %s = %v, want %v", tc.from, tc.to, got, tc.ok)
		}
	}
	if !BookingCancelled.IsTerminal() || !BookingCompleted.IsTerminal() {
		t.Error("cancelled and completed must be terminal")
	}
	if BookingBooked.IsTerminal() {
		t.Error("booked must not be terminal")
	}
}

func TestBookingIsActive(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	future := now.AddDate(0, 4, 0)
	past := now.Add(-time.Hour)

	if !(Booking{Status: BookingBooked, EndDate: future}).IsActive(now) {
		t.Error("booked booking ending in the future should be active")
	}
	if !(Booking{Status: BookingCheckedIn, EndDate: future}).IsActive(now) {
		t.Error("checked-in booking ending in the future should be active")
	}
	if (Booking{Status: BookingCancelled, EndDate: future}).IsActive(now) {
		t.Error("cancelled booking must not be active")
	}
	if (Booking{Status: BookingBooked, EndDate: past}).IsActive(now) {
		t.Error("booking whose semester ended must not be active")
	}
}

func TestMaintenanceStatusParsingAndTransitions(t *testing.T) {
	st, ok := ParseMaintenanceStatus("in_progress")
	if !ok || st != MaintenanceInProgress {
		t.Fatalf("got %q %v", st, ok)
	}
	if !MaintenancePending.CanTransitionTo(MaintenanceResolved) {
		t.Error("pending -> resolved should be allowed")
	}
	if MaintenanceResolved.CanTransitionTo(MaintenancePending) {
		t.Error("resolved is terminal")
	}
	if _, ok := ParseMaintenanceCategory("plumbing"); !ok {
		t.Error("category lookup should be case-insensitive")
	}
}
