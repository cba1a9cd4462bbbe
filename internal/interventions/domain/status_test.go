package domain

import "testing"

func TestCanTransition(t *testing.T) {
	cases := []struct {
		current Status
		next    Status
		want    bool
	}{
		{StatusScheduled, StatusInProgress, true},
		{StatusInProgress, StatusCompleted, true},
		{StatusCompleted, StatusValidated, true},
		{StatusScheduled, StatusCompleted, false},
		{StatusScheduled, StatusValidated, false},
		{StatusInProgress, StatusValidated, false},
		{StatusInProgress, StatusScheduled, false},
		{StatusCompleted, StatusScheduled, false},
		{StatusValidated, StatusCompleted, false},
		{StatusValidated, StatusScheduled, false},
		{StatusScheduled, StatusScheduled, false},
	}

	for _, tc := range cases {
		if got := CanTransition(tc.current, tc.next); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.current, tc.next, got, tc.want)
		}
	}
}

func TestValidStatus(t *testing.T) {
	for _, status := range AllStatuses {
		if !ValidStatus(string(status)) {
			t.Errorf("ValidStatus(%s) = false, want true", status)
		}
	}
	for _, value := range []string{"", "scheduled", "CANCELLED", "DONE"} {
		if ValidStatus(value) {
			t.Errorf("ValidStatus(%q) = true, want false", value)
		}
	}
}

func TestValidAssignmentMode(t *testing.T) {
	for _, value := range []string{"MANUAL", "AUTO"} {
		if !ValidAssignmentMode(value) {
			t.Errorf("ValidAssignmentMode(%q) = false, want true", value)
		}
	}
	for _, value := range []string{"", "auto", "RANDOM"} {
		if ValidAssignmentMode(value) {
			t.Errorf("ValidAssignmentMode(%q) = true, want false", value)
		}
	}
}
