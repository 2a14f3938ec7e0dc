package models

import "testing"

func TestIsAdmin(t *testing.T) {
	cases := []struct {
		role string
		want bool
	}{
		{"admin", true},
		{"user", false},
		{"", false},
		{"Admin", false},
		{"superadmin", false},
	}

	for _, tc := range cases {
		if got := (User{Role: tc.role}).IsAdmin(); got != tc.want {
			t.Errorf("IsAdmin(%q) = %v, want %v", tc.role, got, tc.want)
		}
	}
}

func TestBookingRenderable(t *testing.T) {
	good := Booking{ID: "b1", Start: "2024-01-01T10:00:00Z", End: "2024-01-01T10:30:00Z"}
	if !good.Renderable() {
		t.Error("expected complete booking to be renderable")
	}

	cases := map[string]Booking{
		"missing id":  {Start: good.Start, End: good.End},
		"bad start":   {ID: "b1", Start: "nope", End: good.End},
		"bad end":     {ID: "b1", Start: good.Start, End: "nope"},
		"empty times": {ID: "b1"},
	}
	for name, b := range cases {
		if b.Renderable() {
			t.Errorf("%s: expected not renderable", name)
		}
	}
}
