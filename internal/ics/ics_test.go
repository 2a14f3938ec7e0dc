package ics

import (
	"bytes"
	"strings"
	"testing"

	"roombook/internal/models"
)

func TestWrite(t *testing.T) {
	t.Run("encodes bookings as VEVENTs", func(t *testing.T) {
		bookings := []models.Booking{
			{
				ID:        "b1",
				Title:     "Sync",
				Start:     "2024-01-01T10:00:00Z",
				End:       "2024-01-01T10:30:00Z",
				RoomID:    "r1",
				Attendees: []string{"a@example.com"},
			},
		}

		var buf bytes.Buffer
		if err := Write(&buf, bookings); err != nil {
			t.Fatalf("write failed: %v", err)
		}
		out := buf.String()

		for _, want := range []string{"BEGIN:VCALENDAR", "BEGIN:VEVENT", "UID:b1", "SUMMARY:Sync", "LOCATION:room r1", "mailto:a@example.com"} {
			if !strings.Contains(out, want) {
				t.Errorf("output missing %q", want)
			}
		}
	})

	t.Run("skips bookings with unparseable times", func(t *testing.T) {
		bookings := []models.Booking{
			{ID: "bad", Title: "Broken", Start: "garbage", End: "garbage"},
			{ID: "b2", Title: "OK", Start: "2024-01-01T10:00:00Z", End: "2024-01-01T11:00:00Z"},
		}

		var buf bytes.Buffer
		if err := Write(&buf, bookings); err != nil {
			t.Fatalf("write failed: %v", err)
		}
		if strings.Contains(buf.String(), "Broken") {
			t.Error("unparseable booking should be skipped")
		}
		if !strings.Contains(buf.String(), "UID:b2") {
			t.Error("valid booking missing")
		}
	})

	t.Run("nothing exportable is an error", func(t *testing.T) {
		var buf bytes.Buffer
		if err := Write(&buf, nil); err == nil {
			t.Fatal("expected an error for an empty export")
		}
	})
}

func TestEvent(t *testing.T) {
	t.Run("missing id gets a generated UID", func(t *testing.T) {
		ve, err := Event(models.Booking{
			Title: "Anon",
			Start: "2024-01-01T10:00:00Z",
			End:   "2024-01-01T11:00:00Z",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		uid, err := ve.Props.Text("UID")
		if err != nil || uid == "" {
			t.Fatalf("expected a generated UID, got %q (%v)", uid, err)
		}
	})

	t.Run("invalid times are an error", func(t *testing.T) {
		if _, err := Event(models.Booking{ID: "x", Start: "nope", End: "nope"}); err == nil {
			t.Fatal("expected an error")
		}
	})
}
