// Package booking implements the submission flow: local validation,
// timestamp normalization, attendee parsing, the POST itself, and the
// optimistic calendar update reconciled against the server afterwards.
package booking

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"roombook/internal/api"
	"roombook/internal/calendar"
	"roombook/internal/models"
	"roombook/internal/session"
)

// Form is the raw user input for a booking.
type Form struct {
	Title     string
	Start     string
	End       string
	Attendees string // free text, one attendee per line
}

// Result is a successful submission.
type Result struct {
	Booking models.Booking
	Message string
}

// Creator is the slice of the API client the flow needs.
type Creator interface {
	CreateBooking(ctx context.Context, req api.BookingRequest) (models.Booking, error)
}

// timeLayouts are the accepted input formats, from most to least specific.
// Minute-precision values without a zone are taken as UTC.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
}

// NormalizeTime parses a form timestamp and returns it with its canonical
// RFC 3339 rendering.
func NormalizeTime(value string) (time.Time, string, error) {
	value = strings.TrimSpace(value)
	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, value)
		if err != nil {
			continue
		}
		t = t.UTC()
		return t, t.Format(time.RFC3339), nil
	}
	return time.Time{}, "", fmt.Errorf("unrecognized timestamp %q", value)
}

// ParseAttendees splits free text into one attendee per line, discarding
// blank lines and surrounding whitespace.
func ParseAttendees(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// Submit runs the full flow against the selected room. Validation
// failures return before any network call. On success the created booking
// is optimistically inserted into the view, the view moves to the
// booking's start date, and a full refetch reconciles with the server.
func Submit(ctx context.Context, logger *slog.Logger, sess *session.Session, view *calendar.View, creator Creator, form Form) (Result, error) {
	roomID := sess.RoomID()
	if roomID == "" {
		return Result{}, session.ErrNoRoomSelected
	}

	startT, start, err := NormalizeTime(form.Start)
	if err != nil {
		return Result{}, fmt.Errorf("invalid start time: %w", err)
	}
	_, end, err := NormalizeTime(form.End)
	if err != nil {
		return Result{}, fmt.Errorf("invalid end time: %w", err)
	}

	created, err := creator.CreateBooking(ctx, api.BookingRequest{
		Title:     form.Title,
		Start:     start,
		End:       end,
		Attendees: ParseAttendees(form.Attendees),
		RoomID:    roomID,
	})
	if err != nil {
		return Result{}, err
	}

	if view != nil {
		// Latency hint; the refetch below is the source of truth.
		if created.Renderable() {
			if createdStart, err := created.StartTime(); err == nil {
				startT = createdStart
			}
		}
		view.GotoDate(startT)
		view.Insert(created)
		if err := view.Refetch(ctx); err != nil {
			logger.Warn("Failed to refetch calendar after booking", "error", err)
		}
	}

	message := fmt.Sprintf("Booking %q created", form.Title)
	if created.ID != "" {
		message = fmt.Sprintf("Booking %q created (id %s)", form.Title, created.ID)
	}
	return Result{Booking: created, Message: message}, nil
}
