// Package calendar is the client's stand-in for the calendar widget: an
// event source that feeds it and a view that holds the visible range and
// the events rendered inside it.
package calendar

import (
	"context"
	"time"

	"roombook/internal/models"
	"roombook/internal/session"
)

// EventSource supplies the bookings visible in a date range [from, to).
// The widget may call it repeatedly and concurrently; every call stands
// alone.
type EventSource func(ctx context.Context, from, to time.Time) ([]models.Booking, error)

// BookingFetcher is the slice of the API client the event source needs.
type BookingFetcher interface {
	RoomCalendar(ctx context.Context, roomID string, from, to time.Time) ([]models.Booking, error)
}

// NewSource adapts the booking API to an EventSource scoped to the
// session's selected room. With no room selected it returns an empty
// result synchronously, without touching the network, so a cleared
// selection never flashes another room's events. Otherwise it issues
// exactly one GET with the boundary instants passed through unchanged.
func NewSource(sess *session.Session, fetcher BookingFetcher) EventSource {
	return func(ctx context.Context, from, to time.Time) ([]models.Booking, error) {
		roomID := sess.RoomID()
		if roomID == "" {
			return []models.Booking{}, nil
		}
		return fetcher.RoomCalendar(ctx, roomID, from, to)
	}
}
