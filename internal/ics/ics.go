// Package ics renders bookings as an iCalendar document so they can be
// imported into any calendar application.
package ics

import (
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"

	"roombook/internal/models"
)

// Calendar builds a VCALENDAR containing one VEVENT per booking.
// Bookings with unparseable times are skipped.
func Calendar(bookings []models.Booking) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//roombook//EN")
	for _, b := range bookings {
		ve, err := Event(b)
		if err != nil {
			continue
		}
		cal.Children = append(cal.Children, ve)
	}
	return cal
}

// Event converts a single booking to a VEVENT component. The booking id
// becomes the UID; a booking without one gets a random UID.
func Event(b models.Booking) (*ical.Component, error) {
	start, err := b.StartTime()
	if err != nil {
		return nil, fmt.Errorf("booking %s has invalid start: %w", b.ID, err)
	}
	end, err := b.EndTime()
	if err != nil {
		return nil, fmt.Errorf("booking %s has invalid end: %w", b.ID, err)
	}

	uid := b.ID
	if uid == "" {
		uid = uuid.New().String()
	}

	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, uid)
	ve.Props.SetText(ical.PropSummary, b.Title)
	ve.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())
	ve.Props.SetDateTime(ical.PropDateTimeStart, start)
	ve.Props.SetDateTime(ical.PropDateTimeEnd, end)
	if b.RoomID != "" {
		ve.Props.SetText(ical.PropLocation, "room "+b.RoomID)
	}
	for _, attendee := range b.Attendees {
		p := ical.NewProp(ical.PropAttendee)
		p.SetText(fmt.Sprintf("mailto:%s", attendee))
		ve.Props.Add(p)
	}
	return ve, nil
}

// Write encodes the bookings as iCalendar text. Writing an empty booking
// set is an error; an .ics file with no events is never useful.
func Write(w io.Writer, bookings []models.Booking) error {
	cal := Calendar(bookings)
	if len(cal.Children) == 0 {
		return fmt.Errorf("no exportable bookings")
	}
	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("failed to encode calendar: %w", err)
	}
	return nil
}
