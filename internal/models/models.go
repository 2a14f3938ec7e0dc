package models

import "time"

// RoleAdmin is the only role value that unlocks administrative operations.
// Every other value, including an empty one, is treated as a standard user.
const RoleAdmin = "admin"

// User is the authenticated account returned by the session check.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// IsAdmin reports whether the user may see the administrative commands.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Office is a bookable site. Timezone is an IANA zone name.
type Office struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Timezone string `json:"timezone,omitempty"`
}

// Floor belongs to an office.
type Floor struct {
	ID       string `json:"id"`
	OfficeID string `json:"office_id,omitempty"`
	Number   int    `json:"number,omitempty"`
	Label    string `json:"label"`
}

// Room is a bookable meeting room.
type Room struct {
	ID        string `json:"id"`
	FloorID   string `json:"floor_id,omitempty"`
	OfficeID  string `json:"office_id,omitempty"`
	Name      string `json:"name"`
	Capacity  int    `json:"capacity"`
	Equipment string `json:"equipment,omitempty"`
}

// Booking is a calendar entry for a room. Start and End are RFC 3339
// strings because that is how the backend round-trips them; use the
// StartTime/EndTime helpers when a time.Time is needed.
type Booking struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Start     string   `json:"start"`
	End       string   `json:"end"`
	UserID    string   `json:"user_id,omitempty"`
	RoomID    string   `json:"room_id,omitempty"`
	Attendees []string `json:"attendees,omitempty"`
	Color     string   `json:"color,omitempty"`
}

// StartTime parses the booking's start instant.
func (b Booking) StartTime() (time.Time, error) {
	return time.Parse(time.RFC3339, b.Start)
}

// EndTime parses the booking's end instant.
func (b Booking) EndTime() (time.Time, error) {
	return time.Parse(time.RFC3339, b.End)
}

// Renderable reports whether the booking carries enough data to show on a
// calendar: an id plus parseable start and end instants.
func (b Booking) Renderable() bool {
	if b.ID == "" {
		return false
	}
	if _, err := b.StartTime(); err != nil {
		return false
	}
	if _, err := b.EndTime(); err != nil {
		return false
	}
	return true
}
