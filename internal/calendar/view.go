package calendar

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"roombook/internal/models"
	"roombook/internal/session"
)

// View holds the visible week and the events fetched into it. It is the
// in-process counterpart of the rendered calendar widget.
type View struct {
	mu     sync.Mutex
	sess   *session.Session
	source EventSource
	loc    *time.Location
	from   time.Time
	to     time.Time
	events []models.Booking
}

// NewView builds a view showing the week that contains now.
func NewView(sess *session.Session, source EventSource, loc *time.Location, now time.Time) *View {
	v := &View{sess: sess, source: source, loc: loc}
	v.from, v.to = weekOf(now.In(loc))
	return v
}

// weekOf returns the [from, to) range of the week containing t, starting
// on Sunday at midnight in t's location.
func weekOf(t time.Time) (time.Time, time.Time) {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	from := day.AddDate(0, 0, -int(day.Weekday()))
	return from, from.AddDate(0, 0, 7)
}

// VisibleRange returns the current [from, to) range.
func (v *View) VisibleRange() (time.Time, time.Time) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.from, v.to
}

// GotoDate moves the visible range to the week containing t and drops the
// cached events; callers refetch afterwards.
func (v *View) GotoDate(t time.Time) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.from, v.to = weekOf(t.In(v.loc))
	v.events = nil
}

// Refetch reloads the visible range from the event source. The fetch is
// tagged with the session state it was issued for; if the room selection
// changes while the request is in flight the response is discarded
// instead of clobbering the newer selection's view.
func (v *View) Refetch(ctx context.Context) error {
	guard := v.sess.Guard()
	from, to := v.VisibleRange()

	events, err := v.source(ctx, from, to)
	if err != nil {
		return err
	}
	if guard.Stale() {
		return nil
	}

	v.mu.Lock()
	v.events = events
	v.mu.Unlock()
	return nil
}

// Insert places a booking into the view ahead of the next server fetch.
// It is a latency hint only; a Refetch reconciles with the server's view.
// Bookings that cannot be rendered are ignored.
func (v *View) Insert(b models.Booking) {
	if !b.Renderable() {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, existing := range v.events {
		if existing.ID == b.ID {
			return
		}
	}
	v.events = append(v.events, b)
}

// Events returns a copy of the events currently in the view.
func (v *View) Events() []models.Booking {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]models.Booking, len(v.events))
	copy(out, v.events)
	return out
}

// Render writes the visible week as text, one section per day, events
// ordered by start time and truncated to minute precision.
func (v *View) Render(w io.Writer) error {
	v.mu.Lock()
	from, to := v.from, v.to
	events := make([]models.Booking, len(v.events))
	copy(events, v.events)
	v.mu.Unlock()

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Start < events[j].Start
	})

	fmt.Fprintf(w, "Week of %s to %s\n", from.Format("2006-01-02"), to.AddDate(0, 0, -1).Format("2006-01-02"))
	if len(events) == 0 {
		fmt.Fprintln(w, "  (no bookings)")
		return nil
	}

	lastDay := ""
	for _, e := range events {
		start, err := e.StartTime()
		if err != nil {
			continue
		}
		end, err := e.EndTime()
		if err != nil {
			continue
		}
		start = start.In(v.loc)
		end = end.In(v.loc)

		day := start.Format("Mon 2006-01-02")
		if day != lastDay {
			fmt.Fprintf(w, "%s\n", day)
			lastDay = day
		}
		fmt.Fprintf(w, "  %s-%s  %s  [%s]\n", start.Format("15:04"), end.Format("15:04"), e.Title, e.ID)
	}
	return nil
}
