package calendar

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"roombook/internal/models"
	"roombook/internal/session"
)

// fetcherStub counts calls and can run a hook mid-fetch to simulate a
// selection change while a request is in flight.
type fetcherStub struct {
	calls    atomic.Int64
	bookings []models.Booking
	err      error
	onFetch  func()

	lastRoom string
	lastFrom time.Time
	lastTo   time.Time
}

func (f *fetcherStub) RoomCalendar(ctx context.Context, roomID string, from, to time.Time) ([]models.Booking, error) {
	f.calls.Add(1)
	f.lastRoom = roomID
	f.lastFrom = from
	f.lastTo = to
	if f.onFetch != nil {
		f.onFetch()
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.bookings, nil
}

var sampleBooking = models.Booking{
	ID:     "b1",
	Title:  "Sync",
	Start:  "2024-01-01T10:00:00Z",
	End:    "2024-01-01T10:30:00Z",
	RoomID: "r1",
}

func TestEventSource(t *testing.T) {
	t.Run("no selected room returns empty without a fetch", func(t *testing.T) {
		sess := session.New("")
		fetcher := &fetcherStub{bookings: []models.Booking{sampleBooking}}
		source := NewSource(sess, fetcher)

		events, err := source(context.Background(), time.Now(), time.Now().Add(24*time.Hour))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(events) != 0 {
			t.Fatalf("expected empty result, got %d events", len(events))
		}
		if got := fetcher.calls.Load(); got != 0 {
			t.Fatalf("expected zero fetches, observed %d", got)
		}
	})

	t.Run("selected room issues exactly one fetch with the given range", func(t *testing.T) {
		sess := session.New("")
		sess.SelectRoom("r1")
		fetcher := &fetcherStub{bookings: []models.Booking{sampleBooking}}
		source := NewSource(sess, fetcher)

		from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		to := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)
		events, err := source(context.Background(), from, to)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := fetcher.calls.Load(); got != 1 {
			t.Fatalf("expected one fetch, observed %d", got)
		}
		if fetcher.lastRoom != "r1" || !fetcher.lastFrom.Equal(from) || !fetcher.lastTo.Equal(to) {
			t.Fatalf("fetch parameters: room=%q from=%v to=%v", fetcher.lastRoom, fetcher.lastFrom, fetcher.lastTo)
		}
		if len(events) != 1 || events[0].ID != "b1" {
			t.Fatalf("unexpected events: %+v", events)
		}
	})

	t.Run("fetch errors propagate instead of panicking", func(t *testing.T) {
		sess := session.New("")
		sess.SelectRoom("r1")
		wantErr := errors.New("boom")
		source := NewSource(sess, &fetcherStub{err: wantErr})

		_, err := source(context.Background(), time.Now(), time.Now())
		if !errors.Is(err, wantErr) {
			t.Fatalf("expected wrapped fetch error, got %v", err)
		}
	})
}

func TestViewRefetch(t *testing.T) {
	t.Run("applies fetched events", func(t *testing.T) {
		sess := session.New("")
		sess.SelectRoom("r1")
		fetcher := &fetcherStub{bookings: []models.Booking{sampleBooking}}
		view := NewView(sess, NewSource(sess, fetcher), time.UTC, time.Now())

		if err := view.Refetch(context.Background()); err != nil {
			t.Fatalf("refetch failed: %v", err)
		}
		events := view.Events()
		if len(events) != 1 || events[0].ID != "b1" {
			t.Fatalf("unexpected events: %+v", events)
		}
	})

	t.Run("discards a response for a superseded selection", func(t *testing.T) {
		sess := session.New("")
		sess.SelectRoom("r1")
		fetcher := &fetcherStub{bookings: []models.Booking{sampleBooking}}
		// The selection changes while the request is in flight.
		fetcher.onFetch = func() { sess.SelectRoom("r2") }
		view := NewView(sess, NewSource(sess, fetcher), time.UTC, time.Now())

		if err := view.Refetch(context.Background()); err != nil {
			t.Fatalf("refetch failed: %v", err)
		}
		if events := view.Events(); len(events) != 0 {
			t.Fatalf("stale response must not be applied, got %+v", events)
		}
	})

	t.Run("errors leave the view untouched", func(t *testing.T) {
		sess := session.New("")
		sess.SelectRoom("r1")
		fetcher := &fetcherStub{bookings: []models.Booking{sampleBooking}}
		view := NewView(sess, NewSource(sess, fetcher), time.UTC, time.Now())
		if err := view.Refetch(context.Background()); err != nil {
			t.Fatalf("refetch failed: %v", err)
		}

		fetcher.err = errors.New("boom")
		if err := view.Refetch(context.Background()); err == nil {
			t.Fatal("expected an error")
		}
		if events := view.Events(); len(events) != 1 {
			t.Fatalf("failed refetch must keep prior events, got %+v", events)
		}
	})
}

func TestViewInsertAndGoto(t *testing.T) {
	t.Run("optimistic insert is deduplicated", func(t *testing.T) {
		sess := session.New("")
		view := NewView(sess, NewSource(sess, &fetcherStub{}), time.UTC, time.Now())
		view.Insert(sampleBooking)
		view.Insert(sampleBooking)
		if events := view.Events(); len(events) != 1 {
			t.Fatalf("expected one event, got %d", len(events))
		}
	})

	t.Run("unrenderable bookings are ignored", func(t *testing.T) {
		sess := session.New("")
		view := NewView(sess, NewSource(sess, &fetcherStub{}), time.UTC, time.Now())
		view.Insert(models.Booking{Title: "no id or times"})
		view.Insert(models.Booking{ID: "b2", Start: "garbage", End: "garbage"})
		if events := view.Events(); len(events) != 0 {
			t.Fatalf("expected no events, got %+v", events)
		}
	})

	t.Run("goto date moves the visible week", func(t *testing.T) {
		sess := session.New("")
		view := NewView(sess, NewSource(sess, &fetcherStub{}), time.UTC, time.Now())

		target := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC) // a Monday
		view.GotoDate(target)
		from, to := view.VisibleRange()
		if from.After(target) || !to.After(target) {
			t.Fatalf("range [%v, %v) does not contain %v", from, to, target)
		}
		if to.Sub(from) != 7*24*time.Hour {
			t.Fatalf("expected a one-week range, got %v", to.Sub(from))
		}
		// Week starts on Sunday, so 2023-12-31 for a 2024-01-01 target.
		if from.Weekday() != time.Sunday {
			t.Fatalf("expected Sunday start, got %v", from.Weekday())
		}
	})
}

func TestViewRender(t *testing.T) {
	sess := session.New("")
	sess.SelectRoom("r1")
	fetcher := &fetcherStub{bookings: []models.Booking{
		{ID: "b2", Title: "Standup", Start: "2024-01-02T09:30:00Z", End: "2024-01-02T09:45:00Z"},
		sampleBooking,
	}}
	view := NewView(sess, NewSource(sess, fetcher), time.UTC, time.Now())
	view.GotoDate(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	if err := view.Refetch(context.Background()); err != nil {
		t.Fatalf("refetch failed: %v", err)
	}

	var buf bytes.Buffer
	if err := view.Render(&buf); err != nil {
		t.Fatalf("render failed: %v", err)
	}
	out := buf.String()

	for _, want := range []string{"Mon 2024-01-01", "10:00-10:30", "Sync", "[b1]", "Tue 2024-01-02", "Standup"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	// Events must appear in start order regardless of response order.
	if strings.Index(out, "Sync") > strings.Index(out, "Standup") {
		t.Errorf("events out of order:\n%s", out)
	}
}
