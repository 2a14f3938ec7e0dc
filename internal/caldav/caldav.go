// Package caldav pushes confirmed room bookings into a personal CalDAV
// calendar, so a user's own calendar shows the rooms they booked.
package caldav

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"

	"roombook/internal/ics"
	"roombook/internal/models"
)

// basicAuthTransport adds Basic Auth and a User-Agent to every CalDAV
// request.
type basicAuthTransport struct {
	Username  string
	Password  string
	Transport http.RoundTripper
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(t.Username, t.Password)
	req.Header.Set("User-Agent", "roombook/1.0")
	base := t.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}

// Client writes booking events into one calendar on a CalDAV server.
type Client struct {
	caldavClient *caldav.Client
	webdavClient *webdav.Client
	logger       *slog.Logger
	endpoint     string
	calendarURL  string
}

// NewClient connects to the CalDAV server and locates the calendar with
// the given name under the current user's calendar home set.
func NewClient(ctx context.Context, logger *slog.Logger, endpoint, username, password, calendarName string) (*Client, error) {
	httpClient := &http.Client{Transport: &basicAuthTransport{
		Username: username,
		Password: password,
	}}

	caldavClient, err := caldav.NewClient(httpClient, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create caldav client: %w", err)
	}
	webdavClient, err := webdav.NewClient(httpClient, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create webdav client: %w", err)
	}

	c := &Client{
		caldavClient: caldavClient,
		webdavClient: webdavClient,
		logger:       logger,
		endpoint:     strings.TrimSuffix(endpoint, "/") + "/",
	}

	logger.Info("Finding CalDAV calendar", "calendarName", calendarName)
	calendarURL, err := c.findCalendar(ctx, calendarName)
	if err != nil {
		return nil, fmt.Errorf("could not find calendar '%s': %w", calendarName, err)
	}
	c.calendarURL = calendarURL
	logger.Info("Successfully found CalDAV calendar", "url", calendarURL)

	return c, nil
}

// PushBooking creates or overwrites the booking's event on the server and
// returns the UID it was stored under.
func (c *Client) PushBooking(ctx context.Context, b models.Booking) (string, error) {
	c.logger.Debug("Pushing booking to CalDAV", "title", b.Title, "id", b.ID)

	vevent, err := ics.Event(b)
	if err != nil {
		return "", err
	}
	uid, err := vevent.Props.Text(ical.PropUID)
	if err != nil {
		return "", fmt.Errorf("event has no UID: %w", err)
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//roombook//EN")
	cal.Children = append(cal.Children, vevent)

	// The event path must be relative to the endpoint for the webdav
	// client.
	eventPath := path.Join(strings.TrimPrefix(c.calendarURL, c.endpoint), fmt.Sprintf("%s.ics", uid))

	writer, err := c.webdavClient.Create(ctx, eventPath)
	if err != nil {
		return "", fmt.Errorf("failed to create event on CalDAV server: %w", err)
	}
	defer writer.Close()

	if err := ical.NewEncoder(writer).Encode(cal); err != nil {
		return "", fmt.Errorf("failed to encode event to iCal format: %w", err)
	}

	c.logger.Info("Pushed booking to CalDAV", "title", b.Title, "uid", uid)
	return uid, nil
}

// findCalendar discovers the user's calendars and returns the URL of the
// one with the matching name.
func (c *Client) findCalendar(ctx context.Context, name string) (string, error) {
	principalPath, err := c.caldavClient.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to find principal path: %w", err)
	}

	homeSetPath, err := c.caldavClient.FindCalendarHomeSet(ctx, principalPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendar home set: %w", err)
	}

	calendars, err := c.caldavClient.FindCalendars(ctx, homeSetPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendars: %w", err)
	}

	for _, cal := range calendars {
		if cal.Name == name {
			return strings.TrimSuffix(c.endpoint, "/") + cal.Path, nil
		}
	}

	return "", fmt.Errorf("no calendar found with name '%s'", name)
}
