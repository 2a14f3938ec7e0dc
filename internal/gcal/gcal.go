// Package gcal inserts confirmed room bookings into the user's Google
// Calendar.
package gcal

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"roombook/internal/models"
)

const tokenFile = "google-token.json"

// Client wraps the Google Calendar API for booking inserts.
type Client struct {
	service    *calendar.Service
	calendarID string
	logger     *slog.Logger
}

// NewClient builds an authenticated Google Calendar client from the saved
// OAuth token. Run the auth flow first to create it.
func NewClient(ctx context.Context, logger *slog.Logger, clientID, clientSecret, calendarID string) (*Client, error) {
	config, err := OAuthConfig(clientID, clientSecret)
	if err != nil {
		return nil, err
	}

	token, err := tokenFromFile(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("could not load Google token: %w. Run 'sync auth' first", err)
	}

	httpClient := config.Client(ctx, token)
	service, err := calendar.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}

	if calendarID == "" {
		calendarID = "primary"
	}
	return &Client{service: service, calendarID: calendarID, logger: logger}, nil
}

// PushBooking inserts the booking as an event and returns the created
// event's id.
func (c *Client) PushBooking(ctx context.Context, b models.Booking) (string, error) {
	start, err := b.StartTime()
	if err != nil {
		return "", fmt.Errorf("booking %s has invalid start: %w", b.ID, err)
	}
	end, err := b.EndTime()
	if err != nil {
		return "", fmt.Errorf("booking %s has invalid end: %w", b.ID, err)
	}

	event := &calendar.Event{
		Summary: b.Title,
		Start:   &calendar.EventDateTime{DateTime: start.Format(time.RFC3339)},
		End:     &calendar.EventDateTime{DateTime: end.Format(time.RFC3339)},
	}
	if b.RoomID != "" {
		event.Location = "room " + b.RoomID
	}
	for _, attendee := range b.Attendees {
		event.Attendees = append(event.Attendees, &calendar.EventAttendee{Email: attendee})
	}

	created, err := c.service.Events.Insert(c.calendarID, event).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to insert event: %w", err)
	}

	c.logger.Info("Pushed booking to Google Calendar", "title", b.Title, "eventID", created.Id)
	return created.Id, nil
}

// OAuthConfig returns the OAuth2 config for the desktop auth flow.
func OAuthConfig(clientID, clientSecret string) (*oauth2.Config, error) {
	if clientID == "" || clientSecret == "" {
		return nil, fmt.Errorf("GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET must be set")
	}
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  "urn:ietf:wg:oauth:2.0:oob",
		Scopes:       []string{calendar.CalendarEventsScope},
		Endpoint:     google.Endpoint,
	}, nil
}

// Exchange trades an authorization code for a token.
func Exchange(ctx context.Context, config *oauth2.Config, authCode string) (*oauth2.Token, error) {
	return config.Exchange(ctx, authCode)
}

// SaveToken persists the OAuth token for later runs.
func SaveToken(token *oauth2.Token) error {
	f, err := os.Create(tokenFile)
	if err != nil {
		return fmt.Errorf("unable to create token file: %w", err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}

func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}
