package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"roombook/internal/config"
	"roombook/internal/models"
)

// ErrNoFloorDirectory is returned by Floors on deployments whose API walks
// straight from offices to rooms.
var ErrNoFloorDirectory = errors.New("this deployment has no floor directory")

// Client speaks the booking backend's HTTP API. The zero value is not
// usable; construct via NewClient.
type Client struct {
	baseURL string
	flavor  config.APIFlavor
	http    *http.Client
	logger  *slog.Logger
}

// NewClient builds a client for the configured deployment. credential is
// the saved bearer token or session cookie value; empty means
// unauthenticated (only the session check and login paths are useful then).
func NewClient(logger *slog.Logger, cfg *config.Config, credential string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(cfg.Server.BaseURL, "/"),
		flavor:  cfg.Server.Flavor,
		http: &http.Client{
			Timeout: cfg.Server.Timeout,
			Transport: &authTransport{
				Mode:  cfg.Auth.Mode,
				Token: credential,
			},
		},
		logger: logger,
	}
}

// LoginURL is where a browser must be sent to start the OIDC flow.
func (c *Client) LoginURL() string {
	return c.baseURL + "/auth/oidc/start"
}

// SupportsFloors reports whether the deployment exposes a floor directory
// between offices and rooms.
func (c *Client) SupportsFloors() bool {
	return c.flavor == config.FlavorPlain
}

// Me performs the session check. A non-200 response means the ambient
// credential is missing or invalid and maps to ErrUnauthenticated.
func (c *Client) Me(ctx context.Context) (models.User, error) {
	var user models.User
	err := c.do(ctx, http.MethodGet, "/me", nil, nil, &user)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return models.User{}, fmt.Errorf("%w (status %d)", ErrUnauthenticated, apiErr.StatusCode)
		}
		return models.User{}, err
	}
	return user, nil
}

// Login authenticates with email and password and returns the session
// cookie value the backend set. Only meaningful in cookie mode.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/login", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", errorFromResponse(resp)
	}
	for _, cookie := range resp.Cookies() {
		if cookie.Name == "auth_token" {
			return cookie.Value, nil
		}
	}
	return "", fmt.Errorf("login response did not set a session cookie")
}

// Logout tells the backend to drop the session. Callers treat it as
// fire-and-forget: a failure here must never stop the local sign-out.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, nil, nil)
}

// Offices lists every office, in server response order.
func (c *Client) Offices(ctx context.Context) ([]models.Office, error) {
	var offices []models.Office
	if err := c.do(ctx, http.MethodGet, c.prefix("/offices"), nil, nil, &offices); err != nil {
		return nil, err
	}
	return offices, nil
}

// Floors lists the floors of an office. Returns ErrNoFloorDirectory on
// deployments without one.
func (c *Client) Floors(ctx context.Context, officeID string) ([]models.Floor, error) {
	if !c.SupportsFloors() {
		return nil, ErrNoFloorDirectory
	}
	query := url.Values{"office_id": {officeID}}
	var floors []models.Floor
	if err := c.do(ctx, http.MethodGet, "/floors", query, nil, &floors); err != nil {
		return nil, err
	}
	return floors, nil
}

// Rooms lists rooms under a parent directory entry: a floor id on plain
// deployments, an office id on prefixed ones.
func (c *Client) Rooms(ctx context.Context, parentID string) ([]models.Room, error) {
	var (
		path  string
		query url.Values
	)
	switch c.flavor {
	case config.FlavorPrefixed:
		path = "/api/offices/" + url.PathEscape(parentID) + "/rooms"
	default:
		path = "/rooms"
		query = url.Values{"floor": {parentID}}
	}
	var rooms []models.Room
	if err := c.do(ctx, http.MethodGet, path, query, nil, &rooms); err != nil {
		return nil, err
	}
	return rooms, nil
}

// RoomCalendar fetches the bookings of a room within [from, to). The
// boundary instants are passed through exactly as given.
func (c *Client) RoomCalendar(ctx context.Context, roomID string, from, to time.Time) ([]models.Booking, error) {
	var path string
	switch c.flavor {
	case config.FlavorPrefixed:
		path = "/api/rooms/" + url.PathEscape(roomID) + "/bookings"
	default:
		path = "/rooms/" + url.PathEscape(roomID) + "/calendar"
	}
	query := url.Values{
		"from": {from.Format(time.RFC3339)},
		"to":   {to.Format(time.RFC3339)},
	}
	var bookings []models.Booking
	if err := c.do(ctx, http.MethodGet, path, query, nil, &bookings); err != nil {
		return nil, err
	}
	c.logger.Debug("Fetched room calendar", "roomID", roomID, "count", len(bookings))
	return bookings, nil
}

// BookingRequest is the client-side shape of a booking submission. Start
// and End must already be RFC 3339 instants.
type BookingRequest struct {
	Title     string
	Start     string
	End       string
	Attendees []string
	RoomID    string
}

// CreateBooking submits a booking and returns the server's authoritative
// view of what was created.
func (c *Client) CreateBooking(ctx context.Context, req BookingRequest) (models.Booking, error) {
	var (
		path    string
		payload any
	)
	switch c.flavor {
	case config.FlavorPrefixed:
		path = "/api/bookings"
		payload = map[string]any{
			"title":      req.Title,
			"start_time": req.Start,
			"end_time":   req.End,
			"attendees":  req.Attendees,
			"room_id":    req.RoomID,
		}
	default:
		path = "/rooms/" + url.PathEscape(req.RoomID) + "/bookings"
		payload = map[string]any{
			"title":        req.Title,
			"start":        req.Start,
			"end":          req.End,
			"participants": req.Attendees,
		}
	}
	var created models.Booking
	if err := c.do(ctx, http.MethodPost, path, nil, payload, &created); err != nil {
		return models.Booking{}, err
	}
	if created.RoomID == "" {
		created.RoomID = req.RoomID
	}
	return created, nil
}

// CreateOffice creates an office (admin only).
func (c *Client) CreateOffice(ctx context.Context, name, timezone string) (models.Office, error) {
	payload := map[string]any{"name": name, "timezone": timezone}
	var created models.Office
	if err := c.do(ctx, http.MethodPost, "/api/admin/offices", nil, payload, &created); err != nil {
		return models.Office{}, err
	}
	if created.Name == "" {
		created.Name = name
	}
	return created, nil
}

// CreateFloor creates a floor in an office (admin only).
func (c *Client) CreateFloor(ctx context.Context, officeID string, number int, label string) (models.Floor, error) {
	payload := map[string]any{"office_id": officeID, "number": number, "label": label}
	var created models.Floor
	if err := c.do(ctx, http.MethodPost, "/api/admin/floors", nil, payload, &created); err != nil {
		return models.Floor{}, err
	}
	if created.Label == "" {
		created.Label = label
	}
	return created, nil
}

// CreateRoom creates a room on a floor (admin only).
func (c *Client) CreateRoom(ctx context.Context, floorID, name string, capacity int, equipment string) (models.Room, error) {
	payload := map[string]any{"floor_id": floorID, "name": name, "capacity": capacity, "equipment": equipment}
	var created models.Room
	if err := c.do(ctx, http.MethodPost, "/api/admin/rooms", nil, payload, &created); err != nil {
		return models.Room{}, err
	}
	if created.Name == "" {
		created.Name = name
	}
	return created, nil
}

// Users lists every account (admin only).
func (c *Client) Users(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := c.do(ctx, http.MethodGet, "/api/admin/users", nil, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// prefix maps a plain-flavor path onto the deployment's route layout.
func (c *Client) prefix(path string) string {
	if c.flavor == config.FlavorPrefixed {
		return "/api" + path
	}
	return path
}

// do runs one request and decodes the response into out when non-nil.
// Transport failures come back as *TransportError, non-2xx responses as
// *APIError.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("API request", "method", method, "url", u)
	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errorFromResponse(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
