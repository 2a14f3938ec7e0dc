package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// AuthMode selects how credentials are attached to API requests. A
// deployment uses exactly one of these, never both.
type AuthMode string

const (
	AuthBearer AuthMode = "bearer"
	AuthCookie AuthMode = "cookie"
)

// APIFlavor selects which of the two backend route layouts to speak.
type APIFlavor string

const (
	// FlavorPlain is the office/floor/room layout: /offices,
	// /floors?office_id=, /rooms?floor=, /rooms/{id}/calendar.
	FlavorPlain APIFlavor = "plain"
	// FlavorPrefixed is the /api layout: /api/offices,
	// /api/offices/{id}/rooms, /api/rooms/{id}/bookings, /api/bookings.
	FlavorPrefixed APIFlavor = "prefixed"
)

// LoginBehavior controls what an unauthenticated invocation does.
type LoginBehavior string

const (
	// LoginHint keeps the login affordance: explain how to sign in and
	// fail the command.
	LoginHint LoginBehavior = "hint"
	// LoginRedirect prints only the login URL, mirroring a full-page
	// redirect.
	LoginRedirect LoginBehavior = "redirect"
)

// Config carries every environment-driven setting of the client.
type Config struct {
	Server ServerConfig
	Auth   AuthConfig
	Sync   SyncConfig
	App    AppConfig
}

type ServerConfig struct {
	BaseURL string
	Flavor  APIFlavor
	Timeout time.Duration
}

type AuthConfig struct {
	Mode       AuthMode
	Behavior   LoginBehavior
	TokenFile  string
	CookieFile string
}

type SyncConfig struct {
	CalDAVURL          string
	CalDAVUsername     string
	CalDAVPassword     string
	CalDAVCalendar     string
	GoogleClientID     string
	GoogleClientSecret string
	GoogleCalendarID   string
	StateFile          string
}

type AppConfig struct {
	Timezone  string
	StateFile string
}

// Load reads configuration from the environment, honoring a local .env
// file when present.
func Load() (*Config, error) {
	godotenv.Load(".env")

	viper.SetDefault("ROOMBOOK_BASE_URL", "http://localhost:8080")
	viper.SetDefault("ROOMBOOK_AUTH_MODE", string(AuthBearer))
	viper.SetDefault("ROOMBOOK_API_FLAVOR", string(FlavorPlain))
	viper.SetDefault("ROOMBOOK_LOGIN_BEHAVIOR", string(LoginHint))
	viper.SetDefault("ROOMBOOK_TOKEN_FILE", "roombook-token.json")
	viper.SetDefault("ROOMBOOK_COOKIE_FILE", "roombook-cookie.json")
	viper.SetDefault("ROOMBOOK_STATE_FILE", "roombook-state.json")
	viper.SetDefault("ROOMBOOK_SYNC_STATE_FILE", "roombook-sync-state.json")
	viper.SetDefault("ROOMBOOK_TIMEOUT", "15s")
	viper.SetDefault("PRIMARY_TIMEZONE", "UTC")

	viper.AutomaticEnv()

	timeout, err := time.ParseDuration(viper.GetString("ROOMBOOK_TIMEOUT"))
	if err != nil {
		return nil, fmt.Errorf("invalid ROOMBOOK_TIMEOUT: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			BaseURL: viper.GetString("ROOMBOOK_BASE_URL"),
			Flavor:  APIFlavor(viper.GetString("ROOMBOOK_API_FLAVOR")),
			Timeout: timeout,
		},
		Auth: AuthConfig{
			Mode:       AuthMode(viper.GetString("ROOMBOOK_AUTH_MODE")),
			Behavior:   LoginBehavior(viper.GetString("ROOMBOOK_LOGIN_BEHAVIOR")),
			TokenFile:  viper.GetString("ROOMBOOK_TOKEN_FILE"),
			CookieFile: viper.GetString("ROOMBOOK_COOKIE_FILE"),
		},
		Sync: SyncConfig{
			CalDAVURL:          viper.GetString("ROOMBOOK_CALDAV_URL"),
			CalDAVUsername:     viper.GetString("ROOMBOOK_CALDAV_USERNAME"),
			CalDAVPassword:     viper.GetString("ROOMBOOK_CALDAV_PASSWORD"),
			CalDAVCalendar:     viper.GetString("ROOMBOOK_CALDAV_CALENDAR"),
			GoogleClientID:     viper.GetString("GOOGLE_CLIENT_ID"),
			GoogleClientSecret: viper.GetString("GOOGLE_CLIENT_SECRET"),
			GoogleCalendarID:   viper.GetString("ROOMBOOK_GCAL_CALENDAR_ID"),
			StateFile:          viper.GetString("ROOMBOOK_SYNC_STATE_FILE"),
		},
		App: AppConfig{
			Timezone:  viper.GetString("PRIMARY_TIMEZONE"),
			StateFile: viper.GetString("ROOMBOOK_STATE_FILE"),
		},
	}

	switch cfg.Auth.Mode {
	case AuthBearer, AuthCookie:
	default:
		return nil, fmt.Errorf("invalid ROOMBOOK_AUTH_MODE %q: want %q or %q", cfg.Auth.Mode, AuthBearer, AuthCookie)
	}
	switch cfg.Server.Flavor {
	case FlavorPlain, FlavorPrefixed:
	default:
		return nil, fmt.Errorf("invalid ROOMBOOK_API_FLAVOR %q: want %q or %q", cfg.Server.Flavor, FlavorPlain, FlavorPrefixed)
	}
	switch cfg.Auth.Behavior {
	case LoginHint, LoginRedirect:
	default:
		return nil, fmt.Errorf("invalid ROOMBOOK_LOGIN_BEHAVIOR %q: want %q or %q", cfg.Auth.Behavior, LoginHint, LoginRedirect)
	}

	return cfg, nil
}
