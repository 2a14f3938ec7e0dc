package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"golang.org/x/oauth2"

	"roombook/internal/api"
	"roombook/internal/booking"
	"roombook/internal/caldav"
	"roombook/internal/calendar"
	"roombook/internal/config"
	"roombook/internal/gcal"
	"roombook/internal/ics"
	"roombook/internal/models"
	"roombook/internal/session"
	roomsync "roombook/internal/sync"
)

func main() {
	// Load .env file first, but don't error if it doesn't exist.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "roombook",
		Usage: "Book meeting rooms from the command line.",
		Commands: []*cli.Command{
			loginCommand(),
			logoutCommand(),
			whoamiCommand(),
			officesCommand(),
			floorsCommand(),
			roomsCommand(),
			selectCommand(),
			calendarCommand(),
			bookCommand(),
			exportCommand(),
			syncCommand(),
			adminCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

// env is everything a command needs wired up.
type env struct {
	logger *slog.Logger
	cfg    *config.Config
	client *api.Client
	sess   *session.Session
}

func setup() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logger := setupLogger(logLevel)

	credential, err := loadCredential(cfg)
	if err != nil {
		return nil, err
	}

	return &env{
		logger: logger,
		cfg:    cfg,
		client: api.NewClient(logger, cfg, credential),
		sess:   session.New(cfg.App.StateFile),
	}, nil
}

// loadCredential reads the saved token or session cookie for the
// configured auth mode. No saved credential is not an error; the session
// check decides what to do.
func loadCredential(cfg *config.Config) (string, error) {
	var (
		value string
		err   error
	)
	switch cfg.Auth.Mode {
	case config.AuthCookie:
		value, err = api.LoadCookie(cfg.Auth.CookieFile)
	default:
		value, err = api.LoadToken(cfg.Auth.TokenFile)
	}
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return value, nil
}

// requireUser runs the session check. On failure the configured behavior
// decides between a sign-in hint and a bare login URL, mirroring the two
// deployment modes of the web client.
func requireUser(ctx context.Context, e *env) (models.User, error) {
	user, err := e.client.Me(ctx)
	if err != nil {
		if e.cfg.Auth.Behavior == config.LoginRedirect {
			fmt.Println(e.client.LoginURL())
			return models.User{}, cli.Exit("", 1)
		}
		return models.User{}, fmt.Errorf("not signed in (run 'roombook login' first): %w", err)
	}
	e.sess.SetUser(user)
	return user, nil
}

func loginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Sign in to the booking service.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Usage: "Account email (cookie mode)."},
			&cli.StringFlag{Name: "password", Usage: "Account password (cookie mode)."},
		},
		Action: func(c *cli.Context) error {
			e, err := setup()
			if err != nil {
				return err
			}

			if e.cfg.Auth.Mode == config.AuthCookie {
				email := c.String("email")
				password := c.String("password")
				if email == "" || password == "" {
					return fmt.Errorf("cookie mode needs --email and --password")
				}
				cookie, err := e.client.Login(c.Context, email, password)
				if err != nil {
					return fmt.Errorf("login failed: %w", err)
				}
				if err := api.SaveCookie(e.cfg.Auth.CookieFile, cookie); err != nil {
					return fmt.Errorf("failed to save session: %w", err)
				}
				e.logger.Info("Signed in.", "email", email)
				return nil
			}

			fmt.Printf("Open the following link in your browser and complete the sign-in:\n%s\n", e.client.LoginURL())
			fmt.Print("Paste the API token: ")
			reader := bufio.NewReader(os.Stdin)
			token, _ := reader.ReadString('\n')
			token = strings.TrimSpace(token)
			if token == "" {
				return fmt.Errorf("no token entered")
			}
			if err := api.SaveToken(e.cfg.Auth.TokenFile, token); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}
			e.logger.Info("Saved API token.", "file", e.cfg.Auth.TokenFile)
			return nil
		},
	}
}

func logoutCommand() *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "Sign out and drop the saved credential.",
		Action: func(c *cli.Context) error {
			e, err := setup()
			if err != nil {
				return err
			}

			// Fire and forget: a failed logout call must never keep the
			// local sign-out from happening.
			if err := e.client.Logout(c.Context); err != nil {
				e.logger.Debug("Logout call failed, continuing anyway", "error", err)
			}

			credFile := e.cfg.Auth.TokenFile
			if e.cfg.Auth.Mode == config.AuthCookie {
				credFile = e.cfg.Auth.CookieFile
			}
			if err := os.Remove(credFile); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("failed to remove credential: %w", err)
			}
			fmt.Printf("Signed out. Sign in again at %s\n", e.client.LoginURL())
			return nil
		},
	}
}

func whoamiCommand() *cli.Command {
	return &cli.Command{
		Name:  "whoami",
		Usage: "Show the signed-in user.",
		Action: func(c *cli.Context) error {
			e, err := setup()
			if err != nil {
				return err
			}
			user, err := requireUser(c.Context, e)
			if err != nil {
				return err
			}
			fmt.Printf("%s <%s>\n", user.Name, user.Email)
			if user.IsAdmin() {
				fmt.Println("role: admin (administrative commands available)")
			} else {
				fmt.Printf("role: %s\n", user.Role)
			}
			return nil
		},
	}
}

func officesCommand() *cli.Command {
	return &cli.Command{
		Name:  "offices",
		Usage: "List offices.",
		Action: func(c *cli.Context) error {
			e, err := setup()
			if err != nil {
				return err
			}
			if _, err := requireUser(c.Context, e); err != nil {
				return err
			}
			offices, err := e.client.Offices(c.Context)
			if err != nil {
				return fmt.Errorf("failed to load offices: %w", err)
			}
			for _, o := range offices {
				fmt.Printf("%s\t%s\n", o.ID, o.Name)
			}
			return nil
		},
	}
}

func floorsCommand() *cli.Command {
	return &cli.Command{
		Name:  "floors",
		Usage: "List floors of an office.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "office", Required: true, Usage: "Office id."},
		},
		Action: func(c *cli.Context) error {
			e, err := setup()
			if err != nil {
				return err
			}
			if _, err := requireUser(c.Context, e); err != nil {
				return err
			}
			floors, err := e.client.Floors(c.Context, c.String("office"))
			if err != nil {
				return fmt.Errorf("failed to load floors: %w", err)
			}
			for _, f := range floors {
				fmt.Printf("%s\t%s\n", f.ID, f.Label)
			}
			return nil
		},
	}
}

func roomsCommand() *cli.Command {
	return &cli.Command{
		Name:  "rooms",
		Usage: "List rooms of a floor (or office, depending on deployment).",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "floor", Usage: "Floor id."},
			&cli.StringFlag{Name: "office", Usage: "Office id."},
		},
		Action: func(c *cli.Context) error {
			e, err := setup()
			if err != nil {
				return err
			}
			if _, err := requireUser(c.Context, e); err != nil {
				return err
			}

			parent := c.String("floor")
			if !e.client.SupportsFloors() {
				parent = c.String("office")
			}
			if parent == "" {
				if e.client.SupportsFloors() {
					return fmt.Errorf("--floor is required")
				}
				return fmt.Errorf("--office is required")
			}

			rooms, err := e.client.Rooms(c.Context, parent)
			if err != nil {
				return fmt.Errorf("failed to load rooms: %w", err)
			}
			selected := e.sess.RoomID()
			for _, r := range rooms {
				marker := " "
				if r.ID == selected {
					marker = "*"
				}
				fmt.Printf("%s %s\t%s (capacity: %d)\n", marker, r.ID, r.Name, r.Capacity)
			}
			return nil
		},
	}
}

func selectCommand() *cli.Command {
	return &cli.Command{
		Name:      "select",
		Usage:     "Select the room calendar queries and bookings apply to.",
		ArgsUsage: "<room-id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "clear", Usage: "Clear the selection."},
		},
		Action: func(c *cli.Context) error {
			e, err := setup()
			if err != nil {
				return err
			}
			if c.Bool("clear") {
				if err := e.sess.ClearRoom(); err != nil {
					return err
				}
				fmt.Println("Room selection cleared.")
				return nil
			}
			roomID := c.Args().First()
			if roomID == "" {
				return fmt.Errorf("room id required (or --clear)")
			}
			if err := e.sess.SelectRoom(roomID); err != nil {
				return err
			}
			fmt.Printf("Selected room %s.\n", roomID)
			return nil
		},
	}
}

// parseDate accepts a date or a timestamp.
func parseDate(value string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", value)
}

func buildView(e *env, dateFlag string) (*calendar.View, error) {
	loc, err := time.LoadLocation(e.cfg.App.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone '%s': %w", e.cfg.App.Timezone, err)
	}
	source := calendar.NewSource(e.sess, e.client)
	view := calendar.NewView(e.sess, source, loc, time.Now())
	if dateFlag != "" {
		date, err := parseDate(dateFlag)
		if err != nil {
			return nil, err
		}
		view.GotoDate(date)
	}
	return view, nil
}

func calendarCommand() *cli.Command {
	return &cli.Command{
		Name:  "calendar",
		Usage: "Show the selected room's bookings for a week.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "date", Usage: "Show the week containing this date (default: today)."},
		},
		Action: func(c *cli.Context) error {
			e, err := setup()
			if err != nil {
				return err
			}
			if _, err := requireUser(c.Context, e); err != nil {
				return err
			}
			view, err := buildView(e, c.String("date"))
			if err != nil {
				return err
			}
			if err := view.Refetch(c.Context); err != nil {
				return fmt.Errorf("failed to load calendar: %w", err)
			}
			if e.sess.RoomID() == "" {
				fmt.Println("No room selected; showing an empty calendar.")
			}
			return view.Render(os.Stdout)
		},
	}
}

func bookCommand() *cli.Command {
	return &cli.Command{
		Name:  "book",
		Usage: "Book the selected room.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "title", Required: true, Usage: "Booking title."},
			&cli.StringFlag{Name: "start", Required: true, Usage: "Start time (e.g. 2024-01-01T10:00)."},
			&cli.StringFlag{Name: "end", Required: true, Usage: "End time."},
			&cli.StringFlag{Name: "attendees-file", Usage: "File with one attendee per line ('-' for stdin)."},
			&cli.StringSliceFlag{Name: "attendee", Usage: "Attendee email; may be repeated."},
		},
		Action: func(c *cli.Context) error {
			e, err := setup()
			if err != nil {
				return err
			}
			if _, err := requireUser(c.Context, e); err != nil {
				return err
			}

			attendees := strings.Join(c.StringSlice("attendee"), "\n")
			if path := c.String("attendees-file"); path != "" {
				var data []byte
				var err error
				if path == "-" {
					data, err = io.ReadAll(os.Stdin)
				} else {
					data, err = os.ReadFile(path)
				}
				if err != nil {
					return fmt.Errorf("failed to read attendees: %w", err)
				}
				attendees = attendees + "\n" + string(data)
			}

			view, err := buildView(e, "")
			if err != nil {
				return err
			}

			result, err := booking.Submit(c.Context, e.logger, e.sess, view, e.client, booking.Form{
				Title:     c.String("title"),
				Start:     c.String("start"),
				End:       c.String("end"),
				Attendees: attendees,
			})
			if err != nil {
				var transportErr *api.TransportError
				if errors.As(err, &transportErr) {
					return fmt.Errorf("booking not confirmed, %w", transportErr)
				}
				return fmt.Errorf("booking failed: %w", err)
			}

			fmt.Println(result.Message)
			return view.Render(os.Stdout)
		},
	}
}

// rangeBookings fetches the selected room's bookings between the --from
// and --to flags, defaulting to the next 7 days.
func rangeBookings(c *cli.Context, e *env) ([]models.Booking, error) {
	roomID := e.sess.RoomID()
	if roomID == "" {
		return nil, session.ErrNoRoomSelected
	}

	from := time.Now().UTC()
	to := from.AddDate(0, 0, 7)
	if v := c.String("from"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return nil, err
		}
		from = t
	}
	if v := c.String("to"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return nil, err
		}
		to = t
	}
	return e.client.RoomCalendar(c.Context, roomID, from, to)
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export the selected room's bookings as an iCalendar file.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Required: true, Usage: "Output .ics path ('-' for stdout)."},
			&cli.StringFlag{Name: "from", Usage: "Range start (default: now)."},
			&cli.StringFlag{Name: "to", Usage: "Range end (default: now+7d)."},
		},
		Action: func(c *cli.Context) error {
			e, err := setup()
			if err != nil {
				return err
			}
			if _, err := requireUser(c.Context, e); err != nil {
				return err
			}
			bookings, err := rangeBookings(c, e)
			if err != nil {
				return err
			}

			out := os.Stdout
			if path := c.String("out"); path != "-" {
				f, err := os.Create(path)
				if err != nil {
					return fmt.Errorf("failed to create output file: %w", err)
				}
				defer f.Close()
				out = f
			}
			if err := ics.Write(out, bookings); err != nil {
				return err
			}
			e.logger.Info("Exported bookings.", "count", len(bookings))
			return nil
		},
	}
}

func syncCommand() *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Push the selected room's bookings into a personal calendar.",
		Subcommands: []*cli.Command{
			syncAuthCommand(),
			syncRunCommand(),
		},
	}
}

func syncAuthCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authenticate with Google to enable the google sync target.",
		Action: func(c *cli.Context) error {
			e, err := setup()
			if err != nil {
				return err
			}

			oauthConfig, err := gcal.OAuthConfig(e.cfg.Sync.GoogleClientID, e.cfg.Sync.GoogleClientSecret)
			if err != nil {
				return err
			}

			authURL := oauthConfig.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
			fmt.Printf("Go to the following link in your browser then type the "+
				"authorization code: \n%v\n", authURL)

			fmt.Print("Enter Authorization Code: ")
			reader := bufio.NewReader(os.Stdin)
			authCode, _ := reader.ReadString('\n')
			authCode = strings.TrimSpace(authCode)

			token, err := gcal.Exchange(c.Context, oauthConfig, authCode)
			if err != nil {
				return fmt.Errorf("unable to retrieve token from web: %w", err)
			}
			if err := gcal.SaveToken(token); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			e.logger.Info("Successfully authenticated with Google.")
			return nil
		},
	}
}

func syncRunCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run one sync cycle.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "target", Value: "caldav", Usage: "Sync target: caldav or google."},
			&cli.StringFlag{Name: "from", Usage: "Range start (default: now)."},
			&cli.StringFlag{Name: "to", Usage: "Range end (default: now+7d)."},
			&cli.BoolFlag{Name: "dry-run", Usage: "Log what would be synced without making changes."},
		},
		Action: func(c *cli.Context) error {
			e, err := setup()
			if err != nil {
				return err
			}
			if _, err := requireUser(c.Context, e); err != nil {
				return err
			}

			bookings, err := rangeBookings(c, e)
			if err != nil {
				return err
			}

			var target roomsync.Target
			switch c.String("target") {
			case "google":
				target, err = gcal.NewClient(c.Context, e.logger, e.cfg.Sync.GoogleClientID, e.cfg.Sync.GoogleClientSecret, e.cfg.Sync.GoogleCalendarID)
			case "caldav":
				target, err = caldav.NewClient(c.Context, e.logger, e.cfg.Sync.CalDAVURL, e.cfg.Sync.CalDAVUsername, e.cfg.Sync.CalDAVPassword, e.cfg.Sync.CalDAVCalendar)
			default:
				return fmt.Errorf("unknown sync target %q", c.String("target"))
			}
			if err != nil {
				return fmt.Errorf("failed to create sync target: %w", err)
			}

			loc, err := time.LoadLocation(e.cfg.App.Timezone)
			if err != nil {
				return fmt.Errorf("invalid timezone '%s': %w", e.cfg.App.Timezone, err)
			}

			s, err := roomsync.NewSyncer(e.logger, target, e.cfg.Sync.StateFile, c.Bool("dry-run"), loc)
			if err != nil {
				return fmt.Errorf("failed to create syncer: %w", err)
			}
			return s.Sync(c.Context, bookings)
		},
	}
}

func adminCommand() *cli.Command {
	return &cli.Command{
		Name:  "admin",
		Usage: "Administrative operations (admin role only).",
		Subcommands: []*cli.Command{
			{
				Name:  "create-office",
				Usage: "Create an office.",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Required: true},
					&cli.StringFlag{Name: "timezone", Value: "UTC"},
				},
				Action: adminAction(func(c *cli.Context, e *env) error {
					office, err := e.client.CreateOffice(c.Context, c.String("name"), c.String("timezone"))
					if err != nil {
						e.logger.Error("Failed to create office", "error", err)
						return fmt.Errorf("failed to create office")
					}
					fmt.Printf("Created office %q\n", office.Name)
					return nil
				}),
			},
			{
				Name:  "create-floor",
				Usage: "Create a floor in an office.",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "office", Required: true},
					&cli.IntFlag{Name: "number", Required: true},
					&cli.StringFlag{Name: "label", Required: true},
				},
				Action: adminAction(func(c *cli.Context, e *env) error {
					floor, err := e.client.CreateFloor(c.Context, c.String("office"), c.Int("number"), c.String("label"))
					if err != nil {
						e.logger.Error("Failed to create floor", "error", err)
						return fmt.Errorf("failed to create floor")
					}
					fmt.Printf("Created floor %q\n", floor.Label)
					return nil
				}),
			},
			{
				Name:  "create-room",
				Usage: "Create a room on a floor.",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "floor", Required: true},
					&cli.StringFlag{Name: "name", Required: true},
					&cli.IntFlag{Name: "capacity", Required: true},
					&cli.StringFlag{Name: "equipment", Usage: "Free-text equipment list."},
				},
				Action: adminAction(func(c *cli.Context, e *env) error {
					room, err := e.client.CreateRoom(c.Context, c.String("floor"), c.String("name"), c.Int("capacity"), c.String("equipment"))
					if err != nil {
						e.logger.Error("Failed to create room", "error", err)
						return fmt.Errorf("failed to create room")
					}
					fmt.Printf("Created room %q\n", room.Name)
					return nil
				}),
			},
			{
				Name:  "users",
				Usage: "List user accounts.",
				Action: adminAction(func(c *cli.Context, e *env) error {
					users, err := e.client.Users(c.Context)
					if err != nil {
						return fmt.Errorf("failed to load users: %w", err)
					}
					for _, u := range users {
						fmt.Printf("%s (%s)\n", u.Email, u.Role)
					}
					return nil
				}),
			},
		},
	}
}

// adminAction wraps an admin handler with the session check and role
// gate. Only the exact role "admin" passes.
func adminAction(fn func(*cli.Context, *env) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		e, err := setup()
		if err != nil {
			return err
		}
		user, err := requireUser(c.Context, e)
		if err != nil {
			return err
		}
		if !user.IsAdmin() {
			return fmt.Errorf("admin access required (signed in as role %q)", user.Role)
		}
		return fn(c, e)
	}
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}
