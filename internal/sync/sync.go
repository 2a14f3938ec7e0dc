// Package sync exports room bookings into a personal calendar (CalDAV or
// Google), keeping a state file so already-exported bookings are skipped.
package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"roombook/internal/models"
)

// State maps a booking id to the UID or event id it was exported under.
type State map[string]string

// Target is a calendar that bookings can be pushed into.
type Target interface {
	PushBooking(ctx context.Context, b models.Booking) (string, error)
}

// Syncer pushes bookings into one target.
type Syncer struct {
	logger    *slog.Logger
	target    Target
	state     State
	stateFile string
	dryRun    bool
	timezone  *time.Location
}

// NewSyncer creates a syncer, loading previous state from stateFile. A
// missing state file starts fresh.
func NewSyncer(logger *slog.Logger, target Target, stateFile string, dryRun bool, tz *time.Location) (*Syncer, error) {
	state, err := loadState(stateFile)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Info("No sync state file found, starting fresh.", "file", stateFile)
			state = make(State)
		} else {
			return nil, fmt.Errorf("failed to load sync state: %w", err)
		}
	}

	return &Syncer{
		logger:    logger,
		target:    target,
		state:     state,
		stateFile: stateFile,
		dryRun:    dryRun,
		timezone:  tz,
	}, nil
}

// Sync pushes every booking that has not been exported yet. One failed
// booking does not stop the rest.
func (s *Syncer) Sync(ctx context.Context, bookings []models.Booking) error {
	s.logger.Info("Starting sync cycle.", "count", len(bookings))

	for _, b := range bookings {
		if err := s.syncBooking(ctx, b); err != nil {
			s.logger.Error("Failed to sync booking", "title", b.Title, "error", err)
		}
	}

	if !s.dryRun {
		if err := s.saveState(); err != nil {
			s.logger.Error("Failed to save sync state", "error", err)
		}
	}

	s.logger.Info("Sync cycle finished.")
	return nil
}

func (s *Syncer) syncBooking(ctx context.Context, b models.Booking) error {
	if b.ID == "" {
		return fmt.Errorf("booking has no id")
	}
	if _, exists := s.state[b.ID]; exists {
		s.logger.Debug("Booking already synced, skipping.", "title", b.Title, "id", b.ID)
		return nil
	}

	// Re-express the instants in the primary timezone so the target
	// calendar shows local wall-clock times.
	if start, err := b.StartTime(); err == nil {
		b.Start = start.In(s.timezone).Format(time.RFC3339)
	}
	if end, err := b.EndTime(); err == nil {
		b.End = end.In(s.timezone).Format(time.RFC3339)
	}

	if s.dryRun {
		s.logger.Info("[DRY RUN] Would export booking", "title", b.Title, "start", b.Start)
		return nil
	}

	uid, err := s.target.PushBooking(ctx, b)
	if err != nil {
		return err
	}
	s.state[b.ID] = uid
	return nil
}

func loadState(path string) (State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	return state, nil
}

func (s *Syncer) saveState() error {
	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal sync state: %w", err)
	}
	return os.WriteFile(s.stateFile, data, 0644)
}
