// Package session holds the client-side state that the booking UI hangs
// off: the authenticated user, the selected room, and a generation counter
// used to discard responses that arrive after the selection they were
// issued for has changed.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"roombook/internal/models"
)

// ErrNoRoomSelected is the validation failure for operations that require
// a room selection. It must surface before any network call is made.
var ErrNoRoomSelected = errors.New("no room selected")

// Session is the single state object shared by every handler. All fields
// are private; mutation goes through methods so the generation counter
// stays consistent.
type Session struct {
	mu         sync.Mutex
	user       models.User
	roomID     string
	generation uint64
	stateFile  string
}

// persistedState is what survives between CLI invocations.
type persistedState struct {
	SelectedRoomID string `json:"selected_room_id"`
}

// New builds a session, restoring the room selection from stateFile when
// one exists. A missing or unreadable state file starts fresh.
func New(stateFile string) *Session {
	s := &Session{stateFile: stateFile}
	if stateFile == "" {
		return s
	}
	data, err := os.ReadFile(stateFile)
	if err != nil {
		return s
	}
	var state persistedState
	if err := json.Unmarshal(data, &state); err != nil {
		return s
	}
	s.roomID = state.SelectedRoomID
	return s
}

// SetUser records the session-checked user.
func (s *Session) SetUser(u models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = u
}

// User returns the session-checked user; the zero value when the session
// check has not run or failed.
func (s *Session) User() models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// RoomID returns the selected room id, empty when none is selected.
func (s *Session) RoomID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomID
}

// SelectRoom changes the room selection. Any response issued for the
// previous selection becomes stale from this point on.
func (s *Session) SelectRoom(id string) error {
	s.mu.Lock()
	s.roomID = id
	s.generation++
	s.mu.Unlock()
	return s.save()
}

// ClearRoom drops the selection; calendar queries must return empty
// results until a new room is selected.
func (s *Session) ClearRoom() error {
	return s.SelectRoom("")
}

// Guard snapshots the current selection. Tag a request with a guard when
// it is issued and check Stale before applying its response.
type Guard struct {
	RoomID     string
	generation uint64
	session    *Session
}

// Guard returns a snapshot of the current selection state.
func (s *Session) Guard() Guard {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Guard{RoomID: s.roomID, generation: s.generation, session: s}
}

// Stale reports whether the selection has changed since the guard was
// taken. A stale response must be discarded, never applied.
func (g Guard) Stale() bool {
	if g.session == nil {
		return false
	}
	g.session.mu.Lock()
	defer g.session.mu.Unlock()
	return g.generation != g.session.generation
}

func (s *Session) save() error {
	if s.stateFile == "" {
		return nil
	}
	s.mu.Lock()
	state := persistedState{SelectedRoomID: s.roomID}
	s.mu.Unlock()
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session state: %w", err)
	}
	return os.WriteFile(s.stateFile, data, 0644)
}
