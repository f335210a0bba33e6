package integration

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// simulatedDoor is a relay/sensor node driving a door that needs travel time
// to move between the sensors. A jammed door leaves both sensors as soon as
// it moves and never reaches the other one.
type simulatedDoor struct {
	mu       sync.Mutex
	travel   time.Duration
	jammed   bool
	opened   bool
	moving   bool
	arriveAt time.Time
	toggles  int
}

// newSimulatedDoor serves a closed door.
func newSimulatedDoor(t *testing.T, travel time.Duration, jammed bool) (*simulatedDoor, *httptest.Server) {
	t.Helper()

	sim := &simulatedDoor{travel: travel, jammed: jammed}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /relay", func(w http.ResponseWriter, _ *http.Request) {
		sim.toggle()
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("GET /", func(w http.ResponseWriter, _ *http.Request) {
		opened, closed := sim.sensors()

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]int{
			"garageOpened": flag(opened),
			"garageClosed": flag(closed),
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return sim, srv
}

func (s *simulatedDoor) toggle() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.toggles++

	if s.moving {
		return
	}

	s.moving = true
	s.arriveAt = time.Now().Add(s.travel)
}

func (s *simulatedDoor) sensors() (opened, closed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.moving && !s.jammed && !time.Now().Before(s.arriveAt) {
		s.moving = false
		s.opened = !s.opened
	}

	if s.moving {
		return false, false
	}

	return s.opened, !s.opened
}

func (s *simulatedDoor) toggleCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.toggles
}

func flag(active bool) int {
	if active {
		return 1
	}

	return 0
}
