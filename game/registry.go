package game

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	codeLength = 6
	// codeAlphabet skips visually ambiguous characters (0/O, 1/I).
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	// DefaultRoomTimeout is how long a room may sit idle before the sweep
	// evicts it.
	DefaultRoomTimeout = 2 * time.Hour

	// DefaultSweepInterval is how often the eviction sweep runs.
	DefaultSweepInterval = time.Minute
)

// Registry is the process-scoped store of live rooms. It owns room lifetime:
// creation, lookup-with-touch, explicit removal, and time-based eviction.
type Registry struct {
	mu      sync.RWMutex
	rooms   map[string]*Room
	timeout time.Duration
	now     func() time.Time
}

// NewRegistry creates an empty registry evicting rooms idle longer than
// timeout. A non-positive timeout falls back to the default.
func NewRegistry(timeout time.Duration) *Registry {
	if timeout <= 0 {
		timeout = DefaultRoomTimeout
	}
	return &Registry{
		rooms:   make(map[string]*Room),
		timeout: timeout,
		now:     time.Now,
	}
}

// CreateRoom registers a new room with the given host as its only player and
// returns it along with the host's player id.
func (reg *Registry) CreateRoom(hostName string, targetScore int) (*Room, string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	code := reg.generateCodeLocked()
	room, host := newRoom(code, hostName, targetScore, reg.now())
	reg.rooms[code] = room

	log.Info().Str("room", code).Str("host", hostName).Msg("room created")
	return room, host.ID
}

// Get looks a room up by code, case-insensitively, refreshing its activity
// timestamp on a hit. A miss has no side effects.
func (reg *Registry) Get(code string) (*Room, bool) {
	reg.mu.RLock()
	room, ok := reg.rooms[strings.ToUpper(code)]
	reg.mu.RUnlock()
	if !ok {
		return nil, false
	}
	room.touch(reg.now())
	return room, true
}

// Remove deletes the room and tears down its subscriber hub.
func (reg *Registry) Remove(code string) {
	code = strings.ToUpper(code)

	reg.mu.Lock()
	room, ok := reg.rooms[code]
	delete(reg.rooms, code)
	reg.mu.Unlock()

	if ok {
		room.hub.close()
		log.Info().Str("room", code).Msg("room removed")
	}
}

// SweepExpired runs one eviction pass, deleting every room whose last
// activity is older than the registry timeout.
func (reg *Registry) SweepExpired() {
	cutoff := reg.now().Add(-reg.timeout).UnixMilli()

	reg.mu.RLock()
	var expired []string
	for code, room := range reg.rooms {
		if room.lastActivity.Load() < cutoff {
			expired = append(expired, code)
		}
	}
	reg.mu.RUnlock()

	for _, code := range expired {
		reg.Remove(code)
		log.Info().Str("room", code).Msg("evicted idle room")
	}
}

// RunSweeper runs SweepExpired on the given period until ctx is cancelled.
func (reg *Registry) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			reg.SweepExpired()
		case <-ctx.Done():
			return
		}
	}
}

// TotalPlayerCount sums connected players (bots included) across all rooms.
func (reg *Registry) TotalPlayerCount() int {
	reg.mu.RLock()
	rooms := make([]*Room, 0, len(reg.rooms))
	for _, room := range reg.rooms {
		rooms = append(rooms, room)
	}
	reg.mu.RUnlock()

	total := 0
	for _, room := range rooms {
		room.mu.Lock()
		for _, p := range room.players {
			if p.IsConnected {
				total++
			}
		}
		room.mu.Unlock()
	}
	return total
}

// generateCodeLocked draws room codes until one misses every live code.
// Callers hold reg.mu.
func (reg *Registry) generateCodeLocked() string {
	for {
		b := make([]byte, codeLength)
		for i := range b {
			b[i] = codeAlphabet[rand.Intn(len(codeAlphabet))]
		}
		code := string(b)
		if _, taken := reg.rooms[code]; !taken {
			return code
		}
	}
}
