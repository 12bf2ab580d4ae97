package game

import (
	"sync"
	"sync/atomic"
	"time"
)

// Phase is a room's top-level lifecycle stage.
type Phase string

const (
	PhaseWaiting    Phase = "waiting"
	PhasePlaying    Phase = "playing"
	PhaseFinalRound Phase = "final-round"
	PhaseEnded      Phase = "ended"
)

// active reports whether dice may still be rolled in this phase.
func (p Phase) active() bool {
	return p == PhasePlaying || p == PhaseFinalRound
}

// GameState is the per-room mutable game data. TurnScore always equals the
// count of green dice locked since the last turn boundary.
type GameState struct {
	Phase              Phase `json:"phase"`
	CurrentPlayerIndex int   `json:"currentPlayerIndex"`
	Dice               []Die `json:"dice"`
	TurnScore          int   `json:"turnScore"`
	TargetScore        int   `json:"targetScore"`

	// FinalRoundTriggeredBy is set at most once, to the first player whose
	// bank reached the target.
	FinalRoundTriggeredBy *string  `json:"finalRoundTriggeredBy"`
	PlayersHadFinalTurn   []string `json:"playersHadFinalTurn"`
	Winner                *string  `json:"winner"`
}

func newGameState(targetScore int) GameState {
	return GameState{
		Phase:               PhaseWaiting,
		Dice:                newDiceSet(),
		TargetScore:         targetScore,
		PlayersHadFinalTurn: []string{},
	}
}

// Room is the unit of isolation: its players and game state are mutated only
// by engine operations holding mu. lastActivity is atomic so the eviction
// sweep never needs the room lock.
type Room struct {
	mu sync.Mutex

	code         string
	players      []*Player
	state        GameState
	hub          *Hub
	createdAt    time.Time
	lastActivity atomic.Int64
}

func newRoom(code, hostName string, targetScore int, now time.Time) (*Room, *Player) {
	host := newPlayer(hostName, true)
	r := &Room{
		code:      code,
		players:   []*Player{host},
		state:     newGameState(targetScore),
		hub:       newHub(),
		createdAt: now,
	}
	r.lastActivity.Store(now.UnixMilli())
	return r, host
}

func (r *Room) touch(now time.Time) {
	r.lastActivity.Store(now.UnixMilli())
}

// currentPlayerLocked returns the player whose turn it is. Callers hold mu.
func (r *Room) currentPlayerLocked() *Player {
	return r.players[r.state.CurrentPlayerIndex]
}

func (r *Room) findPlayerLocked(id string) *Player {
	for _, p := range r.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// isTurnOfLocked reports whether id is the current player in an active phase.
func (r *Room) isTurnOfLocked(id string) bool {
	return r.state.Phase.active() && r.currentPlayerLocked().ID == id
}

func (r *Room) unlockedDiceLocked() int {
	n := 0
	for _, d := range r.state.Dice {
		if !d.Locked {
			n++
		}
	}
	return n
}

// RoomSnapshot is the wire view of a room. Every event payload carries one so
// a late subscriber can rebuild state from the latest event alone.
type RoomSnapshot struct {
	Code         string    `json:"code"`
	Players      []Player  `json:"players"`
	GameState    GameState `json:"gameState"`
	CreatedAt    int64     `json:"createdAt"`
	LastActivity int64     `json:"lastActivity"`
}

// snapshotLocked deep-copies the room for publication. Callers hold mu.
func (r *Room) snapshotLocked() RoomSnapshot {
	players := make([]Player, len(r.players))
	for i, p := range r.players {
		players[i] = *p
	}

	st := r.state
	st.Dice = append([]Die(nil), r.state.Dice...)
	st.PlayersHadFinalTurn = append([]string(nil), r.state.PlayersHadFinalTurn...)
	if r.state.FinalRoundTriggeredBy != nil {
		id := *r.state.FinalRoundTriggeredBy
		st.FinalRoundTriggeredBy = &id
	}
	if r.state.Winner != nil {
		id := *r.state.Winner
		st.Winner = &id
	}

	return RoomSnapshot{
		Code:         r.code,
		Players:      players,
		GameState:    st,
		CreatedAt:    r.createdAt.UnixMilli(),
		LastActivity: r.lastActivity.Load(),
	}
}
