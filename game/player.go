package game

import (
	"fmt"

	"github.com/google/uuid"
)

// Player is a seat in a room. The slice order of a room's players is the
// turn order. Players are never removed mid-game, only flagged disconnected,
// so the turn index and final-round bookkeeping stay stable.
type Player struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	IsHost      bool   `json:"isHost"`
	IsBot       bool   `json:"isBot"`
	Score       int    `json:"score"`
	IsConnected bool   `json:"isConnected"`
	TurnScore   int    `json:"turnScore"`
}

// botNames is the pool bots draw display names from.
var botNames = []string{
	"Rusty", "Clank", "Gizmo", "Sprocket",
	"Widget", "Piston", "Cog", "Dynamo",
}

func newPlayer(name string, host bool) *Player {
	return &Player{
		ID:          uuid.New().String(),
		Name:        name,
		IsHost:      host,
		IsConnected: true,
	}
}

func newBot(name string) *Player {
	return &Player{
		ID:          uuid.New().String(),
		Name:        name,
		IsBot:       true,
		IsConnected: true,
	}
}

// pickBotName returns the first pool name not already used in the room,
// falling back to a numbered name when the pool is exhausted.
func pickBotName(players []*Player) string {
	used := make(map[string]bool, len(players))
	for _, p := range players {
		used[p.Name] = true
	}
	for _, name := range botNames {
		if !used[name] {
			return name
		}
	}
	return fmt.Sprintf("Bot %d", len(players)+1)
}
