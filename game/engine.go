package game

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// maxPlayers is the seat cap per room, bots included.
	maxPlayers = 8

	// DefaultTargetScore is the banked score that triggers the final round.
	DefaultTargetScore = 100
)

// Engine drives the per-room state machine: joins, game start, rolls, banks
// and turn boundaries. Every operation is a short critical section over
// exactly one room; operations on different rooms never interact.
//
// The rollFace, jitter and afterFunc fields are seams: production uses the
// package defaults, tests substitute deterministic versions.
type Engine struct {
	rooms *Registry

	rollFace  func() DieColor
	jitter    func() int
	afterFunc func(time.Duration, func())

	// Bot pacing. scheduleDelay runs between a turn boundary and the bot
	// waking up, paceDelay between waking and acting, chainDelay between
	// consecutive actions in one turn.
	scheduleDelay time.Duration
	paceDelay     time.Duration
	chainDelay    time.Duration
}

// NewEngine creates an engine operating on the given registry.
func NewEngine(rooms *Registry) *Engine {
	return &Engine{
		rooms:         rooms,
		rollFace:      func() DieColor { return dieFaces[rand.Intn(len(dieFaces))] },
		jitter:        func() int { return rand.Intn(7) - 3 },
		afterFunc:     func(d time.Duration, f func()) { time.AfterFunc(d, f) },
		scheduleDelay: 2 * time.Second,
		paceDelay:     1500 * time.Millisecond,
		chainDelay:    2 * time.Second,
	}
}

// CreateRoom makes a new room with hostName as its host. A zero targetScore
// takes the default; anything below 1 is rejected.
func (e *Engine) CreateRoom(hostName string, targetScore int) (RoomSnapshot, string, error) {
	hostName = strings.TrimSpace(hostName)
	if hostName == "" {
		return RoomSnapshot{}, "", fmt.Errorf("%w: host name is required", ErrValidation)
	}
	if targetScore == 0 {
		targetScore = DefaultTargetScore
	}
	if targetScore < 1 {
		return RoomSnapshot{}, "", fmt.Errorf("%w: target score must be at least 1", ErrValidation)
	}

	room, hostID := e.rooms.CreateRoom(hostName, targetScore)

	room.mu.Lock()
	snap := room.snapshotLocked()
	room.mu.Unlock()
	return snap, hostID, nil
}

// RoomSnapshot returns the current state of a room.
func (e *Engine) RoomSnapshot(code string) (RoomSnapshot, error) {
	room, ok := e.rooms.Get(code)
	if !ok {
		return RoomSnapshot{}, ErrRoomNotFound
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	return room.snapshotLocked(), nil
}

// JoinRoom seats a new human player. Joining is only possible while the room
// is still waiting and below capacity.
func (e *Engine) JoinRoom(code, playerName string) (string, RoomSnapshot, error) {
	playerName = strings.TrimSpace(playerName)
	if playerName == "" {
		return "", RoomSnapshot{}, fmt.Errorf("%w: player name is required", ErrValidation)
	}

	room, ok := e.rooms.Get(code)
	if !ok {
		return "", RoomSnapshot{}, ErrRoomNotFound
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if room.state.Phase != PhaseWaiting {
		return "", RoomSnapshot{}, fmt.Errorf("%w: game already started", ErrInvalidState)
	}
	if len(room.players) >= maxPlayers {
		return "", RoomSnapshot{}, fmt.Errorf("%w: room is full", ErrInvalidState)
	}

	player := newPlayer(playerName, false)
	room.players = append(room.players, player)

	snap := room.snapshotLocked()
	room.hub.publish(EventPlayerJoined, playerJoinedPayload{Player: *player, Room: snap})
	log.Info().Str("room", room.code).Str("player", playerName).Msg("player joined")
	return player.ID, snap, nil
}

// AddBot seats a bot player. Only legal while waiting and below capacity.
func (e *Engine) AddBot(code string) (RoomSnapshot, error) {
	room, ok := e.rooms.Get(code)
	if !ok {
		return RoomSnapshot{}, ErrRoomNotFound
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if room.state.Phase != PhaseWaiting {
		return RoomSnapshot{}, fmt.Errorf("%w: game already started", ErrInvalidState)
	}
	if len(room.players) >= maxPlayers {
		return RoomSnapshot{}, fmt.Errorf("%w: room is full", ErrInvalidState)
	}

	bot := newBot(pickBotName(room.players))
	room.players = append(room.players, bot)

	snap := room.snapshotLocked()
	room.hub.publish(EventPlayerJoined, playerJoinedPayload{Player: *bot, Room: snap})
	log.Info().Str("room", room.code).Str("bot", bot.Name).Msg("bot added")
	return snap, nil
}

// RemoveBot unseats a bot. Removing anything but a bot through this path is
// rejected, as is removal once the game has started.
func (e *Engine) RemoveBot(code, botID string) (RoomSnapshot, error) {
	room, ok := e.rooms.Get(code)
	if !ok {
		return RoomSnapshot{}, ErrRoomNotFound
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if room.state.Phase != PhaseWaiting {
		return RoomSnapshot{}, fmt.Errorf("%w: game already started", ErrInvalidState)
	}

	for i, p := range room.players {
		if p.ID != botID {
			continue
		}
		if !p.IsBot {
			return RoomSnapshot{}, fmt.Errorf("%w: player is not a bot", ErrInvalidState)
		}
		room.players = append(room.players[:i], room.players[i+1:]...)

		snap := room.snapshotLocked()
		room.hub.publish(EventPlayerLeft, playerLeftPayload{PlayerID: botID, Room: snap})
		return snap, nil
	}
	return RoomSnapshot{}, fmt.Errorf("%w: bot not in room", ErrInvalidState)
}

// StartGame transitions waiting → playing. Host only, two players minimum.
func (e *Engine) StartGame(code, playerID string) (RoomSnapshot, error) {
	room, ok := e.rooms.Get(code)
	if !ok {
		return RoomSnapshot{}, ErrRoomNotFound
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	requester := room.findPlayerLocked(playerID)
	if requester == nil || !requester.IsHost {
		return RoomSnapshot{}, fmt.Errorf("%w: only the host can start the game", ErrForbidden)
	}
	if room.state.Phase != PhaseWaiting {
		return RoomSnapshot{}, fmt.Errorf("%w: game already started", ErrInvalidState)
	}
	if len(room.players) < 2 {
		return RoomSnapshot{}, fmt.Errorf("%w: need at least 2 players", ErrInvalidState)
	}

	room.state.Phase = PhasePlaying
	room.state.CurrentPlayerIndex = 0
	room.state.Dice = newDiceSet()
	room.state.TurnScore = 0

	snap := room.snapshotLocked()
	room.hub.publish(EventGameStarted, roomPayload{Room: snap})
	log.Info().Str("room", room.code).Int("players", len(room.players)).Msg("game started")
	return snap, nil
}

// RollDice rolls every unlocked die for the current player. Dice coming up
// green lock and score one point each; a roll with at least one red and no
// green busts the turn. All ten dice locking mid-turn earns a fresh set with
// the score preserved.
func (e *Engine) RollDice(code, playerID string) (bool, RoomSnapshot, error) {
	room, ok := e.rooms.Get(code)
	if !ok {
		return false, RoomSnapshot{}, ErrRoomNotFound
	}

	room.mu.Lock()
	st := &room.state

	if !st.Phase.active() {
		room.mu.Unlock()
		return false, RoomSnapshot{}, fmt.Errorf("%w: game is not in progress", ErrInvalidState)
	}
	current := room.currentPlayerLocked()
	if current.ID != playerID {
		room.mu.Unlock()
		return false, RoomSnapshot{}, fmt.Errorf("%w: not your turn", ErrInvalidState)
	}

	// A fully locked set means the previous roll went ten-for-ten; hand the
	// player fresh dice before rolling.
	if room.unlockedDiceLocked() == 0 {
		st.Dice = newDiceSet()
	}

	var rolledGreen, rolledRed bool
	rolled := make([]Die, 0, diceCount)
	for i := range st.Dice {
		d := &st.Dice[i]
		if d.Locked {
			continue
		}
		d.Color = e.rollFace()
		switch d.Color {
		case ColorGreen:
			d.Locked = true
			st.TurnScore++
			rolledGreen = true
		case ColorRed:
			rolledRed = true
		}
		rolled = append(rolled, *d)
	}

	// Any green protects the turn, no matter how many reds came with it.
	if rolledRed && !rolledGreen {
		st.TurnScore = 0
		botID := e.endTurnLocked(room)
		room.hub.publish(EventDiceRolled, diceRolledPayload{
			Room:   room.snapshotLocked(),
			Busted: true,
			Rolled: rolled,
		})
		snap := room.snapshotLocked()
		room.mu.Unlock()

		log.Debug().Str("room", room.code).Str("player", current.Name).Msg("busted")
		e.scheduleBot(code, botID)
		return true, snap, nil
	}

	current.TurnScore = st.TurnScore
	if room.unlockedDiceLocked() == 0 {
		// All ten locked: fresh dice, score intact, turn continues.
		st.Dice = newDiceSet()
	}

	snap := room.snapshotLocked()
	room.hub.publish(EventDiceRolled, diceRolledPayload{
		Room:   snap,
		Busted: false,
		Rolled: rolled,
	})
	room.mu.Unlock()
	return false, snap, nil
}

// BankPoints commits the current turn's score to the current player. The
// first bank to reach the target score triggers the final round.
func (e *Engine) BankPoints(code, playerID string) (RoomSnapshot, error) {
	room, ok := e.rooms.Get(code)
	if !ok {
		return RoomSnapshot{}, ErrRoomNotFound
	}

	room.mu.Lock()
	st := &room.state

	if !st.Phase.active() {
		room.mu.Unlock()
		return RoomSnapshot{}, fmt.Errorf("%w: game is not in progress", ErrInvalidState)
	}
	current := room.currentPlayerLocked()
	if current.ID != playerID {
		room.mu.Unlock()
		return RoomSnapshot{}, fmt.Errorf("%w: not your turn", ErrInvalidState)
	}

	current.Score += st.TurnScore

	if current.Score >= st.TargetScore && st.FinalRoundTriggeredBy == nil {
		id := current.ID
		st.FinalRoundTriggeredBy = &id
		st.Phase = PhaseFinalRound
		st.PlayersHadFinalTurn = append(st.PlayersHadFinalTurn, current.ID)
		log.Info().Str("room", room.code).Str("player", current.Name).Msg("final round triggered")
	}

	botID := e.endTurnLocked(room)
	snap := room.snapshotLocked()
	room.hub.publish(EventTurnEnded, roomPayload{Room: snap})
	room.mu.Unlock()

	e.scheduleBot(code, botID)
	return snap, nil
}

// RemovePlayer flags a player disconnected, keeping the seat so the turn
// index and final scoring stay stable. A host leaving before the game starts
// deletes the room outright.
func (e *Engine) RemovePlayer(code, playerID string) error {
	room, ok := e.rooms.Get(code)
	if !ok {
		return ErrRoomNotFound
	}

	room.mu.Lock()
	player := room.findPlayerLocked(playerID)
	if player == nil {
		room.mu.Unlock()
		return nil
	}
	player.IsConnected = false

	if player.IsHost && room.state.Phase == PhaseWaiting {
		room.mu.Unlock()
		e.rooms.Remove(code)
		return nil
	}

	snap := room.snapshotLocked()
	room.hub.publish(EventPlayerLeft, playerLeftPayload{PlayerID: playerID, Room: snap})
	room.mu.Unlock()
	return nil
}

// Subscribe attaches a consumer to a room's event stream.
func (e *Engine) Subscribe(code string) (<-chan Event, func(), error) {
	room, ok := e.rooms.Get(code)
	if !ok {
		return nil, nil, ErrRoomNotFound
	}
	ch, unsubscribe := room.hub.Subscribe()
	return ch, unsubscribe, nil
}

// TotalPlayerCount reports connected players across every live room.
func (e *Engine) TotalPlayerCount() int {
	return e.rooms.TotalPlayerCount()
}

// endTurnLocked settles the turn boundary: reset score and dice, advance the
// pointer, close out the final round when it comes back around, and report
// which bot (if any) should be scheduled next. Callers hold room.mu and must
// call scheduleBot with the returned id after releasing it.
func (e *Engine) endTurnLocked(room *Room) string {
	st := &room.state

	st.TurnScore = 0
	st.Dice = newDiceSet()
	for _, p := range room.players {
		p.TurnScore = 0
	}
	st.CurrentPlayerIndex = (st.CurrentPlayerIndex + 1) % len(room.players)
	next := room.currentPlayerLocked()

	if st.Phase == PhaseFinalRound {
		for _, id := range st.PlayersHadFinalTurn {
			if id != next.ID {
				continue
			}
			// Everyone has had their last turn. Ties favor the player
			// earliest in turn order.
			winner := room.players[0]
			for _, p := range room.players[1:] {
				if p.Score > winner.Score {
					winner = p
				}
			}
			winnerID := winner.ID
			st.Winner = &winnerID
			st.Phase = PhaseEnded
			room.hub.publish(EventGameEnded, gameEndedPayload{
				Room:   room.snapshotLocked(),
				Winner: *winner,
			})
			log.Info().Str("room", room.code).Str("winner", winner.Name).Msg("game ended")
			return ""
		}
		st.PlayersHadFinalTurn = append(st.PlayersHadFinalTurn, next.ID)
	}

	if next.IsBot && st.Phase.active() {
		return next.ID
	}
	return ""
}
