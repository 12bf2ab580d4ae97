package game

import "github.com/rs/zerolog/log"

type botAction int

const (
	actionRoll botAction = iota
	actionBank
)

// decide picks the bot's next move. It banks whenever banking wins the game;
// otherwise it pushes until the turn score clears a threshold that rises as
// fewer dice remain unlocked. The threshold is a pacing heuristic, not a bust
// probability model: per-die odds never change. jitter keeps the cutoff from
// being perfectly predictable.
func decide(turnScore, diceRemaining, targetScore, currentScore, jitter int) botAction {
	if turnScore > 0 && currentScore+turnScore >= targetScore {
		return actionBank
	}
	if turnScore == 0 {
		return actionRoll
	}
	threshold := 15 + (diceCount - diceRemaining)
	if turnScore >= threshold+jitter {
		return actionBank
	}
	return actionRoll
}

// scheduleBot queues a bot turn after the post-boundary delay. A blank id is
// a no-op, letting callers pass endTurnLocked's result through unchecked.
func (e *Engine) scheduleBot(code, botID string) {
	if botID == "" {
		return
	}
	e.afterFunc(e.scheduleDelay, func() {
		e.ExecuteBotTurn(code, botID)
	})
}

// ExecuteBotTurn runs one step of a bot's turn. The world may have moved on
// since this was scheduled (bust, bank, game over, room evicted), so every
// entry re-validates turn ownership and phase and stops silently when stale.
func (e *Engine) ExecuteBotTurn(code, botID string) {
	room, ok := e.rooms.Get(code)
	if !ok {
		return
	}

	room.mu.Lock()
	stale := !room.isTurnOfLocked(botID)
	room.mu.Unlock()
	if stale {
		return
	}

	e.afterFunc(e.paceDelay, func() {
		e.botAct(code, botID)
	})
}

// botAct takes the bot's action and, if the turn survives, chains the next
// step of the same turn.
func (e *Engine) botAct(code, botID string) {
	room, ok := e.rooms.Get(code)
	if !ok {
		return
	}

	room.mu.Lock()
	if !room.isTurnOfLocked(botID) {
		room.mu.Unlock()
		return
	}
	turnScore := room.state.TurnScore
	remaining := room.unlockedDiceLocked()
	target := room.state.TargetScore
	score := room.currentPlayerLocked().Score
	room.mu.Unlock()

	if decide(turnScore, remaining, target, score, e.jitter()) == actionBank {
		if _, err := e.BankPoints(code, botID); err != nil {
			log.Debug().Err(err).Str("room", code).Msg("bot bank rejected")
		}
		return
	}

	busted, _, err := e.RollDice(code, botID)
	if err != nil || busted {
		return
	}

	room.mu.Lock()
	again := room.isTurnOfLocked(botID)
	room.mu.Unlock()
	if again {
		e.afterFunc(e.chainDelay, func() {
			e.ExecuteBotTurn(code, botID)
		})
	}
}
