package game

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// manualScheduler captures afterFunc callbacks so tests can run the bot loop
// synchronously, without wall-clock delays.
type manualScheduler struct {
	mu    sync.Mutex
	queue []func()
}

func (s *manualScheduler) after(_ time.Duration, f func()) {
	s.mu.Lock()
	s.queue = append(s.queue, f)
	s.mu.Unlock()
}

// pump runs queued callbacks, including ones they enqueue, until none remain.
func (s *manualScheduler) pump() {
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.mu.Unlock()
			return
		}
		f := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()
		f()
	}
}

func (s *manualScheduler) pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

func TestDecide(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		desc          string
		turnScore     int
		diceRemaining int
		targetScore   int
		currentScore  int
		jitter        int
		expected      botAction
	}{
		{"never banks zero", 0, 10, 100, 99, 0, actionRoll},
		{"banks when it wins the game", 5, 10, 100, 95, 0, actionBank},
		{"banks when it passes the target", 7, 3, 100, 95, 0, actionBank},
		{"rolls below threshold", 14, 10, 100, 0, 0, actionRoll},
		{"banks at threshold with full set", 15, 10, 100, 0, 0, actionBank},
		{"threshold rises as dice lock", 16, 8, 100, 0, 0, actionRoll},
		{"banks once the higher bar is met", 17, 8, 100, 0, 0, actionBank},
		{"negative jitter lowers the bar", 13, 10, 100, 0, -3, actionBank},
		{"positive jitter raises the bar", 17, 10, 100, 0, 3, actionRoll},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			got := decide(tc.turnScore, tc.diceRemaining, tc.targetScore, tc.currentScore, tc.jitter)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestExecuteBotTurn_StaleEntryIsNoOp(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	sched := &manualScheduler{}
	e.afterFunc = sched.after

	snap, hostID, err := e.CreateRoom("alice", 0)
	require.NoError(t, err)
	withBot, err := e.AddBot(snap.Code)
	require.NoError(t, err)
	botID := withBot.Players[1].ID
	_, err = e.StartGame(snap.Code, hostID)
	require.NoError(t, err)

	// It is the host's turn, so the bot must do nothing.
	e.ExecuteBotTurn(snap.Code, botID)
	assert.Zero(t, sched.pending())

	// An evicted room is equally stale.
	e.ExecuteBotTurn("NOSUCH", botID)
	assert.Zero(t, sched.pending())
}

func TestBotTurn_RollsThenBanksToWin(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	sched := &manualScheduler{}
	e.afterFunc = sched.after

	snap, hostID, err := e.CreateRoom("alice", 10)
	require.NoError(t, err)
	withBot, err := e.AddBot(snap.Code)
	require.NoError(t, err)
	botID := withBot.Players[1].ID
	_, err = e.StartGame(snap.Code, hostID)
	require.NoError(t, err)

	// Five greens per full set: first roll scores 5, second completes the
	// set, earning a reset, at which point banking reaches the target.
	e.rollFace = facesInOrder(
		ColorGreen, ColorGreen, ColorGreen, ColorGreen, ColorGreen,
		ColorYellow, ColorYellow, ColorYellow, ColorYellow, ColorYellow,
		ColorGreen,
	)

	// Host banks zero; the boundary hands the turn to the bot.
	_, err = e.BankPoints(snap.Code, hostID)
	require.NoError(t, err)
	require.Equal(t, 1, sched.pending())

	sched.pump()

	got, err := e.RoomSnapshot(snap.Code)
	require.NoError(t, err)
	assert.Equal(t, 10, got.Players[1].Score)
	assert.Equal(t, PhaseFinalRound, got.GameState.Phase)
	require.NotNil(t, got.GameState.FinalRoundTriggeredBy)
	assert.Equal(t, botID, *got.GameState.FinalRoundTriggeredBy)
	// Turn is back with the host; no bot work may remain queued.
	assert.Equal(t, 0, got.GameState.CurrentPlayerIndex)
	assert.Zero(t, sched.pending())
}

func TestBotTurn_BustEndsTheChain(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	sched := &manualScheduler{}
	e.afterFunc = sched.after

	snap, hostID, err := e.CreateRoom("alice", 100)
	require.NoError(t, err)
	_, err = e.AddBot(snap.Code)
	require.NoError(t, err)
	_, err = e.StartGame(snap.Code, hostID)
	require.NoError(t, err)

	e.rollFace = facesInOrder(ColorRed)

	_, err = e.BankPoints(snap.Code, hostID)
	require.NoError(t, err)

	sched.pump()

	got, err := e.RoomSnapshot(snap.Code)
	require.NoError(t, err)
	assert.Zero(t, got.Players[1].Score)
	assert.Zero(t, got.GameState.TurnScore)
	// The bust handed the turn back to the host and stopped the loop.
	assert.Equal(t, 0, got.GameState.CurrentPlayerIndex)
	assert.Zero(t, sched.pending())
}

func TestBotTurn_GameEndingElsewhereStopsTheLoop(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	sched := &manualScheduler{}
	e.afterFunc = sched.after

	snap, hostID, err := e.CreateRoom("alice", 100)
	require.NoError(t, err)
	_, err = e.AddBot(snap.Code)
	require.NoError(t, err)
	_, err = e.StartGame(snap.Code, hostID)
	require.NoError(t, err)

	_, err = e.BankPoints(snap.Code, hostID)
	require.NoError(t, err)
	require.Equal(t, 1, sched.pending())

	// The room evaporates before the scheduled turn fires.
	e.rooms.Remove(snap.Code)
	sched.pump()

	assert.Zero(t, sched.pending())
}
