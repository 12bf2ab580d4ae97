package game

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// heartbeatInterval keeps long-lived event streams alive through proxies.
const heartbeatInterval = 15 * time.Second

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler exposes the engine over HTTP. It contains no game logic: every
// route binds input, calls one engine operation and translates the result.
type Handler struct {
	engine *Engine
}

func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

// RegisterRoutes attaches all game routes under /api.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	api := r.Group("/api")

	api.GET("/stats", h.Stats)

	room := api.Group("/room")
	room.POST("/create", h.CreateRoom)
	room.POST("/join", h.JoinRoom)
	room.GET("/:code", h.GetRoom)
	room.POST("/:code/start", h.StartGame)
	room.POST("/:code/roll", h.RollDice)
	room.POST("/:code/bank", h.BankPoints)
	room.POST("/:code/bot", h.AddBot)
	room.DELETE("/:code/bot", h.RemoveBot)
	room.POST("/:code/leave", h.LeaveRoom)
	room.GET("/:code/events", h.Events)
	room.GET("/:code/ws", h.WebSocket)
}

// statusFor maps engine errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrRoomNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrInvalidState):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func fail(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"success": false, "error": err.Error()})
}

func (h *Handler) CreateRoom(c *gin.Context) {
	var req struct {
		HostName    string `json:"hostName"`
		TargetScore int    `json:"targetScore"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, ErrValidation)
		return
	}

	snap, playerID, err := h.engine.CreateRoom(req.HostName, req.TargetScore)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success":  true,
		"roomCode": snap.Code,
		"playerId": playerID,
		"room":     snap,
	})
}

func (h *Handler) JoinRoom(c *gin.Context) {
	var req struct {
		RoomCode   string `json:"roomCode"`
		PlayerName string `json:"playerName"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, ErrValidation)
		return
	}

	playerID, snap, err := h.engine.JoinRoom(req.RoomCode, req.PlayerName)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "playerId": playerID, "room": snap})
}

func (h *Handler) GetRoom(c *gin.Context) {
	snap, err := h.engine.RoomSnapshot(c.Param("code"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "room": snap})
}

// playerRequest is the body shared by the turn-taking routes.
type playerRequest struct {
	PlayerID string `json:"playerId" binding:"required"`
}

func (h *Handler) StartGame(c *gin.Context) {
	var req playerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, ErrValidation)
		return
	}

	snap, err := h.engine.StartGame(c.Param("code"), req.PlayerID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "room": snap})
}

func (h *Handler) RollDice(c *gin.Context) {
	var req playerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, ErrValidation)
		return
	}

	busted, snap, err := h.engine.RollDice(c.Param("code"), req.PlayerID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "busted": busted, "room": snap})
}

func (h *Handler) BankPoints(c *gin.Context) {
	var req playerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, ErrValidation)
		return
	}

	snap, err := h.engine.BankPoints(c.Param("code"), req.PlayerID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "room": snap})
}

func (h *Handler) AddBot(c *gin.Context) {
	snap, err := h.engine.AddBot(c.Param("code"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "room": snap})
}

func (h *Handler) RemoveBot(c *gin.Context) {
	var req struct {
		BotID string `json:"botId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, ErrValidation)
		return
	}

	snap, err := h.engine.RemoveBot(c.Param("code"), req.BotID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "room": snap})
}

func (h *Handler) LeaveRoom(c *gin.Context) {
	var req playerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, ErrValidation)
		return
	}

	if err := h.engine.RemovePlayer(c.Param("code"), req.PlayerID); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"totalPlayers": h.engine.TotalPlayerCount()})
}

// Events streams room events as server-sent events: a synthetic state-update
// first, then every published event, with comment heartbeats in between.
func (h *Handler) Events(c *gin.Context) {
	code := c.Param("code")

	snap, err := h.engine.RoomSnapshot(code)
	if err != nil {
		fail(c, err)
		return
	}
	events, unsubscribe, err := h.engine.Subscribe(code)
	if err != nil {
		fail(c, err)
		return
	}
	defer unsubscribe()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	c.SSEvent(EventStateUpdate, roomPayload{Room: snap})
	c.Writer.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	done := c.Request.Context().Done()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				// Room torn down.
				return
			}
			c.SSEvent(ev.Type, ev.Payload)
			c.Writer.Flush()
		case <-heartbeat.C:
			if _, err := c.Writer.WriteString(": heartbeat\n\n"); err != nil {
				return
			}
			c.Writer.Flush()
		case <-done:
			return
		}
	}
}

// WebSocket streams the same event sequence as Events over a websocket. The
// read pump doubles as disconnect detection: when the peer goes away, the
// player identified by the playerID query parameter is flagged disconnected.
func (h *Handler) WebSocket(c *gin.Context) {
	code := c.Param("code")
	playerID := c.Query("playerID")

	snap, err := h.engine.RoomSnapshot(code)
	if err != nil {
		fail(c, err)
		return
	}

	conn, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Str("room", code).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	events, unsubscribe, err := h.engine.Subscribe(code)
	if err != nil {
		return
	}
	defer unsubscribe()

	initial := Event{
		Type:      EventStateUpdate,
		Payload:   roomPayload{Room: snap},
		Timestamp: time.Now().UnixMilli(),
	}
	if err := conn.WriteJSON(initial); err != nil {
		return
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if playerID != "" {
					_ = h.engine.RemovePlayer(code, playerID)
				}
				return
			}
		}
	}()

	ping := time.NewTicker(heartbeatInterval)
	defer ping.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
