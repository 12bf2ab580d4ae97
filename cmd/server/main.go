package main

import (
	"context"
	"fmt"
	"net/http"
	"slices"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/zpthree/cubetoss/config"
	"github.com/zpthree/cubetoss/game"
	"github.com/zpthree/cubetoss/shared/logger"
)

// CreateServer builds the router with health check and origin policy.
func CreateServer(allowedOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	if len(allowedOrigins) > 0 {
		r.Use(func(ctx *gin.Context) {
			origin := ctx.Request.Header.Get("Origin")
			if origin == "" || slices.Contains(allowedOrigins, origin) {
				ctx.Next()
				return
			}
			ctx.String(http.StatusForbidden, "forbidden origin")
			ctx.Abort()
		})

		r.Use(cors.New(cors.Config{
			AllowOrigins:     allowedOrigins,
			AllowCredentials: true,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders: []string{
				"Content-Type",
				"Upgrade",
				"Connection",
				"Sec-WebSocket-Key",
				"Sec-WebSocket-Version",
				"Sec-WebSocket-Extensions",
				"Sec-WebSocket-Protocol",
			},
		}))
	}

	r.GET("/health", func(ctx *gin.Context) { ctx.String(http.StatusOK, "healthy") })

	return r
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger.Setup(cfg.Debug)
	gin.SetMode(cfg.GinMode)

	registry := game.NewRegistry(cfg.RoomTimeout)
	engine := game.NewEngine(registry)

	go registry.RunSweeper(context.Background(), cfg.SweepInterval)

	r := CreateServer(cfg.AllowedOrigins)
	game.NewHandler(engine).RegisterRoutes(r)

	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Info().Str("addr", addr).Msg("server listening")
	if err := r.Run(addr); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
