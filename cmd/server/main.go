package main

import (
	"log"
	"strconv"
	"time"

	"github.com/xivitoo/XiPadelGranada/internal/config"
	"github.com/xivitoo/XiPadelGranada/internal/database"
	"github.com/xivitoo/XiPadelGranada/internal/handlers"
	"github.com/xivitoo/XiPadelGranada/internal/middleware"
	"github.com/xivitoo/XiPadelGranada/internal/scheduler"
	"github.com/xivitoo/XiPadelGranada/internal/services"
	"github.com/xivitoo/XiPadelGranada/internal/telegram"
	"github.com/xivitoo/XiPadelGranada/internal/ws"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.Load()

	db := database.Connect(cfg)
	database.AutoMigrate(db)

	hub := ws.NewHub()
	sched := scheduler.New()
	defer sched.Stop()

	authService := services.NewAuthService(db, cfg.JWTSecret)
	playerService := services.NewPlayerService(db)
	matchService := services.NewMatchService(db, sched)

	authHandler := handlers.NewAuthHandler(authService)
	matchHandler := handlers.NewMatchHandler(matchService)
	playerHandler := handlers.NewPlayerHandler(playerService)
	wsHandler := handlers.NewWSHandler(hub)
	healthHandler := handlers.NewHealthHandler(db)

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	r.GET("/health", healthHandler.Health)
	r.GET("/ws/feed", wsHandler.HandleFeed)

	if cfg.BotToken == "" {
		log.Fatal("TELEGRAM_TOKEN not set")
	}

	pollSec, _ := strconv.Atoi(cfg.PollTimeout)
	if pollSec <= 0 {
		pollSec = 30
	}

	client := telegram.NewClient(cfg.BotToken)
	state := telegram.NewStateManager()
	updateHandler := telegram.NewUpdateHandler(client, state, playerService, matchService, hub)
	evaluator := telegram.NewEvaluator(client, matchService)
	sched.SetHandler(evaluator.Run)

	bot := telegram.NewBot(client, updateHandler, cfg.BotToken, cfg.WebhookBaseURL, cfg.WebhookSecret,
		time.Duration(pollSec)*time.Second)
	if err := bot.Start(); err != nil {
		log.Fatalf("failed to start bot: %v", err)
	}
	defer bot.Stop()

	r.POST("/webhook/bot/:secret", bot.HandleWebhook)

	// Timers do not survive restarts; re-arm pending evaluation triggers.
	if err := matchService.RearmEvaluations(time.Now()); err != nil {
		log.Printf("rearm evaluations: %v", err)
	}

	api := r.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
		}

		matches := api.Group("/matches")
		matches.Use(middleware.JWTAuth(authService))
		{
			matches.GET("", matchHandler.ListMatches)
			matches.GET("/:id", matchHandler.GetMatch)
		}

		players := api.Group("/players")
		players.Use(middleware.JWTAuth(authService))
		{
			players.GET("", playerHandler.ListPlayers)
			players.GET("/:id", playerHandler.GetPlayer)
			players.GET("/:id/evaluations", playerHandler.GetPlayerEvaluations)
		}
	}

	log.Printf("server starting on :%s", cfg.ServerPort)
	if err := r.Run(":" + cfg.ServerPort); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}
