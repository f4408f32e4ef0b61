package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"gradticket-bot/config"
	"gradticket-bot/internal/calendar"
	"gradticket-bot/internal/command"
	"gradticket-bot/internal/database"
	"gradticket-bot/internal/handler"
	"gradticket-bot/internal/inbox"
	"gradticket-bot/internal/matcher"
	"gradticket-bot/internal/repository"
	"gradticket-bot/internal/service"
	"gradticket-bot/internal/worker"
)

func main() {
	cfg := config.LoadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := database.InitDatabase(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer pool.Close()

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to initialize redis: %v", err)
	}
	defer rdb.Close()

	store := repository.NewRecordRepository(pool)

	source := calendar.NewCachedCeremonySource(
		calendar.NewHTTPCeremonySource(cfg.Bot.CeremonyURL),
		rdb,
		cfg.Bot.CalendarCacheTTL,
	)

	messages, err := inbox.NewStreamMessageSource(rdb, "", &inbox.StreamConfig{
		BatchSize: cfg.Bot.InboxBatchSize,
	})
	if err != nil {
		log.Fatalf("Failed to initialize inbox: %v", err)
	}
	notifier := inbox.NewStreamNotifier(rdb)

	parser := command.NewParser(cfg.Bot)
	engine := matcher.NewEngine(store)

	botService := service.NewBotService(cfg.Bot, store, source, parser, engine, messages, notifier)
	botWorker := worker.NewBotWorker(botService, cfg.Bot.PollInterval)

	router := gin.Default()
	botHandler := handler.NewBotHandler(botService, store, messages)
	botHandler.RegisterRoutes(router)

	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// blocks until the stop signal lands between cycles
	botWorker.Start(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown: %v", err)
	}
}
