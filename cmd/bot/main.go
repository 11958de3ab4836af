package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"photo-classifier/config"
	telegram "photo-classifier/internal/api"
	"photo-classifier/internal/container"
	"photo-classifier/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if cfg.TelegramToken == "" {
		log.Fatal("TELEGRAM_TOKEN is required")
	}

	// Собираем сервисы приложения, модели загрузятся при первом запросе
	appContainer, err := container.Build(cfg)
	if err != nil {
		log.Fatalf("Failed to build services: %v", err)
	}
	defer appContainer.Close()

	server.StartMetrics(cfg.MetricsAddr)

	// Создаём бота
	bot, err := telegram.NewBot(cfg.TelegramToken, appContainer)
	if err != nil {
		log.Fatalf("Failed to create bot: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Println("Bot is running...")
	if err := bot.Run(ctx); err != nil {
		log.Fatalf("Bot error: %v", err)
	}
	log.Println("Bot stopped")
}
