package main

import (
	"time"

	"go.uber.org/zap"

	"mailtriage/internal/api"
	"mailtriage/internal/config"
	"mailtriage/internal/httpserver"
	"mailtriage/internal/provider"
	"mailtriage/internal/provider/gmail"
	"mailtriage/internal/provider/outlook"
	"mailtriage/internal/token"
	"mailtriage/pkg/logger"
	"mailtriage/pkg/mq"
	redisclient "mailtriage/pkg/redis"
)

func main() {
	cfg := config.Load()

	log := logger.NewLogger()
	defer log.Sync()

	log.Info("Starting triage API server...")

	// Redis
	rdb := redisclient.NewRedisClient(cfg.Redis)
	defer rdb.Close()

	tokenStore := token.NewRedisStore(rdb, 12*time.Hour)

	// MQ publisher
	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Fatal("MQ publisher init failed", zap.Error(err))
	}
	defer publisher.Close()

	// Provider gateways for the synchronous mail proxies
	gateways := map[string]provider.Gateway{
		"gmail":   gmail.New(),
		"outlook": outlook.New(),
	}

	// Handlers
	triageHandler := api.NewTriageHandler(publisher, log)
	tokenHandler := api.NewTokenHandler(tokenStore, log)
	mailHandler := api.NewMailHandler(gateways, tokenStore, log)

	router := httpserver.NewRouter(triageHandler, tokenHandler, mailHandler, rdb, publisher)

	port := cfg.Server.Port
	if port == "" {
		port = ":8000"
	}

	log.Info("Server listening", zap.String("port", port))
	if err := router.Run(port); err != nil {
		log.Fatal("Server crashed", zap.Error(err))
	}
}
