package main

import (
	"time"

	"go.uber.org/zap"

	contracts "mailtriage/contracts/mq"
	"mailtriage/internal/classify"
	"mailtriage/internal/compose"
	"mailtriage/internal/config"
	"mailtriage/internal/mqhandler"
	"mailtriage/internal/pipeline"
	"mailtriage/internal/provider"
	"mailtriage/internal/provider/gmail"
	"mailtriage/internal/provider/outlook"
	"mailtriage/internal/token"
	"mailtriage/pkg/circuitbreaker"
	"mailtriage/pkg/logger"
	"mailtriage/pkg/mq"
	redisclient "mailtriage/pkg/redis"
	"mailtriage/pkg/util"
)

func main() {
	cfg := config.Load()

	log := logger.NewLogger()
	defer log.Sync()

	log.Info("Starting triage worker...")

	// Redis
	rdb := redisclient.NewRedisClient(cfg.Redis)
	defer rdb.Close()

	tokenStore := token.NewRedisStore(rdb, 12*time.Hour)
	deduper := util.NewDeduperWithLogger(rdb, time.Hour, log)
	retryCounter := util.NewRetryCounter(rdb, time.Hour)

	// OpenAI client, shared by classifier and composer
	llm := classify.NewOpenAIClient(cfg.OpenAI)
	breaker := circuitbreaker.NewCircuitBreaker(circuitbreaker.DefaultConfig())
	classifier := classify.NewClassifier(llm, breaker, log)
	composer := compose.NewComposer(llm, compose.ParseMode(cfg.Worker.ReplyMode))

	log.Info("Reply composer configured", zap.String("mode", string(composer.Mode())))

	// DLQ publisher
	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Fatal("MQ publisher init failed", zap.Error(err))
	}
	defer publisher.Close()

	if err := publisher.SetupDLQ(contracts.RoutingKeyGmail, contracts.RoutingKeyOutlook); err != nil {
		log.Fatal("DLQ setup failed", zap.Error(err))
	}

	// 两条 pipeline：同一套编排逻辑，只有 gateway 不同
	pipelines := []struct {
		gateway    provider.Gateway
		queue      string
		routingKey string
	}{
		{gateway: gmail.New(), queue: contracts.QueueGmail, routingKey: contracts.RoutingKeyGmail},
		{gateway: outlook.New(), queue: contracts.QueueOutlook, routingKey: contracts.RoutingKeyOutlook},
	}

	for _, p := range pipelines {
		pipe := pipeline.New(p.gateway, tokenStore, classifier, composer, log)
		handler := mqhandler.NewTriageHandler(
			pipe, p.gateway.Name(), p.routingKey,
			publisher, retryCounter, deduper,
			cfg.Worker.MaxRetries, log,
		)

		log.Info("Init consumer",
			zap.String("queue", p.queue),
			zap.String("routing_key", p.routingKey),
			zap.Int("concurrency", cfg.Worker.Concurrency),
		)
		consumer, err := mq.NewConsumer(cfg.MQ.URL, p.queue, p.routingKey, cfg.Worker.Concurrency, log)
		if err != nil {
			log.Fatal("Consumer init failed", zap.String("queue", p.queue), zap.Error(err))
		}
		consumer.SetHandler(handler.Handle)

		go func(queue string, c *mq.Consumer) {
			if err := c.StartConsuming(); err != nil {
				log.Fatal("Consumer crashed", zap.String("queue", queue), zap.Error(err))
			}
		}(p.queue, consumer)
		defer consumer.Close()
	}

	log.Info("Worker running")
	select {}
}
