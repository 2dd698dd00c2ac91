// File: cron/worker.go
package cron

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"agendabot/config"
	"agendabot/models"
	"agendabot/services/notify"
	"agendabot/utils"
)

// InitDeliveryWorker runs the outbound-message worker in the background.
// Tasks that fail to send are retried by asynq with its default backoff.
func InitDeliveryWorker(cfg *config.Config, sender notify.Sender) {
	redisOpts := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisQueueDB,
	}

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(models.TypeMessageSend, handleSendTask(sender))

	go monitorQueueRedis(cfg)

	go func() {
		logger := utils.GetLogger()
		logger.Info("starting delivery worker")
		const maxAttempts = 5

		for attempt := 1; attempt <= maxAttempts; attempt++ {
			if err := srv.Run(mux); err != nil {
				logger.Error("delivery worker failed to start",
					zap.Int("attempt", attempt),
					zap.Error(err))
				if attempt == maxAttempts {
					logger.Fatal("delivery worker gave up")
				}
				time.Sleep(time.Duration(attempt*2) * time.Second)
			} else {
				break
			}
		}
	}()
}

func handleSendTask(sender notify.Sender) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		logger := utils.GetLogger()

		var msg models.OutboundMessage
		if err := json.Unmarshal(task.Payload(), &msg); err != nil {
			logger.Error("invalid delivery payload", zap.Error(err))
			return err
		}
		if err := sender.Send(ctx, msg.To, msg.Prompt); err != nil {
			logger.Warn("delivery attempt failed",
				zap.String("to", msg.To),
				zap.Error(err))
			return err
		}
		return nil
	}
}

// monitorQueueRedis pings the queue Redis periodically to surface outages.
func monitorQueueRedis(cfg *config.Config) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisQueueDB,
	})

	ctx := context.Background()
	for {
		if err := client.Ping(ctx).Err(); err != nil {
			utils.GetLogger().Warn("queue redis connection lost", zap.Error(err))
		}
		time.Sleep(10 * time.Second)
	}
}
