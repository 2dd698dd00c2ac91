// File: services/notify/queue.go
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"agendabot/config"
	"agendabot/models"
)

// AsynqEnqueuer pushes outbound messages onto the Redis-backed delivery
// queue, where the worker retries transient WhatsApp API failures.
type AsynqEnqueuer struct {
	client *asynq.Client
}

func NewAsynqEnqueuer(cfg *config.Config) *AsynqEnqueuer {
	return &AsynqEnqueuer{
		client: asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisQueueDB,
		}),
	}
}

func (e *AsynqEnqueuer) EnqueueMessage(ctx context.Context, msg models.OutboundMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode outbound message: %w", err)
	}
	task := asynq.NewTask(models.TypeMessageSend, payload)
	_, err = e.client.EnqueueContext(ctx, task,
		asynq.MaxRetry(5),
		asynq.Timeout(30*time.Second))
	if err != nil {
		return fmt.Errorf("failed to enqueue outbound message: %w", err)
	}
	return nil
}

func (e *AsynqEnqueuer) Close() error {
	return e.client.Close()
}
