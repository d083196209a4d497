// Package queue provides a Redis-backed intake queue for workflow start
// requests submitted by out-of-process producers.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/spinscribe/spinscribe/pkg/engine"
	"github.com/spinscribe/spinscribe/pkg/models"
)

const DefaultQueue = "spinscribe:workflow:requests"

// intakeMessage is the wire format producers push onto the list.
type intakeMessage struct {
	WorkflowType   string                `json:"workflow_type"`
	ProjectID      string                `json:"project_id"`
	ChatID         string                `json:"chat_id"`
	ContentRequest models.ContentRequest `json:"content_request"`
}

// Consumer pops workflow start requests from a Redis list with BLPop and
// hands them to the engine. Malformed messages are logged and dropped; the
// consumer never stops on a bad payload.
type Consumer struct {
	Addr     string
	Password string
	DB       int
	Queue    string

	client redis.UniversalClient
	engine *engine.Engine
	logger *slog.Logger
	stopCh chan struct{}
	wg     sync.WaitGroup
}

func NewConsumer(eng *engine.Engine, addr, password string, db int, queue string, logger *slog.Logger) (*Consumer, error) {
	if queue == "" {
		queue = DefaultQueue
	}

	if addr == "" {
		addr = "localhost:6379"
	}

	return &Consumer{
		Addr:     addr,
		Password: password,
		DB:       db,
		Queue:    queue,
		engine:   eng,
		stopCh:   make(chan struct{}),
		logger: logger.With(
			"module", "intake_queue",
			"queue", queue,
		),
	}, nil
}

func (c *Consumer) Start(ctx context.Context) error {
	c.client = redis.NewClient(&redis.Options{
		Addr:     c.Addr,
		Password: c.Password,
		DB:       c.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := c.client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	c.logger.InfoContext(ctx, "Connected to Redis", "addr", c.Addr, "db", c.DB)

	c.wg.Add(1)

	go c.consume(ctx)

	return nil
}

func (c *Consumer) consume(ctx context.Context) {
	defer c.wg.Done()

	c.logger.InfoContext(ctx, "Starting intake queue consumer")

	for {
		select {
		case <-c.stopCh:
			c.logger.InfoContext(ctx, "Intake queue consumer stopped")

			return
		case <-ctx.Done():
			c.logger.InfoContext(ctx, "Context cancelled, stopping intake queue consumer")

			return
		default:
			err := c.processMessage(ctx)
			if err != nil {
				c.logger.ErrorContext(ctx, "Error processing intake message", "error", err)
				time.Sleep(1 * time.Second)
			}
		}
	}
}

func (c *Consumer) processMessage(ctx context.Context) error {
	result, err := c.client.BLPop(ctx, 1*time.Second, c.Queue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}

		return fmt.Errorf("failed to pop message from queue: %w", err)
	}

	if len(result) < 2 {
		return nil
	}

	message := result[1]

	var intake intakeMessage
	if err := json.Unmarshal([]byte(message), &intake); err != nil {
		c.logger.WarnContext(ctx, "Dropping malformed intake message", "error", err)

		return nil
	}

	workflowID, err := c.engine.StartWorkflow(ctx, engine.StartRequest{
		WorkflowType:   intake.WorkflowType,
		ProjectID:      intake.ProjectID,
		ChatID:         intake.ChatID,
		ContentRequest: intake.ContentRequest,
	})
	if err != nil {
		c.logger.WarnContext(ctx, "Dropping intake message for unknown workflow type",
			"workflow_type", intake.WorkflowType,
			"error", err,
		)

		return nil
	}

	c.logger.InfoContext(ctx, "Started workflow from intake queue",
		"workflow_id", workflowID,
		"workflow_type", intake.WorkflowType,
		"project_id", intake.ProjectID,
	)

	return nil
}

func (c *Consumer) Stop(ctx context.Context) error {
	c.logger.InfoContext(ctx, "Stopping intake queue consumer")

	close(c.stopCh)
	c.wg.Wait()

	if c.client != nil {
		if err := c.client.Close(); err != nil {
			c.logger.ErrorContext(ctx, "Error closing Redis client", "error", err)
		}
	}

	return nil
}
