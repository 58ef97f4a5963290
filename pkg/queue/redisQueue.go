package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

const (
	defaultMaxRetries = 3
	defaultBaseDelay  = 5 * time.Second
	defaultPopTimeout = 5 * time.Second

	mainQueueKey    = "hyrservice:notify"
	delayedQueueKey = "hyrservice:notify:delayed"
	dlqKey          = "hyrservice:notify:dlq"
)

// RedisQueue implements Queue on top of a Redis list plus a sorted set for
// delayed/retried tasks. Tasks that exhaust their retries are parked in a
// dead-letter list for manual inspection.
type RedisQueue struct {
	client *redis.Client

	maxRetries int
	baseDelay  time.Duration

	mu       sync.Mutex
	stopOnce sync.Once
	stopChan chan struct{}
	wg       sync.WaitGroup
}

func NewRedisQueue(client *redis.Client) (*RedisQueue, error) {
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return &RedisQueue{
		client:     client,
		maxRetries: defaultMaxRetries,
		baseDelay:  defaultBaseDelay,
		stopChan:   make(chan struct{}),
	}, nil
}

func (q *RedisQueue) Publish(ctx context.Context, task *Task) error {
	if err := task.Validate(); err != nil {
		return err
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now()
	}
	if task.MaxRetries == 0 {
		task.MaxRetries = q.maxRetries
	}

	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	if task.ExecuteAt.After(time.Now()) {
		err = q.client.ZAdd(ctx, delayedQueueKey, &redis.Z{
			Score:  float64(task.ExecuteAt.Unix()),
			Member: payload,
		}).Err()
	} else {
		err = q.client.LPush(ctx, mainQueueKey, payload).Err()
	}
	if err != nil {
		return fmt.Errorf("failed to publish task: %w", err)
	}
	return nil
}

// Subscribe consumes tasks until the context is cancelled or Close is
// called. Failed tasks are retried with linear backoff and moved to the
// DLQ once their retry budget is spent.
func (q *RedisQueue) Subscribe(ctx context.Context, handler func(*Task) error) error {
	q.wg.Add(1)
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-q.stopChan:
			return nil
		default:
		}

		q.promoteDelayed(ctx)

		result, err := q.client.BRPop(ctx, defaultPopTimeout, mainQueueKey).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logrus.Errorf("Queue pop failed: %v", err)
			time.Sleep(time.Second)
			continue
		}

		var task Task
		if err := json.Unmarshal([]byte(result[1]), &task); err != nil {
			logrus.Errorf("Dropping malformed task: %v", err)
			continue
		}

		if err := handler(&task); err != nil {
			q.retry(ctx, &task, err)
		}
	}
}

func (q *RedisQueue) retry(ctx context.Context, task *Task, cause error) {
	task.Attempts++
	if task.Attempts >= task.MaxRetries {
		logrus.WithFields(logrus.Fields{
			"task_id":  task.ID,
			"type":     task.Type,
			"attempts": task.Attempts,
		}).Errorf("Task moved to DLQ: %v", cause)
		payload, err := json.Marshal(task)
		if err == nil {
			if err := q.client.LPush(ctx, dlqKey, payload).Err(); err != nil {
				logrus.Errorf("Failed to park task in DLQ: %v", err)
			}
		}
		return
	}

	task.ExecuteAt = time.Now().Add(q.baseDelay * time.Duration(task.Attempts))
	if err := q.Publish(ctx, task); err != nil {
		logrus.Errorf("Failed to requeue task %s: %v", task.ID, err)
	}
}

// promoteDelayed moves due tasks from the delayed set onto the main list.
func (q *RedisQueue) promoteDelayed(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := fmt.Sprintf("%d", time.Now().Unix())
	due, err := q.client.ZRangeByScore(ctx, delayedQueueKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: now,
	}).Result()
	if err != nil || len(due) == 0 {
		return
	}

	for _, payload := range due {
		if err := q.client.LPush(ctx, mainQueueKey, payload).Err(); err != nil {
			logrus.Errorf("Failed to promote delayed task: %v", err)
			continue
		}
		q.client.ZRem(ctx, delayedQueueKey, payload)
	}
}

func (q *RedisQueue) Close() error {
	q.stopOnce.Do(func() {
		close(q.stopChan)
	})
	q.wg.Wait()
	return q.client.Close()
}
