// Package resync provides the deferred dashboard re-delivery queue. When a
// sync exhausts its in-request retry budget, the call id is enqueued here
// and a worker retries later with fresh backoff, so the synced flag stuck
// false is a delay, never data loss.
package resync

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"receptionist_backend/platform/config"
)

// Client enqueues deferred re-sync tasks.
type Client struct {
	client *asynq.Client
	queue  string
}

// NewClient connects the enqueue side. Returns an error when no redis is
// configured; the caller treats a missing queue as "no deferred retries".
func NewClient(cfg config.ResyncConfig) (*Client, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	return &Client{
		client: asynq.NewClient(opt),
		queue:  queue,
	}, nil
}

// Close releases the redis connection.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// Enqueue schedules a re-sync a minute out. Tasks are deduplicated per
// call id within that window, so repeated failures for the same call do
// not pile up.
func (c *Client) Enqueue(ctx context.Context, callID string) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewDashboardResyncTask(DashboardResyncPayload{CallID: callID})
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task,
		asynq.ProcessIn(time.Minute),
		asynq.Queue(c.queue),
		asynq.TaskID("dashboard.resync:"+callID),
		asynq.MaxRetry(5),
	)
	if err != nil && !errors.Is(err, asynq.ErrTaskIDConflict) {
		return err
	}
	return nil
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		tlsConfig = clone
	} else if tlsInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}
