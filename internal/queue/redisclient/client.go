package redisclient

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pabloosss/Urlopy/internal/jobs"
)

// the list key both producer and worker agree on
const jobsKey = "urlopy:jobs"

type Config struct {
	Addr     string
	Password string
	DB       int
}

type Client struct {
	redisdb *redis.Client
}

func New(cfg Config) *Client {
	redisdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	return &Client{redisdb: redisdb}
}

func (c *Client) Ping(ctx context.Context) error {
	return c.redisdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.redisdb.Close()
}

// EnqueueDecisionNotice pushes a decision-notice job onto the shared list.
// Satisfies the service.DecisionEnqueuer interface.
func (c *Client) EnqueueDecisionNotice(ctx context.Context, p jobs.DecisionNoticePayload) error {
	raw, err := jobs.EncodePayload(jobs.JobDecisionNotice, p)
	if err != nil {
		return err
	}

	j, err := jobs.NewJob(jobs.JobDecisionNotice, raw)
	if err != nil {
		return err
	}

	b, err := json.Marshal(j)
	if err != nil {
		return err
	}

	return c.redisdb.LPush(ctx, jobsKey, b).Err()
}

// Dequeue blocks up to timeout waiting for the next job. Returns redis.Nil
// (wrapped) absence as (zero, false, nil) so the worker loop can just poll.
func (c *Client) Dequeue(ctx context.Context, timeout time.Duration) (jobs.Job, bool, error) {
	res, err := c.redisdb.BRPop(ctx, timeout, jobsKey).Result()
	if err == redis.Nil {
		return jobs.Job{}, false, nil
	}
	if err != nil {
		return jobs.Job{}, false, err
	}

	// BRPop returns [key, value]
	if len(res) != 2 {
		return jobs.Job{}, false, nil
	}

	var j jobs.Job
	if err := json.Unmarshal([]byte(res[1]), &j); err != nil {
		return jobs.Job{}, false, err
	}

	return j, true, nil
}
