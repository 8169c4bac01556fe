package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Options selects the session Redis. Zero timeouts fall back to two seconds.
type Options struct {
	Addr        string
	Password    string
	DB          int
	DialTimeout time.Duration
	PoolSize    int
}

type Client struct {
	*goredis.Client
	timeout time.Duration
}

// New connects and pings; a client that cannot reach Redis is closed and
// never returned.
func New(ctx context.Context, opts Options) (*Client, error) {
	timeout := opts.DialTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	c := &Client{
		Client: goredis.NewClient(&goredis.Options{
			Addr:         opts.Addr,
			Password:     opts.Password,
			DB:           opts.DB,
			DialTimeout:  timeout,
			ReadTimeout:  timeout,
			WriteTimeout: timeout,
			PoolSize:     opts.PoolSize,
		}),
		timeout: timeout,
	}

	if err := c.Check(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

// Check pings Redis within the client timeout.
func (c *Client) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: ping %s: %w", c.Options().Addr, err)
	}
	return nil
}
