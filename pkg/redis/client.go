package redis

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/redis/go-redis/v9"
)

const connectTimeout = 5 * time.Second

type Config struct {
	Host     string
	Port     int
	Password string
	DB       int
	// PoolSize of zero keeps the go-redis default.
	PoolSize int
}

func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c Config) options() *redis.Options {
	return &redis.Options{
		Addr:        c.Addr(),
		Password:    c.Password,
		DB:          c.DB,
		PoolSize:    c.PoolSize,
		DialTimeout: connectTimeout,
	}
}

// Client holds the connection backing import locks.
type Client struct {
	rdb    *redis.Client
	addr   string
	logger ectologger.Logger
}

// NewClient dials Redis and fails unless the server answers within connectTimeout.
func NewClient(ctx context.Context, cfg Config, logger ectologger.Logger) (*Client, error) {
	rdb := redis.NewClient(cfg.options())
	c := &Client{rdb: rdb, addr: cfg.Addr(), logger: logger}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := c.Ping(pingCtx); err != nil {
		_ = rdb.Close()
		return nil, err
	}

	logger.WithContext(ctx).WithField("addr", c.addr).Info("Redis connected")
	return c, nil
}

// Ping is used as the readiness check for the lock store.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis %s unreachable: %w", c.addr, err)
	}
	return nil
}

func (c *Client) TTL(ctx context.Context, key string) (time.Duration, error) {
	return c.rdb.TTL(ctx, key).Result()
}

func (c *Client) Close() error {
	c.logger.WithField("addr", c.addr).Debug("Closing Redis connection")
	return c.rdb.Close()
}
