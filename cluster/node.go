package cluster

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/puddle/v2"
	"github.com/sony/gobreaker/v2"

	"github.com/couchkit/couchkit/memd"
)

// node owns the connection pool and circuit breaker for one address.
type node struct {
	addr    string
	pool    *puddle.Pool[*conn]
	breaker *gobreaker.CircuitBreaker[struct{}]
}

func (t *Transport) newNode(addr string) (*node, error) {
	n := &node{addr: addr}

	pool, err := puddle.NewPool(&puddle.Config[*conn]{
		Constructor: func(ctx context.Context) (*conn, error) {
			return t.dial(ctx, addr)
		},
		Destructor: func(c *conn) {
			c.close()
		},
		MaxSize: t.cfg.MaxConnsPerNode,
	})
	if err != nil {
		return nil, fmt.Errorf("pool for %s: %w", addr, err)
	}
	n.pool = pool

	if t.cfg.NewBreaker != nil {
		n.breaker = t.cfg.NewBreaker(addr)
	}
	return n, nil
}

func (n *node) send(ctx context.Context, req *memd.Request, pend *pendingOp, timeout time.Duration) error {
	if n.breaker == nil {
		return n.sendOnce(ctx, req, pend, timeout)
	}
	_, err := n.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, n.sendOnce(ctx, req, pend, timeout)
	})
	return err
}

func (n *node) sendOnce(ctx context.Context, req *memd.Request, pend *pendingOp, timeout time.Duration) error {
	// A conn can die while idle in the pool; retry once over a fresh one.
	for attempt := 0; attempt < 2; attempt++ {
		res, err := n.pool.Acquire(ctx)
		if err != nil {
			return fmt.Errorf("acquire connection to %s: %w", n.addr, err)
		}

		c := res.Value()
		if c.dead.Load() {
			res.Destroy()
			continue
		}

		if err := c.send(req, pend, timeout); err != nil {
			if memd.ShouldCloseConnection(err) {
				res.Destroy()
			} else {
				res.Release()
			}
			return err
		}

		res.Release()
		return nil
	}
	return fmt.Errorf("no usable connection to %s", n.addr)
}

// NewBreakerConfig returns a breaker factory suitable for Config.NewBreaker.
// A node's breaker opens after at least 3 requests with a 60% failure ratio.
func NewBreakerConfig(maxRequests uint32, interval, timeout time.Duration) func(addr string) *gobreaker.CircuitBreaker[struct{}] {
	return func(addr string) *gobreaker.CircuitBreaker[struct{}] {
		settings := gobreaker.Settings{
			Name:        addr,
			MaxRequests: maxRequests,
			Interval:    interval,
			Timeout:     timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 3 && failureRatio >= 0.6
			},
		}
		return gobreaker.NewCircuitBreaker[struct{}](settings)
	}
}
