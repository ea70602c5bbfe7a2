package record

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DialFunc opens a new Session for the pool.
type DialFunc func(ctx context.Context) (Session, error)

// PoolConfig holds configuration for a Pool.
type PoolConfig struct {
	// Size is the maximum number of sessions checked out at once.
	// Default: 1
	Size int

	// Timeout bounds how long With waits for a free session.
	// Default: 5s
	Timeout time.Duration

	// Logger receives checkout failures. Default: no-op.
	Logger *zap.Logger
}

// DefaultPoolConfig returns the pool defaults.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		Size:    1,
		Timeout: 5 * time.Second,
	}
}

func (c *PoolConfig) validate() {
	if c.Size < 1 {
		c.Size = 1
	}
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
}

// Pool is a bounded set of sessions with timed checkout. It is safe for concurrent use.
type Pool struct {
	dial    DialFunc
	timeout time.Duration
	logger  *zap.Logger

	// tokens holds one entry per free slot; idle holds sessions ready for reuse.
	tokens chan struct{}
	idle   chan Session

	mu     sync.Mutex
	closed bool
}

// NewPool creates a pool that opens sessions lazily with dial.
func NewPool(config PoolConfig, dial DialFunc) *Pool {
	config.validate()
	p := &Pool{
		dial:    dial,
		timeout: config.Timeout,
		logger:  config.Logger,
		tokens:  make(chan struct{}, config.Size),
		idle:    make(chan Session, config.Size),
	}
	for i := 0; i < config.Size; i++ {
		p.tokens <- struct{}{}
	}
	return p
}

// With checks out a session, runs fn and returns the session to the pool on every
// exit path. It fails with ErrPoolExhausted if no session frees up within the timeout.
func (p *Pool) With(ctx context.Context, fn func(Session) error) error {
	if p.isClosed() {
		return ErrPoolClosed
	}

	timer := time.NewTimer(p.timeout)
	defer timer.Stop()

	select {
	case <-p.tokens:
	case <-timer.C:
		p.logger.Warn("connection pool checkout timed out", zap.Duration("timeout", p.timeout))
		return fmt.Errorf("%w: waited %s", ErrPoolExhausted, p.timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { p.tokens <- struct{}{} }()

	session, err := p.checkout(ctx)
	if err != nil {
		return err
	}
	defer p.checkin(session)

	return fn(session)
}

func (p *Pool) checkout(ctx context.Context) (Session, error) {
	select {
	case s := <-p.idle:
		return s, nil
	default:
	}
	s, err := p.dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("dial session: %w", err)
	}
	return s, nil
}

// checkin holds mu across the closed check and the send so Close cannot drain
// idle in between.
func (p *Pool) checkin(s Session) {
	p.mu.Lock()
	if !p.closed {
		select {
		case p.idle <- s:
			p.mu.Unlock()
			return
		default:
		}
	}
	p.mu.Unlock()
	closeSession(s)
}

func (p *Pool) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Close closes idle sessions. Sessions checked out at the time are closed on return.
func (p *Pool) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	for {
		select {
		case s := <-p.idle:
			closeSession(s)
		default:
			return
		}
	}
}

func closeSession(s Session) {
	if c, ok := s.(interface{ Close() }); ok {
		c.Close()
	}
}
