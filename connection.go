package asqlite

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/asyncsqlite/asqlite-go/dispatch"
	"github.com/asyncsqlite/asqlite-go/engine"
)

// Storage selects where the database lives.
type Storage struct {
	path string
}

// Memory selects a transient in-memory database.
func Memory() Storage { return Storage{path: ":memory:"} }

// File selects an on-disk database at path, created if missing.
func File(path string) Storage { return Storage{path: path} }

// String returns the native storage spec.
func (s Storage) String() string {
	if s.path == "" {
		return ":memory:"
	}
	return s.path
}

// Config holds connection configuration options.
type Config struct {
	// Storage is the database location. Default: in-memory.
	Storage Storage

	// Logger receives driver diagnostics. Default: a no-op logger.
	Logger *zap.Logger
}

// DefaultConfig returns the default configuration for a storage location.
func DefaultConfig(storage Storage) *Config {
	return &Config{
		Storage: storage,
		Logger:  zap.NewNop(),
	}
}

// Connection owns exactly one native database handle plus the loop and pool
// used to schedule work against it.
//
// Every operation is non-blocking from the loop's perspective: it returns a
// future immediately and completes on a pool worker. The driver performs no
// internal queueing: operations submitted concurrently against one
// connection are not ordered; callers chain the returned futures when
// ordering matters, since the native handle must not be used by two workers
// at once.
//
// Example:
//
//	loop := dispatch.NewLoop()
//	pool := dispatch.NewPool(4)
//	conn, err := asqlite.Open(asqlite.Memory(), pool, loop).Await()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	rows, err := conn.Query("SELECT 1 AS one").Await()
type Connection struct {
	id     string
	loop   *dispatch.Loop
	pool   *dispatch.Pool
	logger *zap.Logger

	mu     sync.RWMutex
	conn   engine.Conn
	closed bool
}

// Open opens a connection with default configuration.
func Open(storage Storage, pool *dispatch.Pool, loop *dispatch.Loop) *dispatch.Future[*Connection] {
	return OpenWithConfig(DefaultConfig(storage), pool, loop)
}

// OpenWithConfig opens a connection with custom configuration. The native
// open happens on a pool worker; the returned future is fulfilled on loop.
func OpenWithConfig(config *Config, pool *dispatch.Pool, loop *dispatch.Loop) *dispatch.Future[*Connection] {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	storage := config.Storage.String()

	return dispatch.Run(loop, pool, func() (*Connection, error) {
		ec, err := engine.Open(storage)
		if err != nil {
			trackError("connection_error", "open")
			return nil, err
		}
		c := &Connection{
			id:     uuid.NewString(),
			loop:   loop,
			pool:   pool,
			logger: logger,
			conn:   ec,
		}
		c.logger.Debug("connection opened",
			zap.String("connection_id", c.id),
			zap.String("storage", storage))
		trackConnectionOpened()
		return c, nil
	})
}

// Query prepares sql, binds params positionally, steps through every result
// row, and finalizes the statement, all as one unit of pool work. The
// future delivers the accumulated rows, or the engine's structured error
// with any partial rows discarded.
func (c *Connection) Query(sql string, params ...Value) *dispatch.Future[[]Row] {
	return dispatch.Run(c.loop, c.pool, func() ([]Row, error) {
		c.mu.RLock()
		defer c.mu.RUnlock()
		if c.closed {
			return nil, ErrClosed
		}
		rows, err := execQuery(c.conn, sql, params)
		if err != nil {
			c.logger.Debug("query failed",
				zap.String("connection_id", c.id),
				zap.Error(err))
			trackError("query_error", "query")
			return nil, err
		}
		return rows, nil
	})
}

// Close releases the native handle. All operations after Close fail with
// ErrClosed, including a second Close.
func (c *Connection) Close() *dispatch.Future[struct{}] {
	return dispatch.Run(c.loop, c.pool, func() (struct{}, error) {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.closed {
			return struct{}{}, ErrClosed
		}
		c.closed = true
		err := c.conn.Close()
		c.logger.Debug("connection closed", zap.String("connection_id", c.id))
		return struct{}{}, err
	})
}
