package asqlite

import (
	"go.uber.org/zap"

	"github.com/asyncsqlite/asqlite-go/dispatch"
	"github.com/asyncsqlite/asqlite-go/engine"
)

// ScalarFunc is a scalar SQL function body. It receives one decoded Value
// per argument, in call order, and returns the result value.
//
// The body runs synchronously inside the engine's call stack on a pool
// worker; it must not block on other driver futures. A non-nil error does
// not fail the query: there is no channel to raise a SQL-level error from
// this boundary, so the result degrades to NULL and the error is logged.
type ScalarFunc func(args []Value) (Value, error)

// CreateScalarFunction registers body as a SQL scalar function callable as
// name with exactly arity arguments. Registration is one unit of pool work;
// the future is fulfilled once the engine accepts or rejects it.
//
// Once registered, the engine owns the function: it may invoke the body any
// number of times, long after this call returns, and the registration is
// released exactly once, when the engine signals teardown (on connection
// close or replacement).
func (c *Connection) CreateScalarFunction(name string, arity int, body ScalarFunc) *dispatch.Future[struct{}] {
	return dispatch.Run(c.loop, c.pool, func() (struct{}, error) {
		c.mu.RLock()
		defer c.mu.RUnlock()
		if c.closed {
			return struct{}{}, ErrClosed
		}

		invoke := func(raw []engine.RawValue) engine.RawValue {
			args := make([]Value, len(raw))
			for i, rv := range raw {
				args[i] = fromNative(rv)
			}
			result, err := body(args)
			if err != nil {
				// Degrade to NULL; the result slot is never left unset.
				c.logger.Warn("scalar function failed, returning NULL",
					zap.String("connection_id", c.id),
					zap.String("function", name),
					zap.Error(err))
				return engine.RawValue{Type: engine.TypeNull}
			}
			return result.toNative()
		}
		destroy := func() {
			c.logger.Debug("scalar function released",
				zap.String("connection_id", c.id),
				zap.String("function", name))
		}

		if err := c.conn.CreateScalarFunction(name, arity, invoke, destroy); err != nil {
			trackError("registration_error", "create_scalar_function")
			return struct{}{}, &RegistrationError{Function: name, Err: err}
		}
		c.logger.Debug("scalar function registered",
			zap.String("connection_id", c.id),
			zap.String("function", name),
			zap.Int("arity", arity))
		return struct{}{}, nil
	})
}
