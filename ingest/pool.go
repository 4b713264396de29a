package ingest

import "context"

// connPool is a FIFO of borrowed Connections, sized to the configured
// source count. borrow blocks until a connection is available; ret is
// called unconditionally on every exit path of a worker iteration, guaranteeing
// pool conservation (spec §8 invariant 3) — at most len(sources)
// simultaneous RPCs are in flight, and round-robin fairness falls out of
// the FIFO ordering.
type connPool struct {
	slots chan Connection
}

func newConnPool(conns []Connection) *connPool {
	p := &connPool{slots: make(chan Connection, len(conns))}
	for _, c := range conns {
		p.slots <- c
	}
	return p
}

// borrow blocks until a connection is available or ctx is done.
func (p *connPool) borrow(ctx context.Context) (Connection, error) {
	select {
	case conn := <-p.slots:
		return conn, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ret returns a connection to the pool. It never blocks: the pool was
// sized to exactly the number of connections handed to newConnPool, so
// there is always room.
func (p *connPool) ret(conn Connection) {
	p.slots <- conn
}

func (p *connPool) closeAll() error {
	close(p.slots)
	var firstErr error
	for conn := range p.slots {
		if err := conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
