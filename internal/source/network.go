package source

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/rileyhilliard/vitals/internal/errors"
	"github.com/rileyhilliard/vitals/internal/logger"
)

// dialTimeout bounds the connection attempt so a retry round keeps moving.
const dialTimeout = 5 * time.Second

// NetworkStream consumes the JSON-line event feed an instrumented process
// serves on an exposed host:port endpoint.
type NetworkStream struct {
	addr      string
	log       logger.Logger
	mu        sync.Mutex
	conn      net.Conn
	closeOnce sync.Once
}

// NewNetworkStream creates a stream for the given host:port address.
func NewNetworkStream(addr string, log logger.Logger) *NetworkStream {
	return &NetworkStream{addr: addr, log: log}
}

// Live returns true: a dropped network feed is reconnected.
func (s *NetworkStream) Live() bool { return true }

// Events dials the endpoint and starts delivery. The channel closes when
// the peer closes the connection or Close is called.
func (s *NetworkStream) Events(ctx context.Context) (<-chan Event, error) {
	conn, err := net.DialTimeout("tcp", s.addr, dialTimeout)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConnect,
			"Could not connect to "+s.addr,
			"Check the process is running with its stream endpoint enabled")
	}
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	ch := make(chan Event)
	go func() {
		defer close(ch)
		defer s.Close()
		deliverLines(ctx, conn, ch, s.log)
	}()
	return ch, nil
}

// Close tears down the connection, unblocking the delivery goroutine.
// Idempotent.
func (s *NetworkStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.conn != nil {
			err = s.conn.Close()
		}
	})
	return err
}
