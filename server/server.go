package server

import (
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
)

var handleDelay = 10 * time.Millisecond

/*
Server manages listener lifecycle and client connection goroutines.
*/
type Server struct {
	addr    string
	backend QueryBackend
	logger  *zap.Logger

	ln           net.Listener
	wg           sync.WaitGroup
	ready        chan struct{}	// Signals that the listener is initialized
	shuttingDown chan struct{}	 // Signals intentional server shutdown ~ not sure about it :/

	HandleFunc func(net.Conn, string) // Optional hook for testing or custom handling

}

func NewServer(addr string, backend QueryBackend, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		addr:         addr,
		backend:      backend,
		logger:       logger,
		ready:        make(chan struct{}),
		shuttingDown: make(chan struct{}),
	}
}

/*
Start begins listening and accepts connections until shutdown.
*/
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.logger.Error("listen failed", zap.String("addr", s.addr), zap.Error(err))
		return err
	}

	s.ln = ln
	close(s.ready)
	s.logger.Info("listening", zap.Stringer("addr", ln.Addr()))

	for {
		conn, err := ln.Accept()
		if err != nil {
			select  {
			case <- s.shuttingDown:
				return nil
			default:
				return err
			}
		}

		s.wg.Add(1)
		go func(c net.Conn) {
			defer s.wg.Done()
			s.handleConnection(c)
		}(conn)
	}
}

/*
Stop initiates graceful shutdown:
- stops accepting new connections
- waits for active handlers to exit
*/
func (s *Server) Stop() {
	<-s.ready
	close(s.shuttingDown)
	if s.ln != nil {
		s.ln.Close()
	}
	s.wg.Wait()
}
