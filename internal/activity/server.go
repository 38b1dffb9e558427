package activity

import (
	"bufio"
	"net"
	"sync"

	"manualhub/pkg/logger"
)

// Server is the TCP side of the feed: connect, receive newline-framed
// JSON events. The read side is consumed and ignored.
type Server struct {
	Addr string
	Hub  *Hub
	Log  *logger.Logger

	mu sync.Mutex
	ln net.Listener
}

func NewServer(addr string, hub *Hub, log *logger.Logger) *Server {
	return &Server{Addr: addr, Hub: hub, Log: log.With("component", "activity-feed")}
}

func (s *Server) Run() error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()

	s.Log.Info("tcp feed listening", "addr", s.Addr)

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			// listener closed during shutdown
			return nil
		}

		s.Hub.Add(conn)
		s.Hub.Welcome(conn)
		s.Log.Debug("feed client connected", "transport", "tcp", "remote", conn.RemoteAddr().String())

		go func(c net.Conn) {
			defer func() {
				s.Hub.Remove(c)
				s.Log.Debug("feed client disconnected", "transport", "tcp", "remote", c.RemoteAddr().String())
			}()

			// Keep the connection alive; if client sends anything, just consume.
			sc := bufio.NewScanner(c)
			for sc.Scan() {
				// ignore incoming lines
			}
		}(conn)
	}
}

func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Close()
}
