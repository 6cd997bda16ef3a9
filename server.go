package main

import (
	"context"
	"io"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/rs/xid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// readChunkSize is how much a connection reads from its socket at a time.
const readChunkSize = 4096

// Server owns the listening socket, the shared cache and statistics, and
// one session goroutine per accepted connection.
type Server struct {
	config *Config
	stats  *Stats
	mc     *Memcached
	pool   *BytePool

	mu       sync.Mutex
	listener net.Listener
	conns    map[string]net.Conn

	running atomic.Bool
	wg      sync.WaitGroup
}

func NewServer(config *Config) *Server {
	stats := NewStats()
	return &Server{
		config: config,
		stats:  stats,
		mc:     newMemcached(stats, config.MaxItems, config.MaxBytes()),
		pool:   NewBytePool(),
		conns:  make(map[string]net.Conn),
	}
}

func reuseAddr(network, address string, c syscall.RawConn) error {
	var serr error
	err := c.Control(func(fd uintptr) {
		serr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	})
	if err != nil {
		return err
	}
	return serr
}

// Start binds the listening socket and serves until Stop. It returns
// immediately with an error when the bind fails.
func (s *Server) Start() error {
	lc := net.ListenConfig{Control: reuseAddr}
	address := net.JoinHostPort(s.config.Interface, strconv.Itoa(s.config.TCPPort))

	listener, err := lc.Listen(context.Background(), "tcp", address)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %s", address)
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()
	s.running.Store(true)

	logrus.Infof("server started on %s", listener.Addr())

	for {
		conn, err := listener.Accept()
		if err != nil {
			if !s.running.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			logrus.WithError(err).Error("accept error")
			continue
		}
		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

// Addr reports the bound listener address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop closes the listener and every live connection, then waits for the
// session goroutines to drain.
func (s *Server) Stop() error {
	s.running.Store(false)

	var result *multierror.Error

	s.mu.Lock()
	if s.listener != nil {
		if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			result = multierror.Append(result, err)
		}
	}
	conns := make([]net.Conn, 0, len(s.conns))
	for _, conn := range s.conns {
		conns = append(conns, conn)
	}
	s.mu.Unlock()

	for _, conn := range conns {
		if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			result = multierror.Append(result, err)
		}
	}

	s.wg.Wait()
	logrus.Info("server stopped")
	return result.ErrorOrNil()
}

// handleConnection is one connection's session loop: read a chunk, feed the
// protocol machine, flush whatever replies it produced.
func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()

	id := xid.New().String()
	log := connLogger(id, conn.RemoteAddr())

	s.mu.Lock()
	s.conns[id] = conn
	s.mu.Unlock()
	s.stats.connect()
	log.Debug("ready")

	defer func() {
		conn.Close()
		s.stats.disconnect()
		s.mu.Lock()
		delete(s.conns, id)
		s.mu.Unlock()
		log.Debug("closed")
	}()

	proto := newProtocol(s.stats, s.mc, log)
	buf := s.pool.Get(readChunkSize)
	defer s.pool.Put(buf)

	for {
		n, err := conn.Read(buf)
		if n > 0 {
			reply, quit := proto.Feed(buf[:n])
			if len(reply) > 0 {
				if _, werr := conn.Write(reply); werr != nil {
					log.WithError(werr).Warn("error writing to client")
					return
				}
			}
			if quit {
				return
			}
		}
		if err != nil {
			switch {
			case err == io.EOF:
				log.Debug("connection closed by peer")
			case errors.Is(err, net.ErrClosed):
			default:
				log.WithError(err).Warn("error reading from client")
			}
			return
		}
	}
}
