// Package detach implements the detach-channel server (spec.md §6): a
// Unix domain socket (or Windows named pipe, stubbed) at which attached
// peers receive the current action string once per tick, newline
// terminated, until they disconnect.
package detach

import (
	"net"
	"os"
	"path/filepath"
	"sync"
)

// SocketPath returns the conventional /tmp/<name>.sock path for an
// attach name.
func SocketPath(name string) string {
	return filepath.Join(os.TempDir(), name+".sock")
}

// Server accepts multiple clients and pushes the latest action string to
// each of them on every Broadcast call, dropping any peer whose write
// fails.
type Server struct {
	mu       sync.Mutex
	listener net.Listener
	clients  map[net.Conn]struct{}
}

// Listen starts accepting connections on the Unix socket at path,
// removing any stale socket file left by a crashed previous instance.
func Listen(path string) (*Server, error) {
	_ = os.Remove(path)
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}
	s := &Server{listener: ln, clients: make(map[net.Conn]struct{})}
	go s.acceptLoop()
	return s, nil
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		s.clients[conn] = struct{}{}
		s.mu.Unlock()
	}
}

// Broadcast writes action, newline-terminated, to every attached peer.
// Peers whose write fails are closed and dropped.
func (s *Server) Broadcast(action string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := []byte(action + "\n")
	for conn := range s.clients {
		if _, err := conn.Write(msg); err != nil {
			conn.Close()
			delete(s.clients, conn)
		}
	}
}

// Close stops accepting new connections, closes every attached peer, and
// removes the socket file.
func (s *Server) Close() error {
	s.mu.Lock()
	for conn := range s.clients {
		conn.Close()
	}
	s.clients = nil
	s.mu.Unlock()

	err := s.listener.Close()
	if unixAddr, ok := s.listener.Addr().(*net.UnixAddr); ok {
		_ = os.Remove(unixAddr.Name)
	}
	return err
}
