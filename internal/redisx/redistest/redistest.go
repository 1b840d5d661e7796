// Package redistest runs a minimal in-process Redis stand-in so tests can
// exercise the optional caching and dedup paths without a real server.
package redistest

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/redis/go-redis/v9"
)

// Server speaks just enough RESP for GET, SET, EXISTS, DEL and EXPIRE.
// Anything else is answered with +OK so client handshakes pass through.
type Server struct {
	ln      net.Listener
	mu      sync.Mutex
	data    map[string]string
	expired []string
}

func New(t *testing.T) *Server {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("redistest listen: %v", err)
	}
	s := &Server{ln: ln, data: map[string]string{}}
	go s.serve()
	t.Cleanup(func() { _ = ln.Close() })
	return s
}

func (s *Server) Client() *redis.Client {
	return redis.NewClient(&redis.Options{Addr: s.ln.Addr().String()})
}

func (s *Server) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
}

func (s *Server) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok
}

// Expired lists the keys EXPIRE was called on, in order.
func (s *Server) Expired() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.expired...)
}

func (s *Server) serve() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		go s.handle(conn)
	}
}

func (s *Server) handle(conn net.Conn) {
	defer conn.Close()
	br := bufio.NewReader(conn)
	for {
		args, err := readCommand(br)
		if err != nil {
			return
		}
		if _, err := conn.Write([]byte(s.dispatch(args))); err != nil {
			return
		}
	}
}

func (s *Server) dispatch(args []string) string {
	if len(args) == 0 {
		return "-ERR empty command\r\n"
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	switch strings.ToUpper(args[0]) {
	case "HELLO":
		// clients fall back to RESP2 on this
		return "-ERR unknown command 'HELLO'\r\n"
	case "PING":
		return "+PONG\r\n"
	case "GET":
		v, ok := s.data[args[1]]
		if !ok {
			return "$-1\r\n"
		}
		return fmt.Sprintf("$%d\r\n%s\r\n", len(v), v)
	case "SET":
		s.data[args[1]] = args[2]
		return "+OK\r\n"
	case "EXISTS":
		n := 0
		for _, k := range args[1:] {
			if _, ok := s.data[k]; ok {
				n++
			}
		}
		return fmt.Sprintf(":%d\r\n", n)
	case "DEL":
		n := 0
		for _, k := range args[1:] {
			if _, ok := s.data[k]; ok {
				delete(s.data, k)
				n++
			}
		}
		return fmt.Sprintf(":%d\r\n", n)
	case "EXPIRE":
		s.expired = append(s.expired, args[1])
		if _, ok := s.data[args[1]]; ok {
			return ":1\r\n"
		}
		return ":0\r\n"
	default:
		return "+OK\r\n"
	}
}

func readCommand(br *bufio.Reader) ([]string, error) {
	line, err := readLine(br)
	if err != nil {
		return nil, err
	}
	if len(line) == 0 || line[0] != '*' {
		return nil, fmt.Errorf("redistest: unexpected line %q", line)
	}
	n, err := strconv.Atoi(line[1:])
	if err != nil {
		return nil, err
	}
	args := make([]string, 0, n)
	for i := 0; i < n; i++ {
		hdr, err := readLine(br)
		if err != nil {
			return nil, err
		}
		if len(hdr) == 0 || hdr[0] != '$' {
			return nil, fmt.Errorf("redistest: unexpected header %q", hdr)
		}
		size, err := strconv.Atoi(hdr[1:])
		if err != nil {
			return nil, err
		}
		buf := make([]byte, size+2)
		if _, err := io.ReadFull(br, buf); err != nil {
			return nil, err
		}
		args = append(args, string(buf[:size]))
	}
	return args, nil
}

func readLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
